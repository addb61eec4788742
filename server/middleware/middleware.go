package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestTimer reports the handling time in the X-Response-Time header.
// The header is set before the body is flushed, so it is written through
// a hook on the first WriteHeader.
func RequestTimer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		tw := &timedWriter{WrapResponseWriter: ww, start: start}
		next.ServeHTTP(tw, r)
		if !tw.wroteHeader {
			tw.setHeader()
		}
	})
}

type timedWriter struct {
	middleware.WrapResponseWriter
	start       time.Time
	wroteHeader bool
}

func (w *timedWriter) setHeader() {
	w.wroteHeader = true
	w.Header().Set("X-Response-Time", time.Since(w.start).String())
}

func (w *timedWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.setHeader()
	}
	w.WrapResponseWriter.WriteHeader(code)
}

func (w *timedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.setHeader()
	}
	return w.WrapResponseWriter.Write(b)
}
