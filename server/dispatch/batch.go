package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/teilomillet/kotoba/errors"
	"github.com/teilomillet/kotoba/server/middleware"
	"github.com/teilomillet/kotoba/server/processing"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HandleBatch handles every event concurrently and waits for all of them.
// One failing event never cancels the others. The returned error combines
// the failures of all events, or is nil.
//
// The events run on a context detached from ctx's cancellation, so a
// webhook caller that disconnects does not abort replies in flight. Values
// such as the request ID are kept.
func (d *Dispatcher) HandleBatch(ctx context.Context, events []processing.Event) error {
	ctx = context.WithoutCancel(ctx)
	if d.metrics != nil {
		d.metrics.BatchSize.Observe(float64(len(events)))
	}

	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}

	errs := make([]error, len(events))
	for i, ev := range events {
		g.Go(func() error {
			errs[i] = d.handleOne(ctx, i, ev)
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}

func (d *Dispatcher) handleOne(ctx context.Context, index int, ev processing.Event) (err error) {
	if d.metrics != nil {
		d.metrics.InFlightEvents.Inc()
		defer d.metrics.InFlightEvents.Dec()
	}

	defer func() {
		if r := recover(); r != nil {
			requestID := middleware.GetRequestID(ctx)
			d.logger.Error("panic while handling event",
				zap.String("request_id", requestID),
				zap.Int("index", index),
				zap.Any("error", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("event %d: %w", index, errors.NewInternalError(requestID, fmt.Errorf("panic: %v", r)))
		}
	}()

	if _, err := d.Handle(ctx, ev); err != nil {
		return fmt.Errorf("event %d: %w", index, err)
	}
	return nil
}
