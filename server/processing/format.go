package processing

import (
	"strings"
	"unicode/utf8"

	"github.com/teilomillet/kotoba/config"
)

// MaxReplyLength is the longest text message LINE accepts, in characters.
const MaxReplyLength = 5000

var quotePairs = [][2]string{
	{`"`, `"`},
	{"「", "」"},
}

// NormalizeCompletion trims model output and removes one layer of
// wrapping quotes, either "..." or 「...」, when they span the whole text.
// Quotes are kept when the outer pair belongs to two quotations, as in
// `"a" and "b"` or 「a」と「b」.
func NormalizeCompletion(content string) string {
	content = strings.TrimSpace(content)
	for _, q := range quotePairs {
		if len(content) < len(q[0])+len(q[1]) ||
			!strings.HasPrefix(content, q[0]) || !strings.HasSuffix(content, q[1]) {
			continue
		}
		inner := content[len(q[0]) : len(content)-len(q[1])]
		if !encloses(inner, q[0], q[1]) {
			return content
		}
		return strings.TrimSpace(inner)
	}
	return content
}

// encloses reports whether the outer delimiters pair with each other, i.e.
// every delimiter inside inner is balanced. Symmetric quotes cannot nest, so
// any occurrence inside breaks the pairing.
func encloses(inner, left, right string) bool {
	if left == right {
		return !strings.Contains(inner, left)
	}
	depth := 0
	for len(inner) > 0 {
		switch {
		case strings.HasPrefix(inner, left):
			depth++
			inner = inner[len(left):]
		case strings.HasPrefix(inner, right):
			if depth == 0 {
				return false
			}
			depth--
			inner = inner[len(right):]
		default:
			_, size := utf8.DecodeRuneInString(inner)
			inner = inner[size:]
		}
	}
	return depth == 0
}

// ReplyFormatter shapes reply text before it is sent.
type ReplyFormatter struct {
	maxLength int
}

// NewReplyFormatter returns a formatter truncating at cfg.MaxLength runes.
// Zero means the LINE limit.
func NewReplyFormatter(cfg config.ResponseFormattingConfig) *ReplyFormatter {
	maxLength := cfg.MaxLength
	if maxLength <= 0 || maxLength > MaxReplyLength {
		maxLength = MaxReplyLength
	}
	return &ReplyFormatter{maxLength: maxLength}
}

// Format truncates text to the configured number of runes.
func (f *ReplyFormatter) Format(text string) string {
	if utf8.RuneCountInString(text) <= f.maxLength {
		return text
	}
	n := 0
	for i := range text {
		if n == f.maxLength {
			return text[:i]
		}
		n++
	}
	return text
}
