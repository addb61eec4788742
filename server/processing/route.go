package processing

import "strings"

// Route is the outcome of classifying an event.
type Route string

const (
	RouteIgnored        Route = "ignored"
	RouteAutoRewrite    Route = "auto_rewrite"
	RouteQuestion       Route = "question"
	RouteUnknownCommand Route = "unknown_command"
)

const (
	commandPrefix  = "/"
	questionPrefix = "/q"
)

// Classify decides how an event is handled. Non-text events are ignored,
// plain text is rewritten, "/q" asks a question and any other "/" command
// is reported as unknown.
func Classify(ev Event) Route {
	if !ev.IsText() {
		return RouteIgnored
	}
	switch {
	case !strings.HasPrefix(ev.Text, commandPrefix):
		return RouteAutoRewrite
	case strings.HasPrefix(ev.Text, questionPrefix):
		return RouteQuestion
	default:
		return RouteUnknownCommand
	}
}

// UseCase maps a route to its use case. ok is false for routes that
// produce no completion.
func (r Route) UseCase() (useCase UseCase, ok bool) {
	switch r {
	case RouteAutoRewrite:
		return UseCaseAutoRewrite, true
	case RouteQuestion:
		return UseCaseQuestion, true
	}
	return "", false
}

// CommandToken returns the leading command of text, e.g. "/help" for
// "/help me". It is only used for logging unknown commands.
func CommandToken(text string) string {
	if i := strings.IndexFunc(text, isSpace); i >= 0 {
		return text[:i]
	}
	return text
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　'
}
