package control

import (
	"errors"

	"github.com/smazurov/rpirtspd/internal/metrics"
)

// Directive failures. All are recovered locally: the directive is skipped
// and processing continues with the next one.
var (
	ErrMalformedDirective = errors.New("malformed directive")
	ErrUnknownParameter   = errors.New("unknown parameter")
	ErrNoActiveInstance   = errors.New("no active instance")
	ErrStageNotFound      = errors.New("stage not found")
	ErrTypeCoercionFailed = errors.New("type coercion failed")
)

// Reason returns the short failure class of err, as used in events and
// metric labels. A nil error maps to "applied".
func Reason(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeApplied
	case errors.Is(err, ErrMalformedDirective):
		return metrics.OutcomeMalformed
	case errors.Is(err, ErrUnknownParameter):
		return metrics.OutcomeUnknownParameter
	case errors.Is(err, ErrNoActiveInstance):
		return metrics.OutcomeNoActiveInstance
	case errors.Is(err, ErrStageNotFound):
		return metrics.OutcomeStageNotFound
	case errors.Is(err, ErrTypeCoercionFailed):
		return metrics.OutcomeTypeCoercionFailed
	default:
		return "error"
	}
}
