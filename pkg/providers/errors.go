package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a bad image, option value, or option combination
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrFeatureUnavailable reports an engine that is not present on this host
	ErrFeatureUnavailable = errors.New("feature unavailable")
	// ErrEngine reports a failure signalled by an asynchronous engine
	ErrEngine = errors.New("engine error")
)

// InvalidArgument returns an error wrapping ErrInvalidArgument
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// FeatureUnavailable returns an error wrapping ErrFeatureUnavailable for the named engine
func FeatureUnavailable(engine string) error {
	return fmt.Errorf("%w: %s is not available on this host", ErrFeatureUnavailable, engine)
}

// Outcome names how a recognition call finished
type Outcome int

const (
	// OutcomeComplete means the engine answered
	OutcomeComplete Outcome = iota
	// OutcomeEngineFailed means a recognizer reported failure and the result is empty
	OutcomeEngineFailed
	// OutcomeTimedOut means an analyzer did not answer before the deadline
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeEngineFailed:
		return "engine-failed"
	case OutcomeTimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText lets Outcome serialize by name
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses an outcome name
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, candidate := range []Outcome{OutcomeComplete, OutcomeEngineFailed, OutcomeTimedOut} {
		if candidate.String() == string(text) {
			*o = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Result is what an adapter returns for one recognition call
type Result struct {
	Detections []Detection
	Outcome    Outcome
}
