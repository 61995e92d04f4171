package deploy

import "fmt"

// Kind classifies pipeline failures so callers can decide whether a retry
// of the whole run makes sense.
type Kind int

const (
	KindCredentialUnreadable Kind = iota + 1
	KindCompilation
	KindArgumentResolution
	KindSimulationRevert
	KindInsufficientFunds
	KindNetworkTransient
	KindConfirmationTimeout
	KindTransactionReverted
	KindUserDeclined
)

func (k Kind) String() string {
	switch k {
	case KindCredentialUnreadable:
		return "credential unreadable"
	case KindCompilation:
		return "compilation failed"
	case KindArgumentResolution:
		return "argument resolution failed"
	case KindSimulationRevert:
		return "simulation reverted"
	case KindInsufficientFunds:
		return "insufficient funds"
	case KindNetworkTransient:
		return "network failure"
	case KindConfirmationTimeout:
		return "confirmation timeout"
	case KindTransactionReverted:
		return "transaction reverted"
	case KindUserDeclined:
		return "declined by user"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a pipeline failure with enough structure to act on: the kind,
// the state the pipeline was in, and a human message.
type Error struct {
	Kind    Kind
	State   State
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func failf(kind Kind, state State, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		State:   state,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
