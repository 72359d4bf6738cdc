package broker

import "fmt"

// FailureKind classifies a message-handling failure. Today every failure is
// permanent: the message is finalized and acknowledged, never requeued,
// because partially-transferred remote state cannot be rolled back. The
// transient kind exists so a future retry strategy has somewhere to hang.
type FailureKind int

const (
	// FailurePermanent finalizes the job as failed and drops the message
	FailurePermanent FailureKind = iota
	// FailureTransient is reserved; no failure is classified transient yet
	FailureTransient
)

func (k FailureKind) String() string {
	if k == FailureTransient {
		return "transient"
	}
	return "permanent"
}

// handlerError carries the failure kind alongside the cause.
type handlerError struct {
	kind FailureKind
	err  error
}

func (e *handlerError) Error() string {
	return fmt.Sprintf("%s failure: %v", e.kind, e.err)
}

func (e *handlerError) Unwrap() error {
	return e.err
}

// permanent wraps an error as a permanent handling failure.
func permanent(err error) *handlerError {
	return &handlerError{kind: FailurePermanent, err: err}
}
