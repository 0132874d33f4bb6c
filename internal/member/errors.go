package member

// OperationError is a user-visible domain error. Command handlers catch
// it and report Msg to the user instead of propagating a stack trace.
type OperationError struct {
	Msg string
}

func (e *OperationError) Error() string { return e.Msg }

// NewOperationError builds an OperationError with the given message.
func NewOperationError(msg string) *OperationError {
	return &OperationError{Msg: msg}
}

var (
	ErrPermissionDenied = NewOperationError("Permission denied")
	ErrSelfTarget       = NewOperationError("You cannot target yourself.")
	ErrOutranked        = NewOperationError("You cannot act on a member whose role is not below your own.")
)
