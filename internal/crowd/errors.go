package crowd

// Errors
var (
	ErrInvalidID = &ProtocolError{Message: "invalid crowd id"}
	ErrMalformed = &ProtocolError{Message: "malformed message"}
)

// ProtocolError represents a message that cannot be understood
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}
