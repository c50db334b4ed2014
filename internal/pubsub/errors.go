package pubsub

// Errors
var (
	ErrClosed   = &ChannelError{Message: "channel closed"}
	ErrLagged   = &ChannelError{Message: "subscriber lagged behind"}
	ErrReleased = &ChannelError{Message: "sender already released"}
)

// ChannelError represents a channel failure
type ChannelError struct {
	Message string
}

func (e *ChannelError) Error() string {
	return e.Message
}
