// Package transport carries crowd frames between the relay and browsers.
package transport

// FrameType distinguishes text frames from binary ones.
type FrameType int

const (
	FrameText FrameType = iota + 1
	FrameBinary
)

func (t FrameType) String() string {
	switch t {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	}
	return "unknown"
}

// Frame is one discrete message received from a peer.
type Frame struct {
	Type FrameType
	Data []byte
}

// Text returns the payload of a text frame. Any other frame type is
// ErrUnexpectedFrame.
func (f Frame) Text() ([]byte, error) {
	if f.Type != FrameText {
		return nil, ErrUnexpectedFrame
	}
	return f.Data, nil
}

// Conn is a duplex frame stream to one browser.
//
// Receive blocks for the next frame and returns ErrClosed once the peer
// closed the stream gracefully. Send and Close may be called concurrently
// with Receive.
type Conn interface {
	Receive() (Frame, error)
	SendText(data []byte) error
	// Reject closes the stream telling the peer why it was refused.
	Reject(reason string) error
	Close() error
	RemoteAddr() string
}

// Errors
var (
	ErrClosed          = &TransportError{Message: "connection closed"}
	ErrUnexpectedFrame = &TransportError{Message: "unexpected frame type"}
)

// TransportError represents a failure of the frame stream
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string {
	return e.Message
}
