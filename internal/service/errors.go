package service

// Errors
var (
	ErrHandshake   = &ConnectionError{Message: "handshake failed"}
	ErrProtocol    = &ConnectionError{Message: "protocol violation"}
	ErrIdleTimeout = &ConnectionError{Message: "player idle timeout"}
)

// ConnectionError represents a condition that ends one connection
type ConnectionError struct {
	Message string
}

func (e *ConnectionError) Error() string {
	return e.Message
}
