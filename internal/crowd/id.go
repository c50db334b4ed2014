package crowd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID identifies a crowd. It is random and shared out of band.
type ID uuid.UUID

// NewID returns a random crowd ID
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the textual form of a crowd ID, ignoring surrounding
// whitespace.
func ParseID(s string) (ID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(parsed), nil
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText implements encoding.TextMarshaler
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *ID) UnmarshalText(data []byte) error {
	parsed, err := ParseID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
