package crowd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// VideoID identifies a video in a play queue.
type VideoID uuid.UUID

// ParseVideoID parses the textual form of a video ID
func ParseVideoID(s string) (VideoID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return VideoID{}, fmt.Errorf("%w: invalid video id %q", ErrMalformed, s)
	}
	return VideoID(parsed), nil
}

func (id VideoID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText implements encoding.TextMarshaler
func (id VideoID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *VideoID) UnmarshalText(data []byte) error {
	parsed, err := ParseVideoID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
