package crowd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Stamped pairs a value with the moment it was issued. On the wire it is a
// two element array: [timestamp, value].
type Stamped[T any] struct {
	At    time.Time
	Value T
}

// TimedCommand is a participant command as queued for the player.
type TimedCommand = Stamped[ParticipantCommand]

// TimedUpdate is a player update as broadcast to participants.
type TimedUpdate = Stamped[PlayerUpdate]

// Stamp pairs v with at.
func Stamp[T any](at time.Time, v T) Stamped[T] {
	return Stamped[T]{At: at, Value: v}
}

// MarshalJSON implements json.Marshaler
func (s Stamped[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{s.At.UTC(), s.Value})
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Stamped[T]) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &parts); err != nil {
		return fmt.Errorf("%w: expected [timestamp, value]: %v", ErrMalformed, err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("%w: expected 2 elements, got %d", ErrMalformed, len(parts))
	}

	var out Stamped[T]
	at, err := decodeTimestamp(parts[0])
	if err != nil {
		return err
	}
	out.At = at
	if err := json.Unmarshal(parts[1], &out.Value); err != nil {
		return err
	}

	*s = out
	return nil
}

// decodeTimestamp accepts an RFC 3339 string or a number of milliseconds
// since the Unix epoch.
func decodeTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("%w: missing timestamp", ErrMalformed)
	}
	if raw[0] != '"' {
		var millis int64
		if err := json.Unmarshal(raw, &millis); err != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrMalformed, err)
		}
		return time.UnixMilli(millis).UTC(), nil
	}

	var at time.Time
	if err := json.Unmarshal(raw, &at); err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrMalformed, err)
	}
	return at.UTC(), nil
}

// ParseUpdate decodes a [timestamp, update] frame sent by a player.
func ParseUpdate(data []byte) (TimedUpdate, error) {
	var update TimedUpdate
	if err := update.UnmarshalJSON(data); err != nil {
		return TimedUpdate{}, err
	}
	return update, nil
}
