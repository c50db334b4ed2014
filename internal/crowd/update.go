package crowd

import (
	"fmt"
)

// UpdateKind names a PlayerUpdate variant. The kinds double as the
// categories a participant can be interested in.
type UpdateKind int

const (
	UpdatePlaybackPosition UpdateKind = iota
	UpdateIsPaused
	UpdateSpeed
	UpdateQueue
	UpdatePing

	numUpdateKinds
)

var updateKindNames = [numUpdateKinds]string{
	UpdatePlaybackPosition: "PlaybackPosition",
	UpdateIsPaused:         "IsPaused",
	UpdateSpeed:            "Speed",
	UpdateQueue:            "Queue",
	UpdatePing:             "Ping",
}

func (k UpdateKind) String() string {
	if k < 0 || k >= numUpdateKinds {
		return fmt.Sprintf("UpdateKind(%d)", int(k))
	}
	return updateKindNames[k]
}

// Filtered reports whether updates of this kind carry state that a
// participant's own commands can make stale.
func (k UpdateKind) Filtered() bool {
	return k != UpdatePing && k >= 0 && k < numUpdateKinds
}

// Queue is the player's full play queue.
type Queue struct {
	Videos  []VideoID `json:"videos"`
	Current *int      `json:"current"`
}

// PlayerUpdate is the authoritative state the player publishes.
type PlayerUpdate struct {
	Kind     UpdateKind
	Position float64
	Paused   bool
	Speed    float64
	Queue    Queue
}

func PlaybackPositionUpdate(seconds float64) PlayerUpdate {
	return PlayerUpdate{Kind: UpdatePlaybackPosition, Position: seconds}
}

func IsPausedUpdate(paused bool) PlayerUpdate {
	return PlayerUpdate{Kind: UpdateIsPaused, Paused: paused}
}

func SpeedUpdate(speed float64) PlayerUpdate {
	return PlayerUpdate{Kind: UpdateSpeed, Speed: speed}
}

func QueueUpdate(queue Queue) PlayerUpdate {
	return PlayerUpdate{Kind: UpdateQueue, Queue: queue}
}

func PingUpdate() PlayerUpdate {
	return PlayerUpdate{Kind: UpdatePing}
}

// MarshalJSON implements json.Marshaler
func (u PlayerUpdate) MarshalJSON() ([]byte, error) {
	tag := u.Kind.String()
	switch u.Kind {
	case UpdatePlaybackPosition:
		return encodeTagged(tag, u.Position)
	case UpdateIsPaused:
		return encodeTagged(tag, u.Paused)
	case UpdateSpeed:
		return encodeTagged(tag, u.Speed)
	case UpdateQueue:
		queue := u.Queue
		if queue.Videos == nil {
			queue.Videos = []VideoID{}
		}
		return encodeTagged(tag, queue)
	case UpdatePing:
		return encodeTagged(tag, nil)
	}
	return nil, fmt.Errorf("unknown player update kind %d", int(u.Kind))
}

// UnmarshalJSON implements json.Unmarshaler
func (u *PlayerUpdate) UnmarshalJSON(data []byte) error {
	tag, payload, err := decodeTagged(data)
	if err != nil {
		return err
	}

	var out PlayerUpdate
	switch tag {
	case "PlaybackPosition":
		out.Kind = UpdatePlaybackPosition
		err = decodePayload(tag, payload, &out.Position)
	case "IsPaused":
		out.Kind = UpdateIsPaused
		err = decodePayload(tag, payload, &out.Paused)
	case "Speed":
		out.Kind = UpdateSpeed
		err = decodePayload(tag, payload, &out.Speed)
	case "Queue":
		out.Kind = UpdateQueue
		err = decodePayload(tag, payload, &out.Queue)
	case "Ping":
		out.Kind = UpdatePing
		err = requireUnit(tag, payload)
	default:
		return fmt.Errorf("%w: unknown player update %q", ErrMalformed, tag)
	}
	if err != nil {
		return err
	}

	*u = out
	return nil
}
