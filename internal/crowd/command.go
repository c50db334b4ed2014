package crowd

import (
	"fmt"
)

// CommandKind names a ParticipantCommand variant.
type CommandKind int

const (
	CommandSetPlaybackPosition CommandKind = iota
	CommandSetIsPaused
	CommandSetSpeed
	CommandGoTo
	CommandAddToQueue
	CommandMoveInQueue
	CommandDeleteFromQueue
	CommandPing

	numCommandKinds
)

type commandInfo struct {
	name     string
	affects  UpdateKind
	stateful bool
}

var commandInfos = [numCommandKinds]commandInfo{
	CommandSetPlaybackPosition: {name: "SetPlaybackPosition", affects: UpdatePlaybackPosition, stateful: true},
	CommandSetIsPaused:         {name: "SetIsPaused", affects: UpdateIsPaused, stateful: true},
	CommandSetSpeed:            {name: "SetSpeed", affects: UpdateSpeed, stateful: true},
	CommandGoTo:                {name: "GoTo", affects: UpdateQueue, stateful: true},
	CommandAddToQueue:          {name: "AddToQueue", affects: UpdateQueue, stateful: true},
	CommandMoveInQueue:         {name: "MoveInQueue", affects: UpdateQueue, stateful: true},
	CommandDeleteFromQueue:     {name: "DeleteFromQueue", affects: UpdateQueue, stateful: true},
	CommandPing:                {name: "Ping"},
}

func (k CommandKind) String() string {
	if k < 0 || k >= numCommandKinds {
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
	return commandInfos[k].name
}

// Move relocates a queue entry.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ParticipantCommand is a playback change a participant asks the player
// to make.
type ParticipantCommand struct {
	Kind     CommandKind
	Position float64
	Paused   bool
	Speed    float64
	Index    int
	VideoID  VideoID
	Move     Move
}

func SetPlaybackPosition(seconds float64) ParticipantCommand {
	return ParticipantCommand{Kind: CommandSetPlaybackPosition, Position: seconds}
}

func SetIsPaused(paused bool) ParticipantCommand {
	return ParticipantCommand{Kind: CommandSetIsPaused, Paused: paused}
}

func SetSpeed(speed float64) ParticipantCommand {
	return ParticipantCommand{Kind: CommandSetSpeed, Speed: speed}
}

func GoTo(index int) ParticipantCommand {
	return ParticipantCommand{Kind: CommandGoTo, Index: index}
}

func AddToQueue(videoID VideoID) ParticipantCommand {
	return ParticipantCommand{Kind: CommandAddToQueue, VideoID: videoID}
}

func MoveInQueue(from, to int) ParticipantCommand {
	return ParticipantCommand{Kind: CommandMoveInQueue, Move: Move{From: from, To: to}}
}

func DeleteFromQueue(index int) ParticipantCommand {
	return ParticipantCommand{Kind: CommandDeleteFromQueue, Index: index}
}

func PingCommand() ParticipantCommand {
	return ParticipantCommand{Kind: CommandPing}
}

// Affects returns the update kind through which the player will reflect
// this command. ok is false for commands that change no state.
func (c ParticipantCommand) Affects() (kind UpdateKind, ok bool) {
	if c.Kind < 0 || c.Kind >= numCommandKinds {
		return 0, false
	}
	info := commandInfos[c.Kind]
	return info.affects, info.stateful
}

// ParseCommand decodes a command frame sent by a participant.
func ParseCommand(data []byte) (ParticipantCommand, error) {
	var cmd ParticipantCommand
	if err := cmd.UnmarshalJSON(data); err != nil {
		return ParticipantCommand{}, err
	}
	return cmd, nil
}

// MarshalJSON implements json.Marshaler
func (c ParticipantCommand) MarshalJSON() ([]byte, error) {
	tag := c.Kind.String()
	switch c.Kind {
	case CommandSetPlaybackPosition:
		return encodeTagged(tag, c.Position)
	case CommandSetIsPaused:
		return encodeTagged(tag, c.Paused)
	case CommandSetSpeed:
		return encodeTagged(tag, c.Speed)
	case CommandGoTo, CommandDeleteFromQueue:
		return encodeTagged(tag, c.Index)
	case CommandAddToQueue:
		return encodeTagged(tag, c.VideoID)
	case CommandMoveInQueue:
		return encodeTagged(tag, c.Move)
	case CommandPing:
		return encodeTagged(tag, nil)
	}
	return nil, fmt.Errorf("unknown participant command kind %d", int(c.Kind))
}

// UnmarshalJSON implements json.Unmarshaler
func (c *ParticipantCommand) UnmarshalJSON(data []byte) error {
	tag, payload, err := decodeTagged(data)
	if err != nil {
		return err
	}

	var out ParticipantCommand
	switch tag {
	case "SetPlaybackPosition":
		out.Kind = CommandSetPlaybackPosition
		err = decodePayload(tag, payload, &out.Position)
	case "SetIsPaused":
		out.Kind = CommandSetIsPaused
		err = decodePayload(tag, payload, &out.Paused)
	case "SetSpeed":
		out.Kind = CommandSetSpeed
		err = decodePayload(tag, payload, &out.Speed)
	case "GoTo":
		out.Kind = CommandGoTo
		err = decodePayload(tag, payload, &out.Index)
	case "AddToQueue":
		out.Kind = CommandAddToQueue
		err = decodePayload(tag, payload, &out.VideoID)
	case "MoveInQueue":
		out.Kind = CommandMoveInQueue
		err = decodePayload(tag, payload, &out.Move)
	case "DeleteFromQueue":
		out.Kind = CommandDeleteFromQueue
		err = decodePayload(tag, payload, &out.Index)
	case "Ping":
		out.Kind = CommandPing
		err = requireUnit(tag, payload)
	default:
		return fmt.Errorf("%w: unknown participant command %q", ErrMalformed, tag)
	}
	if err != nil {
		return err
	}

	*c = out
	return nil
}
