package crowd

import (
	"time"

	"github.com/crowd-relay/internal/pubsub"
)

// Session is the registry's record of one crowd. Its identity is fixed at
// creation; the channels connect the player to its participants.
type Session struct {
	id      ID
	name    string
	started time.Time

	commands *pubsub.Sender[TimedCommand]
	updates  *pubsub.Broadcaster[TimedUpdate]
}

// Endpoints are the player's ends of a session's channels.
type Endpoints struct {
	Commands *pubsub.Receiver[TimedCommand]
	Updates  *pubsub.Broadcaster[TimedUpdate]
}

// Close shuts both channels. Participants blocked on either observe the
// closure on their next operation.
func (e *Endpoints) Close() {
	e.Commands.Close()
	e.Updates.Close()
}

// Membership is a participant's hold on a session.
type Membership struct {
	Commands *pubsub.Sender[TimedCommand]
	Updates  *pubsub.Subscription[TimedUpdate]
}

// Leave releases the participant's handles.
func (m *Membership) Leave() {
	m.Updates.Unsubscribe()
	m.Commands.Release()
}

// Summary describes a live session.
type Summary struct {
	ID           ID
	Name         string
	Started      time.Time
	Participants int
}

// NewSession builds a session record together with the player's endpoints.
func NewSession(id ID, name string, started time.Time, commandBuffer, updateBuffer int) (*Session, *Endpoints) {
	sender, receiver := pubsub.NewQueue[TimedCommand](commandBuffer)
	updates := pubsub.NewBroadcaster[TimedUpdate](updateBuffer)

	s := &Session{
		id:       id,
		name:     name,
		started:  started,
		commands: sender,
		updates:  updates,
	}
	return s, &Endpoints{Commands: receiver, Updates: updates}
}

func (s *Session) ID() ID {
	return s.id
}

func (s *Session) Name() string {
	return s.name
}

func (s *Session) Started() time.Time {
	return s.started
}

// Join hands a participant its own command sender and a fresh update
// subscription. It fails with pubsub.ErrClosed once the player is gone.
func (s *Session) Join() (*Membership, error) {
	sender, err := s.commands.Clone()
	if err != nil {
		return nil, err
	}
	sub, err := s.updates.Subscribe()
	if err != nil {
		sender.Release()
		return nil, err
	}
	return &Membership{Commands: sender, Updates: sub}, nil
}

// Participants counts the outstanding participant senders. The record's
// own sender is not counted.
func (s *Session) Participants() int {
	n := s.commands.Senders() - 1
	if n < 0 {
		return 0
	}
	return n
}

func (s *Session) Summary() Summary {
	return Summary{
		ID:           s.id,
		Name:         s.name,
		Started:      s.started,
		Participants: s.Participants(),
	}
}

// Release drops the record's own sender. The registry calls it once the
// record is no longer reachable.
func (s *Session) Release() {
	s.commands.Release()
}
