package crowd

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crowd-relay/internal/pubsub"
)

func intPtr(i int) *int {
	return &i
}

var (
	videoA = VideoID(uuid.MustParse("6f1c2a4e-8d3b-4c1e-9a7f-2b5d0e9c3a11"))
	videoB = VideoID(uuid.MustParse("0b8e7d6c-5a4f-4e3d-8c2b-1a0f9e8d7c6b"))
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ParticipantCommand
		wantErr bool
	}{
		{name: "playback position", input: `{"SetPlaybackPosition":12.5}`, want: SetPlaybackPosition(12.5)},
		{name: "pause", input: `{"SetIsPaused":true}`, want: SetIsPaused(true)},
		{name: "speed", input: `{"SetSpeed":1.5}`, want: SetSpeed(1.5)},
		{name: "go to", input: `{"GoTo":3}`, want: GoTo(3)},
		{name: "add to queue", input: `{"AddToQueue":"6f1c2a4e-8d3b-4c1e-9a7f-2b5d0e9c3a11"}`, want: AddToQueue(videoA)},
		{name: "add to queue numeric id", input: `{"AddToQueue":42}`, wantErr: true},
		{name: "add to queue bad uuid", input: `{"AddToQueue":"video-42"}`, wantErr: true},
		{name: "null payload", input: `{"SetIsPaused":null}`, wantErr: true},
		{name: "move in queue", input: `{"MoveInQueue":{"from":1,"to":4}}`, want: MoveInQueue(1, 4)},
		{name: "delete from queue", input: `{"DeleteFromQueue":2}`, want: DeleteFromQueue(2)},
		{name: "ping", input: `"Ping"`, want: PingCommand()},
		{name: "surrounding whitespace", input: "  \"Ping\"\n", want: PingCommand()},
		{name: "unknown variant", input: `{"Rewind":1}`, wantErr: true},
		{name: "ping with payload", input: `{"Ping":1}`, wantErr: true},
		{name: "missing payload", input: `"SetSpeed"`, wantErr: true},
		{name: "wrong payload type", input: `{"SetIsPaused":"yes"}`, wantErr: true},
		{name: "two keys", input: `{"SetSpeed":1,"GoTo":2}`, wantErr: true},
		{name: "not json", input: `pause please`, wantErr: true},
		{name: "empty", input: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("expected ErrMalformed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParticipantCommand_MarshalJSON(t *testing.T) {
	tests := []struct {
		cmd  ParticipantCommand
		want string
	}{
		{cmd: SetPlaybackPosition(12.5), want: `{"SetPlaybackPosition":12.5}`},
		{cmd: SetIsPaused(false), want: `{"SetIsPaused":false}`},
		{cmd: GoTo(0), want: `{"GoTo":0}`},
		{cmd: MoveInQueue(2, 0), want: `{"MoveInQueue":{"from":2,"to":0}}`},
		{cmd: PingCommand(), want: `"Ping"`},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Kind.String(), func(t *testing.T) {
			got, err := json.Marshal(tt.cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPlayerUpdate_MarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		update PlayerUpdate
		want   string
	}{
		{name: "position", update: PlaybackPositionUpdate(3), want: `{"PlaybackPosition":3}`},
		{name: "paused", update: IsPausedUpdate(true), want: `{"IsPaused":true}`},
		{name: "speed", update: SpeedUpdate(0.5), want: `{"Speed":0.5}`},
		{name: "queue", update: QueueUpdate(Queue{Videos: []VideoID{videoA, videoB}, Current: intPtr(1)}), want: `{"Queue":{"videos":["6f1c2a4e-8d3b-4c1e-9a7f-2b5d0e9c3a11","0b8e7d6c-5a4f-4e3d-8c2b-1a0f9e8d7c6b"],"current":1}}`},
		{name: "empty queue", update: QueueUpdate(Queue{}), want: `{"Queue":{"videos":[],"current":null}}`},
		{name: "ping", update: PingUpdate(), want: `"Ping"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.update)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseUpdate(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		kind    UpdateKind
		at      time.Time
		wantErr bool
	}{
		{name: "rfc3339", input: `["2024-05-01T12:00:00Z",{"IsPaused":true}]`, kind: UpdateIsPaused, at: at},
		{name: "offset is normalised", input: `["2024-05-01T14:00:00+02:00","Ping"]`, kind: UpdatePing, at: at},
		{name: "unix millis", input: `[1714564800000,{"Speed":2}]`, kind: UpdateSpeed, at: at},
		{name: "bare update", input: `{"IsPaused":true}`, wantErr: true},
		{name: "three elements", input: `["2024-05-01T12:00:00Z","Ping","Ping"]`, wantErr: true},
		{name: "bad timestamp", input: `["yesterday","Ping"]`, wantErr: true},
		{name: "null timestamp", input: `[null,{"IsPaused":true}]`, wantErr: true},
		{name: "null update payload", input: `["2024-05-01T12:00:00Z",{"IsPaused":null}]`, wantErr: true},
		{name: "bad update", input: `["2024-05-01T12:00:00Z",{"Volume":1}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUpdate([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("expected ErrMalformed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Value.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, got.Value.Kind)
			}
			if !got.At.Equal(tt.at) {
				t.Errorf("expected time %v, got %v", tt.at, got.At)
			}
		})
	}
}

func TestStamped_MarshalJSON(t *testing.T) {
	at := time.Date(2024, 5, 1, 14, 0, 0, 500, time.FixedZone("CEST", 2*60*60))

	got, err := json.Marshal(Stamp(at, SetIsPaused(true)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `["2024-05-01T12:00:00.0000005Z",{"SetIsPaused":true}]`
	if string(got) != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	var back TimedCommand
	if err := json.Unmarshal(got, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.At.Equal(at) || back.Value != SetIsPaused(true) {
		t.Errorf("expected %v %+v, got %v %+v", at, SetIsPaused(true), back.At, back.Value)
	}
}

func TestParticipantCommand_Affects(t *testing.T) {
	tests := []struct {
		cmd      ParticipantCommand
		want     UpdateKind
		stateful bool
	}{
		{cmd: SetPlaybackPosition(1), want: UpdatePlaybackPosition, stateful: true},
		{cmd: SetIsPaused(true), want: UpdateIsPaused, stateful: true},
		{cmd: SetSpeed(1), want: UpdateSpeed, stateful: true},
		{cmd: GoTo(1), want: UpdateQueue, stateful: true},
		{cmd: AddToQueue(videoA), want: UpdateQueue, stateful: true},
		{cmd: MoveInQueue(0, 1), want: UpdateQueue, stateful: true},
		{cmd: DeleteFromQueue(1), want: UpdateQueue, stateful: true},
		{cmd: PingCommand(), stateful: false},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Kind.String(), func(t *testing.T) {
			kind, ok := tt.cmd.Affects()
			if ok != tt.stateful {
				t.Fatalf("expected stateful %v, got %v", tt.stateful, ok)
			}
			if ok && kind != tt.want {
				t.Errorf("expected %s, got %s", tt.want, kind)
			}
		})
	}
}

func TestInterestAfter(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time {
		return base.Add(time.Duration(sec) * time.Second)
	}

	var ia InterestAfter
	if !ia.Wants(UpdateIsPaused, at(-1000)) {
		t.Fatal("zero value should want everything")
	}

	ia.Advance(UpdateIsPaused, at(100))
	if ia.Wants(UpdateIsPaused, at(50)) {
		t.Error("stale reflection at t=50 should be dropped")
	}
	if !ia.Wants(UpdateIsPaused, at(100)) {
		t.Error("update at the watermark should be delivered")
	}
	if !ia.Wants(UpdateIsPaused, at(150)) {
		t.Error("update at t=150 should be delivered")
	}
	if !ia.Wants(UpdateSpeed, at(50)) {
		t.Error("other categories should be unaffected")
	}

	ia.Advance(UpdateIsPaused, at(10))
	if !ia.Since(UpdateIsPaused).Equal(at(100)) {
		t.Errorf("watermark moved back to %v", ia.Since(UpdateIsPaused))
	}

	ia.Advance(UpdatePing, at(500))
	if !ia.Wants(UpdatePing, at(0)) {
		t.Error("ping should never be filtered")
	}
}

func TestParseUpdate_QueueOfVideos(t *testing.T) {
	got, err := ParseUpdate([]byte(`["2024-05-01T12:00:00Z",{"Queue":{"videos":["6f1c2a4e-8d3b-4c1e-9a7f-2b5d0e9c3a11","0b8e7d6c-5a4f-4e3d-8c2b-1a0f9e8d7c6b"],"current":null}}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	queue := got.Value.Queue
	if len(queue.Videos) != 2 || queue.Videos[0] != videoA || queue.Videos[1] != videoB {
		t.Errorf("expected videos %s %s, got %v", videoA, videoB, queue.Videos)
	}
	if queue.Current != nil {
		t.Errorf("expected no current video, got %d", *queue.Current)
	}

	if _, err := ParseUpdate([]byte(`["2024-05-01T12:00:00Z",{"Queue":{"videos":[7],"current":0}}]`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for numeric video ids, got %v", err)
	}
}

func TestParseID(t *testing.T) {
	id := NewID()

	got, err := ParseID("  " + id.String() + "\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Errorf("expected %s, got %s", id, got)
	}

	if _, err := ParseID("not-a-crowd"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestSession_JoinAndCount(t *testing.T) {
	s, ends := NewSession(NewID(), "movie night", time.Now(), 4, 4)

	if got := s.Participants(); got != 0 {
		t.Fatalf("expected 0 participants, got %d", got)
	}

	first, err := s.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	second, err := s.Join()
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := s.Summary().Participants; got != 2 {
		t.Errorf("expected 2 participants, got %d", got)
	}

	first.Leave()
	first.Leave()
	if got := s.Participants(); got != 1 {
		t.Errorf("expected 1 participant, got %d", got)
	}

	ends.Close()
	if _, err := s.Join(); !errors.Is(err, pubsub.ErrClosed) {
		t.Errorf("expected ErrClosed after player left, got %v", err)
	}
	if _, ok := <-second.Updates.C(); ok {
		t.Error("expected update channel to be closed")
	}
	second.Leave()
}
