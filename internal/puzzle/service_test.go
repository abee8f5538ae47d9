package puzzle

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/mock/gomock"

	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
)

type frame struct {
	Type         string        `json:"type"`
	Message      string        `json:"message"`
	UserID       string        `json:"userId"`
	State        StateView     `json:"state"`
	PrivateBrief *PrivateBrief `json:"privateBrief"`
}

func newTestService(t *testing.T, saver ResultSaver, auth Authenticator, requireToken bool) *Service {
	t.Helper()
	svc := NewService(ServiceConfig{
		Logger:       log.New(io.Discard),
		Catalog:      config.NewStaticStore(testCatalog(t)),
		Saver:        saver,
		Auth:         auth,
		RequireToken: requireToken,
		Puzzle:       config.PuzzleConfig{TickInterval: 20 * time.Millisecond, MaxPlayers: 10, LockDuration: 2 * time.Second},
	})
	t.Cleanup(svc.Shutdown)
	return svc
}

// next reads frames from sess until one of type want arrives.
func next(t *testing.T, sess *multiplayer.ChannelSession, want string) frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-sess.Frames():
			var f frame
			if err := sess.Codec().Unmarshal(raw, &f); err != nil {
				t.Fatalf("decoding frame failed: %v", err)
			}
			if f.Type == want {
				return f
			}
		case <-deadline:
			t.Fatalf("no %s frame received", want)
		}
	}
}

func send(svc *Service, sess *multiplayer.ChannelSession, raw string) {
	svc.Receive(sess, []byte(raw))
}

func TestServiceRejectsBeforeJoin(t *testing.T) {
	svc := newTestService(t, nil, nil, false)
	sess := multiplayer.NewChannelSession("s-1", multiplayer.JSON, 16)

	send(svc, sess, `{"type":"start_match"}`)
	if f := next(t, sess, MsgError); f.Message != ErrNotJoined.Error() {
		t.Errorf("error = %q, want %q", f.Message, ErrNotJoined.Error())
	}
	send(svc, sess, `{not json`)
	if f := next(t, sess, MsgError); f.Message != "malformed envelope" {
		t.Errorf("error = %q", f.Message)
	}
	send(svc, sess, `{"type":"join_instance","instanceId":"room"}`)
	next(t, sess, MsgError)
	if svc.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after rejected joins", svc.Len())
	}
}

func TestServiceMatchLifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	saver := NewMockResultSaver(ctrl)
	saved := make(chan ResultData, 1)
	saver.EXPECT().SavePuzzleResult(gomock.Any()).DoAndReturn(func(d ResultData) error {
		saved <- d
		return nil
	}).Times(1)

	svc := newTestService(t, saver, nil, false)
	host := multiplayer.NewChannelSession("s-1", multiplayer.JSON, 256)
	guest := multiplayer.NewChannelSession("s-2", multiplayer.Msgpack, 256)

	send(svc, host, `{"type":"join_instance","instanceId":"room","userId":"a","displayName":"Ann"}`)
	if f := next(t, host, MsgJoined); f.UserID != "a" {
		t.Errorf("joined userId = %q", f.UserID)
	}
	guestJoin, _ := multiplayer.Msgpack.Marshal(Inbound{Type: MsgJoinInstance, InstanceID: "room", UserID: "b"})
	svc.Receive(guest, guestJoin)
	next(t, guest, MsgJoined)

	send(svc, host, `{"type":"start_match"}`)
	var patch frame
	for patch.State.Phase != PhaseActive {
		patch = next(t, host, MsgStatePatch)
	}
	if patch.PrivateBrief == nil || patch.PrivateBrief.UserID != "a" {
		t.Fatalf("host brief = %+v", patch.PrivateBrief)
	}
	var guestPatch frame
	for guestPatch.State.Phase != PhaseActive {
		guestPatch = next(t, guest, MsgStatePatch)
	}
	if guestPatch.PrivateBrief == nil || guestPatch.PrivateBrief.UserID != "b" {
		t.Errorf("guest brief = %+v", guestPatch.PrivateBrief)
	}

	send(svc, host, `{"type":"request_scan"}`)
	var scan frame
	for scan.PrivateBrief == nil || scan.PrivateBrief.Unsolved == nil {
		scan = next(t, host, MsgStatePatch)
	}
	if len(scan.PrivateBrief.Unsolved) == 0 {
		t.Error("scan returned no unsolved modules")
	}

	send(svc, guest, `{"type":"start_match"}`)
	for i := 0; i < 10; i++ {
		send(svc, host, `{"type":"action","action":{"type":"lock_dial","moduleId":"m-99"}}`)
	}

	select {
	case d := <-saved:
		if d.Outcome != OutcomeExploded || d.InstanceID != "room" || d.PlayerCount != 2 {
			t.Errorf("saved result = %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("result was not saved")
	}

	send(svc, host, `{"type":"action","action":{"type":"lock_dial","moduleId":"m-99"}}`)
	if f := next(t, host, MsgError); f.Message != ErrWrongPhase.Error() {
		t.Errorf("action after results error = %q", f.Message)
	}

	if st := svc.Statuses(); len(st) != 1 || st[0].Phase != string(PhaseResults) || st[0].Connections != 2 {
		t.Errorf("Statuses() = %+v", st)
	}

	svc.Close(host, multiplayer.CloseClientLeft)
	svc.Close(guest, multiplayer.CloseClientLeft)
	deadline := time.Now().Add(2 * time.Second)
	for svc.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("instance not torn down after the last connection closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServiceVoiceEvent(t *testing.T) {
	svc := newTestService(t, nil, nil, false)
	sess := multiplayer.NewChannelSession("s-1", multiplayer.JSON, 64)

	if err := svc.VoiceEvent("nowhere", "a", VoiceSpeakStart, 0); !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("unknown instance error = %v", err)
	}
	send(svc, sess, `{"type":"join_instance","instanceId":"room","userId":"a"}`)
	next(t, sess, MsgJoined)

	if err := svc.VoiceEvent("room", "a", VoiceSpeakStart, time.Now().UnixMilli()); err != nil {
		t.Errorf("SPEAK_START failed: %v", err)
	}
	if err := svc.VoiceEvent("room", "a", "WHISPER", 0); !errors.Is(err, ErrUnknownVoiceEvent) {
		t.Errorf("bad event error = %v", err)
	}
	if err := svc.VoiceEvent("room", "ghost", VoiceSpeakEnd, 0); !errors.Is(err, ErrNotJoined) {
		t.Errorf("unknown user error = %v", err)
	}
}

type fakeAuth map[string]string

func (f fakeAuth) Identify(token string) (string, string, error) {
	sub, ok := f[token]
	if !ok {
		return "", "", errors.New("bad token")
	}
	return sub, "From Token", nil
}

func TestServiceRequireToken(t *testing.T) {
	svc := newTestService(t, nil, fakeAuth{"good": "user-7"}, true)
	sess := multiplayer.NewChannelSession("s-1", multiplayer.JSON, 64)

	send(svc, sess, `{"type":"join_instance","instanceId":"room","userId":"a","token":"bad"}`)
	if f := next(t, sess, MsgError); f.Message != ErrTokenRequired.Error() {
		t.Errorf("error = %q", f.Message)
	}

	send(svc, sess, `{"type":"join_instance","instanceId":"room","userId":"spoofed","token":"good"}`)
	if f := next(t, sess, MsgJoined); f.UserID != "user-7" {
		t.Errorf("joined as %q, want token subject", f.UserID)
	}
	patch := next(t, sess, MsgStatePatch)
	if len(patch.State.Players) != 1 || patch.State.Players[0].DisplayName != "From Token" {
		t.Errorf("players = %+v", patch.State.Players)
	}
}
