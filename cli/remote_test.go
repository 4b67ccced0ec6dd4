package cli

import (
	"strings"
	"testing"

	"github.com/nathoo/regioncore/engine/snapshot"
	"github.com/nathoo/regioncore/types"
)

type recordingPublisher struct {
	ticks int
	snaps map[int64][]byte
	msgs  []types.RegionMessage
}

func (p *recordingPublisher) PublishTick(snapshots map[int64][]byte) {
	p.ticks++
	p.snaps = map[int64][]byte{}
	for id, data := range snapshots {
		p.snaps[id] = data
	}
}

func (p *recordingPublisher) PublishMessage(msg types.RegionMessage) {
	p.msgs = append(p.msgs, msg)
}

func TestSession_RemoteJoinAndInput(t *testing.T) {
	e, outbox := testEngine(t)
	remote := make(chan types.RemoteAction, 4)
	pub := &recordingPublisher{}
	s := NewSession(e, outbox)
	s.Remote = remote
	s.Publishers = []Publisher{pub}

	replies := make(chan int64, 1)
	remote <- types.RemoteAction{Join: "Zed", Reply: replies}
	lines := s.Step(1)

	id := <-replies
	if id == 0 {
		t.Fatal("remote join should reply with the new id")
	}
	if !strings.Contains(strings.Join(lines, "\n"), "[remote] Zed joined") {
		t.Errorf("expected join line, got %v", lines)
	}
	if s.Player != 0 {
		t.Error("remote players must not become the session player")
	}

	remote <- types.RemoteAction{Player: id, Input: "look"}
	s.Step(1)

	data, ok := pub.snaps[id]
	if !ok {
		t.Fatalf("no snapshot published for #%d", id)
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	found := false
	for _, m := range snap.Messages {
		if m.Text == "You look around." {
			found = true
		}
	}
	if !found {
		t.Errorf("messages = %+v, want the look reply", snap.Messages)
	}
	if pub.ticks != 2 {
		t.Errorf("published ticks = %d, want 2", pub.ticks)
	}
}

func TestSession_RemoteUnknownPlayer(t *testing.T) {
	e, outbox := testEngine(t)
	remote := make(chan types.RemoteAction, 1)
	s := NewSession(e, outbox)
	s.Remote = remote

	remote <- types.RemoteAction{Player: 99, Input: "look"}
	lines := s.Step(1)
	if !strings.Contains(strings.Join(lines, "\n"), "[remote] no instance 99") {
		t.Errorf("expected error line, got %v", lines)
	}
}

func TestSession_PublishesRegionMessages(t *testing.T) {
	e, outbox := testEngine(t)
	pub := &recordingPublisher{}
	s := NewSession(e, outbox)
	s.Publishers = []Publisher{pub}

	s.Step(2)
	logs := 0
	for _, m := range pub.msgs {
		if m.Kind == types.MsgLog {
			logs++
		}
	}
	if logs != 2 {
		t.Errorf("published log messages = %d, want 2", logs)
	}
}
