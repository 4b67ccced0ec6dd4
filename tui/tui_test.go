package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/regioncore/config"
	"github.com/nathoo/regioncore/engine"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"[trace] tick 3: 2 connection(s)", kindTrace},
		{"[screen: Title]", kindScreen},
		{"[log] Bob: patrolling", kindLog},
		{"[debug] Unknown Item", kindError},
		{"[transfer] Bob left for region 2", kindSystem},
		{"Bob: 'Halt!'", kindDialogue},
		{"You take an axe.", kindNarrative},
		{"", kindNarrative},
	}
	for _, tt := range tests {
		got := classifyLine(tt.line)
		if got != tt.want {
			t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestContainsQuotedSpeech(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Bob: 'Welcome to the village.'", true},
		{"It's a door.", false},
		{"No quotes here.", false},
		{"''", false},
		{"'Hi'", true},
	}
	for _, tt := range tests {
		got := containsQuotedSpeech(tt.line)
		if got != tt.want {
			t.Errorf("containsQuotedSpeech(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 80, "short"},
		{"hello world", 5, "hello\nworld"},
		{"The guard walks slowly around the village well.", 20,
			"The guard walks\nslowly around the\nvillage well."},
		{"", 80, ""},
		{"a b c d e", 3, "a b\nc d\ne"},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_PrevWalksBack(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("move north")
	h.Push("/tick 3")

	for _, want := range []string{"/tick 3", "move north", "look", "look"} {
		got, ok := h.Prev("")
		if !ok || got != want {
			t.Errorf("Prev = %q, %v, want %q", got, ok, want)
		}
	}
}

func TestHistory_PrefixFilter(t *testing.T) {
	h := NewHistory(10)
	h.Push("/state 4")
	h.Push("look")
	h.Push("/step")
	h.Push("/who")

	got, _ := h.Prev("/st")
	if got != "/step" {
		t.Errorf("first Prev = %q, want /step", got)
	}
	// The prefix is fixed by the first call.
	got, _ = h.Prev("/step")
	if got != "/state 4" {
		t.Errorf("second Prev = %q, want /state 4", got)
	}
	got, _ = h.Next()
	if got != "/step" {
		t.Errorf("Next = %q, want /step", got)
	}
	if _, ok := h.Next(); ok {
		t.Error("Next past the newest match should return false")
	}
	if h.Prefix() != "/st" {
		t.Errorf("Prefix = %q, want /st", h.Prefix())
	}
}

func TestHistory_NoMatch(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	if _, ok := h.Prev("/join"); ok {
		t.Error("Prev with no match should return false")
	}
	if _, ok := NewHistory(5).Next(); ok {
		t.Error("Next on fresh history should return false")
	}
}

func TestHistory_PushMovesDuplicateToEnd(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("/who")
	h.Push("look")

	if len(h.entries) != 2 {
		t.Fatalf("entries = %v, want 2", h.entries)
	}
	if got, _ := h.Prev(""); got != "look" {
		t.Errorf("Prev = %q, want look", got)
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("c")

	h.Prev("")
	if got, _ := h.Prev(""); got != "b" {
		t.Errorf("Prev = %q, want b", got)
	}
	if got, _ := h.Prev(""); got != "b" {
		t.Errorf("Prev at boundary = %q, want b (a evicted)", got)
	}
}

func TestHistory_ResetCursor(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("move north")

	h.Prev("")
	h.ResetCursor()
	if got, ok := h.Prev(""); !ok || got != "move north" {
		t.Errorf("Prev after reset = %q, want move north", got)
	}
}

func testModel(t *testing.T) Model {
	t.Helper()
	cfg := config.Default()
	w := world.New(cfg, &types.Region{ID: 7, Name: "Harbor"}, nil)
	w.Behaviors.Add(&types.Graph{ID: 1, Name: "Player", Kind: types.KindBehavior, Nodes: map[int]types.Node{
		1: {ID: 1, Type: types.NodeBehaviorTree, Name: "look", Values: map[string]types.Value{"execute": {X: 1}}},
	}})
	e := engine.New(w, nil)
	t.Cleanup(e.Close)
	m := New(e, nil)
	m.width = 80
	return m
}

func TestNew_IntervalFromConfig(t *testing.T) {
	m := testModel(t)
	if m.interval.Seconds() != 15 {
		t.Errorf("interval = %v, want 15s at 4 ticks per minute", m.interval)
	}
}

func TestExec_RunAndPause(t *testing.T) {
	m := testModel(t)

	out, cmd := m.exec("/run")
	if !m.running || cmd == nil {
		t.Fatal("/run should start the timer")
	}
	if !out.System {
		t.Error("/run output should be system feedback")
	}
	if _, cmd := m.exec("/run"); cmd != nil {
		t.Error("second /run should not start another timer")
	}

	m.exec("/pause")
	if m.running {
		t.Error("/pause should stop the timer")
	}
}

func TestUpdate_TickMsg(t *testing.T) {
	m := testModel(t)
	m.exec("/run")

	next, cmd := m.Update(tickMsg{gen: m.gen})
	m = next.(Model)
	if got := m.session.Engine.World.Tick; got != 1 {
		t.Errorf("Tick = %d, want 1", got)
	}
	if cmd == nil {
		t.Error("a running monitor should schedule the next tick")
	}

	next, cmd = m.Update(tickMsg{gen: m.gen - 1})
	m = next.(Model)
	if m.session.Engine.World.Tick != 1 || cmd != nil {
		t.Error("stale ticks must be dropped")
	}

	m.exec("/pause")
	next, _ = m.Update(tickMsg{gen: m.gen})
	m = next.(Model)
	if m.session.Engine.World.Tick != 1 {
		t.Error("a paused monitor must not tick")
	}
}

func TestExec_HelpMentionsMonitorCommands(t *testing.T) {
	m := testModel(t)
	out, _ := m.exec("/help")
	joined := strings.Join(out.Lines, "\n")
	for _, want := range []string{"/tick", "/join", "/run", "/pause", "PgUp/PgDn"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in help output", want)
		}
	}
}

func TestExec_QuitFromEnter(t *testing.T) {
	m := testModel(t)
	m.input.SetValue("/quit")
	next, cmd := m.handleEnter()
	if !next.(Model).quitting {
		t.Error("expected quitting after /quit")
	}
	if cmd == nil {
		t.Error("expected a quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("cmd() = %v, want quit message", msg)
	}
}

func TestStatusBar(t *testing.T) {
	m := testModel(t)
	m.exec("/join Ann")
	inst, ok := m.session.Engine.World.Entity(m.session.Player)
	if !ok {
		t.Fatal("player should have joined")
	}
	inst.Attributes["HP"] = world.Int(9)

	bar := m.renderStatusBar()
	for _, want := range []string{"Harbor (7)", "Ann", "HP:9", "paused", "T:0"} {
		if !strings.Contains(bar, want) {
			t.Errorf("status bar %q should contain %q", bar, want)
		}
	}
}
