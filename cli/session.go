package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/regioncore/engine"
	"github.com/nathoo/regioncore/engine/parser"
	"github.com/nathoo/regioncore/engine/snapshot"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// Session is the command layer shared by the plain CLI and the TUI. It
// owns the joined player and turns input lines into ticks and output.
type Session struct {
	Engine *engine.Engine
	Outbox <-chan types.RegionMessage
	Trace  bool
	Player int64 // joined player, 0 before /join

	// Remote is drained before every tick. Publishers see every snapshot
	// set and region message after the tick that produced them.
	Remote     <-chan types.RemoteAction
	Publishers []Publisher

	lastCmd string
}

// NewSession creates a session driving eng. Messages read from outbox are
// printed after each tick; a nil outbox is never read.
func NewSession(eng *engine.Engine, outbox <-chan types.RegionMessage) *Session {
	return &Session{Engine: eng, Outbox: outbox}
}

// Intro describes the region once at startup.
func (s *Session) Intro() []string {
	w := s.Engine.World
	lines := []string{fmt.Sprintf("Region %s (%d): %d instances, %d items.",
		w.Region.Name, w.Region.ID, w.Instances.Len(), len(w.Items))}
	if s.Player == 0 {
		lines = append(lines, "Type /join <name> to enter as a player, /tick to advance time, /help for commands.")
	}
	return lines
}

// Output is the result of one input line.
type Output struct {
	Lines  []string
	System bool // feedback from the session rather than the region
	Quit   bool
}

func system(lines ...string) Output {
	return Output{Lines: lines, System: true}
}

// Exec runs one line of input. Meta-commands start with '/'; anything
// else is a player action followed by one tick.
func (s *Session) Exec(input string) Output {
	input = strings.TrimSpace(input)
	if input == "" {
		return Output{}
	}
	if strings.HasPrefix(input, "/") {
		return s.meta(input)
	}

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if s.lastCmd == "" {
			return system("Nothing to repeat.")
		}
		input = s.lastCmd
	} else {
		s.lastCmd = input
	}

	if s.Player == 0 {
		return system("You are not in the region. Use /join <name> first.")
	}
	action := parser.Parse(input)
	if err := s.Engine.PushAction(s.Player, action.Verb, action.Direction); err != nil {
		return system(err.Error())
	}
	return Output{Lines: s.Step(1)}
}

func (s *Session) meta(input string) Output {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "/quit", "/exit":
		out := system("Goodbye.")
		out.Quit = true
		return out

	case "/help":
		return system(helpLines()...)

	case "/tick":
		n := 1
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return system(fmt.Sprintf("Bad tick count: %s", args[0]))
			}
			n = v
		}
		return Output{Lines: s.Step(n)}

	case "/join":
		return system(s.join(args)...)

	case "/who":
		return system(s.who()...)

	case "/state":
		return system(s.state(args)...)

	case "/trace":
		s.Trace = !s.Trace
		if s.Trace {
			return system("Trace output enabled.")
		}
		return system("Trace output disabled.")
	}
	return system(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
}

// Step advances n ticks and collects what the player saw, the region
// messages and, with tracing on, the fired connections.
func (s *Session) Step(n int) []string {
	var lines []string
	for i := 0; i < n; i++ {
		lines = append(lines, s.remoteLines()...)
		s.Engine.Tick()
		for _, p := range s.Publishers {
			p.PublishTick(s.Engine.Snapshots())
		}
		lines = append(lines, s.playerLines()...)
		lines = append(lines, s.outboxLines()...)
		if s.Trace {
			lines = append(lines, s.traceLines()...)
		}
	}
	return lines
}

func (s *Session) playerLines() []string {
	if s.Player == 0 {
		return nil
	}
	data, ok := s.Engine.Snapshot(s.Player)
	if !ok {
		return nil
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		return []string{err.Error()}
	}
	var lines []string
	if snap.Screen != nil {
		lines = append(lines, fmt.Sprintf("[screen: %s]", snap.Screen.Name))
	}
	for _, m := range snap.Messages {
		lines = append(lines, formatMessage(m))
	}
	return lines
}

func formatMessage(m types.MessageData) string {
	switch m.Type {
	case types.MessageSay, types.MessageYell, types.MessageTell:
		if m.From != "" {
			return fmt.Sprintf("%s: '%s'", m.From, m.Text)
		}
		return fmt.Sprintf("'%s'", m.Text)
	case types.MessageDebug:
		return "[debug] " + m.Text
	}
	return m.Text
}

// outboxLines drains the outbound channel without blocking.
func (s *Session) outboxLines() []string {
	if s.Outbox == nil {
		return nil
	}
	var lines []string
	for {
		select {
		case msg := <-s.Outbox:
			for _, p := range s.Publishers {
				p.PublishMessage(msg)
			}
			if line, ok := formatRegionMessage(s.Engine.World, msg); ok {
				lines = append(lines, line)
			}
		default:
			return lines
		}
	}
}

func formatRegionMessage(w *world.World, msg types.RegionMessage) (string, bool) {
	switch msg.Kind {
	case types.MsgLog:
		return "[log] " + msg.Text, true
	case types.MsgTransferEntity:
		return fmt.Sprintf("[transfer] %s left for region %d", w.EntityName(msg.Entity), msg.TargetRegion), true
	case types.MsgMultipleChoice:
		names := make([]string, len(msg.Choices))
		for i, c := range msg.Choices {
			names[i] = fmt.Sprintf("%s (%g)", c.Name, c.Price)
		}
		return "[offer] " + strings.Join(names, ", "), true
	}
	return "", false
}

func (s *Session) traceLines() []string {
	w := s.Engine.World
	lines := []string{fmt.Sprintf("[trace] tick %d: %d connection(s)", w.Tick-1, len(w.Trace))}
	for _, f := range w.Trace {
		mark := ""
		if f.Possible {
			mark = " ?"
		}
		lines = append(lines, fmt.Sprintf("[trace]   %s %d: %d -%s-> %d%s", f.Kind, f.Graph, f.From, f.Connector, f.To, mark))
	}
	for _, d := range w.DebugValues {
		lines = append(lines, fmt.Sprintf("[trace]   %s: %s", w.EntityName(d.Entity), d.Text))
	}
	return lines
}

func (s *Session) join(args []string) []string {
	if s.Player != 0 {
		return []string{"Already joined."}
	}
	if len(args) == 0 {
		return []string{"Usage: /join <name> [graph]"}
	}
	graphName := ""
	if len(args) > 1 {
		graphName = args[1]
	}
	inst, err := s.Engine.JoinPlayer(args[0], graphName, s.spawnPosition())
	if err != nil {
		return []string{err.Error()}
	}
	s.Player = inst.ID
	return []string{fmt.Sprintf("Joined as %s (#%d).", inst.Name, inst.ID)}
}

// spawnPosition is the center of the region's first sector.
func (s *Session) spawnPosition() types.Position {
	w := s.Engine.World
	var pos types.Position
	if len(w.Region.Sectors) > 0 {
		c := world.Center(w.Region.Sectors[0])
		pos = types.Position{Region: w.Region.ID, X: c.X, Y: c.Y}
	}
	return pos
}

func (s *Session) who() []string {
	var lines []string
	for _, inst := range s.Engine.World.Instances.All() {
		line := fmt.Sprintf("#%d %s %s %s", inst.ID, inst.Name, inst.Category, inst.State)
		if inst.Position != nil {
			line += fmt.Sprintf(" at (%.1f, %.1f)", inst.Position.X, inst.Position.Y)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return []string{"No instances."}
	}
	return lines
}

func (s *Session) state(args []string) []string {
	w := s.Engine.World
	id := s.Player
	if len(args) > 0 {
		v, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
		if err != nil {
			return []string{fmt.Sprintf("Bad instance id: %s", args[0])}
		}
		id = v
	}
	if id == 0 {
		return []string{fmt.Sprintf("Tick: %d", w.Tick), fmt.Sprintf("Instances: %d", w.Instances.Len())}
	}
	inst, ok := w.Entity(id)
	if !ok {
		return []string{fmt.Sprintf("No instance #%d.", id)}
	}

	lines := []string{
		fmt.Sprintf("Tick: %d", w.Tick),
		fmt.Sprintf("%s (#%d) %s %s", inst.Name, inst.ID, inst.Category, inst.State),
	}
	if inst.Position != nil {
		lines = append(lines, fmt.Sprintf("Position: region %d (%.1f, %.1f)", inst.Position.Region, inst.Position.X, inst.Position.Y))
	}
	if inst.LockedTree != nil {
		lines = append(lines, fmt.Sprintf("Locked tree: %d", *inst.LockedTree))
	}
	lines = append(lines, fmt.Sprintf("Motion: %s", inst.Motion.Kind))

	keys := make([]string, 0, len(inst.Attributes))
	for k := range inst.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %s = %s", k, formatAttr(inst.Attributes[k])))
	}

	var items []string
	for _, item := range inst.Inventory {
		if item != nil {
			items = append(items, item.Name)
		}
	}
	if len(items) > 0 {
		lines = append(lines, "Inventory: "+strings.Join(items, ", "))
	}
	if inst.Currency > 0 {
		lines = append(lines, fmt.Sprintf("Currency: %d", inst.Currency))
	}
	return lines
}

func formatAttr(a types.Attr) string {
	switch a.Kind {
	case types.AttrString:
		return strconv.Quote(a.Str)
	case types.AttrBool:
		return strconv.FormatBool(a.Num != 0)
	case types.AttrVec:
		return fmt.Sprintf("(%g, %g, %g)", a.Vec[0], a.Vec[1], a.Vec[2])
	}
	return strconv.FormatFloat(a.Num, 'f', -1, 64)
}

func helpLines() []string {
	return []string{
		"System:",
		"  /tick [n]             Advance n ticks (default 1)",
		"  /join <name> [graph]  Enter the region as a player",
		"  /who                  List instances",
		"  /state [id]           Dump an instance (default: your player)",
		"  /trace                Toggle fired-connection trace output",
		"  /help                 Show this help",
		"  /quit                 Exit",
		"",
		"Player actions (each runs one tick):",
		"  look (l)              Run your look tree",
		"  move <dir> or n/s/e/w Move in a direction",
		"  take/get, drop        Pick up or put down",
		"  attack <dir> (hit)    Attack",
		"  use <dir>             Use or talk",
		"  inventory (i)         Inventory",
		"  wait (z)              Let a tick pass",
		"  again (g)             Repeat your last action",
	}
}
