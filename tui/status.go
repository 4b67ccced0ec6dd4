package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// renderStatusBar produces a full-width inverted status line showing the
// region, the joined player and the tick count.
func (m Model) renderStatusBar() string {
	w := m.session.Engine.World

	left := fmt.Sprintf(" %s (%d) | %d live", w.Region.Name, w.Region.ID, liveCount(w))
	if inst, ok := w.Entity(m.session.Player); ok {
		left += " | " + playerSummary(w, inst)
	}

	state := "paused"
	if m.running {
		state = "running"
	}
	right := fmt.Sprintf("%s | T:%d ", state, w.Tick)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

func liveCount(w *world.World) int {
	n := 0
	for _, inst := range w.Instances.All() {
		if inst.State == types.StateNormal {
			n++
		}
	}
	return n
}

// playerSummary shows name, position, sector and health of a player.
func playerSummary(w *world.World, inst *types.Instance) string {
	parts := []string{inst.Name}
	if inst.Position != nil {
		parts = append(parts, fmt.Sprintf("(%.1f, %.1f)", inst.Position.X, inst.Position.Y))
	}
	if sector := world.AttrString(inst.Attributes, "sector", ""); sector != "" {
		parts = append(parts, sector)
	}
	if hp, ok := world.AttrInt(inst.Attributes, w.Config.World.HealthAttr); ok {
		parts = append(parts, fmt.Sprintf("%s:%d", w.Config.World.HealthAttr, hp))
	}
	return strings.Join(parts, " ")
}
