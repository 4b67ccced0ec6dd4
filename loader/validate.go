package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/regioncore/engine/graph"
	"github.com/nathoo/regioncore/engine/nodes"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// registries maps each graph kind to the handlers that can execute it.
func registries() map[types.GraphKind]graph.Registry[*world.World] {
	behavior := nodes.Behavior()
	return map[types.GraphKind]graph.Registry[*world.World]{
		types.KindBehavior: behavior,
		types.KindSystem:   behavior,
		types.KindItem:     behavior,
		types.KindArea:     nodes.Area(),
		types.KindGame:     nodes.Game(),
	}
}

// validate checks the bundle for referential integrity and consistency.
func validate(b *Bundle) *ValidationError {
	ve := &ValidationError{}

	if b.Region.ID <= 0 {
		ve.errorf("region.id must be positive")
	}
	if b.Region.Name == "" {
		ve.warnf("region %d has no name", b.Region.ID)
	}

	// Graph ids and names are unique per kind.
	byName := map[types.GraphKind]map[string]*types.Graph{}
	byID := map[types.GraphKind]map[int]*types.Graph{}
	regs := registries()
	for _, g := range b.Graphs {
		if byName[g.Kind] == nil {
			byName[g.Kind] = map[string]*types.Graph{}
			byID[g.Kind] = map[int]*types.Graph{}
		}
		if _, dup := byID[g.Kind][g.ID]; dup {
			ve.errorf("duplicate %s graph id %d", g.Kind, g.ID)
		}
		if _, dup := byName[g.Kind][g.Name]; dup {
			ve.errorf("duplicate %s graph name %q", g.Kind, g.Name)
		}
		byID[g.Kind][g.ID] = g
		byName[g.Kind][g.Name] = g
		validateGraph(g, regs[g.Kind], ve)
	}

	for _, a := range b.Region.Areas {
		if _, ok := byID[types.KindArea][a.Graph]; !ok {
			ve.errorf("area %q references undefined area graph %d", a.Name, a.Graph)
		}
		if len(a.Cells) == 0 {
			ve.warnf("area %q has no cells", a.Name)
		}
	}
	for _, s := range b.Region.Sectors {
		if s.Min.X > s.Max.X || s.Min.Y > s.Max.Y {
			ve.errorf("sector %q has min beyond max", s.Name)
		}
	}

	for i, p := range b.Placements {
		if _, ok := byName[types.KindBehavior][p.Graph]; !ok {
			ve.errorf("placement %d (%q) references undefined behavior graph %q", i, p.Name, p.Graph)
		}
		if p.Position.Region != 0 && p.Position.Region != b.Region.ID {
			ve.warnf("placement %d (%q) is positioned in region %d", i, p.Name, p.Position.Region)
		}
	}

	classes := map[string]bool{}
	for _, t := range b.Templates {
		if t.ClassName == "" {
			ve.errorf("item template without class_name")
			continue
		}
		if classes[t.ClassName] {
			ve.errorf("duplicate item template %q", t.ClassName)
		}
		classes[t.ClassName] = true
		if t.Graph != "" {
			if _, ok := byName[types.KindItem][t.Graph]; !ok {
				ve.errorf("item template %q references undefined item graph %q", t.ClassName, t.Graph)
			}
		}
	}
	for _, li := range b.Items {
		if !classes[li.Class] {
			ve.errorf("loose item references undefined item template %q", li.Class)
		}
	}

	games := byName[types.KindGame]
	if b.Game != "" {
		if _, ok := games[b.Game]; !ok {
			ve.errorf("game graph %q not found", b.Game)
		}
	} else if len(games) > 1 {
		ve.warnf("%d game graphs and none selected; no game instance will run", len(games))
	}

	return ve
}

// validateGraph checks connections and node types of one graph.
func validateGraph(g *types.Graph, reg graph.Registry[*world.World], ve *ValidationError) {
	for key, n := range g.Nodes {
		if key != n.ID {
			ve.errorf("%s graph %q: node key %d holds node %d", g.Kind, g.Name, key, n.ID)
		}
		switch n.Type {
		case types.NodeBehaviorTree, types.NodeLinear, types.NodeSequence:
			continue
		}
		if _, ok := reg[n.Type]; !ok {
			ve.warnf("%s graph %q node %d: unknown node type %q", g.Kind, g.Name, n.ID, n.Type)
		}
	}
	for _, c := range g.Connections {
		if _, ok := g.Nodes[c.From]; !ok {
			ve.errorf("%s graph %q: connection from missing node %d", g.Kind, g.Name, c.From)
		}
		if _, ok := g.Nodes[c.To]; !ok {
			ve.errorf("%s graph %q: connection to missing node %d", g.Kind, g.Name, c.To)
		}
	}
	if g.Kind == types.KindBehavior || g.Kind == types.KindSystem {
		trees := 0
		for _, n := range g.Nodes {
			if n.Type == types.NodeBehaviorTree {
				trees++
			}
		}
		if trees == 0 {
			ve.warnf("%s graph %q has no behavior trees", g.Kind, g.Name)
		}
	}
}
