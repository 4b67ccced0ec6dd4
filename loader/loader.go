// Package loader reads a region bundle from disk: the region and its
// placements (region.yaml), item templates (items.yaml) and every graph
// under graphs/ (one JSON document per graph).
package loader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

//go:embed graph.schema.json
var graphSchemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func graphSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("graph.schema.json", bytes.NewReader(graphSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("graph.schema.json")
	})
	return schema, schemaErr
}

// LooseItem places an item of a template directly into the region.
type LooseItem struct {
	Class    string         `yaml:"class"`
	Position types.Position `yaml:"position"`
}

// Bundle is everything needed to run one region.
type Bundle struct {
	Region     types.Region
	Game       string // name of the game-logic graph; empty picks the only one
	Placements []types.Placement
	Items      []LooseItem
	Templates  []types.ItemTemplate
	Graphs     []*types.Graph
	Warnings   []string
}

type regionFile struct {
	Region     types.Region     `yaml:"region"`
	Game       string           `yaml:"game"`
	Placements []rawPlacement   `yaml:"placements"`
	Items      []LooseItem      `yaml:"items"`
}

type rawPlacement struct {
	Graph      string         `yaml:"graph"`
	Name       string         `yaml:"name"`
	Position   types.Position `yaml:"position"`
	Tile       *types.Tile    `yaml:"tile"`
	Attributes attrMap        `yaml:"attributes"`
}

type itemsFile struct {
	Templates []rawTemplate `yaml:"templates"`
}

type rawTemplate struct {
	ClassName  string  `yaml:"class_name"`
	Name       string  `yaml:"name"`
	Graph      string  `yaml:"graph"`
	Attributes attrMap `yaml:"attributes"`
}

// Load reads and validates the bundle in dir. Validation problems are
// returned together as a *ValidationError; warnings are kept on the bundle.
func Load(dir string) (*Bundle, error) {
	b := &Bundle{}

	var rf regionFile
	if err := readYAML(filepath.Join(dir, "region.yaml"), &rf); err != nil {
		return nil, err
	}
	b.Region = rf.Region
	b.Game = rf.Game
	b.Items = rf.Items
	for _, p := range rf.Placements {
		b.Placements = append(b.Placements, types.Placement{
			Graph:    p.Graph,
			Name:     p.Name,
			Position: p.Position,
			Tile:     p.Tile,
			Attrs:    p.Attributes,
		})
	}

	var items itemsFile
	if err := readYAML(filepath.Join(dir, "items.yaml"), &items); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, t := range items.Templates {
		b.Templates = append(b.Templates, types.ItemTemplate{
			ClassName:  t.ClassName,
			Name:       t.Name,
			Graph:      t.Graph,
			Attributes: t.Attributes,
		})
	}

	graphs, schemaErrs, err := loadGraphs(filepath.Join(dir, "graphs"))
	if err != nil {
		return nil, err
	}
	b.Graphs = graphs

	ve := validate(b)
	ve.Errors = append(schemaErrs, ve.Errors...)
	b.Warnings = ve.Warnings
	if len(ve.Errors) > 0 {
		return nil, ve
	}
	return b, nil
}

// loadGraphs decodes every .json file in dir in name order. Files that
// fail schema validation are reported and skipped.
func loadGraphs(dir string) ([]*types.Graph, []string, error) {
	s, err := graphSchema()
	if err != nil {
		return nil, nil, fmt.Errorf("compiling graph schema: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading graph directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var graphs []*types.Graph
	var problems []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", name, err)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			problems = append(problems, fmt.Sprintf("graphs/%s: %v", name, err))
			continue
		}
		if err := s.Validate(doc); err != nil {
			problems = append(problems, fmt.Sprintf("graphs/%s: %v", name, err))
			continue
		}
		var g types.Graph
		if err := json.Unmarshal(data, &g); err != nil {
			problems = append(problems, fmt.Sprintf("graphs/%s: %v", name, err))
			continue
		}
		graphs = append(graphs, &g)
	}
	return graphs, problems, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Install adds the bundle's graphs, item templates and loose items to w.
// Placements are spawned by the engine.
func (b *Bundle) Install(w *world.World) error {
	var games []*types.Graph
	for _, g := range b.Graphs {
		switch g.Kind {
		case types.KindBehavior:
			w.Behaviors.Add(g)
		case types.KindSystem:
			w.Systems.Add(g)
		case types.KindArea:
			w.Areas.Add(g)
		case types.KindItem:
			w.ItemLogic.Add(g)
		case types.KindGame:
			w.Game.Add(g)
			games = append(games, g)
		}
	}
	for _, g := range games {
		if g.Name == b.Game || (b.Game == "" && len(games) == 1) {
			w.GameGraph = g.ID
		}
	}
	for _, t := range b.Templates {
		w.ItemClasses[t.ClassName] = t
	}
	for _, li := range b.Items {
		item, ok := w.CreateItem(li.Class)
		if !ok {
			return fmt.Errorf("item %q: unknown class", li.Class)
		}
		pos := li.Position
		if pos.Region == 0 {
			pos.Region = w.Region.ID
		}
		item.Position = &pos
		w.Items = append(w.Items, item)
	}
	return nil
}
