package parser

import (
	"testing"

	"github.com/nathoo/regioncore/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.PlayerAction
	}{
		{name: "empty string", input: "", want: types.PlayerAction{}},
		{name: "whitespace only", input: "   ", want: types.PlayerAction{}},
		{name: "plain verb", input: "look", want: types.PlayerAction{Verb: "look"}},
		{name: "alias", input: "l", want: types.PlayerAction{Verb: "look"}},
		{name: "bare direction", input: "north", want: types.PlayerAction{Verb: "move", Direction: "north"}},
		{name: "short direction", input: "sw", want: types.PlayerAction{Verb: "move", Direction: "southwest"}},
		{name: "go with direction", input: "go e", want: types.PlayerAction{Verb: "move", Direction: "east"}},
		{name: "verb with direction", input: "attack to the west", want: types.PlayerAction{Verb: "attack", Direction: "west"}},
		{name: "verb with object", input: "get sword", want: types.PlayerAction{Verb: "take"}},
		{name: "case insensitive", input: "  USE North  ", want: types.PlayerAction{Verb: "use", Direction: "north"}},
		{name: "unknown verb kept", input: "dance", want: types.PlayerAction{Verb: "dance"}},
		{name: "inventory shortcut", input: "i", want: types.PlayerAction{Verb: "inventory"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
