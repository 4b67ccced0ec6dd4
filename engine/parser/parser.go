// Package parser converts typed player input into the action a player
// instance submits for the next tick. Intentionally dumb: a verb and an
// optional direction.
package parser

import (
	"strings"

	"github.com/nathoo/regioncore/types"
)

var directionExpansions = map[string]string{
	"n":  "north",
	"s":  "south",
	"e":  "east",
	"w":  "west",
	"ne": "northeast",
	"nw": "northwest",
	"se": "southeast",
	"sw": "southwest",
}

var directionNames = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"northeast": true, "northwest": true, "southeast": true, "southwest": true,
}

var verbAliases = map[string]string{
	"l":       "look",
	"x":       "look",
	"examine": "look",
	"inspect": "look",

	"go":   "move",
	"walk": "move",
	"run":  "move",

	"get":  "take",
	"grab": "take",

	"discard": "drop",

	"hit":    "attack",
	"fight":  "attack",
	"strike": "attack",

	"talk":  "use",
	"speak": "use",
	"open":  "use",
	"push":  "use",

	"inv": "inventory",
	"i":   "inventory",
	"z":   "wait",
}

// Parse converts a raw command into a player action. A bare direction
// is a move; a direction anywhere after the verb becomes the action's
// direction. Empty input yields an empty verb.
func Parse(input string) types.PlayerAction {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(words) == 0 {
		return types.PlayerAction{}
	}

	if dir, ok := direction(words[0]); ok && len(words) == 1 {
		return types.PlayerAction{Verb: "move", Direction: dir}
	}

	verb := words[0]
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}
	action := types.PlayerAction{Verb: verb}
	for _, w := range words[1:] {
		if dir, ok := direction(w); ok {
			action.Direction = dir
			break
		}
	}
	return action
}

func direction(word string) (string, bool) {
	if dir, ok := directionExpansions[word]; ok {
		return dir, true
	}
	return word, directionNames[word]
}
