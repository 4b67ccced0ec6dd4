package cli

import (
	"fmt"

	"github.com/nathoo/regioncore/engine/parser"
	"github.com/nathoo/regioncore/types"
)

// Publisher forwards what the region produced to an outside consumer.
type Publisher interface {
	PublishTick(snapshots map[int64][]byte)
	PublishMessage(msg types.RegionMessage)
}

// remoteLines applies queued transport input without blocking.
func (s *Session) remoteLines() []string {
	if s.Remote == nil {
		return nil
	}
	var lines []string
	for {
		select {
		case ra := <-s.Remote:
			if line := s.applyRemote(ra); line != "" {
				lines = append(lines, line)
			}
		default:
			return lines
		}
	}
}

func (s *Session) applyRemote(ra types.RemoteAction) string {
	if ra.Join != "" {
		inst, err := s.Engine.JoinPlayer(ra.Join, "", s.spawnPosition())
		if err != nil {
			reply(ra.Reply, 0)
			return fmt.Sprintf("[remote] join %s: %v", ra.Join, err)
		}
		reply(ra.Reply, inst.ID)
		return fmt.Sprintf("[remote] %s joined (#%d)", inst.Name, inst.ID)
	}
	if ra.Input == "" {
		return ""
	}
	action := parser.Parse(ra.Input)
	if err := s.Engine.PushAction(ra.Player, action.Verb, action.Direction); err != nil {
		return fmt.Sprintf("[remote] %v", err)
	}
	return ""
}

func reply(ch chan<- int64, id int64) {
	if ch == nil {
		return
	}
	select {
	case ch <- id:
	default:
	}
}
