// Package cli provides terminal I/O and meta-command dispatch for driving
// a region tick by tick.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/regioncore/engine"
	"github.com/nathoo/regioncore/types"
)

// CLI handles line-based terminal interaction.
type CLI struct {
	Session   *Session
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)
}

// New creates a CLI wired to the given engine and its outbound channel.
func New(eng *engine.Engine, outbox <-chan types.RegionMessage) *CLI {
	return &CLI{
		Session: NewSession(eng, outbox),
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run shows the intro, then loops: prompt, input, dispatch, output.
func (c *CLI) Run() {
	for _, line := range c.Session.Intro() {
		c.printLine(line)
	}
	c.printLine("")

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		out := c.Session.Exec(input)
		for _, line := range out.Lines {
			if out.System {
				c.printSystem(line)
			} else {
				c.printLine(line)
			}
		}
		if out.Quit {
			return
		}
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	if text == "" {
		fmt.Fprintln(c.Out)
		return
	}
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
