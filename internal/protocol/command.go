// Package protocol implements the wire codec shared by the Coordinator
// Service and the Worker Agent: the single-line Command format
// returned by /ping and by every task upload endpoint, and the fixed
// multipart/form-data envelope used for result uploads.
package protocol

import (
	"strconv"
	"strings"

	"github.com/tmacam/dcrawl/internal/apperr"
)

// SleepAction is the action token the Scheduler uses to tell a worker
// to back off instead of handing out a job.
const SleepAction = "SLEEP"

// endOfCommand is the sentinel trailing token of every Command.
const endOfCommand = "#"

// Command is the parsed form of a Scheduler directive: "<action>
// <params> #". A SLEEP command carries the sleep duration, in
// seconds, as its Params field.
type Command struct {
	Action string
	Params string
}

// Sleep builds a SLEEP command for n seconds, floored at zero.
func Sleep(n int) Command {
	if n < 0 {
		n = 0
	}
	return Command{Action: SleepAction, Params: strconv.Itoa(n)}
}

// IsSleep reports whether c is a SLEEP directive.
func (c Command) IsSleep() bool {
	return c.Action == SleepAction
}

// String renders c as "<action> <params> #", the wire form.
func (c Command) String() string {
	return c.Action + " " + c.Params + " " + endOfCommand
}

// ParseCommand parses the wire form of a Command. It requires exactly
// three whitespace-separated tokens, the last being the literal "#".
// Any other shape fails with apperr.WrongCommandFormat.
func ParseCommand(body string) (Command, error) {
	tokens := strings.Fields(body)
	if len(tokens) != 3 {
		return Command{}, apperr.WrongCommandFormat("command must have exactly 3 tokens, got %d: %q", len(tokens), body)
	}
	action, params, sentinel := tokens[0], tokens[1], tokens[2]
	if sentinel != endOfCommand {
		return Command{}, apperr.WrongCommandFormat("command must end with %q, got %q", endOfCommand, sentinel)
	}
	return Command{Action: action, Params: params}, nil
}

// SleepSeconds parses c's Params as an integer number of seconds. It
// is only meaningful when c.IsSleep().
func (c Command) SleepSeconds() (int, error) {
	n, err := strconv.Atoi(c.Params)
	if err != nil {
		return 0, apperr.WrongCommandFormat("sleep params not an integer: %q", c.Params)
	}
	return n, nil
}
