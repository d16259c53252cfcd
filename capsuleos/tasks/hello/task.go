package hello

import (
	"fmt"

	printclient "capsule/capsuleos/client/print"
	"capsule/capsuleos/kernel"
)

// Task prints a greeting, then reports how many bytes it has printed, one
// line per quantum, and exits.
type Task struct {
	name  string
	lines int
	step  int
}

// New returns a task that prints lines greetings before reporting.
func New(name string, lines int) *Task {
	if lines <= 0 {
		lines = 1
	}
	return &Task{name: name, lines: lines}
}

func (t *Task) Step(ctx *kernel.Context) {
	defer func() { t.step++ }()

	if t.step == 0 {
		if err := printclient.Ack(ctx); err != nil {
			ctx.Exit(1)
			return
		}
	}

	if t.step < t.lines {
		line := fmt.Sprintf("%s: hello #%d", t.name, t.step+1)
		if err := printclient.Print(ctx, 0, []byte(line)); err != nil {
			ctx.Exit(2)
		}
		return
	}

	n, err := printclient.Count(ctx)
	if err != nil {
		ctx.Exit(3)
		return
	}
	_ = printclient.Print(ctx, 0, []byte(fmt.Sprintf("%s: printed %d bytes", t.name, n)))
	ctx.Exit(0)
}
