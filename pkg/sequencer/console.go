package sequencer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Console writes "@<id>: <message>" lines and reads operator answers.
type Console struct {
	out   io.Writer
	in    *bufio.Reader
	print *Gate
	input *Gate
}

// NewConsole creates a console that prints to out under the print gate and
// reads answers from in.
func NewConsole(out io.Writer, in io.Reader, printGate *Gate) *Console {
	return &Console{
		out:   out,
		in:    bufio.NewReader(in),
		print: printGate,
		input: NewGate(),
	}
}

// Printer writes lines during a print turn.
type Printer struct {
	out io.Writer
	err error
}

// Printf writes one line for the session.
func (p *Printer) Printf(sessionID, format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.out, "@%s: %s\n", sessionID, fmt.Sprintf(format, args...))
}

// Turn runs fn with exclusive access to the output. Everything fn prints
// forms one contiguous block.
func (c *Console) Turn(ctx context.Context, fn func(p *Printer)) error {
	return c.print.Do(ctx, func() error {
		p := &Printer{out: c.out}
		fn(p)
		return p.err
	})
}

// Say prints a single line for the session.
func (c *Console) Say(ctx context.Context, sessionID, format string, args ...interface{}) error {
	return c.Turn(ctx, func(p *Printer) {
		p.Printf(sessionID, format, args...)
	})
}

// Ask prints question and waits for one line of input. The print gate is
// released while waiting, so other sessions keep printing; only one
// question is outstanding at a time so answers cannot be mixed up. End of
// input yields an empty answer.
//
// The question and whatever the caller prints after the answer are separate
// print turns, so lines of other sessions may appear between them.
func (c *Console) Ask(ctx context.Context, sessionID, question string) (string, error) {
	release, err := c.input.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if err := c.Say(ctx, sessionID, "%s", question); err != nil {
		return "", err
	}

	return Offload(ctx, func() (string, error) {
		line, err := c.in.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading answer: %w", err)
		}
		return strings.TrimSpace(line), nil
	})
}
