package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// stdinPrompter prints the message and reads one line of input.
type stdinPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newStdinPrompter(in io.Reader, out io.Writer) *stdinPrompter {
	return &stdinPrompter{in: bufio.NewReader(in), out: out}
}

type promptResult struct {
	line string
	err  error
}

func (p *stdinPrompter) Prompt(ctx context.Context, message string) (string, error) {
	fmt.Fprintln(p.out, message)

	// A cancelled prompt leaves this reader blocked on input until the process
	// exits; the CLI prompts once per run.
	result := make(chan promptResult, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		result <- promptResult{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-result:
		if r.err != nil {
			return "", fmt.Errorf("failed to read input: %w", r.err)
		}
		return r.line, nil
	}
}
