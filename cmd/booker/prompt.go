package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/example/resource-booker/internal/application"
)

// prompter asks for secrets on stdin. Lines are read in the background so a
// pending prompt can be abandoned by cancelling the context.
type prompter struct {
	in       io.Reader
	out      io.Writer
	once     sync.Once
	lines    chan string
	done     chan struct{}
	stopOnce sync.Once
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out, done: make(chan struct{})}
}

// stop releases the background reader once no further prompt will be made.
// A reader blocked inside a read of in exits after that read returns.
func (p *prompter) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

func (p *prompter) start() {
	p.once.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			scanner := bufio.NewScanner(p.in)
			for scanner.Scan() {
				select {
				case p.lines <- strings.TrimRight(scanner.Text(), "\r"):
				case <-p.done:
					return
				}
			}
		}()
	})
}

func (p *prompter) prompt(maxAttempts int) application.SecretPrompt {
	return func(ctx context.Context, userName string, attempt int) (string, error) {
		if p.in == nil {
			return "", application.ErrNoSecret
		}
		p.start()
		fmt.Fprintf(p.out, "secret for %s (attempt %d of %d): ", userName, attempt, maxAttempts)
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return "", ctx.Err()
		case line, ok := <-p.lines:
			if !ok {
				fmt.Fprintln(p.out)
				return "", application.ErrNoSecret
			}
			return line, nil
		}
	}
}
