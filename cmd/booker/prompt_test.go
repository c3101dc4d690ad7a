package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/example/resource-booker/internal/application"
)

func TestPrompter(t *testing.T) {
	t.Run("returns lines in order", func(t *testing.T) {
		var out bytes.Buffer
		p := newPrompter(strings.NewReader("first\r\nsecond\n"), &out)
		defer p.stop()
		prompt := p.prompt(3)

		for i, want := range []string{"first", "second"} {
			got, err := prompt(context.Background(), "alice", i+1)
			if err != nil || got != want {
				t.Fatalf("attempt %d: got %q (%v), want %q", i+1, got, err, want)
			}
		}
		if _, err := prompt(context.Background(), "alice", 3); !errors.Is(err, application.ErrNoSecret) {
			t.Fatalf("expected ErrNoSecret at end of input, got %v", err)
		}
		if !strings.Contains(out.String(), "secret for alice (attempt 2 of 3): ") {
			t.Fatalf("unexpected prompt output %q", out.String())
		}
	})

	t.Run("cancelled prompt returns the context error", func(t *testing.T) {
		reader, writer := io.Pipe()
		defer writer.Close()
		p := newPrompter(reader, io.Discard)
		defer p.stop()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := p.prompt(3)(ctx, "alice", 1); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("reader exits after stop", func(t *testing.T) {
		reader, writer := io.Pipe()
		p := newPrompter(reader, io.Discard)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _ = p.prompt(3)(ctx, "alice", 1)

		// A line nobody asks for leaves the reader waiting to hand it over.
		go func() {
			_, _ = writer.Write([]byte("late\n"))
			_ = writer.Close()
		}()
		p.stop()

		deadline := time.After(2 * time.Second)
		for received := 0; ; received++ {
			select {
			case _, ok := <-p.lines:
				if !ok {
					return
				}
				if received > 0 {
					t.Fatalf("expected at most one pending line after stop")
				}
			case <-deadline:
				t.Fatalf("reader did not exit after stop")
			}
		}
	})
}
