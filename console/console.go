// Package console is the kernel's text output point. Until a sink is
// registered, output is kept in a bounded early buffer and replayed into
// the first sink.
package console

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// EarlyBufferSize bounds output kept before a sink exists.
const EarlyBufferSize = 4096

// Sink is the output capability a console needs from a device.
type Sink interface {
	io.Writer
	CharsWritten() int
}

type Console struct {
	sink    Sink
	early   []byte
	dropped int
}

func New() *Console { return &Console{} }

// Register makes s the active sink and replays buffered early output into
// it. Register only a device whose Initialize has completed.
func (c *Console) Register(s Sink) {
	c.sink = s
	if len(c.early) > 0 {
		s.Write(c.early)
		c.early = nil
	}
	if c.dropped > 0 {
		fmt.Fprintf(s, "console: %d early bytes dropped\n", c.dropped)
		c.dropped = 0
	}
}

func (c *Console) Registered() bool { return c.sink != nil }

// Detach drops the active sink, returning it. Later output goes to the
// early buffer until the next Register.
func (c *Console) Detach() Sink {
	s := c.sink
	c.sink = nil
	return s
}

// Write sends p to the sink, or buffers it. Early output past
// EarlyBufferSize is dropped and counted.
func (c *Console) Write(p []byte) (int, error) {
	if c.sink != nil {
		return c.sink.Write(p)
	}
	n := len(p)
	if room := EarlyBufferSize - len(c.early); room < n {
		c.dropped += n - room
		p = p[:room]
	}
	c.early = append(c.early, p...)
	return n, nil
}

func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c, format, args...)
}

// CharsWritten reports the sink's counter; zero before registration.
func (c *Console) CharsWritten() int {
	if c.sink == nil {
		return 0
	}
	return c.sink.CharsWritten()
}

// Early returns the buffered output not yet replayed.
func (c *Console) Early() []byte { return c.early }

// Logger returns a logger writing one line per entry to the console.
func (c *Console) Logger(verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			c.Printf("%s: %s\n", prefix, args)
			return
		}
		c.Printf("%s\n", args)
	}, funcr.Options{Verbosity: verbosity})
}
