package console

import (
	"bytes"
	"strings"
	"testing"
)

type bufSink struct {
	bytes.Buffer
}

func (b *bufSink) CharsWritten() int { return b.Len() }

func TestEarlyOutputReplayedOnRegister(t *testing.T) {
	c := New()
	c.Printf("boot %d\n", 1)
	if c.Registered() || c.CharsWritten() != 0 {
		t.Fatal("no sink yet")
	}
	s := &bufSink{}
	c.Register(s)
	c.Printf("Drivers initialized successfully!\n")
	want := "boot 1\nDrivers initialized successfully!\n"
	if s.String() != want {
		t.Fatalf("sink = %q", s.String())
	}
	if c.CharsWritten() != len(want) || len(c.Early()) != 0 {
		t.Fatalf("CharsWritten = %d", c.CharsWritten())
	}
}

func TestEarlyBufferIsBounded(t *testing.T) {
	c := New()
	n, err := c.Write(make([]byte, EarlyBufferSize+10))
	if err != nil || n != EarlyBufferSize+10 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if len(c.Early()) != EarlyBufferSize {
		t.Fatalf("early = %d", len(c.Early()))
	}
	s := &bufSink{}
	c.Register(s)
	if !strings.HasSuffix(s.String(), "console: 10 early bytes dropped\n") {
		t.Fatalf("missing drop note: %q", s.String()[EarlyBufferSize:])
	}
}

func TestLogger(t *testing.T) {
	c := New()
	s := &bufSink{}
	c.Register(s)
	log := c.Logger(0).WithName("gpio")
	log.Info("GPIO initialized", "pin", 14)
	log.V(1).Info("hidden")
	out := s.String()
	if !strings.HasPrefix(out, "gpio: ") || !strings.Contains(out, `"msg"="GPIO initialized"`) || !strings.Contains(out, `"pin"=14`) {
		t.Fatalf("log line = %q", out)
	}
	if strings.Contains(out, "hidden") || strings.Count(out, "\n") != 1 {
		t.Fatalf("verbosity not applied: %q", out)
	}
}
