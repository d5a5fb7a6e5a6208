package iox

import (
	"errors"
	"testing"
)

type countingCloser struct{ calls int }

func (c *countingCloser) Close() error {
	c.calls++
	return errors.New("connection reset")
}

func TestCloseHelpers(t *testing.T) {
	tests := []struct {
		name string
		run  func(c *countingCloser)
	}{
		{"DiscardClose", func(c *countingCloser) { DiscardClose(c) }},
		{"CloseFunc", func(c *countingCloser) { CloseFunc(c)() }},
		{"DiscardErr", func(c *countingCloser) { DiscardErr(c.Close) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &countingCloser{}
			tt.run(c)
			if c.calls != 1 {
				t.Errorf("Close calls = %d, want 1", c.calls)
			}
		})
	}
}

func TestCloseFunc_Deferred(t *testing.T) {
	c := &countingCloser{}
	fn := CloseFunc(c)
	if c.calls != 0 {
		t.Fatal("Close called before the returned func ran")
	}
	fn()
	if c.calls != 1 {
		t.Fatalf("Close calls = %d, want 1", c.calls)
	}
}
