// Package iox holds small helpers for closing agent connections, response
// bodies, and loggers where the close error has nowhere useful to go.
package iox

import "io"

// DiscardClose closes c and drops the error.
//
//	defer iox.DiscardClose(conn)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a func that closes c, for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and drops the error, e.g. logger.Sync on exit.
func DiscardErr(fn func() error) { _ = fn() }
