// Package iox holds small I/O helpers shared by the client and the CLI.
package iox

import (
	"io"
	"os"
)

// DiscardClose closes c and drops the error. Intended for defer:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// DiscardErr calls fn and drops the error.
//
//	defer iox.DiscardErr(logger.Sync)
func DiscardErr(fn func() error) { _ = fn() }

// OpenOut returns a writer for path, or fallback when path is empty.
// Closing the fallback is a no-op so callers can always defer Close.
func OpenOut(path string, fallback io.Writer) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{fallback}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
