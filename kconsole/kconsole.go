// Package kconsole is the kernel-side terminal sink user processes
// write to (spec.md §6's "write to terminal" path), standing in for
// the out-of-scope hardware terminal driver. Every write is validated
// as UTF-8 before being handed to the underlying writer, using
// golang.org/x/text/encoding/unicode's decoder rather than a hand-rolled
// byte-range check.
package kconsole

import (
	"io"
	"os"
	"sync"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

/// Console is a UTF-8-validating sink: Write rejects (without partial
/// output) any byte sequence that does not decode cleanly as UTF-8.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

/// Default is the process-wide console, writing to stdout, matching
/// the single global terminal the original kernel assumes.
var Default = New(os.Stdout)

/// New builds a Console writing validated output to out.
func New(out io.Writer) *Console {
	return &Console{out: out}
}

/// Write validates p as UTF-8 and, if valid, writes it to the
// underlying sink in full. Invalid input is rejected wholesale rather
// than emitting a partial, possibly-truncated-mid-rune prefix.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	validated, _, err := transform.Bytes(unicode.UTF8Validator, p)
	if err != nil {
		return 0, err
	}
	return c.out.Write(validated)
}

/// WriteByte writes a single byte, the original write syscall's
// one-character-at-a-time discipline for terminal output.
func (c *Console) WriteByte(b byte) error {
	_, err := c.Write([]byte{b})
	return err
}
