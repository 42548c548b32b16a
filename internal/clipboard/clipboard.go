// Package clipboard writes text to the system clipboard, with an in-memory
// stand-in for headless runs and tests.
package clipboard

import (
	"context"
	"errors"
	"sync"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard not supported on this system")

// Clipboard accepts text for the user's clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// System uses the platform clipboard (pbcopy, xclip, xsel, wl-copy, or the
// Windows API).
type System struct{}

func (System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// Memory records writes instead of touching the system clipboard.
type Memory struct {
	mutex  sync.Mutex
	writes []string
	err    error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, text)
	return nil
}

// Fail makes every following write return err. A nil err restores writes.
func (m *Memory) Fail(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.err = err
}

// Text returns the most recent successful write.
func (m *Memory) Text() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if len(m.writes) == 0 {
		return ""
	}
	return m.writes[len(m.writes)-1]
}

// Writes returns every successful write in order.
func (m *Memory) Writes() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make([]string, len(m.writes))
	copy(out, m.writes)
	return out
}

// New returns the clipboard for a configured backend name.
func New(backend string) Clipboard {
	if backend == "memory" {
		return NewMemory()
	}
	return System{}
}
