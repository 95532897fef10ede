package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/tui/styles"
)

// Console prints notifications as single styled lines. Loading changes are ignored.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	printed map[string]bool
}

// NewConsole creates a console sink writing to w
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, printed: make(map[string]bool)}
}

// Notify implements domain.Notifier
func (c *Console) Notify(message string, severity domain.Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printed[message] = true
	_, _ = fmt.Fprintln(c.w, styles.ForSeverity(severity).Render(message))
}

// Printed reports whether message was already shown
func (c *Console) Printed(message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.printed[message]
}

// LoadingChanged implements domain.LoadingObserver
func (c *Console) LoadingChanged(bool) {}
