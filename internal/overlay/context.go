package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrInvalidContext is returned when a context payload does not have the
// expected shape.
var ErrInvalidContext = errors.New("invalid overlay context")

// Context is the payload shown by the overlay.
type Context struct {
	SelectedText  string `json:"selected_text" yaml:"selected_text"`
	HasScreenshot bool   `json:"has_screenshot" yaml:"has_screenshot"`
}

// ParseContext decodes a raw payload into a Context.
// Both fields are required. Unknown fields are ignored.
func ParseContext(raw []byte) (Context, error) {
	var wire struct {
		SelectedText  *string `json:"selected_text"`
		HasScreenshot *bool   `json:"has_screenshot"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Context{}, fmt.Errorf("%w: %w", ErrInvalidContext, err)
	}
	if wire.SelectedText == nil {
		return Context{}, fmt.Errorf("%w: missing field selected_text", ErrInvalidContext)
	}
	if wire.HasScreenshot == nil {
		return Context{}, fmt.Errorf("%w: missing field has_screenshot", ErrInvalidContext)
	}
	return Context{
		SelectedText:  *wire.SelectedText,
		HasScreenshot: *wire.HasScreenshot,
	}, nil
}

// ContextCell holds the most recent overlay context.
// All accesses copy the value in or out under the lock.
type ContextCell struct {
	mu    sync.Mutex
	value Context
	set   bool
}

// Set stores ctx.
func (c *ContextCell) Set(ctx Context) {
	c.mu.Lock()
	c.value = ctx
	c.set = true
	c.mu.Unlock()
}

// Clear removes any stored context.
func (c *ContextCell) Clear() {
	c.mu.Lock()
	c.value = Context{}
	c.set = false
	c.mu.Unlock()
}

// Get returns the stored context and whether one is present.
func (c *ContextCell) Get() (Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

// Describe returns a one-line summary of the context for display, with the
// selected text cut to at most maxRunes runes.
func (c Context) Describe(maxRunes int) string {
	text := strings.Join(strings.Fields(c.SelectedText), " ")
	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		text = string(runes[:maxRunes]) + "…"
	}

	switch {
	case text != "" && c.HasScreenshot:
		return "“" + text + "” + screenshot"
	case text != "":
		return "“" + text + "”"
	case c.HasScreenshot:
		return "Screenshot"
	default:
		return ""
	}
}
