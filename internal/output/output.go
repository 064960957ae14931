// Package output formats pointer CLI results.
package output

import (
	"io"
	"time"

	"github.com/jmylchreest/pointer/internal/overlay"
)

// Formatter writes a single result.
type Formatter interface {
	Format(w io.Writer, v any) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatText FormatType = "text"
	FormatJSON FormatType = "json"
	FormatYAML FormatType = "yaml"
)

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template string           // Go template for text output, applied to the raw result
	Now      func() time.Time // clock for relative times, time.Now if nil
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter()
	case FormatYAML:
		return NewYAMLFormatter()
	case FormatText:
		fallthrough
	default:
		return NewTextFormatter(opts)
	}
}

// ContextResult is the answer to an overlay context lookup.
type ContextResult struct {
	Present bool             `json:"present" yaml:"present"`
	Context *overlay.Context `json:"context,omitempty" yaml:"context,omitempty"`
}
