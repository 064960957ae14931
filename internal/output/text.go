package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/pointer/internal/backend"
	"github.com/jmylchreest/pointer/internal/dbus"
	"github.com/jmylchreest/pointer/internal/theme"
)

// TextFormatter formats results for people.
type TextFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts FormatterOptions) *TextFormatter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	f := &TextFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("text").Funcs(f.templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes v as text.
func (f *TextFormatter) Format(w io.Writer, v any) error {
	if f.template != nil {
		var buf bytes.Buffer
		if err := f.template.Execute(&buf, v); err != nil {
			return err
		}
		if buf.Len() == 0 || buf.Bytes()[buf.Len()-1] != '\n' {
			buf.WriteByte('\n')
		}
		_, err := w.Write(buf.Bytes())
		return err
	}

	var sb strings.Builder
	switch r := v.(type) {
	case string:
		sb.WriteString(r + "\n")
	case json.RawMessage:
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, r, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(r)
		}
		sb.WriteString(pretty.String() + "\n")
	case *backend.Report:
		f.writeReport(&sb, r)
	case backend.Report:
		f.writeReport(&sb, &r)
	case *backend.AgentResponse:
		sb.WriteString(r.Response + "\n")
	case ContextResult:
		writeContext(&sb, r)
	case dbus.Event:
		f.writeEvent(&sb, r)
	case []theme.ThemeInfo:
		writeThemes(&sb, r)
	default:
		sb.WriteString(fmt.Sprintf("%v\n", v))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *TextFormatter) writeReport(sb *strings.Builder, r *backend.Report) {
	sb.WriteString(r.Summary(f.opts.Now()) + "\n")
	if r.Path != "" {
		sb.WriteString("  Path: " + r.Path + "\n")
	}
}

func writeContext(sb *strings.Builder, r ContextResult) {
	if !r.Present || r.Context == nil {
		sb.WriteString("No overlay context\n")
		return
	}
	sb.WriteString(fmt.Sprintf("Selected text: %q\n", r.Context.SelectedText))
	screenshot := "no"
	if r.Context.HasScreenshot {
		screenshot = "yes"
	}
	sb.WriteString("Screenshot: " + screenshot + "\n")
}

func (f *TextFormatter) writeEvent(sb *strings.Builder, e dbus.Event) {
	sb.WriteString(f.opts.Now().Format(time.TimeOnly) + " " + e.Name)
	if e.Shown != nil {
		sb.WriteString(fmt.Sprintf(" id=%s at (%g, %g)", e.Shown.ID, e.Shown.X, e.Shown.Y))
		if e.Shown.Context != "" {
			sb.WriteString(" context=" + e.Shown.Context)
		}
	}
	sb.WriteString("\n")
}

func writeThemes(sb *strings.Builder, themes []theme.ThemeInfo) {
	for _, t := range themes {
		sb.WriteString(t.Name)
		switch {
		case t.IsBundled:
			sb.WriteString(" (bundled)")
		case t.Path != "":
			sb.WriteString(" (" + t.Path + ")")
		}
		if t.IsDefault {
			sb.WriteString(" [default]")
		}
		sb.WriteString("\n")
	}
}

func (f *TextFormatter) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"reltime": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return humanize.RelTime(t, f.opts.Now(), "ago", "from now")
		},
		"json": func(v any) (string, error) {
			data, err := json.Marshal(v)
			return string(data), err
		},
	}
}
