package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/pointer/internal/backend"
	"github.com/jmylchreest/pointer/internal/dbus"
	"github.com/jmylchreest/pointer/internal/overlay"
	"github.com/jmylchreest/pointer/internal/theme"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testReport() *backend.Report {
	return &backend.Report{
		Status: backend.Status{
			Running:   true,
			PID:       4242,
			Path:      "/usr/bin/pointer-backend",
			StartedAt: testNow.Add(-3 * time.Minute),
		},
		Healthy: true,
	}
}

func textFormatter(tmpl string) *TextFormatter {
	return NewTextFormatter(FormatterOptions{
		Template: tmpl,
		Now:      func() time.Time { return testNow },
	})
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format FormatType
		want   any
	}{
		{FormatJSON, &JSONFormatter{}},
		{FormatYAML, &YAMLFormatter{}},
		{FormatText, &TextFormatter{}},
		{"unknown", &TextFormatter{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			assert.IsType(t, tt.want, NewFormatter(tt.format, FormatterOptions{}))
		})
	}
}

func TestTextFormatter_String(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, textFormatter("").Format(&buf, "Overlay shown"))
	assert.Equal(t, "Overlay shown\n", buf.String())
}

func TestTextFormatter_Report(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, textFormatter("").Format(&buf, testReport()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Running (pid 4242, started 3 minutes ago), healthy", lines[0])
	assert.Equal(t, "  Path: /usr/bin/pointer-backend", lines[1])
}

func TestTextFormatter_Context(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, textFormatter("").Format(&buf, ContextResult{}))
	assert.Equal(t, "No overlay context\n", buf.String())

	buf.Reset()
	ctx := overlay.Context{SelectedText: "hello", HasScreenshot: true}
	require.NoError(t, textFormatter("").Format(&buf, ContextResult{Present: true, Context: &ctx}))
	assert.Equal(t, "Selected text: \"hello\"\nScreenshot: yes\n", buf.String())
}

func TestTextFormatter_Event(t *testing.T) {
	var buf bytes.Buffer
	ev := dbus.Event{
		Name:  dbus.SignalOverlayShown,
		Shown: &dbus.OverlayShownEvent{ID: "01J", Context: `{"a":1}`, X: 10, Y: 20.5},
	}
	require.NoError(t, textFormatter("").Format(&buf, ev))
	assert.Equal(t, "12:00:00 OverlayShown id=01J at (10, 20.5) context={\"a\":1}\n", buf.String())

	buf.Reset()
	require.NoError(t, textFormatter("").Format(&buf, dbus.Event{Name: dbus.SignalOverlayHidden}))
	assert.Equal(t, "12:00:00 OverlayHidden\n", buf.String())
}

func TestTextFormatter_Themes(t *testing.T) {
	var buf bytes.Buffer
	themes := []theme.ThemeInfo{
		{Name: "default", IsBundled: true, IsDefault: true},
		{Name: "mine", Path: "/home/u/.config/pointer/themes/mine.css"},
	}
	require.NoError(t, textFormatter("").Format(&buf, themes))
	assert.Equal(t, "default (bundled) [default]\nmine (/home/u/.config/pointer/themes/mine.css)\n", buf.String())
}

func TestTextFormatter_RawJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, textFormatter("").Format(&buf, json.RawMessage(`{"theme":"dark"}`)))
	assert.Equal(t, "{\n  \"theme\": \"dark\"\n}\n", buf.String())
}

func TestTextFormatter_Template(t *testing.T) {
	var buf bytes.Buffer
	f := textFormatter("{{.PID}} {{reltime .StartedAt}} {{truncate .Path 8}}")
	require.NoError(t, f.Format(&buf, testReport()))
	assert.Equal(t, "4242 3 minutes ago /usr/...\n", buf.String())
}

func TestTextFormatter_InvalidTemplateFallsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, textFormatter("{{.PID").Format(&buf, "plain"))
	assert.Equal(t, "plain\n", buf.String())
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().Format(&buf, testReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["running"])
	assert.Equal(t, float64(4242), decoded["pid"])
	assert.Equal(t, true, decoded["healthy"])
	assert.NotContains(t, decoded, "last_exit_code")
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter().Format(&buf, testReport()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["running"])
	assert.Equal(t, 4242, decoded["pid"])
	assert.NotContains(t, decoded, "last_exit_at")
}

func TestYAMLFormatter_RawJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter().Format(&buf, json.RawMessage(`{"theme":"dark"}`)))
	assert.Equal(t, "theme: dark\n", buf.String())

	buf.Reset()
	assert.Error(t, NewYAMLFormatter().Format(&buf, json.RawMessage(`{`)))
}
