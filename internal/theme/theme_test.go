package theme

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

func TestProcessImports_NoImports(t *testing.T) {
	css := `.pointer-overlay-frame { color: red; }`
	assert.Equal(t, css, ProcessImports(css, "", nil))
}

func TestProcessImports_FileImport(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_colors.css"), []byte(`:root { --accent: #ff0000; }`), 0o644))

	result := ProcessImports(`@import "_colors.css";
.pointer-overlay-frame { color: var(--accent); }`, tmpDir, nil)

	assert.Contains(t, result, "/* imported: _colors.css */")
	assert.Contains(t, result, "--accent: #ff0000")
	assert.Contains(t, result, ".pointer-overlay-frame")
}

func TestProcessImports_NestedImports(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_grandchild.css"), []byte(`.grandchild { color: blue; }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_child.css"), []byte(`@import "_grandchild.css";
.child { color: green; }`), 0o644))

	result := ProcessImports(`@import "_child.css";
.main { color: red; }`, tmpDir, nil)

	assert.Contains(t, result, "/* imported: _child.css */")
	assert.Contains(t, result, "/* imported: _grandchild.css */")
	assert.Contains(t, result, ".grandchild")
	assert.Contains(t, result, ".main")
}

func TestProcessImports_CircularPrevention(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_a.css"), []byte(`@import "_b.css";
.a { color: red; }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_b.css"), []byte(`@import "_a.css";
.b { color: blue; }`), 0o644))

	result := ProcessImports(`@import "_a.css";`, tmpDir, nil)

	assert.Contains(t, result, "/* imported: _a.css */")
	assert.Contains(t, result, "/* imported: _b.css */")
	assert.Contains(t, result, "/* circular import prevented: _a.css */")
}

func TestProcessImports_MissingFile(t *testing.T) {
	result := ProcessImports(`@import "nonexistent.css";`, t.TempDir(), nil)
	assert.Contains(t, result, "/* import failed: nonexistent.css")
}

func TestProcessImports_FallbackToBundledTheme(t *testing.T) {
	result := ProcessImports(`@import "default.css";`, "/nonexistent/path", nil)

	assert.Contains(t, result, "/* imported (embedded): default.css */")
	assert.Contains(t, result, ".pointer-overlay-frame")
}

func TestImportRegex(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`@import "file.css";`, "file.css"},
		{`@import 'file.css';`, "file.css"},
		{`@import url("file.css");`, "file.css"},
		{`@import url( "file.css" );`, "file.css"},
		{`@import "_partial.css"`, "_partial.css"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			matches := importRegex.FindStringSubmatch(tt.input)
			require.Len(t, matches, 2)
			assert.Equal(t, tt.expected, matches[1])
		})
	}
}

func TestTheme_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mine.css")
	require.NoError(t, os.WriteFile(path, []byte(`.pointer-overlay-frame { color: red; }`), 0o644))

	th, err := NewTheme("mine", path)
	require.NoError(t, err)
	assert.False(t, th.IsBundled)

	changed, err := th.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "unchanged file should not reload")

	require.NoError(t, os.WriteFile(path, []byte(`.pointer-overlay-frame { color: blue; }`), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	changed, err = th.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, th.CSS, "color: blue")
}

func TestTheme_ReloadBundled(t *testing.T) {
	th, ok := NewBundledTheme("minimal")
	require.True(t, ok)
	changed, err := th.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "minimal.css"), []byte(`.user { }`), 0o644))

	t.Run("user overrides bundled", func(t *testing.T) {
		th := Resolve("minimal", dir, discard)
		assert.False(t, th.IsBundled)
		assert.Contains(t, th.CSS, ".user")
	})

	t.Run("bundled", func(t *testing.T) {
		th := Resolve("default", dir, discard)
		assert.True(t, th.IsBundled)
		assert.Equal(t, "default", th.Name)
	})

	t.Run("empty name", func(t *testing.T) {
		assert.Equal(t, DefaultThemeName, Resolve("", "", discard).Name)
	})

	t.Run("unknown falls back", func(t *testing.T) {
		th := Resolve("nope", dir, discard)
		assert.Equal(t, DefaultThemeName, th.Name)
		assert.True(t, th.IsBundled)
	})
}

func TestListAvailableThemes(t *testing.T) {
	cfgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	dir, err := ThemesDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "solar.css"), []byte(`.x{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.css"), []byte(`.x{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_part.css"), []byte(`.x{}`), 0o644))

	themes, err := ListAvailableThemes()
	require.NoError(t, err)

	names := make([]string, 0, len(themes))
	for _, th := range themes {
		names = append(names, th.Name)
	}
	assert.ElementsMatch(t, []string{"default", "minimal", "solar"}, names)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.css")
	require.NoError(t, os.WriteFile(path, []byte(`.a { color: red; }`), 0o644))

	th, err := NewTheme("live", path)
	require.NoError(t, err)

	w := NewWatcher(th, discard)
	changes := make(chan string, 4)
	w.SetChangeCallback(func(css string) { changes <- css })
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	assert.True(t, w.IsRunning())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "_extra.css"), []byte(`.b {}`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`@import "_extra.css";
.a { color: green; }`), 0o644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case css := <-changes:
			if strings.Contains(css, "color: green") && strings.Contains(css, ".b {}") {
				return
			}
		case <-deadline:
			t.Fatal("theme change was not delivered")
		}
	}
}

func TestWatcher_BundledNotWatched(t *testing.T) {
	th, _ := NewBundledTheme(DefaultThemeName)
	w := NewWatcher(th, discard)
	require.NoError(t, w.Start(context.Background()))
	assert.False(t, w.IsRunning())
	w.Stop()
}
