package theme

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jmylchreest/pointer/internal/config"
)

// importRegex matches @import "file.css"; @import 'file.css'; and @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a loaded stylesheet.
type Theme struct {
	Name      string
	Path      string // empty for bundled themes
	CSS       string // with imports inlined
	ModTime   time.Time
	IsBundled bool
}

// ThemesDir returns the user themes directory.
func ThemesDir() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "themes"), nil
}

// NewTheme loads a user theme from path, inlining its imports.
func NewTheme(name, path string) (*Theme, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     ProcessImports(string(css), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// NewBundledTheme returns the embedded theme called name, or false.
func NewBundledTheme(name string) (*Theme, bool) {
	css, ok := BundledCSS(name)
	if !ok {
		return nil, false
	}
	return &Theme{
		Name:      name,
		CSS:       ProcessImports(css, "", nil),
		IsBundled: true,
	}, true
}

// ProcessImports inlines @import statements, resolving relative paths
// against baseDir. A file that cannot be read falls back to a bundled
// partial or theme of the same name. seen guards against import cycles.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		sub := importRegex.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		importPath := sub[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}
		if seen[fullPath] {
			return "/* circular import prevented: " + importPath + " */"
		}
		seen[fullPath] = true

		data, err := os.ReadFile(fullPath)
		if err != nil {
			baseName := filepath.Base(importPath)
			if strings.HasPrefix(baseName, "_") {
				if partial, ok := bundledPartial(baseName); ok {
					return "/* imported (embedded): " + importPath + " */\n" + partial
				}
			}
			if theme, ok := BundledCSS(strings.TrimSuffix(baseName, ".css")); ok {
				return "/* imported (embedded): " + importPath + " */\n" + theme
			}
			return "/* import failed: " + importPath + " - " + err.Error() + " */"
		}

		return "/* imported: " + importPath + " */\n" +
			ProcessImports(string(data), filepath.Dir(fullPath), seen)
	})
}

// Reload re-reads a user theme if its file is newer than the loaded copy.
// It reports whether the CSS changed.
func (t *Theme) Reload() (bool, error) {
	return t.reload(false)
}

// reload re-reads the theme. With force set the modification time is not
// checked, which picks up edits to imported files.
func (t *Theme) reload(force bool) (bool, error) {
	if t.IsBundled {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !force && !info.ModTime().After(t.ModTime) {
		return false, nil
	}

	data, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}

	css := ProcessImports(string(data), filepath.Dir(t.Path), nil)
	changed := css != t.CSS
	t.CSS = css
	t.ModTime = info.ModTime()
	return changed, nil
}

// ThemeInfo describes an available theme.
type ThemeInfo struct {
	Name      string `json:"name" yaml:"name"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	IsDefault bool   `json:"default" yaml:"default"`
	IsBundled bool   `json:"bundled" yaml:"bundled"`
}

// ListAvailableThemes lists bundled themes followed by user themes. A user
// theme with a bundled name overrides it and is not listed twice.
func ListAvailableThemes() ([]ThemeInfo, error) {
	seen := make(map[string]bool)
	var themes []ThemeInfo

	for _, name := range BundledNames() {
		seen[name] = true
		themes = append(themes, ThemeInfo{
			Name:      name,
			IsDefault: name == DefaultThemeName,
			IsBundled: true,
		})
	}

	dir, err := ThemesDir()
	if err != nil {
		return themes, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return themes, nil
		}
		return themes, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".css" || strings.HasPrefix(name, "_") {
			continue
		}
		themeName := strings.TrimSuffix(name, ".css")
		if seen[themeName] {
			continue
		}
		seen[themeName] = true
		themes = append(themes, ThemeInfo{Name: themeName, Path: filepath.Join(dir, name)})
	}

	return themes, nil
}

// Resolve finds a theme by name: a user theme in themesDir wins over a
// bundled one, and unknown names fall back to the default theme.
func Resolve(name, themesDir string, logger *slog.Logger) *Theme {
	if name == "" {
		name = DefaultThemeName
	}

	if themesDir != "" {
		path := filepath.Join(themesDir, name+".css")
		if _, err := os.Stat(path); err == nil {
			t, err := NewTheme(name, path)
			if err == nil {
				return t
			}
			logger.Warn("failed to load user theme, trying bundled", "theme", name, "error", err)
		}
	}

	if t, ok := NewBundledTheme(name); ok {
		return t
	}

	logger.Warn("theme not found, using default", "theme", name)
	t, _ := NewBundledTheme(DefaultThemeName)
	return t
}
