package theme

import (
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed themes/*.css
var bundled embed.FS

// DefaultThemeName is the theme used when none is configured or the
// configured one cannot be found.
const DefaultThemeName = "default"

// bundledFile reads themes/<file> from the embedded set.
func bundledFile(file string) (string, bool) {
	data, err := bundled.ReadFile(path.Join("themes", file))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// BundledCSS returns the raw CSS of a bundled theme, imports unresolved.
func BundledCSS(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, "_") {
		return "", false
	}
	return bundledFile(name + ".css")
}

// bundledPartial returns a bundled partial. Partials are files whose name
// starts with an underscore; both "_base" and "base.css" find _base.css.
func bundledPartial(name string) (string, bool) {
	name = "_" + strings.TrimPrefix(strings.TrimSuffix(name, ".css"), "_") + ".css"
	return bundledFile(name)
}

// BundledNames returns the sorted names of the bundled themes.
func BundledNames() []string {
	entries, err := fs.ReadDir(bundled, "themes")
	if err != nil {
		return []string{DefaultThemeName}
	}

	var names []string
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".css")
		if entry.IsDir() || !ok || strings.HasPrefix(name, "_") {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
