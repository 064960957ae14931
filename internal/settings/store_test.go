package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)

	blob, err := s.Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(blob))
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s := NewStore(path, nil)

	require.NoError(t, s.Save([]byte(`{"hotkey":"Super+Space","rag":{"enabled":true}}`)))

	blob, err := s.Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{"hotkey":"Super+Space","rag":{"enabled":true}}`, string(blob))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_SaveRejectsNonObjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := NewStore(path, nil)
	require.NoError(t, s.Save([]byte(`{"keep":1}`)))

	for _, bad := range []string{`[]`, `"text"`, `42`, `null`, `{broken`, ``} {
		t.Run(bad, func(t *testing.T) {
			err := s.Save([]byte(bad))
			assert.ErrorIs(t, err, ErrNotObject)
		})
	}

	blob, err := s.Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{"keep":1}`, string(blob), "rejected saves leave the file untouched")
}

func TestStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := NewStore(path, nil).Load()
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestStore_LoadBlankFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0600))

	blob, err := NewStore(path, nil).Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(blob))
}
