package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRegistry_RecordLookupForget(t *testing.T) {
	reg := NewFileRegistry(filepath.Join(t.TempDir(), "run"))

	_, found, err := reg.Lookup("api")
	require.NoError(t, err)
	assert.False(t, found, "missing state dir is an empty registry")

	started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	entry := Entry{Name: "api", PID: 4242, Port: 7862, RunID: "run-1", StartedAt: started, Command: []string{"api", "--port", "7862"}}
	require.NoError(t, reg.Record(entry))

	got, found, err := reg.Lookup("api")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry, got)

	require.NoError(t, reg.Forget("api"))
	require.NoError(t, reg.Forget("api"), "forgetting twice is fine")
	_, found, err = reg.Lookup("api")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileRegistry_RecordOverwrites(t *testing.T) {
	reg := NewFileRegistry(t.TempDir())

	require.NoError(t, reg.Record(Entry{Name: "ui", PID: 100, Port: 3000}))
	require.NoError(t, reg.Record(Entry{Name: "ui", PID: 200, Port: 3001}))

	got, found, err := reg.Lookup("ui")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 200, got.PID)
	assert.Equal(t, 3001, got.Port)

	snap, err := reg.List()
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 1)
}

func TestFileRegistry_ListReportsCorruptRecords(t *testing.T) {
	dir := t.TempDir()
	reg := NewFileRegistry(dir)

	require.NoError(t, reg.Record(Entry{Name: "b", PID: 2, Port: 2002}))
	require.NoError(t, reg.Record(Entry{Name: "a", PID: 1, Port: 2001}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("pid: [not a number"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zero.yaml"), []byte("name: zero\npid: 0\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".c.yaml123456"), []byte("partial"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".d.yaml"), []byte("partial"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	snap, err := reg.List()
	require.NoError(t, err)

	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "a", snap.Entries[0].Name)
	assert.Equal(t, "b", snap.Entries[1].Name)

	require.Len(t, snap.Corrupt, 2)
	names := []string{snap.Corrupt[0].Name, snap.Corrupt[1].Name}
	assert.ElementsMatch(t, []string{"broken", "zero"}, names)
	for _, c := range snap.Corrupt {
		assert.True(t, errors.Is(c, ErrRegistryCorrupt))
	}

	_, _, err = reg.Lookup("broken")
	assert.True(t, errors.Is(err, ErrRegistryCorrupt))
}

func TestFileRegistry_RejectsBadInput(t *testing.T) {
	reg := NewFileRegistry(t.TempDir())

	assert.Error(t, reg.Record(Entry{Name: "../escape", PID: 1}))
	assert.Error(t, reg.Record(Entry{Name: "api", PID: 0}))
	assert.Error(t, reg.Forget(""))
}

func TestFileRegistry_ListMissingDir(t *testing.T) {
	reg := NewFileRegistry(filepath.Join(t.TempDir(), "never-created"))
	snap, err := reg.List()
	require.NoError(t, err)
	assert.Empty(t, snap.Entries)
	assert.Empty(t, snap.Corrupt)
}
