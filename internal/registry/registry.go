// Package registry persists which process runs each managed service, so that a
// later, separate devstack invocation can find and stop it.
//
// FileRegistry keeps one YAML file per service in a state directory:
//
//	<stateDir>/<service>.yaml
//
//	name: orchestrator
//	pid: 41233
//	port: 7862
//	runId: 3f0c5c8e-...
//	startedAt: 2026-10-19T09:12:44Z
//	command: [python, main.py, --port, "7862"]
//	logFile: /work/.devstack/logs/orchestrator.log
//
// Every write goes to a temporary file that is renamed over the record, so a
// concurrent reader sees either the old or the new record, never a torn one.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"devstack/internal/procs"
	"devstack/internal/utils"
	"devstack/pkg/logging"

	"gopkg.in/yaml.v3"
)

const recordExt = ".yaml"

// ErrRegistryCorrupt marks persisted state that cannot be read back. Callers
// treat it as a warning and fall back to port-based discovery.
var ErrRegistryCorrupt = errors.New("lifecycle registry corrupt")

// Entry is the durable record of one launched service.
type Entry struct {
	Name      string    `yaml:"name"`
	PID       int       `yaml:"pid"`
	Port      int       `yaml:"port"`
	RunID     string    `yaml:"runId,omitempty"`
	StartedAt time.Time `yaml:"startedAt"`
	Command   []string  `yaml:"command,omitempty"`
	LogFile   string    `yaml:"logFile,omitempty"`
}

// Process returns the identity of the recorded process.
func (e Entry) Process() procs.Identity {
	return procs.Identity{PID: e.PID, StartedAt: e.StartedAt, Command: e.Command}
}

// CorruptError describes one unreadable record.
type CorruptError struct {
	Name string
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%s: record %s (%s): %v", ErrRegistryCorrupt, e.Name, e.Path, e.Err)
}

func (e *CorruptError) Unwrap() []error {
	return []error{ErrRegistryCorrupt, e.Err}
}

// Snapshot is the registry content at one point in time.
type Snapshot struct {
	Entries []Entry
	Corrupt []*CorruptError
}

// Registry maps service names to their running processes.
type Registry interface {
	// Record stores entry, replacing any previous record for the same name.
	Record(entry Entry) error
	// Lookup returns the record for name; found is false when there is none.
	Lookup(name string) (entry Entry, found bool, err error)
	// Forget removes the record for name. Forgetting an absent name is not an error.
	Forget(name string) error
	// List returns every readable record plus the names of unreadable ones.
	List() (Snapshot, error)
}

// FileRegistry stores records as files in a directory.
type FileRegistry struct {
	dir string
}

// NewFileRegistry returns a registry rooted at dir. The directory is created on first write.
func NewFileRegistry(dir string) *FileRegistry {
	return &FileRegistry{dir: dir}
}

// Dir returns the state directory.
func (r *FileRegistry) Dir() string {
	return r.dir
}

func (r *FileRegistry) path(name string) string {
	return filepath.Join(r.dir, name+recordExt)
}

// Record writes entry atomically. Last writer wins.
func (r *FileRegistry) Record(entry Entry) error {
	if err := validateName(entry.Name); err != nil {
		return err
	}
	if entry.PID <= 0 {
		return fmt.Errorf("record %s: invalid pid %d", entry.Name, entry.PID)
	}

	data, err := yaml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("record %s: %w", entry.Name, err)
	}
	if err := utils.WriteFileAtomic(r.path(entry.Name), data, 0644); err != nil {
		return fmt.Errorf("record %s: %w", entry.Name, err)
	}
	logging.Debug("Registry", "Recorded %s (PID %d, port %d)", entry.Name, entry.PID, entry.Port)
	return nil
}

// Lookup reads the record for name.
func (r *FileRegistry) Lookup(name string) (Entry, bool, error) {
	if err := validateName(name); err != nil {
		return Entry{}, false, err
	}
	entry, err := r.read(name, r.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Forget deletes the record for name.
func (r *FileRegistry) Forget(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(r.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("forget %s: %w", name, err)
	}
	logging.Debug("Registry", "Forgot %s", name)
	return nil
}

// List reads every record in the state directory. A missing directory is an
// empty registry. Leftover temporary files are ignored.
func (r *FileRegistry) List() (Snapshot, error) {
	dirEntries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("%w: read %s: %v", ErrRegistryCorrupt, r.dir, err)
	}

	var snap Snapshot
	for _, de := range dirEntries {
		// Hidden files are in-flight writes.
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") || !strings.HasSuffix(de.Name(), recordExt) {
			continue
		}
		name := strings.TrimSuffix(de.Name(), recordExt)
		entry, err := r.read(name, filepath.Join(r.dir, de.Name()))
		if err != nil {
			var corrupt *CorruptError
			if errors.As(err, &corrupt) {
				snap.Corrupt = append(snap.Corrupt, corrupt)
				continue
			}
			// Removed between ReadDir and read.
			if os.IsNotExist(err) {
				continue
			}
			snap.Corrupt = append(snap.Corrupt, &CorruptError{Name: name, Path: filepath.Join(r.dir, de.Name()), Err: err})
			continue
		}
		snap.Entries = append(snap.Entries, entry)
	}

	sort.Slice(snap.Entries, func(i, j int) bool { return snap.Entries[i].Name < snap.Entries[j].Name })
	return snap, nil
}

func (r *FileRegistry) read(name, path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, err
		}
		return Entry{}, &CorruptError{Name: name, Path: path, Err: err}
	}

	var entry Entry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return Entry{}, &CorruptError{Name: name, Path: path, Err: err}
	}
	if entry.Name != name {
		return Entry{}, &CorruptError{Name: name, Path: path, Err: fmt.Errorf("record names %q", entry.Name)}
	}
	if entry.PID <= 0 {
		return Entry{}, &CorruptError{Name: name, Path: path, Err: fmt.Errorf("invalid pid %d", entry.PID)}
	}
	return entry, nil
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid service name %q", name)
	}
	return nil
}
