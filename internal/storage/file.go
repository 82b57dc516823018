package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bivory/grove/internal/core"
)

// FileStore is the crash-safe, file-backed SessionStore: one file per
// session, written via a temp-file-then-rename protocol so readers only
// ever observe a complete JSON document.
type FileStore struct {
	sessionsDir string
}

// NewFileStore creates dir if absent and returns a FileStore rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, core.StorageErr(dir, err)
	}
	return &FileStore{sessionsDir: dir}, nil
}

// DefaultFileStore resolves a sessions directory the way
// original_source's FileSessionStore::new does: prefer $XDG_STATE_HOME,
// then $HOME/.local/state, falling back to /tmp/grove/sessions if neither
// can be resolved. It never panics.
func DefaultFileStore() (*FileStore, error) {
	return NewFileStore(defaultSessionsDir())
}

func defaultSessionsDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "grove", "sessions")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "grove", "sessions")
	}
	return filepath.Join(os.TempDir(), "grove", "sessions")
}

func (f *FileStore) sessionPath(id string) string {
	return filepath.Join(f.sessionsDir, id+".json")
}

func (f *FileStore) tempPath(id string) string {
	return filepath.Join(f.sessionsDir, "."+id+".json.tmp")
}

func (f *FileStore) Get(id string) (*core.SessionState, error) {
	if err := core.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, core.StorageErr(f.sessionPath(id), err)
	}
	var s core.SessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, core.SerdeErr("failed to parse session %s: %v", id, err)
	}
	return &s, nil
}

// Put serializes session to pretty JSON and writes it via the atomic
// temp-file-then-rename protocol: write all bytes to the hidden temp file,
// fsync it, rename over the final path, then best-effort fsync the parent
// directory. A failed rename leaves the prior final file untouched.
func (f *FileStore) Put(session *core.SessionState) error {
	if err := core.ValidateIdentifier(session.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return core.SerdeErr("failed to serialize session %s: %v", session.ID, err)
	}

	tmp := f.tempPath(session.ID)
	final := f.sessionPath(session.ID)

	tmpFile, err := os.Create(tmp)
	if err != nil {
		return core.StorageErr(tmp, err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmp)
		return core.StorageErr(tmp, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmp)
		return core.StorageErr(tmp, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmp)
		return core.StorageErr(tmp, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return core.StorageErr(final, err)
	}

	syncParentDir(f.sessionsDir)
	return nil
}

// syncParentDir best-effort fsyncs the directory so the rename is durable
// against a crash. Failure here is not fatal — the file content itself is
// already safely on disk via tmpFile.Sync().
func syncParentDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}

func (f *FileStore) List(limit int) ([]core.SessionState, error) {
	entries, err := os.ReadDir(f.sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, core.StorageErr(f.sessionsDir, err)
	}

	type withMtime struct {
		session core.SessionState
		mtime   time.Time
	}
	var loaded []withMtime

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || len(name) > 0 && name[0] == '.' {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.sessionsDir, name))
		if err != nil {
			continue
		}
		var s core.SessionState
		if err := json.Unmarshal(data, &s); err != nil {
			continue // tolerate invalid JSON: skip, don't error
		}
		loaded = append(loaded, withMtime{session: s, mtime: info.ModTime()})
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].mtime.After(loaded[j].mtime)
	})

	if limit >= 0 && len(loaded) > limit {
		loaded = loaded[:limit]
	}

	result := make([]core.SessionState, len(loaded))
	for i, l := range loaded {
		result[i] = l.session
	}
	return result, nil
}

func (f *FileStore) Delete(id string) error {
	if err := core.ValidateIdentifier(id); err != nil {
		return err
	}
	if err := os.Remove(f.sessionPath(id)); err != nil && !os.IsNotExist(err) {
		return core.StorageErr(f.sessionPath(id), err)
	}
	os.Remove(f.tempPath(id)) // best-effort cleanup of any stale temp file
	return nil
}
