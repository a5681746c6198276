// Package journal keeps a local record of every timesheet created in Kimai,
// so a write-back that failed after the create can be repaired later.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const fileName = "journal.json"

// Entry links a Timewarrior interval to the Kimai record created for it.
type Entry struct {
	SessionID string    `json:"session_id"`
	RecordID  int       `json:"record_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal maps interval keys (start times) to entries.
type Journal struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	mu      sync.RWMutex
	dirty   bool
}

// DefaultPath returns the journal location inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, fileName)
}

// Open loads the journal at path, starting empty if it does not exist.
func Open(path string) (*Journal, error) {
	j := &Journal{
		Entries: make(map[string]Entry),
		Path:    path,
	}

	if _, err := os.Stat(path); err == nil {
		if err := j.Load(); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func (j *Journal) Load() error {
	f, err := os.Open(j.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := json.NewDecoder(f).Decode(j); err != nil {
		return err
	}
	if j.Entries == nil {
		j.Entries = make(map[string]Entry)
	}
	return nil
}

func (j *Journal) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.dirty {
		return nil
	}

	dir := filepath.Dir(j.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, fileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(j); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), j.Path); err != nil {
		return err
	}
	j.dirty = false
	return nil
}

// Record stores an entry and flushes the journal to disk.
func (j *Journal) Record(key string, e Entry) error {
	j.mu.Lock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	j.Entries[key] = e
	j.dirty = true
	j.mu.Unlock()
	return j.Save()
}

func (j *Journal) Get(key string) (Entry, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	e, ok := j.Entries[key]
	return e, ok
}

func (j *Journal) Remove(key string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, exists := j.Entries[key]; exists {
		delete(j.Entries, key)
		j.dirty = true
	}
}

// List returns all entries ordered by start time.
func (j *Journal) List() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	entries := make([]Entry, 0, len(j.Entries))
	for _, e := range j.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Start.Before(entries[b].Start)
	})
	return entries
}
