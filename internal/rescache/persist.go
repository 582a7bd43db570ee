package rescache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scout/internal/logging"
	"scout/internal/research"
)

// ErrCorrupt means the persisted cache file could not be decoded.
// Callers log it and start with an empty cache; a broken cache file
// must never take the engine down.
var ErrCorrupt = errors.New("cache file corrupt")

const persistVersion = 1

type persistedEntry struct {
	Key     string           `json:"key"`
	Root    string           `json:"projectRoot,omitempty"`
	Expires time.Time        `json:"expires"`
	Answer  *research.Answer `json:"answer"`
}

type persistedFile struct {
	Version int              `json:"version"`
	Saved   time.Time        `json:"saved"`
	Entries []persistedEntry `json:"entries"`
}

// SaveTo writes every unexpired entry to path as JSON.
func (c *Cache) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	now := time.Now()
	pf := persistedFile{Version: persistVersion, Saved: now}

	c.mu.Lock()
	for key, e := range c.entries {
		if now.After(e.expires) {
			continue
		}
		pf.Entries = append(pf.Entries, persistedEntry{
			Key:     key,
			Root:    e.root,
			Expires: e.expires,
			Answer:  e.answer,
		})
	}
	c.mu.Unlock()

	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}

	logging.Cache("persisted %d entries to %s", len(pf.Entries), path)
	return nil
}

// LoadFrom replaces the cache contents with the entries persisted at
// path, dropping anything already expired. A missing file is not an
// error; an unreadable one is reported as ErrCorrupt.
func (c *Cache) LoadFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var pf persistedFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if pf.Version != persistVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, pf.Version)
	}

	now := time.Now()
	loaded := make(map[string]entry, len(pf.Entries))
	for _, pe := range pf.Entries {
		if pe.Answer == nil || pe.Key == "" || now.After(pe.Expires) {
			continue
		}
		loaded[pe.Key] = entry{answer: pe.Answer, expires: pe.Expires, root: pe.Root}
	}

	c.mu.Lock()
	c.entries = loaded
	c.mu.Unlock()

	logging.Cache("loaded %d entries from %s", len(loaded), path)
	return nil
}
