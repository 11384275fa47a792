// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

// Package assets stores per-session icon art on disk so it can be
// streamed to the deck on every hello without re-extracting it.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const metaSuffix = ".meta.cbor"

// Meta is the sidecar record stored next to each icon file.
type Meta struct {
	Session  string    `cbor:"1,keyasint"`
	MIME     string    `cbor:"2,keyasint"`
	Size     int       `cbor:"3,keyasint"`
	StoredAt time.Time `cbor:"4,keyasint"`
}

// DirStore keeps one icon file plus a CBOR metadata sidecar per audio
// session, keyed by a sanitized session name.
type DirStore struct {
	dir string
}

// NewDirStore opens (creating if needed) the store rooted at dir.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

// Put stores an icon for the session, replacing any previous one.
func (s *DirStore) Put(session, mime string, data []byte) error {
	key := sanitize(session)
	if key == "" {
		return fmt.Errorf("unusable session name %q", session)
	}

	meta, err := cbor.Marshal(Meta{
		Session:  session,
		MIME:     mime,
		Size:     len(data),
		StoredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode asset metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write icon for %s: %w", session, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, key+metaSuffix), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata for %s: %w", session, err)
	}
	return nil
}

// Icon returns the stored icon for the session.
func (s *DirStore) Icon(session string) (string, []byte, error) {
	key := sanitize(session)

	raw, err := os.ReadFile(filepath.Join(s.dir, key+metaSuffix))
	if err != nil {
		return "", nil, fmt.Errorf("no icon for %s: %w", session, err)
	}
	var meta Meta
	if err := cbor.Unmarshal(raw, &meta); err != nil {
		return "", nil, fmt.Errorf("corrupt metadata for %s: %w", session, err)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return "", nil, fmt.Errorf("missing icon file for %s: %w", session, err)
	}
	if len(data) != meta.Size {
		return "", nil, fmt.Errorf("icon for %s is %d bytes, metadata says %d", session, len(data), meta.Size)
	}
	return meta.MIME, data, nil
}

// Remove deletes the session's icon and metadata.
func (s *DirStore) Remove(session string) error {
	key := sanitize(session)
	err1 := os.Remove(filepath.Join(s.dir, key))
	err2 := os.Remove(filepath.Join(s.dir, key+metaSuffix))
	if err1 != nil && !os.IsNotExist(err1) {
		return err1
	}
	if err2 != nil && !os.IsNotExist(err2) {
		return err2
	}
	return nil
}

// List returns metadata for every stored icon, sorted by session name.
func (s *DirStore) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset directory: %w", err)
	}

	var out []Meta
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var meta Meta
		if err := cbor.Unmarshal(raw, &meta); err != nil {
			continue
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Session < out[j].Session })
	return out, nil
}

// sanitize reduces a session name to a safe filename: lowercase ASCII
// letters, digits, dot, dash, underscore.
func sanitize(session string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(session) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
