package pack

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// mediaDir is the container directory holding one raw blob per unique hash.
const mediaDir = "media/"

// mediaPath returns the container entry name for a content hash.
func mediaPath(hash string) string {
	return mediaDir + hash
}

// contentStore is the deduplicated, content-addressed blob store inside one
// container. Blobs added since the last save are held in memory; committed
// blobs are read fresh from the container on every Get.
type contentStore struct {
	container *Container
	entries   map[string]*MediaEntry
	pending   map[string][]byte
}

func newContentStore(c *Container) *contentStore {
	return &contentStore{
		container: c,
		entries:   make(map[string]*MediaEntry),
		pending:   make(map[string][]byte),
	}
}

// put stores data under its SHA-256 hash. Identical bytes always map to the
// same key; if the hash is already known the call is an idempotent no-op and
// no second copy is ever created.
func (s *contentStore) put(data []byte) string {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if _, ok := s.entries[hash]; ok {
		return hash
	}
	s.entries[hash] = &MediaEntry{
		Hash: hash,
		Mime: mimetype.Detect(data).String(),
	}
	s.pending[hash] = append([]byte(nil), data...)
	return hash
}

// get returns the raw bytes for a hash. A hash with no manifest entry is a
// corruption surfaced as ErrMissingMedia, never silently empty data.
func (s *contentStore) get(hash string) ([]byte, error) {
	if _, ok := s.entries[hash]; !ok {
		return nil, fmt.Errorf("%w: no manifest entry for hash %s", ErrMissingMedia, hash)
	}
	if data, ok := s.pending[hash]; ok {
		return append([]byte(nil), data...), nil
	}
	data, err := s.container.ReadEntry(mediaPath(hash))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingMedia, err)
	}
	return data, nil
}

// entry returns the manifest entry for a hash.
func (s *contentStore) entry(hash string) (*MediaEntry, bool) {
	e, ok := s.entries[hash]
	return e, ok
}

// manifestEntries returns all entries for serialization into the manifest.
func (s *contentStore) manifestEntries() []MediaEntry {
	out := make([]MediaEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// load replaces the store's entries with the manifest's on open.
func (s *contentStore) load(entries []MediaEntry) {
	s.entries = make(map[string]*MediaEntry, len(entries))
	for i := range entries {
		e := entries[i]
		s.entries[e.Hash] = &e
	}
}

// writeAll emits every blob into the pending archive: in-memory blobs are
// written fresh, committed ones are streamed forward unchanged.
func (s *contentStore) writeAll() error {
	for hash := range s.entries {
		if data, ok := s.pending[hash]; ok {
			if err := s.container.WriteEntry(mediaPath(hash), data); err != nil {
				return err
			}
			continue
		}
		if err := s.container.CopyEntry(mediaPath(hash)); err != nil {
			return err
		}
	}
	return nil
}

// committed marks every pending blob as durable after a successful commit.
func (s *contentStore) committed() {
	s.pending = make(map[string][]byte)
}
