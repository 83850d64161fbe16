// Package pack implements the evidence package storage engine: the
// ZIP-structured container format, its entity model, the transactional
// read/write layer over the container, and the cross-process locking that
// makes concurrent access safe.
package pack

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	manifestEntry = "manifest.json"
	caseDir       = "testcases/"
	caseExt       = ".json"
)

func caseEntry(id string) string {
	return caseDir + id + caseExt
}

// Package is the facade over one open container: it binds a lock
// coordinator, a container transport, and the in-memory entity model, and is
// the only durable-state contract consumers see. It is not safe for
// concurrent use from multiple goroutines; the lock guarantees cross-process
// exclusivity only, at whole-package granularity.
type Package struct {
	path      string
	lock      *Lock
	container *Container
	store     *contentStore

	title       string
	description string
	authors     []Author
	fields      map[string]FieldDef
	order       []string
	cases       map[string]*TestCase
	extra       rawBag

	dirty bool
}

// Create produces an empty package at path, persists it, then reopens it so
// create and open share one code path for binding lock and transport. It
// fails if a file already exists at path.
func Create(path, title string, authors []Author, logger *log.Logger) (*Package, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrPackageExists, path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	m := manifest{Title: title, Authors: authors}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	c := NewContainer(path)
	if err := c.BeginWrite(); err != nil {
		return nil, err
	}
	if err := c.WriteEntry(manifestEntry, data); err != nil {
		c.Abort()
		return nil, err
	}
	if err := c.Commit(); err != nil {
		return nil, err
	}

	return Open(path, logger)
}

// Open binds the lock, opens the container for reading, and deserializes the
// manifest and every test-case document. An absent or unparsable manifest is
// a corruption, not a default.
func Open(path string, logger *log.Logger) (*Package, error) {
	lock := NewLock(path, logger)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}

	c := NewContainer(path)
	if err := c.OpenReader(); err != nil {
		lock.Release()
		return nil, err
	}

	p, err := load(path, lock, c)
	if err != nil {
		c.Close()
		lock.Release()
		return nil, err
	}
	return p, nil
}

// load deserializes the entity model out of an open container.
func load(path string, lock *Lock, c *Container) (*Package, error) {
	data, err := c.ReadEntry(manifestEntry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPackage, err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: invalid manifest: %v", ErrCorruptPackage, err)
	}

	p := &Package{
		path:        path,
		lock:        lock,
		container:   c,
		store:       newContentStore(c),
		title:       m.Title,
		description: m.Description,
		authors:     m.Authors,
		fields:      m.Fields,
		order:       m.CaseOrder,
		cases:       make(map[string]*TestCase),
		extra:       m.extra,
	}
	if p.fields == nil {
		p.fields = make(map[string]FieldDef)
	}
	primaries := 0
	for _, def := range p.fields {
		if def.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		return nil, fmt.Errorf("%w: %d custom fields are marked primary", ErrCorruptPackage, primaries)
	}
	p.store.load(m.Media)

	for _, name := range c.EntryNames() {
		if !strings.HasPrefix(name, caseDir) || !strings.HasSuffix(name, caseExt) {
			continue
		}
		caseData, err := c.ReadEntry(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPackage, err)
		}
		var tc TestCase
		if err := json.Unmarshal(caseData, &tc); err != nil {
			return nil, fmt.Errorf("%w: invalid test case document %s: %v", ErrCorruptPackage, name, err)
		}
		p.cases[tc.ID] = &tc
	}

	if !isPermutation(p.order, p.cases) {
		return nil, fmt.Errorf("%w: case order does not match stored test cases", ErrCorruptPackage)
	}
	return p, nil
}

// Close releases the lock and the container's read handle. The in-memory
// model is discarded; the on-disk container is the only durable state.
func (p *Package) Close() error {
	p.lock.Release()
	return p.container.Close()
}

// Save verifies the exclusive lock, writes the full set of container entries
// (manifest, every test case, every media blob, changed or not) into a new
// temporary container, and commits it atomically. On failure the prior
// on-disk container is guaranteed unchanged.
func (p *Package) Save() error {
	if err := p.lock.Verify(); err != nil {
		return err
	}
	// A prior save may have committed but failed to reopen its snapshot;
	// recover the read handle so committed blobs can be repacked from it.
	if err := p.container.OpenReader(); err != nil {
		return err
	}
	if err := p.container.BeginWrite(); err != nil {
		return err
	}
	if err := p.writeAll(); err != nil {
		p.container.Abort()
		return err
	}
	if err := p.container.Commit(); err != nil {
		return err
	}
	p.store.committed()
	p.dirty = false
	if err := p.container.OpenReader(); err != nil {
		return fmt.Errorf("%w: %v", ErrSavedNotReopened, err)
	}
	return nil
}

func (p *Package) writeAll() error {
	m := manifest{
		Title:       p.title,
		Description: p.description,
		Authors:     p.authors,
		Fields:      p.fields,
		CaseOrder:   p.order,
		Media:       p.store.manifestEntries(),
		extra:       p.extra,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := p.container.WriteEntry(manifestEntry, data); err != nil {
		return err
	}

	for _, id := range p.order {
		tc := p.cases[id]
		caseData, err := json.MarshalIndent(tc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal test case %s: %w", id, err)
		}
		if err := p.container.WriteEntry(caseEntry(id), caseData); err != nil {
			return err
		}
	}

	return p.store.writeAll()
}

// Path returns the container path.
func (p *Package) Path() string { return p.path }

// Dirty reports whether the in-memory model has unsaved mutations.
func (p *Package) Dirty() bool { return p.dirty }

// Title returns the package title.
func (p *Package) Title() string { return p.title }

// SetTitle updates the package title.
func (p *Package) SetTitle(title string) {
	if p.title != title {
		p.title = title
		p.dirty = true
	}
}

// Description returns the optional package description.
func (p *Package) Description() string { return p.description }

// SetDescription updates the package description.
func (p *Package) SetDescription(desc string) {
	if p.description != desc {
		p.description = desc
		p.dirty = true
	}
}

// Authors returns a copy of the ordered author list.
func (p *Package) Authors() []Author {
	return append([]Author(nil), p.authors...)
}

// SetAuthors replaces the ordered author list.
func (p *Package) SetAuthors(authors []Author) {
	p.authors = append([]Author(nil), authors...)
	p.dirty = true
}

// CustomFields returns a copy of the custom field definitions keyed by id.
func (p *Package) CustomFields() map[string]FieldDef {
	out := make(map[string]FieldDef, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}
	return out
}

// SetCustomField adds or replaces a custom field definition. Marking a
// second definition primary is rejected with ErrDuplicatePrimary.
func (p *Package) SetCustomField(id string, def FieldDef) error {
	if def.Primary {
		for otherID, other := range p.fields {
			if otherID != id && other.Primary {
				return fmt.Errorf("%w: %s", ErrDuplicatePrimary, otherID)
			}
		}
	}
	p.fields[id] = def
	p.dirty = true
	return nil
}

// RemoveCustomField deletes a custom field definition. Values stored under
// the id in individual test cases are left alone.
func (p *Package) RemoveCustomField(id string) {
	if _, ok := p.fields[id]; ok {
		delete(p.fields, id)
		p.dirty = true
	}
}

// CreateTestCase assigns a fresh UUID and appends the case to the document
// order. timeText may be empty; if given, it must parse as an execution
// timestamp.
func (p *Package) CreateTestCase(title, timeText string) (*TestCase, error) {
	var executedAt time.Time
	if timeText != "" {
		var err error
		executedAt, err = parseExecutionTime(timeText)
		if err != nil {
			return nil, err
		}
	}

	tc := &TestCase{
		ID:         uuid.NewString(),
		Title:      title,
		ExecutedAt: executedAt,
		Fields:     make(map[string]string),
	}
	p.cases[tc.ID] = tc
	p.order = append(p.order, tc.ID)
	p.dirty = true
	return tc, nil
}

// DuplicateTestCase deep-copies a test case under a new identifier, inserted
// directly after the original in document order. Media references are copied
// by hash; duplication never inflates the content store.
func (p *Package) DuplicateTestCase(id string) (*TestCase, error) {
	tc, ok := p.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}

	dup := tc.clone()
	dup.ID = uuid.NewString()
	p.cases[dup.ID] = dup

	order := make([]string, 0, len(p.order)+1)
	for _, existing := range p.order {
		order = append(order, existing)
		if existing == id {
			order = append(order, dup.ID)
		}
	}
	p.order = order
	p.dirty = true
	return dup, nil
}

// DeleteTestCase removes a test case from the package and the document
// order.
func (p *Package) DeleteTestCase(id string) error {
	if _, ok := p.cases[id]; !ok {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	delete(p.cases, id)
	order := p.order[:0]
	for _, existing := range p.order {
		if existing != id {
			order = append(order, existing)
		}
	}
	p.order = order
	p.dirty = true
	return nil
}

// SetCaseOrder replaces the canonical document order. ids must be exactly a
// permutation of the existing identifiers; otherwise the previous order is
// left untouched.
func (p *Package) SetCaseOrder(ids []string) error {
	if !isPermutation(ids, p.cases) {
		return ErrBadCaseOrder
	}
	p.order = append([]string(nil), ids...)
	p.dirty = true
	return nil
}

// Case returns a test case by identifier.
func (p *Package) Case(id string) (*TestCase, error) {
	tc, ok := p.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return tc, nil
}

// Cases returns the test cases in canonical document order.
func (p *Package) Cases() []*TestCase {
	out := make([]*TestCase, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.cases[id])
	}
	return out
}

// CaseOrder returns a copy of the canonical document order.
func (p *Package) CaseOrder() []string {
	return append([]string(nil), p.order...)
}

// ResolveCaseReference interprets text either as a 1-based position in
// execution-time-sorted order or as a case-insensitive substring matching
// exactly one title. Ambiguous or out-of-range input yields ErrNoMatch,
// never a best guess.
func (p *Package) ResolveCaseReference(text string) (*TestCase, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoMatch
	}

	if n, err := strconv.Atoi(text); err == nil {
		sorted := p.CasesByExecutionTime()
		if n < 1 || n > len(sorted) {
			return nil, fmt.Errorf("%w: position %d out of range", ErrNoMatch, n)
		}
		return sorted[n-1], nil
	}

	needle := strings.ToLower(text)
	var matches []*TestCase
	for _, tc := range p.Cases() {
		if strings.Contains(strings.ToLower(tc.Title), needle) {
			matches = append(matches, tc)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("%w: no title contains %q", ErrNoMatch, text)
	default:
		return nil, fmt.Errorf("%w: %q matches %d titles", ErrNoMatch, text, len(matches))
	}
}

// CasesByExecutionTime returns the test cases sorted by execution timestamp,
// unexecuted cases last, ties broken by document order. Positional case
// references count in this order.
func (p *Package) CasesByExecutionTime() []*TestCase {
	sorted := p.Cases()
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].ExecutedAt, sorted[j].ExecutedAt
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.Before(b)
		}
	})
	return sorted
}

// AddMedia stores bytes in the content store and returns their content hash.
// Adding bytes whose hash already exists is an idempotent no-op.
func (p *Package) AddMedia(data []byte) string {
	before := len(p.store.entries)
	hash := p.store.put(data)
	if len(p.store.entries) != before {
		p.dirty = true
	}
	return hash
}

// Media returns the raw bytes for a content hash, or ErrMissingMedia.
func (p *Package) Media(hash string) ([]byte, error) {
	return p.store.get(hash)
}

// MediaEntries returns the media manifest entries.
func (p *Package) MediaEntries() []MediaEntry {
	return p.store.manifestEntries()
}

// AddEvidence appends evidence to a test case. Evidence referencing a media
// hash with no content-store entry is rejected with ErrMissingMedia rather
// than stored as a dangling reference.
func (p *Package) AddEvidence(caseID string, ev Evidence) error {
	tc, ok := p.cases[caseID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	if hash, ok := ev.Value.MediaHash(); ok {
		if _, ok := p.store.entry(hash); !ok {
			return fmt.Errorf("%w: no manifest entry for hash %s", ErrMissingMedia, hash)
		}
	}
	tc.Evidence = append(tc.Evidence, ev)
	p.dirty = true
	return nil
}

// RemoveEvidence deletes evidence by its position within a test case.
func (p *Package) RemoveEvidence(caseID string, index int) error {
	tc, ok := p.cases[caseID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	if index < 0 || index >= len(tc.Evidence) {
		return fmt.Errorf("evidence index %d out of range for test case %s", index, caseID)
	}
	tc.Evidence = append(tc.Evidence[:index], tc.Evidence[index+1:]...)
	p.dirty = true
	return nil
}

// SetEvidenceCaption updates the caption of evidence by position.
func (p *Package) SetEvidenceCaption(caseID string, index int, caption string) error {
	tc, ok := p.cases[caseID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	if index < 0 || index >= len(tc.Evidence) {
		return fmt.Errorf("evidence index %d out of range for test case %s", index, caseID)
	}
	tc.Evidence[index].Caption = caption
	p.dirty = true
	return nil
}

// SetCaseStatus updates a test case's pass/fail/unset status.
func (p *Package) SetCaseStatus(caseID string, status Status) error {
	tc, ok := p.cases[caseID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	tc.Status = status
	p.dirty = true
	return nil
}

// SetCaseField sets a custom field value on a test case.
func (p *Package) SetCaseField(caseID, fieldID, value string) error {
	tc, ok := p.cases[caseID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	if tc.Fields == nil {
		tc.Fields = make(map[string]string)
	}
	tc.Fields[fieldID] = value
	p.dirty = true
	return nil
}

// AttachFile stores data in the content store and appends File evidence
// referencing it, remembering the original filename.
func (p *Package) AttachFile(caseID, filename string, data []byte) error {
	hash := p.AddMedia(data)
	return p.AddEvidence(caseID, NewFileEvidence(hash, filename))
}

// AttachImage stores data in the content store and appends Image evidence
// referencing it.
func (p *Package) AttachImage(caseID string, data []byte) error {
	hash := p.AddMedia(data)
	return p.AddEvidence(caseID, NewImageEvidence(hash))
}

// EvidenceData resolves an evidence value to raw bytes. Media references go
// through the fallible content-store accessor; a dangling hash surfaces as
// ErrMissingMedia.
func (p *Package) EvidenceData(ev Evidence) ([]byte, error) {
	if text, ok := ev.Value.Text(); ok {
		return []byte(text), nil
	}
	if b, ok := ev.Value.Bytes(); ok {
		return b, nil
	}
	hash, _ := ev.Value.MediaHash()
	return p.store.get(hash)
}

// isPermutation reports whether ids is exactly a permutation of the case
// map's keys: same length, no duplicates, every id present.
func isPermutation(ids []string, cases map[string]*TestCase) bool {
	if len(ids) != len(cases) {
		return false
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return false
		}
		if _, ok := cases[id]; !ok {
			return false
		}
		seen[id] = true
	}
	return true
}
