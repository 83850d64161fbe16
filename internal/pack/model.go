package pack

import (
	"encoding/json"
	"fmt"
	"sort"
)

// rawBag holds top-level JSON fields the current engine version does not
// recognize. Values are kept as raw bytes and merged back verbatim on
// serialize, so documents written by newer engine versions survive a
// load/save cycle. Fields from a future schema are never modeled
// structurally.
type rawBag map[string]json.RawMessage

// clone copies the bag so two documents never share raw values.
func (b rawBag) clone() rawBag {
	if b == nil {
		return nil
	}
	dup := make(rawBag, len(b))
	for k, v := range b {
		dup[k] = append(json.RawMessage(nil), v...)
	}
	return dup
}

// splitUnknown unmarshals data into known and returns every top-level field
// not listed in knownKeys as a raw bag.
func splitUnknown(data []byte, known any, knownKeys ...string) (rawBag, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}
	all := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range knownKeys {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return rawBag(all), nil
}

// mergeUnknown marshals known and merges the bag's fields back in. Known
// fields always win over a stale bag entry of the same name.
func mergeUnknown(known any, extra rawBag) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Author identifies a package author. Identity is structural: two authors
// are equal iff they share name and email.
type Author struct {
	Name  string
	Email string

	extra rawBag
}

type authorDoc struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Equal reports structural equality.
func (a Author) Equal(b Author) bool {
	return a.Name == b.Name && a.Email == b.Email
}

// String renders the author as "Name <email>" or just the name.
func (a Author) String() string {
	if a.Email == "" {
		return a.Name
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// MarshalJSON implements json.Marshaler.
func (a Author) MarshalJSON() ([]byte, error) {
	return mergeUnknown(authorDoc{Name: a.Name, Email: a.Email}, a.extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Author) UnmarshalJSON(data []byte) error {
	var doc authorDoc
	extra, err := splitUnknown(data, &doc, "name", "email")
	if err != nil {
		return err
	}
	a.Name = doc.Name
	a.Email = doc.Email
	a.extra = extra
	return nil
}

// FieldDef defines one custom test-case field. At most one definition in a
// package may be marked primary.
type FieldDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
}

// MediaEntry is one media manifest record: a content hash and the MIME type
// sniffed from the bytes. The raw bytes live in the container under
// media/<hash>.
type MediaEntry struct {
	Hash string
	Mime string

	extra rawBag
}

type mediaEntryDoc struct {
	Hash string `json:"hash"`
	Mime string `json:"mime"`
}

// MarshalJSON implements json.Marshaler.
func (m MediaEntry) MarshalJSON() ([]byte, error) {
	return mergeUnknown(mediaEntryDoc{Hash: m.Hash, Mime: m.Mime}, m.extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MediaEntry) UnmarshalJSON(data []byte) error {
	var doc mediaEntryDoc
	extra, err := splitUnknown(data, &doc, "hash", "mime")
	if err != nil {
		return err
	}
	m.Hash = doc.Hash
	m.Mime = doc.Mime
	m.extra = extra
	return nil
}

// manifest is the package-level document stored as manifest.json.
type manifest struct {
	Title       string
	Description string
	Authors     []Author
	Fields      map[string]FieldDef
	CaseOrder   []string
	Media       []MediaEntry

	extra rawBag
}

type manifestDoc struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Authors     []Author            `json:"authors"`
	Fields      map[string]FieldDef `json:"customFields,omitempty"`
	CaseOrder   []string            `json:"caseOrder"`
	Media       []MediaEntry        `json:"media"`
}

func (m manifest) MarshalJSON() ([]byte, error) {
	doc := manifestDoc{
		Title:       m.Title,
		Description: m.Description,
		Authors:     m.Authors,
		Fields:      m.Fields,
		CaseOrder:   m.CaseOrder,
		Media:       m.Media,
	}
	if doc.Authors == nil {
		doc.Authors = []Author{}
	}
	if doc.CaseOrder == nil {
		doc.CaseOrder = []string{}
	}
	if doc.Media == nil {
		doc.Media = []MediaEntry{}
	}
	// Stable blob order keeps unchanged saves byte-comparable.
	sort.Slice(doc.Media, func(i, j int) bool { return doc.Media[i].Hash < doc.Media[j].Hash })
	return mergeUnknown(doc, m.extra)
}

func (m *manifest) UnmarshalJSON(data []byte) error {
	var doc manifestDoc
	extra, err := splitUnknown(data, &doc,
		"title", "description", "authors", "customFields", "caseOrder", "media")
	if err != nil {
		return err
	}
	m.Title = doc.Title
	m.Description = doc.Description
	m.Authors = doc.Authors
	m.Fields = doc.Fields
	m.CaseOrder = doc.CaseOrder
	m.Media = doc.Media
	m.extra = extra
	return nil
}
