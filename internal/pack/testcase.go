package pack

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Test-case document schema markers. Version 1 documents used a "name" field
// for the identifier; loaders accept it and rewrite the marker to the current
// version on the next save.
const (
	caseSchemaV1      = "evipack.testcase.v1"
	caseSchemaCurrent = "evipack.testcase.v2"
)

// Status is a test case's pass/fail/unset outcome.
type Status string

const (
	StatusUnset  Status = ""
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// EvidenceKind tags what an evidence item records.
type EvidenceKind string

const (
	EvidenceText     EvidenceKind = "text"
	EvidenceRichText EvidenceKind = "richtext"
	EvidenceImage    EvidenceKind = "image"
	EvidenceFile     EvidenceKind = "file"
	EvidenceHTTP     EvidenceKind = "http"
)

// valueForm discriminates the payload held by an EvidenceValue.
type valueForm int

const (
	valueText valueForm = iota
	valueBytes
	valueMedia
)

// EvidenceValue is an evidence payload: inline text, inline bytes, or a
// reference into the content store by hash. The wire form is a compact
// prefixed string ("plain:", "base64:", "media:").
type EvidenceValue struct {
	form  valueForm
	text  string
	bytes []byte
	hash  string
}

// TextValue wraps inline text.
func TextValue(s string) EvidenceValue {
	return EvidenceValue{form: valueText, text: s}
}

// BytesValue wraps inline arbitrary bytes.
func BytesValue(b []byte) EvidenceValue {
	return EvidenceValue{form: valueBytes, bytes: append([]byte(nil), b...)}
}

// MediaValue wraps a reference to a content-store blob by hash.
func MediaValue(hash string) EvidenceValue {
	return EvidenceValue{form: valueMedia, hash: hash}
}

// Text returns the inline text payload, if this value holds one.
func (v EvidenceValue) Text() (string, bool) {
	return v.text, v.form == valueText
}

// Bytes returns the inline byte payload, if this value holds one.
func (v EvidenceValue) Bytes() ([]byte, bool) {
	if v.form != valueBytes {
		return nil, false
	}
	return append([]byte(nil), v.bytes...), true
}

// MediaHash returns the referenced content hash, if this value holds one.
func (v EvidenceValue) MediaHash() (string, bool) {
	return v.hash, v.form == valueMedia
}

// encode renders the compact wire form.
func (v EvidenceValue) encode() string {
	switch v.form {
	case valueBytes:
		return "base64:" + base64.StdEncoding.EncodeToString(v.bytes)
	case valueMedia:
		return "media:" + v.hash
	default:
		return "plain:" + v.text
	}
}

// decodeEvidenceValue dispatches on the prefix before the first colon.
func decodeEvidenceValue(s string) (EvidenceValue, error) {
	prefix, rest, ok := strings.Cut(s, ":")
	if !ok {
		return EvidenceValue{}, fmt.Errorf("evidence value %q has no prefix", s)
	}
	switch prefix {
	case "plain":
		return TextValue(rest), nil
	case "base64":
		b, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return EvidenceValue{}, fmt.Errorf("failed to decode base64 evidence value: %w", err)
		}
		return EvidenceValue{form: valueBytes, bytes: b}, nil
	case "media":
		return MediaValue(rest), nil
	default:
		return EvidenceValue{}, fmt.Errorf("unrecognized evidence value prefix %q", prefix)
	}
}

// Evidence is one recorded artifact inside a test case. Identity is purely
// positional; evidence has no id of its own. Filename is meaningful only for
// the File kind.
type Evidence struct {
	Kind     EvidenceKind
	Value    EvidenceValue
	Caption  string
	Filename string

	extra rawBag
}

type evidenceDoc struct {
	Kind     EvidenceKind `json:"kind"`
	Value    string       `json:"value"`
	Caption  string       `json:"caption,omitempty"`
	Filename string       `json:"filename,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Evidence) MarshalJSON() ([]byte, error) {
	doc := evidenceDoc{
		Kind:     e.Kind,
		Value:    e.Value.encode(),
		Caption:  e.Caption,
		Filename: e.Filename,
	}
	return mergeUnknown(doc, e.extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Evidence) UnmarshalJSON(data []byte) error {
	var doc evidenceDoc
	extra, err := splitUnknown(data, &doc, "kind", "value", "caption", "filename")
	if err != nil {
		return err
	}
	value, err := decodeEvidenceValue(doc.Value)
	if err != nil {
		return err
	}
	e.Kind = doc.Kind
	e.Value = value
	e.Caption = doc.Caption
	e.Filename = doc.Filename
	e.extra = extra
	return nil
}

// NewTextEvidence records inline plain text.
func NewTextEvidence(text string) Evidence {
	return Evidence{Kind: EvidenceText, Value: TextValue(text)}
}

// NewRichTextEvidence records inline rich-text markup. The markup is opaque
// to the engine.
func NewRichTextEvidence(markup string) Evidence {
	return Evidence{Kind: EvidenceRichText, Value: TextValue(markup)}
}

// NewImageEvidence references image bytes already in the content store.
func NewImageEvidence(hash string) Evidence {
	return Evidence{Kind: EvidenceImage, Value: MediaValue(hash)}
}

// NewFileEvidence references file bytes already in the content store,
// remembering the original filename.
func NewFileEvidence(hash, filename string) Evidence {
	return Evidence{Kind: EvidenceFile, Value: MediaValue(hash), Filename: filename}
}

// NewHTTPEvidence records a captured HTTP exchange as inline text.
func NewHTTPEvidence(exchange string) Evidence {
	return Evidence{Kind: EvidenceHTTP, Value: TextValue(exchange)}
}

// TestCase is one titled, timestamped unit of recorded evidence. The
// identifier is assigned once at creation and never reused. Each case is
// persisted as its own container entry so updating one does not rewrite the
// manifest region.
type TestCase struct {
	ID         string
	Title      string
	ExecutedAt time.Time // zero means not executed
	Status     Status
	Fields     map[string]string
	Evidence   []Evidence

	extra rawBag
}

type caseDoc struct {
	Schema     string            `json:"schema"`
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name,omitempty"` // schema v1 alias of id
	Title      string            `json:"title"`
	ExecutedAt string            `json:"executedAt,omitempty"`
	Status     Status            `json:"status,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Evidence   []Evidence        `json:"evidence"`
}

// MarshalJSON implements json.Marshaler. The schema marker is always written
// as the current version.
func (tc TestCase) MarshalJSON() ([]byte, error) {
	doc := caseDoc{
		Schema:   caseSchemaCurrent,
		ID:       tc.ID,
		Title:    tc.Title,
		Status:   tc.Status,
		Fields:   tc.Fields,
		Evidence: tc.Evidence,
	}
	if !tc.ExecutedAt.IsZero() {
		doc.ExecutedAt = tc.ExecutedAt.Format(time.RFC3339)
	}
	if doc.Evidence == nil {
		doc.Evidence = []Evidence{}
	}
	return mergeUnknown(doc, tc.extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	var doc caseDoc
	extra, err := splitUnknown(data, &doc,
		"schema", "id", "name", "title", "executedAt", "status", "fields", "evidence")
	if err != nil {
		return err
	}

	id := doc.ID
	switch doc.Schema {
	case caseSchemaCurrent:
	case caseSchemaV1:
		if id == "" {
			id = doc.Name
		}
	default:
		return fmt.Errorf("unsupported test case schema %q", doc.Schema)
	}
	if id == "" {
		return fmt.Errorf("test case document has no identifier")
	}

	var executedAt time.Time
	if doc.ExecutedAt != "" {
		executedAt, err = time.Parse(time.RFC3339, doc.ExecutedAt)
		if err != nil {
			return fmt.Errorf("test case %s has invalid execution time: %w", id, err)
		}
	}

	tc.ID = id
	tc.Title = doc.Title
	tc.ExecutedAt = executedAt
	tc.Status = doc.Status
	tc.Fields = doc.Fields
	tc.Evidence = doc.Evidence
	tc.extra = extra
	return nil
}

// clone deep-copies the test case. Media references are copied by hash only;
// duplication never re-uploads bytes.
func (tc *TestCase) clone() *TestCase {
	dup := &TestCase{
		ID:         tc.ID,
		Title:      tc.Title,
		ExecutedAt: tc.ExecutedAt,
		Status:     tc.Status,
	}
	if tc.Fields != nil {
		dup.Fields = make(map[string]string, len(tc.Fields))
		for k, v := range tc.Fields {
			dup.Fields[k] = v
		}
	}
	if tc.Evidence != nil {
		dup.Evidence = make([]Evidence, len(tc.Evidence))
		for i, ev := range tc.Evidence {
			if b, ok := ev.Value.Bytes(); ok {
				ev.Value = BytesValue(b)
			}
			ev.extra = ev.extra.clone()
			dup.Evidence[i] = ev
		}
	}
	dup.extra = tc.extra.clone()
	return dup
}

// parseExecutionTime parses user-supplied execution time text. RFC 3339 plus
// two human layouts are accepted.
func parseExecutionTime(text string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse execution time %q", text)
}
