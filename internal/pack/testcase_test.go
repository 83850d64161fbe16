package pack

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEvidenceValue_Codec(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		check   func(t *testing.T, v EvidenceValue)
	}{
		{
			name:    "plain",
			encoded: "plain:user logged in",
			check: func(t *testing.T, v EvidenceValue) {
				text, ok := v.Text()
				if !ok || text != "user logged in" {
					t.Errorf("got (%q, %v), want plain text", text, ok)
				}
			},
		},
		{
			name:    "base64",
			encoded: "base64:aGVsbG8=",
			check: func(t *testing.T, v EvidenceValue) {
				b, ok := v.Bytes()
				if !ok || !bytes.Equal(b, []byte("hello")) {
					t.Errorf("got (%q, %v), want inline bytes", b, ok)
				}
			},
		},
		{
			name:    "media",
			encoded: "media:deadbeef",
			check: func(t *testing.T, v EvidenceValue) {
				hash, ok := v.MediaHash()
				if !ok || hash != "deadbeef" {
					t.Errorf("got (%q, %v), want media hash", hash, ok)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := decodeEvidenceValue(tt.encoded)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, v)
			if got := v.encode(); got != tt.encoded {
				t.Errorf("re-encode mismatch: got %q, want %q", got, tt.encoded)
			}
		})
	}
}

func TestEvidenceValue_Decode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"unknown prefix", "hex:cafe"},
		{"no colon", "just some text"},
		{"bad base64", "base64:***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeEvidenceValue(tt.encoded); err == nil {
				t.Errorf("expected error decoding %q", tt.encoded)
			}
		})
	}
}

func TestEvidenceValue_PlainTextWithColons(t *testing.T) {
	// Only the prefix before the first colon dispatches; the rest is payload.
	v, err := decodeEvidenceValue("plain:12:30: login ok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, _ := v.Text()
	if text != "12:30: login ok" {
		t.Errorf("payload truncated: got %q", text)
	}
}

func TestTestCase_MarshalWritesCurrentSchema(t *testing.T) {
	tc := TestCase{ID: "0c7e0921-10e8-4a10-b0b8-b3ed170db451", Title: "Login flow"}
	data, err := json.Marshal(&tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if doc["schema"] != caseSchemaCurrent {
		t.Errorf("schema marker mismatch: got %v, want %s", doc["schema"], caseSchemaCurrent)
	}
}

func TestTestCase_LoadsLegacyNameAlias(t *testing.T) {
	raw := `{
		"schema": "evipack.testcase.v1",
		"name": "4173a255-9b2c-4a6f-ae61-043a13d8eaf0",
		"title": "Checkout",
		"evidence": []
	}`
	var tc TestCase
	if err := json.Unmarshal([]byte(raw), &tc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID != "4173a255-9b2c-4a6f-ae61-043a13d8eaf0" {
		t.Errorf("legacy name alias not applied: got id %q", tc.ID)
	}

	// Resaving rewrites the marker to the current version.
	data, err := json.Marshal(&tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), caseSchemaCurrent) {
		t.Errorf("resave did not rewrite schema marker: %s", data)
	}
	if strings.Contains(string(data), `"name"`) {
		t.Errorf("resave kept the legacy field: %s", data)
	}
}

func TestTestCase_RejectsUnknownSchema(t *testing.T) {
	raw := `{"schema": "evipack.testcase.v99", "id": "x", "title": "t", "evidence": []}`
	var tc TestCase
	if err := json.Unmarshal([]byte(raw), &tc); err == nil {
		t.Error("expected error for unknown schema marker")
	}
}

func TestTestCase_RoundTripPreservesUnknownFields(t *testing.T) {
	raw := `{
		"schema": "evipack.testcase.v2",
		"id": "59b032a5-4a0a-45ce-ab6d-20fcd67b549c",
		"title": "Search",
		"evidence": [{"kind": "text", "value": "plain:ok", "reviewer": "dana"}],
		"futureField": {"nested": [1, 2, 3]}
	}`
	var tc TestCase
	if err := json.Unmarshal([]byte(raw), &tc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(&tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if string(doc["futureField"]) != `{"nested":[1,2,3]}` {
		t.Errorf("unknown top-level field not preserved: got %s", doc["futureField"])
	}

	var evidence []map[string]json.RawMessage
	if err := json.Unmarshal(doc["evidence"], &evidence); err != nil {
		t.Fatalf("failed to parse evidence: %v", err)
	}
	if string(evidence[0]["reviewer"]) != `"dana"` {
		t.Errorf("unknown evidence field not preserved: got %s", evidence[0]["reviewer"])
	}
}

func TestTestCase_Clone(t *testing.T) {
	executed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tc := &TestCase{
		ID:         "original",
		Title:      "Export report",
		ExecutedAt: executed,
		Status:     StatusPassed,
		Fields:     map[string]string{"build": "1.0.42"},
		Evidence: []Evidence{
			NewTextEvidence("done"),
			NewFileEvidence("cafe01", "report.pdf"),
		},
	}

	dup := tc.clone()
	dup.Fields["build"] = "changed"
	dup.Evidence[0].Caption = "changed"

	if tc.Fields["build"] != "1.0.42" {
		t.Error("clone shares the fields map with the original")
	}
	if tc.Evidence[0].Caption != "" {
		t.Error("clone shares the evidence slice with the original")
	}
	if hash, _ := dup.Evidence[1].Value.MediaHash(); hash != "cafe01" {
		t.Errorf("media reference not copied by hash: got %q", hash)
	}
	if !dup.ExecutedAt.Equal(executed) {
		t.Errorf("execution time not copied: got %v", dup.ExecutedAt)
	}
}

func TestParseExecutionTime(t *testing.T) {
	tests := []struct {
		text    string
		wantErr bool
	}{
		{"2026-03-14T09:26:53Z", false},
		{"2026-03-14 09:26", false},
		{"2026-03-14", false},
		{"yesterday-ish", true},
		{"14/03/2026", true},
	}
	for _, tt := range tests {
		_, err := parseExecutionTime(tt.text)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseExecutionTime(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
		}
	}
}
