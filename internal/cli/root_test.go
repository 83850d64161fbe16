package cli

import (
	"path/filepath"
	"testing"

	"github.com/evipack/evipack/internal/pack"
)

func TestParseAuthor(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    pack.Author
		wantErr bool
	}{
		{"name and email", "Ada <ada@example.com>", pack.Author{Name: "Ada", Email: "ada@example.com"}, false},
		{"bare name", "Ada Lovelace", pack.Author{Name: "Ada Lovelace"}, false},
		{"padded", "  Ada <ada@example.com>  ", pack.Author{Name: "Ada", Email: "ada@example.com"}, false},
		{"empty", "", pack.Author{}, true},
		{"unclosed bracket", "Ada <ada@example.com", pack.Author{}, true},
		{"empty email", "Ada <>", pack.Author{}, true},
		{"email only", "<ada@example.com>", pack.Author{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAuthor(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAuthor(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if err == nil && !got.Equal(tt.want) {
				t.Errorf("parseAuthor(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCommands_CreateAddList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.evipack")

	rootCmd.SetArgs([]string{"create", path, "--title", "CLI run", "--author", "Ada <ada@example.com>"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rootCmd.SetArgs([]string{"case", "add", path, "Login flow"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("case add failed: %v", err)
	}

	rootCmd.SetArgs([]string{"evidence", "add", path, "login", "--text", "user logged in"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("evidence add failed: %v", err)
	}

	p, err := pack.Open(path, nil)
	if err != nil {
		t.Fatalf("failed to reopen package: %v", err)
	}
	defer p.Close()

	cases := p.Cases()
	if len(cases) != 1 || cases[0].Title != "Login flow" {
		t.Fatalf("unexpected cases: %v", cases)
	}
	if len(cases[0].Evidence) != 1 {
		t.Fatalf("expected one evidence item, got %d", len(cases[0].Evidence))
	}
	data, err := p.EvidenceData(cases[0].Evidence[0])
	if err != nil {
		t.Fatalf("failed to resolve evidence: %v", err)
	}
	if string(data) != "user logged in" {
		t.Errorf("evidence mismatch: got %q", data)
	}
}
