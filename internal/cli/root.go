// Package cli implements the evipack command-line front-end. It is a
// consumer of the storage engine's public operations; all user-facing error
// presentation lives here, never in the engine.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/evipack/evipack/internal/pack"
	"github.com/evipack/evipack/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "evipack",
	Short:   "Manage portable test evidence packages",
	Long:    `Evipack stores test cases and their evidence (text, screenshots, files, HTTP exchanges) in a single portable package file that tools and people can share without corrupting it.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(caseCmd)
	rootCmd.AddCommand(evidenceCmd)
	rootCmd.AddCommand(exportCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logger is shared by all commands and handed to the engine for its
// logged-only paths (lock release cleanup).
func logger() *log.Logger {
	return log.New(os.Stderr)
}

// openPackage opens a package and translates the common engine errors into
// messages actionable from a terminal.
func openPackage(path string) (*pack.Package, error) {
	p, err := pack.Open(path, logger())
	if err != nil {
		switch {
		case errors.Is(err, pack.ErrLockHeld):
			return nil, fmt.Errorf("%s is open in another program (%v)", path, err)
		case errors.Is(err, pack.ErrCorruptPackage):
			return nil, fmt.Errorf("%s is not a valid evidence package: %w", path, err)
		default:
			return nil, err
		}
	}
	return p, nil
}

// parseAuthor parses "Name <email>" or a bare name.
func parseAuthor(text string) (pack.Author, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pack.Author{}, fmt.Errorf("author cannot be empty")
	}
	if open := strings.Index(text, "<"); open >= 0 {
		if !strings.HasSuffix(text, ">") {
			return pack.Author{}, fmt.Errorf("malformed author %q: expected \"Name <email>\"", text)
		}
		name := strings.TrimSpace(text[:open])
		email := strings.TrimSpace(text[open+1 : len(text)-1])
		if name == "" || email == "" {
			return pack.Author{}, fmt.Errorf("malformed author %q: expected \"Name <email>\"", text)
		}
		return pack.Author{Name: name, Email: email}, nil
	}
	return pack.Author{Name: text}, nil
}
