package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evipack/evipack/internal/config"
	"github.com/evipack/evipack/internal/pack"
)

var (
	createTitle   string
	createAuthors []string
)

var createCmd = &cobra.Command{
	Use:   "create <file>",
	Short: "Create a new empty evidence package",
	Long:  `Create a new evidence package at the given path. Fails if a file already exists there. Authors default to the user config when none are given.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		title := createTitle
		if title == "" {
			title = "Untitled package"
		}

		var authors []pack.Author
		for _, text := range createAuthors {
			a, err := parseAuthor(text)
			if err != nil {
				return err
			}
			authors = append(authors, a)
		}
		if len(authors) == 0 {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthorName != "" {
				authors = append(authors, pack.Author{Name: cfg.AuthorName, Email: cfg.AuthorEmail})
			}
		}

		p, err := pack.Create(path, title, authors, logger())
		if err != nil {
			return err
		}
		defer p.Close()

		fmt.Printf("Created %s (%q)\n", path, title)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createTitle, "title", "", "Title for the package")
	createCmd.Flags().StringArrayVar(&createAuthors, "author", nil, "Author as \"Name <email>\" (repeatable)")
}
