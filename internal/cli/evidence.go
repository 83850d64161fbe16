package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/evipack/evipack/internal/pack"
)

var (
	evidenceText    string
	evidenceFile    string
	evidenceCaption string
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Manage evidence attached to test cases",
}

var evidenceAddCmd = &cobra.Command{
	Use:   "add <file> <ref>",
	Short: "Attach evidence to a test case",
	Long:  `Attach evidence to the referenced test case: --text records inline text, --file stores the file's bytes in the package's content store (deduplicated by hash).`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (evidenceText == "") == (evidenceFile == "") {
			return fmt.Errorf("exactly one of --text or --file is required")
		}

		p, err := openPackage(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		tc, err := p.ResolveCaseReference(args[1])
		if err != nil {
			return err
		}

		if evidenceText != "" {
			ev := pack.NewTextEvidence(evidenceText)
			ev.Caption = evidenceCaption
			if err := p.AddEvidence(tc.ID, ev); err != nil {
				return err
			}
		} else {
			data, err := os.ReadFile(evidenceFile)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", evidenceFile, err)
			}
			hash := p.AddMedia(data)
			ev := pack.NewFileEvidence(hash, filepath.Base(evidenceFile))
			ev.Caption = evidenceCaption
			if err := p.AddEvidence(tc.ID, ev); err != nil {
				return err
			}
		}

		if err := p.Save(); err != nil {
			return err
		}

		fmt.Printf("Added evidence to %q\n", tc.Title)
		return nil
	},
}

func init() {
	evidenceAddCmd.Flags().StringVar(&evidenceText, "text", "", "Inline text evidence")
	evidenceAddCmd.Flags().StringVar(&evidenceFile, "file", "", "File to attach")
	evidenceAddCmd.Flags().StringVar(&evidenceCaption, "caption", "", "Optional caption")
	evidenceCmd.AddCommand(evidenceAddCmd)
}
