package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show package metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPackage(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Title\t%s\n", p.Title())
		if desc := p.Description(); desc != "" {
			fmt.Fprintf(w, "Description\t%s\n", desc)
		}
		for i, a := range p.Authors() {
			label := ""
			if i == 0 {
				label = "Authors"
			}
			fmt.Fprintf(w, "%s\t%s\n", label, a.String())
		}
		fmt.Fprintf(w, "Test cases\t%d\n", len(p.Cases()))
		fmt.Fprintf(w, "Media blobs\t%d\n", len(p.MediaEntries()))
		return w.Flush()
	},
}
