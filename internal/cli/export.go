package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evipack/evipack/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <file> <out.html>",
	Short: "Export the package as a standalone HTML report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPackage(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		if err := export.HTMLFile(p, args[1]); err != nil {
			return err
		}

		fmt.Printf("Exported %s\n", args[1])
		return nil
	},
}
