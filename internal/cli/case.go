package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evipack/evipack/internal/pack"
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Manage test cases in a package",
}

var caseAddTime string

var caseAddCmd = &cobra.Command{
	Use:   "add <file> <title>",
	Short: "Add a test case",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPackage(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		tc, err := p.CreateTestCase(args[1], caseAddTime)
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}

		fmt.Printf("Added test case %q (%s)\n", tc.Title, tc.ID)
		return nil
	},
}

var caseListCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List test cases in execution-time order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPackage(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		// Positions must agree with the 1-based refs rm/dup accept.
		cases := p.CasesByExecutionTime()
		if len(cases) == 0 {
			fmt.Println("No test cases.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tTITLE\tSTATUS\tEXECUTED\tEVIDENCE")
		for i, tc := range cases {
			executed := "-"
			if !tc.ExecutedAt.IsZero() {
				executed = tc.ExecutedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
				i+1, tc.Title, statusText(tc.Status), executed, len(tc.Evidence))
		}
		return w.Flush()
	},
}

var caseRmCmd = &cobra.Command{
	Use:   "rm <file> <ref>",
	Short: "Delete a test case",
	Long:  `Delete a test case. The reference is either a 1-based position in execution-time order or a unique title substring.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPackage(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		tc, err := p.ResolveCaseReference(args[1])
		if err != nil {
			return err
		}
		if err := p.DeleteTestCase(tc.ID); err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}

		fmt.Printf("Deleted test case %q\n", tc.Title)
		return nil
	},
}

var caseDupCmd = &cobra.Command{
	Use:   "dup <file> <ref>",
	Short: "Duplicate a test case",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPackage(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		tc, err := p.ResolveCaseReference(args[1])
		if err != nil {
			return err
		}
		dup, err := p.DuplicateTestCase(tc.ID)
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}

		fmt.Printf("Duplicated %q as %s\n", tc.Title, dup.ID)
		return nil
	},
}

func statusText(s pack.Status) string {
	switch s {
	case pack.StatusPassed:
		return "passed"
	case pack.StatusFailed:
		return "failed"
	default:
		return "-"
	}
}

func init() {
	caseAddCmd.Flags().StringVar(&caseAddTime, "time", "", "Execution time (RFC 3339 or \"2006-01-02 15:04\")")
	caseCmd.AddCommand(caseAddCmd)
	caseCmd.AddCommand(caseListCmd)
	caseCmd.AddCommand(caseRmCmd)
	caseCmd.AddCommand(caseDupCmd)
}
