package cli

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/persons/internal/core"
)

var importCharset string

var importCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Import persons from a CSV file",
	Long: `Imports every valid row of a comma-separated file whose first line is the
header. Rows that fail validation are listed with their file line and do not
stop the import. The command fails when no row was imported.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importCharset, "charset", "", "file encoding, e.g. iso-8859-1 (default utf-8)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	out, err := service.ImportFile(commandContext(cmd), args[0], importCharset)
	if err != nil {
		if out != nil {
			cmd.Println(out.Message())
		}
		return commandError("import", err)
	}

	cmd.Println(out.Message())
	for _, rej := range out.Rejections {
		cmd.Printf("  row %d: %s\n", rej.Line, rej.Reason)
	}

	if !out.Success() {
		return core.ErrNothingImported
	}
	return nil
}
