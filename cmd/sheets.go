package cmd

import (
	"fmt"

	"github.com/KaramelBytes/dairyreport/internal/workbook"
	"github.com/spf13/cobra"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets <file.xlsx>",
	Short: "List the sheets of a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, err := workbook.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer wb.Close()
		data := currentConfig().DataSheetName
		for _, name := range wb.Sheets() {
			if name == data {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (data)\n", name)
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
}
