package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List registered datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		list := registryFrom(c).List()
		if len(list) == 0 {
			fmt.Fprintln(out, "(no datasets)")
			return nil
		}
		for _, d := range list {
			line := fmt.Sprintf("- %s: %s", d.ID, d.Name)
			if d.Description != "" {
				line += " (" + d.Description + ")"
			}
			if d.Path != "" {
				line += " [" + d.Path + "]"
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
