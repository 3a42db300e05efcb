package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/reportloom-cli/internal/report"
)

var (
	asmInput   string
	asmQuery   string
	asmDataset string
	asmFormat  string
	asmOutput  string
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble a report from a saved service response",
	Long: `Assemble reads an upstream response (JSON with results, visualizations,
narrative, insights and isComplex) from --input or stdin and prints the
assembled report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		logger := newLogger(c.LogLevel, false)

		data, err := readInput(asmInput)
		if err != nil {
			return err
		}
		var raw report.RawResponse
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		reg := registryFrom(c)
		asm, err := assemblerFrom(c, reg, logger)
		if err != nil {
			return err
		}
		rep := asm.Assemble(&raw, asmQuery, asmDataset)
		return emit(cmd.OutOrStdout(), rep, formatOr(asmFormat, c), asmOutput)
	},
}

func init() {
	rootCmd.AddCommand(assembleCmd)
	assembleCmd.Flags().StringVarP(&asmInput, "input", "i", "", "path to the response JSON ('-' or empty reads stdin)")
	assembleCmd.Flags().StringVarP(&asmQuery, "query", "q", "", "question the response answers (defaults to the response prompt)")
	assembleCmd.Flags().StringVarP(&asmDataset, "dataset", "d", "", "dataset id the question was asked about")
	assembleCmd.Flags().StringVarP(&asmFormat, "format", "f", "", "output format: json | yaml | markdown (defaults to config)")
	assembleCmd.Flags().StringVarP(&asmOutput, "output", "o", "", "write the report to a file instead of stdout")
}
