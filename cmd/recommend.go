package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/reportloom-cli/internal/chart"
	"github.com/KaramelBytes/reportloom-cli/internal/dataset"
	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

var (
	recDelimiter string
	recMaxRows   int
	recSheetName string
	recFormat    string
)

type recommendation struct {
	File        string                  `json:"file" yaml:"file"`
	Rows        int                     `json:"rows" yaml:"rows"`
	Chart       chart.Kind              `json:"chart" yaml:"chart"`
	ColumnOrder []string                `json:"columnOrder" yaml:"columnOrder"`
	Columns     []chart.Column          `json:"columns" yaml:"columns"`
	Profile     []dataset.ColumnProfile `json:"profile" yaml:"profile"`
	Summary     string                  `json:"summary" yaml:"summary"`
	Findings    []dataset.Finding       `json:"findings" yaml:"findings"`
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <file>",
	Short: "Recommend a chart for a CSV/TSV/XLSX dataset and profile its columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt := dataset.LoadOptions{MaxRows: recMaxRows, Sheet: recSheetName}
		if recDelimiter != "" {
			switch recDelimiter {
			case ",":
				opt.Delimiter = ','
			case "\t", "tab":
				opt.Delimiter = '\t'
			case ";":
				opt.Delimiter = ';'
			case "|", "pipe":
				opt.Delimiter = '|'
			default:
				return fmt.Errorf("unsupported --delimiter: %s", recDelimiter)
			}
		}
		f, err := dataset.Load(path, opt)
		if err != nil {
			return err
		}
		tbl := table.DeriveColumnOrder(f.Table())
		profiles := dataset.Profile(f)
		rec := recommendation{
			File:        path,
			Rows:        len(f.Rows),
			Chart:       chart.Recommend(tbl.Rows),
			ColumnOrder: tbl.ColumnOrder,
			Columns:     chart.Columns(tbl.Rows),
			Profile:     profiles,
			Summary:     dataset.Summary(f, profiles),
			Findings:    dataset.Findings(f, profiles),
		}

		out := cmd.OutOrStdout()
		switch strings.ToLower(recFormat) {
		case "", "text":
			writeRecommendation(out, rec)
			return nil
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		case "yaml", "yml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(rec); err != nil {
				return err
			}
			return enc.Close()
		}
		return fmt.Errorf("unsupported --format: %s (use text, json or yaml)", recFormat)
	},
}

func writeRecommendation(w io.Writer, rec recommendation) {
	fmt.Fprintf(w, "%s %s\n", heading("Recommended chart:"), rec.Chart)
	fmt.Fprintln(w, rec.Summary)
	fmt.Fprintln(w)
	fmt.Fprintln(w, heading("Columns"))
	for i, c := range rec.Columns {
		kind := ""
		if i < len(rec.Profile) {
			kind = rec.Profile[i].Kind
		}
		fmt.Fprintf(w, "  %-24s %-9s %s\n", c.Name, c.Class, kind)
	}
	if len(rec.Findings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, heading("Findings"))
		for _, fd := range rec.Findings {
			fmt.Fprintf(w, "  - %s: %s\n", fd.Title, fd.Description)
		}
	}
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().StringVar(&recDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (default by extension)")
	recommendCmd.Flags().IntVar(&recMaxRows, "max-rows", 100000, "maximum rows to read (0 = unlimited)")
	recommendCmd.Flags().StringVar(&recSheetName, "sheet-name", "", "XLSX: sheet name to read (default first sheet)")
	recommendCmd.Flags().StringVarP(&recFormat, "format", "f", "text", "output format: text | json | yaml")
}
