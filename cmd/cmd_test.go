package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "github.com/KaramelBytes/reportloom-cli/internal/config"
	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	// Reset sticky state between invocations
	cfg = nil
	cfgFile = ""
	asmInput, asmQuery, asmDataset, asmFormat, asmOutput = "", "", "", "", ""
	askDataset, askFormat, askOutput = "", "", ""
	askReport, askInteractive = false, false
	recFormat, recDelimiter, recSheetName, recMaxRows = "text", "", "", 100000
	flagBackend = ""
	resetChanged(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetChanged clears the Changed mark left on flags by earlier runs.
func resetChanged(c *cobra.Command) {
	unmark := func(f *pflag.Flag) { f.Changed = false }
	c.PersistentFlags().VisitAll(unmark)
	c.Flags().VisitAll(unmark)
	for _, sub := range c.Commands() {
		resetChanged(sub)
	}
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const salesCSV = "region,revenue\nNorth,120\nSouth,80\nEast,95\n"

func writeLocalConfig(t *testing.T, dir string) string {
	t.Helper()
	csv := writeFile(t, filepath.Join(dir, "sales.csv"), salesCSV)
	return writeFile(t, filepath.Join(dir, "config.yaml"), `backend: local
default_format: markdown
datasets:
  - id: sales
    name: Sales 2024
    path: `+csv+`
`)
}

func TestCLI_AssembleFromFile(t *testing.T) {
	home := isolateHome(t)
	in := writeFile(t, filepath.Join(home, "resp.json"), `{
  "results": [{"region": "North", "revenue": 120}, {"region": "South", "revenue": 80}],
  "aiResponse": "Two regions."
}`)

	out, err := runCmd(t, "", "assemble", "-i", in, "-q", "revenue by region", "-d", "sales", "-f", "json")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	var rep map[string]any
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if rep["title"] != "revenue by region" {
		t.Fatalf("title = %v", rep["title"])
	}
	order, _ := rep["columnOrder"].([]any)
	if len(order) != 2 || order[0] != "region" {
		t.Fatalf("columnOrder = %v", rep["columnOrder"])
	}
}

func TestCLI_AssembleFromStdinToFile(t *testing.T) {
	home := isolateHome(t)
	dest := filepath.Join(home, "out", "report.md")

	out, err := runCmd(t, `{"results": []}`, "assemble", "-o", dest)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.Contains(out, "Wrote report to") {
		t.Fatalf("expected confirmation, got %q", out)
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "The query returned no results.") {
		t.Fatalf("unexpected report:\n%s", b)
	}
}

func TestCLI_AssembleRejectsBadJSON(t *testing.T) {
	isolateHome(t)
	if _, err := runCmd(t, "{nope", "assemble"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCLI_Recommend(t *testing.T) {
	home := isolateHome(t)
	csv := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	out, err := runCmd(t, "", "recommend", csv, "-f", "json")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	var rec recommendation
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if rec.Chart != "pie" {
		t.Fatalf("chart = %s, want pie", rec.Chart)
	}
	if rec.Rows != 3 || len(rec.Profile) != 2 {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}

	text, err := runCmd(t, "", "recommend", csv)
	if err != nil {
		t.Fatalf("recommend text: %v", err)
	}
	if !strings.Contains(text, "Recommended chart:") || !strings.Contains(text, "revenue") {
		t.Fatalf("unexpected text output:\n%s", text)
	}
}

func TestCLI_AskLocalBackend(t *testing.T) {
	home := isolateHome(t)
	conf := writeLocalConfig(t, home)

	out, err := runCmd(t, "", "--config", conf, "ask", "-d", "sales", "--report", "what sells best")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	for _, want := range []string{"# what sells best", "Sales 2024", "Revenue by Region"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestBackendFromAppliesMaxRows(t *testing.T) {
	home := isolateHome(t)
	csv := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	c := &cfgpkg.Global{
		Backend:  "local",
		MaxRows:  2,
		Datasets: []cfgpkg.DatasetEntry{{ID: "sales", Name: "Sales 2024", Path: csv}},
	}
	svc, err := backendFrom(c, registryFrom(c))
	if err != nil {
		t.Fatalf("backendFrom: %v", err)
	}
	raw, err := svc.SendQuery(context.Background(), "all rows", nil, "sales")
	if err != nil {
		t.Fatalf("SendQuery: %v", err)
	}
	if n := len(table.Normalize(raw.Results)); n != 2 {
		t.Fatalf("expected max_rows to cap results at 2, got %d", n)
	}
}

func TestCLI_AskInteractive(t *testing.T) {
	home := isolateHome(t)
	conf := writeLocalConfig(t, home)

	out, err := runCmd(t, "first question\nclear\nsecond question\nexit\n", "--config", conf, "ask", "-d", "sales", "-i", "-f", "markdown")
	if err != nil {
		t.Fatalf("ask -i: %v", err)
	}
	for _, want := range []string{"# first question", "Conversation cleared", "# second question"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCLI_AskRequiresDataset(t *testing.T) {
	isolateHome(t)
	if _, err := runCmd(t, "", "ask", "anything"); err == nil {
		t.Fatalf("expected error without --dataset")
	}
}

func TestCLI_AskUnknownDataset(t *testing.T) {
	home := isolateHome(t)
	conf := writeLocalConfig(t, home)
	_, err := runCmd(t, "", "--config", conf, "ask", "-d", "missing", "q")
	if err == nil || !strings.Contains(err.Error(), `dataset "missing" not found`) {
		t.Fatalf("expected dataset not found, got %v", err)
	}
}

func TestCLI_Datasets(t *testing.T) {
	home := isolateHome(t)
	conf := writeLocalConfig(t, home)

	out, err := runCmd(t, "", "--config", conf, "datasets")
	if err != nil {
		t.Fatalf("datasets: %v", err)
	}
	if !strings.Contains(out, "- sales: Sales 2024") {
		t.Fatalf("unexpected listing:\n%s", out)
	}

	isolateHome(t)
	out, err = runCmd(t, "", "datasets")
	if err != nil {
		t.Fatalf("datasets: %v", err)
	}
	if !strings.Contains(out, "(no datasets)") {
		t.Fatalf("expected empty listing, got %q", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolateHome(t)

	if _, err := runCmd(t, "", "config", "set", "chart_color", "#112233"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".reportloom", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if _, err := runCmd(t, "", "config", "set", "nope", "x"); err == nil {
		t.Fatalf("expected error for unknown key")
	}

	out, err := runCmd(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"chart_color: #112233", "backend: local", "grouping_rule: Client -> Client Analysis"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestMask(t *testing.T) {
	if got := mask(""); got != "" {
		t.Fatalf("mask empty = %q", got)
	}
	if got := mask("abc"); got != "******" {
		t.Fatalf("mask short = %q", got)
	}
	if got := mask("sk-1234567890"); got != "sk-****890" {
		t.Fatalf("mask long = %q", got)
	}
}
