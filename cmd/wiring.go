package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/reportloom-cli/internal/backend"
	cfgpkg "github.com/KaramelBytes/reportloom-cli/internal/config"
	"github.com/KaramelBytes/reportloom-cli/internal/dataset"
	"github.com/KaramelBytes/reportloom-cli/internal/report"
	"github.com/KaramelBytes/reportloom-cli/internal/utils"
)

// registryFrom builds the dataset registry from configured entries.
func registryFrom(c *cfgpkg.Global) dataset.Registry {
	entries := make([]dataset.Dataset, 0, len(c.Datasets))
	for _, d := range c.Datasets {
		path, err := utils.ExpandHome(d.Path)
		if err != nil {
			path = d.Path
		}
		entries = append(entries, dataset.Dataset{ID: d.ID, Name: d.Name, Path: path, Description: d.Description})
	}
	return dataset.NewStaticRegistry(entries...)
}

// assemblerFrom maps assembly settings onto report options.
func assemblerFrom(c *cfgpkg.Global, reg dataset.Registry, logger zerolog.Logger) (*report.Assembler, error) {
	newID, err := report.IDGeneratorFor(c.ReportIDStrategy)
	if err != nil {
		return nil, err
	}
	rules := report.DefaultFieldRules
	if len(c.GroupingRules) > 0 {
		rules = make([]report.FieldRule, 0, len(c.GroupingRules))
		for _, r := range c.GroupingRules {
			rules = append(rules, report.FieldRule{Field: r.Field, Label: r.Label})
		}
	}
	return report.NewAssembler(
		report.WithIDGenerator(newID),
		report.WithDetector(report.FirstMatch(report.FieldPresenceDetector{Rules: rules}, report.SignatureDetector{})),
		report.WithPlaceholder(c.PlaceholderText),
		report.WithEmptyResultsText(c.EmptyResultsText),
		report.WithChartColor(c.ChartColor),
		report.WithDatasetNames(func(id string) string { return dataset.DisplayName(reg, id) }),
		report.WithLogger(logger),
	), nil
}

// backendFrom builds the configured upstream service.
func backendFrom(c *cfgpkg.Global, reg dataset.Registry) (backend.Service, error) {
	name := c.Backend
	if name == "" {
		name = backend.NameLocal
	}
	svc, err := backend.GetBackend(name, backend.Config{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		BaseURL:     c.APIBaseURL,
		APIKey:      c.APIKey,
		Datasets:    reg,
		MaxRows:     c.MaxRows,
	})
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}
	return svc, nil
}

// emit renders rep and writes it to path, or to w when path is empty.
func emit(w io.Writer, rep *report.Report, format, path string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	out, err := report.Render(rep, f)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if path == "" {
		_, err = w.Write(out)
		return err
	}
	if err := utils.SafeWriteFile(path, out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	printOK(w, "Wrote report to %s", path)
	return nil
}

func formatOr(flag string, c *cfgpkg.Global) string {
	if flag != "" {
		return flag
	}
	return c.DefaultFormat
}

// commandContext carries the CLI logger.
func commandContext(logger zerolog.Logger) context.Context {
	return logger.WithContext(context.Background())
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}
