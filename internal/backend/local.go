package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/reportloom-cli/internal/dataset"
	"github.com/KaramelBytes/reportloom-cli/internal/report"
	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// LocalBackend answers from dataset files on disk, without any upstream
// service. It returns the dataset rows for every question; GenerateReport
// adds a profile narrative, per-column findings and a preview table chart.
type LocalBackend struct {
	datasets dataset.Registry
	cache    *dataset.Cache
	preview  int
}

// NewLocalBackend serves datasets from reg. maxRows caps rows read per file
// (0 means unlimited).
func NewLocalBackend(reg dataset.Registry, maxRows int) *LocalBackend {
	return &LocalBackend{
		datasets: reg,
		cache:    dataset.NewCache(dataset.LoadOptions{MaxRows: maxRows}),
		preview:  25,
	}
}

func (b *LocalBackend) frame(ctx context.Context, datasetID string) (*dataset.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, ok := b.datasets.Lookup(datasetID)
	if !ok || d.Path == "" {
		return nil, &DatasetNotFoundError{DatasetID: datasetID}
	}
	f, err := b.cache.Get(d.Path)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", datasetID, err)
	}
	zerolog.Ctx(ctx).Debug().Str("dataset", datasetID).Int("rows", len(f.Rows)).Msg("dataset loaded")
	return f, nil
}

// SendQuery returns the dataset in header-row form.
func (b *LocalBackend) SendQuery(ctx context.Context, query string, history []Message, datasetID string) (*report.RawResponse, error) {
	f, err := b.frame(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return &report.RawResponse{
		Results:    f.Results(),
		AIResponse: fmt.Sprintf("Showing all %d rows of %s.", len(f.Rows), dataset.DisplayName(b.datasets, datasetID)),
		Prompt:     query,
	}, nil
}

// GenerateReport profiles the dataset.
func (b *LocalBackend) GenerateReport(ctx context.Context, query, datasetID string, history []Message) (*report.RawResponse, error) {
	f, err := b.frame(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	profiles := dataset.Profile(f)
	findings := dataset.Findings(f, profiles)
	insights := make([]report.Insight, 0, len(findings))
	for _, fd := range findings {
		insights = append(insights, report.Insight{Title: fd.Title, Description: fd.Description})
	}

	raw := &report.RawResponse{
		Results:   f.Results(),
		Narrative: dataset.Summary(f, profiles),
		Insights:  insights,
		Prompt:    query,
	}
	if len(f.Rows) > 0 {
		title := "Preview"
		if n := len(f.Rows); n > b.preview {
			title = fmt.Sprintf("First %d of %d rows", b.preview, n)
		}
		raw.Visualizations = []report.VisualizationSpec{{
			Type:  "table",
			Title: title,
			Data:  table.Normalize(f.HeadResults(b.preview)),
		}}
	}
	if strings.TrimSpace(query) != "" {
		raw.Narrative = fmt.Sprintf("Question: %s\n\n%s", strings.TrimSpace(query), raw.Narrative)
	}
	return raw, nil
}
