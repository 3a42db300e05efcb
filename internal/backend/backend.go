package backend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/KaramelBytes/reportloom-cli/internal/dataset"
	"github.com/KaramelBytes/reportloom-cli/internal/report"
	"github.com/KaramelBytes/reportloom-cli/internal/utils"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// QueryExecutor answers a question with result rows and optional narrative.
type QueryExecutor interface {
	SendQuery(ctx context.Context, query string, history []Message, datasetID string) (*report.RawResponse, error)
}

// ReportGenerator answers a question with a full report payload: charts,
// narrative and insights.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, query, datasetID string, history []Message) (*report.RawResponse, error)
}

// Service is both collaborators.
type Service interface {
	QueryExecutor
	ReportGenerator
}

// Backend names.
const (
	NameHTTP  = "http"
	NameLocal = "local"
)

// Config carries the knobs backends are built from.
type Config struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	BaseURL     string
	APIKey      string
	Datasets    dataset.Registry
	MaxRows     int
}

// Factory builds a Service from Config.
type Factory func(Config) (Service, error)

var registry = map[string]Factory{}

// RegisterBackend registers a backend name with its factory.
func RegisterBackend(name string, f Factory) { registry[name] = f }

// GetBackend builds the named backend.
func GetBackend(name string, cfg Config) (Service, error) {
	f, ok := registry[name]
	if !ok {
		names := make([]string, 0, len(registry))
		for n := range registry {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, names)
	}
	return f(cfg)
}

func init() {
	RegisterBackend(NameHTTP, func(c Config) (Service, error) {
		if c.BaseURL == "" {
			return nil, fmt.Errorf("http backend needs api_base_url")
		}
		return NewHTTPClient(c.BaseURL, c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay), nil
	})
	RegisterBackend(NameLocal, func(c Config) (Service, error) {
		if c.Datasets == nil {
			c.Datasets = dataset.NewStaticRegistry()
		}
		return NewLocalBackend(c.Datasets, c.MaxRows), nil
	})
}

// TrimHistory keeps the most recent messages whose combined size fits in
// maxTokens. A non-positive budget keeps everything.
func TrimHistory(history []Message, maxTokens int) []Message {
	if maxTokens <= 0 || len(history) == 0 {
		return history
	}
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		n := utils.CountTokens(history[i].Content)
		if total+n > maxTokens {
			break
		}
		total += n
		start = i
	}
	return history[start:]
}
