package report

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default texts used when upstream supplies no narrative.
const (
	DefaultPlaceholder  = "Here are the results of your query."
	DefaultEmptyResults = "The query returned no results."
	DefaultTitle        = "Query Results"
	DefaultChartColor   = "#4F46E5"
)

// Option configures an Assembler.
type Option func(*settings)

type settings struct {
	detector     GroupingDetector
	newID        func() string
	now          func() time.Time
	placeholder  string
	emptyResults string
	color        string
	datasetName  func(id string) string
	logger       zerolog.Logger
}

// WithDetector sets the grouping detector used for complex responses.
func WithDetector(d GroupingDetector) Option {
	return func(s *settings) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithIDGenerator replaces the report id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock sets the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPlaceholder sets the section text used when upstream sent no narrative.
func WithPlaceholder(text string) Option {
	return func(s *settings) {
		if text != "" {
			s.placeholder = text
		}
	}
}

// WithEmptyResultsText sets the section text used when there is no narrative
// and no rows.
func WithEmptyResultsText(text string) Option {
	return func(s *settings) {
		if text != "" {
			s.emptyResults = text
		}
	}
}

// WithChartColor sets the base colour of derived charts.
func WithChartColor(color string) Option {
	return func(s *settings) {
		if color != "" {
			s.color = color
		}
	}
}

// WithDatasetNames resolves dataset ids to display names.
func WithDatasetNames(fn func(id string) string) Option {
	return func(s *settings) {
		s.datasetName = fn
	}
}

// WithLogger sets the logger for soft failures found while assembling.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

func applyOptions(opts []Option) settings {
	s := settings{
		detector:     DefaultDetector(),
		newID:        UUIDGenerator(),
		now:          time.Now,
		placeholder:  DefaultPlaceholder,
		emptyResults: DefaultEmptyResults,
		color:        DefaultChartColor,
		logger:       log.Logger,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
