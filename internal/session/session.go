// Package session keeps per-dataset conversations with the upstream service
// and makes sure only the newest question produces a report.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/reportloom-cli/internal/backend"
	"github.com/KaramelBytes/reportloom-cli/internal/report"
)

// ErrSuperseded is returned to a caller whose question was overtaken by a
// newer one on the same session, or by Clear.
var ErrSuperseded = errors.New("query superseded by a newer one")

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("empty question")

// Mode selects which upstream call answers a question.
type Mode string

const (
	ModeQuery  Mode = "query"
	ModeReport Mode = "report"
)

// ParseMode accepts "", "query" and "report".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeQuery:
		return ModeQuery, nil
	case ModeReport:
		return ModeReport, nil
	}
	return "", fmt.Errorf("unknown mode %q (want query or report)", s)
}

// Session is one conversation about one dataset.
type Session struct {
	ID        string
	CreatedAt time.Time

	svc       backend.Service
	assembler *report.Assembler
	maxTokens int

	mu        sync.Mutex
	datasetID string
	gen       uint64
	cancel    context.CancelFunc
	history   []backend.Message
	current   *report.Report
}

// Option configures a Session.
type Option func(*Session)

// WithAssembler replaces the default report assembler.
func WithAssembler(a *report.Assembler) Option {
	return func(s *Session) { s.assembler = a }
}

// WithMaxHistoryTokens caps the history sent upstream. Zero sends all of it.
func WithMaxHistoryTokens(n int) Option {
	return func(s *Session) { s.maxTokens = n }
}

// New starts an empty session.
func New(id, datasetID string, svc backend.Service, opts ...Option) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		svc:       svc,
		datasetID: datasetID,
	}
	for _, o := range opts {
		o(s)
	}
	if s.assembler == nil {
		s.assembler = report.NewAssembler()
	}
	return s
}

// DatasetID is the dataset the session currently talks about.
func (s *Session) DatasetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasetID
}

// Ask sends query upstream and assembles the answer. Starting a new Ask
// cancels the one in flight; the older caller gets ErrSuperseded. Upstream
// errors are returned as is and leave history untouched.
func (s *Session) Ask(ctx context.Context, query string, mode Mode) (*report.Report, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuestion
	}

	callCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	datasetID := s.datasetID
	history := backend.TrimHistory(append([]backend.Message(nil), s.history...), s.maxTokens)
	s.mu.Unlock()
	defer cancel()

	logger := zerolog.Ctx(ctx).With().Str("session", s.ID).Uint64("generation", gen).Logger()
	logger.Debug().Str("mode", string(mode)).Str("dataset", datasetID).Msg("asking upstream")

	var raw *report.RawResponse
	var err error
	if mode == ModeReport {
		raw, err = s.svc.GenerateReport(callCtx, query, datasetID, history)
	} else {
		raw, err = s.svc.SendQuery(callCtx, query, history, datasetID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		logger.Debug().Msg("discarding superseded answer")
		return nil, ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		return nil, err
	}

	rep := s.assembler.Assemble(raw, query, datasetID)
	s.history = append(s.history,
		backend.Message{Role: backend.RoleUser, Content: query},
		backend.Message{Role: backend.RoleAssistant, Content: rep.Sections[0].Content},
	)
	s.current = rep
	return rep, nil
}

// Clear drops history and the current report and supersedes any call in
// flight.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// SwitchDataset points the session at another dataset. Changing the
// dataset clears the conversation.
func (s *Session) SwitchDataset(datasetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if datasetID == "" || datasetID == s.datasetID {
		return
	}
	s.reset()
	s.datasetID = datasetID
}

func (s *Session) reset() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.history = nil
	s.current = nil
}

// Current is the most recent report, or nil.
func (s *Session) Current() *report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// History returns a copy of the conversation so far.
func (s *Session) History() []backend.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Message(nil), s.history...)
}
