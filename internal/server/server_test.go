package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/reportloom-cli/internal/backend"
	"github.com/KaramelBytes/reportloom-cli/internal/dataset"
	"github.com/KaramelBytes/reportloom-cli/internal/report"
	"github.com/KaramelBytes/reportloom-cli/internal/session"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) SendQuery(ctx context.Context, query string, history []backend.Message, datasetID string) (*report.RawResponse, error) {
	args := m.Called(ctx, query, history, datasetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.RawResponse), args.Error(1)
}

func (m *mockService) GenerateReport(ctx context.Context, query, datasetID string, history []backend.Message) (*report.RawResponse, error) {
	args := m.Called(ctx, query, datasetID, history)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.RawResponse), args.Error(1)
}

type testEnv struct {
	svc      *mockService
	sessions *session.Store
	server   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc := new(mockService)
	assembler := report.NewAssembler(
		report.WithIDGenerator(func() string { return "report-test" }),
		report.WithClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }),
	)
	sessions := session.NewStore(svc, session.WithAssembler(assembler))
	router := ConfigureRouter(Config{
		Dependencies: Dependencies{
			Assembler: assembler,
			Sessions:  sessions,
			Datasets:  dataset.NewStaticRegistry(dataset.Dataset{ID: "sales", Name: "Sales"}),
			Logger:    zerolog.New(zerolog.NewTestWriter(t)),
		},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{svc: svc, sessions: sessions, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func TestAssembleEndpoint(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{
		"query":     "revenue by region",
		"datasetId": "sales",
		"response": map[string]any{
			"results":    []any{[]any{"region", "revenue"}, []any{"North", 120}, []any{"South", 80}},
			"aiResponse": "Two regions.",
		},
	}
	resp, raw := env.do(t, http.MethodPost, "/api/v1/reports/assemble", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var rep map[string]any
	require.NoError(t, json.Unmarshal(raw, &rep))
	assert.Equal(t, "report-test", rep["id"])
	assert.Equal(t, []any{"region", "revenue"}, rep["columnOrder"])
	sections := rep["sections"].([]any)
	require.Len(t, sections, 1)
	assert.Equal(t, "Two regions.", sections[0].(map[string]any)["content"])
}

func TestAssembleEndpointEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := env.do(t, http.MethodPost, "/api/v1/reports/assemble", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep report.Report
	require.NoError(t, json.Unmarshal(raw, &rep))
	require.Len(t, rep.Sections, 1)
	assert.Equal(t, report.DefaultEmptyResults, rep.Sections[0].Content)
}

func TestAssembleEndpointBadJSON(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/reports/assemble", bytes.NewBufferString("{nope"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecommendEndpoint(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{"rows": []any{
		map[string]any{"month": "2024-01-01", "sales": 10},
		map[string]any{"month": "2024-02-01", "sales": 12},
	}}
	resp, raw := env.do(t, http.MethodPost, "/api/v1/recommend", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out recommendResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "line", string(out.Chart))
	assert.Equal(t, []string{"month", "sales"}, out.ColumnOrder)
	assert.Len(t, out.Columns, 2)
}

func TestListDatasetsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := env.do(t, http.MethodGet, "/api/v1/datasets", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []dataset.Dataset
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, []dataset.Dataset{{ID: "sales", Name: "Sales"}}, out)
}

func TestAskEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]any
		setupMocks     func(m *mockService)
		expectedStatus int
	}{
		{
			name: "query ok",
			body: map[string]any{"query": "top regions", "datasetId": "sales"},
			setupMocks: func(m *mockService) {
				m.On("SendQuery", mock.Anything, "top regions", mock.Anything, "sales").
					Return(&report.RawResponse{AIResponse: "done"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "report mode",
			body: map[string]any{"query": "full report", "datasetId": "sales", "mode": "report"},
			setupMocks: func(m *mockService) {
				m.On("GenerateReport", mock.Anything, "full report", "sales", mock.Anything).
					Return(&report.RawResponse{Narrative: "summary"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "upstream auth failure",
			body: map[string]any{"query": "q", "datasetId": "sales"},
			setupMocks: func(m *mockService) {
				m.On("SendQuery", mock.Anything, "q", mock.Anything, "sales").
					Return(nil, &backend.AuthError{APIError: &backend.APIError{StatusCode: 401}})
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "upstream unreachable",
			body: map[string]any{"query": "q", "datasetId": "sales"},
			setupMocks: func(m *mockService) {
				m.On("SendQuery", mock.Anything, "q", mock.Anything, "sales").
					Return(nil, &backend.UnreachableError{Host: "api", Err: errors.New("refused")})
			},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name: "unknown dataset",
			body: map[string]any{"query": "q", "datasetId": "nope"},
			setupMocks: func(m *mockService) {
				m.On("SendQuery", mock.Anything, "q", mock.Anything, "nope").
					Return(nil, &backend.DatasetNotFoundError{DatasetID: "nope"})
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad mode",
			body:           map[string]any{"query": "q", "datasetId": "sales", "mode": "chart"},
			setupMocks:     func(m *mockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing dataset",
			body:           map[string]any{"query": "q"},
			setupMocks:     func(m *mockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "blank query",
			body:           map[string]any{"query": "   ", "datasetId": "sales"},
			setupMocks:     func(m *mockService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setupMocks(env.svc)

			resp, raw := env.do(t, http.MethodPost, "/api/v1/sessions/s1/ask", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(raw))
			env.svc.AssertExpectations(t)
		})
	}
}

func TestAskWithoutDatasetLeavesNoSession(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/sessions/s1/ask", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, env.sessions.Len())

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAskReusesSessionDataset(t *testing.T) {
	env := newTestEnv(t)
	env.svc.On("SendQuery", mock.Anything, mock.Anything, mock.Anything, "sales").
		Return(&report.RawResponse{AIResponse: "ok"}, nil)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/sessions/s1/ask", map[string]any{"query": "first", "datasetId": "sales"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := env.do(t, http.MethodPost, "/api/v1/sessions/s1/ask", map[string]any{"query": "second"})
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, 1, env.sessions.Len())
	env.svc.AssertNumberOfCalls(t, "SendQuery", 2)
}

func TestClearSessionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.svc.On("SendQuery", mock.Anything, "q", mock.Anything, "sales").
		Return(&report.RawResponse{AIResponse: "ok"}, nil)

	resp, _ := env.do(t, http.MethodDelete, "/api/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/sessions/s1/ask", map[string]any{"query": "q", "datasetId": "sales"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(session.ErrSuperseded))
	assert.Equal(t, http.StatusBadRequest, statusFor(session.ErrEmptyQuestion))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(&backend.RateLimitError{APIError: &backend.APIError{StatusCode: 429}}))
	assert.Equal(t, http.StatusBadRequest, statusFor(&backend.BadRequestError{APIError: &backend.APIError{StatusCode: 422}}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&backend.ServerError{APIError: &backend.APIError{StatusCode: 500}}))
}

func TestWebAPIRunStopsOnCancel(t *testing.T) {
	api := NewWebAPI(Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- api.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
