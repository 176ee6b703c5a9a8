package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/trigger"
)

type stubOrchestrator struct {
	cycleDepth int
	cycleCtx   context.Context
	panics     bool
}

func (s *stubOrchestrator) RunCycle(ctx context.Context, chainDepth int) domain.CycleSummary {
	if s.panics {
		panic("stage blew up")
	}
	s.cycleDepth = chainDepth
	s.cycleCtx = ctx
	return domain.CycleSummary{
		ChainDepth: chainDepth,
		Backfill:   domain.BackfillSummary{Remaining: 2},
	}
}

func (s *stubOrchestrator) RunIngest(context.Context) domain.IngestSummary {
	return domain.IngestSummary{Created: 3}
}

func (s *stubOrchestrator) RunBackfill(context.Context) domain.BackfillSummary {
	return domain.BackfillSummary{Succeeded: 1}
}

func newTestServer(orch CycleRunner) *Server {
	cfg := config.Config{
		Server:  config.ServerConfig{Addr: ":0"},
		Trigger: config.TriggerConfig{Secret: "s3cret"},
	}
	return New(orch, cfg, slog.New(slog.DiscardHandler))
}

func doRequest(t *testing.T, server *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	server := newTestServer(&stubOrchestrator{})

	rec := doRequest(t, server, httptest.NewRequest(http.MethodPost, "/trigger/cycle", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["error"])
}

func TestAuthBearerAndQuerySecret(t *testing.T) {
	t.Parallel()

	server := newTestServer(&stubOrchestrator{})

	bearer := httptest.NewRequest(http.MethodPost, "/trigger/ingest", nil)
	bearer.Header.Set("Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, doRequest(t, server, bearer).Code)

	query := httptest.NewRequest(http.MethodPost, "/trigger/ingest?secret=s3cret", nil)
	require.Equal(t, http.StatusOK, doRequest(t, server, query).Code)

	wrong := httptest.NewRequest(http.MethodPost, "/trigger/ingest?secret=nope", nil)
	require.Equal(t, http.StatusUnauthorized, doRequest(t, server, wrong).Code)
}

func TestIngestEndpointSummary(t *testing.T) {
	t.Parallel()

	server := newTestServer(&stubOrchestrator{})
	req := httptest.NewRequest(http.MethodPost, "/trigger/ingest?secret=s3cret", nil)
	rec := doRequest(t, server, req)

	var body struct {
		Ingest      domain.IngestSummary `json:"ingest"`
		TriggerNext bool                 `json:"triggerNext"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.Ingest.Created)
	require.True(t, body.TriggerNext)
}

func TestCycleEndpointReadsChainDepthHeader(t *testing.T) {
	t.Parallel()

	orch := &stubOrchestrator{}
	server := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/trigger/cycle?secret=s3cret", nil)
	req.Header.Set(trigger.ChainDepthHeader, "2")
	rec := doRequest(t, server, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, orch.cycleDepth)
}

func TestCycleEndpointReadsChainDepthBody(t *testing.T) {
	t.Parallel()

	orch := &stubOrchestrator{}
	server := newTestServer(orch)

	req := httptest.NewRequest(http.MethodPost, "/trigger/cycle?secret=s3cret",
		strings.NewReader(`{"chainDepth": 1, "pending": {}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, server, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, orch.cycleDepth)
}

func TestCycleOutlivesCallerHangUp(t *testing.T) {
	t.Parallel()

	orch := &stubOrchestrator{}
	server := newTestServer(orch)

	// A trigger client with a short timeout cancels the request context well
	// before the cycle finishes. The stages must not inherit that lifetime.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/trigger/cycle?secret=s3cret", nil).WithContext(ctx)
	rec := doRequest(t, server, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, orch.cycleCtx)
	require.NoError(t, orch.cycleCtx.Err())
}

func TestPanicBecomesJSONError(t *testing.T) {
	t.Parallel()

	server := newTestServer(&stubOrchestrator{panics: true})
	req := httptest.NewRequest(http.MethodPost, "/trigger/cycle?secret=s3cret", nil)
	rec := doRequest(t, server, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "internal error", body["error"])
}
