package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	"github.com/Chative-core-poc-v1/companion/internal/agent/repo"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
)

type stubProcessor struct {
	result model.Result
	got    []string
}

func (s *stubProcessor) ProcessMessage(_ context.Context, userID, utterance, sessionID string) model.Result {
	s.got = []string{userID, utterance, sessionID}
	return s.result
}

func newTestServer(p MessageProcessor, records model.RecordRepository) *Server {
	return New(Config{Addr: ":0", CorsAllowedOrigins: "*", BodyLimitBytes: 4096}, p, records)
}

func post(t *testing.T, s *Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.GetApp().Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp, out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&stubProcessor{}, nil)
	resp, err := s.GetApp().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostMessage(t *testing.T) {
	p := &stubProcessor{result: model.Result{
		Response: "Great! Let's set up your habit. What habit would you like to build?",
		Flow:     &model.Snapshot{ID: "f1", Type: model.FlowHabit, Status: model.StatusActive, Total: 6},
		Intent:   model.IntentHabit,
		Path:     []string{"route_start", "intent_router", "flow_generator", "question_asker"},
	}}
	s := newTestServer(p, nil)

	resp, out := post(t, s, `{"user_id":"u1","session_id":"s1","message":"I want to meditate"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"u1", "I want to meditate", "s1"}, p.got)
	assert.Equal(t, p.result.Response, out["response"])
	assert.Equal(t, "habit", out["intent"])
	flow := out["flow"].(map[string]any)
	assert.Equal(t, "f1", flow["id"])
	assert.NotContains(t, out, "error")
}

func TestPostMessage_RetryableIs503(t *testing.T) {
	p := &stubProcessor{result: model.Result{
		Response:  "Sorry, try again",
		Err:       errx.WrapRedis(errors.New("dial tcp 10.0.0.1:6379: i/o timeout")),
		Retryable: true,
	}}
	resp, out := post(t, newTestServer(p, nil), `{"user_id":"u1","message":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, errx.RedisErrorMessage, out["error"])
	assert.NotContains(t, out["error"], "10.0.0.1", "raw error text stays internal")
}

func TestPostMessage_BadInput(t *testing.T) {
	p := &stubProcessor{result: model.Result{Err: errx.New(errors.New("message is empty"), http.StatusBadRequest, "message is required")}}
	resp, out := post(t, newTestServer(p, nil), `{"user_id":"u1","message":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "message is required", out["error"])

	resp, _ = post(t, newTestServer(p, nil), `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListRecords(t *testing.T) {
	store := repo.NewMemoryStore(0, 0)
	_, err := store.CreateRecord(context.Background(), &model.Record{UserID: "u1", Kind: model.FlowGoal, Title: "Run a marathon"})
	require.NoError(t, err)
	s := newTestServer(&stubProcessor{}, store)

	resp, err := s.GetApp().Test(httptest.NewRequest(http.MethodGet, "/v1/users/u1/records?kind=goal", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Records []model.Record `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Records, 1)
	assert.Equal(t, "Run a marathon", out.Records[0].Title)

	resp, err = s.GetApp().Test(httptest.NewRequest(http.MethodGet, "/v1/users/u1/records?kind=other", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
