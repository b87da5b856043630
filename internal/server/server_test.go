package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/server/internal/agent/llm"
	"github.com/docuchat/server/internal/agent/model"
	"github.com/docuchat/server/internal/agent/qa"
)

type stubRetriever struct {
	passages []model.Passage
}

func (r *stubRetriever) Query(ctx context.Context, text string, k int) ([]model.Passage, error) {
	return r.passages, nil
}

type stubStream struct {
	frags []string
	i     int
}

func (s *stubStream) Recv() (string, error) {
	if s.i >= len(s.frags) {
		return "", io.EOF
	}
	f := s.frags[s.i]
	s.i++
	return f, nil
}

func (s *stubStream) Close() {}

type stubGateway struct {
	frags []string
}

func (g *stubGateway) Invoke(ctx context.Context, prompt string) (string, error) {
	return strings.Join(g.frags, ""), nil
}

func (g *stubGateway) Stream(ctx context.Context, prompt string) (llm.TextStream, error) {
	return &stubStream{frags: g.frags}, nil
}

type memConversations struct {
	exchanges map[string][]model.Exchange
}

func newMemConversations() *memConversations {
	return &memConversations{exchanges: make(map[string][]model.Exchange)}
}

func (m *memConversations) AppendExchange(ctx context.Context, id string, ex model.Exchange) error {
	m.exchanges[id] = append(m.exchanges[id], ex)
	return nil
}

func (m *memConversations) LoadRecent(ctx context.Context, id string, maxTurns int) ([]model.Exchange, error) {
	return m.exchanges[id], nil
}

func (m *memConversations) Clear(ctx context.Context, id string) error {
	delete(m.exchanges, id)
	return nil
}

func errorCount(route string) float64 {
	return testutil.ToFloat64(requestsTotal.WithLabelValues(route, "error"))
}

func TestHandleAnalysisCountsFailureOutcome(t *testing.T) {
	before := errorCount("analysis")
	s := New(nil, nil, nil, nil, nil, Config{})

	// A well-formed request that fails after decoding must land in the
	// error bucket, not ok.
	req := httptest.NewRequest(http.MethodPost, "/analysis", strings.NewReader(`{"content":"q"}`))
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, before+1, errorCount("analysis"))
}

func TestHandleChatCountsValidationFailure(t *testing.T) {
	before := errorCount("chat")
	s := New(nil, nil, nil, nil, nil, Config{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"content":"   "}`))
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, before+1, errorCount("chat"))
}

func TestHandleChatStream(t *testing.T) {
	engine := qa.NewEngine(
		&stubRetriever{passages: []model.Passage{{
			Content:    "X is defined as Y",
			SourceFile: "files/guide.pdf",
			FileName:   "guide.pdf",
		}}},
		&stubGateway{frags: []string{"X is ", "Y"}},
		&stubGateway{},
	)
	conv := newMemConversations()
	s := New(engine, nil, conv, nil, nil, Config{MaxTurns: 5})

	req := httptest.NewRequest(http.MethodPost, "/chat/stream",
		strings.NewReader(`{"conversation_id":"c1","content":"what is X"}`))
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	require.Contains(t, body, `"content":"X is "`)
	require.Contains(t, body, `"content":"Y"`)
	require.Contains(t, body, `Sources:\nguide`)
	require.Contains(t, body, `"type":"complete"`)

	// The full answer, sources included, lands in the conversation log.
	saved := conv.exchanges["c1"]
	require.Len(t, saved, 1)
	require.Equal(t, "what is X", saved[0].Question)
	require.Equal(t, "X is Y\n\nSources:\nguide", saved[0].Answer)
}

func TestHandleChatStreamRejectsEmptyContent(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, Config{})

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
