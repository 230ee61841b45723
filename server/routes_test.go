package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/phenotree"
	"github.com/meikuraledutech/phenotree/llm"
	"github.com/meikuraledutech/phenotree/memory"
	"github.com/meikuraledutech/phenotree/metrics"
	"github.com/meikuraledutech/phenotree/prompt"
	"github.com/meikuraledutech/phenotree/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	app  *fiber.App
	sess *session.Session
	feed *renderFeed
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	svc := llm.NewService(llm.NewMockProvider(), llm.DefaultOptions(), llm.DefaultBreakerConfig(), zap.NewNop())
	feed := &renderFeed{}
	mc := metrics.NewCollector("phenotree")

	sess, err := session.Open(context.Background(), session.Deps{
		Store:   memory.New(),
		Backend: svc,
		Canvas:  feed,
		Logger:  zap.NewNop(),
		Metrics: mc,
	})
	require.NoError(t, err)

	app := newApp(appDeps{sess: sess, feed: feed, metrics: mc, logger: zap.NewNop(), backendUp: svc.IsAvailable})
	return testServer{app: app, sess: sess, feed: feed}
}

func (s testServer) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestStateGreetsEmptySession(t *testing.T) {
	s := newTestServer(t)

	resp, out := s.do(t, "GET", "/state", "")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, session.Greeting, out["greeting"])
	assert.Len(t, out["examples"], len(prompt.Examples))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestPostMessageDrawsGraph(t *testing.T) {
	s := newTestServer(t)

	resp, out := s.do(t, "POST", "/messages", `{"text":"Show frog development from egg to adult"}`)
	require.Equal(t, 200, resp.StatusCode)
	turn := out["turn"].(map[string]any)
	assert.Contains(t, turn["text"], "I've created a new phenological tree with 5 stages")
	assert.NotNil(t, turn["graph"])

	_, canvas := s.do(t, "GET", "/canvas", "")
	assert.Equal(t, float64(2), canvas["revision"])
	nodes := canvas["graph"].(map[string]any)["nodes"].([]any)
	assert.Len(t, nodes, 5)

	resp, _ = s.do(t, "GET", "/canvas?since=2", "")
	assert.Equal(t, 304, resp.StatusCode)

	_, state := s.do(t, "GET", "/state", "")
	assert.Nil(t, state["greeting"])
	assert.Len(t, state["state"].(map[string]any)["history"], 2)
}

func TestPostMessageErrors(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, "POST", "/messages", `{"text":"   "}`)
	assert.Equal(t, 400, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/messages", `not json`)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestExamples(t *testing.T) {
	s := newTestServer(t)

	_, out := s.do(t, "GET", "/examples", "")
	assert.Len(t, out["examples"], 4)

	resp, out := s.do(t, "POST", "/examples/1", "")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, prompt.Examples[1], out["draft"])
	assert.Equal(t, prompt.Examples[1], s.sess.Draft())

	resp, _ = s.do(t, "POST", "/examples/9", "")
	assert.Equal(t, 404, resp.StatusCode)
	resp, _ = s.do(t, "POST", "/examples/x", "")
	assert.Equal(t, 400, resp.StatusCode)

	resp, _ = s.do(t, "PUT", "/draft", `{"text":"half typed"}`)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, "half typed", s.sess.Draft())
}

func TestResetNeedsConfirmation(t *testing.T) {
	s := newTestServer(t)
	s.do(t, "POST", "/messages", `{"text":"butterfly"}`)

	resp, _ := s.do(t, "POST", "/reset", `{}`)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Len(t, s.sess.Snapshot().History, 2)

	resp, _ = s.do(t, "POST", "/reset", `{"confirm":true}`)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Empty(t, s.sess.Snapshot().History)

	g, _ := s.feed.latest()
	assert.True(t, g.IsEmpty())
}

func TestPutGraph(t *testing.T) {
	s := newTestServer(t)
	s.do(t, "POST", "/messages", `{"text":"butterfly"}`)

	g := s.sess.Snapshot().Graph
	g.Nodes[0].Position = phenotree.Position{X: 42, Y: 7}
	body, err := json.Marshal(g)
	require.NoError(t, err)

	resp, _ := s.do(t, "PUT", "/graph", string(body))
	require.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, phenotree.Position{X: 42, Y: 7}, s.sess.Snapshot().Graph.Nodes[0].Position)

	fed, rev := s.feed.latest()
	assert.Equal(t, phenotree.Position{X: 42, Y: 7}, fed.Nodes[0].Position)
	assert.Equal(t, uint64(3), rev)

	_, canvas := s.do(t, "GET", "/canvas?since=2", "")
	assert.Equal(t, float64(3), canvas["revision"])

	resp, _ = s.do(t, "PUT", "/graph", `{"nodes":[{"id":"n1","type":"input"}],"edges":[]}`)
	assert.Equal(t, 422, resp.StatusCode)
}

func TestPanelRoutes(t *testing.T) {
	s := newTestServer(t)

	resp, out := s.do(t, "PUT", "/panel", `{"position":{"x":5000,"y":-30},"viewport":{"width":1200,"height":900},"box":{"width":400,"height":600}}`)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, map[string]any{"x": float64(800), "y": float64(0)}, out["position"])

	_, out = s.do(t, "POST", "/panel/resize", `{"viewport":{"width":1000,"height":900},"box":{"width":400,"height":600}}`)
	assert.Equal(t, map[string]any{"x": float64(600), "y": float64(0)}, out["position"])

	_, out = s.do(t, "POST", "/panel/toggle", `{"viewport":{"width":1000,"height":900}}`)
	assert.Equal(t, false, out["panel"].(map[string]any)["expanded"])
}

func TestOpsRoutes(t *testing.T) {
	s := newTestServer(t)
	s.do(t, "POST", "/messages", `{"text":"frog"}`)

	resp, out := s.do(t, "GET", "/healthz", "")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, true, out["backend"])

	req := httptest.NewRequest("GET", "/metrics", nil)
	mresp, err := s.app.Test(req)
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `phenotree_turns_total{outcome="graph"} 1`)
}
