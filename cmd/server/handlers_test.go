package main

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/baditaflorin/l"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/baditaflorin/go_robustness/internal/adapters/logger"
	"github.com/baditaflorin/go_robustness/internal/config"
	"github.com/baditaflorin/go_robustness/pkg/pipeline"
)

const report = `The team found that the new method is simple and fast. Many customers use the product often.

The study shows a clear change in the market. Revenue grew by 12 percent over the last year.

Therefore, the company should expand the plan to reach more users quickly.`

func newTestServer(t *testing.T) *server {
	t.Helper()
	log, err := l.NewStandardFactory().CreateLogger(logger.DefaultConfig(io.Discard, true))
	require.NoError(t, err)

	cfg := config.Default()
	reg := prometheus.NewRegistry()
	p, err := newPipeline(cfg, log, reg, false)
	require.NoError(t, err)

	return &server{
		pipeline:       p,
		logger:         log,
		metrics:        fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		requestTimeout: 5 * time.Second,
	}
}

func do(s *server, method, uri string, body interface{}) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != nil {
		raw, _ := json.Marshal(body)
		req.SetBody(raw)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	s.requestHandler(ctx)
	return ctx
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	ctx := do(s, fasthttp.MethodGet, "/health", nil)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, body["strategies"], 3)
}

func TestRobustnessAndLookup(t *testing.T) {
	s := newTestServer(t)
	ctx := do(s, fasthttp.MethodPost, "/robustness", RobustnessRequest{TestID: "memo", Text: report})
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var result pipeline.TestExecutionResult
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &result))
	assert.Equal(t, "memo", result.TestID)
	assert.Len(t, result.TransformationResults, 3)

	ctx = do(s, fasthttp.MethodGet, "/results/memo", nil)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = do(s, fasthttp.MethodGet, "/results/unknown", nil)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())

	ctx = do(s, fasthttp.MethodGet, "/summary", nil)
	var summary pipeline.TestSummary
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &summary))
	assert.Equal(t, 1, summary.TotalTests)

	ctx = do(s, fasthttp.MethodDelete, "/results", nil)
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.Empty(t, s.pipeline.Results())
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		method string
		uri    string
		body   interface{}
		status int
	}{
		{"unknown route", fasthttp.MethodGet, "/nope", nil, fasthttp.StatusNotFound},
		{"get robustness", fasthttp.MethodGet, "/robustness", nil, fasthttp.StatusMethodNotAllowed},
		{"malformed body", fasthttp.MethodPost, "/robustness", "not an object", fasthttp.StatusBadRequest},
		{"empty validate", fasthttp.MethodPost, "/validate", ValidateRequest{}, fasthttp.StatusBadRequest},
		{"empty batch", fasthttp.MethodPost, "/batch", BatchRequest{}, fasthttp.StatusBadRequest},
		{"post summary", fasthttp.MethodPost, "/summary", nil, fasthttp.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := do(s, tc.method, tc.uri, tc.body)
			assert.Equal(t, tc.status, ctx.Response.StatusCode())

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(ctx.Response.Body(), &errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestValidate(t *testing.T) {
	s := newTestServer(t)
	ctx := do(s, fasthttp.MethodPost, "/validate", ValidateRequest{
		Original:           report,
		Transformed:        report,
		TransformationType: pipeline.ParagraphReordering,
	})
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var v pipeline.TransformationValidation
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &v))
	assert.Equal(t, pipeline.ParagraphReordering, v.TransformationType)
	assert.True(t, v.Passed)
}

func TestBatchThenStability(t *testing.T) {
	s := newTestServer(t)
	ctx := do(s, fasthttp.MethodPost, "/batch", BatchRequest{Inputs: []pipeline.BatchInput{
		{TestID: "a", Text: report},
		{TestID: "b", Text: report},
		{TestID: "c", Text: report},
	}})
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var batch BatchResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &batch))
	require.Len(t, batch.Results, 3)
	assert.Equal(t, 3, batch.Summary.TotalTests)

	ctx = do(s, fasthttp.MethodPost, "/stability", StabilityRequest{TestIDs: []string{"a", "b", "missing"}})
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var stab StabilityResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &stab))
	assert.Equal(t, 2, stab.Metrics.SampleSize)
	assert.Equal(t, []string{"missing"}, stab.MissingTestIDs)

	ctx = do(s, fasthttp.MethodPost, "/stability", nil)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &stab))
	assert.Equal(t, 3, stab.Metrics.SampleSize)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(s, fasthttp.MethodPost, "/robustness", RobustnessRequest{Text: report})

	ctx := do(s, fasthttp.MethodGet, "/metrics", nil)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "robustness_test_executions_total")
}
