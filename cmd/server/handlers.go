package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/baditaflorin/l"
	"github.com/valyala/fasthttp"

	"github.com/baditaflorin/go_robustness/pkg/pipeline"
)

// RobustnessRequest asks for one robustness test.
type RobustnessRequest struct {
	TestID            string   `json:"test_id,omitempty"`
	Text              string   `json:"text"`
	TargetConclusions []string `json:"target_conclusions,omitempty"`
}

// ValidateRequest asks for the validation of a transformation produced elsewhere.
type ValidateRequest struct {
	Original           string                      `json:"original"`
	Transformed        string                      `json:"transformed"`
	TransformationType pipeline.TransformationType `json:"transformation_type"`
}

// StabilityRequest selects the stored results to analyze. An empty TestIDs
// analyzes every stored result.
type StabilityRequest struct {
	TestIDs []string `json:"test_ids,omitempty"`
}

// StabilityResponse carries the metrics and the decision points behind them.
type StabilityResponse struct {
	Metrics        pipeline.StabilityMetrics `json:"metrics"`
	DecisionPoints []pipeline.DecisionPoint  `json:"decision_points"`
	MissingTestIDs []string                  `json:"missing_test_ids,omitempty"`
}

// BatchRequest runs several robustness tests concurrently.
type BatchRequest struct {
	Inputs []pipeline.BatchInput `json:"inputs"`
}

// BatchResponse returns the results in request order.
type BatchResponse struct {
	Results []pipeline.TestExecutionResult `json:"results"`
	Summary pipeline.TestSummary           `json:"summary"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// server routes HTTP requests to the pipeline.
type server struct {
	pipeline       *pipeline.Pipeline
	logger         l.Logger
	metrics        fasthttp.RequestHandler
	requestTimeout time.Duration
}

// requestHandler is the main fasthttp request handler
func (s *server) requestHandler(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()
	path := string(ctx.Path())

	if path == "/metrics" {
		s.metrics(ctx)
		return
	}

	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.Response.Header.Set("Server", "RobustnessServer")

	switch {
	case path == "/health":
		s.handleHealthCheck(ctx)
	case path == "/robustness":
		s.handleRobustness(ctx)
	case path == "/validate":
		s.handleValidate(ctx)
	case path == "/stability":
		s.handleStability(ctx)
	case path == "/batch":
		s.handleBatch(ctx)
	case path == "/summary":
		s.handleSummary(ctx)
	case path == "/results":
		s.handleResults(ctx)
	case strings.HasPrefix(path, "/results/"):
		s.handleResult(ctx, strings.TrimPrefix(path, "/results/"))
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		s.writeJSONError(ctx, "Not found")
	}

	s.logger.Info("Request processed",
		"method", string(ctx.Method()),
		"path", path,
		"status", ctx.Response.StatusCode(),
		"ip", ctx.RemoteIP().String(),
		"duration", time.Since(startTime),
	)
}

// handleHealthCheck responds to health check requests
func (s *server) handleHealthCheck(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	s.writeJSONResponse(ctx, map[string]interface{}{
		"status":     "ok",
		"time":       time.Now().Format(time.RFC3339),
		"strategies": s.pipeline.Strategies(),
	})
}

func (s *server) handleRobustness(ctx *fasthttp.RequestCtx) {
	var req RobustnessRequest
	if !s.decodePost(ctx, &req) {
		return
	}
	c, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	ctx.SetStatusCode(fasthttp.StatusOK)
	s.writeJSONResponse(ctx, s.pipeline.Run(c, req.TestID, req.Text, req.TargetConclusions...))
}

func (s *server) handleValidate(ctx *fasthttp.RequestCtx) {
	var req ValidateRequest
	if !s.decodePost(ctx, &req) {
		return
	}
	if req.Original == "" || req.Transformed == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		s.writeJSONError(ctx, "Both original and transformed texts are required")
		return
	}
	c, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	result := pipeline.TransformationResult{
		OriginalText:       req.Original,
		TransformedText:    req.Transformed,
		TransformationType: req.TransformationType,
		ChangesMade:        []string{},
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	s.writeJSONResponse(ctx, s.pipeline.ValidateTransformation(c, result))
}

func (s *server) handleStability(ctx *fasthttp.RequestCtx) {
	var req StabilityRequest
	if len(ctx.PostBody()) == 0 {
		ctx.Request.SetBodyString("{}")
	}
	if !s.decodePost(ctx, &req) {
		return
	}

	var (
		results []pipeline.TestExecutionResult
		missing []string
	)
	if len(req.TestIDs) == 0 {
		results = s.pipeline.Results()
	}
	for _, id := range req.TestIDs {
		if r, ok := s.pipeline.Result(id); ok {
			results = append(results, r)
		} else {
			missing = append(missing, id)
		}
	}

	c, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()
	metrics, points := s.pipeline.AnalyzeDetailed(c, results)

	ctx.SetStatusCode(fasthttp.StatusOK)
	s.writeJSONResponse(ctx, StabilityResponse{
		Metrics:        metrics,
		DecisionPoints: points,
		MissingTestIDs: missing,
	})
}

func (s *server) handleBatch(ctx *fasthttp.RequestCtx) {
	var req BatchRequest
	if !s.decodePost(ctx, &req) {
		return
	}
	if len(req.Inputs) == 0 {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		s.writeJSONError(ctx, "At least one input is required")
		return
	}
	c, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	results, err := s.pipeline.RunBatch(c, req.Inputs)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		s.writeJSONError(ctx, "Batch aborted: "+err.Error())
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	s.writeJSONResponse(ctx, BatchResponse{Results: results, Summary: s.pipeline.Summary()})
}

func (s *server) handleSummary(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		s.writeJSONError(ctx, "Method not allowed")
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	s.writeJSONResponse(ctx, s.pipeline.Summary())
}

// handleResults lists the stored results, or drops them on DELETE.
func (s *server) handleResults(ctx *fasthttp.RequestCtx) {
	switch {
	case ctx.IsGet():
		ctx.SetStatusCode(fasthttp.StatusOK)
		s.writeJSONResponse(ctx, s.pipeline.Results())
	case ctx.IsDelete():
		s.pipeline.Clear()
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	default:
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		s.writeJSONError(ctx, "Method not allowed")
	}
}

func (s *server) handleResult(ctx *fasthttp.RequestCtx, id string) {
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		s.writeJSONError(ctx, "Method not allowed")
		return
	}
	result, ok := s.pipeline.Result(id)
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		s.writeJSONError(ctx, "Test result not found: "+id)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	s.writeJSONResponse(ctx, result)
}

// decodePost accepts only POST requests with a JSON body decoding into v.
func (s *server) decodePost(ctx *fasthttp.RequestCtx, v interface{}) bool {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		s.writeJSONError(ctx, "Method not allowed")
		return false
	}
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		s.writeJSONError(ctx, "Invalid request: "+err.Error())
		return false
	}
	return true
}

// writeJSONResponse writes a JSON response to the context
func (s *server) writeJSONResponse(ctx *fasthttp.RequestCtx, data interface{}) {
	response, err := json.Marshal(data)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		s.logger.Error("Error marshaling JSON response", "error", err)
		s.writeJSONError(ctx, "Internal server error")
		return
	}

	ctx.SetBody(response)
}

// writeJSONError writes a JSON error response to the context
func (s *server) writeJSONError(ctx *fasthttp.RequestCtx, message string) {
	response, err := json.Marshal(ErrorResponse{Error: message})
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		s.logger.Error("Error marshaling JSON error response", "error", err)
		ctx.SetBodyString(`{"error":"Internal server error"}`)
		return
	}

	ctx.SetBody(response)
}
