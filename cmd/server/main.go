package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/baditaflorin/l"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/baditaflorin/go_robustness/internal/adapters/logger"
	"github.com/baditaflorin/go_robustness/internal/adapters/synonym"
	"github.com/baditaflorin/go_robustness/internal/config"
	"github.com/baditaflorin/go_robustness/pkg/pipeline"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "robustness.yaml", "Path to the YAML configuration file")
	warmUp := flag.Bool("warm-up", true, "Perform system warm-up on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := createLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting robustness HTTP server",
		"addr", cfg.Server.Addr,
		"read_timeout", cfg.Server.ReadTimeout,
		"write_timeout", cfg.Server.WriteTimeout,
		"max_request_body", cfg.Server.MaxRequestBody,
		"batch_concurrency", cfg.Server.BatchConcurrency,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p, err := newPipeline(cfg, log, reg, *warmUp)
	if err != nil {
		log.Error("Failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	log.Info("Pipeline initialized successfully",
		"warm_up", *warmUp,
		"cpus", runtime.NumCPU(),
	)

	srv := &server{
		pipeline:       p,
		logger:         log,
		metrics:        fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		requestTimeout: cfg.Server.WriteTimeout,
	}

	// Create HTTP server with fasthttp
	httpServer := &fasthttp.Server{
		Handler:               srv.requestHandler,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		MaxRequestBodySize:    cfg.Server.MaxRequestBody,
		TCPKeepalive:          true,
		TCPKeepalivePeriod:    3 * time.Minute,
		MaxIdleWorkerDuration: 10 * time.Second,
	}

	// Set up graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down server...")
		if err := httpServer.Shutdown(); err != nil {
			log.Error("Error during server shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	log.Info("Server listening", "address", cfg.Server.Addr)
	if err := httpServer.ListenAndServe(cfg.Server.Addr); err != nil {
		log.Error("Server error", "error", err)
	}

	<-idleConnsClosed
	log.Info("Server stopped")
}

// newPipeline builds the pipeline described by cfg.
func newPipeline(cfg config.Config, log l.Logger, reg prometheus.Registerer, warmUp bool) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithRobustnessConfig(cfg.Robustness),
		pipeline.WithValidationConfig(cfg.Validation),
		pipeline.WithStabilityConfig(cfg.Stability),
		pipeline.WithBatchConcurrency(cfg.Server.BatchConcurrency),
		pipeline.WithPrometheus(reg),
		pipeline.WithPooledNormalizer(),
	}

	if cfg.Lexicon.Path != "" {
		if cfg.Lexicon.Fallback {
			opts = append(opts, pipeline.WithLexicon(cfg.Lexicon.Path))
		} else {
			lex, err := synonym.LoadLexicon(cfg.Lexicon.Path, nil)
			if err != nil {
				return nil, err
			}
			opts = append(opts, pipeline.WithSynonymProvider(lex))
		}
	}
	if cfg.LengthCheck.Enabled {
		opts = append(opts, pipeline.WithLengthCheck(cfg.LengthCheck.LengthConfig, cfg.LengthCheck.Weight))
	}
	if cfg.Embedding.Enabled {
		opts = append(opts, pipeline.WithOpenAIEmbeddings(cfg.Embedding))
	}
	if warmUp {
		opts = append(opts, pipeline.WithWarmUp(true))
	}
	return pipeline.New(opts...)
}

// createLogger creates and configures a logger
func createLogger(cfg config.LoggingConfig) (l.Logger, error) {
	output, err := cfg.Writer()
	if err != nil {
		return nil, err
	}
	lc := logger.DefaultConfig(output, cfg.JSON)
	lc.AsyncWrite = cfg.Async

	log, err := l.NewStandardFactory().CreateLogger(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}
