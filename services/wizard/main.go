// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tripscout-labs/tripscout/services/llm"
	"github.com/tripscout-labs/tripscout/services/wizard/dialogue"
	"github.com/tripscout-labs/tripscout/services/wizard/engine"
	"github.com/tripscout-labs/tripscout/services/wizard/extract"
	"github.com/tripscout-labs/tripscout/services/wizard/render"
	"github.com/tripscout-labs/tripscout/services/wizard/routes"
	"github.com/tripscout-labs/tripscout/services/wizard/store"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "tripscout-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("wizard-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("WIZARD_PORT")
	if port == "" {
		port = "12310"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Session store ---
	storePath := os.Getenv("SESSION_STORE_PATH")
	if storePath == "" {
		storePath = "/data/sessions"
	}
	storeCfg := store.DefaultConfig(storePath)
	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			log.Fatalf("invalid SESSION_TTL %q: %v", ttl, err)
		}
		storeCfg.SessionTTL = d
	}
	sessionStore, err := store.Open(storeCfg)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer sessionStore.Close()
	go sessionStore.RunGC(ctx)

	// --- Reference data ---
	programsDir := os.Getenv("PROGRAMS_DIR")
	if programsDir == "" {
		programsDir = "/app/programs"
	}
	catalog, err := engine.NewFileCatalog(programsDir)
	if err != nil {
		log.Fatalf("failed to open program catalog: %v", err)
	}
	go func() {
		if err := catalog.Watch(ctx); err != nil {
			slog.Warn("program catalog watch stopped", "error", err)
		}
	}()

	// --- Locale templates ---
	localesDir := os.Getenv("LOCALES_DIR")
	if localesDir == "" {
		localesDir = "/app/locales"
	}
	templates, err := render.LoadCatalog(localesDir, render.DefaultLocale)
	if err != nil {
		log.Fatalf("failed to load locale catalog: %v", err)
	}

	// --- LLM backend (delegated extraction + off-topic responder) ---
	var chatClient llm.ChatClient
	llmBackendType := os.Getenv("LLM_BACKEND_TYPE")
	switch llmBackendType {
	case "openai":
		chatClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		chatClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	case "", "none":
		slog.Info("No LLM backend configured; off-topic turns use the canned nudge")
	default:
		log.Fatalf("unknown LLM_BACKEND_TYPE %q", llmBackendType)
	}
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	// --- Extraction strategy ---
	var extractor extract.Extractor
	strategy := os.Getenv("EXTRACTOR_STRATEGY")
	switch strategy {
	case "delegated":
		if chatClient == nil {
			log.Fatalf("EXTRACTOR_STRATEGY=delegated requires an LLM backend")
		}
		extractor, err = extract.NewDelegatedExtractor(chatClient, extract.DefaultDelegatedConfig())
		if err != nil {
			log.Fatalf("failed to initialize delegated extractor: %v", err)
		}
		slog.Info("Using delegated extraction strategy")
	case "", "rules":
		extractor = extract.NewRuleExtractor()
		slog.Info("Using rule-based extraction strategy")
	default:
		log.Fatalf("unknown EXTRACTOR_STRATEGY %q", strategy)
	}

	turnQuota := 0
	if q := os.Getenv("TURN_QUOTA"); q != "" {
		turnQuota, err = strconv.Atoi(q)
		if err != nil || turnQuota <= 0 {
			log.Fatalf("invalid TURN_QUOTA %q", q)
		}
	}

	ctrl := dialogue.NewController(dialogue.Config{
		Store:     sessionStore,
		Extractor: extractor,
		Engine:    engine.NewEngine(catalog),
		Renderer:  render.NewRenderer(templates),
		Responder: chatClient,
		Logger:    logger,
		TurnQuota: turnQuota,
	})

	router := gin.Default()
	router.Use(otelgin.Middleware("wizard-service"))

	routes.SetupRoutes(router, ctrl)

	log.Println("Starting the wizard server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
