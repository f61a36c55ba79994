package api

import (
	"context"
	"net/http"

	"github.com/datapilot/datapilot/internal/api/handler"
	customMiddleware "github.com/datapilot/datapilot/internal/api/middleware"
	"github.com/datapilot/datapilot/internal/config"
	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/insight"
	"github.com/datapilot/datapilot/internal/llm"
	"github.com/datapilot/datapilot/internal/llm/gemini"
	"github.com/datapilot/datapilot/internal/llm/ollama"
	"github.com/datapilot/datapilot/internal/orchestrator"
	"github.com/datapilot/datapilot/internal/pipeline"
	"github.com/datapilot/datapilot/internal/repository/catalog"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/datapilot/datapilot/internal/repository/redis"
	"github.com/datapilot/datapilot/internal/retrieval"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// edaRunner adapts the EDA stage function to the orchestrator interface.
type edaRunner struct{}

func (edaRunner) Run(ctx context.Context, f *dataset.Frame, opts pipeline.EDAOptions) (*pipeline.EDAResult, error) {
	return pipeline.RunEDA(ctx, f, opts)
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, cat *catalog.Catalog, redisClient *redis.Client) (http.Handler, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize storage
	datasets, err := fsstore.NewDatasetStore(cfg.Storage.SnapshotsDir())
	if err != nil {
		return nil, err
	}
	reports, err := fsstore.NewReportStore(cfg.Storage.ReportsDir())
	if err != nil {
		return nil, err
	}
	models, err := fsstore.NewModelRepository(cfg.Storage.ModelsDir())
	if err != nil {
		return nil, err
	}

	// The insight cache backend is filesystem by default, Redis when
	// enabled.
	var insightCache handler.FlushableCache
	fsCache, err := fsstore.NewInsightCache(cfg.Storage.InsightCacheDir())
	if err != nil {
		return nil, err
	}
	insightCache = fsCache
	if redisClient != nil {
		log.Info().Msg("using Redis insight cache")
		insightCache = redis.NewInsightCache(redisClient)
	}

	// Initialize LLM providers
	registry := llm.NewRegistry(cfg.LLM.DefaultProvider)
	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	ollamaProvider := ollama.NewProvider(cfg.LLM.Ollama.Host)
	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		registry.Register(ollamaProvider)
	}
	if cfg.LLM.Gemini.APIKey != "" {
		log.Info().Msg("Registering Gemini provider")
		registry.Register(gemini.NewProvider(cfg.LLM.Gemini))
	} else {
		log.Warn().Msg("Gemini API Key is empty, skipping registration")
	}

	// Retrieval service over the embedded document index
	retrievalService := retrieval.NewService(retrieval.Config{
		IndexFile:  cfg.Retrieval.IndexFile,
		DocsDir:    cfg.Retrieval.DocsDir,
		ChunkSize:  cfg.Retrieval.ChunkSize,
		Overlap:    cfg.Retrieval.Overlap,
		EmbedModel: cfg.Retrieval.EmbedModel,
	}, ollamaProvider)
	if err := retrievalService.Load(); err != nil {
		return nil, err
	}

	// Insight generation and the decision loop
	generator := insight.NewGenerator(
		registry,
		insightCache,
		cfg.LLM.FallbackModel,
		cfg.Insights.ChunkThreshold,
		cfg.Insights.MaxTokens,
	)
	agent := orchestrator.NewAgent(orchestrator.Config{
		EDAQualityThreshold:       cfg.Orchestrator.EDAQualityThreshold,
		ModelPerformanceThreshold: cfg.Orchestrator.ModelPerformanceThreshold,
		DataQualityScore:          cfg.Orchestrator.DataQualityScore,
	}, edaRunner{}, pipeline.NewTrainer(models), retrievalService, generator)

	// Session scope for model artifacts
	session := handler.NewSession(uuid.New().String())

	// Initialize handlers
	datasetHandler := handler.NewDatasetHandler(datasets, cat, cfg.Server.MaxUploadMB)
	analysisHandler := handler.NewAnalysisHandler(datasets, reports, cat)
	trainingHandler := handler.NewTrainingHandler(datasets, reports, models, session)
	insightsHandler := handler.NewInsightsHandler(generator, reports)
	orchestratorHandler := handler.NewOrchestratorHandler(datasets, agent, session)
	ragHandler := handler.NewRAGHandler(retrievalService, generator)
	sessionHandler := handler.NewSessionHandler(models, session)
	reportsHandler := handler.NewReportsHandler(reports)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(cat))

		// LLM providers
		r.Get("/llm-providers", handler.ListLLMProviders(registry))

		// Cache management
		r.Post("/cache/flush", handler.FlushInsightCache(insightCache))

		// Dataset routes
		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", datasetHandler.List)
			r.Post("/upload", datasetHandler.Upload)

			r.Route("/{datasetID}", func(r chi.Router) {
				r.Get("/columns", datasetHandler.Columns)
				r.Get("/lineage", datasetHandler.Lineage)
				r.Post("/preprocess", datasetHandler.Preprocess)
				r.Post("/eda", analysisHandler.RunEDA)
				r.Post("/features", analysisHandler.ApplyFeatures)
				r.Post("/train", trainingHandler.Train)
				r.Post("/forecast", trainingHandler.Forecast)
			})
		})

		// Model routes
		r.Route("/models", func(r chi.Router) {
			r.Get("/", trainingHandler.ListModels)
			r.Post("/{modelFile}/evaluate", trainingHandler.Evaluate)
		})

		// Insights and the decision loop
		r.Post("/insights", insightsHandler.Generate)
		r.Post("/orchestrator/decide", orchestratorHandler.Decide)

		// Retrieval routes
		r.Route("/rag", func(r chi.Router) {
			r.Get("/status", ragHandler.Status)
			r.Post("/query", ragHandler.Query)
			r.Post("/build-index", ragHandler.BuildIndex)
		})

		// Reports
		r.Route("/reports/{datasetID}", func(r chi.Router) {
			r.Get("/eda", reportsHandler.EDAReport)
			r.Get("/training", reportsHandler.TrainingReport)
		})

		// Session lifecycle
		r.Post("/restart-analysis", sessionHandler.RestartAnalysis)
	})

	return r, nil
}
