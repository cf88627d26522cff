package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aopmap/kemapper/internal/config"
	"github.com/aopmap/kemapper/internal/core/ports"
	"github.com/aopmap/kemapper/internal/core/scoring"
	"github.com/aopmap/kemapper/internal/core/usecase"
	"github.com/aopmap/kemapper/internal/infrastructure/annotations"
	"github.com/aopmap/kemapper/internal/infrastructure/embedder"
	embedclient "github.com/aopmap/kemapper/internal/infrastructure/embedder/ollama"
	natsqueue "github.com/aopmap/kemapper/internal/infrastructure/queue/nats"
	"github.com/aopmap/kemapper/internal/infrastructure/repository/postgres"
	"github.com/aopmap/kemapper/internal/infrastructure/resilience"
	"github.com/aopmap/kemapper/internal/infrastructure/sparql"
)

// App wires the collaborators and both suggestion services.
type App struct {
	Config config.Config

	Queue      *natsqueue.Queue
	PathwaySvc *usecase.SuggestionService
	GoSvc      *usecase.SuggestionService
	Cache      *postgres.CacheRepository

	closeFn func()
}

// New builds the full worker wiring: queue, persistent cache and both
// suggestion services. Postgres being down is tolerated; the queue is not.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	var db *sql.DB
	var cacheRepo *postgres.CacheRepository
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		// The persistent cache is an accelerator, not a dependency.
		logger.Warn("postgres unavailable, running without persistent cache", "error", err)
		db = nil
	} else {
		cacheRepo = postgres.NewCacheRepository(db)
		if err := cacheRepo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure cache schema: %w", err)
		}
	}

	var persistent ports.SuggestionCache
	if cacheRepo != nil {
		persistent = cacheRepo
	}

	pathwaySvc, goSvc, err := buildServices(ctx, cfg, persistent, logger)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	queue, err := natsqueue.New(
		cfg.NATSURL,
		cfg.RequestSubject,
		cfg.ResultSubject,
		cfg.SuggestQueueName,
		natsqueue.Options{ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig())},
		logger,
	)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return &App{
		Config:     cfg,
		Queue:      queue,
		PathwaySvc: pathwaySvc,
		GoSvc:      goSvc,
		Cache:      cacheRepo,
		closeFn: func() {
			queue.Close()
			if db != nil {
				_ = db.Close()
			}
		},
	}, nil
}

// NewLocal builds the suggestion services without queue or database, for
// one-shot CLI runs.
func NewLocal(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	pathwaySvc, goSvc, err := buildServices(ctx, cfg, nil, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:     cfg,
		PathwaySvc: pathwaySvc,
		GoSvc:      goSvc,
		closeFn:    func() {},
	}, nil
}

func buildServices(
	ctx context.Context,
	cfg config.Config,
	persistent ports.SuggestionCache,
	logger *slog.Logger,
) (pathway, goTerms *usecase.SuggestionService, err error) {
	dict, err := scoring.LoadDictionaries()
	if err != nil {
		return nil, nil, fmt.Errorf("load term tables: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	aopClient := sparql.NewClient(cfg.SPARQLEndpoint, cfg.SPARQLRateLimitPerSec, cfg.SPARQLBurst, executor)
	wpClient := sparql.NewClient(cfg.WikiPathwaysEndpoint, cfg.SPARQLRateLimitPerSec, cfg.SPARQLBurst, executor)

	geneFetcher := sparql.NewGeneFetcher(
		aopClient,
		time.Duration(cfg.GeneCacheTTLSeconds)*time.Second,
		time.Duration(cfg.PersistentCacheTTLHours)*time.Hour,
		persistent,
		logger,
	)
	pathwayCatalog := sparql.NewPathwayCatalog(wpClient, logger)

	goCatalog, err := annotations.Load(cfg.GoCatalogPath, cfg.GoAnnotationsPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load go catalog: %w", err)
	}

	lexical := scoring.NewLexicalScorer(dict, scoring.DefaultLexicalConfig())
	embeddingScorer := buildEmbeddingScorer(ctx, cfg, dict, executor, logger)

	overlapCfg := scoring.GeneOverlapConfig{
		KEOverlapWeight: 0.7,
		JaccardWeight:   0.3,
		MinSetSize:      cfg.GeneOverlapMinSetSize,
		MinScore:        cfg.GeneOverlapMinScore,
	}

	pathwaySvc := usecase.NewSuggestionService(
		usecase.SuggestOptions{
			Domain:     "pathway",
			UseLexical: true,
			Fusion: scoring.FusionConfig{
				Weights: map[string]float64{
					usecase.SignalGene:      cfg.PathwayGeneWeight,
					usecase.SignalText:      cfg.PathwayTextWeight,
					usecase.SignalEmbedding: cfg.PathwayEmbeddingWeight,
				},
				MultiEvidenceBonus: cfg.FusionMultiEvidenceBonus,
				MaxScore:           cfg.FusionMaxScore,
				MinThreshold:       cfg.FusionMinThreshold,
			},
			GeneOverlap:  overlapCfg,
			TitleWeight:  cfg.TitleWeight,
			MaxPerSignal: cfg.MaxPerSignal,
		},
		geneFetcher, pathwayCatalog, lexical, embeddingScorer, dict, logger,
	)

	goSvc := usecase.NewSuggestionService(
		usecase.SuggestOptions{
			Domain:     "go",
			UseLexical: false,
			Fusion: scoring.FusionConfig{
				Weights: map[string]float64{
					usecase.SignalEmbedding: cfg.GoEmbeddingWeight,
					usecase.SignalGene:      cfg.GoGeneWeight,
				},
				MultiEvidenceBonus: cfg.FusionMultiEvidenceBonus,
				MaxScore:           cfg.FusionMaxScore,
				MinThreshold:       cfg.GoFusionMinThreshold,
			},
			GeneOverlap:  overlapCfg,
			TitleWeight:  cfg.TitleWeight,
			MaxPerSignal: cfg.MaxPerSignal,
		},
		geneFetcher, goCatalog, nil, embeddingScorer, dict, logger,
	)

	return pathwaySvc, goSvc, nil
}

// buildEmbeddingScorer probes the embedding service; a dead encoder yields
// a nil scorer and the services degrade to lexical and gene scoring.
func buildEmbeddingScorer(
	ctx context.Context,
	cfg config.Config,
	dict *scoring.Dictionaries,
	executor *resilience.Executor,
	logger *slog.Logger,
) *scoring.EmbeddingScorer {
	client, err := embedclient.New(cfg.EmbedURL, cfg.EmbedModel, cfg.EmbedCacheSize, executor)
	if err != nil {
		logger.Warn("embedder construction failed, semantic signal disabled", "error", err)
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("embedder unavailable, semantic signal disabled", "error", err)
		return nil
	}

	vectors, err := embedder.LoadVectorTable(cfg.VectorTablePath)
	if err != nil {
		logger.Warn("vector table unavailable, encoding candidates on demand", "error", err)
		vectors = scoring.VectorTable{}
	}

	return scoring.NewEmbeddingScorer(client, dict, scoring.EmbeddingConfig{
		Transform: scoring.TransformConfig{
			Mode:        scoring.TransformMode(cfg.TransformMode),
			Exponent:    cfg.TransformExponent,
			ScaleFactor: cfg.TransformScale,
			OutputMin:   cfg.TransformOutputMin,
			OutputMax:   cfg.TransformOutputMax,
		},
		TitleWeight:     cfg.TitleWeight,
		ExtractEntities: true,
	}, vectors)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
