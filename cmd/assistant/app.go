package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/config"
	dbRedis "github.com/kailas-cloud/campus-assistant/internal/db/redis"
	"github.com/kailas-cloud/campus-assistant/internal/domain"
	logpkg "github.com/kailas-cloud/campus-assistant/internal/logger"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
	answerrepo "github.com/kailas-cloud/campus-assistant/internal/repository/answer"
	budgetrepo "github.com/kailas-cloud/campus-assistant/internal/repository/budget"
	corpusrepo "github.com/kailas-cloud/campus-assistant/internal/repository/corpus"
	"github.com/kailas-cloud/campus-assistant/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/campus-assistant/internal/repository/search"
	genaiText "github.com/kailas-cloud/campus-assistant/internal/transport/genai"
	openaiText "github.com/kailas-cloud/campus-assistant/internal/transport/openai"
	chatuc "github.com/kailas-cloud/campus-assistant/internal/usecase/chat"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/conversation"
	healthuc "github.com/kailas-cloud/campus-assistant/internal/usecase/health"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/keyring"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/normalize"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/retrieval"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/textservice"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/vocabulary"
)

// app is the composition root shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *dbRedis.Store

	search *searchrepo.Repo
	text   *textservice.Client
	budget *textservice.BudgetTracker
	vocab  *vocabulary.Cache
	chat   *chatuc.Service
	health *healthuc.Service
}

func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	a := &app{cfg: cfg, logger: logger, store: store}
	a.wire(ctx)
	return a, nil
}

// wire builds the pipeline bottom-up: repositories, Text Service, vocabulary,
// normalizer, context resolver, retrieval, chat.
func (a *app) wire(ctx context.Context) {
	cfg, logger, prefix := a.cfg, a.logger, a.cfg.Storage.KeyPrefix
	storeTimeout := time.Duration(cfg.Database.CallTimeoutMs) * time.Millisecond

	a.search = searchrepo.New(a.store, prefix)
	answers := answerrepo.New(a.store, prefix)
	corpus := corpusrepo.New(a.store, prefix)

	ts := cfg.TextService
	ring := keyring.Load(keyring.Sources{
		Primary:   ts.APIKey,
		EnvPrefix: ts.APIKeyEnvPrefix,
		List:      ts.APIKeys,
	})
	if active, ok := ring.Active(); ok {
		logger.Info("Text Service credentials loaded",
			zap.String("provider", ts.Provider),
			zap.Int("pool_size", ring.Len()),
			zap.String("active", keyring.Mask(active)),
		)
	} else {
		logger.Warn("No Text Service credentials configured; every query will degrade to the apology")
	}

	// Single BudgetTracker shared by the Text Service client and /api/usage.
	action := textservice.BudgetActionWarn
	if ts.Budget.Action == "reject" {
		action = textservice.BudgetActionReject
	}
	a.budget = textservice.NewBudgetTracker(
		ts.Provider, ts.Budget.DailyTokenLimit, ts.Budget.MonthlyTokenLimit, action, logger,
	).WithStore(ctx, budgetrepo.New(a.store, prefix, 48*time.Hour, 62*24*time.Hour))

	a.text = textservice.New(ring, providerFactory(ts, logger), logger,
		textservice.WithBudget(a.budget),
		textservice.WithCallTimeout(time.Duration(ts.CallTimeoutSec)*time.Second),
	)

	// Query embedder chain: Text Service -> Cached -> Instruction (outermost, so the cache key includes it)
	var embedder domain.Embedder = a.text
	if cfg.Storage.EmbeddingCache {
		embedder = embcache.New(embedder, a.store, prefix, ts.EmbedModel, metrics.EmbeddingCacheTotal, logger)
	}
	if ts.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, ts.QueryInstruction)
	}

	a.vocab = vocabulary.NewCache(corpus, logger)
	norm := normalize.New(a.vocab, a.text, logger)

	resolver := conversation.New(conversation.Config{
		Anchors:         cfg.Context.Anchors,
		FactKeywords:    cfg.Context.FactKeywords,
		DefaultDepth:    cfg.Context.DefaultDepth,
		AnchorDepth:     cfg.Context.AnchorDepth,
		FactDepth:       cfg.Context.FactDepth,
		AnchorMaxTokens: cfg.Context.AnchorMaxTokens,
		MergeMaxTokens:  cfg.Context.MergeMaxTokens,
	})

	rc := cfg.Retrieval
	coordinator := retrieval.New(retrieval.Config{
		SearchThreshold:     rc.SearchThreshold,
		FastPathThreshold:   rc.FastPathThreshold,
		ConfidenceFloor:     rc.ConfidenceFloor,
		AmbiguityGap:        rc.AmbiguityGap,
		StrongMatch:         rc.StrongMatch,
		ListCeiling:         rc.ListCeiling,
		ListSize:            rc.ListSize,
		ShortQueryTokens:    rc.ShortQueryTokens,
		SynthesizeMinTokens: rc.SynthesizeMinTokens,
		FallbackMode:        rc.FallbackMode,
		InfoURL:             rc.InfoURL,
		LabelStripWords:     rc.LabelStripWords,
		StoreTimeout:        storeTimeout,
	}, embedder, a.text, a.search, answers, norm, logger)

	a.chat = chatuc.New(resolver, coordinator, cfg.Chat.MaxQuestionLen)
	a.health = healthuc.New(a.store, a.text)
}

// providerFactory binds one credential to a provider client.
func providerFactory(ts config.TextServiceConfig, logger *zap.Logger) textservice.ProviderFactory {
	return func(ctx context.Context, key string) (domain.TextProvider, error) {
		switch ts.Provider {
		case "openai":
			return openaiText.New(&openaiText.Config{
				APIKey:      key,
				BaseURL:     ts.BaseURL,
				ChatModel:   ts.ChatModel,
				EmbedModel:  ts.EmbedModel,
				Dimensions:  ts.Dimensions,
				Temperature: ts.Temperature,
				MaxTokens:   ts.MaxOutputTokens,
				Logger:      logger,
			}), nil
		default:
			p, err := genaiText.New(ctx, &genaiText.Config{
				APIKey:      key,
				BaseURL:     ts.BaseURL,
				ChatModel:   ts.ChatModel,
				EmbedModel:  ts.EmbedModel,
				Dimensions:  ts.Dimensions,
				Temperature: ts.Temperature,
				MaxTokens:   ts.MaxOutputTokens,
				Logger:      logger,
			})
			if err != nil {
				return nil, fmt.Errorf("genai provider: %w", err)
			}
			return p, nil
		}
	}
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}
