package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchagent/internal/config"
	dbRedis "github.com/kailas-cloud/searchagent/internal/db/redis"
	"github.com/kailas-cloud/searchagent/internal/metrics"
	"github.com/kailas-cloud/searchagent/internal/repository/answercache"
	"github.com/kailas-cloud/searchagent/internal/resilience"
	"github.com/kailas-cloud/searchagent/internal/transport/bedrock"
	mcpTransport "github.com/kailas-cloud/searchagent/internal/transport/mcp"
	openaiTransport "github.com/kailas-cloud/searchagent/internal/transport/openai"
	"github.com/kailas-cloud/searchagent/internal/transport/ragapi"
	healthuc "github.com/kailas-cloud/searchagent/internal/usecase/health"
	searchuc "github.com/kailas-cloud/searchagent/internal/usecase/search"
)

// app is the assembled object graph.
type app struct {
	search  *searchuc.Service
	health  *healthuc.Service
	closers []func()
}

// Close releases connections held by the graph.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp is the composition root: drivers, decorators, orchestrator, health.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	// Register metrics explicitly (no init())
	metrics.RegisterUpstreamMetrics()
	metrics.RegisterSearchMetrics()

	a := &app{}
	checkers := make(map[string]healthuc.Checker)

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := bedrock.LoadConfig(ctx, cfg.AWS.Region)
		if err != nil {
			return aws.Config{}, err //nolint:wrapcheck // already wrapped
		}
		awsCfg = &c
		return c, nil
	}

	// Retrieval
	var retriever resilience.Retriever
	switch cfg.Retrieval.Driver {
	case config.DriverBedrock:
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		retriever = bedrock.NewRetriever(bedrock.NewAgentRuntimeClient(ac), bedrock.RetrieverConfig{
			KnowledgeBaseID: cfg.Retrieval.KnowledgeBaseID,
			ModelARN:        bedrock.ModelARN(cfg.AWS.Region, cfg.Model.ID),
			NumberOfResults: cfg.Retrieval.NumberOfResults,
			Logger:          logger,
		})
		checkers["retrieval"] = bedrock.NewCredentialsChecker(ac)
	case config.DriverHTTP:
		rag := ragapi.NewRetriever(ragapi.Config{
			Endpoint:        cfg.Retrieval.Endpoint,
			Model:           cfg.Model.ID,
			NumberOfResults: cfg.Retrieval.NumberOfResults,
			APIKey:          cfg.Retrieval.APIKey,
			Timeout:         cfg.RetrievalTimeout(),
		})
		retriever = rag
		checkers["retrieval"] = rag
	default:
		return nil, fmt.Errorf("unknown retrieval driver %q", cfg.Retrieval.Driver)
	}

	// Answer cache sits inside the resilience policy so hits skip retries entirely.
	var cache healthuc.CachePinger
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create cache store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			a.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to answer cache", zap.Strings("addrs", cfg.Cache.Addrs))
		retriever = answercache.New(retriever, store, cfg.Model.ID,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.AnswerCacheTotal, logger)
		cache = store
	}
	retriever = resilience.NewRetriever(retriever,
		resilience.NewPolicy("retrieval", policyConfig(cfg.Resilience, *cfg.Retrieval.Retries)))

	// Personalization; a nil interface disables the branch.
	var personalizer searchuc.Personalizer
	if cfg.Personalization.Driver == config.DriverMCP {
		var selector mcpTransport.Selector = mcpTransport.KeywordSelector{}
		if cfg.Personalization.Selector == config.SelectorOpenAI {
			selector = openaiTransport.NewSelector(&openaiTransport.Config{
				APIKey:  cfg.OpenAI.APIKey,
				BaseURL: cfg.OpenAI.BaseURL,
				Model:   cfg.OpenAI.ClassifierModel,
				Logger:  logger,
			})
		}
		mcp := mcpTransport.NewPersonalizer(
			mcpTransport.HTTPDialer(cfg.Personalization.GatewayURL, cfg.Personalization.AuthToken,
				cfg.PersonalizationTimeout()),
			selector, logger,
		)
		checkers["personalization"] = mcp
		personalizer = resilience.NewPersonalizer(mcp,
			resilience.NewPolicy("personalization", policyConfig(cfg.Resilience, *cfg.Personalization.Retries)))
	}

	// Safety
	var validator resilience.Validator
	switch cfg.Safety.Driver {
	case config.DriverBedrock:
		ac, err := loadAWS()
		if err != nil {
			a.Close()
			return nil, err
		}
		validator = bedrock.NewGuardrail(bedrock.NewRuntimeClient(ac), cfg.Safety.GuardrailID, cfg.Safety.GuardrailVersion)
		checkers["safety"] = bedrock.NewCredentialsChecker(ac)
	case config.DriverOpenAI:
		mod := openaiTransport.NewModerator(&openaiTransport.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.ModerationModel,
			Logger:  logger,
		})
		validator = mod
		checkers["safety"] = mod
	default:
		a.Close()
		return nil, fmt.Errorf("unknown safety driver %q", cfg.Safety.Driver)
	}
	validator = resilience.NewValidator(validator,
		resilience.NewPolicy("safety", policyConfig(cfg.Resilience, *cfg.Safety.Retries)))

	a.search = searchuc.New(searchuc.Config{
		RetrievalTimeout:       cfg.RetrievalTimeout(),
		PersonalizationTimeout: cfg.PersonalizationTimeout(),
		SafetyTimeout:          cfg.SafetyTimeout(),
	}, retriever, personalizer, validator)

	// Without the safety gate every answer is a refusal, so it is the only critical check.
	a.health = healthuc.New(cache, checkers, "safety")
	return a, nil
}

func policyConfig(rc config.ResilienceConfig, retries int) resilience.Config {
	return resilience.Config{
		Retries:             retries,
		BackoffBase:         time.Duration(rc.BackoffBaseMs) * time.Millisecond,
		BackoffMax:          time.Duration(rc.BackoffMaxMs) * time.Millisecond,
		Jitter:              time.Duration(rc.JitterMs) * time.Millisecond,
		BreakerErrorPercent: rc.BreakerErrorPercent,
		BreakerMinRequests:  rc.BreakerMinRequests,
		BreakerOpen:         time.Duration(rc.BreakerOpenSec) * time.Second,
	}
}
