// Command swingdesk runs the multi-agent swing-trading service: an HTTP API
// over a DAG engine that screens the market, analyzes candidates and places
// paper trades.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/agents/scouting"
	"github.com/swingdesk/swingdesk/agents/sentiment"
	"github.com/swingdesk/swingdesk/agents/strategist"
	"github.com/swingdesk/swingdesk/agents/technical"
	"github.com/swingdesk/swingdesk/api"
	"github.com/swingdesk/swingdesk/cache"
	"github.com/swingdesk/swingdesk/config"
	"github.com/swingdesk/swingdesk/dag"
	"github.com/swingdesk/swingdesk/llm"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/market"
	"github.com/swingdesk/swingdesk/observability"
	"github.com/swingdesk/swingdesk/tools"
	"github.com/swingdesk/swingdesk/version"
)

const serviceName = "swingdesk"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logger.NewDefault(serviceName).Fatal("config load failed", logger.Fields(logger.FieldError, err.Error()))
	}
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}
	logger.Init(cfg.Logging, cfg.Name)
	log := logger.Global()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("startup failed", logger.Fields(logger.FieldError, err.Error()))
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	var middlewares []dag.Middleware

	if cfg.Telemetry.Enabled {
		tracerCfg := observability.DefaultTracerConfig(cfg.Name)
		tracerCfg.ServiceVersion = cfg.Version
		tracerCfg.Environment = cfg.Environment
		tracerCfg.Endpoint = cfg.Telemetry.Endpoint
		tracerCfg.SampleRate = cfg.Telemetry.SampleRate

		tp, err := observability.InitTracer(ctx, tracerCfg)
		if err != nil {
			return err
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()

		meterCfg := observability.DefaultMeterConfig(cfg.Name)
		meterCfg.ServiceVersion = cfg.Version
		meterCfg.Environment = cfg.Environment
		meterCfg.Endpoint = cfg.Telemetry.Endpoint

		mp, err := observability.InitMeter(ctx, &meterCfg)
		if err != nil {
			return err
		}
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
		if err != nil {
			return err
		}
		middlewares = append(middlewares, dag.WithTracing(cfg.Name), dag.WithMetrics(metrics))
	}
	middlewares = append(middlewares, dag.WithRunLogging(log))

	// Result cache: Redis when configured, in-process otherwise.
	var store cache.Store
	var cacheHealth observability.HealthChecker
	if cfg.Cache.Redis.Enabled {
		redisStore := cache.NewRedis(cfg.Cache.Redis, cfg.Cache.TTL, log)
		defer func() { _ = redisStore.Close() }()
		store, cacheHealth = redisStore, redisStore
	} else {
		memStore := cache.NewMemory(cfg.Cache.TTL)
		store, cacheHealth = memStore, memStore
	}

	provider, err := market.NewYahoo()
	if err != nil {
		return err
	}
	reason := llm.NewOpenAI(cfg.LLM)
	broker := strategist.NewPaperBroker(log)

	toolReg := tools.NewRegistry(log)
	sources, err := sentiment.NewSources(cfg.Sentiment.Sources, store, log)
	if err != nil {
		return err
	}
	if err := sources.Register(toolReg); err != nil {
		return err
	}

	registry := dag.NewRegistry()
	registry.MustRegister("scouting", scouting.NewFactory(provider, log))
	registry.MustRegister("technical", technical.NewFactory(provider, log))
	registry.MustRegister("sentiment", sentiment.NewFactory(toolReg, reason, sentiment.PolicyFromConfig(cfg.Sentiment), log))
	registry.MustRegister("strategist", strategist.NewFactory(reason, broker, cfg.Trading, log))

	history := dag.NewHistory(cfg.Engine.HistoryLimit)
	engine := dag.NewEngine(registry, log,
		dag.WithCache(store),
		dag.WithHistory(history),
		dag.WithMaxParallel(cfg.Engine.MaxParallel),
		dag.WithAgentTimeout(cfg.Engine.AgentTimeout),
		dag.WithMiddleware(middlewares...),
	)

	graph, err := dag.LoadGraph(
		"./cmd/swingdesk/graph.yml",
		"../cmd/swingdesk/graph.yml",
		"./graph.yml",
	)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Server, log)
	handlers := api.NewHandlers(engine, graph, registry, toolReg, history,
		cfg.Name, cfg.Version, log,
		cacheHealth, reason, broker,
	)
	handlers.Register(server.GinEngine())

	if err := server.Start(ctx); err != nil {
		return err
	}

	if cfg.Server.RunOnStartup {
		go func() {
			result, err := engine.Run(ctx, graph, agent.Input{})
			if err != nil {
				log.Error("startup run failed", logger.Fields(logger.FieldError, err.Error()))
				return
			}
			log.Info("startup run finished", logger.Fields(
				"execution_id", result.ID,
				logger.FieldStatus, string(result.Status),
			))
		}()
	}

	<-ctx.Done()
	log.Info("shutdown signal received")
	return server.Stop(context.Background())
}
