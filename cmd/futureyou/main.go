package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/futureyou/futureyou-os/internal/cache"
	"github.com/futureyou/futureyou-os/internal/cli"
	"github.com/futureyou/futureyou-os/internal/coach"
	"github.com/futureyou/futureyou-os/internal/config"
	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/learning"
	"github.com/futureyou/futureyou-os/internal/llm"
	"github.com/futureyou/futureyou-os/internal/memory"
	"github.com/futureyou/futureyou-os/internal/repository"
	"github.com/futureyou/futureyou-os/internal/service"
	"github.com/futureyou/futureyou-os/internal/synthesis"
	"github.com/futureyou/futureyou-os/internal/usermodel"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := cfg.NewLogger()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	userRepo := repository.NewSQLiteUserRepo(database)
	factsRepo := repository.NewSQLiteUserFactsRepo(database)
	habitRepo := repository.NewSQLiteHabitRepo(database)
	completionRepo := repository.NewSQLiteCompletionRepo(database)
	eventRepo := repository.NewSQLiteEventRepo(database)
	learnedRepo := repository.NewSQLiteLearnedModelRepo(database)
	memoryRepo := repository.NewSQLiteMemoryRepo(database)

	uow := db.NewSQLiteUnitOfWork(database)

	// Derived models sit behind advisory caches.
	deepCache := cache.NewExpirable[*domain.DeepUserModel](cfg.Cache.Size, cfg.Cache.DeepModelTTL)
	learnedCache := cache.NewExpirable[*domain.LearnedUserModel](cfg.Cache.Size, cfg.Cache.LearnedModelTTL)
	learned := usermodel.NewLearnedStore(learnedRepo, learnedCache, deepCache)
	builder := usermodel.NewBuilder(usermodel.Repos{
		Users:       userRepo,
		Facts:       factsRepo,
		Habits:      habitRepo,
		Completions: completionRepo,
		Events:      eventRepo,
	}, learned, deepCache)

	llmCfg, err := llm.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading llm config: %w", err)
	}
	var llmObserver llm.Observer = llm.NoopObserver{}
	var observers []service.UseCaseObserver
	if llmCfg.LogCalls || cfg.LogCalls {
		llmObserver = llm.NewLogObserver(logger)
		observers = append(observers, service.NewLogUseCaseObserver(os.Stderr))
	}
	gen, err := llm.NewFromConfig(ctx, llmCfg, llmObserver)
	if err != nil {
		// Generation degrades to fallback text rather than refusing to start.
		logger.Warn("llm unavailable, using fallback messages", "error", err)
		gen = llm.Disabled{}
	}

	mem, err := memory.NewFromConfig(ctx, cfg.Memory, memoryRepo, logger)
	if err != nil {
		logger.Warn("semantic memory unavailable", "error", err)
		mem = memory.Disabled{}
	}

	engineOpts := []coach.Option{
		coach.WithMemory(mem),
		coach.WithLearning(learned, learning.DefaultClassifiers()),
		coach.WithLogger(logger),
	}
	workerOpts := []learning.WorkerOption{learning.WithWorkerLogger(logger)}
	for _, o := range observers {
		engineOpts = append(engineOpts, coach.WithObserver(o))
		workerOpts = append(workerOpts, learning.WithWorkerObserver(o))
	}
	engine := coach.NewEngine(synthesis.New(builder, mem), gen, eventRepo, engineOpts...)

	app := &cli.App{
		Users:       service.NewUserService(userRepo, factsRepo, uow, builder, observers...),
		Habits:      service.NewHabitService(userRepo, habitRepo, completionRepo, uow, builder, learned, observers...),
		Reflections: service.NewReflectionService(userRepo, eventRepo, mem, builder, observers...),
		Messages:    service.NewMessageService(eventRepo),
		Coach:       engine,
		Learner:     learning.NewWorker(eventRepo, learned, cfg.Worker, workerOpts...),
		DefaultUser: os.Getenv(config.Prefix + "USER"),
	}

	// Detect interactive terminal for the chat loop.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.ExecuteContext(ctx)
}
