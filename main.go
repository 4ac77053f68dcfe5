package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"github.com/nungthesnail/telegram-ai/pkg/api"
	"github.com/nungthesnail/telegram-ai/pkg/database"
	"github.com/nungthesnail/telegram-ai/pkg/logger"
	"github.com/nungthesnail/telegram-ai/pkg/openai"
	"github.com/nungthesnail/telegram-ai/pkg/repository"
	"github.com/nungthesnail/telegram-ai/pkg/service"
	"github.com/nungthesnail/telegram-ai/pkg/services"
	"github.com/nungthesnail/telegram-ai/pkg/tools"
)

type Config struct {
	OpenAIToken          string        `env:"OPEN_AI_TOKEN,required"`
	OpenAIBaseURL        string        `env:"OPEN_AI_BASE_URL"`
	OpenAITimeout        time.Duration `env:"OPEN_AI_TIMEOUT" envDefault:"2m"`
	PgURL                string        `env:"DATABASE_URL,required"`
	HTTPAddr             string        `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret            string        `env:"JWT_SECRET,required"`
	RateLimitPerSecond   float64       `env:"RATE_LIMIT_PER_SECOND" envDefault:"1"`
	RateLimitBurst       int           `env:"RATE_LIMIT_BURST" envDefault:"5"`
	SystemPromptFile     string        `env:"SYSTEM_PROMPT_FILE"`
	ToolsDescriptionFile string        `env:"TOOLS_DESCRIPTION_FILE"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"debug"`
	LogNoColor           bool          `env:"LOG_NO_COLOR" envDefault:"false"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing env config: %w", err)
	}

	opts := *logger.DefaultOptions
	opts.Level = logger.ParseLevel(cfg.LogLevel)
	opts.NoColor = cfg.LogNoColor
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &opts)))

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	group, err := setupServices(ctx, cfg)
	if err != nil {
		return err
	}

	return group.Run(ctx)
}

func setupServices(ctx context.Context, cfg Config) (service.Group, error) {
	db, err := database.NewPostgres(ctx, cfg.PgURL)
	if err != nil {
		return nil, fmt.Errorf("creating db: %w", err)
	}

	openAIClient, err := openai.NewClient(cfg.OpenAIToken, cfg.OpenAIBaseURL, cfg.OpenAITimeout)
	if err != nil {
		return nil, fmt.Errorf("creating open ai client: %w", err)
	}

	toolFunctions := []services.ToolFunction{
		tools.NewPublishPost(),
	}

	toolService, err := services.NewToolService(toolFunctions)
	if err != nil {
		return nil, fmt.Errorf("creating tool service: %w", err)
	}

	modelConfig, err := repository.NewModelConfigRepository(cfg.SystemPromptFile, cfg.ToolsDescriptionFile, toolService.Describe)
	if err != nil {
		return nil, fmt.Errorf("loading model configuration: %w", err)
	}

	subscriptionRepository := repository.NewSubscriptionRepository(db)
	modelService := services.NewModelService(repository.NewLLMModelRepository(db))

	dialogService := services.NewDialogService(
		repository.NewDialogRepository(db),
		repository.NewMessageRepository(db),
		repository.NewChannelRepository(db),
		subscriptionRepository,
		modelService,
		modelConfig,
		services.NewAssistantService(openAIClient, toolService),
	)

	router := api.NewRouter(
		api.RouterConfig{
			JWTSecret:          cfg.JWTSecret,
			RateLimitPerSecond: cfg.RateLimitPerSecond,
			RateLimitBurst:     cfg.RateLimitBurst,
		},
		dialogService,
		modelService,
		subscriptionRepository,
	)

	return service.Group{
		service.NewHTTPServer(cfg.HTTPAddr, router),
	}, nil
}
