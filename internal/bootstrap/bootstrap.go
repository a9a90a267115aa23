package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"voicetrim-server-go/internal/app/services"
	domainauth "voicetrim-server-go/internal/domain/auth"
	"voicetrim-server-go/internal/domain/eventbus"
	"voicetrim-server-go/internal/domain/governor"
	"voicetrim-server-go/internal/domain/llm"
	sessionstore "voicetrim-server-go/internal/domain/session/store"
	"voicetrim-server-go/internal/domain/tts"
	platformconfig "voicetrim-server-go/internal/platform/config"
	platformerrors "voicetrim-server-go/internal/platform/errors"
	platformlogging "voicetrim-server-go/internal/platform/logging"
	platformstorage "voicetrim-server-go/internal/platform/storage"
	httptransport "voicetrim-server-go/internal/transport/http"
	httpwebapi "voicetrim-server-go/internal/transport/http/webapi"
	wstransport "voicetrim-server-go/internal/transport/ws"

	// provider registration
	_ "voicetrim-server-go/internal/domain/llm/openai"
	_ "voicetrim-server-go/internal/domain/tts/edge"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger

	exchanges *platformstorage.ExchangeRepository
	sessions  sessionstore.Store

	llmProvider llm.Provider
	ttsProvider tts.Provider

	conversation *services.ConversationService
}

// Run drives the whole service lifecycle: configuration, dependency
// initialization, serving and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	defer func() {
		if state.sessions != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := state.sessions.Close(closeCtx); err != nil {
				logger.WarnTag("Session", "session store close failed: %v", err)
			}
		}
		if state.llmProvider != nil {
			if err := state.llmProvider.Cleanup(); err != nil {
				logger.WarnTag("LLM", "provider cleanup failed: %v", err)
			}
		}
		if state.ttsProvider != nil {
			if err := state.ttsProvider.Cleanup(); err != nil {
				logger.WarnTag("TTS", "provider cleanup failed: %v", err)
			}
		}
		logger.Close()
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if err := startServices(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("Boot", "all services stopped")
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("Boot", "initialization overview")
	for _, step := range steps {
		logger.InfoTag("Boot", "  %s", step.Title)
	}
	logger.InfoTag("Boot", "starting services")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph declares the ordered initialization steps with their dependencies.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:open",
			Title:     "Open exchange storage",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   openStorageStep,
		},
		{
			ID:        "session:init-store",
			Title:     "Initialise session store",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindSession,
			Execute:   initSessionStoreStep,
		},
		{
			ID:        "providers:init",
			Title:     "Initialise LLM and TTS providers",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindProvider,
			Execute:   initProvidersStep,
		},
		{
			ID:        "pipeline:init",
			Title:     "Initialise conversation pipeline",
			DependsOn: []string{"storage:open", "session:init-store", "providers:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initPipelineStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	config, path, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = config
	state.configPath = path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init", "config not loaded")
	}

	logger, err := platformlogging.NewLogger(&platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "failed to initialize logging", err)
	}

	state.logger = logger
	platformlogging.DefaultLogger = logger

	logger.InfoTag("Boot", "logging ready [%s] %s", state.config.Log.Level, state.configPath)

	setupEventLogging(logger)
	return nil
}

func openStorageStep(_ context.Context, state *appState) error {
	if !state.config.Storage.Enabled {
		state.logger.InfoTag("Storage", "exchange storage disabled")
		return nil
	}

	db, err := platformstorage.Open(state.config.Storage.Path)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:open", "failed to open database", err)
	}
	state.exchanges = platformstorage.NewExchangeRepository(db)
	state.logger.InfoTag("Storage", "exchange storage ready at %s", state.config.Storage.Path)
	return nil
}

func initSessionStoreStep(_ context.Context, state *appState) error {
	cfg := state.config.Session

	storeCfg := sessionstore.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Driver)),
		TTL:    cfg.TTL,
	}
	switch storeCfg.Driver {
	case sessionstore.DriverRedis:
		storeCfg.Redis = &sessionstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
	case sessionstore.DriverMemory, "":
		storeCfg.Driver = sessionstore.DriverMemory
		if cfg.Memory.GCInterval > 0 {
			storeCfg.Memory = &sessionstore.MemoryConfig{GCInterval: cfg.Memory.GCInterval}
		}
	}

	sessions, err := sessionstore.New(storeCfg)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "session:init-store", "failed to create session store", err)
	}
	state.sessions = sessions
	state.logger.InfoTag("Session", "session store ready (%s)", storeCfg.Driver)
	return nil
}

func initProvidersStep(_ context.Context, state *appState) error {
	config := state.config

	llmName := config.Selected.LLM
	llmCfg, ok := config.LLM[llmName]
	if !ok {
		return platformerrors.New(platformerrors.KindProvider, "providers:init",
			fmt.Sprintf("selected LLM %q not configured", llmName))
	}
	llmProvider, err := llm.Create(llmCfg.Type, &llm.Config{
		Type:        llmCfg.Type,
		ModelName:   llmCfg.ModelName,
		BaseURL:     llmCfg.BaseURL,
		APIKey:      llmCfg.APIKey,
		Temperature: llmCfg.Temperature,
		MaxTokens:   llmCfg.MaxTokens,
		Timeout:     llmCfg.Timeout,
	}, state.logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindProvider, "providers:init", "failed to create LLM provider", err)
	}
	state.llmProvider = llmProvider
	state.logger.InfoTag("LLM", "provider ready: %s (%s)", llmName, llmCfg.ModelName)

	ttsName := config.Selected.TTS
	ttsCfg, ok := config.TTS[ttsName]
	if !ok {
		return platformerrors.New(platformerrors.KindProvider, "providers:init",
			fmt.Sprintf("selected TTS %q not configured", ttsName))
	}
	ttsProvider, err := tts.Create(ttsCfg.Type, &tts.Config{
		Type:       ttsCfg.Type,
		Voice:      ttsCfg.Voice,
		Format:     ttsCfg.Format,
		OutputDir:  ttsCfg.OutputDir,
		DeleteFile: ttsCfg.DeleteFile,
	}, state.logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindProvider, "providers:init", "failed to create TTS provider", err)
	}
	state.ttsProvider = ttsProvider
	state.logger.InfoTag("TTS", "provider ready: %s (%s)", ttsName, ttsCfg.Voice)

	return nil
}

func initPipelineStep(_ context.Context, state *appState) error {
	config := state.config

	var estimator governor.Estimator
	switch config.Governor.Estimator {
	case "synthesis":
		estimator = tts.NewDurationEstimator(state.ttsProvider)
		state.logger.InfoTag("Governor", "using synthesis-measured duration estimation")
	default:
		estimator = governor.NewWordRateEstimator()
	}

	gov, err := governor.New(governor.Policy{
		MaxDuration: config.Governor.MaxAudioLengthSeconds,
		MaxAttempts: config.Governor.MaxAttempts,
	}, estimator, llm.NewShortener(state.llmProvider), state.logger)
	if err != nil {
		return err
	}

	conversation, err := services.NewConversationService(&services.ConversationConfig{
		LLM:           state.llmProvider,
		Governor:      gov,
		TTS:           state.ttsProvider,
		Sessions:      state.sessions,
		Exchanges:     state.exchanges,
		Logger:        state.logger,
		SystemPrompt:  config.System.Prompt,
		HistoryWindow: config.Session.HistoryWindow,
	})
	if err != nil {
		return err
	}
	state.conversation = conversation

	state.logger.InfoTag("Governor", "policy: max %.1fs, %d rewrite attempts",
		config.Governor.MaxAudioLengthSeconds, config.Governor.MaxAttempts)
	return nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	if err := startWebSocketServer(state, g, groupCtx); err != nil {
		return fmt.Errorf("start websocket server: %w", err)
	}

	if state.config.Web.Enabled {
		if err := startHTTPServer(state, g, groupCtx); err != nil {
			return fmt.Errorf("start http server: %w", err)
		}
	}

	return nil
}

func startWebSocketServer(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	config := state.config
	logger := state.logger

	hub := wstransport.NewHub(logger)
	router := wstransport.NewRouter(hub, logger, wstransport.RouterOptions{})

	addr := fmt.Sprintf("%s:%d", config.Server.IP, config.Server.Port)
	server := wstransport.NewServer(wstransport.ServerConfig{
		Addr: addr,
		Path: "/",
	}, router, hub, logger)

	conversation := state.conversation
	server.SetHandlerBuilder(func(conn *wstransport.Connection, req *http.Request) (wstransport.SessionHandler, error) {
		return wstransport.NewChatHandler(req.Context(), conn, conversation, logger), nil
	})

	g.Go(func() error {
		if err := server.Start(groupCtx); err != nil {
			logger.ErrorTag("WebSocket", "server failed: %v", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		if err := server.Stop(); err != nil {
			logger.ErrorTag("WebSocket", "server shutdown failed: %v", err)
		}
		return nil
	})

	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	config := state.config
	logger := state.logger

	token := domainauth.NewToken(config.Server.AuthSecret)

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:         config,
		Logger:         logger,
		AuthMiddleware: httpwebapi.AuthMiddleware(token, logger),
		StaticRoot:     config.Web.StaticDir,
	})
	if err != nil {
		return err
	}
	router := httpRouter.Engine

	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") {
			httptransport.RespondError(c, http.StatusNotFound, "api not found")
			return
		}

		c.File("./web/index.html")
	})

	webapiService, err := httpwebapi.NewService(config, state.conversation, state.exchanges, logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create webapi service", err)
	}

	if err := webapiService.Register(groupCtx, httpRouter.API); err != nil {
		return err
	}
	if httpRouter.Secured != nil {
		webapiService.RegisterSecured(httpRouter.Secured)
	}

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(config.Web.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "serving on http://localhost:%d", config.Web.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("Boot", "received %v, shutting down", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("Boot", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("Boot", "all services closed")
	case <-time.After(15 * time.Second):
		timeoutErr := errors.New("shutdown timed out")
		logger.ErrorTag("Boot", "shutdown timed out, forcing exit")
		return timeoutErr
	}
	return nil
}

// setupEventLogging mirrors pipeline events into the structured log.
func setupEventLogging(logger *platformlogging.Logger) {
	_ = eventbus.SubscribeAsync(eventbus.EventGovernorVerdict, func(data eventbus.GovernorEventData) {
		logger.InfoTag("Governor", "session %s: %s in %.2fs (attempts=%d)",
			data.SessionID, data.Verdict, data.Duration, data.Attempts)
	})
	_ = eventbus.SubscribeAsync(eventbus.EventTTSCompleted, func(data eventbus.TTSEventData) {
		logger.DebugTag("TTS", "session %s: synthesized %q", data.SessionID, data.FilePath)
	})
	_ = eventbus.SubscribeAsync(eventbus.EventSystemError, func(data eventbus.SystemEventData) {
		logger.ErrorTag("Boot", "%s", data.Message)
	})
	_ = eventbus.SubscribeAsync(eventbus.EventLLMError, func(data eventbus.SystemEventData) {
		logger.WarnTag("LLM", "%s", data.Message)
	})
	_ = eventbus.SubscribeAsync(eventbus.EventTTSError, func(data eventbus.SystemEventData) {
		logger.WarnTag("TTS", "%s", data.Message)
	})
}
