package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/config"
	"github.com/youthloop/webgate/internal/handler"
	"github.com/youthloop/webgate/internal/notification"
	"github.com/youthloop/webgate/internal/ratelimit"
	"github.com/youthloop/webgate/internal/session"
	"github.com/youthloop/webgate/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra   Infrastructure
	config  *config.Config
	router  *gin.Engine
	server  *http.Server
	sweeper context.CancelFunc
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	metrics, err := observability.NewSessionMetrics(infra.MeterProvider().Meter("webgate"))
	if err != nil {
		return nil, fmt.Errorf("failed to create session metrics: %w", err)
	}

	store := session.NewRedisCredentialStore(infra.Redis(), cfg.Session.TTL.Duration)
	registry := session.NewRegistry(store, infra.Upstream().User(), cfg.Session.TTL.Duration, infra.Logger())
	hub := notification.NewHub(infra.Upstream().Notifications(), store, cfg.Upstream.NotifyPageSize, infra.Logger())
	codec := session.NewCookieCodec(cfg.Session.Secret, cfg.Session.TTL.Duration)
	rateLimiter := ratelimit.New(infra.Redis(), cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration)
	healthChecker := NewHealthChecker(infra)

	cookie := handler.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}

	authHandler := handler.NewAuthHandler(infra.Upstream(), store, metrics, infra.Logger())
	sessionHandler := handler.NewSessionHandler(
		infra.Upstream(),
		store,
		registry,
		hub,
		metrics,
		infra.Logger(),
		cookie,
		cfg.Locale.Supported,
		cfg.Locale.Default,
	)
	notificationHandler := handler.NewNotificationHandler(infra.Logger())
	pageHandler := handler.NewPageHandler(cfg.Locale.Supported, cfg.Locale.Default)

	router := gin.Default()
	router.Use(otelgin.Middleware("webgate"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, setup{
		session:       handler.SessionMiddleware(registry, hub, codec, cookie, metrics),
		auth:          authHandler,
		sessions:      sessionHandler,
		notifications: notificationHandler,
		pages:         pageHandler,
		rateLimiter:   rateLimiter,
		metrics:       metrics,
		health:        healthChecker,
		metricsOut:    infra.MetricsHandler(),
		logger:        infra.Logger(),
	})

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	registry.StartSweeper(sweepCtx, cfg.Session.SweepEvery.Duration, hub.Drop)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:   infra,
		config:  cfg,
		router:  router,
		server:  srv,
		sweeper: stopSweeper,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

type setup struct {
	session       gin.HandlerFunc
	auth          *handler.AuthHandler
	sessions      *handler.SessionHandler
	notifications *handler.NotificationHandler
	pages         *handler.PageHandler
	rateLimiter   *ratelimit.Limiter
	metrics       *observability.SessionMetrics
	health        *HealthChecker
	metricsOut    http.Handler
	logger        *zap.Logger
}

func setupRoutes(router *gin.Engine, cfg *config.Config, s setup) {
	router.GET("/metrics", observability.PrometheusHandler(s.metricsOut))
	router.GET("/health", s.health.Handler)

	throttle := handler.RateLimitMiddleware(s.rateLimiter, s.logger, handler.IPBasedKey)

	api := router.Group("/api/v1", s.session)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/otp/email", throttle, s.auth.SendOTP)
			auth.POST("/register/email", throttle, s.auth.Register)
			auth.POST("/login/password", throttle, s.auth.LoginWithPassword)
			auth.POST("/login/otp", throttle, s.auth.LoginWithEmailOTP)
			auth.POST("/login/google", throttle, s.auth.LoginWithGoogle)
			auth.POST("/password/reset", throttle, s.auth.ResetPassword)
		}

		sess := api.Group("/session")
		{
			sess.GET("", s.sessions.Snapshot)
			sess.PATCH("/profile", s.sessions.UpdateProfile)
			sess.POST("/profile/refresh", s.sessions.RefreshProfile)
			sess.POST("/token/renew", s.sessions.RenewToken)
			sess.POST("/logout", s.sessions.Logout)
		}

		me := api.Group("/me")
		{
			me.GET("/notifications", s.notifications.List)
			me.POST("/notifications/read", s.notifications.MarkRead)
			me.POST("/notifications/refresh", s.notifications.Refresh)
		}
	}

	guard := func(requireAuth bool) gin.HandlerFunc {
		return handler.Guard(handler.GuardConfig{
			RequireAuth:   requireAuth,
			Locales:       cfg.Locale.Supported,
			DefaultLocale: cfg.Locale.Default,
			Metrics:       s.metrics,
		})
	}

	pages := router.Group("/:locale", s.session)
	{
		public := pages.Group("", guard(false))
		{
			public.GET("", s.pages.Shell("home"))
			public.GET("/login", s.pages.Shell("login"))
			public.GET("/register", s.pages.Shell("register"))
			public.GET("/reset-password", s.pages.Shell("reset-password"))
			public.GET("/activities", s.pages.Shell("activities"))
			public.GET("/activities/:id", s.pages.Shell("activity"))
			public.GET("/science", s.pages.Shell("science"))
			public.GET("/science/:id", s.pages.Shell("science-article"))
			public.GET("/about", s.pages.Shell("about"))
		}

		protected := pages.Group("", guard(true))
		{
			protected.GET("/profile", s.pages.Shell("profile"))
			protected.GET("/profile/edit", s.pages.Shell("profile-edit"))
			protected.GET("/notifications", s.pages.Shell("notifications"))
			protected.GET("/points", s.pages.Shell("points"))
			protected.GET("/my-activities", s.pages.Shell("my-activities"))
			protected.GET("/settings", s.pages.Shell("settings"))
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	a.sweeper()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
