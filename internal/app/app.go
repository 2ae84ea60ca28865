package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	swagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/nordveil/site-api/docs"
	"github.com/nordveil/site-api/internal/config"
	"github.com/nordveil/site-api/internal/emailer"
	contacthandler "github.com/nordveil/site-api/internal/handlers/contact"
	crmhandler "github.com/nordveil/site-api/internal/handlers/crm"
	newshandler "github.com/nordveil/site-api/internal/handlers/newsletter"
	"github.com/nordveil/site-api/internal/janitor"
	"github.com/nordveil/site-api/internal/logger"
	"github.com/nordveil/site-api/internal/metrics"
	"github.com/nordveil/site-api/internal/ratelimit"
	"github.com/nordveil/site-api/internal/repository"
	contactsvc "github.com/nordveil/site-api/internal/services/contact"
	crmsvc "github.com/nordveil/site-api/internal/services/crm"
	"github.com/nordveil/site-api/internal/services/email"
	newssvc "github.com/nordveil/site-api/internal/services/newsletter"
	"github.com/nordveil/site-api/internal/services/token"
	"github.com/nordveil/site-api/internal/services/verifier"

	_ "modernc.org/sqlite"
)

const (
	timeoutDuration = 5 * time.Second

	crmBreakerInterval = 30 * time.Second
	crmBreakerTimeout  = 15 * time.Second
	crmBreakerTrip     = 5
)

type App struct {
	cfg config.Config
	log *zap.Logger
}

type ServiceContainer struct {
	ContactService    *contactsvc.Service
	NewsletterService *newssvc.Service
	EmailService      *email.Service
	Verifier          *verifier.TurnstileClient
	LeadPusher        *crmsvc.BreakerClient
	SubRepository     *repository.SubscriberRepository
	Janitor           *janitor.Janitor
	Metrics           *metrics.Metrics

	ContactLimiter    *ratelimit.Limiter
	NewsletterLimiter *ratelimit.Limiter
	LeadLimiter       *ratelimit.Limiter

	Router *gin.Engine
	Srv    *http.Server
	Db     *sql.DB
	Rdb    *redis.Client
}

func New(cfg config.Config, log *zap.Logger) *App {
	return &App{
		cfg: cfg,
		log: log,
	}
}

func (a *App) Init() ServiceContainer {
	a.log.Info("initializing application", zap.String("addr", a.cfg.ServerAddress()))

	db, err := CreateSqliteDb(a.cfg.DB.Dialect, a.cfg.DB.Source)
	if err != nil {
		a.log.Panic("failed to open database", zap.Error(err))
	}

	if err := InitSqliteDb(db, a.cfg.DB.Dialect, a.cfg.DB.MigrationsPath); err != nil {
		a.log.Panic("failed to run migrations", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})

	m := metrics.NewMetrics("site_api", db, a.cfg.DB.Source)

	router := gin.New()
	router.Use(gin.Recovery(), m.HTTPMiddleware())

	apiServer := &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     router,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}

	smtpService, err := emailer.NewSMTPService(a.cfg.Email, a.log)
	if err != nil {
		a.log.Panic("failed to initialize SMTP service", zap.Error(err))
	}
	emailService := email.NewService(smtpService, a.cfg.TemplatesDir)

	subRepository := repository.NewSubscriberRepository(db, a.log)
	tokenIssuer := token.NewIssuer(a.cfg.Tokens.Secret, a.cfg.Tokens.TTL, a.cfg.BaseURL)

	httpLogClient := &http.Client{
		Transport: logger.NewRoundTripper(a.log),
		Timeout:   timeoutDuration,
	}

	turnstileClient := verifier.NewTurnstileClient(
		a.cfg.Turnstile.Secret,
		a.cfg.Turnstile.URL,
		httpLogClient,
		a.log,
	)

	var leadPusher *crmsvc.BreakerClient
	if a.cfg.CRM.WebhookURL != "" {
		webhookClient := crmsvc.NewWebhookClient(
			a.cfg.CRM.WebhookURL,
			a.cfg.CRM.APIKey,
			httpLogClient,
			a.log,
		)
		leadPusher = crmsvc.NewBreakerClient("CRMWebhook", crmsvc.BreakerConfig{
			TimeInterval: crmBreakerInterval,
			TimeTimeOut:  crmBreakerTimeout,
			RepeatNumber: crmBreakerTrip,
		}, webhookClient)
	}

	newsletterService := newssvc.NewService(subRepository, tokenIssuer, emailService, a.log, m)

	var crmForContact contactsvc.LeadPusher
	if leadPusher != nil {
		crmForContact = leadPusher
	}
	contactService := contactsvc.NewService(
		turnstileClient,
		emailService,
		newsletterService,
		crmForContact,
		a.cfg.Email.LeadInbox,
		a.log,
		m,
	)

	cleaner := janitor.New(subRepository, a.log, a.cfg.Janitor.Schedule, a.cfg.Tokens.TTL, m)

	return ServiceContainer{
		ContactService:    contactService,
		NewsletterService: newsletterService,
		EmailService:      emailService,
		Verifier:          turnstileClient,
		LeadPusher:        leadPusher,
		SubRepository:     subRepository,
		Janitor:           cleaner,
		Metrics:           m,

		ContactLimiter:    ratelimit.New(rdb, "contact", a.cfg.ContactLimit(), a.log, m),
		NewsletterLimiter: ratelimit.New(rdb, "newsletter", a.cfg.NewsletterLimit(), a.log, m),
		LeadLimiter:       ratelimit.New(rdb, "crm", a.cfg.LeadCaptureLimit(), a.log, m),

		Router: router,
		Srv:    apiServer,
		Db:     db,
		Rdb:    rdb,
	}
}

// RegisterRoutes wires the HTTP surface onto the container's router.
func (a *App) RegisterRoutes(c ServiceContainer) {
	contactHandler := contacthandler.NewHandler(c.ContactService, a.log)
	newsHandler := newshandler.NewHandler(c.NewsletterService, c.Verifier, a.log)

	api := c.Router.Group("/api")
	{
		api.POST("/contact", c.ContactLimiter.Middleware(), contactHandler.Submit)
		api.POST("/newsletter", c.NewsletterLimiter.Middleware(), newsHandler.Subscribe)
		api.GET("/newsletter/confirm", newsHandler.Confirm)

		if c.LeadPusher != nil {
			crmHandler := crmhandler.NewHandler(c.LeadPusher, a.log)
			api.GET("/crm/add-contact", c.LeadLimiter.Middleware(), crmHandler.AddContact)
			api.POST("/crm/add-contact", c.LeadLimiter.Middleware(), crmHandler.AddContact)
		}
	}

	c.Router.GET("/metrics", gin.WrapH(c.Metrics.Handler()))
	c.Router.GET("/swagger/*any", swagger.WrapHandler(swaggerfiles.Handler))
	c.Router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (a *App) Start(ctx context.Context, c ServiceContainer) error {
	a.log.Info("starting server", zap.String("addr", a.cfg.ServerAddress()))

	a.RegisterRoutes(c)
	c.Janitor.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := c.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		return a.Stop(c)
	}
}

func (a *App) Stop(c ServiceContainer) error {
	a.log.Info("stopping application")

	c.Janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()

	if err := c.Srv.Shutdown(ctx); err != nil {
		a.log.Error("HTTP shutdown error", zap.Error(err))
	} else {
		a.log.Info("HTTP server stopped")
	}

	if err := c.Rdb.Close(); err != nil {
		a.log.Error("redis close error", zap.Error(err))
	}

	if err := c.Db.Close(); err != nil {
		a.log.Error("database close error", zap.Error(err))
	} else {
		a.log.Info("database closed")
	}

	a.log.Info("shutdown complete")
	return nil
}

func CreateSqliteDb(dialect, name string) (*sql.DB, error) {
	if name == "" {
		return nil, errors.New("database name cannot be empty")
	}
	connectionString := "file:" + name + "?cache=shared&mode=rwc"
	db, err := sql.Open(dialect, connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func InitSqliteDb(db *sql.DB, dialect, migrationPath string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	if err := goose.Up(db, migrationPath); err != nil {
		return err
	}

	return nil
}
