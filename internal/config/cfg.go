package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Server struct {
	Host        string `envconfig:"SERVER_HOST" default:"localhost"`
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout int    `envconfig:"SERVER_TIMEOUT" default:"10"`
}

type Db struct {
	Dialect        string `envconfig:"DB_DIALECT" default:"sqlite"`
	Source         string `envconfig:"DB_NAME" default:"site.db"`
	MigrationsPath string `envconfig:"DB_MIGRATIONS_DIR" default:"./migrations"`
}

type Email struct {
	User      string `envconfig:"EMAIL_USER"`
	Host      string `envconfig:"EMAIL_HOST" required:"true"`
	Port      string `envconfig:"EMAIL_PORT" default:"587"`
	Password  string `envconfig:"EMAIL_PASSWORD"`
	From      string `envconfig:"EMAIL_FROM" required:"true"`
	LeadInbox string `envconfig:"EMAIL_LEAD_INBOX" required:"true"`
}

type Redis struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type Turnstile struct {
	Secret string `envconfig:"TURNSTILE_SECRET" required:"true"`
	URL    string `envconfig:"TURNSTILE_URL" default:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
}

type CRM struct {
	WebhookURL string `envconfig:"CRM_WEBHOOK_URL"`
	APIKey     string `envconfig:"CRM_API_KEY"`
}

type Tokens struct {
	Secret string        `envconfig:"TOKEN_SECRET" required:"true"`
	TTL    time.Duration `envconfig:"TOKEN_TTL" default:"48h"`
}

// Limit is one named rate limiter configuration: at most Max requests
// per client IP within Window.
type Limit struct {
	Max    int
	Window time.Duration
}

type RateLimits struct {
	ContactMax       int           `envconfig:"RATELIMIT_CONTACT_MAX" default:"5"`
	ContactWindow    time.Duration `envconfig:"RATELIMIT_CONTACT_WINDOW" default:"10m"`
	NewsletterMax    int           `envconfig:"RATELIMIT_NEWSLETTER_MAX" default:"3"`
	NewsletterWindow time.Duration `envconfig:"RATELIMIT_NEWSLETTER_WINDOW" default:"10m"`
	CRMMax           int           `envconfig:"RATELIMIT_CRM_MAX" default:"10"`
	CRMWindow        time.Duration `envconfig:"RATELIMIT_CRM_WINDOW" default:"1m"`
}

type Janitor struct {
	Schedule string `envconfig:"JANITOR_SCHEDULE" default:"0 3 * * *"`
}

type Config struct {
	BaseURL      string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	TemplatesDir string `envconfig:"TEMPLATES_DIR" default:"./templates"`
	LogsPath     string `envconfig:"LOGS_PATH" default:"./logs/site-api.log"`

	Server    Server
	DB        Db
	Email     Email
	Redis     Redis
	Turnstile Turnstile
	CRM       CRM
	Tokens    Tokens
	Limits    RateLimits
	Janitor   Janitor
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) ContactLimit() Limit {
	return Limit{Max: c.Limits.ContactMax, Window: c.Limits.ContactWindow}
}

func (c *Config) NewsletterLimit() Limit {
	return Limit{Max: c.Limits.NewsletterMax, Window: c.Limits.NewsletterWindow}
}

func (c *Config) LeadCaptureLimit() Limit {
	return Limit{Max: c.Limits.CRMMax, Window: c.Limits.CRMWindow}
}
