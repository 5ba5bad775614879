package config

import (
	"os"
	"strings"
	"time"
	_ "time/tzdata" // reconcile.timezone must resolve on hosts without zoneinfo

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	RatesFile  string           `yaml:"rates_file" mapstructure:"rates_file"`
	Reconcile  ReconcileConfig  `yaml:"reconcile" mapstructure:"reconcile"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Merchants  []MerchantConfig `yaml:"merchants" mapstructure:"merchants"`
	Avenue     AvenueConfig     `yaml:"avenue" mapstructure:"avenue"`
	Email      EmailConfig      `yaml:"email" mapstructure:"email"`
	Webhook    WebhookConfig    `yaml:"webhook" mapstructure:"webhook"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CatalogConfig points at the tracking sheet.
type CatalogConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// ReconcileConfig selects the deal detection policy.
type ReconcileConfig struct {
	Mode     string `yaml:"mode" mapstructure:"mode"` // "merchant" or "market"
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// Location resolves the configured time zone, defaulting to UTC.
func (r ReconcileConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "config: load timezone %s", r.Timezone)
	}
	return loc, nil
}

// FetchConfig configures merchant page retrieval.
type FetchConfig struct {
	UserAgent              string  `yaml:"user_agent" mapstructure:"user_agent"`
	AcceptLanguage         string  `yaml:"accept_language" mapstructure:"accept_language"`
	TimeoutSecs            int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries             int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond      float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxConcurrentMerchants int     `yaml:"max_concurrent_merchants" mapstructure:"max_concurrent_merchants"`
	MaxConsecutiveBlocks   int     `yaml:"max_consecutive_blocks" mapstructure:"max_consecutive_blocks"` // 0 never skips a merchant
}

// MerchantConfig declares one tracked merchant and how its pages are read.
type MerchantConfig struct {
	Name          string `yaml:"name" mapstructure:"name"`
	Kind          string `yaml:"kind" mapstructure:"kind"`
	Selector      string `yaml:"selector" mapstructure:"selector"`
	EurosSelector string `yaml:"euros_selector" mapstructure:"euros_selector"`
	CentsSelector string `yaml:"cents_selector" mapstructure:"cents_selector"`
	Cookie        string `yaml:"cookie" mapstructure:"cookie"` // "name=value", sent with every request
}

// AvenueConfig configures the price aggregator used for search and promotions.
type AvenueConfig struct {
	BaseURL       string            `yaml:"base_url" mapstructure:"base_url"`
	PromotionsURL string            `yaml:"promotions_url" mapstructure:"promotions_url"`
	Aliases       map[string]string `yaml:"aliases" mapstructure:"aliases"` // "chez amazon" -> "Amazon"
}

// EmailConfig holds SMTP settings for deal summaries.
type EmailConfig struct {
	Server       string `yaml:"server" mapstructure:"server"`
	Port         int    `yaml:"port" mapstructure:"port"`
	Address      string `yaml:"address" mapstructure:"address"`
	Password     string `yaml:"password" mapstructure:"password"`
	Recipient    string `yaml:"recipient" mapstructure:"recipient"`
	DashboardURL string `yaml:"dashboard_url" mapstructure:"dashboard_url"`
}

// Complete reports whether every field required to send mail is set.
func (e EmailConfig) Complete() bool {
	return e.Server != "" && e.Port > 0 && e.Address != "" && e.Password != "" && e.Recipient != ""
}

// WebhookConfig holds an optional JSON webhook for deals.
type WebhookConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// MonitoringConfig configures run health alerts.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"` // 0 disables
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultMerchants mirrors the sites followed by the tracking sheet.
func DefaultMerchants() []MerchantConfig {
	return []MerchantConfig{
		{Name: "Amazon", Kind: "amazon"},
		{Name: "Lego", Kind: "standard", Selector: `[data-test="product-price"]`},
		{Name: "Auchan", Kind: "standard", Selector: ".product-price"},
		{Name: "Leclerc", Kind: "standard", Selector: ".egToM .visually-hidden"},
		{Name: "Carrefour", Kind: "carrefour",
			EurosSelector: ".product-price__content.c-text--size-m",
			CentsSelector: ".product-price__content.c-text--size-s"},
		{Name: "Brickmo", Kind: "brickmo", Cookie: "shop=13"},
		{Name: "Avenue", Kind: "avenue"},
	}
}

// DefaultAliases maps aggregator seller labels to merchant names.
func DefaultAliases() map[string]string {
	return map[string]string{
		"chez amazon":          "Amazon",
		"chez cdiscount":       "Cdiscount",
		"chez fnac":            "Fnac",
		"chez e.leclerc":       "Leclerc",
		"chez auchan":          "Auchan",
		"chez carrefour":       "Carrefour",
		"chez la grande récré": "La Grande Récré",
		"chez ltoys":           "Ltoys",
		"chez lego":            "Lego",
		"chez jouéclub":        "JouéClub",
		"chez kidinn":          "KidInn",
		"chez rue du commerce": "Rue du Commerce",
	}
}

// MerchantNames returns every merchant name a run may report: configured
// merchants plus aggregator alias targets.
func (c *Config) MerchantNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range c.Merchants {
		if !seen[m.Name] {
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	for _, name := range c.Avenue.Aliases {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BRICKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "brickwatch.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("catalog.path", "config_sets.xlsx")
	v.SetDefault("catalog.sheet_name", "")
	v.SetDefault("rates_file", "rates.yaml")
	v.SetDefault("reconcile.mode", "merchant")
	v.SetDefault("reconcile.timezone", "Europe/Paris")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36")
	v.SetDefault("fetch.accept_language", "fr-FR,fr;q=0.9")
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.requests_per_second", 0.2)
	v.SetDefault("fetch.max_concurrent_merchants", 4)
	v.SetDefault("fetch.max_consecutive_blocks", 3)
	v.SetDefault("avenue.base_url", "https://www.avenuedelabrique.com/")
	v.SetDefault("avenue.promotions_url", "https://www.avenuedelabrique.com/promotions-et-bons-plans-lego")
	v.SetDefault("email.server", "smtp.gmail.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.address", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.recipient", "")
	v.SetDefault("email.dashboard_url", "https://github.com/Aktawind/lego-price-tracker/wiki")
	v.SetDefault("webhook.url", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// Lists and maps keep their built-in values unless the file provides them;
	// viper would lowercase map keys set through SetDefault.
	if len(cfg.Merchants) == 0 {
		cfg.Merchants = DefaultMerchants()
	}
	if len(cfg.Avenue.Aliases) == 0 {
		cfg.Avenue.Aliases = DefaultAliases()
	}
	applyLegacyEmailEnv(&cfg.Email)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyLegacyEmailEnv fills unset email fields from the variables the old
// tracking scripts read (also used as GitHub Actions secrets).
func applyLegacyEmailEnv(e *EmailConfig) {
	if e.Address == "" {
		e.Address = os.Getenv("GMAIL_ADDRESS")
	}
	if e.Password == "" {
		e.Password = os.Getenv("GMAIL_APP_PASSWORD")
	}
	if e.Recipient == "" {
		e.Recipient = os.Getenv("MAIL_DESTINATAIRE")
	}
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	switch c.Reconcile.Mode {
	case "merchant", "market":
	default:
		return eris.Errorf("config: reconcile.mode must be merchant or market, got %q", c.Reconcile.Mode)
	}
	if _, err := c.Reconcile.Location(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Merchants))
	for i, m := range c.Merchants {
		if m.Name == "" {
			return eris.Errorf("config: merchants[%d] has no name", i)
		}
		if seen[m.Name] {
			return eris.Errorf("config: duplicate merchant %q", m.Name)
		}
		seen[m.Name] = true
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Fetch.MaxConcurrentMerchants < 1 {
		return eris.New("config: fetch.max_concurrent_merchants must be at least 1")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
