package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
)

// Config captures module-level configuration knobs. Feature packages (offline
// controller, storage, syncer, host) pull from these nested structs.
type Config struct {
	Cache   CacheConfig   `mapstructure:"cache" json:"cache"`
	Network NetworkConfig `mapstructure:"network" json:"network"`
	Storage StorageConfig `mapstructure:"storage" json:"storage"`
	Sync    SyncConfig    `mapstructure:"sync" json:"sync"`
	Push    PushConfig    `mapstructure:"push" json:"push"`
	Webhook WebhookConfig `mapstructure:"webhook" json:"webhook"`
	Server  ServerConfig  `mapstructure:"server" json:"server"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
}

// CacheConfig names the two cache generations and the fixed URL lists.
type CacheConfig struct {
	Prefix            string   `mapstructure:"prefix" json:"prefix" env:"OFFLINE_CACHE_PREFIX"`
	Version           string   `mapstructure:"version" json:"version" env:"OFFLINE_CACHE_VERSION"`
	CriticalName      string   `mapstructure:"critical_name" json:"critical_name" env:"OFFLINE_CACHE_CRITICAL_NAME"`
	APIName           string   `mapstructure:"api_name" json:"api_name" env:"OFFLINE_CACHE_API_NAME"`
	APIPrefix         string   `mapstructure:"api_prefix" json:"api_prefix" env:"OFFLINE_CACHE_API_PREFIX"`
	OfflinePage       string   `mapstructure:"offline_page" json:"offline_page" env:"OFFLINE_CACHE_OFFLINE_PAGE"`
	CrisisPath        string   `mapstructure:"crisis_path" json:"crisis_path" env:"OFFLINE_CACHE_CRISIS_PATH"`
	CriticalResources []string `mapstructure:"critical_resources" json:"critical_resources" env:"OFFLINE_CACHE_CRITICAL_RESOURCES" envSeparator:","`
	CriticalAPI       []string `mapstructure:"critical_api" json:"critical_api" env:"OFFLINE_CACHE_CRITICAL_API" envSeparator:","`
}

// CriticalCacheName returns the resource store name for this version.
func (c CacheConfig) CriticalCacheName() string {
	if strings.TrimSpace(c.CriticalName) != "" {
		return strings.TrimSpace(c.CriticalName)
	}
	return c.Prefix + "-critical-" + c.Version
}

// APICacheName returns the API snapshot store name for this version.
func (c CacheConfig) APICacheName() string {
	if strings.TrimSpace(c.APIName) != "" {
		return strings.TrimSpace(c.APIName)
	}
	return c.Prefix + "-offline-" + c.Version
}

// NetworkConfig points at the origin and bounds each network fetch. A
// negative timeout disables the bound.
type NetworkConfig struct {
	Origin  string        `mapstructure:"origin" json:"origin" env:"OFFLINE_NETWORK_ORIGIN"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" env:"OFFLINE_NETWORK_TIMEOUT"`
}

// StorageConfig selects the cache storage backend.
type StorageConfig struct {
	Driver        string `mapstructure:"driver" json:"driver" env:"OFFLINE_STORAGE_DRIVER"`
	DSN           string `mapstructure:"dsn" json:"dsn" env:"OFFLINE_STORAGE_DSN"`
	EncryptionKey string `mapstructure:"encryption_key" json:"encryption_key" env:"OFFLINE_STORAGE_ENCRYPTION_KEY"`
}

// Key decodes the base64 encryption key.
func (c StorageConfig) Key() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.EncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("storage.encryption_key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("storage.encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// SyncConfig tunes background sync retries.
type SyncConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts" env:"OFFLINE_SYNC_MAX_ATTEMPTS"`
	BaseDelay   time.Duration `mapstructure:"base_delay" json:"base_delay" env:"OFFLINE_SYNC_BASE_DELAY"`
	MaxDelay    time.Duration `mapstructure:"max_delay" json:"max_delay" env:"OFFLINE_SYNC_MAX_DELAY"`
}

// PushConfig configures Firebase delivery and notification assets.
type PushConfig struct {
	Icon      string        `mapstructure:"icon" json:"icon" env:"OFFLINE_PUSH_ICON"`
	Badge     string        `mapstructure:"badge" json:"badge" env:"OFFLINE_PUSH_BADGE"`
	Locale    string        `mapstructure:"locale" json:"locale" env:"OFFLINE_PUSH_LOCALE"`
	ServerKey string        `mapstructure:"server_key" json:"server_key" env:"OFFLINE_PUSH_SERVER_KEY"`
	Endpoint  string        `mapstructure:"endpoint" json:"endpoint" env:"OFFLINE_PUSH_ENDPOINT"`
	Tokens    []string      `mapstructure:"tokens" json:"tokens" env:"OFFLINE_PUSH_TOKENS" envSeparator:","`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout" env:"OFFLINE_PUSH_TIMEOUT"`
	DryRun    bool          `mapstructure:"dry_run" json:"dry_run" env:"OFFLINE_PUSH_DRY_RUN"`
}

// WebhookConfig mirrors crisis notifications to an HTTP endpoint. An empty
// URL disables the channel.
type WebhookConfig struct {
	URL           string            `mapstructure:"url" json:"url" env:"OFFLINE_WEBHOOK_URL"`
	Method        string            `mapstructure:"method" json:"method" env:"OFFLINE_WEBHOOK_METHOD"`
	Headers       map[string]string `mapstructure:"headers" json:"headers" env:"OFFLINE_WEBHOOK_HEADERS"`
	BasicAuthUser string            `mapstructure:"basic_auth_user" json:"basic_auth_user" env:"OFFLINE_WEBHOOK_BASIC_AUTH_USER"`
	BasicAuthPass string            `mapstructure:"basic_auth_pass" json:"basic_auth_pass" env:"OFFLINE_WEBHOOK_BASIC_AUTH_PASS"`
	Timeout       time.Duration     `mapstructure:"timeout" json:"timeout" env:"OFFLINE_WEBHOOK_TIMEOUT"`
	DryRun        bool              `mapstructure:"dry_run" json:"dry_run" env:"OFFLINE_WEBHOOK_DRY_RUN"`
}

// Enabled reports whether a webhook target is configured.
func (c WebhookConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host" env:"OFFLINE_SERVER_HOST"`
	Port string `mapstructure:"port" json:"port" env:"OFFLINE_SERVER_PORT"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level" env:"OFFLINE_LOG_LEVEL"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Cache: CacheConfig{
			Prefix:      "interprelab",
			Version:     "v1",
			APIPrefix:   "/api/",
			OfflinePage: "/offline.html",
			CrisisPath:  "/crisis-support",
			CriticalResources: []string{
				"/",
				"/crisis-support",
				"/peer-community",
				"/self-care",
				"/emergency-contacts",
				"/offline.html",
				"/static/css/main.css",
				"/static/js/main.js",
				"/icons/crisis-support.svg",
				"/icons/community.svg",
				"/icons/self-care.svg",
			},
			CriticalAPI: []string{
				"/api/crisis-support",
				"/api/community/quick-access",
				"/api/support/offline",
				"/api/tools/emergency",
				"/api/health",
			},
		},
		Network: NetworkConfig{
			Origin:  "http://localhost:3000",
			Timeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Sync: SyncConfig{
			MaxAttempts: 5,
			BaseDelay:   time.Second,
			MaxDelay:    time.Minute,
		},
		Push: PushConfig{
			Icon:     "/icons/crisis-support.svg",
			Badge:    "/icons/crisis-support.svg",
			Locale:   "en",
			Endpoint: "https://fcm.googleapis.com/fcm/send",
			Timeout:  10 * time.Second,
		},
		Webhook: WebhookConfig{
			Method:  "POST",
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: "8480",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	critical, api := c.Cache.CriticalCacheName(), c.Cache.APICacheName()
	if strings.Trim(critical, "-") == "" || strings.Trim(api, "-") == "" {
		return errors.New("cache.prefix and cache.version are required")
	}
	if critical == api {
		return fmt.Errorf("cache store names must differ, both are %q", critical)
	}
	if !strings.HasPrefix(c.Cache.APIPrefix, "/") {
		return fmt.Errorf("cache.api_prefix must start with /")
	}
	for _, path := range c.Cache.CriticalResources {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("cache.critical_resources: %q must start with /", path)
		}
	}
	for _, path := range c.Cache.CriticalAPI {
		if !strings.HasPrefix(path, c.Cache.APIPrefix) {
			return fmt.Errorf("cache.critical_api: %q must start with %s", path, c.Cache.APIPrefix)
		}
	}
	if c.Sync.MaxAttempts <= 0 {
		return fmt.Errorf("sync.max_attempts must be > 0")
	}
	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("storage.dsn is required for sqlite")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.Webhook.Enabled() {
		if u, err := url.Parse(c.Webhook.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("webhook.url %q must be an absolute URL", c.Webhook.URL)
		}
	}
	if strings.TrimSpace(c.Storage.EncryptionKey) != "" {
		if _, err := c.Storage.Key(); err != nil {
			return err
		}
	}
	return nil
}

// Load decodes arbitrary input (struct, map, cfg struct) using cfgx helpers.
// While cfgx.Build still returns zero values, we fallback to a lightweight
// decoder to keep smoke tests meaningful.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	if m, ok := input.(map[string]any); ok {
		input = normalizeDurations(m, reflect.TypeOf(Config{}))
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (duration hooks, preprocessors, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Cache.Prefix == "" {
		c.Cache.Prefix = defaults.Cache.Prefix
	}
	if c.Cache.Version == "" {
		c.Cache.Version = defaults.Cache.Version
	}
	if c.Cache.APIPrefix == "" {
		c.Cache.APIPrefix = defaults.Cache.APIPrefix
	}
	if c.Cache.OfflinePage == "" {
		c.Cache.OfflinePage = defaults.Cache.OfflinePage
	}
	if c.Cache.CrisisPath == "" {
		c.Cache.CrisisPath = defaults.Cache.CrisisPath
	}
	if c.Cache.CriticalResources == nil {
		c.Cache.CriticalResources = defaults.Cache.CriticalResources
	}
	if c.Cache.CriticalAPI == nil {
		c.Cache.CriticalAPI = defaults.Cache.CriticalAPI
	}
	if c.Network.Origin == "" {
		c.Network.Origin = defaults.Network.Origin
	}
	if c.Network.Timeout == 0 {
		c.Network.Timeout = defaults.Network.Timeout
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaults.Storage.Driver
	}
	if c.Sync.MaxAttempts == 0 {
		c.Sync.MaxAttempts = defaults.Sync.MaxAttempts
	}
	if c.Sync.BaseDelay == 0 {
		c.Sync.BaseDelay = defaults.Sync.BaseDelay
	}
	if c.Sync.MaxDelay == 0 {
		c.Sync.MaxDelay = defaults.Sync.MaxDelay
	}
	if c.Push.Icon == "" {
		c.Push.Icon = defaults.Push.Icon
	}
	if c.Push.Badge == "" {
		c.Push.Badge = defaults.Push.Badge
	}
	if c.Push.Locale == "" {
		c.Push.Locale = defaults.Push.Locale
	}
	if c.Push.Endpoint == "" {
		c.Push.Endpoint = defaults.Push.Endpoint
	}
	if c.Push.Timeout == 0 {
		c.Push.Timeout = defaults.Push.Timeout
	}
	if c.Webhook.Method == "" {
		c.Webhook.Method = defaults.Webhook.Method
	}
	if c.Webhook.Timeout == 0 {
		c.Webhook.Timeout = defaults.Webhook.Timeout
	}
	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == "" {
		c.Server.Port = defaults.Server.Port
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}

var durationType = reflect.TypeOf(time.Duration(0))

// normalizeDurations rewrites "15s" style strings into time.Duration values
// wherever the matching Config field is a duration.
func normalizeDurations(input map[string]any, typ reflect.Type) map[string]any {
	if input == nil || typ.Kind() != reflect.Struct {
		return input
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
		field, ok := fieldByTag(typ, key)
		if !ok {
			continue
		}
		switch {
		case field.Type == durationType:
			if s, ok := value.(string); ok {
				if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
					out[key] = d
				}
			}
		case field.Type.Kind() == reflect.Struct:
			if nested, ok := value.(map[string]any); ok {
				out[key] = normalizeDurations(nested, field.Type)
			}
		}
	}
	return out
}

func fieldByTag(typ reflect.Type, key string) (reflect.StructField, bool) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if tag := strings.Split(field.Tag.Get("mapstructure"), ",")[0]; tag == key {
			return field, true
		}
	}
	return reflect.StructField{}, false
}
