package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix         = "AGRINEXUS_"
	configFileEnv     = EnvPrefix + "CONFIG_FILE"
	maxConfigFileSize = 1024 * 1024

	defaultPort               = "8080"
	defaultBraveBaseURL       = "https://api.search.brave.com/res/v1"
	defaultKnowledgeURL       = ":memory:"
	defaultZoneCount          = 4
	defaultMaxResultsPerQuery = 3
	defaultQueryTimeout       = 10 * time.Second
	defaultSearchConcurrency  = 4
	defaultCycleTimeout       = 60 * time.Second
)

var defaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:4173"}

type SearchBackend string

const (
	// SearchBackendFixture answers from the local bulletin index only.
	SearchBackendFixture SearchBackend = "fixture"
	// SearchBackendBrave queries the Brave Search API only.
	SearchBackendBrave SearchBackend = "brave"
	// SearchBackendBraveWithFallback tries Brave and falls back to the fixture index.
	SearchBackendBraveWithFallback SearchBackend = "brave_with_fallback"
)

type Config struct {
	Port           string   `koanf:"port"`
	Environment    string   `koanf:"environment"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	LogLevel       string   `koanf:"log_level"`
	LogFormat      string   `koanf:"log_format"`

	DefaultCrop      string `koanf:"default_crop"`
	CropProfilesFile string `koanf:"crop_profiles_file"`
	ZoneCount        int    `koanf:"zone_count"`
	SensorSeed       uint64 `koanf:"sensor_seed"`
	BoundaryPolicy   string `koanf:"boundary_policy"`

	SearchBackend        SearchBackend `koanf:"search_backend"`
	BraveAPIKey          string        `koanf:"brave_api_key"`
	BraveBaseURL         string        `koanf:"brave_base_url"`
	KnowledgeDatabaseURL string        `koanf:"knowledge_database_url"`
	KnowledgeAuthToken   string        `koanf:"knowledge_auth_token"`

	MaxResultsPerQuery     int           `koanf:"max_results_per_query"`
	QueryTimeout           time.Duration `koanf:"query_timeout"`
	SearchConcurrency      int           `koanf:"search_concurrency"`
	MinSearchInterval      time.Duration `koanf:"min_search_interval"`
	CycleTimeout           time.Duration `koanf:"cycle_timeout"`
	DegradeOnSearchFailure bool          `koanf:"degrade_on_search_failure"`
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func Defaults() Config {
	return Config{
		Port:                   defaultPort,
		Environment:            "development",
		LogLevel:               "info",
		LogFormat:              "json",
		DefaultCrop:            "corn",
		ZoneCount:              defaultZoneCount,
		BoundaryPolicy:         "strict",
		SearchBackend:          SearchBackendFixture,
		BraveBaseURL:           defaultBraveBaseURL,
		KnowledgeDatabaseURL:   defaultKnowledgeURL,
		MaxResultsPerQuery:     defaultMaxResultsPerQuery,
		QueryTimeout:           defaultQueryTimeout,
		SearchConcurrency:      defaultSearchConcurrency,
		CycleTimeout:           defaultCycleTimeout,
		DegradeOnSearchFailure: true,
	}
}

// Load resolves configuration with this precedence (highest first):
//  1. AGRINEXUS_* environment variables (AGRINEXUS_SEARCH_BACKEND -> search_backend)
//  2. the YAML file named by AGRINEXUS_CONFIG_FILE, when set
//  3. Defaults()
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv(configFileEnv)))
}

func LoadFile(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	k.Delete("config_file")

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return content, nil
}

func normalize(cfg *Config) {
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.DefaultCrop = strings.ToLower(strings.TrimSpace(cfg.DefaultCrop))
	cfg.BoundaryPolicy = strings.ToLower(strings.TrimSpace(cfg.BoundaryPolicy))
	cfg.SearchBackend = SearchBackend(strings.ToLower(strings.TrimSpace(string(cfg.SearchBackend))))
	cfg.BraveAPIKey = strings.TrimSpace(cfg.BraveAPIKey)
	cfg.BraveBaseURL = strings.TrimRight(strings.TrimSpace(cfg.BraveBaseURL), "/")
	cfg.KnowledgeDatabaseURL = strings.TrimSpace(cfg.KnowledgeDatabaseURL)
	cfg.KnowledgeAuthToken = strings.TrimSpace(cfg.KnowledgeAuthToken)

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	cfg.AllowedOrigins = origins
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.ZoneCount < 1 {
		return errors.New("zone_count must be > 0")
	}
	if c.MaxResultsPerQuery < 1 {
		return errors.New("max_results_per_query must be > 0")
	}
	if c.SearchConcurrency < 1 {
		return errors.New("search_concurrency must be > 0")
	}
	if c.QueryTimeout <= 0 {
		return errors.New("query_timeout must be > 0")
	}
	if c.CycleTimeout <= 0 {
		return errors.New("cycle_timeout must be > 0")
	}
	if c.MinSearchInterval < 0 {
		return errors.New("min_search_interval must be >= 0")
	}
	switch c.BoundaryPolicy {
	case "strict", "inclusive":
	default:
		return fmt.Errorf("boundary_policy must be strict or inclusive, got %q", c.BoundaryPolicy)
	}

	switch c.SearchBackend {
	case SearchBackendFixture:
	case SearchBackendBrave, SearchBackendBraveWithFallback:
		if c.BraveAPIKey == "" {
			return fmt.Errorf("brave_api_key is required for search_backend=%s", c.SearchBackend)
		}
	default:
		return fmt.Errorf("unknown search_backend %q", c.SearchBackend)
	}

	if strings.HasPrefix(c.KnowledgeDatabaseURL, "libsql://") && c.KnowledgeAuthToken == "" {
		return errors.New("knowledge_auth_token is required for libsql:// URLs")
	}
	return nil
}

func (c Config) UsesFixtureIndex() bool {
	return c.SearchBackend == SearchBackendFixture || c.SearchBackend == SearchBackendBraveWithFallback
}
