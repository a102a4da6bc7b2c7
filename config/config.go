package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/EV9H/renter-x-backend/models"
	"github.com/EV9H/renter-x-backend/transform"
)

type Config struct {
	DatabaseURL string
	OpsDBPath   string
	LogLevel    string
	LogPath     string
	LogMaxSize  int64
	Scheduler   SchedulerConfig
	Snapshots   SnapshotConfig
	Alerts      AlertConfig
	Proxy       ProxyConfig
	Sources     map[string]*SourceConfig
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type SnapshotConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type AlertConfig struct {
	MinItems            int
	MaxDuration         time.Duration
	ConsecutiveFailures int
}

type ProxyConfig struct {
	URL string
}

// ParserType selects how a source's page is fetched and decoded
type ParserType string

const (
	ParserHTML ParserType = "html" // plain HTTP fetch, CSS selectors
	ParserJS   ParserType = "js"   // headless browser render, CSS selectors
	ParserAPI  ParserType = "api"  // JSON endpoint, dotted-path mapping
)

// SelectorType selects how unit fields are read from a matched container
type SelectorType string

const (
	SelectorClass     SelectorType = "class"     // sub-selector per field
	SelectorAttribute SelectorType = "attribute" // container attribute per field
)

// Selectors locate the unit list and the per-unit fields. In api mode
// the values are dotted JSON paths rather than CSS selectors.
type Selectors struct {
	UnitList     string            `yaml:"unit_list"`
	UnitData     map[string]string `yaml:"unit_data"`
	BedBathDelim string            `yaml:"bed_bath_delimiter"`
}

// SourceConfig is one scraper configuration document, immutable per run
type SourceConfig struct {
	Name         string              `yaml:"name"`
	URL          string              `yaml:"url"`
	ParserType   ParserType          `yaml:"parser_type"`
	SelectorType SelectorType        `yaml:"selector_type"`
	BuildingInfo models.BuildingInfo `yaml:"building_info"`
	Selectors    Selectors           `yaml:"selectors"`
	Transformers map[string]string   `yaml:"transformers"`
	Headers      map[string]string   `yaml:"headers"`

	// TransformerKinds is Transformers resolved to the closed enum,
	// populated during validation.
	TransformerKinds map[string]transform.Kind `yaml:"-"`
}

var defaultTransformers = map[string]string{
	"unit_number": "extract_unit_number",
	"bedrooms":    "extract_bedrooms",
	"bathrooms":   "extract_bathrooms",
	"price":       "extract_price",
	"area_sqft":   "extract_sqft",
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		OpsDBPath:   getEnv("OPS_DB_PATH", "scraper_ops.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPath:     getEnv("LOG_PATH", "scraper.log"),
		LogMaxSize:  int64(getEnvInt("LOG_MAX_SIZE_MB", 2)) * 1024 * 1024,
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Snapshots: SnapshotConfig{
			Enabled:         os.Getenv("SNAPSHOTS_ENABLED") == "true",
			Bucket:          os.Getenv("SNAPSHOTS_BUCKET"),
			Region:          getEnv("SNAPSHOTS_REGION", "us-east-1"),
			Endpoint:        os.Getenv("SNAPSHOTS_ENDPOINT"),
			AccessKeyID:     os.Getenv("SNAPSHOTS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("SNAPSHOTS_SECRET_ACCESS_KEY"),
		},
		Alerts: AlertConfig{
			MinItems:            getEnvInt("ALERT_MIN_ITEMS", 1),
			MaxDuration:         time.Duration(getEnvInt("ALERT_MAX_DURATION_MIN", 10)) * time.Minute,
			ConsecutiveFailures: getEnvInt("ALERT_CONSECUTIVE_FAILURES", 3),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		Sources: make(map[string]*SourceConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	dir := getEnv("SOURCES_DIR", "config/sources")
	if err := cfg.loadSourceConfigs(dir); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSourceConfigs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		src, err := LoadSource(path)
		if err != nil {
			return fmt.Errorf("source config %s: %w", entry.Name(), err)
		}
		c.Sources[src.Name] = src
	}

	return nil
}

// LoadSource reads and validates one source config document.
func LoadSource(path string) (*SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var src SourceConfig
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, err
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	return &src, nil
}

// Validate checks the document against the fixed configuration shape and
// resolves transformer names, so misconfiguration fails at load time
// instead of mid-scrape.
func (s *SourceConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if s.URL == "" {
		return fmt.Errorf("missing url")
	}

	if s.ParserType == "" {
		s.ParserType = ParserHTML
	}
	switch s.ParserType {
	case ParserHTML, ParserJS, ParserAPI:
	default:
		return fmt.Errorf("invalid parser_type %q", s.ParserType)
	}

	if s.SelectorType == "" {
		s.SelectorType = SelectorClass
	}
	switch s.SelectorType {
	case SelectorClass, SelectorAttribute:
	default:
		return fmt.Errorf("invalid selector_type %q", s.SelectorType)
	}

	if s.BuildingInfo.Name == "" {
		return fmt.Errorf("missing building_info.name")
	}
	if s.Selectors.UnitList == "" {
		return fmt.Errorf("missing selectors.unit_list")
	}
	if len(s.Selectors.UnitData) == 0 {
		return fmt.Errorf("missing selectors.unit_data")
	}
	if s.Selectors.BedBathDelim == "" {
		s.Selectors.BedBathDelim = "|"
	}

	// Header values may reference secrets via ${VAR}
	for k, v := range s.Headers {
		s.Headers[k] = os.ExpandEnv(v)
	}

	if s.Transformers == nil {
		s.Transformers = make(map[string]string, len(defaultTransformers))
	}
	for field, name := range defaultTransformers {
		if _, ok := s.Transformers[field]; !ok {
			s.Transformers[field] = name
		}
	}

	s.TransformerKinds = make(map[string]transform.Kind, len(s.Transformers))
	for field, name := range s.Transformers {
		kind, err := transform.ParseKind(name)
		if err != nil {
			return fmt.Errorf("field %q: %w", field, err)
		}
		s.TransformerKinds[field] = kind
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
