package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Wallaflow WallaflowConfig `yaml:"wallaflow"`
	Search    SearchConfig    `yaml:"search"`
	Reader    ReaderConfig    `yaml:"reader"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Filter    FilterConfig    `yaml:"filter"`
	Risk      RiskConfig      `yaml:"risk"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type WallaflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SearchConfig describes the marketplace search endpoint and the fixed
// query surface. Latitude and longitude are kept as strings because they
// travel as query parameters and double as the generic-location risk
// reference.
type SearchConfig struct {
	URL         string        `yaml:"url"`
	Source      string        `yaml:"source"`
	TimeFilter  string        `yaml:"time_filter"`
	OrderBy     string        `yaml:"order_by"`
	Latitude    string        `yaml:"latitude"`
	Longitude   string        `yaml:"longitude"`
	DistanceKM  int           `yaml:"distance_km"`
	PageSize    int           `yaml:"page_size"`
	PageDelayMs int           `yaml:"page_delay_ms"`
	Queries     []SearchQuery `yaml:"queries"`
}

// PageDelay is the configured inter-page throttle as a duration.
func (s SearchConfig) PageDelay() time.Duration {
	return time.Duration(s.PageDelayMs) * time.Millisecond
}

type SearchQuery struct {
	Keywords   string `yaml:"keywords"`
	CategoryID string `yaml:"category_id"`
}

type ReaderConfig struct {
	TimeoutMs      int                  `yaml:"timeout_ms"`
	Headers        map[string]string    `yaml:"headers"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

// Timeout is the per-request timeout as a duration.
func (r ReaderConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

type ConnectionPoolConfig struct {
	MaxIdleConns      int `yaml:"max_idle_conns"`
	MaxConnsPerHost   int `yaml:"max_conns_per_host"`
	IdleConnTimeoutMs int `yaml:"idle_conn_timeout_ms"`
}

type DatasetConfig struct {
	Dir string `yaml:"dir"`
	Tag string `yaml:"tag"`
}

type FilterConfig struct {
	ClothingKeywords []string `yaml:"clothing_keywords"`
}

// RiskConfig holds the suspicious-keyword taxonomy and the scoring point
// table. Category names starting with "CRITICAL" weigh as critical
// matches, every other category weighs as general.
type RiskConfig struct {
	Categories        map[string][]string `yaml:"categories"`
	ConditionKeywords []string            `yaml:"condition_keywords"`
	Scoring           ScoringConfig       `yaml:"scoring"`
}

type ScoringConfig struct {
	CriticalCategory       int     `yaml:"critical_category"`
	GeneralCategory        int     `yaml:"general_category"`
	DeepDiscount           int     `yaml:"deep_discount"`
	DeepDiscountRatio      float64 `yaml:"deep_discount_ratio"`
	ModerateDiscount       int     `yaml:"moderate_discount"`
	ModerateDiscountRatio  float64 `yaml:"moderate_discount_ratio"`
	ConditionMismatch      int     `yaml:"condition_mismatch"`
	ConditionMismatchRatio float64 `yaml:"condition_mismatch_ratio"`
	ShortDescription       int     `yaml:"short_description"`
	ShortDescriptionLength int     `yaml:"short_description_length"`
	ProlificSeller         int     `yaml:"prolific_seller"`
	ProlificSellerMinItems int     `yaml:"prolific_seller_min_items"`
	NoImages               int     `yaml:"no_images"`
	GenericLocation        int     `yaml:"generic_location"`
	MaxScore               int     `yaml:"max_score"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

// Default returns the built-in configuration. The full keyword taxonomies
// and the scoring point table ship as code so a config file only needs to
// override what differs.
func Default() *Config {
	return &Config{
		Wallaflow: WallaflowConfig{
			Name:    "wallaflow",
			Version: "dev",
		},
		Search: SearchConfig{
			URL:         "https://api.wallapop.com/api/v3/search",
			Source:      "search_box",
			TimeFilter:  "today",
			OrderBy:     "newest",
			Latitude:    "41.648823",
			Longitude:   "-0.889085",
			PageSize:    50,
			PageDelayMs: 500,
			Queries: []SearchQuery{
				{Keywords: "moto", CategoryID: "14000"},
			},
		},
		Reader: ReaderConfig{
			TimeoutMs: 15000,
			Headers: map[string]string{
				"Host":       "api.wallapop.com",
				"X-DeviceOS": "0",
			},
			ConnectionPool: ConnectionPoolConfig{
				MaxIdleConns:      10,
				MaxConnsPerHost:   10,
				IdleConnTimeoutMs: 90000,
			},
		},
		Dataset: DatasetConfig{
			Dir: ".",
			Tag: "motos",
		},
		Filter: FilterConfig{
			ClothingKeywords: []string{
				"casco", "guante", "chaqueta", "pantalón", "pantalon", "botas",
				"espaliers", "espalda", "goretex", "chamarra", "bota", "mono",
				"traje", "talla", "alforja", "mochila", "maleta", "chaleco",
				"protector", "protección", "impermeable", "capa de lluvia ", "zapatos",
				"caballete", "mini", "herramientas", "candado", "antirrobo", "cubremanos",
				"alquiler", "garaje", "baul",
			},
		},
		Risk: RiskConfig{
			Categories: map[string][]string{
				"CRITICAL_LEGAL": {
					"sin papeles", "sin documentacion", "sin documento", "no papeles",
					"papeles pendientes", "transferencia pendiente",
				},
				"CRITICAL_INTEGRITY": {
					"sin itv", "sin itp", "no itv", "no itp", "itv caducada", "itp caducada",
					"para piezas", "para despiece", "despiece", "solo piezas",
					"km desconocidos", "kilometraje desconocido",
				},
				"CRITICAL_FRAUD": {
					"robo_potencial", "importacion", "importada", "procedencia dudosa",
					"comprada en", "encontrada",
				},
				"GENERAL_URGENCY": {
					"urgente", "solo hoy", "solo esta semana", "rapido", "rápido", "venta rapida",
				},
				"GENERAL_PRICE_BASED": {
					"ganga", "precio bajo", "muy barato", "chollo", "oferta",
				},
			},
			ConditionKeywords: []string{
				"como nueva", "perfecto estado", "muy buen estado", "impecable",
			},
			Scoring: ScoringConfig{
				CriticalCategory:       30,
				GeneralCategory:        15,
				DeepDiscount:           40,
				DeepDiscountRatio:      0.4,
				ModerateDiscount:       20,
				ModerateDiscountRatio:  0.6,
				ConditionMismatch:      20,
				ConditionMismatchRatio: 0.7,
				ShortDescription:       10,
				ShortDescriptionLength: 50,
				ProlificSeller:         20,
				ProlificSellerMinItems: 3,
				NoImages:               5,
				GenericLocation:        10,
				MaxScore:               100,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			CloudWatch: CloudWatchConfig{
				Namespace: "Wallaflow",
				Dashboard: "Wallaflow",
			},
		},
	}
}

// LoadConfig reads the YAML configuration at path over the built-in
// defaults, applies environment overrides and validates the result. A
// missing file is not an error: the defaults describe a complete run.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("WALLAFLOW_DATASET_DIR"); v != "" {
		config.Dataset.Dir = strings.TrimSpace(v)
	}
	if v := os.Getenv("WALLAFLOW_SEARCH_URL"); v != "" {
		config.Search.URL = strings.TrimSpace(v)
	}
	if config.Metrics.CloudWatch.Enabled {
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Metrics.CloudWatch.Region = strings.TrimSpace(v)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Wallaflow.Name == "" {
		return fmt.Errorf("wallaflow.name is required")
	}

	if cfg.Wallaflow.Version == "" {
		return fmt.Errorf("wallaflow.version is required")
	}

	if cfg.Search.URL == "" {
		return fmt.Errorf("search.url is required")
	}

	if len(cfg.Search.Queries) == 0 {
		return fmt.Errorf("search.queries must name at least one query")
	}
	for i, q := range cfg.Search.Queries {
		if q.Keywords == "" {
			return fmt.Errorf("search.queries[%d].keywords is required", i)
		}
		if q.CategoryID == "" {
			return fmt.Errorf("search.queries[%d].category_id is required", i)
		}
	}

	if cfg.Search.PageSize <= 0 {
		return fmt.Errorf("search.page_size must be greater than 0")
	}
	if cfg.Search.PageDelayMs < 0 {
		return fmt.Errorf("search.page_delay_ms must not be negative")
	}

	if cfg.Reader.TimeoutMs <= 0 {
		return fmt.Errorf("reader.timeout_ms must be greater than 0")
	}

	if cfg.Dataset.Tag == "" {
		return fmt.Errorf("dataset.tag is required")
	}

	if len(cfg.Risk.Categories) == 0 {
		return fmt.Errorf("risk.categories must not be empty")
	}
	if cfg.Risk.Scoring.MaxScore <= 0 {
		return fmt.Errorf("risk.scoring.max_score must be greater than 0")
	}

	if cfg.Metrics.CloudWatch.Enabled {
		if cfg.Metrics.CloudWatch.Namespace == "" {
			return fmt.Errorf("metrics.cloudwatch.namespace is required when CloudWatch is enabled")
		}
		if cfg.Metrics.CloudWatch.Region == "" && IsProductionLike(AppEnvironment()) {
			return fmt.Errorf("metrics.cloudwatch.region is required when CloudWatch is enabled in %s", AppEnvironment())
		}
	}

	return nil
}
