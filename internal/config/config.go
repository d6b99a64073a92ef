// Package config loads the core's configuration as an explicit value
// (CoreConfig) rather than a mutated global (spec §9 redesign note:
// "Global configuration object"). Load reads a YAML file, applies
// environment overrides, and validates the result; Watcher re-loads on file
// change and republishes an immutable snapshot.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Thresholds holds the auto-match and review-floor scores for one entity
// type (spec §4.5 step 3).
type Thresholds struct {
	Auto      float64 `yaml:"auto"`
	ReviewMin float64 `yaml:"review_min"`
}

// ResolutionThresholds is the {PERSON, COMPANY, ADDRESS} x {auto,
// review_min} table (spec §6 Config knobs).
type ResolutionThresholds struct {
	Person  Thresholds `yaml:"person"`
	Company Thresholds `yaml:"company"`
	Address Thresholds `yaml:"address"`
}

// DefaultResolutionThresholds returns the defaults given in spec §4.5.
func DefaultResolutionThresholds() ResolutionThresholds {
	return ResolutionThresholds{
		Person:  Thresholds{Auto: 0.95, ReviewMin: 0.60},
		Company: Thresholds{Auto: 0.95, ReviewMin: 0.60},
		Address: Thresholds{Auto: 0.90, ReviewMin: 0.50},
	}
}

// FeatureWeights holds the per-entity-type feature weight tables of
// spec §4.4.
type FeatureWeights struct {
	Person  map[string]float64 `yaml:"person"`
	Company map[string]float64 `yaml:"company"`
	Address map[string]float64 `yaml:"address"`
}

// DefaultFeatureWeights returns the illustrative defaults from spec §4.4.
func DefaultFeatureWeights() FeatureWeights {
	return FeatureWeights{
		Person: map[string]float64{
			"identifier_match":     10.0,
			"name_jaro_winkler":    2.0,
			"name_token_jaccard":   1.5,
			"birth_year_match":     1.5,
			"address_similarity":   1.0,
			"network_overlap":      2.5,
		},
		Company: map[string]float64{
			"identifier_match":  10.0,
			"name_jaro_winkler": 3.0,
			"address_similarity": 1.5,
			"director_overlap":  2.0,
		},
		Address: map[string]float64{
			"postal_exact":  3.0,
			"street_jaro_winkler": 5.0,
			"number_exact":  2.0,
		},
	}
}

// SourceAuthorityKey identifies one (source_type, predicate) pair in the
// authority table used for conflict resolution (spec §4.5.1).
type SourceAuthorityKey struct {
	SourceType string
	Predicate  string
}

// SourceAuthorityTable maps (source_type, predicate) to an integer
// authority level; lower is higher authority.
type SourceAuthorityTable map[SourceAuthorityKey]int

// DefaultSourceAuthorityTable gives authoritative registries priority
// over scrapes and manual entry, and derived computation the lowest
// priority (it can always be recomputed).
func DefaultSourceAuthorityTable() SourceAuthorityTable {
	return SourceAuthorityTable{
		{SourceType: "AUTHORITATIVE_REGISTRY", Predicate: "*"}: 0,
		{SourceType: "MANUAL_ENTRY", Predicate: "*"}:           1,
		{SourceType: "SCRAPE", Predicate: "*"}:                 2,
		{SourceType: "DERIVED_COMPUTATION", Predicate: "*"}:    3,
	}
}

// Lookup returns the authority level for (sourceType, predicate),
// falling back to the wildcard predicate entry, then to the least
// authoritative level if nothing matches.
func (t SourceAuthorityTable) Lookup(sourceType, predicate string) int {
	if lvl, ok := t[SourceAuthorityKey{SourceType: sourceType, Predicate: predicate}]; ok {
		return lvl
	}
	if lvl, ok := t[SourceAuthorityKey{SourceType: sourceType, Predicate: "*"}]; ok {
		return lvl
	}
	return 99
}

// RetryConfig bounds retries for concurrency and storage failures
// (spec §5/§7): default 3 attempts, exponential backoff in milliseconds.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// DerivationConfig configures the nightly/batch derivation engine
// (spec §4.7) and the supplemented registration-hub attribute
// (SPEC_FULL.md Supplemented Features).
type DerivationConfig struct {
	Schedule                  string             `yaml:"schedule"` // cron expression
	Deadline                  time.Duration      `yaml:"deadline"`
	PersonRiskWeights         map[string]float64 `yaml:"person_risk_weights"`
	CompanyShellWeights       map[string]float64 `yaml:"company_shell_weights"`
	RiskHighThreshold         float64            `yaml:"risk_high_threshold"`
	RiskMediumThreshold       float64            `yaml:"risk_medium_threshold"`
	RegistrationHubThreshold  int                `yaml:"registration_hub_threshold"`
	VelocityWindowMonths      int                `yaml:"velocity_window_months"`
	WorkerPartitions          int                `yaml:"worker_partitions"`
}

func DefaultDerivationConfig() DerivationConfig {
	return DerivationConfig{
		Schedule: "0 2 * * *",
		Deadline: 4 * time.Hour,
		PersonRiskWeights: map[string]float64{
			"many_directorships":       0.20,
			"shell_company_director":   0.30,
			"high_velocity_network":    0.20,
			"vulnerable_area_companies": 0.15,
			"dissolved_company_history": 0.10,
			"young_director":           0.05,
		},
		CompanyShellWeights: map[string]float64{
			"f_skatt_no_vat": 0.25,
			"generic_sni":    0.20,
			"no_employees":   0.15,
			"recently_formed": 0.15,
			"single_director": 0.10,
			"no_revenue":      0.15,
		},
		RiskHighThreshold:        0.60,
		RiskMediumThreshold:      0.40,
		RegistrationHubThreshold: 50,
		VelocityWindowMonths:     36,
		WorkerPartitions:         8,
	}
}

// ShellNetworkDefaults gives the default parameters for the C8 shell
// network pattern query (spec §4.8).
type ShellNetworkDefaults struct {
	MinCompanies      int     `yaml:"min_companies"`
	MaxEmployees      int     `yaml:"max_employees"`
	MaxRevenue        float64 `yaml:"max_revenue"`
	IncludeDissolved  bool    `yaml:"include_dissolved"`
	QueryDeadline     time.Duration `yaml:"query_deadline"`
	PhoenixWindowDays int     `yaml:"phoenix_window_days"`
}

func DefaultShellNetworkDefaults() ShellNetworkDefaults {
	return ShellNetworkDefaults{
		MinCompanies:      3,
		MaxEmployees:      2,
		MaxRevenue:        500000,
		IncludeDissolved:  false,
		QueryDeadline:     10 * time.Second,
		PhoenixWindowDays: 180,
	}
}

// DatabaseConfig configures the Postgres-backed Store, mirroring the
// teacher's internal/database.Config shape.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "fraudwatch",
		Database:        "fraudwatch_core",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// ConnectionString builds a libpq connection string; the password is
// only included when non-empty so logs never accidentally show an
// empty password field.
func (c DatabaseConfig) ConnectionString() string {
	s := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, c.SSLMode)
	if c.Password != "" {
		s += " password=" + c.Password
	}
	return s
}

func (c DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535")
	}
	if c.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max open connections must be greater than 0")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("max idle connections must be non-negative")
	}
	return nil
}

// LoadFromEnv overrides database fields from DB_* environment variables,
// mirroring the teacher's internal/database.Config.LoadFromEnv.
func (c *DatabaseConfig) LoadFromEnv() {
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("DB_SSL_MODE"); v != "" {
		c.SSLMode = v
	}
}

// RedisConfig configures the optional shared-read cache backing the
// blocking index (C3) and derivation memoization cache (C7).
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// LoggingConfig selects level/format for the ambient logging stack.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the thin reference query adapter
// (cmd/coreservice).
type ServerConfig struct {
	Port        string `yaml:"port"`
	MetricsPort string `yaml:"metrics_port"`
}

// CoreConfig is the single explicit configuration value threaded through
// every component — never a package-level global (spec §9).
type CoreConfig struct {
	Database           DatabaseConfig       `yaml:"database"`
	Redis              RedisConfig          `yaml:"redis"`
	Logging            LoggingConfig        `yaml:"logging"`
	Server             ServerConfig         `yaml:"server"`
	ResolutionThresholds ResolutionThresholds `yaml:"resolution_thresholds"`
	FeatureWeights     FeatureWeights       `yaml:"feature_weights"`
	SourceAuthority    SourceAuthorityTable `yaml:"-"`
	Retry              RetryConfig          `yaml:"retry"`
	Derivation         DerivationConfig     `yaml:"derivation"`
	ShellNetwork       ShellNetworkDefaults `yaml:"shell_network"`
}

// Default returns the fully-defaulted configuration.
func Default() *CoreConfig {
	return &CoreConfig{
		Database:             DefaultDatabaseConfig(),
		Redis:                RedisConfig{Addr: "localhost:6379", Enabled: false},
		Logging:              LoggingConfig{Level: "info", Format: "json"},
		Server:               ServerConfig{Port: "8090", MetricsPort: "9090"},
		ResolutionThresholds: DefaultResolutionThresholds(),
		FeatureWeights:       DefaultFeatureWeights(),
		SourceAuthority:      DefaultSourceAuthorityTable(),
		Retry:                DefaultRetryConfig(),
		Derivation:           DefaultDerivationConfig(),
		ShellNetwork:         DefaultShellNetworkDefaults(),
	}
}

// Load reads a YAML config file, overlays environment overrides, and
// validates the result. A missing file is not an error; the defaults
// stand in for it, still subject to the environment overrides.
func Load(path string) (*CoreConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// no file: keep the defaults
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
			if cfg.SourceAuthority == nil {
				cfg.SourceAuthority = DefaultSourceAuthorityTable()
			}
		}
	}
	cfg.Database.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants of the configuration.
func (c *CoreConfig) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	for name, th := range map[string]Thresholds{
		"person": c.ResolutionThresholds.Person, "company": c.ResolutionThresholds.Company,
		"address": c.ResolutionThresholds.Address,
	} {
		if th.Auto < th.ReviewMin {
			return fmt.Errorf("%s thresholds: auto (%v) must be >= review_min (%v)", name, th.Auto, th.ReviewMin)
		}
		if th.Auto > 1.0 || th.ReviewMin < 0 {
			return fmt.Errorf("%s thresholds must fall within [0,1]", name)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1")
	}
	return nil
}

// Watcher republishes CoreConfig snapshots as the backing file changes.
// It never mutates a shared config in place (spec §9 redesign note) —
// each change produces a brand new *CoreConfig that callers must
// explicitly fetch via Current().
type Watcher struct {
	path    string
	current atomic.Pointer[CoreConfig]
	watcher *fsnotify.Watcher
	changes chan *CoreConfig
}

// NewWatcher loads the initial config and starts watching path for
// changes. Call Close to stop watching.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, changes: make(chan *CoreConfig, 1)}
	w.current.Store(cfg)
	if path == "" {
		return w, nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}
	w.watcher = fw
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				continue // keep serving the last good snapshot
			}
			w.current.Store(cfg)
			select {
			case w.changes <- cfg:
			default:
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Current returns the most recently loaded config snapshot.
func (w *Watcher) Current() *CoreConfig {
	return w.current.Load()
}

// Changes receives a new snapshot each time the backing file reloads
// successfully.
func (w *Watcher) Changes() <-chan *CoreConfig {
	return w.changes
}

// Close stops the underlying file watcher, if any.
func (w *Watcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}
