package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/suburb-insights/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Filters FiltersConfig `yaml:"filters" mapstructure:"filters"`
	Finance FinanceConfig `yaml:"finance" mapstructure:"finance"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourceFile locates one input dataset. Relative paths resolve against
// DataConfig.Dir (DataConfig.GeometryDir for boundaries). Sample is tried when Path is missing or empty.
type SourceFile struct {
	Path     string `yaml:"path" mapstructure:"path"`
	Sample   string `yaml:"sample" mapstructure:"sample"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
	Sheet    string `yaml:"sheet" mapstructure:"sheet"`
	Member   string `yaml:"member" mapstructure:"member"` // archive member for .zip sources
}

// DataConfig locates the input datasets.
type DataConfig struct {
	Dir            string     `yaml:"dir" mapstructure:"dir"`
	GeometryDir    string     `yaml:"geometry_dir" mapstructure:"geometry_dir"`
	TempDir        string     `yaml:"temp_dir" mapstructure:"temp_dir"`
	Ownership      SourceFile `yaml:"ownership" mapstructure:"ownership"`
	SEIFA          SourceFile `yaml:"seifa" mapstructure:"seifa"`
	Vacancy        SourceFile `yaml:"vacancy" mapstructure:"vacancy"`
	Medians        SourceFile `yaml:"medians" mapstructure:"medians"`
	CashRate       SourceFile `yaml:"cash_rate" mapstructure:"cash_rate"`
	Correspondence SourceFile `yaml:"correspondence" mapstructure:"correspondence"`
	Geometry       SourceFile `yaml:"geometry" mapstructure:"geometry"`
	StampDuty      SourceFile `yaml:"stamp_duty" mapstructure:"stamp_duty"`
}

// ScoringConfig configures the composite score. Weights are keyed by metric
// name; factors left out keep their default weight.
type ScoringConfig struct {
	Weights        map[string]float64 `yaml:"weights" mapstructure:"weights"`
	MissingPolicy  string             `yaml:"missing_policy" mapstructure:"missing_policy"`
	MissingDefault float64            `yaml:"missing_default" mapstructure:"missing_default"`
	ProfilePath    string             `yaml:"profile_path" mapstructure:"profile_path"`
	Profile        string             `yaml:"profile" mapstructure:"profile"`
}

// FiltersConfig narrows the population a run ranks.
type FiltersConfig struct {
	States   []string `yaml:"states" mapstructure:"states"`
	Limit    int      `yaml:"limit" mapstructure:"limit"`
	MinScore *float64 `yaml:"min_score" mapstructure:"min_score"`
}

// FinanceConfig holds the loan assumptions behind the repayment metric and
// the mortgage estimator.
type FinanceConfig struct {
	InterestRatePct     float64 `yaml:"interest_rate_pct" mapstructure:"interest_rate_pct"`
	LoanTermYears       int     `yaml:"loan_term_years" mapstructure:"loan_term_years"`
	DepositPct          float64 `yaml:"deposit_pct" mapstructure:"deposit_pct"`
	AssessmentBufferPct float64 `yaml:"assessment_buffer_pct" mapstructure:"assessment_buffer_pct"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env values become ordinary environment overrides; a missing file is fine.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SUBURB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.geometry_dir", "geometry")
	v.SetDefault("data.temp_dir", "")
	v.SetDefault("data.ownership.path", "abs_tenure_home_ownership_sa2.csv")
	v.SetDefault("data.ownership.sample", "abs_tenure_home_ownership_sa2_sample.csv")
	v.SetDefault("data.ownership.encoding", "utf-8")
	v.SetDefault("data.seifa.path", "abs_seifa_irsad_sa2.csv")
	v.SetDefault("data.seifa.sample", "abs_seifa_irsad_sa2_sample.csv")
	v.SetDefault("data.seifa.encoding", "utf-8")
	v.SetDefault("data.vacancy.path", "vacancy_by_postcode.csv")
	v.SetDefault("data.vacancy.sample", "sqm_vacancy_postcode_sample.csv")
	v.SetDefault("data.vacancy.encoding", "utf-8")
	v.SetDefault("data.medians.path", "vic_vpsr_medians.csv")
	v.SetDefault("data.medians.sample", "vic_vpsr_medians_sample.csv")
	v.SetDefault("data.medians.encoding", "utf-8")
	v.SetDefault("data.medians.sheet", "")
	v.SetDefault("data.cash_rate.path", "rba_cash_rate_history.csv")
	v.SetDefault("data.cash_rate.sample", "rba_cash_rate_history_sample.csv")
	v.SetDefault("data.cash_rate.encoding", "utf-8")
	v.SetDefault("data.correspondence.path", "postcode_to_sa2_2021.csv")
	v.SetDefault("data.correspondence.sample", "postcode_to_sa2_2021_sample.csv")
	v.SetDefault("data.correspondence.encoding", "utf-8")
	v.SetDefault("data.geometry.path", "sa2_2021_full.geojson")
	v.SetDefault("data.geometry.sample", "sa2_2021_simplified.geojson")
	v.SetDefault("data.stamp_duty.path", "stamp_duty_tables.csv")
	v.SetDefault("data.stamp_duty.sample", "stamp_duty_tables_sample.csv")
	v.SetDefault("data.stamp_duty.encoding", "utf-8")
	v.SetDefault("scoring.missing_policy", "renormalize")
	v.SetDefault("scoring.missing_default", 0.0)
	v.SetDefault("scoring.profile_path", "")
	v.SetDefault("scoring.profile", "")
	v.SetDefault("filters.states", []string{})
	v.SetDefault("filters.limit", 0)
	v.SetDefault("finance.interest_rate_pct", 6.0)
	v.SetDefault("finance.loan_term_years", 30)
	v.SetDefault("finance.deposit_pct", 20.0)
	v.SetDefault("finance.assessment_buffer_pct", 3.0)
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

	return &cfg, nil
}

// Validate checks the configuration for the given mode ("rank" or "serve").
// Scoring weights are validated by the scorer, which knows the factor set.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "rank":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if strings.TrimSpace(c.Data.Dir) == "" {
		errs = append(errs, "data.dir is required")
	}
	switch c.Scoring.MissingPolicy {
	case "renormalize", "default":
	default:
		errs = append(errs, fmt.Sprintf("scoring.missing_policy must be renormalize or default, got %q", c.Scoring.MissingPolicy))
	}
	for _, st := range c.Filters.States {
		if _, ok := model.ParseState(st); !ok {
			errs = append(errs, fmt.Sprintf("filters.states: unknown state %q", st))
		}
	}
	if c.Filters.Limit < 0 {
		errs = append(errs, "filters.limit must be >= 0")
	}
	if c.Finance.InterestRatePct < 0 {
		errs = append(errs, "finance.interest_rate_pct must be >= 0")
	}
	if c.Finance.LoanTermYears <= 0 {
		errs = append(errs, "finance.loan_term_years must be > 0")
	}
	if c.Finance.DepositPct < 0 || c.Finance.DepositPct > 100 {
		errs = append(errs, "finance.deposit_pct must be between 0 and 100")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or console, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
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
