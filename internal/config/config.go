package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// MAILSIFT_SOURCE_PATH for source.path.
const EnvPrefix = "MAILSIFT"

// Config holds all mailsift configuration.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Parse    ParseConfig    `mapstructure:"parse"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Tagger   TaggerConfig   `mapstructure:"tagger"`
	Output   OutputConfig   `mapstructure:"output"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      LogConfig      `mapstructure:"log"`
}

// SourceConfig selects and configures the record source.
type SourceConfig struct {
	Provider      string `mapstructure:"provider" validate:"required,oneof=csv maildir"`
	Path          string `mapstructure:"path" validate:"required"`
	FileColumn    string `mapstructure:"file_column"`
	MessageColumn string `mapstructure:"message_column"`
	Limit         int    `mapstructure:"limit" validate:"gte=0"`
}

// ParseConfig holds per-record parsing settings.
type ParseConfig struct {
	Strategy         string   `mapstructure:"strategy" validate:"oneof=blankline sentinel"`
	Sentinel         string   `mapstructure:"sentinel" validate:"required_if=Strategy sentinel"`
	Fallback         string   `mapstructure:"fallback" validate:"oneof=body header"`
	Fields           []string `mapstructure:"fields" validate:"dive,required"`
	HeaderMode       string   `mapstructure:"header_mode" validate:"oneof=verbatim projection"`
	NormalizeHeaders bool     `mapstructure:"normalize_headers"`
	DecodeWords      bool     `mapstructure:"decode_words"`
	BlankLines       string   `mapstructure:"blank_lines" validate:"oneof=double single"`
}

// FilterConfig holds the optional post-filters. Empty strings disable a
// stage.
type FilterConfig struct {
	PathContains string `mapstructure:"path_contains"`
	NonEmpty     string `mapstructure:"non_empty"`
	GroupBy      string `mapstructure:"group_by"`
	MinGroupSize int    `mapstructure:"min_group_size" validate:"gte=1"`
}

// TaggerConfig selects the entity tagger.
type TaggerConfig struct {
	Provider  string  `mapstructure:"provider" validate:"oneof=none onnx remote"`
	Field     string  `mapstructure:"field" validate:"required"`
	MinScore  float64 `mapstructure:"min_score" validate:"gte=0,lte=1"`

	// onnx
	ModelDir    string `mapstructure:"model_dir" validate:"required_if=Provider onnx"`
	MaxSeqLen   int    `mapstructure:"max_seq_len" validate:"gte=3"`
	Cased       bool   `mapstructure:"cased"` // keep case and accents when tokenizing
	Threads     int    `mapstructure:"threads" validate:"gte=1"`
	LibraryPath string `mapstructure:"library_path"` // "" = libonnxruntime.so in model_dir

	// remote
	Endpoint         string        `mapstructure:"endpoint" validate:"required_if=Provider remote"`
	APIKey           string        `mapstructure:"api_key"`
	RateLimit        float64       `mapstructure:"rate_limit" validate:"gte=0"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Retries          int           `mapstructure:"retries" validate:"gte=0"`
	RetryInterval    time.Duration `mapstructure:"retry_interval"`
	BreakerThreshold int           `mapstructure:"breaker_threshold" validate:"gte=1"`
}

// OutputConfig selects the sinks. Several formats fan out to all of them.
type OutputConfig struct {
	Format  []string `mapstructure:"format" validate:"required,min=1,dive,oneof=stdout csv sqlite"`
	Path    string   `mapstructure:"path"`
	DB      string   `mapstructure:"db"`
	Columns string   `mapstructure:"columns" validate:"oneof=headers fields"`
	Pretty  bool     `mapstructure:"pretty"`
	MaxSize int64    `mapstructure:"max_size" validate:"gte=0"` // csv rotation size in bytes, 0 = never
	Append  bool     `mapstructure:"append"`                    // append to an existing csv file
}

// PipelineConfig holds concurrency and progress settings.
type PipelineConfig struct {
	Workers       int `mapstructure:"workers" validate:"gte=1"`
	ProgressEvery int `mapstructure:"progress_every" validate:"gte=0"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.provider", "csv")
	v.SetDefault("source.path", "emails.csv")
	v.SetDefault("source.file_column", "file")
	v.SetDefault("source.message_column", "message")
	v.SetDefault("source.limit", 0)

	v.SetDefault("parse.strategy", "blankline")
	v.SetDefault("parse.sentinel", "X-FileName")
	v.SetDefault("parse.fallback", "body")
	v.SetDefault("parse.fields", []string{"Subject", "X-Folder"})
	v.SetDefault("parse.header_mode", "verbatim")
	v.SetDefault("parse.normalize_headers", false)
	v.SetDefault("parse.decode_words", false)
	v.SetDefault("parse.blank_lines", "double")

	v.SetDefault("filter.path_contains", "")
	v.SetDefault("filter.non_empty", "")
	v.SetDefault("filter.group_by", "")
	v.SetDefault("filter.min_group_size", 3)

	v.SetDefault("tagger.provider", "none")
	v.SetDefault("tagger.field", "Body")
	v.SetDefault("tagger.model_dir", "models/pii")
	v.SetDefault("tagger.endpoint", "")
	v.SetDefault("tagger.api_key", "")
	v.SetDefault("tagger.min_score", 0.0)
	v.SetDefault("tagger.max_seq_len", 512)
	v.SetDefault("tagger.rate_limit", 0.0)
	v.SetDefault("tagger.timeout", 30*time.Second)
	v.SetDefault("tagger.cased", false)
	v.SetDefault("tagger.threads", 4)
	v.SetDefault("tagger.library_path", "")
	v.SetDefault("tagger.retries", 3)
	v.SetDefault("tagger.retry_interval", time.Second)
	v.SetDefault("tagger.breaker_threshold", 5)

	v.SetDefault("output.format", []string{"stdout"})
	v.SetDefault("output.path", "emails_normalized.csv")
	v.SetDefault("output.db", "mailsift.db")
	v.SetDefault("output.columns", "headers")
	v.SetDefault("output.pretty", false)
	v.SetDefault("output.max_size", 0)
	v.SetDefault("output.append", false)

	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.progress_every", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configuration from the optional YAML file at path, then
// MAILSIFT_* environment variables, on top of defaults. The result is
// validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	cfg.normalize()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize lowercases enum-like values so "Sentinel" and "sentinel" are
// equivalent.
func (c *Config) normalize() {
	for _, s := range []*string{
		&c.Source.Provider, &c.Parse.Strategy, &c.Parse.Fallback,
		&c.Parse.HeaderMode, &c.Parse.BlankLines, &c.Tagger.Provider,
		&c.Output.Columns, &c.Log.Level, &c.Log.Format,
	} {
		*s = strings.ToLower(strings.TrimSpace(*s))
	}
	for i, f := range c.Output.Format {
		c.Output.Format[i] = strings.ToLower(strings.TrimSpace(f))
	}
	for i, f := range c.Parse.Fields {
		c.Parse.Fields[i] = strings.TrimSpace(f)
	}
}

var validate = validator.New()

// Validate checks cfg and reports every invalid field.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}
