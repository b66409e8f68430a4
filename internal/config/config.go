package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"socialpulse/internal/analysis"
	"socialpulse/internal/moderation"
	"socialpulse/internal/sentiment"
	"socialpulse/internal/services"
	"socialpulse/internal/thread"
	"socialpulse/internal/utils"
)

// Config 启动时加载一次，之后只读
type Config struct {
	Port           string
	DatabaseDriver string
	DatabaseURL    string
	SessionSecret  string
	LogLevel       string
	LogFormat      string

	Analysis   AnalysisConfig
	Moderation moderation.Thresholds
	Sentiment  sentiment.Thresholds
	Pipeline   PipelineConfig
	Ranking    RankingConfig
}

type AnalysisConfig struct {
	BaseURL   string
	Policy    analysis.Policy
	Breaker   analysis.BreakerSettings
	CacheSize int
	CacheTTL  time.Duration
	RedisURL  string
}

type PipelineConfig struct {
	FailureMode services.FailureMode
	MaxDepth    int
	DepthPolicy thread.DepthPolicy
}

type RankingConfig struct {
	Popularity  utils.PopularityConfig
	RefreshSpec string
	QueueSize   int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("session.secret", "secret_key_change_me")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	p := analysis.DefaultPolicy()
	b := analysis.DefaultBreakerSettings()
	v.SetDefault("analysis.url", "http://localhost:8000")
	v.SetDefault("analysis.timeout", p.Timeout)
	v.SetDefault("analysis.max_attempts", p.MaxAttempts)
	v.SetDefault("analysis.backoff", string(p.Backoff))
	v.SetDefault("analysis.backoff_initial", p.InitialInterval)
	v.SetDefault("analysis.backoff_max", p.MaxInterval)
	v.SetDefault("analysis.breaker_failures", b.MaxFailures)
	v.SetDefault("analysis.breaker_timeout", b.OpenTimeout)
	v.SetDefault("analysis.cache_size", 1000)
	v.SetDefault("analysis.cache_ttl", time.Hour)
	v.SetDefault("analysis.redis_url", "")

	m := moderation.DefaultThresholds()
	v.SetDefault("moderation.block", m.Block)
	for c, th := range m.Tag {
		v.SetDefault("moderation.tag."+string(c), th)
	}

	s := sentiment.DefaultThresholds()
	v.SetDefault("sentiment.joy_min", s.JoyMin)
	v.SetDefault("sentiment.joy_cap", s.JoyCap)
	v.SetDefault("sentiment.fallback_confidence", s.FallbackConfidence)
	v.SetDefault("sentiment.pattern_confidence", s.PatternConfidence)

	v.SetDefault("pipeline.failure_mode", string(services.FailOpen))
	v.SetDefault("pipeline.max_depth", thread.DefaultMaxDepth)
	v.SetDefault("pipeline.depth_policy", string(thread.DepthReject))

	v.SetDefault("ranking.base_score", utils.DefaultPopularityConfig.BaseScore)
	v.SetDefault("ranking.decay_hours", utils.DefaultPopularityConfig.DecayHours)
	v.SetDefault("ranking.sentiment_weight", utils.DefaultPopularityConfig.SentimentWeight)
	v.SetDefault("ranking.refresh", "@every 15m")
	v.SetDefault("ranking.queue_size", 1000)
}

// Load 从 .env、config.yaml 和环境变量加载配置，环境变量优先
// 环境变量名为配置键大写并把 '.' 换成 '_'，如 ANALYSIS_TIMEOUT
func Load() (Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper 从已填充的 viper 实例构造配置
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	tags := make(map[moderation.Category]float64)
	for _, c := range moderation.Categories() {
		key := "moderation.tag." + string(c)
		if v.IsSet(key) {
			tags[c] = v.GetFloat64(key)
		}
	}

	cfg := Config{
		Port:           v.GetString("port"),
		DatabaseDriver: v.GetString("database.driver"),
		DatabaseURL:    v.GetString("database.url"),
		SessionSecret:  v.GetString("session.secret"),
		LogLevel:       v.GetString("log.level"),
		LogFormat:      v.GetString("log.format"),
		Analysis: AnalysisConfig{
			BaseURL: v.GetString("analysis.url"),
			Policy: analysis.Policy{
				Timeout:         v.GetDuration("analysis.timeout"),
				MaxAttempts:     v.GetInt("analysis.max_attempts"),
				Backoff:         analysis.BackoffKind(v.GetString("analysis.backoff")),
				InitialInterval: v.GetDuration("analysis.backoff_initial"),
				MaxInterval:     v.GetDuration("analysis.backoff_max"),
			},
			Breaker: analysis.BreakerSettings{
				MaxFailures: v.GetUint32("analysis.breaker_failures"),
				OpenTimeout: v.GetDuration("analysis.breaker_timeout"),
			},
			CacheSize: v.GetInt("analysis.cache_size"),
			CacheTTL:  v.GetDuration("analysis.cache_ttl"),
			RedisURL:  v.GetString("analysis.redis_url"),
		},
		Moderation: moderation.Thresholds{
			Block: v.GetFloat64("moderation.block"),
			Tag:   tags,
		},
		Sentiment: sentiment.Thresholds{
			JoyMin:             v.GetFloat64("sentiment.joy_min"),
			JoyCap:             v.GetFloat64("sentiment.joy_cap"),
			FallbackConfidence: v.GetFloat64("sentiment.fallback_confidence"),
			PatternConfidence:  v.GetFloat64("sentiment.pattern_confidence"),
		},
		Pipeline: PipelineConfig{
			FailureMode: services.FailureMode(v.GetString("pipeline.failure_mode")),
			MaxDepth:    v.GetInt("pipeline.max_depth"),
			DepthPolicy: thread.DepthPolicy(v.GetString("pipeline.depth_policy")),
		},
		Ranking: RankingConfig{
			Popularity: utils.PopularityConfig{
				BaseScore:       v.GetFloat64("ranking.base_score"),
				DecayHours:      v.GetFloat64("ranking.decay_hours"),
				SentimentWeight: v.GetFloat64("ranking.sentiment_weight"),
			},
			RefreshSpec: v.GetString("ranking.refresh"),
			QueueSize:   v.GetInt("ranking.queue_size"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查取值范围
func (c Config) Validate() error {
	var errs []error
	if err := c.Analysis.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("analysis: %w", err))
	}
	if t := c.Analysis.Policy.Timeout; t < 500*time.Millisecond || t > 10*time.Second {
		errs = append(errs, fmt.Errorf("analysis.timeout %s outside 500ms-10s", t))
	}
	if c.Analysis.BaseURL == "" {
		errs = append(errs, errors.New("analysis.url is required"))
	}
	if !unit(c.Moderation.Block) {
		errs = append(errs, fmt.Errorf("moderation.block %v outside [0,1]", c.Moderation.Block))
	}
	for cat, th := range c.Moderation.Tag {
		if !unit(th) {
			errs = append(errs, fmt.Errorf("moderation.tag.%s %v outside [0,1]", cat, th))
		}
	}
	s := c.Sentiment
	if !unit(s.JoyMin) || !unit(s.JoyCap) || !unit(s.FallbackConfidence) || !unit(s.PatternConfidence) {
		errs = append(errs, errors.New("sentiment thresholds must be within [0,1]"))
	}
	if _, err := services.ParseFailureMode(string(c.Pipeline.FailureMode)); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}
	if c.Pipeline.MaxDepth < 0 {
		errs = append(errs, errors.New("pipeline.max_depth must not be negative"))
	}
	if _, err := thread.ParseDepthPolicy(string(c.Pipeline.DepthPolicy)); err != nil {
		errs = append(errs, err)
	}
	if c.Ranking.Popularity.DecayHours <= 0 {
		errs = append(errs, errors.New("ranking.decay_hours must be positive"))
	}
	if c.Ranking.QueueSize < 1 {
		errs = append(errs, errors.New("ranking.queue_size must be positive"))
	}
	return errors.Join(errs...)
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
