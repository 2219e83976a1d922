package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shouni/go-sitemap-watch/pkg/sitemap"
)

const (
	EnvPrefix      = "SITEMAPWATCH"
	ConfigFileName = "sitemapwatch"

	DefaultIntervalSec  = 60
	DefaultContextLines = 3
	DefaultTimeoutSec   = 30
	DefaultMaxRetries   = 3
)

// Config はアプリケーション全体の設定です。
type Config struct {
	Monitor MonitorConfig `mapstructure:"monitor"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MonitorConfig は監視ループの設定です。
type MonitorConfig struct {
	URL          string `mapstructure:"url"`
	Interval     int    `mapstructure:"interval"` // 秒
	Namespace    string `mapstructure:"namespace"`
	ContextLines int    `mapstructure:"context_lines"`
	WorkDir      string `mapstructure:"work_dir"`
}

type HTTPConfig struct {
	Timeout    int    `mapstructure:"timeout"` // 秒
	MaxRetries uint64 `mapstructure:"max_retries"`
	UserAgent  string `mapstructure:"user_agent"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// NewViper は既定値と環境変数の設定を済ませた viper インスタンスを返します。
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("monitor.url", "")
	v.SetDefault("monitor.interval", DefaultIntervalSec)
	v.SetDefault("monitor.namespace", string(sitemap.NamespaceAuto))
	v.SetDefault("monitor.context_lines", DefaultContextLines)
	v.SetDefault("monitor.work_dir", "")
	v.SetDefault("http.timeout", DefaultTimeoutSec)
	v.SetDefault("http.max_retries", DefaultMaxRetries)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.addr", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load は設定ファイル (任意)、環境変数、バインド済みフラグを統合して Config を返します。
// configFile が空の場合は カレントディレクトリと ./config から sitemapwatch.yaml を探し、
// 見つからなくてもエラーにはしません。
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました (%s): %w", configFile, err)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の展開に失敗しました: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値の整合性を検証します。
func (c *Config) Validate() error {
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval は1秒以上である必要があります: %d", c.Monitor.Interval)
	}
	if c.Monitor.ContextLines < 0 {
		return fmt.Errorf("monitor.context_lines は0以上である必要があります: %d", c.Monitor.ContextLines)
	}
	if _, err := sitemap.ParseNamespace(c.Monitor.Namespace); err != nil {
		return fmt.Errorf("monitor.namespace が不正です: %w", err)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout は0以上である必要があります: %d", c.HTTP.Timeout)
	}
	return nil
}

// PollInterval はポーリング間隔を time.Duration で返します。
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.Interval) * time.Second
}

// HTTPTimeout は HTTP タイムアウトを time.Duration で返します。
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeout) * time.Second
}

// NamespaceMode は検証済みの名前空間モードを返します。
func (c *Config) NamespaceMode() sitemap.Namespace {
	ns, err := sitemap.ParseNamespace(c.Monitor.Namespace)
	if err != nil {
		return sitemap.NamespaceAuto
	}
	return ns
}
