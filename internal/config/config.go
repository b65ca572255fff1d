// Package config は viper による設定の読み込みを行います。
// 優先順位はフラグ > 環境変数 (NEWSCRAWL_*) > 設定ファイル > デフォルト値です。
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/shouni/go-news-crawl/internal/logger"
	"github.com/shouni/go-news-crawl/pkg/feed"
	"github.com/shouni/go-news-crawl/pkg/scraper"
	"github.com/shouni/go-news-crawl/pkg/tickers"
)

// EnvPrefix は環境変数のプレフィックスです。
const EnvPrefix = "NEWSCRAWL"

// 設定キー
const (
	KeyTimeout         = "timeout"
	KeyParallelism     = "parallelism"
	KeyFeedURLTemplate = "feed.url_template"
	KeyInputColumn     = "input.column"
	KeySelectors       = "extract.selectors"
	KeyLogLevel        = "log.level"
)

const defaultTimeoutSec = 10

// Config はアプリケーション全体の設定です。
type Config struct {
	TimeoutSec      int
	Parallelism     int
	FeedURLTemplate string
	InputColumn     string
	Selectors       []string
	LogLevel        string
}

// SetDefaults は v にデフォルト値を登録します。
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyTimeout, defaultTimeoutSec)
	v.SetDefault(KeyParallelism, scraper.DefaultMaxConcurrency)
	v.SetDefault(KeyFeedURLTemplate, feed.DefaultURLTemplate)
	v.SetDefault(KeyInputColumn, tickers.DefaultColumn)
	v.SetDefault(KeySelectors, []string{"p", "span"})
	v.SetDefault(KeyLogLevel, logger.DefaultLevel)
}

// New は環境変数と任意の設定ファイル (newscrawl.yaml) を読み込む viper を生成します。
// カレントディレクトリの .env があれば先に読み込みます。
func New() (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("newscrawl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
		}
	}
	return v, nil
}

// Load は v から設定を取り出して検証します。
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		TimeoutSec:      v.GetInt(KeyTimeout),
		Parallelism:     v.GetInt(KeyParallelism),
		FeedURLTemplate: v.GetString(KeyFeedURLTemplate),
		InputColumn:     v.GetString(KeyInputColumn),
		Selectors:       stringList(v, KeySelectors),
		LogLevel:        v.GetString(KeyLogLevel),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を確認します。
func (c *Config) Validate() error {
	if c.TimeoutSec < 0 {
		return fmt.Errorf("timeout は0以上である必要があります: %d", c.TimeoutSec)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism は1以上である必要があります: %d", c.Parallelism)
	}
	if !strings.Contains(c.FeedURLTemplate, feed.SymbolPlaceholder) {
		return fmt.Errorf("feed.url_template に %s が含まれていません: %s", feed.SymbolPlaceholder, c.FeedURLTemplate)
	}
	if c.InputColumn == "" {
		return fmt.Errorf("input.column が空です")
	}
	if len(c.Selectors) == 0 {
		return fmt.Errorf("extract.selectors が空です")
	}
	return nil
}

// stringList はリスト値を取り出します。環境変数由来の文字列はカンマで区切ります。
// セレクターは空白を含むため、viper の空白区切りは使いません。
func stringList(v *viper.Viper, key string) []string {
	var values []string
	if s, ok := v.Get(key).(string); ok {
		values = strings.Split(s, ",")
	} else {
		values = v.GetStringSlice(key)
	}

	var out []string
	for _, value := range values {
		if p := strings.TrimSpace(value); p != "" {
			out = append(out, p)
		}
	}
	return out
}
