package cmd

import (
	"fmt"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-news-crawl/internal/config"
	"github.com/shouni/go-news-crawl/internal/logger"
	"github.com/shouni/go-news-crawl/internal/pipeline"
	"github.com/shouni/go-news-crawl/pkg/scraper"
)

// --- グローバル定数 ---

const (
	appName           = "news-crawl"
	defaultTimeoutSec = 10 // 秒

	// 単一URL処理の全体タイムアウト (クライアントタイムアウト未設定時)
	DefaultOverallTimeout = 20 * time.Second
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	TimeoutSec  int // --timeout タイムアウト
	Parallelism int // --parallelism 同時クロール数
}

var Flags AppFlags

var (
	appConfig     *config.Config
	appLogger     = zap.NewNop()
	globalFetcher *httpkit.Client
)

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		defaultTimeoutSec,
		"HTTPリクエストのタイムアウト時間（秒）",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.Parallelism,
		"parallelism",
		scraper.DefaultMaxConcurrency,
		"同時にクロールするリンクの最大数",
	)
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	// 1. 設定の読み込み (フラグ > 環境変数 > 設定ファイル > デフォルト)
	v, err := config.New()
	if err != nil {
		return err
	}
	for key, name := range map[string]string{
		config.KeyTimeout:     "timeout",
		config.KeyParallelism: "parallelism",
	} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("フラグ %s のバインドに失敗しました: %w", name, err)
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("設定エラー: %w", err)
	}
	appConfig = cfg

	// 2. ロガーの初期化
	l, err := logger.New(cfg.LogLevel, clibase.Flags.Verbose)
	if err != nil {
		return err
	}
	appLogger = l

	// 3. 共有フェッチャーの初期化 (リトライなし)
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	globalFetcher = pipeline.NewFetcher(timeout)

	appLogger.Debug("設定を読み込みました",
		zap.Duration("timeout", timeout),
		zap.Int("parallelism", cfg.Parallelism),
		zap.String("feed_url_template", cfg.FeedURLTemplate),
		zap.Strings("selectors", cfg.Selectors),
	)
	return nil
}

// overallTimeout は単一URL処理の全体タイムアウトです。クライアントタイムアウトの2倍とします。
func overallTimeout() time.Duration {
	if appConfig == nil || appConfig.TimeoutSec == 0 {
		return DefaultOverallTimeout
	}
	return time.Duration(appConfig.TimeoutSec) * 2 * time.Second
}

// --- エントリポイント ---

// Execute は、clibase を使ってルートコマンドを組み立てて実行します。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		crawlCmd,
		resolveCmd,
		extractCmd,
	)
	_ = appLogger.Sync()
}
