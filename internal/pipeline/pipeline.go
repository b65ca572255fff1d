package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shouni/go-news-crawl/internal/config"
	"github.com/shouni/go-news-crawl/pkg/extract"
	"github.com/shouni/go-news-crawl/pkg/feed"
	"github.com/shouni/go-news-crawl/pkg/scraper"
	"github.com/shouni/go-news-crawl/pkg/tickers"
	"github.com/shouni/go-news-crawl/pkg/types"
	"github.com/shouni/go-news-crawl/pkg/writer"
)

// runDirLayout は実行ディレクトリ名の日時部分 (DD_MM_YYYY_HH_MM) です。
const runDirLayout = "02_01_2006_15_04"

// Options は1回の実行に固有の指定です。
type Options struct {
	TickConfig string // シンボル一覧ファイルのパス
	OutputDir  string // 空の場合はカレントディレクトリに直接出力
	Verbose    bool
	Debug      bool // クロール前に LinkBatch をファイルへ書き出す
}

// Deps は外部の協調者です。
type Deps struct {
	Fetcher feed.Fetcher
	Logger  *zap.Logger
	Out     io.Writer        // Verbose 時のリンク一覧の出力先
	Now     func() time.Time // nil の場合は time.Now
}

// Summary は実行結果の集計です。
type Summary struct {
	RunID       string // ログ相関用の実行ID
	RunDir      string
	Identifiers int
	Links       int
	Written     int
	Failed      int
	FailedFeeds int
	Feeds       []feed.IdentifierReport // シンボルごとのフィード解決結果 (入力順)
	Outcomes    []types.ExtractionOutcome
}

// RunDir は実行ディレクトリのパスを返します。base が空ならカレントディレクトリです。
func RunDir(base string, now time.Time) string {
	if base == "" {
		return "."
	}
	return filepath.Join(base, "crawler_data_"+now.Format(runDirLayout))
}

// Run はシンボルの読み込みからフィード解決、クロール、抽出までを実行します。
// 入力ファイルの失敗 (tickers.ConfigError) とコンテキストのキャンセルのみが致命的です。
func Run(ctx context.Context, cfg *config.Config, opts Options, deps Deps) (*Summary, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	startedAt := now()

	// 1. シンボル一覧の読み込み
	ids, err := tickers.ReadFile(opts.TickConfig, cfg.InputColumn)
	if err != nil {
		return nil, err
	}

	// 2. 実行ディレクトリの作成
	summary := &Summary{RunID: runID, RunDir: RunDir(opts.OutputDir, startedAt), Identifiers: len(ids)}
	if err := os.MkdirAll(summary.RunDir, 0o755); err != nil {
		return nil, fmt.Errorf("実行ディレクトリの作成に失敗しました (%s): %w", summary.RunDir, err)
	}

	policy, err := extract.NewPolicy(extract.StrategiesFromSelectors(cfg.Selectors)...)
	if err != nil {
		return nil, fmt.Errorf("抽出ポリシーの初期化エラー: %w", err)
	}

	// 3. フィードの解決とリンクの集約
	resolver := feed.NewResolver(feed.NewParser(deps.Fetcher), summary.RunDir,
		feed.WithURLTemplate(cfg.FeedURLTemplate),
		feed.WithVerbose(opts.Verbose),
		feed.WithLogger(log),
	)
	batch, report, err := feed.NewAggregator(resolver, log).Aggregate(ctx, ids)
	if err != nil {
		return nil, err
	}
	summary.Links = batch.Len()
	summary.FailedFeeds = len(report.FailedFeeds())
	summary.Feeds = report.Identifiers

	if opts.Verbose && deps.Out != nil {
		for _, l := range batch {
			fmt.Fprintf(deps.Out, "%d\t%s\t%s\n", l.Index, l.Identifier, l.URL)
		}
	}

	// 4. デバッグ用のリンク一覧
	if opts.Debug {
		dumpPath := filepath.Join(summary.RunDir, feed.DebugDumpFileName)
		if err := feed.DumpToFile(dumpPath, batch); err != nil {
			return nil, err
		}
		log.Info("リンク一覧を書き出しました", zap.String("path", dumpPath), zap.Int("links", batch.Len()))
	}

	// 5. クロールと抽出
	log.Info("クロールを開始します",
		zap.Int("symbols", len(ids)),
		zap.Int("links", batch.Len()),
		zap.Int("parallelism", cfg.Parallelism),
	)
	dispatcher := scraper.NewDispatcher(policy, writer.New(startedAt),
		scraper.WithMaxConcurrency(cfg.Parallelism),
		scraper.WithRequestTimeout(time.Duration(cfg.TimeoutSec)*time.Second),
		scraper.WithLogger(log),
	)
	outcomes, err := dispatcher.Dispatch(ctx, batch)
	summary.Outcomes = outcomes
	for _, o := range outcomes {
		if o.OK() {
			summary.Written++
		} else {
			summary.Failed++
		}
	}
	if err != nil {
		return summary, err
	}
	return summary, nil
}
