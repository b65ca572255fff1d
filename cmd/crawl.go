package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-news-crawl/internal/pipeline"
)

var (
	outputDir string
	debugDump bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <tick_config>",
	Short: "シンボル一覧のニュースフィードを解決し、記事本文をファイルへ抽出します",
	Long: `シンボル一覧ファイル (Symbol 列を持つCSV) を読み込み、シンボルごとのニュースフィードから記事リンクを集め、
各リンクの本文テキストを断片ごとに1ファイルとして書き出します。
個々のリンクやフィードの失敗は記録され、実行は継続されます。`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 割り込みでキャンセルされるコンテキスト
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 2. パイプラインの実行
		summary, err := pipeline.Run(ctx, appConfig,
			pipeline.Options{
				TickConfig: args[0],
				OutputDir:  outputDir,
				Verbose:    clibase.Flags.Verbose,
				Debug:      debugDump,
			},
			pipeline.Deps{
				Fetcher: globalFetcher,
				Logger:  appLogger,
				Out:     cmd.OutOrStdout(),
			},
		)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				appLogger.Warn("received interrupt: quitting crawler")
				return fmt.Errorf("クロールは中断されました: %w", err)
			}
			return fmt.Errorf("クロールの実行エラー: %w", err)
		}

		// 3. 結果の出力
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "--- クロール結果 ---")
		fmt.Fprintf(out, "出力先: %s\n", summary.RunDir)
		fmt.Fprintf(out, "シンボル数: %d (フィード失敗: %d)\n", summary.Identifiers, summary.FailedFeeds)
		fmt.Fprintf(out, "リンク数: %d (成功: %d, 失敗: %d)\n", summary.Links, summary.Written, summary.Failed)
		renderFeedTable(out, summary)
		if clibase.Flags.Verbose {
			renderFailureTable(out, summary)
		}
		appLogger.Info("クロールが完了しました",
			zap.Int("written", summary.Written),
			zap.Int("failed", summary.Failed),
		)
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVarP(&outputDir, "output_dir", "o", "", "出力先ディレクトリ (指定時は crawler_data_<日時> を作成)")
	crawlCmd.Flags().BoolVarP(&debugDump, "debug", "d", false, "クロール前にリンク一覧を links.txt へ書き出す")
}
