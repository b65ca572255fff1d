package cmd

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-news-crawl/pkg/feed"
	"github.com/shouni/go-news-crawl/pkg/types"
)

var symbol string

// runResolvePipeline は、シンボルのフィードURLを組み立てて取得・パースします。
func runResolvePipeline(ctx context.Context, feedURL string, parser *feed.Parser) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, overallTimeout())
	defer cancel()

	parsedFeed, err := parser.FetchAndParse(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w (URL: %s): %w", types.ErrFeed, feedURL, err)
	}
	return parsedFeed, nil
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "1つのシンボルのニュースフィードを解決し、記事リンクを一覧表示します",
	Long:  `指定されたシンボルからニュース検索フィードのURLを組み立て、フィード内の記事タイトルとURLを表示します。ファイルは作成しません。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		if globalFetcher == nil {
			return fmt.Errorf("HTTPクライアントが初期化されていません")
		}

		// 1. フィードURLの組み立て
		feedURL := feed.BuildQueryURL(appConfig.FeedURLTemplate, types.Identifier(symbol))
		appLogger.Info("フィードを解決します", zap.String("symbol", symbol), zap.String("feed_url", feedURL))

		// 2. 取得とパース
		parsedFeed, err := runResolvePipeline(cmd.Context(), feedURL, feed.NewParser(globalFetcher))
		if err != nil {
			return fmt.Errorf("フィード解決の実行エラー: %w", err)
		}
		entries := feed.Entries(parsedFeed)

		// 3. 結果の出力
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "--- フィード解決結果 (%s) ---\n", symbol)
		fmt.Fprintf(out, "フィードタイトル: %s\n", parsedFeed.Title)
		fmt.Fprintf(out, "合計リンク数: %d\n", len(entries))
		fmt.Fprintln(out, "-----------------------")

		for i, e := range entries {
			fmt.Fprintf(out, "[%d] %s\n", i+1, e.Title)
			fmt.Fprintf(out, "    URL: %s\n", e.Link)
			if e.Published != nil {
				fmt.Fprintf(out, "    公開日: %s\n", e.Published.Local().Format("2006-01-02 15:04:05"))
			}
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&symbol, "symbol", "s", "", "解決対象のシンボル (例: AAPL)")
	_ = resolveCmd.MarkFlagRequired("symbol")
}
