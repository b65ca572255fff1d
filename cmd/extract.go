package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-news-crawl/pkg/extract"
)

var rawURL string

// runExtractionPipeline は、1ページに抽出ポリシーを適用します。
func runExtractionPipeline(ctx context.Context, pageURL string, extractor *extract.Extractor) (extract.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, overallTimeout())
	defer cancel()

	res, err := extractor.FetchAndExtract(ctx, pageURL)
	if err != nil {
		return res, fmt.Errorf("コンテンツ抽出エラー (URL: %s): %w", pageURL, err)
	}
	return res, nil
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "指定されたURLまたは標準入力のURLから本文テキストの断片を抽出します",
	Long:  `クロールと同じ抽出ポリシー (既定は p、見つからなければ span) を1ページに適用し、断片を表示します。ファイルは作成しません。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 処理対象URLの決定 (フラグ優先)
		urlToProcess := rawURL
		if urlToProcess == "" {
			appLogger.Info("URLが指定されていないため、標準入力からURLを読み込みます")
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.OutOrStdout(), "処理するURLを入力してください: ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("標準入力の読み取りエラー: %w", err)
				}
				return fmt.Errorf("URLが入力されていません")
			}
			urlToProcess = scanner.Text()
		}

		// 2. URLのスキーム補完とバリデーション
		processedURL, err := ensureScheme(urlToProcess)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}
		appLogger.Info("処理対象URL", zap.String("url", processedURL), zap.Duration("timeout", overallTimeout()))

		// 3. 依存性の初期化
		if globalFetcher == nil {
			return fmt.Errorf("HTTPクライアントが初期化されていません")
		}
		policy, err := extract.NewPolicy(extract.StrategiesFromSelectors(appConfig.Selectors)...)
		if err != nil {
			return fmt.Errorf("抽出ポリシーの初期化エラー: %w", err)
		}
		extractor, err := extract.NewExtractor(globalFetcher, policy)
		if err != nil {
			return fmt.Errorf("Extractorの初期化エラー: %w", err)
		}

		// 4. 抽出の実行
		res, err := runExtractionPipeline(cmd.Context(), processedURL, extractor)
		if err != nil {
			return err
		}

		// 5. 結果の出力
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "--- 抽出された断片 (戦略: %s, %d件) ---\n", res.Strategy, len(res.Fragments))
		for i, fragment := range res.Fragments {
			fmt.Fprintf(out, "[%d] %s\n", i, fragment)
		}
		fmt.Fprintln(out, "-----------------------")
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&rawURL, "url", "u", "", "抽出対象のURL")
}
