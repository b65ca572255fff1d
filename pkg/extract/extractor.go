package extract

import (
	"context"
	"fmt"

	"github.com/shouni/go-news-crawl/pkg/types"
)

// Extractor は、1ページ分の取得と抽出ポリシーの適用を行います。
type Extractor struct {
	fetcher Fetcher
	policy  *Policy
}

// NewExtractor は、新しいExtractorのインスタンスを生成します。policy が nil の場合は DefaultPolicy を使います。
func NewExtractor(fetcher Fetcher, policy *Policy) (*Extractor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("extract.NewExtractor: Fetcher cannot be nil")
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Extractor{
		fetcher: fetcher,
		policy:  policy,
	}, nil
}

// FetchAndExtract は指定されたURLからHTMLを取得し、テキスト断片を抽出します。
// 取得の失敗は types.ErrFetch、テキストなしは types.ErrNoText でラップされます。
func (e *Extractor) FetchAndExtract(ctx context.Context, url string) (Result, error) {
	htmlBytes, err := e.fetcher.FetchBytes(ctx, url)
	if err != nil {
		return Result{}, fmt.Errorf("%w (URL: %s): %w", types.ErrFetch, url, err)
	}

	res, err := e.policy.ApplyHTML(htmlBytes)
	if err != nil {
		return res, fmt.Errorf("URL: %s: %w", url, err)
	}
	return res, nil
}
