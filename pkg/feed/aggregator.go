package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shouni/go-news-crawl/pkg/types"
)

// LinkResolver は1シンボル分のリンクを解決する機能のインターフェースです。
type LinkResolver interface {
	Resolve(ctx context.Context, id types.Identifier) (Resolution, error)
}

// IdentifierReport はシンボルごとの集約結果です。
type IdentifierReport struct {
	Identifier types.Identifier
	Links      int
	Err        error // フィード取得失敗時のみ
}

// Report は集約全体の結果です。
type Report struct {
	Identifiers []IdentifierReport
}

// FailedFeeds はフィード取得に失敗したシンボルの一覧を返します。
func (r Report) FailedFeeds() []IdentifierReport {
	var failed []IdentifierReport
	for _, ir := range r.Identifiers {
		if ir.Err != nil {
			failed = append(failed, ir)
		}
	}
	return failed
}

// Aggregator は全シンボルのリンクを処理順に1つの LinkBatch へまとめます。
type Aggregator struct {
	resolver LinkResolver
	logger   *zap.Logger
}

// NewAggregator は Aggregator を初期化します。
func NewAggregator(resolver LinkResolver, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{resolver: resolver, logger: logger}
}

// Aggregate は入力順にシンボルを解決し、結果を連結します。
// 並べ替え・重複排除・フィルタリングは行いません。Index は連結後の位置です。
func (a *Aggregator) Aggregate(ctx context.Context, ids []types.Identifier) (types.LinkBatch, Report, error) {
	batch := types.LinkBatch{}
	report := Report{Identifiers: make([]IdentifierReport, 0, len(ids))}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return batch, report, err
		}

		res, err := a.resolver.Resolve(ctx, id)
		if err != nil {
			return batch, report, fmt.Errorf("シンボル %s の解決に失敗しました: %w", id, err)
		}

		if res.FeedFailed() {
			a.logger.Warn("フィードを取得できませんでした",
				zap.String("symbol", string(id)),
				zap.String("feed_url", res.FeedURL),
				zap.Error(res.Err),
			)
		}

		for _, link := range res.Links {
			link.Index = len(batch)
			batch = append(batch, link)
		}
		report.Identifiers = append(report.Identifiers, IdentifierReport{
			Identifier: id,
			Links:      len(res.Links),
			Err:        res.Err,
		})
	}

	return batch, report, nil
}
