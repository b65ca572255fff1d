package pipeline

import (
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// NewFetcher はフィードとページの取得に使う HTTP クライアントを生成します。
// 失敗した取得は再試行しないため、リトライ回数は0に固定します。
func NewFetcher(timeout time.Duration) *httpkit.Client {
	return httpkit.New(timeout, httpkit.WithMaxRetries(0))
}
