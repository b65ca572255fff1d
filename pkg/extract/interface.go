package extract

import (
	"context"
)

// Fetcher は、HTMLドキュメントの生バイト配列を取得する機能のインターフェースです。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}
