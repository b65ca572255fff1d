package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// ErrEmptyFeed はフィードの本文が空だったことを示します。
var ErrEmptyFeed = errors.New("フィードの本文が空です")

// Fetcher は、フィードの生バイト列を取得する機能のインターフェースです。
// *httpkit.Client がこれを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Parser は Fetcher で取得したバイト列を gofeed で RSS/Atom として解釈します。
type Parser struct {
	fetcher Fetcher
	fp      *gofeed.Parser
}

// NewParser は Parser を生成します。
func NewParser(fetcher Fetcher) *Parser {
	return &Parser{
		fetcher: fetcher,
		fp:      gofeed.NewParser(),
	}
}

// FetchAndParse は feedURL を1回取得して解析します。
func (p *Parser) FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := p.fetcher.FetchBytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードを取得できませんでした (URL: %s): %w", feedURL, err)
	}

	parsed, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w (URL: %s)", err, feedURL)
	}
	return parsed, nil
}

// ParseBytes は取得済みの本文を解析します。
func (p *Parser) ParseBytes(body []byte) (*gofeed.Feed, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyFeed
	}
	parsed, err := p.fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("フィードを解析できませんでした: %w", err)
	}
	return parsed, nil
}
