package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-news-crawl/internal/config"
	"github.com/shouni/go-news-crawl/pkg/feed"
	"github.com/shouni/go-news-crawl/pkg/tickers"
	"github.com/shouni/go-news-crawl/pkg/types"
)

var fixedNow = time.Date(2026, time.October, 19, 14, 5, 0, 0, time.UTC)

// newNewsServer はシンボルごとのフィードと記事ページを返すサーバーを起動します。
// AAA は2件、BBB は1件のリンクを持ち、CCC のフィードは 500 を返します。
func newNewsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server

	rss := func(paths ...string) string {
		var items strings.Builder
		for _, p := range paths {
			fmt.Fprintf(&items, "<item><title>%s</title><link>%s%s</link></item>", p, server.URL, p)
		}
		return `<?xml version="1.0"?><rss version="2.0"><channel><title>news</title>` + items.String() + `</channel></rss>`
	}

	mux.HandleFunc("/feed/AAA", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rss("/article/a1", "/article/a2")))
	})
	mux.HandleFunc("/feed/BBB", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rss("/article/empty")))
	})
	mux.HandleFunc("/feed/CCC", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusInternalServerError)
	})
	mux.HandleFunc("/article/a1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>one</p><p>two</p></body></html>`))
	})
	mux.HandleFunc("/article/a2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><span>only span</span></body></html>`))
	})
	mux.HandleFunc("/article/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div>no text nodes to pick</div></body></html>`))
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeTickConfig(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickers.csv")
	content := "Symbol,Name\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(server *httptest.Server) *config.Config {
	return &config.Config{
		TimeoutSec:      5,
		Parallelism:     2,
		FeedURLTemplate: server.URL + "/feed/" + feed.SymbolPlaceholder,
		InputColumn:     tickers.DefaultColumn,
		Selectors:       []string{"p", "span"},
		LogLevel:        "info",
	}
}

func TestRunDir(t *testing.T) {
	assert.Equal(t, ".", RunDir("", fixedNow))
	assert.Equal(t, filepath.Join("out", "crawler_data_19_10_2026_14_05"), RunDir("out", fixedNow))
}

func TestRun_フィードからファイル出力まで(t *testing.T) {
	server := newNewsServer(t)
	tickConfig := writeTickConfig(t, "AAA,Alpha", "CCC,Broken", "BBB,Beta")
	outDir := t.TempDir()
	var out bytes.Buffer

	summary, err := Run(context.Background(), testConfig(server),
		Options{TickConfig: tickConfig, OutputDir: outDir, Verbose: true, Debug: true},
		Deps{Fetcher: NewFetcher(5 * time.Second), Out: &out, Now: func() time.Time { return fixedNow }},
	)
	require.NoError(t, err)

	runDir := filepath.Join(outDir, "crawler_data_19_10_2026_14_05")
	assert.Equal(t, runDir, summary.RunDir)
	assert.Equal(t, 3, summary.Identifiers)
	assert.Equal(t, 3, summary.Links)
	assert.Equal(t, 1, summary.FailedFeeds)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 1, summary.Failed)
	assert.NotEmpty(t, summary.RunID)

	// フィード結果は入力順
	require.Len(t, summary.Feeds, 3)
	assert.Equal(t, types.Identifier("CCC"), summary.Feeds[1].Identifier)
	assert.ErrorIs(t, summary.Feeds[1].Err, types.ErrFeed)
	assert.Equal(t, 2, summary.Feeds[0].Links)

	// 結果はバッチ順
	require.Len(t, summary.Outcomes, 3)
	assert.Equal(t, types.Identifier("AAA"), summary.Outcomes[0].Link.Identifier)
	assert.Equal(t, "p", summary.Outcomes[0].Strategy)
	assert.Equal(t, "span", summary.Outcomes[1].Strategy)
	assert.ErrorIs(t, summary.Outcomes[2].Reason, types.ErrNoText)

	// 断片ごとに1ファイル
	aaaDir := filepath.Join(runDir, "AAA")
	got, err := os.ReadFile(filepath.Join(aaaDir, "19_10_2026_0_1.txt"))
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/article/a1\ntwo ", string(got))
	_, err = os.Stat(filepath.Join(aaaDir, "19_10_2026_1_0.txt"))
	assert.NoError(t, err)

	// フィード失敗のシンボルにも出力ディレクトリは作成される
	entries, err := os.ReadDir(filepath.Join(runDir, "CCC"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	entries, err = os.ReadDir(filepath.Join(runDir, "BBB"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	// デバッグ用のリンク一覧
	dump, err := os.ReadFile(filepath.Join(runDir, feed.DebugDumpFileName))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(dump)), "\n"), 3)

	assert.Contains(t, out.String(), server.URL+"/article/a2")
}

func TestRun_入力ファイルエラーは致命的(t *testing.T) {
	server := newNewsServer(t)
	outDir := t.TempDir()

	summary, err := Run(context.Background(), testConfig(server),
		Options{TickConfig: filepath.Join(outDir, "missing.csv"), OutputDir: outDir},
		Deps{Fetcher: NewFetcher(time.Second)},
	)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, tickers.IsConfigError(err))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "クロール開始前に中断される")
}

func TestRun_キャンセル済みコンテキスト(t *testing.T) {
	server := newNewsServer(t)
	tickConfig := writeTickConfig(t, "AAA,Alpha")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testConfig(server),
		Options{TickConfig: tickConfig, OutputDir: t.TempDir()},
		Deps{Fetcher: NewFetcher(time.Second), Now: func() time.Time { return fixedNow }},
	)
	assert.ErrorIs(t, err, context.Canceled)
}
