package extract_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-news-crawl/pkg/extract"
	"github.com/shouni/go-news-crawl/pkg/types"
)

// ======================================================================
// モック (Mock) の定義
// ======================================================================

// MockFetcher はテスト用の extract.Fetcher インターフェースの実装です。
type MockFetcher struct {
	htmlContent string
	fetchError  error
}

func (m *MockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if m.fetchError != nil {
		return nil, m.fetchError
	}
	return []byte(m.htmlContent), nil
}

func docFrom(t *testing.T, htmlText string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	require.NoError(t, err)
	return doc.Selection
}

// ======================================================================
// テスト関数
// ======================================================================

func TestTextNodes(t *testing.T) {
	root := docFrom(t, `<html><body>
		<p>First <b>bold</b> tail</p>
		<p>   </p>
		<p>Second
		   line</p>
	</body></html>`)

	// 直下のテキストノードのみを文書順に取得し、空白のみの断片は除外する
	assert.Equal(t, []string{"First", "tail", "Second line"}, extract.TextNodes(root.Find("p")))
}

func TestTextNodes_入れ子の要素は文書順(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		selector string
		expected []string
	}{
		{"入れ子のspan", `<div><span>a<span>b</span>c</span></div>`, "span", []string{"a", "b", "c"}},
		{"3段の入れ子", `<div><span>1<span>2<span>3</span>4</span>5</span></div>`, "span", []string{"1", "2", "3", "4", "5"}},
		{"兄弟と入れ子の混在", `<p>x</p><div><span>a<b>skip</b><span>b</span></span><span>c</span></div>`, "span", []string{"a", "b", "c"}},
		{"一致なし", `<div>none</div>`, "span", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := docFrom(t, tt.html)
			assert.Equal(t, tt.expected, extract.TextNodes(root.Find(tt.selector)))
		})
	}
}

func TestPolicy_ApplyHTML_入れ子の断片順(t *testing.T) {
	res, err := extract.DefaultPolicy().ApplyHTML([]byte(`<div><span>a<span>b</span>c</span></div>`))
	require.NoError(t, err)
	assert.Equal(t, "span", res.Strategy)
	assert.Equal(t, []string{"a", "b", "c"}, res.Fragments)
}

func TestNewPolicy(t *testing.T) {
	t.Run("empty_strategies", func(t *testing.T) {
		p, err := extract.NewPolicy()
		assert.Error(t, err)
		assert.Nil(t, p)
	})
	t.Run("invalid_selector", func(t *testing.T) {
		_, err := extract.NewPolicy(extract.Strategy{Name: "bad", Selector: "p[["})
		assert.Error(t, err)
	})
	t.Run("from_selectors", func(t *testing.T) {
		p, err := extract.NewPolicy(extract.StrategiesFromSelectors([]string{"article p", "div"})...)
		require.NoError(t, err)
		assert.Equal(t, []extract.Strategy{{Name: "article p", Selector: "article p"}, {Name: "div", Selector: "div"}}, p.Strategies())
	})
}

func TestPolicy_Apply(t *testing.T) {
	testCases := []struct {
		name              string
		html              string
		expectedStrategy  string
		expectedFragments []string
		expectedAttempts  []string
		expectedErr       error
	}{
		{
			name:              "paragraph_short_circuits_fallback",
			html:              `<html><body><p>Alpha</p><span>Ignored</span><p>Beta</p></body></html>`,
			expectedStrategy:  "paragraph",
			expectedFragments: []string{"Alpha", "Beta"},
			expectedAttempts:  []string{"paragraph"},
		},
		{
			name:              "fallback_to_span",
			html:              `<html><body><div><span>Only</span><span>spans</span></div></body></html>`,
			expectedStrategy:  "span",
			expectedFragments: []string{"Only", "spans"},
			expectedAttempts:  []string{"paragraph", "span"},
		},
		{
			name:              "empty_paragraphs_fall_back",
			html:              `<html><body><p> </p><p><a>link only</a></p><span>Fallback</span></body></html>`,
			expectedStrategy:  "span",
			expectedFragments: []string{"Fallback"},
			expectedAttempts:  []string{"paragraph", "span"},
		},
		{
			name:             "no_text_anywhere",
			html:             `<html><body><div>div text</div></body></html>`,
			expectedAttempts: []string{"paragraph", "span"},
			expectedErr:      types.ErrNoText,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := extract.DefaultPolicy().Apply(docFrom(t, tc.html))

			assert.Equal(t, tc.expectedAttempts, res.Attempts)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Empty(t, res.Fragments)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedStrategy, res.Strategy)
			assert.Equal(t, tc.expectedFragments, res.Fragments)
		})
	}
}

func TestPolicy_ExtensibleChain(t *testing.T) {
	p, err := extract.NewPolicy(
		extract.Strategy{Name: "paragraph", Selector: "p"},
		extract.Strategy{Name: "span", Selector: "span"},
		extract.Strategy{Name: "cell", Selector: "td"},
	)
	require.NoError(t, err)

	res, err := p.ApplyHTML([]byte(`<table><tr><td>Cell text</td></tr></table>`))
	require.NoError(t, err)
	assert.Equal(t, "cell", res.Strategy)
	assert.Equal(t, []string{"Cell text"}, res.Fragments)
	assert.Equal(t, []string{"paragraph", "span", "cell"}, res.Attempts)
}

func TestNewExtractor(t *testing.T) {
	t.Run("success_with_valid_fetcher", func(t *testing.T) {
		extractor, err := extract.NewExtractor(&MockFetcher{}, nil)
		assert.NoError(t, err)
		assert.NotNil(t, extractor)
	})

	t.Run("error_with_nil_fetcher", func(t *testing.T) {
		extractor, err := extract.NewExtractor(nil, nil)
		assert.Error(t, err)
		assert.Nil(t, extractor)
		assert.Contains(t, err.Error(), "Fetcher cannot be nil")
	})
}

func TestFetchAndExtract(t *testing.T) {
	t.Run("fetch_error", func(t *testing.T) {
		extractor, err := extract.NewExtractor(&MockFetcher{fetchError: errors.New("network timeout")}, nil)
		require.NoError(t, err)

		_, err = extractor.FetchAndExtract(context.Background(), "https://example.com/a")
		assert.ErrorIs(t, err, types.ErrFetch)
		assert.Contains(t, err.Error(), "https://example.com/a")
	})

	t.Run("no_text", func(t *testing.T) {
		extractor, err := extract.NewExtractor(&MockFetcher{htmlContent: `<html><body></body></html>`}, nil)
		require.NoError(t, err)

		_, err = extractor.FetchAndExtract(context.Background(), "https://example.com/b")
		assert.ErrorIs(t, err, types.ErrNoText)
	})

	t.Run("paragraphs", func(t *testing.T) {
		extractor, err := extract.NewExtractor(&MockFetcher{htmlContent: `<p>one</p><p>two</p><p>three</p>`}, nil)
		require.NoError(t, err)

		res, err := extractor.FetchAndExtract(context.Background(), "https://example.com/c")
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three"}, res.Fragments)
	})
}
