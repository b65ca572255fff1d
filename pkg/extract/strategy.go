package extract

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	textUtils "github.com/shouni/go-utils/text"
	"golang.org/x/net/html"

	"github.com/shouni/go-news-crawl/pkg/types"
)

// Strategy は本文テキストを探す1つの構造セレクターです。
type Strategy struct {
	Name     string
	Selector string
}

// DefaultStrategies は記事本文が最もよく見つかる順に並べた抽出戦略です。
// 段落要素で見つからない場合にインライン要素を試します。
var DefaultStrategies = []Strategy{
	{Name: "paragraph", Selector: "p"},
	{Name: "span", Selector: "span"},
}

// StrategiesFromSelectors はセレクターのリストから戦略を生成します。名前はセレクターそのものです。
func StrategiesFromSelectors(selectors []string) []Strategy {
	strategies := make([]Strategy, 0, len(selectors))
	for _, s := range selectors {
		strategies = append(strategies, Strategy{Name: s, Selector: s})
	}
	return strategies
}

// Result は抽出ポリシーの適用結果です。
type Result struct {
	Strategy  string   // テキストが見つかった戦略
	Fragments []string // 抽出されたテキスト断片 (文書順)
	Attempts  []string // 評価した戦略の名前 (評価順)
}

// Policy は戦略を順に試し、最初にテキストが見つかった時点で停止します。
type Policy struct {
	strategies []Strategy
}

// NewPolicy は抽出ポリシーを生成します。戦略が空の場合や不正なセレクターはエラーです。
func NewPolicy(strategies ...Strategy) (*Policy, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("extract.NewPolicy: 抽出戦略が1つも指定されていません")
	}
	for _, s := range strategies {
		if _, err := cascadia.Compile(s.Selector); err != nil {
			return nil, fmt.Errorf("extract.NewPolicy: 不正なセレクターです (%q): %w", s.Selector, err)
		}
	}
	return &Policy{strategies: append([]Strategy(nil), strategies...)}, nil
}

// DefaultPolicy は DefaultStrategies によるポリシーを返します。
func DefaultPolicy() *Policy {
	return &Policy{strategies: DefaultStrategies}
}

// Strategies はポリシーの戦略のコピーを返します。
func (p *Policy) Strategies() []Strategy {
	return append([]Strategy(nil), p.strategies...)
}

// Apply は戦略を順に適用します。すべての戦略で断片が0件なら types.ErrNoText を返します。
func (p *Policy) Apply(root *goquery.Selection) (Result, error) {
	var res Result
	for _, s := range p.strategies {
		res.Attempts = append(res.Attempts, s.Name)
		fragments := TextNodes(root.Find(s.Selector))
		if len(fragments) > 0 {
			res.Strategy = s.Name
			res.Fragments = fragments
			return res, nil
		}
	}
	return res, types.ErrNoText
}

// ApplyHTML はHTMLのバイト列を解析してからポリシーを適用します。
func (p *Policy) ApplyHTML(body []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}
	return p.Apply(doc.Selection)
}

// TextNodes は選択された要素の直下にあるテキストノードを文書順に返します。
// 子要素の中のテキストは含みません。選択された要素が入れ子になっていても、
// 断片は文書内の出現順に並びます。空白のみの断片は除外します。
func TextNodes(sel *goquery.Selection) []string {
	if sel == nil || len(sel.Nodes) == 0 {
		return nil
	}
	matched := make(map[*html.Node]bool, len(sel.Nodes))
	for _, n := range sel.Nodes {
		matched[n] = true
	}
	root := sel.Nodes[0]
	for root.Parent != nil {
		root = root.Parent
	}

	var fragments []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && matched[n.Parent] {
			if text := textUtils.NormalizeText(n.Data); text != "" {
				fragments = append(fragments, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return fragments
}
