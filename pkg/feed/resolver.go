package feed

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/shouni/go-news-crawl/pkg/types"
)

const (
	// SymbolPlaceholder はURLテンプレート内でシンボルに置換される文字列です。
	SymbolPlaceholder = "{symbol}"

	// DefaultURLTemplate はシンボルごとのニュース検索フィードのURLです。
	// ロケールは en/US に固定しています。
	DefaultURLTemplate = "https://news.google.com/news/rss/search/section/q/" +
		SymbolPlaceholder + "/" + SymbolPlaceholder + "?hl=en&gl=US&ned=us"

	dirPerm = 0o755
)

// Resolution は1シンボル分のフィード解決結果です。
// Err が設定されている場合はフィードの取得に失敗しており、Links は空です。
// これにより「ニュースなし」と「取得失敗」を区別できます。
type Resolution struct {
	Identifier types.Identifier
	OutputDir  string
	FeedURL    string
	Links      []types.LinkRecord
	Err        error
}

// FeedFailed はフィードの取得またはパースに失敗したかどうかを返します。
func (r Resolution) FeedFailed() bool {
	return r.Err != nil
}

// Resolver はシンボルからフィードURLを組み立て、リンクレコードの列を生成します。
type Resolver struct {
	parser      *Parser
	baseDir     string
	urlTemplate string
	verbose     bool
	logger      *zap.Logger
}

// ResolverOption は Resolver の設定を行うための関数型です。
type ResolverOption func(*Resolver)

// WithURLTemplate はフィードURLのテンプレートを差し替えます。
func WithURLTemplate(tmpl string) ResolverOption {
	return func(r *Resolver) {
		if tmpl != "" {
			r.urlTemplate = tmpl
		}
	}
}

// WithVerbose は取得したリンクの一覧をログに出力します。
func WithVerbose(verbose bool) ResolverOption {
	return func(r *Resolver) {
		r.verbose = verbose
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver は Resolver を初期化します。baseDir はシンボル別ディレクトリの親です。
func NewResolver(parser *Parser, baseDir string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		parser:      parser,
		baseDir:     baseDir,
		urlTemplate: DefaultURLTemplate,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BuildQueryURL はテンプレート中のすべてのプレースホルダーをシンボルで置換します。
func BuildQueryURL(tmpl string, id types.Identifier) string {
	return strings.ReplaceAll(tmpl, SymbolPlaceholder, url.PathEscape(string(id)))
}

// OutputDirFor はシンボルの出力ディレクトリを返します。
func OutputDirFor(baseDir string, id types.Identifier) string {
	return filepath.Join(baseDir, dirName(id))
}

// dirName はパス区切りを含むシンボルを1階層のディレクトリ名に変換します。
func dirName(id types.Identifier) string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(strings.TrimSpace(string(id)))
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// Resolve は1シンボル分のフィードを解決します。
// フィードの失敗はエラーではなく Resolution.Err として返します。
// エラーが返るのはディレクトリ作成の失敗とコンテキストのキャンセルのみです。
func (r *Resolver) Resolve(ctx context.Context, id types.Identifier) (Resolution, error) {
	res := Resolution{
		Identifier: id,
		OutputDir:  OutputDirFor(r.baseDir, id),
		FeedURL:    BuildQueryURL(r.urlTemplate, id),
		Links:      []types.LinkRecord{},
	}

	// 1. 出力ディレクトリの確保
	if err := os.MkdirAll(res.OutputDir, dirPerm); err != nil {
		return res, fmt.Errorf("出力ディレクトリの作成に失敗しました (%s): %w", res.OutputDir, err)
	}

	// 2. フィードの取得とパース
	parsed, err := r.parser.FetchAndParse(ctx, res.FeedURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.Err = fmt.Errorf("%w: %s: %w", types.ErrFeed, id, err)
		return res, nil
	}

	// 3. フィード順にリンクレコードを生成
	for _, link := range Links(parsed) {
		res.Links = append(res.Links, types.LinkRecord{
			Index:      -1,
			URL:        link,
			Identifier: id,
			OutputDir:  res.OutputDir,
		})
	}

	if r.verbose {
		r.logger.Info("フィードのエントリを取得しました",
			zap.String("symbol", string(id)),
			zap.Int("count", len(res.Links)),
			zap.Strings("links", types.LinkBatch(res.Links).URLs()),
		)
	}
	return res, nil
}
