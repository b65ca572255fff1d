package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	colly "github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/shouni/go-news-crawl/pkg/extract"
	"github.com/shouni/go-news-crawl/pkg/types"
	"github.com/shouni/go-news-crawl/pkg/writer"
)

const (
	// DefaultMaxConcurrency は、同時に取得するリンク数のデフォルトです。
	DefaultMaxConcurrency = 6
	// DefaultRequestTimeout は、1リンクあたりのリクエストタイムアウトです。
	DefaultRequestTimeout = 30 * time.Second

	// UserAgent はサイトからのブロックを避けるためのブラウザ相当のUser-Agentです。
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

	// linkCtxKey はリクエストコンテキストに LinkRecord を載せるキーです。
	linkCtxKey = "link"
)

// ErrAlreadyDispatched は、同じ Dispatcher で2回目の Dispatch が呼ばれたことを示します。
var ErrAlreadyDispatched = errors.New("クロールは1回の実行につき1度だけ開始できます")

// Scraper はリンクバッチのクロールと抽出を行う機能のインターフェースです。
type Scraper interface {
	Dispatch(ctx context.Context, batch types.LinkBatch) ([]types.ExtractionOutcome, error)
}

// Dispatcher は LinkBatch をまとめて colly のコレクターへ投入し、
// 各レスポンスに抽出ポリシーを適用して結果を書き出します。
//
// 各リクエストは自分の LinkRecord をコンテキストに保持しており、
// レスポンスの到着順や共有カウンターから出力先を導出することはありません。
type Dispatcher struct {
	policy         *extract.Policy
	writer         *writer.Writer
	maxConcurrency int
	timeout        time.Duration
	logger         *zap.Logger

	dispatched atomic.Bool
	delivered  atomic.Int64
}

// Option は Dispatcher の設定を行うための関数型です。
type Option func(*Dispatcher)

// WithMaxConcurrency は同時取得数の上限を設定します。
func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxConcurrency = n
		}
	}
}

// WithRequestTimeout はリクエストタイムアウトを設定します。
func WithRequestTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher は Dispatcher を初期化します。
func NewDispatcher(policy *extract.Policy, w *writer.Writer, opts ...Option) *Dispatcher {
	if policy == nil {
		policy = extract.DefaultPolicy()
	}
	d := &Dispatcher{
		policy:         policy,
		writer:         w,
		maxConcurrency: DefaultMaxConcurrency,
		timeout:        DefaultRequestTimeout,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// newCollector はバッチ用のコレクターを構成します。
// 同じURLが複数のシンボルに現れても毎回取得するため、再訪問を許可します。
func (d *Dispatcher) newCollector(ctx context.Context) (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.Async(true),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.UserAgent(UserAgent),
	)
	c.SetRequestTimeout(d.timeout)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: d.maxConcurrency,
	}); err != nil {
		return nil, fmt.Errorf("同時実行数の設定に失敗しました: %w", err)
	}
	return c, nil
}

// Dispatch はバッチ内のすべてのリンクを訪問し、完了するまでブロックします。
// 各リンクにつき必ず1つの結果を、バッチ順で返します。
// ctx がキャンセルされた場合は未処理のリンクを失敗として記録し、ctx.Err() を返します。
func (d *Dispatcher) Dispatch(ctx context.Context, batch types.LinkBatch) ([]types.ExtractionOutcome, error) {
	if err := validateBatch(batch); err != nil {
		return nil, err
	}
	if !d.dispatched.CompareAndSwap(false, true) {
		return nil, ErrAlreadyDispatched
	}

	c, err := d.newCollector(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := newOutcomeSet(len(batch))

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		d.logger.Debug("リンクを取得します", zap.String("url", r.URL.String()))
	})

	c.OnResponse(func(r *colly.Response) {
		link, ok := linkFrom(r.Request)
		if !ok {
			d.logger.Error("リクエストにリンク情報がありません", zap.String("url", r.Request.URL.String()))
			return
		}
		n := d.delivered.Add(1)
		d.logger.Debug("レスポンスを受信しました",
			zap.Int64("delivered", n),
			zap.Int("index", link.Index),
			zap.Int("status", r.StatusCode),
		)
		outcomes.add(d.HandleResponse(link, r.Body))
	})

	c.OnError(func(r *colly.Response, visitErr error) {
		link, ok := linkFrom(r.Request)
		if !ok {
			d.logger.Error("リクエストにリンク情報がありません", zap.Error(visitErr))
			return
		}
		d.logger.Warn("リンクを取得できませんでした",
			zap.String("url", link.URL),
			zap.Int("status", r.StatusCode),
			zap.Error(visitErr),
		)
		outcomes.add(types.Failed(link, fmt.Errorf("%w: %w", types.ErrFetch, visitErr)))
	})

	for _, link := range batch {
		reqCtx := colly.NewContext()
		reqCtx.Put(linkCtxKey, link)
		if reqErr := c.Request(http.MethodGet, link.URL, nil, reqCtx, nil); reqErr != nil {
			d.logger.Warn("リンクを投入できませんでした", zap.String("url", link.URL), zap.Error(reqErr))
			outcomes.add(types.Failed(link, fmt.Errorf("%w: %w", types.ErrFetch, reqErr)))
		}
	}

	c.Wait()

	results := outcomes.ordered(batch, ctx.Err())
	if ctxErr := ctx.Err(); ctxErr != nil {
		return results, ctxErr
	}
	return results, nil
}

// HandleResponse は1リンク分のレスポンス本体に抽出ポリシーを適用し、断片をファイルへ書き出します。
func (d *Dispatcher) HandleResponse(link types.LinkRecord, body []byte) types.ExtractionOutcome {
	res, err := d.policy.ApplyHTML(body)
	if err != nil {
		d.logger.Warn("リンクからテキストを抽出できませんでした",
			zap.String("url", link.URL),
			zap.Strings("attempts", res.Attempts),
		)
		return types.Failed(link, err)
	}

	files, err := d.writer.WriteFragments(link, res.Fragments)
	if err != nil {
		d.logger.Error("抽出結果を書き出せませんでした", zap.String("url", link.URL), zap.Error(err))
		return types.Failed(link, err)
	}

	d.logger.Info("抽出結果を書き出しました",
		zap.String("url", link.URL),
		zap.String("symbol", string(link.Identifier)),
		zap.String("strategy", res.Strategy),
		zap.Int("files", len(files)),
	)
	return types.Written(link, res.Strategy, files)
}

// validateBatch は各 LinkRecord の Index がバッチ内の位置と一致することを確認します。
// Index は結果の相関キーであるため、重複は許されません。
func validateBatch(batch types.LinkBatch) error {
	for i, link := range batch {
		if link.Index != i {
			return fmt.Errorf("LinkBatch の Index が位置と一致しません (位置: %d, Index: %d, URL: %s)", i, link.Index, link.URL)
		}
	}
	return nil
}

// linkFrom はリクエストコンテキストから LinkRecord を取り出します。
func linkFrom(r *colly.Request) (types.LinkRecord, bool) {
	if r == nil || r.Ctx == nil {
		return types.LinkRecord{}, false
	}
	link, ok := r.Ctx.GetAny(linkCtxKey).(types.LinkRecord)
	return link, ok
}

// outcomeSet はコールバックから並行に届く結果を Index ごとに保持します。
type outcomeSet struct {
	mu   sync.Mutex
	byID map[int]types.ExtractionOutcome
}

func newOutcomeSet(size int) *outcomeSet {
	return &outcomeSet{byID: make(map[int]types.ExtractionOutcome, size)}
}

// add は結果を記録します。同じリンクの2つ目以降の結果は無視します。
func (s *outcomeSet) add(o types.ExtractionOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[o.Link.Index]; exists {
		return
	}
	s.byID[o.Link.Index] = o
}

// ordered はバッチ順に結果を返します。結果のないリンクは失敗として補います。
func (s *outcomeSet) ordered(batch types.LinkBatch, cause error) []types.ExtractionOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cause == nil {
		cause = errors.New("レスポンスが届きませんでした")
	}
	results := make([]types.ExtractionOutcome, 0, len(batch))
	for _, link := range batch {
		if o, ok := s.byID[link.Index]; ok {
			results = append(results, o)
			continue
		}
		results = append(results, types.Failed(link, fmt.Errorf("%w: %w", types.ErrFetch, cause)))
	}
	return results
}
