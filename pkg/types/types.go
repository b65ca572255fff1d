package types

import (
	"errors"
	"fmt"
)

// Identifier は追跡対象（ティッカーシンボルなど）を表す文字列です。
type Identifier string

// 抽出パイプライン全体で共有されるセンチネルエラー
var (
	// ErrFeed はフィードの取得またはパースに失敗したことを示します。
	ErrFeed = errors.New("フィードの取得に失敗しました")
	// ErrFetch はページの取得に失敗したことを示します。
	ErrFetch = errors.New("ページの取得に失敗しました")
	// ErrNoText はすべての抽出戦略でテキストが見つからなかったことを示します。
	ErrNoText = errors.New("リンクからテキストを抽出できませんでした")
)

// LinkRecord は、フィードから発見された1件の記事URLと、その所有者・出力先を保持します。
// 作成後は変更しません。
type LinkRecord struct {
	Index      int        // LinkBatch 内の位置。クロール段階での相関キー
	URL        string     // 記事のURL
	Identifier Identifier // このリンクを発見したシンボル
	OutputDir  string     // 抽出テキストの保存先ディレクトリ
}

// LinkBatch は集約順に並んだ LinkRecord の列です。
// 集約段階とクロール段階の唯一の受け渡し契約です。
type LinkBatch []LinkRecord

// Len はバッチ内のリンク数を返します。
func (b LinkBatch) Len() int {
	return len(b)
}

// URLs はバッチのURL射影を返します（表示用）。
func (b LinkBatch) URLs() []string {
	urls := make([]string, 0, len(b))
	for _, l := range b {
		urls = append(urls, l.URL)
	}
	return urls
}

// OutputDirs はバッチの出力ディレクトリ射影を返します（表示用）。
func (b LinkBatch) OutputDirs() []string {
	dirs := make([]string, 0, len(b))
	for _, l := range b {
		dirs = append(dirs, l.OutputDir)
	}
	return dirs
}

// Status は抽出結果の終端状態です。
type Status int

const (
	StatusWritten Status = iota // 1つ以上のファイルを書き出した
	StatusFailed                // 診断のみでファイルなし
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ExtractionOutcome は1リンクの処理結果です。
type ExtractionOutcome struct {
	Link     LinkRecord
	Status   Status
	Files    []string // StatusWritten のときに書き出したファイルパス
	Strategy string   // テキストが見つかった抽出戦略の名前
	Reason   error    // StatusFailed のときの原因
}

// Written は書き出し成功の結果を生成します。
func Written(link LinkRecord, strategy string, files []string) ExtractionOutcome {
	return ExtractionOutcome{
		Link:     link,
		Status:   StatusWritten,
		Files:    files,
		Strategy: strategy,
	}
}

// Failed は失敗の結果を生成します。
func Failed(link LinkRecord, reason error) ExtractionOutcome {
	return ExtractionOutcome{
		Link:   link,
		Status: StatusFailed,
		Reason: reason,
	}
}

// OK は結果がファイルを書き出したかどうかを返します。
func (o ExtractionOutcome) OK() bool {
	return o.Status == StatusWritten
}
