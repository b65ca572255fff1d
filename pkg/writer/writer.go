package writer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-news-crawl/pkg/types"
)

const (
	// dateLayout は出力ファイル名の日付部分 (DD_MM_YYYY) です。
	dateLayout = "02_01_2006"
	filePerm   = 0o644
)

// FileName は出力ファイル名 <DD>_<MM>_<YYYY>_<seq>_<fragment>.txt を返します。
// seq はリンクのバッチ内の位置、fragment はそのリンク内の断片番号です。
func FileName(date time.Time, seq, fragment int) string {
	return fmt.Sprintf("%s_%d_%d.txt", date.Format(dateLayout), seq, fragment)
}

// Content は1ファイル分の内容を組み立てます。
// 書き込み間で単語がつながらないよう末尾に空白を付けます。
func Content(url, fragment string) string {
	var b strings.Builder
	b.Grow(len(url) + len(fragment) + 2)
	b.WriteString(url)
	b.WriteString("\n")
	b.WriteString(fragment)
	b.WriteString(" ")
	return b.String()
}

// Writer は抽出した断片をリンクの出力ディレクトリへ書き出します。
type Writer struct {
	date time.Time
}

// New は実行日 date をファイル名に使う Writer を生成します。
func New(date time.Time) *Writer {
	return &Writer{date: date}
}

// WriteFragments は断片ごとに新しいファイルを1つ作成します。
// 既存のファイルは上書きしません。途中で失敗した場合は作成済みのファイルを削除し、
// ファイルなしの状態でエラーを返します。
func (w *Writer) WriteFragments(link types.LinkRecord, fragments []string) ([]string, error) {
	files := make([]string, 0, len(fragments))
	for i, fragment := range fragments {
		path := filepath.Join(link.OutputDir, FileName(w.date, link.Index, i))
		if err := writeNew(path, Content(link.URL, fragment)); err != nil {
			return nil, errors.Join(err, removeAll(files))
		}
		files = append(files, path)
	}
	return files, nil
}

// removeAll は作成済みのファイルを削除します。
func removeAll(paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("書き出し途中のファイルを削除できませんでした (%s): %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// writeNew は path が存在しない場合のみファイルを作成して書き込みます。
func writeNew(path, content string) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return fmt.Errorf("出力ファイルの作成に失敗しました (%s): %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("出力ファイルのクローズに失敗しました (%s): %w", path, cerr)
		}
	}()

	if _, err = f.WriteString(content); err != nil {
		return fmt.Errorf("出力ファイルへの書き込みに失敗しました (%s): %w", path, err)
	}
	return nil
}
