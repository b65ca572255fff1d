package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shouni/go-news-crawl/pkg/types"
)

// DebugDumpFileName はデバッグモードで書き出すリンク一覧のファイル名です。
const DebugDumpFileName = "links.txt"

// WriteDebugDump は LinkBatch をヘッダーなしのCSVとして書き出します。
// 各行は index,url,symbol,outputDir の順です。
func WriteDebugDump(w io.Writer, batch types.LinkBatch) error {
	cw := csv.NewWriter(w)
	for _, l := range batch {
		row := []string{strconv.Itoa(l.Index), l.URL, string(l.Identifier), l.OutputDir}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("リンク一覧の書き込みに失敗しました: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DumpToFile は LinkBatch を path に書き出します。
func DumpToFile(path string, batch types.LinkBatch) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("リンク一覧ファイルの作成に失敗しました (%s): %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteDebugDump(f, batch)
}
