package tickers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shouni/go-news-crawl/pkg/types"
)

// DefaultColumn はシンボルが格納されている列名です。大文字小文字を含めて完全一致が必要です。
const DefaultColumn = "Symbol"

// ConfigError は入力ファイルが存在しない・読めない・列がないことを示す致命的なエラーです。
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("入力ファイルを読み込めません (%s): %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError は err が ConfigError を含むかどうかを返します。
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ReadFile は区切り形式のファイルから column 列のシンボルを行順に読み込みます。
func ReadFile(path, column string) ([]types.Identifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	ids, err := Read(f, column)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return ids, nil
}

// Read はヘッダー行付きのCSVから column 列の値を読み込みます。
// 空のセルは読み飛ばし、重複は除去しません。
func Read(r io.Reader, column string) ([]types.Identifier, error) {
	if column == "" {
		column = DefaultColumn
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ヘッダー行がありません")
	}
	if err != nil {
		return nil, fmt.Errorf("ヘッダー行の読み込みに失敗しました: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.TrimPrefix(name, "\ufeff") == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("列 %q が見つかりません (ヘッダー: %v)", column, header)
	}

	var ids []types.Identifier
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("行の読み込みに失敗しました: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[col]); v != "" {
			ids = append(ids, types.Identifier(v))
		}
	}
	return ids, nil
}
