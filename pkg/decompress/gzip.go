package decompress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// MaxDecompressedSize は展開後のサイズ上限です (sitemaps.org の 50MiB 制限)。
const MaxDecompressedSize = int64(50 * 1024 * 1024)

var (
	// ErrEmptyInput は空の入力が渡されたことを示します。
	ErrEmptyInput = errors.New("入力が空です")
	// ErrTooLarge は展開後のデータがサイズ上限を超えたことを示します。
	ErrTooLarge = errors.New("展開後のサイズが上限を超えました")
)

// DecompressError は gzip 展開の失敗を表します。
type DecompressError struct {
	Err error
}

func (e *DecompressError) Error() string {
	return fmt.Sprintf("gzipの展開に失敗しました: %v", e.Err)
}

func (e *DecompressError) Unwrap() error {
	return e.Err
}

// Gunzip は gzip 圧縮されたバイト列を展開します。
// 連結された複数メンバー (multistream) にも対応し、上限は MaxDecompressedSize です。
func Gunzip(data []byte) ([]byte, error) {
	return GunzipLimit(data, MaxDecompressedSize)
}

// GunzipLimit は展開後サイズの上限を指定して Gunzip を実行します。
func GunzipLimit(data []byte, limit int64) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecompressError{Err: ErrEmptyInput}
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecompressError{Err: err}
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		// 途中で切れたストリームは io.ErrUnexpectedEOF になる
		return nil, &DecompressError{Err: err}
	}
	if int64(len(out)) > limit {
		return nil, &DecompressError{Err: fmt.Errorf("%w (%dバイト)", ErrTooLarge, limit)}
	}
	return out, nil
}
