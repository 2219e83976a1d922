package artifact

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// CompressedFileName はダウンロードしたままのサイトマップの保存名です。
	CompressedFileName = "sitemap.xml.gz"
	// ExtractedFileName は展開後のサイトマップの保存名です。
	ExtractedFileName = "sitemap.xml"
)

// Store は取得・展開したサイトマップを作業ディレクトリに保存します。
// 保存は監視の結果に影響しない補助的な処理です。
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore は OS のファイルシステム上に Store を作成します。
func NewStore(dir string) *Store {
	return NewStoreWithFs(afero.NewOsFs(), dir)
}

// NewStoreWithFs は任意の afero.Fs 上に Store を作成します。
func NewStoreWithFs(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// SaveCompressed は圧縮されたままのバイト列を保存します。
func (s *Store) SaveCompressed(data []byte) error {
	return s.write(CompressedFileName, data)
}

// SaveExtracted は展開後のXMLを保存します。
func (s *Store) SaveExtracted(data []byte) error {
	return s.write(ExtractedFileName, data)
}

// write は一時ファイルに書いてから rename し、途中状態のファイルを残さないようにします。
func (s *Store) write(name string, data []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("作業ディレクトリの作成に失敗しました (%s): %w", s.dir, err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("一時ファイルへの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("一時ファイルのクローズに失敗しました: %w", err)
	}

	dst := filepath.Join(s.dir, name)
	if err := s.fs.Rename(tmpName, dst); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("ファイルの置き換えに失敗しました (%s): %w", dst, err)
	}
	return nil
}
