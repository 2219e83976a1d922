package sitemap

import "slices"

// Snapshot は、ある時点で取得したサイトマップの URL を文書順に保持します。
// 生成後は変更されません。重複は除去しません。
type Snapshot struct {
	urls []string
}

// NewSnapshot は urls のコピーから Snapshot を生成します。
func NewSnapshot(urls []string) Snapshot {
	return Snapshot{urls: slices.Clone(urls)}
}

// Len は URL の件数を返します。
func (s Snapshot) Len() int {
	return len(s.urls)
}

// URLs は URL 一覧のコピーを返します。
func (s Snapshot) URLs() []string {
	return slices.Clone(s.urls)
}

// Equal は要素と順序が完全に一致するかを返します。
func (s Snapshot) Equal(other Snapshot) bool {
	return slices.Equal(s.urls, other.urls)
}
