package monitor

import "github.com/shouni/go-sitemap-watch/pkg/sitemap"

// State は直前のスナップショットを1つだけ保持します。
// 更新は Replace によるスナップショット全体の差し替えのみです。
// 監視サイクルは重ならないため、ロックは持ちません。
type State struct {
	previous sitemap.Snapshot
	ready    bool
}

// Previous は直前のスナップショットと、それが存在するかどうかを返します。
func (s *State) Previous() (sitemap.Snapshot, bool) {
	return s.previous, s.ready
}

// Ready は一度でも解析に成功したかどうかを返します。
func (s *State) Ready() bool {
	return s.ready
}

// Replace はスナップショットを丸ごと差し替えます。
func (s *State) Replace(snap sitemap.Snapshot) {
	s.previous = snap
	s.ready = true
}
