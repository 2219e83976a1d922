package diff

// Op は行単位の変更種別です。
type Op int

const (
	// Kept は両方に存在する行 (コンテキスト行) です。
	Kept Op = iota
	// Added は新しい側にだけ存在する行です。
	Added
	// Removed は古い側にだけ存在する行です。
	Removed
)

// Marker は unified diff での行頭記号を返します。
func (o Op) Marker() byte {
	switch o {
	case Added:
		return '+'
	case Removed:
		return '-'
	default:
		return ' '
	}
}

func (o Op) String() string {
	switch o {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "kept"
	}
}

// Line は一行分の変更レコードです。
type Line struct {
	Op   Op
	Text string
}

// Hunk は @@ ヘッダーで区切られる変更のまとまりです。
// Start は 1 始まりの行番号、Lines は範囲の行数です。
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Report は 2 つの URL 列の差分です。変更がなければ Hunks は空です。
type Report struct {
	Hunks []Hunk
}

// Empty は差分がないかどうかを返します。
func (r Report) Empty() bool {
	return len(r.Hunks) == 0
}

// Added は追加行の件数を返します。
func (r Report) Added() int {
	return r.count(Added)
}

// Removed は削除行の件数を返します。
func (r Report) Removed() int {
	return r.count(Removed)
}

func (r Report) count(op Op) int {
	n := 0
	for _, h := range r.Hunks {
		for _, l := range h.Lines {
			if l.Op == op {
				n++
			}
		}
	}
	return n
}

// Lines はすべてのハンクの行を文書順に連結して返します。
func (r Report) Lines() []Line {
	var lines []Line
	for _, h := range r.Hunks {
		lines = append(lines, h.Lines...)
	}
	return lines
}
