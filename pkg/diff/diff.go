package diff

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// DefaultContext は unified diff の標準的なコンテキスト行数です。
	DefaultContext = 3

	DefaultFromFile = "old_sitemap"
	DefaultToFile   = "new_sitemap"
)

// Compute は old と new を行単位で比較し、unified diff 形式のハンクを返します。
// 整列は最長一致ブロックを優先して探す SequenceMatcher に従います。
// 入力は並べ替えも重複除去も行いません。
// contextLines が負の場合は DefaultContext を使います。
func Compute(old, new []string, contextLines int) Report {
	if contextLines < 0 {
		contextLines = DefaultContext
	}

	m := difflib.NewMatcher(old, new)
	groups := m.GetGroupedOpCodes(contextLines)

	report := Report{Hunks: make([]Hunk, 0, len(groups))}
	for _, group := range groups {
		report.Hunks = append(report.Hunks, buildHunk(group, old, new))
	}
	return report
}

func buildHunk(group []difflib.OpCode, old, new []string) Hunk {
	first, last := group[0], group[len(group)-1]
	h := Hunk{
		OldStart: first.I1 + 1,
		OldLines: last.I2 - first.I1,
		NewStart: first.J1 + 1,
		NewLines: last.J2 - first.J1,
	}

	for _, c := range group {
		switch c.Tag {
		case 'e':
			for _, s := range old[c.I1:c.I2] {
				h.Lines = append(h.Lines, Line{Op: Kept, Text: s})
			}
		case 'r', 'd', 'i':
			// replace は削除を先に、追加を後に並べる
			for _, s := range old[c.I1:c.I2] {
				h.Lines = append(h.Lines, Line{Op: Removed, Text: s})
			}
			for _, s := range new[c.J1:c.J2] {
				h.Lines = append(h.Lines, Line{Op: Added, Text: s})
			}
		}
	}
	return h
}

// formatRange は unified diff の範囲表記 (例: "3", "3,2", "2,0") を返します。
func formatRange(start, length int) string {
	switch length {
	case 1:
		return fmt.Sprintf("%d", start)
	case 0:
		// 空範囲は直前の行を指す
		return fmt.Sprintf("%d,0", start-1)
	default:
		return fmt.Sprintf("%d,%d", start, length)
	}
}

// WriteUnified は Report を unified diff 形式で w に書き出します。
// 差分がない場合は何も書きません。
func (r Report) WriteUnified(w io.Writer, fromFile, toFile string) error {
	if r.Empty() {
		return nil
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "--- %s\n", fromFile)
	fmt.Fprintf(bw, "+++ %s\n", toFile)
	for _, h := range r.Hunks {
		fmt.Fprintf(bw, "@@ -%s +%s @@\n", formatRange(h.OldStart, h.OldLines), formatRange(h.NewStart, h.NewLines))
		for _, l := range h.Lines {
			bw.WriteByte(l.Op.Marker())
			bw.WriteString(l.Text)
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// Unified は WriteUnified の結果を既定のファイル名で文字列として返します。
func (r Report) Unified() string {
	var sb strings.Builder
	_ = r.WriteUnified(&sb, DefaultFromFile, DefaultToFile)
	return sb.String()
}
