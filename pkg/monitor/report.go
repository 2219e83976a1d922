package monitor

import (
	"fmt"
	"io"

	"github.com/shouni/go-sitemap-watch/pkg/diff"
)

const (
	msgNoDifferences = "No differences found."
	msgDifferences   = "Differences found:"
)

// writeReport は1サイクル分の差分を人が読める形で w に書き出します。
func writeReport(w io.Writer, report diff.Report) error {
	if report.Empty() {
		_, err := fmt.Fprintln(w, msgNoDifferences)
		return err
	}
	if _, err := fmt.Fprintln(w, msgDifferences); err != nil {
		return err
	}
	return report.WriteUnified(w, diff.DefaultFromFile, diff.DefaultToFile)
}
