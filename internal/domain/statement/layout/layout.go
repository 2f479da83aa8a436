// Package layout clusters positioned words into table rows.
package layout

import (
	"math"
	"sort"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
)

// MinTolerance is the floor of the vertical join tolerance.
const MinTolerance = 3.0

// Tolerance is the vertical distance within which w joins a row.
func Tolerance(w artifact.WordArtifact) float64 {
	return math.Max(0.5*w.Box.Height(), MinTolerance)
}

// ClusterRows groups words into rows. Words are visited top to bottom; a
// word joins the open row when its center is within Tolerance of the row's
// last word center, otherwise it opens a new row. Rows are returned top to
// bottom with words left to right.
func ClusterRows(words []artifact.WordArtifact) []artifact.Row {
	if len(words) == 0 {
		return nil
	}

	sorted := make([]artifact.WordArtifact, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Box.Y0 != sorted[j].Box.Y0 {
			return sorted[i].Box.Y0 < sorted[j].Box.Y0
		}
		return sorted[i].Box.X0 < sorted[j].Box.X0
	})

	var (
		rows    []artifact.Row
		current []artifact.WordArtifact
	)
	for _, w := range sorted {
		if len(current) > 0 {
			last := current[len(current)-1]
			if math.Abs(w.Box.CenterY()-last.Box.CenterY()) <= Tolerance(w) {
				current = append(current, w)
				continue
			}
			rows = append(rows, artifact.Row{Words: current})
		}
		current = []artifact.WordArtifact{w}
	}
	rows = append(rows, artifact.Row{Words: current})

	for i := range rows {
		ws := rows[i].Words
		sort.SliceStable(ws, func(a, b int) bool { return ws[a].Box.X0 < ws[b].Box.X0 })
		rows[i].Index = i
	}
	return rows
}

// Analyze populates page rows. Pages that already have rows are left alone.
func Analyze(page *artifact.PageArtifact) error {
	if page.HasRows() {
		return artifact.ErrRowsAlreadySet
	}
	return page.SetRows(ClusterRows(page.Words))
}
