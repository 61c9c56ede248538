package core

import "fmt"

var pointsPerSheet = map[UsageType]int64{
	SingleSided: -2,
	DoubleSided: 1,
	Copy:        -2,
	Digital:     2,
	Envelope:    -2,
	Reuse:       1,
}

// PointsPerSheetFor returns the eco-point rate Score applies to typ.
func PointsPerSheetFor(typ UsageType) (int64, bool) {
	rate, ok := pointsPerSheet[typ]
	return rate, ok
}

// MaxSheets is the largest quantity accepted in a single usage report.
const MaxSheets = 1_000_000

// PaperToTreeRatio is the number of sheets treated as one tree.
const PaperToTreeRatio = 10000

// ScoreResult holds the derived values of a single usage report.
type ScoreResult struct {
	PaperUsed int64 `json:"paper_used"`
	EcoPoints int64 `json:"eco_points"`
}

// Score maps a usage report to the physical paper consumed and the eco-point
// delta. Double-sided prints are rewarded on sheets actually consumed (pages
// rounded up to whole sheets); digital and reuse reports are rewarded on the
// reported quantity because no new paper is consumed.
func Score(typ UsageType, sheets int64) (ScoreResult, error) {
	if sheets < 1 {
		return ScoreResult{}, fmt.Errorf("%w: sheets must be >= 1, got %d", ErrInvalidInput, sheets)
	}
	if sheets > MaxSheets {
		return ScoreResult{}, fmt.Errorf("%w: sheets must be <= %d, got %d", ErrInvalidInput, MaxSheets, sheets)
	}
	rate, ok := pointsPerSheet[typ]
	if !ok {
		return ScoreResult{}, fmt.Errorf("%w: unknown usage type %q", ErrInvalidInput, typ)
	}
	var paper, basis int64
	switch typ {
	case SingleSided, Copy, Envelope:
		paper = sheets
		basis = paper
	case DoubleSided:
		paper = sheets/2 + sheets%2
		basis = paper
	case Digital, Reuse:
		paper = 0
		basis = sheets
	}
	return ScoreResult{PaperUsed: paper, EcoPoints: rate * basis}, nil
}

// TreesEquivalent converts a sheet count to trees.
func TreesEquivalent(sheets int64) float64 {
	return float64(sheets) / PaperToTreeRatio
}
