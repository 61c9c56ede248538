package core

// TypeTotals accumulates the entries of a single usage type.
type TypeTotals struct {
	Count     int64 `json:"count"`
	Sheets    int64 `json:"sheets"`
	PaperUsed int64 `json:"paper_used"`
	EcoPoints int64 `json:"eco_points"`
}

// Totals is a commutative fold over log entries. Two Totals built from
// disjoint sets of entries can be merged by addition in any order.
type Totals struct {
	Logs      int64                    `json:"logs"`
	Sheets    int64                    `json:"sheets"`
	PaperUsed int64                    `json:"paper_used"`
	EcoPoints int64                    `json:"eco_points"`
	ByType    map[UsageType]TypeTotals `json:"by_type,omitempty"`
}

// Add folds a single entry into t.
func (t *Totals) Add(e LogEntry) {
	t.Logs++
	t.Sheets += e.Sheets
	t.PaperUsed += e.PaperUsed
	t.EcoPoints += e.EcoPoints
	if t.ByType == nil {
		t.ByType = make(map[UsageType]TypeTotals, len(UsageTypes))
	}
	tt := t.ByType[e.Type]
	tt.Count++
	tt.Sheets += e.Sheets
	tt.PaperUsed += e.PaperUsed
	tt.EcoPoints += e.EcoPoints
	t.ByType[e.Type] = tt
}

// Merge adds other into t.
func (t *Totals) Merge(other Totals) {
	t.Logs += other.Logs
	t.Sheets += other.Sheets
	t.PaperUsed += other.PaperUsed
	t.EcoPoints += other.EcoPoints
	if len(other.ByType) == 0 {
		return
	}
	if t.ByType == nil {
		t.ByType = make(map[UsageType]TypeTotals, len(other.ByType))
	}
	for typ, o := range other.ByType {
		tt := t.ByType[typ]
		tt.Count += o.Count
		tt.Sheets += o.Sheets
		tt.PaperUsed += o.PaperUsed
		tt.EcoPoints += o.EcoPoints
		t.ByType[typ] = tt
	}
}

// Of returns the per-type totals, zero when the type never occurred.
func (t Totals) Of(typ UsageType) TypeTotals { return t.ByType[typ] }

// Count returns the number of entries of the given type.
func (t Totals) Count(typ UsageType) int64 { return t.ByType[typ].Count }

// PaperSaved estimates the sheets that were not printed: every digital and
// reuse page, plus the sheets duplex printing avoided.
func (t Totals) PaperSaved() int64 {
	ds := t.ByType[DoubleSided]
	return t.ByType[Digital].Sheets + t.ByType[Reuse].Sheets + (ds.Sheets - ds.PaperUsed)
}

// Breakdown splits eco-points into the categories shown on the tree card.
type Breakdown struct {
	FromDoubleSided int64 `json:"from_double_sided"`
	FromDigital     int64 `json:"from_digital"`
	FromReuse       int64 `json:"from_reuse"`
	FromPenalties   int64 `json:"from_penalties"`
}

// Breakdown reports where the eco-points came from. Penalties collect the
// single-sided, copy and envelope entries.
func (t Totals) Breakdown() Breakdown {
	return Breakdown{
		FromDoubleSided: t.ByType[DoubleSided].EcoPoints,
		FromDigital:     t.ByType[Digital].EcoPoints,
		FromReuse:       t.ByType[Reuse].EcoPoints,
		FromPenalties:   t.ByType[SingleSided].EcoPoints + t.ByType[Copy].EcoPoints + t.ByType[Envelope].EcoPoints,
	}
}

// Equal compares two totals including the per-type breakdown. A nil and an
// empty ByType map are equal.
func (t Totals) Equal(o Totals) bool {
	if t.Logs != o.Logs || t.Sheets != o.Sheets || t.PaperUsed != o.PaperUsed || t.EcoPoints != o.EcoPoints {
		return false
	}
	if len(t.ByType) != len(o.ByType) {
		return false
	}
	for k, v := range t.ByType {
		if o.ByType[k] != v {
			return false
		}
	}
	return true
}

// Sum folds entries into a fresh Totals.
func Sum(entries []LogEntry) Totals {
	var t Totals
	for _, e := range entries {
		t.Add(e)
	}
	return t
}
