// Package badges evaluates the achievement catalogue against a user's
// aggregated usage. Badges are derived on every call and never stored, so a
// badge disappears again if the stats behind it regress.
package badges

import (
	"github.com/anuphat-bit/Eco-Hero/analytics"
	"github.com/anuphat-bit/Eco-Hero/core"
)

const (
	FirstLog         core.BadgeID = "first_log"
	PaperlessYear    core.BadgeID = "paperless_year"
	EcoHeroBronze    core.BadgeID = "eco_hero_bronze"
	EcoHeroSilver    core.BadgeID = "eco_hero_silver"
	EcoHeroGold      core.BadgeID = "eco_hero_gold"
	EcoHeroDiamond   core.BadgeID = "eco_hero_diamond"
	PlanetLegend     core.BadgeID = "planet_legend"
	DigitalMessenger core.BadgeID = "digital_messenger"
	DigitalExpert    core.BadgeID = "digital_expert"
	PaperlessDeity   core.BadgeID = "paperless_deity"
	PageFlipper      core.BadgeID = "page_flipper"
	DuplexGuardian   core.BadgeID = "duplex_guardian"
	Recycler         core.BadgeID = "recycler"
	PaperReviver     core.BadgeID = "paper_reviver"
	SeedlingPlanter  core.BadgeID = "seedling_planter"
	ForestMaker      core.BadgeID = "forest_maker"
	Trendsetter      core.BadgeID = "trendsetter"
)

// Category groups badges on the stats screen.
type Category string

const (
	CategoryStarter Category = "Starter"
	CategoryPoints  Category = "Points"
	CategoryDigital Category = "Digital"
	CategoryDuplex  Category = "Double-Sided"
	CategoryReuse   Category = "Reuse"
	CategorySavings Category = "Savings"
	CategorySocial  Category = "Social"
)

// Input is everything a badge predicate may look at. Lifetime covers the
// user's whole history; Current covers the active period only.
type Input struct {
	Lifetime          core.Totals
	Current           core.Totals
	Period            analytics.Period
	DepartmentAverage float64
}

// Comparison returns how far, in percent, the user's current paper use is
// below the department average. Negative values mean above average. The
// second result is false when the average is not positive and the
// comparison is undefined.
func (in Input) Comparison() (float64, bool) {
	return Comparison(in.Current.PaperUsed, in.DepartmentAverage)
}

// Comparison computes (average - paper) / average * 100.
func Comparison(paper int64, average float64) (float64, bool) {
	if average <= 0 {
		return 0, false
	}
	return (average - float64(paper)) / average * 100, true
}

// Badge describes one catalogue entry.
type Badge struct {
	ID          core.BadgeID `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Category    Category     `json:"category"`

	earned func(Input) bool
}

// Status is a badge together with whether the input earns it.
type Status struct {
	Badge
	Earned bool `json:"earned"`
}

func lifetimePoints(min int64) func(Input) bool {
	return func(in Input) bool { return in.Lifetime.EcoPoints >= min }
}

func lifetimeCount(t core.UsageType, min int64) func(Input) bool {
	return func(in Input) bool { return in.Lifetime.Count(t) >= min }
}

func paperSaved(min int64) func(Input) bool {
	return func(in Input) bool { return in.Lifetime.PaperSaved() >= min }
}

// Catalogue lists every badge in display order.
var Catalogue = []Badge{
	{ID: FirstLog, Name: "Green Beginnings", Description: "Record your first usage log", Icon: "🌱", Category: CategoryStarter,
		earned: func(in Input) bool { return in.Lifetime.Logs > 0 }},
	{ID: PaperlessYear, Name: "Paperless Year", Description: "Use no paper at all this year across more than 5 logs", Icon: "🗓️", Category: CategoryStarter,
		earned: func(in Input) bool {
			return in.Period == analytics.PeriodYear && in.Current.PaperUsed == 0 && in.Current.Logs > 5
		}},
	{ID: EcoHeroBronze, Name: "Eco-Hero Bronze", Description: "Collect 100 eco-points", Icon: "🥉", Category: CategoryPoints, earned: lifetimePoints(100)},
	{ID: EcoHeroSilver, Name: "Eco-Hero Silver", Description: "Collect 500 eco-points", Icon: "🥈", Category: CategoryPoints, earned: lifetimePoints(500)},
	{ID: EcoHeroGold, Name: "Eco-Hero Gold", Description: "Collect 1,000 eco-points", Icon: "🥇", Category: CategoryPoints, earned: lifetimePoints(1000)},
	{ID: EcoHeroDiamond, Name: "Eco-Hero Diamond", Description: "Collect 5,000 eco-points", Icon: "💎", Category: CategoryPoints, earned: lifetimePoints(5000)},
	{ID: PlanetLegend, Name: "Planet Legend", Description: "Collect 10,000 eco-points", Icon: "👑", Category: CategoryPoints, earned: lifetimePoints(10000)},
	{ID: DigitalMessenger, Name: "Digital Messenger", Description: "Send documents digitally 10 times", Icon: "📧", Category: CategoryDigital, earned: lifetimeCount(core.Digital, 10)},
	{ID: DigitalExpert, Name: "Digital Expert", Description: "Send documents digitally 50 times", Icon: "💻", Category: CategoryDigital, earned: lifetimeCount(core.Digital, 50)},
	{ID: PaperlessDeity, Name: "Paperless Deity", Description: "Send documents digitally 100 times", Icon: "☁️", Category: CategoryDigital, earned: lifetimeCount(core.Digital, 100)},
	{ID: PageFlipper, Name: "Page Flipper", Description: "Print double-sided 20 times", Icon: "📄", Category: CategoryDuplex, earned: lifetimeCount(core.DoubleSided, 20)},
	{ID: DuplexGuardian, Name: "Duplex Guardian", Description: "Print double-sided 100 times", Icon: "🔄", Category: CategoryDuplex, earned: lifetimeCount(core.DoubleSided, 100)},
	{ID: Recycler, Name: "Recycler", Description: "Reuse paper 20 times", Icon: "♻️", Category: CategoryReuse, earned: lifetimeCount(core.Reuse, 20)},
	{ID: PaperReviver, Name: "Paper Reviver", Description: "Reuse paper 100 times", Icon: "🧟", Category: CategoryReuse, earned: lifetimeCount(core.Reuse, 100)},
	{ID: SeedlingPlanter, Name: "Seedling Planter", Description: "Save 100 sheets, 0.01 of a tree", Icon: "🌲", Category: CategorySavings, earned: paperSaved(100)},
	{ID: ForestMaker, Name: "Forest Maker", Description: "Save 1,000 sheets, 0.1 of a tree", Icon: "🏞️", Category: CategorySavings, earned: paperSaved(1000)},
	{ID: Trendsetter, Name: "Trendsetter", Description: "Use at least 50% less paper than your department average", Icon: "🚀", Category: CategorySocial,
		earned: func(in Input) bool {
			pct, ok := in.Comparison()
			return ok && pct >= 50
		}},
}

// Lookup returns the catalogue entry for id.
func Lookup(id core.BadgeID) (Badge, bool) {
	for _, b := range Catalogue {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// Evaluate runs every predicate against in, in catalogue order.
func Evaluate(in Input) []Status {
	out := make([]Status, 0, len(Catalogue))
	for _, b := range Catalogue {
		out = append(out, Status{Badge: b, Earned: b.earned(in)})
	}
	return out
}

// Earned returns the set of earned badge ids.
func Earned(in Input) map[core.BadgeID]struct{} {
	out := make(map[core.BadgeID]struct{})
	for _, s := range Evaluate(in) {
		if s.Earned {
			out[s.ID] = struct{}{}
		}
	}
	return out
}

// Diff compares two earned sets and returns the badges newly unlocked and
// those lost, both in catalogue order.
func Diff(before, after map[core.BadgeID]struct{}) (unlocked, locked []core.BadgeID) {
	for _, b := range Catalogue {
		_, was := before[b.ID]
		_, is := after[b.ID]
		switch {
		case is && !was:
			unlocked = append(unlocked, b.ID)
		case was && !is:
			locked = append(locked, b.ID)
		}
	}
	return unlocked, locked
}
