package core

import "time"

// Tips is the rotating list of paper-saving advice.
var Tips = []string{
	"Shrink fonts and margins before printing so the content fits on fewer pages.",
	"Proofread on screen instead of printing a draft to check it.",
	"Sign documents digitally rather than printing them just to sign.",
	"Share meeting material through cloud storage or email instead of handing out copies.",
	"Ask whether a document really needs to be printed before you press print.",
	"Make duplex printing the default on the office printers.",
	"Keep single-sided misprints in a tray and use the blank side for notes.",
	"Use print preview to catch layout problems before they cost a sheet.",
	"Prefer e-forms and shared spreadsheets to paper sign-up sheets.",
	"Print several slides per page when a handout is unavoidable.",
}

// TipOfTheDay picks a tip that stays the same for the whole calendar day.
func TipOfTheDay(day time.Time) string {
	if len(Tips) == 0 {
		return ""
	}
	return Tips[(day.YearDay()-1)%len(Tips)]
}
