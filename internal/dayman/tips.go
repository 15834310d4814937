package dayman

import (
	"time"

	"cloud.google.com/go/civil"
)

// tips is the fixed rotation shown on rollover. Selection is derived from
// the date alone so the same day always yields the same tip.
var tips = []string{
	"Record your spending every day to build a solid money habit.",
	"A concrete savings target makes it much easier to stay motivated.",
	"Review your subscriptions and cancel the ones you no longer use.",
	"Shop with a list to keep impulse purchases in check.",
	"Cooking at home is healthier and noticeably cheaper.",
	"Plan next week's meals on the weekend to cut grocery costs.",
	"Automate your savings so saving happens without willpower.",
	"Do your homework before investing and spread the risk.",
	"Check your insurance coverage regularly, but avoid over-insuring.",
	"Time big purchases to sale seasons and save a good chunk.",
}

// TipForDate returns the deterministic tip for a calendar day, indexed by
// day-of-year modulo the list length.
func TipForDate(d civil.Date) string {
	return tips[d.In(time.UTC).YearDay()%len(tips)]
}
