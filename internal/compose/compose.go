package compose

import (
	"fmt"
	"strings"

	"deadticker/internal/render"
	"deadticker/internal/util"
)

// Instructions are the text-only nudges sent when a mention names nothing.
var Instructions = []string{
	"Tag me with a ticker: RIP $WIF @deadticker 🕯️",
	"I engrave when you add $TICKER. Try: RIP $PEPE @deadticker",
	"Add a ticker or contract next time: $WIF or 0x…",
}

// Reply builds the text posted alongside a tombstone. With a percent change
// it reports the day's move, otherwise it borrows the subject's epitaph.
func Reply(subject string, pct *float64) string {
	if pct != nil {
		return fmt.Sprintf("%s — %s. Press F.", subject, render.FooterText(*pct))
	}
	epitaph := strings.TrimSuffix(render.PickEpitaph(subject), ".")
	return fmt.Sprintf("%s — %s.", subject, epitaph)
}

// Instruction picks an instruction variant for seed, usually the mention id.
func Instruction(seed string) string {
	return Instructions[util.Index(util.JavaHash(seed), len(Instructions))]
}
