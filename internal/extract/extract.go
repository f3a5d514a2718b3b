// Package extract pulls the subject a mention asks about out of free text.
package extract

import (
	"regexp"
	"strings"

	"deadticker/internal/model"
)

var (
	// RE2 has no lookaround, so the word-character guards consume one
	// neighbouring rune; only the captured group is used.
	tickerRe = regexp.MustCompile(`(?:^|[^A-Za-z0-9_])\$([A-Z0-9]{2,10})(?:$|[^A-Za-z0-9_])`)
	evmRe    = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)
	solanaRe = regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`)
)

// Subject returns the first match of the highest-priority pattern:
// a $TICKER (upper-cased), then an EVM address, then a Solana address.
func Subject(text string) model.Subject {
	if text == "" {
		return model.Subject{}
	}
	if m := tickerRe.FindStringSubmatch(strings.ToUpper(text)); m != nil {
		return model.Ticker(m[1])
	}
	if m := evmRe.FindString(text); m != "" {
		return model.Contract(m, model.ChainEVM)
	}
	if m := solanaRe.FindString(text); m != "" {
		return model.Contract(m, model.ChainSolana)
	}
	return model.Subject{}
}
