package render

import (
	"strings"

	"deadticker/internal/util"
)

// Epitaphs are the captions chosen per subject.
var Epitaphs = []string{
	"Gone but not forgotten.",
	"Another rug in the chain's long graveyard.",
	"We hardly knew ye.",
	"Press F to pay respects.",
	"Pumped. Dumped. Remembered.",
	"May your candles burn bright.",
}

// PickEpitaph deterministically maps seed onto Epitaphs.
func PickEpitaph(seed string) string {
	return Epitaphs[util.Index(util.Hash(seed), len(Epitaphs))]
}

// NormalizeSubject upper-cases s and cuts it to 17 UTF-16 units plus an
// ellipsis when it is longer than 18.
func NormalizeSubject(s string) string {
	s = strings.ToUpper(s)
	if util.UTF16Len(s) <= 18 {
		return s
	}
	return util.TruncateUTF16(s, 17, "…")
}
