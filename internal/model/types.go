package model

// Mention is an inbound post addressed to the bot.
type Mention struct {
	ID       string
	Text     string
	AuthorID string
}

// SubjectKind tags which variant a Subject holds.
type SubjectKind int

const (
	SubjectNone SubjectKind = iota
	SubjectTicker
	SubjectContract
)

func (k SubjectKind) String() string {
	switch k {
	case SubjectTicker:
		return "ticker"
	case SubjectContract:
		return "contract"
	default:
		return "none"
	}
}

// Chain is a hint about which chain a contract address belongs to.
type Chain string

const (
	ChainEVM    Chain = "evm"
	ChainSolana Chain = "solana"
)

// Subject is what a mention asks the bot to engrave.
// Value is empty for SubjectNone; ChainHint is only set for SubjectContract.
type Subject struct {
	Kind      SubjectKind
	Value     string
	ChainHint Chain
}

func Ticker(v string) Subject { return Subject{Kind: SubjectTicker, Value: v} }

func Contract(v string, chain Chain) Subject {
	return Subject{Kind: SubjectContract, Value: v, ChainHint: chain}
}

// Source records where a ResolvedToken came from.
type Source string

const (
	SourceDexScreener Source = "dexscreener"
	SourcePassthrough Source = "passthrough"
	SourceUnknown     Source = "unknown"
)

// UnknownSymbol is the display symbol used when a lookup finds nothing.
const UnknownSymbol = "UNKNOWN TOKEN"

// ResolvedToken is display metadata for a subject. It is cached as JSON.
type ResolvedToken struct {
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name,omitempty"`
	Chain          string   `json:"chain,omitempty"`
	PriceChange24h *float64 `json:"priceChange24h,omitempty"`
	Source         Source   `json:"source"`
}

// Unknown is the fallback token for failed lookups.
func Unknown() ResolvedToken { return ResolvedToken{Symbol: UnknownSymbol, Source: SourceUnknown} }
