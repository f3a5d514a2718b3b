// Package market looks tokens up on DexScreener.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"deadticker/internal/model"
)

// DefaultBaseURL is the public DexScreener API.
const DefaultBaseURL = "https://api.dexscreener.com"

// DexScreener is a minimal client for the token-pairs endpoint.
type DexScreener struct {
	baseURL    string
	httpClient *http.Client
}

func NewDexScreener(baseURL string, timeout time.Duration) *DexScreener {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DexScreener{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type pair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"baseToken"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	PriceChange *struct {
		H24 *float64 `json:"h24"`
	} `json:"priceChange"`
}

func (p pair) liquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

// LookupToken returns the most liquid pair's token for address, or nil when
// there are no pairs. Non-200 responses and undecodable bodies are errors.
func (d *DexScreener) LookupToken(ctx context.Context, address string) (*model.ResolvedToken, error) {
	u := fmt.Sprintf("%s/latest/dex/tokens/%s", d.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener status %d", resp.StatusCode)
	}
	var raw struct {
		Pairs []pair `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode dexscreener response: %w", err)
	}
	top, ok := mostLiquid(raw.Pairs)
	if !ok {
		return nil, nil
	}
	tok := &model.ResolvedToken{
		Symbol: strings.ToUpper(top.BaseToken.Symbol),
		Name:   strings.TrimSpace(top.BaseToken.Name),
		Chain:  strings.TrimSpace(top.ChainID),
		Source: model.SourceDexScreener,
	}
	if tok.Symbol == "" {
		tok.Symbol = model.UnknownSymbol
	}
	if top.PriceChange != nil && top.PriceChange.H24 != nil {
		v := *top.PriceChange.H24
		tok.PriceChange24h = &v
	}
	return tok, nil
}

// mostLiquid keeps the first pair among equals, i.e. the source's own order.
func mostLiquid(pairs []pair) (pair, bool) {
	if len(pairs) == 0 {
		return pair{}, false
	}
	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.liquidityUSD() > best.liquidityUSD() {
			best = p
		}
	}
	return best, true
}
