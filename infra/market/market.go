package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// usdcAtomicResolution is the quote asset's exponent.
const usdcAtomicResolution = -6

// Info is the scaling metadata of one perpetual market.
type Info struct {
	ClobPairID                uint32
	Ticker                    string
	AtomicResolution          int32
	QuantumConversionExponent int32
}

// QuantumsToSize converts a base quantity to human units.
func (i Info) QuantumsToSize(quantums uint64) decimal.Decimal {
	return decimal.NewFromUint64(quantums).Shift(i.AtomicResolution)
}

// SubticksToPrice converts a tick-scaled price to quote units per base unit.
func (i Info) SubticksToPrice(subticks uint64) decimal.Decimal {
	exp := i.AtomicResolution - i.QuantumConversionExponent - usdcAtomicResolution
	return decimal.NewFromUint64(subticks).Shift(-exp)
}

type perpetualMarkets struct {
	Markets map[string]struct {
		ClobPairID                string `json:"clobPairId"`
		Ticker                    string `json:"ticker"`
		AtomicResolution          int32  `json:"atomicResolution"`
		QuantumConversionExponent int32  `json:"quantumConversionExponent"`
	} `json:"markets"`
}

// Client queries the indexer for market metadata.
type Client struct {
	base string
	http *http.Client
}

func NewClient(indexerAPI string) *Client {
	return &Client{
		base: strings.TrimRight(indexerAPI, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Query returns market metadata keyed by clob pair id.
func (c *Client) Query(ctx context.Context) (map[uint32]Info, error) {
	uri := c.base + "/v4/perpetualMarkets"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query markets from %s: %s", uri, resp.Status)
	}

	var body perpetualMarkets
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}

	out := make(map[uint32]Info, len(body.Markets))
	for ticker, m := range body.Markets {
		id, err := strconv.ParseUint(m.ClobPairID, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("market %s: clob pair id %q: %w", ticker, m.ClobPairID, err)
		}
		if m.Ticker == "" {
			m.Ticker = ticker
		}
		out[uint32(id)] = Info{
			ClobPairID:                uint32(id),
			Ticker:                    m.Ticker,
			AtomicResolution:          m.AtomicResolution,
			QuantumConversionExponent: m.QuantumConversionExponent,
		}
	}
	return out, nil
}
