package stream

import "fmt"

// Field names follow the protojson rendering of the full node's
// StreamOrderbookUpdatesResponse.

type Response struct {
	Updates []Update `json:"updates"`
}

// Update carries exactly one payload.
type Update struct {
	BlockHeight uint32 `json:"blockHeight"`
	ExecMode    uint32 `json:"execMode"`

	OrderbookUpdate  *OrderbookUpdate  `json:"orderbookUpdate,omitempty"`
	OrderFill        *OrderbookFill    `json:"orderFill,omitempty"`
	TakerOrder       *TakerOrder       `json:"takerOrder,omitempty"`
	SubaccountUpdate *SubaccountUpdate `json:"subaccountUpdate,omitempty"`
}

type Kind uint8

const (
	KindNone Kind = iota
	KindOrderbook
	KindFill
	KindTakerOrder
	KindSubaccount
	KindAmbiguous
)

func (k Kind) String() string {
	switch k {
	case KindOrderbook:
		return "orderbook"
	case KindFill:
		return "fill"
	case KindTakerOrder:
		return "taker_order"
	case KindSubaccount:
		return "subaccount"
	case KindAmbiguous:
		return "ambiguous"
	default:
		return "none"
	}
}

// Kind reports which payload is set. KindNone and KindAmbiguous mark a
// malformed update.
func (u *Update) Kind() Kind {
	k, n := KindNone, 0
	if u.OrderbookUpdate != nil {
		k, n = KindOrderbook, n+1
	}
	if u.OrderFill != nil {
		k, n = KindFill, n+1
	}
	if u.TakerOrder != nil {
		k, n = KindTakerOrder, n+1
	}
	if u.SubaccountUpdate != nil {
		k, n = KindSubaccount, n+1
	}
	if n > 1 {
		return KindAmbiguous
	}
	return k
}

// ---- identifiers ----

type SubaccountID struct {
	Owner  string `json:"owner"`
	Number uint32 `json:"number"`
}

type OrderID struct {
	SubaccountID *SubaccountID `json:"subaccountId"`
	ClientID     uint32        `json:"clientId"`
	OrderFlags   uint32        `json:"orderFlags"`
	ClobPairID   uint32        `json:"clobPairId"`
}

// ---- orders ----

type Order struct {
	OrderID  *OrderID `json:"orderId"`
	Side     Side     `json:"side"`
	Quantums Uint64   `json:"quantums"`
	Subticks Uint64   `json:"subticks"`

	GoodTilBlock uint32 `json:"goodTilBlock,omitempty"`
	TimeInForce  uint32 `json:"timeInForce,omitempty"`
	ReduceOnly   bool   `json:"reduceOnly,omitempty"`
}

// ---- orderbook updates ----

type OrderbookUpdate struct {
	Snapshot bool             `json:"snapshot"`
	Updates  []OffChainUpdate `json:"updates"`
}

// OffChainUpdate carries exactly one of place, update or remove.
type OffChainUpdate struct {
	OrderPlace  *OrderPlace  `json:"orderPlace,omitempty"`
	OrderUpdate *OrderUpdate `json:"orderUpdate,omitempty"`
	OrderRemove *OrderRemove `json:"orderRemove,omitempty"`
}

type OrderPlace struct {
	Order           *Order `json:"order"`
	PlacementStatus uint32 `json:"placementStatus,omitempty"`
}

type OrderUpdate struct {
	OrderID             *OrderID `json:"orderId"`
	TotalFilledQuantums Uint64   `json:"totalFilledQuantums"`
}

type OrderRemove struct {
	RemovedOrderID *OrderID `json:"removedOrderId"`
	Reason         uint32   `json:"reason,omitempty"`
	RemovalStatus  uint32   `json:"removalStatus,omitempty"`
}

// ---- fills ----

type OrderbookFill struct {
	ClobMatch   *ClobMatch `json:"clobMatch"`
	Orders      []Order    `json:"orders"`
	FillAmounts []Uint64   `json:"fillAmounts"`
}

// ClobMatch carries exactly one match variant.
type ClobMatch struct {
	MatchOrders                *MatchOrders                `json:"matchOrders,omitempty"`
	MatchPerpetualLiquidation  *MatchPerpetualLiquidation  `json:"matchPerpetualLiquidation,omitempty"`
	MatchPerpetualDeleveraging *MatchPerpetualDeleveraging `json:"matchPerpetualDeleveraging,omitempty"`
}

type MakerFill struct {
	FillAmount   Uint64   `json:"fillAmount"`
	MakerOrderID *OrderID `json:"makerOrderId"`
}

type MatchOrders struct {
	TakerOrderID *OrderID    `json:"takerOrderId"`
	Fills        []MakerFill `json:"fills"`
}

type MatchPerpetualLiquidation struct {
	Liquidated  *SubaccountID `json:"liquidated"`
	ClobPairID  uint32        `json:"clobPairId"`
	PerpetualID uint32        `json:"perpetualId"`
	TotalSize   Uint64        `json:"totalSize"`
	IsBuy       bool          `json:"isBuy"`
	Fills       []MakerFill   `json:"fills"`
}

type DeleveragingFill struct {
	OffsettingSubaccountID *SubaccountID `json:"offsettingSubaccountId"`
	FillAmount             Uint64        `json:"fillAmount"`
}

type MatchPerpetualDeleveraging struct {
	Liquidated        *SubaccountID      `json:"liquidated"`
	PerpetualID       uint32             `json:"perpetualId"`
	Fills             []DeleveragingFill `json:"fills"`
	IsFinalSettlement bool               `json:"isFinalSettlement,omitempty"`
}

// ---- taker orders ----

type TakerOrder struct {
	Order  *Order            `json:"order"`
	Status *TakerOrderStatus `json:"takerOrderStatus,omitempty"`
}

type TakerOrderStatus struct {
	OrderStatus                  uint32 `json:"orderStatus"`
	RemainingQuantums            Uint64 `json:"remainingQuantums"`
	OptimisticallyFilledQuantums Uint64 `json:"optimisticallyFilledQuantums"`
}

// ---- subaccounts ----

type PerpetualPosition struct {
	PerpetualID uint32 `json:"perpetualId"`
	Quantums    Int64  `json:"quantums"`
}

type AssetPosition struct {
	AssetID  uint32 `json:"assetId"`
	Quantums Int64  `json:"quantums"`
}

type SubaccountUpdate struct {
	SubaccountID              *SubaccountID       `json:"subaccountId"`
	UpdatedPerpetualPositions []PerpetualPosition `json:"updatedPerpetualPositions"`
	UpdatedAssetPositions     []AssetPosition     `json:"updatedAssetPositions"`
	Snapshot                  bool                `json:"snapshot"`
}

// Side accepts both the numeric enum value and its protojson name.
type Side uint32

const (
	SideUnspecified Side = 0
	SideBuy         Side = 1
	SideSell        Side = 2
)

func (s *Side) UnmarshalJSON(b []byte) error {
	switch string(unquote(b)) {
	case "SIDE_BUY", "1":
		*s = SideBuy
	case "SIDE_SELL", "2":
		*s = SideSell
	case "SIDE_UNSPECIFIED", "0":
		*s = SideUnspecified
	default:
		return fmt.Errorf("stream: invalid side %s", b)
	}
	return nil
}
