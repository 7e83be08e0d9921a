package grpcserver

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"lobfeed/domain/orderbook"
	"lobfeed/domain/subaccount"
	"lobfeed/infra/market"
	"lobfeed/service"
)

// Querier is the read side of service.FeedService.
type Querier interface {
	Book(clobPairID uint32, depth int) (service.BookView, bool)
	Books(depth int) []service.BookView
	Subaccount(id subaccount.ID) (subaccount.Subaccount, bool)
}

// Server adapts the feed service to the BookQuery API.
type Server struct {
	svc     Querier
	markets map[uint32]market.Info
	depth   int
}

func NewServer(svc Querier, markets map[uint32]market.Info, depth int) *Server {
	return &Server{svc: svc, markets: markets, depth: depth}
}

// -------------------- Queries --------------------

func (s *Server) GetBook(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	v, ok := s.svc.Book(req.GetValue(), s.depth)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no book for clob pair %d", req.GetValue())
	}
	return s.toStruct(s.bookFields(v, true))
}

func (s *Server) ListBooks(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	views := s.svc.Books(-1)
	books := make([]any, 0, len(views))
	for _, v := range views {
		books = append(books, s.bookFields(v, false))
	}
	return s.toStruct(map[string]any{"books": books})
}

func (s *Server) GetSubaccount(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := subaccount.ParseID(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	sub, ok := s.svc.Subaccount(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no subaccount %s", id)
	}
	return s.toStruct(map[string]any{
		"owner":              id.Owner,
		"number":             id.Number,
		"perpetualPositions": positions(sub.PerpetualPositions),
		"assetPositions":     positions(sub.AssetPositions),
	})
}

// -------------------- Converters --------------------

func (s *Server) toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// 64-bit quantities are strings; a JSON number cannot hold them exactly.
func (s *Server) bookFields(v service.BookView, withOrders bool) map[string]any {
	m := map[string]any{
		"clobPairId":  v.ClobPairID,
		"blockHeight": v.BlockHeight,
		"orders":      v.Orders,
		"bidLevels":   v.BidLevels,
		"askLevels":   v.AskLevels,
		"crossed":     v.Crossed,
	}
	info, known := s.markets[v.ClobPairID]
	if known {
		m["ticker"] = info.Ticker
	}
	if v.HasMidpoint {
		m["midpointSubticks"] = v.Midpoint
	}
	if withOrders {
		m["asks"] = s.orders(v.Top.Asks, info, known)
		m["bids"] = s.orders(v.Top.Bids, info, known)
	}
	return m
}

func (s *Server) orders(list []orderbook.Order, info market.Info, known bool) []any {
	out := make([]any, 0, len(list))
	for _, o := range list {
		e := map[string]any{
			"owner":            o.ID.OwnerAddress,
			"subaccountNumber": o.ID.SubaccountNumber,
			"clientId":         o.ID.ClientID,
			"orderFlags":       o.ID.OrderFlags,
			"quantums":         strconv.FormatUint(o.Quantums, 10),
			"subticks":         strconv.FormatUint(o.Subticks, 10),
		}
		if known {
			e["size"] = info.QuantumsToSize(o.Quantums).String()
			e["price"] = info.SubticksToPrice(o.Subticks).String()
		}
		out = append(out, e)
	}
	return out
}

func positions(in map[uint32]int64) map[string]any {
	out := make(map[string]any, len(in))
	for id, q := range in {
		out[strconv.FormatUint(uint64(id), 10)] = strconv.FormatInt(q, 10)
	}
	return out
}
