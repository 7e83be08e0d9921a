package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"lobfeed/domain/orderbook"
	"lobfeed/domain/subaccount"
	"lobfeed/infra/market"
	"lobfeed/service"
)

type fakeQuerier struct {
	books map[uint32]service.BookView
	subs  map[subaccount.ID]subaccount.Subaccount
}

func (f *fakeQuerier) Book(clob uint32, depth int) (service.BookView, bool) {
	v, ok := f.books[clob]
	return v, ok
}

func (f *fakeQuerier) Books(depth int) []service.BookView {
	out := make([]service.BookView, 0, len(f.books))
	for _, v := range f.books {
		out = append(out, v)
	}
	return out
}

func (f *fakeQuerier) Subaccount(id subaccount.ID) (subaccount.Subaccount, bool) {
	s, ok := f.subs[id]
	return s, ok
}

func dial(t *testing.T, q Querier) *BookQueryClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zerolog.Nop())))
	RegisterBookQueryServer(srv, NewServer(q, map[uint32]market.Info{
		0: {Ticker: "BTC-USD", AtomicResolution: -10, QuantumConversionExponent: -9},
	}, 5))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewBookQueryClient(conn)
}

func testQuerier() *fakeQuerier {
	sub := subaccount.New(subaccount.ID{Owner: "alice", Number: 1})
	sub.PerpetualPositions[0] = -25
	return &fakeQuerier{
		books: map[uint32]service.BookView{
			0: {
				ClobPairID:  0,
				BlockHeight: 77,
				Orders:      1,
				BidLevels:   1,
				Top: orderbook.TopOfBook{
					Bids: []orderbook.Order{{
						ID:       orderbook.OrderID{OwnerAddress: "bob", ClientID: 9},
						Side:     orderbook.Bid,
						Quantums: 25_000_000_000,
						Subticks: 6_500_000_000,
					}},
				},
			},
		},
		subs: map[subaccount.ID]subaccount.Subaccount{sub.ID: sub},
	}
}

func TestGetBook(t *testing.T) {
	c := dial(t, testQuerier())

	resp, err := c.GetBook(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	m := resp.AsMap()
	if m["ticker"] != "BTC-USD" || m["blockHeight"] != float64(77) {
		t.Fatalf("unexpected book %v", m)
	}
	bids := m["bids"].([]any)
	if len(bids) != 1 {
		t.Fatalf("want 1 bid, got %v", bids)
	}
	bid := bids[0].(map[string]any)
	if bid["price"] != "65000" || bid["size"] != "2.5" || bid["quantums"] != "25000000000" {
		t.Fatalf("unexpected bid %v", bid)
	}
	if _, ok := m["midpointSubticks"]; ok {
		t.Fatal("one-sided book must not report a midpoint")
	}
}

func TestGetBookNotFound(t *testing.T) {
	c := dial(t, testQuerier())

	_, err := c.GetBook(context.Background(), 42)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestListBooks(t *testing.T) {
	c := dial(t, testQuerier())

	resp, err := c.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	books := resp.AsMap()["books"].([]any)
	if len(books) != 1 {
		t.Fatalf("want 1 book, got %d", len(books))
	}
	if _, ok := books[0].(map[string]any)["bids"]; ok {
		t.Fatal("list entries should not carry orders")
	}
}

func TestGetSubaccount(t *testing.T) {
	c := dial(t, testQuerier())

	resp, err := c.GetSubaccount(context.Background(), "alice/1")
	if err != nil {
		t.Fatalf("GetSubaccount: %v", err)
	}
	perps := resp.AsMap()["perpetualPositions"].(map[string]any)
	if perps["0"] != "-25" {
		t.Fatalf("unexpected positions %v", perps)
	}

	if _, err := c.GetSubaccount(context.Background(), "alice"); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("want InvalidArgument, got %v", err)
	}
	if _, err := c.GetSubaccount(context.Background(), "bob/0"); status.Code(err) != codes.NotFound {
		t.Fatalf("want NotFound, got %v", err)
	}
}
