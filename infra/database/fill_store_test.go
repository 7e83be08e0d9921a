package database

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"lobfeed/domain/fills"
)

func TestInsertArgs(t *testing.T) {
	e := fills.Event{
		ID:         "3f1c6c1e-4a40-4f0c-9a3e-0d6f1c2b9a10",
		ClobPairID: 1,
		Kind:       "NORMAL",
		Maker:      "maker/0/1/0",
		Taker:      "taker/0/2/0",
		Quantums:   5,
		Subticks:   100,
		Price:      "65000",
		ReceivedAt: time.Unix(0, 0).UTC(),
	}

	args := insertArgs(e)
	if want := strings.Count(insertFill, "$"); len(args) != want {
		t.Fatalf("want %d args for %d placeholders, got %d", want, want, len(args))
	}
	if ticker := args[2].(sql.NullString); ticker.Valid {
		t.Fatalf("empty ticker should be NULL, got %+v", ticker)
	}
	if price := args[13].(sql.NullString); !price.Valid || price.String != "65000" {
		t.Fatalf("unexpected price arg %+v", price)
	}
}
