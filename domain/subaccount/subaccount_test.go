package subaccount

import "testing"

func TestParseID(t *testing.T) {
	id, err := ParseID("dydx1abc/3")
	if err != nil || id != (ID{Owner: "dydx1abc", Number: 3}) {
		t.Fatalf("got %+v, %v", id, err)
	}
	if id.String() != "dydx1abc/3" {
		t.Fatalf("String round trip gave %q", id.String())
	}

	for _, bad := range []string{"", "dydx1abc", "/1", "dydx1abc/x", "dydx1abc/-1"} {
		if _, err := ParseID(bad); err == nil {
			t.Fatalf("ParseID(%q) should fail", bad)
		}
	}
}
