package orderbook

import (
	"math/rand"
	"slices"
	"testing"
)

func TestRBTreeInsertFindDelete(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(100)
	if pl1 == nil {
		t.Fatal("UpsertLevel failed")
	}
	if pl2 := tree.FindLevel(100); pl2 != pl1 {
		t.Error("FindLevel did not return same PriceLevel")
	}

	tree.UpsertLevel(200)
	if tree.MinLevel().Subticks != 100 {
		t.Error("expected min=100")
	}
	if tree.MaxLevel().Subticks != 200 {
		t.Error("expected max=200")
	}

	if !tree.DeleteLevel(100) {
		t.Error("DeleteLevel failed")
	}
	if tree.FindLevel(100) != nil {
		t.Error("expected level 100 to be gone")
	}
	if tree.Size() != 1 {
		t.Errorf("expected size 1, got %d", tree.Size())
	}
}

// --- Edge Cases ---

func TestDeleteNonExistentLevel(t *testing.T) {
	tree := NewRBTree()
	if tree.DeleteLevel(123) {
		t.Error("expected false when deleting non-existent level")
	}
}

func TestEmptyTreeMinMax(t *testing.T) {
	tree := NewRBTree()
	if tree.MinLevel() != nil || tree.MaxLevel() != nil {
		t.Error("expected nil for min/max on empty tree")
	}
	for range tree.Ascending() {
		t.Fatal("expected no levels")
	}
}

func TestUpsertDuplicateLevel(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(150)
	pl2 := tree.UpsertLevel(150)
	if pl1 != pl2 {
		t.Error("Upsert should return the same node for duplicate level")
	}
	if tree.Size() != 1 {
		t.Errorf("expected size 1, got %d", tree.Size())
	}
}

func TestRBTreeRandomOpsKeepInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	tree := NewRBTree()
	live := map[uint64]bool{}

	for i := 0; i < 5000; i++ {
		k := uint64(r.Intn(500))
		if r.Intn(3) == 0 {
			if tree.DeleteLevel(k) != live[k] {
				t.Fatalf("delete %d: presence mismatch", k)
			}
			delete(live, k)
		} else {
			tree.UpsertLevel(k)
			live[k] = true
		}
		if i%250 == 0 {
			checkRedBlack(t, tree)
		}
	}
	checkRedBlack(t, tree)

	want := make([]uint64, 0, len(live))
	for k := range live {
		want = append(want, k)
	}
	slices.Sort(want)

	var got []uint64
	for lvl := range tree.Ascending() {
		got = append(got, lvl.Subticks)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("ascending walk mismatch: want %d keys, got %d", len(want), len(got))
	}

	got = got[:0]
	for lvl := range tree.Descending() {
		got = append(got, lvl.Subticks)
	}
	slices.Reverse(want)
	if !slices.Equal(got, want) {
		t.Fatal("descending walk mismatch")
	}
}

func checkRedBlack(t *testing.T, tree *RBTree) {
	t.Helper()
	if tree.root.color != black {
		t.Fatal("root must be black")
	}
	var walk func(n *node) int
	walk = func(n *node) int {
		if n == tree.nil {
			return 1
		}
		if n.color == red && (n.left.color == red || n.right.color == red) {
			t.Fatalf("red node %d has red child", n.key)
		}
		if n.left != tree.nil && n.left.key >= n.key {
			t.Fatalf("bst order broken at %d", n.key)
		}
		if n.right != tree.nil && n.right.key <= n.key {
			t.Fatalf("bst order broken at %d", n.key)
		}
		lh, rh := walk(n.left), walk(n.right)
		if lh != rh {
			t.Fatalf("black height mismatch at %d: %d vs %d", n.key, lh, rh)
		}
		if n.color == black {
			return lh + 1
		}
		return lh
	}
	walk(tree.root)
}
