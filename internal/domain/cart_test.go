package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGuestCartEntriesCollapse(t *testing.T) {
	guest := GuestCartEntries{"cam-a", " cam-a ", "lens-b", "", "  "}

	got := guest.Collapse()
	want := AccountCart{"cam-a": 2, "lens-b": 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected collapse (-want +got):\n%s", diff)
	}
}

func TestAccountCartRemoveDeletesAtZero(t *testing.T) {
	cart := AccountCart{"cam-a": 1, "lens-b": 3}

	cart.Remove("cam-a", 1)
	if _, ok := cart["cam-a"]; ok {
		t.Fatalf("expected cam-a to be deleted, got %v", cart)
	}

	cart.Remove("lens-b", 5)
	if len(cart) != 0 {
		t.Fatalf("expected empty cart, got %v", cart)
	}

	cart.Remove("missing", 1)
	if len(cart) != 0 {
		t.Fatalf("removing an absent product should be a no-op, got %v", cart)
	}
}

func TestAccountCartMergeAddsCounts(t *testing.T) {
	cart := AccountCart{"lens-b": 1}
	cart.Merge(AccountCart{"cam-a": 2, "lens-b": 1})

	want := AccountCart{"cam-a": 2, "lens-b": 2}
	if diff := cmp.Diff(want, cart); diff != "" {
		t.Fatalf("unexpected merge (-want +got):\n%s", diff)
	}
	if cart.Units() != 4 {
		t.Fatalf("expected 4 units, got %d", cart.Units())
	}
	if refs := cart.Refs(); refs[0] != "cam-a" || refs[1] != "lens-b" {
		t.Fatalf("expected sorted refs, got %v", refs)
	}
}
