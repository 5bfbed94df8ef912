package types

import "testing"

func TestItemTypeOpposite(t *testing.T) {
	if got := ItemTypeLost.Opposite(); got != ItemTypeFound {
		t.Errorf("Opposite(lost) = %q, want %q", got, ItemTypeFound)
	}
	if got := ItemTypeFound.Opposite(); got != ItemTypeLost {
		t.Errorf("Opposite(found) = %q, want %q", got, ItemTypeLost)
	}
}

func TestItemTypeValid(t *testing.T) {
	if !ItemTypeLost.Valid() || !ItemTypeFound.Valid() {
		t.Error("lost and found must be valid item types")
	}
	if ItemType("stolen").Valid() || ItemType("").Valid() {
		t.Error("unknown item types must be invalid")
	}
}
