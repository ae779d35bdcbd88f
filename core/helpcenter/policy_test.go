package helpcenter

import (
	"reflect"
	"testing"
)

func TestParsePolicySkipsMalformedEntries(t *testing.T) {
	p := ParsePolicy("100, abc, 101, , 0, 102x")
	if !reflect.DeepEqual(p.Admins(), []int64{100, 101}) {
		t.Fatalf("admins = %v, want [100 101]", p.Admins())
	}
	if p.IsAdmin(0) {
		t.Fatal("zero id must never be an admin")
	}
}

func TestParsePolicyEmpty(t *testing.T) {
	p := ParsePolicy("")
	if p.Size() != 0 {
		t.Fatalf("size = %d, want 0", p.Size())
	}
	if p.IsAdmin(100) {
		t.Fatal("empty policy must authorize no one")
	}
}

func TestNewPolicyDeduplicates(t *testing.T) {
	p := NewPolicy(5, 5, 7, 0)
	if p.Size() != 2 {
		t.Fatalf("size = %d, want 2", p.Size())
	}
	if !p.IsAdmin(5) || !p.IsAdmin(7) {
		t.Fatal("expected 5 and 7 to be admins")
	}
}
