package core

import (
	"reflect"
	"testing"
)

func TestRegistryJoinLeaveNetCount(t *testing.T) {
	reg := NewRegistry()

	ops := []struct {
		join bool
		room string
		user string
	}{
		{true, "general", "alice"},
		{true, "general", "bob"},
		{true, "general", "alice"}, // rejoin is a no-op on the set
		{true, "random", "alice"},
		{false, "general", "bob"},
		{true, "general", "carol"},
		{false, "general", "ghost"}, // unknown identity is a no-op
		{false, "nowhere", "alice"}, // unknown room is a no-op
	}
	for _, op := range ops {
		if op.join {
			reg.Join(op.room, op.user)
		} else {
			reg.Leave(op.room, op.user)
		}
	}

	got := reg.Members("general")
	want := []string{"alice", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("members = %v, want %v", got, want)
	}

	if got := reg.Members("random"); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("random members = %v", got)
	}
}

func TestRegistryMembersSorted(t *testing.T) {
	reg := NewRegistry()
	for _, u := range []string{"zoe", "adam", "mike", "bea"} {
		reg.Join("general", u)
	}

	want := []string{"adam", "bea", "mike", "zoe"}
	if got := reg.Members("general"); !reflect.DeepEqual(got, want) {
		t.Fatalf("members = %v, want %v", got, want)
	}
}

func TestRegistryJoinIdempotent(t *testing.T) {
	reg := NewRegistry()

	if !reg.Join("general", "alice") {
		t.Fatal("first join should change the set")
	}
	if reg.Join("general", "alice") {
		t.Fatal("rejoin should not change the set")
	}
	if got := reg.Members("general"); len(got) != 1 {
		t.Fatalf("members = %v, want one entry", got)
	}
}

func TestRegistryPrunesEmptyRooms(t *testing.T) {
	reg := NewRegistry()
	reg.Join("general", "alice")
	reg.Join("random", "alice")

	if got := reg.RoomCount(); got != 2 {
		t.Fatalf("room count = %d, want 2", got)
	}

	reg.Leave("general", "alice")
	if got := reg.RoomCount(); got != 1 {
		t.Fatalf("room count after leave = %d, want 1", got)
	}
	if reg.Contains("general", "alice") {
		t.Fatal("alice should no longer be in general")
	}
	if got := reg.Members("general"); len(got) != 0 {
		t.Fatalf("pruned room members = %v, want empty", got)
	}
}

func TestRegistryIdentityInManyRooms(t *testing.T) {
	reg := NewRegistry()
	reg.Join("general", "alice")
	reg.Join("random", "alice")

	if !reg.Contains("general", "alice") || !reg.Contains("random", "alice") {
		t.Fatal("alice should be a member of both rooms")
	}
}
