package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/roomchat/roomchat-server/internal/keys"
	"github.com/roomchat/roomchat-server/internal/store/memory"
)

func startHub(t *testing.T, cfg HubConfig) *Hub {
	t.Helper()

	hub := NewHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func join(c *Client, room, user string) {
	c.Commands <- &Command{Kind: CommandJoinRoom, Room: room, User: user}
}

func TestHubJoinBroadcastsMembersAndHistory(t *testing.T) {
	hub := startHub(t, HubConfig{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	join(alice, "general", "alice")

	ev := mustEvent(t, alice.Events, EventMembers)
	if !reflect.DeepEqual(ev.Members, []string{"alice"}) {
		t.Fatalf("members = %v, want [alice]", ev.Members)
	}
	mustEvent(t, alice.Events, EventHistory)

	join(bob, "general", "bob")

	// Both connections see the updated, sorted member list.
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventMembers)
		if !reflect.DeepEqual(ev.Members, []string{"alice", "bob"}) {
			t.Fatalf("members = %v, want [alice bob]", ev.Members)
		}
	}
}

func TestHubSenderReceivesOwnMessage(t *testing.T) {
	hub := startHub(t, HubConfig{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	join(alice, "general", "alice")
	join(bob, "general", "bob")

	start := time.Now()
	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "general", Body: "hi"}

	// The sender's UI updates from the same code path as everyone else's.
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventMessage)
		if ev.Message.From != "alice" || ev.Message.Body != "hi" || ev.Message.Room != "general" {
			t.Fatalf("unexpected message event: %+v", ev.Message)
		}
		if ev.Message.SentAt.Before(start.Add(-time.Second)) {
			t.Fatalf("sent-at %v predates the send", ev.Message.SentAt)
		}
	}
}

func TestHubRejoinStillBroadcastsMembers(t *testing.T) {
	hub := startHub(t, HubConfig{})

	alice := NewClient("a")
	hub.RegisterClient(alice)

	join(alice, "general", "alice")
	first := mustEvent(t, alice.Events, EventMembers)

	join(alice, "general", "alice")
	second := mustEvent(t, alice.Events, EventMembers)

	if !reflect.DeepEqual(first.Members, second.Members) {
		t.Fatalf("rejoin changed the member set: %v vs %v", first.Members, second.Members)
	}
}

func TestHubJoinWithoutUserDropped(t *testing.T) {
	hub := startHub(t, HubConfig{})

	c := NewClient("a")
	hub.RegisterClient(c)

	join(c, "general", "")
	assertNoEvent(t, c.Events, EventMembers, 100*time.Millisecond)
}

func TestHubLeaveUnknownRoomNoOp(t *testing.T) {
	hub := startHub(t, HubConfig{})

	alice := NewClient("a")
	hub.RegisterClient(alice)
	join(alice, "general", "alice")
	mustEvent(t, alice.Events, EventMembers)
	drain(alice.Events)

	alice.Commands <- &Command{Kind: CommandLeaveRoom, Room: "ghost"}
	assertNoEvent(t, alice.Events, EventMembers, 100*time.Millisecond)
}

func TestHubLeaveBroadcastsToRemaining(t *testing.T) {
	hub := startHub(t, HubConfig{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	join(alice, "general", "alice")
	join(bob, "general", "bob")
	mustEvent(t, bob.Events, EventMembers)
	drain(bob.Events)

	alice.Commands <- &Command{Kind: CommandLeaveRoom, Room: "general"}

	ev := mustEvent(t, bob.Events, EventMembers)
	if !reflect.DeepEqual(ev.Members, []string{"bob"}) {
		t.Fatalf("members = %v, want [bob]", ev.Members)
	}
}

func TestHubDisconnectRemovesMembership(t *testing.T) {
	hub := startHub(t, HubConfig{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	join(alice, "general", "alice")
	join(bob, "general", "bob")
	mustEvent(t, bob.Events, EventMembers)
	drain(bob.Events)

	// Abrupt disconnect, no explicit leave.
	hub.UnregisterClient(alice)

	ev := mustEvent(t, bob.Events, EventMembers)
	if !reflect.DeepEqual(ev.Members, []string{"bob"}) {
		t.Fatalf("members = %v, want [bob]", ev.Members)
	}
	// Exactly one broadcast for the disconnect.
	assertNoEvent(t, bob.Events, EventMembers, 150*time.Millisecond)
}

func TestHubDefaultRoomFallback(t *testing.T) {
	hub := startHub(t, HubConfig{DefaultRoom: "general"})

	alice := NewClient("a")
	hub.RegisterClient(alice)

	join(alice, "", "alice")
	ev := mustEvent(t, alice.Events, EventMembers)
	if ev.Room != "general" {
		t.Fatalf("room = %q, want general", ev.Room)
	}
}

func TestHubPrivateMessageDeliveredToBoth(t *testing.T) {
	st := memory.New()
	hub := startHub(t, HubConfig{Store: st})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	join(alice, "general", "alice")
	join(bob, "general", "bob")

	alice.Commands <- &Command{Kind: CommandSendPrivate, To: "bob", Body: "psst"}

	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventPrivateMessage)
		if ev.Message.From != "alice" || ev.Message.To != "bob" || ev.Message.Body != "psst" {
			t.Fatalf("unexpected private event: %+v", ev.Message)
		}
	}
	assertNoEvent(t, bob.Events, EventPrivateMessage, 100*time.Millisecond)

	// A later join of the shared private room replays the message exactly once.
	carol := NewClient("c") // fresh connection for bob
	hub.RegisterClient(carol)
	join(carol, keys.Direct("alice", "bob"), "bob")

	history := mustEvent(t, carol.Events, EventHistory)
	if len(history.Messages) != 1 {
		t.Fatalf("history = %d messages, want 1", len(history.Messages))
	}
	if history.Messages[0].Body != "psst" || history.Messages[0].From != "alice" {
		t.Fatalf("unexpected history entry: %+v", history.Messages[0])
	}
}

func TestHubPrivateMessageOfflineRecipient(t *testing.T) {
	st := memory.New()
	hub := startHub(t, HubConfig{Store: st})

	alice := NewClient("a")
	hub.RegisterClient(alice)
	join(alice, "general", "alice")

	// Bob has zero connections; the message must still be durable.
	alice.Commands <- &Command{Kind: CommandSendPrivate, To: "bob", Body: "hello?"}
	mustEvent(t, alice.Events, EventPrivateMessage)

	bob := NewClient("b")
	hub.RegisterClient(bob)
	join(bob, keys.Direct("alice", "bob"), "bob")

	history := mustEvent(t, bob.Events, EventHistory)
	if len(history.Messages) != 1 || history.Messages[0].Body != "hello?" {
		t.Fatalf("unexpected history: %+v", history.Messages)
	}
}

func TestHubHistoryReplayScenario(t *testing.T) {
	st := memory.New()
	hub := startHub(t, HubConfig{Store: st})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	join(alice, "general", "alice")
	join(bob, "general", "bob")

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "general", Body: "hi"}

	ev := mustEvent(t, bob.Events, EventMessage)
	if ev.Message.From != "alice" || ev.Message.Body != "hi" {
		t.Fatalf("unexpected message event: %+v", ev.Message)
	}

	carol := NewClient("c")
	hub.RegisterClient(carol)
	join(carol, "general", "carol")

	history := mustEvent(t, carol.Events, EventHistory)
	found := false
	for _, m := range history.Messages {
		if m.From == "alice" && m.Body == "hi" {
			found = true
		}
	}
	if !found {
		t.Fatalf("history missing alice's message: %+v", history.Messages)
	}
}

func TestHubAppendFailureBroadcastsNothing(t *testing.T) {
	st := memory.New()
	st.AppendErr = errors.New("disk full")
	hub := startHub(t, HubConfig{Store: st})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	join(alice, "general", "alice")
	join(bob, "general", "bob")
	drain(bob.Events)

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "general", Body: "hi"}

	// Fail closed: an unpersisted message is never broadcast.
	assertNoEvent(t, bob.Events, EventMessage, 150*time.Millisecond)
	assertNoEvent(t, alice.Events, EventMessage, 50*time.Millisecond)
}

func TestHubHistoryFailureSurfacesEmpty(t *testing.T) {
	st := memory.New()
	st.HistoryErr = errors.New("log offline")
	hub := startHub(t, HubConfig{Store: st})

	alice := NewClient("a")
	hub.RegisterClient(alice)
	join(alice, "general", "alice")

	history := mustEvent(t, alice.Events, EventHistory)
	if len(history.Messages) != 0 {
		t.Fatalf("history = %+v, want empty", history.Messages)
	}

	// The connection stays usable.
	st.HistoryErr = nil
	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "general", Body: "still here"}
	ev := mustEvent(t, alice.Events, EventMessage)
	if ev.Message.Body != "still here" {
		t.Fatalf("unexpected message: %+v", ev.Message)
	}
}

func TestHubUnregisterReleasesPump(t *testing.T) {
	hub := startHub(t, HubConfig{})

	before := runtime.NumGoroutine()

	for i := 0; i < 50; i++ {
		c := NewClient(fmt.Sprintf("conn-%d", i))
		hub.RegisterClient(c)
		join(c, "general", fmt.Sprintf("user-%d", i))
		hub.UnregisterClient(c)
	}

	// Every connection's pump goroutine must exit once the hub drops it.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines leaked: before=%d after=%d", before, runtime.NumGoroutine())
}

func TestHubSecondConnectionKeepsMembership(t *testing.T) {
	hub := startHub(t, HubConfig{})

	first := NewClient("a1")
	second := NewClient("a2")
	observer := NewClient("b")
	hub.RegisterClient(first)
	hub.RegisterClient(second)
	hub.RegisterClient(observer)

	join(first, "general", "alice")
	join(second, "general", "alice")
	join(observer, "general", "bob")
	mustEvent(t, observer.Events, EventMembers)
	drain(observer.Events)

	// Dropping one of alice's two connections must not remove her membership.
	hub.UnregisterClient(first)
	assertNoEvent(t, observer.Events, EventMembers, 150*time.Millisecond)

	hub.UnregisterClient(second)
	ev := mustEvent(t, observer.Events, EventMembers)
	if !reflect.DeepEqual(ev.Members, []string{"bob"}) {
		t.Fatalf("members = %v, want [bob]", ev.Members)
	}
}
