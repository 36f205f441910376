package engine

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryMembership(t *testing.T) {
	r := NewRegistry()

	guest := r.Add("g1")
	guest.setIdentity(Identity{ID: "g1", Role: RoleGuest, DisplayName: "alice"})
	agent := r.Add("a1")
	agent.setIdentity(Identity{ID: "bob-id", Role: RoleAgent, DisplayName: "bob"})
	admin := r.Add("a2")
	admin.setIdentity(Identity{ID: "root", Role: RoleAdmin, DisplayName: "root"})
	r.Add("anon")

	if r.Len() != 4 {
		t.Fatalf("len = %d, want 4", r.Len())
	}
	if got := len(r.Staff()); got != 2 {
		t.Fatalf("staff = %d, want 2", got)
	}

	guest.joinRoom("r1")
	agent.joinRoom("r1")
	if got := len(r.InRoom("r1")); got != 2 {
		t.Fatalf("in room = %d, want 2", got)
	}
	if r.InRoom("") != nil {
		t.Fatal("empty room id matched connections")
	}

	guest.leaveRoom()
	if got := len(r.InRoom("r1")); got != 1 {
		t.Fatalf("in room after leave = %d, want 1", got)
	}

	r.Remove("a1")
	if r.Get("a1") != nil {
		t.Fatal("removed connection still resolvable")
	}
	if got := len(r.Staff()); got != 1 {
		t.Fatalf("staff after remove = %d, want 1", got)
	}
}

func TestConnSendAfterCloseFails(t *testing.T) {
	r := NewRegistry()
	conn := r.Add("c1")
	r.Remove("c1")

	if conn.send(Envelope{Event: EventError}) {
		t.Fatal("send succeeded on closed connection")
	}
}

func TestSendDuringRemoveDoesNotPanic(t *testing.T) {
	// A broadcast racing a disconnect must degrade to send returning
	// false, never to a send on the closed outbound channel.
	for i := 0; i < 500; i++ {
		r := NewRegistry()
		conn := r.Add("c1")

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					conn.send(Envelope{Event: EventNewMessage})
				}
			}()
		}
		r.Remove("c1")
		wg.Wait()

		if conn.send(Envelope{Event: EventNewMessage}) {
			t.Fatal("send succeeded after remove")
		}
	}
}

func TestSlowConsumerDropsFrames(t *testing.T) {
	r := NewRegistry()
	conn := r.Add("c1")

	for i := 0; i < sendBuffer; i++ {
		if !conn.send(Envelope{Event: EventNewMessage, Data: fmt.Sprintf("m%d", i)}) {
			t.Fatalf("send %d failed before buffer filled", i)
		}
	}
	if conn.send(Envelope{Event: EventNewMessage}) {
		t.Fatal("send succeeded past buffer capacity")
	}

	// Draining one slot makes room again.
	<-conn.Outbound()
	if !conn.send(Envelope{Event: EventNewMessage}) {
		t.Fatal("send failed after drain")
	}
}
