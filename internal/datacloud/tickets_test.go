package datacloud

import (
	"testing"
	"time"
)

func TestTicketStore_IssueAndRedeem(t *testing.T) {
	ts := NewTicketStore()

	ticket := ts.Issue()
	if len(ticket) != 32 {
		t.Fatalf("ticket = %q, want 32 hex chars", ticket)
	}

	// Redeem should succeed
	if !ts.Redeem(ticket) {
		t.Error("expected redeem to succeed")
	}

	// Second redeem should fail (burned)
	if ts.Redeem(ticket) {
		t.Error("expected second redeem to fail")
	}
}

func TestTicketStore_UnknownTicket(t *testing.T) {
	ts := NewTicketStore()
	if ts.Redeem("not-a-ticket") {
		t.Error("expected redeem of unknown ticket to fail")
	}
}

func TestTicketStore_Expired(t *testing.T) {
	ts := NewTicketStore()
	ts.ttl = 1 * time.Millisecond // override for test

	ticket := ts.Issue()
	time.Sleep(5 * time.Millisecond)

	if ts.Redeem(ticket) {
		t.Error("expected expired ticket to fail")
	}
}

func TestTicketStore_Cleanup(t *testing.T) {
	ts := NewTicketStore()
	ts.ttl = 1 * time.Millisecond

	ts.Issue()
	ts.Issue()
	time.Sleep(5 * time.Millisecond)
	ts.Cleanup()

	ts.mu.Lock()
	remaining := len(ts.tickets)
	ts.mu.Unlock()
	if remaining != 0 {
		t.Errorf("tickets remaining after cleanup = %d", remaining)
	}
}
