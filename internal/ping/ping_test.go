package ping

import (
	"net/netip"
	"testing"
	"time"
)

func TestMarkOrDedupFirstRequestIsSent(t *testing.T) {
	c := &Client{pending: make(map[netip.AddrPort]*pendingEntry)}
	req := Request{SourceIndex: 1, Addr: netip.MustParseAddrPort("1.2.3.4:7778")}

	if !c.markOrDedup(req) {
		t.Fatal("expected first request for an address to be sent")
	}
	if len(c.pending) != 1 {
		t.Fatalf("pending size = %d, want 1", len(c.pending))
	}
}

func TestMarkOrDedupSecondRequestSetsRetryAndDrops(t *testing.T) {
	c := &Client{pending: make(map[netip.AddrPort]*pendingEntry)}
	addr := netip.MustParseAddrPort("1.2.3.4:7778")
	req := Request{SourceIndex: 1, Addr: addr}

	c.markOrDedup(req)
	if c.markOrDedup(req) {
		t.Fatal("expected duplicate request for the same address to be dropped")
	}
	if !c.pending[addr].shouldRetry {
		t.Error("expected should_retry to be set on duplicate")
	}
}

func TestSweepPendingEvictsExpiredAndRedeliversTimeout(t *testing.T) {
	var delivered []Response
	c := &Client{
		pending: make(map[netip.AddrPort]*pendingEntry),
		deliver: func(r Response) { delivered = append(delivered, r) },
	}

	addr := netip.MustParseAddrPort("1.2.3.4:7778")
	c.pending[addr] = &pendingEntry{sourceIndex: 42, addr: addr, sentAt: time.Now().Add(-11 * time.Second)}
	c.pendingOrder = []netip.AddrPort{addr}

	c.sweepPending()

	if len(delivered) != 1 || !delivered[0].Timeout || delivered[0].SourceIndex != 42 {
		t.Fatalf("expected one timeout response for source 42, got %+v", delivered)
	}
	if len(c.pending) != 0 {
		t.Errorf("expected pending entry to be evicted, got %d remaining", len(c.pending))
	}
}

func TestSweepPendingRetriesCarryForwardBuildID(t *testing.T) {
	c := &Client{
		pending: make(map[netip.AddrPort]*pendingEntry),
		deliver: func(Response) {},
	}

	addr := netip.MustParseAddrPort("1.2.3.4:7778")
	c.pending[addr] = &pendingEntry{
		sourceIndex: 7,
		addr:        addr,
		buildID:     12345,
		shouldRetry: true,
		sentAt:      time.Now().Add(-11 * time.Second),
	}
	c.pendingOrder = []netip.AddrPort{addr}

	c.sweepPending()

	if len(c.normal) != 1 {
		t.Fatalf("expected retried request to be re-enqueued, got %d", len(c.normal))
	}
	retried := c.normal[0]
	if retried.BuildID != 12345 {
		t.Errorf("retried request BuildID = %d, want 12345", retried.BuildID)
	}
	if retried.SourceIndex != 7 || retried.Addr != addr {
		t.Errorf("retried request = %+v, want source 7 addr %v", retried, addr)
	}
}

func TestSweepPendingKeepsFreshEntries(t *testing.T) {
	c := &Client{
		pending: make(map[netip.AddrPort]*pendingEntry),
		deliver: func(Response) {},
	}

	addr := netip.MustParseAddrPort("1.2.3.4:7778")
	c.pending[addr] = &pendingEntry{sourceIndex: 1, addr: addr, sentAt: time.Now()}
	c.pendingOrder = []netip.AddrPort{addr}

	c.sweepPending()

	if len(c.pending) != 1 {
		t.Errorf("expected fresh entry to survive sweep, got %d remaining", len(c.pending))
	}
}

func TestResponsePlayersClampedNonNegative(t *testing.T) {
	// Mirrors the wire decode in handleResponse: players is clamped to >= 0.
	players := int32(-5)
	if players < 0 {
		players = 0
	}
	if players != 0 {
		t.Errorf("players = %d, want 0", players)
	}
}
