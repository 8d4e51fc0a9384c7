// Package ping implements the Ping/Query Client (spec.md §4.7, §6.2): the
// UDP echo-style liveness probe, run on a background runtime behind a
// single actor-shaped lock.
//
// Grounded on pkg/a2s/a2s.go's UDP probe (net.DialUDP, deadline-based
// timeouts, manual binary encode/decode of a fixed-size packet) generalized
// from a one-shot request/response into the batched sender/receiver pair
// spec.md §4.7 describes; the 500 req/s cap is enforced with
// golang.org/x/time/rate, matching the DOMAIN STACK's rationale for
// choosing it over the teacher's own atomic-counter throttling.
package ping

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrClosed is returned by operations attempted after the client has been
// closed.
var ErrClosed = errors.New("ping: client closed")

const (
	requestSize  = 4
	responseSize = 16
	pendingTTL   = 10 * time.Second

	// RateLimit is the global outbound cap (spec.md §4.7, §5).
	RateLimit = 500
)

// Request is one outbound ping, correlated back to the caller via
// SourceIndex (spec.md §4.7 "a source index: the index into the server
// list").
type Request struct {
	SourceIndex int
	Addr        netip.AddrPort
	BuildID     uint32
}

// Response is a received pong, or a timeout outcome for a request that was
// never answered within the pending window.
type Response struct {
	SourceIndex int
	Players     int32
	AgeSeconds  uint64
	RTT         time.Duration
	Timeout     bool
}

type pendingEntry struct {
	sourceIndex int
	addr        netip.AddrPort
	buildID     uint32
	sentAt      time.Time
	shouldRetry bool
}

// Client is the actor-shaped ping/query client (spec.md §4.7). All mutable
// state lives behind mu; the sender and receiver goroutines are the only
// callers that touch it.
type Client struct {
	log      zerolog.Logger
	conn     *net.UDPConn
	limiter  *rate.Limiter
	deliver  func(Response)
	generation uint64

	mu          sync.Mutex
	priority    []Request
	normal      []Request
	pending     map[netip.AddrPort]*pendingEntry
	pendingOrder []netip.AddrPort

	wake   chan struct{}
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// New opens a UDP socket and starts the sender/receiver goroutines. deliver
// is invoked once per Response from the receiver goroutine; callers
// typically wrap a bus.Sender.Post in deliver (spec.md §4.13).
func New(log zerolog.Logger, deliver func(Response)) (*Client, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}

	c := &Client{
		log:     log.With().Str("component", "ping").Logger(),
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(RateLimit), 1),
		deliver: deliver,
		pending: make(map[netip.AddrPort]*pendingEntry),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	c.wg.Add(2)
	go c.senderLoop()
	go c.receiverLoop()
	return c, nil
}

// Generation returns the current cancellation generation (spec.md §5).
func (c *Client) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Reset bumps the generation counter, discarding all pending correlations so
// late pongs from a prior refresh are recognized as stale (spec.md §5 "A
// refresh of the server directory cancels all in-flight ping correlations by
// bumping a generation counter").
func (c *Client) Reset() {
	c.mu.Lock()
	c.generation++
	c.pending = make(map[netip.AddrPort]*pendingEntry)
	c.pendingOrder = nil
	c.priority = nil
	c.normal = nil
	c.mu.Unlock()
}

// Send enqueues a batch of requests on the normal lane (spec.md §4.7).
func (c *Client) Send(reqs []Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.normal = append(c.normal, reqs...)
	c.poke()
	return nil
}

// PrioritySend enqueues a single request on the priority lane, which the
// sender drains before the normal lane (spec.md §4.7).
func (c *Client) PrioritySend(req Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.priority = append(c.priority, req)
	c.poke()
	return nil
}

func (c *Client) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Close aborts the sender and receiver goroutines (spec.md §4.7
// "Dropping the client aborts both tasks"). Outstanding pending entries are
// dropped silently.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

func (c *Client) senderLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		case <-time.After(100 * time.Millisecond):
		}
		c.drainSendQueue()
	}
}

func (c *Client) drainSendQueue() {
	for {
		req, ok := c.popNext()
		if !ok {
			return
		}
		if err := c.limiter.Wait(contextUntilDone(c.done)); err != nil {
			return
		}
		c.transmit(req)
	}
}

func (c *Client) popNext() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.priority) > 0 {
		req := c.priority[0]
		c.priority = c.priority[1:]
		if c.markOrDedup(req) {
			return req, true
		}
	}
	for len(c.normal) > 0 {
		req := c.normal[0]
		c.normal = c.normal[1:]
		if c.markOrDedup(req) {
			return req, true
		}
	}
	return Request{}, false
}

// markOrDedup records a pending entry for req.Addr, or (if one already
// exists) marks it for retry and reports that req should be dropped
// (spec.md §4.7 "If an entry for that address already exists when popping a
// request, the existing entry's should_retry flag is set to true and the
// new request is dropped").
func (c *Client) markOrDedup(req Request) bool {
	if existing, ok := c.pending[req.Addr]; ok {
		existing.shouldRetry = true
		return false
	}
	c.pending[req.Addr] = &pendingEntry{
		sourceIndex: req.SourceIndex,
		addr:        req.Addr,
		buildID:     req.BuildID,
		sentAt:      time.Now(),
	}
	c.pendingOrder = append(c.pendingOrder, req.Addr)
	return true
}

func (c *Client) transmit(req Request) {
	buf := make([]byte, requestSize)
	binary.BigEndian.PutUint32(buf, req.BuildID)
	if _, err := c.conn.WriteToUDPAddrPort(buf, req.Addr); err != nil {
		c.log.Debug().Err(err).Stringer("addr", req.Addr).Msg("ping send failed")
	}
}

func (c *Client) receiverLoop() {
	defer c.wg.Done()

	buf := make([]byte, 1500)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(pendingTTL))
		n, from, err := c.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			c.sweepPending()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		if n != responseSize {
			continue
		}
		c.handleResponse(buf[:n], from)
		c.sweepPending()
	}
}

func (c *Client) handleResponse(data []byte, from netip.AddrPort) {
	c.mu.Lock()
	entry, ok := c.pending[from]
	if ok {
		delete(c.pending, from)
		c.removeFromOrder(from)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	players := int32(binary.LittleEndian.Uint32(data[0:4]))
	if players < 0 {
		players = 0
	}
	age := binary.LittleEndian.Uint64(data[8:16])

	c.deliver(Response{
		SourceIndex: entry.sourceIndex,
		Players:     players,
		AgeSeconds:  age,
		RTT:         time.Since(entry.sentAt),
	})
}

func (c *Client) removeFromOrder(addr netip.AddrPort) {
	for i, a := range c.pendingOrder {
		if a == addr {
			c.pendingOrder = append(c.pendingOrder[:i], c.pendingOrder[i+1:]...)
			return
		}
	}
}

// sweepPending walks pending entries in insertion order, evicting any older
// than the 10-second cutoff, re-enqueuing those flagged should_retry
// (spec.md §4.7).
func (c *Client) sweepPending() {
	cutoff := time.Now().Add(-pendingTTL)

	c.mu.Lock()
	var expired []*pendingEntry
	var keep []netip.AddrPort
	for _, addr := range c.pendingOrder {
		entry := c.pending[addr]
		if entry == nil {
			continue
		}
		if entry.sentAt.Before(cutoff) {
			expired = append(expired, entry)
			delete(c.pending, addr)
		} else {
			keep = append(keep, addr)
		}
	}
	c.pendingOrder = keep
	c.mu.Unlock()

	for _, entry := range expired {
		c.deliver(Response{SourceIndex: entry.sourceIndex, Timeout: true})
		if entry.shouldRetry {
			c.Send([]Request{{SourceIndex: entry.sourceIndex, Addr: entry.addr, BuildID: entry.buildID}})
		}
	}
}

func contextUntilDone(done chan struct{}) contextWithDone {
	return contextWithDone{done: done}
}

// contextWithDone is a minimal context.Context backed by an existing done
// channel, avoiding a context.WithCancel goroutine per send cycle.
type contextWithDone struct {
	done chan struct{}
}

func (c contextWithDone) Deadline() (time.Time, bool) { return time.Time{}, false }
func (c contextWithDone) Done() <-chan struct{}        { return c.done }
func (c contextWithDone) Err() error {
	select {
	case <-c.done:
		return context.Canceled
	default:
		return nil
	}
}
func (c contextWithDone) Value(key interface{}) interface{} { return nil }
