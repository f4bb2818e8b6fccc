// Package packet implements ordered store of demultiplexed subtitle packets.
package packet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
)

const (
	// NoPTS marks packet without presentation timestamp.
	NoPTS int64 = math.MinInt64
	// NoDuration marks packet with unknown duration.
	NoDuration int64 = -1
)

var (
	ErrInsertAfterFinalize = errors.New("insert after finalize")
	ErrAlreadyFinalized    = errors.New("queue already finalized")
	ErrNotFinalized        = errors.New("read before finalize")
	ErrSeekBeforeFinalize  = errors.New("seek before finalize")
	ErrResourceExhausted   = errors.New("resource exhausted")
)

// Packet is a single demultiplexed unit.
type Packet struct {
	Pos      int64 // byte position in source stream
	PTS      int64
	Duration int64
	Data     []byte
	Seq      int // insertion sequence number
}

// HasPTS reports if packet timestamp is known.
func (p Packet) HasPTS() bool {
	return p.PTS != NoPTS
}

// HasDuration reports if packet duration is known.
func (p Packet) HasDuration() bool {
	return p.Duration >= 0
}

func (p Packet) String() string {
	return fmt.Sprintf("packet{seq=%d pos=%d pts=%d dur=%d size=%d}", p.Seq, p.Pos, p.PTS, p.Duration, len(p.Data))
}

// Handle gives read-only access to inserted packet. It stays valid as long as
// owning queue is alive.
type Handle struct {
	p *Packet
}

func (h Handle) Seq() int { return h.p.Seq }
func (h Handle) PTS() int64 { return h.p.PTS }
func (h Handle) Duration() int64 { return h.p.Duration }

// Packet returns a copy of the packet.
func (h Handle) Packet() Packet {
	p := *h.p
	p.Data = bytes.Clone(p.Data)
	return p
}

// Order selects iteration order after finalization.
type Order int

const (
	OrderTimestamp Order = iota
	OrderInsertion
)

// Queue is ordered packet store. Packets are inserted in any order,
// Finalize must be called once before reading or seeking. Not safe for
// concurrent use.
type Queue struct {
	pkts           []*Packet
	next           int
	finalized      bool
	keepDuplicates bool
	order          Order
	maxPackets     int
	seq            int
}

// Option configures Queue.
type Option func(*Queue)

// WithKeepDuplicates controls whether packets with identical timestamp and
// payload are kept (default) or collapsed on finalize.
func WithKeepDuplicates(keep bool) Option {
	return func(q *Queue) {
		q.keepDuplicates = keep
	}
}

// WithOrder selects iteration order (timestamp by default).
func WithOrder(o Order) Option {
	return func(q *Queue) {
		q.order = o
	}
}

// WithMaxPackets limits number of packets queue would accept, 0 - no limit.
func WithMaxPackets(n int) Option {
	return func(q *Queue) {
		q.maxPackets = n
	}
}

// NewQueue creates empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{keepDuplicates: true}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Insert adds packet to the queue. Data is copied.
func (q *Queue) Insert(pos, pts, duration int64, data []byte) (Handle, error) {
	if q.finalized {
		return Handle{}, ErrInsertAfterFinalize
	}
	if q.maxPackets > 0 && len(q.pkts) >= q.maxPackets {
		return Handle{}, fmt.Errorf("more than %d packets: %w", q.maxPackets, ErrResourceExhausted)
	}
	if duration < 0 {
		duration = NoDuration
	}
	p := &Packet{
		Pos:      pos,
		PTS:      pts,
		Duration: duration,
		Data:     bytes.Clone(data),
		Seq:      q.seq,
	}
	q.seq++
	q.pkts = append(q.pkts, p)
	return Handle{p: p}, nil
}

// Finalize sorts queue (stable, ties and absent timestamps keep insertion
// order) and collapses duplicates if requested. Returns number of dropped
// duplicates.
func (q *Queue) Finalize() (int, error) {
	if q.finalized {
		return 0, ErrAlreadyFinalized
	}
	q.finalized = true

	if q.order == OrderTimestamp {
		slices.SortStableFunc(q.pkts, func(a, b *Packet) int {
			switch {
			case a.PTS < b.PTS:
				return -1
			case a.PTS > b.PTS:
				return 1
			}
			return a.Seq - b.Seq
		})
	}

	dropped := 0
	if !q.keepDuplicates {
		dropped = q.dropDuplicates()
	}
	q.next = 0
	return dropped, nil
}

func (q *Queue) dropDuplicates() int {
	type key struct {
		pts  int64
		data string
	}
	seen := make(map[key]struct{}, len(q.pkts))
	kept := q.pkts[:0]
	for _, p := range q.pkts {
		k := key{pts: p.PTS, data: string(p.Data)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, p)
	}
	dropped := len(q.pkts) - len(kept)
	clear(q.pkts[len(kept):])
	q.pkts = kept
	return dropped
}

// Finalized reports if Finalize was called.
func (q *Queue) Finalized() bool {
	return q.finalized
}

// Len returns number of packets in the queue.
func (q *Queue) Len() int {
	return len(q.pkts)
}

// ReadNext returns next packet in finalized order and advances the cursor.
// Returns io.EOF when there are no more packets.
func (q *Queue) ReadNext() (Packet, error) {
	if !q.finalized {
		return Packet{}, ErrNotFinalized
	}
	if q.next >= len(q.pkts) {
		return Packet{}, io.EOF
	}
	p := q.pkts[q.next]
	q.next++
	return *p, nil
}

// Seek positions cursor at the first packet with timestamp >= target. When
// target is past all packets subsequent ReadNext returns io.EOF.
func (q *Queue) Seek(target int64) error {
	if !q.finalized {
		return ErrSeekBeforeFinalize
	}
	if q.order == OrderTimestamp {
		q.next = sort.Search(len(q.pkts), func(i int) bool {
			return q.pkts[i].PTS >= target
		})
		return nil
	}
	// insertion order is not sorted by time, first match wins
	q.next = len(q.pkts)
	for i, p := range q.pkts {
		if p.PTS >= target {
			q.next = i
			break
		}
	}
	return nil
}

// Packets returns copies of all packets in current order.
func (q *Queue) Packets() []Packet {
	out := make([]Packet, 0, len(q.pkts))
	for _, p := range q.pkts {
		out = append(out, *p)
	}
	return out
}
