// Package lobby holds the connected-client hub, the matchmaking queue and
// the inbound message router.
package lobby

import (
	"sync"

	"github.com/samber/lo"

	"github.com/Raspberrynani/ft-solocendence/internal/metrics"
	"github.com/Raspberrynani/ft-solocendence/internal/protocol"
	"github.com/Raspberrynani/ft-solocendence/internal/session"
)

// QueueEntry is one waiting player.
type QueueEntry struct {
	Conn     session.ID
	Nickname string
	Token    string
	Rounds   int
}

// Queue is a FIFO bucketed by requested rounds: a join pairs with the
// oldest waiter requesting the same round count.
type Queue struct {
	mu      sync.Mutex
	entries []QueueEntry
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Join attempts to pair the caller with the oldest waiter in the same
// rounds bucket. On a hit the waiter is removed and returned; otherwise the
// caller is appended. A connection holds at most one entry: re-joining
// replaces the previous entry.
func (q *Queue) Join(entry QueueEntry) (QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(entry.Conn)

	for i, waiting := range q.entries {
		if waiting.Rounds == entry.Rounds {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			metrics.WaitingPlayers.Set(float64(len(q.entries)))
			return waiting, true
		}
	}

	q.entries = append(q.entries, entry)
	metrics.WaitingPlayers.Set(float64(len(q.entries)))
	return QueueEntry{}, false
}

// Leave removes the connection's entry. Returns true if one existed.
func (q *Queue) Leave(id session.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := q.removeLocked(id)
	metrics.WaitingPlayers.Set(float64(len(q.entries)))
	return removed
}

func (q *Queue) removeLocked(id session.ID) bool {
	for i, e := range q.entries {
		if e.Conn == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether the connection is queued.
func (q *Queue) Contains(id session.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.Conn == id {
			return true
		}
	}
	return false
}

// Len returns the number of waiting players.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// WaitingList returns the broadcastable view of the queue.
func (q *Queue) WaitingList() []protocol.WaitingEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return lo.Map(q.entries, func(e QueueEntry, _ int) protocol.WaitingEntry {
		return protocol.WaitingEntry{Nickname: e.Nickname, Rounds: e.Rounds}
	})
}
