// Package conversation implements the client-side state of one direct
// message conversation: the polled message window, the composer for
// outgoing messages, and the view operations (day grouping, search,
// delete, reply, forward).
package conversation

import (
	"sort"
	"sync"

	"horizon/internal/models"
)

// Conversation holds the polled message window for the active peer.
// All state is guarded by mux; readers get the held slice as-is and
// must not mutate it.
type Conversation struct {
	mux sync.RWMutex

	peer     models.User
	messages []models.Message
	blocked  models.BlockRelation

	// Fence for overlapping fetches: a response is discarded when its
	// sequence is at or below the highest already applied, or when it
	// was issued for an earlier peer generation.
	gen        int64
	issuedSeq  int64
	appliedSeq int64
}

func New(peer models.User) *Conversation {
	return &Conversation{peer: peer, appliedSeq: -1}
}

func (c *Conversation) Peer() models.User {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.peer
}

// Messages returns the currently held window, oldest first.
func (c *Conversation) Messages() []models.Message {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.messages
}

// SetPeer switches the conversation to another peer, dropping the held
// window, the block relation and the fetch fence. The generation bump
// invalidates any fetch still in flight for the previous peer.
func (c *Conversation) SetPeer(peer models.User) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.peer = peer
	c.messages = nil
	c.blocked = models.BlockRelation{}
	c.gen++
	c.issuedSeq = 0
	c.appliedSeq = -1
}

func (c *Conversation) BlockRelation() models.BlockRelation {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.blocked
}

func (c *Conversation) SetBlockedByMe(blocked bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.blocked.BlockedByMe = blocked
}

func (c *Conversation) SetBlockedMe(blocked bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.blocked.BlockedMe = blocked
}

// nextSeq reserves a sequence number for a fetch about to be issued,
// tagged with the peer generation it was issued for.
func (c *Conversation) nextSeq() (gen, seq int64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.issuedSeq++
	return c.gen, c.issuedSeq
}

// apply installs a fetched message list. A response issued for an
// earlier peer generation belongs to a conversation that is no longer
// open and is dropped outright; within the current generation, stale
// responses (sequence at or below the last applied one) are discarded.
// An up-to-date response still keeps the held slice when the replace
// heuristic says the lists are equivalent: same length and, when both
// are non-empty, the same last message ID.
func (c *Conversation) apply(gen, seq int64, fetched []models.Message) bool {
	fetched = normalize(fetched)

	c.mux.Lock()
	defer c.mux.Unlock()

	if gen != c.gen {
		return false
	}
	if seq <= c.appliedSeq {
		return false
	}
	c.appliedSeq = seq

	if !shouldReplace(c.messages, fetched) {
		return false
	}
	c.messages = fetched
	return true
}

// normalize enforces the window invariants regardless of what the
// backend returned: ascending timestamp order, one entry per ID.
func normalize(messages []models.Message) []models.Message {
	if len(messages) < 2 {
		return messages
	}
	out := make([]models.Message, 0, len(messages))
	seen := make(map[string]bool, len(messages))
	for _, m := range messages {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// removeLocal drops a message from the held window by ID. Used after
// the backend confirmed a deletion.
func (c *Conversation) removeLocal(messageID string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	for i, m := range c.messages {
		if m.ID == messageID {
			c.messages = append(c.messages[:i:i], c.messages[i+1:]...)
			return
		}
	}
}

func shouldReplace(held, fetched []models.Message) bool {
	if len(held) != len(fetched) {
		return true
	}
	if len(held) == 0 {
		return false
	}
	return held[len(held)-1].ID != fetched[len(fetched)-1].ID
}
