package bft

import (
	"math"
	"sort"

	"github.com/order-fair/hotstuff/lib"
)

// OnLocalOrder() is called by the pacemaker with this replica's own observed command order
// (is_reorder distinguishes a pacemaker-driven retry from the normal path, though both follow
// the same logic here: record the commands as seen, then send them to the leader unless empty)
func (c *Core) OnLocalOrder(leaderID uint64, order []lib.HexBytes, isReorder bool) {
	c.mu.Lock()
	c.store.UpdateLocalOrderSeen(order)
	if len(order) == 0 {
		c.mu.Unlock()
		return
	}
	m := &LocalOrder{Initiator: c.self, OrderedHashes: order}
	c.mu.Unlock()
	c.cb.DoSendLocalOrder(leaderID, m)
}

// Reorder() is the pacemaker-triggered retry: it re-invokes OnLocalOrder with an empty order
// under the is_reorder flag, which records nothing and sends nothing to the leader; commands
// already seen but not yet proposed are not re-sent
func (c *Core) Reorder(leaderID uint64) {
	c.OnLocalOrder(leaderID, nil, true)
}

// OnReceiveLocalOrder() is the leader-side intake of a contributor's LocalOrder: queues it,
// filters every contributor's front entry against the proposed-commands set to drop commands
// already included in a prior proposal, and reports whether enough contributors now have a
// non-empty queue to attempt a fair proposal
func (c *Core) OnReceiveLocalOrder(m *LocalOrder) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.AddLocalOrder(m.Initiator, m.OrderedHashes)
	for _, r := range c.store.OrderedReplicaVector() {
		front := c.store.FrontOrderedHashes(r)
		var unproposed []lib.HexBytes
		for _, h := range front {
			if !c.store.IsCmdProposed(h) {
				unproposed = append(unproposed, h)
			}
		}
		if len(unproposed) < len(front) {
			c.store.ClearFrontOrderedHash(r)
			if len(unproposed) > 0 {
				c.store.AddOrderedHashToFront(r, unproposed)
			}
		}
	}
	return len(c.store.OrderedReplicaVector()) >= c.cfg.NMajority()
}

// FairPropose() merges every contributor's front queue into a uniform command set: the first
// contributor's order is the union base, every later contributor's unseen commands are appended
// to it in encounter order, then every contributor's order is back-filled with whatever the
// union base picked up that it was missing, preserving each contributor's own first-observed
// relative order for commands it already saw. Consumes the fronts it merges. Empty input yields
// an empty map
func (c *Core) FairPropose() map[uint64][]lib.HexBytes {
	c.mu.Lock()
	defer c.mu.Unlock()
	R := c.store.OrderedReplicaVector()
	if len(R) == 0 {
		return map[uint64][]lib.HexBytes{}
	}
	orders := make(map[uint64][]lib.HexBytes, len(R))
	for _, r := range R {
		orders[r] = append([]lib.HexBytes{}, c.store.FrontOrderedHashes(r)...)
	}
	first := R[0]
	seen := make(map[string]bool, len(orders[first]))
	for _, h := range orders[first] {
		seen[h.String()] = true
	}
	for _, r := range R[1:] {
		for _, h := range orders[r] {
			if key := h.String(); !seen[key] {
				orders[first] = append(orders[first], h)
				seen[key] = true
			}
		}
	}
	union := orders[first]
	for _, r := range R[1:] {
		have := make(map[string]bool, len(orders[r]))
		for _, h := range orders[r] {
			have[h.String()] = true
		}
		for _, h := range union {
			if key := h.String(); !have[key] {
				orders[r] = append(orders[r], h)
				have[key] = true
			}
		}
	}
	for _, r := range R {
		c.store.ClearFrontOrderedHash(r)
	}
	return orders
}

// FairFinalize() computes the deterministic per-block commit order from B's merged orders: a
// weighted-position score per command, then a dominance-refinement re-sort over pairwise
// precedence counts with a lexicographic tiebreak. Pure function of (B.orders, gamma); returns
// nil if B carries no contributors
func FairFinalize(b *Block, gamma float64) []lib.HexBytes {
	if len(b.Orders) == 0 {
		return nil
	}
	weight := make(map[string]float64)
	hashOf := make(map[string]lib.HexBytes)
	for _, ordering := range b.Orders {
		for rank, h := range ordering {
			key := h.String()
			hashOf[key] = h
			weight[key] += 1 - math.Pow(gamma, float64(rank+1))
		}
	}
	keys := make([]string, 0, len(hashOf))
	for k := range hashOf {
		keys = append(keys, k)
	}
	// canonical starting order, independent of map iteration, so every downstream sort is
	// reproducible given the same inputs
	sort.Strings(keys)
	sort.SliceStable(keys, func(i, j int) bool {
		wi, wj := weight[keys[i]], weight[keys[j]]
		if wi != wj {
			return wi < wj
		}
		return keys[i] < keys[j]
	})
	count := make(map[string]map[string]int)
	for _, ordering := range b.Orders {
		for i := 0; i < len(ordering); i++ {
			for j := i + 1; j < len(ordering); j++ {
				a, bb := ordering[i].String(), ordering[j].String()
				if count[a] == nil {
					count[a] = make(map[string]int)
				}
				count[a][bb]++
			}
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, bb := keys[i], keys[j]
		cab, cba := count[a][bb], count[bb][a]
		if cab != cba {
			return cab > cba
		}
		return a < bb
	})
	out := make([]lib.HexBytes, len(keys))
	for i, k := range keys {
		out[i] = hashOf[k]
	}
	return out
}
