package bft

import "github.com/order-fair/hotstuff/lib"

// EntityStore is the sole owner of all live blocks plus the leader-side local-order queues,
// the proposed-commands cache, and the propose/execute level seen-sets. Every other component
// holds shared, non-owning references resolved through the store by hash
type EntityStore struct {
	blocks map[string]*Block

	// leader-side per-replica queue of unconsumed local orderings (FIFO of full orderings)
	localOrders map[uint64][][]lib.HexBytes

	proposedCmds map[string]bool
	seenPropose  map[string]bool
	seenExecute  map[string]bool

	tails map[string]*Block // delivered blocks with no delivered child yet
}

// NewEntityStore() creates an empty store
func NewEntityStore() *EntityStore {
	return &EntityStore{
		blocks:       make(map[string]*Block),
		localOrders:  make(map[uint64][][]lib.HexBytes),
		proposedCmds: make(map[string]bool),
		seenPropose:  make(map[string]bool),
		seenExecute:  make(map[string]bool),
		tails:        make(map[string]*Block),
	}
}

// AddBlock() deduplicates B by hash; if an equal block already exists, the canonical existing
// reference is returned instead of B
func (s *EntityStore) AddBlock(b *Block) *Block {
	key := b.Hash().String()
	if existing, ok := s.blocks[key]; ok {
		return existing
	}
	s.blocks[key] = b
	return b
}

// FindBlock() looks up a block by hash, returning nil if unknown
func (s *EntityStore) FindBlock(hash lib.HexBytes) *Block {
	return s.blocks[hash.String()]
}

// TryReleaseBlock() drops B from the store if no tail or parent-edge still references it.
// The check is shallow: a block is releasable once it is not a tail and not a direct parent of
// any tail; deeper ancestors are not searched. Pruning is the primary release path, this is
// invoked opportunistically after pruning frees an edge
func (s *EntityStore) TryReleaseBlock(b *Block) {
	key := b.Hash().String()
	if _, isTail := s.tails[key]; isTail {
		return
	}
	for _, t := range s.tails {
		for _, p := range t.parents {
			if p == b {
				return
			}
		}
	}
	delete(s.blocks, key)
}

// UpdateLocalOrderSeen() records commands observed by this replica for its own pending local order
func (s *EntityStore) UpdateLocalOrderSeen(cmds []lib.HexBytes) {
	for _, c := range cmds {
		s.seenPropose[c.String()] = true
	}
}

// AddLocalOrder() appends a contributor's ordering to its queue (leader-side)
func (s *EntityStore) AddLocalOrder(replicaID uint64, hashes []lib.HexBytes) {
	s.localOrders[replicaID] = append(s.localOrders[replicaID], hashes)
}

// OrderedReplicaVector() enumerates contributors with a non-empty queue in ascending replica_id order
func (s *EntityStore) OrderedReplicaVector() []uint64 {
	var ids []uint64
	for id, q := range s.localOrders {
		if len(q) > 0 && len(q[0]) > 0 {
			ids = append(ids, id)
		}
	}
	sortUint64(ids)
	return ids
}

// FrontOrderedHashes() returns the current front ordering queued for replica r, or nil
func (s *EntityStore) FrontOrderedHashes(r uint64) []lib.HexBytes {
	q := s.localOrders[r]
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

// ClearFrontOrderedHash() consumes the front ordering queued for replica r
func (s *EntityStore) ClearFrontOrderedHash(r uint64) {
	q := s.localOrders[r]
	if len(q) == 0 {
		return
	}
	s.localOrders[r] = q[1:]
}

// AddOrderedHashToFront() re-queues xs at the front of replica r's queue, used to restore
// unproposed items filtered out of a prior front
func (s *EntityStore) AddOrderedHashToFront(r uint64, xs []lib.HexBytes) {
	if len(xs) == 0 {
		return
	}
	s.localOrders[r] = append([][]lib.HexBytes{xs}, s.localOrders[r]...)
}

// IsCmdProposed() reports whether h has appeared in any non-committed proposal's orders payload
func (s *EntityStore) IsCmdProposed(h lib.HexBytes) bool { return s.proposedCmds[h.String()] }

// MarkCmdProposed() records that h has now appeared in a proposal's orders payload
func (s *EntityStore) MarkCmdProposed(h lib.HexBytes) { s.proposedCmds[h.String()] = true }

// RemoveFromProposedCmdsCache() clears h once its owning block has committed
func (s *EntityStore) RemoveFromProposedCmdsCache(h lib.HexBytes) { delete(s.proposedCmds, h.String()) }

// SeenAtProposeLevel() reports whether h is in the propose-level seen set
func (s *EntityStore) SeenAtProposeLevel(h lib.HexBytes) bool { return s.seenPropose[h.String()] }

// ClearSeenAtProposeLevel() removes h from the propose-level seen set
func (s *EntityStore) ClearSeenAtProposeLevel(h lib.HexBytes) { delete(s.seenPropose, h.String()) }

// MarkSeenAtExecuteLevel() records h in the execute-level seen set
func (s *EntityStore) MarkSeenAtExecuteLevel(h lib.HexBytes) { s.seenExecute[h.String()] = true }

// ClearSeenAtExecuteLevel() removes h from the execute-level seen set
func (s *EntityStore) ClearSeenAtExecuteLevel(h lib.HexBytes) { delete(s.seenExecute, h.String()) }

// AddTail() marks b as a delivered block with no delivered child yet
func (s *EntityStore) AddTail(b *Block) { s.tails[b.Hash().String()] = b }

// RemoveTail() removes b from the tail set, e.g. because it gained a delivered child
func (s *EntityStore) RemoveTail(b *Block) { delete(s.tails, b.Hash().String()) }

// Tails() returns the current set of non-parented delivered blocks
func (s *EntityStore) Tails() []*Block {
	out := make([]*Block, 0, len(s.tails))
	for _, t := range s.tails {
		out = append(out, t)
	}
	return out
}

// sortUint64 sorts ascending; small helper kept local since sort.Slice needs a closure anyway
func sortUint64(xs []uint64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
