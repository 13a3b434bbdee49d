package bft

import (
	"sync"

	"github.com/order-fair/hotstuff/lib"
	"github.com/order-fair/hotstuff/lib/crypto"
)

// Core is a single replica's consensus state machine: the three-chain commit rule over a DAG
// of blocks, QC formation, and the async wait-points callers block on. The fairness layer
// (fairness.go) is built directly on top of Core's store and callbacks, not layered externally.
// The spec models a single-threaded event loop with no internal locking; this implementation
// adds a mutex around state access so a single Core can be driven from more than one goroutine,
// but every public entry point still runs its state transition as one atomic turn
type Core struct {
	mu sync.Mutex

	cfg   *ReplicaConfig
	self  uint64
	priv  crypto.PrivateKeyI
	cb    Callbacks
	log   lib.LoggerI
	store *EntityStore

	hqc     QuorumCertI // highest QC observed over any block
	hqcRef  *Block
	bLock   *Block // highest block justified by a 2-chain, never rolled back
	bExec   *Block // highest committed block, the exec frontier
	vheight uint64 // height of the last block this replica voted for

	waitQCFinish        map[string]*Future
	waitProposal        *Future
	waitReceiveProposal map[string]*Future
	waitHQCUpdate       *Future

	blockStore BlockStoreI // optional durable backing for committed blocks, nil unless SetBlockStore is called
}

// SetBlockStore() wires a durable BlockStoreI into commit(); without one, commits only live in
// the in-memory entity store for the lifetime of the process
func (c *Core) SetBlockStore(bs BlockStoreI) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockStore = bs
}

// NewCore() constructs an uninitialized Core; OnInit() must be called before use
func NewCore(self uint64, priv crypto.PrivateKeyI, cfg *ReplicaConfig, cb Callbacks, log lib.LoggerI) *Core {
	return &Core{
		cfg:                 cfg,
		self:                self,
		priv:                priv,
		cb:                  cb,
		log:                 log,
		store:               NewEntityStore(),
		waitQCFinish:        make(map[string]*Future),
		waitReceiveProposal: make(map[string]*Future),
		waitProposal:        NewFuture(),
		waitHQCUpdate:       NewFuture(),
	}
}

// OnInit() freezes the committee roster and installs the genesis block as hqc, b_lock, and b_exec
func (c *Core) OnInit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Freeze()
	genesis := NewGenesisBlock(c.cfg)
	genesis = c.store.AddBlock(genesis)
	c.store.AddTail(genesis)
	c.vheight = GenesisHeight
	c.hqc = genesis.QC
	c.hqcRef = genesis
	c.bLock = genesis
	c.bExec = genesis
}

// OnDeliverBlock() admits b into the DAG once its parent chain is resolvable, resolves its
// QCRef, updates hqc, and walks the three-chain commit rule
func (c *Core) OnDeliverBlock(b *Block) lib.ErrorI {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.deliverBlock(b)
	return err
}

// deliverBlock() is the lock-held body of block delivery, returning the canonical stored
// reference. Re-delivery of an already-delivered hash is a recoverable no-op per the error
// handling design, not a fatal condition
func (c *Core) deliverBlock(b *Block) (*Block, lib.ErrorI) {
	if b == nil {
		return nil, lib.ErrNilBlock()
	}
	if canon := c.store.FindBlock(b.Hash()); canon != nil && canon.Delivered {
		c.log.Debugf("block %s already delivered", b.Hash())
		return canon, nil
	}
	if b.IsGenesis() {
		return nil, lib.ErrGenesisHasParent()
	}
	parents := make([]*Block, 0, len(b.ParentHashes))
	for _, ph := range b.ParentHashes {
		p := c.store.FindBlock(ph)
		if p == nil || !p.Delivered {
			return nil, lib.ErrParentNotDelivered(ph)
		}
		parents = append(parents, p)
	}
	b.parents = parents
	b.Height = parents[0].Height + 1
	if b.QC != nil {
		qcRef := c.store.FindBlock(b.QC.ObjHash())
		if qcRef == nil {
			return nil, lib.ErrQCRefNotFound(b.QC.ObjHash())
		}
		b.QCRef = qcRef
	}
	b.Delivered = true
	canon := c.store.AddBlock(b)
	for _, p := range parents {
		c.store.RemoveTail(p)
	}
	c.store.AddTail(canon)
	c.updateHQC(canon)
	if err := c.update(canon); err != nil {
		return nil, err
	}
	c.resolveReceiveProposalWait(canon)
	return canon, nil
}

// updateHQC() installs (b.QCRef, b.QC) as the new hqc whenever b.QCRef references a strictly
// higher block than the current one, and fires the hqc-update wait-point
func (c *Core) updateHQC(b *Block) {
	if b.QC == nil || b.QCRef == nil {
		return
	}
	if c.hqcRef == nil || b.QCRef.Height > c.hqcRef.Height {
		c.hqc = b.QC
		c.hqcRef = b.QCRef
		c.waitHQCUpdate.Resolve()
		c.waitHQCUpdate = NewFuture()
	}
}

// update() walks the three-chain rooted at b's QC reference: blk2 = b.QCRef, blk1 = blk2.QCRef,
// blk = blk1.QCRef. blk1 becomes the new b_lock once justified by blk2's QC; blk's prefix commits
// and becomes the new b_exec once justified by the full three-chain b -> blk2 -> blk1 -> blk
func (c *Core) update(b *Block) lib.ErrorI {
	if leader := c.leaderOf(b); len(b.Orders[leader]) > 0 {
		for _, h := range b.Orders[leader] {
			c.store.ClearSeenAtProposeLevel(h)
		}
	}
	blk2 := b.QCRef
	if blk2 == nil {
		return nil
	}
	blk1 := blk2.QCRef
	if blk1 == nil {
		return nil
	}
	// hqc was already installed as (b.QCRef, b.QC) above via updateHQC
	if blk1.Height > c.bLock.Height {
		c.bLock = blk1
	}
	blk := blk1.QCRef
	if blk == nil {
		return nil
	}
	// a direct, unbroken three-chain: blk2 parented by blk1, blk1 parented by blk
	if blk2.PrimaryParent() != blk1 || blk1.PrimaryParent() != blk {
		return nil
	}
	return c.commit(blk)
}

// leaderOf() returns the proposer id for b, derived from its height under round-robin rotation
func (c *Core) leaderOf(b *Block) uint64 {
	if c.cfg.N == 0 {
		return 0
	}
	return b.Height % uint64(c.cfg.N)
}

// commit() walks from blk back to b_exec along primary parents, failing fatally if the walk
// does not land exactly on b_exec, then executes the queue oldest-first: computes
// fair_finalize(B), halting the pass (without marking B decided) if it is empty while B.orders
// is non-empty, otherwise emitting DoConsensus/DoDecide and advancing b_exec
func (c *Core) commit(blk *Block) lib.ErrorI {
	if blk.Decision == Committed {
		return nil
	}
	var path []*Block
	cur := blk
	for cur != nil && cur != c.bExec {
		path = append(path, cur)
		cur = cur.PrimaryParent()
	}
	if cur != c.bExec {
		return lib.ErrSafetyBreached()
	}
	for i := len(path) - 1; i >= 0; i-- {
		b := path[i]
		order := FairFinalize(b, c.cfg.Gamma)
		if len(order) == 0 && len(b.Orders) > 0 {
			break
		}
		b.Decision = Committed
		if c.blockStore != nil {
			if err := c.blockStore.Put(b.Height, c.cfg, b); err != nil {
				c.log.Errorf("persist committed block at height %d failed: %s", b.Height, err.Error())
			}
		}
		c.bExec = b
		c.cb.DoConsensus(b)
		c.emitFinalityOrder(b, order)
	}
	return nil
}

// emitFinalityOrder() issues one Finality record per command in the fair-finalized order,
// releasing each command from the execute-level seen set and the proposed-commands cache
func (c *Core) emitFinalityOrder(blk *Block, order []lib.HexBytes) {
	for idx, h := range order {
		c.store.ClearSeenAtExecuteLevel(h)
		c.store.RemoveFromProposedCmdsCache(h)
		c.cb.DoDecide(Finality{
			ReplicaID: c.self,
			Decision:  FinalityCommit,
			CmdIdx:    uint32(idx),
			CmdHeight: blk.Height,
			CmdHash:   h,
			BlkHash:   blk.Hash(),
		})
	}
}

// OnPropose() is invoked when this replica is the leader: it builds a block extending hqc from
// the given parent hashes (parents[0] is primary) and the fairness layer's merged orders,
// self-delivers it, votes on it as if received, and broadcasts it to the rest of the committee
func (c *Core) OnPropose(parentHashes []lib.HexBytes, orders map[uint64][]lib.HexBytes, extra []byte) (*Proposal, lib.ErrorI) {
	if len(parentHashes) == 0 {
		return nil, lib.ErrInvalidArgument()
	}
	c.mu.Lock()
	qcCopy := c.hqc.Clone()
	b := NewBlock(parentHashes, qcCopy, orders, extra)
	// set the height before deliverBlock first hashes b, so the cached hash covers the real height
	if p0 := c.store.FindBlock(parentHashes[0]); p0 != nil {
		b.Height = p0.Height + 1
	}
	for _, cmds := range orders {
		for _, h := range cmds {
			c.store.MarkCmdProposed(h)
		}
	}
	canon, err := c.deliverBlock(b)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if canon.Height <= c.vheight {
		c.mu.Unlock()
		return nil, lib.ErrInvalidHeight(canon.Height, c.vheight+1)
	}
	p := &Proposal{Proposer: c.self, Block: canon}
	c.waitProposal.Resolve()
	c.waitProposal = NewFuture()
	voteLeader, vote := c.prepareVote(canon, c.self)
	c.mu.Unlock()

	c.cb.DoBroadcastProposal(p)
	if vote != nil {
		c.cb.DoVote(voteLeader, vote)
	}
	return p, nil
}

// OnReceiveProposal() delivers a received proposal (no-op if already self-delivered), then
// votes for it if safety/liveness permits, sending the resulting partial certificate to the
// next leader
func (c *Core) OnReceiveProposal(p *Proposal) lib.ErrorI {
	if p == nil || p.Block == nil {
		return lib.ErrNilBlock()
	}
	c.mu.Lock()
	canon, err := c.deliverBlock(p.Block)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if p.Proposer != c.self && canon.QCRef != nil {
		c.resolveQCFinish(canon.QCRef)
	}
	voteLeader, vote := c.prepareVote(canon, p.Proposer)
	c.mu.Unlock()

	if vote != nil {
		c.cb.DoVote(voteLeader, vote)
	}
	return nil
}

// prepareVote() decides whether to vote for b and, if so, advances vheight and signs a partial
// certificate. Must be called with c.mu held; the returned vote is sent by the caller after
// releasing the lock
func (c *Core) prepareVote(b *Block, proposer uint64) (nextLeader uint64, vote *Vote) {
	if b.Height <= c.vheight || !c.safeToVote(b) {
		return 0, nil
	}
	cert, err := CreatePartCert(c.priv, b.Hash())
	if err != nil {
		c.log.Warnf("failed to sign vote for block %s: %s", b.Hash(), err.Error())
		return 0, nil
	}
	c.vheight = b.Height
	nextLeader = (proposer + 1) % uint64(c.cfg.N)
	return nextLeader, &Vote{Voter: c.self, BlkHash: b.Hash(), Cert: cert}
}

// safeToVote() accepts b if it extends b_lock on the primary-parent chain (the safety clause),
// or if b's own justification (QCRef) is at a height higher than b_lock (the liveness clause)
func (c *Core) safeToVote(b *Block) bool {
	if b.QCRef != nil && b.QCRef.Height > c.bLock.Height {
		return true
	}
	for cur := b; cur != nil && cur.Height >= c.bLock.Height; cur = cur.PrimaryParent() {
		if cur == c.bLock {
			return true
		}
	}
	return false
}

// OnReceiveVote() accumulates v into the self-QC under construction for its target block; once
// NMajority distinct votes are present, computes the QC and fires the qc-finish wait-point
func (c *Core) OnReceiveVote(v *Vote) lib.ErrorI {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.store.FindBlock(v.BlkHash)
	if b == nil || !b.Delivered {
		return lib.ErrBlockNotFound(v.BlkHash)
	}
	if len(b.Voted) >= c.cfg.NMajority() {
		c.log.Debugf("vote from replica %d for block %s ignored, quorum already formed", v.Voter, v.BlkHash)
		return nil
	}
	if b.Voted[v.Voter] {
		c.log.Debugf("duplicate vote from replica %d for block %s", v.Voter, v.BlkHash)
		return nil
	}
	if int(v.Voter) >= c.cfg.N {
		return lib.ErrUnknownReplica(uint8(v.Voter))
	}
	if b.SelfQC == nil {
		qc, err := CreateQuorumCert(c.cfg, v.BlkHash)
		if err != nil {
			return err
		}
		b.SelfQC = qc
	}
	if err := b.SelfQC.AddPart(v.Cert, int(v.Voter)); err != nil {
		return lib.ErrInvalidPartialCert()
	}
	b.Voted[v.Voter] = true
	if len(b.Voted) == c.cfg.NMajority() {
		if err := b.SelfQC.Compute(); err != nil {
			return lib.ErrInvalidQuorumCert()
		}
		if c.hqcRef == nil || b.Height > c.hqcRef.Height {
			c.hqc = b.SelfQC
			c.hqcRef = b
			c.waitHQCUpdate.Resolve()
			c.waitHQCUpdate = NewFuture()
		}
		c.resolveQCFinish(b)
	}
	return nil
}

// resolveQCFinish() fires and clears the qc-finish wait-point registered for b's hash
func (c *Core) resolveQCFinish(b *Block) {
	key := b.Hash().String()
	if f, ok := c.waitQCFinish[key]; ok {
		f.Resolve()
		delete(c.waitQCFinish, key)
	}
}

// resolveReceiveProposalWait() fires and clears the receive-proposal wait-point registered for b's hash
func (c *Core) resolveReceiveProposalWait(b *Block) {
	key := b.Hash().String()
	if f, ok := c.waitReceiveProposal[key]; ok {
		f.Resolve()
		delete(c.waitReceiveProposal, key)
	}
}

// AsyncQCFinish() returns a future that resolves once blkHash's self-QC reaches quorum
func (c *Core) AsyncQCFinish(blkHash lib.HexBytes) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b := c.store.FindBlock(blkHash); b != nil && len(b.Voted) >= c.cfg.NMajority() {
		f := NewFuture()
		f.Resolve()
		return f.Done()
	}
	key := blkHash.String()
	f, ok := c.waitQCFinish[key]
	if !ok {
		f = NewFuture()
		c.waitQCFinish[key] = f
	}
	return f.Done()
}

// AsyncWaitProposal() returns a future that resolves the next time this replica proposes
func (c *Core) AsyncWaitProposal() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitProposal.Done()
}

// AsyncWaitReceiveProposal() returns a future that resolves once blkHash has been delivered
func (c *Core) AsyncWaitReceiveProposal(blkHash lib.HexBytes) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing := c.store.FindBlock(blkHash); existing != nil && existing.Delivered {
		f := NewFuture()
		f.Resolve()
		return f.Done()
	}
	key := blkHash.String()
	f, ok := c.waitReceiveProposal[key]
	if !ok {
		f = NewFuture()
		c.waitReceiveProposal[key] = f
	}
	return f.Done()
}

// AsyncHQCUpdate() returns a future that resolves the next time hqc advances
func (c *Core) AsyncHQCUpdate() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitHQCUpdate.Done()
}

// Prune() releases every reachable block strictly below b_exec's height minus the staleness
// window, anchoring the walk at b_exec and never touching b_lock, b_exec, or hqc_ref
func (c *Core) Prune(stalenessWindow uint64) lib.ErrorI {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bExec.Height < stalenessWindow {
		return nil
	}
	floor := c.bExec.Height - stalenessWindow
	for _, b := range c.allBlocks() {
		if b.Height < floor && b != c.bLock && b != c.bExec && b != c.hqcRef {
			c.store.TryReleaseBlock(b)
		}
	}
	return nil
}

// allBlocks() is a snapshot helper over the store's reachable block set, used only by Prune
func (c *Core) allBlocks() []*Block {
	seen := make(map[string]*Block)
	for _, t := range c.store.Tails() {
		for cur := t; cur != nil; cur = cur.PrimaryParent() {
			key := cur.Hash().String()
			if _, ok := seen[key]; ok {
				break
			}
			seen[key] = cur
		}
	}
	out := make([]*Block, 0, len(seen))
	for _, b := range seen {
		out = append(out, b)
	}
	return out
}

// BExec() returns the current execution frontier
func (c *Core) BExec() *Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bExec
}

// HQC() returns the current highest quorum certificate and the block it references
func (c *Core) HQC() (QuorumCertI, *Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hqc, c.hqcRef
}

// Store() exposes the entity store to the fairness layer, which shares Core's store for its
// own local-order queue bookkeeping
func (c *Core) Store() *EntityStore { return c.store }

// Config() returns the frozen committee configuration
func (c *Core) Config() *ReplicaConfig { return c.cfg }

// Self() returns this replica's own id
func (c *Core) Self() uint64 { return c.self }
