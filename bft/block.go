package bft

import (
	"github.com/order-fair/hotstuff/lib"
	"github.com/order-fair/hotstuff/lib/crypto"
)

// Decision tracks whether a block has been committed by this replica
type Decision uint8

const (
	Undecided Decision = iota
	Committed
)

// GenesisHeight is the fixed height of the anchor block every chain starts from
const GenesisHeight = uint64(0)

// Block is a single node in the consensus DAG. It carries its parent links, an optional
// quorum certificate over one of its ancestors, the fairness layer's merged-orders payload,
// and the in-progress quorum certificate being accumulated over itself
type Block struct {
	ParentHashes []lib.HexBytes           // ordered parent references; ParentHashes[0] is the primary parent
	Height       uint64                   // parents[0].height + 1, or 0 for genesis
	QC           QuorumCertI              // quorum certificate this block extends; genesis carries its bootstrap QC over its own hash
	QCRef        *Block                   // the block QC points at, resolved lazily once delivered
	Orders       map[uint64][]lib.HexBytes // replica_id -> that replica's contributed command ordering
	Extra        []byte                   // opaque application payload

	SelfQC   QuorumCertI     // the quorum certificate under accumulation over this block's own hash
	Voted    map[uint64]bool // replica_ids that have contributed a vote toward SelfQC
	Decision Decision
	Delivered bool

	parents []*Block // resolved parent blocks, populated by on_deliver_block
	hash    lib.HexBytes
}

// NewBlock() constructs an undelivered block from a proposal payload; its hash is computed lazily
func NewBlock(parentHashes []lib.HexBytes, qc QuorumCertI, orders map[uint64][]lib.HexBytes, extra []byte) *Block {
	return &Block{
		ParentHashes: parentHashes,
		QC:           qc,
		Orders:       orders,
		Extra:        extra,
		Voted:        make(map[uint64]bool),
	}
}

// NewGenesisBlock() constructs the anchor block B0: height 0, an unsigned bootstrap QC over its own
// hash, pre-delivered and pre-committed
func NewGenesisBlock(cfg *ReplicaConfig) *Block {
	b := &Block{
		Height:    GenesisHeight,
		Orders:    make(map[uint64][]lib.HexBytes),
		Voted:     make(map[uint64]bool),
		Decision:  Committed,
		Delivered: true,
	}
	b.hash = crypto.Hash(EncodeBlockForHash(b))
	b.QC = NewGenesisQuorumCert(cfg, b.hash)
	b.QCRef = b
	return b
}

// Hash() returns the block's content hash, computing and caching it on first access
func (b *Block) Hash() lib.HexBytes {
	if b.hash == nil {
		b.hash = crypto.Hash(EncodeBlockForHash(b))
	}
	return b.hash
}

// Parents() returns the resolved parent blocks; only meaningful once Delivered is true
func (b *Block) Parents() []*Block { return b.parents }

// PrimaryParent() returns the resolved primary (first) parent, or nil if unresolved
func (b *Block) PrimaryParent() *Block {
	if len(b.parents) == 0 {
		return nil
	}
	return b.parents[0]
}

// IsGenesis() reports whether this block is the chain anchor
func (b *Block) IsGenesis() bool { return len(b.ParentHashes) == 0 && b.Height == GenesisHeight }
