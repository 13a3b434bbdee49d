package bft

import "github.com/order-fair/hotstuff/lib"

// LocalOrder is a single replica's observed command arrival order, submitted to the current
// leader. Immutable once constructed
type LocalOrder struct {
	Initiator     uint64
	OrderedHashes []lib.HexBytes
}

// Proposal carries a leader's block to the rest of the committee
type Proposal struct {
	Proposer uint64
	Block    *Block
}

// Vote is a single replica's signed attestation over a proposed block, sent to the next leader
type Vote struct {
	Voter   uint64
	BlkHash lib.HexBytes
	Cert    PartialCertI
}

// FinalityDecision is the kind of finality event a Finality record reports
type FinalityDecision int8

const (
	FinalityCommit FinalityDecision = 1
)

// Finality is emitted once per committed command, strictly in commit order
type Finality struct {
	ReplicaID  uint64
	Decision   FinalityDecision
	CmdIdx     uint32
	CmdHeight  uint64
	CmdHash    lib.HexBytes
	BlkHash    lib.HexBytes
}
