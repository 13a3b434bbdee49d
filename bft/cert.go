package bft

import "github.com/order-fair/hotstuff/lib"

// PartialCertI is a single replica's signed attestation over a block hash. The core treats
// certificates as opaque capabilities so that the signature scheme backing them (BLS, threshold,
// or otherwise) is a pluggable concern external to the state machine
type PartialCertI interface {
	Clone() PartialCertI
	Marshal() ([]byte, error)
	ObjHash() lib.HexBytes
}

// QuorumCertI is an aggregation of partial certificates from at least NMajority distinct
// replicas over a single block hash
type QuorumCertI interface {
	Clone() QuorumCertI
	Marshal() ([]byte, error)
	ObjHash() lib.HexBytes
	AddPart(cert PartialCertI, replicaIdx int) error
	Compute() error
	IsComputed() bool
	Verify(cfg *ReplicaConfig) bool
}
