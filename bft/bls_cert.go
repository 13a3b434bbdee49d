package bft

import (
	"bytes"
	"encoding/binary"

	"github.com/order-fair/hotstuff/lib"
	"github.com/order-fair/hotstuff/lib/crypto"
)

// ReplicaConfig is the committee membership and quorum parameters a Core instance is frozen
// against at on_init: n, nmajority = n - f, the fairness parameter gamma, and the ordered
// public key list replica_id indexes into
type ReplicaConfig struct {
	N         int
	F         int
	Gamma     float64
	Replicas  []crypto.PublicKeyI // index == replica_id
	frozen    bool
}

// NewReplicaConfig() builds an empty, unfrozen committee roster from the process configuration
func NewReplicaConfig(cc lib.ConsensusConfig) *ReplicaConfig {
	return &ReplicaConfig{
		F:     cc.NumFaulty,
		Gamma: cc.FairnessParameter,
	}
}

// AddReplica() registers a committee member's public key; only permitted before Freeze()
func (rc *ReplicaConfig) AddReplica(pub crypto.PublicKeyI) lib.ErrorI {
	if rc.frozen {
		return lib.ErrVoteDisabled()
	}
	rc.Replicas = append(rc.Replicas, pub)
	rc.N = len(rc.Replicas)
	return nil
}

// Freeze() locks the committee roster; called once by Core.OnInit
func (rc *ReplicaConfig) Freeze() { rc.frozen = true }

// NMajority() returns the number of distinct votes required to form a quorum certificate
func (rc *ReplicaConfig) NMajority() int { return rc.N - rc.F }

// multiKey() builds a fresh aggregate public key over the full committee, the mask cleared
func (rc *ReplicaConfig) multiKey() (crypto.MultiPublicKeyI, error) {
	pubBytes := make([][]byte, len(rc.Replicas))
	for i, p := range rc.Replicas {
		pubBytes[i] = p.Bytes()
	}
	return crypto.NewMultiBLS(pubBytes, nil)
}

// partialCert is the default BLS12-381 implementation of PartialCertI: a raw BLS signature
// over the block hash, produced by a single replica's private key
type partialCert struct {
	objHash lib.HexBytes
	sig     []byte
}

// CreatePartCert() signs objHash with priv, producing the default BLS partial certificate
func CreatePartCert(priv crypto.PrivateKeyI, objHash lib.HexBytes) (PartialCertI, lib.ErrorI) {
	if len(objHash) == 0 {
		return nil, lib.ErrEmptyPartialCert()
	}
	return &partialCert{objHash: objHash, sig: priv.Sign(objHash)}, nil
}

// ParsePartCert() decodes a wire-format partial certificate: 32-byte hash followed by the signature
func ParsePartCert(bz []byte) (PartialCertI, lib.ErrorI) {
	if len(bz) <= crypto.HashSize {
		return nil, lib.ErrEmptyPartialCert()
	}
	return &partialCert{objHash: bz[:crypto.HashSize], sig: bz[crypto.HashSize:]}, nil
}

func (p *partialCert) ObjHash() lib.HexBytes { return p.objHash }
func (p *partialCert) Clone() PartialCertI {
	return &partialCert{objHash: append(lib.HexBytes{}, p.objHash...), sig: append([]byte{}, p.sig...)}
}
func (p *partialCert) Marshal() ([]byte, error) {
	return append(append([]byte{}, p.objHash...), p.sig...), nil
}

// verify checks the partial certificate's signature against the claimed signer's public key
func (p *partialCert) verify(pub crypto.PublicKeyI) bool {
	return pub.VerifyBytes(p.objHash, p.sig)
}

// quorumCert is the default BLS12-381 implementation of QuorumCertI: an aggregate signature
// over a single block hash, built by adding partial certificates up to NMajority
type quorumCert struct {
	objHash  lib.HexBytes
	multi    crypto.MultiPublicKeyI
	sig      []byte
	computed bool
}

// CreateQuorumCert() opens a fresh, empty quorum certificate over objHash for cfg's committee
func CreateQuorumCert(cfg *ReplicaConfig, objHash lib.HexBytes) (QuorumCertI, lib.ErrorI) {
	multi, err := cfg.multiKey()
	if err != nil {
		return nil, lib.ErrInvalidQuorumCert()
	}
	return &quorumCert{objHash: objHash, multi: multi}, nil
}

// NewGenesisQuorumCert() builds the bootstrap QC installed on the anchor block: it names the
// genesis hash and is marked computed, but carries no signature; it is trusted unconditionally
// since genesis is not the product of a vote
func NewGenesisQuorumCert(cfg *ReplicaConfig, objHash lib.HexBytes) QuorumCertI {
	multi, _ := cfg.multiKey()
	return &quorumCert{objHash: objHash, multi: multi, computed: true}
}

// ParseQuorumCert() decodes a wire-format quorum certificate for cfg's committee
func ParseQuorumCert(cfg *ReplicaConfig, bz []byte) (QuorumCertI, lib.ErrorI) {
	if len(bz) < crypto.HashSize+4 {
		return nil, lib.ErrEmptyQuorumCert()
	}
	objHash := bz[:crypto.HashSize]
	rest := bz[crypto.HashSize:]
	bitmapLen := int(binary.LittleEndian.Uint32(rest[:4]))
	rest = rest[4:]
	if len(rest) < bitmapLen {
		return nil, lib.ErrInvalidQuorumCert()
	}
	bitmap, sig := rest[:bitmapLen], rest[bitmapLen:]
	multi, err := cfg.multiKey()
	if err != nil {
		return nil, lib.ErrInvalidQuorumCert()
	}
	if len(bitmap) > 0 {
		if err := multi.SetBitmap(bitmap); err != nil {
			return nil, lib.ErrInvalidQuorumCert()
		}
	}
	return &quorumCert{objHash: objHash, multi: multi, sig: sig, computed: len(sig) > 0}, nil
}

func (q *quorumCert) ObjHash() lib.HexBytes { return q.objHash }

func (q *quorumCert) Clone() QuorumCertI {
	return &quorumCert{
		objHash:  append(lib.HexBytes{}, q.objHash...),
		multi:    q.multi.Copy(),
		sig:      append([]byte{}, q.sig...),
		computed: q.computed,
	}
}

func (q *quorumCert) Marshal() ([]byte, error) {
	bitmap := q.multi.Bitmap()
	lenBz := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBz, uint32(len(bitmap)))
	out := append(append([]byte{}, q.objHash...), lenBz...)
	out = append(out, bitmap...)
	out = append(out, q.sig...)
	return out, nil
}

// AddPart() accumulates one replica's partial certificate into the aggregate at replicaIdx
func (q *quorumCert) AddPart(cert PartialCertI, replicaIdx int) error {
	bc, ok := cert.(*partialCert)
	if !ok {
		return lib.ErrInvalidPartialCert()
	}
	if !bytes.Equal(bc.objHash, q.objHash) {
		return lib.ErrInvalidPartialCert()
	}
	return q.multi.AddSigner(bc.sig, replicaIdx)
}

// Compute() freezes the quorum certificate by aggregating all added partial signatures
func (q *quorumCert) Compute() error {
	sig, err := q.multi.AggregateSignatures()
	if err != nil {
		return err
	}
	q.sig = sig
	q.computed = true
	return nil
}

func (q *quorumCert) IsComputed() bool { return q.computed }

// Verify() checks the aggregate signature against the committee's combined public key
func (q *quorumCert) Verify(cfg *ReplicaConfig) bool {
	if !q.computed {
		return false
	}
	return q.multi.VerifyBytes(q.objHash, q.sig)
}
