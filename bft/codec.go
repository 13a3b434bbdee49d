package bft

import (
	"encoding/binary"
	"sort"

	"github.com/order-fair/hotstuff/lib"
	"github.com/order-fair/hotstuff/lib/crypto"
)

// Wire formats are concept-level and stable-field-order per the protocol's byte layout:
// lengths are little-endian, hashes are fixed-size crypto.HashSize byte strings

// EncodeBlockForHash() serializes B canonically for hashing: parent hashes, referenced QC object
// hash (empty for genesis), the orders payload sorted by ascending replica_id, and extra bytes.
// The self_qc under accumulation is deliberately excluded since it is not yet part of B's identity
func EncodeBlockForHash(b *Block) []byte {
	var out []byte
	lenBz := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBz, uint32(len(b.ParentHashes)))
	out = append(out, lenBz...)
	for _, p := range b.ParentHashes {
		out = append(out, p...)
	}
	// genesis's QC is a trusted, unsigned bootstrap value naming its own hash, not a justification
	// derived from it, so it is excluded from the hash pre-image regardless of whether the field
	// has been populated yet; this keeps the hash stable across construction and re-encoding
	if b.QC != nil && !b.IsGenesis() {
		out = append(out, 1)
		out = append(out, b.QC.ObjHash()...)
	} else {
		out = append(out, 0)
	}
	heightBz := make([]byte, 8)
	binary.LittleEndian.PutUint64(heightBz, b.Height)
	out = append(out, heightBz...)
	out = append(out, encodeOrders(b.Orders)...)
	extraLenBz := make([]byte, 4)
	binary.LittleEndian.PutUint32(extraLenBz, uint32(len(b.Extra)))
	out = append(out, extraLenBz...)
	out = append(out, b.Extra...)
	return out
}

// encodeOrders serializes the merged-orders payload as {contributor count; per-contributor (id, length, hashes)}
// iterating contributors in ascending replica_id order for determinism
func encodeOrders(orders map[uint64][]lib.HexBytes) []byte {
	ids := make([]uint64, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []byte
	countBz := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBz, uint32(len(ids)))
	out = append(out, countBz...)
	for _, id := range ids {
		idBz := make([]byte, 8)
		binary.LittleEndian.PutUint64(idBz, id)
		out = append(out, idBz...)
		hashes := orders[id]
		lenBz := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBz, uint32(len(hashes)))
		out = append(out, lenBz...)
		for _, h := range hashes {
			out = append(out, h...)
		}
	}
	return out
}

// EncodeVote() serializes a Vote as { voter: u8; blk_hash: 32 bytes; cert: opaque }
func EncodeVote(v *Vote) ([]byte, error) {
	certBz, err := v.Cert.Marshal()
	if err != nil {
		return nil, err
	}
	out := append([]byte{byte(v.Voter)}, v.BlkHash...)
	return append(out, certBz...), nil
}

// DecodeVote() parses a wire-format Vote
func DecodeVote(bz []byte) (*Vote, lib.ErrorI) {
	if len(bz) < 1+crypto.HashSize {
		return nil, lib.ErrEmptyPartialCert()
	}
	voter := uint64(bz[0])
	blkHash := lib.HexBytes(bz[1 : 1+crypto.HashSize])
	cert, err := ParsePartCert(bz[1+crypto.HashSize:])
	if err != nil {
		return nil, err
	}
	return &Vote{Voter: voter, BlkHash: blkHash, Cert: cert}, nil
}

// EncodeLocalOrder() serializes a LocalOrder as { initiator: u8; count: u32 LE; count x 32-byte hash }
func EncodeLocalOrder(m *LocalOrder) []byte {
	out := []byte{byte(m.Initiator)}
	countBz := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBz, uint32(len(m.OrderedHashes)))
	out = append(out, countBz...)
	for _, h := range m.OrderedHashes {
		out = append(out, h...)
	}
	return out
}

// DecodeLocalOrder() parses a wire-format LocalOrder
func DecodeLocalOrder(bz []byte) (*LocalOrder, lib.ErrorI) {
	if len(bz) < 5 {
		return nil, lib.ErrLocalOrderTooShort(0, 1)
	}
	initiator := uint64(bz[0])
	count := binary.LittleEndian.Uint32(bz[1:5])
	rest := bz[5:]
	if len(rest) != int(count)*crypto.HashSize {
		return nil, lib.ErrLocalOrderTooShort(len(rest)/crypto.HashSize, int(count))
	}
	hashes := make([]lib.HexBytes, count)
	for i := 0; i < int(count); i++ {
		hashes[i] = lib.HexBytes(rest[i*crypto.HashSize : (i+1)*crypto.HashSize])
	}
	return &LocalOrder{Initiator: initiator, OrderedHashes: hashes}, nil
}

// EncodeFinality() serializes a Finality record as
// { rid: u8; decision: i8; cmd_idx: u32; cmd_height: u32; cmd_hash: 32 bytes; [blk_hash: 32 bytes] }
func EncodeFinality(f *Finality) []byte {
	out := []byte{byte(f.ReplicaID), byte(f.Decision)}
	idxBz, heightBz := make([]byte, 4), make([]byte, 4)
	binary.LittleEndian.PutUint32(idxBz, f.CmdIdx)
	binary.LittleEndian.PutUint32(heightBz, uint32(f.CmdHeight))
	out = append(out, idxBz...)
	out = append(out, heightBz...)
	out = append(out, f.CmdHash...)
	if f.Decision == FinalityCommit {
		out = append(out, f.BlkHash...)
	}
	return out
}

// DecodeFinality() parses a wire-format Finality record
func DecodeFinality(bz []byte) (*Finality, lib.ErrorI) {
	if len(bz) < 2+4+4+crypto.HashSize {
		return nil, lib.ErrEmptyQuorumCert()
	}
	f := &Finality{
		ReplicaID: uint64(bz[0]),
		Decision:  FinalityDecision(int8(bz[1])),
		CmdIdx:    binary.LittleEndian.Uint32(bz[2:6]),
		CmdHeight: uint64(binary.LittleEndian.Uint32(bz[6:10])),
		CmdHash:   lib.HexBytes(bz[10 : 10+crypto.HashSize]),
	}
	if f.Decision == FinalityCommit {
		rest := bz[10+crypto.HashSize:]
		if len(rest) < crypto.HashSize {
			return nil, lib.ErrEmptyQuorumCert()
		}
		f.BlkHash = lib.HexBytes(rest[:crypto.HashSize])
	}
	return f, nil
}

// EncodeProposal() serializes a Proposal as { proposer: u8; block: serialized block }
func EncodeProposal(p *Proposal) ([]byte, error) {
	blockBz, err := EncodeBlock(p.Block)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(p.Proposer)}, blockBz...), nil
}

// EncodeBlock() serializes a full block: canonical hash payload plus its QC, if present
func EncodeBlock(b *Block) ([]byte, error) {
	out := EncodeBlockForHash(b)
	hasQC := byte(0)
	if b.QC != nil {
		hasQC = 1
	}
	out = append(out, hasQC)
	if b.QC != nil {
		qcBz, err := b.QC.Marshal()
		if err != nil {
			return nil, err
		}
		qcLenBz := make([]byte, 4)
		binary.LittleEndian.PutUint32(qcLenBz, uint32(len(qcBz)))
		out = append(out, qcLenBz...)
		out = append(out, qcBz...)
	}
	return out, nil
}

// DecodeBlock() parses a wire-format block produced by EncodeBlock; the QC trailer (if present)
// is parsed for cfg's committee but its signature is not verified here
func DecodeBlock(cfg *ReplicaConfig, bz []byte) (*Block, lib.ErrorI) {
	if len(bz) < 4 {
		return nil, lib.ErrNilBlock()
	}
	off := 0
	parentCount := int(binary.LittleEndian.Uint32(bz[off : off+4]))
	off += 4
	parentHashes := make([]lib.HexBytes, parentCount)
	for i := 0; i < parentCount; i++ {
		if len(bz) < off+crypto.HashSize {
			return nil, lib.ErrInvalidBlockHash()
		}
		parentHashes[i] = lib.HexBytes(bz[off : off+crypto.HashSize])
		off += crypto.HashSize
	}
	if len(bz) < off+1 {
		return nil, lib.ErrNilBlockHeader()
	}
	hasQCRef := bz[off]
	off++
	var qcRefHash lib.HexBytes
	if hasQCRef == 1 {
		if len(bz) < off+crypto.HashSize {
			return nil, lib.ErrInvalidBlockHash()
		}
		qcRefHash = lib.HexBytes(bz[off : off+crypto.HashSize])
		off += crypto.HashSize
	}
	if len(bz) < off+8 {
		return nil, lib.ErrNilBlockHeader()
	}
	height := binary.LittleEndian.Uint64(bz[off : off+8])
	off += 8
	orders, n, err := decodeOrders(bz[off:])
	if err != nil {
		return nil, err
	}
	off += n
	if len(bz) < off+4 {
		return nil, lib.ErrNilBlockHeader()
	}
	extraLen := int(binary.LittleEndian.Uint32(bz[off : off+4]))
	off += 4
	if len(bz) < off+extraLen {
		return nil, lib.ErrNilBlockHeader()
	}
	extra := append([]byte{}, bz[off:off+extraLen]...)
	off += extraLen
	if len(bz) < off+1 {
		return nil, lib.ErrNilBlockHeader()
	}
	hasQC := bz[off]
	off++
	var qc QuorumCertI
	if hasQC == 1 {
		if len(bz) < off+4 {
			return nil, lib.ErrEmptyQuorumCert()
		}
		qcLen := int(binary.LittleEndian.Uint32(bz[off : off+4]))
		off += 4
		if len(bz) < off+qcLen {
			return nil, lib.ErrEmptyQuorumCert()
		}
		qc, err = ParseQuorumCert(cfg, bz[off:off+qcLen])
		if err != nil {
			return nil, err
		}
	}
	isGenesis := parentCount == 0 && height == GenesisHeight
	if !isGenesis && (hasQCRef == 1) != (qc != nil) {
		return nil, lib.ErrInvalidQuorumCert()
	}
	if !isGenesis && qc != nil && qcRefHash.String() != qc.ObjHash().String() {
		return nil, lib.ErrInvalidQuorumCert()
	}
	b := NewBlock(parentHashes, qc, orders, extra)
	b.Height = height
	return b, nil
}

// decodeOrders parses the {contributor count; per-contributor (id, length, hashes)} payload,
// returning the parsed map and the number of bytes consumed
func decodeOrders(bz []byte) (map[uint64][]lib.HexBytes, int, lib.ErrorI) {
	if len(bz) < 4 {
		return nil, 0, lib.ErrEmptyMergedOrder()
	}
	off := 0
	count := int(binary.LittleEndian.Uint32(bz[off : off+4]))
	off += 4
	orders := make(map[uint64][]lib.HexBytes, count)
	for i := 0; i < count; i++ {
		if len(bz) < off+8+4 {
			return nil, 0, lib.ErrEmptyMergedOrder()
		}
		id := binary.LittleEndian.Uint64(bz[off : off+8])
		off += 8
		hashCount := int(binary.LittleEndian.Uint32(bz[off : off+4]))
		off += 4
		hashes := make([]lib.HexBytes, hashCount)
		for j := 0; j < hashCount; j++ {
			if len(bz) < off+crypto.HashSize {
				return nil, 0, lib.ErrEmptyMergedOrder()
			}
			hashes[j] = lib.HexBytes(bz[off : off+crypto.HashSize])
			off += crypto.HashSize
		}
		orders[id] = hashes
	}
	return orders, off, nil
}

// DecodeProposal() parses a wire-format Proposal produced by EncodeProposal against cfg's committee
func DecodeProposal(cfg *ReplicaConfig, bz []byte) (*Proposal, lib.ErrorI) {
	if len(bz) < 1 {
		return nil, lib.ErrNilBlock()
	}
	proposer := uint64(bz[0])
	b, err := DecodeBlock(cfg, bz[1:])
	if err != nil {
		return nil, err
	}
	return &Proposal{Proposer: proposer, Block: b}, nil
}
