package bft

import (
	"testing"

	"github.com/order-fair/hotstuff/lib"
	"github.com/order-fair/hotstuff/lib/crypto"
	"github.com/stretchr/testify/require"
)

func TestVoteRoundTrip(t *testing.T) {
	priv, privErr := crypto.NewBLSPrivateKey()
	require.NoError(t, privErr)
	cert, err := CreatePartCert(priv, h(0xAA))
	require.Nil(t, err)
	v := &Vote{Voter: 2, BlkHash: h(0xAA), Cert: cert}

	bz, encErr := EncodeVote(v)
	require.NoError(t, encErr)
	got, decErr := DecodeVote(bz)
	require.Nil(t, decErr)
	require.Equal(t, v.Voter, got.Voter)
	require.Equal(t, v.BlkHash, got.BlkHash)
	require.Equal(t, cert.ObjHash(), got.Cert.ObjHash())
}

func TestLocalOrderRoundTrip(t *testing.T) {
	m := &LocalOrder{Initiator: 1, OrderedHashes: []lib.HexBytes{h(0x01), h(0x02), h(0x03)}}
	bz := EncodeLocalOrder(m)
	got, err := DecodeLocalOrder(bz)
	require.Nil(t, err)
	require.Equal(t, m.Initiator, got.Initiator)
	require.Equal(t, m.OrderedHashes, got.OrderedHashes)
}

func TestFinalityRoundTripCommit(t *testing.T) {
	f := &Finality{
		ReplicaID: 3,
		Decision:  FinalityCommit,
		CmdIdx:    7,
		CmdHeight: 42,
		CmdHash:   h(0xCC),
		BlkHash:   h(0xDD),
	}
	bz := EncodeFinality(f)
	got, err := DecodeFinality(bz)
	require.Nil(t, err)
	require.Equal(t, f.ReplicaID, got.ReplicaID)
	require.Equal(t, f.Decision, got.Decision)
	require.Equal(t, f.CmdIdx, got.CmdIdx)
	require.Equal(t, f.CmdHeight, got.CmdHeight)
	require.Equal(t, f.CmdHash, got.CmdHash)
	require.Equal(t, f.BlkHash, got.BlkHash)
}

func TestBlockRoundTripWithQC(t *testing.T) {
	cfg := newTestReplicaConfig(4, 1)
	genesis := NewGenesisBlock(cfg)
	qc, err := CreateQuorumCert(cfg, genesis.Hash())
	require.Nil(t, err)
	b := NewBlock([]lib.HexBytes{genesis.Hash()}, qc, map[uint64][]lib.HexBytes{
		0: {h(0x01), h(0x02)},
		1: {h(0x01)},
	}, []byte("extra"))
	b.Height = 1

	bz, encErr := EncodeBlock(b)
	require.NoError(t, encErr)
	got, decErr := DecodeBlock(cfg, bz)
	require.Nil(t, decErr)
	require.Equal(t, b.ParentHashes, got.ParentHashes)
	require.Equal(t, b.Height, got.Height)
	require.Equal(t, b.Orders, got.Orders)
	require.Equal(t, b.Extra, got.Extra)
	require.Equal(t, b.QC.ObjHash(), got.QC.ObjHash())
	require.Equal(t, b.Hash(), got.Hash())
}

func TestBlockRoundTripGenesisHasNoQCRefField(t *testing.T) {
	cfg := newTestReplicaConfig(4, 1)
	genesis := NewGenesisBlock(cfg)
	bz, err := EncodeBlock(genesis)
	require.NoError(t, err)
	got, decErr := DecodeBlock(cfg, bz)
	require.Nil(t, decErr)
	require.Equal(t, genesis.Hash(), got.Hash())
}

func TestProposalRoundTrip(t *testing.T) {
	cfg := newTestReplicaConfig(4, 1)
	genesis := NewGenesisBlock(cfg)
	qc, err := CreateQuorumCert(cfg, genesis.Hash())
	require.Nil(t, err)
	b := NewBlock([]lib.HexBytes{genesis.Hash()}, qc, nil, nil)
	b.Height = 1
	p := &Proposal{Proposer: 2, Block: b}

	bz, encErr := EncodeProposal(p)
	require.NoError(t, encErr)
	got, decErr := DecodeProposal(cfg, bz)
	require.Nil(t, decErr)
	require.Equal(t, p.Proposer, got.Proposer)
	require.Equal(t, p.Block.Hash(), got.Block.Hash())
}
