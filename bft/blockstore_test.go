package bft

import (
	"testing"

	"github.com/order-fair/hotstuff/lib"
	"github.com/stretchr/testify/require"
)

func newTestBlockStore(t *testing.T) *BadgerBlockStore {
	s, err := NewBadgerBlockStore(lib.StoreConfig{InMemory: true, DBName: "test"}, lib.NewNullLogger())
	require.Nil(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBlockStorePutGetRoundTrip(t *testing.T) {
	cfg := newTestReplicaConfig(4, 1)
	genesis := NewGenesisBlock(cfg)
	qc, certErr := CreateQuorumCert(cfg, genesis.Hash())
	require.Nil(t, certErr)
	b := NewBlock([]lib.HexBytes{genesis.Hash()}, qc, map[uint64][]lib.HexBytes{0: {h(0x01)}}, nil)
	b.Height = 1

	s := newTestBlockStore(t)
	require.Nil(t, s.Put(1, cfg, b))

	got, ok, err := s.Get(cfg, 1)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, b.Hash(), got.Hash())
}

func TestBlockStoreGetMissingHeight(t *testing.T) {
	cfg := newTestReplicaConfig(4, 1)
	s := newTestBlockStore(t)
	_, ok, err := s.Get(cfg, 99)
	require.Nil(t, err)
	require.False(t, ok)
}

func TestBlockStoreLatestTracksHighestHeight(t *testing.T) {
	cfg := newTestReplicaConfig(4, 1)
	genesis := NewGenesisBlock(cfg)
	s := newTestBlockStore(t)

	_, ok := s.Latest()
	require.False(t, ok)

	qc, certErr := CreateQuorumCert(cfg, genesis.Hash())
	require.Nil(t, certErr)
	b1 := NewBlock([]lib.HexBytes{genesis.Hash()}, qc, nil, nil)
	b1.Height = 1
	require.Nil(t, s.Put(1, cfg, b1))

	b2 := NewBlock([]lib.HexBytes{b1.Hash()}, qc, nil, nil)
	b2.Height = 2
	require.Nil(t, s.Put(2, cfg, b2))

	height, ok := s.Latest()
	require.True(t, ok)
	require.Equal(t, uint64(2), height)
}

func TestCoreCommitPersistsToBlockStore(t *testing.T) {
	cores, cbs, _ := newTestCommittee(t, 4, 1)
	cfg := cores[0].Config()
	bs := newTestBlockStore(t)
	cores[3].SetBlockStore(bs)

	_, genesisRef := cores[0].HQC()
	p1, err := cores[0].OnPropose([]lib.HexBytes{genesisRef.Hash()}, map[uint64][]lib.HexBytes{0: {h(0xAA)}}, nil)
	require.Nil(t, err)
	votes1 := deliverAndCollectVotes(t, cores, cbs, 0, p1)
	for _, v := range votes1[:cores[1].Config().NMajority()] {
		require.Nil(t, cores[1].OnReceiveVote(v))
	}

	p2, err := cores[1].OnPropose([]lib.HexBytes{p1.Block.Hash()}, nil, nil)
	require.Nil(t, err)
	votes2 := deliverAndCollectVotes(t, cores, cbs, 1, p2)
	for _, v := range votes2[:cores[2].Config().NMajority()] {
		require.Nil(t, cores[2].OnReceiveVote(v))
	}

	p3, err := cores[2].OnPropose([]lib.HexBytes{p2.Block.Hash()}, nil, nil)
	require.Nil(t, err)
	votes3 := deliverAndCollectVotes(t, cores, cbs, 2, p3)
	for _, v := range votes3[:cores[3].Config().NMajority()] {
		require.Nil(t, cores[3].OnReceiveVote(v))
	}

	_, err = cores[3].OnPropose([]lib.HexBytes{p3.Block.Hash()}, nil, nil)
	require.Nil(t, err)

	got, ok, getErr := bs.Get(cfg, 1)
	require.Nil(t, getErr)
	require.True(t, ok)
	require.Equal(t, p1.Block.Hash(), got.Hash())
}
