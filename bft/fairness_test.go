package bft

import (
	"bytes"
	"testing"

	"github.com/order-fair/hotstuff/lib"
	"github.com/order-fair/hotstuff/lib/crypto"
	"github.com/stretchr/testify/require"
)

// h builds a full-length (crypto.HashSize) test hash with every byte set to b, so it survives the
// fixed-width hash fields of the wire codec
func h(b byte) lib.HexBytes { return lib.HexBytes(bytes.Repeat([]byte{b}, crypto.HashSize)) }

func TestFairFinalizeHappyPath(t *testing.T) {
	// scenario 1: weight(h_a) = 3*(1-0.5^1) = 1.5; weight(h_b) = 3*(1-0.5^2) = 2.25
	ha, hb := h(0xAA), h(0xBB)
	b := &Block{Orders: map[uint64][]lib.HexBytes{
		0: {ha, hb},
		1: {ha, hb},
		2: {ha, hb},
	}}
	got := FairFinalize(b, 0.5)
	require.Equal(t, []lib.HexBytes{ha, hb}, got)
}

func TestFairFinalizeEmptyOrders(t *testing.T) {
	b := &Block{Orders: map[uint64][]lib.HexBytes{}}
	require.Empty(t, FairFinalize(b, 0.5))
}

func TestFairFinalizeDivergentContributors(t *testing.T) {
	// scenario 3: orders = {0: [a,b,c], 1: [b,a,c], 2: [a,b,c]} -> [a, b, c]
	a, b2, c := h(0x01), h(0x02), h(0x03)
	blk := &Block{Orders: map[uint64][]lib.HexBytes{
		0: {a, b2, c},
		1: {b2, a, c},
		2: {a, b2, c},
	}}
	got := FairFinalize(blk, 0.5)
	require.Equal(t, []lib.HexBytes{a, b2, c}, got)
}

func TestFairFinalizeDominanceFlip(t *testing.T) {
	// scenario 4: orders = {0: [a,b], 1: [a,b], 2: [b,a]} -> [a,b]
	a, bb := h(0x01), h(0x02)
	blk := &Block{Orders: map[uint64][]lib.HexBytes{
		0: {a, bb},
		1: {a, bb},
		2: {bb, a},
	}}
	got := FairFinalize(blk, 0.5)
	require.Equal(t, []lib.HexBytes{a, bb}, got)
}

func TestFairFinalizeDeterministic(t *testing.T) {
	a, b2, c := h(0x01), h(0x02), h(0x03)
	blk1 := &Block{Orders: map[uint64][]lib.HexBytes{0: {a, b2, c}, 1: {b2, a, c}}}
	blk2 := &Block{Orders: map[uint64][]lib.HexBytes{1: {b2, a, c}, 0: {a, b2, c}}}
	require.Equal(t, FairFinalize(blk1, 0.5), FairFinalize(blk2, 0.5))
}

func TestFairProposeUnionMerge(t *testing.T) {
	cfg := newTestReplicaConfig(4, 1)
	core := NewCore(0, nil, cfg, &fakeCallbacks{}, lib.NewNullLogger())
	core.OnInit()

	a, bb, c := h(0x01), h(0x02), h(0x03)
	require.False(t, core.OnReceiveLocalOrder(&LocalOrder{Initiator: 0, OrderedHashes: []lib.HexBytes{a, bb}}))
	require.False(t, core.OnReceiveLocalOrder(&LocalOrder{Initiator: 1, OrderedHashes: []lib.HexBytes{bb, c}}))
	ready := core.OnReceiveLocalOrder(&LocalOrder{Initiator: 2, OrderedHashes: []lib.HexBytes{a, c}})
	require.True(t, ready)

	merged := core.FairPropose()
	require.Len(t, merged, 3)
	// contributor 0 saw [a,b]; union adds c from contributor 1 -> [a,b,c]
	require.Equal(t, []lib.HexBytes{a, bb, c}, merged[0])
	// contributor 1 saw [b,c]; back-filled with a (missing from its own order) -> [b,c,a]
	require.Equal(t, []lib.HexBytes{bb, c, a}, merged[1])
	// contributor 2 saw [a,c]; back-filled with b -> [a,c,b]
	require.Equal(t, []lib.HexBytes{a, c, bb}, merged[2])
}

func TestFairProposeEmptyInput(t *testing.T) {
	cfg := newTestReplicaConfig(4, 1)
	core := NewCore(0, nil, cfg, &fakeCallbacks{}, lib.NewNullLogger())
	core.OnInit()
	require.Empty(t, core.FairPropose())
}
