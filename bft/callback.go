package bft

import "github.com/order-fair/hotstuff/lib"

// Callbacks are the external collaborators the core invokes synchronously from within its
// event-loop turn: decision delivery, networking, and the crypto plug-ins. The pacemaker,
// transport, and signature backends all implement this from outside the core
type Callbacks interface {
	// DoDecide is invoked once per committed command, in strict commit order
	DoDecide(f Finality)
	// DoConsensus is invoked once per committed block, before its DoDecide calls
	DoConsensus(b *Block)
	// DoBroadcastProposal sends a Proposal to every replica except self
	DoBroadcastProposal(p *Proposal)
	// DoVote sends a Vote to a specific replica (the next leader)
	DoVote(proposer uint64, v *Vote)
	// DoSendLocalOrder sends a LocalOrder to the current leader
	DoSendLocalOrder(leaderID uint64, m *LocalOrder)
}

// LoggingCallbacks is a transport-less Callbacks implementation that only logs each event.
// It exists for the process entrypoint (cmd/), which has no pacemaker or peer transport wired
// (both out of scope per this specification) but still needs a concrete Callbacks to construct
// a Core
type LoggingCallbacks struct {
	log lib.LoggerI
}

// NewLoggingCallbacks() constructs a LoggingCallbacks bound to l
func NewLoggingCallbacks(l lib.LoggerI) *LoggingCallbacks {
	return &LoggingCallbacks{log: l}
}

func (lc *LoggingCallbacks) DoDecide(f Finality) {
	lc.log.Infof("decided cmd_idx=%d cmd_height=%d cmd_hash=%s", f.CmdIdx, f.CmdHeight, f.CmdHash)
}

func (lc *LoggingCallbacks) DoConsensus(b *Block) {
	lc.log.Infof("committed block height=%d hash=%s", b.Height, b.Hash())
}

func (lc *LoggingCallbacks) DoBroadcastProposal(p *Proposal) {
	lc.log.Debugf("would broadcast proposal from replica %d for block %s", p.Proposer, p.Block.Hash())
}

func (lc *LoggingCallbacks) DoVote(proposer uint64, v *Vote) {
	lc.log.Debugf("would send vote from replica %d to replica %d for block %s", v.Voter, proposer, v.BlkHash)
}

func (lc *LoggingCallbacks) DoSendLocalOrder(leaderID uint64, m *LocalOrder) {
	lc.log.Debugf("would send local order from replica %d to leader %d", m.Initiator, leaderID)
}
