package lib

import (
	"fmt"
	"math"
	"runtime"
)

type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

type Error struct {
	ECode   ErrorCode   `json:"code"`   // Error code
	EModule ErrorModule `json:"module"` // Error module
	Msg     string      `json:"msg"`    // Error message
}

func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	// Constructs a new Error instance
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code, and message; the call stack is
// walked but not included in the result
func (p *Error) Error() string {
	stack, pc := "", make([]uintptr, 1000)
	_ = runtime.Callers(1, pc)
	frames := runtime.CallersFrames(pc)
	if frames == nil {
		return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s\n", p.EModule, p.ECode, p.Msg)
	}
	for f, again := frames.Next(); again; f, again = frames.Next() {
		stack += fmt.Sprintf("\n%s L%d", f.File, f.Line)
	}
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s", p.EModule, p.ECode, p.Msg)
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeInvalidArgument ErrorCode = 1
	CodeJSONMarshal     ErrorCode = 2
	CodeJSONUnmarshal   ErrorCode = 3
	CodeStringToBytes   ErrorCode = 4
	CodeWriteFile       ErrorCode = 5
	CodeReadFile        ErrorCode = 6
	CodeHashSize        ErrorCode = 7
	CodePanic           ErrorCode = 8

	// Consensus Module: covers block delivery, the three-chain commit rule, QC
	// formation, voting, and the order-fairness layer
	ConsensusModule ErrorModule = "consensus"

	// Consensus Module Error Codes
	CodeNilBlock                   ErrorCode = 1
	CodeNilBlockHeader             ErrorCode = 2
	CodeInvalidBlockHash           ErrorCode = 3
	CodeWrongLengthBlockHash       ErrorCode = 4
	CodeParentNotDelivered         ErrorCode = 5
	CodeDuplicateDelivery          ErrorCode = 6
	CodeSafetyBreached             ErrorCode = 7
	CodeDuplicateVote              ErrorCode = 8
	CodeVoteQuorumExceeded         ErrorCode = 9
	CodeInvalidPartialCert         ErrorCode = 10
	CodeEmptyPartialCert           ErrorCode = 11
	CodeInvalidQuorumCert          ErrorCode = 12
	CodeEmptyQuorumCert            ErrorCode = 13
	CodeQuorumCertBelowThreshold   ErrorCode = 14
	CodeNoMajority                 ErrorCode = 15
	CodeQCRefNotFound              ErrorCode = 16
	CodeUnknownReplica             ErrorCode = 17
	CodeVoteDisabled               ErrorCode = 18
	CodeInvalidHeight              ErrorCode = 19
	CodeGenesisHasParent           ErrorCode = 20
	CodeEmptyMergedOrder           ErrorCode = 21
	CodeLocalOrderTooShort         ErrorCode = 22
	CodeInvalidFairnessParameter   ErrorCode = 23
	CodeBlockNotFound              ErrorCode = 24
	CodeAlreadyDecided             ErrorCode = 25
	CodePruneBelowExecuted         ErrorCode = 26

	// Storage Module: the badger-backed committed-block store
	StorageModule   ErrorModule = "store"
	CodeOpenDB      ErrorCode   = 1
	CodeCloseDB     ErrorCode   = 2
	CodeStoreSet    ErrorCode   = 3
	CodeStoreGet    ErrorCode   = 4
	CodeStoreDelete ErrorCode   = 5
)

func newLogError(err error) ErrorI {
	return NewError(NoCode, MainModule, err.Error())
}

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrStringToBytes(err error) ErrorI {
	return NewError(CodeStringToBytes, MainModule, fmt.Sprintf("stringToBytes() failed with err: %s", err.Error()))
}

func ErrWriteFile(err error) ErrorI {
	return NewError(CodeWriteFile, MainModule, fmt.Sprintf("os.WriteFile() failed with err: %s", err.Error()))
}

func ErrReadFile(err error) ErrorI {
	return NewError(CodeReadFile, MainModule, fmt.Sprintf("os.ReadFile() failed with err: %s", err.Error()))
}

func ErrInvalidArgument() ErrorI {
	return NewError(CodeInvalidArgument, MainModule, "the argument is invalid")
}

func ErrHashSize() ErrorI {
	return NewError(CodeHashSize, MainModule, "wrong hash size")
}

func ErrPanic(r any) ErrorI {
	return NewError(CodePanic, MainModule, fmt.Sprintf("recovered from panic: %v", r))
}

// block errors

func ErrNilBlock() ErrorI {
	return NewError(CodeNilBlock, ConsensusModule, "block is nil")
}

func ErrNilBlockHeader() ErrorI {
	return NewError(CodeNilBlockHeader, ConsensusModule, "block header is nil")
}

func ErrInvalidBlockHash() ErrorI {
	return NewError(CodeInvalidBlockHash, ConsensusModule, "invalid block hash")
}

func ErrWrongLengthBlockHash() ErrorI {
	return NewError(CodeWrongLengthBlockHash, ConsensusModule, "wrong length block hash")
}

func ErrGenesisHasParent() ErrorI {
	return NewError(CodeGenesisHasParent, ConsensusModule, "genesis block must not declare a parent")
}

func ErrInvalidHeight(got, want uint64) ErrorI {
	return NewError(CodeInvalidHeight, ConsensusModule, fmt.Sprintf("invalid height: got %d, want %d", got, want))
}

// delivery errors

func ErrParentNotDelivered(parent HexBytes) ErrorI {
	return NewError(CodeParentNotDelivered, ConsensusModule, fmt.Sprintf("parent block %s has not been delivered", parent))
}

func ErrDuplicateDelivery(hash HexBytes) ErrorI {
	return NewError(CodeDuplicateDelivery, ConsensusModule, fmt.Sprintf("block %s already delivered", hash))
}

func ErrBlockNotFound(hash HexBytes) ErrorI {
	return NewError(CodeBlockNotFound, ConsensusModule, fmt.Sprintf("block %s not found in the entity store", hash))
}

func ErrQCRefNotFound(hash HexBytes) ErrorI {
	return NewError(CodeQCRefNotFound, ConsensusModule, fmt.Sprintf("qc reference block %s not found", hash))
}

// safety errors

func ErrSafetyBreached() ErrorI {
	return NewError(CodeSafetyBreached, ConsensusModule, "safety breached: three-chain commit walk did not land on the executed block")
}

func ErrAlreadyDecided(hash HexBytes) ErrorI {
	return NewError(CodeAlreadyDecided, ConsensusModule, fmt.Sprintf("block %s already decided", hash))
}

func ErrPruneBelowExecuted() ErrorI {
	return NewError(CodePruneBelowExecuted, ConsensusModule, "cannot prune above the highest executed block")
}

// vote / certificate errors

func ErrDuplicateVote(replica uint8) ErrorI {
	return NewError(CodeDuplicateVote, ConsensusModule, fmt.Sprintf("replica %d already voted for this height", replica))
}

func ErrVoteQuorumExceeded() ErrorI {
	return NewError(CodeVoteQuorumExceeded, ConsensusModule, "vote received after quorum certificate already formed")
}

func ErrInvalidPartialCert() ErrorI {
	return NewError(CodeInvalidPartialCert, ConsensusModule, "partial certificate failed verification")
}

func ErrEmptyPartialCert() ErrorI {
	return NewError(CodeEmptyPartialCert, ConsensusModule, "partial certificate is empty")
}

func ErrInvalidQuorumCert() ErrorI {
	return NewError(CodeInvalidQuorumCert, ConsensusModule, "quorum certificate failed verification")
}

func ErrEmptyQuorumCert() ErrorI {
	return NewError(CodeEmptyQuorumCert, ConsensusModule, "quorum certificate is empty")
}

func ErrQuorumCertBelowThreshold(got, want int) ErrorI {
	return NewError(CodeQuorumCertBelowThreshold, ConsensusModule, fmt.Sprintf("quorum certificate has %d parts, needs %d", got, want))
}

func ErrNoMajority() ErrorI {
	return NewError(CodeNoMajority, ConsensusModule, "quorum not reached")
}

func ErrUnknownReplica(id uint8) ErrorI {
	return NewError(CodeUnknownReplica, ConsensusModule, fmt.Sprintf("replica %d is not a member of the committee", id))
}

func ErrVoteDisabled() ErrorI {
	return NewError(CodeVoteDisabled, ConsensusModule, "voting is disabled on this replica")
}

// fairness errors

func ErrEmptyMergedOrder() ErrorI {
	return NewError(CodeEmptyMergedOrder, ConsensusModule, "merged-orders payload is empty or truncated")
}

func ErrLocalOrderTooShort(got, want int) ErrorI {
	return NewError(CodeLocalOrderTooShort, ConsensusModule, fmt.Sprintf("local order too short: %d of %d declared hashes present", got, want))
}

func ErrInvalidFairnessParameter(gamma float64) ErrorI {
	return NewError(CodeInvalidFairnessParameter, ConsensusModule, fmt.Sprintf("fairness parameter %f must be in (0, 1]", gamma))
}

// storage errors

func ErrOpenDB(err error) ErrorI {
	return NewError(CodeOpenDB, StorageModule, fmt.Sprintf("open db failed with err: %s", err.Error()))
}

func ErrCloseDB(err error) ErrorI {
	return NewError(CodeCloseDB, StorageModule, fmt.Sprintf("close db failed with err: %s", err.Error()))
}

func ErrStoreSet(err error) ErrorI {
	return NewError(CodeStoreSet, StorageModule, fmt.Sprintf("store set failed with err: %s", err.Error()))
}

func ErrStoreGet(err error) ErrorI {
	return NewError(CodeStoreGet, StorageModule, fmt.Sprintf("store get failed with err: %s", err.Error()))
}

func ErrStoreDelete(err error) ErrorI {
	return NewError(CodeStoreDelete, StorageModule, fmt.Sprintf("store delete failed with err: %s", err.Error()))
}
