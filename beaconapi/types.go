// Package beaconapi is a typed client for the standard Ethereum consensus
// layer ("beacon") HTTP API plus its head-event SSE feed. It is the only
// package in this module that speaks to the upstream node.
package beaconapi

import (
	"github.com/Rurutia1027/eth-analysis-backend/slots"
)

// Gwei is a balance in gwei, stored and summed as a signed 64-bit integer.
type Gwei int64

// Header is the decoded `message` body of a signed beacon block header.
type Header struct {
	Slot          slots.Slot `json:"slot"`
	ParentRoot    string     `json:"parent_root"`
	StateRoot     string     `json:"state_root"`
	ProposerIndex string     `json:"proposer_index"`
}

// HeaderEnvelope wraps Header the way the beacon API nests it.
type HeaderEnvelope struct {
	Message Header `json:"message"`
}

// SignedHeaderEnvelope is a full header API entry: the block root the
// header was fetched by, plus the signed envelope itself.
type SignedHeaderEnvelope struct {
	Root   string         `json:"root"`
	Header HeaderEnvelope `json:"header"`
}

// Deposit is a single validator deposit included in a block.
type Deposit struct {
	Amount Gwei `json:"amount"`
}

// Withdrawal is a single withdrawal included in a post-Shapella block.
type Withdrawal struct {
	Index   string `json:"index"`
	Address string `json:"address"`
	Amount  Gwei   `json:"amount"`
}

// Block is the subset of a beacon block body this indexer cares about:
// enough to compute deposit/withdrawal sums and to link to its parent.
type Block struct {
	Slot        slots.Slot   `json:"slot"`
	ParentRoot  string       `json:"parent_root"`
	StateRoot   string       `json:"state_root"`
	BlockRoot   string       `json:"-"`
	BlockHash   *string      `json:"-"`
	Deposits    []Deposit    `json:"-"`
	Withdrawals []Withdrawal `json:"-"`
	// HasWithdrawals distinguishes a pre-Shapella block (no withdrawals
	// field at all) from a post-Shapella block with zero withdrawals.
	HasWithdrawals bool `json:"-"`
}

// ValidatorBalance is a single validator's balance entry as returned by
// the validator_balances endpoint.
type ValidatorBalance struct {
	Index   string `json:"index"`
	Balance Gwei   `json:"balance"`
}

// ValidatorStatus is the beacon-chain lifecycle status of a validator.
type ValidatorStatus string

const (
	StatusActiveOngoing ValidatorStatus = "active_ongoing"
	StatusActiveExiting ValidatorStatus = "active_exiting"
	StatusActiveSlashed ValidatorStatus = "active_slashed"
)

// IsActive reports whether the status counts toward the active effective
// balance sum.
func (s ValidatorStatus) IsActive() bool {
	return s == StatusActiveOngoing || s == StatusActiveExiting || s == StatusActiveSlashed
}

// ValidatorEnvelope is a single entry of the validators-by-state response.
type ValidatorEnvelope struct {
	Index     string          `json:"index"`
	Status    ValidatorStatus `json:"status"`
	Validator struct {
		EffectiveBalance Gwei `json:"effective_balance"`
	} `json:"validator"`
}

// FinalityCheckpoint is the last finalized/justified checkpoint pair.
type FinalityCheckpoint struct {
	Finalized struct {
		Epoch int32  `json:"epoch"`
		Root  string `json:"root"`
	} `json:"finalized"`
	CurrentJustified struct {
		Epoch int32  `json:"epoch"`
		Root  string `json:"root"`
	} `json:"current_justified"`
}

// HeadEvent is a single decoded `head` SSE notification.
type HeadEvent struct {
	Slot  slots.Slot
	Block string
	State string
}
