package beaconapi

import (
	"context"

	"github.com/Rurutia1027/eth-analysis-backend/slots"
)

// Client is the capability set the sync core needs from a beacon node. It
// is implemented by HTTPClient against a live node and by MockClient in
// tests and replay. Every method mirrors one upstream endpoint; test
// doubles must implement all of them even when a given scenario never
// exercises some.
type Client interface {
	// GetBlockByBlockRoot fetches a block by its block_root. A nil block
	// with no error means the root is unknown to the node.
	GetBlockByBlockRoot(ctx context.Context, blockRoot string) (*Block, error)

	// GetBlockBySlot fetches a block by slot. A nil block with no error
	// means the slot's proposal was missed.
	GetBlockBySlot(ctx context.Context, slot slots.Slot) (*Block, error)

	// GetHeaderBySlot fetches the signed header at slot. Fails if the
	// slot's mapped wall-clock time is in the future.
	GetHeaderBySlot(ctx context.Context, slot slots.Slot) (*SignedHeaderEnvelope, error)

	// GetHeaderByBlockRoot fetches the signed header for a block root.
	GetHeaderByBlockRoot(ctx context.Context, blockRoot string) (*SignedHeaderEnvelope, error)

	// GetHeaderByStateRoot fetches the signed header for a state root.
	GetHeaderByStateRoot(ctx context.Context, stateRoot string) (*SignedHeaderEnvelope, error)

	// GetLastHeader fetches the head-of-chain header. Always present.
	GetLastHeader(ctx context.Context) (*SignedHeaderEnvelope, error)

	// GetLastBlock fetches the head-of-chain block. Always present.
	GetLastBlock(ctx context.Context) (*Block, error)

	// GetLastFinalizedBlock fetches the last finalized block. Always
	// present.
	GetLastFinalizedBlock(ctx context.Context) (*Block, error)

	// GetStateRootBySlot fetches the state root for slot, or nil if the
	// node has no opinion about it (e.g. far future).
	GetStateRootBySlot(ctx context.Context, slot slots.Slot) (*string, error)

	// GetValidatorBalances fetches every validator balance for a state
	// root, or nil if the state root is unknown.
	GetValidatorBalances(ctx context.Context, stateRoot string) ([]ValidatorBalance, error)

	// GetValidatorsByState fetches every validator envelope (status +
	// effective balance) for a state root.
	GetValidatorsByState(ctx context.Context, stateRoot string) ([]ValidatorEnvelope, error)

	// GetLastFinalityCheckpoint fetches the current finality checkpoint.
	GetLastFinalityCheckpoint(ctx context.Context) (*FinalityCheckpoint, error)

	// StreamHeadEvents subscribes to the `head` SSE topic starting from
	// startSlot (informational only; the subscription itself always
	// starts from "now" on the node). Events are pushed to the returned
	// channel until ctx is cancelled or the stream ends, at which point
	// the channel is closed. A transport failure closes the channel and
	// is reported via the returned error channel.
	StreamHeadEvents(ctx context.Context, startSlot slots.Slot) (<-chan HeadEvent, <-chan error)
}

// EffectiveBalanceSum returns the sum of effective_balance over every
// active validator (status active_ongoing, active_exiting or
// active_slashed) at the given state root.
func EffectiveBalanceSum(ctx context.Context, c Client, stateRoot string) (Gwei, error) {
	validators, err := c.GetValidatorsByState(ctx, stateRoot)
	if err != nil {
		return 0, err
	}
	var sum Gwei
	for _, v := range validators {
		if v.Status.IsActive() {
			sum += v.Validator.EffectiveBalance
		}
	}
	return sum, nil
}
