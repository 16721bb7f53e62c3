package beaconapi

import (
	"context"
	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/slots"
)

// MockClient is a scripted, in-memory Client used by tests and by replay
// tooling. Every slot is configured independently via Headers/Blocks/
// Balances/StateRoots; a slot absent from Headers is a missed proposal.
type MockClient struct {
	Headers    map[slots.Slot]SignedHeaderEnvelope
	Blocks     map[string]Block // keyed by block_root
	StateRoots map[slots.Slot]string
	Balances   map[string][]ValidatorBalance // keyed by state_root
	Validators map[string][]ValidatorEnvelope
	LastHeader SignedHeaderEnvelope
	Finality   FinalityCheckpoint

	// HeadEvents is replayed verbatim, in full, by every StreamHeadEvents call.
	HeadEvents []HeadEvent
}

// NewMockClient returns an empty, ready-to-configure MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		Headers:    map[slots.Slot]SignedHeaderEnvelope{},
		Blocks:     map[string]Block{},
		StateRoots: map[slots.Slot]string{},
		Balances:   map[string][]ValidatorBalance{},
		Validators: map[string][]ValidatorEnvelope{},
	}
}

var _ Client = (*MockClient)(nil)

// AddSlot is a test convenience that wires up a header, block, state root
// and balances for a slot that has a block proposal.
func (m *MockClient) AddSlot(slot slots.Slot, blockRoot, stateRoot, parentRoot string, balances []ValidatorBalance) {
	header := SignedHeaderEnvelope{
		Root: blockRoot,
		Header: HeaderEnvelope{Message: Header{
			Slot:       slot,
			ParentRoot: parentRoot,
			StateRoot:  stateRoot,
		}},
	}
	m.Headers[slot] = header
	m.Blocks[blockRoot] = Block{
		Slot:       slot,
		ParentRoot: parentRoot,
		StateRoot:  stateRoot,
		BlockRoot:  blockRoot,
	}
	m.StateRoots[slot] = stateRoot
	if balances != nil {
		m.Balances[stateRoot] = balances
	}
	m.LastHeader = header
}

// AddMissedSlot wires up only a state root for a slot with no proposal.
func (m *MockClient) AddMissedSlot(slot slots.Slot, stateRoot string) {
	m.StateRoots[slot] = stateRoot
}

func (m *MockClient) GetBlockByBlockRoot(_ context.Context, blockRoot string) (*Block, error) {
	b, ok := m.Blocks[blockRoot]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *MockClient) GetBlockBySlot(_ context.Context, slot slots.Slot) (*Block, error) {
	h, ok := m.Headers[slot]
	if !ok {
		return nil, nil
	}
	b, ok := m.Blocks[h.Root]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *MockClient) GetHeaderBySlot(_ context.Context, slot slots.Slot) (*SignedHeaderEnvelope, error) {
	h, ok := m.Headers[slot]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *MockClient) GetHeaderByBlockRoot(_ context.Context, blockRoot string) (*SignedHeaderEnvelope, error) {
	for _, h := range m.Headers {
		if h.Root == blockRoot {
			return &h, nil
		}
	}
	return nil, nil
}

func (m *MockClient) GetHeaderByStateRoot(_ context.Context, stateRoot string) (*SignedHeaderEnvelope, error) {
	for _, h := range m.Headers {
		if h.Header.Message.StateRoot == stateRoot {
			return &h, nil
		}
	}
	return nil, nil
}

func (m *MockClient) GetLastHeader(_ context.Context) (*SignedHeaderEnvelope, error) {
	h := m.LastHeader
	return &h, nil
}

func (m *MockClient) GetLastBlock(_ context.Context) (*Block, error) {
	b, ok := m.Blocks[m.LastHeader.Root]
	if !ok {
		return nil, fmt.Errorf("mock: no block for last header root %s", m.LastHeader.Root)
	}
	return &b, nil
}

func (m *MockClient) GetLastFinalizedBlock(_ context.Context) (*Block, error) {
	return m.GetLastBlock(context.Background())
}

func (m *MockClient) GetStateRootBySlot(_ context.Context, slot slots.Slot) (*string, error) {
	root, ok := m.StateRoots[slot]
	if !ok {
		return nil, nil
	}
	return &root, nil
}

func (m *MockClient) GetValidatorBalances(_ context.Context, stateRoot string) ([]ValidatorBalance, error) {
	balances, ok := m.Balances[stateRoot]
	if !ok {
		return nil, nil
	}
	return balances, nil
}

func (m *MockClient) GetValidatorsByState(_ context.Context, stateRoot string) ([]ValidatorEnvelope, error) {
	return m.Validators[stateRoot], nil
}

func (m *MockClient) GetLastFinalityCheckpoint(_ context.Context) (*FinalityCheckpoint, error) {
	return &m.Finality, nil
}

func (m *MockClient) StreamHeadEvents(ctx context.Context, _ slots.Slot) (<-chan HeadEvent, <-chan error) {
	events := make(chan HeadEvent, len(m.HeadEvents))
	errs := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errs)
		for _, e := range m.HeadEvents {
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, errs
}
