package chainclient

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockChainBridge is a testify mock of ChainBridge.
type MockChainBridge struct {
	mock.Mock
}

func (m *MockChainBridge) GetNetworkStatus(ctx context.Context) (*NetworkStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*NetworkStatus), args.Error(1)
}

func (m *MockChainBridge) GetParticipants(ctx context.Context) ([]Participant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Participant), args.Error(1)
}

func (m *MockChainBridge) SubmitWeights(ctx context.Context, submitter string, pairs []WeightPair, waitForInclusion bool) error {
	args := m.Called(ctx, submitter, pairs, waitForInclusion)
	return args.Error(0)
}

var _ ChainBridge = (*MockChainBridge)(nil)
