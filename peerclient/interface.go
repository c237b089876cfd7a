package peerclient

import "context"

// PeerClient queries one remote peer. A client is bound to a single endpoint
// at creation; the dispatcher asks the factory for one client per candidate.
type PeerClient interface {
	Forward(ctx context.Context, req ForwardRequest) (*ForwardResponse, error)
}

// Ensure HTTPPeerClient implements PeerClient
var _ PeerClient = (*HTTPPeerClient)(nil)
