package pool

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// PlaceholderAddress is reported by simulated instances.
const PlaceholderAddress = "ip-address"

// DefaultSimulatedDelay is the creation time a SimulatedCreator pretends.
const DefaultSimulatedDelay = 2 * time.Second

// SimulatedCreator pretends to create instances. It waits Delay and returns
// a random hex id with a placeholder address.
type SimulatedCreator struct {
	Delay time.Duration
}

// CreateInstance implements InstanceCreator.
func (s SimulatedCreator) CreateInstance(ctx context.Context, _ CreateRequest) (*CreatedInstance, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	id := uuid.New()
	return &CreatedInstance{
		ID:      hex.EncodeToString(id[:]),
		Address: PlaceholderAddress,
	}, nil
}
