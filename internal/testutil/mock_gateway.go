package testutil

import (
	"context"
	"sync"

	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/gateway"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// MockGateway is a scriptable payment gateway for tests. Charges succeed
// unless DeclineAll or a scripted failure count says otherwise.
type MockGateway struct {
	mu sync.Mutex

	GatewayName string

	// DeclineAll makes every charge come back declined
	DeclineAll bool
	// DeclineNext declines the next N charges, then succeeds
	DeclineNext int
	// FailAll makes every charge return a transport error
	FailAll bool

	Charges []gateway.ChargeRequest
	Refunds []string
	Voids   []string
}

func NewMockGateway(name string) *MockGateway {
	return &MockGateway{GatewayName: name}
}

func (g *MockGateway) Name() string {
	return g.GatewayName
}

func (g *MockGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Charges = append(g.Charges, req)

	if g.FailAll {
		return nil, ierr.NewError("gateway unreachable").
			Mark(ierr.ErrGateway)
	}
	if g.DeclineAll || g.DeclineNext > 0 {
		if g.DeclineNext > 0 {
			g.DeclineNext--
		}
		return &gateway.ChargeResult{
			Declined:      true,
			DeclineReason: "card declined",
		}, nil
	}

	return &gateway.ChargeResult{
		Reference: types.GenerateUUID(),
	}, nil
}

func (g *MockGateway) Refund(ctx context.Context, reference string, amount decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Refunds = append(g.Refunds, reference)
	return nil
}

func (g *MockGateway) Void(ctx context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Voids = append(g.Voids, reference)
	return nil
}

// ChargeCount returns how many charge attempts the gateway saw
func (g *MockGateway) ChargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Charges)
}
