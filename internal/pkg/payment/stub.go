package payment

import (
	"context"
	"fmt"
	"sync/atomic"
)

// StubProvider is a deterministic provider for development and tests.
// Requests whose Details contain "decline"="true" are declined.
type StubProvider struct {
	seq atomic.Int64
}

func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

func (p *StubProvider) Name() string { return ProviderStub }

func (p *StubProvider) CreateTopUp(ctx context.Context, req Request) (*Result, error) {
	return p.respond("topup", req)
}

func (p *StubProvider) CreateWithdrawal(ctx context.Context, req Request) (*Result, error) {
	return p.respond("withdrawal", req)
}

func (p *StubProvider) respond(kind string, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ref := fmt.Sprintf("stub_%s_%d", kind, p.seq.Add(1))
	if req.Details["decline"] == "true" {
		return &Result{Success: false, GatewayRef: ref, Status: StatusFailed}, nil
	}
	return &Result{Success: true, GatewayRef: ref, Status: StatusCompleted}, nil
}
