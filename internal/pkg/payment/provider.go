package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Provider names
const (
	ProviderStub    = "stub"
	ProviderGateway = "gateway"
)

// Gateway statuses normalized by MapStatus.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

var ErrInvalidRequest = errors.New("invalid payment request")

// Provider moves money between the platform and the outside world.
// Escrow settlement never calls it; only wallet top-up and withdrawal do.
type Provider interface {
	// CreateTopUp charges an instrument and reports whether funds were captured.
	CreateTopUp(ctx context.Context, req Request) (*Result, error)

	// CreateWithdrawal pays out to a destination.
	CreateWithdrawal(ctx context.Context, req Request) (*Result, error)

	// Name returns the provider identifier
	Name() string
}

// Request is a provider-agnostic money movement. Amount is in minor units.
type Request struct {
	Amount    int64
	Method    string            // card, bank_transfer, kaspi, ...
	Details   map[string]string // instrument info for top-ups, destination info for withdrawals
	Reference string            // internal idempotency reference
}

// Validate checks the fields every provider relies on.
func (r Request) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Method) == "" {
		return fmt.Errorf("%w: method is required", ErrInvalidRequest)
	}
	return nil
}

// Result is the synchronous outcome of a provider call.
type Result struct {
	Success    bool
	GatewayRef string
	Status     string
}

// Registry holds provider instances by name
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a payment provider
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get retrieves a payment provider by name
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("payment provider '%s' not found", name)
	}
	return p, nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MapStatus converts a gateway-specific status to completed, pending or failed.
func MapStatus(gatewayStatus string) string {
	switch strings.ToLower(strings.TrimSpace(gatewayStatus)) {
	case "success", "completed", "paid", "approved", "authorized", "settled":
		return StatusCompleted
	case "failed", "cancelled", "declined", "rejected", "error":
		return StatusFailed
	default:
		return StatusPending
	}
}
