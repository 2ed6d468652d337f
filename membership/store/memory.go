// Package store provides an in-memory membership.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/memberly/dues-engine/membership"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	members  map[string]membership.Member
	plans    map[string]membership.PlanRecord
	payments map[string]membership.PaymentRecord
}

func NewMemory() *Memory {
	return &Memory{
		members:  make(map[string]membership.Member),
		plans:    make(map[string]membership.PlanRecord),
		payments: make(map[string]membership.PaymentRecord),
	}
}

// =============================================================================
// MEMBERS
// =============================================================================

func (m *Memory) SaveMember(_ context.Context, member membership.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[member.ID] = member
	return nil
}

func (m *Memory) GetMember(_ context.Context, id string) (*membership.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.members[id]
	if !ok {
		return nil, nil
	}
	return &member, nil
}

func (m *Memory) ListMembers(_ context.Context) ([]membership.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := make([]membership.Member, 0, len(m.members))
	for _, member := range m.members {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

// =============================================================================
// PLANS
// =============================================================================

func (m *Memory) SavePlan(_ context.Context, plan membership.PlanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.ID] = plan
	return nil
}

func (m *Memory) GetPlan(_ context.Context, id string) (*membership.PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (m *Memory) ListPlans(_ context.Context) ([]membership.PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plans := make([]membership.PlanRecord, 0, len(m.plans))
	for _, plan := range m.plans {
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) AddPayment(_ context.Context, p membership.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id string) (*membership.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) DeletePayment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payments, id)
	return nil
}

func (m *Memory) PaymentsByMember(_ context.Context, memberID string) ([]membership.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []membership.PaymentRecord
	for _, p := range m.payments {
		if p.MemberID == memberID {
			result = append(result, p)
		}
	}
	// Stable order for reproducible reads; the engine re-sorts by
	// paid-at anyway.
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
