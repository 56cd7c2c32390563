// internal/domain/checkout/store.go
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/battery-checkout/internal/domain/order"
	"github.com/your-org/battery-checkout/internal/domain/pricing"
	"github.com/your-org/battery-checkout/internal/domain/product"
)

// Promo is a code pending or applied on a session
type Promo struct {
	Code           string               `json:"code"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	DiscountType   pricing.DiscountType `json:"discount_type"`
}

// Snapshot is the persisted form of a session
type Snapshot struct {
	ID                string                   `json:"id"`
	UserID            uint                     `json:"user_id"`
	Version           uint64                   `json:"version"`
	ProductID         *product.ProductID       `json:"product_id,omitempty"`
	Products          []product.Item           `json:"products,omitempty"`
	BrandID           *int                     `json:"brand_id,omitempty"`
	Location          *order.Location          `json:"location,omitempty"`
	Customer          order.Customer           `json:"customer"`
	Vehicle           order.Vehicle            `json:"vehicle"`
	TradeIn           bool                     `json:"trade_in"`
	Promo             *Promo                   `json:"promo,omitempty"`
	PromoDetails      *order.PromoDetails      `json:"promo_details,omitempty"`
	LatestCalculation *order.Calculation       `json:"latest_calculation,omitempty"`
	Order             *order.CreationResult    `json:"order,omitempty"`
	Statuses          map[OperationKind]Status `json:"statuses"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// Store persists session snapshots between requests and restarts
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, id string) (*Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps snapshots in process. Used when redis is disabled and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Snapshot
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Snapshot)}
}

// Save stores a copy of the snapshot
func (m *MemoryStore) Save(_ context.Context, snap *Snapshot) error {
	cp := *snap
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.items[snap.ID]; ok && current.Version > snap.Version {
		return nil
	}
	m.items[snap.ID] = &cp
	return nil
}

// Load returns a copy of the stored snapshot
func (m *MemoryStore) Load(_ context.Context, id string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *snap
	return &cp, nil
}

// Delete removes a snapshot; deleting an unknown id is not an error
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}
