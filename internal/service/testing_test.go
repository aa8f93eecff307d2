package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"shop-service/internal/models"
)

var errNotFound = errors.New("not found")

// memStore is an in-memory stand-in for the Postgres store. DebitLot holds
// the mutex across its read-and-decrement, matching the row-lock semantics
// of the real store.
type memStore struct {
	mu        sync.Mutex
	lots      map[int64]*models.Lot
	nextLotID int64
	balances  map[string]*models.MasterBalance
	journal   []models.ConsumptionRecord
	nextRecID int64
	audits    []models.AuditEntry

	failDebitLot map[int64]error
	failFallback error
	failJournal  error
	failAudit    error
}

func newMemStore() *memStore {
	return &memStore{
		lots:         make(map[int64]*models.Lot),
		balances:     make(map[string]*models.MasterBalance),
		failDebitLot: make(map[int64]error),
	}
}

func (m *memStore) addLot(sku string, remaining int, receivedAt time.Time, invoiceRef string) *models.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextLotID++
	lot := &models.Lot{
		ID:                m.nextLotID,
		SKU:               sku,
		QuantityReceived:  remaining,
		QuantityRemaining: remaining,
		Status:            models.LotStatusPending,
		ReceivedAt:        receivedAt,
		InvoiceRef:        invoiceRef,
	}
	m.lots[lot.ID] = lot
	return lot
}

func (m *memStore) setBalance(sku string, onHand, issued int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[sku] = &models.MasterBalance{SKU: sku, OnHand: onHand, Issued: issued}
}

func (m *memStore) lotByID(id int64) models.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.lots[id]
}

func (m *memStore) journalRows() []models.ConsumptionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]models.ConsumptionRecord, len(m.journal))
	copy(rows, m.journal)
	return rows
}

func (m *memStore) CreateLot(ctx context.Context, lot *models.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextLotID++
	lot.ID = m.nextLotID
	lot.QuantityRemaining = lot.QuantityReceived
	lot.Status = models.LotStatusPending
	lot.ReceivedAt = time.Now()
	cp := *lot
	m.lots[lot.ID] = &cp
	return nil
}

func (m *memStore) GetLot(ctx context.Context, id int64) (*models.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lot, ok := m.lots[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *lot
	return &cp, nil
}

func (m *memStore) ListPendingLots(ctx context.Context, sku string) ([]models.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lots []models.Lot
	for _, lot := range m.lots {
		if lot.SKU == sku && lot.Status == models.LotStatusPending && lot.QuantityRemaining > 0 {
			lots = append(lots, *lot)
		}
	}
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].ReceivedAt.Equal(lots[j].ReceivedAt) {
			return lots[i].ID < lots[j].ID
		}
		return lots[i].ReceivedAt.Before(lots[j].ReceivedAt)
	})
	return lots, nil
}

func (m *memStore) ListPendingLotsByDestination(ctx context.Context, destination string) ([]models.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lots []models.Lot
	for _, lot := range m.lots {
		if lot.Destination == destination && lot.Status == models.LotStatusPending && lot.QuantityRemaining > 0 {
			lots = append(lots, *lot)
		}
	}
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].ReceivedAt.Equal(lots[j].ReceivedAt) {
			return lots[i].ID < lots[j].ID
		}
		return lots[i].ReceivedAt.Before(lots[j].ReceivedAt)
	})
	return lots, nil
}

func (m *memStore) HasLots(ctx context.Context, sku string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, lot := range m.lots {
		if lot.SKU == sku {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) DebitLot(ctx context.Context, lotID int64, want int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failDebitLot[lotID]; ok {
		return 0, err
	}

	lot, ok := m.lots[lotID]
	if !ok {
		return 0, errNotFound
	}
	if lot.QuantityRemaining <= 0 {
		return 0, nil
	}

	take := want
	if take > lot.QuantityRemaining {
		take = lot.QuantityRemaining
	}
	lot.QuantityRemaining -= take
	if lot.QuantityRemaining == 0 {
		lot.Status = models.LotStatusUsed
	}
	return take, nil
}

func (m *memStore) PendingQuantity(ctx context.Context, sku string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, lot := range m.lots {
		if lot.SKU == sku && lot.Status == models.LotStatusPending {
			total += lot.QuantityRemaining
		}
	}
	return total, nil
}

func (m *memStore) GetBalance(ctx context.Context, sku string) (*models.MasterBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal, ok := m.balances[sku]
	if !ok {
		return nil, nil
	}
	cp := *bal
	return &cp, nil
}

func (m *memStore) DebitFallback(ctx context.Context, sku string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failFallback != nil {
		return m.failFallback
	}

	bal, ok := m.balances[sku]
	if !ok {
		bal = &models.MasterBalance{SKU: sku}
		m.balances[sku] = bal
	}
	bal.OnHand -= quantity
	bal.Issued += quantity
	return nil
}

func (m *memStore) AdjustManually(ctx context.Context, sku string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal, ok := m.balances[sku]
	if !ok {
		bal = &models.MasterBalance{SKU: sku}
		m.balances[sku] = bal
	}
	bal.OnHand += delta
	return nil
}

func (m *memStore) RecordConsumption(ctx context.Context, rec *models.ConsumptionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failJournal != nil {
		return m.failJournal
	}

	m.nextRecID++
	rec.ID = m.nextRecID
	rec.CreatedAt = time.Now()
	m.journal = append(m.journal, *rec)
	return nil
}

func (m *memStore) DeleteConsumptionForWorkOrder(ctx context.Context, workOrderID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []models.ConsumptionRecord
	var deleted int64
	for _, rec := range m.journal {
		if rec.WorkOrderID == workOrderID {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.journal = kept
	return deleted, nil
}

func (m *memStore) ListConsumptionForWorkOrder(ctx context.Context, workOrderID int64) ([]models.ConsumptionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var recs []models.ConsumptionRecord
	for _, rec := range m.journal {
		if rec.WorkOrderID == workOrderID {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (m *memStore) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAudit != nil {
		return m.failAudit
	}
	m.audits = append(m.audits, *entry)
	return nil
}
