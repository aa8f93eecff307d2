package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"shop-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOrders struct {
	mu     sync.Mutex
	orders map[int64]*models.WorkOrder
	nextID int64
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[int64]*models.WorkOrder)}
}

func (m *memOrders) CreateWorkOrder(ctx context.Context, wo *models.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	wo.ID = m.nextID
	wo.CreatedAt = time.Now()
	wo.UpdatedAt = wo.CreatedAt
	cp := *wo
	m.orders[wo.ID] = &cp
	return nil
}

func (m *memOrders) GetWorkOrderByID(ctx context.Context, id int64) (*models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wo, ok := m.orders[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *wo
	return &cp, nil
}

func (m *memOrders) UpdateWorkOrderStatus(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wo, ok := m.orders[id]; ok {
		wo.Status = status
	}
	return nil
}

type capturedEvents struct {
	mu        sync.Mutex
	created   []*models.WorkOrderCreatedEvent
	rebuilt   []*models.WorkOrderRebuiltEvent
	completed []*models.AllocationCompletedEvent
}

func (p *capturedEvents) PublishWorkOrderCreated(ctx context.Context, e *models.WorkOrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return nil
}

func (p *capturedEvents) PublishWorkOrderRebuilt(ctx context.Context, e *models.WorkOrderRebuiltEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebuilt = append(p.rebuilt, e)
	return nil
}

func (p *capturedEvents) PublishAllocationCompleted(ctx context.Context, e *models.AllocationCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, e)
	return nil
}

type memCache struct {
	mu          sync.Mutex
	idempotency map[string]int64
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{idempotency: make(map[string]int64)}
}

func (c *memCache) GetSnapshot(ctx context.Context, sku string) (*InventorySnapshot, error) {
	return nil, nil
}

func (c *memCache) SetSnapshot(ctx context.Context, snap *InventorySnapshot, ttl time.Duration) error {
	return nil
}

func (c *memCache) InvalidateSnapshot(ctx context.Context, sku string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, sku)
	return nil
}

func (c *memCache) GetIdempotentWorkOrder(ctx context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.idempotency[key]
	return id, ok, nil
}

func (c *memCache) SetIdempotentWorkOrder(ctx context.Context, key string, workOrderID int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idempotency[key] = workOrderID
	return nil
}

func newTestWorkOrderService(m *memStore) (*WorkOrderService, *memOrders, *capturedEvents, *memCache) {
	orders := newMemOrders()
	events := &capturedEvents{}
	cache := newMemCache()
	svc := NewWorkOrderService(orders, m, newTestAllocator(m), events, m, cache)
	return svc, orders, events, cache
}

func TestCreateWorkOrderPublishesJob(t *testing.T) {
	m := newMemStore()
	svc, orders, events, _ := newTestWorkOrderService(m)

	resp, err := svc.CreateWorkOrder(context.Background(), &CreateWorkOrderRequest{
		TrailerID: "TR-55",
		Customer:  "Hauling Co",
		Parts: []PartLineRequest{
			{SKU: "BRK-100", PartName: "brake pad", Quantity: 2, UnitCost: 2500},
		},
		Actor: "desk",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderStatusOpen, resp.Status)

	// The caller is answered before any allocation runs.
	wo, err := orders.GetWorkOrderByID(context.Background(), resp.WorkOrderID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderStatusOpen, wo.Status)
	assert.Empty(t, m.journalRows())

	require.Len(t, events.created, 1)
	assert.Equal(t, resp.WorkOrderID, events.created[0].WorkOrderID)
	require.Len(t, events.created[0].Lines, 1)
	assert.Equal(t, "BRK-100", events.created[0].Lines[0].SKU)
}

func TestCreateWorkOrderIdempotency(t *testing.T) {
	m := newMemStore()
	svc, _, events, _ := newTestWorkOrderService(m)

	req := &CreateWorkOrderRequest{
		Parts:          []PartLineRequest{{SKU: "BRK-100", Quantity: 1}},
		IdempotencyKey: "retry-123",
	}

	first, err := svc.CreateWorkOrder(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.CreateWorkOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.WorkOrderID, second.WorkOrderID)

	// Only one allocation job was published.
	assert.Len(t, events.created, 1)
}

func TestCreateWorkOrderValidation(t *testing.T) {
	m := newMemStore()
	svc, _, events, _ := newTestWorkOrderService(m)

	var vErr *ValidationError

	_, err := svc.CreateWorkOrder(context.Background(), &CreateWorkOrderRequest{})
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.CreateWorkOrder(context.Background(), &CreateWorkOrderRequest{
		Parts: []PartLineRequest{{SKU: "BRK-100", Quantity: 0}},
	})
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)

	assert.Empty(t, events.created)
}

func TestHandleWorkOrderCreatedAllocates(t *testing.T) {
	m := newMemStore()
	m.addLot("BRK-100", 10, time.Now(), "INV-9")
	svc, orders, events, cache := newTestWorkOrderService(m)

	wo := &models.WorkOrder{Status: models.WorkOrderStatusOpen}
	require.NoError(t, orders.CreateWorkOrder(context.Background(), wo))

	err := svc.HandleWorkOrderCreated(context.Background(), &models.WorkOrderCreatedEvent{
		WorkOrderID: wo.ID,
		Actor:       "desk",
		Lines: []models.PartLineData{
			{SKU: "BRK-100", PartName: "brake pad", Quantity: 4, UnitCost: 2500},
		},
	})
	require.NoError(t, err)

	got, err := orders.GetWorkOrderByID(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderStatusAllocated, got.Status)

	rows := m.journalRows()
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].Quantity)

	require.Len(t, events.completed, 1)
	assert.Equal(t, 4, events.completed[0].TotalRequested)
	assert.Equal(t, 4, events.completed[0].TotalDeducted)

	assert.Contains(t, cache.invalidated, "BRK-100")
}

func TestHandleWorkOrderCreatedUnknownSKUNeedsAttention(t *testing.T) {
	m := newMemStore()
	m.addLot("BRK-100", 10, time.Now(), "")
	svc, orders, events, _ := newTestWorkOrderService(m)

	wo := &models.WorkOrder{Status: models.WorkOrderStatusOpen}
	require.NoError(t, orders.CreateWorkOrder(context.Background(), wo))

	// One good line, one unknown SKU: lines are independent.
	err := svc.HandleWorkOrderCreated(context.Background(), &models.WorkOrderCreatedEvent{
		WorkOrderID: wo.ID,
		Lines: []models.PartLineData{
			{SKU: "BRK-100", Quantity: 2},
			{SKU: "NOPE-1", Quantity: 3},
		},
	})
	require.NoError(t, err)

	got, err := orders.GetWorkOrderByID(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderStatusAttention, got.Status)

	rows := m.journalRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "BRK-100", rows[0].SKU)

	require.Len(t, events.completed, 1)
	assert.Equal(t, 5, events.completed[0].TotalRequested)
	assert.Equal(t, 2, events.completed[0].TotalDeducted)
}

func TestRebuildIsNetAdditional(t *testing.T) {
	m := newMemStore()
	lot := m.addLot("BRK-100", 20, time.Now(), "")
	svc, orders, _, _ := newTestWorkOrderService(m)

	wo := &models.WorkOrder{Status: models.WorkOrderStatusOpen}
	require.NoError(t, orders.CreateWorkOrder(context.Background(), wo))

	event := &models.WorkOrderRebuiltEvent{
		WorkOrderID: wo.ID,
		Lines: []models.PartLineData{
			{SKU: "BRK-100", PartName: "brake pad", Quantity: 4, UnitCost: 2500},
		},
	}

	// Two rebuilds with the same parts list: journal rows are replaced,
	// but the debited stock is never returned.
	require.NoError(t, svc.HandleWorkOrderRebuilt(context.Background(), event))
	require.NoError(t, svc.HandleWorkOrderRebuilt(context.Background(), event))

	rows := m.journalRows()
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].Quantity)

	got := m.lotByID(lot.ID)
	assert.Equal(t, 12, got.QuantityRemaining)
}
