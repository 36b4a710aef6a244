package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
)

type cateringFixture struct {
	*env
	svc      *CateringService
	cart     InterfaceCartService
	clock    time.Time
	kitchen  models.WorkingGroup
	home     models.Household
	root     models.User
	manager  models.User
	cook     models.User
	resident models.User
	neighbor models.User
	noodles  *models.CateringMenuItem
	tea      *models.CateringMenuItem
}

func floatPtr(v float64) *float64 { return &v }

func newCateringFixture(t *testing.T) *cateringFixture {
	e := newEnv(t)
	redisSvc, _ := newTestRedis(t)
	c := e.community("Harbor")
	b := e.building(c.ID, "Tower A")

	f := &cateringFixture{
		env:      e,
		clock:    time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
		home:     e.household(&b.ID, "1502"),
		root:     e.admin("root"),
		manager:  e.user("manager"),
		cook:     e.user("cook"),
		resident: e.user("resident"),
		neighbor: e.user("neighbor"),
	}
	e.communityMember(c.ID, f.manager.ID, models.CommunityRoleManager)
	e.householdMember(f.home.ID, f.resident.ID, models.HouseholdRoleOwner)
	nextDoor := e.household(&b.ID, "1503")
	e.householdMember(nextDoor.ID, f.neighbor.ID, models.HouseholdRoleOwner)
	f.kitchen = e.group(c.ID, models.WorkingGroupCatering, f.cook.ID)

	maintenance := NewMaintenanceService(e.db, e.cfg, e.perms, e.notify).(*MaintenanceService)
	maintenance.now = func() time.Time { return f.clock }
	f.cart = NewCartService(e.db, redisSvc)
	f.svc = NewCateringService(e.db, e.cfg, e.perms, e.notify, maintenance, f.cart).(*CateringService)
	f.svc.now = func() time.Time { return f.clock }

	var err error
	f.noodles, err = f.svc.CreateMenuItem(f.manager.ID, &MenuItemRequest{
		CommunityID: &c.ID, Name: "Beef noodles", Category: "mains", Price: floatPtr(12.5), QuantityAvailable: intPtr(5),
	})
	require.NoError(t, err)
	f.tea, err = f.svc.CreateMenuItem(f.root.ID, &MenuItemRequest{
		Name: "Jasmine tea", Category: "drinks", Price: floatPtr(3), QuantityAvailable: intPtr(10),
	})
	require.NoError(t, err)
	return f
}

// order fills the cart for user and checks out to the fixture household
func (f *cateringFixture) order(userID uint, quantities map[uint]int) *models.CateringOrder {
	f.t.Helper()
	for id, q := range quantities {
		_, err := f.cart.AddItem(userID, id, q)
		require.NoError(f.t, err)
	}
	order, err := f.svc.PlaceOrder(userID, &OrderRequest{HouseholdID: f.home.ID})
	require.NoError(f.t, err)
	return order
}

func TestCartOperations(t *testing.T) {
	f := newCateringFixture(t)
	uid := f.resident.ID

	_, err := f.cart.AddItem(uid, f.noodles.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidParam)
	_, err = f.cart.AddItem(uid, 9999, 1)
	assert.ErrorIs(t, err, ErrMenuItemNotFound)

	cart, err := f.cart.AddItem(uid, f.noodles.ID, 2)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, cart.Total, 0.001)

	cart, err = f.cart.AddItem(uid, f.noodles.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	_, err = f.cart.AddItem(uid, f.noodles.ID, 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	cart, err = f.cart.AddItem(uid, f.tea.ID, 1)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.InDelta(t, 53.0, cart.Total, 0.001)

	cart, err = f.cart.RemoveItem(uid, f.noodles.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Jasmine tea", cart.Items[0].Name)

	require.NoError(t, f.cart.Clear(uid))
	cart, err = f.cart.GetCart(uid)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)

	off := false
	_, err = f.svc.UpdateMenuItem(f.manager.ID, f.noodles.ID, &MenuItemRequest{IsActive: &off})
	require.NoError(t, err)
	_, err = f.cart.AddItem(uid, f.noodles.ID, 1)
	assert.ErrorIs(t, err, ErrMenuItemInactive)
}

func TestMenuManagement(t *testing.T) {
	f := newCateringFixture(t)
	communityID := *f.noodles.CommunityID

	_, err := f.svc.CreateMenuItem(f.resident.ID, &MenuItemRequest{CommunityID: &communityID, Name: "Dumplings", Price: floatPtr(8)})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateMenuItem(f.manager.ID, &MenuItemRequest{Name: "Global soup", Price: floatPtr(4)})
	assert.ErrorIs(t, err, ErrForbidden, "only super admins manage the global menu")
	_, err = f.svc.CreateMenuItem(f.manager.ID, &MenuItemRequest{CommunityID: &communityID, Name: "Dumplings"})
	assert.ErrorIs(t, err, ErrInvalidParam)
	_, err = f.svc.CreateMenuItem(f.manager.ID, &MenuItemRequest{CommunityID: &communityID, Name: "Dumplings", Price: floatPtr(8), QuantityAvailable: intPtr(-1)})
	assert.ErrorIs(t, err, ErrInvalidParam)

	off := false
	_, err = f.svc.CreateMenuItem(f.manager.ID, &MenuItemRequest{CommunityID: &communityID, Name: "Dumplings", Category: "mains", Price: floatPtr(8), IsActive: &off})
	require.NoError(t, err)

	all, err := f.svc.ListMenu(MenuFilter{CommunityID: communityID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := f.svc.ListMenu(MenuFilter{CommunityID: communityID, ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	mains, err := f.svc.ListMenu(MenuFilter{Category: "mains", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, mains, 1)
	assert.Equal(t, "Beef noodles", mains[0].Name)

	updated, err := f.svc.UpdateMenuItem(f.manager.ID, f.noodles.ID, &MenuItemRequest{Price: floatPtr(13)})
	require.NoError(t, err)
	assert.InDelta(t, 13.0, updated.Price, 0.001)
	assert.Equal(t, "Beef noodles", updated.Name)

	_, err = f.svc.UpdateMenuItem(f.manager.ID, f.tea.ID, &MenuItemRequest{Price: floatPtr(1)})
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.DeleteMenuItem(f.manager.ID, f.noodles.ID))
	_, err = f.svc.GetMenuItem(f.noodles.ID)
	assert.ErrorIs(t, err, ErrMenuItemNotFound)
}

func TestPlaceOrder(t *testing.T) {
	f := newCateringFixture(t)

	_, err := f.svc.PlaceOrder(f.resident.ID, &OrderRequest{HouseholdID: f.home.ID})
	assert.ErrorIs(t, err, ErrCartEmpty)

	past := f.clock.Add(-time.Hour)
	_, err = f.svc.PlaceOrder(f.resident.ID, &OrderRequest{HouseholdID: f.home.ID, DeliveryType: models.DeliveryScheduled, ScheduledTime: &past})
	assert.ErrorIs(t, err, ErrInvalidScheduleTime)
	_, err = f.svc.PlaceOrder(f.resident.ID, &OrderRequest{HouseholdID: f.home.ID, DeliveryType: "drone"})
	assert.ErrorIs(t, err, ErrInvalidParam)
	_, err = f.svc.PlaceOrder(f.neighbor.ID, &OrderRequest{HouseholdID: f.home.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	order := f.order(f.resident.ID, map[uint]int{f.noodles.ID: 2, f.tea.ID: 1})
	assert.Equal(t, "ORD-2026-000001", order.OrderNumber)
	assert.Equal(t, models.OrderStatusSubmitted, order.Status)
	assert.Equal(t, models.DeliveryImmediate, order.DeliveryType)
	assert.InDelta(t, 28.0, order.TotalAmount, 0.001)
	assert.Len(t, order.Items, 2)

	noodles, err := f.svc.GetMenuItem(f.noodles.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, noodles.QuantityAvailable)

	cart, err := f.cart.GetCart(f.resident.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items, "checkout clears the cart")

	inbox := f.notificationsFor(f.cook.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationCateringOrder, inbox[0].Type)

	later := f.clock.Add(2 * time.Hour)
	_, err = f.cart.AddItem(f.resident.ID, f.tea.ID, 2)
	require.NoError(t, err)
	scheduled, err := f.svc.PlaceOrder(f.resident.ID, &OrderRequest{HouseholdID: f.home.ID, DeliveryType: models.DeliveryScheduled, ScheduledTime: &later})
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-000002", scheduled.OrderNumber)
	require.NotNil(t, scheduled.ScheduledTime)
}

func TestPlaceOrderChecksStockAtCheckout(t *testing.T) {
	f := newCateringFixture(t)
	_, err := f.cart.AddItem(f.resident.ID, f.tea.ID, 1)
	require.NoError(t, err)
	_, err = f.cart.AddItem(f.resident.ID, f.noodles.ID, 4)
	require.NoError(t, err)

	_, err = f.svc.UpdateMenuItem(f.manager.ID, f.noodles.ID, &MenuItemRequest{QuantityAvailable: intPtr(2)})
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(f.resident.ID, &OrderRequest{HouseholdID: f.home.ID})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	tea, err := f.svc.GetMenuItem(f.tea.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, tea.QuantityAvailable, "stock is restored when checkout fails")

	cart, err := f.cart.GetCart(f.resident.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestOrderStatusAndVisibility(t *testing.T) {
	f := newCateringFixture(t)
	order := f.order(f.resident.ID, map[uint]int{f.noodles.ID: 2})

	_, err := f.svc.UpdateOrderStatus(f.resident.ID, order.ID, models.OrderStatusAccepted)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateOrderStatus(f.cook.ID, order.ID, models.OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)

	accepted, err := f.svc.UpdateOrderStatus(f.cook.ID, order.ID, " Accepted ")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.ConfirmedAt)
	assert.Len(t, f.notificationsFor(f.resident.ID), 1)

	_, err = f.svc.GetOrder(f.neighbor.ID, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.GetOrder(f.cook.ID, order.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetOrder(f.manager.ID, order.ID)
	assert.NoError(t, err)

	mine, res, err := f.svc.ListOrders(f.resident.ID, OrderFilter{}, models.PaginationQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Items, 1)

	_, _, err = f.svc.ListOrders(f.resident.ID, OrderFilter{All: true}, models.PaginationQuery{})
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, err = f.svc.ListOrders(f.neighbor.ID, OrderFilter{HouseholdID: f.home.ID}, models.PaginationQuery{})
	assert.ErrorIs(t, err, ErrForbidden)

	ops, _, err := f.svc.ListOrders(f.cook.ID, OrderFilter{All: true, Status: models.OrderStatusAccepted}, models.PaginationQuery{})
	require.NoError(t, err)
	assert.Len(t, ops, 1)

	cancelled, err := f.svc.UpdateOrderStatus(f.cook.ID, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.NotNil(t, cancelled.CancelledAt)
	noodles, err := f.svc.GetMenuItem(f.noodles.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, noodles.QuantityAvailable, "cancelling returns the stock")

	_, err = f.svc.UpdateOrderStatus(f.cook.ID, order.ID, models.OrderStatusReady)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestKitchenWorkOrderIsIdempotent(t *testing.T) {
	f := newCateringFixture(t)
	order := f.order(f.resident.ID, map[uint]int{f.tea.ID: 3})

	_, _, err := f.svc.CreateKitchenWorkOrder(f.resident.ID, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	ticket, created, err := f.svc.CreateKitchenWorkOrder(f.cook.ID, order.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "MT-20260810-0001", ticket.TicketNumber)
	assert.Equal(t, models.TicketCategoryFoodOrder, ticket.Category)
	assert.Equal(t, models.TicketStatusAssigned, ticket.Status)
	assert.Equal(t, models.PriorityHigh, ticket.Priority)
	require.NotNil(t, ticket.WorkingGroupID)
	assert.Equal(t, f.kitchen.ID, *ticket.WorkingGroupID)
	require.NotNil(t, ticket.CateringOrderID)
	assert.Equal(t, order.ID, *ticket.CateringOrderID)

	again, created, err := f.svc.CreateKitchenWorkOrder(f.cook.ID, order.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, ticket.ID, again.ID)

	got, err := f.svc.GetOrder(f.resident.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, got.Status)
	require.NotNil(t, got.TicketID)
	assert.Equal(t, ticket.ID, *got.TicketID)

	other := f.order(f.resident.ID, map[uint]int{f.tea.ID: 1})
	_, err = f.svc.UpdateOrderStatus(f.cook.ID, other.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	_, _, err = f.svc.CreateKitchenWorkOrder(f.cook.ID, other.ID)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestExportOrders(t *testing.T) {
	f := newCateringFixture(t)
	first := f.order(f.resident.ID, map[uint]int{f.noodles.ID: 1, f.tea.ID: 2})
	f.order(f.resident.ID, map[uint]int{f.tea.ID: 1})

	_, err := f.svc.ExportOrders(f.resident.ID, OrderFilter{All: true})
	assert.ErrorIs(t, err, ErrForbidden)

	data, err := f.svc.ExportOrders(f.cook.ID, OrderFilter{All: true})
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"Orders", "Order Items"}, book.GetSheetList())

	rows, err := book.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Order Number", rows[0][1])
	assert.ElementsMatch(t, []string{first.OrderNumber, "ORD-2026-000002"}, []string{rows[1][1], rows[2][1]})

	items, err := book.GetRows("Order Items")
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestOrderStatusMovesForwardOnly(t *testing.T) {
	f := newCateringFixture(t)
	order := f.order(f.resident.ID, map[uint]int{f.noodles.ID: 1})

	for _, status := range []string{models.OrderStatusAccepted, models.OrderStatusReady, models.OrderStatusDelivered} {
		_, err := f.svc.UpdateOrderStatus(f.cook.ID, order.ID, status)
		require.NoError(t, err, status)
	}
	_, err := f.svc.UpdateOrderStatus(f.cook.ID, order.ID, models.OrderStatusSubmitted)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
	_, err = f.svc.UpdateOrderStatus(f.cook.ID, order.ID, models.OrderStatusPreparing)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)

	closed, err := f.svc.UpdateOrderStatus(f.cook.ID, order.ID, models.OrderStatusClosed)
	require.NoError(t, err)
	assert.NotNil(t, closed.ClosedAt)
	assert.NotNil(t, closed.DeliveredAt)
}

func TestConcurrentCancelReturnsStockOnce(t *testing.T) {
	f := newCateringFixture(t)
	order := f.order(f.resident.ID, map[uint]int{f.noodles.ID: 2})

	// 另一个请求在本次条件更新前已取消订单
	raced := false
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:cancel_race", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "catering_orders" {
			return
		}
		raced = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE catering_orders SET status = ? WHERE id = ?", models.OrderStatusCancelled, order.ID)
	}))

	_, err := f.svc.UpdateOrderStatus(f.cook.ID, order.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
	assert.True(t, raced)

	noodles, err := f.svc.GetMenuItem(f.noodles.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, noodles.QuantityAvailable, "the losing cancel must not return stock")
}
