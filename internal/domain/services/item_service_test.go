package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub-http-service/internal/domain/models"
)

func intPtr(v int) *int { return &v }

type itemFixture struct {
	*env
	svc     InterfaceItemService
	owner   models.User
	member  models.User
	visitor models.User
	home    models.Household
}

func newItemFixture(t *testing.T) *itemFixture {
	e := newEnv(t)
	f := &itemFixture{
		env:     e,
		svc:     NewItemService(e.db, e.cfg, e.perms, e.notify),
		owner:   e.user("owner"),
		member:  e.user("member"),
		visitor: e.user("visitor"),
		home:    e.household(nil, "home"),
	}
	e.householdMember(f.home.ID, f.owner.ID, models.HouseholdRoleOwner)
	e.householdMember(f.home.ID, f.member.ID, models.HouseholdRoleUser)
	e.householdMember(f.home.ID, f.visitor.ID, models.HouseholdRoleVisitor)
	return f
}

func TestCheckoutTriggersLowStockOnce(t *testing.T) {
	f := newItemFixture(t)

	item, err := f.svc.CreateItem(f.owner.ID, f.home.ID, &ItemRequest{
		Name: "Milk", Quantity: intPtr(5), MinQuantity: intPtr(2), Unit: "bottle", Room: "Kitchen", Cabinet: "Fridge",
	})
	require.NoError(t, err)
	assert.Equal(t, "Kitchen/Fridge", item.Location())
	assert.Empty(t, f.notificationsFor(f.owner.ID))

	_, err = f.svc.Checkout(f.member.ID, item.ID, 6, "")
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	_, err = f.svc.Checkout(f.member.ID, item.ID, 0, "")
	assert.ErrorIs(t, err, ErrInvalidParam)

	item, err = f.svc.Checkout(f.member.ID, item.ID, 3, "breakfast")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	ownerNotes := f.notificationsFor(f.owner.ID)
	require.Len(t, ownerNotes, 1)
	assert.Equal(t, models.NotificationLowInventory, ownerNotes[0].Type)
	assert.Len(t, f.notificationsFor(f.member.ID), 1)
	assert.Empty(t, f.notificationsFor(f.visitor.ID))
	assert.Contains(t, f.broker.topics(), NotificationTopic(f.owner.ID))

	// 已经低库存时不重复通知
	_, err = f.svc.Checkout(f.member.ID, item.ID, 1, "")
	require.NoError(t, err)
	assert.Len(t, f.notificationsFor(f.owner.ID), 1)

	history, err := f.svc.History(f.owner.ID, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.ItemActionCheckout, history[0].Action)
	assert.Equal(t, 2, history[0].QuantityBefore)
	assert.Equal(t, 1, history[0].QuantityAfter)
	assert.Equal(t, "breakfast", history[1].Notes)
	assert.Equal(t, models.ItemActionCreated, history[2].Action)
}

func TestVisitorIsReadOnly(t *testing.T) {
	f := newItemFixture(t)
	item, err := f.svc.CreateItem(f.owner.ID, f.home.ID, &ItemRequest{Name: "Drill", Quantity: intPtr(1)})
	require.NoError(t, err)

	got, err := f.svc.GetItem(f.visitor.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drill", got.Name)

	_, err = f.svc.Checkout(f.visitor.ID, item.ID, 1, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateItem(f.visitor.ID, f.home.ID, &ItemRequest{Name: "Saw"})
	assert.ErrorIs(t, err, ErrForbidden)

	stranger := f.user("stranger")
	_, err = f.svc.GetItem(stranger.ID, item.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMoveUpdateAndDelete(t *testing.T) {
	f := newItemFixture(t)
	item, err := f.svc.CreateItem(f.owner.ID, f.home.ID, &ItemRequest{Name: "Tape", Quantity: intPtr(4), Room: "Garage", Category: "tools"})
	require.NoError(t, err)

	_, err = f.svc.Move(f.owner.ID, item.ID, "", "")
	assert.ErrorIs(t, err, ErrInvalidParam)
	moved, err := f.svc.Move(f.owner.ID, item.ID, "Study", "Drawer 2")
	require.NoError(t, err)
	assert.Equal(t, "Study/Drawer 2", moved.Location())

	updated, err := f.svc.UpdateItem(f.owner.ID, item.ID, &ItemRequest{Quantity: intPtr(1), Room: "Study", Category: "tools"})
	require.NoError(t, err)
	assert.Equal(t, "Tape", updated.Name)

	history, err := f.svc.History(f.owner.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemActionQuantityReduced, history[0].Action)
	assert.Equal(t, models.ItemActionMoved, history[1].Action)
	assert.Equal(t, "Garage", history[1].FromLocation)

	_, err = f.svc.UpdateItem(f.owner.ID, item.ID, &ItemRequest{Quantity: intPtr(-1)})
	assert.ErrorIs(t, err, ErrInvalidParam)

	require.NoError(t, f.svc.DeleteItem(f.owner.ID, item.ID))
	_, err = f.svc.GetItem(f.owner.ID, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	var count int64
	f.db.Model(&models.ItemHistory{}).Where("item_id = ? AND action = ?", item.ID, models.ItemActionDeleted).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestListItemsFilters(t *testing.T) {
	f := newItemFixture(t)
	_, err := f.svc.CreateItem(f.owner.ID, f.home.ID, &ItemRequest{Name: "Rice", Category: "food", Quantity: intPtr(1), MinQuantity: intPtr(2)})
	require.NoError(t, err)
	_, err = f.svc.CreateItem(f.owner.ID, f.home.ID, &ItemRequest{Name: "Hammer", Category: "tools", Quantity: intPtr(3), Barcode: "690123"})
	require.NoError(t, err)

	items, res, err := f.svc.ListItems(f.member.ID, f.home.ID, ItemFilter{LowStock: true}, models.PaginationQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, "Rice", items[0].Name)

	items, _, err = f.svc.ListItems(f.member.ID, f.home.ID, ItemFilter{Search: "690123"}, models.PaginationQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Hammer", items[0].Name)

	items, _, err = f.svc.ListItems(f.member.ID, f.home.ID, ItemFilter{Category: "food"}, models.PaginationQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, _, err = f.svc.ListItems(f.member.ID, 999, ItemFilter{}, models.PaginationQuery{})
	assert.ErrorIs(t, err, ErrHouseholdNotFound)
}

func TestNotificationReadState(t *testing.T) {
	e := newEnv(t)
	u := e.user("u")
	other := e.user("other")

	list, err := e.notify.Notify([]uint{u.ID, u.ID, other.ID}, NotificationInput{Type: models.NotificationNewMessage, Title: "hi"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = e.notify.Notify([]uint{u.ID}, NotificationInput{Type: models.NotificationNewMessage, Title: "again"})
	require.NoError(t, err)

	count, err := e.notify.UnreadCount(u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, err = e.notify.MarkRead(other.ID, list[0].ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	n, err := e.notify.MarkRead(u.ID, list[0].ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.NotNil(t, n.ReadAt)

	unread, res, err := e.notify.ListNotifications(u.ID, true, models.PaginationQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, "again", unread[0].Title)

	updated, err := e.notify.MarkAllRead(u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)
	count, err = e.notify.UnreadCount(u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotifySkipsPushWhenBrokerDisconnected(t *testing.T) {
	e := newEnv(t)
	u := e.user("u")
	e.broker.connected = false

	_, err := e.notify.Notify([]uint{u.ID}, NotificationInput{Type: models.NotificationNewMessage, Title: "quiet"})
	require.NoError(t, err)
	assert.Empty(t, e.broker.topics())
	assert.Len(t, e.notificationsFor(u.ID), 1)
}
