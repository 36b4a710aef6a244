package controllers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CateringController 餐饮控制器：菜单、购物车与订单
type CateringController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewCateringController 创建餐饮控制器
func NewCateringController(ctx *gin.Context, container *container.ServiceContainer) *CateringController {
	return &CateringController{Ctx: ctx, Container: container}
}

// CartItemRequest 加入购物车请求
type CartItemRequest struct {
	MenuItemID uint `json:"menu_item_id" binding:"required" example:"1"`
	Quantity   int  `json:"quantity" binding:"required,min=1" example:"2"`
}

// OrderStatusRequest 订单状态变更请求
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required" example:"accepted"`
}

// HandleCateringFunc 返回一个处理餐饮请求的Gin处理函数
func HandleCateringFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewCateringController(ctx, container)

		switch method {
		case "getMenu":
			controller.GetMenu()
		case "getMenuItem":
			controller.GetMenuItem()
		case "createMenuItem":
			controller.CreateMenuItem()
		case "updateMenuItem":
			controller.UpdateMenuItem()
		case "deleteMenuItem":
			controller.DeleteMenuItem()
		case "getCart":
			controller.GetCart()
		case "addCartItem":
			controller.AddCartItem()
		case "removeCartItem":
			controller.RemoveCartItem()
		case "clearCart":
			controller.ClearCart()
		case "placeOrder":
			controller.PlaceOrder()
		case "getOrders":
			controller.GetOrders()
		case "getOrder":
			controller.GetOrder()
		case "updateOrderStatus":
			controller.UpdateOrderStatus()
		case "createKitchenWorkOrder":
			controller.CreateKitchenWorkOrder()
		case "exportOrders":
			controller.ExportOrders()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *CateringController) service() services.InterfaceCateringService {
	return c.Container.GetService("catering").(services.InterfaceCateringService)
}

func (c *CateringController) cart() services.InterfaceCartService {
	return c.Container.GetService("cart").(services.InterfaceCartService)
}

func (c *CateringController) orderFilter() services.OrderFilter {
	return services.OrderFilter{
		HouseholdID: queryUint(c.Ctx, "household_id"),
		Status:      c.Ctx.Query("status"),
		All:         queryBool(c.Ctx, "all"),
	}
}

// 1. GetMenu 菜单
// @Summary 菜单
// @Tags Catering
// @Security BearerAuth
// @Param community_id query int false "社区ID，包含全局菜品"
// @Param active query bool false "仅上架"
// @Param category query string false "分类"
// @Success 200 {array} models.CateringMenuItem
// @Router /catering/menu [get]
func (c *CateringController) GetMenu() {
	list, err := c.service().ListMenu(services.MenuFilter{
		CommunityID: queryUint(c.Ctx, "community_id"),
		ActiveOnly:  queryBool(c.Ctx, "active"),
		Category:    c.Ctx.Query("category"),
	})
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, list)
}

// 2. GetMenuItem 菜品详情
// @Summary 菜品详情
// @Tags Catering
// @Security BearerAuth
// @Param id path int true "菜品ID"
// @Success 200 {object} models.CateringMenuItem
// @Router /catering/menu/{id} [get]
func (c *CateringController) GetMenuItem() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	item, err := c.service().GetMenuItem(id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, item)
}

// 3. CreateMenuItem 新增菜品
// @Summary 新增菜品
// @Tags Catering
// @Accept json
// @Security BearerAuth
// @Param request body services.MenuItemRequest true "菜品"
// @Success 201 {object} models.CateringMenuItem
// @Router /catering/menu [post]
func (c *CateringController) CreateMenuItem() {
	var req services.MenuItemRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	item, err := c.service().CreateMenuItem(actor(c.Ctx), &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, item)
}

// 4. UpdateMenuItem 更新菜品
// @Summary 更新菜品
// @Tags Catering
// @Accept json
// @Security BearerAuth
// @Param id path int true "菜品ID"
// @Param request body services.MenuItemRequest true "菜品"
// @Success 200 {object} models.CateringMenuItem
// @Router /catering/menu/{id} [put]
func (c *CateringController) UpdateMenuItem() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.MenuItemRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	item, err := c.service().UpdateMenuItem(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, item)
}

// 5. DeleteMenuItem 删除菜品
// @Summary 删除菜品
// @Tags Catering
// @Security BearerAuth
// @Param id path int true "菜品ID"
// @Success 200 {object} map[string]interface{}
// @Router /catering/menu/{id} [delete]
func (c *CateringController) DeleteMenuItem() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeleteMenuItem(actor(c.Ctx), id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 6. GetCart 我的购物车
// @Summary 购物车
// @Tags Catering
// @Security BearerAuth
// @Success 200 {object} services.Cart
// @Router /catering/cart [get]
func (c *CateringController) GetCart() {
	cart, err := c.cart().GetCart(actor(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, cart)
}

// 7. AddCartItem 加入购物车
// @Summary 加入购物车
// @Tags Catering
// @Accept json
// @Security BearerAuth
// @Param request body CartItemRequest true "菜品与数量"
// @Success 200 {object} services.Cart
// @Failure 400 {object} ErrorResponse "库存不足"
// @Router /catering/cart [post]
func (c *CateringController) AddCartItem() {
	var req CartItemRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	cart, err := c.cart().AddItem(actor(c.Ctx), req.MenuItemID, req.Quantity)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, cart)
}

// 8. RemoveCartItem 移出购物车
// @Summary 移出购物车
// @Tags Catering
// @Security BearerAuth
// @Param itemId path int true "菜品ID"
// @Success 200 {object} services.Cart
// @Router /catering/cart/{itemId} [delete]
func (c *CateringController) RemoveCartItem() {
	itemID, ok := paramID(c.Ctx, "itemId")
	if !ok {
		return
	}
	cart, err := c.cart().RemoveItem(actor(c.Ctx), itemID)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, cart)
}

// 9. ClearCart 清空购物车
// @Summary 清空购物车
// @Tags Catering
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /catering/cart [delete]
func (c *CateringController) ClearCart() {
	if err := c.cart().Clear(actor(c.Ctx)); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 10. PlaceOrder 用购物车下单
// @Summary 下单
// @Tags Catering
// @Accept json
// @Security BearerAuth
// @Param request body services.OrderRequest true "订单"
// @Success 201 {object} models.CateringOrder
// @Failure 400 {object} ErrorResponse "购物车为空/库存不足/时间无效"
// @Router /catering/orders [post]
func (c *CateringController) PlaceOrder() {
	var req services.OrderRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	order, err := c.service().PlaceOrder(actor(c.Ctx), &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, order)
}

// 11. GetOrders 订单列表
// @Summary 订单列表
// @Tags Catering
// @Security BearerAuth
// @Param household_id query int false "住户ID"
// @Param status query string false "状态"
// @Param all query bool false "运营视图"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} map[string]interface{}
// @Router /catering/orders [get]
func (c *CateringController) GetOrders() {
	orders, result, err := c.service().ListOrders(actor(c.Ctx), c.orderFilter(), pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, orders, result)
}

// 12. GetOrder 订单详情
// @Summary 订单详情
// @Tags Catering
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} models.CateringOrder
// @Router /catering/orders/{id} [get]
func (c *CateringController) GetOrder() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	order, err := c.service().GetOrder(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, order)
}

// 13. UpdateOrderStatus 变更订单状态，取消时回补库存
// @Summary 变更订单状态
// @Tags Catering
// @Accept json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param request body OrderStatusRequest true "状态"
// @Success 200 {object} models.CateringOrder
// @Router /catering/orders/{id}/status [put]
func (c *CateringController) UpdateOrderStatus() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req OrderStatusRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	order, err := c.service().UpdateOrderStatus(actor(c.Ctx), id, req.Status)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, order)
}

// 14. CreateKitchenWorkOrder 生成厨房工单，重复调用返回已有工单
// @Summary 生成厨房工单
// @Tags Catering
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 201 {object} models.MaintenanceTicket
// @Success 200 {object} models.MaintenanceTicket "已存在"
// @Router /catering/orders/{id}/kitchen-work-order [post]
func (c *CateringController) CreateKitchenWorkOrder() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	ticket, created, err := c.service().CreateKitchenWorkOrder(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	if created {
		response.Created(c.Ctx, ticket)
		return
	}
	response.Success(c.Ctx, ticket)
}

// 15. ExportOrders 导出订单 xlsx
// @Summary 导出订单
// @Tags Catering
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param household_id query int false "住户ID"
// @Param status query string false "状态"
// @Param all query bool false "运营视图"
// @Success 200 {file} file
// @Router /catering/export [get]
func (c *CateringController) ExportOrders() {
	data, err := c.service().ExportOrders(actor(c.Ctx), c.orderFilter())
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	filename := fmt.Sprintf("catering-orders-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Ctx.Data(200, xlsxContentType, data)
}
