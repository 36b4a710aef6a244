package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// ItemController 家庭物品控制器
type ItemController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewItemController 创建物品控制器
func NewItemController(ctx *gin.Context, container *container.ServiceContainer) *ItemController {
	return &ItemController{Ctx: ctx, Container: container}
}

// CheckoutRequest 取出物品请求
type CheckoutRequest struct {
	Quantity int    `json:"quantity" binding:"required,min=1" example:"1"`
	Reason   string `json:"reason" example:"cooking"`
}

// MoveRequest 移动物品请求
type MoveRequest struct {
	Room    string `json:"room" binding:"required" example:"kitchen"`
	Cabinet string `json:"cabinet" example:"top-left"`
}

// HandleItemFunc 返回一个处理物品请求的Gin处理函数
func HandleItemFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewItemController(ctx, container)

		switch method {
		case "getItems":
			controller.GetItems()
		case "createItem":
			controller.CreateItem()
		case "getItem":
			controller.GetItem()
		case "updateItem":
			controller.UpdateItem()
		case "deleteItem":
			controller.DeleteItem()
		case "checkout":
			controller.Checkout()
		case "move":
			controller.Move()
		case "getHistory":
			controller.GetHistory()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *ItemController) service() services.InterfaceItemService {
	return c.Container.GetService("item").(services.InterfaceItemService)
}

// 1. GetItems 住户物品列表
// @Summary 住户物品列表
// @Tags Item
// @Produce json
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Param search query string false "名称/描述/条码搜索"
// @Param category query string false "分类"
// @Param low_stock query bool false "仅低库存"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} map[string]interface{}
// @Router /households/{id}/items [get]
func (c *ItemController) GetItems() {
	householdID, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	filter := services.ItemFilter{
		Search:   c.Ctx.Query("search"),
		Category: c.Ctx.Query("category"),
		LowStock: queryBool(c.Ctx, "low_stock"),
	}
	items, result, err := c.service().ListItems(actor(c.Ctx), householdID, filter, pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, items, result)
}

// 2. CreateItem 新增物品
// @Summary 新增物品
// @Tags Item
// @Accept json
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Param request body services.ItemRequest true "物品"
// @Success 201 {object} models.Item
// @Router /households/{id}/items [post]
func (c *ItemController) CreateItem() {
	householdID, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.ItemRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	item, err := c.service().CreateItem(actor(c.Ctx), householdID, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, item)
}

// 3. GetItem 物品详情
// @Summary 物品详情
// @Tags Item
// @Security BearerAuth
// @Param id path int true "物品ID"
// @Success 200 {object} models.Item
// @Router /items/{id} [get]
func (c *ItemController) GetItem() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	item, err := c.service().GetItem(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, item)
}

// 4. UpdateItem 更新物品
// @Summary 更新物品
// @Tags Item
// @Accept json
// @Security BearerAuth
// @Param id path int true "物品ID"
// @Param request body services.ItemRequest true "物品"
// @Success 200 {object} models.Item
// @Router /items/{id} [put]
func (c *ItemController) UpdateItem() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.ItemRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	item, err := c.service().UpdateItem(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, item)
}

// 5. DeleteItem 删除物品
// @Summary 删除物品
// @Tags Item
// @Security BearerAuth
// @Param id path int true "物品ID"
// @Success 200 {object} map[string]interface{}
// @Router /items/{id} [delete]
func (c *ItemController) DeleteItem() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeleteItem(actor(c.Ctx), id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 6. Checkout 取出物品
// @Summary 取出物品
// @Tags Item
// @Accept json
// @Security BearerAuth
// @Param id path int true "物品ID"
// @Param request body CheckoutRequest true "数量与原因"
// @Success 200 {object} models.Item
// @Failure 400 {object} ErrorResponse "库存不足"
// @Router /items/{id}/checkout [post]
func (c *ItemController) Checkout() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req CheckoutRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	item, err := c.service().Checkout(actor(c.Ctx), id, req.Quantity, req.Reason)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, item)
}

// 7. Move 移动物品
// @Summary 移动物品
// @Tags Item
// @Accept json
// @Security BearerAuth
// @Param id path int true "物品ID"
// @Param request body MoveRequest true "新位置"
// @Success 200 {object} models.Item
// @Router /items/{id}/move [post]
func (c *ItemController) Move() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req MoveRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	item, err := c.service().Move(actor(c.Ctx), id, req.Room, req.Cabinet)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, item)
}

// 8. GetHistory 物品变更历史
// @Summary 物品历史
// @Tags Item
// @Security BearerAuth
// @Param id path int true "物品ID"
// @Success 200 {array} models.ItemHistory
// @Router /items/{id}/history [get]
func (c *ItemController) GetHistory() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	history, err := c.service().History(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, history)
}
