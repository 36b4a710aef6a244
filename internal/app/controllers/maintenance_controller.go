package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// MaintenanceController 维修工单控制器
type MaintenanceController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewMaintenanceController 创建维修工单控制器
func NewMaintenanceController(ctx *gin.Context, container *container.ServiceContainer) *MaintenanceController {
	return &MaintenanceController{Ctx: ctx, Container: container}
}

// HandleMaintenanceFunc 返回一个处理维修工单请求的Gin处理函数
func HandleMaintenanceFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewMaintenanceController(ctx, container)

		switch method {
		case "createTicket":
			controller.CreateTicket()
		case "getTickets":
			controller.GetTickets()
		case "getTicket":
			controller.GetTicket()
		case "evaluateTicket":
			controller.EvaluateTicket()
		case "startTicket":
			controller.StartTicket()
		case "completeTicket":
			controller.CompleteTicket()
		case "signoffTicket":
			controller.SignoffTicket()
		case "cancelTicket":
			controller.CancelTicket()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *MaintenanceController) service() services.InterfaceMaintenanceService {
	return c.Container.GetService("maintenance").(services.InterfaceMaintenanceService)
}

// 1. CreateTicket 提交维修工单，自动分派到维修工作组
// @Summary      Create maintenance ticket
// @Tags         Maintenance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body services.TicketRequest true "工单"
// @Success      201  {object}  models.MaintenanceTicket
// @Failure      403  {object}  ErrorResponse
// @Router       /maintenance/tickets [post]
func (c *MaintenanceController) CreateTicket() {
	var req services.TicketRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	ticket, err := c.service().CreateTicket(actor(c.Ctx), &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, ticket)
}

// 2. GetTickets 工单列表
// @Summary      List maintenance tickets
// @Tags         Maintenance
// @Produce      json
// @Security     BearerAuth
// @Param        household_id query int false "住户ID"
// @Param        building_id query int false "楼栋ID"
// @Param        community_id query int false "社区ID"
// @Param        status query string false "状态"
// @Param        category query string false "分类"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /maintenance/tickets [get]
func (c *MaintenanceController) GetTickets() {
	filter := services.TicketFilter{
		HouseholdID: queryUint(c.Ctx, "household_id"),
		BuildingID:  queryUint(c.Ctx, "building_id"),
		CommunityID: queryUint(c.Ctx, "community_id"),
		Status:      c.Ctx.Query("status"),
		Category:    c.Ctx.Query("category"),
	}
	tickets, result, err := c.service().ListTickets(actor(c.Ctx), filter, pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, tickets, result)
}

// 3. GetTicket 工单详情
// @Summary      Get maintenance ticket
// @Tags         Maintenance
// @Security     BearerAuth
// @Param        id path int true "工单ID"
// @Success      200  {object}  models.MaintenanceTicket
// @Failure      404  {object}  ErrorResponse
// @Router       /maintenance/tickets/{id} [get]
func (c *MaintenanceController) GetTicket() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	ticket, err := c.service().GetTicket(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, ticket)
}

// 4. EvaluateTicket 楼栋管理者评估工单
// @Summary      Evaluate ticket
// @Tags         Maintenance
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "工单ID"
// @Param        request body services.EvaluateRequest true "评估"
// @Success      200  {object}  models.MaintenanceTicket
// @Router       /maintenance/tickets/{id}/evaluate [post]
func (c *MaintenanceController) EvaluateTicket() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.EvaluateRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	ticket, err := c.service().EvaluateTicket(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, ticket)
}

// 5. StartTicket 开始维修
// @Summary      Start ticket
// @Tags         Maintenance
// @Security     BearerAuth
// @Param        id path int true "工单ID"
// @Success      200  {object}  models.MaintenanceTicket
// @Router       /maintenance/tickets/{id}/start [post]
func (c *MaintenanceController) StartTicket() {
	c.transition(c.service().StartTicket)
}

// 6. CompleteTicket 完成维修
// @Summary      Complete ticket
// @Tags         Maintenance
// @Security     BearerAuth
// @Param        id path int true "工单ID"
// @Success      200  {object}  models.MaintenanceTicket
// @Router       /maintenance/tickets/{id}/complete [post]
func (c *MaintenanceController) CompleteTicket() {
	c.transition(c.service().CompleteTicket)
}

// 7. SignoffTicket 签核工单
// @Summary      Sign off ticket
// @Description  CREW_LEAD, SUPPLIER_LEAD or HOUSEHOLD sign-off
// @Tags         Maintenance
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "工单ID"
// @Param        request body services.SignoffRequest true "签核"
// @Success      200  {object}  models.MaintenanceTicket
// @Router       /maintenance/tickets/{id}/signoff [post]
func (c *MaintenanceController) SignoffTicket() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.SignoffRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	ticket, err := c.service().SignoffTicket(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, ticket)
}

// 8. CancelTicket 取消工单
// @Summary      Cancel ticket
// @Tags         Maintenance
// @Security     BearerAuth
// @Param        id path int true "工单ID"
// @Success      200  {object}  models.MaintenanceTicket
// @Router       /maintenance/tickets/{id}/cancel [post]
func (c *MaintenanceController) CancelTicket() {
	c.transition(c.service().CancelTicket)
}

func (c *MaintenanceController) transition(fn func(actorID, id uint) (*models.MaintenanceTicket, error)) {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	ticket, err := fn(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, ticket)
}
