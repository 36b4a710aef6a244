package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// DoorbellController 门铃与门铃通话控制器
type DoorbellController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewDoorbellController 创建门铃控制器
func NewDoorbellController(ctx *gin.Context, container *container.ServiceContainer) *DoorbellController {
	return &DoorbellController{Ctx: ctx, Container: container}
}

// HandleDoorbellFunc 返回一个处理门铃请求的Gin处理函数
func HandleDoorbellFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewDoorbellController(ctx, container)

		switch method {
		case "getDoorbells":
			controller.GetDoorbells()
		case "createDoorbell":
			controller.CreateDoorbell()
		case "updateDoorbell":
			controller.UpdateDoorbell()
		case "deleteDoorbell":
			controller.DeleteDoorbell()
		case "ring":
			controller.Ring()
		case "getCalls":
			controller.GetCalls()
		case "getCall":
			controller.GetCall()
		case "updateCall":
			controller.UpdateCall()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *DoorbellController) service() services.InterfaceDoorbellService {
	return c.Container.GetService("doorbell").(services.InterfaceDoorbellService)
}

// 1. GetDoorbells 楼栋门铃
// @Summary      List doorbells
// @Tags         Doorbell
// @Security     BearerAuth
// @Param        id path int true "楼栋ID"
// @Success      200  {array}  models.DoorBell
// @Router       /buildings/{id}/doorbells [get]
func (c *DoorbellController) GetDoorbells() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	bells, err := c.service().ListDoorbells(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, bells)
}

// 2. CreateDoorbell 在楼栋下登记门铃
// @Summary      Create doorbell
// @Tags         Doorbell
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "楼栋ID"
// @Param        request body services.DoorbellRequest true "门铃"
// @Success      201  {object}  models.DoorBell
// @Failure      409  {object}  ErrorResponse "编号已存在"
// @Router       /buildings/{id}/doorbells [post]
func (c *DoorbellController) CreateDoorbell() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.DoorbellRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	bell, err := c.service().CreateDoorbell(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, bell)
}

// 3. UpdateDoorbell 更新门铃
// @Summary      Update doorbell
// @Tags         Doorbell
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "门铃ID"
// @Param        request body services.DoorbellRequest true "门铃"
// @Success      200  {object}  models.DoorBell
// @Router       /doorbells/{id} [put]
func (c *DoorbellController) UpdateDoorbell() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.DoorbellRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	bell, err := c.service().UpdateDoorbell(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, bell)
}

// 4. DeleteDoorbell 删除门铃
// @Summary      Delete doorbell
// @Tags         Doorbell
// @Security     BearerAuth
// @Param        id path int true "门铃ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /doorbells/{id} [delete]
func (c *DoorbellController) DeleteDoorbell() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeleteDoorbell(actor(c.Ctx), id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 5. Ring 按门铃；5 秒内重复按铃返回已有会话
// @Summary      Ring doorbell
// @Tags         Doorbell
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "楼栋ID"
// @Param        request body services.RingRequest true "门铃编号或ID"
// @Success      201  {object}  services.RingResult
// @Success      200  {object}  services.RingResult "重复按铃"
// @Failure      404  {object}  ErrorResponse
// @Router       /buildings/{id}/doorbells/ring [post]
func (c *DoorbellController) Ring() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.RingRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	result, err := c.service().Ring(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	if result.Deduplicated {
		response.Success(c.Ctx, result)
		return
	}
	response.Created(c.Ctx, result)
}

// 6. GetCalls 楼栋门铃通话
// @Summary      List doorbell calls
// @Tags         Doorbell
// @Security     BearerAuth
// @Param        id path int true "楼栋ID"
// @Param        active query bool false "仅进行中"
// @Success      200  {array}  models.DoorBellCallSession
// @Router       /buildings/{id}/doorbell-calls [get]
func (c *DoorbellController) GetCalls() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	calls, err := c.service().ListCalls(actor(c.Ctx), id, queryBool(c.Ctx, "active"))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, calls)
}

// 7. GetCall 门铃通话详情
// @Summary      Get doorbell call
// @Tags         Doorbell
// @Security     BearerAuth
// @Param        id path int true "通话ID"
// @Success      200  {object}  models.DoorBellCallSession
// @Router       /doorbell-calls/{id} [get]
func (c *DoorbellController) GetCall() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	call, err := c.service().GetCall(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, call)
}

// 8. UpdateCall 接听、拒绝或结束门铃通话，可附带开门
// @Summary      Update doorbell call
// @Tags         Doorbell
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "通话ID"
// @Param        request body services.DoorbellCallAction true "操作"
// @Success      200  {object}  models.DoorBellCallSession
// @Router       /doorbell-calls/{id} [put]
func (c *DoorbellController) UpdateCall() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.DoorbellCallAction
	if !bindJSON(c.Ctx, &req) {
		return
	}
	call, err := c.service().UpdateCall(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, call)
}
