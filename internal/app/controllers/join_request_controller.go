package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// InterfaceJoinRequestController 定义加入申请控制器接口
type InterfaceJoinRequestController interface {
	GetJoinRequests()
	SubmitJoinRequest()
	ApproveJoinRequest()
	RejectJoinRequest()
}

// JoinRequestController 处理加入申请相关的请求
type JoinRequestController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewJoinRequestController 创建一个新的加入申请控制器
func NewJoinRequestController(ctx *gin.Context, container *container.ServiceContainer) *JoinRequestController {
	return &JoinRequestController{
		Ctx:       ctx,
		Container: container,
	}
}

// SubmitJoinRequestBody 提交加入申请
type SubmitJoinRequestBody struct {
	Type     string `json:"type" binding:"required" example:"household"`
	TargetID uint   `json:"target_id" binding:"required" example:"12"`
	Message  string `json:"message" example:"我是 3 楼的新住户"`
}

// ApproveJoinRequestBody 批准时可指定角色
type ApproveJoinRequestBody struct {
	Role string `json:"role" example:"USER"`
}

// HandleJoinRequestFunc 返回一个处理加入申请请求的Gin处理函数
func HandleJoinRequestFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewJoinRequestController(ctx, container)

		switch method {
		case "getJoinRequests":
			controller.GetJoinRequests()
		case "submitJoinRequest":
			controller.SubmitJoinRequest()
		case "approveJoinRequest":
			controller.ApproveJoinRequest()
		case "rejectJoinRequest":
			controller.RejectJoinRequest()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *JoinRequestController) service() services.InterfaceJoinRequestService {
	return c.Container.GetService("join_request").(services.InterfaceJoinRequestService)
}

// 1. GetJoinRequests 带 type+target_id 时为审核列表，否则返回我的申请
// @Summary 获取加入申请
// @Tags JoinRequest
// @Produce json
// @Security BearerAuth
// @Param type query string false "community/building/household"
// @Param target_id query int false "目标ID"
// @Param status query string false "pending/approved/rejected/all，默认 pending"
// @Param page query int false "页码，默认为1"
// @Param page_size query int false "每页条数，默认为10"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Router /join-requests [get]
func (c *JoinRequestController) GetJoinRequests() {
	targetType := c.Ctx.Query("type")
	targetID := queryUint(c.Ctx, "target_id")
	if targetType == "" || targetID == 0 {
		list, result, err := c.service().ListMine(actor(c.Ctx), pagination(c.Ctx))
		if err != nil {
			handleError(c.Ctx, err)
			return
		}
		paginated(c.Ctx, list, result)
		return
	}
	list, result, err := c.service().ListForTarget(actor(c.Ctx), targetType, targetID, c.Ctx.Query("status"), pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, list, result)
}

// 2. SubmitJoinRequest 申请加入社区/楼栋/住户
// @Summary 提交加入申请
// @Tags JoinRequest
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitJoinRequestBody true "申请信息"
// @Success 201 {object} models.JoinRequest
// @Failure 400 {object} ErrorResponse
// @Router /join-requests [post]
func (c *JoinRequestController) SubmitJoinRequest() {
	var req SubmitJoinRequestBody
	if !bindJSON(c.Ctx, &req) {
		return
	}
	joinReq, err := c.service().SubmitRequest(actor(c.Ctx), &services.JoinRequestInput{
		Type:     req.Type,
		TargetID: req.TargetID,
		Message:  req.Message,
	})
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, joinReq)
}

// 3. ApproveJoinRequest 批准申请
// @Summary 批准加入申请
// @Tags JoinRequest
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "申请ID"
// @Param request body ApproveJoinRequestBody false "角色"
// @Success 200 {object} models.JoinRequest
// @Failure 400 {object} ErrorResponse
// @Router /join-requests/{id}/approve [post]
func (c *JoinRequestController) ApproveJoinRequest() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req ApproveJoinRequestBody
	if c.Ctx.Request.ContentLength > 0 && !bindJSON(c.Ctx, &req) {
		return
	}
	joinReq, err := c.service().ApproveRequest(actor(c.Ctx), id, req.Role)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, joinReq)
}

// 4. RejectJoinRequest 拒绝申请
// @Summary 拒绝加入申请
// @Tags JoinRequest
// @Produce json
// @Security BearerAuth
// @Param id path int true "申请ID"
// @Success 200 {object} models.JoinRequest
// @Router /join-requests/{id}/reject [post]
func (c *JoinRequestController) RejectJoinRequest() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	joinReq, err := c.service().RejectRequest(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, joinReq)
}
