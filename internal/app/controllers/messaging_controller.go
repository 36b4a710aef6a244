package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// MessagingController 会话、消息与通话控制器
type MessagingController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewMessagingController 创建消息控制器
func NewMessagingController(ctx *gin.Context, container *container.ServiceContainer) *MessagingController {
	return &MessagingController{Ctx: ctx, Container: container}
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Content string `json:"content" binding:"required" example:"快递已放前台"`
}

// StartCallRequest 发起通话请求
type StartCallRequest struct {
	CallType string `json:"call_type" binding:"required,oneof=audio video" example:"video"`
}

// CallActionRequest 通话操作请求
type CallActionRequest struct {
	Action string `json:"action" binding:"required,oneof=answer reject end" example:"answer"`
}

// HandleMessagingFunc 返回一个处理消息请求的Gin处理函数
func HandleMessagingFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewMessagingController(ctx, container)

		switch method {
		case "getConversations":
			controller.GetConversations()
		case "createConversation":
			controller.CreateConversation()
		case "getConversation":
			controller.GetConversation()
		case "getMessages":
			controller.GetMessages()
		case "sendMessage":
			controller.SendMessage()
		case "getCalls":
			controller.GetCalls()
		case "startCall":
			controller.StartCall()
		case "updateCall":
			controller.UpdateCall()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *MessagingController) service() services.InterfaceMessagingService {
	return c.Container.GetService("messaging").(services.InterfaceMessagingService)
}

// 1. GetConversations 我的会话
// @Summary 会话列表
// @Tags Messaging
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} map[string]interface{}
// @Router /conversations [get]
func (c *MessagingController) GetConversations() {
	list, result, err := c.service().ListConversations(actor(c.Ctx), pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, list, result)
}

// 2. CreateConversation 创建与住户的会话
// @Summary 创建会话
// @Tags Messaging
// @Accept json
// @Security BearerAuth
// @Param request body services.ConversationRequest true "会话"
// @Success 201 {object} models.Conversation
// @Failure 403 {object} ErrorResponse
// @Router /conversations [post]
func (c *MessagingController) CreateConversation() {
	var req services.ConversationRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	conversation, err := c.service().CreateConversation(actor(c.Ctx), &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, conversation)
}

// 3. GetConversation 会话详情
// @Summary 会话详情
// @Tags Messaging
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} models.Conversation
// @Router /conversations/{id} [get]
func (c *MessagingController) GetConversation() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	conversation, err := c.service().GetConversation(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, conversation)
}

// 4. GetMessages 会话消息（分页）
// @Summary 会话消息
// @Tags Messaging
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} map[string]interface{}
// @Router /conversations/{id}/messages [get]
func (c *MessagingController) GetMessages() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	messages, result, err := c.service().ListMessages(actor(c.Ctx), id, pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, messages, result)
}

// 5. SendMessage 发送消息
// @Summary 发送消息
// @Tags Messaging
// @Accept json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Param request body SendMessageRequest true "内容"
// @Success 201 {object} models.Message
// @Router /conversations/{id}/messages [post]
func (c *MessagingController) SendMessage() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	message, err := c.service().SendMessage(actor(c.Ctx), id, req.Content)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, message)
}

// 6. GetCalls 会话的通话记录
// @Summary 通话记录
// @Tags Messaging
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {array} models.CallSession
// @Router /conversations/{id}/calls [get]
func (c *MessagingController) GetCalls() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	calls, err := c.service().ListCalls(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, calls)
}

// 7. StartCall 发起音视频通话，返回 TRTC 房间与 UserSig
// @Summary 发起通话
// @Tags Messaging
// @Accept json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Param request body StartCallRequest true "通话类型"
// @Success 201 {object} services.CallResult
// @Router /conversations/{id}/calls [post]
func (c *MessagingController) StartCall() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req StartCallRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	result, err := c.service().StartCall(actor(c.Ctx), id, req.CallType)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, result)
}

// 8. UpdateCall 接听、拒绝或挂断
// @Summary 更新通话
// @Tags Messaging
// @Accept json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Param callId path int true "通话ID"
// @Param request body CallActionRequest true "操作"
// @Success 200 {object} services.CallResult
// @Failure 400 {object} ErrorResponse "状态不允许"
// @Router /conversations/{id}/calls/{callId} [put]
func (c *MessagingController) UpdateCall() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	callID, ok := paramID(c.Ctx, "callId")
	if !ok {
		return
	}
	var req CallActionRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	result, err := c.service().UpdateCall(actor(c.Ctx), id, callID, req.Action)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, result)
}
