package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// AIController AI 助手控制器
type AIController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAIController 创建 AI 控制器
func NewAIController(ctx *gin.Context, container *container.ServiceContainer) *AIController {
	return &AIController{Ctx: ctx, Container: container}
}

// ChatRequest AI 对话请求
type ChatRequest struct {
	Message string `json:"message" binding:"required" example:"牛奶快过期了可以做什么？"`
}

// HandleAIFunc 返回一个处理 AI 请求的Gin处理函数
func HandleAIFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAIController(ctx, container)

		switch method {
		case "chat":
			controller.Chat()
		case "enhanceItem":
			controller.EnhanceItem()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *AIController) service() services.InterfaceAIService {
	return c.Container.GetService("ai").(services.InterfaceAIService)
}

// 1. Chat 与 AI 助手对话
// @Summary      AI chat
// @Tags         AI
// @Accept       json
// @Security     BearerAuth
// @Param        request body ChatRequest true "消息"
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  ErrorResponse "未配置 OpenAI"
// @Router       /ai/chat [post]
func (c *AIController) Chat() {
	var req ChatRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	reply, err := c.service().Chat(c.Ctx.Request.Context(), actor(c.Ctx), req.Message)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"reply": reply})
}

// 2. EnhanceItem 生成物品分类与描述并保存
// @Summary      AI enhance item
// @Tags         AI
// @Security     BearerAuth
// @Param        id path int true "物品ID"
// @Success      200  {object}  models.Item
// @Failure      503  {object}  ErrorResponse
// @Router       /items/{id}/ai-enhance [post]
func (c *AIController) EnhanceItem() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	item, err := c.service().EnhanceItem(c.Ctx.Request.Context(), actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, item)
}
