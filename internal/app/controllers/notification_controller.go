package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// NotificationController 站内通知控制器
type NotificationController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewNotificationController 创建通知控制器
func NewNotificationController(ctx *gin.Context, container *container.ServiceContainer) *NotificationController {
	return &NotificationController{Ctx: ctx, Container: container}
}

// HandleNotificationFunc 返回一个处理通知请求的Gin处理函数
func HandleNotificationFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewNotificationController(ctx, container)

		switch method {
		case "getNotifications":
			controller.GetNotifications()
		case "markRead":
			controller.MarkRead()
		case "markAllRead":
			controller.MarkAllRead()
		case "unreadCount":
			controller.UnreadCount()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *NotificationController) service() services.InterfaceNotificationService {
	return c.Container.GetService("notification").(services.InterfaceNotificationService)
}

// 1. GetNotifications 我的通知
// @Summary 通知列表
// @Tags Notification
// @Security BearerAuth
// @Param unread query bool false "仅未读"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} map[string]interface{}
// @Router /notifications [get]
func (c *NotificationController) GetNotifications() {
	list, result, err := c.service().ListNotifications(actor(c.Ctx), queryBool(c.Ctx, "unread"), pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, list, result)
}

// 2. MarkRead 标记单条已读
// @Summary 标记已读
// @Tags Notification
// @Security BearerAuth
// @Param id path int true "通知ID"
// @Success 200 {object} models.Notification
// @Router /notifications/{id}/read [put]
func (c *NotificationController) MarkRead() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	n, err := c.service().MarkRead(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, n)
}

// 3. MarkAllRead 全部已读
// @Summary 全部已读
// @Tags Notification
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /notifications/read-all [put]
func (c *NotificationController) MarkAllRead() {
	updated, err := c.service().MarkAllRead(actor(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"updated": updated})
}

// 4. UnreadCount 未读数量
// @Summary 未读数量
// @Tags Notification
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /notifications/unread-count [get]
func (c *NotificationController) UnreadCount() {
	count, err := c.service().UnreadCount(actor(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"unread": count})
}
