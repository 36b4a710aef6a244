package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// InterfaceAnnouncementController 定义公告控制器接口
type InterfaceAnnouncementController interface {
	GetAnnouncements()
	CreateAnnouncement()
	MarkRead()
	DeactivateAnnouncement()
}

// AnnouncementController 处理公告相关的请求
type AnnouncementController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAnnouncementController 创建一个新的公告控制器
func NewAnnouncementController(ctx *gin.Context, container *container.ServiceContainer) *AnnouncementController {
	return &AnnouncementController{
		Ctx:       ctx,
		Container: container,
	}
}

// MarkAnnouncementReadRequest 标记已读
type MarkAnnouncementReadRequest struct {
	HouseholdID uint `json:"household_id" binding:"required" example:"12"`
}

// HandleAnnouncementFunc 返回一个处理公告请求的Gin处理函数
func HandleAnnouncementFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAnnouncementController(ctx, container)

		switch method {
		case "getAnnouncements":
			controller.GetAnnouncements()
		case "createAnnouncement":
			controller.CreateAnnouncement()
		case "markRead":
			controller.MarkRead()
		case "deactivateAnnouncement":
			controller.DeactivateAnnouncement()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *AnnouncementController) service() services.InterfaceAnnouncementService {
	return c.Container.GetService("announcement").(services.InterfaceAnnouncementService)
}

// 1. GetAnnouncements 住户可见公告，含已读状态与未读数
// @Summary 获取公告
// @Tags Announcement
// @Produce json
// @Security BearerAuth
// @Param household_id query int true "住户ID"
// @Success 200 {object} services.AnnouncementFeed
// @Failure 403 {object} ErrorResponse
// @Router /announcements [get]
func (c *AnnouncementController) GetAnnouncements() {
	householdID := queryUint(c.Ctx, "household_id")
	if householdID == 0 {
		response.ParamError(c.Ctx, "household_id is required")
		return
	}
	feed, err := c.service().ListForHousehold(actor(c.Ctx), householdID)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, feed)
}

// 2. CreateAnnouncement 发布公告
// @Summary 发布公告
// @Tags Announcement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.AnnouncementRequest true "公告内容"
// @Success 201 {object} models.Announcement
// @Failure 403 {object} ErrorResponse
// @Router /announcements [post]
func (c *AnnouncementController) CreateAnnouncement() {
	var req services.AnnouncementRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	announcement, err := c.service().CreateAnnouncement(actor(c.Ctx), &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, announcement)
}

// 3. MarkRead 标记公告已读
// @Summary 标记公告已读
// @Tags Announcement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "公告ID"
// @Param request body MarkAnnouncementReadRequest true "住户"
// @Success 200 {object} map[string]interface{}
// @Router /announcements/{id}/read [put]
func (c *AnnouncementController) MarkRead() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req MarkAnnouncementReadRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	if err := c.service().MarkRead(actor(c.Ctx), req.HouseholdID, id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 4. DeactivateAnnouncement 撤回公告
// @Summary 撤回公告
// @Tags Announcement
// @Produce json
// @Security BearerAuth
// @Param id path int true "公告ID"
// @Success 200 {object} map[string]interface{}
// @Router /announcements/{id} [delete]
func (c *AnnouncementController) DeactivateAnnouncement() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeactivateAnnouncement(actor(c.Ctx), id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}
