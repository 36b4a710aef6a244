package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// InterfaceBuildingController 定义楼栋控制器接口
type InterfaceBuildingController interface {
	CreateBuilding()
	GetBuilding()
	UpdateBuilding()
	DeleteBuilding()
	GetBuildingHouseholds()
	GetMembers()
	AddMember()
	RemoveMember()
	SetDoorbellTimeout()
}

// BuildingController 处理楼栋相关的请求
type BuildingController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewBuildingController 创建一个新的楼栋控制器
func NewBuildingController(ctx *gin.Context, container *container.ServiceContainer) *BuildingController {
	return &BuildingController{
		Ctx:       ctx,
		Container: container,
	}
}

// DoorbellTimeoutRequest 门铃超时设置
type DoorbellTimeoutRequest struct {
	Seconds int `json:"seconds" binding:"required" example:"30"`
}

// HandleBuildingFunc 返回一个处理楼栋请求的Gin处理函数
func HandleBuildingFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewBuildingController(ctx, container)

		switch method {
		case "createBuilding":
			controller.CreateBuilding()
		case "getBuilding":
			controller.GetBuilding()
		case "updateBuilding":
			controller.UpdateBuilding()
		case "deleteBuilding":
			controller.DeleteBuilding()
		case "getBuildingHouseholds":
			controller.GetBuildingHouseholds()
		case "getMembers":
			controller.GetMembers()
		case "addMember":
			controller.AddMember()
		case "removeMember":
			controller.RemoveMember()
		case "setDoorbellTimeout":
			controller.SetDoorbellTimeout()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *BuildingController) service() services.InterfaceBuildingService {
	return c.Container.GetService("building").(services.InterfaceBuildingService)
}

// 1. CreateBuilding 在社区下创建楼栋
// @Summary 创建楼栋
// @Description 社区管理者在社区下创建楼栋
// @Tags Building
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "社区ID"
// @Param request body services.BuildingRequest true "楼栋信息"
// @Success 201 {object} models.Building
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /communities/{id}/buildings [post]
func (c *BuildingController) CreateBuilding() {
	communityID, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.BuildingRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	building, err := c.service().CreateBuilding(actor(c.Ctx), communityID, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, building)
}

// 2. GetBuilding 获取单个楼栋详情
// @Summary 获取楼栋详情
// @Tags Building
// @Produce json
// @Security BearerAuth
// @Param id path int true "楼栋ID"
// @Success 200 {object} models.Building
// @Failure 404 {object} ErrorResponse
// @Router /buildings/{id} [get]
func (c *BuildingController) GetBuilding() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	building, err := c.service().GetBuilding(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, building)
}

// 3. UpdateBuilding 更新楼栋信息
// @Summary 更新楼栋
// @Tags Building
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "楼栋ID"
// @Param request body services.BuildingRequest true "楼栋信息"
// @Success 200 {object} models.Building
// @Router /buildings/{id} [put]
func (c *BuildingController) UpdateBuilding() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.BuildingRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	building, err := c.service().UpdateBuilding(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, building)
}

// 4. DeleteBuilding 删除楼栋，仍有住户或门铃时拒绝
// @Summary 删除楼栋
// @Tags Building
// @Security BearerAuth
// @Param id path int true "楼栋ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /buildings/{id} [delete]
func (c *BuildingController) DeleteBuilding() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeleteBuilding(actor(c.Ctx), id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 5. GetBuildingHouseholds 获取楼栋下的住户
// @Summary 获取楼栋下的住户
// @Tags Building
// @Produce json
// @Security BearerAuth
// @Param id path int true "楼栋ID"
// @Success 200 {array} models.Household
// @Router /buildings/{id}/households [get]
func (c *BuildingController) GetBuildingHouseholds() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	households, err := c.service().ListHouseholds(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, households)
}

// 6. GetMembers 楼栋成员
// @Summary 楼栋成员
// @Tags Building
// @Security BearerAuth
// @Param id path int true "楼栋ID"
// @Success 200 {array} models.BuildingMember
// @Router /buildings/{id}/members [get]
func (c *BuildingController) GetMembers() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	members, err := c.service().ListMembers(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, members)
}

// 7. AddMember 添加楼栋成员
// @Summary 添加楼栋成员
// @Tags Building
// @Accept json
// @Security BearerAuth
// @Param id path int true "楼栋ID"
// @Param request body services.MemberRequest true "成员"
// @Success 201 {object} models.BuildingMember
// @Router /buildings/{id}/members [post]
func (c *BuildingController) AddMember() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.MemberRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	member, err := c.service().AddMember(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, member)
}

// 8. RemoveMember 移除楼栋成员
// @Summary 移除楼栋成员
// @Tags Building
// @Security BearerAuth
// @Param id path int true "楼栋ID"
// @Param memberId path int true "成员ID"
// @Success 200 {object} map[string]interface{}
// @Router /buildings/{id}/members/{memberId} [delete]
func (c *BuildingController) RemoveMember() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	memberID, ok := paramID(c.Ctx, "memberId")
	if !ok {
		return
	}
	if err := c.service().RemoveMember(actor(c.Ctx), id, memberID); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 9. SetDoorbellTimeout 设置门铃转前台的超时秒数 (5..600)
// @Summary 设置门铃超时
// @Tags Building
// @Accept json
// @Security BearerAuth
// @Param id path int true "楼栋ID"
// @Param request body DoorbellTimeoutRequest true "超时秒数"
// @Success 200 {object} models.Building
// @Router /buildings/{id}/doorbell-timeout [put]
func (c *BuildingController) SetDoorbellTimeout() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req DoorbellTimeoutRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	building, err := c.service().SetDoorbellTimeout(actor(c.Ctx), id, req.Seconds)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, building)
}
