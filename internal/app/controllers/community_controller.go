package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// InterfaceCommunityController 定义社区控制器接口
type InterfaceCommunityController interface {
	GetCommunities()
	CreateCommunity()
	GetCommunity()
	UpdateCommunity()
	DeleteCommunity()
	GetMembers()
	AddMember()
	UpdateMember()
	RemoveMember()
	GetBuildings()
}

// CommunityController 社区控制器
type CommunityController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewCommunityController 创建社区控制器
func NewCommunityController(ctx *gin.Context, container *container.ServiceContainer) *CommunityController {
	return &CommunityController{Ctx: ctx, Container: container}
}

// MemberRoleRequest 修改成员角色请求
type MemberRoleRequest struct {
	Role string `json:"role" binding:"required" example:"MANAGER"`
}

// HandleCommunityFunc 返回一个处理社区请求的Gin处理函数
func HandleCommunityFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewCommunityController(ctx, container)

		switch method {
		case "getCommunities":
			controller.GetCommunities()
		case "createCommunity":
			controller.CreateCommunity()
		case "getCommunity":
			controller.GetCommunity()
		case "updateCommunity":
			controller.UpdateCommunity()
		case "deleteCommunity":
			controller.DeleteCommunity()
		case "getMembers":
			controller.GetMembers()
		case "addMember":
			controller.AddMember()
		case "updateMember":
			controller.UpdateMember()
		case "removeMember":
			controller.RemoveMember()
		case "getBuildings":
			controller.GetBuildings()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *CommunityController) service() services.InterfaceCommunityService {
	return c.Container.GetService("community").(services.InterfaceCommunityService)
}

// 1. GetCommunities 获取社区列表
// @Summary      List communities
// @Description  Super admin sees all communities, others only their memberships
// @Tags         Community
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /communities [get]
func (c *CommunityController) GetCommunities() {
	list, result, err := c.service().ListCommunities(actor(c.Ctx), pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, list, result)
}

// 2. CreateCommunity 创建社区，创建者成为 ADMIN
// @Summary      Create community
// @Tags         Community
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body services.CommunityRequest true "社区信息"
// @Success      201  {object}  models.Community
// @Failure      400  {object}  ErrorResponse
// @Router       /communities [post]
func (c *CommunityController) CreateCommunity() {
	var req services.CommunityRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	community, err := c.service().CreateCommunity(actor(c.Ctx), &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, community)
}

// 3. GetCommunity 获取社区详情
// @Summary      Get community
// @Tags         Community
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "社区ID"
// @Success      200  {object}  models.Community
// @Failure      404  {object}  ErrorResponse
// @Router       /communities/{id} [get]
func (c *CommunityController) GetCommunity() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	community, err := c.service().GetCommunity(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, community)
}

// 4. UpdateCommunity 更新社区
// @Summary      Update community
// @Tags         Community
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "社区ID"
// @Param        request body services.CommunityRequest true "社区信息"
// @Success      200  {object}  models.Community
// @Router       /communities/{id} [put]
func (c *CommunityController) UpdateCommunity() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.CommunityRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	community, err := c.service().UpdateCommunity(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, community)
}

// 5. DeleteCommunity 删除社区
// @Summary      Delete community
// @Tags         Community
// @Security     BearerAuth
// @Param        id path int true "社区ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /communities/{id} [delete]
func (c *CommunityController) DeleteCommunity() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeleteCommunity(actor(c.Ctx), id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 6. GetMembers 社区成员
// @Summary      List community members
// @Tags         Community
// @Security     BearerAuth
// @Param        id path int true "社区ID"
// @Success      200  {array}  models.CommunityMember
// @Router       /communities/{id}/members [get]
func (c *CommunityController) GetMembers() {
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

// 7. AddMember 添加社区成员
// @Summary      Add community member
// @Tags         Community
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "社区ID"
// @Param        request body services.MemberRequest true "成员"
// @Success      201  {object}  models.CommunityMember
// @Router       /communities/{id}/members [post]
func (c *CommunityController) AddMember() {
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

// 8. UpdateMember 修改成员角色
// @Summary      Change community member role
// @Tags         Community
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "社区ID"
// @Param        memberId path int true "成员ID"
// @Param        request body MemberRoleRequest true "角色"
// @Success      200  {object}  models.CommunityMember
// @Router       /communities/{id}/members/{memberId} [put]
func (c *CommunityController) UpdateMember() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	memberID, ok := paramID(c.Ctx, "memberId")
	if !ok {
		return
	}
	var req MemberRoleRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	member, err := c.service().UpdateMemberRole(actor(c.Ctx), id, memberID, req.Role)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, member)
}

// 9. RemoveMember 移除社区成员
// @Summary      Remove community member
// @Tags         Community
// @Security     BearerAuth
// @Param        id path int true "社区ID"
// @Param        memberId path int true "成员ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /communities/{id}/members/{memberId} [delete]
func (c *CommunityController) RemoveMember() {
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

// 10. GetBuildings 社区下的楼栋
// @Summary      List community buildings
// @Tags         Community
// @Security     BearerAuth
// @Param        id path int true "社区ID"
// @Success      200  {array}  models.Building
// @Router       /communities/{id}/buildings [get]
func (c *CommunityController) GetBuildings() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	buildings, err := c.service().ListBuildings(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, buildings)
}
