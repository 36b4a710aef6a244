package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// WorkingGroupController 工作组控制器
type WorkingGroupController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewWorkingGroupController 创建工作组控制器
func NewWorkingGroupController(ctx *gin.Context, container *container.ServiceContainer) *WorkingGroupController {
	return &WorkingGroupController{Ctx: ctx, Container: container}
}

// HandleWorkingGroupFunc 返回一个处理工作组请求的Gin处理函数
func HandleWorkingGroupFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewWorkingGroupController(ctx, container)

		switch method {
		case "getGroups":
			controller.GetGroups()
		case "createGroup":
			controller.CreateGroup()
		case "initializeDefaults":
			controller.InitializeDefaults()
		case "getGroup":
			controller.GetGroup()
		case "updateGroup":
			controller.UpdateGroup()
		case "deleteGroup":
			controller.DeleteGroup()
		case "getMembers":
			controller.GetMembers()
		case "addMember":
			controller.AddMember()
		case "removeMember":
			controller.RemoveMember()
		case "getPermissions":
			controller.GetPermissions()
		case "addPermission":
			controller.AddPermission()
		case "removePermission":
			controller.RemovePermission()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *WorkingGroupController) service() services.InterfaceWorkingGroupService {
	return c.Container.GetService("working_group").(services.InterfaceWorkingGroupService)
}

// 1. GetGroups 社区下的工作组
// @Summary 社区工作组列表
// @Tags WorkingGroup
// @Security BearerAuth
// @Param id path int true "社区ID"
// @Success 200 {array} models.WorkingGroup
// @Router /communities/{id}/working-groups [get]
func (c *WorkingGroupController) GetGroups() {
	communityID, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	groups, err := c.service().ListGroups(actor(c.Ctx), communityID)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, groups)
}

// 2. CreateGroup 创建工作组
// @Summary 创建工作组
// @Tags WorkingGroup
// @Accept json
// @Security BearerAuth
// @Param id path int true "社区ID"
// @Param request body services.WorkingGroupRequest true "工作组"
// @Success 201 {object} models.WorkingGroup
// @Router /communities/{id}/working-groups [post]
func (c *WorkingGroupController) CreateGroup() {
	communityID, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.WorkingGroupRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	group, err := c.service().CreateGroup(actor(c.Ctx), communityID, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, group)
}

// 3. InitializeDefaults 为社区创建默认工作组，已存在的跳过
// @Summary 初始化默认工作组
// @Tags WorkingGroup
// @Security BearerAuth
// @Param id path int true "社区ID"
// @Success 200 {array} models.WorkingGroup
// @Router /communities/{id}/working-groups/initialize [post]
func (c *WorkingGroupController) InitializeDefaults() {
	communityID, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	groups, err := c.service().InitializeDefaults(actor(c.Ctx), communityID)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, groups)
}

// 4. GetGroup 工作组详情
// @Summary 工作组详情
// @Tags WorkingGroup
// @Security BearerAuth
// @Param id path int true "工作组ID"
// @Success 200 {object} models.WorkingGroup
// @Router /working-groups/{id} [get]
func (c *WorkingGroupController) GetGroup() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	group, err := c.service().GetGroup(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, group)
}

// 5. UpdateGroup 更新工作组
// @Summary 更新工作组
// @Tags WorkingGroup
// @Accept json
// @Security BearerAuth
// @Param id path int true "工作组ID"
// @Param request body services.WorkingGroupRequest true "工作组"
// @Success 200 {object} models.WorkingGroup
// @Router /working-groups/{id} [put]
func (c *WorkingGroupController) UpdateGroup() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.WorkingGroupRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	group, err := c.service().UpdateGroup(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, group)
}

// 6. DeleteGroup 删除工作组
// @Summary 删除工作组
// @Tags WorkingGroup
// @Security BearerAuth
// @Param id path int true "工作组ID"
// @Success 200 {object} map[string]interface{}
// @Router /working-groups/{id} [delete]
func (c *WorkingGroupController) DeleteGroup() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeleteGroup(actor(c.Ctx), id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 7. GetMembers 工作组成员
// @Summary 工作组成员
// @Tags WorkingGroup
// @Security BearerAuth
// @Param id path int true "工作组ID"
// @Success 200 {array} models.WorkingGroupMember
// @Router /working-groups/{id}/members [get]
func (c *WorkingGroupController) GetMembers() {
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

// 8. AddMember 添加工作组成员
// @Summary 添加工作组成员
// @Tags WorkingGroup
// @Accept json
// @Security BearerAuth
// @Param id path int true "工作组ID"
// @Param request body services.MemberRequest true "成员"
// @Success 201 {object} models.WorkingGroupMember
// @Router /working-groups/{id}/members [post]
func (c *WorkingGroupController) AddMember() {
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

// 9. RemoveMember 移除工作组成员
// @Summary 移除工作组成员
// @Tags WorkingGroup
// @Security BearerAuth
// @Param id path int true "工作组ID"
// @Param memberId path int true "成员ID"
// @Success 200 {object} map[string]interface{}
// @Router /working-groups/{id}/members/{memberId} [delete]
func (c *WorkingGroupController) RemoveMember() {
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

// 10. GetPermissions 工作组权限
// @Summary 工作组权限
// @Tags WorkingGroup
// @Security BearerAuth
// @Param id path int true "工作组ID"
// @Success 200 {array} models.WorkingGroupPermission
// @Router /working-groups/{id}/permissions [get]
func (c *WorkingGroupController) GetPermissions() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	perms, err := c.service().ListPermissions(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, perms)
}

// 11. AddPermission 授予工作组权限
// @Summary 授予工作组权限
// @Tags WorkingGroup
// @Accept json
// @Security BearerAuth
// @Param id path int true "工作组ID"
// @Param request body services.GroupPermissionRequest true "权限"
// @Success 201 {object} models.WorkingGroupPermission
// @Router /working-groups/{id}/permissions [post]
func (c *WorkingGroupController) AddPermission() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.GroupPermissionRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	perm, err := c.service().AddPermission(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, perm)
}

// 12. RemovePermission 撤销工作组权限
// @Summary 撤销工作组权限
// @Tags WorkingGroup
// @Security BearerAuth
// @Param id path int true "工作组ID"
// @Param permissionId path int true "权限ID"
// @Success 200 {object} map[string]interface{}
// @Router /working-groups/{id}/permissions/{permissionId} [delete]
func (c *WorkingGroupController) RemovePermission() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	permissionID, ok := paramID(c.Ctx, "permissionId")
	if !ok {
		return
	}
	if err := c.service().RemovePermission(actor(c.Ctx), id, permissionID); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}
