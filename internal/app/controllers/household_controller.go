package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// InterfaceHouseholdController 定义住户控制器接口
type InterfaceHouseholdController interface {
	GetHouseholds()
	GetHousehold()
	CreateHousehold()
	UpdateHousehold()
	DeleteHousehold()
	GetMembers()
	AddMember()
	UpdateMember()
	RemoveMember()
	Join()
	RegenerateInvitation()
}

// HouseholdController 处理住户相关的请求
type HouseholdController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewHouseholdController 创建一个新的住户控制器
func NewHouseholdController(ctx *gin.Context, container *container.ServiceContainer) *HouseholdController {
	return &HouseholdController{
		Ctx:       ctx,
		Container: container,
	}
}

// JoinHouseholdRequest 通过邀请码加入住户
type JoinHouseholdRequest struct {
	InvitationCode string `json:"invitation_code" binding:"required" example:"A1B2C3D4"`
}

// HandleHouseholdFunc 返回一个处理住户请求的Gin处理函数
func HandleHouseholdFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHouseholdController(ctx, container)

		switch method {
		case "getHouseholds":
			controller.GetHouseholds()
		case "getHousehold":
			controller.GetHousehold()
		case "createHousehold":
			controller.CreateHousehold()
		case "updateHousehold":
			controller.UpdateHousehold()
		case "deleteHousehold":
			controller.DeleteHousehold()
		case "getMembers":
			controller.GetMembers()
		case "addMember":
			controller.AddMember()
		case "updateMember":
			controller.UpdateMember()
		case "removeMember":
			controller.RemoveMember()
		case "join":
			controller.Join()
		case "regenerateInvitation":
			controller.RegenerateInvitation()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *HouseholdController) service() services.InterfaceHouseholdService {
	return c.Container.GetService("household").(services.InterfaceHouseholdService)
}

// 1. GetHouseholds 我的住户；超级管理员返回全部
// @Summary 获取住户列表
// @Tags Household
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码，默认为1"
// @Param page_size query int false "每页条数，默认为10"
// @Success 200 {object} map[string]interface{}
// @Router /households [get]
func (c *HouseholdController) GetHouseholds() {
	list, result, err := c.service().ListHouseholds(actor(c.Ctx), pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, list, result)
}

// 2. GetHousehold 获取住户详情
// @Summary 获取住户详情
// @Tags Household
// @Produce json
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Success 200 {object} models.Household
// @Failure 404 {object} ErrorResponse
// @Router /households/{id} [get]
func (c *HouseholdController) GetHousehold() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	household, err := c.service().GetHousehold(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, household)
}

// 3. CreateHousehold 创建住户，创建者成为 OWNER
// @Summary 创建住户
// @Tags Household
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.HouseholdRequest true "住户信息"
// @Success 201 {object} models.Household
// @Router /households [post]
func (c *HouseholdController) CreateHousehold() {
	var req services.HouseholdRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	household, err := c.service().CreateHousehold(actor(c.Ctx), &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, household)
}

// 4. UpdateHousehold 更新住户
// @Summary 更新住户
// @Tags Household
// @Accept json
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Param request body services.HouseholdRequest true "住户信息"
// @Success 200 {object} models.Household
// @Router /households/{id} [put]
func (c *HouseholdController) UpdateHousehold() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.HouseholdRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	household, err := c.service().UpdateHousehold(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, household)
}

// 5. DeleteHousehold 删除住户
// @Summary 删除住户
// @Tags Household
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Success 200 {object} map[string]interface{}
// @Router /households/{id} [delete]
func (c *HouseholdController) DeleteHousehold() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeleteHousehold(actor(c.Ctx), id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 6. GetMembers 住户成员
// @Summary 住户成员
// @Tags Household
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Success 200 {array} models.HouseholdMember
// @Router /households/{id}/members [get]
func (c *HouseholdController) GetMembers() {
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

// 7. AddMember 添加住户成员
// @Summary 添加住户成员
// @Tags Household
// @Accept json
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Param request body services.MemberRequest true "成员"
// @Success 201 {object} models.HouseholdMember
// @Router /households/{id}/members [post]
func (c *HouseholdController) AddMember() {
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

// 8. UpdateMember 修改住户成员角色
// @Summary 修改住户成员角色
// @Tags Household
// @Accept json
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Param memberId path int true "成员ID"
// @Param request body MemberRoleRequest true "角色"
// @Success 200 {object} models.HouseholdMember
// @Router /households/{id}/members/{memberId} [put]
func (c *HouseholdController) UpdateMember() {
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

// 9. RemoveMember 移除住户成员
// @Summary 移除住户成员
// @Tags Household
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Param memberId path int true "成员ID"
// @Success 200 {object} map[string]interface{}
// @Router /households/{id}/members/{memberId} [delete]
func (c *HouseholdController) RemoveMember() {
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

// 10. Join 通过邀请码以 USER 身份加入住户
// @Summary 加入住户
// @Tags Household
// @Accept json
// @Security BearerAuth
// @Param request body JoinHouseholdRequest true "邀请码"
// @Success 201 {object} models.HouseholdMember
// @Failure 409 {object} ErrorResponse "已是成员"
// @Router /households/join [post]
func (c *HouseholdController) Join() {
	var req JoinHouseholdRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	member, err := c.service().JoinByInvitation(actor(c.Ctx), req.InvitationCode)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, member)
}

// 11. RegenerateInvitation 重新生成邀请码
// @Summary 重新生成邀请码
// @Tags Household
// @Security BearerAuth
// @Param id path int true "住户ID"
// @Success 200 {object} map[string]interface{}
// @Router /households/{id}/invitation [post]
func (c *HouseholdController) RegenerateInvitation() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	invitation, err := c.service().RegenerateInvitationCode(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"invitation_code": invitation})
}
