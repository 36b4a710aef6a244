package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// InterfaceAdminController 定义超级管理员控制器接口
type InterfaceAdminController interface {
	GetUsers()
	UpdateUser()
	RouteDoorbellTimeouts()
}

// AdminController 超级管理员控制器
type AdminController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAdminController 创建一个新的管理员控制器
func NewAdminController(ctx *gin.Context, container *container.ServiceContainer) *AdminController {
	return &AdminController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleAdminFunc 返回一个处理管理员请求的Gin处理函数
func HandleAdminFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAdminController(ctx, container)

		switch method {
		case "getUsers":
			controller.GetUsers()
		case "updateUser":
			controller.UpdateUser()
		case "routeDoorbellTimeouts":
			controller.RouteDoorbellTimeouts()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. GetUsers 分页获取用户
// @Summary      List users
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Param        search query string false "按名称或邮箱搜索"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /admin/users [get]
func (c *AdminController) GetUsers() {
	p := pagination(c.Ctx)
	users, result, err := c.Container.GetService("user").(services.InterfaceUserService).ListUsers(c.Ctx.Query("search"), p)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, users, result)
}

// 2. UpdateUser 更新用户的管理员标记、状态或名称
// @Summary      Update user
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "用户ID"
// @Param        request body services.UpdateUserRequest true "更新内容"
// @Success      200  {object}  models.User
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/users/{id} [put]
func (c *AdminController) UpdateUser() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.UpdateUserRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	user, err := c.Container.GetService("user").(services.InterfaceUserService).UpdateUser(id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, user)
}

// 3. RouteDoorbellTimeouts 立即执行一次门铃超时转前台
// @Summary      Route timed-out doorbell calls
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/doorbell/route-timeouts [post]
func (c *AdminController) RouteDoorbellTimeouts() {
	routed, err := c.Container.GetService("doorbell").(services.InterfaceDoorbellService).RouteTimedOutCalls(time.Now())
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"routed": routed})
}
