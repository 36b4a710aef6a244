package controllers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estatehub-http-service/internal/app/middleware"
	"estatehub-http-service/internal/domain/iot"
	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/workflow"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
	"estatehub-http-service/internal/infrastructure/logger"
)

// ErrorResponse 表示错误响应
type ErrorResponse struct {
	Code    int         `json:"code" example:"100006"`
	Message string      `json:"message" example:"permission denied"`
	Data    interface{} `json:"data"`
}

// errorCodes 按顺序匹配服务层错误
var errorCodes = []struct {
	err  error
	code int
}{
	{services.ErrForbidden, code.ErrForbidden},
	{services.ErrInvalidParam, code.ErrValidation},
	{services.ErrAlreadyExists, code.ErrConflict},
	{services.ErrUnavailable, code.ErrServiceUnavailable},

	{services.ErrUserNotFound, code.ErrUserNotFound},
	{services.ErrUserAlreadyExist, code.ErrUserAlreadyExist},
	{services.ErrPasswordIncorrect, code.ErrUserPasswordIncorrect},
	{services.ErrUserDisabled, code.ErrUserDisabled},

	{services.ErrCommunityNotFound, code.ErrCommunityNotFound},
	{services.ErrBuildingNotFound, code.ErrBuildingNotFound},
	{services.ErrHouseholdNotFound, code.ErrHouseholdNotFound},
	{services.ErrMemberAlreadyExist, code.ErrMemberAlreadyExist},
	{services.ErrMemberNotFound, code.ErrMemberNotFound},
	{services.ErrWorkingGroupNotFound, code.ErrWorkingGroupNotFound},
	{services.ErrInvalidInvitationCode, code.ErrInvalidInvitationCode},
	{services.ErrBuildingNotEmpty, code.ErrBuildingNotEmpty},
	{services.ErrRoleNotAssignable, code.ErrRoleNotAssignable},
	{services.ErrJoinRequestNotFound, code.ErrJoinRequestNotFound},
	{services.ErrJoinRequestNotPending, code.ErrJoinRequestNotPending},
	{services.ErrJoinRequestDuplicate, code.ErrJoinRequestDuplicate},

	{services.ErrItemNotFound, code.ErrItemNotFound},
	{services.ErrInsufficientQuantity, code.ErrInsufficientQuantity},

	{services.ErrTicketNotFound, code.ErrTicketNotFound},
	{services.ErrTicketInvalidStatus, code.ErrTicketInvalidStatus},

	{services.ErrWorkflowNotFound, code.ErrWorkflowNotFound},
	{services.ErrWorkflowStepNotFound, code.ErrWorkflowStepNotFound},
	{services.ErrWorkflowTaskNotFound, code.ErrWorkflowTaskNotFound},
	{services.ErrWorkflowTypeNotFound, code.ErrWorkflowTypeNotFound},
	{services.ErrWorkflowTemplateNotFound, code.ErrWorkflowTemplateNotFound},
	{services.ErrWorkflowTypeAlreadyExist, code.ErrWorkflowTypeAlreadyExist},
	{workflow.ErrInvalidTransition, code.ErrInvalidTransition},
	{workflow.ErrWorkflowClosed, code.ErrInvalidTransition},
	{workflow.ErrUnknownStatus, code.ErrValidation},

	{services.ErrConversationNotFound, code.ErrConversationNotFound},
	{services.ErrCallNotFound, code.ErrCallNotFound},
	{services.ErrCallInvalidState, code.ErrCallInvalidState},
	{services.ErrCallOccupied, code.ErrCallOccupied},
	{services.ErrDoorbellNotFound, code.ErrDoorbellNotFound},
	{services.ErrDoorbellDisabled, code.ErrDoorbellDisabled},
	{services.ErrDoorbellNoHousehold, code.ErrDoorbellNoHousehold},
	{services.ErrDoorbellWrongBuilding, code.ErrDoorbellWrongBuilding},
	{services.ErrDoorbellAlreadyExist, code.ErrDoorbellAlreadyExist},
	{services.ErrNotificationNotFound, code.ErrNotificationNotFound},
	{services.ErrAnnouncementNotFound, code.ErrAnnouncementNotFound},

	{services.ErrDeviceNotFound, code.ErrDeviceNotFound},
	{services.ErrDeviceAlreadyExist, code.ErrDeviceAlreadyExist},
	{services.ErrDeviceCommandFailed, code.ErrDeviceCommandFailed},
	{iot.ErrUnsupportedVendor, code.ErrUnsupportedVendor},
	{iot.ErrMissingConfig, code.ErrValidation},
	{iot.ErrInvalidPayload, code.ErrDeviceCommandFailed},

	{services.ErrMenuItemNotFound, code.ErrMenuItemNotFound},
	{services.ErrOrderNotFound, code.ErrOrderNotFound},
	{services.ErrCartEmpty, code.ErrCartEmpty},
	{services.ErrInsufficientStock, code.ErrInsufficientStock},
	{services.ErrMenuItemInactive, code.ErrMenuItemInactive},
	{services.ErrInvalidScheduleTime, code.ErrInvalidScheduleTime},
	{services.ErrInvalidOrderStatus, code.ErrInvalidOrderStatus},

	{services.ErrAINotConfigured, code.ErrAINotConfigured},
	{services.ErrAIRequestFailed, code.ErrAIRequestFailed},
}

// errorCode 返回服务层错误对应的业务码，未知错误为 0
func errorCode(err error) int {
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return 0
}

// handleError 将服务层错误写为统一响应
func handleError(c *gin.Context, err error) {
	if errCode := errorCode(err); errCode != 0 {
		response.FailWithMessage(c, errCode, err.Error(), nil)
		return
	}
	logger.Named("http").Error("unhandled service error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	response.Fail(c, code.ErrDatabase, nil)
}

// bindJSON 绑定请求体，失败时写入参数错误
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.FailWithMessage(c, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return false
	}
	return true
}

// paramID 解析路径参数中的 ID
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ParamError(c, "无效的"+name)
		return 0, false
	}
	return uint(id), true
}

// queryUint 解析可选的查询参数，缺省或非法时为 0
func queryUint(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func queryBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}

// pagination 读取 page/page_size
func pagination(c *gin.Context) models.PaginationQuery {
	var p models.PaginationQuery
	_ = c.ShouldBindQuery(&p)
	return p.Normalize()
}

func paginated(c *gin.Context, data interface{}, result services.ListResult) {
	response.Paginated(c, data, result.Total, result.Page, result.PageSize)
}

// actor 当前认证用户
func actor(c *gin.Context) uint {
	return middleware.CurrentUserID(c)
}
