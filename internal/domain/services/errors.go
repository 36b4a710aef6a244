package services

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	ErrForbidden     = errors.New("permission denied")
	ErrInvalidParam  = errors.New("invalid parameter")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnavailable   = errors.New("dependency unavailable")
)

// 用户
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExist  = errors.New("user already exists")
	ErrPasswordIncorrect = errors.New("invalid email or password")
	ErrUserDisabled      = errors.New("user is disabled")
)

// 组织
var (
	ErrCommunityNotFound     = errors.New("community not found")
	ErrBuildingNotFound      = errors.New("building not found")
	ErrHouseholdNotFound     = errors.New("household not found")
	ErrMemberAlreadyExist    = errors.New("member already exists")
	ErrMemberNotFound        = errors.New("member not found")
	ErrWorkingGroupNotFound  = errors.New("working group not found")
	ErrInvalidInvitationCode = errors.New("invalid invitation code")
	ErrBuildingNotEmpty      = errors.New("building still has households or doorbells")
	ErrRoleNotAssignable     = errors.New("role cannot be assigned")
	ErrJoinRequestNotFound   = errors.New("join request not found")
	ErrJoinRequestNotPending = errors.New("join request has already been reviewed")
	ErrJoinRequestDuplicate  = errors.New("a pending join request already exists")
)

// 物品
var (
	ErrItemNotFound         = errors.New("item not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
)

// 工单
var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketInvalidStatus = errors.New("ticket status does not allow this operation")
)

// 工作流
var (
	ErrWorkflowNotFound         = errors.New("workflow not found")
	ErrWorkflowStepNotFound     = errors.New("workflow step not found")
	ErrWorkflowTaskNotFound     = errors.New("workflow task not found")
	ErrWorkflowTypeNotFound     = errors.New("workflow type not found")
	ErrWorkflowTemplateNotFound = errors.New("workflow template not found")
	ErrWorkflowTypeAlreadyExist = errors.New("workflow type already exists")
)

// 消息/通话/门铃
var (
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrCallNotFound          = errors.New("call not found")
	ErrCallInvalidState      = errors.New("call state does not allow this action")
	ErrCallOccupied          = errors.New("there is already an active call in this conversation")
	ErrDoorbellNotFound      = errors.New("doorbell not found")
	ErrDoorbellDisabled      = errors.New("doorbell is disabled")
	ErrDoorbellNoHousehold   = errors.New("doorbell is not linked to a household")
	ErrDoorbellWrongBuilding = errors.New("doorbell does not belong to this building")
	ErrDoorbellAlreadyExist  = errors.New("doorbell number already exists in this building")
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrAnnouncementNotFound  = errors.New("announcement not found")
)

// 设备
var (
	ErrDeviceNotFound      = errors.New("device not found")
	ErrDeviceAlreadyExist  = errors.New("device already registered")
	ErrDeviceCommandFailed = errors.New("device command failed")
)

// 餐饮
var (
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrCartEmpty           = errors.New("cart is empty")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrMenuItemInactive    = errors.New("menu item is not available")
	ErrInvalidScheduleTime = errors.New("scheduled time must be in the future")
	ErrInvalidOrderStatus  = errors.New("invalid order status")
)

// AI
var (
	ErrAINotConfigured = errors.New("AI service is not configured")
	ErrAIRequestFailed = errors.New("AI request failed")
)

// invalidParam wraps ErrInvalidParam with a message shown to the caller
func invalidParam(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParam, fmt.Sprintf(format, args...))
}
