package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:            "success",
	ErrUnknown:            "internal server error",
	ErrBind:               "invalid request body",
	ErrValidation:         "request validation failed",
	ErrTokenInvalid:       "invalid or expired token",
	ErrTooManyRequests:    "too many requests",
	ErrForbidden:          "permission denied",
	ErrNotFound:           "resource not found",
	ErrServiceUnavailable: "service unavailable",
	ErrConflict:           "resource already exists",

	// 用户相关错误码
	ErrUserNotFound:          "user not found",
	ErrUserAlreadyExist:      "email already registered",
	ErrUserPasswordIncorrect: "invalid email or password",
	ErrUserDisabled:          "user is disabled",

	// 社区/楼栋/住户相关错误码
	ErrCommunityNotFound:     "community not found",
	ErrBuildingNotFound:      "building not found",
	ErrHouseholdNotFound:     "household not found",
	ErrMemberAlreadyExist:    "member already exists",
	ErrMemberNotFound:        "member not found",
	ErrWorkingGroupNotFound:  "working group not found",
	ErrInvalidInvitationCode: "invalid invitation code",
	ErrBuildingNotEmpty:      "building still has households or doorbells",
	ErrRoleNotAssignable:     "role cannot be assigned",
	ErrJoinRequestNotFound:   "join request not found",
	ErrJoinRequestNotPending: "join request has already been reviewed",
	ErrJoinRequestDuplicate:  "a pending join request already exists",

	// 设备相关错误码
	ErrDeviceNotFound:      "device not found",
	ErrDeviceAlreadyExist:  "device already registered",
	ErrDeviceOffline:       "device is offline",
	ErrUnsupportedVendor:   "unsupported vendor",
	ErrDeviceCommandFailed: "device command failed",

	// 工单相关错误码
	ErrTicketNotFound:      "ticket not found",
	ErrTicketInvalidStatus: "ticket status does not allow this operation",

	// 工作流相关错误码
	ErrWorkflowNotFound:         "workflow not found",
	ErrWorkflowStepNotFound:     "workflow step not found",
	ErrWorkflowTaskNotFound:     "workflow task not found",
	ErrWorkflowTypeNotFound:     "workflow type not found",
	ErrWorkflowTemplateNotFound: "workflow template not found",
	ErrInvalidTransition:        "invalid status transition",
	ErrWorkflowTypeAlreadyExist: "workflow type already exists",

	// 消息/通话/门铃相关错误码
	ErrConversationNotFound:  "conversation not found",
	ErrCallNotFound:          "call session not found",
	ErrCallInvalidState:      "call session state does not allow this action",
	ErrDoorbellNotFound:      "doorbell not found",
	ErrDoorbellDisabled:      "doorbell is disabled",
	ErrDoorbellNoHousehold:   "doorbell is not linked to a household",
	ErrDoorbellWrongBuilding: "doorbell does not belong to this building",
	ErrDoorbellAlreadyExist:  "doorbell number already exists in this building",
	ErrNotificationNotFound:  "notification not found",
	ErrAnnouncementNotFound:  "announcement not found",
	ErrCallOccupied:          "there is already an active call in this conversation",

	// 餐饮相关错误码
	ErrMenuItemNotFound:    "menu item not found",
	ErrOrderNotFound:       "order not found",
	ErrCartEmpty:           "cart is empty",
	ErrInsufficientStock:   "insufficient stock",
	ErrMenuItemInactive:    "menu item is not available",
	ErrInvalidScheduleTime: "scheduled time must be in the future",
	ErrInvalidOrderStatus:  "invalid order status",

	// 数据库相关错误码
	ErrDatabase:       "database error",
	ErrRecordNotFound: "record not found",

	// 物品相关错误码
	ErrItemNotFound:         "item not found",
	ErrInsufficientQuantity: "insufficient quantity",

	// AI相关错误码
	ErrAINotConfigured: "AI service is not configured",
	ErrAIRequestFailed: "AI service request failed",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	ErrSuccess:            StatusOK,
	ErrUnknown:            StatusInternalServerError,
	ErrBind:               StatusBadRequest,
	ErrValidation:         StatusBadRequest,
	ErrTokenInvalid:       StatusUnauthorized,
	ErrTooManyRequests:    StatusTooManyRequests,
	ErrForbidden:          StatusForbidden,
	ErrNotFound:           StatusNotFound,
	ErrServiceUnavailable: StatusServiceUnavailable,
	ErrConflict:           StatusConflict,

	ErrUserNotFound:          StatusNotFound,
	ErrUserAlreadyExist:      StatusConflict,
	ErrUserPasswordIncorrect: StatusUnauthorized,
	ErrUserDisabled:          StatusForbidden,

	ErrCommunityNotFound:     StatusNotFound,
	ErrBuildingNotFound:      StatusNotFound,
	ErrHouseholdNotFound:     StatusNotFound,
	ErrMemberAlreadyExist:    StatusConflict,
	ErrMemberNotFound:        StatusNotFound,
	ErrWorkingGroupNotFound:  StatusNotFound,
	ErrInvalidInvitationCode: StatusBadRequest,
	ErrBuildingNotEmpty:      StatusBadRequest,
	ErrRoleNotAssignable:     StatusForbidden,
	ErrJoinRequestNotFound:   StatusNotFound,
	ErrJoinRequestNotPending: StatusBadRequest,
	ErrJoinRequestDuplicate:  StatusBadRequest,

	ErrDeviceNotFound:      StatusNotFound,
	ErrDeviceAlreadyExist:  StatusConflict,
	ErrDeviceOffline:       StatusBadRequest,
	ErrUnsupportedVendor:   StatusBadRequest,
	ErrDeviceCommandFailed: StatusBadGateway,

	ErrTicketNotFound:      StatusNotFound,
	ErrTicketInvalidStatus: StatusBadRequest,

	ErrWorkflowNotFound:         StatusNotFound,
	ErrWorkflowStepNotFound:     StatusNotFound,
	ErrWorkflowTaskNotFound:     StatusNotFound,
	ErrWorkflowTypeNotFound:     StatusNotFound,
	ErrWorkflowTemplateNotFound: StatusNotFound,
	ErrInvalidTransition:        StatusBadRequest,
	ErrWorkflowTypeAlreadyExist: StatusConflict,

	ErrConversationNotFound:  StatusNotFound,
	ErrCallNotFound:          StatusNotFound,
	ErrCallInvalidState:      StatusBadRequest,
	ErrDoorbellNotFound:      StatusNotFound,
	ErrDoorbellDisabled:      StatusBadRequest,
	ErrDoorbellNoHousehold:   StatusBadRequest,
	ErrDoorbellWrongBuilding: StatusBadRequest,
	ErrDoorbellAlreadyExist:  StatusConflict,
	ErrNotificationNotFound:  StatusNotFound,
	ErrAnnouncementNotFound:  StatusNotFound,
	ErrCallOccupied:          StatusConflict,

	ErrMenuItemNotFound:    StatusNotFound,
	ErrOrderNotFound:       StatusNotFound,
	ErrCartEmpty:           StatusBadRequest,
	ErrInsufficientStock:   StatusBadRequest,
	ErrMenuItemInactive:    StatusBadRequest,
	ErrInvalidScheduleTime: StatusBadRequest,
	ErrInvalidOrderStatus:  StatusBadRequest,

	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,

	ErrItemNotFound:         StatusNotFound,
	ErrInsufficientQuantity: StatusBadRequest,

	ErrAINotConfigured: StatusServiceUnavailable,
	ErrAIRequestFailed: StatusBadGateway,
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "unknown error"
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
