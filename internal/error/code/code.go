package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusCreated - 201: 已创建.
	StatusCreated = 201
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusConflict - 409: 资源冲突.
	StatusConflict = 409
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
	// StatusBadGateway - 502: 上游服务错误.
	StatusBadGateway = 502
	// StatusServiceUnavailable - 503: 服务不可用.
	StatusServiceUnavailable = 503
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrTokenInvalid - 401: 令牌无效.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: 请求频率过高.
	ErrTooManyRequests
	// ErrForbidden - 403: 无权限.
	ErrForbidden
	// ErrNotFound - 404: 资源不存在.
	ErrNotFound
	// ErrServiceUnavailable - 503: 依赖服务不可用.
	ErrServiceUnavailable
	// ErrConflict - 409: 资源已存在.
	ErrConflict
)

// 用户相关错误码 (101xxx).
const (
	// ErrUserNotFound - 404: 用户不存在.
	ErrUserNotFound int = iota + 101000
	// ErrUserAlreadyExist - 409: 用户已存在.
	ErrUserAlreadyExist
	// ErrUserPasswordIncorrect - 401: 用户密码错误.
	ErrUserPasswordIncorrect
	// ErrUserDisabled - 403: 用户已停用.
	ErrUserDisabled
)

// 社区/楼栋/住户相关错误码 (102xxx).
const (
	// ErrCommunityNotFound - 404: 社区不存在.
	ErrCommunityNotFound int = iota + 102000
	// ErrBuildingNotFound - 404: 楼栋不存在.
	ErrBuildingNotFound
	// ErrHouseholdNotFound - 404: 住户不存在.
	ErrHouseholdNotFound
	// ErrMemberAlreadyExist - 409: 成员已存在.
	ErrMemberAlreadyExist
	// ErrMemberNotFound - 404: 成员不存在.
	ErrMemberNotFound
	// ErrWorkingGroupNotFound - 404: 工作组不存在.
	ErrWorkingGroupNotFound
	// ErrInvalidInvitationCode - 400: 邀请码无效.
	ErrInvalidInvitationCode
	// ErrBuildingNotEmpty - 400: 楼栋下仍有住户或门铃.
	ErrBuildingNotEmpty
	// ErrRoleNotAssignable - 403: 无法分配该角色.
	ErrRoleNotAssignable
	// ErrJoinRequestNotFound - 404: 加入申请不存在.
	ErrJoinRequestNotFound
	// ErrJoinRequestNotPending - 400: 申请已处理.
	ErrJoinRequestNotPending
	// ErrJoinRequestDuplicate - 400: 已有待处理的申请.
	ErrJoinRequestDuplicate
)

// 设备相关错误码 (103xxx).
const (
	// ErrDeviceNotFound - 404: 设备不存在.
	ErrDeviceNotFound int = iota + 103000
	// ErrDeviceAlreadyExist - 409: 设备已存在.
	ErrDeviceAlreadyExist
	// ErrDeviceOffline - 400: 设备离线.
	ErrDeviceOffline
	// ErrUnsupportedVendor - 400: 不支持的厂商.
	ErrUnsupportedVendor
	// ErrDeviceCommandFailed - 502: 设备指令下发失败.
	ErrDeviceCommandFailed
)

// 工单相关错误码 (104xxx).
const (
	// ErrTicketNotFound - 404: 工单不存在.
	ErrTicketNotFound int = iota + 104000
	// ErrTicketInvalidStatus - 400: 工单状态不允许该操作.
	ErrTicketInvalidStatus
)

// 工作流相关错误码 (105xxx).
const (
	// ErrWorkflowNotFound - 404: 工作流不存在.
	ErrWorkflowNotFound int = iota + 105000
	// ErrWorkflowStepNotFound - 404: 步骤不存在.
	ErrWorkflowStepNotFound
	// ErrWorkflowTaskNotFound - 404: 任务不存在.
	ErrWorkflowTaskNotFound
	// ErrWorkflowTypeNotFound - 404: 工作流类型不存在.
	ErrWorkflowTypeNotFound
	// ErrWorkflowTemplateNotFound - 404: 模板不存在.
	ErrWorkflowTemplateNotFound
	// ErrInvalidTransition - 400: 状态转换无效.
	ErrInvalidTransition
	// ErrWorkflowTypeAlreadyExist - 409: 工作流类型已存在.
	ErrWorkflowTypeAlreadyExist
)

// 消息/通话/门铃相关错误码 (106xxx).
const (
	// ErrConversationNotFound - 404: 会话不存在.
	ErrConversationNotFound int = iota + 106000
	// ErrCallNotFound - 404: 通话不存在.
	ErrCallNotFound
	// ErrCallInvalidState - 400: 通话状态不允许该操作.
	ErrCallInvalidState
	// ErrDoorbellNotFound - 404: 门铃不存在.
	ErrDoorbellNotFound
	// ErrDoorbellDisabled - 400: 门铃已停用.
	ErrDoorbellDisabled
	// ErrDoorbellNoHousehold - 400: 门铃未绑定住户.
	ErrDoorbellNoHousehold
	// ErrDoorbellWrongBuilding - 400: 门铃不属于该楼栋.
	ErrDoorbellWrongBuilding
	// ErrDoorbellAlreadyExist - 409: 门铃编号已存在.
	ErrDoorbellAlreadyExist
	// ErrNotificationNotFound - 404: 通知不存在.
	ErrNotificationNotFound
	// ErrCallOccupied - 409: 会话中已有进行中的通话.
	ErrCallOccupied
	// ErrAnnouncementNotFound - 404: 公告不存在.
	ErrAnnouncementNotFound
)

// 餐饮相关错误码 (107xxx).
const (
	// ErrMenuItemNotFound - 404: 菜单项不存在.
	ErrMenuItemNotFound int = iota + 107000
	// ErrOrderNotFound - 404: 订单不存在.
	ErrOrderNotFound
	// ErrCartEmpty - 400: 购物车为空.
	ErrCartEmpty
	// ErrInsufficientStock - 400: 库存不足.
	ErrInsufficientStock
	// ErrMenuItemInactive - 400: 菜单项已下架.
	ErrMenuItemInactive
	// ErrInvalidScheduleTime - 400: 预约时间无效.
	ErrInvalidScheduleTime
	// ErrInvalidOrderStatus - 400: 订单状态无效.
	ErrInvalidOrderStatus
)

// 数据库相关错误码 (108xxx).
const (
	// ErrDatabase - 500: 数据库错误.
	ErrDatabase int = iota + 108000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
)

// 物品相关错误码 (109xxx).
const (
	// ErrItemNotFound - 404: 物品不存在.
	ErrItemNotFound int = iota + 109000
	// ErrInsufficientQuantity - 400: 物品数量不足.
	ErrInsufficientQuantity
)

// AI相关错误码 (110xxx).
const (
	// ErrAINotConfigured - 503: 未配置AI服务.
	ErrAINotConfigured int = iota + 110000
	// ErrAIRequestFailed - 502: AI服务请求失败.
	ErrAIRequestFailed
)
