package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "estatehub-http-service/docs"
	"estatehub-http-service/internal/app/controllers"
	"estatehub-http-service/internal/app/middleware"
	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/infrastructure/metrics"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(serviceContainer *container.ServiceContainer, log *zap.Logger) *gin.Engine {
	cfg := serviceContainer.GetConfig()
	if cfg.EnvType == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORSAllowOrigin))

	// 初始化认证中间件
	middleware.InitAuthMiddleware(serviceContainer.GetService("jwt").(services.InterfaceJWTService))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	api := r.Group("/api")
	registerPublicRoutes(api, container)
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	health := controllers.NewHealthCheckController(container)
	api.GET("/ping", health.Ping)
	api.GET("/health/status", health.Status)

	// 认证路由 - 每秒5个请求，最多突发10个
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.IPRateLimiter(5, 10))
	authGroup.POST("/register", controllers.HandleJWTFunc(container, "register"))
	authGroup.POST("/login", controllers.HandleJWTFunc(container, "login"))
}

// registerAuthenticatedRoutes 注册需要认证的路由
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	redis := container.GetService("redis").(services.InterfaceRedisService)
	cache := func(ttl time.Duration) gin.HandlerFunc {
		return middleware.Cache(redis, middleware.CacheConfig{Expiration: ttl})
	}

	auth := api.Group("")
	auth.Use(middleware.Authentication())
	// 每个用户每秒30个请求，最多突发50个
	auth.Use(middleware.UserRateLimiter(30, 50))
	auth.Use(middleware.PurgeUserCache(redis))

	auth.GET("/auth/me", controllers.HandleJWTFunc(container, "me"))

	// 超级管理员
	adminGroup := auth.Group("/admin")
	adminGroup.Use(middleware.RequireSuperAdmin())
	{
		adminGroup.GET("/users", controllers.HandleAdminFunc(container, "getUsers"))
		adminGroup.PUT("/users/:id", controllers.HandleAdminFunc(container, "updateUser"))
		adminGroup.POST("/doorbell/route-timeouts", controllers.HandleAdminFunc(container, "routeDoorbellTimeouts"))
	}

	// 社区
	communityGroup := auth.Group("/communities")
	{
		communityGroup.GET("", cache(30*time.Second), controllers.HandleCommunityFunc(container, "getCommunities"))
		communityGroup.POST("", controllers.HandleCommunityFunc(container, "createCommunity"))
		communityGroup.GET("/:id", cache(30*time.Second), controllers.HandleCommunityFunc(container, "getCommunity"))
		communityGroup.PUT("/:id", controllers.HandleCommunityFunc(container, "updateCommunity"))
		communityGroup.DELETE("/:id", controllers.HandleCommunityFunc(container, "deleteCommunity"))
		communityGroup.GET("/:id/members", controllers.HandleCommunityFunc(container, "getMembers"))
		communityGroup.POST("/:id/members", controllers.HandleCommunityFunc(container, "addMember"))
		communityGroup.PUT("/:id/members/:memberId", controllers.HandleCommunityFunc(container, "updateMember"))
		communityGroup.DELETE("/:id/members/:memberId", controllers.HandleCommunityFunc(container, "removeMember"))
		communityGroup.GET("/:id/buildings", controllers.HandleCommunityFunc(container, "getBuildings"))
		communityGroup.POST("/:id/buildings", controllers.HandleBuildingFunc(container, "createBuilding"))
		communityGroup.GET("/:id/working-groups", controllers.HandleWorkingGroupFunc(container, "getGroups"))
		communityGroup.POST("/:id/working-groups", controllers.HandleWorkingGroupFunc(container, "createGroup"))
		communityGroup.POST("/:id/working-groups/initialize", controllers.HandleWorkingGroupFunc(container, "initializeDefaults"))
	}

	// 楼栋
	buildingGroup := auth.Group("/buildings")
	{
		buildingGroup.GET("/:id", controllers.HandleBuildingFunc(container, "getBuilding"))
		buildingGroup.PUT("/:id", controllers.HandleBuildingFunc(container, "updateBuilding"))
		buildingGroup.DELETE("/:id", controllers.HandleBuildingFunc(container, "deleteBuilding"))
		buildingGroup.GET("/:id/households", controllers.HandleBuildingFunc(container, "getBuildingHouseholds"))
		buildingGroup.GET("/:id/members", controllers.HandleBuildingFunc(container, "getMembers"))
		buildingGroup.POST("/:id/members", controllers.HandleBuildingFunc(container, "addMember"))
		buildingGroup.DELETE("/:id/members/:memberId", controllers.HandleBuildingFunc(container, "removeMember"))
		buildingGroup.PUT("/:id/doorbell-timeout", controllers.HandleBuildingFunc(container, "setDoorbellTimeout"))

		buildingGroup.GET("/:id/doorbells", controllers.HandleDoorbellFunc(container, "getDoorbells"))
		buildingGroup.POST("/:id/doorbells", controllers.HandleDoorbellFunc(container, "createDoorbell"))
		buildingGroup.POST("/:id/doorbells/ring", middleware.CombinedRateLimiter(10, 20), controllers.HandleDoorbellFunc(container, "ring"))
		buildingGroup.GET("/:id/doorbell-calls", controllers.HandleDoorbellFunc(container, "getCalls"))
	}

	// 住户
	householdGroup := auth.Group("/households")
	{
		householdGroup.GET("", controllers.HandleHouseholdFunc(container, "getHouseholds"))
		householdGroup.POST("", controllers.HandleHouseholdFunc(container, "createHousehold"))
		householdGroup.POST("/join", controllers.HandleHouseholdFunc(container, "join"))
		householdGroup.GET("/:id", controllers.HandleHouseholdFunc(container, "getHousehold"))
		householdGroup.PUT("/:id", controllers.HandleHouseholdFunc(container, "updateHousehold"))
		householdGroup.DELETE("/:id", controllers.HandleHouseholdFunc(container, "deleteHousehold"))
		householdGroup.GET("/:id/members", controllers.HandleHouseholdFunc(container, "getMembers"))
		householdGroup.POST("/:id/members", controllers.HandleHouseholdFunc(container, "addMember"))
		householdGroup.PUT("/:id/members/:memberId", controllers.HandleHouseholdFunc(container, "updateMember"))
		householdGroup.DELETE("/:id/members/:memberId", controllers.HandleHouseholdFunc(container, "removeMember"))
		householdGroup.POST("/:id/invitation", controllers.HandleHouseholdFunc(container, "regenerateInvitation"))

		householdGroup.GET("/:id/items", controllers.HandleItemFunc(container, "getItems"))
		householdGroup.POST("/:id/items", controllers.HandleItemFunc(container, "createItem"))
		householdGroup.GET("/:id/devices", controllers.HandleDeviceFunc(container, "getDevices"))
		householdGroup.POST("/:id/devices", controllers.HandleDeviceFunc(container, "createDevice"))
	}

	// 工作组
	groupGroup := auth.Group("/working-groups")
	{
		groupGroup.GET("/:id", controllers.HandleWorkingGroupFunc(container, "getGroup"))
		groupGroup.PUT("/:id", controllers.HandleWorkingGroupFunc(container, "updateGroup"))
		groupGroup.DELETE("/:id", controllers.HandleWorkingGroupFunc(container, "deleteGroup"))
		groupGroup.GET("/:id/members", controllers.HandleWorkingGroupFunc(container, "getMembers"))
		groupGroup.POST("/:id/members", controllers.HandleWorkingGroupFunc(container, "addMember"))
		groupGroup.DELETE("/:id/members/:memberId", controllers.HandleWorkingGroupFunc(container, "removeMember"))
		groupGroup.GET("/:id/permissions", controllers.HandleWorkingGroupFunc(container, "getPermissions"))
		groupGroup.POST("/:id/permissions", controllers.HandleWorkingGroupFunc(container, "addPermission"))
		groupGroup.DELETE("/:id/permissions/:permissionId", controllers.HandleWorkingGroupFunc(container, "removePermission"))
	}

	// 物品
	itemGroup := auth.Group("/items")
	{
		itemGroup.GET("/:id", controllers.HandleItemFunc(container, "getItem"))
		itemGroup.PUT("/:id", controllers.HandleItemFunc(container, "updateItem"))
		itemGroup.DELETE("/:id", controllers.HandleItemFunc(container, "deleteItem"))
		itemGroup.POST("/:id/checkout", controllers.HandleItemFunc(container, "checkout"))
		itemGroup.POST("/:id/move", controllers.HandleItemFunc(container, "move"))
		itemGroup.GET("/:id/history", controllers.HandleItemFunc(container, "getHistory"))
		itemGroup.POST("/:id/ai-enhance", middleware.UserRateLimiter(1, 3), controllers.HandleAIFunc(container, "enhanceItem"))
	}

	// 维修工单
	ticketGroup := auth.Group("/maintenance/tickets")
	{
		ticketGroup.GET("", controllers.HandleMaintenanceFunc(container, "getTickets"))
		ticketGroup.POST("", controllers.HandleMaintenanceFunc(container, "createTicket"))
		ticketGroup.GET("/:id", controllers.HandleMaintenanceFunc(container, "getTicket"))
		ticketGroup.POST("/:id/evaluate", controllers.HandleMaintenanceFunc(container, "evaluateTicket"))
		ticketGroup.POST("/:id/start", controllers.HandleMaintenanceFunc(container, "startTicket"))
		ticketGroup.POST("/:id/complete", controllers.HandleMaintenanceFunc(container, "completeTicket"))
		ticketGroup.POST("/:id/signoff", controllers.HandleMaintenanceFunc(container, "signoffTicket"))
		ticketGroup.POST("/:id/cancel", controllers.HandleMaintenanceFunc(container, "cancelTicket"))
	}

	// 工作流
	typeGroup := auth.Group("/workflow-types")
	{
		typeGroup.GET("", cache(time.Minute), controllers.HandleWorkflowFunc(container, "getTypes"))
		typeGroup.POST("", controllers.HandleWorkflowFunc(container, "createType"))
		typeGroup.GET("/:id", controllers.HandleWorkflowFunc(container, "getType"))
		typeGroup.PUT("/:id", controllers.HandleWorkflowFunc(container, "updateType"))
		typeGroup.DELETE("/:id", controllers.HandleWorkflowFunc(container, "deleteType"))
	}
	templateGroup := auth.Group("/workflow-templates")
	{
		templateGroup.GET("", controllers.HandleWorkflowFunc(container, "getTemplates"))
		templateGroup.POST("", controllers.HandleWorkflowFunc(container, "createTemplate"))
		templateGroup.GET("/:id", controllers.HandleWorkflowFunc(container, "getTemplate"))
		templateGroup.PUT("/:id", controllers.HandleWorkflowFunc(container, "updateTemplate"))
		templateGroup.DELETE("/:id", controllers.HandleWorkflowFunc(container, "deleteTemplate"))
		templateGroup.PUT("/:id/steps", controllers.HandleWorkflowFunc(container, "replaceTemplateSteps"))
	}
	workflowGroup := auth.Group("/workflows")
	{
		workflowGroup.GET("", controllers.HandleWorkflowFunc(container, "getWorkflows"))
		workflowGroup.POST("", controllers.HandleWorkflowFunc(container, "createWorkflow"))
		workflowGroup.GET("/:id", controllers.HandleWorkflowFunc(container, "getWorkflow"))
		workflowGroup.PUT("/:id", controllers.HandleWorkflowFunc(container, "updateWorkflow"))
		workflowGroup.DELETE("/:id", controllers.HandleWorkflowFunc(container, "cancelWorkflow"))
		workflowGroup.GET("/:id/steps", controllers.HandleWorkflowFunc(container, "getSteps"))
		workflowGroup.POST("/:id/steps", controllers.HandleWorkflowFunc(container, "addStep"))
		workflowGroup.PUT("/:id/steps/:stepId", controllers.HandleWorkflowFunc(container, "updateStep"))
		workflowGroup.GET("/:id/steps/:stepId/tasks", controllers.HandleWorkflowFunc(container, "getTasks"))
		workflowGroup.POST("/:id/steps/:stepId/tasks", controllers.HandleWorkflowFunc(container, "createTask"))
		workflowGroup.GET("/:id/tasks/:taskId", controllers.HandleWorkflowFunc(container, "getTask"))
		workflowGroup.PUT("/:id/tasks/:taskId", controllers.HandleWorkflowFunc(container, "updateTask"))
		workflowGroup.POST("/:id/tasks/:taskId/start", controllers.HandleWorkflowFunc(container, "startTask"))
		workflowGroup.POST("/:id/tasks/:taskId/complete", controllers.HandleWorkflowFunc(container, "completeTask"))
		workflowGroup.POST("/:id/tasks/:taskId/log", controllers.HandleWorkflowFunc(container, "addTaskLog"))
		workflowGroup.GET("/:id/tasks/:taskId/logs", controllers.HandleWorkflowFunc(container, "getTaskLogs"))
	}

	// 会话与通话
	conversationGroup := auth.Group("/conversations")
	{
		conversationGroup.GET("", controllers.HandleMessagingFunc(container, "getConversations"))
		conversationGroup.POST("", controllers.HandleMessagingFunc(container, "createConversation"))
		conversationGroup.GET("/:id", controllers.HandleMessagingFunc(container, "getConversation"))
		conversationGroup.GET("/:id/messages", controllers.HandleMessagingFunc(container, "getMessages"))
		conversationGroup.POST("/:id/messages", controllers.HandleMessagingFunc(container, "sendMessage"))
		conversationGroup.GET("/:id/calls", controllers.HandleMessagingFunc(container, "getCalls"))
		conversationGroup.POST("/:id/calls", controllers.HandleMessagingFunc(container, "startCall"))
		conversationGroup.PUT("/:id/calls/:callId", controllers.HandleMessagingFunc(container, "updateCall"))
	}

	// 通知
	notificationGroup := auth.Group("/notifications")
	{
		notificationGroup.GET("", controllers.HandleNotificationFunc(container, "getNotifications"))
		notificationGroup.GET("/unread-count", controllers.HandleNotificationFunc(container, "unreadCount"))
		notificationGroup.PUT("/read-all", controllers.HandleNotificationFunc(container, "markAllRead"))
		notificationGroup.PUT("/:id/read", controllers.HandleNotificationFunc(container, "markRead"))
	}

	// 公告
	announcementGroup := auth.Group("/announcements")
	{
		announcementGroup.GET("", controllers.HandleAnnouncementFunc(container, "getAnnouncements"))
		announcementGroup.POST("", controllers.HandleAnnouncementFunc(container, "createAnnouncement"))
		announcementGroup.PUT("/:id/read", controllers.HandleAnnouncementFunc(container, "markRead"))
		announcementGroup.DELETE("/:id", controllers.HandleAnnouncementFunc(container, "deactivateAnnouncement"))
	}

	// 加入申请
	joinGroup := auth.Group("/join-requests")
	{
		joinGroup.GET("", controllers.HandleJoinRequestFunc(container, "getJoinRequests"))
		joinGroup.POST("", controllers.HandleJoinRequestFunc(container, "submitJoinRequest"))
		joinGroup.POST("/:id/approve", controllers.HandleJoinRequestFunc(container, "approveJoinRequest"))
		joinGroup.POST("/:id/reject", controllers.HandleJoinRequestFunc(container, "rejectJoinRequest"))
	}

	// 门铃
	auth.PUT("/doorbells/:id", controllers.HandleDoorbellFunc(container, "updateDoorbell"))
	auth.DELETE("/doorbells/:id", controllers.HandleDoorbellFunc(container, "deleteDoorbell"))
	auth.GET("/doorbell-calls/:id", controllers.HandleDoorbellFunc(container, "getCall"))
	auth.PUT("/doorbell-calls/:id", controllers.HandleDoorbellFunc(container, "updateCall"))

	// 设备
	deviceGroup := auth.Group("/devices")
	{
		deviceGroup.GET("/:id", controllers.HandleDeviceFunc(container, "getDevice"))
		deviceGroup.PUT("/:id", controllers.HandleDeviceFunc(container, "updateDevice"))
		deviceGroup.DELETE("/:id", controllers.HandleDeviceFunc(container, "deleteDevice"))
		deviceGroup.POST("/:id/control", middleware.CombinedRateLimiter(5, 10), controllers.HandleDeviceFunc(container, "control"))
		deviceGroup.GET("/:id/state", controllers.HandleDeviceFunc(container, "getState"))
	}

	// 餐饮
	cateringGroup := auth.Group("/catering")
	{
		cateringGroup.GET("/menu", cache(30*time.Second), controllers.HandleCateringFunc(container, "getMenu"))
		cateringGroup.POST("/menu", controllers.HandleCateringFunc(container, "createMenuItem"))
		cateringGroup.GET("/menu/:id", controllers.HandleCateringFunc(container, "getMenuItem"))
		cateringGroup.PUT("/menu/:id", controllers.HandleCateringFunc(container, "updateMenuItem"))
		cateringGroup.DELETE("/menu/:id", controllers.HandleCateringFunc(container, "deleteMenuItem"))

		cateringGroup.GET("/cart", controllers.HandleCateringFunc(container, "getCart"))
		cateringGroup.POST("/cart", controllers.HandleCateringFunc(container, "addCartItem"))
		cateringGroup.DELETE("/cart", controllers.HandleCateringFunc(container, "clearCart"))
		cateringGroup.DELETE("/cart/:itemId", controllers.HandleCateringFunc(container, "removeCartItem"))

		cateringGroup.GET("/orders", controllers.HandleCateringFunc(container, "getOrders"))
		cateringGroup.POST("/orders", controllers.HandleCateringFunc(container, "placeOrder"))
		cateringGroup.GET("/orders/:id", controllers.HandleCateringFunc(container, "getOrder"))
		cateringGroup.PUT("/orders/:id/status", controllers.HandleCateringFunc(container, "updateOrderStatus"))
		cateringGroup.POST("/orders/:id/kitchen-work-order", controllers.HandleCateringFunc(container, "createKitchenWorkOrder"))
		cateringGroup.GET("/export", controllers.HandleCateringFunc(container, "exportOrders"))
	}

	// AI 助手 - 每个用户每秒1个请求，最多突发3个
	aiGroup := auth.Group("/ai")
	aiGroup.Use(middleware.UserRateLimiter(1, 3))
	aiGroup.POST("/chat", controllers.HandleAIFunc(container, "chat"))

	// 腾讯云 TRTC
	rtcGroup := auth.Group("/rtc")
	rtcGroup.GET("/usersig", controllers.HandleRTCFunc(container, "getUserSig"))
	rtcGroup.POST("/private-map-key", controllers.HandleRTCFunc(container, "getPrivateMapKey"))
}
