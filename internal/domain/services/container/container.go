package container

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/iot"
	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/infrastructure/clients"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/database"
	"estatehub-http-service/internal/infrastructure/logger"
	"estatehub-http-service/internal/infrastructure/mqtt"
)

// deviceHTTPTimeout REST 厂商与云 API 请求超时
const deviceHTTPTimeout = 10 * time.Second

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	pool   *database.ConnectionPool
	db     *gorm.DB
	config *config.Config
	redis  *redis.Client
	broker *mqtt.Client

	// 基础服务
	jwtService          services.InterfaceJWTService
	redisService        services.InterfaceRedisService
	permissionService   services.InterfacePermissionService
	notificationService services.InterfaceNotificationService
	rtcService          services.InterfaceRTCService

	// 组织
	userService         services.InterfaceUserService
	communityService    services.InterfaceCommunityService
	buildingService     services.InterfaceBuildingService
	householdService    services.InterfaceHouseholdService
	workingGroupService services.InterfaceWorkingGroupService
	joinRequestService  services.InterfaceJoinRequestService
	announcementService services.InterfaceAnnouncementService

	// 业务服务
	itemService        services.InterfaceItemService
	maintenanceService services.InterfaceMaintenanceService
	workflowService    services.InterfaceWorkflowService
	messagingService   services.InterfaceMessagingService
	doorbellService    services.InterfaceDoorbellService
	deviceService      services.InterfaceIoTDeviceService
	cartService        services.InterfaceCartService
	cateringService    services.InterfaceCateringService
	aiService          services.InterfaceAIService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器；redisClient 与 broker 可为 nil
func NewServiceContainer(pool *database.ConnectionPool, cfg *config.Config, redisClient *redis.Client, broker *mqtt.Client) *ServiceContainer {
	if pool == nil || pool.GetDB() == nil {
		panic("数据库连接为空")
	}
	if cfg == nil {
		panic("配置为空")
	}

	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Named("container").Warn("Redis连接测试失败，缓存与去重将降级", zap.Error(err))
		}
	}

	c := &ServiceContainer{
		pool:   pool,
		db:     pool.GetDB(),
		config: cfg,
		redis:  redisClient,
		broker: broker,
	}
	c.initializeServices()
	return c
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var broker services.MessageBroker
	if c.broker != nil {
		broker = c.broker
	}

	if c.redis != nil {
		c.redisService = services.NewRedisServiceWithClient(c.redis)
	} else {
		c.redisService = services.NewRedisService(c.config)
	}

	c.jwtService = services.NewJWTService(c.config, c.db)
	c.permissionService = services.NewPermissionService(c.db, c.config)
	c.notificationService = services.NewNotificationService(c.db, c.config, broker)
	c.rtcService = services.NewRTCService(c.config)

	c.userService = services.NewUserService(c.db, c.config, c.jwtService)
	c.communityService = services.NewCommunityService(c.db, c.config, c.permissionService)
	c.buildingService = services.NewBuildingService(c.db, c.config, c.permissionService)
	c.householdService = services.NewHouseholdService(c.db, c.config, c.permissionService)
	c.workingGroupService = services.NewWorkingGroupService(c.db, c.config, c.permissionService)
	c.joinRequestService = services.NewJoinRequestService(c.db, c.config, c.permissionService, c.notificationService)
	c.announcementService = services.NewAnnouncementService(c.db, c.config, c.permissionService)

	c.itemService = services.NewItemService(c.db, c.config, c.permissionService, c.notificationService)
	c.maintenanceService = services.NewMaintenanceService(c.db, c.config, c.permissionService, c.notificationService)
	c.workflowService = services.NewWorkflowService(c.db, c.config, c.permissionService, c.notificationService)
	c.messagingService = services.NewMessagingService(c.db, c.config, c.permissionService, c.notificationService, c.rtcService)
	c.doorbellService = services.NewDoorbellService(c.db, c.config, c.permissionService, c.notificationService, c.redisService, broker)

	tuya := clients.NewTuyaClient(c.config.TuyaEndpoint, c.config.TuyaAccessID, c.config.TuyaAccessSecret, logger.Named("tuya"))
	c.deviceService = services.NewIoTDeviceService(c.db, c.config, c.permissionService, broker, iot.NewRESTTransport(deviceHTTPTimeout), tuya)

	c.cartService = services.NewCartService(c.db, c.redisService)
	c.cateringService = services.NewCateringService(c.db, c.config, c.permissionService, c.notificationService, c.maintenanceService, c.cartService)

	openai := clients.NewOpenAIClient(c.config.OpenAIBaseURL, c.config.OpenAIAPIKey, c.config.OpenAIModel, logger.Named("openai"))
	c.aiService = services.NewAIService(openai, c.itemService)
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "permission":
		return c.permissionService
	case "notification":
		return c.notificationService
	case "rtc":
		return c.rtcService
	case "user":
		return c.userService
	case "community":
		return c.communityService
	case "building":
		return c.buildingService
	case "household":
		return c.householdService
	case "working_group":
		return c.workingGroupService
	case "join_request":
		return c.joinRequestService
	case "announcement":
		return c.announcementService
	case "item":
		return c.itemService
	case "maintenance":
		return c.maintenanceService
	case "workflow":
		return c.workflowService
	case "messaging":
		return c.messagingService
	case "doorbell":
		return c.doorbellService
	case "device":
		return c.deviceService
	case "cart":
		return c.cartService
	case "catering":
		return c.cateringService
	case "ai":
		return c.aiService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Pool 获取连接池
func (c *ServiceContainer) Pool() *database.ConnectionPool {
	return c.pool
}

// GetConfig 获取配置
func (c *ServiceContainer) GetConfig() *config.Config {
	return c.config
}

// Broker 返回 MQTT 客户端，未启用时为 nil
func (c *ServiceContainer) Broker() *mqtt.Client {
	return c.broker
}
