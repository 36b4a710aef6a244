package controllers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// HealthCheckController 健康检查控制器
type HealthCheckController struct {
	Container *container.ServiceContainer
}

// NewHealthCheckController 创建健康检查控制器实例
func NewHealthCheckController(container *container.ServiceContainer) *HealthCheckController {
	return &HealthCheckController{Container: container}
}

// Ping 健康检查端点
// @Summary Ping
// @Tags Health
// @Success 200 {object} map[string]interface{}
// @Router /ping [get]
func (h *HealthCheckController) Ping(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "healthy",
		"message": "pong",
	})
}

// Status 数据库、连接池、MQTT 与 Redis 状态；数据库不可用时返回 503
// @Summary Dependency status
// @Tags Health
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} ErrorResponse
// @Router /health/status [get]
func (h *HealthCheckController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := gin.H{"status": "healthy", "time": time.Now().Format(time.RFC3339)}
	healthy := true

	pool := h.Container.Pool()
	dbStatus := gin.H{"connected": false}
	if err := pool.HealthCheck(); err == nil {
		dbStatus["connected"] = true
		if stats, err := pool.Stats(); err == nil {
			dbStatus["pool"] = stats
		}
	} else {
		dbStatus["error"] = err.Error()
		healthy = false
	}
	status["database"] = dbStatus

	broker := h.Container.Broker()
	status["mqtt"] = gin.H{"connected": broker != nil && broker.IsConnected()}

	redisStatus := gin.H{"connected": true}
	if err := h.Container.GetService("redis").(services.InterfaceRedisService).Ping(ctx); err != nil {
		redisStatus = gin.H{"connected": false, "error": err.Error()}
	}
	status["redis"] = redisStatus

	if !healthy {
		status["status"] = "unhealthy"
		response.Fail(c, code.ErrServiceUnavailable, status)
		return
	}
	response.Success(c, status)
}
