// @title           EstateHub HTTP Service API
// @version         1.0
// @description     Multi-tenant property and household backend: communities, buildings, households, maintenance, workflows, messaging, doorbells, IoT devices and catering
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer ` prefix
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"estatehub-http-service/internal/app/jobs"
	"estatehub-http-service/internal/app/routes"
	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/database"
	"estatehub-http-service/internal/infrastructure/logger"
	"estatehub-http-service/internal/infrastructure/mqtt"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 设置最大处理器数量，提高并发性能
	runtime.GOMAXPROCS(runtime.NumCPU())

	// 加载.env文件；失败时继续，环境变量可能已通过其他方式设置
	envErr := godotenv.Load()

	cfg := config.GetConfig()

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "estatehub-http-service")
	if err != nil {
		fmt.Printf("初始化日志配置失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	if envErr != nil {
		log.Warn("无法加载.env文件", zap.Error(envErr))
	}

	if err := run(cfg, log); err != nil {
		log.Error("服务异常退出", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	// 创建优化的数据库连接池
	pool, err := database.NewConnectionPool(cfg)
	if err != nil {
		return fmt.Errorf("无法创建数据库连接池: %w", err)
	}
	defer pool.Close()
	db := pool.GetDB()

	if err := database.Migrate(db, cfg.DBMigrationMode); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	var broker *mqtt.Client
	if cfg.MQTTEnabled {
		broker = mqtt.NewClient(cfg)
		if err := broker.Connect(); err != nil {
			// 订阅会在重连后重放
			log.Warn("MQTT连接失败，设备控制与事件推送暂不可用", zap.Error(err))
		}
		defer broker.Disconnect()
	}

	serviceContainer := container.NewServiceContainer(pool, cfg, redisClient, broker)

	// 确保系统中有超级管理员账户
	userService := serviceContainer.GetService("user").(services.InterfaceUserService)
	if err := userService.EnsureAdminExists(cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
		return fmt.Errorf("初始化管理员失败: %w", err)
	}

	if broker != nil {
		deviceService := serviceContainer.GetService("device").(services.InterfaceIoTDeviceService)
		if err := deviceService.StartIngestion(); err != nil {
			log.Warn("设备状态订阅失败", zap.Error(err))
		}
	}

	scheduler := jobs.NewScheduler(logger.Named("jobs"))
	doorbellService := serviceContainer.GetService("doorbell").(services.InterfaceDoorbellService)
	if err := scheduler.AddDoorbellScan(cfg.DoorbellScanSpec, doorbellService); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	printSystemInfo(log, pool)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           routes.SetupRouter(serviceContainer, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("服务器启动", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("收到退出信号，开始优雅关闭", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

// printSystemInfo 打印运行环境与连接池信息
func printSystemInfo(log *zap.Logger, pool *database.ConnectionPool) {
	fields := []zap.Field{
		zap.String("go_version", runtime.Version()),
		zap.Int("num_cpu", runtime.NumCPU()),
		zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	}
	if stats, err := pool.Stats(); err == nil {
		fields = append(fields, zap.Any("db_pool", stats))
	}
	log.Info("系统信息", fields...)
}
