package middleware

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/infrastructure/logger"
)

// CachePrefix 响应缓存键前缀
const CachePrefix = "estatehub:cache:"

// CacheConfig 缓存配置
type CacheConfig struct {
	Expiration time.Duration             // 缓存过期时间
	KeyFunc    func(*gin.Context) string // 自定义缓存键生成函数
}

// DefaultCacheConfig 默认缓存配置
var DefaultCacheConfig = CacheConfig{
	Expiration: time.Minute,
	KeyFunc:    defaultKeyFunc,
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

// defaultKeyFunc 路径+排序后的查询参数+用户，响应按用户隔离
func defaultKeyFunc(c *gin.Context) string {
	queryParams := c.Request.URL.Query()
	keys := make([]string, 0, len(queryParams))
	for key := range queryParams {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(c.Request.URL.Path)
	b.WriteString("?")
	for _, key := range keys {
		values := queryParams[key]
		sort.Strings(values)
		for _, value := range values {
			b.WriteString(key + "=" + value + "&")
		}
	}

	hasher := md5.New()
	hasher.Write([]byte(b.String()))
	return "u" + uintToString(CurrentUserID(c)) + ":" + hex.EncodeToString(hasher.Sum(nil))
}

// Cache 创建基于 Redis 的 GET 响应缓存中间件；redis 为 nil 时直接透传
func Cache(redis services.InterfaceRedisService, config ...CacheConfig) gin.HandlerFunc {
	cfg := DefaultCacheConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = DefaultCacheConfig.Expiration
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = DefaultCacheConfig.KeyFunc
	}

	return func(c *gin.Context) {
		if redis == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := CachePrefix + cfg.KeyFunc(c)
		if content, err := redis.GetRaw(key); err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", content)
			c.Abort()
			return
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if err := redis.SetRaw(key, writer.body.Bytes(), cfg.Expiration); err != nil {
				logger.Named("cache").Warn("store response failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			}
		}
	}
}

// PurgeUserCache 写操作后清除该用户的缓存响应
func PurgeUserCache(redis services.InterfaceRedisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if redis == nil || c.Request.Method == http.MethodGet || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		if err := redis.DeleteByPrefix(CachePrefix + "u" + uintToString(CurrentUserID(c)) + ":"); err != nil {
			logger.Named("cache").Warn("purge cache failed", zap.Error(err))
		}
	}
}

// 自定义响应写入器，用于捕获响应内容
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 同时写入原始响应和缓冲区
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// WriteString 同时写入原始响应和缓冲区
func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
