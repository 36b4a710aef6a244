package clients

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const tuyaTokenPath = "/v1.0/token?grant_type=1"

// TuyaClient 涂鸦云开放平台客户端（HMAC-SHA256 签名）
type TuyaClient struct {
	httpClient   *resty.Client
	accessID     string
	accessSecret string
	logger       *zap.Logger
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewTuyaClient 创建涂鸦云客户端
func NewTuyaClient(endpoint, accessID, accessSecret string, logger *zap.Logger) *TuyaClient {
	if endpoint == "" {
		endpoint = "https://openapi.tuyaus.com"
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json")

	return &TuyaClient{
		httpClient:   client,
		accessID:     accessID,
		accessSecret: accessSecret,
		logger:       logger,
		now:          time.Now,
	}
}

// Configured reports whether cloud credentials are set
func (c *TuyaClient) Configured() bool {
	return c != nil && c.accessID != "" && c.accessSecret != ""
}

// sign 计算签名: HMAC-SHA256(client_id + access_token + t + nonce + stringToSign)
func (c *TuyaClient) sign(token, t, nonce, method, path string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	stringToSign := strings.Join([]string{method, hex.EncodeToString(bodyHash[:]), "", path}, "\n")

	mac := hmac.New(sha256.New, []byte(c.accessSecret))
	mac.Write([]byte(c.accessID + token + t + nonce + stringToSign))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

func (c *TuyaClient) request(ctx context.Context, token, method, path string, body []byte) (*resty.Response, error) {
	t := strconv.FormatInt(c.now().UnixMilli(), 10)
	nonce := uuid.New().String()

	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("client_id", c.accessID).
		SetHeader("t", t).
		SetHeader("nonce", nonce).
		SetHeader("sign_method", "HMAC-SHA256").
		SetHeader("sign", c.sign(token, t, nonce, method, path, body))
	if token != "" {
		req.SetHeader("access_token", token)
	}
	if len(body) > 0 {
		req.SetBody(body)
	}
	return req.Execute(method, path)
}

// token 获取并缓存 access_token
func (c *TuyaClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	resp, err := c.request(ctx, "", "GET", tuyaTokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("tuya token: %w", err)
	}
	if err := tuyaError(resp.Body()); err != nil {
		return "", err
	}

	result := gjson.GetBytes(resp.Body(), "result")
	c.accessToken = result.Get("access_token").String()
	// 提前一分钟过期
	ttl := time.Duration(result.Get("expire_time").Int())*time.Second - time.Minute
	c.expiresAt = c.now().Add(ttl)
	return c.accessToken, nil
}

func tuyaError(body []byte) error {
	if !gjson.GetBytes(body, "success").Bool() {
		return fmt.Errorf("tuya error: %s (code: %d)",
			gjson.GetBytes(body, "msg").String(),
			gjson.GetBytes(body, "code").Int())
	}
	return nil
}

func (c *TuyaClient) call(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if body != nil {
		if raw, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	resp, err := c.request(ctx, token, method, path, raw)
	if err != nil {
		c.logger.Error("Tuya API call failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("tuya request: %w", err)
	}
	if err := tuyaError(resp.Body()); err != nil {
		c.logger.Warn("Tuya API returned error", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	return resp.Body(), nil
}

// SendCommands 下发指令集，body 为 {"commands":[...]}
func (c *TuyaClient) SendCommands(ctx context.Context, path string, body map[string]interface{}) error {
	_, err := c.call(ctx, "POST", path, body)
	return err
}

// DeviceStatus 查询设备状态，返回原始响应（含 result 数组）
func (c *TuyaClient) DeviceStatus(ctx context.Context, deviceID string) ([]byte, error) {
	return c.call(ctx, "GET", "/v1.0/iot-03/devices/"+deviceID+"/status", nil)
}
