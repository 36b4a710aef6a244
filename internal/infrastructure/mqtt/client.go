// Package mqtt wraps paho with reconnect, resubscribe-on-connect and JSON publishing.
package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/logger"
)

// MessageHandler 消息处理函数
type MessageHandler func(topic string, payload []byte) error

// ErrNotConnected is returned by Publish when the broker is unreachable
var ErrNotConnected = errors.New("mqtt client not connected")

const (
	publishTimeout  = 3 * time.Second
	connectTimeout  = 5 * time.Second
	maxConnectTries = 5
)

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client MQTT客户端
type Client struct {
	cfg    *config.Config
	client paho.Client
	log    *zap.Logger

	mu            sync.RWMutex
	connected     bool
	subscriptions map[string]subscription

	connectMu sync.Mutex
	backoff   func(attempt int) time.Duration
}

// NewClient 创建MQTT客户端（不立即连接）
func NewClient(cfg *config.Config) *Client {
	c := &Client{
		cfg:           cfg,
		log:           logger.Named("mqtt"),
		subscriptions: make(map[string]subscription),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
	c.client = paho.NewClient(c.buildOptions())
	return c
}

// buildOptions 构造客户端参数
func (c *Client) buildOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.cfg.MQTTBrokerURL)
	// 每个实例使用唯一的客户端ID
	opts.SetClientID(fmt.Sprintf("%s-%s-%d", c.cfg.MQTTClientID, uuid.New().String()[:8], time.Now().UnixNano()))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)

	if c.cfg.MQTTUsername != "" {
		opts.SetUsername(c.cfg.MQTTUsername)
		opts.SetPassword(c.cfg.MQTTPassword)
	}

	url := c.cfg.MQTTBrokerURL
	if strings.HasPrefix(url, "ssl://") || strings.HasPrefix(url, "tls://") || c.cfg.MQTTSSLEnabled {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		c.log.Debug("unhandled message", zap.String("topic", msg.Topic()))
	})

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("connection lost", zap.Error(err))
		c.setConnected(false)
	})

	// 重连后重新订阅
	opts.SetOnConnectHandler(func(_ paho.Client) {
		c.log.Info("connected", zap.String("broker", c.cfg.MQTTBrokerURL))
		c.setConnected(true)
		if err := c.resubscribe(); err != nil {
			c.log.Error("resubscribe failed", zap.Error(err))
		}
	})

	opts.SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
		c.log.Info("reconnecting")
	})
	return opts
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// IsConnected 是否已连接
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// Connect 连接到MQTT服务器，指数退避重试
func (c *Client) Connect() error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.IsConnected() {
		return nil
	}

	var err error
	for i := 0; i < maxConnectTries; i++ {
		token := c.client.Connect()
		if token.WaitTimeout(connectTimeout) && token.Error() == nil {
			c.setConnected(true)
			return nil
		}
		err = token.Error()
		wait := c.backoff(i)
		c.log.Warn("connect attempt failed",
			zap.Int("attempt", i+1),
			zap.Int("max", maxConnectTries),
			zap.Duration("retry_in", wait),
			zap.Error(err))
		time.Sleep(wait)
	}
	return fmt.Errorf("mqtt connect failed after %d attempts: %v", maxConnectTries, err)
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
}

// Subscribe registers handler for topic. The subscription is remembered and
// replayed after every reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	c.mu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	if !c.IsConnected() {
		return nil
	}
	return c.subscribe(topic, qos, handler)
}

func (c *Client) subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qos, c.wrap(handler))
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	c.log.Info("subscribed", zap.String("topic", topic))
	return nil
}

func (c *Client) resubscribe() error {
	c.mu.RLock()
	subs := make(map[string]subscription, len(c.subscriptions))
	for t, s := range c.subscriptions {
		subs[t] = s
	}
	c.mu.RUnlock()

	for t, s := range subs {
		if err := c.subscribe(t, s.qos, s.handler); err != nil {
			return err
		}
	}
	return nil
}

// wrap 将业务处理函数转换为paho回调，错误只记录日志
func (c *Client) wrap(handler MessageHandler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log.Warn("message handler failed", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	}
}

// Unsubscribe 取消订阅
func (c *Client) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subscriptions, t)
	}
	c.mu.Unlock()

	if !c.IsConnected() {
		return nil
	}
	token := c.client.Unsubscribe(topics...)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Publish 发布原始消息
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	return token.Error()
}

// PublishJSON 序列化后以QoS 1发布
func (c *Client) PublishJSON(topic string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal mqtt payload: %w", err)
	}
	return c.Publish(topic, 1, false, data)
}
