package iot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Publisher is the subset of an MQTT client the transport needs
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// PublishCommand sends an MQTT command. Retained is always false for commands.
func PublishCommand(p Publisher, cmd Command) error {
	if cmd.Topic == "" {
		return fmt.Errorf("command %q has no topic", cmd.Action)
	}
	return p.Publish(cmd.Topic, cmd.QoS, false, cmd.Payload)
}

// RESTTransport executes REST adapter commands with a resty client
type RESTTransport struct {
	client *resty.Client
}

// NewRESTTransport 创建REST传输层，超时由客户端控制
func NewRESTTransport(timeout time.Duration) *RESTTransport {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &RESTTransport{client: client}
}

// Send executes cmd against baseURL
func (t *RESTTransport) Send(ctx context.Context, baseURL string, cmd Command, headers map[string]string) error {
	_, err := t.do(ctx, baseURL, cmd, headers)
	return err
}

// Fetch executes cmd and returns the response body
func (t *RESTTransport) Fetch(ctx context.Context, baseURL string, cmd Command, headers map[string]string) ([]byte, error) {
	return t.do(ctx, baseURL, cmd, headers)
}

func (t *RESTTransport) do(ctx context.Context, baseURL string, cmd Command, headers map[string]string) ([]byte, error) {
	req := t.client.R().SetContext(ctx).SetHeaders(headers)
	if cmd.Body != nil && cmd.Method != "GET" {
		req.SetBody(cmd.Body)
	}

	url := strings.TrimRight(baseURL, "/") + cmd.Path
	resp, err := req.Execute(cmd.Method, url)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", cmd.Method, cmd.Path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s %s: HTTP %d: %s", cmd.Method, cmd.Path, resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}
