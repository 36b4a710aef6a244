package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/clients"
	"estatehub-http-service/internal/infrastructure/logger"
)

const (
	assistantPrompt = "You are the assistant of a residential property platform. " +
		"Answer questions about household items, maintenance, catering and building services briefly."
	enhancePrompt = "Analyze this household item and respond only with a JSON object with fields " +
		"description (one or two sentences) and category (the item type such as Electronics, Cookware, Tools, Clothing, Food, Medicine; not the storage location)."
	defaultCategory = "Miscellaneous"
)

// ChatCompleter 聊天补全客户端
type ChatCompleter interface {
	Configured() bool
	Chat(ctx context.Context, messages []clients.ChatMessage) (string, error)
}

// InterfaceAIService 定义 AI 服务接口
type InterfaceAIService interface {
	Chat(ctx context.Context, actorID uint, message string) (string, error)
	EnhanceItem(ctx context.Context, actorID, itemID uint) (*models.Item, error)
}

// AIService AI 服务
type AIService struct {
	Client ChatCompleter
	Items  InterfaceItemService
}

// NewAIService 创建 AI 服务
func NewAIService(client ChatCompleter, items InterfaceItemService) InterfaceAIService {
	return &AIService{Client: client, Items: items}
}

func (s *AIService) complete(ctx context.Context, system, user string) (string, error) {
	if s.Client == nil || !s.Client.Configured() {
		return "", ErrAINotConfigured
	}
	reply, err := s.Client.Chat(ctx, []clients.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		if errors.Is(err, clients.ErrNotConfigured) {
			return "", ErrAINotConfigured
		}
		return "", fmt.Errorf("%w: %v", ErrAIRequestFailed, err)
	}
	return reply, nil
}

// 1 Chat 单轮对话
func (s *AIService) Chat(ctx context.Context, actorID uint, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", invalidParam("message is required")
	}
	reply, err := s.complete(ctx, assistantPrompt, message)
	if err != nil {
		return "", err
	}
	logger.Named("ai").Debug("chat completed", zap.Uint("user_id", actorID), zap.Int("reply_len", len(reply)))
	return reply, nil
}

// 2 EnhanceItem 生成分类与描述并写回物品
func (s *AIService) EnhanceItem(ctx context.Context, actorID, itemID uint) (*models.Item, error) {
	item, err := s.Items.GetItem(actorID, itemID)
	if err != nil {
		return nil, err
	}
	input := "Item name: " + item.Name
	if item.Description != "" {
		input += "\nCurrent description: " + item.Description
	}
	reply, err := s.complete(ctx, enhancePrompt, input)
	if err != nil {
		return nil, err
	}
	category, description := parseSuggestion(reply)
	if description == "" {
		description = item.Description
	}
	return s.Items.ApplySuggestion(actorID, itemID, category, description)
}

// parseSuggestion 解析模型返回的 JSON，兼容 ```json 代码块
func parseSuggestion(reply string) (category, description string) {
	body := strings.TrimSpace(reply)
	if start := strings.Index(body, "{"); start >= 0 {
		if end := strings.LastIndex(body, "}"); end > start {
			body = body[start : end+1]
		}
	}
	if !gjson.Valid(body) {
		return defaultCategory, strings.TrimSpace(reply)
	}
	category = strings.TrimSpace(gjson.Get(body, "category").String())
	description = strings.TrimSpace(gjson.Get(body, "description").String())
	if category == "" {
		category = defaultCategory
	}
	return category, description
}
