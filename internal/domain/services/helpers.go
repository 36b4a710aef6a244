package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/mqtt"
)

// MessageBroker is the MQTT surface services publish and subscribe through.
// *mqtt.Client satisfies it; a nil broker disables publishing.
type MessageBroker interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	PublishJSON(topic string, v interface{}) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// ListResult 分页列表结果
type ListResult struct {
	Total    int64
	Page     int
	PageSize int
}

// isDuplicate reports whether err is a unique constraint violation
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

// notFoundAs maps gorm.ErrRecordNotFound to sentinel and passes other errors through
func notFoundAs(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// paginate counts query and loads one page into dest
func paginate(query *gorm.DB, p models.PaginationQuery, order string, dest interface{}) (ListResult, error) {
	p = p.Normalize()
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return ListResult{}, err
	}
	if order != "" {
		query = query.Order(order)
	}
	if err := query.Offset(p.Offset()).Limit(p.PageSize).Find(dest).Error; err != nil {
		return ListResult{}, err
	}
	return ListResult{Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

func uintPtr(v uint) *uint { return &v }

func containsUint(list []uint, v uint) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// uniqueUints preserves first-seen order
func uniqueUints(list []uint) []uint {
	seen := make(map[uint]struct{}, len(list))
	out := make([]uint, 0, len(list))
	for _, v := range list {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
