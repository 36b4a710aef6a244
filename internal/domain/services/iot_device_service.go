package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/iot"
	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/logger"
	"estatehub-http-service/internal/infrastructure/metrics"
	"estatehub-http-service/utils"
)

// DeviceStatusTopic 订阅所有厂商设备的状态上报
const DeviceStatusTopic = "+/+/status"

// TuyaCloud 涂鸦云 API 客户端
type TuyaCloud interface {
	Configured() bool
	SendCommands(ctx context.Context, path string, body map[string]interface{}) error
	DeviceStatus(ctx context.Context, deviceID string) ([]byte, error)
}

// RESTSender 执行 REST 厂商指令
type RESTSender interface {
	Send(ctx context.Context, baseURL string, cmd iot.Command, headers map[string]string) error
	Fetch(ctx context.Context, baseURL string, cmd iot.Command, headers map[string]string) ([]byte, error)
}

// InterfaceIoTDeviceService 定义 IoT 设备服务接口
type InterfaceIoTDeviceService interface {
	ListDevices(actorID, householdID uint) ([]models.IoTDevice, error)
	CreateDevice(actorID, householdID uint, req *DeviceRequest) (*models.IoTDevice, error)
	GetDevice(actorID, id uint) (*models.IoTDevice, error)
	UpdateDevice(actorID, id uint, req *DeviceRequest) (*models.IoTDevice, error)
	DeleteDevice(actorID, id uint) error
	Control(ctx context.Context, actorID, id uint, req *ControlRequest) (*models.IoTDevice, error)
	LiveState(ctx context.Context, actorID, id uint) (iot.State, error)
	HandleStatusMessage(topic string, payload []byte) error
	StartIngestion() error
}

// DeviceRequest 创建/更新设备请求
type DeviceRequest struct {
	Vendor           string            `json:"vendor"`
	ExternalDeviceID string            `json:"external_device_id"`
	Name             string            `json:"name"`
	DeviceType       string            `json:"device_type"`
	Room             string            `json:"room"`
	Config           *iot.DeviceConfig `json:"config"`
}

// ControlRequest 设备控制请求
type ControlRequest struct {
	Action string      `json:"action" binding:"required"`
	Value  interface{} `json:"value"`
}

// IoTDeviceService IoT 设备服务
type IoTDeviceService struct {
	DB          *gorm.DB
	Config      *config.Config
	Permissions InterfacePermissionService
	Broker      MessageBroker
	REST        RESTSender
	Tuya        TuyaCloud
	now         func() time.Time
}

// NewIoTDeviceService 创建设备服务；broker 与 tuya 可为 nil
func NewIoTDeviceService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService, broker MessageBroker, rest RESTSender, tuya TuyaCloud) InterfaceIoTDeviceService {
	return &IoTDeviceService{
		DB:          db,
		Config:      cfg,
		Permissions: perms,
		Broker:      broker,
		REST:        rest,
		Tuya:        tuya,
		now:         time.Now,
	}
}

func (s *IoTDeviceService) householdCan(actorID, householdID uint, capability string) bool {
	if role := s.Permissions.HouseholdRole(actorID, householdID); role != "" {
		return HasCapability(HouseholdPermissions(role), capability)
	}
	return s.Permissions.CanManageHousehold(actorID, householdID)
}

func deviceConfig(d *models.IoTDevice) iot.DeviceConfig {
	var cfg iot.DeviceConfig
	if d.Config != "" {
		_ = json.Unmarshal([]byte(d.Config), &cfg)
	}
	return cfg
}

func deviceState(d *models.IoTDevice) iot.State {
	state := iot.State{}
	if d.State != "" {
		_ = json.Unmarshal([]byte(d.State), &state)
	}
	return state
}

// 1 ListDevices 列出住户设备
func (s *IoTDeviceService) ListDevices(actorID, householdID uint) ([]models.IoTDevice, error) {
	var household models.Household
	if err := s.DB.Select("id").First(&household, householdID).Error; err != nil {
		return nil, notFoundAs(err, ErrHouseholdNotFound)
	}
	if !s.Permissions.CanAccessHousehold(actorID, householdID) {
		return nil, ErrForbidden
	}
	var list []models.IoTDevice
	err := s.DB.Where("household_id = ?", householdID).Order("room ASC, name ASC").Find(&list).Error
	return list, err
}

// 2 CreateDevice 注册设备，厂商+外部 ID 全局唯一
func (s *IoTDeviceService) CreateDevice(actorID, householdID uint, req *DeviceRequest) (*models.IoTDevice, error) {
	var household models.Household
	if err := s.DB.Select("id").First(&household, householdID).Error; err != nil {
		return nil, notFoundAs(err, ErrHouseholdNotFound)
	}
	if !s.householdCan(actorID, householdID, CapManageDevices) {
		return nil, ErrForbidden
	}
	adapter, err := iot.NewAdapter(req.Vendor)
	if err != nil {
		return nil, err
	}
	externalID := strings.TrimSpace(req.ExternalDeviceID)
	if externalID == "" {
		return nil, invalidParam("external_device_id is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = externalID
	}

	var cfg iot.DeviceConfig
	if req.Config != nil {
		cfg = *req.Config
	}
	if adapter.ConnectionType() == iot.ConnectionREST && cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base_url is required for %s", iot.ErrMissingConfig, adapter.Vendor())
	}
	rawConfig, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	spec := adapter.CreateDevice(externalID, name, cfg)
	device := &models.IoTDevice{
		HouseholdID:      householdID,
		Name:             name,
		Vendor:           string(adapter.Vendor()),
		ExternalDeviceID: externalID,
		ConnectionType:   string(spec.Connection),
		DeviceType:       req.DeviceType,
		Room:             req.Room,
		Config:           string(rawConfig),
		Status:           models.DeviceStatusUnknown,
	}
	if device.DeviceType == "" {
		device.DeviceType = spec.Metadata["device_type"]
	}
	if err := s.DB.Create(device).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDeviceAlreadyExist
		}
		return nil, err
	}
	return device, nil
}

func (s *IoTDeviceService) load(id uint) (*models.IoTDevice, error) {
	var device models.IoTDevice
	if err := s.DB.First(&device, id).Error; err != nil {
		return nil, notFoundAs(err, ErrDeviceNotFound)
	}
	return &device, nil
}

// 3 GetDevice 获取设备
func (s *IoTDeviceService) GetDevice(actorID, id uint) (*models.IoTDevice, error) {
	device, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.CanAccessHousehold(actorID, device.HouseholdID) {
		return nil, ErrForbidden
	}
	return device, nil
}

// 4 UpdateDevice 更新名称、房间、类型与连接配置
func (s *IoTDeviceService) UpdateDevice(actorID, id uint, req *DeviceRequest) (*models.IoTDevice, error) {
	device, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !s.householdCan(actorID, device.HouseholdID, CapManageDevices) {
		return nil, ErrForbidden
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		device.Name = name
	}
	if req.Room != "" {
		device.Room = req.Room
	}
	if req.DeviceType != "" {
		device.DeviceType = req.DeviceType
	}
	if req.Config != nil {
		raw, err := json.Marshal(req.Config)
		if err != nil {
			return nil, err
		}
		device.Config = string(raw)
	}
	if err := s.DB.Save(device).Error; err != nil {
		return nil, err
	}
	return device, nil
}

// 5 DeleteDevice 删除设备
func (s *IoTDeviceService) DeleteDevice(actorID, id uint) error {
	device, err := s.load(id)
	if err != nil {
		return err
	}
	if !s.householdCan(actorID, device.HouseholdID, CapManageDevices) {
		return ErrForbidden
	}
	return s.DB.Delete(&models.IoTDevice{}, id).Error
}

// dispatch 按厂商连接方式下发指令
func (s *IoTDeviceService) dispatch(ctx context.Context, adapter iot.Adapter, device *models.IoTDevice, cmd iot.Command) error {
	if adapter.Vendor() == iot.VendorTuya && s.Tuya != nil && s.Tuya.Configured() {
		return s.Tuya.SendCommands(ctx, cmd.Path, cmd.Body)
	}
	switch adapter.ConnectionType() {
	case iot.ConnectionMQTT:
		if s.Broker == nil || !s.Broker.IsConnected() {
			return fmt.Errorf("%w: mqtt broker", ErrUnavailable)
		}
		return iot.PublishCommand(s.Broker, cmd)
	case iot.ConnectionREST:
		restAdapter, ok := adapter.(iot.RESTAdapter)
		if !ok || s.REST == nil {
			return fmt.Errorf("%w: rest transport", ErrUnavailable)
		}
		cfg := deviceConfig(device)
		return s.REST.Send(ctx, cfg.BaseURL, cmd, restAdapter.Headers(cfg))
	}
	return iot.ErrUnsupportedVendor
}

// 6 Control 下发控制指令，成功后合并期望状态并记录指令日志
func (s *IoTDeviceService) Control(ctx context.Context, actorID, id uint, req *ControlRequest) (*models.IoTDevice, error) {
	device, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !s.householdCan(actorID, device.HouseholdID, CapControlDevices) {
		return nil, ErrForbidden
	}
	adapter, err := iot.NewAdapter(device.Vendor)
	if err != nil {
		return nil, err
	}
	cmd, err := adapter.CreateCommand(device.ExternalDeviceID, req.Action, req.Value, deviceConfig(device))
	if err != nil {
		return nil, invalidParam("%v", err)
	}

	sendErr := s.dispatch(ctx, adapter, device, cmd)
	s.logCommand(device, actorID, req, sendErr)
	metrics.RecordDeviceCommand(device.Vendor, sendErr == nil)
	if sendErr != nil {
		logger.Named("iot").Warn("device command failed",
			zap.Uint("device_id", device.ID),
			zap.String("vendor", device.Vendor),
			zap.String("action", req.Action),
			zap.Error(sendErr))
		if errors.Is(sendErr, ErrUnavailable) {
			return nil, sendErr
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceCommandFailed, sendErr)
	}

	state := deviceState(device)
	for k, v := range expectedState(req.Action, req.Value) {
		state[k] = v
	}
	if err := s.saveState(device, state, false); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *IoTDeviceService) logCommand(device *models.IoTDevice, actorID uint, req *ControlRequest, sendErr error) {
	payload, _ := json.Marshal(req)
	entry := models.DeviceCommandLog{
		DeviceID:  device.ID,
		UserID:    actorID,
		Action:    req.Action,
		Payload:   string(payload),
		Success:   sendErr == nil,
		Timestamp: s.now(),
	}
	if sendErr != nil {
		entry.ErrorMessage = utils.TruncateRunes(sendErr.Error(), 255)
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		logger.Named("iot").Error("write command log failed", zap.Uint("device_id", device.ID), zap.Error(err))
	}
}

// expectedState 指令成功后可确定的状态字段
func expectedState(action string, value interface{}) iot.State {
	switch action {
	case iot.ActionPowerOn:
		return iot.State{"power": true}
	case iot.ActionPowerOff:
		return iot.State{"power": false}
	case iot.ActionSetTemperature:
		return iot.State{"temperature": value}
	case iot.ActionSetMode:
		return iot.State{"mode": value}
	case iot.ActionSetFanSpeed:
		return iot.State{"fan_speed": value}
	case iot.ActionSetSwing:
		return iot.State{"swing": value}
	case iot.ActionSetBrightness:
		return iot.State{"brightness": value}
	case iot.ActionSetColor:
		return iot.State{"color": value}
	case iot.ActionSetColorTemp:
		return iot.State{"color_temperature": value}
	case iot.ActionSetEffect:
		return iot.State{"effect": value}
	case iot.ActionSetEco:
		return iot.State{"eco": value}
	case iot.ActionSetState:
		if m, ok := value.(map[string]interface{}); ok {
			return iot.State(m)
		}
	}
	return nil
}

// saveState 持久化状态；online 为 true 时同时刷新在线状态与最后上报时间
func (s *IoTDeviceService) saveState(device *models.IoTDevice, state iot.State, online bool) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"state": string(raw)}
	device.State = string(raw)
	if online {
		now := s.now()
		updates["status"] = models.DeviceStatusOnline
		updates["last_seen_at"] = now
		device.Status = models.DeviceStatusOnline
		device.LastSeenAt = &now
	}
	return s.DB.Model(device).Updates(updates).Error
}

// 7 LiveState REST 厂商实时查询，MQTT 厂商返回最后上报的状态
func (s *IoTDeviceService) LiveState(ctx context.Context, actorID, id uint) (iot.State, error) {
	device, err := s.GetDevice(actorID, id)
	if err != nil {
		return nil, err
	}
	adapter, err := iot.NewAdapter(device.Vendor)
	if err != nil {
		return nil, err
	}

	var body []byte
	switch {
	case adapter.Vendor() == iot.VendorTuya && s.Tuya != nil && s.Tuya.Configured():
		body, err = s.Tuya.DeviceStatus(ctx, device.ExternalDeviceID)
	case adapter.ConnectionType() == iot.ConnectionREST:
		restAdapter, ok := adapter.(iot.RESTAdapter)
		if !ok || s.REST == nil {
			return nil, fmt.Errorf("%w: rest transport", ErrUnavailable)
		}
		cfg := deviceConfig(device)
		cmd, cmdErr := restAdapter.StateRequest(device.ExternalDeviceID, cfg)
		if cmdErr != nil {
			return nil, cmdErr
		}
		body, err = s.REST.Fetch(ctx, cfg.BaseURL, cmd, restAdapter.Headers(cfg))
	default:
		return deviceState(device), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceCommandFailed, err)
	}

	state, err := adapter.ParseState(body)
	if err != nil {
		return nil, err
	}
	if err := s.saveState(device, state, true); err != nil {
		return nil, err
	}
	return state, nil
}

// 8 HandleStatusMessage 处理 {vendor}/{id}/status 上报，未登记的设备忽略
func (s *IoTDeviceService) HandleStatusMessage(topic string, payload []byte) error {
	vendor, ok := iot.DetectVendorFromTopic(topic)
	if !ok {
		return nil
	}
	externalID := iot.DeviceIDFromTopic(topic)
	if externalID == "" {
		return nil
	}

	var device models.IoTDevice
	err := s.DB.Where("vendor = ? AND external_device_id = ?", string(vendor), externalID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Named("iot").Debug("status for unknown device", zap.String("topic", topic))
		return nil
	}
	if err != nil {
		return err
	}

	adapter, err := iot.NewAdapter(string(vendor))
	if err != nil {
		return err
	}
	state, err := adapter.ParseState(payload)
	if err != nil {
		return err
	}
	merged := deviceState(&device)
	for k, v := range state {
		merged[k] = v
	}
	return s.saveState(&device, merged, true)
}

// 9 StartIngestion 订阅设备状态主题
func (s *IoTDeviceService) StartIngestion() error {
	if s.Broker == nil {
		return fmt.Errorf("%w: mqtt broker", ErrUnavailable)
	}
	qos := byte(1)
	if s.Config != nil && s.Config.MQTTQoS >= 0 && s.Config.MQTTQoS <= 2 {
		qos = byte(s.Config.MQTTQoS)
	}
	return s.Broker.Subscribe(DeviceStatusTopic, qos, s.HandleStatusMessage)
}
