package iot

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// MideaAdapter handles Midea appliances on midea/{id}/command|status
type MideaAdapter struct {
	now func() time.Time
}

// NewMideaAdapter 创建美的适配器
func NewMideaAdapter() *MideaAdapter { return &MideaAdapter{now: time.Now} }

func (a *MideaAdapter) Vendor() Vendor                 { return VendorMidea }
func (a *MideaAdapter) ConnectionType() ConnectionType { return ConnectionMQTT }

func (a *MideaAdapter) CreateDevice(deviceID, name string, _ DeviceConfig) Device {
	return Device{
		ID:          deviceID,
		Name:        name,
		Vendor:      VendorMidea,
		Connection:  ConnectionMQTT,
		StatusTopic: topic(VendorMidea, deviceID, "status"),
		Metadata: map[string]string{
			"command_topic": topic(VendorMidea, deviceID, "command"),
			"status_topic":  topic(VendorMidea, deviceID, "status"),
		},
	}
}

// CreateCommand builds {"cmd","data","timestamp"} with a millisecond timestamp
func (a *MideaAdapter) CreateCommand(deviceID, action string, value interface{}, _ DeviceConfig) (Command, error) {
	var cmd string
	var data map[string]interface{}

	switch action {
	case ActionPowerOn:
		cmd, data = "power", map[string]interface{}{"power": true}
	case ActionPowerOff:
		cmd, data = "power", map[string]interface{}{"power": false}
	case ActionSetTemperature:
		cmd, data = "set_temp", map[string]interface{}{"temp": value}
	case ActionSetMode:
		cmd, data = "set_mode", map[string]interface{}{"mode": value}
	case ActionSetFanSpeed:
		cmd, data = "set_fan", map[string]interface{}{"speed": value}
	case ActionSetSwing:
		cmd, data = "set_swing", map[string]interface{}{"swing": value}
	default:
		cmd = action
		if m, ok := value.(map[string]interface{}); ok {
			data = m
		} else if value != nil {
			data = map[string]interface{}{"value": value}
		} else {
			data = map[string]interface{}{}
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"cmd":       cmd,
		"data":      data,
		"timestamp": a.now().UnixMilli(),
	})
	if err != nil {
		return Command{}, err
	}

	return Command{
		Action:  action,
		Topic:   topic(VendorMidea, deviceID, "command"),
		Payload: payload,
		QoS:     defaultCommandQoS,
	}, nil
}

// ParseState requires a JSON object
func (a *MideaAdapter) ParseState(payload []byte) (State, error) {
	if !gjson.ValidBytes(payload) || !gjson.ParseBytes(payload).IsObject() {
		return nil, ErrInvalidPayload
	}
	state := State{}
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, ErrInvalidPayload
	}
	return state, nil
}
