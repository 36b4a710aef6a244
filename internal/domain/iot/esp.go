package iot

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// ESPAdapter handles ESP32/ESP8266 firmware speaking esp/{id}/status|control|set
type ESPAdapter struct{}

// NewESPAdapter 创建ESP适配器
func NewESPAdapter() *ESPAdapter { return &ESPAdapter{} }

func (a *ESPAdapter) Vendor() Vendor                 { return VendorESP }
func (a *ESPAdapter) ConnectionType() ConnectionType { return ConnectionMQTT }

func (a *ESPAdapter) CreateDevice(deviceID, name string, _ DeviceConfig) Device {
	return Device{
		ID:          deviceID,
		Name:        name,
		Vendor:      VendorESP,
		Connection:  ConnectionMQTT,
		StatusTopic: topic(VendorESP, deviceID, "status"),
		Metadata: map[string]string{
			"status_topic":  topic(VendorESP, deviceID, "status"),
			"control_topic": topic(VendorESP, deviceID, "control"),
			"set_topic":     topic(VendorESP, deviceID, "set"),
		},
	}
}

// CreateCommand publishes to the set topic. ON and OFF travel as bare strings,
// anything carrying a value as {"command","value"}.
func (a *ESPAdapter) CreateCommand(deviceID, action string, value interface{}, _ DeviceConfig) (Command, error) {
	var command string
	switch action {
	case ActionPowerOn:
		command = "ON"
	case ActionPowerOff:
		command = "OFF"
	case ActionSetTemperature:
		command = "SET_TEMP"
	case ActionSetState:
		command = "SET_STATE"
	default:
		command = strings.ToUpper(action)
	}

	var payload []byte
	if command == "ON" || command == "OFF" || value == nil {
		payload = []byte(command)
	} else {
		b, err := json.Marshal(map[string]interface{}{"command": command, "value": value})
		if err != nil {
			return Command{}, err
		}
		payload = b
	}

	return Command{
		Action:  action,
		Topic:   topic(VendorESP, deviceID, "set"),
		Payload: payload,
		QoS:     defaultCommandQoS,
	}, nil
}

// ParseState accepts a JSON object or the bare strings ON/1/OFF/0
func (a *ESPAdapter) ParseState(payload []byte) (State, error) {
	trimmed := strings.TrimSpace(string(payload))
	if gjson.Valid(trimmed) && gjson.Parse(trimmed).IsObject() {
		state := State{}
		if err := json.Unmarshal([]byte(trimmed), &state); err != nil {
			return nil, ErrInvalidPayload
		}
		return state, nil
	}

	switch trimmed {
	case "ON", "1":
		return State{"power": true}, nil
	case "OFF", "0":
		return State{"power": false}, nil
	}
	return State{"state": trimmed}, nil
}
