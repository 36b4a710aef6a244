package iot

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// TuyaAdapter shapes Tuya instruction sets. The same commands list is published on
// tuya/{id}/command for local gateways or posted to the Tuya cloud API.
type TuyaAdapter struct{}

// NewTuyaAdapter 创建涂鸦适配器
func NewTuyaAdapter() *TuyaAdapter { return &TuyaAdapter{} }

func (a *TuyaAdapter) Vendor() Vendor                 { return VendorTuya }
func (a *TuyaAdapter) ConnectionType() ConnectionType { return ConnectionMQTT }

// Tuya standard instruction codes keyed by normalized state name
var tuyaCodeToProperty = map[string]string{
	"switch_1":           "power",
	"switch_led":         "power",
	"switch":             "power",
	"temp_set":           "target_temperature",
	"temp_current":       "temperature",
	"mode":               "mode",
	"work_mode":          "mode",
	"bright_value":       "brightness",
	"temp_value":         "color_temperature",
	"fan_speed_enum":     "fan_speed",
	"humidity_value":     "humidity",
	"battery_percentage": "battery",
}

func (a *TuyaAdapter) CreateDevice(deviceID, name string, cfg DeviceConfig) Device {
	meta := map[string]string{
		"command_topic": topic(VendorTuya, deviceID, "command"),
		"status_topic":  topic(VendorTuya, deviceID, "status"),
	}
	if cfg.Category != "" {
		meta["category"] = cfg.Category
	}
	return Device{
		ID:          deviceID,
		Name:        name,
		Vendor:      VendorTuya,
		Connection:  ConnectionMQTT,
		StatusTopic: topic(VendorTuya, deviceID, "status"),
		Metadata:    meta,
	}
}

// TuyaInstruction is one entry of a Tuya commands list
type TuyaInstruction struct {
	Code  string      `json:"code"`
	Value interface{} `json:"value"`
}

func (a *TuyaAdapter) instructions(action string, value interface{}, cfg DeviceConfig) []TuyaInstruction {
	powerCode := "switch_1"
	if cfg.Category == "dj" {
		powerCode = "switch_led"
	}
	switch action {
	case ActionPowerOn:
		return []TuyaInstruction{{Code: powerCode, Value: true}}
	case ActionPowerOff:
		return []TuyaInstruction{{Code: powerCode, Value: false}}
	case ActionSetTemperature:
		return []TuyaInstruction{{Code: "temp_set", Value: value}}
	case ActionSetMode:
		return []TuyaInstruction{{Code: "mode", Value: value}}
	case ActionSetBrightness:
		return []TuyaInstruction{{Code: "bright_value", Value: value}}
	case ActionSetColorTemp:
		return []TuyaInstruction{{Code: "temp_value", Value: value}}
	case ActionSetFanSpeed:
		return []TuyaInstruction{{Code: "fan_speed_enum", Value: value}}
	}
	return []TuyaInstruction{{Code: action, Value: value}}
}

// CreateCommand fills both the MQTT payload and the cloud API body
func (a *TuyaAdapter) CreateCommand(deviceID, action string, value interface{}, cfg DeviceConfig) (Command, error) {
	list := a.instructions(action, value, cfg)
	body := map[string]interface{}{"commands": list}
	payload, err := json.Marshal(body)
	if err != nil {
		return Command{}, err
	}
	return Command{
		Action:  action,
		Topic:   topic(VendorTuya, deviceID, "command"),
		Payload: payload,
		QoS:     defaultCommandQoS,
		Method:  "POST",
		Path:    "/v1.0/iot-03/devices/" + deviceID + "/commands",
		Body:    body,
	}, nil
}

// ParseState accepts {"status":[{"code","value"}]} (cloud and gateway reports),
// {"result":[...]} (cloud status query) or {"dps":{"1":true}} (raw data points).
func (a *TuyaAdapter) ParseState(payload []byte) (State, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrInvalidPayload
	}
	root := gjson.ParseBytes(payload)
	state := State{}

	list := root.Get("status")
	if !list.IsArray() {
		list = root.Get("result")
	}
	if list.IsArray() {
		list.ForEach(func(_, entry gjson.Result) bool {
			code := entry.Get("code").String()
			if code == "" {
				return true
			}
			key := code
			if prop, ok := tuyaCodeToProperty[code]; ok {
				key = prop
			}
			state[key] = entry.Get("value").Value()
			return true
		})
	}

	if dps := root.Get("dps"); dps.IsObject() {
		state["dps"] = dps.Value()
	}

	if len(state) == 0 {
		if !root.IsObject() {
			return nil, ErrInvalidPayload
		}
		if m, ok := root.Value().(map[string]interface{}); ok {
			for k, v := range m {
				state[k] = v
			}
		}
	}
	return state, nil
}
