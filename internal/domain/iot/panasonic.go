package iot

import (
	"github.com/tidwall/gjson"
)

// PanasonicAdapter talks to the Panasonic cloud or a local bridge over REST
type PanasonicAdapter struct{}

// NewPanasonicAdapter 创建松下适配器
func NewPanasonicAdapter() *PanasonicAdapter { return &PanasonicAdapter{} }

func (a *PanasonicAdapter) Vendor() Vendor                 { return VendorPanasonic }
func (a *PanasonicAdapter) ConnectionType() ConnectionType { return ConnectionREST }

func (a *PanasonicAdapter) CreateDevice(deviceID, name string, cfg DeviceConfig) Device {
	return Device{
		ID:         deviceID,
		Name:       name,
		Vendor:     VendorPanasonic,
		Connection: ConnectionREST,
		Metadata: map[string]string{
			"base_url": cfg.BaseURL,
		},
	}
}

// CreateCommand builds POST /devices/{id}/control
func (a *PanasonicAdapter) CreateCommand(deviceID, action string, value interface{}, cfg DeviceConfig) (Command, error) {
	if cfg.BaseURL == "" {
		return Command{}, ErrMissingConfig
	}

	body := map[string]interface{}{}
	switch action {
	case ActionPowerOn:
		body["power"] = true
	case ActionPowerOff:
		body["power"] = false
	case ActionSetTemperature:
		body["temperature"] = value
	case ActionSetMode:
		body["mode"] = value
	case ActionSetFanSpeed:
		body["fanSpeed"] = value
	case ActionSetSwing:
		body["swing"] = value
	case ActionSetEco:
		body["eco"] = value
	default:
		if m, ok := value.(map[string]interface{}); ok {
			for k, v := range m {
				body[k] = v
			}
		}
	}

	return Command{
		Action: action,
		Method: "POST",
		Path:   "/devices/" + deviceID + "/control",
		Body:   body,
	}, nil
}

// StateRequest builds GET /devices/{id}/status
func (a *PanasonicAdapter) StateRequest(deviceID string, cfg DeviceConfig) (Command, error) {
	if cfg.BaseURL == "" {
		return Command{}, ErrMissingConfig
	}
	return Command{Method: "GET", Path: "/devices/" + deviceID + "/status"}, nil
}

// Headers sends X-API-Key and/or a bearer token, whichever is configured
func (a *PanasonicAdapter) Headers(cfg DeviceConfig) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if cfg.APIKey != "" {
		h["X-API-Key"] = cfg.APIKey
	}
	if cfg.AccessToken != "" {
		h["Authorization"] = "Bearer " + cfg.AccessToken
	}
	return h
}

func onOrTrue(v gjson.Result) bool {
	return v.String() == "on" || (v.IsBool() && v.Bool())
}

// firstOf returns the first existing field among keys
func firstOf(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// ParseState reads "state", then "parameters", then the root object
func (a *PanasonicAdapter) ParseState(payload []byte) (State, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrInvalidPayload
	}
	root := gjson.ParseBytes(payload)
	s := firstOf(root, "state", "parameters")
	if !s.Exists() {
		s = root
	}

	state := State{
		"power": onOrTrue(s.Get("power")) || s.Get("powerState").String() == "on",
		"swing": onOrTrue(s.Get("swing")),
		"eco":   onOrTrue(s.Get("eco")),
	}
	if v := firstOf(s, "mode", "operationMode"); v.Exists() {
		state["mode"] = v.String()
	}
	if v := firstOf(s, "temperature", "currentTemperature"); v.Exists() {
		state["temperature"] = v.Float()
	}
	if v := firstOf(s, "targetTemperature", "setTemperature"); v.Exists() {
		state["target_temperature"] = v.Float()
	}
	if v := firstOf(s, "fanSpeed", "fanLevel"); v.Exists() {
		state["fan_speed"] = v.Value()
	}
	return state, nil
}
