package iot

import (
	"github.com/tidwall/gjson"
)

// PhilipsAdapter talks to a Hue bridge over its REST API
type PhilipsAdapter struct{}

// NewPhilipsAdapter 创建飞利浦Hue适配器
func NewPhilipsAdapter() *PhilipsAdapter { return &PhilipsAdapter{} }

func (a *PhilipsAdapter) Vendor() Vendor                 { return VendorPhilips }
func (a *PhilipsAdapter) ConnectionType() ConnectionType { return ConnectionREST }

func (a *PhilipsAdapter) CreateDevice(deviceID, name string, cfg DeviceConfig) Device {
	return Device{
		ID:         deviceID,
		Name:       name,
		Vendor:     VendorPhilips,
		Connection: ConnectionREST,
		Metadata: map[string]string{
			"base_url": cfg.BaseURL,
		},
	}
}

func (a *PhilipsAdapter) checkConfig(cfg DeviceConfig) error {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return ErrMissingConfig
	}
	return nil
}

// CreateCommand builds PUT /api/{key}/lights/{id}/state
func (a *PhilipsAdapter) CreateCommand(deviceID, action string, value interface{}, cfg DeviceConfig) (Command, error) {
	if err := a.checkConfig(cfg); err != nil {
		return Command{}, err
	}

	body := map[string]interface{}{}
	switch action {
	case ActionPowerOn:
		body["on"] = true
	case ActionPowerOff:
		body["on"] = false
	case ActionSetBrightness:
		body["bri"] = value
	case ActionSetColor:
		if m, ok := value.(map[string]interface{}); ok {
			for _, k := range []string{"hue", "sat", "xy"} {
				if v, ok := m[k]; ok {
					body[k] = v
				}
			}
		}
	case ActionSetColorTemp:
		body["ct"] = value
	case ActionSetEffect:
		body["effect"] = value
	case ActionAlert:
		body["alert"] = value
	default:
		if m, ok := value.(map[string]interface{}); ok {
			for k, v := range m {
				body[k] = v
			}
		}
	}

	return Command{
		Action: action,
		Method: "PUT",
		Path:   "/api/" + cfg.APIKey + "/lights/" + deviceID + "/state",
		Body:   body,
	}, nil
}

// StateRequest builds GET /api/{key}/lights/{id}
func (a *PhilipsAdapter) StateRequest(deviceID string, cfg DeviceConfig) (Command, error) {
	if err := a.checkConfig(cfg); err != nil {
		return Command{}, err
	}
	return Command{Method: "GET", Path: "/api/" + cfg.APIKey + "/lights/" + deviceID}, nil
}

// Headers 飞利浦通过URL中的key鉴权
func (a *PhilipsAdapter) Headers(_ DeviceConfig) map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}

// ParseState reads the light's "state" object, or the root when absent
func (a *PhilipsAdapter) ParseState(payload []byte) (State, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrInvalidPayload
	}
	root := gjson.ParseBytes(payload)
	s := root.Get("state")
	if !s.Exists() {
		s = root
	}

	state := State{"power": s.Get("on").Bool()}
	if v := s.Get("bri"); v.Exists() {
		state["brightness"] = v.Int()
	}
	if xy := s.Get("xy"); xy.Exists() {
		color := map[string]interface{}{"xy": xy.Value()}
		if v := s.Get("hue"); v.Exists() {
			color["hue"] = v.Int()
		}
		if v := s.Get("sat"); v.Exists() {
			color["sat"] = v.Int()
		}
		state["color"] = color
	}
	if v := s.Get("ct"); v.Exists() {
		state["color_temperature"] = v.Int()
	}
	if v := s.Get("effect"); v.Exists() {
		state["effect"] = v.String()
	}
	if v := s.Get("alert"); v.Exists() {
		state["alert"] = v.String()
	}
	if v := s.Get("reachable"); v.Exists() {
		state["reachable"] = v.Bool()
	}
	return state, nil
}
