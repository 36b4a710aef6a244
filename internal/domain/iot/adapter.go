// Package iot translates generic device actions into vendor topics and payloads.
// Adapters only shape data; publishing and HTTP calls live in transport.go.
package iot

import (
	"errors"
	"fmt"
	"strings"
)

// Vendor identifies a device manufacturer protocol
type Vendor string

const (
	VendorTuya      Vendor = "tuya"
	VendorESP       Vendor = "esp"
	VendorMidea     Vendor = "midea"
	VendorPhilips   Vendor = "philips"
	VendorPanasonic Vendor = "panasonic"
)

// ConnectionType is how commands reach a device
type ConnectionType string

const (
	ConnectionMQTT ConnectionType = "mqtt"
	ConnectionREST ConnectionType = "rest"
)

// Common actions accepted by every adapter. Vendors may accept more.
const (
	ActionPowerOn        = "power_on"
	ActionPowerOff       = "power_off"
	ActionSetTemperature = "set_temperature"
	ActionSetMode        = "set_mode"
	ActionSetFanSpeed    = "set_fan_speed"
	ActionSetSwing       = "set_swing"
	ActionSetBrightness  = "set_brightness"
	ActionSetColor       = "set_color"
	ActionSetColorTemp   = "set_color_temperature"
	ActionSetEffect      = "set_effect"
	ActionSetEco         = "set_eco"
	ActionSetState       = "set_state"
	ActionAlert          = "alert"
)

const defaultCommandQoS byte = 1

var (
	// ErrUnsupportedVendor is returned by the factory for an unknown vendor string
	ErrUnsupportedVendor = errors.New("unsupported vendor")
	// ErrMissingConfig is returned when a REST vendor lacks base URL or credentials
	ErrMissingConfig = errors.New("device config incomplete")
	// ErrInvalidPayload is returned when a state payload cannot be parsed
	ErrInvalidPayload = errors.New("invalid state payload")
)

// DeviceConfig is the vendor-specific connection data stored with a device
type DeviceConfig struct {
	BaseURL     string `json:"base_url,omitempty"`
	APIKey      string `json:"api_key,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	BridgeID    string `json:"bridge_id,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Device describes how to address a device once registered
type Device struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Vendor      Vendor            `json:"vendor"`
	Connection  ConnectionType    `json:"connection_type"`
	StatusTopic string            `json:"status_topic,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Command is a vendor-shaped instruction. MQTT commands fill Topic/Payload/QoS,
// REST commands fill Method/Path/Body.
type Command struct {
	Action  string
	Topic   string
	Payload []byte
	QoS     byte
	Method  string
	Path    string
	Body    map[string]interface{}
}

// State is a device state normalized to flat keys (power, brightness, mode ...)
type State map[string]interface{}

// Adapter shapes commands and parses state for one vendor
type Adapter interface {
	Vendor() Vendor
	ConnectionType() ConnectionType
	CreateDevice(deviceID, name string, cfg DeviceConfig) Device
	CreateCommand(deviceID, action string, value interface{}, cfg DeviceConfig) (Command, error)
	ParseState(payload []byte) (State, error)
}

// RESTAdapter is implemented by vendors reached over HTTP
type RESTAdapter interface {
	Adapter
	StateRequest(deviceID string, cfg DeviceConfig) (Command, error)
	Headers(cfg DeviceConfig) map[string]string
}

// NewAdapter returns the adapter for vendor
func NewAdapter(vendor string) (Adapter, error) {
	switch Vendor(strings.ToLower(vendor)) {
	case VendorTuya:
		return NewTuyaAdapter(), nil
	case VendorESP:
		return NewESPAdapter(), nil
	case VendorMidea:
		return NewMideaAdapter(), nil
	case VendorPhilips:
		return NewPhilipsAdapter(), nil
	case VendorPanasonic:
		return NewPanasonicAdapter(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedVendor, vendor)
}

// SupportedVendors lists the vendors the factory understands
func SupportedVendors() []Vendor {
	return []Vendor{VendorTuya, VendorESP, VendorMidea, VendorPhilips, VendorPanasonic}
}

// ConnectionTypeOf returns the transport used by vendor
func ConnectionTypeOf(vendor Vendor) (ConnectionType, error) {
	a, err := NewAdapter(string(vendor))
	if err != nil {
		return "", err
	}
	return a.ConnectionType(), nil
}

// DetectVendorFromTopic matches the first topic segment against known vendor prefixes
func DetectVendorFromTopic(topic string) (Vendor, bool) {
	prefix, _, _ := strings.Cut(topic, "/")
	for _, v := range SupportedVendors() {
		if prefix == string(v) {
			return v, true
		}
	}
	return "", false
}

// DeviceIDFromTopic returns the second topic segment, the vendor device id
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func topic(vendor Vendor, deviceID, suffix string) string {
	return string(vendor) + "/" + deviceID + "/" + suffix
}
