package iot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdapterFactory(t *testing.T) {
	for _, v := range SupportedVendors() {
		a, err := NewAdapter(string(v))
		require.NoError(t, err)
		assert.Equal(t, v, a.Vendor())
	}

	a, err := NewAdapter("ESP")
	require.NoError(t, err)
	assert.Equal(t, VendorESP, a.Vendor())

	_, err = NewAdapter("shelly")
	assert.ErrorIs(t, err, ErrUnsupportedVendor)
}

func TestConnectionTypes(t *testing.T) {
	expect := map[Vendor]ConnectionType{
		VendorTuya:      ConnectionMQTT,
		VendorESP:       ConnectionMQTT,
		VendorMidea:     ConnectionMQTT,
		VendorPhilips:   ConnectionREST,
		VendorPanasonic: ConnectionREST,
	}
	for v, want := range expect {
		got, err := ConnectionTypeOf(v)
		require.NoError(t, err)
		assert.Equal(t, want, got, string(v))
	}
}

func TestDetectVendorFromTopic(t *testing.T) {
	v, ok := DetectVendorFromTopic("midea/ac-01/status")
	assert.True(t, ok)
	assert.Equal(t, VendorMidea, v)
	assert.Equal(t, "ac-01", DeviceIDFromTopic("midea/ac-01/status"))

	_, ok = DetectVendorFromTopic("zigbee2mqtt/lamp")
	assert.False(t, ok)
	assert.Equal(t, "", DeviceIDFromTopic("esp"))
}

func TestESPCommands(t *testing.T) {
	a := NewESPAdapter()

	cmd, err := a.CreateCommand("node1", ActionPowerOn, nil, DeviceConfig{})
	require.NoError(t, err)
	assert.Equal(t, "esp/node1/set", cmd.Topic)
	assert.Equal(t, "ON", string(cmd.Payload))
	assert.Equal(t, byte(1), cmd.QoS)

	cmd, err = a.CreateCommand("node1", ActionSetTemperature, 23.5, DeviceConfig{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"SET_TEMP","value":23.5}`, string(cmd.Payload))

	cmd, err = a.CreateCommand("node1", "reboot", nil, DeviceConfig{})
	require.NoError(t, err)
	assert.Equal(t, "REBOOT", string(cmd.Payload))

	dev := a.CreateDevice("node1", "Hall sensor", DeviceConfig{})
	assert.Equal(t, "esp/node1/status", dev.StatusTopic)
	assert.Equal(t, "esp/node1/control", dev.Metadata["control_topic"])
}

func TestESPParseState(t *testing.T) {
	a := NewESPAdapter()

	s, err := a.ParseState([]byte("ON"))
	require.NoError(t, err)
	assert.Equal(t, true, s["power"])

	s, _ = a.ParseState([]byte("0"))
	assert.Equal(t, false, s["power"])

	s, _ = a.ParseState([]byte("booting"))
	assert.Equal(t, "booting", s["state"])

	s, _ = a.ParseState([]byte(`{"power":1,"sensor":{"temperature":21}}`))
	assert.EqualValues(t, 1, s["power"])
	assert.NotNil(t, s["sensor"])
}

func TestMideaCommandPayload(t *testing.T) {
	a := &MideaAdapter{now: func() time.Time { return time.UnixMilli(1700000000000) }}

	cmd, err := a.CreateCommand("ac7", ActionSetTemperature, 24, DeviceConfig{})
	require.NoError(t, err)
	assert.Equal(t, "midea/ac7/command", cmd.Topic)
	assert.JSONEq(t, `{"cmd":"set_temp","data":{"temp":24},"timestamp":1700000000000}`, string(cmd.Payload))

	cmd, err = a.CreateCommand("ac7", ActionSetFanSpeed, "high", DeviceConfig{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cmd":"set_fan","data":{"speed":"high"},"timestamp":1700000000000}`, string(cmd.Payload))

	_, err = a.ParseState([]byte("ON"))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	s, err := a.ParseState([]byte(`{"power":true,"targetTemp":25}`))
	require.NoError(t, err)
	assert.Equal(t, true, s["power"])
}

func TestTuyaCommandAndState(t *testing.T) {
	a := NewTuyaAdapter()

	cmd, err := a.CreateCommand("bf01", ActionPowerOn, nil, DeviceConfig{Category: "dj"})
	require.NoError(t, err)
	assert.Equal(t, "tuya/bf01/command", cmd.Topic)
	assert.Equal(t, "/v1.0/iot-03/devices/bf01/commands", cmd.Path)
	assert.JSONEq(t, `{"commands":[{"code":"switch_led","value":true}]}`, string(cmd.Payload))

	s, err := a.ParseState([]byte(`{"status":[{"code":"switch_1","value":true},{"code":"temp_current","value":215},{"code":"cur_power","value":12}]}`))
	require.NoError(t, err)
	assert.Equal(t, true, s["power"])
	assert.EqualValues(t, 215, s["temperature"])
	assert.EqualValues(t, 12, s["cur_power"])

	s, err = a.ParseState([]byte(`{"dps":{"1":false}}`))
	require.NoError(t, err)
	assert.NotNil(t, s["dps"])

	_, err = a.ParseState([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPhilipsCommands(t *testing.T) {
	a := NewPhilipsAdapter()
	cfg := DeviceConfig{BaseURL: "http://bridge.local", APIKey: "k1"}

	_, err := a.CreateCommand("3", ActionPowerOn, nil, DeviceConfig{BaseURL: "http://bridge.local"})
	assert.ErrorIs(t, err, ErrMissingConfig)

	cmd, err := a.CreateCommand("3", ActionSetColor, map[string]interface{}{"hue": 1000, "sat": 200, "ignored": 1}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "PUT", cmd.Method)
	assert.Equal(t, "/api/k1/lights/3/state", cmd.Path)
	assert.Equal(t, map[string]interface{}{"hue": 1000, "sat": 200}, cmd.Body)

	req, err := a.StateRequest("3", cfg)
	require.NoError(t, err)
	assert.Equal(t, "/api/k1/lights/3", req.Path)

	s, err := a.ParseState([]byte(`{"state":{"on":true,"bri":200,"xy":[0.3,0.3],"ct":366,"reachable":true}}`))
	require.NoError(t, err)
	assert.Equal(t, true, s["power"])
	assert.EqualValues(t, 200, s["brightness"])
	assert.EqualValues(t, 366, s["color_temperature"])
	assert.NotNil(t, s["color"])
}

func TestPanasonicCommandsAndState(t *testing.T) {
	a := NewPanasonicAdapter()
	cfg := DeviceConfig{BaseURL: "https://pana.example", APIKey: "key", AccessToken: "tok"}

	cmd, err := a.CreateCommand("ac1", ActionSetEco, true, cfg)
	require.NoError(t, err)
	assert.Equal(t, "POST", cmd.Method)
	assert.Equal(t, "/devices/ac1/control", cmd.Path)
	assert.Equal(t, true, cmd.Body["eco"])

	h := a.Headers(cfg)
	assert.Equal(t, "key", h["X-API-Key"])
	assert.Equal(t, "Bearer tok", h["Authorization"])

	_, err = a.StateRequest("ac1", DeviceConfig{})
	assert.ErrorIs(t, err, ErrMissingConfig)

	s, err := a.ParseState([]byte(`{"parameters":{"powerState":"on","operationMode":"cool","setTemperature":24,"fanLevel":3,"swing":"on"}}`))
	require.NoError(t, err)
	assert.Equal(t, true, s["power"])
	assert.Equal(t, "cool", s["mode"])
	assert.EqualValues(t, 24, s["target_temperature"])
	assert.Equal(t, true, s["swing"])
	assert.Equal(t, false, s["eco"])
}

func TestTuyaBodyMarshalsLikePayload(t *testing.T) {
	cmd, err := NewTuyaAdapter().CreateCommand("x", ActionSetBrightness, 500, DeviceConfig{})
	require.NoError(t, err)
	b, err := json.Marshal(cmd.Body)
	require.NoError(t, err)
	assert.JSONEq(t, string(cmd.Payload), string(b))
}
