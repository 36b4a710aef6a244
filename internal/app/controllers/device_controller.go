package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// DeviceController 智能家居设备控制器
type DeviceController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewDeviceController 创建设备控制器
func NewDeviceController(ctx *gin.Context, container *container.ServiceContainer) *DeviceController {
	return &DeviceController{Ctx: ctx, Container: container}
}

// HandleDeviceFunc 返回一个处理设备请求的Gin处理函数
func HandleDeviceFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewDeviceController(ctx, container)

		switch method {
		case "getDevices":
			controller.GetDevices()
		case "createDevice":
			controller.CreateDevice()
		case "getDevice":
			controller.GetDevice()
		case "updateDevice":
			controller.UpdateDevice()
		case "deleteDevice":
			controller.DeleteDevice()
		case "control":
			controller.Control()
		case "getState":
			controller.GetState()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *DeviceController) service() services.InterfaceIoTDeviceService {
	return c.Container.GetService("device").(services.InterfaceIoTDeviceService)
}

// 1. GetDevices 住户设备列表
// @Summary      List household devices
// @Tags         Device
// @Security     BearerAuth
// @Param        id path int true "住户ID"
// @Success      200  {array}  models.IoTDevice
// @Router       /households/{id}/devices [get]
func (c *DeviceController) GetDevices() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	devices, err := c.service().ListDevices(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, devices)
}

// 2. CreateDevice 绑定设备
// @Summary      Register device
// @Description  vendor: tuya, esp, midea, philips, panasonic
// @Tags         Device
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "住户ID"
// @Param        request body services.DeviceRequest true "设备"
// @Success      201  {object}  models.IoTDevice
// @Failure      400  {object}  ErrorResponse
// @Router       /households/{id}/devices [post]
func (c *DeviceController) CreateDevice() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.DeviceRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	device, err := c.service().CreateDevice(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, device)
}

// 3. GetDevice 设备详情
// @Summary      Get device
// @Tags         Device
// @Security     BearerAuth
// @Param        id path int true "设备ID"
// @Success      200  {object}  models.IoTDevice
// @Router       /devices/{id} [get]
func (c *DeviceController) GetDevice() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	device, err := c.service().GetDevice(actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, device)
}

// 4. UpdateDevice 更新设备
// @Summary      Update device
// @Tags         Device
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "设备ID"
// @Param        request body services.DeviceRequest true "设备"
// @Success      200  {object}  models.IoTDevice
// @Router       /devices/{id} [put]
func (c *DeviceController) UpdateDevice() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.DeviceRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	device, err := c.service().UpdateDevice(actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, device)
}

// 5. DeleteDevice 解绑设备
// @Summary      Delete device
// @Tags         Device
// @Security     BearerAuth
// @Param        id path int true "设备ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /devices/{id} [delete]
func (c *DeviceController) DeleteDevice() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().DeleteDevice(actor(c.Ctx), id); err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 6. Control 下发设备指令
// @Summary      Control device
// @Description  action: turn_on, turn_off, set_brightness, set_temperature, set_mode, set_color
// @Tags         Device
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "设备ID"
// @Param        request body services.ControlRequest true "指令"
// @Success      200  {object}  models.IoTDevice
// @Failure      503  {object}  ErrorResponse "MQTT 未连接"
// @Router       /devices/{id}/control [post]
func (c *DeviceController) Control() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.ControlRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	device, err := c.service().Control(c.Ctx.Request.Context(), actor(c.Ctx), id, &req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, device)
}

// 7. GetState 设备实时状态
// @Summary      Device state
// @Tags         Device
// @Security     BearerAuth
// @Param        id path int true "设备ID"
// @Success      200  {object}  iot.State
// @Router       /devices/{id}/state [get]
func (c *DeviceController) GetState() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	state, err := c.service().LiveState(c.Ctx.Request.Context(), actor(c.Ctx), id)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, state)
}
