package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// privateMapKeyExpire 房间权限票据有效期（秒）
const privateMapKeyExpire = 3600

// InterfaceRTCController 定义RTC控制器接口
type InterfaceRTCController interface {
	GetUserSig()
	GetPrivateMapKey()
}

// RTCController 处理RTC相关的请求
type RTCController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewRTCController 创建一个新的RTC控制器
func NewRTCController(ctx *gin.Context, container *container.ServiceContainer) *RTCController {
	return &RTCController{
		Ctx:       ctx,
		Container: container,
	}
}

// PrivateMapKeyRequest 进房票据请求
type PrivateMapKeyRequest struct {
	RoomID string `json:"room_id" binding:"required" example:"3f7c7e0e-5b1a-4c59-9d1e-0d4b2c6f8a11"`
}

// HandleRTCFunc 返回一个处理RTC请求的Gin处理函数
func HandleRTCFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewRTCController(ctx, container)

		switch method {
		case "getUserSig":
			controller.GetUserSig()
		case "getPrivateMapKey":
			controller.GetPrivateMapKey()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *RTCController) service() services.InterfaceRTCService {
	return c.Container.GetService("rtc").(services.InterfaceRTCService)
}

// 1. GetUserSig 为当前用户签发 TRTC UserSig
// @Summary      Get TRTC UserSig
// @Description  The user id inside TRTC is the account id
// @Tags         RTC
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.RTCCredentials
// @Failure      503  {object}  ErrorResponse "TRTC 未启用"
// @Router       /rtc/usersig [get]
func (c *RTCController) GetUserSig() {
	creds, err := c.service().GetUserSig(strconv.FormatUint(uint64(actor(c.Ctx)), 10))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, creds)
}

// 2. GetPrivateMapKey 签发字符串房间号的进房票据
// @Summary      Get TRTC PrivateMapKey
// @Tags         RTC
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PrivateMapKeyRequest true "房间"
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  ErrorResponse
// @Router       /rtc/private-map-key [post]
func (c *RTCController) GetPrivateMapKey() {
	var req PrivateMapKeyRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	userID := strconv.FormatUint(uint64(actor(c.Ctx)), 10)
	key, err := c.service().GenPrivateMapKey(userID, req.RoomID, privateMapKeyExpire)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{
		"room_id":         req.RoomID,
		"user_id":         userID,
		"private_map_key": key,
		"expire_seconds":  privateMapKeyExpire,
	})
}
