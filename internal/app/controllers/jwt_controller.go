package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// InterfaceJWTController 定义认证控制器接口
type InterfaceJWTController interface {
	Register()
	Login()
	Me()
}

// JWTController 处理注册、登录与当前用户请求
type JWTController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewJWTController 创建一个新的认证控制器
func NewJWTController(ctx *gin.Context, container *container.ServiceContainer) *JWTController {
	return &JWTController{
		Ctx:       ctx,
		Container: container,
	}
}

// LoginRequest 表示登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"admin@estatehub.local"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

// LoginResponse 表示登录响应
type LoginResponse struct {
	Code    int                  `json:"code" example:"100000"`
	Message string               `json:"message" example:"success"`
	Data    services.AuthResult `json:"data"`
}

// HandleJWTFunc 返回一个处理认证请求的Gin处理函数
func HandleJWTFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewJWTController(ctx, container)

		switch method {
		case "register":
			controller.Register()
		case "login":
			controller.Login()
		case "me":
			controller.Me()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *JWTController) userService() services.InterfaceUserService {
	return c.Container.GetService("user").(services.InterfaceUserService)
}

// 1. Register 注册新用户
// @Summary      Register
// @Description  Create an account and return a token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body services.RegisterRequest true "Register request"
// @Success      201  {object}  LoginResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse  "Email already registered"
// @Router       /auth/register [post]
func (c *JWTController) Register() {
	var req services.RegisterRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	result, err := c.userService().Register(&req)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, result)
}

// 2. Login 处理用户登录
// @Summary      User Login
// @Description  Verify email and password and return a JWT token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login request parameters"
// @Success      200  {object}  LoginResponse
// @Failure      400  {object}  ErrorResponse  "Bad request"
// @Failure      401  {object}  ErrorResponse  "Invalid email or password"
// @Router       /auth/login [post]
func (c *JWTController) Login() {
	var req LoginRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	result, err := c.userService().Login(req.Email, req.Password)
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, result)
}

// 3. Me 当前用户及其成员关系
// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.UserProfile
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/me [get]
func (c *JWTController) Me() {
	profile, err := c.userService().GetProfile(actor(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, profile)
}
