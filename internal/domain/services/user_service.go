package services

import (
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/logger"
	"estatehub-http-service/utils"
)

// InterfaceUserService 定义用户与认证服务接口
type InterfaceUserService interface {
	Register(req *RegisterRequest) (*AuthResult, error)
	Login(email, password string) (*AuthResult, error)
	GetProfile(userID uint) (*UserProfile, error)
	GetUserByID(id uint) (*models.User, error)
	ListUsers(search string, p models.PaginationQuery) ([]models.User, ListResult, error)
	UpdateUser(id uint, req *UpdateUserRequest) (*models.User, error)
	EnsureAdminExists(email, password string) error
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
}

// UpdateUserRequest 管理员更新用户请求
type UpdateUserRequest struct {
	Name    *string `json:"name"`
	IsAdmin *bool   `json:"is_admin"`
	Status  *string `json:"status"`
}

// AuthResult 登录/注册结果
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UserProfile 当前用户及其所有成员关系
type UserProfile struct {
	User          *models.User                `json:"user"`
	Households    []models.HouseholdMember    `json:"households"`
	Buildings     []models.BuildingMember     `json:"buildings"`
	Communities   []models.CommunityMember    `json:"communities"`
	WorkingGroups []models.WorkingGroupMember `json:"working_groups"`
}

// UserService 用户服务
type UserService struct {
	DB         *gorm.DB
	Config     *config.Config
	JWTService InterfaceJWTService
}

// NewUserService 创建用户服务
func NewUserService(db *gorm.DB, cfg *config.Config, jwtService InterfaceJWTService) InterfaceUserService {
	return &UserService{DB: db, Config: cfg, JWTService: jwtService}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// 1 Register 注册新用户并返回令牌
func (s *UserService) Register(req *RegisterRequest) (*AuthResult, error) {
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, invalidParam("%v", err)
	}
	email := normalizeEmail(req.Email)

	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserAlreadyExist
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: hashed,
		Phone:    req.Phone,
		Status:   models.UserStatusActive,
	}
	if err := s.DB.Create(user).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrUserAlreadyExist
		}
		return nil, err
	}

	token, err := s.JWTService.GenerateToken(user.ID, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// 2 Login 邮箱密码登录
func (s *UserService) Login(email, password string) (*AuthResult, error) {
	var user models.User
	if err := s.DB.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFoundAs(err, ErrPasswordIncorrect)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrPasswordIncorrect
	}
	if user.Status == models.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	token, err := s.JWTService.GenerateToken(user.ID, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: &user}, nil
}

// 3 GetProfile 获取当前用户及成员关系
func (s *UserService) GetProfile(userID uint) (*UserProfile, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	profile := &UserProfile{User: user}
	if err := s.DB.Where("user_id = ?", userID).Find(&profile.Households).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Where("user_id = ?", userID).Find(&profile.Buildings).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Where("user_id = ?", userID).Find(&profile.Communities).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Where("user_id = ?", userID).Find(&profile.WorkingGroups).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// 4 GetUserByID 根据ID获取用户
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		return nil, notFoundAs(err, ErrUserNotFound)
	}
	return &user, nil
}

// 5 ListUsers 分页列出用户，search 匹配姓名或邮箱
func (s *UserService) ListUsers(search string, p models.PaginationQuery) ([]models.User, ListResult, error) {
	query := s.DB.Model(&models.User{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", like, like)
	}
	var users []models.User
	res, err := paginate(query, p, "id ASC", &users)
	return users, res, err
}

// 6 UpdateUser 更新用户管理字段
func (s *UserService) UpdateUser(id uint, req *UpdateUserRequest) (*models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.IsAdmin != nil {
		updates["is_admin"] = *req.IsAdmin
	}
	if req.Status != nil {
		if *req.Status != models.UserStatusActive && *req.Status != models.UserStatusDisabled {
			return nil, invalidParam("status must be active or disabled")
		}
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.DB.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetUserByID(id)
}

// 7 EnsureAdminExists 确保系统中有超级管理员账户
func (s *UserService) EnsureAdminExists(email, password string) error {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.User{
		Name:     "Administrator",
		Email:    normalizeEmail(email),
		Password: hashed,
		IsAdmin:  true,
		Status:   models.UserStatusActive,
	}
	if err := s.DB.Create(admin).Error; err != nil {
		return err
	}
	logger.Named("users").Info("default super admin created", zap.String("email", admin.Email))
	return nil
}
