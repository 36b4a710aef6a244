package services

import (
	"fmt"
	"time"

	"github.com/tencentyun/tls-sig-api-v2-golang/tencentyun"

	"estatehub-http-service/internal/infrastructure/config"
)

// userSigExpireSeconds UserSig 默认有效期 24 小时
const userSigExpireSeconds = 86400

// InterfaceRTCService 定义腾讯云 TRTC 凭证服务接口
type InterfaceRTCService interface {
	Enabled() bool
	GetUserSig(userID string) (*RTCCredentials, error)
	GenPrivateMapKey(userID, roomID string, expire int) (string, error)
}

// RTCCredentials 客户端进入 TRTC 房间所需凭证
type RTCCredentials struct {
	SDKAppID    int       `json:"sdk_app_id"`
	UserID      string    `json:"user_id"`
	UserSig     string    `json:"user_sig"`
	ExpireTime  time.Time `json:"expire_time"`
	RequestTime time.Time `json:"request_time"`
}

// RTCService 使用服务端密钥签发 UserSig，密钥不下发到客户端
type RTCService struct {
	Config *config.Config
}

// NewRTCService 创建 TRTC 凭证服务
func NewRTCService(cfg *config.Config) InterfaceRTCService {
	return &RTCService{Config: cfg}
}

// 1 Enabled 是否启用并配置了 TRTC
func (s *RTCService) Enabled() bool {
	return s.Config.TencentRTCEnabled && s.Config.TencentSDKAppID != 0 && s.Config.TencentSecretKey != ""
}

// 2 GetUserSig 生成 UserSig
func (s *RTCService) GetUserSig(userID string) (*RTCCredentials, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("%w: tencent rtc", ErrUnavailable)
	}

	now := time.Now()
	userSig, err := tencentyun.GenUserSig(s.Config.TencentSDKAppID, s.Config.TencentSecretKey, userID, userSigExpireSeconds)
	if err != nil {
		return nil, fmt.Errorf("生成UserSig失败: %w", err)
	}

	return &RTCCredentials{
		SDKAppID:    s.Config.TencentSDKAppID,
		UserID:      userID,
		UserSig:     userSig,
		ExpireTime:  now.Add(userSigExpireSeconds * time.Second),
		RequestTime: now,
	}, nil
}

// 3 GenPrivateMapKey 生成字符串房间号的进房权限票据
func (s *RTCService) GenPrivateMapKey(userID, roomID string, expire int) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("%w: tencent rtc", ErrUnavailable)
	}
	// 1+2+4+8+16+32+64+128: 全部音视频及屏幕共享权限
	privilegeMap := uint32(255)

	key, err := tencentyun.GenPrivateMapKeyWithStringRoomID(s.Config.TencentSDKAppID, s.Config.TencentSecretKey, userID, expire, roomID, privilegeMap)
	if err != nil {
		return "", fmt.Errorf("生成PrivateMapKey失败: %w", err)
	}
	return key, nil
}
