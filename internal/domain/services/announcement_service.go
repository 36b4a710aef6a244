package services

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/infrastructure/config"
)

// InterfaceAnnouncementService 定义公告服务接口
type InterfaceAnnouncementService interface {
	CreateAnnouncement(actorID uint, req *AnnouncementRequest) (*models.Announcement, error)
	ListForHousehold(actorID, householdID uint) (*AnnouncementFeed, error)
	MarkRead(actorID, householdID, announcementID uint) error
	DeactivateAnnouncement(actorID, id uint) error
}

// AnnouncementRequest 发布公告请求
type AnnouncementRequest struct {
	Source     string     `json:"source"`
	SourceID   *uint      `json:"source_id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	TargetType string     `json:"target_type"`
	TargetID   *uint      `json:"target_id"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// AnnouncementFeed 住户可见的公告，按来源分组
type AnnouncementFeed struct {
	Announcements []models.Announcement            `json:"announcements"`
	BySource      map[string][]models.Announcement `json:"by_source"`
	UnreadCount   int                              `json:"unread_count"`
}

// AnnouncementService 公告服务
type AnnouncementService struct {
	DB          *gorm.DB
	Config      *config.Config
	Permissions InterfacePermissionService
	now         func() time.Time
}

// NewAnnouncementService 创建公告服务
func NewAnnouncementService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService) InterfaceAnnouncementService {
	return &AnnouncementService{DB: db, Config: cfg, Permissions: perms, now: time.Now}
}

// canPublish 系统公告仅超级管理员；社区/楼栋公告需对应 ADMIN/MANAGER
func (s *AnnouncementService) canPublish(actorID uint, source string, sourceID *uint) error {
	switch source {
	case models.AnnouncementSourceSystem:
		if !s.Permissions.IsSuperAdmin(actorID) {
			return ErrForbidden
		}
		return nil
	case models.AnnouncementSourceCommunity:
		if sourceID == nil {
			return invalidParam("source_id is required for community announcements")
		}
		var community models.Community
		if err := s.DB.Select("id").First(&community, *sourceID).Error; err != nil {
			return notFoundAs(err, ErrCommunityNotFound)
		}
		if !s.Permissions.CanManageCommunity(actorID, *sourceID) {
			return ErrForbidden
		}
		return nil
	case models.AnnouncementSourceBuilding:
		if sourceID == nil {
			return invalidParam("source_id is required for building announcements")
		}
		var building models.Building
		if err := s.DB.Select("id").First(&building, *sourceID).Error; err != nil {
			return notFoundAs(err, ErrBuildingNotFound)
		}
		if !s.Permissions.CanManageBuilding(actorID, *sourceID) {
			return ErrForbidden
		}
		return nil
	}
	return invalidParam("unknown source %q", source)
}

// targetInScope 社区公告只能发往本社区内，楼栋公告只能发往本楼栋内
func (s *AnnouncementService) targetInScope(req *AnnouncementRequest) error {
	if req.TargetType == models.AnnouncementTargetAll {
		return nil
	}
	if req.TargetID == nil {
		return invalidParam("target_id is required for target %s", req.TargetType)
	}
	if req.Source == models.AnnouncementSourceSystem {
		return nil
	}

	var communityID, buildingID uint
	switch req.TargetType {
	case models.AnnouncementTargetCommunity:
		if req.Source == models.AnnouncementSourceBuilding {
			return invalidParam("building announcements cannot target a community")
		}
		communityID = *req.TargetID
	case models.AnnouncementTargetBuilding:
		var building models.Building
		if err := s.DB.Select("id", "community_id").First(&building, *req.TargetID).Error; err != nil {
			return notFoundAs(err, ErrBuildingNotFound)
		}
		buildingID, communityID = building.ID, building.CommunityID
	case models.AnnouncementTargetHousehold:
		var household models.Household
		if err := s.DB.Select("id", "building_id").First(&household, *req.TargetID).Error; err != nil {
			return notFoundAs(err, ErrHouseholdNotFound)
		}
		if household.BuildingID == nil {
			return invalidParam("household is not in a building")
		}
		var building models.Building
		if err := s.DB.Select("id", "community_id").First(&building, *household.BuildingID).Error; err != nil {
			return notFoundAs(err, ErrBuildingNotFound)
		}
		buildingID, communityID = building.ID, building.CommunityID
	}

	if req.Source == models.AnnouncementSourceCommunity && communityID != *req.SourceID {
		return invalidParam("target is outside community %d", *req.SourceID)
	}
	if req.Source == models.AnnouncementSourceBuilding && buildingID != *req.SourceID {
		return invalidParam("target is outside building %d", *req.SourceID)
	}
	return nil
}

// 1 CreateAnnouncement 发布公告
func (s *AnnouncementService) CreateAnnouncement(actorID uint, req *AnnouncementRequest) (*models.Announcement, error) {
	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	if title == "" || message == "" {
		return nil, invalidParam("title and message are required")
	}
	if !models.IsValidAnnouncementSource(req.Source) {
		return nil, invalidParam("unknown source %q", req.Source)
	}
	if req.TargetType == "" {
		req.TargetType = models.AnnouncementTargetAll
	}
	if !models.IsValidAnnouncementTarget(req.TargetType) {
		return nil, invalidParam("unknown target type %q", req.TargetType)
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, invalidParam("expires_at must be in the future")
	}
	if err := s.canPublish(actorID, req.Source, req.SourceID); err != nil {
		return nil, err
	}
	if err := s.targetInScope(req); err != nil {
		return nil, err
	}

	announcement := &models.Announcement{
		Source:      req.Source,
		SourceID:    req.SourceID,
		Title:       title,
		Message:     message,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		CreatedByID: actorID,
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
	}
	if req.Source == models.AnnouncementSourceSystem {
		announcement.SourceID = nil
	}
	if req.TargetType == models.AnnouncementTargetAll {
		announcement.TargetID = nil
	}
	if err := s.DB.Create(announcement).Error; err != nil {
		return nil, err
	}
	return announcement, nil
}

// visibleTo 住户可见的有效公告
func (s *AnnouncementService) visibleTo(householdID uint) (*gorm.DB, error) {
	var household models.Household
	if err := s.DB.Select("id", "building_id").First(&household, householdID).Error; err != nil {
		return nil, notFoundAs(err, ErrHouseholdNotFound)
	}

	clauses := []string{
		"(source = ? AND target_type = ?)",
		"(target_type = ? AND target_id = ?)",
	}
	args := []interface{}{
		models.AnnouncementSourceSystem, models.AnnouncementTargetAll,
		models.AnnouncementTargetHousehold, householdID,
	}
	if household.BuildingID != nil {
		var building models.Building
		if err := s.DB.Select("id", "community_id").First(&building, *household.BuildingID).Error; err == nil {
			clauses = append(clauses,
				"(source = ? AND source_id = ? AND target_type = ?)",
				"(target_type = ? AND target_id = ?)",
				"(source = ? AND source_id = ? AND target_type = ?)",
				"(target_type = ? AND target_id = ?)",
			)
			args = append(args,
				models.AnnouncementSourceBuilding, building.ID, models.AnnouncementTargetAll,
				models.AnnouncementTargetBuilding, building.ID,
				models.AnnouncementSourceCommunity, building.CommunityID, models.AnnouncementTargetAll,
				models.AnnouncementTargetCommunity, building.CommunityID,
			)
		}
	}

	return s.DB.Model(&models.Announcement{}).
		Where("is_active = ?", true).
		Where("(expires_at IS NULL OR expires_at > ?)", s.now()).
		Where("("+strings.Join(clauses, " OR ")+")", args...), nil
}

// 2 ListForHousehold 住户成员查看公告及已读状态
func (s *AnnouncementService) ListForHousehold(actorID, householdID uint) (*AnnouncementFeed, error) {
	query, err := s.visibleTo(householdID)
	if err != nil {
		return nil, err
	}
	if s.Permissions.HouseholdRole(actorID, householdID) == "" {
		return nil, ErrForbidden
	}

	var list []models.Announcement
	if err := query.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	feed := &AnnouncementFeed{Announcements: list, BySource: map[string][]models.Announcement{}}
	if len(list) == 0 {
		return feed, nil
	}

	ids := make([]uint, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	var readIDs []uint
	if err := s.DB.Model(&models.AnnouncementRead{}).
		Where("user_id = ? AND household_id = ? AND announcement_id IN ?", actorID, householdID, ids).
		Pluck("announcement_id", &readIDs).Error; err != nil {
		return nil, err
	}
	read := make(map[uint]bool, len(readIDs))
	for _, id := range readIDs {
		read[id] = true
	}

	for i := range list {
		list[i].IsRead = read[list[i].ID]
		if !list[i].IsRead {
			feed.UnreadCount++
		}
		feed.BySource[list[i].Source] = append(feed.BySource[list[i].Source], list[i])
	}
	return feed, nil
}

// 3 MarkRead 标记已读，重复标记无副作用
func (s *AnnouncementService) MarkRead(actorID, householdID, announcementID uint) error {
	query, err := s.visibleTo(householdID)
	if err != nil {
		return err
	}
	if s.Permissions.HouseholdRole(actorID, householdID) == "" {
		return ErrForbidden
	}
	var announcement models.Announcement
	if err := query.Where("id = ?", announcementID).First(&announcement).Error; err != nil {
		return notFoundAs(err, ErrAnnouncementNotFound)
	}

	read := models.AnnouncementRead{AnnouncementID: announcementID, UserID: actorID, HouseholdID: householdID}
	return s.DB.Where(&read).Attrs(models.AnnouncementRead{ReadAt: s.now()}).FirstOrCreate(&read).Error
}

// 4 DeactivateAnnouncement 撤回公告，权限同发布
func (s *AnnouncementService) DeactivateAnnouncement(actorID, id uint) error {
	var announcement models.Announcement
	if err := s.DB.First(&announcement, id).Error; err != nil {
		return notFoundAs(err, ErrAnnouncementNotFound)
	}
	if err := s.canPublish(actorID, announcement.Source, announcement.SourceID); err != nil {
		return err
	}
	return s.DB.Model(&announcement).Update("is_active", false).Error
}
