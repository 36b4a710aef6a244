package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/domain/workflow"
	"estatehub-http-service/internal/infrastructure/config"
	"estatehub-http-service/internal/infrastructure/logger"
)

// InterfaceWorkflowService 定义工作流服务接口
type InterfaceWorkflowService interface {
	// 类型
	ListTypes(activeOnly bool) ([]models.WorkflowType, error)
	CreateType(actorID uint, req *WorkflowTypeRequest) (*models.WorkflowType, error)
	GetType(id uint) (*models.WorkflowType, error)
	UpdateType(actorID, id uint, req *WorkflowTypeRequest) (*models.WorkflowType, error)
	DeleteType(actorID, id uint) error

	// 模板
	ListTemplates(actorID uint, typeID, communityID uint) ([]models.WorkflowTemplate, error)
	CreateTemplate(actorID uint, req *WorkflowTemplateRequest) (*models.WorkflowTemplate, error)
	GetTemplate(actorID, id uint) (*models.WorkflowTemplate, error)
	UpdateTemplate(actorID, id uint, req *WorkflowTemplateRequest) (*models.WorkflowTemplate, error)
	DeleteTemplate(actorID, id uint) error
	ReplaceTemplateSteps(actorID, id uint, steps []StepRequest) (*models.WorkflowTemplate, error)

	// 工作流
	ListWorkflows(actorID uint, filter WorkflowFilter, p models.PaginationQuery) ([]models.Workflow, ListResult, error)
	CreateWorkflow(actorID uint, req *WorkflowRequest) (*models.Workflow, error)
	GetWorkflow(actorID, id uint) (*models.Workflow, error)
	UpdateWorkflow(actorID, id uint, req *WorkflowUpdateRequest) (*models.Workflow, error)
	CancelWorkflow(actorID, id uint) (*models.Workflow, error)

	// 步骤
	ListSteps(actorID, workflowID uint) ([]models.WorkflowStep, error)
	AddStep(actorID, workflowID uint, req *StepRequest) (*models.WorkflowStep, error)
	UpdateStep(actorID, workflowID, stepID uint, req *StepUpdateRequest) (*models.WorkflowStep, error)

	// 任务
	ListTasks(actorID, workflowID, stepID uint) ([]models.WorkflowTask, error)
	CreateTask(actorID, workflowID, stepID uint, req *TaskRequest) (*models.WorkflowTask, error)
	GetTask(actorID, workflowID, taskID uint) (*models.WorkflowTask, error)
	UpdateTask(actorID, workflowID, taskID uint, req *TaskUpdateRequest) (*models.WorkflowTask, error)
	StartTask(actorID, workflowID, taskID uint) (*models.WorkflowTask, error)
	CompleteTask(actorID, workflowID, taskID uint, req *TaskCompleteRequest) (*models.WorkflowTask, error)
	AddTaskLog(actorID, workflowID, taskID uint, req *TaskLogRequest) (*models.WorkflowTaskLog, error)
	ListTaskLogs(actorID, workflowID, taskID uint) ([]models.WorkflowTaskLog, error)
}

// WorkflowTypeRequest 工作流类型请求
type WorkflowTypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// StepRequest 模板步骤或工作流步骤
type StepRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	WorkingGroupID   *uint  `json:"working_group_id"`
	AssignedToID     *uint  `json:"assigned_to_id"`
	EstimatedMinutes *int   `json:"estimated_minutes"`
}

// WorkflowTemplateRequest 模板请求
type WorkflowTemplateRequest struct {
	WorkflowTypeID uint          `json:"workflow_type_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	CommunityID    *uint         `json:"community_id"`
	IsActive       *bool         `json:"is_active"`
	Steps          []StepRequest `json:"steps"`
}

// WorkflowFilter 工作流列表过滤条件
type WorkflowFilter struct {
	CommunityID    uint
	BuildingID     uint
	Status         string
	WorkflowTypeID uint
}

// WorkflowRequest 创建工作流请求，未提供 steps 时从模板复制
type WorkflowRequest struct {
	WorkflowTypeID uint          `json:"workflow_type_id"`
	TemplateID     *uint         `json:"template_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Priority       string        `json:"priority"`
	CommunityID    *uint         `json:"community_id"`
	BuildingID     *uint         `json:"building_id"`
	HouseholdID    *uint         `json:"household_id"`
	AssignedToID   *uint         `json:"assigned_to_id"`
	DueDate        *time.Time    `json:"due_date"`
	Steps          []StepRequest `json:"steps"`
}

// WorkflowUpdateRequest 更新工作流
type WorkflowUpdateRequest struct {
	Name         *string    `json:"name"`
	Description  *string    `json:"description"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	AssignedToID *uint      `json:"assigned_to_id"`
	DueDate      *time.Time `json:"due_date"`
}

// StepUpdateRequest 更新步骤
type StepUpdateRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Status         string  `json:"status"`
	AssignedToID   *uint   `json:"assigned_to_id"`
	WorkingGroupID *uint   `json:"working_group_id"`
	Notes          *string `json:"notes"`
}

// TaskRequest 创建任务
type TaskRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	AssignedToID     *uint  `json:"assigned_to_id"`
	EstimatedMinutes *int   `json:"estimated_minutes"`
}

// TaskUpdateRequest 更新任务
type TaskUpdateRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	Status           string  `json:"status"`
	AssignedToID     *uint   `json:"assigned_to_id"`
	EstimatedMinutes *int    `json:"estimated_minutes"`
	ActualMinutes    *int    `json:"actual_minutes"`
	Notes            *string `json:"notes"`
}

// TaskCompleteRequest 完成任务
type TaskCompleteRequest struct {
	WorkDone string `json:"work_done"`
	Notes    string `json:"notes"`
}

// TaskLogRequest 任务工作日志
type TaskLogRequest struct {
	Action          string `json:"action"`
	Description     string `json:"description"`
	DurationMinutes *int   `json:"duration_minutes"`
}

// WorkflowService 工作流服务；状态规则由 workflow 包计算
type WorkflowService struct {
	DB            *gorm.DB
	Config        *config.Config
	Permissions   InterfacePermissionService
	Notifications InterfaceNotificationService
	now           func() time.Time
}

// NewWorkflowService 创建工作流服务
func NewWorkflowService(db *gorm.DB, cfg *config.Config, perms InterfacePermissionService, notifications InterfaceNotificationService) InterfaceWorkflowService {
	return &WorkflowService{DB: db, Config: cfg, Permissions: perms, Notifications: notifications, now: time.Now}
}

// ===== 类型 =====

// 1 ListTypes 列出工作流类型
func (s *WorkflowService) ListTypes(activeOnly bool) ([]models.WorkflowType, error) {
	query := s.DB.Model(&models.WorkflowType{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var list []models.WorkflowType
	err := query.Order("name ASC").Find(&list).Error
	return list, err
}

// 2 CreateType 超级管理员创建类型
func (s *WorkflowService) CreateType(actorID uint, req *WorkflowTypeRequest) (*models.WorkflowType, error) {
	if !s.Permissions.IsSuperAdmin(actorID) {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}
	t := &models.WorkflowType{Name: name, Description: req.Description, IsActive: true}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if err := s.DB.Create(t).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrWorkflowTypeAlreadyExist
		}
		return nil, err
	}
	return t, nil
}

// 3 GetType 获取类型
func (s *WorkflowService) GetType(id uint) (*models.WorkflowType, error) {
	var t models.WorkflowType
	if err := s.DB.First(&t, id).Error; err != nil {
		return nil, notFoundAs(err, ErrWorkflowTypeNotFound)
	}
	return &t, nil
}

// 4 UpdateType 更新类型
func (s *WorkflowService) UpdateType(actorID, id uint, req *WorkflowTypeRequest) (*models.WorkflowType, error) {
	if !s.Permissions.IsSuperAdmin(actorID) {
		return nil, ErrForbidden
	}
	t, err := s.GetType(id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		t.Name = name
	}
	t.Description = req.Description
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if err := s.DB.Save(t).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrWorkflowTypeAlreadyExist
		}
		return nil, err
	}
	return t, nil
}

// 5 DeleteType 删除类型；已被模板或工作流引用时拒绝
func (s *WorkflowService) DeleteType(actorID, id uint) error {
	if !s.Permissions.IsSuperAdmin(actorID) {
		return ErrForbidden
	}
	if _, err := s.GetType(id); err != nil {
		return err
	}
	var refs int64
	if err := s.DB.Model(&models.WorkflowTemplate{}).Where("workflow_type_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	if refs == 0 {
		if err := s.DB.Model(&models.Workflow{}).Where("workflow_type_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
	}
	if refs > 0 {
		return invalidParam("workflow type is in use")
	}
	return s.DB.Delete(&models.WorkflowType{}, id).Error
}

// ===== 模板 =====

func (s *WorkflowService) canEditTemplate(actorID uint, communityID *uint) bool {
	if communityID == nil {
		return s.Permissions.IsSuperAdmin(actorID)
	}
	return s.Permissions.CanManageCommunity(actorID, *communityID)
}

func templateSteps(templateID uint, steps []StepRequest) ([]models.WorkflowTemplateStep, error) {
	out := make([]models.WorkflowTemplateStep, 0, len(steps))
	for i, st := range steps {
		name := strings.TrimSpace(st.Name)
		if name == "" {
			return nil, invalidParam("step %d: name is required", i+1)
		}
		out = append(out, models.WorkflowTemplateStep{
			TemplateID:       templateID,
			StepOrder:        i + 1,
			Name:             name,
			Description:      st.Description,
			WorkingGroupID:   st.WorkingGroupID,
			EstimatedMinutes: st.EstimatedMinutes,
		})
	}
	return out, nil
}

// 6 ListTemplates 列出全局模板及可见社区的模板
func (s *WorkflowService) ListTemplates(actorID uint, typeID, communityID uint) ([]models.WorkflowTemplate, error) {
	query := s.DB.Model(&models.WorkflowTemplate{}).Preload("WorkflowType").Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order ASC")
	})
	if typeID != 0 {
		query = query.Where("workflow_type_id = ?", typeID)
	}
	if communityID != 0 {
		if !s.Permissions.CanViewCommunity(actorID, communityID) {
			return nil, ErrForbidden
		}
		query = query.Where("community_id = ? OR community_id IS NULL", communityID)
	} else if !s.Permissions.IsSuperAdmin(actorID) {
		mine := s.DB.Model(&models.CommunityMember{}).Select("community_id").Where("user_id = ?", actorID)
		query = query.Where("community_id IS NULL OR community_id IN (?)", mine)
	}
	var list []models.WorkflowTemplate
	err := query.Order("name ASC").Find(&list).Error
	return list, err
}

// 7 CreateTemplate 创建模板及其有序步骤
func (s *WorkflowService) CreateTemplate(actorID uint, req *WorkflowTemplateRequest) (*models.WorkflowTemplate, error) {
	if !s.canEditTemplate(actorID, req.CommunityID) {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}
	if _, err := s.GetType(req.WorkflowTypeID); err != nil {
		return nil, err
	}

	tpl := &models.WorkflowTemplate{
		WorkflowTypeID: req.WorkflowTypeID,
		Name:           name,
		Description:    req.Description,
		CommunityID:    req.CommunityID,
		IsActive:       true,
		CreatedByID:    actorID,
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Steps", "WorkflowType").Create(tpl).Error; err != nil {
			return err
		}
		steps, err := templateSteps(tpl.ID, req.Steps)
		if err != nil {
			return err
		}
		if len(steps) > 0 {
			if err := tx.Create(&steps).Error; err != nil {
				return err
			}
		}
		tpl.Steps = steps
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *WorkflowService) loadTemplate(id uint) (*models.WorkflowTemplate, error) {
	var tpl models.WorkflowTemplate
	err := s.DB.Preload("WorkflowType").Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order ASC")
	}).First(&tpl, id).Error
	if err != nil {
		return nil, notFoundAs(err, ErrWorkflowTemplateNotFound)
	}
	return &tpl, nil
}

// 8 GetTemplate 获取模板
func (s *WorkflowService) GetTemplate(actorID, id uint) (*models.WorkflowTemplate, error) {
	tpl, err := s.loadTemplate(id)
	if err != nil {
		return nil, err
	}
	if tpl.CommunityID != nil && !s.Permissions.CanViewCommunity(actorID, *tpl.CommunityID) {
		return nil, ErrForbidden
	}
	return tpl, nil
}

// 9 UpdateTemplate 更新模板基本信息
func (s *WorkflowService) UpdateTemplate(actorID, id uint, req *WorkflowTemplateRequest) (*models.WorkflowTemplate, error) {
	tpl, err := s.loadTemplate(id)
	if err != nil {
		return nil, err
	}
	if !s.canEditTemplate(actorID, tpl.CommunityID) {
		return nil, ErrForbidden
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		tpl.Name = name
	}
	tpl.Description = req.Description
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	if req.WorkflowTypeID != 0 && req.WorkflowTypeID != tpl.WorkflowTypeID {
		if _, err := s.GetType(req.WorkflowTypeID); err != nil {
			return nil, err
		}
		tpl.WorkflowTypeID = req.WorkflowTypeID
		tpl.WorkflowType = nil
	}
	if err := s.DB.Omit("Steps", "WorkflowType").Save(tpl).Error; err != nil {
		return nil, err
	}
	return tpl, nil
}

// 10 DeleteTemplate 删除模板及步骤
func (s *WorkflowService) DeleteTemplate(actorID, id uint) error {
	tpl, err := s.loadTemplate(id)
	if err != nil {
		return err
	}
	if !s.canEditTemplate(actorID, tpl.CommunityID) {
		return ErrForbidden
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).Delete(&models.WorkflowTemplateStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.WorkflowTemplate{}, id).Error
	})
}

// 11 ReplaceTemplateSteps 整体替换模板步骤，顺序按数组下标 1..n
func (s *WorkflowService) ReplaceTemplateSteps(actorID, id uint, steps []StepRequest) (*models.WorkflowTemplate, error) {
	tpl, err := s.loadTemplate(id)
	if err != nil {
		return nil, err
	}
	if !s.canEditTemplate(actorID, tpl.CommunityID) {
		return nil, ErrForbidden
	}
	rows, err := templateSteps(id, steps)
	if err != nil {
		return nil, err
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).Delete(&models.WorkflowTemplateStep{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	tpl.Steps = rows
	return tpl, nil
}

// ===== 工作流 =====

func (s *WorkflowService) loadWorkflow(id uint) (*models.Workflow, error) {
	var wf models.Workflow
	if err := s.DB.First(&wf, id).Error; err != nil {
		return nil, notFoundAs(err, ErrWorkflowNotFound)
	}
	return &wf, nil
}

func (s *WorkflowService) canManageWorkflow(actorID uint, wf *models.Workflow) bool {
	if wf.CreatedByID == actorID || s.Permissions.IsSuperAdmin(actorID) {
		return true
	}
	if wf.BuildingID != nil && s.Permissions.CanManageBuilding(actorID, *wf.BuildingID) {
		return true
	}
	return wf.CommunityID != nil && s.Permissions.CanManageCommunity(actorID, *wf.CommunityID)
}

func (s *WorkflowService) inStepGroup(actorID, workflowID uint) bool {
	var count int64
	groupIDs := s.DB.Model(&models.WorkingGroupMember{}).Select("working_group_id").Where("user_id = ?", actorID)
	s.DB.Model(&models.WorkflowStep{}).
		Where("workflow_id = ? AND (assigned_to_id = ? OR working_group_id IN (?))", workflowID, actorID, groupIDs).
		Count(&count)
	return count > 0
}

func (s *WorkflowService) canViewWorkflow(actorID uint, wf *models.Workflow) bool {
	if s.canManageWorkflow(actorID, wf) {
		return true
	}
	if wf.AssignedToID != nil && *wf.AssignedToID == actorID {
		return true
	}
	if wf.CommunityID != nil && s.Permissions.CanViewCommunity(actorID, *wf.CommunityID) {
		return true
	}
	if wf.BuildingID != nil && s.Permissions.BuildingRole(actorID, *wf.BuildingID) != "" {
		return true
	}
	if wf.HouseholdID != nil && s.Permissions.CanAccessHousehold(actorID, *wf.HouseholdID) {
		return true
	}
	return s.inStepGroup(actorID, wf.ID)
}

// 12 ListWorkflows 非管理员只看到创建/指派/社区/楼栋/工作组相关的工作流
func (s *WorkflowService) ListWorkflows(actorID uint, filter WorkflowFilter, p models.PaginationQuery) ([]models.Workflow, ListResult, error) {
	query := s.DB.Model(&models.Workflow{}).Preload("WorkflowType")
	if !s.Permissions.IsSuperAdmin(actorID) {
		communities := s.DB.Model(&models.CommunityMember{}).Select("community_id").Where("user_id = ?", actorID)
		buildings := s.DB.Model(&models.BuildingMember{}).Select("building_id").Where("user_id = ?", actorID)
		groups := s.DB.Model(&models.WorkingGroupMember{}).Select("working_group_id").Where("user_id = ?", actorID)
		stepWorkflows := s.DB.Model(&models.WorkflowStep{}).Select("workflow_id").
			Where("assigned_to_id = ? OR working_group_id IN (?)", actorID, groups)
		query = query.Where(
			"created_by_id = ? OR assigned_to_id = ? OR community_id IN (?) OR building_id IN (?) OR id IN (?)",
			actorID, actorID, communities, buildings, stepWorkflows,
		)
	}
	if filter.CommunityID != 0 {
		query = query.Where("community_id = ?", filter.CommunityID)
	}
	if filter.BuildingID != 0 {
		query = query.Where("building_id = ?", filter.BuildingID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.WorkflowTypeID != 0 {
		query = query.Where("workflow_type_id = ?", filter.WorkflowTypeID)
	}
	var list []models.Workflow
	res, err := paginate(query, p, "id DESC", &list)
	return list, res, err
}

// 13 CreateWorkflow 从模板或显式步骤创建；社区/楼栋工作流需 ADMIN/MANAGER
func (s *WorkflowService) CreateWorkflow(actorID uint, req *WorkflowRequest) (*models.Workflow, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !models.IsValidPriority(priority) {
		return nil, invalidParam("invalid priority %q", priority)
	}
	if _, err := s.GetType(req.WorkflowTypeID); err != nil {
		return nil, err
	}
	if req.CommunityID != nil && !s.Permissions.CanManageCommunity(actorID, *req.CommunityID) {
		return nil, ErrForbidden
	}
	if req.BuildingID != nil && !s.Permissions.CanManageBuilding(actorID, *req.BuildingID) {
		return nil, ErrForbidden
	}
	if req.HouseholdID != nil && !s.Permissions.CanAccessHousehold(actorID, *req.HouseholdID) {
		return nil, ErrForbidden
	}

	stepReqs := req.Steps
	if len(stepReqs) == 0 && req.TemplateID != nil {
		tpl, err := s.loadTemplate(*req.TemplateID)
		if err != nil {
			return nil, err
		}
		for _, st := range tpl.Steps {
			stepReqs = append(stepReqs, StepRequest{
				Name:             st.Name,
				Description:      st.Description,
				WorkingGroupID:   st.WorkingGroupID,
				EstimatedMinutes: st.EstimatedMinutes,
			})
		}
	}

	wf := &models.Workflow{
		WorkflowTypeID: req.WorkflowTypeID,
		TemplateID:     req.TemplateID,
		Name:           name,
		Description:    req.Description,
		Status:         string(workflow.StatusPending),
		Priority:       priority,
		CommunityID:    req.CommunityID,
		BuildingID:     req.BuildingID,
		HouseholdID:    req.HouseholdID,
		CreatedByID:    actorID,
		AssignedToID:   req.AssignedToID,
		DueDate:        req.DueDate,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Steps", "WorkflowType").Create(wf).Error; err != nil {
			return err
		}
		steps := make([]models.WorkflowStep, 0, len(stepReqs))
		for i, st := range stepReqs {
			stepName := strings.TrimSpace(st.Name)
			if stepName == "" {
				return invalidParam("step %d: name is required", i+1)
			}
			steps = append(steps, models.WorkflowStep{
				WorkflowID:       wf.ID,
				StepOrder:        i + 1,
				Name:             stepName,
				Description:      st.Description,
				Status:           string(workflow.StatusPending),
				WorkingGroupID:   st.WorkingGroupID,
				AssignedToID:     st.AssignedToID,
				EstimatedMinutes: st.EstimatedMinutes,
			})
		}
		if len(steps) > 0 {
			if err := tx.Omit("Tasks").Create(&steps).Error; err != nil {
				return err
			}
		}
		wf.Steps = steps
		return nil
	})
	if err != nil {
		return nil, err
	}
	if wf.AssignedToID != nil && *wf.AssignedToID != actorID {
		s.notify([]uint{*wf.AssignedToID}, wf, "Workflow assigned: "+wf.Name)
	}
	return wf, nil
}

// 14 GetWorkflow 获取工作流及步骤、任务
func (s *WorkflowService) GetWorkflow(actorID, id uint) (*models.Workflow, error) {
	var wf models.Workflow
	err := s.DB.Preload("WorkflowType").
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order ASC") }).
		Preload("Steps.Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&wf, id).Error
	if err != nil {
		return nil, notFoundAs(err, ErrWorkflowNotFound)
	}
	if !s.canViewWorkflow(actorID, &wf) {
		return nil, ErrForbidden
	}
	return &wf, nil
}

// 15 UpdateWorkflow 更新工作流；状态只能前进
func (s *WorkflowService) UpdateWorkflow(actorID, id uint, req *WorkflowUpdateRequest) (*models.Workflow, error) {
	wf, err := s.loadWorkflow(id)
	if err != nil {
		return nil, err
	}
	if !s.canManageWorkflow(actorID, wf) {
		return nil, ErrForbidden
	}
	current := workflow.Status(wf.Status)
	if current.IsTerminal() {
		return nil, workflow.ErrWorkflowClosed
	}

	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			wf.Name = name
		}
	}
	if req.Description != nil {
		wf.Description = *req.Description
	}
	if req.Priority != "" {
		if !models.IsValidPriority(req.Priority) {
			return nil, invalidParam("invalid priority %q", req.Priority)
		}
		wf.Priority = req.Priority
	}
	if req.AssignedToID != nil {
		wf.AssignedToID = req.AssignedToID
	}
	if req.DueDate != nil {
		wf.DueDate = req.DueDate
	}

	changed := false
	if req.Status != "" {
		to, err := workflow.ParseStatus(req.Status)
		if err != nil {
			return nil, invalidParam("invalid status %q", req.Status)
		}
		t, err := workflow.Advance(current, to, wf.StartedAt, wf.CompletedAt, s.now())
		if err != nil {
			return nil, err
		}
		wf.Status = string(t.Status)
		wf.StartedAt = t.StartedAt
		wf.CompletedAt = t.CompletedAt
		changed = t.Changed
	}
	if err := s.DB.Omit("Steps", "WorkflowType").Save(wf).Error; err != nil {
		return nil, err
	}
	if changed {
		s.notifyStatus(wf)
	}
	return wf, nil
}

// 16 CancelWorkflow 取消工作流，已完成或已取消的不能再取消
func (s *WorkflowService) CancelWorkflow(actorID, id uint) (*models.Workflow, error) {
	wf, err := s.loadWorkflow(id)
	if err != nil {
		return nil, err
	}
	if !s.canManageWorkflow(actorID, wf) {
		return nil, ErrForbidden
	}
	current := workflow.Status(wf.Status)
	if current.IsTerminal() {
		return nil, workflow.ErrInvalidTransition
	}
	t, err := workflow.Advance(current, workflow.StatusCancelled, wf.StartedAt, wf.CompletedAt, s.now())
	if err != nil {
		return nil, err
	}
	wf.Status = string(t.Status)
	wf.CompletedAt = t.CompletedAt
	if err := s.DB.Omit("Steps", "WorkflowType").Save(wf).Error; err != nil {
		return nil, err
	}
	s.notifyStatus(wf)
	return wf, nil
}

// ===== 步骤 =====

func (s *WorkflowService) loadStep(workflowID, stepID uint) (*models.WorkflowStep, error) {
	var step models.WorkflowStep
	if err := s.DB.Where("id = ? AND workflow_id = ?", stepID, workflowID).First(&step).Error; err != nil {
		return nil, notFoundAs(err, ErrWorkflowStepNotFound)
	}
	return &step, nil
}

// isStepWorker 步骤指派人或步骤工作组成员
func (s *WorkflowService) isStepWorker(actorID uint, step *models.WorkflowStep) bool {
	if step.AssignedToID != nil && *step.AssignedToID == actorID {
		return true
	}
	return step.WorkingGroupID != nil && s.Permissions.IsWorkingGroupMember(actorID, *step.WorkingGroupID)
}

// 17 ListSteps 按顺序列出步骤
func (s *WorkflowService) ListSteps(actorID, workflowID uint) ([]models.WorkflowStep, error) {
	wf, err := s.loadWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	if !s.canViewWorkflow(actorID, wf) {
		return nil, ErrForbidden
	}
	var steps []models.WorkflowStep
	err = s.DB.Preload("Tasks").Where("workflow_id = ?", workflowID).Order("step_order ASC").Find(&steps).Error
	return steps, err
}

// 18 AddStep 追加步骤到末尾
func (s *WorkflowService) AddStep(actorID, workflowID uint, req *StepRequest) (*models.WorkflowStep, error) {
	wf, err := s.loadWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	if !s.canManageWorkflow(actorID, wf) {
		return nil, ErrForbidden
	}
	if err := workflow.GuardItemChange(workflow.Status(wf.Status)); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}

	step := &models.WorkflowStep{
		WorkflowID:       workflowID,
		Name:             name,
		Description:      req.Description,
		Status:           string(workflow.StatusPending),
		WorkingGroupID:   req.WorkingGroupID,
		AssignedToID:     req.AssignedToID,
		EstimatedMinutes: req.EstimatedMinutes,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		if err := tx.Model(&models.WorkflowStep{}).Where("workflow_id = ?", workflowID).
			Select("COALESCE(MAX(step_order), 0)").Scan(&maxOrder).Error; err != nil {
			return err
		}
		step.StepOrder = maxOrder + 1
		return tx.Omit("Tasks").Create(step).Error
	})
	if err != nil {
		return nil, err
	}
	return step, nil
}

// applyStepStatus 推进步骤状态并计算等待时间/耗时，随后汇总工作流状态
func (s *WorkflowService) applyStepStatus(tx *gorm.DB, wf *models.Workflow, step *models.WorkflowStep, to workflow.Status, now time.Time) (bool, error) {
	t, err := workflow.Advance(workflow.Status(step.Status), to, step.StartedAt, step.CompletedAt, now)
	if err != nil || !t.Changed {
		return false, err
	}
	if t.Started {
		var prev models.WorkflowStep
		err := tx.Where("workflow_id = ? AND step_order < ?", step.WorkflowID, step.StepOrder).
			Order("step_order DESC").First(&prev).Error
		switch {
		case err == nil:
			step.WaitTimeMinutes = workflow.WaitMinutes(prev.CompletedAt, now)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return false, err
		}
	}
	step.Status = string(t.Status)
	step.StartedAt = t.StartedAt
	step.CompletedAt = t.CompletedAt
	if t.Status == workflow.StatusCompleted {
		step.DurationMinutes = t.Duration
	}
	if err := tx.Omit("Tasks").Save(step).Error; err != nil {
		return false, err
	}
	return s.rollUp(tx, wf, now)
}

// rollUp 根据步骤状态推进工作流，返回工作流状态是否变化
func (s *WorkflowService) rollUp(tx *gorm.DB, wf *models.Workflow, now time.Time) (bool, error) {
	var statuses []string
	if err := tx.Model(&models.WorkflowStep{}).Where("workflow_id = ?", wf.ID).Pluck("status", &statuses).Error; err != nil {
		return false, err
	}
	steps := make([]workflow.Status, 0, len(statuses))
	for _, st := range statuses {
		steps = append(steps, workflow.Status(st))
	}
	current := workflow.Status(wf.Status)
	next := workflow.RollUp(current, steps)
	if next == current {
		return false, nil
	}
	t, err := workflow.Advance(current, next, wf.StartedAt, wf.CompletedAt, now)
	if err != nil {
		return false, err
	}
	wf.Status = string(t.Status)
	wf.StartedAt = t.StartedAt
	wf.CompletedAt = t.CompletedAt
	return true, tx.Omit("Steps", "WorkflowType").Save(wf).Error
}

// 19 UpdateStep 更新步骤；开始时记录等待时间，完成时记录耗时
func (s *WorkflowService) UpdateStep(actorID, workflowID, stepID uint, req *StepUpdateRequest) (*models.WorkflowStep, error) {
	wf, err := s.loadWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	step, err := s.loadStep(workflowID, stepID)
	if err != nil {
		return nil, err
	}
	if !s.canManageWorkflow(actorID, wf) && !s.isStepWorker(actorID, step) {
		return nil, ErrForbidden
	}
	if err := workflow.GuardItemChange(workflow.Status(wf.Status)); err != nil {
		return nil, err
	}

	var to workflow.Status
	if req.Status != "" {
		if to, err = workflow.ParseItemStatus(req.Status); err != nil {
			return nil, err
		}
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		step.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		step.Description = *req.Description
	}
	if req.AssignedToID != nil {
		step.AssignedToID = req.AssignedToID
	}
	if req.WorkingGroupID != nil {
		step.WorkingGroupID = req.WorkingGroupID
	}
	if req.Notes != nil {
		step.Notes = *req.Notes
	}

	wfChanged := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tasks").Save(step).Error; err != nil {
			return err
		}
		if to == "" {
			return nil
		}
		var err error
		wfChanged, err = s.applyStepStatus(tx, wf, step, to, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if wfChanged {
		s.notifyStatus(wf)
	}
	return step, nil
}

// ===== 任务 =====

func (s *WorkflowService) loadTask(workflowID, taskID uint) (*models.WorkflowTask, error) {
	var task models.WorkflowTask
	if err := s.DB.Where("id = ? AND workflow_id = ?", taskID, workflowID).First(&task).Error; err != nil {
		return nil, notFoundAs(err, ErrWorkflowTaskNotFound)
	}
	return &task, nil
}

// taskContext 加载任务及其工作流、步骤，并校验执行权限
func (s *WorkflowService) taskContext(actorID, workflowID, taskID uint) (*models.Workflow, *models.WorkflowStep, *models.WorkflowTask, error) {
	wf, err := s.loadWorkflow(workflowID)
	if err != nil {
		return nil, nil, nil, err
	}
	task, err := s.loadTask(workflowID, taskID)
	if err != nil {
		return nil, nil, nil, err
	}
	step, err := s.loadStep(workflowID, task.StepID)
	if err != nil {
		return nil, nil, nil, err
	}
	assignee := task.AssignedToID != nil && *task.AssignedToID == actorID
	if !assignee && !s.isStepWorker(actorID, step) && !s.canManageWorkflow(actorID, wf) {
		return nil, nil, nil, ErrForbidden
	}
	return wf, step, task, nil
}

// 20 ListTasks 列出步骤下的任务
func (s *WorkflowService) ListTasks(actorID, workflowID, stepID uint) ([]models.WorkflowTask, error) {
	wf, err := s.loadWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	if !s.canViewWorkflow(actorID, wf) {
		return nil, ErrForbidden
	}
	if _, err := s.loadStep(workflowID, stepID); err != nil {
		return nil, err
	}
	var tasks []models.WorkflowTask
	err = s.DB.Where("step_id = ?", stepID).Order("id ASC").Find(&tasks).Error
	return tasks, err
}

// 21 CreateTask 在步骤下创建任务
func (s *WorkflowService) CreateTask(actorID, workflowID, stepID uint, req *TaskRequest) (*models.WorkflowTask, error) {
	wf, err := s.loadWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	step, err := s.loadStep(workflowID, stepID)
	if err != nil {
		return nil, err
	}
	if !s.canManageWorkflow(actorID, wf) && !s.isStepWorker(actorID, step) {
		return nil, ErrForbidden
	}
	if err := workflow.GuardItemChange(workflow.Status(wf.Status)); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidParam("name is required")
	}
	task := &models.WorkflowTask{
		StepID:           stepID,
		WorkflowID:       workflowID,
		Name:             name,
		Description:      req.Description,
		Status:           string(workflow.StatusPending),
		AssignedToID:     req.AssignedToID,
		EstimatedMinutes: req.EstimatedMinutes,
	}
	if err := s.DB.Omit("Logs").Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// 22 GetTask 获取任务及日志
func (s *WorkflowService) GetTask(actorID, workflowID, taskID uint) (*models.WorkflowTask, error) {
	wf, err := s.loadWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	if !s.canViewWorkflow(actorID, wf) {
		return nil, ErrForbidden
	}
	var task models.WorkflowTask
	err = s.DB.Preload("Logs", func(db *gorm.DB) *gorm.DB { return db.Order("id DESC") }).
		Where("id = ? AND workflow_id = ?", taskID, workflowID).First(&task).Error
	if err != nil {
		return nil, notFoundAs(err, ErrWorkflowTaskNotFound)
	}
	return &task, nil
}

// applyTaskStatus 推进任务状态；开始任务时若步骤仍为 PENDING 则一并开始
func (s *WorkflowService) applyTaskStatus(tx *gorm.DB, wf *models.Workflow, step *models.WorkflowStep, task *models.WorkflowTask, to workflow.Status, now time.Time) (bool, error) {
	t, err := workflow.Advance(workflow.Status(task.Status), to, task.StartedAt, task.CompletedAt, now)
	if err != nil || !t.Changed {
		return false, err
	}
	task.Status = string(t.Status)
	task.StartedAt = t.StartedAt
	task.CompletedAt = t.CompletedAt
	if t.Duration != nil {
		task.ActualMinutes = t.Duration
	}
	if err := tx.Omit("Logs").Save(task).Error; err != nil {
		return false, err
	}
	if t.Status == workflow.StatusInProgress && workflow.Status(step.Status) == workflow.StatusPending {
		return s.applyStepStatus(tx, wf, step, workflow.StatusInProgress, now)
	}
	return false, nil
}

// 23 UpdateTask 更新任务
func (s *WorkflowService) UpdateTask(actorID, workflowID, taskID uint, req *TaskUpdateRequest) (*models.WorkflowTask, error) {
	wf, step, task, err := s.taskContext(actorID, workflowID, taskID)
	if err != nil {
		return nil, err
	}
	if err := workflow.GuardItemChange(workflow.Status(wf.Status)); err != nil {
		return nil, err
	}
	var to workflow.Status
	if req.Status != "" {
		if to, err = workflow.ParseItemStatus(req.Status); err != nil {
			return nil, err
		}
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		task.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.AssignedToID != nil {
		task.AssignedToID = req.AssignedToID
	}
	if req.EstimatedMinutes != nil {
		task.EstimatedMinutes = req.EstimatedMinutes
	}
	if req.ActualMinutes != nil {
		task.ActualMinutes = req.ActualMinutes
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}

	wfChanged := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Logs").Save(task).Error; err != nil {
			return err
		}
		if to == "" {
			return nil
		}
		var err error
		wfChanged, err = s.applyTaskStatus(tx, wf, step, task, to, s.now())
		if err != nil {
			return err
		}
		return tx.Create(&models.WorkflowTaskLog{
			TaskID:      task.ID,
			UserID:      actorID,
			Action:      models.TaskLogUpdate,
			Description: "Status changed to " + task.Status,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	if wfChanged {
		s.notifyStatus(wf)
	}
	return task, nil
}

// 24 StartTask 开始任务
func (s *WorkflowService) StartTask(actorID, workflowID, taskID uint) (*models.WorkflowTask, error) {
	wf, step, task, err := s.taskContext(actorID, workflowID, taskID)
	if err != nil {
		return nil, err
	}
	if err := workflow.GuardItemChange(workflow.Status(wf.Status)); err != nil {
		return nil, err
	}
	if task.Status != string(workflow.StatusPending) {
		return nil, workflow.ErrInvalidTransition
	}

	wfChanged := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		wfChanged, err = s.applyTaskStatus(tx, wf, step, task, workflow.StatusInProgress, s.now())
		if err != nil {
			return err
		}
		if task.AssignedToID == nil {
			task.AssignedToID = uintPtr(actorID)
			if err := tx.Model(task).Update("assigned_to_id", actorID).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.WorkflowTaskLog{
			TaskID:      task.ID,
			UserID:      actorID,
			Action:      models.TaskLogStart,
			Description: "Task started",
		}).Error
	})
	if err != nil {
		return nil, err
	}
	if wfChanged {
		s.notifyStatus(wf)
	}
	return task, nil
}

// 25 CompleteTask 完成任务，必须处于 IN_PROGRESS；写入 COMPLETE 日志
func (s *WorkflowService) CompleteTask(actorID, workflowID, taskID uint, req *TaskCompleteRequest) (*models.WorkflowTask, error) {
	wf, step, task, err := s.taskContext(actorID, workflowID, taskID)
	if err != nil {
		return nil, err
	}
	if err := workflow.GuardItemChange(workflow.Status(wf.Status)); err != nil {
		return nil, err
	}
	if task.Status != string(workflow.StatusInProgress) {
		return nil, workflow.ErrInvalidTransition
	}
	if req.Notes != "" {
		task.Notes = req.Notes
	}
	description := req.WorkDone
	if description == "" {
		description = "Task completed"
	}

	wfChanged := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		if wfChanged, err = s.applyTaskStatus(tx, wf, step, task, workflow.StatusCompleted, s.now()); err != nil {
			return err
		}
		return tx.Create(&models.WorkflowTaskLog{
			TaskID:          task.ID,
			UserID:          actorID,
			Action:          models.TaskLogComplete,
			Description:     description,
			DurationMinutes: task.ActualMinutes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	if wfChanged {
		s.notifyStatus(wf)
	}
	return task, nil
}

// 26 AddTaskLog 记录任务工作日志
func (s *WorkflowService) AddTaskLog(actorID, workflowID, taskID uint, req *TaskLogRequest) (*models.WorkflowTaskLog, error) {
	wf, _, task, err := s.taskContext(actorID, workflowID, taskID)
	if err != nil {
		return nil, err
	}
	if err := workflow.GuardItemChange(workflow.Status(wf.Status)); err != nil {
		return nil, err
	}
	action := strings.ToUpper(strings.TrimSpace(req.Action))
	if action == "" {
		return nil, invalidParam("action is required")
	}
	if req.DurationMinutes != nil && *req.DurationMinutes < 0 {
		return nil, invalidParam("duration_minutes must not be negative")
	}
	log := &models.WorkflowTaskLog{
		TaskID:          task.ID,
		UserID:          actorID,
		Action:          action,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.DB.Create(log).Error; err != nil {
		return nil, err
	}
	return log, nil
}

// 27 ListTaskLogs 任务日志（新到旧）
func (s *WorkflowService) ListTaskLogs(actorID, workflowID, taskID uint) ([]models.WorkflowTaskLog, error) {
	task, err := s.GetTask(actorID, workflowID, taskID)
	if err != nil {
		return nil, err
	}
	return task.Logs, nil
}

func (s *WorkflowService) notifyStatus(wf *models.Workflow) {
	recipients := []uint{wf.CreatedByID}
	if wf.AssignedToID != nil {
		recipients = append(recipients, *wf.AssignedToID)
	}
	s.notify(recipients, wf, fmt.Sprintf("Workflow %s: %s", wf.Name, wf.Status))
}

func (s *WorkflowService) notify(userIDs []uint, wf *models.Workflow, title string) {
	if s.Notifications == nil {
		return
	}
	_, err := s.Notifications.Notify(userIDs, NotificationInput{
		Type:        models.NotificationWorkflowUpdate,
		Title:       title,
		Message:     wf.Description,
		RelatedType: "workflow",
		RelatedID:   uintPtr(wf.ID),
	})
	if err != nil {
		logger.Named("workflow").Warn("workflow notification failed", zap.Uint("workflow_id", wf.ID), zap.Error(err))
	}
}
