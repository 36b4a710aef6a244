package models

import "time"

// Workflow task log actions
const (
	TaskLogStart    = "START"
	TaskLogComplete = "COMPLETE"
	TaskLogNote     = "NOTE"
	TaskLogUpdate   = "UPDATE"
)

// WorkflowType groups templates and workflows, e.g. "move-in" or "renovation"
type WorkflowType struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `json:"is_active"`
}

// WorkflowTemplate is a reusable ordered list of steps
type WorkflowTemplate struct {
	BaseModel
	WorkflowTypeID uint   `gorm:"index;not null" json:"workflow_type_id"`
	Name           string `gorm:"type:varchar(150);not null" json:"name"`
	Description    string `gorm:"type:text" json:"description"`
	CommunityID    *uint  `gorm:"index" json:"community_id,omitempty"`
	IsActive       bool   `json:"is_active"`
	CreatedByID    uint   `json:"created_by_id"`

	WorkflowType *WorkflowType          `gorm:"foreignKey:WorkflowTypeID" json:"workflow_type,omitempty"`
	Steps        []WorkflowTemplateStep `gorm:"foreignKey:TemplateID" json:"steps,omitempty"`
}

// WorkflowTemplateStep 模板步骤
type WorkflowTemplateStep struct {
	BaseModel
	TemplateID       uint   `gorm:"index;not null" json:"template_id"`
	StepOrder        int    `gorm:"not null" json:"step_order"`
	Name             string `gorm:"type:varchar(150);not null" json:"name"`
	Description      string `gorm:"type:text" json:"description"`
	WorkingGroupID   *uint  `json:"working_group_id,omitempty"`
	EstimatedMinutes *int   `json:"estimated_minutes,omitempty"`
}

// Workflow is a running instance of a template or an ad-hoc step list
type Workflow struct {
	BaseModel
	WorkflowTypeID uint       `gorm:"index;not null" json:"workflow_type_id"`
	TemplateID     *uint      `json:"template_id,omitempty"`
	Name           string     `gorm:"type:varchar(150);not null" json:"name"`
	Description    string     `gorm:"type:text" json:"description"`
	Status         string     `gorm:"type:varchar(20);not null;index" json:"status"`
	Priority       string     `gorm:"type:varchar(20);not null" json:"priority"`
	CommunityID    *uint      `gorm:"index" json:"community_id,omitempty"`
	BuildingID     *uint      `gorm:"index" json:"building_id,omitempty"`
	HouseholdID    *uint      `json:"household_id,omitempty"`
	CreatedByID    uint       `gorm:"index" json:"created_by_id"`
	AssignedToID   *uint      `gorm:"index" json:"assigned_to_id,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	WorkflowType *WorkflowType  `gorm:"foreignKey:WorkflowTypeID" json:"workflow_type,omitempty"`
	Steps        []WorkflowStep `gorm:"foreignKey:WorkflowID" json:"steps,omitempty"`
}

// WorkflowStep 工作流步骤
type WorkflowStep struct {
	BaseModel
	WorkflowID       uint       `gorm:"index;not null" json:"workflow_id"`
	StepOrder        int        `gorm:"not null" json:"step_order"`
	Name             string     `gorm:"type:varchar(150);not null" json:"name"`
	Description      string     `gorm:"type:text" json:"description"`
	Status           string     `gorm:"type:varchar(20);not null" json:"status"`
	WorkingGroupID   *uint      `gorm:"index" json:"working_group_id,omitempty"`
	AssignedToID     *uint      `json:"assigned_to_id,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	DurationMinutes  *int       `json:"duration_minutes,omitempty"`
	WaitTimeMinutes  *int       `json:"wait_time_minutes,omitempty"`
	Notes            string     `gorm:"type:text" json:"notes,omitempty"`

	Tasks []WorkflowTask `gorm:"foreignKey:StepID" json:"tasks,omitempty"`
}

// WorkflowTask 步骤下的任务
type WorkflowTask struct {
	BaseModel
	StepID           uint       `gorm:"index;not null" json:"step_id"`
	WorkflowID       uint       `gorm:"index;not null" json:"workflow_id"`
	Name             string     `gorm:"type:varchar(150);not null" json:"name"`
	Description      string     `gorm:"type:text" json:"description"`
	Status           string     `gorm:"type:varchar(20);not null" json:"status"`
	AssignedToID     *uint      `gorm:"index" json:"assigned_to_id,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	ActualMinutes    *int       `json:"actual_minutes,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Notes            string     `gorm:"type:text" json:"notes,omitempty"`

	Logs []WorkflowTaskLog `gorm:"foreignKey:TaskID" json:"logs,omitempty"`
}

// WorkflowTaskLog records work done against a task
type WorkflowTaskLog struct {
	BaseModel
	TaskID          uint   `gorm:"index;not null" json:"task_id"`
	UserID          uint   `json:"user_id"`
	Action          string `gorm:"type:varchar(20);not null" json:"action"`
	Description     string `gorm:"type:text" json:"description"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}
