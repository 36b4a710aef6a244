package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub-http-service/internal/domain/models"
	"estatehub-http-service/internal/domain/workflow"
)

type workflowFixture struct {
	*env
	svc       *WorkflowService
	clock     time.Time
	root      models.User
	manager   models.User
	crew      models.User
	stranger  models.User
	community models.Community
	group     models.WorkingGroup
	wfType    *models.WorkflowType
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	e := newEnv(t)
	f := &workflowFixture{env: e, clock: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	f.svc = NewWorkflowService(e.db, e.cfg, e.perms, e.notify).(*WorkflowService)
	f.svc.now = func() time.Time { return f.clock }

	f.root = e.admin("root")
	f.manager = e.user("manager")
	f.crew = e.user("crew")
	f.stranger = e.user("stranger")
	f.community = e.community("c1")
	e.communityMember(f.community.ID, f.manager.ID, models.CommunityRoleManager)
	f.group = e.group(f.community.ID, models.WorkingGroupMaintenance, f.crew.ID)

	var err error
	f.wfType, err = f.svc.CreateType(f.root.ID, &WorkflowTypeRequest{Name: "Move-in"})
	require.NoError(t, err)
	return f
}

func (f *workflowFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func TestWorkflowTypes(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.CreateType(f.manager.ID, &WorkflowTypeRequest{Name: "Renovation"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateType(f.root.ID, &WorkflowTypeRequest{Name: "Move-in"})
	assert.ErrorIs(t, err, ErrWorkflowTypeAlreadyExist)

	inactive := false
	_, err = f.svc.CreateType(f.root.ID, &WorkflowTypeRequest{Name: "Archive", IsActive: &inactive})
	require.NoError(t, err)

	active, err := f.svc.ListTypes(true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	all, err := f.svc.ListTypes(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.CreateTemplate(f.root.ID, &WorkflowTemplateRequest{WorkflowTypeID: f.wfType.ID, Name: "Standard"})
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.DeleteType(f.root.ID, f.wfType.ID), ErrInvalidParam)
}

func TestTemplateScopesAndSteps(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.CreateTemplate(f.manager.ID, &WorkflowTemplateRequest{WorkflowTypeID: f.wfType.ID, Name: "Global"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CreateTemplate(f.root.ID, &WorkflowTemplateRequest{WorkflowTypeID: f.wfType.ID, Name: "Global"})
	require.NoError(t, err)

	tpl, err := f.svc.CreateTemplate(f.manager.ID, &WorkflowTemplateRequest{
		WorkflowTypeID: f.wfType.ID,
		Name:           "Community move-in",
		CommunityID:    &f.community.ID,
		Steps:          []StepRequest{{Name: "Inspect"}, {Name: "Hand over keys"}},
	})
	require.NoError(t, err)
	require.Len(t, tpl.Steps, 2)
	assert.Equal(t, 2, tpl.Steps[1].StepOrder)

	_, err = f.svc.ReplaceTemplateSteps(f.manager.ID, tpl.ID, []StepRequest{{Name: "ok"}, {Name: " "}})
	assert.ErrorIs(t, err, ErrInvalidParam)

	tpl, err = f.svc.ReplaceTemplateSteps(f.manager.ID, tpl.ID, []StepRequest{{Name: "Clean"}, {Name: "Inspect"}, {Name: "Keys"}})
	require.NoError(t, err)
	got, err := f.svc.GetTemplate(f.manager.ID, tpl.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, "Clean", got.Steps[0].Name)
	assert.Equal(t, 3, got.Steps[2].StepOrder)

	visible, err := f.svc.ListTemplates(f.stranger.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	visible, err = f.svc.ListTemplates(f.manager.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	_, err = f.svc.GetTemplate(f.stranger.ID, tpl.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestWorkflowExecution(t *testing.T) {
	f := newWorkflowFixture(t)
	tpl, err := f.svc.CreateTemplate(f.manager.ID, &WorkflowTemplateRequest{
		WorkflowTypeID: f.wfType.ID,
		Name:           "Move-in",
		CommunityID:    &f.community.ID,
		Steps: []StepRequest{
			{Name: "Inspect", WorkingGroupID: &f.group.ID},
			{Name: "Repair", WorkingGroupID: &f.group.ID},
			{Name: "Keys"},
		},
	})
	require.NoError(t, err)

	_, err = f.svc.CreateWorkflow(f.stranger.ID, &WorkflowRequest{WorkflowTypeID: f.wfType.ID, Name: "x", CommunityID: &f.community.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	wf, err := f.svc.CreateWorkflow(f.manager.ID, &WorkflowRequest{
		WorkflowTypeID: f.wfType.ID,
		TemplateID:     &tpl.ID,
		Name:           "Flat 12 move-in",
		CommunityID:    &f.community.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusPending), wf.Status)
	require.Len(t, wf.Steps, 3)
	step1, step2, step3 := wf.Steps[0], wf.Steps[1], wf.Steps[2]

	// 工作组成员通过步骤看到工作流
	_, err = f.svc.GetWorkflow(f.crew.ID, wf.ID)
	require.NoError(t, err)
	list, _, err := f.svc.ListWorkflows(f.crew.ID, WorkflowFilter{}, models.PaginationQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = f.svc.GetWorkflow(f.stranger.ID, wf.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	task, err := f.svc.CreateTask(f.crew.ID, wf.ID, step1.ID, &TaskRequest{Name: "Check windows"})
	require.NoError(t, err)
	_, err = f.svc.CreateTask(f.stranger.ID, wf.ID, step1.ID, &TaskRequest{Name: "nope"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CompleteTask(f.crew.ID, wf.ID, task.ID, &TaskCompleteRequest{})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	task, err = f.svc.StartTask(f.crew.ID, wf.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, task.AssignedToID)
	assert.Equal(t, f.crew.ID, *task.AssignedToID)

	got, err := f.svc.GetWorkflow(f.manager.ID, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusInProgress), got.Status)
	assert.Equal(t, string(workflow.StatusInProgress), got.Steps[0].Status)
	assert.Nil(t, got.Steps[0].WaitTimeMinutes)

	f.advance(25 * time.Minute)
	task, err = f.svc.CompleteTask(f.crew.ID, wf.ID, task.ID, &TaskCompleteRequest{WorkDone: "All sealed"})
	require.NoError(t, err)
	require.NotNil(t, task.ActualMinutes)
	assert.Equal(t, 25, *task.ActualMinutes)

	logs, err := f.svc.ListTaskLogs(f.manager.ID, wf.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.TaskLogComplete, logs[0].Action)
	assert.Equal(t, "All sealed", logs[0].Description)
	assert.Equal(t, models.TaskLogStart, logs[1].Action)

	_, err = f.svc.UpdateWorkflow(f.manager.ID, wf.ID, &WorkflowUpdateRequest{Status: string(workflow.StatusPending)})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	f.advance(5 * time.Minute)
	done, err := f.svc.UpdateStep(f.crew.ID, wf.ID, step1.ID, &StepUpdateRequest{Status: string(workflow.StatusCompleted)})
	require.NoError(t, err)
	require.NotNil(t, done.DurationMinutes)
	assert.Equal(t, 30, *done.DurationMinutes)

	f.advance(10 * time.Minute)
	started, err := f.svc.UpdateStep(f.crew.ID, wf.ID, step2.ID, &StepUpdateRequest{Status: string(workflow.StatusInProgress)})
	require.NoError(t, err)
	require.NotNil(t, started.WaitTimeMinutes)
	assert.Equal(t, 10, *started.WaitTimeMinutes)

	_, err = f.svc.UpdateStep(f.crew.ID, wf.ID, step2.ID, &StepUpdateRequest{Status: string(workflow.StatusPending)})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	_, err = f.svc.UpdateStep(f.crew.ID, wf.ID, step2.ID, &StepUpdateRequest{Status: string(workflow.StatusCancelled)})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	// Keys 步骤没有工作组，工作组成员无权修改
	_, err = f.svc.UpdateStep(f.crew.ID, wf.ID, step3.ID, &StepUpdateRequest{Status: string(workflow.StatusCompleted)})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateStep(f.crew.ID, wf.ID, step2.ID, &StepUpdateRequest{Status: string(workflow.StatusCompleted)})
	require.NoError(t, err)
	_, err = f.svc.UpdateStep(f.manager.ID, wf.ID, step3.ID, &StepUpdateRequest{Status: string(workflow.StatusCompleted)})
	require.NoError(t, err)

	got, err = f.svc.GetWorkflow(f.manager.ID, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusCompleted), got.Status)
	assert.NotNil(t, got.CompletedAt)

	_, err = f.svc.AddStep(f.manager.ID, wf.ID, &StepRequest{Name: "Late"})
	assert.ErrorIs(t, err, workflow.ErrWorkflowClosed)
	_, err = f.svc.CancelWorkflow(f.manager.ID, wf.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestAddStepAndCancelWorkflow(t *testing.T) {
	f := newWorkflowFixture(t)
	wf, err := f.svc.CreateWorkflow(f.crew.ID, &WorkflowRequest{
		WorkflowTypeID: f.wfType.ID,
		Name:           "Personal",
		AssignedToID:   &f.manager.ID,
		Steps:          []StepRequest{{Name: "One"}},
	})
	require.NoError(t, err)
	assert.Len(t, f.notificationsFor(f.manager.ID), 1)

	step, err := f.svc.AddStep(f.crew.ID, wf.ID, &StepRequest{Name: "Two"})
	require.NoError(t, err)
	assert.Equal(t, 2, step.StepOrder)

	steps, err := f.svc.ListSteps(f.crew.ID, wf.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	cancelled, err := f.svc.CancelWorkflow(f.crew.ID, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusCancelled), cancelled.Status)

	_, err = f.svc.CreateTask(f.crew.ID, wf.ID, step.ID, &TaskRequest{Name: "late"})
	assert.ErrorIs(t, err, workflow.ErrWorkflowClosed)
	_, err = f.svc.UpdateWorkflow(f.crew.ID, wf.ID, &WorkflowUpdateRequest{Priority: models.PriorityHigh})
	assert.ErrorIs(t, err, workflow.ErrWorkflowClosed)
}

func TestStepWaitUsesImmediatePredecessor(t *testing.T) {
	f := newWorkflowFixture(t)
	wf, err := f.svc.CreateWorkflow(f.manager.ID, &WorkflowRequest{
		WorkflowTypeID: f.wfType.ID,
		Name:           "Boiler swap",
		CommunityID:    &f.community.ID,
		Steps:          []StepRequest{{Name: "Order"}, {Name: "Deliver"}, {Name: "Install"}},
	})
	require.NoError(t, err)
	require.Len(t, wf.Steps, 3)

	_, err = f.svc.UpdateStep(f.manager.ID, wf.ID, wf.Steps[0].ID, &StepUpdateRequest{Status: string(workflow.StatusCompleted)})
	require.NoError(t, err)

	f.advance(42 * time.Minute)
	started, err := f.svc.UpdateStep(f.manager.ID, wf.ID, wf.Steps[2].ID, &StepUpdateRequest{Status: string(workflow.StatusInProgress)})
	require.NoError(t, err)
	assert.Nil(t, started.WaitTimeMinutes, "step 2 has not completed")

	f.advance(3 * time.Minute)
	_, err = f.svc.UpdateStep(f.manager.ID, wf.ID, wf.Steps[1].ID, &StepUpdateRequest{Status: string(workflow.StatusInProgress)})
	require.NoError(t, err)
	steps, err := f.svc.ListSteps(f.manager.ID, wf.ID)
	require.NoError(t, err)
	require.NotNil(t, steps[1].WaitTimeMinutes)
	assert.Equal(t, 45, *steps[1].WaitTimeMinutes)
}

func TestDeleteUnusedType(t *testing.T) {
	f := newWorkflowFixture(t)
	spare, err := f.svc.CreateType(f.root.ID, &WorkflowTypeRequest{Name: "Spare"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteType(f.manager.ID, spare.ID), ErrForbidden)
	require.NoError(t, f.svc.DeleteType(f.root.ID, spare.ID))
	_, err = f.svc.GetType(spare.ID)
	assert.ErrorIs(t, err, ErrWorkflowTypeNotFound)
}
