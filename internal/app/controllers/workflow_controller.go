package controllers

import (
	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/domain/services/container"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// WorkflowController 工作流控制器，包括类型、模板、步骤与任务
type WorkflowController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewWorkflowController 创建工作流控制器
func NewWorkflowController(ctx *gin.Context, container *container.ServiceContainer) *WorkflowController {
	return &WorkflowController{Ctx: ctx, Container: container}
}

// TemplateStepsRequest 替换模板步骤
type TemplateStepsRequest struct {
	Steps []services.StepRequest `json:"steps" binding:"required"`
}

// HandleWorkflowFunc 返回一个处理工作流请求的Gin处理函数
func HandleWorkflowFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewWorkflowController(ctx, container)

		switch method {
		case "getTypes":
			controller.GetTypes()
		case "createType":
			controller.CreateType()
		case "getType":
			controller.GetType()
		case "updateType":
			controller.UpdateType()
		case "deleteType":
			controller.DeleteType()
		case "getTemplates":
			controller.GetTemplates()
		case "createTemplate":
			controller.CreateTemplate()
		case "getTemplate":
			controller.GetTemplate()
		case "updateTemplate":
			controller.UpdateTemplate()
		case "deleteTemplate":
			controller.DeleteTemplate()
		case "replaceTemplateSteps":
			controller.ReplaceTemplateSteps()
		case "getWorkflows":
			controller.GetWorkflows()
		case "createWorkflow":
			controller.CreateWorkflow()
		case "getWorkflow":
			controller.GetWorkflow()
		case "updateWorkflow":
			controller.UpdateWorkflow()
		case "cancelWorkflow":
			controller.CancelWorkflow()
		case "getSteps":
			controller.GetSteps()
		case "addStep":
			controller.AddStep()
		case "updateStep":
			controller.UpdateStep()
		case "getTasks":
			controller.GetTasks()
		case "createTask":
			controller.CreateTask()
		case "getTask":
			controller.GetTask()
		case "updateTask":
			controller.UpdateTask()
		case "startTask":
			controller.StartTask()
		case "completeTask":
			controller.CompleteTask()
		case "addTaskLog":
			controller.AddTaskLog()
		case "getTaskLogs":
			controller.GetTaskLogs()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *WorkflowController) service() services.InterfaceWorkflowService {
	return c.Container.GetService("workflow").(services.InterfaceWorkflowService)
}

// ids 读取路径中的多个ID，任一无效即返回 false
func (c *WorkflowController) ids(names ...string) ([]uint, bool) {
	out := make([]uint, 0, len(names))
	for _, name := range names {
		id, ok := paramID(c.Ctx, name)
		if !ok {
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

func (c *WorkflowController) reply(data interface{}, err error) {
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, data)
}

func (c *WorkflowController) created(data interface{}, err error) {
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	response.Created(c.Ctx, data)
}

// 1. GetTypes 工作流类型列表
// @Summary      List workflow types
// @Tags         Workflow
// @Security     BearerAuth
// @Param        active query bool false "仅启用"
// @Success      200  {array}  models.WorkflowType
// @Router       /workflow-types [get]
func (c *WorkflowController) GetTypes() {
	c.reply(c.service().ListTypes(queryBool(c.Ctx, "active")))
}

// 2. CreateType 创建工作流类型（超级管理员）
// @Summary      Create workflow type
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        request body services.WorkflowTypeRequest true "类型"
// @Success      201  {object}  models.WorkflowType
// @Router       /workflow-types [post]
func (c *WorkflowController) CreateType() {
	var req services.WorkflowTypeRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.created(c.service().CreateType(actor(c.Ctx), &req))
}

// 3. GetType 工作流类型详情
// @Summary      Get workflow type
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "类型ID"
// @Success      200  {object}  models.WorkflowType
// @Router       /workflow-types/{id} [get]
func (c *WorkflowController) GetType() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	c.reply(c.service().GetType(id))
}

// 4. UpdateType 更新工作流类型
// @Summary      Update workflow type
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "类型ID"
// @Param        request body services.WorkflowTypeRequest true "类型"
// @Success      200  {object}  models.WorkflowType
// @Router       /workflow-types/{id} [put]
func (c *WorkflowController) UpdateType() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.WorkflowTypeRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.reply(c.service().UpdateType(actor(c.Ctx), id, &req))
}

// 5. DeleteType 删除工作流类型
// @Summary      Delete workflow type
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "类型ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /workflow-types/{id} [delete]
func (c *WorkflowController) DeleteType() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	c.reply(nil, c.service().DeleteType(actor(c.Ctx), id))
}

// 6. GetTemplates 模板列表
// @Summary      List workflow templates
// @Tags         Workflow
// @Security     BearerAuth
// @Param        workflow_type_id query int false "类型ID"
// @Param        community_id query int false "社区ID"
// @Success      200  {array}  models.WorkflowTemplate
// @Router       /workflow-templates [get]
func (c *WorkflowController) GetTemplates() {
	c.reply(c.service().ListTemplates(actor(c.Ctx), queryUint(c.Ctx, "workflow_type_id"), queryUint(c.Ctx, "community_id")))
}

// 7. CreateTemplate 创建模板
// @Summary      Create workflow template
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        request body services.WorkflowTemplateRequest true "模板"
// @Success      201  {object}  models.WorkflowTemplate
// @Router       /workflow-templates [post]
func (c *WorkflowController) CreateTemplate() {
	var req services.WorkflowTemplateRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.created(c.service().CreateTemplate(actor(c.Ctx), &req))
}

// 8. GetTemplate 模板详情
// @Summary      Get workflow template
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "模板ID"
// @Success      200  {object}  models.WorkflowTemplate
// @Router       /workflow-templates/{id} [get]
func (c *WorkflowController) GetTemplate() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	c.reply(c.service().GetTemplate(actor(c.Ctx), id))
}

// 9. UpdateTemplate 更新模板
// @Summary      Update workflow template
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "模板ID"
// @Param        request body services.WorkflowTemplateRequest true "模板"
// @Success      200  {object}  models.WorkflowTemplate
// @Router       /workflow-templates/{id} [put]
func (c *WorkflowController) UpdateTemplate() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.WorkflowTemplateRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.reply(c.service().UpdateTemplate(actor(c.Ctx), id, &req))
}

// 10. DeleteTemplate 删除模板
// @Summary      Delete workflow template
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "模板ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /workflow-templates/{id} [delete]
func (c *WorkflowController) DeleteTemplate() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	c.reply(nil, c.service().DeleteTemplate(actor(c.Ctx), id))
}

// 11. ReplaceTemplateSteps 替换模板的有序步骤
// @Summary      Replace template steps
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "模板ID"
// @Param        request body TemplateStepsRequest true "步骤"
// @Success      200  {object}  models.WorkflowTemplate
// @Router       /workflow-templates/{id}/steps [put]
func (c *WorkflowController) ReplaceTemplateSteps() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req TemplateStepsRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.reply(c.service().ReplaceTemplateSteps(actor(c.Ctx), id, req.Steps))
}

// 12. GetWorkflows 可见的工作流
// @Summary      List workflows
// @Tags         Workflow
// @Security     BearerAuth
// @Param        community_id query int false "社区ID"
// @Param        building_id query int false "楼栋ID"
// @Param        status query string false "状态"
// @Param        workflow_type_id query int false "类型ID"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /workflows [get]
func (c *WorkflowController) GetWorkflows() {
	filter := services.WorkflowFilter{
		CommunityID:    queryUint(c.Ctx, "community_id"),
		BuildingID:     queryUint(c.Ctx, "building_id"),
		Status:         c.Ctx.Query("status"),
		WorkflowTypeID: queryUint(c.Ctx, "workflow_type_id"),
	}
	list, result, err := c.service().ListWorkflows(actor(c.Ctx), filter, pagination(c.Ctx))
	if err != nil {
		handleError(c.Ctx, err)
		return
	}
	paginated(c.Ctx, list, result)
}

// 13. CreateWorkflow 创建工作流，未提供步骤时从模板复制
// @Summary      Create workflow
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        request body services.WorkflowRequest true "工作流"
// @Success      201  {object}  models.Workflow
// @Router       /workflows [post]
func (c *WorkflowController) CreateWorkflow() {
	var req services.WorkflowRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.created(c.service().CreateWorkflow(actor(c.Ctx), &req))
}

// 14. GetWorkflow 工作流详情
// @Summary      Get workflow
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Success      200  {object}  models.Workflow
// @Router       /workflows/{id} [get]
func (c *WorkflowController) GetWorkflow() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	c.reply(c.service().GetWorkflow(actor(c.Ctx), id))
}

// 15. UpdateWorkflow 更新工作流
// @Summary      Update workflow
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        request body services.WorkflowUpdateRequest true "更新"
// @Success      200  {object}  models.Workflow
// @Failure      400  {object}  ErrorResponse "非法状态变更"
// @Router       /workflows/{id} [put]
func (c *WorkflowController) UpdateWorkflow() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.WorkflowUpdateRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.reply(c.service().UpdateWorkflow(actor(c.Ctx), id, &req))
}

// 16. CancelWorkflow 取消工作流
// @Summary      Cancel workflow
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Success      200  {object}  models.Workflow
// @Router       /workflows/{id} [delete]
func (c *WorkflowController) CancelWorkflow() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	c.reply(c.service().CancelWorkflow(actor(c.Ctx), id))
}

// 17. GetSteps 工作流步骤
// @Summary      List workflow steps
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Success      200  {array}  models.WorkflowStep
// @Router       /workflows/{id}/steps [get]
func (c *WorkflowController) GetSteps() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	c.reply(c.service().ListSteps(actor(c.Ctx), id))
}

// 18. AddStep 追加步骤
// @Summary      Add workflow step
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        request body services.StepRequest true "步骤"
// @Success      201  {object}  models.WorkflowStep
// @Router       /workflows/{id}/steps [post]
func (c *WorkflowController) AddStep() {
	id, ok := paramID(c.Ctx, "id")
	if !ok {
		return
	}
	var req services.StepRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.created(c.service().AddStep(actor(c.Ctx), id, &req))
}

// 19. UpdateStep 更新步骤，状态只能前进
// @Summary      Update workflow step
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        stepId path int true "步骤ID"
// @Param        request body services.StepUpdateRequest true "更新"
// @Success      200  {object}  models.WorkflowStep
// @Router       /workflows/{id}/steps/{stepId} [put]
func (c *WorkflowController) UpdateStep() {
	ids, ok := c.ids("id", "stepId")
	if !ok {
		return
	}
	var req services.StepUpdateRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.reply(c.service().UpdateStep(actor(c.Ctx), ids[0], ids[1], &req))
}

// 20. GetTasks 步骤下的任务
// @Summary      List step tasks
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        stepId path int true "步骤ID"
// @Success      200  {array}  models.WorkflowTask
// @Router       /workflows/{id}/steps/{stepId}/tasks [get]
func (c *WorkflowController) GetTasks() {
	ids, ok := c.ids("id", "stepId")
	if !ok {
		return
	}
	c.reply(c.service().ListTasks(actor(c.Ctx), ids[0], ids[1]))
}

// 21. CreateTask 创建任务
// @Summary      Create step task
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        stepId path int true "步骤ID"
// @Param        request body services.TaskRequest true "任务"
// @Success      201  {object}  models.WorkflowTask
// @Router       /workflows/{id}/steps/{stepId}/tasks [post]
func (c *WorkflowController) CreateTask() {
	ids, ok := c.ids("id", "stepId")
	if !ok {
		return
	}
	var req services.TaskRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.created(c.service().CreateTask(actor(c.Ctx), ids[0], ids[1], &req))
}

// 22. GetTask 任务详情
// @Summary      Get task
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        taskId path int true "任务ID"
// @Success      200  {object}  models.WorkflowTask
// @Router       /workflows/{id}/tasks/{taskId} [get]
func (c *WorkflowController) GetTask() {
	ids, ok := c.ids("id", "taskId")
	if !ok {
		return
	}
	c.reply(c.service().GetTask(actor(c.Ctx), ids[0], ids[1]))
}

// 23. UpdateTask 更新任务
// @Summary      Update task
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        taskId path int true "任务ID"
// @Param        request body services.TaskUpdateRequest true "更新"
// @Success      200  {object}  models.WorkflowTask
// @Router       /workflows/{id}/tasks/{taskId} [put]
func (c *WorkflowController) UpdateTask() {
	ids, ok := c.ids("id", "taskId")
	if !ok {
		return
	}
	var req services.TaskUpdateRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.reply(c.service().UpdateTask(actor(c.Ctx), ids[0], ids[1], &req))
}

// 24. StartTask 开始任务
// @Summary      Start task
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        taskId path int true "任务ID"
// @Success      200  {object}  models.WorkflowTask
// @Router       /workflows/{id}/tasks/{taskId}/start [post]
func (c *WorkflowController) StartTask() {
	ids, ok := c.ids("id", "taskId")
	if !ok {
		return
	}
	c.reply(c.service().StartTask(actor(c.Ctx), ids[0], ids[1]))
}

// 25. CompleteTask 完成任务，必须处于进行中
// @Summary      Complete task
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        taskId path int true "任务ID"
// @Param        request body services.TaskCompleteRequest false "完成说明"
// @Success      200  {object}  models.WorkflowTask
// @Router       /workflows/{id}/tasks/{taskId}/complete [post]
func (c *WorkflowController) CompleteTask() {
	ids, ok := c.ids("id", "taskId")
	if !ok {
		return
	}
	var req services.TaskCompleteRequest
	if c.Ctx.Request.ContentLength > 0 && !bindJSON(c.Ctx, &req) {
		return
	}
	c.reply(c.service().CompleteTask(actor(c.Ctx), ids[0], ids[1], &req))
}

// 26. AddTaskLog 记录任务工作日志
// @Summary      Add task log
// @Tags         Workflow
// @Accept       json
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        taskId path int true "任务ID"
// @Param        request body services.TaskLogRequest true "日志"
// @Success      201  {object}  models.WorkflowTaskLog
// @Router       /workflows/{id}/tasks/{taskId}/log [post]
func (c *WorkflowController) AddTaskLog() {
	ids, ok := c.ids("id", "taskId")
	if !ok {
		return
	}
	var req services.TaskLogRequest
	if !bindJSON(c.Ctx, &req) {
		return
	}
	c.created(c.service().AddTaskLog(actor(c.Ctx), ids[0], ids[1], &req))
}

// 27. GetTaskLogs 任务工作日志
// @Summary      List task logs
// @Tags         Workflow
// @Security     BearerAuth
// @Param        id path int true "工作流ID"
// @Param        taskId path int true "任务ID"
// @Success      200  {array}  models.WorkflowTaskLog
// @Router       /workflows/{id}/tasks/{taskId}/logs [get]
func (c *WorkflowController) GetTaskLogs() {
	ids, ok := c.ids("id", "taskId")
	if !ok {
		return
	}
	c.reply(c.service().ListTaskLogs(actor(c.Ctx), ids[0], ids[1]))
}
