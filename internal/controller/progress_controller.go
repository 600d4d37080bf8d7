package controller

import (
	"mentor_lms_backend/internal/service"
	"mentor_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// CompleteChapter godoc
// @Summary 完成章节
// @Description 前一章节完成后才能完成当前章节，重复提交视为成功
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param chapterId path int true "章节ID"
// @Success 200 {object} util.Response{data=service.CompleteChapterResponse}
// @Failure 403 {object} util.Response "未分配该课程"
// @Failure 404 {object} util.Response "章节不存在"
// @Failure 409 {object} util.Response "前一章节未完成"
// @Router /student/chapters/{chapterId}/complete [post]
func (c *ProgressController) CompleteChapter(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	chapterID, ok := pathID(ctx, "chapterId")
	if !ok {
		return
	}

	res, err := c.ProgressService.CompleteChapter(ctx.Request.Context(), actor.ID, chapterID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, res)
}

// GetCourseProgress godoc
// @Summary 课程学习进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=model.CompletionSnapshot}
// @Failure 403 {object} util.Response "未分配该课程"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /student/progress/{courseId} [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}

	snapshot, err := c.ProgressService.GetStudentCourseProgress(ctx.Request.Context(), actor.ID, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, snapshot)
}

// GetAllProgress godoc
// @Summary 所有课程学习进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.CompletionSnapshot}
// @Router /student/progress [get]
func (c *ProgressController) GetAllProgress(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	snapshots, err := c.ProgressService.GetStudentAllProgress(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, snapshots)
}

// GetChapterStates godoc
// @Summary 章节列表及解锁状态
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.ChapterStatus}
// @Router /student/courses/{courseId}/chapters [get]
func (c *ProgressController) GetChapterStates(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}

	states, err := c.ProgressService.GetChapterStates(ctx.Request.Context(), actor.ID, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, states)
}

// GetMentorStudentsProgress godoc
// @Summary 导师查看学生进度
// @Description 不传 courseId 时返回导师全部课程
// @Tags 导师
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId query int false "课程ID"
// @Success 200 {object} util.Response{data=[]service.StudentProgress}
// @Failure 403 {object} util.Response "非本人课程"
// @Router /mentor/progress [get]
func (c *ProgressController) GetMentorStudentsProgress(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var courseID *uint
	if raw := ctx.Query("courseId"); raw != "" {
		id := util.MustParseUint(raw)
		if id == 0 {
			util.BadRequest(ctx, "invalid courseId")
			return
		}
		courseID = &id
	}

	list, err := c.ProgressService.GetMentorStudentsProgress(ctx.Request.Context(), actor, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, list)
}
