package controller

import (
	"mentor_lms_backend/internal/service"
	"mentor_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CourseController 导师课程目录与学生分配
type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 导师
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param body body service.CreateCourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /mentor/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(ctx.Request.Context(), actor, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, course)
}

// ListCourses godoc
// @Summary 我的课程
// @Tags 导师
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /mentor/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	courses, err := c.CourseService.ListMentorCourses(ctx.Request.Context(), actor)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, courses)
}

// AddChapter godoc
// @Summary 追加章节
// @Description 新章节排在课程末尾
// @Tags 导师
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param body body service.CreateChapterRequest true "章节信息"
// @Success 201 {object} util.Response{data=model.Chapter}
// @Router /mentor/courses/{courseId}/chapters [post]
func (c *CourseController) AddChapter(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}

	var req service.CreateChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	chapter, err := c.CourseService.AddChapter(ctx.Request.Context(), actor, courseID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, chapter)
}

// ListChapters godoc
// @Summary 课程章节
// @Tags 导师
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Chapter}
// @Router /mentor/courses/{courseId}/chapters [get]
func (c *CourseController) ListChapters(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}

	chapters, err := c.CourseService.ListChapters(ctx.Request.Context(), actor, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, chapters)
}

// DeleteChapter godoc
// @Summary 删除末尾章节
// @Description 只能删除最后一个且无人完成的章节
// @Tags 导师
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param chapterId path int true "章节ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "不是末尾章节或已有完成记录"
// @Router /mentor/courses/{courseId}/chapters/{chapterId} [delete]
func (c *CourseController) DeleteChapter(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}
	chapterID, ok := pathID(ctx, "chapterId")
	if !ok {
		return
	}

	if err := c.CourseService.DeleteChapter(ctx.Request.Context(), actor, courseID, chapterID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"deleted": chapterID})
}

// AssignStudentRequest 分配学生
type AssignStudentRequest struct {
	StudentID uint `json:"studentId" binding:"required"`
}

// AssignStudent godoc
// @Summary 分配学生到课程
// @Tags 导师
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param body body AssignStudentRequest true "学生"
// @Success 200 {object} util.Response{data=model.Enrollment} "已分配"
// @Success 201 {object} util.Response{data=model.Enrollment} "新分配"
// @Router /mentor/courses/{courseId}/enrollments [post]
func (c *CourseController) AssignStudent(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}

	var req AssignStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	enrollment, created, err := c.CourseService.AssignStudent(ctx.Request.Context(), actor, courseID, req.StudentID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	if created {
		util.Created(ctx, enrollment)
		return
	}
	util.Success(ctx, enrollment)
}

// ListEnrollments godoc
// @Summary 课程学生列表
// @Tags 导师
// @Produce  json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=[]service.EnrolledStudent}
// @Router /mentor/courses/{courseId}/enrollments [get]
func (c *CourseController) ListEnrollments(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}

	students, err := c.CourseService.ListEnrolledStudents(ctx.Request.Context(), actor, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, students)
}
