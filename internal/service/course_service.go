package service

import (
	"context"
	"errors"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/repository"
	"mentor_lms_backend/internal/util"
	"mentor_lms_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CourseService 导师维护课程目录和学生分配
type CourseService struct {
	DB          *gorm.DB
	Courses     *repository.CourseRepository
	Enrollments *repository.EnrollmentRepository
	Progress    *repository.ProgressRepository
	Users       *repository.UserRepository
}

func NewCourseService(
	db *gorm.DB,
	courses *repository.CourseRepository,
	enrollments *repository.EnrollmentRepository,
	progress *repository.ProgressRepository,
	users *repository.UserRepository,
) *CourseService {
	return &CourseService{
		DB:          db,
		Courses:     courses,
		Enrollments: enrollments,
		Progress:    progress,
		Users:       users,
	}
}

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
}

type CreateChapterRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content"`
}

// EnrolledStudent 课程下已分配的学生
type EnrolledStudent struct {
	StudentID  uint   `json:"studentId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	EnrolledAt string `json:"enrolledAt"`
}

func (s *CourseService) CreateCourse(ctx context.Context, actor Actor, req CreateCourseRequest) (*model.Course, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, util.InvalidInputError("CourseService.CreateCourse", "title is required")
	}
	course := &model.Course{
		Title:       title,
		Description: req.Description,
		MentorID:    actor.ID,
	}
	if err := s.Courses.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// ListMentorCourses 导师自己的课程，管理员返回全部课程
func (s *CourseService) ListMentorCourses(ctx context.Context, actor Actor) ([]model.Course, error) {
	return coursesVisibleTo(ctx, s.Courses, actor)
}

func coursesVisibleTo(ctx context.Context, courses *repository.CourseRepository, actor Actor) ([]model.Course, error) {
	if actor.IsAdmin() {
		return courses.ListAll(ctx)
	}
	return courses.ListByMentor(ctx, actor.ID)
}

// AddChapter 追加到课程末尾，序号为当前最大序号 +1
func (s *CourseService) AddChapter(ctx context.Context, actor Actor, courseID uint, req CreateChapterRequest) (*model.Chapter, error) {
	if _, err := s.ownedCourse(ctx, "CourseService.AddChapter", actor, courseID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, util.InvalidInputError("CourseService.AddChapter", "title is required")
	}

	chapter := &model.Chapter{
		CourseID: courseID,
		Title:    title,
		Content:  req.Content,
	}
	if err := s.Courses.AppendChapter(ctx, chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

func (s *CourseService) ListChapters(ctx context.Context, actor Actor, courseID uint) ([]model.Chapter, error) {
	if _, err := s.ownedCourse(ctx, "CourseService.ListChapters", actor, courseID); err != nil {
		return nil, err
	}
	return s.Courses.ListChapters(ctx, courseID)
}

// DeleteChapter 只允许删除末尾且没有任何完成记录的章节，章节序号保持连续，已有进度不受影响
func (s *CourseService) DeleteChapter(ctx context.Context, actor Actor, courseID, chapterID uint) error {
	const op = "CourseService.DeleteChapter"

	if _, err := s.ownedCourse(ctx, op, actor, courseID); err != nil {
		return err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courses := s.Courses.WithTx(tx)
		progress := s.Progress.WithTx(tx)

		chapter, err := courses.FindChapter(ctx, chapterID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if chapter == nil || chapter.CourseID != courseID {
			return util.NotFoundError(op, "chapter not found").
				WithDetail("courseId", courseID).
				WithDetail("chapterId", chapterID)
		}

		last, err := courses.LastChapter(ctx, courseID)
		if err != nil {
			return err
		}
		if last == nil || last.ID != chapter.ID {
			appErr := util.InvalidStateError(op, "only the last chapter can be deleted").
				WithDetail("chapterId", chapterID)
			if last != nil {
				appErr.WithDetail("lastChapterId", last.ID)
			}
			return appErr
		}

		completions, err := progress.CountByChapter(ctx, chapter.ID)
		if err != nil {
			return err
		}
		if completions > 0 {
			return util.InvalidStateError(op, "chapter already completed by students").
				WithDetail("chapterId", chapterID).
				WithDetail("completions", completions)
		}

		return courses.DeleteChapter(ctx, chapter)
	})
	if err != nil {
		return err
	}

	s.Courses.Cache.Invalidate(ctx, courseID)
	logger.Log.Info("chapter deleted", zap.Uint("courseId", courseID), zap.Uint("chapterId", chapterID))
	return nil
}

// AssignStudent 把学生分配到课程，重复分配返回已有记录
func (s *CourseService) AssignStudent(ctx context.Context, actor Actor, courseID, studentID uint) (*model.Enrollment, bool, error) {
	const op = "CourseService.AssignStudent"

	if _, err := s.ownedCourse(ctx, op, actor, courseID); err != nil {
		return nil, false, err
	}

	student, err := s.Users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, util.NotFoundError(op, "student not found").WithDetail("studentId", studentID)
		}
		return nil, false, err
	}
	if student.Role != model.Student {
		return nil, false, util.InvalidInputError(op, "user is not a student").
			WithDetail("studentId", studentID).
			WithDetail("role", student.Role)
	}

	return s.Enrollments.Create(ctx, courseID, studentID)
}

func (s *CourseService) ListEnrolledStudents(ctx context.Context, actor Actor, courseID uint) ([]EnrolledStudent, error) {
	if _, err := s.ownedCourse(ctx, "CourseService.ListEnrolledStudents", actor, courseID); err != nil {
		return nil, err
	}

	enrollments, err := s.Enrollments.ListByCourses(ctx, []uint{courseID})
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	users, err := s.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]EnrolledStudent, 0, len(enrollments))
	for _, e := range enrollments {
		u := users[e.StudentID]
		result = append(result, EnrolledStudent{
			StudentID:  e.StudentID,
			Name:       u.Name,
			Email:      u.Email,
			EnrolledAt: e.CreatedAt.Format(util.TimeFormat),
		})
	}
	return result, nil
}

// ownedCourse 课程必须存在且属于当前导师，管理员不受限制
func (s *CourseService) ownedCourse(ctx context.Context, op string, actor Actor, courseID uint) (*model.Course, error) {
	course, err := s.Courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFoundError(op, "course not found").WithDetail("courseId", courseID)
		}
		return nil, err
	}
	if course.MentorID != actor.ID && !actor.IsAdmin() {
		return nil, util.ForbiddenError(op, "course belongs to another mentor").WithDetail("courseId", courseID)
	}
	return course, nil
}
