package service

import (
	"context"
	"errors"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/repository"
	"mentor_lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// ProgressService 学生与导师查看学习进度
type ProgressService struct {
	Gate        *CompletionGate
	Courses     *repository.CourseRepository
	Enrollments *repository.EnrollmentRepository
	Progress    *repository.ProgressRepository
	Users       *repository.UserRepository
}

func NewProgressService(
	gate *CompletionGate,
	courses *repository.CourseRepository,
	enrollments *repository.EnrollmentRepository,
	progress *repository.ProgressRepository,
	users *repository.UserRepository,
) *ProgressService {
	return &ProgressService{
		Gate:        gate,
		Courses:     courses,
		Enrollments: enrollments,
		Progress:    progress,
		Users:       users,
	}
}

// CompleteChapterResponse 完成章节接口的返回
type CompleteChapterResponse struct {
	Completed            bool              `json:"completed"`
	AlreadyCompleted     bool              `json:"alreadyCompleted"`
	CourseID             uint              `json:"courseId"`
	ChapterID            uint              `json:"chapterId"`
	CompletedAt          time.Time         `json:"completedAt"`
	IsComplete           bool              `json:"isComplete"`
	CompletedChapters    int               `json:"completedChapters"`
	TotalChapters        int               `json:"totalChapters"`
	CompletionPercentage int               `json:"completionPercentage"`
	NextChapter          *model.ChapterRef `json:"nextChapter"`
}

// StudentProgress 导师视角下某个学生在某门课程上的进度
type StudentProgress struct {
	model.CompletionSnapshot
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
}

func (s *ProgressService) CompleteChapter(ctx context.Context, studentID, chapterID uint) (*CompleteChapterResponse, error) {
	res, err := s.Gate.AttemptCompleteChapter(ctx, studentID, chapterID)
	if err != nil {
		return nil, err
	}
	return &CompleteChapterResponse{
		Completed:            true,
		AlreadyCompleted:     res.AlreadyCompleted,
		CourseID:             res.Record.CourseID,
		ChapterID:            res.Record.ChapterID,
		CompletedAt:          res.Record.CompletedAt,
		IsComplete:           res.Snapshot.IsComplete,
		CompletedChapters:    res.Snapshot.CompletedChapters,
		TotalChapters:        res.Snapshot.TotalChapters,
		CompletionPercentage: res.Snapshot.CompletionPercentage,
		NextChapter:          res.Snapshot.NextChapter,
	}, nil
}

// GetStudentCourseProgress 学生在单门课程上的进度及每章状态
func (s *ProgressService) GetStudentCourseProgress(ctx context.Context, studentID, courseID uint) (*model.CompletionSnapshot, error) {
	if err := s.requireEnrollment(ctx, "ProgressService.GetStudentCourseProgress", studentID, courseID); err != nil {
		return nil, err
	}
	return s.Gate.GetCourseCompletion(ctx, studentID, courseID, true)
}

// GetStudentAllProgress 学生所有已分配课程的进度
func (s *ProgressService) GetStudentAllProgress(ctx context.Context, studentID uint) ([]model.CompletionSnapshot, error) {
	enrollments, err := s.Enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]model.CompletionSnapshot, 0, len(enrollments))
	for _, e := range enrollments {
		snapshot, err := s.Gate.GetCourseCompletion(ctx, studentID, e.CourseID, false)
		if err != nil {
			if errors.Is(err, util.ErrNotFound) {
				continue
			}
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
	}
	return snapshots, nil
}

// GetMentorStudentsProgress 导师查看自己课程下所有学生的进度；courseID 为空时返回其全部课程，管理员为所有课程
func (s *ProgressService) GetMentorStudentsProgress(ctx context.Context, actor Actor, courseID *uint) ([]StudentProgress, error) {
	const op = "ProgressService.GetMentorStudentsProgress"

	var courses []model.Course
	if courseID != nil {
		course, err := s.Courses.FindByID(ctx, *courseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.NotFoundError(op, "course not found").WithDetail("courseId", *courseID)
			}
			return nil, err
		}
		if course.MentorID != actor.ID && !actor.IsAdmin() {
			return nil, util.ForbiddenError(op, "course belongs to another mentor").WithDetail("courseId", *courseID)
		}
		courses = []model.Course{*course}
	} else {
		list, err := coursesVisibleTo(ctx, s.Courses, actor)
		if err != nil {
			return nil, err
		}
		courses = list
	}

	courseIDs := make([]uint, 0, len(courses))
	for _, c := range courses {
		courseIDs = append(courseIDs, c.ID)
	}
	enrollments, err := s.Enrollments.ListByCourses(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	studentIDs := make([]uint, 0, len(enrollments))
	byCourse := make(map[uint][]uint)
	for _, e := range enrollments {
		studentIDs = append(studentIDs, e.StudentID)
		byCourse[e.CourseID] = append(byCourse[e.CourseID], e.StudentID)
	}
	students, err := s.Users.FindByIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	result := make([]StudentProgress, 0, len(enrollments))
	for i := range courses {
		course := &courses[i]
		if len(byCourse[course.ID]) == 0 {
			continue
		}

		chapters, err := s.Courses.ListChapters(ctx, course.ID)
		if err != nil {
			return nil, err
		}
		completions, err := s.Progress.CompletionsByCourse(ctx, course.ID)
		if err != nil {
			return nil, err
		}

		for _, studentID := range byCourse[course.ID] {
			student := students[studentID]
			result = append(result, StudentProgress{
				CompletionSnapshot: BuildSnapshot(studentID, course, chapters, completions[studentID], false),
				StudentName:        student.Name,
				StudentEmail:       student.Email,
			})
		}
	}
	return result, nil
}

// GetChapterStates 学生视角的章节列表及锁定状态
func (s *ProgressService) GetChapterStates(ctx context.Context, studentID, courseID uint) ([]model.ChapterStatus, error) {
	snapshot, err := s.GetStudentCourseProgress(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if snapshot.Chapters == nil {
		return []model.ChapterStatus{}, nil
	}
	return snapshot.Chapters, nil
}

func (s *ProgressService) requireEnrollment(ctx context.Context, op string, studentID, courseID uint) error {
	if _, err := s.Courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.NotFoundError(op, "course not found").WithDetail("courseId", courseID)
		}
		return err
	}
	enrolled, err := s.Enrollments.Exists(ctx, courseID, studentID)
	if err != nil {
		return err
	}
	if !enrolled {
		return util.ForbiddenError(op, "not assigned to this course").WithDetail("courseId", courseID)
	}
	return nil
}
