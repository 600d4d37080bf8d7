package service

import (
	"context"
	"errors"
	"math"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/repository"
	"mentor_lms_backend/internal/util"
	"mentor_lms_backend/pkg/logger"
	"mentor_lms_backend/pkg/monitoring"
	"mentor_lms_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompletionGate 章节顺序解锁与课程完成度计算。
// 解锁状态不落库，完全由完成记录和章节顺序推导。
type CompletionGate struct {
	DB          *gorm.DB
	Courses     *repository.CourseRepository
	Enrollments *repository.EnrollmentRepository
	Progress    *repository.ProgressRepository
}

func NewCompletionGate(
	db *gorm.DB,
	courses *repository.CourseRepository,
	enrollments *repository.EnrollmentRepository,
	progress *repository.ProgressRepository,
) *CompletionGate {
	return &CompletionGate{
		DB:          db,
		Courses:     courses,
		Enrollments: enrollments,
		Progress:    progress,
	}
}

// ChapterCompletion 完成章节的结果：写入的记录以及最新的课程完成度
type ChapterCompletion struct {
	Record           *model.ProgressRecord     `json:"record"`
	AlreadyCompleted bool                      `json:"alreadyCompleted"`
	Snapshot         *model.CompletionSnapshot `json:"snapshot"`
}

// AttemptCompleteChapter 校验并记录章节完成。
// 前置章节检查与写入在同一事务内完成，(student_id, chapter_id) 唯一索引兜底并发重复提交。
func (g *CompletionGate) AttemptCompleteChapter(ctx context.Context, studentID, chapterID uint) (result *ChapterCompletion, err error) {
	ctx, span := tracing.Start(ctx, "CompletionGate.AttemptCompleteChapter",
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("chapter.id", int64(chapterID)),
	)
	defer func() { tracing.End(span, err) }()

	err = g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courses := g.Courses.WithTx(tx)
		enrollments := g.Enrollments.WithTx(tx)
		progress := g.Progress.WithTx(tx)

		chapter, err := courses.FindChapter(ctx, chapterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NotFoundError("CompletionGate.AttemptCompleteChapter", "chapter not found").
					WithDetail("chapterId", chapterID)
			}
			return err
		}

		enrolled, err := enrollments.Exists(ctx, chapter.CourseID, studentID)
		if err != nil {
			return err
		}
		if !enrolled {
			return util.ForbiddenError("CompletionGate.AttemptCompleteChapter", "not assigned to this course").
				WithDetail("courseId", chapter.CourseID)
		}

		existing, err := progress.Find(ctx, studentID, chapter.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			prev, err := courses.PreviousChapter(ctx, chapter)
			if err != nil {
				return err
			}
			if prev != nil {
				done, err := progress.Find(ctx, studentID, prev.ID)
				if err != nil {
					return err
				}
				if done == nil {
					return util.InvalidStateError("CompletionGate.AttemptCompleteChapter", "previous chapter not completed").
						WithDetail("chapterId", chapter.ID).
						WithDetail("requiredChapterId", prev.ID).
						WithDetail("requiredChapterTitle", prev.Title).
						WithDetail("requiredSequenceOrder", prev.SequenceOrder)
				}
			}
		}

		record, err := progress.RecordCompletion(ctx, studentID, chapter.ID)
		if err != nil {
			return err
		}

		course, err := courses.FindByID(ctx, chapter.CourseID)
		if err != nil {
			return err
		}
		snapshot, err := g.snapshot(ctx, courses, progress, course, studentID, false)
		if err != nil {
			return err
		}

		result = &ChapterCompletion{
			Record:           record,
			AlreadyCompleted: existing != nil,
			Snapshot:         snapshot,
		}
		return nil
	})

	g.observe(studentID, chapterID, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (g *CompletionGate) observe(studentID, chapterID uint, result *ChapterCompletion, err error) {
	switch {
	case err == nil && result.AlreadyCompleted:
		monitoring.ChapterCompletions.WithLabelValues("already_completed").Inc()
	case err == nil:
		monitoring.ChapterCompletions.WithLabelValues("completed").Inc()
		logger.Log.Debug("chapter completed",
			zap.Uint("studentId", studentID),
			zap.Uint("chapterId", chapterID),
			zap.Int("completed", result.Snapshot.CompletedChapters),
			zap.Int("total", result.Snapshot.TotalChapters),
		)
	case errors.Is(err, util.ErrNotFound):
		monitoring.ChapterCompletions.WithLabelValues("not_found").Inc()
	case errors.Is(err, util.ErrForbidden):
		monitoring.ChapterCompletions.WithLabelValues("forbidden").Inc()
	case errors.Is(err, util.ErrInvalidState):
		monitoring.ChapterCompletions.WithLabelValues("locked").Inc()
		logger.Log.Info("chapter completion rejected",
			zap.Uint("studentId", studentID),
			zap.Uint("chapterId", chapterID),
			zap.Error(err),
		)
	default:
		logger.Log.Error("chapter completion failed",
			zap.Uint("studentId", studentID),
			zap.Uint("chapterId", chapterID),
			zap.Error(err),
		)
	}
}

// GetCourseCompletion 计算学生在课程上的完成度，withChapters 为 true 时附带每章状态
func (g *CompletionGate) GetCourseCompletion(ctx context.Context, studentID, courseID uint, withChapters bool) (*model.CompletionSnapshot, error) {
	course, err := g.findCourse(ctx, g.Courses, courseID)
	if err != nil {
		return nil, err
	}
	return g.snapshot(ctx, g.Courses, g.Progress, course, studentID, withChapters)
}

// VerifiedCompletion 绕过目录缓存，在只读事务内按数据库当前状态计算完成度，供证书签发使用
func (g *CompletionGate) VerifiedCompletion(ctx context.Context, studentID, courseID uint) (*model.CompletionSnapshot, error) {
	var snapshot *model.CompletionSnapshot
	err := g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courses := g.Courses.WithTx(tx)
		course, err := g.findCourse(ctx, courses, courseID)
		if err != nil {
			return err
		}
		snapshot, err = g.snapshot(ctx, courses, g.Progress.WithTx(tx), course, studentID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// IsCourseComplete 按计数判定：至少一个章节，且完成记录数等于章节数。
// 章节有完成记录时不可删除，所以两者相等即每章都已完成。
func (g *CompletionGate) IsCourseComplete(ctx context.Context, studentID, courseID uint) (bool, error) {
	var complete bool
	err := g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courses := g.Courses.WithTx(tx)
		if _, err := g.findCourse(ctx, courses, courseID); err != nil {
			return err
		}
		total, err := courses.CountChapters(ctx, courseID)
		if err != nil {
			return err
		}
		done, err := g.Progress.WithTx(tx).CountCompletions(ctx, studentID, courseID)
		if err != nil {
			return err
		}
		complete = total > 0 && done == total
		return nil
	})
	return complete, err
}

func (g *CompletionGate) findCourse(ctx context.Context, courses *repository.CourseRepository, courseID uint) (*model.Course, error) {
	course, err := courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFoundError("CompletionGate.GetCourseCompletion", "course not found").
				WithDetail("courseId", courseID)
		}
		return nil, err
	}
	return course, nil
}

func (g *CompletionGate) snapshot(
	ctx context.Context,
	courses *repository.CourseRepository,
	progress *repository.ProgressRepository,
	course *model.Course,
	studentID uint,
	withChapters bool,
) (*model.CompletionSnapshot, error) {
	chapters, err := courses.ListChapters(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	completed, err := progress.ListCompletions(ctx, studentID, course.ID)
	if err != nil {
		return nil, err
	}

	snapshot := BuildSnapshot(studentID, course, chapters, completed, withChapters)
	return &snapshot, nil
}

// BuildSnapshot 由有序章节和已完成集合推导完成度与每章状态，纯函数
func BuildSnapshot(studentID uint, course *model.Course, chapters []model.Chapter, completed map[uint]bool, withChapters bool) model.CompletionSnapshot {
	snapshot := model.CompletionSnapshot{
		StudentID:     studentID,
		CourseID:      course.ID,
		CourseTitle:   course.Title,
		TotalChapters: len(chapters),
	}

	states := DeriveChapterStates(chapters, completed)
	for _, st := range states {
		if st.State == model.ChapterCompleted {
			snapshot.CompletedChapters++
			continue
		}
		if snapshot.NextChapter == nil {
			ref := st.ChapterRef
			snapshot.NextChapter = &ref
		}
	}

	snapshot.CompletionPercentage = CompletionPercentage(snapshot.CompletedChapters, snapshot.TotalChapters)
	snapshot.IsComplete = snapshot.TotalChapters > 0 && snapshot.CompletedChapters == snapshot.TotalChapters
	if withChapters {
		snapshot.Chapters = states
	}
	return snapshot
}

// DeriveChapterStates 首章或前一章已完成则解锁，否则锁定
func DeriveChapterStates(chapters []model.Chapter, completed map[uint]bool) []model.ChapterStatus {
	states := make([]model.ChapterStatus, len(chapters))
	for i, ch := range chapters {
		state := model.ChapterLocked
		switch {
		case completed[ch.ID]:
			state = model.ChapterCompleted
		case i == 0 || completed[chapters[i-1].ID]:
			state = model.ChapterUnlocked
		}
		states[i] = model.ChapterStatus{
			ChapterRef: model.ChapterRef{ID: ch.ID, Title: ch.Title, SequenceOrder: ch.SequenceOrder},
			State:      state,
		}
	}
	return states
}

// CompletionPercentage round(completed/total*100)，total 为 0 时为 0。
// 未全部完成时最多 99，保证 100 与全部完成等价。
func CompletionPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(completed) / float64(total) * 100))
	if completed < total && pct >= 100 {
		pct = 99
	}
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}
