package repository

import (
	"context"
	"mentor_lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 章节完成记录（进度台账）。这里不做顺序校验，顺序由调用方在同一事务内检查。
type ProgressRepository struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db, now: time.Now}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx, now: r.now}
}

// RecordCompletion 幂等 upsert：首次完成插入记录，重复完成只刷新完成时间
func (r *ProgressRepository) RecordCompletion(ctx context.Context, studentID, chapterID uint) (*model.ProgressRecord, error) {
	db := r.DB.WithContext(ctx)

	var chapter model.Chapter
	if err := db.Select("id", "course_id").First(&chapter, chapterID).Error; err != nil {
		return nil, err
	}

	now := r.now()
	record := &model.ProgressRecord{
		StudentID:   studentID,
		ChapterID:   chapter.ID,
		CourseID:    chapter.CourseID,
		CompletedAt: now,
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "chapter_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"completed_at": now,
			"updated_at":   now,
		}),
	}).Create(record).Error
	if err != nil {
		return nil, err
	}

	// upsert 走更新分支时 record.ID 不可靠，重新读取
	var stored model.ProgressRecord
	if err := db.Where("student_id = ? AND chapter_id = ?", studentID, chapter.ID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Find 未完成时返回 nil, nil
func (r *ProgressRepository) Find(ctx context.Context, studentID, chapterID uint) (*model.ProgressRecord, error) {
	var record model.ProgressRecord
	err := r.DB.WithContext(ctx).Where("student_id = ? AND chapter_id = ?", studentID, chapterID).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListCompletions 学生在课程内已完成的章节集合
func (r *ProgressRepository) ListCompletions(ctx context.Context, studentID, courseID uint) (map[uint]bool, error) {
	var chapterIDs []uint
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Pluck("chapter_id", &chapterIDs).Error
	if err != nil {
		return nil, err
	}

	completed := make(map[uint]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		completed[id] = true
	}
	return completed, nil
}

func (r *ProgressRepository) CountCompletions(ctx context.Context, studentID, courseID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count, err
}

func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	err := r.DB.WithContext(ctx).Where("student_id = ?", studentID).Order("completed_at ASC").Find(&records).Error
	return records, err
}

// CompletionsByCourse 返回 studentID -> 已完成章节集合，用于导师查看整门课的进度
func (r *ProgressRepository) CompletionsByCourse(ctx context.Context, courseID uint) (map[uint]map[uint]bool, error) {
	var rows []struct {
		StudentID uint
		ChapterID uint
	}
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Select("student_id", "chapter_id").
		Where("course_id = ?", courseID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uint]map[uint]bool)
	for _, row := range rows {
		if result[row.StudentID] == nil {
			result[row.StudentID] = make(map[uint]bool)
		}
		result[row.StudentID][row.ChapterID] = true
	}
	return result, nil
}

func (r *ProgressRepository) CountByChapter(ctx context.Context, chapterID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).Where("chapter_id = ?", chapterID).Count(&count).Error
	return count, err
}
