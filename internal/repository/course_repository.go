package repository

import (
	"context"
	"mentor_lms_backend/internal/model"

	"gorm.io/gorm"
)

// CourseRepository 课程与章节目录
type CourseRepository struct {
	DB    *gorm.DB
	Cache *CatalogCache
}

func NewCourseRepository(db *gorm.DB, cache *CatalogCache) *CourseRepository {
	return &CourseRepository{DB: db, Cache: cache}
}

// WithTx 事务内不读缓存，保证读到的章节与写入处于同一快照
func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&courses).Error
	return courses, err
}

// ListAll 管理员视角的全部课程
func (r *CourseRepository) ListAll(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) ListByMentor(ctx context.Context, mentorID uint) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).Where("mentor_id = ?", mentorID).Order("id ASC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) FindChapter(ctx context.Context, chapterID uint) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.WithContext(ctx).First(&chapter, chapterID).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// ListChapters 按 sequence_order 升序返回课程章节
func (r *CourseRepository) ListChapters(ctx context.Context, courseID uint) ([]model.Chapter, error) {
	chapters, version, ok := r.Cache.GetChapters(ctx, courseID)
	if ok {
		return chapters, nil
	}

	err := r.DB.WithContext(ctx).
		Select("id", "created_at", "updated_at", "course_id", "sequence_order", "title").
		Where("course_id = ?", courseID).
		Order("sequence_order ASC").
		Find(&chapters).Error
	if err != nil {
		return nil, err
	}

	r.Cache.SetChapters(ctx, courseID, version, chapters)
	return chapters, nil
}

func (r *CourseRepository) CountChapters(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Chapter{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

// PreviousChapter 返回课程中紧邻的前一章节，首章返回 nil
func (r *CourseRepository) PreviousChapter(ctx context.Context, chapter *model.Chapter) (*model.Chapter, error) {
	var prev model.Chapter
	err := r.DB.WithContext(ctx).
		Where("course_id = ? AND sequence_order < ?", chapter.CourseID, chapter.SequenceOrder).
		Order("sequence_order DESC").
		First(&prev).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prev, nil
}

// LastChapter 课程末尾章节，无章节时返回 nil
func (r *CourseRepository) LastChapter(ctx context.Context, courseID uint) (*model.Chapter, error) {
	var last model.Chapter
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("sequence_order DESC").
		First(&last).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &last, nil
}

// AppendChapter 以 max(sequence_order)+1 追加章节；并发追加由 (course_id, sequence_order) 唯一索引兜底
func (r *CourseRepository) AppendChapter(ctx context.Context, chapter *model.Chapter) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		if err := tx.Model(&model.Chapter{}).
			Where("course_id = ?", chapter.CourseID).
			Select("COALESCE(MAX(sequence_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		chapter.SequenceOrder = maxOrder + 1
		return tx.Create(chapter).Error
	})
	if err != nil {
		return err
	}

	r.Cache.Invalidate(ctx, chapter.CourseID)
	return nil
}

// DeleteChapter 物理删除，避免软删除行占用 (course_id, sequence_order)
func (r *CourseRepository) DeleteChapter(ctx context.Context, chapter *model.Chapter) error {
	if err := r.DB.WithContext(ctx).Unscoped().Delete(&model.Chapter{}, chapter.ID).Error; err != nil {
		return err
	}
	r.Cache.Invalidate(ctx, chapter.CourseID)
	return nil
}
