package repository

import (
	"context"
	"mentor_lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

// Create 幂等创建，已存在时返回原记录且 created=false
func (r *EnrollmentRepository) Create(ctx context.Context, courseID, studentID uint) (*model.Enrollment, bool, error) {
	db := r.DB.WithContext(ctx)
	enrollment := &model.Enrollment{CourseID: courseID, StudentID: studentID}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "student_id"}},
		DoNothing: true,
	}).Create(enrollment)
	if res.Error != nil {
		return nil, false, res.Error
	}

	var stored model.Enrollment
	if err := db.Where("course_id = ? AND student_id = ?", courseID, studentID).First(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, res.RowsAffected == 1, nil
}

func (r *EnrollmentRepository) Exists(ctx context.Context, courseID, studentID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).Where("student_id = ?", studentID).Order("course_id ASC").Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) ListByCourses(ctx context.Context, courseIDs []uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	if len(courseIDs) == 0 {
		return enrollments, nil
	}
	err := r.DB.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order("course_id ASC, student_id ASC").
		Find(&enrollments).Error
	return enrollments, err
}
