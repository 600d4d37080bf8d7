package repository

import (
	"context"
	"mentor_lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

// FindByStudentCourse 未签发时返回 nil, nil
func (r *CertificateRepository) FindByStudentCourse(ctx context.Context, studentID, courseID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.WithContext(ctx).Where("student_id = ? AND course_id = ?", studentID, courseID).First(&cert).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// CreateIfAbsent 依靠 (student_id, course_id) 唯一索引，并发签发时只有一条写入成功，
// 落败方拿到胜出方的记录，created=false
func (r *CertificateRepository) CreateIfAbsent(ctx context.Context, cert *model.Certificate) (*model.Certificate, bool, error) {
	db := r.DB.WithContext(ctx)

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(cert)
	if res.Error != nil {
		return nil, false, res.Error
	}

	var stored model.Certificate
	if err := db.Where("student_id = ? AND course_id = ?", cert.StudentID, cert.CourseID).First(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, res.RowsAffected == 1, nil
}

func (r *CertificateRepository) FindByNumber(ctx context.Context, number string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.WithContext(ctx).Where("certificate_number = ?", number).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.WithContext(ctx).Where("student_id = ?", studentID).Order("issued_at DESC").Find(&certs).Error
	return certs, err
}
