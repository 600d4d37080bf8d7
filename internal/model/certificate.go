package model

import "time"

// swagger:model Certificate
type Certificate struct {
	BaseModel
	StudentID         uint      `gorm:"not null;uniqueIndex:idx_student_course" json:"studentId"`
	CourseID          uint      `gorm:"not null;uniqueIndex:idx_student_course" json:"courseId"`
	CertificateNumber string    `gorm:"size:64;uniqueIndex;not null" json:"certificateNumber"`
	ArtifactKey       string    `gorm:"size:255" json:"-"`
	ArtifactURL       string    `gorm:"size:512" json:"artifactUrl"`
	IssuedAt          time.Time `gorm:"not null" json:"issuedAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}
