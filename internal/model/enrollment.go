package model

// Enrollment 导师将学生分配到课程，(course, student) 唯一
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	CourseID  uint `gorm:"not null;uniqueIndex:idx_course_student" json:"courseId"`
	StudentID uint `gorm:"not null;uniqueIndex:idx_course_student;index" json:"studentId"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
