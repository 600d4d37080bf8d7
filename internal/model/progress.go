package model

import "time"

// ProgressRecord 学生完成章节的记录，存在即表示已完成
// swagger:model ProgressRecord
type ProgressRecord struct {
	BaseModel
	StudentID   uint      `gorm:"not null;uniqueIndex:idx_student_chapter" json:"studentId"`
	ChapterID   uint      `gorm:"not null;uniqueIndex:idx_student_chapter;index" json:"chapterId"`
	CourseID    uint      `gorm:"not null;index" json:"courseId"`
	CompletedAt time.Time `gorm:"not null" json:"completedAt"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}
