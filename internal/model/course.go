package model

// swagger:model Course
type Course struct {
	BaseModel
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	MentorID    uint      `gorm:"index;not null" json:"mentorId"`
	Chapters    []Chapter `gorm:"foreignKey:CourseID" json:"chapters,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Chapter 章节顺序 SequenceOrder 在课程内从 1 开始连续递增，创建后不再调整。
// swagger:model Chapter
type Chapter struct {
	BaseModel
	CourseID      uint   `gorm:"not null;uniqueIndex:idx_course_sequence" json:"courseId"`
	SequenceOrder int    `gorm:"not null;uniqueIndex:idx_course_sequence" json:"sequenceOrder"`
	Title         string `gorm:"size:255;not null" json:"title"`
	Content       string `gorm:"type:text" json:"content,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}
