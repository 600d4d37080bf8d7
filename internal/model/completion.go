package model

// ChapterState 由完成记录和章节顺序推导得出，不落库
type ChapterState string

const (
	ChapterLocked    ChapterState = "LOCKED"
	ChapterUnlocked  ChapterState = "UNLOCKED"
	ChapterCompleted ChapterState = "COMPLETED"
)

// ChapterRef 章节摘要
type ChapterRef struct {
	ID            uint   `json:"id"`
	Title         string `json:"title"`
	SequenceOrder int    `json:"sequenceOrder"`
}

// ChapterStatus 章节及其对某个学生的解锁状态
type ChapterStatus struct {
	ChapterRef
	State ChapterState `json:"state"`
}

// CompletionSnapshot 学生在某门课程上的完成情况，每次读取时重新计算
// swagger:model CompletionSnapshot
type CompletionSnapshot struct {
	StudentID            uint            `json:"studentId"`
	CourseID             uint            `json:"courseId"`
	CourseTitle          string          `json:"courseTitle"`
	TotalChapters        int             `json:"totalChapters"`
	CompletedChapters    int             `json:"completedChapters"`
	CompletionPercentage int             `json:"completionPercentage"`
	IsComplete           bool            `json:"isComplete"`
	NextChapter          *ChapterRef     `json:"nextChapter"`
	Chapters             []ChapterStatus `json:"chapters,omitempty"`
}
