package testutil

import (
	"fmt"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/pkg/database"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var memSeq int64

// OpenTestDB 打开独立的内存 SQLite 并完成迁移，供各包测试使用
func OpenTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := fmt.Sprintf("file:mentor_lms_test_%d?mode=memory&cache=shared&_busy_timeout=5000", atomic.AddInt64(&memSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	// 单连接：内存库随最后一个连接销毁，同时串行化写入
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { sqlDB.Close() })
	return db
}

func SeedUser(tb testing.TB, db *gorm.DB, email string, role model.UserRole) *model.User {
	tb.Helper()
	u := &model.User{Name: email, Email: email, Password: "x", Role: role}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedCourse 创建课程及 n 个按顺序排列的章节
func SeedCourse(tb testing.TB, db *gorm.DB, mentorID uint, title string, n int) (*model.Course, []model.Chapter) {
	tb.Helper()
	course := &model.Course{Title: title, MentorID: mentorID}
	if err := db.Create(course).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	chapters := make([]model.Chapter, 0, n)
	for i := 1; i <= n; i++ {
		ch := model.Chapter{CourseID: course.ID, SequenceOrder: i, Title: fmt.Sprintf("%s #%d", title, i)}
		if err := db.Create(&ch).Error; err != nil {
			tb.Fatalf("seed chapter: %v", err)
		}
		chapters = append(chapters, ch)
	}
	return course, chapters
}

func Enroll(tb testing.TB, db *gorm.DB, courseID, studentID uint) {
	tb.Helper()
	if err := db.Create(&model.Enrollment{CourseID: courseID, StudentID: studentID}).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
}

// OpenTestRedis 启动进程内 miniredis，返回 (客户端, 服务端)，测试结束自动关闭
func OpenTestRedis(tb testing.TB) (*redis.Client, *miniredis.Miniredis) {
	tb.Helper()
	mr := miniredis.RunT(tb)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { client.Close() })
	return client, mr
}
