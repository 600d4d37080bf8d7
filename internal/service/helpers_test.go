package service

import (
	"mentor_lms_backend/internal/config"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/repository"
	"mentor_lms_backend/internal/testutil"
	"testing"
	"time"

	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	courses      *repository.CourseRepository
	enrollments  *repository.EnrollmentRepository
	progress     *repository.ProgressRepository
	users        *repository.UserRepository
	certificates *repository.CertificateRepository

	gate        *CompletionGate
	progressSvc *ProgressService
	courseSvc   *CourseService
	certSvc     *CertificateService
	storage     *StorageService
	storageRoot string
	mentor      *model.User
	student     *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, nil)
}

// newCachedTestEnv 目录读取走 miniredis 缓存
func newCachedTestEnv(t *testing.T) *testEnv {
	t.Helper()
	rdb, _ := testutil.OpenTestRedis(t)
	return newTestEnvWithCache(t, repository.NewCatalogCache(rdb, time.Minute))
}

func newTestEnvWithCache(t *testing.T, cache *repository.CatalogCache) *testEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)

	env := &testEnv{
		db:           db,
		courses:      repository.NewCourseRepository(db, cache),
		enrollments:  repository.NewEnrollmentRepository(db),
		progress:     repository.NewProgressRepository(db),
		users:        repository.NewUserRepository(db),
		certificates: repository.NewCertificateRepository(db),
		storageRoot:  t.TempDir(),
	}
	env.gate = NewCompletionGate(db, env.courses, env.enrollments, env.progress)
	env.progressSvc = NewProgressService(env.gate, env.courses, env.enrollments, env.progress, env.users)
	env.courseSvc = NewCourseService(db, env.courses, env.enrollments, env.progress, env.users)
	env.storage = &StorageService{Provider: &LocalStorageProvider{
		Config: &config.StorageConfig{Type: "local", LocalPath: env.storageRoot},
	}}
	env.certSvc = NewCertificateService(
		env.gate, env.courses, env.enrollments, env.users, env.certificates,
		env.storage, NewPNGCertificateRenderer(),
		config.CertificateConfig{NumberPrefix: "TEST", IssuerName: "Mentor LMS"},
	)

	env.mentor = testutil.SeedUser(t, db, "mentor@example.com", model.Mentor)
	env.student = testutil.SeedUser(t, db, "student@example.com", model.Student)
	return env
}

func (e *testEnv) mentorActor() Actor {
	return Actor{ID: e.mentor.ID, Role: model.Mentor}
}
