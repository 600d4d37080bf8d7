package service

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"mentor_lms_backend/internal/config"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/testutil"
	"mentor_lms_backend/internal/util"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeAll(t *testing.T, env *testEnv, studentID uint, chapters []model.Chapter) {
	t.Helper()
	for _, ch := range chapters {
		_, err := env.gate.AttemptCompleteChapter(context.Background(), studentID, ch.ID)
		require.NoError(t, err)
	}
}

func TestIssueCertificateOnceAfterCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course, chapters := testutil.SeedCourse(t, env.db, env.mentor.ID, "Go", 3)
	testutil.Enroll(t, env.db, course.ID, env.student.ID)
	completeAll(t, env, env.student.ID, chapters)

	first, err := env.certSvc.IssueCertificate(ctx, env.student.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.True(t, strings.HasPrefix(first.Certificate.CertificateNumber, "TEST-"))
	assert.Equal(t, "/uploads/"+first.Certificate.ArtifactKey, first.Certificate.ArtifactURL)

	artifact, err := os.ReadFile(filepath.Join(env.storageRoot, filepath.FromSlash(first.Certificate.ArtifactKey)))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(artifact))
	require.NoError(t, err, "artifact is a valid png")

	second, err := env.certSvc.IssueCertificate(ctx, env.student.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Certificate.ID, second.Certificate.ID)
	assert.Equal(t, first.Certificate.CertificateNumber, second.Certificate.CertificateNumber)

	var count int64
	require.NoError(t, env.db.Model(&model.Certificate{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIssueCertificateRejectsIncompleteCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course, chapters := testutil.SeedCourse(t, env.db, env.mentor.ID, "Go", 3)
	testutil.Enroll(t, env.db, course.ID, env.student.ID)
	completeAll(t, env, env.student.ID, chapters[:2])

	_, err := env.certSvc.IssueCertificate(ctx, env.student.ID, course.ID)
	require.ErrorIs(t, err, util.ErrInvalidState)

	var appErr *util.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 2, appErr.Details["completedChapters"])
	assert.Equal(t, 3, appErr.Details["totalChapters"])
	assert.Equal(t, chapters[2].ID, appErr.Details["nextChapterId"])

	entries, err := os.ReadDir(env.storageRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifact written for a rejected request")
}

func TestIssueCertificateRejectsEmptyCourse(t *testing.T) {
	env := newTestEnv(t)

	course, _ := testutil.SeedCourse(t, env.db, env.mentor.ID, "Empty", 0)
	testutil.Enroll(t, env.db, course.ID, env.student.ID)

	_, err := env.certSvc.IssueCertificate(context.Background(), env.student.ID, course.ID)
	require.ErrorIs(t, err, util.ErrInvalidState)
	assert.Contains(t, err.Error(), "course has no chapters")
}

func TestIssueCertificateAccessChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course, _ := testutil.SeedCourse(t, env.db, env.mentor.ID, "Go", 1)

	_, err := env.certSvc.IssueCertificate(ctx, env.student.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)

	_, err = env.certSvc.IssueCertificate(ctx, env.student.ID, 999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestIssueCertificateConcurrentRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course, chapters := testutil.SeedCourse(t, env.db, env.mentor.ID, "Go", 2)
	testutil.Enroll(t, env.db, course.ID, env.student.ID)
	completeAll(t, env, env.student.ID, chapters)

	const workers = 6
	var wg sync.WaitGroup
	results := make(chan *IssueResult, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.certSvc.IssueCertificate(ctx, env.student.ID, course.ID)
			if assert.NoError(t, err) {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	var created int
	numbers := make(map[string]struct{})
	for res := range results {
		if res.Created {
			created++
		}
		numbers[res.Certificate.CertificateNumber] = struct{}{}
	}
	assert.Equal(t, 1, created)
	assert.Len(t, numbers, 1, "every caller sees the same certificate")

	files, err := filepath.Glob(filepath.Join(env.storageRoot, "certificates", "*", "*.png"))
	require.NoError(t, err)
	assert.Len(t, files, 1, "losing uploads are removed")
}

func TestVerifyAndListCertificates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.certSvc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	course, chapters := testutil.SeedCourse(t, env.db, env.mentor.ID, "Go", 1)
	testutil.Enroll(t, env.db, course.ID, env.student.ID)
	completeAll(t, env, env.student.ID, chapters)

	issued, err := env.certSvc.IssueCertificate(ctx, env.student.ID, course.ID)
	require.NoError(t, err)
	assert.Contains(t, issued.Certificate.CertificateNumber, "-2026-")

	view, err := env.certSvc.VerifyCertificate(ctx, issued.Certificate.CertificateNumber)
	require.NoError(t, err)
	assert.Equal(t, "Go", view.CourseTitle)
	assert.Equal(t, env.student.Name, view.StudentName)

	_, err = env.certSvc.VerifyCertificate(ctx, "TEST-unknown")
	assert.ErrorIs(t, err, util.ErrNotFound)

	list, err := env.certSvc.ListStudentCertificates(ctx, env.student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Go", list[0].CourseTitle)
}

// appendingRenderer 在渲染时追加章节，模拟签发期间目录发生变化
type appendingRenderer struct {
	CertificateRenderer
	before func()
}

func (r appendingRenderer) Render(data CertificateData) ([]byte, error) {
	r.before()
	return r.CertificateRenderer.Render(data)
}

func TestIssueCertificateRechecksCompletionBeforeSaving(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course, chapters := testutil.SeedCourse(t, env.db, env.mentor.ID, "Go", 2)
	testutil.Enroll(t, env.db, course.ID, env.student.ID)
	completeAll(t, env, env.student.ID, chapters)

	svc := NewCertificateService(
		env.gate, env.courses, env.enrollments, env.users, env.certificates, env.storage,
		appendingRenderer{
			CertificateRenderer: NewPNGCertificateRenderer(),
			before: func() {
				require.NoError(t, env.courses.AppendChapter(ctx, &model.Chapter{CourseID: course.ID, Title: "bonus"}))
			},
		},
		config.CertificateConfig{NumberPrefix: "TEST"},
	)

	_, err := svc.IssueCertificate(ctx, env.student.ID, course.ID)
	require.ErrorIs(t, err, util.ErrInvalidState)

	var count int64
	require.NoError(t, env.db.Model(&model.Certificate{}).Count(&count).Error)
	assert.Zero(t, count)

	files := 0
	require.NoError(t, filepath.WalkDir(env.storageRoot, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files++
		}
		return err
	}))
	assert.Zero(t, files, "artifact removed after the late rejection")
}
