package repository

import (
	"context"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentRepositoryCreateIsIdempotent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	repo := NewEnrollmentRepository(db)

	mentor := testutil.SeedUser(t, db, "mentor@example.com", model.Mentor)
	student := testutil.SeedUser(t, db, "student@example.com", model.Student)
	course, _ := testutil.SeedCourse(t, db, mentor.ID, "Go", 1)

	first, created, err := repo.Create(ctx, course.ID, student.ID)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.Create(ctx, course.ID, student.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	ok, err := repo.Exists(ctx, course.ID, student.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, course.ID, mentor.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := repo.ListByCourses(ctx, []uint{course.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	mine, err := repo.ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCertificateRepositoryCreateIfAbsent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	repo := NewCertificateRepository(db)

	mentor := testutil.SeedUser(t, db, "mentor@example.com", model.Mentor)
	student := testutil.SeedUser(t, db, "student@example.com", model.Student)
	course, _ := testutil.SeedCourse(t, db, mentor.ID, "Go", 1)

	none, err := repo.FindByStudentCourse(ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	winner, created, err := repo.CreateIfAbsent(ctx, &model.Certificate{
		StudentID: student.ID, CourseID: course.ID, CertificateNumber: "CERT-1", IssuedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, created)

	loser, created, err := repo.CreateIfAbsent(ctx, &model.Certificate{
		StudentID: student.ID, CourseID: course.ID, CertificateNumber: "CERT-2", IssuedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, loser.ID)
	assert.Equal(t, "CERT-1", loser.CertificateNumber)

	byNumber, err := repo.FindByNumber(ctx, "CERT-1")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, byNumber.ID)

	list, err := repo.ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
