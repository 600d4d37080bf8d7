package repository

import (
	"context"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseRepositoryAppendChapterAssignsDenseSequence(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	repo := NewCourseRepository(db, NewCatalogCache(nil, 0))

	mentor := testutil.SeedUser(t, db, "mentor@example.com", model.Mentor)
	course := &model.Course{Title: "Go", MentorID: mentor.ID}
	require.NoError(t, repo.Create(ctx, course))

	for _, title := range []string{"intro", "types", "generics"} {
		require.NoError(t, repo.AppendChapter(ctx, &model.Chapter{CourseID: course.ID, Title: title}))
	}

	chapters, err := repo.ListChapters(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	for i, ch := range chapters {
		assert.Equal(t, i+1, ch.SequenceOrder)
	}

	prev, err := repo.PreviousChapter(ctx, &chapters[2])
	require.NoError(t, err)
	assert.Equal(t, chapters[1].ID, prev.ID)

	prev, err = repo.PreviousChapter(ctx, &chapters[0])
	require.NoError(t, err)
	assert.Nil(t, prev)

	last, err := repo.LastChapter(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, chapters[2].ID, last.ID)

	require.NoError(t, repo.DeleteChapter(ctx, last))
	require.NoError(t, repo.AppendChapter(ctx, &model.Chapter{CourseID: course.ID, Title: "generics v2"}))

	chapters, err = repo.ListChapters(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	assert.Equal(t, 3, chapters[2].SequenceOrder)
	assert.Equal(t, "generics v2", chapters[2].Title)

	n, err := repo.CountChapters(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCourseRepositoryRejectsDuplicateSequence(t *testing.T) {
	db := testutil.OpenTestDB(t)
	mentor := testutil.SeedUser(t, db, "mentor@example.com", model.Mentor)
	course, _ := testutil.SeedCourse(t, db, mentor.ID, "Go", 1)

	err := db.Create(&model.Chapter{CourseID: course.ID, SequenceOrder: 1, Title: "dup"}).Error
	assert.Error(t, err)
}
