package inmemdb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartventer/elearning-site/core"
	"github.com/bartventer/elearning-site/core/course"
)

func TestCourseRepository_Tx(t *testing.T) {
	ctx := context.Background()
	db, err := Open()
	require.NoError(t, err)
	repo := NewCourseRepository(db)

	errRollback := errors.New("rollback")
	err = repo.Tx(ctx, func(tx course.Repository) error {
		if _, err := tx.CreateSubject(ctx, course.Subject{Title: "Maths", Slug: "maths"}); err != nil {
			return err
		}
		// nested calls join
		return tx.Tx(ctx, func(inner course.Repository) error {
			subjects, err := inner.QuerySubjects(ctx)
			require.NoError(t, err)
			assert.Len(t, subjects, 1, "changes are visible inside the transaction")
			return errRollback
		})
	})
	assert.Equal(t, errRollback, err)

	subjects, err := repo.QuerySubjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, subjects, "rolled back")

	require.NoError(t, repo.Tx(ctx, func(tx course.Repository) error {
		_, err := tx.CreateSubject(ctx, course.Subject{Title: "Maths", Slug: "maths"})
		return err
	}))
	subjects, err = repo.QuerySubjects(ctx)
	require.NoError(t, err)
	assert.Len(t, subjects, 1, "committed")

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, context.Canceled, repo.Tx(cctx, func(course.Repository) error { return nil }))
}

func TestCourseRepository_QueryCourses(t *testing.T) {
	ctx := context.Background()
	db, err := Open()
	require.NoError(t, err)
	repo := NewCourseRepository(db)

	maths, err := repo.CreateSubject(ctx, course.Subject{Title: "Maths", Slug: "maths"})
	require.NoError(t, err)
	art, err := repo.CreateSubject(ctx, course.Subject{Title: "Art", Slug: "art"})
	require.NoError(t, err)

	algebra, err := repo.CreateCourse(ctx, course.Course{OwnerID: "o1", SubjectID: maths.ID, Title: "Algebra", Slug: "algebra"})
	require.NoError(t, err)
	_, err = repo.CreateCourse(ctx, course.Course{OwnerID: "o2", SubjectID: maths.ID, Title: "Calculus", Slug: "calculus"})
	require.NoError(t, err)
	_, err = repo.CreateCourse(ctx, course.Course{OwnerID: "o1", SubjectID: art.ID, Title: "Drawing", Slug: "drawing"})
	require.NoError(t, err)
	require.NoError(t, repo.AddStudent(ctx, algebra.ID, "s1"))
	require.NoError(t, repo.AddStudent(ctx, algebra.ID, "s1"), "enrolling twice")

	titles := func(filter course.CourseFilter, ordering ...core.DBOrdering) []string {
		courses, err := repo.QueryCourses(ctx, filter, ordering)
		require.NoError(t, err)
		out := make([]string, len(courses))
		for i, c := range courses {
			out[i] = c.Title
		}
		return out
	}
	byTitle := core.DBOrdering{Field: "title", Ascending: true}

	assert.Equal(t, []string{"Algebra", "Calculus", "Drawing"}, titles(course.CourseFilter{}, byTitle))
	assert.Equal(t, []string{"Drawing", "Calculus", "Algebra"}, titles(course.CourseFilter{}, core.DBOrdering{Field: "title"}))
	assert.Equal(t, []string{"Algebra", "Calculus"}, titles(course.CourseFilter{SubjectID: maths.ID}, byTitle))
	assert.Equal(t, []string{"Algebra", "Drawing"}, titles(course.CourseFilter{OwnerID: "o1"}, byTitle))
	assert.Equal(t, []string{"Algebra"}, titles(course.CourseFilter{StudentID: "s1"}, byTitle))

	subjects, err := repo.QuerySubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Art", subjects[0].Title)
	assert.Equal(t, 1, subjects[0].TotalCourses)
	assert.Equal(t, 2, subjects[1].TotalCourses)
}
