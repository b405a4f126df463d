package course_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/tests"
)

func moduleTitles(t *testing.T, repo course.Repository, courseID int64) []string {
	t.Helper()
	mods, err := repo.QueryModules(context.Background(), courseID)
	require.NoError(t, err)
	titles := make([]string, len(mods))
	for i, m := range mods {
		titles[i] = m.Title
	}
	return titles
}

func TestOrderAssigner_NextOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	oa := course.NewOrderAssigner(f.repo)

	got, err := oa.NextOrder(ctx, course.CourseModules(f.course.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, got, "empty scope")

	testutil.CreateModule(t, f.repo, f.course, "A", 0)
	testutil.CreateModule(t, f.repo, f.course, "B", 5)
	testutil.CreateModule(t, f.repo, f.course, "C", 2)
	testutil.CreateModule(t, f.repo, f.otherCourse, "X", 40)

	got, err = oa.NextOrder(ctx, course.CourseModules(f.course.ID))
	require.NoError(t, err)
	assert.Equal(t, 6, got, "max + 1, gaps are kept")

	got, err = oa.NextOrder(ctx, course.CourseModules(f.otherCourse.ID))
	require.NoError(t, err)
	assert.Equal(t, 41, got, "scopes are independent")

	m := testutil.CreateModule(t, f.repo, f.course, "D", 0)
	got, err = oa.NextOrder(ctx, course.ModuleContents(m.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	testutil.CreateTextContent(t, f.repo, m, f.owner, "Intro", "hello", 3)
	got, err = oa.NextOrder(ctx, course.ModuleContents(m.ID))
	require.NoError(t, err)
	assert.Equal(t, 4, got)
}

func TestParseBulkOrder(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    course.BulkOrder
		wantErr bool
	}{
		{name: "ints", payload: `{"12": 0, "7": 1}`, want: course.BulkOrder{12: 0, 7: 1}},
		{name: "strings", payload: `{"12": "3", " 7 ": " 4 "}`, want: course.BulkOrder{12: 3, 7: 4}},
		{name: "empty object", payload: `{}`, want: course.BulkOrder{}},
		{name: "not json", payload: `lol`, wantErr: true},
		{name: "null", payload: `null`, wantErr: true},
		{name: "array", payload: `[1, 2]`, wantErr: true},
		{name: "trailing data", payload: `{"1": 0} {}`, wantErr: true},
		{name: "non-int key", payload: `{"a": 0}`, wantErr: true},
		{name: "zero & negative keys", payload: `{"0": 0, "-3": 1}`, want: course.BulkOrder{0: 0, -3: 1}},
		{name: "float order", payload: `{"1": 1.5}`, wantErr: true},
		{name: "bool order", payload: `{"1": true}`, wantErr: true},
		{name: "non-int string order", payload: `{"1": "first"}`, wantErr: true},
		{name: "negative order", payload: `{"1": -1}`, wantErr: true},
		{name: "huge order", payload: `{"1": 99999999999}`, wantErr: true},
		{name: "one bad entry", payload: `{"1": 0, "2": "x", "3": 2}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := course.ParseBulkOrder([]byte(tt.payload))
			if tt.wantErr {
				var malformed *course.MalformedBulkInputError
				assert.True(t, errors.As(err, &malformed), "got %v", err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderAssigner_ApplyBulkOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateModule(t, f.repo, f.course, "A", 0)
	b := testutil.CreateModule(t, f.repo, f.course, "B", 1)
	c := testutil.CreateModule(t, f.repo, f.course, "C", 2)
	x := testutil.CreateModule(t, f.repo, f.otherCourse, "X", 0)

	applied, err := course.NewOrderAssigner(f.repo).ApplyBulkOrder(ctx, course.EntityModule, course.BulkOrder{
		b.ID: 0,
		a.ID: 1,
		c.ID: 2,
		x.ID: 9, // owned by someone else
		999:  3, // does not exist
	}, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
	assert.Equal(t, []string{"B", "A", "C"}, moduleTitles(t, f.repo, f.course.ID))

	got, err := f.repo.GetModule(ctx, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Order, "foreign module untouched")
}

func TestOrderAssigner_ApplyBulkOrder_contents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m := testutil.CreateModule(t, f.repo, f.course, "M", 0)
	first := testutil.CreateTextContent(t, f.repo, m, f.owner, "first", "1", 0)
	second := testutil.CreateTextContent(t, f.repo, m, f.owner, "second", "2", 1)
	xm := testutil.CreateModule(t, f.repo, f.otherCourse, "X", 0)
	foreign := testutil.CreateTextContent(t, f.repo, xm, f.other, "foreign", "x", 0)

	applied, err := f.svc.ReorderContents(ctx, []byte(`{"`+itoa(first.ID)+`": 1, "`+itoa(second.ID)+`": 0, "`+itoa(foreign.ID)+`": 5}`), f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	contents, err := f.svc.ListForModule(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, contents, 2)
	assert.Equal(t, second.ID, contents[0].ID)
	assert.Equal(t, first.ID, contents[1].ID)

	got, err := f.repo.GetContent(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Order)
}

func TestService_ReorderModules_unmatchedIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateModule(t, f.repo, f.course, "A", 0)
	b := testutil.CreateModule(t, f.repo, f.course, "B", 1)

	applied, err := f.svc.ReorderModules(ctx, []byte(`{"0": 1, "-4": 2, "`+itoa(a.ID)+`": 5}`), f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, []string{"B", "A"}, moduleTitles(t, f.repo, f.course.ID))

	got, err := f.repo.GetModule(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Order)
}

func TestService_ReorderModules_malformed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateModule(t, f.repo, f.course, "A", 0)
	b := testutil.CreateModule(t, f.repo, f.course, "B", 1)

	applied, err := f.svc.ReorderModules(ctx, []byte(`{"`+itoa(a.ID)+`": 1, "`+itoa(b.ID)+`": "zero"}`), f.owner.ID)
	var malformed *course.MalformedBulkInputError
	require.True(t, errors.As(err, &malformed), "got %v", err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, []string{"A", "B"}, moduleTitles(t, f.repo, f.course.ID), "nothing applied")
}

func TestOrderAssigner_ApplyBulkOrder_partialFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateModule(t, f.repo, f.course, "A", 0) // ID 1
	b := testutil.CreateModule(t, f.repo, f.course, "B", 1) // ID 2
	require.Equal(t, int64(2), b.ID)

	repo := &failingRepo{Repository: f.repo, failOn: "SetOwnedOrder"}
	applied, err := course.NewOrderAssigner(repo).ApplyBulkOrder(ctx, course.EntityModule, course.BulkOrder{a.ID: 7, b.ID: 0}, f.owner.ID)
	assert.Equal(t, errBoom, errors.Cause(err))
	assert.Equal(t, 1, applied)

	got, err := f.repo.GetModule(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Order, "updates before the failure stay applied")
}

func TestService_CreateModule_order(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		m, err := f.svc.CreateModule(ctx, f.course.ID, course.NewModule{Title: "M"}, f.owner.ID)
		require.NoError(t, err)
		assert.Equal(t, i, m.Order)
	}

	_, err := f.svc.CreateModule(ctx, f.course.ID, course.NewModule{Title: "M"}, f.other.ID)
	assert.True(t, course.IsNotFound(err), "not the owner")
}

func TestService_CreateModule_concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateModule(ctx, f.course.ID, course.NewModule{Title: "M"}, f.owner.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	mods, err := f.repo.QueryModules(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, mods, n)
	for i, m := range mods {
		assert.Equal(t, i, m.Order, "orders are distinct & contiguous")
	}
}

func TestService_CreateContent_concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := testutil.CreateModule(t, f.repo, f.course, "M", 0)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateContent(ctx, m.ID, "text", course.ItemPayload{Title: "T", Content: "c"}, f.owner.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	contents, err := f.svc.ListForModule(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, contents, n)
	for i, c := range contents {
		assert.Equal(t, i, c.Order)
	}
}
