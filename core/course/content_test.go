package course_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartventer/elearning-site/core"
	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/tests"
)

func TestService_CreateContent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := testutil.CreateModule(t, f.repo, f.course, "M", 0)

	tests := []struct {
		name      string
		kind      string
		payload   course.ItemPayload
		ownerID   string
		wantOrder int
		wantErr   func(error) bool
	}{
		{
			name:      "text",
			kind:      "text",
			payload:   course.ItemPayload{Title: "Intro", Content: "hello"},
			ownerID:   f.owner.ID,
			wantOrder: 0,
		},
		{
			name:      "video, kind is case-insensitive",
			kind:      "Video",
			payload:   course.ItemPayload{Title: "Talk", URL: "https://youtu.be/abcdef123"},
			ownerID:   f.owner.ID,
			wantOrder: 1,
		},
		{
			name:      "image",
			kind:      "image",
			payload:   course.ItemPayload{Title: "Pic", File: &course.FileUpload{Filename: "pic.png", Body: strings.NewReader("png")}},
			ownerID:   f.owner.ID,
			wantOrder: 2,
		},
		{
			name:    "unknown kind",
			kind:    "audio",
			payload: course.ItemPayload{Title: "Song"},
			ownerID: f.owner.ID,
			wantErr: func(err error) bool {
				var unknown *course.UnknownKindError
				return errors.As(err, &unknown) && unknown.Kind == "audio"
			},
		},
		{
			name:    "not the owner",
			kind:    "text",
			payload: course.ItemPayload{Title: "Intro", Content: "hello"},
			ownerID: f.other.ID,
			wantErr: course.IsNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.CreateContent(ctx, m.ID, tt.kind, tt.payload, tt.ownerID)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "unexpected error %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOrder, got.Order)
			assert.Equal(t, m.ID, got.ModuleID)
			require.NotNil(t, got.Item)
			assert.Equal(t, got.Kind, got.Item.Kind())
			assert.Equal(t, got.ItemID, got.Item.Base().ID)
			assert.Equal(t, tt.ownerID, got.Item.Base().OwnerID)
		})
	}

	contents, err := f.svc.ListForModule(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, contents, 3)
	assert.Equal(t, []course.Kind{course.KindText, course.KindVideo, course.KindImage},
		[]course.Kind{contents[0].Kind, contents[1].Kind, contents[2].Kind})

	// failed creations left no item rows behind
	for _, c := range contents {
		_, err = f.repo.GetItem(ctx, c.Kind, c.ItemID+1)
		assert.True(t, course.IsNotFound(err), "no %s item after #%d", c.Kind, c.ItemID)
	}
}

func TestService_CreateContent_rollback(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := testutil.CreateModule(t, f.repo, f.course, "M", 0)

	svc := course.NewService(&failingRepo{Repository: f.repo, failOn: "CreateContent"}, f.files, testutil.NewLogger())
	_, err := svc.CreateContent(ctx, m.ID, "file", course.ItemPayload{
		Title: "Slides",
		File:  &course.FileUpload{Filename: "slides.pdf", Body: strings.NewReader("%PDF")},
	}, f.owner.ID)
	assert.Equal(t, errBoom, errors.Cause(err))

	_, err = f.repo.GetItem(ctx, course.KindFile, 1)
	assert.True(t, course.IsNotFound(err), "item creation rolled back")
	contents, err := f.repo.QueryContents(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, contents)
	assert.False(t, f.files.has("uploads/slides.pdf"), "upload removed")
}

func TestService_CreateContent_invalidImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := testutil.CreateModule(t, f.repo, f.course, "M", 0)
	f.files.contentType = "application/pdf"

	_, err := f.svc.CreateContent(ctx, m.ID, "image", course.ItemPayload{
		Title: "Not a pic",
		File:  &course.FileUpload{Filename: "doc.pdf", Body: strings.NewReader("%PDF")},
	}, f.owner.ID)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.FieldMap(), "image")
	assert.False(t, f.files.has("uploads/doc.pdf"))
}

func TestService_UpdateContent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := testutil.CreateModule(t, f.repo, f.course, "M", 0)

	created, err := f.svc.CreateContent(ctx, m.ID, "file", course.ItemPayload{
		Title: "Slides",
		File:  &course.FileUpload{Filename: "v1.pdf", Body: strings.NewReader("v1")},
	}, f.owner.ID)
	require.NoError(t, err)

	// keep file
	got, err := f.svc.UpdateContent(ctx, created.ID, course.ItemPayload{Title: "Slides (final)"}, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Slides (final)", got.Item.Base().Title)
	assert.Equal(t, "uploads/v1.pdf", got.Item.(course.FileItem).File.Key)
	assert.Equal(t, created.Order, got.Order)

	// replace file
	got, err = f.svc.UpdateContent(ctx, created.ID, course.ItemPayload{
		Title: "Slides",
		File:  &course.FileUpload{Filename: "v2.pdf", Body: strings.NewReader("v2")},
	}, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "uploads/v2.pdf", got.Item.(course.FileItem).File.Key)
	assert.False(t, f.files.has("uploads/v1.pdf"), "replaced upload removed")
	assert.True(t, f.files.has("uploads/v2.pdf"))

	_, err = f.svc.UpdateContent(ctx, created.ID, course.ItemPayload{Title: "Mine"}, f.other.ID)
	assert.True(t, course.IsNotFound(err))
}

func TestService_DeleteContent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := testutil.CreateModule(t, f.repo, f.course, "M", 0)

	first := testutil.CreateTextContent(t, f.repo, m, f.owner, "first", "1", 0)
	second := testutil.CreateTextContent(t, f.repo, m, f.owner, "second", "2", 1)
	third := testutil.CreateTextContent(t, f.repo, m, f.owner, "third", "3", 2)
	fourth := testutil.CreateTextContent(t, f.repo, m, f.owner, "fourth", "4", 3)

	assert.True(t, course.IsNotFound(f.svc.DeleteContent(ctx, first.ID, f.other.ID)), "not the owner")
	require.NoError(t, f.svc.DeleteContent(ctx, first.ID, f.owner.ID))
	require.NoError(t, f.svc.DeleteContent(ctx, third.ID, f.owner.ID))

	_, err := f.repo.GetContent(ctx, first.ID)
	assert.True(t, course.IsNotFound(err))
	_, err = f.repo.GetItem(ctx, course.KindText, first.ItemID)
	assert.True(t, course.IsNotFound(err), "item deleted with its slot")

	got, err := f.repo.GetContent(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Order, "siblings are not renumbered")

	contents, err := f.svc.ListForModule(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, contents, 2)
	assert.Equal(t, []int64{second.ID, fourth.ID}, []int64{contents[0].ID, contents[1].ID})
	assert.Equal(t, []int{1, 3}, []int{contents[0].Order, contents[1].Order})

	assert.True(t, course.IsNotFound(f.svc.DeleteContent(ctx, first.ID, f.owner.ID)), "already deleted")
}

func TestService_DeleteContent_rollback(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := testutil.CreateModule(t, f.repo, f.course, "M", 0)
	c := testutil.CreateTextContent(t, f.repo, m, f.owner, "first", "1", 0)

	svc := course.NewService(&failingRepo{Repository: f.repo, failOn: "DeleteContent"}, f.files, testutil.NewLogger())
	assert.Equal(t, errBoom, errors.Cause(svc.DeleteContent(ctx, c.ID, f.owner.ID)))

	got, err := f.repo.GetContent(ctx, c.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Item, "item deletion rolled back")
}

func TestService_inconsistentState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := testutil.CreateModule(t, f.repo, f.course, "M", 0)
	c := testutil.CreateTextContent(t, f.repo, m, f.owner, "orphan", "x", 0)
	require.NoError(t, f.repo.DeleteItem(ctx, course.KindText, c.ItemID))

	isInconsistent := func(err error) bool {
		var inc *course.InconsistentStateError
		return errors.As(err, &inc) && inc.ContentID == c.ID && inc.ItemID == c.ItemID && inc.Kind == course.KindText
	}

	_, err := f.svc.ListForModule(ctx, m.ID)
	assert.True(t, isInconsistent(err), "ListForModule: %v", err)

	_, err = f.svc.GetOwnedContent(ctx, c.ID, f.owner.ID)
	assert.True(t, isInconsistent(err), "GetOwnedContent: %v", err)

	err = f.svc.DeleteContent(ctx, c.ID, f.owner.ID)
	assert.True(t, isInconsistent(err), "DeleteContent: %v", err)
	_, err = f.repo.GetContent(ctx, c.ID)
	assert.NoError(t, err, "slot left in place")

	got, err := f.repo.GetContent(ctx, c.ID)
	require.NoError(t, err)
	_, err = course.Render(got)
	assert.True(t, isInconsistent(err), "Render: %v", err)
}

func TestService_DeleteModule(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.CreateModule(ctx, f.course.ID, course.NewModule{Title: "first"}, f.owner.ID)
	require.NoError(t, err)
	second, err := f.svc.CreateModule(ctx, f.course.ID, course.NewModule{Title: "second"}, f.owner.ID)
	require.NoError(t, err)
	c, err := f.svc.CreateContent(ctx, first.ID, "image", course.ItemPayload{
		Title: "Pic",
		File:  &course.FileUpload{Filename: "pic.png", Body: strings.NewReader("png")},
	}, f.owner.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteModule(ctx, first.ID, f.owner.ID))

	_, err = f.repo.GetContent(ctx, c.ID)
	assert.True(t, course.IsNotFound(err))
	_, err = f.repo.GetItem(ctx, course.KindImage, c.ItemID)
	assert.True(t, course.IsNotFound(err))
	assert.False(t, f.files.has("uploads/pic.png"))

	got, err := f.repo.GetModule(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Order)

	// new modules still go after the current maximum
	third, err := f.svc.CreateModule(ctx, f.course.ID, course.NewModule{Title: "third"}, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Order)
}
