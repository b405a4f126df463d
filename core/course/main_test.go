package course_test

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/core/user"
	inmemdb "github.com/bartventer/elearning-site/storage/database/inmem"
	"github.com/bartventer/elearning-site/tests"
)

var errBoom = errors.New("boom")

type fixture struct {
	repo       course.Repository
	usrRepo    user.Repository
	files      *memStore
	svc        *course.Service
	owner      user.User
	other      user.User
	subj       course.Subject
	course     course.Course
	otherCourse course.Course
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)

	f := &fixture{
		repo:    inmemdb.NewCourseRepository(db),
		usrRepo: inmemdb.NewUserRepository(db),
		files:   newMemStore(),
	}
	f.svc = course.NewService(f.repo, f.files, testutil.NewLogger())
	f.owner = testutil.CreateUser(t, f.usrRepo, "Owner", "owner", "owner@test.cd", "pwd", user.InstructorRoles, true)
	f.other = testutil.CreateUser(t, f.usrRepo, "Other", "other", "other@test.cd", "pwd", user.InstructorRoles, true)
	f.subj = testutil.CreateSubject(t, f.repo, "Programming", "programming")
	f.course = testutil.CreateCourse(t, f.repo, f.owner, f.subj, "Go 101", "go-101")
	f.otherCourse = testutil.CreateCourse(t, f.repo, f.other, f.subj, "Rust 101", "rust-101")
	return f
}

// memStore is a course.FileStore keeping files in memory.
type memStore struct {
	mu          sync.Mutex
	files       map[string][]byte
	contentType string
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte), contentType: "image/png"}
}

func (s *memStore) Save(_ context.Context, filename string, r io.Reader) (course.Upload, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return course.Upload{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := "uploads/" + filename
	s.files[key] = buf.Bytes()
	return course.Upload{Key: key, URL: "/media/" + key, ContentType: s.contentType}, nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok
}

// failingRepo fails the named operation, including inside transactions.
type failingRepo struct {
	course.Repository
	failOn string
}

func (r *failingRepo) Tx(ctx context.Context, fn func(repo course.Repository) error) error {
	return r.Repository.Tx(ctx, func(inner course.Repository) error {
		return fn(&failingRepo{Repository: inner, failOn: r.failOn})
	})
}

func (r *failingRepo) CreateContent(ctx context.Context, c course.Content) (course.Content, error) {
	if r.failOn == "CreateContent" {
		return course.Content{}, errBoom
	}
	return r.Repository.CreateContent(ctx, c)
}

func (r *failingRepo) DeleteContent(ctx context.Context, id int64) error {
	if r.failOn == "DeleteContent" {
		return errBoom
	}
	return r.Repository.DeleteContent(ctx, id)
}

func (r *failingRepo) SetOwnedOrder(ctx context.Context, entity course.Entity, id int64, order int, ownerID string) (bool, error) {
	if r.failOn == "SetOwnedOrder" && id == 2 {
		return false, errBoom
	}
	return r.Repository.SetOwnedOrder(ctx, entity, id, order, ownerID)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
