package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/bartventer/elearning-site/core"
	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo course.Repository, title, slug string) course.Subject {
	t.Helper()

	subj, err := repo.CreateSubject(context.Background(), course.Subject{Title: title, Slug: slug})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return subj
}

func CreateCourse(t *testing.T, repo course.Repository, owner user.User, subj course.Subject, title, slug string, createdAt ...time.Time) course.Course {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c, err := repo.CreateCourse(context.Background(), course.Course{
		OwnerID:   owner.ID,
		SubjectID: subj.ID,
		Title:     title,
		Slug:      slug,
		Overview:  title + " overview",
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return c
}

// CreateModule inserts a module at the given order, bypassing order assignment.
func CreateModule(t *testing.T, repo course.Repository, c course.Course, title string, order int) course.Module {
	t.Helper()

	m, err := repo.CreateModule(context.Background(), course.Module{CourseID: c.ID, Title: title, Order: order})
	if err != nil {
		t.Fatalf("createModule() failed: %v", err)
	}
	return m
}

// CreateTextContent inserts a text item & its slot at the given order, bypassing order assignment.
func CreateTextContent(t *testing.T, repo course.Repository, m course.Module, owner user.User, title, text string, order int) course.Content {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	it, err := repo.CreateItem(ctx, course.TextItem{
		ItemBase: course.ItemBase{OwnerID: owner.ID, Title: title, CreatedAt: now, UpdatedAt: now},
		Content:  text,
	})
	if err != nil {
		t.Fatalf("createItem() failed: %v", err)
	}
	c, err := repo.CreateContent(ctx, course.Content{ModuleID: m.ID, Kind: course.KindText, ItemID: it.Base().ID, Order: order})
	if err != nil {
		t.Fatalf("createContent() failed: %v", err)
	}
	c.Item = it
	return c
}

// Logger discards everything it is given.
type Logger struct{ std *log.Logger }

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{std: log.New(io.Discard, "", 0)}
}

func (l Logger) Debug(msg string, args ...interface{}) { l.std.Println(append([]interface{}{msg}, args...)...) }
func (l Logger) Info(msg string, args ...interface{})  { l.std.Println(append([]interface{}{msg}, args...)...) }
func (l Logger) Warn(msg string, args ...interface{})  { l.std.Println(append([]interface{}{msg}, args...)...) }
func (l Logger) Error(msg string, args ...interface{}) { l.std.Println(append([]interface{}{msg}, args...)...) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.std.Println(append([]interface{}{msg}, args...)...) }
