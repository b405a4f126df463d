package course

import (
	"context"
	"io"

	"github.com/bartventer/elearning-site/core"
)

type (
	// Repository persists subjects, courses, modules, content slots & items.
	// Single entity lookups return ErrNotFound when nothing matches.
	Repository interface {
		// Tx runs fn in a transaction: every change made through the Repository passed to fn is
		// committed if fn returns nil and rolled back otherwise. Nested calls join the outer transaction.
		Tx(ctx context.Context, fn func(repo Repository) error) error
		// LockScope blocks other transactions from creating entities in scope until the current transaction ends.
		// It is a no-op outside a transaction.
		LockScope(ctx context.Context, scope Scope) error
		// MaxOrder returns the highest order in scope; ok is false if the scope is empty.
		MaxOrder(ctx context.Context, scope Scope) (max int, ok bool, err error)
		// SetOwnedOrder sets the order of an entity whose course is owned by ownerID.
		// It reports whether a row was updated.
		SetOwnedOrder(ctx context.Context, entity Entity, id int64, order int, ownerID string) (bool, error)

		CreateSubject(ctx context.Context, subj Subject) (Subject, error)
		QuerySubjects(ctx context.Context) ([]Subject, error)
		GetSubject(ctx context.Context, id int64, slug string) (Subject, error)

		CheckCourseSlugUniqueness(ctx context.Context, slug string, excludedID int64) (bool, error)
		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, filter CourseFilter) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id int64) error
		AddStudent(ctx context.Context, courseID int64, studentID string) error
		IsEnrolled(ctx context.Context, courseID int64, studentID string) (bool, error)

		CreateModule(ctx context.Context, m Module) (Module, error)
		QueryModules(ctx context.Context, courseID int64) ([]Module, error)
		GetModule(ctx context.Context, id int64) (Module, error)
		UpdateModule(ctx context.Context, m Module) (Module, error)
		DeleteModule(ctx context.Context, id int64) error

		CreateItem(ctx context.Context, it Item) (Item, error)
		// GetItem looks up an item row on its own, without its slot.
		// Service reads items through their slots; this serves tests & repair tooling.
		GetItem(ctx context.Context, kind Kind, id int64) (Item, error)
		UpdateItem(ctx context.Context, it Item) (Item, error)
		DeleteItem(ctx context.Context, kind Kind, id int64) error

		CreateContent(ctx context.Context, c Content) (Content, error)
		// GetContent returns the slot with its item resolved; Item is nil if the item is missing.
		GetContent(ctx context.Context, id int64) (Content, error)
		// QueryContents returns the module's slots sorted by order with their items resolved.
		QueryContents(ctx context.Context, moduleID int64) ([]Content, error)
		DeleteContent(ctx context.Context, id int64) error
	}

	// FileStore stores uploaded files.
	FileStore interface {
		// Save stores the content of r and returns where it can be fetched from.
		// Upload.ContentType is detected from the content.
		Save(ctx context.Context, filename string, r io.Reader) (Upload, error)
		Remove(ctx context.Context, key string) error
	}
)
