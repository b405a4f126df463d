package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/bartventer/elearning-site/core"
)

var (
	errSubjectSlugExists = errors.New("a subject with this slug already exists")
	errCourseSlugExists  = errors.New("a course with this slug already exists")
	errSubjectNotFound   = errors.New("subject does not exist")

	defaultCourseOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
)

type Service struct {
	repo   Repository
	files  FileStore
	logger core.Logger
}

func NewService(repo Repository, files FileStore, logger core.Logger) *Service {
	return &Service{repo: repo, files: files, logger: logger}
}

func (svc *Service) checkSubjectSlug(ctx context.Context, slug string) error {
	_, err := svc.repo.GetSubject(ctx, 0, slug)
	switch {
	case err == nil:
		return core.NewValidationError(errSubjectSlugExists, core.FieldError{Field: "slug", Error: errSubjectSlugExists.Error()})
	case IsNotFound(err):
		return nil
	default:
		return errors.Wrap(err, "finding subject by slug")
	}
}

func (svc *Service) checkCourse(ctx context.Context, subjectID int64, slug string, excludedID int64) error {
	if _, err := svc.repo.GetSubject(ctx, subjectID, ""); err != nil {
		if IsNotFound(err) {
			return core.NewValidationError(errSubjectNotFound, core.FieldError{Field: "subject_id", Error: errSubjectNotFound.Error()})
		}
		return errors.Wrap(err, "finding subject by ID")
	}

	unique, err := svc.repo.CheckCourseSlugUniqueness(ctx, slug, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking course slug uniqueness")
	}
	if !unique {
		return core.NewValidationError(errCourseSlugExists, core.FieldError{Field: "slug", Error: errCourseSlugExists.Error()})
	}
	return nil
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	subj, err := svc.repo.CreateSubject(ctx, Subject{Title: ns.Title, Slug: ns.Slug})
	return subj, errors.Wrap(err, "creating subject")
}

// QuerySubjects returns all subjects ordered by title, with their number of courses.
func (svc *Service) QuerySubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) GetSubject(ctx context.Context, slug string) (Subject, error) {
	return svc.repo.GetSubject(ctx, 0, core.CleanString(slug, true /* lower */))
}

func (svc *Service) GetSubjectByID(ctx context.Context, id int64) (Subject, error) {
	if id <= 0 {
		return Subject{}, ErrNotFound
	}
	return svc.repo.GetSubject(ctx, id, "")
}

// Courses

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse, ownerID string) (Course, error) {
	c, err := svc.repo.CreateCourse(ctx, Course{
		OwnerID:   ownerID,
		SubjectID: nc.SubjectID,
		Title:     nc.Title,
		Slug:      nc.Slug,
		Overview:  nc.Overview,
		CreatedAt: time.Now().UTC(),
	})
	return c, errors.Wrap(err, "creating course")
}

// QueryCourses returns the courses matching filter, newest first unless ordering says otherwise.
func (svc *Service) QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering) ([]Course, error) {
	if len(ordering) == 0 {
		ordering = defaultCourseOrdering
	}
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *Service) withModules(ctx context.Context, c Course) (Course, error) {
	mods, err := svc.repo.QueryModules(ctx, c.ID)
	if err != nil {
		return Course{}, errors.Wrap(err, "querying modules")
	}
	c.Modules = mods
	return c, nil
}

// GetCourse returns a course with its modules.
func (svc *Service) GetCourse(ctx context.Context, id int64) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, CourseFilter{ID: id})
	if err != nil {
		return Course{}, err
	}
	return svc.withModules(ctx, c)
}

// GetOwnedCourse returns a course owned by ownerID with its modules.
func (svc *Service) GetOwnedCourse(ctx context.Context, id int64, ownerID string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, CourseFilter{ID: id, OwnerID: ownerID})
	if err != nil {
		return Course{}, err
	}
	return svc.withModules(ctx, c)
}

func (svc *Service) UpdateCourse(ctx context.Context, id int64, nc NewCourse, ownerID string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, CourseFilter{ID: id, OwnerID: ownerID})
	if err != nil {
		return Course{}, err
	}
	c.SubjectID = nc.SubjectID
	c.Title = nc.Title
	c.Slug = nc.Slug
	c.Overview = nc.Overview

	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

// DeleteCourse deletes a course with its modules, content slots & items.
func (svc *Service) DeleteCourse(ctx context.Context, id int64, ownerID string) error {
	var uploads []string
	err := svc.repo.Tx(ctx, func(repo Repository) error {
		c, err := repo.GetCourse(ctx, CourseFilter{ID: id, OwnerID: ownerID})
		if err != nil {
			return err
		}
		mods, err := repo.QueryModules(ctx, c.ID)
		if err != nil {
			return errors.Wrap(err, "querying modules")
		}
		for _, m := range mods {
			keys, err := deleteModuleTree(ctx, repo, m.ID)
			if err != nil {
				return err
			}
			uploads = append(uploads, keys...)
		}
		return errors.Wrap(repo.DeleteCourse(ctx, c.ID), "deleting course")
	})
	if err != nil {
		return err
	}
	svc.removeUploads(ctx, uploads...)
	return nil
}

// Enroll adds the student to the course's students. Enrolling twice is a no-op.
func (svc *Service) Enroll(ctx context.Context, courseID int64, studentID string) error {
	if _, err := svc.repo.GetCourse(ctx, CourseFilter{ID: courseID}); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.AddStudent(ctx, courseID, studentID), "adding student")
}

// CourseContents returns a course the student is enrolled in, with its ordered modules & their ordered contents.
func (svc *Service) CourseContents(ctx context.Context, courseID int64, studentID string) (Course, error) {
	enrolled, err := svc.repo.IsEnrolled(ctx, courseID, studentID)
	if err != nil {
		return Course{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Course{}, ErrNotFound
	}

	c, err := svc.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	for i, m := range c.Modules {
		if c.Modules[i].Contents, err = svc.ListForModule(ctx, m.ID); err != nil {
			return Course{}, err
		}
	}
	return c, nil
}

// Modules

func ownedModule(ctx context.Context, repo Repository, id int64, ownerID string) (Module, error) {
	m, err := repo.GetModule(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if _, err = repo.GetCourse(ctx, CourseFilter{ID: m.CourseID, OwnerID: ownerID}); err != nil {
		return Module{}, err
	}
	return m, nil
}

// CreateModule appends a module to a course owned by ownerID.
func (svc *Service) CreateModule(ctx context.Context, courseID int64, nm NewModule, ownerID string) (Module, error) {
	var m Module
	err := svc.repo.Tx(ctx, func(repo Repository) error {
		if _, err := repo.GetCourse(ctx, CourseFilter{ID: courseID, OwnerID: ownerID}); err != nil {
			return err
		}

		scope := CourseModules(courseID)
		if err := repo.LockScope(ctx, scope); err != nil {
			return errors.Wrap(err, "locking course modules")
		}
		order, err := NewOrderAssigner(repo).NextOrder(ctx, scope)
		if err != nil {
			return err
		}

		m, err = repo.CreateModule(ctx, Module{
			CourseID:    courseID,
			Title:       nm.Title,
			Description: nm.Description,
			Order:       order,
		})
		return errors.Wrap(err, "creating module")
	})
	return m, err
}

func (svc *Service) GetOwnedModule(ctx context.Context, id int64, ownerID string) (Module, error) {
	return ownedModule(ctx, svc.repo, id, ownerID)
}

// UpdateModule updates a module's title & description. Its course & order are left untouched.
func (svc *Service) UpdateModule(ctx context.Context, id int64, nm NewModule, ownerID string) (Module, error) {
	m, err := ownedModule(ctx, svc.repo, id, ownerID)
	if err != nil {
		return Module{}, err
	}
	m.Title = nm.Title
	m.Description = nm.Description

	m, err = svc.repo.UpdateModule(ctx, m)
	return m, errors.Wrap(err, "updating module")
}

// DeleteModule deletes a module with its content slots & items. The order of its siblings is left untouched.
func (svc *Service) DeleteModule(ctx context.Context, id int64, ownerID string) error {
	var uploads []string
	err := svc.repo.Tx(ctx, func(repo Repository) error {
		if _, err := ownedModule(ctx, repo, id, ownerID); err != nil {
			return err
		}
		keys, err := deleteModuleTree(ctx, repo, id)
		uploads = keys
		return err
	})
	if err != nil {
		return err
	}
	svc.removeUploads(ctx, uploads...)
	return nil
}

// deleteModuleTree deletes a module, its slots & their items. It returns the keys of the uploads to remove.
func deleteModuleTree(ctx context.Context, repo Repository, moduleID int64) ([]string, error) {
	contents, err := repo.QueryContents(ctx, moduleID)
	if err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}

	var uploads []string
	for _, c := range contents {
		if c.Item != nil {
			if up, ok := ItemUpload(c.Item); ok && up.Key != "" {
				uploads = append(uploads, up.Key)
			}
			if err = repo.DeleteItem(ctx, c.Kind, c.ItemID); err != nil {
				return nil, errors.Wrap(err, "deleting item")
			}
		}
		if err = repo.DeleteContent(ctx, c.ID); err != nil {
			return nil, errors.Wrap(err, "deleting content")
		}
	}
	return uploads, errors.Wrap(repo.DeleteModule(ctx, moduleID), "deleting module")
}

// Ordering

// ReorderModules applies a bulk order payload to the modules owned by ownerID.
func (svc *Service) ReorderModules(ctx context.Context, payload []byte, ownerID string) (int, error) {
	return svc.reorder(ctx, EntityModule, payload, ownerID)
}

// ReorderContents applies a bulk order payload to the content slots owned by ownerID.
func (svc *Service) ReorderContents(ctx context.Context, payload []byte, ownerID string) (int, error) {
	return svc.reorder(ctx, EntityContent, payload, ownerID)
}

func (svc *Service) reorder(ctx context.Context, entity Entity, payload []byte, ownerID string) (int, error) {
	updates, err := ParseBulkOrder(payload)
	if err != nil {
		return 0, err
	}
	return NewOrderAssigner(svc.repo).ApplyBulkOrder(ctx, entity, updates, ownerID)
}
