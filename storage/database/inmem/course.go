package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/bartventer/elearning-site/core"
	"github.com/bartventer/elearning-site/core/course"
)

type courseRepository struct {
	db *DB
	tx *courseState // set inside Tx
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) read(fn func(st *courseState) error) error {
	if repo.tx != nil {
		return fn(repo.tx)
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return fn(repo.db.course)
}

func (repo *courseRepository) write(fn func(st *courseState) error) error {
	if repo.tx != nil {
		return fn(repo.tx)
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return fn(repo.db.course)
}

// Tx serializes transactions: it holds the DB write lock while fn runs on a clone of the state,
// which replaces the state only if fn succeeds.
func (repo *courseRepository) Tx(ctx context.Context, fn func(repo course.Repository) error) error {
	if repo.tx != nil {
		return fn(repo)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	st := repo.db.course.clone()
	if err := fn(&courseRepository{db: repo.db, tx: st}); err != nil {
		return err
	}
	repo.db.course = st
	return nil
}

func (repo *courseRepository) LockScope(context.Context, course.Scope) error {
	return nil // transactions are serialized
}

func (repo *courseRepository) MaxOrder(_ context.Context, scope course.Scope) (max int, ok bool, err error) {
	err = repo.read(func(st *courseState) error {
		switch scope.Entity {
		case course.EntityModule:
			for _, m := range st.modules {
				if m.CourseID == scope.ParentID && (!ok || m.Order > max) {
					max, ok = m.Order, true
				}
			}
		case course.EntityContent:
			for _, c := range st.contents {
				if c.ModuleID == scope.ParentID && (!ok || c.Order > max) {
					max, ok = c.Order, true
				}
			}
		default:
			return errors.Errorf("unknown entity %q", scope.Entity)
		}
		return nil
	})
	return max, ok, err
}

func (st *courseState) moduleOwnedBy(moduleID int64, ownerID string) bool {
	m, ok := st.modules[moduleID]
	if !ok {
		return false
	}
	c, ok := st.courses[m.CourseID]
	return ok && c.OwnerID == ownerID
}

func (repo *courseRepository) SetOwnedOrder(_ context.Context, entity course.Entity, id int64, order int, ownerID string) (bool, error) {
	var updated bool
	err := repo.write(func(st *courseState) error {
		switch entity {
		case course.EntityModule:
			if st.moduleOwnedBy(id, ownerID) {
				m := st.modules[id]
				m.Order = order
				st.modules[id] = m
				updated = true
			}
		case course.EntityContent:
			if c, ok := st.contents[id]; ok && st.moduleOwnedBy(c.ModuleID, ownerID) {
				c.Order = order
				st.contents[id] = c
				updated = true
			}
		default:
			return errors.Errorf("unknown entity %q", entity)
		}
		return nil
	})
	return updated, err
}

// Subjects

func (st *courseState) subjectWithTotals(subj course.Subject) course.Subject {
	subj.TotalCourses = 0
	for _, c := range st.courses {
		if c.SubjectID == subj.ID {
			subj.TotalCourses++
		}
	}
	return subj
}

func (repo *courseRepository) CreateSubject(_ context.Context, subj course.Subject) (course.Subject, error) {
	err := repo.write(func(st *courseState) error {
		subj.ID = st.nextID("subjects")
		subj.TotalCourses = 0
		st.subjects[subj.ID] = subj
		return nil
	})
	return subj, err
}

func (repo *courseRepository) QuerySubjects(context.Context) ([]course.Subject, error) {
	var subjects []course.Subject
	err := repo.read(func(st *courseState) error {
		subjects = make([]course.Subject, 0, len(st.subjects))
		for _, subj := range st.subjects {
			subjects = append(subjects, st.subjectWithTotals(subj))
		}
		return nil
	})
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Title == subjects[j].Title {
			return subjects[i].ID < subjects[j].ID
		}
		return subjects[i].Title < subjects[j].Title
	})
	return subjects, err
}

func (repo *courseRepository) GetSubject(_ context.Context, id int64, slug string) (course.Subject, error) {
	var found course.Subject
	err := repo.read(func(st *courseState) error {
		for _, subj := range st.subjects {
			if (id != 0 && subj.ID == id) || (id == 0 && slug != "" && subj.Slug == slug) {
				found = st.subjectWithTotals(subj)
				return nil
			}
		}
		return course.ErrNotFound
	})
	return found, err
}

// Courses

func (st *courseState) courseWithTotals(c course.Course) course.Course {
	c.Modules = nil
	c.TotalModules = 0
	for _, m := range st.modules {
		if m.CourseID == c.ID {
			c.TotalModules++
		}
	}
	return c
}

func (st *courseState) courseMatches(c course.Course, filter course.CourseFilter) bool {
	if filter.ID != 0 && c.ID != filter.ID {
		return false
	}
	if filter.Slug != "" && c.Slug != filter.Slug {
		return false
	}
	if filter.OwnerID != "" && c.OwnerID != filter.OwnerID {
		return false
	}
	if filter.SubjectID != 0 && c.SubjectID != filter.SubjectID {
		return false
	}
	if filter.StudentID != "" && !st.students[c.ID][filter.StudentID] {
		return false
	}
	return true
}

func (repo *courseRepository) CheckCourseSlugUniqueness(_ context.Context, slug string, excludedID int64) (bool, error) {
	unique := true
	err := repo.read(func(st *courseState) error {
		for _, c := range st.courses {
			if c.Slug == slug && c.ID != excludedID {
				unique = false
				break
			}
		}
		return nil
	})
	return unique, err
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	err := repo.write(func(st *courseState) error {
		c.ID = st.nextID("courses")
		c.Modules = nil
		c.TotalModules = 0
		st.courses[c.ID] = c
		return nil
	})
	return c, err
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.CourseFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var courses []course.Course
	err := repo.read(func(st *courseState) error {
		courses = make([]course.Course, 0)
		for _, c := range st.courses {
			if st.courseMatches(c, filter) {
				courses = append(courses, st.courseWithTotals(c))
			}
		}
		return nil
	})
	sortCourses(courses, ordering)
	return courses, err
}

func sortCourses(courses []course.Course, ordering []core.DBOrdering) {
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "created_at":
				switch {
				case a.CreatedAt.Before(b.CreatedAt):
					cmp = -1
				case a.CreatedAt.After(b.CreatedAt):
					cmp = 1
				}
			case "title":
				cmp = strings.Compare(a.Title, b.Title)
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return a.ID < b.ID
	})
}

func (repo *courseRepository) GetCourse(_ context.Context, filter course.CourseFilter) (course.Course, error) {
	var found course.Course
	err := repo.read(func(st *courseState) error {
		if filter.ID != 0 {
			if c, ok := st.courses[filter.ID]; ok && st.courseMatches(c, filter) {
				found = st.courseWithTotals(c)
				return nil
			}
			return course.ErrNotFound
		}
		for _, c := range st.courses {
			if st.courseMatches(c, filter) {
				found = st.courseWithTotals(c)
				return nil
			}
		}
		return course.ErrNotFound
	})
	return found, err
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	err := repo.write(func(st *courseState) error {
		orig, ok := st.courses[c.ID]
		if !ok {
			return course.ErrNotFound
		}
		orig.SubjectID = c.SubjectID
		orig.Title = c.Title
		orig.Slug = c.Slug
		orig.Overview = c.Overview
		st.courses[c.ID] = orig
		c = st.courseWithTotals(orig)
		return nil
	})
	return c, err
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id int64) error {
	return repo.write(func(st *courseState) error {
		if _, ok := st.courses[id]; !ok {
			return course.ErrNotFound
		}
		delete(st.courses, id)
		delete(st.students, id)
		return nil
	})
}

func (repo *courseRepository) AddStudent(_ context.Context, courseID int64, studentID string) error {
	return repo.write(func(st *courseState) error {
		if _, ok := st.courses[courseID]; !ok {
			return course.ErrNotFound
		}
		if st.students[courseID] == nil {
			st.students[courseID] = make(map[string]bool)
		}
		st.students[courseID][studentID] = true
		return nil
	})
}

func (repo *courseRepository) IsEnrolled(_ context.Context, courseID int64, studentID string) (bool, error) {
	var enrolled bool
	err := repo.read(func(st *courseState) error {
		enrolled = st.students[courseID][studentID]
		return nil
	})
	return enrolled, err
}

// Modules

func (repo *courseRepository) CreateModule(_ context.Context, m course.Module) (course.Module, error) {
	err := repo.write(func(st *courseState) error {
		if _, ok := st.courses[m.CourseID]; !ok {
			return errors.Errorf("course %d does not exist", m.CourseID)
		}
		m.ID = st.nextID("modules")
		m.Contents = nil
		st.modules[m.ID] = m
		return nil
	})
	return m, err
}

func (repo *courseRepository) QueryModules(_ context.Context, courseID int64) ([]course.Module, error) {
	var mods []course.Module
	err := repo.read(func(st *courseState) error {
		mods = make([]course.Module, 0)
		for _, m := range st.modules {
			if m.CourseID == courseID {
				mods = append(mods, m)
			}
		}
		return nil
	})
	sort.Slice(mods, func(i, j int) bool {
		if mods[i].Order == mods[j].Order {
			return mods[i].ID < mods[j].ID
		}
		return mods[i].Order < mods[j].Order
	})
	return mods, err
}

func (repo *courseRepository) GetModule(_ context.Context, id int64) (course.Module, error) {
	var m course.Module
	err := repo.read(func(st *courseState) error {
		var ok bool
		if m, ok = st.modules[id]; !ok {
			return course.ErrNotFound
		}
		return nil
	})
	return m, err
}

func (repo *courseRepository) UpdateModule(_ context.Context, m course.Module) (course.Module, error) {
	err := repo.write(func(st *courseState) error {
		orig, ok := st.modules[m.ID]
		if !ok {
			return course.ErrNotFound
		}
		orig.Title = m.Title
		orig.Description = m.Description
		st.modules[m.ID] = orig
		m = orig
		return nil
	})
	return m, err
}

func (repo *courseRepository) DeleteModule(_ context.Context, id int64) error {
	return repo.write(func(st *courseState) error {
		if _, ok := st.modules[id]; !ok {
			return course.ErrNotFound
		}
		delete(st.modules, id)
		return nil
	})
}

// Items

func (repo *courseRepository) CreateItem(_ context.Context, it course.Item) (course.Item, error) {
	err := repo.write(func(st *courseState) error {
		tbl, ok := st.items[it.Kind()]
		if !ok {
			return &course.UnknownKindError{Kind: string(it.Kind())}
		}
		base := it.Base()
		base.ID = st.nextID(string(it.Kind()) + "_items")
		it = course.WithBase(it, base)
		tbl[base.ID] = it
		return nil
	})
	return it, err
}

func (repo *courseRepository) GetItem(_ context.Context, kind course.Kind, id int64) (course.Item, error) {
	var it course.Item
	err := repo.read(func(st *courseState) error {
		var ok bool
		if it, ok = st.items[kind][id]; !ok {
			return course.ErrNotFound
		}
		return nil
	})
	return it, err
}

func (repo *courseRepository) UpdateItem(_ context.Context, it course.Item) (course.Item, error) {
	err := repo.write(func(st *courseState) error {
		orig, ok := st.items[it.Kind()][it.Base().ID]
		if !ok {
			return course.ErrNotFound
		}
		// owner & creation time are immutable
		base := it.Base()
		base.OwnerID = orig.Base().OwnerID
		base.CreatedAt = orig.Base().CreatedAt
		it = course.WithBase(it, base)
		st.items[it.Kind()][base.ID] = it
		return nil
	})
	return it, err
}

func (repo *courseRepository) DeleteItem(_ context.Context, kind course.Kind, id int64) error {
	return repo.write(func(st *courseState) error {
		if _, ok := st.items[kind][id]; !ok {
			return course.ErrNotFound
		}
		delete(st.items[kind], id)
		return nil
	})
}

// Contents

func (st *courseState) resolve(c course.Content) course.Content {
	c.Item = st.items[c.Kind][c.ItemID] // nil if missing
	return c
}

func (repo *courseRepository) CreateContent(_ context.Context, c course.Content) (course.Content, error) {
	err := repo.write(func(st *courseState) error {
		if _, ok := st.modules[c.ModuleID]; !ok {
			return errors.Errorf("module %d does not exist", c.ModuleID)
		}
		c.ID = st.nextID("contents")
		c.Item = nil
		st.contents[c.ID] = c
		return nil
	})
	return c, err
}

func (repo *courseRepository) GetContent(_ context.Context, id int64) (course.Content, error) {
	var c course.Content
	err := repo.read(func(st *courseState) error {
		orig, ok := st.contents[id]
		if !ok {
			return course.ErrNotFound
		}
		c = st.resolve(orig)
		return nil
	})
	return c, err
}

func (repo *courseRepository) QueryContents(_ context.Context, moduleID int64) ([]course.Content, error) {
	var contents []course.Content
	err := repo.read(func(st *courseState) error {
		contents = make([]course.Content, 0)
		for _, c := range st.contents {
			if c.ModuleID == moduleID {
				contents = append(contents, st.resolve(c))
			}
		}
		return nil
	})
	sort.Slice(contents, func(i, j int) bool {
		if contents[i].Order == contents[j].Order {
			return contents[i].ID < contents[j].ID
		}
		return contents[i].Order < contents[j].Order
	})
	return contents, err
}

func (repo *courseRepository) DeleteContent(_ context.Context, id int64) error {
	return repo.write(func(st *courseState) error {
		if _, ok := st.contents[id]; !ok {
			return course.ErrNotFound
		}
		delete(st.contents, id)
		return nil
	})
}
