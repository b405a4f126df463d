package inmemdb

import (
	"sync"

	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/core/user"
)

type (
	DB struct {
		user *userTable

		mu     sync.RWMutex
		course *courseState
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	// courseState holds every course related table. Transactions work on a clone of it.
	courseState struct {
		seq      map[string]int64
		subjects map[int64]course.Subject
		courses  map[int64]course.Course
		students map[int64]map[string]bool // {courseID: {studentID}}
		modules  map[int64]course.Module
		contents map[int64]course.Content
		items    map[course.Kind]map[int64]course.Item
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:   &userTable{table: make(map[string]*user.User)},
		course: newCourseState(),
	}
	return db, nil
}

func newCourseState() *courseState {
	st := &courseState{
		seq:      make(map[string]int64),
		subjects: make(map[int64]course.Subject),
		courses:  make(map[int64]course.Course),
		students: make(map[int64]map[string]bool),
		modules:  make(map[int64]course.Module),
		contents: make(map[int64]course.Content),
		items:    make(map[course.Kind]map[int64]course.Item, len(course.Kinds)),
	}
	for _, k := range course.Kinds {
		st.items[k] = make(map[int64]course.Item)
	}
	return st
}

func (st *courseState) nextID(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

func (st *courseState) clone() *courseState {
	cl := newCourseState()
	for k, v := range st.seq {
		cl.seq[k] = v
	}
	for k, v := range st.subjects {
		cl.subjects[k] = v
	}
	for k, v := range st.courses {
		cl.courses[k] = v
	}
	for k, v := range st.students {
		set := make(map[string]bool, len(v))
		for s := range v {
			set[s] = true
		}
		cl.students[k] = set
	}
	for k, v := range st.modules {
		cl.modules[k] = v
	}
	for k, v := range st.contents {
		cl.contents[k] = v
	}
	for kind, tbl := range st.items {
		for k, v := range tbl {
			cl.items[kind][k] = v
		}
	}
	return cl
}
