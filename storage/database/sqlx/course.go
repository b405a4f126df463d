package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/bartventer/elearning-site/core"
	"github.com/bartventer/elearning-site/core/course"
)

var (
	courseColumns = []string{
		"c.id", "c.owner_id", "c.subject_id", "c.title", "c.slug", "c.overview", "c.created_at",
		"(SELECT COUNT(*) FROM modules m WHERE m.course_id = c.id) AS total_modules",
	}
	moduleColumns = []string{"id", "course_id", "title", "description", `"order"`}

	// API ordering fields => columns
	courseOrderingColumns = map[string]string{
		"created_at": "c.created_at",
		"title":      "c.title",
	}
)

type courseRow struct {
	ID           int64     `db:"id"`
	OwnerID      string    `db:"owner_id"`
	SubjectID    int64     `db:"subject_id"`
	Title        string    `db:"title"`
	Slug         string    `db:"slug"`
	Overview     string    `db:"overview"`
	CreatedAt    time.Time `db:"created_at"`
	TotalModules int       `db:"total_modules"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		SubjectID:    r.SubjectID,
		Title:        r.Title,
		Slug:         r.Slug,
		Overview:     r.Overview,
		CreatedAt:    r.CreatedAt.UTC(),
		TotalModules: r.TotalModules,
	}
}

type moduleRow struct {
	ID          int64  `db:"id"`
	CourseID    int64  `db:"course_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Order       int    `db:"order"`
}

func (r moduleRow) module() course.Module {
	return course.Module{ID: r.ID, CourseID: r.CourseID, Title: r.Title, Description: r.Description, Order: r.Order}
}

type courseRepository struct {
	db   *sqlx.DB
	exec sqlx.ExtContext // db, or tx inside Tx
	tx   *sqlx.Tx
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db, exec: db}
}

// isUUID reports whether s can be compared to a uuid column.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func (repo *courseRepository) get(ctx context.Context, dest interface{}, qb sq.Sqlizer, msg string) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return trapNoRowsErr(sqlx.GetContext(ctx, repo.exec, dest, query, args...), course.ErrNotFound, msg)
}

func (repo *courseRepository) selectRows(ctx context.Context, dest interface{}, qb sq.Sqlizer, msg string) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return errors.Wrap(sqlx.SelectContext(ctx, repo.exec, dest, query, args...), msg)
}

// execAffected runs a statement and returns the number of affected rows.
func (repo *courseRepository) execAffected(ctx context.Context, qb sq.Sqlizer, msg string) (int64, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, msg)
}

func (repo *courseRepository) delete(ctx context.Context, table string, id int64) error {
	n, err := repo.execAffected(ctx, psql.Delete(table).Where(sq.Eq{"id": id}), "deleting from "+table)
	if err != nil {
		return err
	}
	if n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) Tx(ctx context.Context, fn func(repo course.Repository) error) error {
	if repo.tx != nil {
		return fn(repo)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(&courseRepository{db: repo.db, exec: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func scopeTables(entity course.Entity) (table, parentTable, parentColumn string, err error) {
	switch entity {
	case course.EntityModule:
		return "modules", "courses", "course_id", nil
	case course.EntityContent:
		return "contents", "modules", "module_id", nil
	default:
		return "", "", "", errors.Errorf("unknown entity %q", entity)
	}
}

// LockScope locks the parent row of scope until the transaction ends.
func (repo *courseRepository) LockScope(ctx context.Context, scope course.Scope) error {
	if repo.tx == nil {
		return nil
	}
	_, parentTable, _, err := scopeTables(scope.Entity)
	if err != nil {
		return err
	}
	var id int64
	return repo.get(ctx, &id,
		psql.Select("id").From(parentTable).Where(sq.Eq{"id": scope.ParentID}).Suffix("FOR UPDATE"),
		"locking "+parentTable+" row")
}

func (repo *courseRepository) MaxOrder(ctx context.Context, scope course.Scope) (int, bool, error) {
	table, _, parentColumn, err := scopeTables(scope.Entity)
	if err != nil {
		return 0, false, err
	}
	var max null.Int
	err = repo.get(ctx, &max,
		psql.Select(`MAX("order")`).From(table).Where(sq.Eq{parentColumn: scope.ParentID}),
		"getting max order")
	if err != nil {
		return 0, false, err
	}
	return max.Int, max.Valid, nil
}

func (repo *courseRepository) SetOwnedOrder(ctx context.Context, entity course.Entity, id int64, order int, ownerID string) (bool, error) {
	if !isUUID(ownerID) {
		return false, nil
	}

	var owned sq.Sqlizer
	switch entity {
	case course.EntityModule:
		owned = sq.Expr("course_id IN (SELECT id FROM courses WHERE owner_id = ?)", ownerID)
	case course.EntityContent:
		owned = sq.Expr(
			"module_id IN (SELECT m.id FROM modules m JOIN courses c ON c.id = m.course_id WHERE c.owner_id = ?)",
			ownerID)
	}
	table, _, _, err := scopeTables(entity)
	if err != nil {
		return false, err
	}

	n, err := repo.execAffected(ctx,
		psql.Update(table).Set(`"order"`, order).Where(sq.Eq{"id": id}).Where(owned),
		"setting order")
	return n > 0, err
}

// Subjects

func (repo *courseRepository) subjectsQuery() sq.SelectBuilder {
	return psql.Select("s.id", "s.title", "s.slug", "COUNT(c.id) AS total_courses").
		From("subjects s").
		LeftJoin("courses c ON c.subject_id = s.id").
		GroupBy("s.id")
}

type subjectRow struct {
	ID           int64  `db:"id"`
	Title        string `db:"title"`
	Slug         string `db:"slug"`
	TotalCourses int    `db:"total_courses"`
}

func (r subjectRow) subject() course.Subject {
	return course.Subject{ID: r.ID, Title: r.Title, Slug: r.Slug, TotalCourses: r.TotalCourses}
}

func (repo *courseRepository) CreateSubject(ctx context.Context, subj course.Subject) (course.Subject, error) {
	err := repo.get(ctx, &subj.ID,
		psql.Insert("subjects").Columns("title", "slug").Values(subj.Title, subj.Slug).Suffix("RETURNING id"),
		"inserting subject")
	subj.TotalCourses = 0
	return subj, err
}

func (repo *courseRepository) QuerySubjects(ctx context.Context) ([]course.Subject, error) {
	var rows []subjectRow
	if err := repo.selectRows(ctx, &rows, repo.subjectsQuery().OrderBy("s.title", "s.id"), "querying subjects"); err != nil {
		return nil, err
	}
	subjects := make([]course.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.subject())
	}
	return subjects, nil
}

func (repo *courseRepository) GetSubject(ctx context.Context, id int64, slug string) (course.Subject, error) {
	qb := repo.subjectsQuery()
	switch {
	case id != 0:
		qb = qb.Where(sq.Eq{"s.id": id})
	case slug != "":
		qb = qb.Where(sq.Eq{"s.slug": slug})
	default:
		return course.Subject{}, course.ErrNotFound
	}
	var r subjectRow
	if err := repo.get(ctx, &r, qb, "getting subject"); err != nil {
		return course.Subject{}, err
	}
	return r.subject(), nil
}

// Courses

func (repo *courseRepository) coursesQuery(filter course.CourseFilter) (sq.SelectBuilder, bool) {
	qb := psql.Select(courseColumns...).From("courses c")
	if filter.ID != 0 {
		qb = qb.Where(sq.Eq{"c.id": filter.ID})
	}
	if filter.Slug != "" {
		qb = qb.Where(sq.Eq{"c.slug": filter.Slug})
	}
	if filter.OwnerID != "" {
		if !isUUID(filter.OwnerID) {
			return qb, false
		}
		qb = qb.Where(sq.Eq{"c.owner_id": filter.OwnerID})
	}
	if filter.SubjectID != 0 {
		qb = qb.Where(sq.Eq{"c.subject_id": filter.SubjectID})
	}
	if filter.StudentID != "" {
		if !isUUID(filter.StudentID) {
			return qb, false
		}
		qb = qb.Where("c.id IN (SELECT course_id FROM course_students WHERE student_id = ?)", filter.StudentID)
	}
	return qb, true
}

func (repo *courseRepository) CheckCourseSlugUniqueness(ctx context.Context, slug string, excludedID int64) (bool, error) {
	var exists bool
	err := repo.get(ctx, &exists,
		psql.Select("1").From("courses").Where(sq.Eq{"slug": slug}).Where(sq.NotEq{"id": excludedID}).
			Prefix("SELECT EXISTS(").Suffix(")"),
		"checking course slug uniqueness")
	return !exists, err
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.CreatedAt = c.CreatedAt.UTC()
	err := repo.get(ctx, &c.ID,
		psql.Insert("courses").
			Columns("owner_id", "subject_id", "title", "slug", "overview", "created_at").
			Values(c.OwnerID, c.SubjectID, c.Title, c.Slug, c.Overview, c.CreatedAt).
			Suffix("RETURNING id"),
		"inserting course")
	c.Modules = nil
	c.TotalModules = 0
	return c, err
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.CourseFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	qb, ok := repo.coursesQuery(filter)
	if !ok {
		return []course.Course{}, nil
	}
	for _, ord := range ordering {
		if col, ok := courseOrderingColumns[ord.Field]; ok {
			qb = qb.OrderBy(core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	qb = qb.OrderBy("c.id")

	var rows []courseRow
	if err := repo.selectRows(ctx, &rows, qb, "querying courses"); err != nil {
		return nil, err
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.CourseFilter) (course.Course, error) {
	qb, ok := repo.coursesQuery(filter)
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	var r courseRow
	if err := repo.get(ctx, &r, qb.Limit(1), "getting course"); err != nil {
		return course.Course{}, err
	}
	return r.course(), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	n, err := repo.execAffected(ctx,
		psql.Update("courses").SetMap(map[string]interface{}{
			"subject_id": c.SubjectID,
			"title":      c.Title,
			"slug":       c.Slug,
			"overview":   c.Overview,
		}).Where(sq.Eq{"id": c.ID}),
		"updating course")
	if err != nil {
		return course.Course{}, err
	}
	if n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, course.CourseFilter{ID: c.ID})
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int64) error {
	return repo.delete(ctx, "courses", id)
}

func (repo *courseRepository) AddStudent(ctx context.Context, courseID int64, studentID string) error {
	if !isUUID(studentID) {
		return errors.Errorf("invalid student id %q", studentID)
	}
	_, err := repo.execAffected(ctx,
		psql.Insert("course_students").Columns("course_id", "student_id").Values(courseID, studentID).
			Suffix("ON CONFLICT DO NOTHING"),
		"adding student")
	return err
}

func (repo *courseRepository) IsEnrolled(ctx context.Context, courseID int64, studentID string) (bool, error) {
	if !isUUID(studentID) {
		return false, nil
	}
	var enrolled bool
	err := repo.get(ctx, &enrolled,
		psql.Select("1").From("course_students").
			Where(sq.Eq{"course_id": courseID, "student_id": studentID}).
			Prefix("SELECT EXISTS(").Suffix(")"),
		"checking enrollment")
	return enrolled, err
}

// Modules

func (repo *courseRepository) CreateModule(ctx context.Context, m course.Module) (course.Module, error) {
	err := repo.get(ctx, &m.ID,
		psql.Insert("modules").
			Columns("course_id", "title", "description", `"order"`).
			Values(m.CourseID, m.Title, m.Description, m.Order).
			Suffix("RETURNING id"),
		"inserting module")
	m.Contents = nil
	return m, err
}

func (repo *courseRepository) QueryModules(ctx context.Context, courseID int64) ([]course.Module, error) {
	var rows []moduleRow
	err := repo.selectRows(ctx, &rows,
		psql.Select(moduleColumns...).From("modules").Where(sq.Eq{"course_id": courseID}).OrderBy(`"order"`, "id"),
		"querying modules")
	if err != nil {
		return nil, err
	}
	mods := make([]course.Module, 0, len(rows))
	for _, r := range rows {
		mods = append(mods, r.module())
	}
	return mods, nil
}

func (repo *courseRepository) GetModule(ctx context.Context, id int64) (course.Module, error) {
	var r moduleRow
	if err := repo.get(ctx, &r, psql.Select(moduleColumns...).From("modules").Where(sq.Eq{"id": id}), "getting module"); err != nil {
		return course.Module{}, err
	}
	return r.module(), nil
}

func (repo *courseRepository) UpdateModule(ctx context.Context, m course.Module) (course.Module, error) {
	var r moduleRow
	err := repo.get(ctx, &r,
		psql.Update("modules").
			Set("title", m.Title).
			Set("description", m.Description).
			Where(sq.Eq{"id": m.ID}).
			Suffix("RETURNING "+joinColumns([]string{"id", "course_id", "title", "description", "order"})),
		"updating module")
	if err != nil {
		return course.Module{}, err
	}
	return r.module(), nil
}

func (repo *courseRepository) DeleteModule(ctx context.Context, id int64) error {
	return repo.delete(ctx, "modules", id)
}
