package course

import (
	"context"
	"html/template"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bartventer/elearning-site/core"
)

type Subject struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	TotalCourses int    `json:"total_courses"`
}

type NewSubject struct {
	Title string `json:"title" validate:"required,notblank,max=200"`
	Slug  string `json:"slug" validate:"required,slug,max=200"`
}

func (ns *NewSubject) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Slug = core.CleanString(ns.Slug, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkSubjectSlug(ctx, ns.Slug)
}

type Course struct {
	ID           int64     `json:"id"`
	OwnerID      string    `json:"owner_id"`
	SubjectID    int64     `json:"subject_id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Overview     string    `json:"overview"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	TotalModules int       `json:"total_modules"`
	Modules      []Module  `json:"modules,omitempty"`
}

// NewCourse contains information needed to create or replace a Course.
type NewCourse struct {
	SubjectID int64  `json:"subject_id" validate:"required,gt=0"`
	Title     string `json:"title" validate:"required,notblank,max=200"`
	Slug      string `json:"slug" validate:"required,slug,max=200"`
	Overview  string `json:"overview" validate:"required,notblank"`
}

// Validate cleans & validates nc. excludedID is the ID of the Course being updated, if any.
func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc *Service, excludedID ...int64) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	nc.Overview = core.CleanString(nc.Overview)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	var exclID int64
	if len(excludedID) > 0 {
		exclID = excludedID[0]
	}
	return svc.checkCourse(ctx, nc.SubjectID, nc.Slug, exclID)
}

// CourseFilter selects courses; zero-valued fields are ignored.
type CourseFilter struct {
	ID        int64
	Slug      string
	OwnerID   string
	SubjectID int64
	StudentID string // courses the student is enrolled in
}

type Module struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	Contents    []Content `json:"contents,omitempty"`
}

// NewModule contains information needed to create or update a Module.
// A Module's order is never set from it.
type NewModule struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

// Content is an ordered slot of a Module referencing exactly one Item.
type Content struct {
	ID       int64 `json:"id"`
	ModuleID int64 `json:"module_id"`
	Kind     Kind  `json:"kind"`
	ItemID   int64 `json:"item_id"`
	Order    int   `json:"order"`
	Item     Item  `json:"item"`
}

// Render renders the referenced item.
func (c Content) Render() (template.HTML, error) {
	if c.Item == nil {
		return "", &InconsistentStateError{ContentID: c.ID, Kind: c.Kind, ItemID: c.ItemID}
	}
	return c.Item.Render()
}

// RenderedContent is a Content with its item's HTML.
type RenderedContent struct {
	Content
	HTML template.HTML `json:"html"`
}

// FileUpload is a file submitted with an ItemPayload.
type FileUpload struct {
	Filename string
	Body     io.Reader
}

// ItemPayload contains the user editable fields of an item. Which fields are used depends on its Kind:
// text => Content, video => URL, file & image => File.
type ItemPayload struct {
	Title   string      `json:"title" validate:"required,notblank,max=250"`
	Content string      `json:"content"`
	URL     string      `json:"url"`
	File    *FileUpload `json:"-"`
}

// Validate cleans & validates ip for an item of the given kind.
// On update, the file of file & image items may be omitted to keep the current one.
func (ip *ItemPayload) Validate(validate *validator.Validate, kind Kind, update bool) error {
	ip.Title = core.CleanString(ip.Title)
	ip.URL = core.CleanString(ip.URL)

	if err := validate.Struct(ip); err != nil {
		return err
	}

	switch kind {
	case KindText:
		if core.CleanString(ip.Content) == "" {
			return core.NewFieldValidationError("content", "this field is required")
		}
	case KindVideo:
		if ip.URL == "" {
			return core.NewFieldValidationError("url", "this field is required")
		}
		if err := validate.Var(ip.URL, "url"); err != nil {
			return core.NewFieldValidationError("url", "enter a valid URL")
		}
	case KindFile, KindImage:
		if ip.File == nil && !update {
			return core.NewFieldValidationError(string(kind), "no file was submitted")
		}
	default:
		return &UnknownKindError{Kind: string(kind)}
	}
	return nil
}
