package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/core/user"
)

var courseOrderingFields = []string{"created_at", "title"}

type courseApi struct {
	svc      *course.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, usrSvc *user.Service, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	// catalog
	g.GET("/subjects", api.querySubjects)
	g.POST("/subjects", api.createSubject, jwt, adminMiddleware())
	g.GET("/subjects/:id", api.retrieveSubject)
	g.GET("/courses", api.queryCourses)
	g.GET("/courses/:id", api.retrieveCourse)

	// students
	g.POST("/courses/:id/enroll", api.enroll, jwt)
	sg := g.Group("/students/courses", jwt)
	sg.GET("", api.studentCourses)
	sg.GET("/:id", api.studentCourse)
	sg.GET("/:id/modules/:module_id", api.studentModule)
}

type (
	// renderedModule is a Module with its contents rendered.
	renderedModule struct {
		course.Module
		Contents []course.RenderedContent `json:"contents"`
	}

	// renderedCourse is a Course with its modules' contents rendered.
	renderedCourse struct {
		course.Course
		Modules []renderedModule `json:"modules"`
	}
)

func renderModule(m course.Module) (renderedModule, error) {
	rm := renderedModule{Module: m, Contents: make([]course.RenderedContent, 0, len(m.Contents))}
	rm.Module.Contents = nil
	for _, c := range m.Contents {
		rc, err := course.Render(c)
		if err != nil {
			return renderedModule{}, err
		}
		rm.Contents = append(rm.Contents, rc)
	}
	return rm, nil
}

func renderCourse(c course.Course) (renderedCourse, error) {
	rc := renderedCourse{Course: c, Modules: make([]renderedModule, 0, len(c.Modules))}
	rc.Course.Modules = nil
	for _, m := range c.Modules {
		rm, err := renderModule(m)
		if err != nil {
			return renderedCourse{}, err
		}
		rc.Modules = append(rc.Modules, rm)
	}
	return rc, nil
}

// ctxUserID returns the ID of the user identified by the request's token.
func ctxUserID(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Handlers

func (api *courseApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []course.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *courseApi) createSubject(ctx echo.Context) error {
	var data course.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	subj, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *courseApi) retrieveSubject(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	subj, err := api.svc.GetSubjectByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

// queryCourses lists all courses, or those of one subject with ?subject=<slug>.
func (api *courseApi) queryCourses(ctx echo.Context) error {
	var filter course.CourseFilter
	if slug := ctx.QueryParam("subject"); slug != "" {
		subj, err := api.svc.GetSubject(ctx.Request().Context(), slug)
		if err != nil {
			return errors.Wrap(err, "finding subject")
		}
		filter.SubjectID = subj.ID
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, courseOrderingFields...)

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieveCourse(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	c, err := api.svc.GetCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Enroll(ctx.Request().Context(), id, usr.ID); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) studentCourses(ctx echo.Context) error {
	studentID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.QueryCourses(ctx.Request().Context(), course.CourseFilter{StudentID: studentID}, nil)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) studentCourse(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	studentID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}

	c, err := api.svc.CourseContents(ctx.Request().Context(), id, studentID)
	if err != nil {
		return errors.Wrap(err, "getting course contents")
	}
	rc, err := renderCourse(c)
	if err != nil {
		return errors.Wrap(err, "rendering course")
	}
	return ctx.JSON(http.StatusOK, rc)
}

func (api *courseApi) studentModule(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	moduleID, err := paramID(ctx, "module_id")
	if err != nil {
		return err
	}
	studentID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}

	c, err := api.svc.CourseContents(ctx.Request().Context(), id, studentID)
	if err != nil {
		return errors.Wrap(err, "getting course contents")
	}
	for _, m := range c.Modules {
		if m.ID == moduleID {
			rm, err := renderModule(m)
			if err != nil {
				return errors.Wrap(err, "rendering module")
			}
			return ctx.JSON(http.StatusOK, rm)
		}
	}
	return errHttpNotFound
}
