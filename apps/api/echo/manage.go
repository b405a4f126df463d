package echoapi

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/core/user"
)

const maxOrderPayload = 1 << 20

type manageApi struct {
	svc      *course.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

// registerManageAPI registers the endpoints instructors use to manage their own courses.
// Entities owned by someone else are reported as not found.
func registerManageAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, usrSvc *user.Service, validate *validator.Validate) {
	api := manageApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	mg := g.Group("/manage", jwt, instructorMiddleware())

	mg.GET("/courses", api.queryCourses)
	mg.POST("/courses", api.createCourse)
	mg.GET("/courses/:id", api.retrieveCourse)
	mg.PUT("/courses/:id", api.updateCourse)
	mg.DELETE("/courses/:id", api.destroyCourse)

	mg.POST("/courses/:id/modules", api.createModule)
	mg.PUT("/modules/:id", api.updateModule)
	mg.DELETE("/modules/:id", api.destroyModule)
	mg.POST("/modules/order", api.orderModules)

	mg.GET("/modules/:id/contents", api.moduleContents)
	mg.POST("/modules/:id/contents/:kind", api.createContent)
	mg.GET("/contents/:id", api.retrieveContent)
	mg.PUT("/contents/:id", api.updateContent)
	mg.DELETE("/contents/:id", api.destroyContent)
	mg.POST("/contents/order", api.orderContents)
}

type SavedResponse struct {
	Saved string `json:"saved"`
}

// bindItemPayload reads an item payload from a JSON body or, for uploads, a multipart form with a `file` part.
// The returned func releases the uploaded file.
func bindItemPayload(ctx echo.Context) (course.ItemPayload, func(), error) {
	var data course.ItemPayload
	noop := func() {}

	if !strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := ctx.Bind(&data); err != nil {
			return data, noop, errors.Wrap(err, "binding to ItemPayload")
		}
		return data, noop, nil
	}

	data.Title = ctx.FormValue("title")
	data.Content = ctx.FormValue("content")
	data.URL = ctx.FormValue("url")

	fh, err := ctx.FormFile("file")
	if err == http.ErrMissingFile {
		return data, noop, nil
	}
	if err != nil {
		return data, noop, errors.Wrap(err, "reading uploaded file")
	}
	f, err := fh.Open()
	if err != nil {
		return data, noop, errors.Wrap(err, "opening uploaded file")
	}
	data.File = &course.FileUpload{Filename: fh.Filename, Body: f}
	return data, func() { _ = f.Close() }, nil
}

// Courses

func (api *manageApi) queryCourses(ctx echo.Context) error {
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, courseOrderingFields...)

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), course.CourseFilter{OwnerID: ownerID}, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *manageApi) createCourse(ctx echo.Context) error {
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	c, err := api.svc.CreateCourse(ctx.Request().Context(), data, ownerID)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *manageApi) retrieveCourse(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetOwnedCourse(ctx.Request().Context(), id, ownerID)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *manageApi) updateCourse(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.GetOwnedCourse(ctx.Request().Context(), id, ownerID); err != nil {
		return errors.Wrap(err, "getting course")
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc, id); err != nil {
		return err
	}

	c, err := api.svc.UpdateCourse(ctx.Request().Context(), id, data, ownerID)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *manageApi) destroyCourse(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCourse(ctx.Request().Context(), id, ownerID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Modules

func (api *manageApi) createModule(ctx echo.Context) error {
	courseID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	var data course.NewModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.CreateModule(ctx.Request().Context(), courseID, data, ownerID)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *manageApi) updateModule(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	var data course.NewModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.UpdateModule(ctx.Request().Context(), id, data, ownerID)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *manageApi) destroyModule(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteModule(ctx.Request().Context(), id, ownerID); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Contents

func (api *manageApi) moduleContents(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}

	m, err := api.svc.ModuleContents(ctx.Request().Context(), id, ownerID)
	if err != nil {
		return errors.Wrap(err, "getting module contents")
	}
	rm, err := renderModule(m)
	if err != nil {
		return errors.Wrap(err, "rendering module")
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *manageApi) createContent(ctx echo.Context) error {
	moduleID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	kind, err := course.ParseKind(ctx.Param("kind"))
	if err != nil {
		return err
	}
	if _, err = api.svc.GetOwnedModule(ctx.Request().Context(), moduleID, ownerID); err != nil {
		return errors.Wrap(err, "getting module")
	}

	data, release, err := bindItemPayload(ctx)
	defer release()
	if err != nil {
		return err
	}
	if err = data.Validate(api.validate, kind, false); err != nil {
		return err
	}

	c, err := api.svc.CreateContent(ctx.Request().Context(), moduleID, string(kind), data, ownerID)
	if err != nil {
		return errors.Wrap(err, "creating content")
	}
	rc, err := course.Render(c)
	if err != nil {
		return errors.Wrap(err, "rendering content")
	}
	return ctx.JSON(http.StatusCreated, rc)
}

func (api *manageApi) retrieveContent(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}

	c, err := api.svc.GetOwnedContent(ctx.Request().Context(), id, ownerID)
	if err != nil {
		return errors.Wrap(err, "getting content")
	}
	rc, err := course.Render(c)
	if err != nil {
		return errors.Wrap(err, "rendering content")
	}
	return ctx.JSON(http.StatusOK, rc)
}

func (api *manageApi) updateContent(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetOwnedContent(ctx.Request().Context(), id, ownerID)
	if err != nil {
		return errors.Wrap(err, "getting content")
	}

	data, release, err := bindItemPayload(ctx)
	defer release()
	if err != nil {
		return err
	}
	if err = data.Validate(api.validate, c.Kind, true); err != nil {
		return err
	}

	c, err = api.svc.UpdateContent(ctx.Request().Context(), id, data, ownerID)
	if err != nil {
		return errors.Wrap(err, "updating content")
	}
	rc, err := course.Render(c)
	if err != nil {
		return errors.Wrap(err, "rendering content")
	}
	return ctx.JSON(http.StatusOK, rc)
}

func (api *manageApi) destroyContent(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteContent(ctx.Request().Context(), id, ownerID); err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Ordering

// orderModules applies a drag & drop reorder, e.g. {"12": 0, "7": 1}.
// Modules the requester does not own are skipped.
func (api *manageApi) orderModules(ctx echo.Context) error {
	return api.order(ctx, api.svc.ReorderModules)
}

func (api *manageApi) orderContents(ctx echo.Context) error {
	return api.order(ctx, api.svc.ReorderContents)
}

func (api *manageApi) order(ctx echo.Context, reorder func(ctx context.Context, payload []byte, ownerID string) (int, error)) error {
	ownerID, err := ctxUserID(ctx)
	if err != nil {
		return err
	}
	payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxOrderPayload))
	if err != nil {
		return errors.Wrap(err, "reading payload")
	}
	if _, err = reorder(ctx.Request().Context(), payload, ownerID); err != nil {
		return errors.Wrap(err, "reordering")
	}
	return ctx.JSON(http.StatusOK, SavedResponse{Saved: "OK"})
}
