package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bartventer/elearning-site/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param, e.g. ?ordering=title,-created_at. Fields not in allowed are dropped.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	ord.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam), allowed...)
}

// paramID parses the positive int64 path param `name`. Anything else matches no entity.
func paramID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
