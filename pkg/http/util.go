package http

import (
	"github.com/labstack/echo/v4"

	xutil "BitLearn/pkg/util"
)

// QueryList splits a comma separated query param, dropping blanks.
func QueryList(c echo.Context, name string) []string {
	return xutil.SplitCSV(c.QueryParam(name))
}
