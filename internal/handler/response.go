package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, err error) {
	status, body := pkg.ToResponse(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, pkg.ErrorResponse{Code: "INVALID_PARAMS", Msg: err.Error()})
}

// pageFromQuery ?offset=&limit=，不带 limit 时返回全部
func pageFromQuery(c *gin.Context) mysql.Page {
	offset, _ := strconv.Atoi(c.Query("offset"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return mysql.Page{Offset: offset, Limit: limit}
}
