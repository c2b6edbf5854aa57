package utils

import (
	"github.com/kataras/iris/v12"
)

type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

func JSONPage(ctx iris.Context, data interface{}, page, perPage int, total int64) {
	ctx.JSON(iris.Map{
		"success": true,
		"data":    data,
		"meta":    PageMeta{Page: page, PerPage: perPage, Total: total},
	})
}

// Pagination reads page/limit query parameters with sane bounds.
func Pagination(ctx iris.Context) (page, limit, offset int) {
	page = ctx.URLParamIntDefault("page", 1)
	if page < 1 {
		page = 1
	}
	limit = ctx.URLParamIntDefault("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}
