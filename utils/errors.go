package utils

import (
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

type apiError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

type validationError struct {
	ActualTag string `json:"tag"`
	Namespace string `json:"namespace"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	Param     string `json:"param"`
}

func CreateError(statusCode int, title string, detail string, ctx iris.Context) {
	ctx.StopWithJSON(statusCode, apiError{Status: statusCode, Title: title, Detail: detail})
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "Not Found", "resource not found", ctx)
}

func CreateForbidden(ctx iris.Context) {
	CreateError(iris.StatusForbidden, "Forbidden", "not authorized", ctx)
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(iris.StatusInternalServerError, "Internal Server Error", "", ctx)
}

// HandleValidationErrors converts validator errors into a 400 payload and
// anything else into a generic 400.
func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		out := make([]validationError, 0, len(errs))
		for _, e := range errs {
			out = append(out, validationError{
				ActualTag: e.ActualTag(),
				Namespace: e.Namespace(),
				Kind:      e.Kind().String(),
				Type:      e.Type().String(),
				Value:     e.Param(),
				Param:     e.Param(),
			})
		}
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"validationErrors": out})
		return
	}

	CreateError(iris.StatusBadRequest, "Bad Request", err.Error(), ctx)
}
