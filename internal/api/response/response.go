// Package response writes the JSON envelope every endpoint answers with:
// {"status": "success"|"error", "data": ..., "message": ...}.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"clinic-api/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"` // development only
}

var exposeCauses atomic.Bool

// ExposeCauses toggles the development-only "error" field. Set once at startup.
func ExposeCauses(on bool) { exposeCauses.Store(on) }

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Status: StatusSuccess, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Status: StatusSuccess, Data: data})
}

func Message(c *gin.Context, code int, msg string, data any) {
	c.JSON(code, Envelope{Status: StatusSuccess, Message: msg, Data: data})
}

// Fail translates err into the error envelope and aborts the chain.
func Fail(c *gin.Context, err error) {
	appErr := apperr.From(err)
	_ = c.Error(err)

	env := Envelope{Status: StatusError, Message: appErr.Message}
	if exposeCauses.Load() && appErr.Err != nil {
		env.Error = appErr.Err.Error()
	}
	c.AbortWithStatusJSON(appErr.Status(), env)
}

// BindError turns a gin binding failure into a ValidationError with a readable message.
func BindError(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("Cuerpo de la petición inválido.")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("el campo %s es obligatorio", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("el campo %s debe ser un correo electrónico válido", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("el campo %s debe tener al menos %s caracteres", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("el campo %s admite como máximo %s caracteres", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("el campo %s no es válido", field))
		}
	}
	return apperr.Validation(upperFirst(strings.Join(msgs, ", ")) + ".")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
