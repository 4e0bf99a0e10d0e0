package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"clinic-api/internal/api/response"
	"clinic-api/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// MaxJSONBodyBytes caps the bodies SanitizeJSON reads into memory.
const MaxJSONBodyBytes = 64 << 10

// SanitizeJSON strips markup from every string in a JSON object body using
// bluemonday's strict policy. Password fields pass through untouched so a
// hash is computed over what the user actually typed.
func SanitizeJSON() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxJSONBodyBytes)
		buf, err := io.ReadAll(c.Request.Body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, apperr.Validation("El cuerpo de la petición es demasiado grande.").WithStatus(http.StatusRequestEntityTooLarge))
			return
		}
		if err != nil {
			response.Fail(c, apperr.Validation("Cuerpo de la petición inválido."))
			return
		}
		if len(bytes.TrimSpace(buf)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(buf))
			c.Next()
			return
		}

		var body map[string]any
		if err := json.Unmarshal(buf, &body); err != nil {
			response.Fail(c, apperr.Validation("JSON mal formado."))
			return
		}

		sanitizeMap(policy, body)

		cleaned, err := json.Marshal(body)
		if err != nil {
			response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(cleaned))
		c.Request.ContentLength = int64(len(cleaned))

		c.Next()
	}
}

func sanitizeMap(policy *bluemonday.Policy, m map[string]any) {
	for k, v := range m {
		if strings.Contains(strings.ToLower(k), "password") {
			continue
		}
		m[k] = sanitizeValue(policy, v)
	}
}

func sanitizeValue(policy *bluemonday.Policy, v any) any {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(policy.Sanitize(t))
	case map[string]any:
		sanitizeMap(policy, t)
		return t
	case []any:
		for i := range t {
			t[i] = sanitizeValue(policy, t[i])
		}
		return t
	default:
		return v
	}
}
