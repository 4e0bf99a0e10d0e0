package health

import (
	"context"
	"net/http"
	"time"

	"clinic-api/internal/api/response"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by anything that can report whether a backing
// service answers, such as the SQL pool.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Report struct {
	Status   string `json:"status"`
	Env      string `json:"env"`
	Database string `json:"database"`
	Payments bool   `json:"payments"`
}

type Handler struct {
	env      string
	db       Pinger // nil when running on the in-memory store
	payments bool
}

func NewHandler(env string, db Pinger, paymentsEnabled bool) *Handler {
	return &Handler{env: env, db: db, payments: paymentsEnabled}
}

// GET /api/health
func (h *Handler) Check(c *gin.Context) {
	rep := Report{
		Status:   "ok",
		Env:      h.env,
		Database: "memory",
		Payments: h.payments,
	}

	code := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		rep.Database = "ok"
		if err := h.db.PingContext(ctx); err != nil {
			_ = c.Error(err)
			rep.Status = "degraded"
			rep.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	env := response.Envelope{Status: response.StatusSuccess, Data: rep}
	if code != http.StatusOK {
		env.Status = response.StatusError
		env.Message = "La base de datos no responde."
	}
	c.JSON(code, env)
}
