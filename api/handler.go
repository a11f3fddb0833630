package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/kbukum/whisperjob/errors"
	"github.com/kbukum/whisperjob/job"
	"github.com/kbukum/whisperjob/logger"
	"github.com/kbukum/whisperjob/server"
)

// Processor runs one job to completion.
type Processor interface {
	Process(ctx context.Context, j job.Job) job.Envelope
}

// Handler serves job submissions.
type Handler struct {
	proc Processor
	log  *logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(proc Processor, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{proc: proc, log: log.WithComponent("api")}
}

// Register mounts the job routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/runsync", h.RunSync)
}

// RunSync handles POST /runsync. A body that is not a job answers 4xx; any
// parsed job answers 200 with its envelope, failures included, since the
// envelope is the job's result.
func (h *Handler) RunSync(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			server.RespondWithError(c, apperrors.New(apperrors.ErrCodeInvalidInput,
				"invalid input: request body too large", http.StatusRequestEntityTooLarge))
			return
		}
		server.RespondWithError(c, apperrors.InvalidInput("unreadable body").WithCause(err))
		return
	}
	j, err := job.Parse(body)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if j.ID == "" {
		j.ID = uuid.New().String()
	}

	out := job.NewOutcome(j.ID, h.proc.Process(c.Request.Context(), j))
	h.log.WithContext(logger.ContextWithJobID(c.Request.Context(), j.ID)).
		Debug("job answered", logger.Fields("status", out.Status))
	c.JSON(http.StatusOK, out)
}
