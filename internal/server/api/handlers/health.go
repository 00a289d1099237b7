package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/viperadnan-git/meeting-summary/internal/core/job"
	"github.com/viperadnan-git/meeting-summary/internal/core/storage"
)

type HealthHandler struct {
	store      *storage.Store
	summarizer Summarizer
	jobs       *job.Manager
}

func NewHealthHandler(store *storage.Store, summarizer Summarizer, jobs *job.Manager) *HealthHandler {
	return &HealthHandler{store: store, summarizer: summarizer, jobs: jobs}
}

type HealthResponse struct {
	Status   string             `json:"status"`
	Backends []string           `json:"backends"`
	Jobs     int                `json:"jobs"`
	Disk     *storage.DiskStats `json:"disk,omitempty"`
}

func (h *HealthHandler) Health(c echo.Context) error {
	resp := HealthResponse{
		Status:   "ok",
		Backends: h.summarizer.Backends(),
		Jobs:     h.jobs.Len(),
	}
	if disk, err := h.store.DiskUsage(); err == nil {
		resp.Disk = &disk
	} else {
		log.Debug().Err(err).Msg("disk usage unavailable")
	}
	return c.JSON(http.StatusOK, resp)
}
