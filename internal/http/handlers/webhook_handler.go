package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-backend/internal/http/middleware"
	"github.com/tbourn/go-job-backend/internal/ingest"
)

// WebhookResponse is returned when a dataset was ingested.
type WebhookResponse struct {
	Success       bool   `json:"success" example:"true"`
	JobsProcessed int    `json:"jobsProcessed" example:"42"`
	Source        string `json:"source,omitempty" example:"linkedin"`
	DatasetID     string `json:"datasetId,omitempty" example:"s4Xq1fHk2b3"`
}

// ApifyWebhook godoc
// @ID          apifyWebhook
// @Summary     Ingest a finished crawler run
// @Description Validates the shared-secret token, fetches the run's dataset, maps each item to a job and upserts the batch on (source, source_job_id).
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       token   query  string  true   "Shared webhook secret"
// @Param       source  query  string  false  "Source tag"  Enums(linkedin, indeed, france_travail)
// @Param       body    body   object  true   "Crawler webhook payload (resource.defaultDatasetId or datasetId)"
//
// @Success     200  {object} handlers.WebhookResponse
// @Failure     400  {object} handlers.StatusResponse "Missing dataset id / bad payload"
// @Failure     401  {object} handlers.StatusResponse "Bad token"
// @Failure     500  {object} handlers.StatusResponse "Fetch or write failed"
// @Router      /webhooks/apify [post]
func (h *Handlers) ApifyWebhook(c *gin.Context) {
	// A read error leaves body nil; the token is still checked first.
	body, _ := io.ReadAll(c.Request.Body)

	res, err := h.ingestor.Ingest(c.Request.Context(), c.Query("token"), c.Query("source"), body)
	if err != nil {
		lg := middleware.LoggerFrom(c)
		var pe *ingest.PersistenceError
		switch {
		case errors.Is(err, ingest.ErrUnauthorized):
			failStatus(c, http.StatusUnauthorized, "Unauthorized")
		case ingest.IsValidation(err):
			failStatus(c, http.StatusBadRequest, err.Error())
		case errors.As(err, &pe):
			lg.Error().Err(err).Msg("webhook: upsert failed")
			failStatus(c, http.StatusInternalServerError, pe.Error())
		case errors.Is(err, ingest.ErrUpstream):
			lg.Error().Err(err).Msg("webhook: dataset fetch failed")
			failStatus(c, http.StatusInternalServerError, "failed to fetch dataset")
		default:
			lg.Error().Err(err).Msg("webhook: ingestion failed")
			failStatus(c, http.StatusInternalServerError, "internal error")
		}
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().
		Str("source", string(res.Source)).
		Str("dataset_id", res.DatasetID).
		Int("jobs", res.Processed).
		Int("unkeyed", res.Unkeyed).
		Msg("webhook: dataset ingested")

	ok(c, http.StatusOK, WebhookResponse{
		Success:       true,
		JobsProcessed: res.Processed,
		Source:        string(res.Source),
		DatasetID:     res.DatasetID,
	})
}
