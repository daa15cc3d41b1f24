package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-backend/internal/auth"
	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/http/middleware"
	"github.com/tbourn/go-job-backend/internal/proxy"
)

// internalErrorMessage is the only detail AI clients see on failure.
const internalErrorMessage = "Erreur interne du serveur"

// RateLimitedResponse is the soft decline sent when the daily quota is spent.
type RateLimitedResponse struct {
	Success     bool   `json:"success" example:"false"`
	RateLimited bool   `json:"rateLimited" example:"true"`
	Remaining   int    `json:"remaining" example:"0"`
	Message     string `json:"message" example:"Limite quotidienne atteinte (3 par jour). Réessayez demain."`
}

// QuotaResponse reports today's usage for one action.
type QuotaResponse struct {
	Action    string `json:"action" example:"match_jobs"`
	Used      int    `json:"used" example:"1"`
	Remaining int    `json:"remaining" example:"2"`
	Limit     int    `json:"limit" example:"3"`
}

func rateLimitedMessage(limit int) string {
	return fmt.Sprintf("Limite quotidienne atteinte (%d par jour). Réessayez demain.", limit)
}

// forward runs action through the quota gate and writes the outcome.
func (h *Handlers) forward(c *gin.Context, action domain.Action, req proxy.Request) {
	out, err := h.ai.Do(c.Request.Context(), auth.UserID(c), action, req)
	if err != nil {
		lg := middleware.LoggerFrom(c)
		ev := lg.Error().Err(err).Str("action", string(action))
		var ue *proxy.UpstreamError
		if errors.As(err, &ue) {
			ev = ev.Int("backend_status", ue.Status).Str("backend_body", ue.Body)
		}
		ev.Msg("ai proxy failed")
		failStatus(c, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	if out.RateLimited {
		ok(c, http.StatusOK, RateLimitedResponse{
			Success:     false,
			RateLimited: true,
			Remaining:   0,
			Message:     rateLimitedMessage(h.dailyLimit),
		})
		return
	}
	ok(c, http.StatusOK, out.Payload)
}

// EnrichProfile godoc
// @ID          enrichProfile
// @Summary     Enrich the caller's profile
// @Description Consumes one unit of the daily "enrichments" quota, then forwards the body verbatim to the AI backend. The backend's JSON is returned with "remaining" merged in.
// @Tags        AI
// @Accept      json
// @Produce     json
// @Param       body  body    object  true  "Forwarded as-is"
// @Success     200   {object} map[string]interface{} "Backend payload plus remaining, or a RateLimitedResponse"
// @Failure     401   {object} map[string]string "Non autorisé"
// @Failure     500   {object} handlers.StatusResponse
// @Router      /ai/enrich-profile [post]
func (h *Handlers) EnrichProfile(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		failStatus(c, http.StatusBadRequest, "invalid body")
		return
	}
	h.forward(c, domain.ActionEnrichProfile, proxy.Request{
		Method:      http.MethodPost,
		Path:        "/enrich-profile",
		RawQuery:    c.Request.URL.RawQuery,
		Body:        body,
		ContentType: c.GetHeader("Content-Type"),
	})
}

// MatchJobs godoc
// @ID          matchJobs
// @Summary     Match jobs for the caller
// @Description Consumes one unit of the daily "searches" quota, then forwards the query string verbatim to the AI backend.
// @Tags        AI
// @Produce     json
// @Success     200  {object} map[string]interface{} "Backend payload plus remaining, or a RateLimitedResponse"
// @Failure     401  {object} map[string]string "Non autorisé"
// @Failure     500  {object} handlers.StatusResponse
// @Router      /ai/match-jobs [get]
func (h *Handlers) MatchJobs(c *gin.Context) {
	h.forward(c, domain.ActionMatchJobs, proxy.Request{
		Method:   http.MethodGet,
		Path:     "/match-jobs",
		RawQuery: c.Request.URL.RawQuery,
	})
}

// Quota godoc
// @ID          aiQuota
// @Summary     Today's AI quota
// @Description Reports usage for one action without consuming anything.
// @Tags        AI
// @Produce     json
// @Param       action  query  string  false  "Action"  Enums(match_jobs, enrich_profile)  default(match_jobs)
// @Success     200  {object} handlers.QuotaResponse
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     401  {object} map[string]string "Non autorisé"
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /ai/quota [get]
func (h *Handlers) Quota(c *gin.Context) {
	action := domain.Action(strings.TrimSpace(c.DefaultQuery("action", string(domain.ActionMatchJobs))))
	if action != domain.ActionMatchJobs && action != domain.ActionEnrichProfile {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown action")
		return
	}
	used, remaining, err := h.usage.Usage(c.Request.Context(), auth.UserID(c), action, h.dailyLimit)
	if err != nil {
		failInternal(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, QuotaResponse{
		Action:    string(action),
		Used:      used,
		Remaining: remaining,
		Limit:     h.dailyLimit,
	})
}
