// Job HTTP handlers.
//
// This file exposes the read API:
//   - GET /jobs          (list, paginated, filters, weak ETag)
//   - GET /jobs/{id}     (detail)
//   - GET /companies     (company directory)
//   - GET /sources       (per-source freshness)
package handlers

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/repo"
	"github.com/tbourn/go-job-backend/internal/services"
	"github.com/tbourn/go-job-backend/internal/utils"
)

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListJobsResponse wraps a page of jobs and pagination information.
type ListJobsResponse struct {
	Jobs       []domain.Job `json:"jobs"`
	Pagination Pagination   `json:"pagination"`
}

// CompaniesResponse lists companies with their posting counts.
type CompaniesResponse struct {
	Companies []repo.CompanyCount `json:"companies"`
}

// SourcesResponse lists per-source job counts and last ingestion time.
type SourcesResponse struct {
	Sources []repo.SourceStat `json:"sources"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = max(utils.AtoiDefault(c.Query("page"), defaultPage), 1)
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// listETag derives a weak validator from the per-source counts and freshness
// plus the query. Re-ingestion bumps fetched_at, so any write changes it.
func listETag(stats []repo.SourceStat, rawQuery string) string {
	var total, latest int64
	for _, s := range stats {
		total += s.Jobs
		if s.LastFetchedAt != nil && s.LastFetchedAt.UnixNano() > latest {
			latest = s.LastFetchedAt.UnixNano()
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(rawQuery))
	return fmt.Sprintf(`W/"jobs:%d:%d:%x"`, total, latest, h.Sum32())
}

// ListJobs godoc
// @ID          listJobs
// @Summary     List jobs (paginated)
// @Description Returns jobs, most recently fetched first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Jobs
// @Produce     json
//
// @Param       source         query   string  false "Source tag"           Enums(linkedin, indeed, france_travail)
// @Param       company        query   string  false "Company name (case-insensitive)"
// @Param       city           query   string  false "City (case-insensitive)"
// @Param       page           query   int     false "Page number"          minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"       minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} handlers.ListJobsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Unknown source"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs [get]
func (h *Handlers) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)
	f := repo.JobFilter{
		Source:  strings.TrimSpace(c.Query("source")),
		Company: strings.TrimSpace(c.Query("company")),
		City:    strings.TrimSpace(c.Query("city")),
	}

	// ETag pre-check (best effort).
	if stats, err := h.jobs.Sources(ctx); err == nil {
		etag := listETag(stats, c.Request.URL.RawQuery)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.jobs.ListPage(ctx, f, page, pageSize)
	if errors.Is(err, services.ErrInvalidFilter) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown source")
		return
	}
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListJobsResponse{
		Jobs: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetJob godoc
// @ID          getJob
// @Summary     Get a job
// @Tags        Jobs
// @Produce     json
// @Param       id   path     string  true  "Job ID (UUID)"  format(uuid)
// @Success     200  {object} domain.Job
// @Failure     404  {object} handlers.ErrorResponse "Job not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs/{id} [get]
func (h *Handlers) GetJob(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrJobNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		return
	}
	if err != nil {
		failInternal(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, j)
}

// ListCompanies godoc
// @ID          listCompanies
// @Summary     List companies
// @Description Company names with their job counts, busiest first.
// @Tags        Jobs
// @Produce     json
// @Success     200  {object} handlers.CompaniesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /companies [get]
func (h *Handlers) ListCompanies(c *gin.Context) {
	cs, err := h.jobs.Companies(c.Request.Context())
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	ok(c, http.StatusOK, CompaniesResponse{Companies: cs})
}

// ListSources godoc
// @ID          listSources
// @Summary     Source freshness
// @Description Job counts and last ingestion time per source.
// @Tags        Jobs
// @Produce     json
// @Success     200  {object} handlers.SourcesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sources [get]
func (h *Handlers) ListSources(c *gin.Context) {
	stats, err := h.jobs.Sources(c.Request.Context())
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	ok(c, http.StatusOK, SourcesResponse{Sources: stats})
}
