// Package domain defines the persistence models for scraped job postings and
// per-user AI usage counters. These types are mapped with GORM and shared
// across the repository, ingestion, quota, and HTTP layers.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Source tags the job board a posting was scraped from. Together with the
// board's own identifier it forms the natural key of a Job.
type Source string

const (
	SourceLinkedIn      Source = "linkedin"
	SourceIndeed        Source = "indeed"
	SourceFranceTravail Source = "france_travail"
)

// KnownSources lists every source tag that has an ingestion adapter.
var KnownSources = []Source{SourceLinkedIn, SourceIndeed, SourceFranceTravail}

// Valid reports whether s is one of KnownSources.
func (s Source) Valid() bool {
	for _, k := range KnownSources {
		if s == k {
			return true
		}
	}
	return false
}

// Job represents one posting from one source, normalized into the canonical
// shape shared by all adapters.
//
// Fields:
//   - ID: surrogate UUID primary key (char(36)).
//   - Source / SourceJobID: natural key, unique together. SourceJobID is NULL
//     when the scraped item carried no identifier; NULL keys never collide,
//     so such rows are inserted on every ingestion.
//   - Skills: ordered list of skill labels stored as JSON, NULL when absent.
//   - PostedAt: source-provided publication time, NULL when unknown.
//   - FetchedAt: set at ingestion time.
type Job struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	Source          Source         `json:"source"           gorm:"type:varchar(32);not null;uniqueIndex:ux_jobs_source_job,priority:1"`
	SourceJobID     *string        `json:"source_job_id"    gorm:"type:varchar(255);uniqueIndex:ux_jobs_source_job,priority:2"`
	Title           *string        `json:"title"            gorm:"type:text"`
	CompanyName     *string        `json:"company_name"     gorm:"type:varchar(255);index:idx_jobs_company"`
	LocationCity    *string        `json:"location_city"    gorm:"type:varchar(255);index:idx_jobs_city"`
	Description     *string        `json:"description"      gorm:"type:text"`
	Skills          datatypes.JSON `json:"skills"`
	JobURL          *string        `json:"job_url"          gorm:"type:text"`
	RecruiterName   *string        `json:"recruiter_name"   gorm:"type:varchar(255)"`
	RecruiterURL    *string        `json:"recruiter_url"    gorm:"type:text"`
	ApplyLink       *string        `json:"apply_link"       gorm:"type:text"`
	PostedAt        *time.Time     `json:"posted_at"`
	Salary          *string        `json:"salary"           gorm:"type:varchar(255)"`
	ContractType    *string        `json:"contract_type"    gorm:"type:varchar(128)"`
	ExperienceLevel *string        `json:"experience_level" gorm:"type:varchar(128)"`
	FetchedAt       time.Time      `json:"fetched_at"       gorm:"not null;index"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string { return "jobs" }

// UsageCounter is the consumed AI quota of one user, for one action kind, on
// one UTC calendar day. The day is part of the primary key, so counters roll
// over implicitly at midnight UTC and old rows are never read again.
type UsageCounter struct {
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);primaryKey"`
	Action    string    `json:"action"     gorm:"type:varchar(64);primaryKey"`
	Day       string    `json:"day"        gorm:"type:char(10);primaryKey"`
	Count     int       `json:"count"      gorm:"not null;default:0;check:count >= 0"`
	Limit     int       `json:"limit"      gorm:"column:limit_value;not null;default:0"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

// TableName returns the database table name for UsageCounter.
func (UsageCounter) TableName() string { return "usage_counters" }

// DayLayout is the format of UsageCounter.Day.
const DayLayout = "2006-01-02"

// QuotaDay returns the quota bucket for t: its UTC calendar date.
func QuotaDay(t time.Time) string { return t.UTC().Format(DayLayout) }

// Action is an AI operation subject to the daily quota.
type Action string

const (
	ActionMatchJobs     Action = "match_jobs"
	ActionEnrichProfile Action = "enrich_profile"
)

// Bucket returns the usage counter an action consumes.
func (a Action) Bucket() string {
	switch a {
	case ActionMatchJobs:
		return "searches"
	case ActionEnrichProfile:
		return "enrichments"
	}
	return string(a)
}
