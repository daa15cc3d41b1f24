// Package ingest turns crawler datasets into canonical job records and
// persists them. Each job board has an Adapter that knows the board's item
// shape; the Normalizer validates webhook calls, fetches datasets, maps items
// through the right adapter and upserts the result.
package ingest

import (
	"time"

	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/sysutil"
)

// Adapter maps one raw dataset item into a canonical job record.
//
// Map is pure and total: it never fails, whatever the item's shape. Missing or
// mistyped fields become nil. A non-object item yields a record that carries
// only the source tag and fetchedAt.
type Adapter interface {
	Source() domain.Source
	Map(item any, fetchedAt time.Time) domain.Job
}

var registry = map[domain.Source]Adapter{
	domain.SourceLinkedIn:      LinkedInAdapter{},
	domain.SourceIndeed:        IndeedAdapter{},
	domain.SourceFranceTravail: FranceTravailAdapter{},
}

// ForSource returns the adapter registered for src.
func ForSource(src domain.Source) (Adapter, bool) {
	a, ok := registry[src]
	return a, ok
}

// LinkedInAdapter reads items produced by LinkedIn job scrapers.
type LinkedInAdapter struct{}

func (LinkedInAdapter) Source() domain.Source { return domain.SourceLinkedIn }

func (LinkedInAdapter) Map(item any, fetchedAt time.Time) domain.Job {
	f := asFields(item)
	return domain.Job{
		Source:          domain.SourceLinkedIn,
		SourceJobID:     ptr(f.str("id", "jobId", "job_id")),
		Title:           ptr(f.str("title", "jobTitle")),
		CompanyName:     ptr(f.str("companyName", "company.name", "company")),
		LocationCity:    ptr(city(f.str("location", "jobLocation", "place"))),
		Description:     ptr(f.text("descriptionText", "description", "descriptionHtml")),
		Skills:          skillsJSON(f.list("skills", "name")),
		JobURL:          ptr(f.str("link", "jobUrl", "url")),
		RecruiterName:   ptr(f.str("jobPosterName", "poster.name", "recruiter.name")),
		RecruiterURL:    ptr(f.str("jobPosterProfileUrl", "poster.profileUrl", "recruiter.url")),
		ApplyLink:       ptr(f.str("applyUrl", "applyLink")),
		PostedAt:        f.timestamp("postedAt", "publishedAt", "listedAt", "postedDate"),
		Salary:          ptr(f.joined(" - ", "salary", "salaryInfo")),
		ContractType:    ptr(f.str("contractType", "employmentType")),
		ExperienceLevel: ptr(f.str("experienceLevel", "seniorityLevel")),
		FetchedAt:       fetchedAt,
	}
}

// IndeedAdapter reads items produced by Indeed scrapers.
type IndeedAdapter struct{}

func (IndeedAdapter) Source() domain.Source { return domain.SourceIndeed }

func (IndeedAdapter) Map(item any, fetchedAt time.Time) domain.Job {
	f := asFields(item)
	return domain.Job{
		Source:          domain.SourceIndeed,
		SourceJobID:     ptr(f.str("id", "positionId", "jobKey", "jobkey")),
		Title:           ptr(f.str("positionName", "title")),
		CompanyName:     ptr(f.str("company", "companyName")),
		LocationCity:    ptr(city(f.str("location", "jobLocation"))),
		Description:     ptr(f.text("description", "descriptionText", "descriptionHTML")),
		Skills:          skillsJSON(f.list("skills", "label", "name")),
		JobURL:          ptr(f.str("url", "jobUrl")),
		RecruiterName:   ptr(f.str("recruiter.name")),
		RecruiterURL:    ptr(f.str("companyInfo.indeedUrl", "companyUrl")),
		ApplyLink:       ptr(sysutil.FirstNonEmpty(f.str("externalApplyLink"), f.str("applyUrl"), f.str("url"))),
		PostedAt:        f.timestamp("postingDateParsed", "postedAt", "pubDate"),
		Salary:          ptr(f.str("salary", "salarySnippet.text")),
		ContractType:    ptr(f.joined(", ", "jobType", "contractType")),
		ExperienceLevel: ptr(f.str("experienceLevel")),
		FetchedAt:       fetchedAt,
	}
}

// FranceTravailAdapter reads offers in the France Travail (ex Pôle emploi)
// "offres d'emploi" shape, with French field names.
type FranceTravailAdapter struct{}

func (FranceTravailAdapter) Source() domain.Source { return domain.SourceFranceTravail }

func (FranceTravailAdapter) Map(item any, fetchedAt time.Time) domain.Job {
	f := asFields(item)
	return domain.Job{
		Source:          domain.SourceFranceTravail,
		SourceJobID:     ptr(f.str("id")),
		Title:           ptr(f.str("intitule", "title")),
		CompanyName:     ptr(f.str("entreprise.nom", "companyName")),
		LocationCity:    ptr(city(f.str("lieuTravail.libelle", "location"))),
		Description:     ptr(f.text("description")),
		Skills:          skillsJSON(f.list("competences", "libelle")),
		JobURL:          ptr(f.str("origineOffre.urlOrigine", "url")),
		RecruiterName:   ptr(f.str("contact.nom")),
		RecruiterURL:    ptr(f.str("contact.urlRecruteur", "entreprise.url")),
		ApplyLink:       ptr(f.str("contact.urlPostulation", "origineOffre.partenaires.0.url")),
		PostedAt:        f.timestamp("dateCreation", "dateActualisation"),
		Salary:          ptr(f.str("salaire.libelle", "salaire.commentaire")),
		ContractType:    ptr(f.str("typeContratLibelle", "typeContrat")),
		ExperienceLevel: ptr(f.str("experienceLibelle")),
		FetchedAt:       fetchedAt,
	}
}
