// internal/models/report.go
package models

import (
	"time"

	"roof-report-service/internal/common/errors"
)

// UploadedPhoto is a photo after it has been moved to the image host.
type UploadedPhoto struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// RenderStatus is the document service's job status. Only success and failure are terminal.
type RenderStatus string

const (
	RenderPending RenderStatus = "pending"
	RenderSuccess RenderStatus = "success"
	RenderFailure RenderStatus = "failure"
)

// RenderJob is the pipeline's read-only view of an asynchronous render.
type RenderJob struct {
	ID          string       `json:"id"`
	Status      RenderStatus `json:"status"`
	ArtifactURL string       `json:"artifactUrl,omitempty"`
}

// Finding is one checked inspection area as rendered in the report.
type Finding struct {
	Area        string `json:"area"`
	Status      string `json:"status"`
	StatusClass string `json:"status_class"`
	Notes       string `json:"notes"`
}

// RenderPayload is the merged document the report template is rendered from.
type RenderPayload struct {
	CompanyName          string          `json:"company_name"`
	CompanyLogo          string          `json:"company_logo"`
	CompanyPhone         string          `json:"company_phone"`
	CompanyPhoneRaw      string          `json:"company_phone_raw"`
	CompanyEmail         string          `json:"company_email"`
	CompanyWebsite       string          `json:"company_website"`
	InspectionDate       string          `json:"inspection_date"`
	CustomerName         string          `json:"customer_name"`
	PropertyAddress      string          `json:"property_address"`
	PropertyCityStateZip string          `json:"property_city_state_zip"`
	ReportID             string          `json:"report_id"`
	RoofType             string          `json:"roof_type"`
	RoofMaterial         string          `json:"roof_material"`
	RoofAge              string          `json:"roof_age"`
	RoofSize             string          `json:"roof_size"`
	ConditionRating      string          `json:"condition_rating"`
	ConditionClass       string          `json:"condition_class"`
	ConditionDescription string          `json:"condition_description"`
	Findings             []Finding       `json:"findings"`
	Photos               []UploadedPhoto `json:"photos"`
	DamageAssessment     string          `json:"damage_assessment"`
	Recommendation       string          `json:"recommendation"`
	EstimateLow          string          `json:"estimate_low"`
	EstimateHigh         string          `json:"estimate_high"`
	NextSteps            string          `json:"next_steps"`
	GeneratedDate        string          `json:"generated_date"`
}

// PipelineOutcome is the single result handed back to the caller.
type PipelineOutcome struct {
	Success        bool    `json:"success"`
	ReportID       string  `json:"reportId,omitempty"`
	ArtifactURL    *string `json:"pdfUrl"`
	PhotosUploaded int     `json:"photosUploaded"`
	Error          string  `json:"error,omitempty"`

	PhotosSubmitted  int                     `json:"-"`
	NotificationSent bool                    `json:"-"`
	Degradations     []*errors.StandardError `json:"-"`
	Fatal            *errors.StandardError   `json:"-"`
	StartedAt        time.Time               `json:"-"`
	FinishedAt       time.Time               `json:"-"`
}

// HasArtifact reports whether the render produced a downloadable document.
func (o *PipelineOutcome) HasArtifact() bool {
	return o.ArtifactURL != nil && *o.ArtifactURL != ""
}

// Degrade records a non-fatal failure.
func (o *PipelineOutcome) Degrade(err *errors.StandardError) {
	if err != nil {
		o.Degradations = append(o.Degradations, err)
	}
}

// Status is a short label for logs and metrics.
func (o *PipelineOutcome) Status() string {
	switch {
	case !o.Success:
		return "failed"
	case len(o.Degradations) > 0:
		return "degraded"
	default:
		return "complete"
	}
}

// ReportRun is the audit row written for every pipeline run. It holds outcome metadata only.
type ReportRun struct {
	ReportID         string
	Success          bool
	ArtifactURL      string
	PhotosSubmitted  int
	PhotosUploaded   int
	NotificationSent bool
	Degradations     []string
	ErrorCode        string
	Source           string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// NewReportRun derives the audit row from an outcome.
func NewReportRun(outcome *PipelineOutcome, source string) *ReportRun {
	run := &ReportRun{
		ReportID:         outcome.ReportID,
		Success:          outcome.Success,
		PhotosSubmitted:  outcome.PhotosSubmitted,
		PhotosUploaded:   outcome.PhotosUploaded,
		NotificationSent: outcome.NotificationSent,
		Degradations:     errors.Codes(outcome.Degradations),
		Source:           source,
		StartedAt:        outcome.StartedAt,
		FinishedAt:       outcome.FinishedAt,
	}
	if outcome.HasArtifact() {
		run.ArtifactURL = *outcome.ArtifactURL
	}
	if outcome.Fatal != nil {
		run.ErrorCode = string(outcome.Fatal.Code)
	}
	return run
}
