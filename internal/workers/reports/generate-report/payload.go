// internal/workers/reports/generate-report/payload.go
package generatereport

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"roof-report-service/internal/models"
)

const (
	DefaultCompanyName     = "Roofing Company"
	defaultCompanyPhone    = "(555) 123-4567"
	defaultCompanyPhoneRaw = "5551234567"
	defaultCompanyEmail    = "info@roofing.com"

	findingIssue  = "Issue Found"
	findingOK     = "OK"
	noIssuesNotes = "No issues found"
	generatedDate = "January 2, 2006"
)

// BuildPayload merges the submission, the issuer profile and the hosted photos into the document
// the report template renders from.
func BuildPayload(sub *models.InspectionSubmission, reportID string, photos []models.UploadedPhoto, generated time.Time) *models.RenderPayload {
	issuer := sub.Issuer()

	rawPhone := issuer.CompanyPhone
	if rawPhone == "" {
		rawPhone = defaultCompanyPhoneRaw
	}

	if photos == nil {
		photos = []models.UploadedPhoto{}
	}

	return &models.RenderPayload{
		CompanyName:          orDefault(issuer.CompanyName, DefaultCompanyName),
		CompanyLogo:          issuer.CompanyLogo,
		CompanyPhone:         orDefault(issuer.CompanyPhone, defaultCompanyPhone),
		CompanyPhoneRaw:      digitsOnly(rawPhone),
		CompanyEmail:         orDefault(issuer.CompanyEmail, defaultCompanyEmail),
		CompanyWebsite:       issuer.CompanyWebsite,
		InspectionDate:       sub.InspectionDate,
		CustomerName:         sub.CustomerName,
		PropertyAddress:      sub.PropertyAddress,
		PropertyCityStateZip: sub.CityStateZip,
		ReportID:             reportID,
		RoofType:             sub.RoofType,
		RoofMaterial:         sub.RoofMaterial,
		RoofAge:              sub.RoofAge.String(),
		RoofSize:             sub.RoofSize.String(),
		ConditionRating:      string(sub.Condition),
		ConditionClass:       sub.Condition.Class(),
		ConditionDescription: sub.Condition.Description(),
		Findings:             BuildFindings(sub.Findings),
		Photos:               photos,
		DamageAssessment:     sub.DamageAssessment,
		Recommendation:       string(sub.Recommendation),
		EstimateLow:          sub.EstimateLow.String(),
		EstimateHigh:         sub.EstimateHigh.String(),
		NextSteps:            sub.NextSteps,
		GeneratedDate:        generated.Format(generatedDate),
	}
}

// BuildFindings keeps the checked areas in submission order.
func BuildFindings(areas models.AreaFindings) []models.Finding {
	findings := make([]models.Finding, 0, len(areas))
	for _, a := range areas {
		if !a.Checked {
			continue
		}
		f := models.Finding{
			Area:        capitalize(a.Area),
			Status:      findingOK,
			StatusClass: "ok",
			Notes:       noIssuesNotes,
		}
		if a.Notes != "" {
			f.Status = findingIssue
			f.StatusClass = "issue"
			f.Notes = a.Notes
		}
		findings = append(findings, f)
	}
	return findings
}

// CompanyName is the issuer name used in homeowner messages.
func CompanyName(sub *models.InspectionSubmission) string {
	return orDefault(sub.Issuer().CompanyName, DefaultCompanyName)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
