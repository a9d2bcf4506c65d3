// internal/models/inspection.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ConditionRating is the inspector's overall roof condition.
type ConditionRating string

const (
	ConditionGood     ConditionRating = "Good"
	ConditionFair     ConditionRating = "Fair"
	ConditionPoor     ConditionRating = "Poor"
	ConditionCritical ConditionRating = "Critical"
)

var conditionDescriptions = map[ConditionRating]string{
	ConditionGood:     "Roof is in good condition with no immediate concerns",
	ConditionFair:     "Roof shows moderate wear and requires attention within 6-12 months",
	ConditionPoor:     "Roof has significant issues requiring prompt attention",
	ConditionCritical: "Roof requires immediate repair or replacement",
}

// Canonical returns the known rating matching r case-insensitively, or "" if r is unknown.
func (r ConditionRating) Canonical() ConditionRating {
	trimmed := strings.TrimSpace(string(r))
	for known := range conditionDescriptions {
		if strings.EqualFold(trimmed, string(known)) {
			return known
		}
	}
	return ""
}

func (r ConditionRating) IsValid() bool {
	return r.Canonical() != ""
}

// Class is the lowercase rating used as a CSS class by the report template. Unknown or missing
// ratings fall back to "fair".
func (r ConditionRating) Class() string {
	canonical := r.Canonical()
	if canonical == "" {
		return strings.ToLower(string(ConditionFair))
	}
	return strings.ToLower(string(canonical))
}

// Description is the canned sentence for the rating, "" when unknown.
func (r ConditionRating) Description() string {
	return conditionDescriptions[r.Canonical()]
}

// Recommendation is the inspector's suggested course of action.
type Recommendation string

const (
	RecommendationRepair  Recommendation = "Repair"
	RecommendationReplace Recommendation = "Replace"
)

func (r Recommendation) IsValid() bool {
	return r == RecommendationRepair || r == RecommendationReplace
}

// FlexString accepts a JSON string, number or boolean and keeps its textual form.
// Form fields like roof size and estimates arrive as either.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = ""
		return nil
	}
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if n, ok := raw.(json.Number); ok {
		*f = FlexString(n.String())
		return nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return fmt.Errorf("expected a string or number: %w", err)
	}
	*f = FlexString(s)
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// AreaFinding is the inspector's note for one inspection area.
type AreaFinding struct {
	Area    string `json:"-"`
	Checked bool   `json:"checked"`
	Notes   string `json:"notes"`
}

// AreaFindings keeps inspection areas in the order the form sent them.
type AreaFindings []AreaFinding

func (a *AreaFindings) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("findings must be an object keyed by area name")
	}

	var out AreaFindings
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		area, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("findings key must be a string")
		}
		var finding AreaFinding
		if err := dec.Decode(&finding); err != nil {
			return fmt.Errorf("findings[%s]: %w", area, err)
		}
		finding.Area = area
		out = append(out, finding)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = out
	return nil
}

func (a AreaFindings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Area)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Photo is one inline photo attached to the submission. Preview holds a data URI.
type Photo struct {
	Preview string `json:"preview"`
	Caption string `json:"caption,omitempty"`
}

// IssuerProfile carries the roofing company's branding and contact fields.
type IssuerProfile struct {
	CompanyName    string `json:"company_name,omitempty"`
	CompanyLogo    string `json:"company_logo,omitempty"`
	CompanyPhone   string `json:"company_phone,omitempty"`
	CompanyEmail   string `json:"company_email,omitempty"`
	CompanyWebsite string `json:"company_website,omitempty"`
}

// InspectionSubmission is the complete record captured by the inspection form.
type InspectionSubmission struct {
	CustomerName     string          `json:"customerName"`
	PropertyAddress  string          `json:"propertyAddress"`
	CityStateZip     string          `json:"cityStateZip"`
	InspectionDate   string          `json:"inspectionDate"`
	RoofType         string          `json:"roofType"`
	RoofAge          FlexString      `json:"roofAge"`
	RoofMaterial     string          `json:"roofMaterial"`
	RoofSize         FlexString      `json:"roofSize"`
	Condition        ConditionRating `json:"condition"`
	Findings         AreaFindings    `json:"findings"`
	Photos           []Photo         `json:"photos"`
	DamageAssessment string          `json:"damageAssessment"`
	Recommendation   Recommendation  `json:"recommendation"`
	EstimateLow      FlexString      `json:"estimateLow"`
	EstimateHigh     FlexString      `json:"estimateHigh"`
	NextSteps        string          `json:"nextSteps"`
	SendToHomeowner  bool            `json:"sendToHomeowner"`
	HomeownerPhone   string          `json:"homeownerPhone"`
	RooferInfo       *IssuerProfile  `json:"rooferInfo,omitempty"`
}

// Issuer returns the issuer profile, never nil.
func (s *InspectionSubmission) Issuer() IssuerProfile {
	if s.RooferInfo == nil {
		return IssuerProfile{}
	}
	return *s.RooferInfo
}

// WantsNotification reports whether the homeowner opted in and left a phone number.
func (s *InspectionSubmission) WantsNotification() bool {
	return s.SendToHomeowner && strings.TrimSpace(s.HomeownerPhone) != ""
}
