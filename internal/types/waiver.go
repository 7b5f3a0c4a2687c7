package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NotAvailable is substituted for every missing or null text field.
const NotAvailable = "N/A"

// DefaultThreatLevel is used when a waived violation carries no threat level.
const DefaultThreatLevel = 0

// WaiverReport is the document returned by the component waivers report endpoint.
// RepositoryWaivers is nil when the key is absent and empty when the list is empty.
type WaiverReport struct {
	RepositoryWaivers []RepositoryWaiver `json:"repositoryWaivers"`
}

// HasRepositoryWaiversKey reports whether the repositoryWaivers key was present.
func (r *WaiverReport) HasRepositoryWaiversKey() bool {
	return r != nil && r.RepositoryWaivers != nil
}

// UnmarshalJSON keeps an explicit empty list distinguishable from a missing key.
func (r *WaiverReport) UnmarshalJSON(data []byte) error {
	var raw struct {
		RepositoryWaivers *[]RepositoryWaiver `json:"repositoryWaivers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.RepositoryWaivers = nil
	if raw.RepositoryWaivers != nil {
		r.RepositoryWaivers = *raw.RepositoryWaivers
		if r.RepositoryWaivers == nil {
			r.RepositoryWaivers = []RepositoryWaiver{}
		}
	}
	return nil
}

// RepositoryWaiver groups the waived violations of one source repository.
type RepositoryWaiver struct {
	Repository *Repository `json:"repository"`
	Stages     []Stage     `json:"stages"`
}

// PublicID returns the repository public id or NotAvailable.
func (w RepositoryWaiver) PublicID() string {
	if w.Repository == nil {
		return NotAvailable
	}
	return textOrDefault(w.Repository.PublicID)
}

// Repository identifies a repository by its public id.
type Repository struct {
	PublicID *Text `json:"publicId"`
}

// Stage holds the component policy violations recorded for one evaluation stage.
type Stage struct {
	StageID                   *Text                      `json:"stageId"`
	ComponentPolicyViolations []ComponentPolicyViolation `json:"componentPolicyViolations"`
}

// ComponentPolicyViolation ties a component to the violations waived against it.
type ComponentPolicyViolation struct {
	Component              *Component              `json:"component"`
	WaivedPolicyViolations []WaivedPolicyViolation `json:"waivedPolicyViolations"`
}

// Component wraps the identifier of a software component.
type Component struct {
	ComponentIdentifier *ComponentIdentifier `json:"componentIdentifier"`
}

// ComponentIdentifier carries the format and coordinates of a component.
type ComponentIdentifier struct {
	Format      *Text        `json:"format"`
	Coordinates *Coordinates `json:"coordinates"`
}

// Coordinates are the Maven-style coordinates of a component.
type Coordinates struct {
	ArtifactID *Text `json:"artifactId"`
	GroupID    *Text `json:"groupId"`
	Version    *Text `json:"version"`
}

// ComponentCoordinates is the (format, artifact, group, version) tuple with
// every missing part replaced by NotAvailable.
type ComponentCoordinates struct {
	Format     string
	ArtifactID string
	GroupID    string
	Version    string
}

// Coordinates resolves the component coordinates, defaulting each field independently.
func (v ComponentPolicyViolation) Coordinates() ComponentCoordinates {
	coords := ComponentCoordinates{
		Format:     NotAvailable,
		ArtifactID: NotAvailable,
		GroupID:    NotAvailable,
		Version:    NotAvailable,
	}
	if v.Component == nil || v.Component.ComponentIdentifier == nil {
		return coords
	}

	id := v.Component.ComponentIdentifier
	coords.Format = textOrDefault(id.Format)
	if id.Coordinates != nil {
		coords.ArtifactID = textOrDefault(id.Coordinates.ArtifactID)
		coords.GroupID = textOrDefault(id.Coordinates.GroupID)
		coords.Version = textOrDefault(id.Coordinates.Version)
	}
	return coords
}

// WaivedPolicyViolation is a single policy violation covered by a waiver.
type WaivedPolicyViolation struct {
	PolicyName   *Text         `json:"policyName"`
	ThreatLevel  *ThreatLevel  `json:"threatLevel"`
	PolicyWaiver *PolicyWaiver `json:"policyWaiver"`
}

// Policy returns the policy name or NotAvailable.
func (v WaivedPolicyViolation) Policy() string {
	return textOrDefault(v.PolicyName)
}

// Threat returns the threat level or DefaultThreatLevel.
func (v WaivedPolicyViolation) Threat() int {
	if v.ThreatLevel == nil {
		return DefaultThreatLevel
	}
	return int(*v.ThreatLevel)
}

// Reason returns the waiver reason text or NotAvailable.
func (v WaivedPolicyViolation) Reason() string {
	if v.PolicyWaiver == nil {
		return NotAvailable
	}
	return textOrDefault(v.PolicyWaiver.ReasonText)
}

// CreateTime returns the raw waiver creation timestamp or NotAvailable.
func (v WaivedPolicyViolation) CreateTime() string {
	if v.PolicyWaiver == nil {
		return NotAvailable
	}
	return textOrDefault(v.PolicyWaiver.CreateTime)
}

// ExpiryTime returns the raw waiver expiry timestamp or NotAvailable.
func (v WaivedPolicyViolation) ExpiryTime() string {
	if v.PolicyWaiver == nil {
		return NotAvailable
	}
	return textOrDefault(v.PolicyWaiver.ExpiryTime)
}

// PolicyWaiver is the waiver record attached to a violation.
type PolicyWaiver struct {
	ReasonText *Text `json:"reasonText"`
	CreateTime *Text `json:"createTime"`
	ExpiryTime *Text `json:"expiryTime"`
}

// ThreatLevel accepts either a JSON integer or a numeric JSON string.
type ThreatLevel int

// UnmarshalJSON decodes 7 and "7" alike. A non-numeric string is an error.
func (t *ThreatLevel) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
	}

	n, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("invalid threat level %s: must be an integer", string(data))
	}
	*t = ThreatLevel(n)
	return nil
}

// Text is a free-form text field. Strings are kept as they are; numbers and
// booleans keep their JSON literal form so a mistyped field still reaches the report.
type Text string

// UnmarshalJSON accepts any JSON value. Null never reaches it: a nil *Text
// field means the value was missing or null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	*t = Text(compact.String())
	return nil
}

func textOrDefault(t *Text) string {
	if t == nil {
		return NotAvailable
	}
	return string(*t)
}
