package report

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/daimoniac/waiverreport/internal/types"
)

// Header is the fixed column header of the waiver report.
var Header = []string{
	"Repository Public ID",
	"Component Format",
	"Component Artifact ID",
	"Component Group ID",
	"Component Version",
	"Create Time",
	"Expiry Time",
	"Reason Text",
	"Policy Name",
	"Threat Level",
}

// Row is one waived policy violation, flattened.
type Row struct {
	RepositoryID string
	Format       string
	ArtifactID   string
	GroupID      string
	Version      string
	CreateTime   Timestamp
	ExpiryTime   Timestamp
	ReasonText   string
	PolicyName   string
	ThreatLevel  int
}

// ToSlice returns the row as CSV cells, in Header order.
func (r Row) ToSlice() []string {
	return []string{
		r.RepositoryID,
		r.Format,
		r.ArtifactID,
		r.GroupID,
		r.Version,
		r.CreateTime.String(),
		r.ExpiryTime.String(),
		r.ReasonText,
		r.PolicyName,
		strconv.Itoa(r.ThreatLevel),
	}
}

// ExpiresAt returns the waiver expiry instant, if it parsed.
func (r Row) ExpiresAt() (time.Time, bool) {
	if r.ExpiryTime.Kind != TimestampFormatted {
		return time.Time{}, false
	}
	return r.ExpiryTime.Time, true
}

// Flatten walks repositories, stages, component violations and waived
// violations in document order and returns one Row per waived violation.
func Flatten(doc *types.WaiverReport, logger *slog.Logger) []Row {
	if logger == nil {
		logger = slog.Default()
	}

	if !doc.HasRepositoryWaiversKey() {
		logger.Info("no repositoryWaivers key found in response")
		return []Row{}
	}
	if len(doc.RepositoryWaivers) == 0 {
		logger.Info("no repository waivers found")
		return []Row{}
	}

	rows := make([]Row, 0)
	for _, waiver := range doc.RepositoryWaivers {
		repositoryID := waiver.PublicID()

		for _, stage := range waiver.Stages {
			for _, violation := range stage.ComponentPolicyViolations {
				coords := violation.Coordinates()

				for _, waived := range violation.WaivedPolicyViolations {
					row := Row{
						RepositoryID: repositoryID,
						Format:       coords.Format,
						ArtifactID:   coords.ArtifactID,
						GroupID:      coords.GroupID,
						Version:      coords.Version,
						CreateTime:   ParseTimestamp(waived.CreateTime()),
						ExpiryTime:   ParseTimestamp(waived.ExpiryTime()),
						ReasonText:   waived.Reason(),
						PolicyName:   waived.Policy(),
						ThreatLevel:  waived.Threat(),
					}

					if row.CreateTime.Kind == TimestampInvalid || row.ExpiryTime.Kind == TimestampInvalid {
						logger.Debug("unparseable waiver timestamp",
							"repository", repositoryID,
							"policy", row.PolicyName,
							"create_time", waived.CreateTime(),
							"expiry_time", waived.ExpiryTime())
					}

					rows = append(rows, row)
				}
			}
		}
	}

	logger.Debug("flattened waiver report",
		"repositories", len(doc.RepositoryWaivers),
		"rows", len(rows))

	return rows
}
