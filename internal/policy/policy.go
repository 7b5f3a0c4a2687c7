package policy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/daimoniac/waiverreport/internal/report"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// FilterConfig defines a CEL-based row filter
type FilterConfig struct {
	// Expression is the CEL expression a row must satisfy to be kept.
	// Available variables:
	//   - repository, format, artifactId, groupId, version: component and repository identity
	//   - policyName, reasonText: waived policy and waiver reason
	//   - createTime, expiryTime: timestamps as they appear in the report
	//   - threatLevel: integer threat level
	//   - hasExpiry: true when the expiry time parsed
	//   - daysUntilExpiry: whole days until the waiver expires, rounded down so
	//     any past expiry is negative; 0 when hasExpiry is false
	//   - expired: true when the waiver expiry has passed
	// Functions:
	//   - versionBelow(version, bound): semantic version comparison, false
	//     when either side is not a valid version
	Expression string `yaml:"expression" json:"expression"`

	// ExpiryWarningWindow is how far ahead expiring waivers are reported
	ExpiryWarningWindow time.Duration `yaml:"expiryWarningWindow" json:"expiryWarningWindow"`
}

// ExpiringWaiver represents a waiver that is expiring soon or already expired
type ExpiringWaiver struct {
	Repository string
	PolicyName string
	Component  string
	ExpiresAt  time.Time
	DaysUntil  int
}

// Result summarizes one filtering pass
type Result struct {
	Rows         []report.Row
	Filtered     int
	ExpiringSoon []ExpiringWaiver
	Expired      []ExpiringWaiver
}

// Engine filters report rows with a CEL expression and tracks waiver expiry
type Engine struct {
	logger              *slog.Logger
	expiryWarningWindow time.Duration
	config              FilterConfig
	celProgram          cel.Program
	now                 func() time.Time
}

// NewEngine creates a new filter engine. An empty expression keeps every row.
func NewEngine(logger *slog.Logger, config FilterConfig) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if config.ExpiryWarningWindow <= 0 {
		config.ExpiryWarningWindow = 7 * 24 * time.Hour
	}

	engine := &Engine{
		logger:              logger,
		expiryWarningWindow: config.ExpiryWarningWindow,
		config:              config,
		now:                 time.Now,
	}

	if config.Expression == "" {
		return engine, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("repository", cel.StringType),
		cel.Variable("format", cel.StringType),
		cel.Variable("artifactId", cel.StringType),
		cel.Variable("groupId", cel.StringType),
		cel.Variable("version", cel.StringType),
		cel.Variable("policyName", cel.StringType),
		cel.Variable("reasonText", cel.StringType),
		cel.Variable("createTime", cel.StringType),
		cel.Variable("expiryTime", cel.StringType),
		cel.Variable("threatLevel", cel.IntType),
		cel.Variable("hasExpiry", cel.BoolType),
		cel.Variable("daysUntilExpiry", cel.IntType),
		cel.Variable("expired", cel.BoolType),
		cel.Function("versionBelow",
			cel.Overload("version_below_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(versionBelow),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(config.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return a boolean, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	engine.celProgram = program
	return engine, nil
}

func versionBelow(lhs, rhs ref.Val) ref.Val {
	version, ok := lhs.Value().(string)
	if !ok {
		return types.Bool(false)
	}
	bound, ok := rhs.Value().(string)
	if !ok {
		return types.Bool(false)
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return types.Bool(false)
	}
	b, err := semver.NewVersion(bound)
	if err != nil {
		return types.Bool(false)
	}
	return types.Bool(v.LessThan(b))
}

// wholeDays rounds down, so anything already past is at least one day negative
func wholeDays(d time.Duration) int64 {
	return int64(math.Floor(d.Hours() / 24))
}

// SetClock replaces the time source used for expiry checks
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Match reports whether a row satisfies the filter expression
func (e *Engine) Match(ctx context.Context, row report.Row) (bool, error) {
	if e.celProgram == nil {
		return true, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	var daysUntil int64
	expiresAt, hasExpiry := row.ExpiresAt()
	expired := false
	if hasExpiry {
		until := expiresAt.Sub(e.now())
		daysUntil = wholeDays(until)
		expired = until <= 0
	}

	out, _, err := e.celProgram.Eval(map[string]any{
		"repository":      row.RepositoryID,
		"format":          row.Format,
		"artifactId":      row.ArtifactID,
		"groupId":         row.GroupID,
		"version":         row.Version,
		"policyName":      row.PolicyName,
		"reasonText":      row.ReasonText,
		"createTime":      row.CreateTime.String(),
		"expiryTime":      row.ExpiryTime.String(),
		"threatLevel":     int64(row.ThreatLevel),
		"hasExpiry":       hasExpiry,
		"daysUntilExpiry": daysUntil,
		"expired":         expired,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter: %w", err)
	}

	keep, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter expression did not return a boolean: %v", out.Value())
	}
	return keep, nil
}

// Apply filters rows in order and collects expiring and expired waivers among the kept rows
func (e *Engine) Apply(ctx context.Context, rows []report.Row) (*Result, error) {
	result := &Result{
		Rows:         make([]report.Row, 0, len(rows)),
		ExpiringSoon: make([]ExpiringWaiver, 0),
		Expired:      make([]ExpiringWaiver, 0),
	}

	now := e.now()
	for _, row := range rows {
		keep, err := e.Match(ctx, row)
		if err != nil {
			return nil, err
		}
		if !keep {
			result.Filtered++
			continue
		}
		result.Rows = append(result.Rows, row)

		expiresAt, ok := row.ExpiresAt()
		if !ok {
			continue
		}

		until := expiresAt.Sub(now)
		waiver := ExpiringWaiver{
			Repository: row.RepositoryID,
			PolicyName: row.PolicyName,
			Component:  fmt.Sprintf("%s:%s:%s", row.GroupID, row.ArtifactID, row.Version),
			ExpiresAt:  expiresAt,
			DaysUntil:  int(wholeDays(until)),
		}

		switch {
		case until <= 0:
			result.Expired = append(result.Expired, waiver)
			e.logger.Info("waiver expired",
				"repository", waiver.Repository,
				"policy", waiver.PolicyName,
				"component", waiver.Component,
				"expired_at", waiver.ExpiresAt)
		case until <= e.expiryWarningWindow:
			result.ExpiringSoon = append(result.ExpiringSoon, waiver)
			e.logger.Warn("waiver expiring soon",
				"repository", waiver.Repository,
				"policy", waiver.PolicyName,
				"component", waiver.Component,
				"expires_at", waiver.ExpiresAt,
				"days_until_expiry", waiver.DaysUntil)
		}
	}

	if e.celProgram != nil {
		e.logger.Debug("filter applied",
			"expression", e.config.Expression,
			"kept", len(result.Rows),
			"filtered", result.Filtered)
	}

	return result, nil
}
