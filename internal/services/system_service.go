package services

import (
	"context"
	"errors"
	"time"

	"github.com/theranostics-labs/portal-api/internal/repositories"
)

// BuildInfo carries release metadata stamped at build time.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
}

// SystemServiceDeps bundles collaborators for the system service.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
	Build  BuildInfo
	Clock  func() time.Time

	// StartedAt anchors the uptime figure; defaults to construction time.
	StartedAt time.Time
}

type systemService struct {
	health    repositories.HealthRepository
	build     BuildInfo
	clock     func() time.Time
	startedAt time.Time
}

var _ SystemService = (*systemService)(nil)

// NewSystemService constructs the readiness reporting service.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	utcClock := func() time.Time {
		return clock().UTC()
	}
	startedAt := deps.StartedAt
	if startedAt.IsZero() {
		startedAt = utcClock()
	}
	return &systemService{
		health:    deps.Health,
		build:     deps.Build,
		clock:     utcClock,
		startedAt: startedAt.UTC(),
	}, nil
}

// HealthReport collects dependency probes and stamps release metadata.
func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}
	report.Version = s.build.Version
	report.CommitSHA = s.build.CommitSHA
	report.Environment = s.build.Environment
	report.Uptime = s.clock().Sub(s.startedAt)
	return report, nil
}
