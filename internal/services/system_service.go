package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/repositories"
)

// ErrSystemNotReady indicates at least one dependency probe failed hard.
var ErrSystemNotReady = errors.New("system: not ready")

// SystemServiceDeps bundles collaborators required to construct the system service.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
	Clock  func() time.Time
}

type systemService struct {
	health repositories.HealthRepository
	clock  func() time.Time
}

// NewSystemService assembles the utility service behind the health endpoints.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errors.New("system service: health repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &systemService{
		health: deps.Health,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = s.clock()
	}
	if report.Checks == nil {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}
	if report.Status == "" {
		report.Status = domain.HealthStatusOK
	}
	return report, nil
}

// Readiness fails only on hard dependency errors; degraded dependencies keep
// the instance in rotation.
func (s *systemService) Readiness(ctx context.Context) error {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return err
	}
	if report.Status == domain.HealthStatusError {
		for name, check := range report.Checks {
			if check.Status == domain.HealthStatusError {
				return fmt.Errorf("%w: %s: %s", ErrSystemNotReady, name, check.Detail)
			}
		}
		return ErrSystemNotReady
	}
	return nil
}
