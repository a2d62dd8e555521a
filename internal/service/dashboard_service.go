package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/pkg/config"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:summary"

type dashboardReader interface {
	Totals(ctx context.Context) (models.DashboardTotals, error)
	TopCourses(ctx context.Context, limit int) ([]models.CourseEnrollmentStat, error)
}

type gpaLister interface {
	ListGPAs(ctx context.Context) ([]float64, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DashboardService aggregates headline numbers for the operations dashboard,
// caching the assembled payload.
type DashboardService struct {
	repo     dashboardReader
	students gpaLister
	cache    summaryCache
	metrics  *MetricsService
	cfg      config.DashboardConfig
	logger   *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(repo dashboardReader, students gpaLister, cache summaryCache, metrics *MetricsService, cfg config.DashboardConfig, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, students: students, cache: cache, metrics: metrics, cfg: cfg, logger: logger}
}

// Summary returns the dashboard payload, serving from cache when fresh.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops the cached dashboard payload.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context) (*models.DashboardSummary, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard totals")
	}
	topCourses, err := s.repo.TopCourses(ctx, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank courses")
	}
	gpas, err := s.students.ListGPAs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gpas")
	}

	summary := &models.DashboardSummary{
		Totals:     totals,
		TopCourses: topCourses,
	}
	if dist := gpaDistribution(gpas); dist != nil {
		summary.GPA = dist
	}
	return summary, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// gpaDistribution summarises the cached GPA population. Percentile and median
// errors only occur on empty input, which is guarded.
func gpaDistribution(gpas []float64) *models.GPADistribution {
	if len(gpas) == 0 {
		return nil
	}
	data := stats.Float64Data(gpas)
	mean, err := stats.Mean(data)
	if err != nil {
		return nil
	}
	median, err := stats.Median(data)
	if err != nil {
		return nil
	}
	p25, err := stats.Percentile(data, 25)
	if err != nil {
		return nil
	}
	p75, err := stats.Percentile(data, 75)
	if err != nil {
		return nil
	}
	return &models.GPADistribution{
		Count:  len(gpas),
		Mean:   round2(mean),
		Median: round2(median),
		P25:    round2(p25),
		P75:    round2(p75),
	}
}
