package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/export"
)

type dashboardCounter interface {
	Count(ctx context.Context) (int, error)
}

type dashboardFeeRepository interface {
	Report(ctx context.Context) (*models.FeeReport, error)
	PendingTotal(ctx context.Context) (int64, error)
}

type dashboardSignupRepository interface {
	CountPending(ctx context.Context) (int, error)
}

type dashboardAttendanceRepository interface {
	Report(ctx context.Context, from, to *time.Time) ([]models.StudentAttendanceReport, error)
}

type dashboardTestRepository interface {
	MarksReport(ctx context.Context) ([]models.TestMarksReport, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DashboardService aggregates admin statistics and renders reports. Stats
// are cached in Redis for the configured TTL.
type DashboardService struct {
	students    dashboardCounter
	teachers    dashboardCounter
	courses     dashboardCounter
	batches     dashboardCounter
	fees        dashboardFeeRepository
	signups     dashboardSignupRepository
	attendances dashboardAttendanceRepository
	tests       dashboardTestRepository
	cache       dashboardCache
	cacheTTL    time.Duration
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(students, teachers, courses, batches dashboardCounter, fees dashboardFeeRepository, signups dashboardSignupRepository, attendances dashboardAttendanceRepository, tests dashboardTestRepository, cache dashboardCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students:    students,
		teachers:    teachers,
		courses:     courses,
		batches:     batches,
		fees:        fees,
		signups:     signups,
		attendances: attendances,
		tests:       tests,
		cache:       cache,
		cacheTTL:    cacheTTL,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

const dashboardStatsKey = "dashboard:stats"

// DashboardStats is the admin landing snapshot.
type DashboardStats struct {
	Students       int   `json:"total_students"`
	Teachers       int   `json:"total_teachers"`
	Courses        int   `json:"total_courses"`
	Batches        int   `json:"total_batches"`
	PendingSignups int   `json:"pending_signups"`
	PendingFees    int64 `json:"pending_fee_amount"`
	GeneratedAt    int64 `json:"generated_at"`
}

// Stats returns the counts snapshot, served from cache when fresh.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	var cached DashboardStats
	if s.cache != nil {
		if err := s.cache.Get(ctx, dashboardStatsKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	stats := &DashboardStats{GeneratedAt: time.Now().Unix()}
	counters := []struct {
		repo dashboardCounter
		dst  *int
	}{
		{s.students, &stats.Students},
		{s.teachers, &stats.Teachers},
		{s.courses, &stats.Courses},
		{s.batches, &stats.Batches},
	}
	for _, c := range counters {
		n, err := c.repo.Count(ctx)
		if err != nil {
			return nil, appErrors.Internal(err)
		}
		*c.dst = n
	}
	pendingSignups, err := s.signups.CountPending(ctx)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	stats.PendingSignups = pendingSignups
	pendingFees, err := s.fees.PendingTotal(ctx)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	stats.PendingFees = pendingFees

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardStatsKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// InvalidateStats drops the cached snapshot after bulk mutations.
func (s *DashboardService) InvalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// FeeReport returns the institute-wide collection report.
func (s *DashboardService) FeeReport(ctx context.Context) (*models.FeeReport, error) {
	report, err := s.fees.Report(ctx)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return report, nil
}

// AttendanceReport aggregates presence per student over a window.
func (s *DashboardService) AttendanceReport(ctx context.Context, from, to *time.Time) ([]models.StudentAttendanceReport, error) {
	rows, err := s.attendances.Report(ctx, from, to)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return rows, nil
}

// MarksReport aggregates test results per test across the institute.
func (s *DashboardService) MarksReport(ctx context.Context) ([]models.TestMarksReport, error) {
	rows, err := s.tests.MarksReport(ctx)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return rows, nil
}

// ExportMarksReport renders the marks report as csv or pdf.
func (s *DashboardService) ExportMarksReport(ctx context.Context, format string) ([]byte, string, error) {
	rows, err := s.MarksReport(ctx)
	if err != nil {
		return nil, "", err
	}
	dataset := export.Dataset{
		Headers: []string{"Test", "Course", "Teacher", "Total Marks", "Attempts", "Average", "Passed"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Test":        row.TestTitle,
			"Course":      row.CourseName,
			"Teacher":     row.TeacherName,
			"Total Marks": strconv.Itoa(row.TotalMarks),
			"Attempts":    strconv.Itoa(row.Attempts),
			"Average":     fmt.Sprintf("%.1f%%", row.AveragePercentage),
			"Passed":      strconv.Itoa(row.PassCount),
		})
	}
	return s.render(dataset, "Test Marks Report", format)
}

// ExportAttendanceReport renders the attendance report as csv or pdf.
func (s *DashboardService) ExportAttendanceReport(ctx context.Context, from, to *time.Time, format string) ([]byte, string, error) {
	rows, err := s.AttendanceReport(ctx, from, to)
	if err != nil {
		return nil, "", err
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Course", "Classes", "Present", "Percentage"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":    row.StudentName,
			"Course":     row.CourseLabel,
			"Classes":    strconv.Itoa(row.Total),
			"Present":    strconv.Itoa(row.Present),
			"Percentage": fmt.Sprintf("%.1f%%", row.Percentage),
		})
	}
	return s.render(dataset, "Attendance Report", format)
}

// ExportFeeReport renders the collection report as csv or pdf.
func (s *DashboardService) ExportFeeReport(ctx context.Context, format string) ([]byte, string, error) {
	report, err := s.FeeReport(ctx)
	if err != nil {
		return nil, "", err
	}
	dataset := export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows: []map[string]string{
			{"Metric": "Total fees", "Value": strconv.FormatInt(report.TotalFees, 10)},
			{"Metric": "Collected", "Value": strconv.FormatInt(report.CollectedFees, 10)},
			{"Metric": "Pending amount", "Value": strconv.FormatInt(report.PendingAmount, 10)},
			{"Metric": "Pending records", "Value": strconv.Itoa(report.PendingCount)},
			{"Metric": "Paid records", "Value": strconv.Itoa(report.PaidCount)},
			{"Metric": "Overdue records", "Value": strconv.Itoa(report.OverdueCount)},
		},
	}
	return s.render(dataset, "Fee Collection Report", format)
}

func (s *DashboardService) render(dataset export.Dataset, title, format string) ([]byte, string, error) {
	switch format {
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Internal(err)
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Internal(err)
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
