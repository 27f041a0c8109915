package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
	"github.com/642studio/bachejoa/internal/reporting"
)

// Listing bounds for GET /api/reports.
const (
	DefaultReportPageSize = 200
	MaxReportPageSize     = 500
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrNotRepaired    = errors.New("report not repaired")
	ErrAlreadyRated   = errors.New("already rated")
)

var httpURL = regexp.MustCompile(`(?i)^https?://`)

// CreateReportInput is a new report as submitted by a caller.
type CreateReportInput struct {
	Lat         float64
	Lng         float64
	Type        string
	Category    string
	Subcategory string
	Status      string
	PhotoURL    string
}

// RatingSummary is the running repair rating of a report.
type RatingSummary struct {
	Avg   float64 `json:"repair_rating_avg"`
	Count int64   `json:"repair_rating_count"`
}

// ReportService implements the report lifecycle on top of the store.
// Authorization is decided by the caller; methods only enforce data rules
// and the anonymous quota.
type ReportService struct {
	store  datastore.Store
	quota  *AnonymousQuota
	logger *slog.Logger
	now    func() time.Time
}

// NewReportService creates a ReportService.
func NewReportService(store datastore.Store, quota *AnonymousQuota, logger *slog.Logger) *ReportService {
	return &ReportService{store: store, quota: quota, logger: logger, now: now}
}

// List returns one page of reports, newest first. limit is clamped to
// [1, MaxReportPageSize] with non-positive values meaning the default.
// after, when set, is the cursor of the previous page.
func (s *ReportService) List(ctx context.Context, limit int, after *model.ReportCursor) (*model.ReportPage, error) {
	if limit <= 0 {
		limit = DefaultReportPageSize
	}
	if limit > MaxReportPageSize {
		limit = MaxReportPageSize
	}

	q := datastore.Query{
		Table:   datastore.TableReports,
		Columns: model.ReportColumns,
		Order:   []query.OrderClause{query.Desc("created_at"), query.Desc("id")},
		Limit:   limit,
	}
	if after != nil {
		q.Filters = []query.Filter{query.AnyOf(
			[]query.Filter{query.Lt("created_at", after.Cursor)},
			[]query.Filter{query.Eq("created_at", after.Cursor), query.Lt("id", after.CursorID)},
		)}
	}

	reports := []model.Report{}
	if err := s.store.Select(ctx, q, &reports); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	page := &model.ReportPage{Data: reports}
	if len(reports) == limit {
		last := reports[len(reports)-1]
		page.NextCursor = &model.ReportCursor{Cursor: last.CreatedAt, CursorID: last.ID}
	}
	return page, nil
}

// ListByUser returns every report filed by userID, newest first.
func (s *ReportService) ListByUser(ctx context.Context, userID string) ([]model.Report, error) {
	reports := []model.Report{}
	err := s.store.Select(ctx, datastore.Query{
		Table:   datastore.TableReports,
		Columns: model.ReportColumns,
		Filters: []query.Filter{query.Eq("user_id", userID)},
		Order:   []query.OrderClause{query.Desc("created_at"), query.Desc("id")},
	}, &reports)
	if err != nil {
		return nil, fmt.Errorf("list user reports: %w", err)
	}
	return reports, nil
}

// Get loads one report.
func (s *ReportService) Get(ctx context.Context, id string) (*model.Report, error) {
	var r model.Report
	err := s.store.SelectOne(ctx, datastore.Query{
		Table:   datastore.TableReports,
		Columns: model.ReportColumns,
		Filters: []query.Filter{query.Eq("id", id)},
	}, &r)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &r, nil
}

// Create files a report. A nil user means an anonymous caller identified by
// fingerprint, subject to the anonymous quota.
func (s *ReportService) Create(ctx context.Context, in CreateReportInput, user *model.User, fingerprint string) (*model.Report, error) {
	if math.IsNaN(in.Lat) || math.IsInf(in.Lat, 0) || math.IsNaN(in.Lng) || math.IsInf(in.Lng, 0) {
		return nil, invalid("Invalid payload.")
	}
	norm, ok := reporting.Normalize(reporting.Input{
		Type:        in.Type,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		Status:      in.Status,
	})
	if !ok {
		return nil, invalid("Categoría o subtipo inválido.")
	}

	if user == nil {
		if err := s.quota.Check(ctx, fingerprint); err != nil {
			return nil, err
		}
	}

	created := s.now()
	r := &model.Report{
		ID:          uuid.NewString(),
		Lat:         in.Lat,
		Lng:         in.Lng,
		Type:        norm.Type,
		Category:    norm.Category,
		Subcategory: norm.Subcategory,
		Status:      norm.Status,
		CreatedAt:   created,
		Repaired:    norm.Status == reporting.StatusRepaired,
	}
	if p := strings.TrimSpace(in.PhotoURL); p != "" {
		r.PhotoURL = &p
	}
	if r.Repaired {
		r.RepairedAt = &created
	}

	row := datastore.Row{
		"id":                   r.ID,
		"lat":                  r.Lat,
		"lng":                  r.Lng,
		"type":                 r.Type,
		"category":             r.Category,
		"subcategory":          r.Subcategory,
		"status":               r.Status,
		"photo_url":            nil,
		"created_at":           r.CreatedAt,
		"angry_count":          0,
		"repaired":             r.Repaired,
		"repaired_at":          nil,
		"repair_rating_avg":    0.0,
		"repair_rating_count":  0,
		"user_id":              nil,
		"reporter_fingerprint": nil,
	}
	if r.PhotoURL != nil {
		row["photo_url"] = *r.PhotoURL
	}
	if r.RepairedAt != nil {
		row["repaired_at"] = created
	}
	if user != nil {
		row["user_id"] = user.ID
	} else {
		row["reporter_fingerprint"] = fingerprint
	}

	if err := s.store.Insert(ctx, datastore.TableReports, row); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.logger.Info("report created", "report_id", r.ID, "category", r.Category, "anonymous", user == nil)
	return r, nil
}

// Delete removes a report. Deleting a missing report is not an error.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Delete(ctx, datastore.TableReports, []query.Filter{query.Eq("id", id)}); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

// SetStatus moves a report to status. Reparado marks it repaired now; any
// other status clears the repair and its ratings.
func (s *ReportService) SetStatus(ctx context.Context, id, status string) (*model.Report, error) {
	status = strings.TrimSpace(status)
	if !reporting.ValidStatus(status) {
		return nil, invalid("Invalid status.")
	}
	if status == reporting.StatusRepaired {
		return s.update(ctx, id, s.repairedRow())
	}
	row := clearedRepairRow()
	row["status"] = status
	return s.update(ctx, id, row)
}

// SetRepaired toggles the repaired flag, moving the report to Reparado or
// back to Visible.
func (s *ReportService) SetRepaired(ctx context.Context, id string, repaired bool) (*model.Report, error) {
	if repaired {
		return s.update(ctx, id, s.repairedRow())
	}
	row := clearedRepairRow()
	row["status"] = reporting.StatusVisible
	return s.update(ctx, id, row)
}

func (s *ReportService) repairedRow() datastore.Row {
	return datastore.Row{
		"status":      reporting.StatusRepaired,
		"repaired":    true,
		"repaired_at": s.now(),
	}
}

func clearedRepairRow() datastore.Row {
	return datastore.Row{
		"repaired":            false,
		"repaired_at":         nil,
		"repair_rating_avg":   0.0,
		"repair_rating_count": 0,
	}
}

// SetType reclassifies a report.
func (s *ReportService) SetType(ctx context.Context, id, category, subcategory string) (*model.Report, error) {
	category = strings.TrimSpace(category)
	subcategory = strings.TrimSpace(subcategory)
	if !reporting.ValidSubcategory(category, subcategory) {
		return nil, invalid("Categoría o tipo inválido.")
	}
	return s.update(ctx, id, datastore.Row{
		"category":    category,
		"subcategory": subcategory,
		"type":        subcategory,
	})
}

// SetPhoto attaches an http(s) photo URL to a report.
func (s *ReportService) SetPhoto(ctx context.Context, id, photoURL string) (*model.Report, error) {
	photoURL = strings.TrimSpace(photoURL)
	if !httpURL.MatchString(photoURL) {
		return nil, invalid("Foto inválida.")
	}
	return s.update(ctx, id, datastore.Row{"photo_url": photoURL})
}

// update applies row to an existing report and returns the stored result.
// Existence is checked first because some drivers report zero affected rows
// when the values did not change.
func (s *ReportService) update(ctx context.Context, id string, row datastore.Row) (*model.Report, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.store.Update(ctx, datastore.TableReports, []query.Filter{query.Eq("id", id)}, row); err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}
	return s.Get(ctx, id)
}

// Rate records one repair rating from fingerprint and returns the new
// running average. Each fingerprint may rate a report once.
func (s *ReportService) Rate(ctx context.Context, id, fingerprint string, rating float64) (*RatingSummary, error) {
	if math.IsNaN(rating) || rating < 1 || rating > 5 || rating != math.Trunc(rating) {
		return nil, invalid("Invalid rating")
	}

	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Repaired {
		return nil, ErrNotRepaired
	}

	votes, err := s.store.Count(ctx, datastore.TableRepairRatings, []query.Filter{
		query.Eq("report_id", id),
		query.Eq("fingerprint", fingerprint),
	})
	if err != nil {
		return nil, fmt.Errorf("check existing rating: %w", err)
	}
	if votes > 0 {
		return nil, ErrAlreadyRated
	}

	if err := s.store.Insert(ctx, datastore.TableRepairRatings, datastore.Row{
		"id":          uuid.NewString(),
		"report_id":   id,
		"fingerprint": fingerprint,
		"rating":      int64(rating),
		"created_at":  s.now(),
	}); err != nil {
		if !errors.Is(err, datastore.ErrConflict) {
			s.logger.Warn("rating insert failed", "report_id", id, "error", err)
		}
		return nil, ErrAlreadyRated
	}

	next := &RatingSummary{Count: r.RepairRatingCount + 1}
	next.Avg = (r.RepairRatingAvg*float64(r.RepairRatingCount) + rating) / float64(next.Count)
	if _, err := s.store.Update(ctx, datastore.TableReports, []query.Filter{query.Eq("id", id)}, datastore.Row{
		"repair_rating_avg":   next.Avg,
		"repair_rating_count": next.Count,
	}); err != nil {
		return nil, fmt.Errorf("update rating: %w", err)
	}
	return next, nil
}

// Angry increments the "angry" counter of a report and returns the new
// value.
func (s *ReportService) Angry(ctx context.Context, id string) (int64, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	next := r.AngryCount + 1
	if _, err := s.store.Update(ctx, datastore.TableReports, []query.Filter{query.Eq("id", id)}, datastore.Row{
		"angry_count": next,
	}); err != nil {
		return 0, fmt.Errorf("update angry count: %w", err)
	}
	return next, nil
}
