package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

// AnonymousReportLimit is how many reports one fingerprint may create
// without an account.
const AnonymousReportLimit = 5

// ErrAnonLimit is returned when an anonymous caller has used up its quota.
var ErrAnonLimit = errors.New("anonymous report limit reached")

// IsAdmin reports whether user may perform privileged operations. The role
// column is the only source of privilege.
func IsAdmin(user *model.User) bool {
	return user != nil && user.Role == model.RoleAdmin
}

// AnonymousQuota enforces the per-fingerprint cap on anonymous reports.
type AnonymousQuota struct {
	store datastore.Store
	limit int64
}

// NewAnonymousQuota returns a quota of AnonymousReportLimit reports.
func NewAnonymousQuota(store datastore.Store) *AnonymousQuota {
	return &AnonymousQuota{store: store, limit: AnonymousReportLimit}
}

// Check returns ErrAnonLimit when fingerprint already owns the maximum
// number of anonymous reports. Storage errors are returned as-is; the
// caller must not treat them as permission.
func (q *AnonymousQuota) Check(ctx context.Context, fingerprint string) error {
	n, err := q.store.Count(ctx, datastore.TableReports, []query.Filter{
		query.Eq("reporter_fingerprint", fingerprint),
	})
	if err != nil {
		return fmt.Errorf("count anonymous reports: %w", err)
	}
	if n >= q.limit {
		return ErrAnonLimit
	}
	return nil
}
