package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

// Rule limits one route to Limit requests per fingerprint per Window.
type Rule struct {
	Route  string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a rate-limit check. RetryAfterSeconds is only
// set when the request is denied.
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
}

// Route rules. All windows are one minute.
var (
	RuleLogin         = Rule{Route: "auth:login", Limit: 20, Window: time.Minute}
	RuleRegister      = Rule{Route: "auth:register", Limit: 10, Window: time.Minute}
	RuleProfileUpdate = Rule{Route: "auth:profile:update", Limit: 20, Window: time.Minute}
	RuleAccountRead   = Rule{Route: "account:read", Limit: 30, Window: time.Minute}
	RuleReportCreate  = Rule{Route: "reports:create", Limit: 12, Window: time.Minute}
	RuleReportDelete  = Rule{Route: "reports:delete", Limit: 6, Window: time.Minute}
	RuleReportStatus  = Rule{Route: "reports:status", Limit: 20, Window: time.Minute}
	RuleReportType    = Rule{Route: "reports:type", Limit: 20, Window: time.Minute}
	RuleReportRepair  = Rule{Route: "reports:repair", Limit: 8, Window: time.Minute}
	RuleReportPhoto   = Rule{Route: "reports:photo", Limit: 20, Window: time.Minute}
	RuleReportRating  = Rule{Route: "reports:rating", Limit: 20, Window: time.Minute}
	RuleReportAngry   = Rule{Route: "reports:angry", Limit: 30, Window: time.Minute}
	RuleUploadCreate  = Rule{Route: "uploads:create", Limit: 10, Window: time.Minute}
	RuleContactCreate = Rule{Route: "contact:create", Limit: 6, Window: time.Minute}
)

// isoMillis is the window-start layout hashed into counter keys.
const isoMillis = "2006-01-02T15:04:05.000Z"

// RateLimiter is a fixed-window counter stored in rate_limits. The
// read-then-write is not atomic, so concurrent requests may overshoot the
// limit slightly. Lookup failures allow the request.
type RateLimiter struct {
	store  datastore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimiter creates a RateLimiter over store.
func NewRateLimiter(store datastore.Store, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{store: store, logger: logger, now: now}
}

// Check counts r against rule using the caller's fingerprint.
func (l *RateLimiter) Check(r *http.Request, rule Rule) Decision {
	return l.CheckFingerprint(r.Context(), DeriveFingerprint(r).Fingerprint, rule)
}

// CheckFingerprint counts one request from fingerprint against rule.
func (l *RateLimiter) CheckFingerprint(ctx context.Context, fingerprint string, rule Rule) Decision {
	current := l.now()
	windowMs := rule.Window.Milliseconds()
	if windowMs <= 0 {
		windowMs = time.Minute.Milliseconds()
	}
	nowMs := current.UnixMilli()
	startMs := nowMs / windowMs * windowMs
	start := time.UnixMilli(startMs).UTC()
	key := sha256Hex(fingerprint + "|" + rule.Route + "|" + start.Format(isoMillis))

	var counter model.RateLimitCounter
	err := l.store.SelectOne(ctx, datastore.Query{
		Table:   datastore.TableRateLimits,
		Columns: []string{"count"},
		Filters: []query.Filter{query.Eq("key", key)},
	}, &counter)
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		// A concurrent first request may win the insert; either way this
		// request is the first one it saw.
		if err := l.store.Insert(ctx, datastore.TableRateLimits, datastore.Row{
			"key":          key,
			"fingerprint":  fingerprint,
			"route":        rule.Route,
			"window_start": start,
			"count":        1,
		}); err != nil && !errors.Is(err, datastore.ErrConflict) {
			l.logger.Debug("rate limit insert failed", "route", rule.Route, "error", err)
		}
		return Decision{Allowed: true}
	case err != nil:
		l.logger.Warn("rate limit lookup failed, allowing request", "route", rule.Route, "error", err)
		return Decision{Allowed: true}
	}

	if counter.Count >= rule.Limit {
		remaining := startMs + windowMs - nowMs
		retry := int((remaining + 999) / 1000)
		if retry < 1 {
			retry = 1
		}
		return Decision{Allowed: false, RetryAfterSeconds: retry}
	}

	if _, err := l.store.Update(ctx, datastore.TableRateLimits,
		[]query.Filter{query.Eq("key", key)},
		datastore.Row{"count": counter.Count + 1},
	); err != nil {
		l.logger.Warn("rate limit update failed", "route", rule.Route, "error", err)
	}
	return Decision{Allowed: true}
}
