package rewind

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Policy is the tiered retention rule set.
type Policy struct {
	// EntriesHours keeps every entry younger than this many hours.
	EntriesHours int

	// HourlyDays keeps one entry per project per hour up to this age in days.
	HourlyDays int

	// DailyDays keeps one entry per project per day up to this age in days.
	DailyDays int
}

// DefaultPolicy keeps everything for a day, hourly for a week and daily for a month.
func DefaultPolicy() Policy {
	return Policy{EntriesHours: 24, HourlyDays: 7, DailyDays: 30}
}

// Validate rejects negative windows.
func (p Policy) Validate() error {
	if p.EntriesHours < 0 || p.HourlyDays < 0 || p.DailyDays < 0 {
		return fmt.Errorf("retention windows must not be negative: %+v", p)
	}
	return nil
}

// PruneReport summarizes one retention pass.
type PruneReport struct {
	Scanned        int
	EntriesRemoved int
	BackupsRemoved int
	BytesFreed     int64
}

// Retention prunes old entries and sweeps backups nothing refers to.
type Retention struct {
	database Database
	store    *Store
	policy   Policy
	logger   Logger
	clock    Clock
}

// NewRetention creates a Retention engine.
func NewRetention(database Database, store *Store, policy Policy, logger Logger, clock Clock) *Retention {
	return &Retention{
		database: database,
		store:    store,
		policy:   policy,
		logger:   logger,
		clock:    clock,
	}
}

// Prune applies the policy to every project and then sweeps the backup store.
// Checkpoint-bound entries are never removed; an entry bound after the scan
// survives because each delete re-checks the binding.
func (r *Retention) Prune(ctx context.Context) (*PruneReport, error) {
	rows, err := r.database.ListRetentionCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning ledger: %w", err)
	}

	candidates := make([]retentionCandidate, len(rows))
	for i, row := range rows {
		candidates[i] = retentionCandidate{
			ID:        row.ID,
			ProjectID: row.ProjectID,
			Seq:       row.Seq,
			CreatedAt: row.CreatedAt,
			Bound:     row.Bound != 0,
		}
	}

	report := &PruneReport{Scanned: len(candidates)}
	for _, id := range planPrune(candidates, r.clock.Now(), r.policy) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		removed, err := r.database.DeleteEntryIfUnbound(ctx, id)
		if err != nil {
			return report, fmt.Errorf("deleting entry %d: %w", id, err)
		}
		if removed {
			report.EntriesRemoved++
		}
	}

	sweep, err := r.store.Sweep(ctx)
	if sweep != nil {
		report.BackupsRemoved = sweep.Removed
		report.BytesFreed = sweep.BytesFreed
	}
	if err != nil {
		return report, fmt.Errorf("sweeping backups: %w", err)
	}

	if err := r.database.RecomputeProjectSizes(ctx); err != nil {
		return report, fmt.Errorf("updating project sizes: %w", err)
	}

	r.logger.Info("prune complete", "scanned", report.Scanned, "entries_removed", report.EntriesRemoved, "backups_removed", report.BackupsRemoved, "bytes_freed", report.BytesFreed)
	return report, nil
}

// Run prunes every interval until ctx is done. Failed passes are logged and
// retried at the next tick.
func (r *Retention) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Prune(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("scheduled prune failed", "error", err)
			}
		}
	}
}

type retentionCandidate struct {
	ID        int64
	ProjectID string
	Seq       int64
	CreatedAt time.Time
	Bound     bool
}

type bucketKey struct {
	projectID string
	tier      byte
	start     time.Time
}

// planPrune returns the ids of entries the policy removes.
func planPrune(candidates []retentionCandidate, now time.Time, p Policy) []int64 {
	entriesWindow := time.Duration(p.EntriesHours) * time.Hour
	hourlyWindow := time.Duration(p.HourlyDays) * 24 * time.Hour
	dailyWindow := time.Duration(p.DailyDays) * 24 * time.Hour

	bucketOf := func(c retentionCandidate) (bucketKey, bool) {
		age := now.Sub(c.CreatedAt)
		at := c.CreatedAt.UTC()
		switch {
		case age < entriesWindow:
			return bucketKey{}, false
		case age < hourlyWindow:
			return bucketKey{c.ProjectID, 'h', at.Truncate(time.Hour)}, true
		case age < dailyWindow:
			return bucketKey{c.ProjectID, 'd', time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)}, true
		}
		return bucketKey{c.ProjectID, 'x', time.Time{}}, true
	}

	sorted := make([]retentionCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProjectID != sorted[j].ProjectID {
			return sorted[i].ProjectID < sorted[j].ProjectID
		}
		return sorted[i].Seq > sorted[j].Seq
	})

	// Checkpoint-bound entries claim their bucket first.
	occupied := make(map[bucketKey]bool)
	for _, c := range sorted {
		if !c.Bound {
			continue
		}
		if key, ok := bucketOf(c); ok {
			occupied[key] = true
		}
	}

	var prune []int64
	for _, c := range sorted {
		if c.Bound || now.Before(c.CreatedAt) {
			continue
		}
		key, ok := bucketOf(c)
		if !ok {
			continue
		}
		if key.tier == 'x' || occupied[key] {
			prune = append(prune, c.ID)
			continue
		}
		occupied[key] = true
	}
	return prune
}
