/*
Package sqlite provides the SQLite-backed implementation of period.TxStore.

PURPOSE:
  Persists periods, their child collections and the append-only revision
  trail. The same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  time_periods:               parent rows
  period_breaks:              ordered breaks, cascade on delete
  period_used_equipment:      used equipment references, cascade on delete
  period_mobilised_equipment: mobilised equipment references, cascade
  period_pay_rates:           per-category allocations, cascade
  period_revisions:           audit trail - NO cascade, survives deletion
  system_limits:              one shared configuration row

APPEND-ONLY ENFORCEMENT:
  period_revisions carries BEFORE UPDATE / BEFORE DELETE triggers that abort
  the statement. Even raw SQL cannot rewrite history.

CHILD COLLECTIONS:
  UpdatePeriod rewrites the parent row and fully replaces every child
  collection inside one SQL transaction - replace-whole-collection
  semantics, not incremental patching.

CONCURRENCY:
  A single writer mutex serializes WithTx units, so the conflict detector's
  read of sibling periods is atomic with respect to the candidate's write.
  UpdatePeriod additionally matches the caller's expected revision_number
  in its WHERE clause as a second line of defense against lost updates.

WAL MODE:
  The database is opened with WAL and foreign keys on: readers don't block,
  one writer at a time, cascading deletes work.

USAGE:
  store, err := sqlite.New("./data/periods.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  wf := period.NewWorkflow(store)

MIGRATION:
  Schema is versioned with golang-migrate; New() applies pending migrations
  from the embedded files. See store/sqlite/migrations.

SEE ALSO:
  - period/store.go: Interface definitions
  - period/workflow.go: Higher-level workflow using TxStore
  - period/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/sitework/period-engine/period"
	"github.com/sitework/period-engine/store/sqlite/migrations"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Store implements period.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at dbPath and applies pending
// migrations. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every pooled connection to ":memory:" is a separate database, so the
	// pool must stay at one connection or queries race the migrated schema.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migration status commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries bundles every statement so the same code serves both the plain
// store and the transactional view.
type queries struct {
	db dbtx
}

// =============================================================================
// TRANSACTIONAL STORE (period.TxStore interface)
// =============================================================================

// WithTx executes fn within one database transaction, serialized against
// every other writer. If fn returns an error the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(period.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{queries{db: sqlTx}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// txStore is the view handed to WithTx callbacks.
type txStore struct {
	queries
}

// =============================================================================
// PERIOD READS
// =============================================================================

func (s *Store) GetPeriod(ctx context.Context, id string) (*period.TimePeriod, error) {
	return queries{db: s.db}.GetPeriod(ctx, id)
}

func (s *Store) ListPeriods(ctx context.Context, filter period.ListFilter) ([]*period.TimePeriod, error) {
	return queries{db: s.db}.ListPeriods(ctx, filter)
}

func (s *Store) ListForWorkerDate(ctx context.Context, workerID string, date time.Time) ([]*period.TimePeriod, error) {
	return queries{db: s.db}.ListForWorkerDate(ctx, workerID, date)
}

const periodColumns = `id, worker_id, project_id, plant_id, workshop_task_id,
	work_date, start_time, finish_time, status, revision_number,
	supervisor_edited, admin_edited, note, lat, lon, accuracy_m,
	travel_to_site_min, travel_from_site_min, misc_allowance_min, on_call,
	concrete_mix_type, concrete_qty, submitted_by, submitted_at,
	created_at, updated_at`

func (q queries) GetPeriod(ctx context.Context, id string) (*period.TimePeriod, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM time_periods WHERE id = ?`, id)

	p, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return nil, period.ErrPeriodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning period: %w", err)
	}
	if err := q.loadChildren(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (q queries) ListPeriods(ctx context.Context, filter period.ListFilter) ([]*period.TimePeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM time_periods WHERE 1=1`
	var args []any
	if filter.WorkerID != "" {
		query += ` AND worker_id = ?`
		args = append(args, filter.WorkerID)
	}
	if filter.Date != nil {
		query += ` AND work_date = ?`
		args = append(args, filter.Date.Format(dateLayout))
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY work_date ASC, start_time ASC`

	return q.queryPeriods(ctx, query, args...)
}

func (q queries) ListForWorkerDate(ctx context.Context, workerID string, date time.Time) ([]*period.TimePeriod, error) {
	return q.queryPeriods(ctx,
		`SELECT `+periodColumns+` FROM time_periods
		 WHERE worker_id = ? AND work_date = ?
		 ORDER BY start_time ASC`,
		workerID, date.Format(dateLayout))
}

func (q queries) queryPeriods(ctx context.Context, query string, args ...any) ([]*period.TimePeriod, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying periods: %w", err)
	}
	defer rows.Close()

	var periods []*period.TimePeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning period: %w", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range periods {
		if err := q.loadChildren(ctx, p); err != nil {
			return nil, err
		}
	}
	return periods, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row scanner) (*period.TimePeriod, error) {
	var (
		p           period.TimePeriod
		projectID   sql.NullString
		plantID     sql.NullString
		workshopID  sql.NullString
		workDate    string
		startTime   string
		finishTime  string
		status      string
		supEdited   int
		adminEdited int
		lat         sql.NullFloat64
		lon         sql.NullFloat64
		accuracy    sql.NullFloat64
		onCall      int
		concreteQty sql.NullString
		submittedAt sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(
		&p.ID, &p.WorkerID, &projectID, &plantID, &workshopID,
		&workDate, &startTime, &finishTime, &status, &p.RevisionNumber,
		&supEdited, &adminEdited, &p.Note, &lat, &lon, &accuracy,
		&p.TravelToSiteMin, &p.TravelFromSiteMin, &p.MiscAllowanceMin, &onCall,
		&p.ConcreteMixType, &concreteQty, &p.SubmittedBy, &submittedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ProjectID = nullStrPtr(projectID)
	p.PlantID = nullStrPtr(plantID)
	p.WorkshopTaskID = nullStrPtr(workshopID)
	p.WorkDate, _ = time.ParseInLocation(dateLayout, workDate, time.UTC)
	p.Start, _ = time.Parse(timeLayout, startTime)
	p.Finish, _ = time.Parse(timeLayout, finishTime)
	p.Status = period.Status(status)
	p.SupervisorEdited = supEdited != 0
	p.AdminEdited = adminEdited != 0
	p.Lat = nullFloatPtr(lat)
	p.Lon = nullFloatPtr(lon)
	p.AccuracyM = nullFloatPtr(accuracy)
	p.OnCall = onCall != 0
	if concreteQty.Valid && concreteQty.String != "" {
		d, err := decimal.NewFromString(concreteQty.String)
		if err != nil {
			return nil, fmt.Errorf("parsing concrete_qty: %w", err)
		}
		p.ConcreteQty = &d
	}
	if submittedAt.Valid && submittedAt.String != "" {
		p.SubmittedAt, _ = time.Parse(timeLayout, submittedAt.String)
	}
	p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)

	return &p, nil
}

func (q queries) loadChildren(ctx context.Context, p *period.TimePeriod) error {
	var err error
	if p.Breaks, err = q.loadBreaks(ctx, p.ID); err != nil {
		return err
	}
	if p.UsedEquipment, err = q.loadEquipment(ctx, p.ID, period.EquipmentUsed); err != nil {
		return err
	}
	if p.MobilisedEquipment, err = q.loadEquipment(ctx, p.ID, period.EquipmentMobilised); err != nil {
		return err
	}
	if p.PayRates, err = q.loadPayRates(ctx, p.ID); err != nil {
		return err
	}
	return nil
}

func (q queries) loadBreaks(ctx context.Context, periodID string) ([]period.Break, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, period_id, break_start, break_finish, reason, display_order
		 FROM period_breaks WHERE period_id = ? ORDER BY display_order ASC`, periodID)
	if err != nil {
		return nil, fmt.Errorf("querying breaks: %w", err)
	}
	defer rows.Close()

	var breaks []period.Break
	for rows.Next() {
		var (
			b      period.Break
			start  string
			finish sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.PeriodID, &start, &finish, &b.Reason, &b.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scanning break: %w", err)
		}
		b.Start, _ = time.Parse(timeLayout, start)
		if finish.Valid && finish.String != "" {
			t, _ := time.Parse(timeLayout, finish.String)
			b.Finish = &t
		}
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}

func equipmentTable(kind period.EquipmentKind) string {
	if kind == period.EquipmentMobilised {
		return "period_mobilised_equipment"
	}
	return "period_used_equipment"
}

func (q queries) loadEquipment(ctx context.Context, periodID string, kind period.EquipmentKind) ([]period.EquipmentRef, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, period_id, plant_id, display_order FROM `+equipmentTable(kind)+
			` WHERE period_id = ? ORDER BY display_order ASC`, periodID)
	if err != nil {
		return nil, fmt.Errorf("querying %s equipment: %w", kind, err)
	}
	defer rows.Close()

	var refs []period.EquipmentRef
	for rows.Next() {
		r := period.EquipmentRef{Kind: kind}
		if err := rows.Scan(&r.ID, &r.PeriodID, &r.PlantID, &r.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scanning equipment reference: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (q queries) loadPayRates(ctx context.Context, periodID string) ([]period.PayRateAllocation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, period_id, category, hours, minutes_remainder
		 FROM period_pay_rates WHERE period_id = ? ORDER BY category ASC`, periodID)
	if err != nil {
		return nil, fmt.Errorf("querying pay rates: %w", err)
	}
	defer rows.Close()

	var rates []period.PayRateAllocation
	for rows.Next() {
		var (
			r     period.PayRateAllocation
			hours string
		)
		if err := rows.Scan(&r.ID, &r.PeriodID, &r.Category, &hours, &r.MinutesRemainder); err != nil {
			return nil, fmt.Errorf("scanning pay rate: %w", err)
		}
		d, err := decimal.NewFromString(hours)
		if err != nil {
			return nil, fmt.Errorf("parsing pay rate hours: %w", err)
		}
		r.Hours = d
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// =============================================================================
// PERIOD WRITES
// =============================================================================

func (s *Store) CreatePeriod(ctx context.Context, p *period.TimePeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{db: s.db}.CreatePeriod(ctx, p)
}

func (s *Store) UpdatePeriod(ctx context.Context, p *period.TimePeriod, expectedRevision int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{db: s.db}.UpdatePeriod(ctx, p, expectedRevision)
}

func (s *Store) DeletePeriod(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{db: s.db}.DeletePeriod(ctx, id)
}

func (q queries) CreatePeriod(ctx context.Context, p *period.TimePeriod) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO time_periods (`+periodColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		periodArgs(p)...)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return period.ErrPeriodExists
		}
		return fmt.Errorf("inserting period: %w", err)
	}
	return q.insertChildren(ctx, p)
}

func (q queries) UpdatePeriod(ctx context.Context, p *period.TimePeriod, expectedRevision int) error {
	// The revision predicate rejects lost updates even when a caller bypasses
	// the workflow's own stale check. The caller states the exact revision it
	// read; anything else on disk leaves the row untouched.
	res, err := q.db.ExecContext(ctx,
		`UPDATE time_periods SET
			worker_id = ?, project_id = ?, plant_id = ?, workshop_task_id = ?,
			work_date = ?, start_time = ?, finish_time = ?, status = ?,
			revision_number = ?, supervisor_edited = ?, admin_edited = ?,
			note = ?, lat = ?, lon = ?, accuracy_m = ?,
			travel_to_site_min = ?, travel_from_site_min = ?, misc_allowance_min = ?,
			on_call = ?, concrete_mix_type = ?, concrete_qty = ?,
			submitted_by = ?, submitted_at = ?, created_at = ?, updated_at = ?
		 WHERE id = ? AND revision_number = ?`,
		append(periodArgs(p)[1:], p.ID, expectedRevision)...)
	if err != nil {
		return fmt.Errorf("updating period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var stored int
		row := q.db.QueryRowContext(ctx,
			`SELECT revision_number FROM time_periods WHERE id = ?`, p.ID)
		if err := row.Scan(&stored); err != nil {
			if err == sql.ErrNoRows {
				return period.ErrPeriodNotFound
			}
			return err
		}
		return &period.ConcurrencyError{
			PeriodID:         p.ID,
			SuppliedRevision: expectedRevision,
			StoredRevision:   stored,
		}
	}

	if err := q.deleteChildren(ctx, p.ID); err != nil {
		return err
	}
	return q.insertChildren(ctx, p)
}

func (q queries) DeletePeriod(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM time_periods WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return period.ErrPeriodNotFound
	}
	return nil
}

func periodArgs(p *period.TimePeriod) []any {
	var concreteQty any
	if p.ConcreteQty != nil {
		concreteQty = p.ConcreteQty.String()
	}
	return []any{
		p.ID,
		p.WorkerID,
		nullStr(p.ProjectID),
		nullStr(p.PlantID),
		nullStr(p.WorkshopTaskID),
		p.WorkDate.Format(dateLayout),
		p.Start.UTC().Format(timeLayout),
		p.Finish.UTC().Format(timeLayout),
		string(p.Status),
		p.RevisionNumber,
		boolInt(p.SupervisorEdited),
		boolInt(p.AdminEdited),
		p.Note,
		nullFloat(p.Lat),
		nullFloat(p.Lon),
		nullFloat(p.AccuracyM),
		p.TravelToSiteMin,
		p.TravelFromSiteMin,
		p.MiscAllowanceMin,
		boolInt(p.OnCall),
		p.ConcreteMixType,
		concreteQty,
		p.SubmittedBy,
		p.SubmittedAt.UTC().Format(timeLayout),
		p.CreatedAt.UTC().Format(timeLayout),
		p.UpdatedAt.UTC().Format(timeLayout),
	}
}

// insertChildren writes the full child set. UpdatePeriod clears the prior
// set first; CreatePeriod starts from an empty one. Whole-collection
// replacement, not incremental patching.
func (q queries) insertChildren(ctx context.Context, p *period.TimePeriod) error {
	for _, b := range p.Breaks {
		var finish any
		if b.Finish != nil {
			finish = b.Finish.UTC().Format(timeLayout)
		}
		_, err := q.db.ExecContext(ctx,
			`INSERT INTO period_breaks (id, period_id, break_start, break_finish, reason, display_order)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, p.ID, b.Start.UTC().Format(timeLayout), finish, b.Reason, b.DisplayOrder)
		if err != nil {
			return fmt.Errorf("inserting break: %w", err)
		}
	}

	for _, refs := range [][]period.EquipmentRef{p.UsedEquipment, p.MobilisedEquipment} {
		for _, r := range refs {
			_, err := q.db.ExecContext(ctx,
				`INSERT INTO `+equipmentTable(r.Kind)+` (id, period_id, plant_id, display_order)
				 VALUES (?, ?, ?, ?)`,
				r.ID, p.ID, r.PlantID, r.DisplayOrder)
			if err != nil {
				return fmt.Errorf("inserting %s equipment reference: %w", r.Kind, err)
			}
		}
	}

	for _, r := range p.PayRates {
		_, err := q.db.ExecContext(ctx,
			`INSERT INTO period_pay_rates (id, period_id, category, hours, minutes_remainder)
			 VALUES (?, ?, ?, ?, ?)`,
			r.ID, p.ID, string(r.Category), r.Hours.String(), r.MinutesRemainder)
		if err != nil {
			return fmt.Errorf("inserting pay rate: %w", err)
		}
	}
	return nil
}

func (q queries) deleteChildren(ctx context.Context, periodID string) error {
	for _, table := range []string{
		"period_breaks",
		"period_used_equipment",
		"period_mobilised_equipment",
		"period_pay_rates",
	} {
		if _, err := q.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE period_id = ?`, periodID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// REVISIONS (append-only)
// =============================================================================

func (s *Store) AppendRevisions(ctx context.Context, entries []period.RevisionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{db: s.db}.AppendRevisions(ctx, entries)
}

func (s *Store) ListRevisions(ctx context.Context, periodID string) ([]period.RevisionEntry, error) {
	return queries{db: s.db}.ListRevisions(ctx, periodID)
}

func (q queries) AppendRevisions(ctx context.Context, entries []period.RevisionEntry) error {
	for _, e := range entries {
		_, err := q.db.ExecContext(ctx,
			`INSERT INTO period_revisions
			 (id, period_id, revision_number, recorded_at, actor_id, actor_role,
			  change_type, stage, field_name, old_value, new_value,
			  is_revision, is_approval, is_edit)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.PeriodID, e.RevisionNumber,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.ActorID, string(e.ActorRole), string(e.ChangeType), string(e.Stage),
			e.FieldName, e.OldValue, e.NewValue,
			boolInt(e.IsRevision), boolInt(e.IsApproval), boolInt(e.IsEdit))
		if err != nil {
			return fmt.Errorf("appending revision entry: %w", err)
		}
	}
	return nil
}

func (q queries) ListRevisions(ctx context.Context, periodID string) ([]period.RevisionEntry, error) {
	// rowid breaks ties for entries recorded in the same batch.
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, period_id, revision_number, recorded_at, actor_id, actor_role,
		        change_type, stage, field_name, old_value, new_value,
		        is_revision, is_approval, is_edit
		 FROM period_revisions WHERE period_id = ?
		 ORDER BY recorded_at ASC, rowid ASC`, periodID)
	if err != nil {
		return nil, fmt.Errorf("querying revisions: %w", err)
	}
	defer rows.Close()

	var entries []period.RevisionEntry
	for rows.Next() {
		var (
			e          period.RevisionEntry
			recordedAt string
			isRevision int
			isApproval int
			isEdit     int
		)
		err := rows.Scan(&e.ID, &e.PeriodID, &e.RevisionNumber, &recordedAt,
			&e.ActorID, &e.ActorRole, &e.ChangeType, &e.Stage,
			&e.FieldName, &e.OldValue, &e.NewValue,
			&isRevision, &isApproval, &isEdit)
		if err != nil {
			return nil, fmt.Errorf("scanning revision entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, recordedAt)
		e.IsRevision = isRevision != 0
		e.IsApproval = isApproval != 0
		e.IsEdit = isEdit != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// SYSTEM LIMITS
// =============================================================================

func (s *Store) GetLimits(ctx context.Context) (period.SystemLimits, error) {
	return queries{db: s.db}.GetLimits(ctx)
}

func (s *Store) SaveLimits(ctx context.Context, limits period.SystemLimits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{db: s.db}.SaveLimits(ctx, limits)
}

func (q queries) GetLimits(ctx context.Context) (period.SystemLimits, error) {
	var l period.SystemLimits
	err := q.db.QueryRowContext(ctx,
		`SELECT max_breaks, max_used_equipment, max_mobilised_equipment
		 FROM system_limits WHERE id = 1`,
	).Scan(&l.MaxBreaks, &l.MaxUsedEquipment, &l.MaxMobilisedEquipment)
	if err == sql.ErrNoRows {
		return period.DefaultLimits(), nil
	}
	if err != nil {
		return period.SystemLimits{}, fmt.Errorf("reading limits: %w", err)
	}
	return l.Normalized(), nil
}

func (q queries) SaveLimits(ctx context.Context, limits period.SystemLimits) error {
	l := limits.Normalized()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO system_limits (id, max_breaks, max_used_equipment, max_mobilised_equipment)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			max_breaks = excluded.max_breaks,
			max_used_equipment = excluded.max_used_equipment,
			max_mobilised_equipment = excluded.max_mobilised_equipment`,
		l.MaxBreaks, l.MaxUsedEquipment, l.MaxMobilisedEquipment)
	if err != nil {
		return fmt.Errorf("saving limits: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullStr(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullStrPtr(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	v := ns.String
	return &v
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullFloatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface checks.
var (
	_ period.Store   = (*Store)(nil)
	_ period.TxStore = (*Store)(nil)
)
