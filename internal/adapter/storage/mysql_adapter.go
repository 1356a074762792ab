package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/port"
)

var ErrOptimisticLock = errors.New("optimistic lock conflict")

type MySQLAdapter struct {
	db *sqlx.DB
	mysqlRepos
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db, mysqlRepos: mysqlRepos{q: db}}
}

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.Repositories) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(mysqlRepos{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// mysqlRepos runs against either the pool or an open transaction.
type mysqlRepos struct {
	q sqlx.ExtContext
}

func (r mysqlRepos) Items() port.ItemRepository         { return r }
func (r mysqlRepos) Schedules() port.ScheduleRepository { return r }
func (r mysqlRepos) Tickets() port.TicketRepository     { return r }

type itemRow struct {
	ID                    string       `db:"id"`
	Title                 string       `db:"title"`
	Quantity              int          `db:"quantity"`
	MinimumStock          int          `db:"minimum_stock"`
	InMaintenanceQuantity int          `db:"in_maintenance_quantity"`
	Status                string       `db:"status"`
	NextMaintenanceDate   sql.NullTime `db:"next_maintenance_date"`
	Version               int          `db:"version"`
	CreatedAt             time.Time    `db:"created_at"`
	UpdatedAt             time.Time    `db:"updated_at"`
}

func (row itemRow) toDomain() *domain.InventoryItem {
	return &domain.InventoryItem{
		ID:                    row.ID,
		Title:                 row.Title,
		Quantity:              row.Quantity,
		MinimumStock:          row.MinimumStock,
		InMaintenanceQuantity: row.InMaintenanceQuantity,
		Status:                domain.ItemStatus(row.Status),
		NextMaintenanceDate:   fromNullTime(row.NextMaintenanceDate),
		Version:               row.Version,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
}

const itemColumns = `id, title, quantity, minimum_stock, in_maintenance_quantity, status,
	next_maintenance_date, version, created_at, updated_at`

func (r mysqlRepos) CreateItem(ctx context.Context, item domain.InventoryItem) error {
	item.Refresh()
	now := time.Now()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO inventory_items (id, title, quantity, minimum_stock, in_maintenance_quantity, status,
			next_maintenance_date, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		item.ID, item.Title, item.Quantity, item.MinimumStock, item.InMaintenanceQuantity, item.Status,
		toNullTime(item.NextMaintenanceDate), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r mysqlRepos) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return r.getItem(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id)
}

func (r mysqlRepos) GetItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return r.getItem(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ? FOR UPDATE`, id)
}

func (r mysqlRepos) getItem(ctx context.Context, query, id string) (*domain.InventoryItem, error) {
	var row itemRow
	err := sqlx.GetContext(ctx, r.q, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return row.toDomain(), nil
}

func (r mysqlRepos) UpdateInventory(ctx context.Context, item domain.InventoryItem) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = ?, minimum_stock = ?, in_maintenance_quantity = ?, status = ?,
			version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ?`,
		item.Quantity, item.MinimumStock, item.InMaintenanceQuantity, item.Status,
		item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}

	return nil
}

func (r mysqlRepos) SetNextMaintenanceDate(ctx context.Context, itemID string, date *time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE inventory_items SET next_maintenance_date = ?, updated_at = NOW() WHERE id = ?`,
		toNullTime(date), itemID,
	)
	if err != nil {
		return fmt.Errorf("update next maintenance date: %w", err)
	}
	return nil
}

type scheduleRow struct {
	ID               string         `db:"id"`
	ItemID           string         `db:"item_id"`
	MaintenanceType  string         `db:"maintenance_type"`
	Description      sql.NullString `db:"description"`
	ScheduledDate    time.Time      `db:"scheduled_date"`
	IsCompleted      bool           `db:"is_completed"`
	CompletedDate    sql.NullTime   `db:"completed_date"`
	CompletedBy      sql.NullString `db:"completed_by"`
	TicketID         sql.NullString `db:"ticket_id"`
	InventoryAction  string         `db:"inventory_action"`
	QuantityAffected int            `db:"quantity_affected"`
	Reminder14Sent   bool           `db:"reminder_14_sent"`
	Reminder7Sent    bool           `db:"reminder_7_sent"`
	Reminder1Sent    bool           `db:"reminder_1_sent"`
	CreatedBy        sql.NullString `db:"created_by"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (row scheduleRow) toDomain() domain.ScheduledMaintenance {
	return domain.ScheduledMaintenance{
		ID:               row.ID,
		ItemID:           row.ItemID,
		MaintenanceType:  domain.MaintenanceType(row.MaintenanceType),
		Description:      fromNullString(row.Description),
		ScheduledDate:    row.ScheduledDate,
		IsCompleted:      row.IsCompleted,
		CompletedDate:    fromNullTime(row.CompletedDate),
		CompletedBy:      fromNullString(row.CompletedBy),
		TicketID:         fromNullString(row.TicketID),
		InventoryAction:  domain.InventoryAction(row.InventoryAction),
		QuantityAffected: row.QuantityAffected,
		Reminder14Sent:   row.Reminder14Sent,
		Reminder7Sent:    row.Reminder7Sent,
		Reminder1Sent:    row.Reminder1Sent,
		CreatedBy:        fromNullString(row.CreatedBy),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

const scheduleColumns = `id, item_id, maintenance_type, description, scheduled_date, is_completed,
	completed_date, completed_by, ticket_id, inventory_action, quantity_affected,
	reminder_14_sent, reminder_7_sent, reminder_1_sent, created_by, created_at, updated_at`

func (r mysqlRepos) CreateSchedule(ctx context.Context, s domain.ScheduledMaintenance) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO scheduled_maintenance (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ItemID, s.MaintenanceType, toNullString(s.Description), s.ScheduledDate, s.IsCompleted,
		toNullTime(s.CompletedDate), toNullString(s.CompletedBy), toNullString(s.TicketID),
		s.InventoryAction, s.QuantityAffected, s.Reminder14Sent, s.Reminder7Sent, s.Reminder1Sent,
		toNullString(s.CreatedBy), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (r mysqlRepos) GetSchedule(ctx context.Context, id string) (*domain.ScheduledMaintenance, error) {
	return r.getSchedule(ctx, `SELECT `+scheduleColumns+` FROM scheduled_maintenance WHERE id = ?`, id)
}

func (r mysqlRepos) GetScheduleForUpdate(ctx context.Context, id string) (*domain.ScheduledMaintenance, error) {
	return r.getSchedule(ctx, `SELECT `+scheduleColumns+` FROM scheduled_maintenance WHERE id = ? FOR UPDATE`, id)
}

func (r mysqlRepos) getSchedule(ctx context.Context, query, id string) (*domain.ScheduledMaintenance, error) {
	var row scheduleRow
	err := sqlx.GetContext(ctx, r.q, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	s := row.toDomain()
	return &s, nil
}

func (r mysqlRepos) UpdateSchedule(ctx context.Context, s domain.ScheduledMaintenance) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE scheduled_maintenance
		SET item_id = ?, maintenance_type = ?, description = ?, scheduled_date = ?, is_completed = ?,
			completed_date = ?, completed_by = ?, ticket_id = ?, inventory_action = ?, quantity_affected = ?,
			reminder_14_sent = ?, reminder_7_sent = ?, reminder_1_sent = ?, updated_at = ?
		WHERE id = ?`,
		s.ItemID, s.MaintenanceType, toNullString(s.Description), s.ScheduledDate, s.IsCompleted,
		toNullTime(s.CompletedDate), toNullString(s.CompletedBy), toNullString(s.TicketID),
		s.InventoryAction, s.QuantityAffected, s.Reminder14Sent, s.Reminder7Sent, s.Reminder1Sent,
		s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

func (r mysqlRepos) DeleteSchedule(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM scheduled_maintenance WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

func (r mysqlRepos) ListSchedules(ctx context.Context, filter domain.ScheduleFilter) ([]domain.ScheduledMaintenance, error) {
	where, args := scheduleWhere(filter)
	var rows []scheduleRow
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_maintenance` + where + ` ORDER BY scheduled_date ASC, created_at ASC`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	out := make([]domain.ScheduledMaintenance, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r mysqlRepos) CountSchedules(ctx context.Context, filter domain.ScheduleFilter) (int, error) {
	where, args := scheduleWhere(filter)
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM scheduled_maintenance`+where, args...); err != nil {
		return 0, fmt.Errorf("count schedules: %w", err)
	}
	return n, nil
}

func (r mysqlRepos) EarliestPendingDate(ctx context.Context, itemID string) (*time.Time, error) {
	var next sql.NullTime
	err := sqlx.GetContext(ctx, r.q, &next, `
		SELECT MIN(scheduled_date) FROM scheduled_maintenance
		WHERE item_id = ? AND is_completed = FALSE`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query earliest pending date: %w", err)
	}
	return fromNullTime(next), nil
}

func scheduleWhere(f domain.ScheduleFilter) (string, []any) {
	var conds []string
	var args []any
	if f.ItemID != nil {
		conds = append(conds, "item_id = ?")
		args = append(args, *f.ItemID)
	}
	if f.IsCompleted != nil {
		conds = append(conds, "is_completed = ?")
		args = append(args, *f.IsCompleted)
	}
	if f.MaintenanceType != nil {
		conds = append(conds, "maintenance_type = ?")
		args = append(args, string(*f.MaintenanceType))
	}
	if f.FromDate != nil {
		conds = append(conds, "scheduled_date >= ?")
		args = append(args, *f.FromDate)
	}
	if f.ToDate != nil {
		conds = append(conds, "scheduled_date <= ?")
		args = append(args, *f.ToDate)
	}
	if f.CompletedSince != nil {
		conds = append(conds, "completed_date >= ?")
		args = append(args, *f.CompletedSince)
	}
	if f.NeedsReminder {
		conds = append(conds, "(reminder_14_sent = FALSE OR reminder_7_sent = FALSE OR reminder_1_sent = FALSE)")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type ticketRow struct {
	ID                     string         `db:"id"`
	ItemID                 string         `db:"item_id"`
	ScheduledMaintenanceID sql.NullString `db:"scheduled_maintenance_id"`
	Title                  string         `db:"title"`
	Description            string         `db:"description"`
	Status                 string         `db:"status"`
	Priority               string         `db:"priority"`
	Category               string         `db:"category"`
	ReportedBy             string         `db:"reported_by"`
	InventoryAction        string         `db:"inventory_action"`
	QuantityDeducted       int            `db:"quantity_deducted"`
	InventoryRestored      bool           `db:"inventory_restored"`
	ApplyPending           bool           `db:"apply_pending"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
}

func (row ticketRow) toDomain() *domain.MaintenanceTicket {
	return &domain.MaintenanceTicket{
		ID:                     row.ID,
		ItemID:                 row.ItemID,
		ScheduledMaintenanceID: fromNullString(row.ScheduledMaintenanceID),
		Title:                  row.Title,
		Description:            row.Description,
		Status:                 domain.TicketStatus(row.Status),
		Priority:               domain.TicketPriority(row.Priority),
		Category:               row.Category,
		ReportedBy:             row.ReportedBy,
		InventoryAction:        domain.InventoryAction(row.InventoryAction),
		QuantityDeducted:       row.QuantityDeducted,
		InventoryRestored:      row.InventoryRestored,
		ApplyPending:           row.ApplyPending,
		CreatedAt:              row.CreatedAt,
		UpdatedAt:              row.UpdatedAt,
	}
}

const ticketColumns = `id, item_id, scheduled_maintenance_id, title, description, status, priority,
	category, reported_by, inventory_action, quantity_deducted, inventory_restored, apply_pending,
	created_at, updated_at`

func (r mysqlRepos) CreateTicket(ctx context.Context, t domain.MaintenanceTicket) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO maintenance_tickets (`+ticketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ItemID, toNullString(t.ScheduledMaintenanceID), t.Title, t.Description, t.Status, t.Priority,
		t.Category, t.ReportedBy, t.InventoryAction, t.QuantityDeducted, t.InventoryRestored, t.ApplyPending,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r mysqlRepos) GetTicket(ctx context.Context, id string) (*domain.MaintenanceTicket, error) {
	return r.getTicket(ctx, `SELECT `+ticketColumns+` FROM maintenance_tickets WHERE id = ?`, id)
}

func (r mysqlRepos) GetTicketForUpdate(ctx context.Context, id string) (*domain.MaintenanceTicket, error) {
	return r.getTicket(ctx, `SELECT `+ticketColumns+` FROM maintenance_tickets WHERE id = ? FOR UPDATE`, id)
}

func (r mysqlRepos) getTicket(ctx context.Context, query, id string) (*domain.MaintenanceTicket, error) {
	var row ticketRow
	err := sqlx.GetContext(ctx, r.q, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query ticket: %w", err)
	}
	return row.toDomain(), nil
}

func (r mysqlRepos) UpdateTicket(ctx context.Context, t domain.MaintenanceTicket) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE maintenance_tickets
		SET title = ?, description = ?, status = ?, priority = ?, category = ?,
			quantity_deducted = ?, inventory_restored = ?, apply_pending = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.Status, t.Priority, t.Category,
		t.QuantityDeducted, t.InventoryRestored, t.ApplyPending, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	return nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
