package repository

import (
	"context"
	"database/sql"

	"github.com/stylistai/auth-service/internal/model"
)

// AuditRepo persists the append-only 'security_audit_log' table. Rows are
// inserted and eventually pruned by the sweep; nothing ever updates one in
// place.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Append inserts one audit event and fills in its generated ID.
func (r *AuditRepo) Append(ctx context.Context, ev *model.AuditEvent) error {
	var userID any
	if ev.UserID != "" {
		userID = ev.UserID
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO security_audit_log (user_id, action, success, details, ip_address, user_agent, timestamp)
		 VALUES (?,?,?,?,?,?,?)`,
		userID, ev.Action, ev.Success, ev.Details, ev.SourceAddr, ev.ClientDesc, ev.Timestamp)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// Recent returns up to limit events, newest first.
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, action, success, details, ip_address, user_agent, timestamp
		   FROM security_audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var (
			ev     model.AuditEvent
			userID sql.NullString
		)
		if err := rows.Scan(&ev.ID, &userID, &ev.Action, &ev.Success, &ev.Details,
			&ev.SourceAddr, &ev.ClientDesc, &ev.Timestamp); err != nil {
			return nil, err
		}
		if userID.Valid {
			ev.UserID = userID.String
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PruneBeyond deletes the oldest rows so that at most keep remain. The
// cutoff is fetched first; the two statements need no shared transaction
// since only the sweeper deletes from this table.
func (r *AuditRepo) PruneBeyond(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var cutoff uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM security_audit_log ORDER BY id DESC LIMIT 1 OFFSET ?",
		keep-1).Scan(&cutoff)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM security_audit_log WHERE id < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
