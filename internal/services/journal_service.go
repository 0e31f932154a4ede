package services

import (
	"context"
	"database/sql"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jointvault/backend/internal/models"
)

// JournalService appends executed balance movements to the durable movement
// journal. The in-memory ledgers stay the source of truth; the journal is a
// best-effort durability collaborator, written outside the core's locks, and
// a write failure never fails the caller's operation. Rows are keyed by a
// uuid entry id so a replay is idempotent.
type JournalService struct {
	db *sql.DB
}

func NewJournalService(db *sql.DB) *JournalService {
	return &JournalService{db: db}
}

// RecordJointMovement journals a joint-account movement. requestID is -1 for
// deposits.
func (s *JournalService) RecordJointMovement(ctx context.Context, kind string, accountID, requestID int64, principal string, amount, balance int64) {
	if s == nil || s.db == nil {
		return
	}
	entry := models.MovementEntry{
		EntryID:   uuid.New().String(),
		Subsystem: "JOINT",
		EntityKey: formatAccountKey(accountID),
		RequestID: requestID,
		Principal: principal,
		Kind:      kind,
		Amount:    amount,
		Balance:   balance,
	}
	s.append(ctx, entry)
}

// RecordBankMovement journals a private-bank movement.
func (s *JournalService) RecordBankMovement(ctx context.Context, kind, address string, amount, balance int64) {
	if s == nil || s.db == nil {
		return
	}
	entry := models.MovementEntry{
		EntryID:   uuid.New().String(),
		Subsystem: "BANK",
		EntityKey: address,
		RequestID: -1,
		Principal: address,
		Kind:      kind,
		Amount:    amount,
		Balance:   balance,
	}
	s.append(ctx, entry)
}

func (s *JournalService) append(ctx context.Context, entry models.MovementEntry) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO movement_journal (entry_id, subsystem, entity_key, request_id, principal, kind, amount, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (entry_id) DO NOTHING`,
		entry.EntryID, entry.Subsystem, entry.EntityKey, entry.RequestID,
		entry.Principal, entry.Kind, entry.Amount, entry.Balance, time.Now())
	if err != nil {
		log.Printf("[JOURNAL] Failed to journal %s movement for %s: %v", entry.Kind, entry.EntityKey, err)
	}
}

// Movements returns the journal rows for one entity, newest first, for
// statement queries.
func (s *JournalService) Movements(ctx context.Context, subsystem, entityKey string, limit int) ([]models.MovementEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, subsystem, entity_key, request_id, principal, kind, amount, balance, created_at
		FROM movement_journal
		WHERE subsystem = $1 AND entity_key = $2
		ORDER BY id DESC
		LIMIT $3`, subsystem, entityKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.MovementEntry
	for rows.Next() {
		var e models.MovementEntry
		if err := rows.Scan(&e.ID, &e.EntryID, &e.Subsystem, &e.EntityKey, &e.RequestID,
			&e.Principal, &e.Kind, &e.Amount, &e.Balance, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func formatAccountKey(accountID int64) string {
	return "acct:" + strconv.FormatInt(accountID, 10)
}
