package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// MessageRepo stores demand threads.  seq is an auto-increment column that
// gives a total order inside the service; the UUID id is what clients see.
type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

const messageColumns = `id, demand_id, from_identity_id, to_identity_id, content, is_read, seed_key IS NOT NULL, created_at`

// Create inserts a regular message.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	m.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	const q = `INSERT INTO messages (id, demand_id, from_identity_id, to_identity_id, content, is_read, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.DemandID, m.FromIdentityID, m.ToIdentityID, m.Content, m.Read, m.CreatedAt)
	return errors.Annotate(err, "insert message")
}

// CreateSeed inserts the seed message of a demand thread.  seed_key is the
// demand id under a unique key, so only the first of any number of
// concurrent or redelivered seed attempts is stored.  It reports whether
// this call created the row.
func (r *MessageRepo) CreateSeed(ctx context.Context, m *model.Message) (bool, error) {
	m.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	m.Seed = true
	const q = `INSERT INTO messages (id, demand_id, from_identity_id, to_identity_id, content, is_read, seed_key, created_at)
	           VALUES (?, ?, ?, ?, ?, 0, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.DemandID, m.FromIdentityID, m.ToIdentityID, m.Content, m.DemandID, m.CreatedAt)
	if database.IsDuplicate(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Annotate(err, "insert seed message")
	}
	return true, nil
}

// CountByDemand returns how many messages a thread holds.
func (r *MessageRepo) CountByDemand(ctx context.Context, demandID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE demand_id = ?`, demandID).Scan(&n)
	return n, errors.Annotate(err, "count messages")
}

// ListByDemand returns a thread in ascending time order.
func (r *MessageRepo) ListByDemand(ctx context.Context, demandID string, page model.Page) ([]model.Message, error) {
	page = page.Normalize()
	const q = `SELECT ` + messageColumns + ` FROM messages WHERE demand_id = ? ORDER BY seq ASC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, demandID, page.Limit, page.Offset)
	if err != nil {
		return nil, errors.Annotate(err, "list messages")
	}
	defer rows.Close()
	out := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, errors.Trace(rows.Err())
}

// MarkRead flags every message of a thread addressed to identityID as read
// and returns how many changed.
func (r *MessageRepo) MarkRead(ctx context.Context, demandID, identityID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_read = 1 WHERE demand_id = ? AND to_identity_id = ? AND is_read = 0`,
		demandID, identityID)
	if err != nil {
		return 0, errors.Annotate(err, "mark messages read")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Conversations groups the threads identityID takes part in.  For each
// demand it returns the latest message and the number of unread messages
// addressed to identityID, newest thread first.
func (r *MessageRepo) Conversations(ctx context.Context, identityID string) ([]model.ConversationSummary, error) {
	const q = `SELECT m.id, m.demand_id, m.from_identity_id, m.to_identity_id, m.content, m.is_read, m.seed_key IS NOT NULL, m.created_at,
	                  (SELECT COUNT(*) FROM messages u
	                   WHERE u.demand_id = m.demand_id AND u.to_identity_id = ? AND u.is_read = 0) AS unread
	           FROM messages m
	           JOIN (SELECT demand_id, MAX(seq) AS seq FROM messages
	                 WHERE from_identity_id = ? OR to_identity_id = ?
	                 GROUP BY demand_id) last ON last.seq = m.seq
	           ORDER BY m.seq DESC`
	rows, err := r.db.QueryContext(ctx, q, identityID, identityID, identityID)
	if err != nil {
		return nil, errors.Annotate(err, "list conversations")
	}
	defer rows.Close()
	out := []model.ConversationSummary{}
	for rows.Next() {
		var s model.ConversationSummary
		m := &s.LastMessage
		if err := rows.Scan(&m.ID, &m.DemandID, &m.FromIdentityID, &m.ToIdentityID, &m.Content, &m.Read, &m.Seed, &m.CreatedAt, &s.UnreadCount); err != nil {
			return nil, errors.Annotate(err, "scan conversation")
		}
		s.DemandID = m.DemandID
		s.LastMessageAt = m.CreatedAt
		s.Counterpart = m.FromIdentityID
		if m.FromIdentityID == identityID {
			s.Counterpart = m.ToIdentityID
		}
		out = append(out, s)
	}
	return out, errors.Trace(rows.Err())
}

func scanMessage(row rowScanner) (model.Message, error) {
	var m model.Message
	err := row.Scan(&m.ID, &m.DemandID, &m.FromIdentityID, &m.ToIdentityID, &m.Content, &m.Read, &m.Seed, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, ErrNotFound
	}
	return m, errors.Annotate(err, "scan message")
}
