package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"meetup-service/internal/models"
)

const messageColumns = `id, listing_id, sender_id, sender_username, recipient_id, content, read, deleted, created_at`

// visibleClause filters messages a viewer may see: not deleted by the sender,
// and not buried under the viewer's conversation tombstone. viewerParam is
// the positional placeholder bound to the viewer's id (e.g. "$1").
func visibleClause(viewerParam string) string {
	return `m.deleted = FALSE
        AND NOT EXISTS (
            SELECT 1 FROM chat_tombstones t
            WHERE t.listing_id = m.listing_id
              AND t.user_id = ` + viewerParam + `
              AND t.counterparty_id = CASE WHEN m.sender_id = ` + viewerParam + ` THEN m.recipient_id ELSE m.sender_id END
              AND m.created_at <= t.cleared_at
        )`
}

// unreadClause is the one predicate behind every unread figure the client can
// poll. listChats and the unread snapshot must never disagree, so both build
// on this.
func unreadClause(viewerParam string) string {
	return `m.recipient_id = ` + viewerParam + ` AND m.read = FALSE AND ` + visibleClause(viewerParam)
}

// MessageRepository owns the conversation ledger: message storage, read
// state, soft deletion and the chat-list aggregation.
type MessageRepository interface {
	Create(ctx context.Context, listingID, senderID int, senderUsername string, recipientID int, content string) (models.Message, error)
	Get(ctx context.Context, messageID int) (models.Message, error)
	ListConversation(ctx context.Context, listingID, viewerID, otherUserID int) ([]models.Message, error)
	MarkRead(ctx context.Context, listingID, viewerID, otherUserID int) error
	SoftDelete(ctx context.Context, messageID, senderID int) error
	ClearConversation(ctx context.Context, listingID, viewerID, otherUserID int) error
	ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error)
	UnreadSnapshot(ctx context.Context, userID int) (models.UnreadSnapshot, error)
}

// MessageRepo is a sqlx-backed MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a message. Content is trimmed; blank content and
// self-addressed messages are rejected.
func (r *MessageRepo) Create(ctx context.Context, listingID, senderID int, senderUsername string, recipientID int, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyContent
	}
	if senderID == recipientID {
		return models.Message{}, ErrInvalidTarget
	}

	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (listing_id, sender_id, sender_username, recipient_id, content)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+messageColumns,
		listingID, senderID, senderUsername, recipientID, content,
	).StructScan(&msg)
	return msg, err
}

// Get retrieves a single message regardless of visibility.
func (r *MessageRepo) Get(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListConversation returns the thread between the viewer and the other user
// for one listing, ascending by timestamp, filtered by the viewer's
// visibility. Pure read; marking read is a separate call.
func (r *MessageRepo) ListConversation(ctx context.Context, listingID, viewerID, otherUserID int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages m
        WHERE m.listing_id = $1
          AND ((m.sender_id = $2 AND m.recipient_id = $3) OR (m.sender_id = $3 AND m.recipient_id = $2))
          AND ` + visibleClause("$2") + `
        ORDER BY m.created_at ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, listingID, viewerID, otherUserID)
	return msgs, err
}

// MarkRead flips read on all inbound messages of the thread in one statement.
// Safe to call redundantly.
func (r *MessageRepo) MarkRead(ctx context.Context, listingID, viewerID, otherUserID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read = TRUE
         WHERE listing_id = $1 AND sender_id = $2 AND recipient_id = $3 AND read = FALSE`,
		listingID, otherUserID, viewerID)
	return err
}

// SoftDelete hides a message from both parties. Only the sender's rows match;
// callers enforce the Forbidden case by fetching the message first.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID, senderID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET deleted = TRUE WHERE id = $1 AND sender_id = $2`,
		messageID, senderID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// ClearConversation buries the whole thread for the viewer only. The
// counterparty's view and unread counts are untouched.
func (r *MessageRepo) ClearConversation(ctx context.Context, listingID, viewerID, otherUserID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_tombstones (listing_id, user_id, counterparty_id, cleared_at)
         VALUES ($1, $2, $3, NOW())
         ON CONFLICT (listing_id, user_id, counterparty_id) DO UPDATE SET cleared_at = NOW()`,
		listingID, viewerID, otherUserID)
	return err
}

// ListChats aggregates the user's visible threads into the chat-list feed,
// most recent first. This is a hot polled path: one query for heads, one for
// unread counts, one for usernames, merged here.
func (r *MessageRepo) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	headQuery := `SELECT DISTINCT ON (m.listing_id, other_user_id)
            m.listing_id,
            CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS other_user_id,
            m.content AS last_message,
            m.created_at AS last_message_time
        FROM messages m
        WHERE (m.sender_id = $1 OR m.recipient_id = $1) AND ` + visibleClause("$1") + `
        ORDER BY m.listing_id, other_user_id, m.created_at DESC`

	rows, err := r.db.QueryxContext(ctx, headQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.ChatSummary
	for rows.Next() {
		var chat models.ChatSummary
		if err := rows.StructScan(&chat); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return []models.ChatSummary{}, nil
	}

	unreadQuery := `SELECT m.listing_id,
            m.sender_id AS other_user_id,
            COUNT(*) AS unread_count
        FROM messages m
        WHERE ` + unreadClause("$1") + `
        GROUP BY m.listing_id, m.sender_id`

	type unreadRow struct {
		ListingID   int `db:"listing_id"`
		OtherUserID int `db:"other_user_id"`
		UnreadCount int `db:"unread_count"`
	}
	var unread []unreadRow
	if err := r.db.SelectContext(ctx, &unread, unreadQuery, userID); err != nil {
		return nil, err
	}
	type chatKey struct{ listingID, otherUserID int }
	unreadByKey := make(map[chatKey]int, len(unread))
	for _, row := range unread {
		unreadByKey[chatKey{row.ListingID, row.OtherUserID}] = row.UnreadCount
	}

	var senders []struct {
		SenderID       int    `db:"sender_id"`
		SenderUsername string `db:"sender_username"`
	}
	if err := r.db.SelectContext(ctx, &senders,
		`SELECT DISTINCT sender_id, sender_username FROM messages WHERE recipient_id = $1`, userID); err != nil {
		return nil, err
	}
	usernameByID := make(map[int]string, len(senders))
	for _, s := range senders {
		usernameByID[s.SenderID] = s.SenderUsername
	}

	for i := range chats {
		chats[i].UnreadCount = unreadByKey[chatKey{chats[i].ListingID, chats[i].OtherUserID}]
		chats[i].OtherUsername = usernameByID[chats[i].OtherUserID]
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastMessageTime.After(chats[j].LastMessageTime)
	})
	return chats, nil
}

// UnreadSnapshot returns the polled unread payload: total count plus a
// pointer to the conversation holding the newest unread message.
func (r *MessageRepo) UnreadSnapshot(ctx context.Context, userID int) (models.UnreadSnapshot, error) {
	var count int
	countQuery := `SELECT COUNT(*) FROM messages m WHERE ` + unreadClause("$1")
	if err := r.db.GetContext(ctx, &count, countQuery, userID); err != nil {
		return models.UnreadSnapshot{}, err
	}

	snapshot := models.UnreadSnapshot{UnreadCount: count}
	if count == 0 {
		return snapshot, nil
	}

	var latest models.LatestUnread
	latestQuery := `SELECT m.listing_id, m.sender_id FROM messages m
        WHERE ` + unreadClause("$1") + `
        ORDER BY m.created_at DESC LIMIT 1`
	err := r.db.GetContext(ctx, &latest, latestQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		// A read or delete landed between the two queries; the next poll
		// gets the settled view.
		return snapshot, nil
	}
	if err != nil {
		return models.UnreadSnapshot{}, err
	}
	snapshot.LatestUnread = &latest
	return snapshot, nil
}
