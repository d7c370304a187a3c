// Package store implements the chat platform's channel log on SQLite. The
// gateway owns this log; the bot core only sees it through the transport
// interface.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Daethyra/Murphy/internal/domain"
	"github.com/Daethyra/Murphy/internal/transport"
)

// ChannelLog stores channels and their messages and serves lookups,
// history iteration, identity and mention detection for the bot.
type ChannelLog struct {
	db       *sql.DB
	selfID   string
	selfName string
}

// NewChannelLog opens (and migrates) the log. selfID and selfName are the
// bot's identity used for role classification and mention detection.
func NewChannelLog(dsn, selfID, selfName string) (*ChannelLog, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	log := &ChannelLog{db: db, selfID: selfID, selfName: selfName}
	if err := log.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return log, nil
}

func (l *ChannelLog) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			channel_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			author_name TEXT NOT NULL,
			content TEXT NOT NULL,
			reply_to TEXT,
			attachment_name TEXT,
			attachment_data BLOB,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (channel_id) REFERENCES channels(channel_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, created_at)`,
	}
	for _, m := range migrations {
		if _, err := l.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (l *ChannelLog) Close() error {
	return l.db.Close()
}

// EnsureChannel creates the channel row if it does not exist.
func (l *ChannelLog) EnsureChannel(ctx context.Context, ch domain.Channel) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channels (channel_id, kind, created_at) VALUES (?, ?, ?)`,
		ch.ID, string(ch.Kind), time.Now())
	return err
}

// GetChannel returns a channel by ID, or ok=false when unknown.
func (l *ChannelLog) GetChannel(ctx context.Context, channelID string) (domain.Channel, bool, error) {
	var ch domain.Channel
	var kind string
	err := l.db.QueryRowContext(ctx,
		`SELECT channel_id, kind FROM channels WHERE channel_id = ?`, channelID).
		Scan(&ch.ID, &kind)
	if err == sql.ErrNoRows {
		return domain.Channel{}, false, nil
	}
	if err != nil {
		return domain.Channel{}, false, err
	}
	ch.Kind = domain.ChannelKind(kind)
	return ch, true, nil
}

// Append records a message in its channel's log.
func (l *ChannelLog) Append(ctx context.Context, msg domain.Message) error {
	var attName sql.NullString
	var attData []byte
	if msg.Attachment != nil {
		attName = sql.NullString{String: msg.Attachment.Filename, Valid: true}
		attData = msg.Attachment.Content
	}
	var replyTo sql.NullString
	if msg.ReplyTo != "" {
		replyTo = sql.NullString{String: msg.ReplyTo, Valid: true}
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, channel_id, author_id, author_name, content, reply_to, attachment_name, attachment_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.ChannelID, msg.AuthorID, msg.AuthorName, msg.Content,
		replyTo, attName, attData, msg.Timestamp)
	return err
}

var _ transport.Transport = (*ChannelLog)(nil)

// FetchMessage resolves a single message within a channel.
func (l *ChannelLog) FetchMessage(ctx context.Context, channelID, messageID string) transport.LookupResult {
	row := l.db.QueryRowContext(ctx,
		`SELECT message_id, channel_id, author_id, author_name, content, reply_to, created_at
		 FROM messages WHERE channel_id = ? AND message_id = ?`, channelID, messageID)

	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return transport.LookupResult{Status: transport.LookupNotFound}
	}
	if err != nil {
		return transport.Failed(err)
	}
	return transport.Found(msg)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (domain.Message, error) {
	var msg domain.Message
	var replyTo sql.NullString
	err := row.Scan(&msg.MessageID, &msg.ChannelID, &msg.AuthorID, &msg.AuthorName,
		&msg.Content, &replyTo, &msg.Timestamp)
	if err != nil {
		return domain.Message{}, err
	}
	if replyTo.Valid {
		msg.ReplyTo = replyTo.String
	}
	return msg, nil
}

// historyCursor streams messages newest-first from an open result set.
type historyCursor struct {
	rows *sql.Rows
	err  error
}

func (c *historyCursor) Next(ctx context.Context) (domain.Message, bool, error) {
	if c.err != nil {
		return domain.Message{}, false, c.err
	}
	if !c.rows.Next() {
		err := c.rows.Err()
		c.rows.Close()
		if err != nil {
			c.err = err
			return domain.Message{}, false, err
		}
		return domain.Message{}, false, nil
	}
	msg, err := scanMessage(c.rows)
	if err != nil {
		c.rows.Close()
		c.err = err
		return domain.Message{}, false, err
	}
	return msg, true, nil
}

// errCursor reports a transport failure on first use.
type errCursor struct{ err error }

func (c *errCursor) Next(ctx context.Context) (domain.Message, bool, error) {
	return domain.Message{}, false, c.err
}

// History returns a cursor over at most limit messages, newest first.
func (l *ChannelLog) History(ctx context.Context, channelID string, limit int) transport.Cursor {
	q := `SELECT message_id, channel_id, author_id, author_name, content, reply_to, created_at
	      FROM messages WHERE channel_id = ? ORDER BY created_at DESC, message_id DESC`
	args := []any{channelID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return &errCursor{err: err}
	}
	return &historyCursor{rows: rows}
}

// SelfID returns the bot's own identity.
func (l *ChannelLog) SelfID() string {
	return l.selfID
}

// MentionsSelf reports whether the message mentions the bot, either by ID
// tag or by @name.
func (l *ChannelLog) MentionsSelf(msg domain.Message) bool {
	if strings.Contains(msg.Content, "<@"+l.selfID+">") {
		return true
	}
	return strings.Contains(strings.ToLower(msg.Content), "@"+strings.ToLower(l.selfName))
}
