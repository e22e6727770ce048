package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/canopy-ai/canopy/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trees (
			tree_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			project TEXT,
			working_directory TEXT,
			archived INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS branches (
			branch_id TEXT PRIMARY KEY,
			tree_id TEXT NOT NULL,
			session_id TEXT,
			parent_branch_id TEXT,
			fork_from_message_id TEXT,
			branch_type TEXT NOT NULL,
			status TEXT NOT NULL,
			summary TEXT,
			model TEXT,
			external_task_id TEXT,
			context_snapshot TEXT,
			collapsed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (tree_id) REFERENCES trees(tree_id),
			FOREIGN KEY (parent_branch_id) REFERENCES branches(branch_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_branches_tree ON branches(tree_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_branches_parent ON branches(parent_branch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_branches_session ON branches(session_id)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			checkpoint_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			branch_id TEXT NOT NULL,
			summary TEXT NOT NULL,
			estimated_tokens INTEGER NOT NULL,
			message_count INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (branch_id) REFERENCES branches(branch_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			branch_id TEXT NOT NULL,
			session_id TEXT,
			type TEXT NOT NULL,
			payload TEXT,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_branch ON events(branch_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(branch_id, type)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTree creates a tree together with its root branch in one transaction.
func (s *SQLiteStore) CreateTree(ctx context.Context, tree *domain.Tree, root *domain.Branch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trees (tree_id, name, project, working_directory, archived, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tree.TreeID, tree.Name, nullString(tree.Project), nullString(tree.WorkingDirectory), tree.Archived, tree.CreatedAt, tree.UpdatedAt); err != nil {
		return err
	}
	if err := insertBranch(ctx, tx, root); err != nil {
		return err
	}
	return tx.Commit()
}

// GetTree retrieves a tree by ID.
func (s *SQLiteStore) GetTree(ctx context.Context, treeID string) (*domain.Tree, error) {
	var tree domain.Tree
	var project, workingDir sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT tree_id, name, project, working_directory, archived, created_at, updated_at FROM trees WHERE tree_id = ?`,
		treeID).Scan(&tree.TreeID, &tree.Name, &project, &workingDir, &tree.Archived, &tree.CreatedAt, &tree.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tree.Project = project.String
	tree.WorkingDirectory = workingDir.String
	return &tree, nil
}

// SetTreeArchived marks a tree archived or unarchived.
func (s *SQLiteStore) SetTreeArchived(ctx context.Context, treeID string, archived bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE trees SET archived = ?, updated_at = ? WHERE tree_id = ?`,
		archived, time.Now(), treeID)
	return err
}

func insertBranch(ctx context.Context, tx *sql.Tx, b *domain.Branch) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO branches (branch_id, tree_id, session_id, parent_branch_id, fork_from_message_id, branch_type, status, summary, model, external_task_id, context_snapshot, collapsed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BranchID, b.TreeID, nullString(b.SessionID), nullString(b.ParentBranchID), nullString(b.ForkFromMessageID),
		b.BranchType, b.Status, nullString(b.Summary), nullString(b.Model), nullString(b.ExternalTaskID),
		nullString(b.ContextSnapshot), b.Collapsed, b.CreatedAt, b.UpdatedAt)
	return err
}

// ForkBranch creates a child branch after validating the parent and the fork
// point inside one transaction. Returns domain.ErrInvalidParent when the
// parent is missing or belongs to a different tree, domain.ErrInvalidForkPoint
// when the fork message does not belong to the parent's session.
func (s *SQLiteStore) ForkBranch(ctx context.Context, branch *domain.Branch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var parentTreeID string
	var parentSessionID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT tree_id, session_id FROM branches WHERE branch_id = ?`,
		branch.ParentBranchID).Scan(&parentTreeID, &parentSessionID)
	if err == sql.ErrNoRows {
		return domain.ErrInvalidParent
	}
	if err != nil {
		return err
	}
	if parentTreeID != branch.TreeID {
		return domain.ErrInvalidParent
	}

	if branch.ForkFromMessageID != "" {
		var msgSessionID string
		err = tx.QueryRowContext(ctx,
			`SELECT session_id FROM messages WHERE message_id = ?`,
			branch.ForkFromMessageID).Scan(&msgSessionID)
		if err == sql.ErrNoRows {
			return domain.ErrInvalidForkPoint
		}
		if err != nil {
			return err
		}
		if !parentSessionID.Valid || msgSessionID != parentSessionID.String {
			return domain.ErrInvalidForkPoint
		}
	}

	if err := insertBranch(ctx, tx, branch); err != nil {
		return err
	}
	return tx.Commit()
}

// GetBranch retrieves a branch by ID.
func (s *SQLiteStore) GetBranch(ctx context.Context, branchID string) (*domain.Branch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT branch_id, tree_id, session_id, parent_branch_id, fork_from_message_id, branch_type, status, summary, model, external_task_id, context_snapshot, collapsed, created_at, updated_at
		 FROM branches WHERE branch_id = ?`, branchID)
	branch, err := scanBranch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return branch, nil
}

// GetBranchBySession retrieves the branch currently bound to a session.
func (s *SQLiteStore) GetBranchBySession(ctx context.Context, sessionID string) (*domain.Branch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT branch_id, tree_id, session_id, parent_branch_id, fork_from_message_id, branch_type, status, summary, model, external_task_id, context_snapshot, collapsed, created_at, updated_at
		 FROM branches WHERE session_id = ?`, sessionID)
	branch, err := scanBranch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return branch, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBranch(row rowScanner) (*domain.Branch, error) {
	var b domain.Branch
	var sessionID, parentID, forkFrom, summary, model, taskID, snapshot sql.NullString
	if err := row.Scan(&b.BranchID, &b.TreeID, &sessionID, &parentID, &forkFrom, &b.BranchType, &b.Status,
		&summary, &model, &taskID, &snapshot, &b.Collapsed, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.SessionID = sessionID.String
	b.ParentBranchID = parentID.String
	b.ForkFromMessageID = forkFrom.String
	b.Summary = summary.String
	b.Model = model.String
	b.ExternalTaskID = taskID.String
	b.ContextSnapshot = snapshot.String
	return &b, nil
}

func (s *SQLiteStore) queryBranches(ctx context.Context, query string, args ...interface{}) ([]domain.Branch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []domain.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, *b)
	}
	return branches, rows.Err()
}

const branchColumns = `branch_id, tree_id, session_id, parent_branch_id, fork_from_message_id, branch_type, status, summary, model, external_task_id, context_snapshot, collapsed, created_at, updated_at`

// ListTreeBranches lists all branches of a tree in insertion order.
func (s *SQLiteStore) ListTreeBranches(ctx context.Context, treeID string) ([]domain.Branch, error) {
	return s.queryBranches(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE tree_id = ? ORDER BY created_at ASC`, treeID)
}

// ListBranchChildren lists the direct children of a branch.
func (s *SQLiteStore) ListBranchChildren(ctx context.Context, branchID string) ([]domain.Branch, error) {
	return s.queryBranches(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE parent_branch_id = ? ORDER BY created_at ASC`, branchID)
}

// ListBranchSiblings lists branches sharing the same parent, excluding the
// branch itself. The root branch has no siblings.
func (s *SQLiteStore) ListBranchSiblings(ctx context.Context, branchID string) ([]domain.Branch, error) {
	return s.queryBranches(ctx,
		`SELECT `+branchColumns+` FROM branches
		 WHERE parent_branch_id IS NOT NULL
		   AND parent_branch_id = (SELECT parent_branch_id FROM branches WHERE branch_id = ?)
		   AND branch_id != ?
		 ORDER BY created_at ASC`, branchID, branchID)
}

// UpdateBranchStatus updates the lifecycle status of a branch.
func (s *SQLiteStore) UpdateBranchStatus(ctx context.Context, branchID string, status domain.BranchStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE branches SET status = ?, updated_at = ? WHERE branch_id = ?`,
		status, time.Now(), branchID)
	return err
}

// UpdateBranchSummary updates the summary of a branch.
func (s *SQLiteStore) UpdateBranchSummary(ctx context.Context, branchID string, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE branches SET summary = ?, updated_at = ? WHERE branch_id = ?`,
		summary, time.Now(), branchID)
	return err
}

// UpdateBranchContextSnapshot updates the context snapshot of a branch.
func (s *SQLiteStore) UpdateBranchContextSnapshot(ctx context.Context, branchID string, snapshot string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE branches SET context_snapshot = ?, updated_at = ? WHERE branch_id = ?`,
		snapshot, time.Now(), branchID)
	return err
}

// SetBranchCollapsed updates the collapsed display flag of a branch.
func (s *SQLiteStore) SetBranchCollapsed(ctx context.Context, branchID string, collapsed bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE branches SET collapsed = ?, updated_at = ? WHERE branch_id = ?`,
		collapsed, time.Now(), branchID)
	return err
}

// CreateMessage appends a message to a session's log.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		message.MessageID, message.SessionID, message.Role, message.Content, message.CreatedAt)
	return err
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	err := s.db.QueryRowContext(ctx,
		`SELECT message_id, session_id, role, content, created_at FROM messages WHERE message_id = ?`,
		messageID).Scan(&msg.MessageID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages retrieves all messages for a session in chronological order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at ASC, message_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetMessageStats returns pre-aggregated counters over a session's log for
// the quick pressure-estimate path.
func (s *SQLiteStore) GetMessageStats(ctx context.Context, sessionID string) (*domain.MessageStats, error) {
	var stats domain.MessageStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(LENGTH(content)), 0)
		 FROM messages WHERE session_id = ?`,
		sessionID).Scan(&stats.MessageCount, &stats.UserMessageCount, &stats.TotalChars)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateCheckpoint persists a rotation checkpoint.
func (s *SQLiteStore) CreateCheckpoint(ctx context.Context, cp *domain.Checkpoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (checkpoint_id, session_id, branch_id, summary, estimated_tokens, message_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cp.CheckpointID, cp.SessionID, cp.BranchID, cp.Summary, cp.EstimatedTokensAtRotation, cp.MessageCountAtRotation, cp.CreatedAt)
	return err
}

// LatestCheckpoint returns the most recent checkpoint for a session, or nil.
func (s *SQLiteStore) LatestCheckpoint(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	err := s.db.QueryRowContext(ctx,
		`SELECT checkpoint_id, session_id, branch_id, summary, estimated_tokens, message_count, created_at
		 FROM checkpoints WHERE session_id = ? ORDER BY created_at DESC, checkpoint_id DESC LIMIT 1`,
		sessionID).Scan(&cp.CheckpointID, &cp.SessionID, &cp.BranchID, &cp.Summary, &cp.EstimatedTokensAtRotation, &cp.MessageCountAtRotation, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// CountCheckpoints returns the number of rotations recorded for a session.
func (s *SQLiteStore) CountCheckpoints(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checkpoints WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

// ListCheckpoints lists all checkpoints for a session, oldest first.
func (s *SQLiteStore) ListCheckpoints(ctx context.Context, sessionID string) ([]domain.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT checkpoint_id, session_id, branch_id, summary, estimated_tokens, message_count, created_at
		 FROM checkpoints WHERE session_id = ? ORDER BY created_at ASC, checkpoint_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkpoints []domain.Checkpoint
	for rows.Next() {
		var cp domain.Checkpoint
		if err := rows.Scan(&cp.CheckpointID, &cp.SessionID, &cp.BranchID, &cp.Summary, &cp.EstimatedTokensAtRotation, &cp.MessageCountAtRotation, &cp.CreatedAt); err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

// CreateEvents inserts a batch of events in one transaction.
func (s *SQLiteStore) CreateEvents(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (event_id, branch_id, session_id, type, payload, ts) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		payload := ""
		if e.Payload != nil {
			payload = string(e.Payload)
		}
		if _, err := stmt.ExecContext(ctx, e.EventID, e.BranchID, nullString(e.SessionID), e.Type, payload, e.Ts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...interface{}) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var sessionID, payload sql.NullString
		if err := rows.Scan(&e.EventID, &e.BranchID, &sessionID, &e.Type, &payload, &e.Ts); err != nil {
			return nil, err
		}
		e.SessionID = sessionID.String
		if payload.Valid && payload.String != "" {
			e.Payload = []byte(payload.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetRecentEvents retrieves the most recent events for a branch, newest first.
func (s *SQLiteStore) GetRecentEvents(ctx context.Context, branchID string, limit int) ([]domain.Event, error) {
	return s.queryEvents(ctx,
		`SELECT event_id, branch_id, session_id, type, payload, ts FROM events
		 WHERE branch_id = ? ORDER BY ts DESC, rowid DESC LIMIT ?`, branchID, limit)
}

// GetEventsSince retrieves events for a branch at or after the given
// timestamp (Unix milliseconds), oldest first. Events sharing a millisecond
// keep their insertion order: rowid is the tiebreak, since event ids carry
// no ordering.
func (s *SQLiteStore) GetEventsSince(ctx context.Context, branchID string, sinceTs int64) ([]domain.Event, error) {
	return s.queryEvents(ctx,
		`SELECT event_id, branch_id, session_id, type, payload, ts FROM events
		 WHERE branch_id = ? AND ts >= ? ORDER BY ts ASC, rowid ASC`, branchID, sinceTs)
}

// GetToolEvents retrieves tool-lifecycle events only, oldest first.
func (s *SQLiteStore) GetToolEvents(ctx context.Context, branchID string) ([]domain.Event, error) {
	placeholders := make([]string, len(domain.ToolLifecycleTypes))
	args := []interface{}{branchID}
	for i, t := range domain.ToolLifecycleTypes {
		placeholders[i] = "?"
		args = append(args, t)
	}
	return s.queryEvents(ctx,
		fmt.Sprintf(`SELECT event_id, branch_id, session_id, type, payload, ts FROM events
		 WHERE branch_id = ? AND type IN (%s) ORDER BY ts ASC, rowid ASC`, strings.Join(placeholders, ",")),
		args...)
}

// CountEventsByType returns per-type event counts for a branch.
func (s *SQLiteStore) CountEventsByType(ctx context.Context, branchID string) ([]domain.EventTypeCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM events WHERE branch_id = ? GROUP BY type ORDER BY type`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.EventTypeCount
	for rows.Next() {
		var c domain.EventTypeCount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// PruneEvents deletes events older than the cutoff (Unix milliseconds) and
// returns the number of rows removed. Destructive and irreversible.
func (s *SQLiteStore) PruneEvents(ctx context.Context, beforeTs int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE ts < ?`, beforeTs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
