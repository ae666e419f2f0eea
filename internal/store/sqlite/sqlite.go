package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/samber/lo"

	"github.com/salon-chat/salon-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_system     BOOLEAN NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rooms (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	room_name    TEXT NOT NULL UNIQUE,
	is_permanent BOOLEAN NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS room_members (
	room_id   INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id   INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL REFERENCES users(id),
	username     TEXT NOT NULL,
	room_id      INTEGER NOT NULL,
	message_type TEXT NOT NULL DEFAULT 'USER_MESSAGE',
	content      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS attachments (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id    INTEGER NOT NULL UNIQUE REFERENCES messages(id) ON DELETE CASCADE,
	file_path     TEXT NOT NULL,
	file_type     TEXT NOT NULL,
	file_size     INTEGER NOT NULL,
	original_name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, id);
`

// DefaultRoomName is the permanent room every user is assigned to when no
// durable membership exists. It is seeded at schema init and never pruned.
const DefaultRoomName = "General"

const systemUsername = "system"

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db           *sql.DB
	systemUserID int64
}

// New opens (or creates) the database at dbPath, applies the schema and
// seeds the permanent default room and the reserved system account.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO rooms (room_name, is_permanent) VALUES (?, 1)`,
		DefaultRoomName,
	); err != nil {
		return fmt.Errorf("seed default room: %w", err)
	}

	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO users (username, password_hash, is_system) VALUES (?, '', 1)`,
		systemUsername,
	); err != nil {
		return fmt.Errorf("seed system user: %w", err)
	}

	if err := s.db.QueryRow(
		`SELECT id FROM users WHERE username = ? AND is_system = 1`, systemUsername,
	).Scan(&s.systemUserID); err != nil {
		return fmt.Errorf("resolve system user: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return store.ErrDuplicate
	}
	return err
}

// ==== CredentialStore implementation ====

// CreateUser inserts a new account.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash,
	)
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, store.ErrDuplicate) {
			return nil, fmt.Errorf("insert user %q: %w", username, store.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByUsername retrieves an account by username, excluding the system user.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, is_system, created_at
		 FROM users WHERE username = ? AND is_system = 0`,
		username,
	))
}

// GetUserByID retrieves an account by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, is_system, created_at
		 FROM users WHERE id = ?`,
		id,
	))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsSystem, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// SystemUserID returns the reserved system account ID resolved at init.
func (s *SQLiteStore) SystemUserID() int64 {
	return s.systemUserID
}

// ==== RoomStore implementation ====

// CreateRoom inserts a room with an already-normalized name.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, permanent bool) (*store.Room, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (room_name, is_permanent) VALUES (?, ?)`,
		name, permanent,
	)
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, store.ErrDuplicate) {
			return nil, fmt.Errorf("insert room %q: %w", name, store.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getRoomByID(ctx, id)
}

// CreateRoomWithMember atomically creates a room plus the creator's
// membership. A failed membership insert rolls back the room row.
func (s *SQLiteStore) CreateRoomWithMember(ctx context.Context, name string, permanent bool, userID int64) (*store.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (room_name, is_permanent) VALUES (?, ?)`,
		name, permanent,
	)
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, store.ErrDuplicate) {
			return nil, fmt.Errorf("insert room %q: %w", name, store.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	roomID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if err := upsertMembership(ctx, tx, userID, roomID); err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.getRoomByID(ctx, roomID)
}

func (s *SQLiteStore) getRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	return scanRoom(s.db.QueryRowContext(ctx,
		`SELECT id, room_name, is_permanent, created_at FROM rooms WHERE id = ?`, id,
	))
}

// GetRoomByName retrieves a room by its normalized name.
func (s *SQLiteStore) GetRoomByName(ctx context.Context, name string) (*store.Room, error) {
	return scanRoom(s.db.QueryRowContext(ctx,
		`SELECT id, room_name, is_permanent, created_at FROM rooms WHERE room_name = ?`, name,
	))
}

func scanRoom(row *sql.Row) (*store.Room, error) {
	var room store.Room
	err := row.Scan(&room.ID, &room.Name, &room.IsPermanent, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// GetAllRooms lists the full room catalog, oldest first.
func (s *SQLiteStore) GetAllRooms(ctx context.Context) ([]*store.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_name, is_permanent, created_at FROM rooms ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.IsPermanent, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	return rooms, rows.Err()
}

func upsertMembership(ctx context.Context, tx *sql.Tx, userID, roomID int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO room_members (room_id, user_id) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET room_id = excluded.room_id, joined_at = CURRENT_TIMESTAMP`,
		roomID, userID,
	)
	return err
}

// JoinRoomByName moves the user into the named room, creating it
// non-permanent if absent. Any previous membership row is replaced.
func (s *SQLiteStore) JoinRoomByName(ctx context.Context, userID int64, name string) (*store.Room, error) {
	room, err := s.GetRoomByName(ctx, name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		room, err = s.CreateRoom(ctx, name, false)
		if err != nil {
			return nil, err
		}
	}

	if err := s.JoinRoomByID(ctx, userID, room.ID); err != nil {
		return nil, err
	}

	return room, nil
}

// JoinRoomByID moves the user into an existing room.
func (s *SQLiteStore) JoinRoomByID(ctx context.Context, userID, roomID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := upsertMembership(ctx, tx, userID, roomID); err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// LeaveRoom deletes the user's membership row, if any.
func (s *SQLiteStore) LeaveRoom(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM room_members WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

// GetMembershipRoom returns the room the user is durably a member of.
func (s *SQLiteStore) GetMembershipRoom(ctx context.Context, userID int64) (*store.Room, error) {
	return scanRoom(s.db.QueryRowContext(ctx,
		`SELECT r.id, r.room_name, r.is_permanent, r.created_at
		 FROM room_members rm
		 JOIN rooms r ON rm.room_id = r.id
		 WHERE rm.user_id = ?`,
		userID,
	))
}

// GetUsersInRoom lists members of the room in join order.
func (s *SQLiteStore) GetUsersInRoom(ctx context.Context, roomID int64) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, u.password_hash, u.is_system, u.created_at
		 FROM room_members rm
		 JOIN users u ON rm.user_id = u.id
		 WHERE rm.room_id = ?
		 ORDER BY rm.joined_at, u.id`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("query room members: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsSystem, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// DeleteEmptyRooms prunes every non-permanent room with zero membership rows.
func (s *SQLiteStore) DeleteEmptyRooms(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rooms
		 WHERE is_permanent = 0
		   AND id NOT IN (SELECT room_id FROM room_members)`,
	)
	if err != nil {
		return 0, fmt.Errorf("delete empty rooms: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

// DeleteRoom removes a non-permanent room and its memberships.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, roomID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rooms WHERE id = ? AND is_permanent = 0`, roomID,
	)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("room %d: %w", roomID, store.ErrNotFound)
	}
	return nil
}

// ==== MessageStore implementation ====

// SaveMessage appends a message and optional attachment in one transaction.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO messages (user_id, username, room_id, message_type, content)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.UserID, msg.Username, msg.RoomID, msg.Type, msg.Content,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	if msg.Attachment != nil {
		a := msg.Attachment
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attachments (message_id, file_path, file_type, file_size, original_name)
			 VALUES (?, ?, ?, ?, ?)`,
			id, a.FilePath, a.FileType, a.FileSize, a.OriginalName,
		); err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	msg.ID = id
	if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM messages WHERE id = ?`, id,
	).Scan(&msg.CreatedAt); err != nil {
		return fmt.Errorf("read back created_at: %w", err)
	}

	return nil
}

// ListMessagesByRoom returns the limit most recent messages, oldest first.
func (s *SQLiteStore) ListMessagesByRoom(ctx context.Context, roomID int64, limit int) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.user_id, m.username, m.room_id, m.message_type, m.content, m.created_at,
		        a.file_path, a.file_type, a.file_size, a.original_name
		 FROM messages m
		 LEFT JOIN attachments a ON a.message_id = m.id
		 WHERE m.room_id = ?
		 ORDER BY m.id DESC
		 LIMIT ?`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var filePath, fileType, originalName sql.NullString
		var fileSize sql.NullInt64
		if err := rows.Scan(
			&msg.ID, &msg.UserID, &msg.Username, &msg.RoomID, &msg.Type, &msg.Content, &msg.CreatedAt,
			&filePath, &fileType, &fileSize, &originalName,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if filePath.Valid {
			msg.Attachment = &store.Attachment{
				FilePath:     filePath.String,
				FileType:     fileType.String,
				FileSize:     fileSize.Int64,
				OriginalName: originalName.String,
			}
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query is newest-first for the LIMIT; history is served oldest-first.
	return lo.Reverse(messages), nil
}
