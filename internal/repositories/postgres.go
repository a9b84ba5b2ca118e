package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/studyshare/backend/internal/db"
	"github.com/studyshare/backend/internal/models"
)

const userColumns = `id, username, email, password_hash, is_verified, is_admin,
            verification_token, verification_expires_at, friend_ids, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record. A duplicate email yields ErrConflict.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	friends := user.Friends
	if friends == nil {
		friends = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, password_hash, is_verified, is_admin,
            verification_token, verification_expires_at, friend_ids, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, user.ID, user.Username, user.Email, user.PasswordHash, user.IsVerified, user.IsAdmin,
		nullableString(user.VerificationToken), user.VerificationExpiresAt, friends, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "id", id)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "email", email)
}

// FindByVerificationToken fetches the pending user holding token.
func (r *PostgresUserRepository) FindByVerificationToken(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrNotFound
	}
	return r.findOne(ctx, "verification_token", token)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, column, value string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is one of a fixed set of identifiers chosen by this package.
	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}
	return user, nil
}

// FindByIDs fetches every user whose id is in ids. Order is unspecified.
func (r *PostgresUserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query users by id: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// MarkVerified clears the verification token and flags the account verified.
// The update only applies while token is still the stored value, so a token
// can be redeemed at most once.
func (r *PostgresUserRepository) MarkVerified(ctx context.Context, id, token string, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET is_verified = TRUE,
            verification_token = NULL,
            verification_expires_at = NULL,
            updated_at = $3
        WHERE id = $1 AND verification_token = $2
    `, id, token, at)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVerificationToken replaces the pending verification token of an unverified user.
func (r *PostgresUserRepository) SetVerificationToken(ctx context.Context, id, token string, expiresAt *time.Time, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET verification_token = $2,
            verification_expires_at = $3,
            updated_at = $4
        WHERE id = $1 AND is_verified = FALSE
    `, id, token, expiresAt, at)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("set verification token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateFriends overwrites the stored friend list.
func (r *PostgresUserRepository) UpdateFriends(ctx context.Context, userID string, friendIDs []string, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if friendIDs == nil {
		friendIDs = []string{}
	}

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET friend_ids = $2, updated_at = $3
        WHERE id = $1
    `, userID, friendIDs, at)
	if err != nil {
		return fmt.Errorf("update friends: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresMaterialRepository provides PostgreSQL-backed persistence for materials.
type PostgresMaterialRepository struct {
	pool db.Pool
}

// NewPostgresMaterialRepository constructs a material repository backed by PostgreSQL.
func NewPostgresMaterialRepository(pool db.Pool) *PostgresMaterialRepository {
	return &PostgresMaterialRepository{pool: pool}
}

// Create stores a new material record.
func (r *PostgresMaterialRepository) Create(ctx context.Context, material models.Material) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO materials (id, owner_id, title, description, file_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, material.ID, material.OwnerID, material.Title, material.Description, material.FileURL, material.CreatedAt, material.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert material: %w", err)
	}

	return nil
}

// FindByID fetches a single material.
func (r *PostgresMaterialRepository) FindByID(ctx context.Context, id string) (models.Material, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Material{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, title, description, file_url, created_at, updated_at
        FROM materials
        WHERE id = $1
    `, id)

	var m models.Material
	if err := row.Scan(&m.ID, &m.OwnerID, &m.Title, &m.Description, &m.FileURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Material{}, ErrNotFound
		}
		return models.Material{}, fmt.Errorf("select material: %w", err)
	}
	return m, nil
}

// Update persists the mutable fields of a material.
func (r *PostgresMaterialRepository) Update(ctx context.Context, material models.Material) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE materials
        SET title = $2, description = $3, file_url = $4, updated_at = $5
        WHERE id = $1
    `, material.ID, material.Title, material.Description, material.FileURL, material.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a material.
func (r *PostgresMaterialRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOwners returns the materials of the given owners joined with the owner's username.
func (r *PostgresMaterialRepository) ListByOwners(ctx context.Context, ownerIDs []string) ([]models.MaterialView, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT m.id, m.owner_id, u.username, m.title, m.description, m.file_url, m.created_at, m.updated_at
        FROM materials m
        JOIN users u ON u.id = m.owner_id
        WHERE m.owner_id = ANY($1)
        ORDER BY m.created_at ASC, m.seq ASC
    `, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	var views []models.MaterialView
	for rows.Next() {
		var v models.MaterialView
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.OwnerUsername, &v.Title, &v.Description, &v.FileURL, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}

	return views, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user      models.User
		token     *string
		expiresAt *time.Time
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsVerified, &user.IsAdmin,
		&token, &expiresAt, &user.Friends, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, err
	}
	if token != nil {
		user.VerificationToken = *token
	}
	if expiresAt != nil {
		t := expiresAt.UTC()
		user.VerificationExpiresAt = &t
	}
	return user, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ FriendRepository = (*PostgresUserRepository)(nil)
var _ MaterialRepository = (*PostgresMaterialRepository)(nil)
