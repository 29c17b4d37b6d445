// Package postgresdb provides a PostgreSQL-based implementation of the storage
// used by the link, click and user services.
// Schema migrations are embedded and applied with goose on start-up.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

const (
	shortCodeConstraint = "short_links_short_code_key"
	emailConstraint     = "users_email_key"
)

// PostgresDB is a PostgreSQL-backed implementation of the URL shortener storage.
// It handles all persistence operations via a PostgreSQL database connection.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type scanner interface {
	Scan(dest ...any) error
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every table before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w",
				err,
			)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w",
				err,
			)
	}

	return result, nil
}

// CreateUser inserts a new user and fills in its ID and timestamps.
// A duplicate e-mail is reported as models.ErrEmailTaken.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *models.User) error {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO users (name, email, password)
				VALUES ($1, $2, $3)
				RETURNING id, created_at, updated_at
		`,
		usr.Name,
		usr.Email,
		usr.Password,
	)
	err := row.Scan(&usr.ID, &usr.CreatedAt, &usr.UpdatedAt)
	if isUniqueViolation(err, emailConstraint) {
		return models.ErrEmailTaken
	}

	return err
}

// GetUserByID fetches a user by id. The boolean reports whether it exists.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID int64) (*models.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, name, email, password, created_at, updated_at FROM users WHERE id = $1`,
		userID,
	)

	return scanUser(row)
}

// GetUserByEmail fetches a user by e-mail. The boolean reports whether it exists.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, name, email, password, created_at, updated_at FROM users WHERE email = $1`,
		email,
	)

	return scanUser(row)
}

// InsertShortLink inserts a new link and fills in its ID and timestamps.
// A duplicate short code is reported as models.ErrShortCodeTaken.
func (db *PostgresDB) InsertShortLink(ctx context.Context, link *models.ShortLink) error {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO short_links (original_url, short_code, user_id, expires_at)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at, updated_at
		`,
		link.OriginalURL,
		link.ShortCode,
		nullableInt64(link.OwnerID),
		nullableTime(link.ExpiresAt),
	)
	err := row.Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
	if isUniqueViolation(err, shortCodeConstraint) {
		return models.ErrShortCodeTaken
	}

	return err
}

// FindShortLinkByCode looks a link up by its code regardless of expiry.
func (db *PostgresDB) FindShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, original_url, short_code, user_id, expires_at, created_at, updated_at
				FROM short_links
				WHERE short_code = $1
		`,
		code,
	)

	return scanShortLinkRow(row)
}

// FindActiveShortLinkByCode looks a link up by its code, skipping links expired at now.
func (db *PostgresDB) FindActiveShortLinkByCode(
	ctx context.Context,
	code string,
	now time.Time,
) (*models.ShortLink, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, original_url, short_code, user_id, expires_at, created_at, updated_at
				FROM short_links
				WHERE short_code = $1
					AND (expires_at IS NULL OR expires_at >= $2)
		`,
		code,
		now,
	)

	return scanShortLinkRow(row)
}

// FindShortLinkByID looks a link up by id.
func (db *PostgresDB) FindShortLinkByID(ctx context.Context, linkID int64) (*models.ShortLink, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, original_url, short_code, user_id, expires_at, created_at, updated_at
				FROM short_links
				WHERE id = $1
		`,
		linkID,
	)

	return scanShortLinkRow(row)
}

// GetOwnerShortLinks lists the owner's links that have not expired at now,
// each with its click count aggregated in the same query.
func (db *PostgresDB) GetOwnerShortLinks(
	ctx context.Context,
	ownerID int64,
	now time.Time,
) ([]models.ShortLinkWithClicks, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT short_links.id, short_links.original_url, short_links.short_code, short_links.user_id,
					short_links.expires_at, short_links.created_at, short_links.updated_at,
					COUNT(clicks.id)
				FROM short_links
					LEFT JOIN clicks ON clicks.short_link_id = short_links.id
				WHERE short_links.user_id = $1
					AND (short_links.expires_at IS NULL OR short_links.expires_at >= $2)
				GROUP BY short_links.id
				ORDER BY short_links.id
		`,
		ownerID,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.ShortLinkWithClicks{}
	for rows.Next() {
		var item models.ShortLinkWithClicks
		if err := scanShortLink(rows, &item.ShortLink, &item.ClickCount); err != nil {
			return nil, err
		}
		result = append(result, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteShortLink removes a link; its clicks go with it through ON DELETE CASCADE.
func (db *PostgresDB) DeleteShortLink(ctx context.Context, linkID int64) error {
	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM short_links WHERE id = $1`,
		linkID,
	)

	return err
}

// InsertClick appends a click row. If the link vanished in the meantime the
// foreign key rejects the row and models.ErrLinkMissing is returned.
func (db *PostgresDB) InsertClick(ctx context.Context, click *models.Click) error {
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}

	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO clicks (short_link_id, clicked_at, ip_address, user_agent)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		click.ShortLinkID,
		click.ClickedAt,
		nullableString(click.IPAddress),
		nullableString(click.UserAgent),
	)
	err := row.Scan(&click.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return models.ErrLinkMissing
	}

	return err
}

// CountClicksByCode counts the clicks of the link with the given code; 0 for unknown codes.
func (db *PostgresDB) CountClicksByCode(ctx context.Context, code string) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT COUNT(clicks.id)
				FROM clicks
					JOIN short_links ON short_links.id = clicks.short_link_id
				WHERE short_links.short_code = $1
		`,
		code,
	)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// GetNumberOfShortLinks returns the total number of stored links.
func (db *PostgresDB) GetNumberOfShortLinks(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM short_links`)
}

// GetNumberOfUsers returns the total number of registered users.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

// GetNumberOfClicks returns the total number of recorded clicks.
func (db *PostgresDB) GetNumberOfClicks(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM clicks`)
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	err := db.database.Close()
	if err != nil {
		return err
	}

	return nil
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

func scanUser(row scanner) (*models.User, bool, error) {
	usr := &models.User{}
	err := row.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.Password, &usr.CreatedAt, &usr.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return usr, true, nil
}

func scanShortLinkRow(row scanner) (*models.ShortLink, bool, error) {
	link := &models.ShortLink{}
	if err := scanShortLink(row, link); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return link, true, nil
}

func scanShortLink(row scanner, link *models.ShortLink, extra ...any) error {
	var ownerID sql.NullInt64
	var expiresAt sql.NullTime

	dest := append(
		[]any{&link.ID, &link.OriginalURL, &link.ShortCode, &ownerID, &expiresAt, &link.CreatedAt, &link.UpdatedAt},
		extra...,
	)
	if err := row.Scan(dest...); err != nil {
		return err
	}

	if ownerID.Valid {
		link.OwnerID = &ownerID.Int64
	}
	if expiresAt.Valid {
		link.ExpiresAt = &expiresAt.Time
	}

	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == constraint
}

func nullableInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: *value, Valid: true}
}

func nullableTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *value, Valid: true}
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *value, Valid: true}
}
