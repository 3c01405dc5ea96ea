package stubapi

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"reciclo/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// SQLite is a Store kept in a private in-memory SQLite database. Each operation runs in one
// transaction over the only connection, so operations never interleave.
type SQLite struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewSQLite creates an empty store and applies the schema. A nil clock means the real clock.
func NewSQLite(ctx context.Context, clock clockwork.Clock) (*SQLite, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// the database lives exactly as long as its connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("stubapi: migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("stubapi: migrate: %w", err)
	}
	return &SQLite{db: db, clock: clock}, nil
}

// Close releases the database and everything in it.
func (s *SQLite) Close() {
	s.db.Close()
}

// inTx runs fn in a transaction and commits when it succeeds. fn must use q only: a second
// query through s.db would wait forever for the connection the transaction holds.
func (s *SQLite) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func stamp(t time.Time) int64 {
	return t.UnixNano()
}

func unstamp(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("stubapi: stored price %q: %w", s, err)
	}
	return d, nil
}

// accounts

const accountColumns = `id, username, email, password_hash, image, is_curator, experience, recycling_coins, reputation_coins`

func scanAccount(row scanner) (*Account, error) {
	var a Account
	var image sql.NullString
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &image, &a.IsCurator, &a.Experience, &a.RecyclingCoins, &a.ReputationCoins)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if image.Valid {
		a.Image = &image.String
	}
	return &a, nil
}

func account(ctx context.Context, q querier, id int64) (*Account, error) {
	return scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
}

// taken reports whether another account already uses username or email, ignoring case.
func taken(ctx context.Context, q querier, id int64, username, email string) error {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE (username = ? OR email = ?) AND id <> ?)`,
		username, email, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrConflict
	}
	return nil
}

func (s *SQLite) CreateAccount(ctx context.Context, a *Account) (*Account, error) {
	var out Account
	err := s.inTx(ctx, func(q querier) error {
		if err := taken(ctx, q, 0, a.Username, a.Email); err != nil {
			return err
		}
		res, err := q.ExecContext(ctx,
			`INSERT INTO accounts (username, email, password_hash, image, is_curator, experience, recycling_coins, reputation_coins)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.Username, a.Email, a.PasswordHash, nullable(a.Image), a.IsCurator, a.Experience, a.RecyclingCoins, a.ReputationCoins)
		if err != nil {
			return err
		}
		out = *a
		out.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQLite) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	var out *Account
	err := s.inTx(ctx, func(q querier) error {
		var err error
		out, err = scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email))
		return err
	})
	return out, err
}

func (s *SQLite) AccountByID(ctx context.Context, id int64) (*Account, error) {
	var out *Account
	err := s.inTx(ctx, func(q querier) error {
		var err error
		out, err = account(ctx, q, id)
		return err
	})
	return out, err
}

// UpdateAccount applies update to a copy of the account and stores it when update succeeds.
// Username and email must stay unique.
func (s *SQLite) UpdateAccount(ctx context.Context, id int64, update func(*Account) error) (*Account, error) {
	var out *Account
	err := s.inTx(ctx, func(q querier) error {
		next, err := account(ctx, q, id)
		if err != nil {
			return err
		}
		if err := update(next); err != nil {
			return err
		}
		next.ID = id
		if err := taken(ctx, q, id, next.Username, next.Email); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			`UPDATE accounts SET username = ?, email = ?, password_hash = ?, image = ?, is_curator = ?,
			experience = ?, recycling_coins = ?, reputation_coins = ? WHERE id = ?`,
			next.Username, next.Email, next.PasswordHash, nullable(next.Image), next.IsCurator,
			next.Experience, next.RecyclingCoins, next.ReputationCoins, id)
		out = next
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) SearchAccounts(ctx context.Context, term string, exclude int64) ([]Account, error) {
	out := []Account{}
	err := s.inTx(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE id <> ? AND instr(lower(username), ?) > 0 ORDER BY id`,
			exclude, strings.ToLower(term))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanAccount(rows)
			if err != nil {
				return err
			}
			out = append(out, *a)
		}
		return rows.Err()
	})
	return out, err
}

func isCurator(ctx context.Context, q querier, id int64) (bool, error) {
	var curator bool
	err := q.QueryRowContext(ctx, `SELECT is_curator FROM accounts WHERE id = ?`, id).Scan(&curator)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return curator, err
}

func summary(ctx context.Context, q querier, id int64) (*models.UserSummary, error) {
	a, err := account(ctx, q, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a.Summary(), nil
}

// models

// modelColumns takes the viewer twice, for the is_liked and is_saved flags.
const modelColumns = `m.id, m.owner_id, m.name, m.description, m.created_at, m.downloads, m.price, m.visible,
	(SELECT COUNT(*) FROM likes l WHERE l.model_id = m.id),
	EXISTS(SELECT 1 FROM likes l WHERE l.model_id = m.id AND l.user_id = ?),
	EXISTS(SELECT 1 FROM saves v WHERE v.model_id = m.id AND v.user_id = ?)`

// visibleTo takes the viewer and whether the viewer is a curator.
const visibleTo = `(m.visible = 1 OR m.owner_id = ? OR ?)`

type modelRow struct {
	models.Model3D
	owner int64
}

func scanModel(row scanner) (modelRow, error) {
	var r modelRow
	var created int64
	var price string
	err := row.Scan(&r.ID, &r.owner, &r.Name, &r.Description, &created, &r.Downloads, &price, &r.IsVisible,
		&r.Likes, &r.IsLiked, &r.IsSaved)
	if err != nil {
		return r, err
	}
	r.Date = unstamp(created)
	r.Price, err = parsePrice(price)
	return r, err
}

func imagePath(modelID int64, name string) string {
	return fmt.Sprintf("/media/images/%d/%s", modelID, name)
}

func filePath(modelID int64, name string) string {
	return fmt.Sprintf("/media/models/%d/%s", modelID, name)
}

// complete attaches the owner, images and files. It runs after the listing rows are closed.
func complete(ctx context.Context, q querier, r modelRow) (models.Model3D, error) {
	m := r.Model3D
	free := m.Price.IsZero()
	m.IsFree = &free

	var err error
	if m.User, err = summary(ctx, q, r.owner); err != nil {
		return m, err
	}
	if m.Images, err = images(ctx, q, m.ID); err != nil {
		return m, err
	}
	m.Files, err = files(ctx, q, m.ID)
	return m, err
}

func images(ctx context.Context, q querier, modelID int64) ([]models.ModelImage, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name FROM model_images WHERE model_id = ? ORDER BY id`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.ModelImage{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out = append(out, models.ModelImage{ID: id, Image: imagePath(modelID, name), Model3D: modelID})
	}
	return out, rows.Err()
}

func files(ctx context.Context, q querier, modelID int64) ([]models.ModelFile, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name FROM model_files WHERE model_id = ? ORDER BY id`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.ModelFile{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out = append(out, models.ModelFile{ID: id, File: filePath(modelID, name), FileName: name, Model: modelID})
	}
	return out, rows.Err()
}

func (s *SQLite) Models(ctx context.Context, viewer int64, filter ModelFilter) ([]models.Model3D, error) {
	out := []models.Model3D{}
	err := s.inTx(ctx, func(q querier) error {
		curator, err := isCurator(ctx, q, viewer)
		if err != nil {
			return err
		}
		where := []string{visibleTo}
		args := []any{viewer, viewer, viewer, curator}
		switch filter.List {
		case ListLiked:
			where = append(where, `EXISTS(SELECT 1 FROM likes l WHERE l.model_id = m.id AND l.user_id = ?)`)
			args = append(args, viewer)
		case ListSaved:
			where = append(where, `EXISTS(SELECT 1 FROM saves v WHERE v.model_id = m.id AND v.user_id = ?)`)
			args = append(args, viewer)
		case ListOwned:
			where = append(where, `m.owner_id = ?`)
			args = append(args, viewer)
		}
		if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
			where = append(where, `instr(lower(m.name || ' ' || m.description), ?) > 0`)
			args = append(args, search)
		}

		rows, err := q.QueryContext(ctx,
			`SELECT `+modelColumns+` FROM models m WHERE `+strings.Join(where, " AND ")+` ORDER BY m.id DESC`, args...)
		if err != nil {
			return err
		}
		var found []modelRow
		for rows.Next() {
			r, err := scanModel(rows)
			if err != nil {
				rows.Close()
				return err
			}
			found = append(found, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, r := range found {
			m, err := complete(ctx, q, r)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

// model loads one model as viewer sees it, or ErrNotFound when viewer may not see it.
func model(ctx context.Context, q querier, viewer, id int64) (*models.Model3D, error) {
	curator, err := isCurator(ctx, q, viewer)
	if err != nil {
		return nil, err
	}
	r, err := scanModel(q.QueryRowContext(ctx,
		`SELECT `+modelColumns+` FROM models m WHERE m.id = ? AND `+visibleTo,
		viewer, viewer, id, viewer, curator))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m, err := complete(ctx, q, r)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// visible fails with ErrNotFound when the model is missing or hidden from viewer.
func visible(ctx context.Context, q querier, viewer, id int64) error {
	curator, err := isCurator(ctx, q, viewer)
	if err != nil {
		return err
	}
	var ok bool
	err = q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM models m WHERE m.id = ? AND `+visibleTo+`)`,
		id, viewer, curator).Scan(&ok)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// owned fails unless the model exists and belongs to owner.
func owned(ctx context.Context, q querier, owner, id int64) error {
	var actual int64
	err := q.QueryRowContext(ctx, `SELECT owner_id FROM models WHERE id = ?`, id).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if actual != owner {
		return ErrForbidden
	}
	return nil
}

func (s *SQLite) Model(ctx context.Context, viewer, id int64) (*models.Model3D, error) {
	var out *models.Model3D
	err := s.inTx(ctx, func(q querier) error {
		var err error
		out, err = model(ctx, q, viewer, id)
		return err
	})
	return out, err
}

func (s *SQLite) CreateModel(ctx context.Context, owner int64, n NewModelRecord) (*models.Model3D, error) {
	var out *models.Model3D
	err := s.inTx(ctx, func(q querier) error {
		if _, err := account(ctx, q, owner); err != nil {
			return err
		}
		res, err := q.ExecContext(ctx,
			`INSERT INTO models (owner_id, name, description, created_at, price, visible) VALUES (?, ?, ?, ?, ?, 1)`,
			owner, n.Name, n.Description, stamp(s.clock.Now()), n.Price.String())
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `INSERT INTO model_files (model_id, name, data) VALUES (?, ?, ?)`,
			id, n.FileName, n.FileData); err != nil {
			return err
		}
		if n.ImageName != "" {
			if _, err := q.ExecContext(ctx, `INSERT INTO model_images (model_id, name) VALUES (?, ?)`, id, n.ImageName); err != nil {
				return err
			}
		}
		out, err = model(ctx, q, owner, id)
		return err
	})
	return out, err
}

func (s *SQLite) UpdateModel(ctx context.Context, owner, id int64, name, description string) (*models.Model3D, error) {
	var out *models.Model3D
	err := s.inTx(ctx, func(q querier) error {
		if err := owned(ctx, q, owner, id); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`UPDATE models SET name = COALESCE(NULLIF(?, ''), name), description = COALESCE(NULLIF(?, ''), description) WHERE id = ?`,
			name, description, id); err != nil {
			return err
		}
		var err error
		out, err = model(ctx, q, owner, id)
		return err
	})
	return out, err
}

func (s *SQLite) DeleteModel(ctx context.Context, owner, id int64) error {
	return s.inTx(ctx, func(q querier) error {
		if err := owned(ctx, q, owner, id); err != nil {
			return err
		}
		for _, table := range []string{"likes", "saves", "comments", "model_images", "model_files"} {
			if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE model_id = ?`, id); err != nil {
				return err
			}
		}
		_, err := q.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
		return err
	})
}

func (s *SQLite) AddModelImage(ctx context.Context, owner, id int64, name string) (*models.ModelImage, error) {
	var out *models.ModelImage
	err := s.inTx(ctx, func(q querier) error {
		if err := owned(ctx, q, owner, id); err != nil {
			return err
		}
		res, err := q.ExecContext(ctx, `INSERT INTO model_images (model_id, name) VALUES (?, ?)`, id, name)
		if err != nil {
			return err
		}
		imageID, err := res.LastInsertId()
		out = &models.ModelImage{ID: imageID, Image: imagePath(id, name), Model3D: id}
		return err
	})
	return out, err
}

func (s *SQLite) AddModelFile(ctx context.Context, owner, id int64, name string, data []byte) (*models.ModelFile, error) {
	var out *models.ModelFile
	err := s.inTx(ctx, func(q querier) error {
		if err := owned(ctx, q, owner, id); err != nil {
			return err
		}
		res, err := q.ExecContext(ctx, `INSERT INTO model_files (model_id, name, data) VALUES (?, ?, ?)`, id, name, data)
		if err != nil {
			return err
		}
		fileID, err := res.LastInsertId()
		out = &models.ModelFile{ID: fileID, File: filePath(id, name), FileName: name, Model: id}
		return err
	})
	return out, err
}

// deleteAttachment removes a row of table, which must have id and model_id columns, when the
// model belongs to owner.
func (s *SQLite) deleteAttachment(ctx context.Context, table string, owner, id int64) error {
	return s.inTx(ctx, func(q querier) error {
		var actual int64
		err := q.QueryRowContext(ctx,
			`SELECT m.owner_id FROM `+table+` a JOIN models m ON m.id = a.model_id WHERE a.id = ?`, id).Scan(&actual)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if actual != owner {
			return ErrForbidden
		}
		_, err = q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
		return err
	})
}

func (s *SQLite) DeleteModelImage(ctx context.Context, owner, imageID int64) error {
	return s.deleteAttachment(ctx, "model_images", owner, imageID)
}

func (s *SQLite) DeleteModelFile(ctx context.Context, owner, fileID int64) error {
	return s.deleteAttachment(ctx, "model_files", owner, fileID)
}

// toggle flips the membership of (modelID, userID) in table and reports the new state.
func toggle(ctx context.Context, q querier, table string, modelID, userID int64) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE model_id = ? AND user_id = ?`, modelID, userID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return false, err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO `+table+` (model_id, user_id) VALUES (?, ?)`, modelID, userID)
	return err == nil, err
}

func (s *SQLite) ToggleLike(ctx context.Context, viewer, id int64) (bool, int, error) {
	var liked bool
	var likes int
	err := s.inTx(ctx, func(q querier) error {
		if err := visible(ctx, q, viewer, id); err != nil {
			return err
		}
		var err error
		if liked, err = toggle(ctx, q, "likes", id, viewer); err != nil {
			return err
		}
		return q.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE model_id = ?`, id).Scan(&likes)
	})
	if err != nil {
		return false, 0, err
	}
	return liked, likes, nil
}

func (s *SQLite) ToggleSave(ctx context.Context, viewer, id int64) (bool, error) {
	var saved bool
	err := s.inTx(ctx, func(q querier) error {
		if err := visible(ctx, q, viewer, id); err != nil {
			return err
		}
		var err error
		saved, err = toggle(ctx, q, "saves", id, viewer)
		return err
	})
	return saved, err
}

func (s *SQLite) SetVisibility(ctx context.Context, curator, id int64, shown bool) error {
	return s.inTx(ctx, func(q querier) error {
		ok, err := isCurator(ctx, q, curator)
		if err != nil {
			return err
		}
		if !ok {
			return ErrForbidden
		}
		res, err := q.ExecContext(ctx, `UPDATE models SET visible = ? WHERE id = ?`, shown, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			if err == nil {
				err = ErrNotFound
			}
			return err
		}
		return nil
	})
}

// TakeArchive returns the files of a model and counts the download.
func (s *SQLite) TakeArchive(ctx context.Context, viewer, id int64) (*Archive, error) {
	a := &Archive{}
	err := s.inTx(ctx, func(q querier) error {
		if err := visible(ctx, q, viewer, id); err != nil {
			return err
		}
		if err := q.QueryRowContext(ctx, `SELECT name FROM models WHERE id = ?`, id).Scan(&a.ModelName); err != nil {
			return err
		}

		rows, err := q.QueryContext(ctx, `SELECT name, data FROM model_files WHERE model_id = ? ORDER BY id`, id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var f ArchiveFile
			if err := rows.Scan(&f.Name, &f.Data); err != nil {
				rows.Close()
				return err
			}
			a.Files = append(a.Files, f)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = q.ExecContext(ctx, `UPDATE models SET downloads = downloads + 1 WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// comments

func (s *SQLite) Comments(ctx context.Context, modelID int64) ([]models.Comment, error) {
	out := []models.Comment{}
	err := s.inTx(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT c.id, c.model_id, a.username, c.text, a.image, c.created_at
			FROM comments c JOIN accounts a ON a.id = c.user_id
			WHERE c.model_id = ? ORDER BY c.id DESC`, modelID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c models.Comment
			var image sql.NullString
			var created int64
			if err := rows.Scan(&c.ID, &c.Model, &c.User, &c.Text, &image, &created); err != nil {
				return err
			}
			if image.Valid {
				c.Image = &image.String
			}
			c.Date = unstamp(created)
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}

func (s *SQLite) AddComment(ctx context.Context, author, modelID int64, text string) (*models.Comment, error) {
	var out *models.Comment
	err := s.inTx(ctx, func(q querier) error {
		a, err := account(ctx, q, author)
		if err != nil {
			return err
		}
		if err := visible(ctx, q, author, modelID); err != nil {
			return err
		}
		now := unstamp(stamp(s.clock.Now()))
		res, err := q.ExecContext(ctx, `INSERT INTO comments (model_id, user_id, text, created_at) VALUES (?, ?, ?, ?)`,
			modelID, author, text, stamp(now))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		out = &models.Comment{ID: id, Model: modelID, User: a.Username, Text: text, Image: a.Image, Date: now}
		return err
	})
	return out, err
}

// recycling and achievements

func (s *SQLite) AddRecycling(ctx context.Context, e RecyclingEntry) error {
	return s.inTx(ctx, func(q querier) error {
		if _, err := account(ctx, q, e.UserID); err != nil {
			return err
		}
		if e.Date.IsZero() {
			e.Date = s.clock.Now()
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO recycling (user_id, type, volume, quantity, created_at) VALUES (?, ?, ?, ?, ?)`,
			e.UserID, e.Type, e.Volume, e.Quantity, stamp(e.Date))
		return err
	})
}

func (s *SQLite) Recycling(ctx context.Context, userID int64) ([]RecyclingEntry, error) {
	out := []RecyclingEntry{}
	err := s.inTx(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT type, volume, quantity, created_at FROM recycling WHERE user_id = ? ORDER BY id`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e := RecyclingEntry{UserID: userID}
			var created int64
			if err := rows.Scan(&e.Type, &e.Volume, &e.Quantity, &created); err != nil {
				return err
			}
			e.Date = unstamp(created)
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

// UnlockAchievement marks an achievement unlocked and reports whether it was locked before.
func (s *SQLite) UnlockAchievement(ctx context.Context, userID, achievementID int64) (bool, error) {
	var unlocked bool
	err := s.inTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO achievements (user_id, achievement_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			userID, achievementID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		unlocked = n == 1
		return err
	})
	return unlocked, err
}

func (s *SQLite) Unlocked(ctx context.Context, userID int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	err := s.inTx(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, `SELECT achievement_id FROM achievements WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			out[id] = true
		}
		return rows.Err()
	})
	return out, err
}

// market

// coinColumn maps a coin type onto its balance column.
func coinColumn(coinType string) (string, bool) {
	switch coinType {
	case models.CoinRecycling:
		return "recycling_coins", true
	case models.CoinReputation:
		return "reputation_coins", true
	}
	return "", false
}

func credit(ctx context.Context, q querier, userID int64, coinType string, amount int) error {
	column, ok := coinColumn(coinType)
	if !ok {
		return fmt.Errorf("%w: coin type %q", ErrNotFound, coinType)
	}
	_, err := q.ExecContext(ctx, `UPDATE accounts SET `+column+` = `+column+` + ? WHERE id = ?`, amount, userID)
	return err
}

const offerColumns = `id, seller_id, specific_user_id, coin_type, amount, price_per_coin, offer_type, status, created_at, updated_at`

type offerRow struct {
	models.CoinOffer
	seller       int64
	specificUser *int64
}

func scanOffer(row scanner) (offerRow, error) {
	var r offerRow
	var specific sql.NullInt64
	var price string
	var created, updated int64
	err := row.Scan(&r.ID, &r.seller, &specific, &r.CoinType, &r.Amount, &price, &r.OfferType, &r.Status, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	if specific.Valid {
		r.specificUser = &specific.Int64
	}
	r.CreatedAt, r.UpdatedAt = unstamp(created), unstamp(updated)
	r.PricePerCoin, err = parsePrice(price)
	return r, err
}

func offer(ctx context.Context, q querier, id int64) (offerRow, error) {
	return scanOffer(q.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = ?`, id))
}

func projectOffer(ctx context.Context, q querier, r offerRow) (models.CoinOffer, error) {
	o := r.CoinOffer
	o.TotalPrice = o.PricePerCoin.Mul(decimal.NewFromInt(int64(o.Amount)))
	var err error
	if o.Seller, err = summary(ctx, q, r.seller); err != nil {
		return o, err
	}
	if r.specificUser != nil {
		o.SpecificUser, err = summary(ctx, q, *r.specificUser)
	}
	return o, err
}

// Offers lists the open offers viewer may buy, or every offer viewer made when mine is set.
func (s *SQLite) Offers(ctx context.Context, viewer int64, mine bool) ([]models.CoinOffer, error) {
	out := []models.CoinOffer{}
	err := s.inTx(ctx, func(q querier) error {
		query := `SELECT ` + offerColumns + ` FROM offers WHERE seller_id = ? ORDER BY id DESC`
		args := []any{viewer}
		if !mine {
			query = `SELECT ` + offerColumns + ` FROM offers
				WHERE status = ? AND seller_id <> ? AND (specific_user_id IS NULL OR specific_user_id = ?)
				ORDER BY id DESC`
			args = []any{models.OfferActive, viewer, viewer}
		}

		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		var found []offerRow
		for rows.Next() {
			r, err := scanOffer(rows)
			if err != nil {
				rows.Close()
				return err
			}
			found = append(found, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, r := range found {
			o, err := projectOffer(ctx, q, r)
			if err != nil {
				return err
			}
			out = append(out, o)
		}
		return nil
	})
	return out, err
}

// CreateOffer puts the offered coins in escrow until the offer is bought or cancelled.
func (s *SQLite) CreateOffer(ctx context.Context, seller int64, n models.NewOffer) (*models.CoinOffer, error) {
	var out models.CoinOffer
	err := s.inTx(ctx, func(q querier) error {
		a, err := account(ctx, q, seller)
		if err != nil {
			return err
		}
		if n.SpecificUserID != nil {
			if *n.SpecificUserID == seller {
				return ErrSelfTrade
			}
			if _, err := account(ctx, q, *n.SpecificUserID); err != nil {
				return err
			}
		}
		var balance int
		switch n.CoinType {
		case models.CoinRecycling:
			balance = a.RecyclingCoins
		case models.CoinReputation:
			balance = a.ReputationCoins
		default:
			return fmt.Errorf("%w: coin type %q", ErrNotFound, n.CoinType)
		}
		if balance < n.Amount {
			return ErrInsufficientFunds
		}
		if err := credit(ctx, q, seller, n.CoinType, -n.Amount); err != nil {
			return err
		}

		now := stamp(s.clock.Now())
		var specific any
		if n.SpecificUserID != nil {
			specific = *n.SpecificUserID
		}
		res, err := q.ExecContext(ctx,
			`INSERT INTO offers (seller_id, specific_user_id, coin_type, amount, price_per_coin, offer_type, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			seller, specific, n.CoinType, n.Amount, n.PricePerCoin.String(), n.OfferType, models.OfferActive, now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		r, err := offer(ctx, q, id)
		if err != nil {
			return err
		}
		out, err = projectOffer(ctx, q, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQLite) PurchaseOffer(ctx context.Context, buyer, id int64) error {
	return s.inTx(ctx, func(q querier) error {
		o, err := offer(ctx, q, id)
		if err != nil {
			return err
		}
		if _, err := account(ctx, q, buyer); err != nil {
			return err
		}
		switch {
		case o.seller == buyer:
			return ErrSelfTrade
		case o.Status != models.OfferActive:
			return ErrNotPending
		case o.specificUser != nil && *o.specificUser != buyer:
			return ErrForbidden
		}

		if err := credit(ctx, q, buyer, o.CoinType, o.Amount); err != nil {
			return err
		}
		now := stamp(s.clock.Now())
		if _, err := q.ExecContext(ctx, `UPDATE offers SET status = ?, updated_at = ? WHERE id = ?`,
			models.OfferCompleted, now, id); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO transactions (sender_id, receiver_id, coin_type, amount, price_per_coin, kind, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.seller, buyer, o.CoinType, o.Amount, o.PricePerCoin.String(), o.OfferType, now)
		return err
	})
}

// CancelOffer returns the escrowed coins to the seller.
func (s *SQLite) CancelOffer(ctx context.Context, seller, id int64) error {
	return s.inTx(ctx, func(q querier) error {
		o, err := offer(ctx, q, id)
		if err != nil {
			return err
		}
		if o.seller != seller {
			return ErrForbidden
		}
		if o.Status != models.OfferActive {
			return ErrNotPending
		}
		if err := credit(ctx, q, seller, o.CoinType, o.Amount); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `UPDATE offers SET status = ?, updated_at = ? WHERE id = ?`,
			models.OfferCancelled, stamp(s.clock.Now()), id)
		return err
	})
}

const exchangeColumns = `id, requester_id, receiver_id, status, offer_recycling, offer_reputation,
	request_recycling, request_reputation, message, created_at`

type exchangeRow struct {
	models.ExchangeRequest
	requester int64
	receiver  int64
}

func (r exchangeRow) offer() models.Balance {
	return models.Balance{RecyclingCoins: r.OfferRecyclingCoins, ReputationCoins: r.OfferReputationCoins}
}

func (r exchangeRow) request() models.Balance {
	return models.Balance{RecyclingCoins: r.RequestRecyclingCoins, ReputationCoins: r.RequestReputationCoins}
}

func scanExchange(row scanner) (exchangeRow, error) {
	var r exchangeRow
	var created int64
	err := row.Scan(&r.ID, &r.requester, &r.receiver, &r.Status, &r.OfferRecyclingCoins, &r.OfferReputationCoins,
		&r.RequestRecyclingCoins, &r.RequestReputationCoins, &r.Message, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	r.CreatedAt = unstamp(created)
	return r, err
}

func exchange(ctx context.Context, q querier, id int64) (exchangeRow, error) {
	return scanExchange(q.QueryRowContext(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE id = ?`, id))
}

func projectExchange(ctx context.Context, q querier, r exchangeRow) (models.ExchangeRequest, error) {
	e := r.ExchangeRequest
	var err error
	if e.Requester, err = summary(ctx, q, r.requester); err != nil {
		return e, err
	}
	e.Receiver, err = summary(ctx, q, r.receiver)
	return e, err
}

// Exchanges lists the requests the user made or received, newest first.
func (s *SQLite) Exchanges(ctx context.Context, userID int64) ([]models.ExchangeRequest, error) {
	out := []models.ExchangeRequest{}
	err := s.inTx(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+exchangeColumns+` FROM exchanges WHERE requester_id = ? OR receiver_id = ? ORDER BY id DESC`,
			userID, userID)
		if err != nil {
			return err
		}
		var found []exchangeRow
		for rows.Next() {
			r, err := scanExchange(rows)
			if err != nil {
				rows.Close()
				return err
			}
			found = append(found, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, r := range found {
			e, err := projectExchange(ctx, q, r)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func covers(a *Account, b models.Balance) bool {
	return a.RecyclingCoins >= b.RecyclingCoins && a.ReputationCoins >= b.ReputationCoins
}

func (s *SQLite) CreateExchange(ctx context.Context, requester int64, n models.NewExchangeRequest) (*models.ExchangeRequest, error) {
	var out models.ExchangeRequest
	err := s.inTx(ctx, func(q querier) error {
		a, err := account(ctx, q, requester)
		if err != nil {
			return err
		}
		if n.ReceiverID == requester {
			return ErrSelfTrade
		}
		if _, err := account(ctx, q, n.ReceiverID); err != nil {
			return err
		}
		if !covers(a, models.Balance{RecyclingCoins: n.OfferRecyclingCoins, ReputationCoins: n.OfferReputationCoins}) {
			return ErrInsufficientFunds
		}

		res, err := q.ExecContext(ctx,
			`INSERT INTO exchanges (requester_id, receiver_id, status, offer_recycling, offer_reputation,
			request_recycling, request_reputation, message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			requester, n.ReceiverID, models.ExchangePending, n.OfferRecyclingCoins, n.OfferReputationCoins,
			n.RequestRecyclingCoins, n.RequestReputationCoins, n.Message, stamp(s.clock.Now()))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		r, err := exchange(ctx, q, id)
		if err != nil {
			return err
		}
		out, err = projectExchange(ctx, q, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RespondExchange settles a pending request. Accepting swaps the coins when both sides can
// still cover their part.
func (s *SQLite) RespondExchange(ctx context.Context, receiver, id int64, accept bool) error {
	return s.inTx(ctx, func(q querier) error {
		e, err := exchange(ctx, q, id)
		if err != nil {
			return err
		}
		if e.receiver != receiver {
			return ErrForbidden
		}
		if e.Status != models.ExchangePending {
			return ErrNotPending
		}
		if !accept {
			_, err := q.ExecContext(ctx, `UPDATE exchanges SET status = ? WHERE id = ?`, models.ExchangeRejected, id)
			return err
		}

		from, err := account(ctx, q, e.requester)
		if err != nil {
			return err
		}
		to, err := account(ctx, q, e.receiver)
		if err != nil {
			return err
		}
		offered, requested := e.offer(), e.request()
		if !covers(from, offered) || !covers(to, requested) {
			return ErrInsufficientFunds
		}

		now := stamp(s.clock.Now())
		legs := []struct {
			sender, receiver int64
			coinType         string
			amount           int
		}{
			{e.requester, e.receiver, models.CoinRecycling, offered.RecyclingCoins},
			{e.requester, e.receiver, models.CoinReputation, offered.ReputationCoins},
			{e.receiver, e.requester, models.CoinRecycling, requested.RecyclingCoins},
			{e.receiver, e.requester, models.CoinReputation, requested.ReputationCoins},
		}
		for _, leg := range legs {
			if leg.amount == 0 {
				continue
			}
			if err := credit(ctx, q, leg.sender, leg.coinType, -leg.amount); err != nil {
				return err
			}
			if err := credit(ctx, q, leg.receiver, leg.coinType, leg.amount); err != nil {
				return err
			}
			if _, err := q.ExecContext(ctx,
				`INSERT INTO transactions (sender_id, receiver_id, coin_type, amount, kind, created_at) VALUES (?, ?, ?, ?, 'exchange', ?)`,
				leg.sender, leg.receiver, leg.coinType, leg.amount, now); err != nil {
				return err
			}
		}
		_, err = q.ExecContext(ctx, `UPDATE exchanges SET status = ? WHERE id = ?`, models.ExchangeAccepted, id)
		return err
	})
}

func (s *SQLite) CancelExchange(ctx context.Context, requester, id int64) error {
	return s.inTx(ctx, func(q querier) error {
		e, err := exchange(ctx, q, id)
		if err != nil {
			return err
		}
		if e.requester != requester {
			return ErrForbidden
		}
		if e.Status != models.ExchangePending {
			return ErrNotPending
		}
		_, err = q.ExecContext(ctx, `UPDATE exchanges SET status = ? WHERE id = ?`, models.ExchangeCancelled, id)
		return err
	})
}

func (s *SQLite) Transactions(ctx context.Context, userID int64) ([]models.CoinTransaction, error) {
	out := []models.CoinTransaction{}
	err := s.inTx(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT id, sender_id, receiver_id, coin_type, amount, price_per_coin, kind, created_at
			FROM transactions WHERE sender_id = ? OR receiver_id = ? ORDER BY id DESC`, userID, userID)
		if err != nil {
			return err
		}
		type txRow struct {
			models.CoinTransaction
			sender, receiver int64
		}
		var found []txRow
		for rows.Next() {
			var r txRow
			var price sql.NullString
			var created int64
			if err := rows.Scan(&r.ID, &r.sender, &r.receiver, &r.CoinType, &r.Amount, &price, &r.TransactionType, &created); err != nil {
				rows.Close()
				return err
			}
			r.CreatedAt = unstamp(created)
			if price.Valid {
				if r.PricePerCoin, err = parsePrice(price.String); err != nil {
					rows.Close()
					return err
				}
			}
			found = append(found, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, r := range found {
			t := r.CoinTransaction
			if t.Sender, err = summary(ctx, q, r.sender); err != nil {
				return err
			}
			if t.Receiver, err = summary(ctx, q, r.receiver); err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	return out, err
}
