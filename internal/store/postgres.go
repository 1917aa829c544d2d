package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/ringtones/internal/catalog"
)

//go:embed schema.sql
var schema string

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Migrate creates the catalog tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

// CatalogPostgresStore is a PostgreSQL implementation of catalog.Repository.
type CatalogPostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewCatalogPostgresStore creates a new PostgreSQL-backed catalog.
func NewCatalogPostgresStore(pool *pgxpool.Pool) *CatalogPostgresStore {
	return &CatalogPostgresStore{pool: pool, now: time.Now}
}

const ringtoneColumns = `
	r.id, r.numeric_id, r.name, r.slug, r.description, r.file_key, r.file_size,
	r.thumbnail_key, r.category_id, r.download_count, r.is_active, r.created_at, r.updated_at,
	c.name, c.slug`

func scanRingtone(row pgx.Row) (*catalog.Ringtone, error) {
	var (
		r                      catalog.Ringtone
		categoryName, catSlug *string
	)

	err := row.Scan(
		&r.ID, &r.NumericID, &r.Name, &r.Slug, &r.Description, &r.FileKey, &r.FileSize,
		&r.ThumbnailKey, &r.CategoryID, &r.DownloadCount, &r.Active, &r.CreatedAt, &r.UpdatedAt,
		&categoryName, &catSlug,
	)
	if err != nil {
		return nil, err
	}

	if categoryName != nil {
		r.CategoryName = *categoryName
	}

	if catSlug != nil {
		r.CategorySlug = *catSlug
	}

	return &r, nil
}

func (p *CatalogPostgresStore) FindRingtone(ctx context.Context, id int64) (*catalog.Ringtone, error) {
	query := `
		SELECT ` + ringtoneColumns + `
		FROM ringtones r
		LEFT JOIN categories c ON c.id = r.category_id
		WHERE r.id = $1
	`

	r, err := scanRingtone(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}

		return nil, err
	}

	if err := p.attachTags(ctx, []*catalog.Ringtone{r}); err != nil {
		return nil, err
	}

	return r, nil
}

func (p *CatalogPostgresStore) GetRingtone(ctx context.Context, ref string) (*catalog.Ringtone, error) {
	id, _ := strconv.ParseInt(ref, 10, 64)

	query := `
		SELECT ` + ringtoneColumns + `
		FROM ringtones r
		LEFT JOIN categories c ON c.id = r.category_id
		WHERE (r.numeric_id = $1 OR r.id = $2) AND r.is_active
		ORDER BY (r.numeric_id = $1) DESC
		LIMIT 1
	`

	r, err := scanRingtone(p.pool.QueryRow(ctx, query, ref, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}

		return nil, err
	}

	if err := p.attachTags(ctx, []*catalog.Ringtone{r}); err != nil {
		return nil, err
	}

	return r, nil
}

var searchOrder = map[catalog.Sort]string{
	catalog.SortLatest:  "r.created_at DESC, r.id DESC",
	catalog.SortPopular: "r.download_count DESC, r.id DESC",
	catalog.SortName:    "r.name ASC, r.id DESC",
	catalog.SortOldest:  "r.created_at ASC, r.id ASC",
}

func (p *CatalogPostgresStore) Search(ctx context.Context, q catalog.SearchQuery) (*catalog.SearchPage, error) {
	q = q.Normalize()

	where := []string{"TRUE"}
	if !q.IncludeInactive {
		where = append(where, "r.is_active")
	}

	args := []any{}

	arg := func(v any) string {
		args = append(args, v)

		return "$" + strconv.Itoa(len(args))
	}

	if q.Query != "" {
		if catalog.IsNumericID(q.Query) {
			where = append(where, "r.numeric_id = "+arg(q.Query))
		} else {
			n := arg(q.Query)
			where = append(where, `(
				strpos(lower(r.name), lower(`+n+`)) > 0
				OR strpos(lower(r.description), lower(`+n+`)) > 0
				OR EXISTS (
					SELECT 1 FROM ringtone_tags rt JOIN tags t ON t.id = rt.tag_id
					WHERE rt.ringtone_id = r.id AND strpos(lower(t.name), lower(`+n+`)) > 0
				))`)
		}
	}

	if q.Category != "" {
		where = append(where, "c.slug = "+arg(q.Category))
	}

	if q.Tag != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM ringtone_tags rt JOIN tags t ON t.id = rt.tag_id
			WHERE rt.ringtone_id = r.id AND t.slug = `+arg(q.Tag)+`)`)
	}

	from := `
		FROM ringtones r
		LEFT JOIN categories c ON c.id = r.category_id
		WHERE ` + strings.Join(where, " AND ")

	var total int64
	if err := p.pool.QueryRow(ctx, "SELECT count(*) "+from, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count ringtones: %w", err)
	}

	limit, offset := arg(q.Limit), arg(q.Offset())
	query := "SELECT " + ringtoneColumns + from +
		" ORDER BY " + searchOrder[q.Sort] +
		" LIMIT " + limit + " OFFSET " + offset

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search ringtones: %w", err)
	}
	defer rows.Close()

	var found []*catalog.Ringtone

	for rows.Next() {
		r, err := scanRingtone(rows)
		if err != nil {
			return nil, err
		}

		found = append(found, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := p.attachTags(ctx, found); err != nil {
		return nil, err
	}

	ringtones := make([]catalog.Ringtone, 0, len(found))
	for _, r := range found {
		ringtones = append(ringtones, *r)
	}

	return catalog.NewSearchPage(q, ringtones, total), nil
}

func (p *CatalogPostgresStore) Autocomplete(ctx context.Context, q string, limit int) ([]catalog.Suggestion, error) {
	query := `
		SELECT r.id, r.numeric_id, r.name, COALESCE(c.name, '')
		FROM ringtones r
		LEFT JOIN categories c ON c.id = r.category_id
		WHERE r.is_active
		  AND (strpos(lower(r.name), lower($1)) > 0 OR r.numeric_id LIKE $2 ESCAPE '\')
		ORDER BY r.download_count DESC, r.id ASC
		LIMIT $3
	`

	rows, err := p.pool.Query(ctx, query, q, likePrefix(q), limit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: %w", err)
	}
	defer rows.Close()

	var out []catalog.Suggestion

	for rows.Next() {
		var s catalog.Suggestion
		if err := rows.Scan(&s.ID, &s.NumericID, &s.Name, &s.CategoryName); err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, rows.Err()
}

func (p *CatalogPostgresStore) CreateRingtone(ctx context.Context, r *catalog.Ringtone, tagIDs []int64) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = p.now().UTC()
		r.UpdatedAt = r.CreatedAt
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO ringtones (numeric_id, name, slug, description, file_key, file_size,
				thumbnail_key, category_id, download_count, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`,
			r.NumericID, r.Name, r.Slug, r.Description, r.FileKey, r.FileSize,
			r.ThumbnailKey, r.CategoryID, r.DownloadCount, r.Active, r.CreatedAt, r.UpdatedAt,
		).Scan(&r.ID)
		if err != nil {
			return mapWriteError(err, catalog.ErrDuplicateNumericID)
		}

		return insertRingtoneTags(ctx, tx, r.ID, tagIDs)
	})
}

func (p *CatalogPostgresStore) UpdateRingtone(ctx context.Context, r *catalog.Ringtone, tagIDs []int64) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE ringtones
			SET name = $2, slug = $3, description = $4, file_key = $5, file_size = $6,
				thumbnail_key = $7, category_id = $8, is_active = $9, updated_at = $10
			WHERE id = $1
		`,
			r.ID, r.Name, r.Slug, r.Description, r.FileKey, r.FileSize,
			r.ThumbnailKey, r.CategoryID, r.Active, r.UpdatedAt,
		)
		if err != nil {
			return mapWriteError(err, catalog.ErrDuplicateNumericID)
		}

		if tag.RowsAffected() == 0 {
			return catalog.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM ringtone_tags WHERE ringtone_id = $1`, r.ID); err != nil {
			return err
		}

		return insertRingtoneTags(ctx, tx, r.ID, tagIDs)
	})
}

func insertRingtoneTags(ctx context.Context, tx pgx.Tx, ringtoneID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO ringtone_tags (ringtone_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			ringtoneID, tagID,
		)
		if err != nil {
			return mapWriteError(err, catalog.ErrDuplicateNumericID)
		}
	}

	return nil
}

func (p *CatalogPostgresStore) DeleteRingtone(ctx context.Context, id int64) (*catalog.Ringtone, error) {
	var r catalog.Ringtone

	err := p.pool.QueryRow(ctx, `
		DELETE FROM ringtones WHERE id = $1
		RETURNING id, numeric_id, name, file_key, thumbnail_key
	`, id).Scan(&r.ID, &r.NumericID, &r.Name, &r.FileKey, &r.ThumbnailKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}

		return nil, err
	}

	return &r, nil
}

func (p *CatalogPostgresStore) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT c.id, c.name, c.slug, c.description, c.icon, c.sort_order, c.parent_id,
			count(r.id) FILTER (WHERE r.is_active)
		FROM categories c
		LEFT JOIN ringtones r ON r.category_id = c.id
		GROUP BY c.id
		ORDER BY c.sort_order, c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []catalog.Category

	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Icon, &c.Order, &c.ParentID, &c.RingtoneCount); err != nil {
			return nil, err
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

func (p *CatalogPostgresStore) ListTags(ctx context.Context) ([]catalog.Tag, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT t.id, t.name, t.slug, count(rt.ringtone_id)
		FROM tags t
		LEFT JOIN ringtone_tags rt ON rt.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []catalog.Tag

	for rows.Next() {
		var t catalog.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.RingtoneCount); err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, rows.Err()
}

// Upserts keep existing rows untouched and only report their id.

func (p *CatalogPostgresStore) UpsertCategory(ctx context.Context, c *catalog.Category) error {
	return p.pool.QueryRow(ctx, `
		INSERT INTO categories (name, slug, description, icon, sort_order, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id
	`, c.Name, c.Slug, c.Description, c.Icon, c.Order, c.ParentID).Scan(&c.ID)
}

func (p *CatalogPostgresStore) UpsertTag(ctx context.Context, t *catalog.Tag) error {
	return p.pool.QueryRow(ctx, `
		INSERT INTO tags (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id
	`, t.Name, t.Slug).Scan(&t.ID)
}

func (p *CatalogPostgresStore) CreateTag(ctx context.Context, t *catalog.Tag) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO tags (name, slug) VALUES ($1, $2) RETURNING id`, t.Name, t.Slug,
	).Scan(&t.ID)
	if err != nil {
		return mapWriteError(err, catalog.ErrDuplicateSlug)
	}

	return nil
}

func (p *CatalogPostgresStore) DeleteTag(ctx context.Context, id int64) error {
	return execOne(p.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id))
}

func (p *CatalogPostgresStore) UpsertPlacement(ctx context.Context, pl *catalog.Placement) error {
	return p.pool.QueryRow(ctx, `
		INSERT INTO ad_placements (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id
	`, pl.Name, pl.Slug).Scan(&pl.ID)
}

func (p *CatalogPostgresStore) ListPlacements(ctx context.Context) ([]catalog.Placement, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name, slug FROM ad_placements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Placement, error) {
		var pl catalog.Placement
		err := row.Scan(&pl.ID, &pl.Name, &pl.Slug)

		return pl, err
	})
}

func (p *CatalogPostgresStore) CreateAdvertisement(ctx context.Context, ad *catalog.Advertisement) error {
	if ad.CreatedAt.IsZero() {
		ad.CreatedAt = p.now().UTC()
	}

	err := p.pool.QueryRow(ctx, `
		INSERT INTO advertisements (name, ad_code, placement_id, is_active, created_at)
		SELECT $1, $2, pl.id, $4, $5 FROM ad_placements pl WHERE pl.slug = $3
		RETURNING id
	`, ad.Name, ad.Code, ad.PlacementSlug, ad.Active, ad.CreatedAt).Scan(&ad.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("placement %q: %w", ad.PlacementSlug, catalog.ErrNotFound)
	}

	return err
}

const adColumns = `a.id, a.name, a.ad_code, pl.slug, a.is_active, a.impressions, a.created_at`

func scanAd(row pgx.Row) (*catalog.Advertisement, error) {
	var ad catalog.Advertisement

	err := row.Scan(&ad.ID, &ad.Name, &ad.Code, &ad.PlacementSlug, &ad.Active, &ad.Impressions, &ad.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}

		return nil, err
	}

	return &ad, nil
}

func (p *CatalogPostgresStore) ListAdvertisements(ctx context.Context) ([]catalog.Advertisement, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+adColumns+`
		FROM advertisements a
		JOIN ad_placements pl ON pl.id = a.placement_id
		ORDER BY a.created_at DESC, a.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Advertisement, error) {
		ad, err := scanAd(row)
		if err != nil {
			return catalog.Advertisement{}, err
		}

		return *ad, nil
	})
}

func (p *CatalogPostgresStore) GetAdvertisement(ctx context.Context, id int64) (*catalog.Advertisement, error) {
	return scanAd(p.pool.QueryRow(ctx, `
		SELECT `+adColumns+`
		FROM advertisements a
		JOIN ad_placements pl ON pl.id = a.placement_id
		WHERE a.id = $1
	`, id))
}

// UpdateAdvertisement keeps the stored impression count and creation time.
func (p *CatalogPostgresStore) UpdateAdvertisement(ctx context.Context, ad *catalog.Advertisement) error {
	var placementID int64

	err := p.pool.QueryRow(ctx, `SELECT id FROM ad_placements WHERE slug = $1`, ad.PlacementSlug).Scan(&placementID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("placement %q: %w", ad.PlacementSlug, catalog.ErrNotFound)
		}

		return err
	}

	err = p.pool.QueryRow(ctx, `
		UPDATE advertisements SET name = $2, ad_code = $3, placement_id = $4, is_active = $5
		WHERE id = $1
		RETURNING impressions, created_at
	`, ad.ID, ad.Name, ad.Code, placementID, ad.Active).Scan(&ad.Impressions, &ad.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrNotFound
	}

	return err
}

func (p *CatalogPostgresStore) DeleteAdvertisement(ctx context.Context, id int64) error {
	return execOne(p.pool.Exec(ctx, `DELETE FROM advertisements WHERE id = $1`, id))
}

func (p *CatalogPostgresStore) ActiveAd(ctx context.Context, placement string) (*catalog.Advertisement, error) {
	return scanAd(p.pool.QueryRow(ctx, `
		SELECT `+adColumns+`
		FROM advertisements a
		JOIN ad_placements pl ON pl.id = a.placement_id
		WHERE a.is_active AND pl.slug = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT 1
	`, placement))
}

func (p *CatalogPostgresStore) RecordImpression(ctx context.Context, adID int64) error {
	return execOne(p.pool.Exec(ctx, `UPDATE advertisements SET impressions = impressions + 1 WHERE id = $1`, adID))
}

func (p *CatalogPostgresStore) RecordDownload(ctx context.Context, log catalog.DownloadLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = p.now().UTC()
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE ringtones SET download_count = download_count + 1 WHERE id = $1`, log.RingtoneID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return catalog.ErrNotFound
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO download_logs (ringtone_id, ip_address, user_agent, referer, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, log.RingtoneID, log.IPAddress, log.UserAgent, log.Referer, log.CreatedAt)

		return err
	})
}

func (p *CatalogPostgresStore) CountDownloads(ctx context.Context, since time.Time) (int64, error) {
	var n int64

	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM download_logs WHERE created_at >= $1`, since).Scan(&n)

	return n, err
}

func (p *CatalogPostgresStore) DailyDownloads(ctx context.Context, since time.Time) ([]catalog.DailyDownloads, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, count(*)
		FROM download_logs
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return nil, fmt.Errorf("daily downloads: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.DailyDownloads, error) {
		var d catalog.DailyDownloads
		err := row.Scan(&d.Date, &d.Downloads)

		return d, err
	})
}

func (p *CatalogPostgresStore) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT key, value FROM site_settings`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}

		out[k] = v
	}

	return out, rows.Err()
}

func (p *CatalogPostgresStore) SaveSettings(ctx context.Context, settings map[string]string) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for k, v := range settings {
			_, err := tx.Exec(ctx, `
				INSERT INTO site_settings (key, value) VALUES ($1, $2)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
			`, k, v)
			if err != nil {
				return fmt.Errorf("save setting %q: %w", k, err)
			}
		}

		return nil
	})
}

func (p *CatalogPostgresStore) attachTags(ctx context.Context, ringtones []*catalog.Ringtone) error {
	if len(ringtones) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(ringtones))
	byID := make(map[int64]*catalog.Ringtone, len(ringtones))

	for _, r := range ringtones {
		ids = append(ids, r.ID)
		byID[r.ID] = r
		r.Tags = []catalog.Tag{}
	}

	rows, err := p.pool.Query(ctx, `
		SELECT rt.ringtone_id, t.id, t.name, t.slug
		FROM ringtone_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.ringtone_id = ANY($1)
		ORDER BY t.name
	`, ids)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ringtoneID int64
			t          catalog.Tag
		)

		if err := rows.Scan(&ringtoneID, &t.ID, &t.Name, &t.Slug); err != nil {
			return err
		}

		if r, ok := byID[ringtoneID]; ok {
			r.Tags = append(r.Tags, t)
		}
	}

	return rows.Err()
}

// execOne reports ErrNotFound when a statement touched no rows.
func execOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}

	return nil
}

// mapWriteError turns a unique violation into duplicate and a foreign key
// violation into catalog.ErrNotFound.
func mapWriteError(err, duplicate error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return duplicate
	case pgForeignKeyViolation:
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, catalog.ErrNotFound)
	default:
		return err
	}
}

// likePrefix escapes LIKE wildcards in s and appends %.
func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

	return r.Replace(s) + "%"
}

var _ catalog.Repository = (*CatalogPostgresStore)(nil)
