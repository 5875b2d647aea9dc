package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

// DBTX is an interface that allows us to use either a connection pool or a transaction
type DBTX interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Repository implements localizedcontent.Repository, TranslationStore and
// FavoriteStore using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var (
	_ lc.Repository       = (*Repository)(nil)
	_ lc.TranslationStore = (*Repository)(nil)
	_ lc.FavoriteStore    = (*Repository)(nil)
)

// mediaColumns whitelists the post columns a media filter may reference.
var mediaColumns = map[lc.MediaKind]string{
	lc.MediaVideo: "p.video",
	lc.MediaAudio: "p.audio",
	lc.MediaImage: "p.image",
	lc.MediaPDF:   "p.pdf",
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "translations") {
				return lc.ErrTranslationExists
			}
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			if strings.Contains(pgErr.ConstraintName, "category_id") || strings.Contains(pgErr.ConstraintName, "parent_id") {
				return lc.ErrCategoryNotFound
			}
			if strings.Contains(pgErr.ConstraintName, "post_id") {
				return lc.ErrPostNotFound
			}
			return fmt.Errorf("referenced record not found in %s", operation)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Post operations

const postColumns = `p.id, p.title, p.description, p.url, p."date", p."time",
	p.video, p.audio, p.image, p.pdf, p.is_featured, p.created_at`

func scanPost(row pgx.Row) (*lc.Post, error) {
	var post lc.Post
	err := row.Scan(
		&post.ID, &post.Title, &post.Description, &post.URL, &post.Date, &post.Time,
		&post.Video, &post.Audio, &post.Image, &post.PDF, &post.IsFeatured, &post.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *Repository) CreatePost(ctx context.Context, post *lc.Post) error {
	query := `
		INSERT INTO posts (
			title, description, url, "date", "time",
			video, audio, image, pdf, is_featured, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		post.Title, post.Description, post.URL, post.Date, post.Time,
		post.Video, post.Audio, post.Image, post.PDF, post.IsFeatured, post.CreatedAt,
	).Scan(&post.ID)
	if err != nil {
		return r.handlePostgresError("create post", err)
	}
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id int64) (*lc.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lc.ErrPostNotFound
		}
		return nil, r.handlePostgresError("get post", err)
	}

	if err := r.loadRelations(ctx, []*lc.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *lc.Post) error {
	query := `
		UPDATE posts SET
			title = $2, description = $3, url = $4, "date" = $5, "time" = $6,
			video = $7, audio = $8, image = $9, pdf = $10, is_featured = $11
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		post.ID, post.Title, post.Description, post.URL, post.Date, post.Time,
		post.Video, post.Audio, post.Image, post.PDF, post.IsFeatured)
	if err != nil {
		return r.handlePostgresError("update post", err)
	}
	if tag.RowsAffected() == 0 {
		return lc.ErrPostNotFound
	}
	return nil
}

// DeletePost removes the post. Category links, favorites and history rows
// follow through foreign key cascades; translations and media rows do not.
func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return lc.ErrPostNotFound
	}
	return nil
}

func (r *Repository) ListPosts(ctx context.Context, filter lc.PostFilter) ([]*lc.Post, int, error) {
	where, args := buildPostFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM posts p WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, r.handlePostgresError("count posts", err)
	}

	direction := "ASC"
	if filter.Order == lc.OrderNewest {
		direction = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM posts p WHERE %s ORDER BY p.created_at %s, p.id %s`,
		postColumns, where, direction, direction)
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, r.handlePostgresError("list posts", err)
	}
	defer rows.Close()

	var posts []*lc.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, r.handlePostgresError("scan post", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.handlePostgresError("list posts", err)
	}

	if err := r.loadRelations(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// buildPostFilter renders the WHERE clause for filter with its arguments.
func buildPostFilter(filter lc.PostFilter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, `p.id IN (
			SELECT pc.post_id FROM post_categories pc
			WHERE pc.category_id IN (
				WITH RECURSIVE subtree AS (
					SELECT id FROM categories WHERE id = `+arg(*filter.CategoryID)+`
					UNION
					SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
				)
				SELECT id FROM subtree))`)
	}

	if filter.Title != "" {
		pattern := arg("%" + escapeLike(filter.Title) + "%")
		conditions = append(conditions, `(p.title ILIKE `+pattern+` OR EXISTS (
			SELECT 1 FROM translations t
			WHERE t.module = 'post' AND t.module_id = p.id AND t."key" = 'title'
			AND t.value ILIKE `+pattern+`))`)
	}

	if filter.Featured != nil {
		conditions = append(conditions, "p.is_featured = "+arg(*filter.Featured))
	}

	if column, ok := mediaColumns[filter.HasMedia]; ok {
		conditions = append(conditions, column+" <> ''")
	}

	return strings.Join(conditions, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// loadRelations fills Categories (with direct children) and Images of posts.
func (r *Repository) loadRelations(ctx context.Context, posts []*lc.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	byID := make(map[int64]*lc.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		p.Categories = []lc.Category{}
		p.Images = []lc.MediaAttachment{}
		byID[p.ID] = p
	}

	rows, err := r.db.Query(ctx, `
		SELECT pc.post_id, c.id, c.name, c.parent_id, c.created_at
		FROM post_categories pc JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id = ANY($1)
		ORDER BY c.id`, ids)
	if err != nil {
		return r.handlePostgresError("load post categories", err)
	}
	type link struct {
		postID   int64
		category lc.Category
	}
	var links []link
	var categoryIDs []int64
	for rows.Next() {
		var l link
		if err := rows.Scan(&l.postID, &l.category.ID, &l.category.Name, &l.category.ParentID, &l.category.CreatedAt); err != nil {
			rows.Close()
			return r.handlePostgresError("scan post category", err)
		}
		links = append(links, l)
		categoryIDs = append(categoryIDs, l.category.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return r.handlePostgresError("load post categories", err)
	}

	children, err := r.childrenOf(ctx, categoryIDs)
	if err != nil {
		return err
	}
	for _, l := range links {
		l.category.Children = children[l.category.ID]
		byID[l.postID].Categories = append(byID[l.postID].Categories, l.category)
	}

	media, err := r.listMedia(ctx, lc.ModulePost, ids)
	if err != nil {
		return err
	}
	for _, m := range media {
		byID[m.ModuleID].Images = append(byID[m.ModuleID].Images, *m)
	}
	return nil
}

// Category operations

func (r *Repository) CreateCategory(ctx context.Context, category *lc.Category) error {
	query := `INSERT INTO categories (name, parent_id, created_at) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRow(ctx, query, category.Name, category.ParentID, category.CreatedAt).Scan(&category.ID)
	if err != nil {
		return r.handlePostgresError("create category", err)
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (*lc.Category, error) {
	query := `SELECT id, name, parent_id, created_at FROM categories WHERE id = $1`

	var category lc.Category
	err := r.db.QueryRow(ctx, query, id).Scan(&category.ID, &category.Name, &category.ParentID, &category.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lc.ErrCategoryNotFound
		}
		return nil, r.handlePostgresError("get category", err)
	}

	children, err := r.childrenOf(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	category.Children = children[id]
	return &category, nil
}

func (r *Repository) childrenOf(ctx context.Context, parentIDs []int64) (map[int64][]lc.Category, error) {
	children := make(map[int64][]lc.Category)
	if len(parentIDs) == 0 {
		return children, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, parent_id, created_at FROM categories
		WHERE parent_id = ANY($1)
		ORDER BY id`, parentIDs)
	if err != nil {
		return nil, r.handlePostgresError("list child categories", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c lc.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan category", err)
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}
	return children, rows.Err()
}

func (r *Repository) GetPostCategoryIDs(ctx context.Context, postID int64) ([]int64, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists); err != nil {
		return nil, r.handlePostgresError("get post", err)
	}
	if !exists {
		return nil, lc.ErrPostNotFound
	}

	rows, err := r.db.Query(ctx, `SELECT category_id FROM post_categories WHERE post_id = $1 ORDER BY category_id`, postID)
	if err != nil {
		return nil, r.handlePostgresError("get post categories", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, r.handlePostgresError("get post categories", err)
	}
	return ids, nil
}

// SetPostCategories replaces the category links of a post in one transaction.
func (r *Repository) SetPostCategories(ctx context.Context, postID int64, categoryIDs []int64) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM post_categories WHERE post_id = $1`, postID); err != nil {
			return err
		}
		if len(categoryIDs) == 0 {
			return nil
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO post_categories (post_id, category_id)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING`, postID, categoryIDs)
		return err
	})
	if err != nil {
		return r.handlePostgresError("set post categories", err)
	}
	return nil
}

// Media operations

func (r *Repository) CreateMedia(ctx context.Context, media *lc.MediaAttachment) error {
	query := `INSERT INTO media (module, module_id, url, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRow(ctx, query, media.Module, media.ModuleID, media.URL, media.CreatedAt).Scan(&media.ID)
	if err != nil {
		return r.handlePostgresError("create media", err)
	}
	return nil
}

func (r *Repository) ListMedia(ctx context.Context, module string, moduleID int64) ([]*lc.MediaAttachment, error) {
	return r.listMedia(ctx, module, []int64{moduleID})
}

func (r *Repository) listMedia(ctx context.Context, module string, moduleIDs []int64) ([]*lc.MediaAttachment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, module, module_id, url, created_at FROM media
		WHERE module = $1 AND module_id = ANY($2)
		ORDER BY id`, module, moduleIDs)
	if err != nil {
		return nil, r.handlePostgresError("list media", err)
	}
	defer rows.Close()

	var media []*lc.MediaAttachment
	for rows.Next() {
		var m lc.MediaAttachment
		if err := rows.Scan(&m.ID, &m.Module, &m.ModuleID, &m.URL, &m.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan media", err)
		}
		media = append(media, &m)
	}
	return media, rows.Err()
}

func (r *Repository) DeleteMedia(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete media", err)
	}
	if tag.RowsAffected() == 0 {
		return lc.ErrMediaNotFound
	}
	return nil
}

// History operations

func (r *Repository) AddHistory(ctx context.Context, entry *lc.HistoryEntry) error {
	query := `INSERT INTO post_histories (user_id, post_id, created_at) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRow(ctx, query, entry.UserID, entry.PostID, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return r.handlePostgresError("add history", err)
	}
	return nil
}

func (r *Repository) ListHistory(ctx context.Context, userID int64, page, limit int) ([]*lc.HistoryEntry, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM post_histories WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, r.handlePostgresError("count history", err)
	}

	query := `
		SELECT id, user_id, post_id, created_at FROM post_histories
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, (max(page, 1)-1)*limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, r.handlePostgresError("list history", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*lc.HistoryEntry, error) {
		var h lc.HistoryEntry
		err := row.Scan(&h.ID, &h.UserID, &h.PostID, &h.CreatedAt)
		return &h, err
	})
	if err != nil {
		return nil, 0, r.handlePostgresError("list history", err)
	}
	return entries, total, nil
}

// Translation operations

func (r *Repository) FindTranslation(ctx context.Context, key lc.TranslationKey) (*lc.TranslationEntry, error) {
	query := `
		SELECT id, module, module_id, language_id, "key", value FROM translations
		WHERE module = $1 AND module_id = $2 AND language_id = $3 AND "key" = $4`

	var entry lc.TranslationEntry
	err := r.db.QueryRow(ctx, query, key.Module, key.ModuleID, int(key.Language), key.Key).Scan(
		&entry.ID, &entry.Module, &entry.ModuleID, &entry.Language, &entry.Key, &entry.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lc.ErrTranslationNotFound
		}
		return nil, r.handlePostgresError("find translation", err)
	}
	return &entry, nil
}

func (r *Repository) CreateTranslation(ctx context.Context, entry *lc.TranslationEntry) error {
	query := `
		INSERT INTO translations (module, module_id, language_id, "key", value)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query, entry.Module, entry.ModuleID, int(entry.Language), entry.Key, entry.Value).Scan(&entry.ID)
	if err != nil {
		return r.handlePostgresError("create translation", err)
	}
	return nil
}

func (r *Repository) UpdateTranslation(ctx context.Context, id int64, value string) (*lc.TranslationEntry, error) {
	query := `
		UPDATE translations SET value = $2 WHERE id = $1
		RETURNING id, module, module_id, language_id, "key", value`

	var entry lc.TranslationEntry
	err := r.db.QueryRow(ctx, query, id, value).Scan(
		&entry.ID, &entry.Module, &entry.ModuleID, &entry.Language, &entry.Key, &entry.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lc.ErrTranslationNotFound
		}
		return nil, r.handlePostgresError("update translation", err)
	}
	return &entry, nil
}

func (r *Repository) DeleteTranslation(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM translations WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete translation", err)
	}
	if tag.RowsAffected() == 0 {
		return lc.ErrTranslationNotFound
	}
	return nil
}

// Favorite operations

// ToggleFavorite deletes the pair if present and inserts it otherwise, in a
// single statement.
func (r *Repository) ToggleFavorite(ctx context.Context, userID, postID int64) (bool, error) {
	query := `
		WITH removed AS (
			DELETE FROM favorites WHERE user_id = $1 AND post_id = $2
			RETURNING post_id
		), added AS (
			INSERT INTO favorites (user_id, post_id, created_at)
			SELECT $1, $2, NOW() WHERE NOT EXISTS (SELECT 1 FROM removed)
			ON CONFLICT DO NOTHING
			RETURNING post_id
		)
		SELECT EXISTS (SELECT 1 FROM added)`

	var added bool
	if err := r.db.QueryRow(ctx, query, userID, postID).Scan(&added); err != nil {
		return false, r.handlePostgresError("toggle favorite", err)
	}
	return added, nil
}

func (r *Repository) ListFavorites(ctx context.Context, userID int64) ([]*lc.Favorite, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, post_id, created_at FROM favorites
		WHERE user_id = $1
		ORDER BY post_id`, userID)
	if err != nil {
		return nil, r.handlePostgresError("list favorites", err)
	}
	favorites, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*lc.Favorite, error) {
		var f lc.Favorite
		err := row.Scan(&f.UserID, &f.PostID, &f.CreatedAt)
		return &f, err
	})
	if err != nil {
		return nil, r.handlePostgresError("list favorites", err)
	}
	return favorites, nil
}
