package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/fletnix/internal/agepolicy"
	"github.com/hitoshi/fletnix/internal/model"
)

// showColumns はshowsテーブルから取得するカラム。scanShowの順序と一致させる。
const showColumns = `id, show_id, type, title, director, cast_members, country, date_added,
		        release_year, rating, duration, listed_in, description, created_at, updated_at`

// PostgresShowRepo はPostgreSQLを使用したカタログリポジトリ。
type PostgresShowRepo struct {
	db *sql.DB
}

// NewPostgresShowRepo はPostgresShowRepoを生成する。
func NewPostgresShowRepo(db *sql.DB) *PostgresShowRepo {
	return &PostgresShowRepo{db: db}
}

// Query はクエリの条件に一致する作品のページと総件数を返す。
// 件数とページは同一スナップショット上で同じWHERE句から取得する。
func (r *PostgresShowRepo) Query(ctx context.Context, q model.ShowQuery) (*model.ShowPage, error) {
	where, args, err := buildShowWhere(q.Conditions)
	if err != nil {
		return nil, err
	}
	orderBy, err := showOrderClause(q.Order)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM shows"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("作品件数の取得に失敗しました: %w", err)
	}

	page := &model.ShowPage{Items: []model.Show{}, Total: total}
	if q.Limit <= 0 || q.Offset >= total {
		return page, tx.Commit()
	}

	argIndex := len(args) + 1
	pageQuery := "SELECT " + showColumns + " FROM shows" + where + orderBy +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	pageArgs := append(append([]interface{}{}, args...), q.Limit, q.Offset)

	rows, err := tx.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("作品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("作品行の読み取りに失敗しました: %w", err)
		}
		page.Items = append(page.Items, *show)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("作品一覧の走査に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return page, nil
}

// FindByShowID は公開識別子で作品を取得する。見つからない場合はnilを返す。
func (r *PostgresShowRepo) FindByShowID(ctx context.Context, showID string) (*model.Show, error) {
	show, err := scanShow(r.db.QueryRowContext(ctx,
		"SELECT "+showColumns+" FROM shows WHERE show_id = $1", showID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("公開識別子による作品の取得に失敗しました: %w", err)
	}
	return show, nil
}

// FindByID は内部識別子で作品を取得する。見つからない場合はnilを返す。
// 呼び出し側でUUID形式であることを確認しておくこと。
func (r *PostgresShowRepo) FindByID(ctx context.Context, id string) (*model.Show, error) {
	show, err := scanShow(r.db.QueryRowContext(ctx,
		"SELECT "+showColumns+" FROM shows WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("作品の取得に失敗しました: %w", err)
	}
	return show, nil
}

// Upsert は公開識別子をキーに作品を作成または更新する。
// 新規作成した場合はtrueを返す。既存作品の内部識別子と作成日時は維持する。
func (r *PostgresShowRepo) Upsert(ctx context.Context, show *model.Show) (bool, error) {
	var releaseYear sql.NullInt64
	if show.ReleaseYear > 0 {
		releaseYear = sql.NullInt64{Int64: int64(show.ReleaseYear), Valid: true}
	}
	var dateAdded sql.NullTime
	if show.DateAdded != nil {
		dateAdded = sql.NullTime{Time: *show.DateAdded, Valid: true}
	}

	var inserted bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO shows (id, show_id, type, title, director, cast_members, country, date_added,
		                    release_year, rating, duration, listed_in, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (show_id) DO UPDATE SET
		     type = EXCLUDED.type,
		     title = EXCLUDED.title,
		     director = EXCLUDED.director,
		     cast_members = EXCLUDED.cast_members,
		     country = EXCLUDED.country,
		     date_added = EXCLUDED.date_added,
		     release_year = EXCLUDED.release_year,
		     rating = EXCLUDED.rating,
		     duration = EXCLUDED.duration,
		     listed_in = EXCLUDED.listed_in,
		     description = EXCLUDED.description,
		     updated_at = EXCLUDED.updated_at
		 RETURNING (xmax = 0)`,
		show.ID, show.ShowID, string(show.Type), show.Title, nullString(show.Director),
		pq.Array(nonNilStrings(show.Cast)), nullString(show.Country), dateAdded,
		releaseYear, nullString(show.Rating), nullString(show.Duration),
		pq.Array(nonNilStrings(show.ListedIn)), nullString(show.Description), show.CreatedAt, show.UpdatedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("作品の保存に失敗しました: %w", err)
	}
	return inserted, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShow(s rowScanner) (*model.Show, error) {
	show := &model.Show{}
	var showType string
	var director, country, rating, duration, description sql.NullString
	var dateAdded sql.NullTime
	var releaseYear sql.NullInt64

	if err := s.Scan(
		&show.ID, &show.ShowID, &showType, &show.Title, &director,
		pq.Array(&show.Cast), &country, &dateAdded,
		&releaseYear, &rating, &duration, pq.Array(&show.ListedIn), &description,
		&show.CreatedAt, &show.UpdatedAt,
	); err != nil {
		return nil, err
	}

	show.Type = model.ContentType(showType)
	show.Director = nullStringValue(director)
	show.Country = nullStringValue(country)
	show.Rating = nullStringValue(rating)
	show.Duration = nullStringValue(duration)
	show.Description = nullStringValue(description)
	if dateAdded.Valid {
		show.DateAdded = &dateAdded.Time
	}
	if releaseYear.Valid {
		show.ReleaseYear = int(releaseYear.Int64)
	}
	return show, nil
}

// buildShowWhere は条件リストからWHERE句とパラメータを構築する。
// 条件が空の場合は空文字列を返す。未知の条件種別はエラー。
func buildShowWhere(conds []model.Condition) (string, []interface{}, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var args []interface{}
	for _, c := range conds {
		n := len(args) + 1
		switch c.Kind {
		case model.ConditionTitleOrCastContains:
			clauses = append(clauses, fmt.Sprintf(
				"(title ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(cast_members) AS c WHERE c ILIKE $%d))", n, n))
			args = append(args, containsPattern(c.Value))
		case model.ConditionCastContains:
			clauses = append(clauses, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM unnest(cast_members) AS c WHERE c ILIKE $%d)", n))
			args = append(args, containsPattern(c.Value))
		case model.ConditionTypeEquals:
			clauses = append(clauses, fmt.Sprintf("type = $%d", n))
			args = append(args, c.Value)
		case model.ConditionRatingExcludes:
			if len(c.Values) == 0 {
				continue
			}
			clauses = append(clauses, fmt.Sprintf(
				"NOT (regexp_split_to_array(upper(coalesce(rating, '')), '%s') && $%d::text[])",
				agepolicy.TokenSeparatorPattern, n))
			args = append(args, pq.Array(upperAll(c.Values)))
		default:
			return "", nil, fmt.Errorf("unsupported condition kind: %q", c.Kind)
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func showOrderClause(order model.ShowOrder) (string, error) {
	switch order {
	case model.ShowOrderTitle, "":
		return ` ORDER BY title COLLATE "C" ASC, show_id COLLATE "C" ASC`, nil
	default:
		return "", fmt.Errorf("unsupported show order: %q", order)
	}
}

// containsPattern は部分一致用のLIKEパターンを返す。
// ワイルドカード文字はエスケープし、リテラルとして扱う。
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// nonNilStrings はnilスライスを空スライスに置き換える（配列カラムはNOT NULL）。
func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func upperAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToUpper(strings.TrimSpace(v)))
	}
	return out
}

// compile-time interface check
var (
	_ ShowRepository = (*PostgresShowRepo)(nil)
	_ ShowWriter     = (*PostgresShowRepo)(nil)
)
