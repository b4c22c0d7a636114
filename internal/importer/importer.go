// Package importer はNetflix形式のCSVファイルからカタログを取り込む機能を提供する。
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fletnix/internal/model"
	"github.com/hitoshi/fletnix/internal/repository"
	"github.com/hitoshi/fletnix/internal/security"
)

// DateAddedLayout はdate_added列の日付形式（例: "September 25, 2021"）。
const DateAddedLayout = "January 2, 2006"

// progressInterval は進捗ログを出力する処理件数の間隔。
const progressInterval = 100

// requiredColumns はヘッダーに必須の列。
var requiredColumns = []string{"show_id", "type", "title"}

// Summary は取り込み結果の集計。
type Summary struct {
	Total    int // CSVのデータ行数
	Imported int // 新規作成した作品数
	Updated  int // 既存作品を更新した数
	Skipped  int // 不正な行として読み飛ばした数
}

// Importer はCSVを読み込み、作品を公開識別子単位でUPSERTする。
type Importer struct {
	writer    repository.ShowWriter
	sanitizer security.TextSanitizerService
	now       func() time.Time
}

// NewImporter はImporterを生成する。sanitizerがnilの場合はbluemondayのStrictPolicyを使用する。
func NewImporter(writer repository.ShowWriter, sanitizer security.TextSanitizerService) *Importer {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &Importer{
		writer:    writer,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Import はrからCSVを読み込み、各行を作品として保存する。
// 1行目はヘッダー。列の並び順は問わないが、show_id, type, titleは必須。
// 種別が不正な行や必須項目が空の行は読み飛ばして集計に含める。
// 保存に失敗した場合はそこで中断し、それまでの集計とエラーを返す。
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSVが空です")
	}
	if err != nil {
		return nil, fmt.Errorf("CSVヘッダーの読み込みに失敗しました: %w", err)
	}
	columns, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("CSVの読み込みに失敗しました: %w", err)
		}
		if isBlank(record) {
			continue
		}
		summary.Total++

		show, reason := im.toShow(columns, record)
		if show == nil {
			summary.Skipped++
			line, _ := reader.FieldPos(0)
			slog.Warn("skipping invalid catalog row",
				slog.Int("line", line),
				slog.String("reason", reason),
			)
			continue
		}

		inserted, err := im.writer.Upsert(ctx, show)
		if err != nil {
			slog.Error("failed to upsert show",
				slog.String("show_id", show.ShowID),
				slog.String("error", err.Error()),
			)
			return summary, fmt.Errorf("作品の保存に失敗しました（show_id=%s）: %w", show.ShowID, err)
		}
		if inserted {
			summary.Imported++
		} else {
			summary.Updated++
		}

		if processed := summary.Imported + summary.Updated; processed%progressInterval == 0 {
			slog.Info("import progress", slog.Int("processed", processed))
		}
	}

	slog.Info("catalog import completed",
		slog.Int("total", summary.Total),
		slog.Int("imported", summary.Imported),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// columnIndex は列名から列番号への対応。
type columnIndex map[string]int

func indexColumns(header []string) (columnIndex, error) {
	columns := make(columnIndex, len(header))
	for i, name := range header {
		// 先頭列のBOMを除去する
		name = strings.TrimPrefix(name, "\ufeff")
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSVヘッダーに必須列がありません: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func (c columnIndex) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// toShow はCSVの1行を作品に変換する。変換できない場合はnilと理由を返す。
func (im *Importer) toShow(columns columnIndex, record []string) (*model.Show, string) {
	showID := columns.get(record, "show_id")
	if showID == "" {
		return nil, "show_id is empty"
	}
	contentType, ok := model.ParseContentType(columns.get(record, "type"))
	if !ok {
		return nil, fmt.Sprintf("unknown type %q for %s", columns.get(record, "type"), showID)
	}
	title := im.sanitizer.Sanitize(columns.get(record, "title"))
	if title == "" {
		return nil, "title is empty for " + showID
	}

	now := im.now()
	return &model.Show{
		ID:          uuid.New().String(),
		ShowID:      showID,
		Type:        contentType,
		Title:       title,
		Director:    im.sanitizer.Sanitize(columns.get(record, "director")),
		Cast:        im.sanitizer.SanitizeAll(SplitList(columns.get(record, "cast"))),
		Country:     im.sanitizer.Sanitize(columns.get(record, "country")),
		DateAdded:   ParseDateAdded(columns.get(record, "date_added")),
		ReleaseYear: parseYear(columns.get(record, "release_year")),
		Rating:      im.sanitizer.Sanitize(columns.get(record, "rating")),
		Duration:    im.sanitizer.Sanitize(columns.get(record, "duration")),
		ListedIn:    im.sanitizer.SanitizeAll(SplitList(columns.get(record, "listed_in"))),
		Description: im.sanitizer.Sanitize(columns.get(record, "description")),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, ""
}

// SplitList はカンマ区切りの値を分割し、前後の空白を除去する。空要素は除く。
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseDateAdded はdate_added列を日付として解釈する。空や不正な値の場合はnilを返す。
func ParseDateAdded(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateAddedLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseYear(s string) int {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year <= 0 {
		return 0
	}
	return year
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
