package roas

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/roasapp-backend/pkg/enums"
)

// PreambleLines is how many report-summary lines precede the table in a marketplace export.
const PreambleLines = 11

// ExportColumns is the fixed 26-column layout of the marketplace ads export.
var ExportColumns = []string{
	ColumnOrder, ColumnAdName, ColumnStatus, ColumnProductCode, "Mode Bidding", "Penempatan Iklan", "Tanggal Mulai",
	"Tanggal Selesai", "Dilihat", "Jumlah Klik", ColumnCTR, "Konversi", "Konversi Langsung",
	"Tingkat konversi", "Tingkat Konversi Langsung", "Biaya per Konversi", "Biaya per Konversi Langsung",
	ColumnUnitsSold, "Terjual Langsung", ColumnRevenue, "Penjualan Langsung (GMV Langsung)",
	ColumnSpend, "Efektifitas Iklan", "Efektivitas Langsung", "Persentase Biaya Iklan terhadap Penjualan dari Iklan (ACOS)",
	"Persentase Biaya Iklan terhadap Penjualan dari Iklan Langsung (ACOS Langsung)",
}

// RequiredColumns must be present for a batch to be analyzed at all.
var RequiredColumns = []string{
	ColumnAdName, ColumnProductCode, ColumnSpend, ColumnRevenue, ColumnCTR, ColumnStatus, ColumnUnitsSold,
}

var ErrUndecodable = errors.New("export is not a comma or semicolon separated file")

var utf8BOM = []byte("\xef\xbb\xbf")

// MissingColumnsError reports a structurally invalid dataset.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// ParseExport reads a marketplace ads export. It skips the report preamble, then maps cells by the
// header row when one is present, or positionally onto ExportColumns when the table is headerless.
// The comma separator is tried first; semicolon is used when commas do not split out enough columns.
func ParseExport(r io.Reader) ([]map[string]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: not UTF-8 text", ErrUndecodable)
	}
	body := skipLines(content, PreambleLines)
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	records, err := readDelimited(body, ',')
	if err != nil || widest(records) < len(RequiredColumns) {
		records, err = readDelimited(body, ';')
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := ExportColumns
	if isHeaderRow(records[0]) {
		header = trimAll(records[0])
		records = records[1:]
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		if blank(record) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func skipLines(content []byte, n int) []byte {
	reader := bufio.NewReader(bytes.NewReader(content))
	consumed := 0
	for i := 0; i < n; i++ {
		line, err := reader.ReadBytes('\n')
		consumed += len(line)
		if err != nil {
			break
		}
	}
	return content[consumed:]
}

func readDelimited(body []byte, sep rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func widest(records [][]string) int {
	n := 0
	for _, record := range records {
		n = max(n, len(record))
	}
	return n
}

func isHeaderRow(record []string) bool {
	for _, cell := range record {
		switch strings.TrimSpace(cell) {
		case ColumnProductCode, ColumnAdName, ColumnSpend:
			return true
		}
	}
	return false
}

func missingColumns(header []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, name := range header {
		present[name] = struct{}{}
	}
	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := present[required]; !ok {
			missing = append(missing, required)
		}
	}
	return missing
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))
	}
	return out
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// BatchRow is one analyzed product with its ranking keys.
type BatchRow struct {
	Record         ProductRecord  `json:"record"`
	Recommendation Recommendation `json:"recommendation"`
	TierScore      int            `json:"tier_score"`
	TieBreakScore  float64        `json:"tie_break_score"`
}

// BatchResult is a ranked batch plus the informational message shown alongside it.
type BatchResult struct {
	Rows       []BatchRow `json:"rows"`
	Message    string     `json:"message"`
	AnalyzedAt time.Time  `json:"analyzed_at"`
}

// Find locates a product by its identifier.
func (b *BatchResult) Find(productID string) (BatchRow, bool) {
	if b == nil {
		return BatchRow{}, false
	}
	id := strings.TrimSpace(productID)
	for _, row := range b.Rows {
		if row.Record.ProductID == id {
			return row, true
		}
	}
	return BatchRow{}, false
}

// TierScore orders recommendation tags for ranking.
func TierScore(tag enums.RecommendationTag) int {
	switch tag {
	case enums.RecommendationTagExcellent:
		return 3
	case enums.RecommendationTagGood, enums.RecommendationTagAcceptable:
		return 2
	case enums.RecommendationTagLosing:
		return 1
	}
	return 0
}

// TieBreakScore prefers higher ROAS; among rows without a positive ROAS, lower spend ranks better.
func TieBreakScore(rec ProductRecord) float64 {
	if rec.ActualRatio > 0 {
		return rec.ActualRatio
	}
	return -rec.Spend
}

// Analyzer applies the engine to every running row of a batch.
type Analyzer struct {
	engine *Engine
	now    func() time.Time
}

func NewAnalyzer(engine *Engine) *Analyzer {
	return &Analyzer{engine: engine, now: time.Now}
}

// Analyze filters running rows, recommends each with pure defaults and ranks them by
// (tier, tie-break) descending. Missing required columns fail the whole batch.
func (a *Analyzer) Analyze(rows []map[string]string) (BatchResult, error) {
	result := BatchResult{Rows: []BatchRow{}, AnalyzedAt: a.now().UTC()}
	if len(rows) > 0 {
		header := make([]string, 0, len(rows[0]))
		for name := range rows[0] {
			header = append(header, name)
		}
		if missing := missingColumns(header); len(missing) > 0 {
			return BatchResult{}, &MissingColumnsError{Columns: missing}
		}
	}

	for _, raw := range rows {
		if strings.TrimSpace(raw[ColumnStatus]) != StatusRunning {
			continue
		}
		rec := NormalizeRow(raw)
		reco := a.engine.Recommend(rec, nil, 0)
		result.Rows = append(result.Rows, BatchRow{
			Record:         rec,
			Recommendation: reco,
			TierScore:      TierScore(reco.Tag),
			TieBreakScore:  TieBreakScore(rec),
		})
	}

	if len(result.Rows) == 0 {
		result.Message = fmt.Sprintf("No %q ads found in the export. Make sure the file contains running ads.", StatusRunning)
		return result, nil
	}

	slices.SortStableFunc(result.Rows, func(x, y BatchRow) int {
		if c := cmp.Compare(y.TierScore, x.TierScore); c != 0 {
			return c
		}
		return cmp.Compare(y.TieBreakScore, x.TieBreakScore)
	})
	result.Message = fmt.Sprintf("Analysis complete. %d running ads ranked by ad performance.", len(result.Rows))
	return result, nil
}
