package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ProductRow is one catalog line. Nil or empty fields were absent from the
// sheet and leave the stored product untouched on update.
type ProductRow struct {
	Line            int
	Code            string
	Name            string
	Category        string
	Unit            string
	Description     *string
	PiecesPerRoll   *int
	PurchasePrice   *float64
	SalePrice       *float64
	SeriesNumbers   []int64
	SeriesInventory []int64
	Colors          []string
	ColorInventory  []float64
}

func (r ProductRow) HasSeries() bool { return len(r.SeriesNumbers) > 0 }

func (r ProductRow) HasColors() bool { return len(r.Colors) > 0 }

var headerAliases = map[string]string{
	"code":             "code",
	"product code":     "code",
	"کد":               "code",
	"کد محصول":         "code",
	"کد کالا":          "code",
	"name":             "name",
	"product name":     "name",
	"product":          "name",
	"نام":              "name",
	"نام محصول":        "name",
	"نام کالا":         "name",
	"category":         "category",
	"دسته":             "category",
	"دسته بندی":        "category",
	"دسته‌بندی":        "category",
	"unit":             "unit",
	"واحد":             "unit",
	"description":      "description",
	"توضیحات":          "description",
	"pieces per roll":  "pieces_per_roll",
	"تعداد در رول":     "pieces_per_roll",
	"purchase price":   "purchase_price",
	"buy price":        "purchase_price",
	"قیمت خرید":        "purchase_price",
	"قيمت خريد":        "purchase_price",
	"sale price":       "sale_price",
	"sell price":       "sale_price",
	"قیمت فروش":        "sale_price",
	"قيمت فروش":        "sale_price",
	"series":           "series_numbers",
	"series numbers":   "series_numbers",
	"سری":              "series_numbers",
	"سری ها":           "series_numbers",
	"سری‌ها":           "series_numbers",
	"series inventory": "series_inventory",
	"موجودی سری":       "series_inventory",
	"colors":           "colors",
	"available colors": "colors",
	"رنگ":              "colors",
	"رنگ ها":           "colors",
	"رنگ‌ها":           "colors",
	"color inventory":  "color_inventory",
	"موجودی رنگ":       "color_inventory",
}

var (
	persianDigitsReplacer = strings.NewReplacer(
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
		"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	)
	arabicDigitsReplacer = strings.NewReplacer(
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	)
)

// ParseProductRows reads a catalog sheet (xlsx or csv, chosen by extension)
// whose first row is a header. Variant columns hold comma separated lists.
func ParseProductRows(fileName string, reader io.Reader) ([]ProductRow, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		rows, err = parseCSVRows(data)
	default:
		rows, err = parseExcelRows(data)
	}
	if err != nil {
		return nil, err
	}
	return parseProductTable(rows)
}

func parseProductTable(rows [][]string) ([]ProductRow, error) {
	colMap := mapColumns(rows[0])
	if _, ok := colMap["code"]; !ok {
		return nil, fmt.Errorf("missing required column: code")
	}

	result := make([]ProductRow, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		line := index + 1
		code := cleanText(readCell(cells, colMap["code"]))
		if code == "" {
			continue
		}
		row := ProductRow{
			Line:     line,
			Code:     code,
			Name:     readOptional(cells, colMap, "name"),
			Category: readOptional(cells, colMap, "category"),
			Unit:     readOptional(cells, colMap, "unit"),
		}
		if desc := readOptional(cells, colMap, "description"); desc != "" {
			row.Description = &desc
		}

		if raw := readOptional(cells, colMap, "pieces_per_roll"); raw != "" {
			value, err := parseInt(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d invalid pieces_per_roll: %w", line, err)
			}
			row.PiecesPerRoll = &value
		}
		if raw := readOptional(cells, colMap, "purchase_price"); raw != "" {
			value, err := parseFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d invalid purchase_price: %w", line, err)
			}
			row.PurchasePrice = &value
		}
		if raw := readOptional(cells, colMap, "sale_price"); raw != "" {
			value, err := parseFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d invalid sale_price: %w", line, err)
			}
			row.SalePrice = &value
		}

		for _, value := range splitValues(readOptional(cells, colMap, "series_numbers")) {
			number, err := parseInt(value)
			if err != nil {
				return nil, fmt.Errorf("row %d invalid series number %q: %w", line, value, err)
			}
			row.SeriesNumbers = append(row.SeriesNumbers, int64(number))
		}
		for _, value := range splitValues(readOptional(cells, colMap, "series_inventory")) {
			count, err := parseInt(value)
			if err != nil {
				return nil, fmt.Errorf("row %d invalid series inventory %q: %w", line, value, err)
			}
			row.SeriesInventory = append(row.SeriesInventory, int64(count))
		}
		row.Colors = splitValues(readOptional(cells, colMap, "colors"))
		for _, value := range splitValues(readOptional(cells, colMap, "color_inventory")) {
			qty, err := parseFloat(value)
			if err != nil {
				return nil, fmt.Errorf("row %d invalid color inventory %q: %w", line, value, err)
			}
			row.ColorInventory = append(row.ColorInventory, qty)
		}

		if row.HasSeries() && row.HasColors() {
			return nil, fmt.Errorf("row %d lists both series and colors", line)
		}
		if row.HasSeries() && len(row.SeriesInventory) == 0 {
			row.SeriesInventory = make([]int64, len(row.SeriesNumbers))
		}
		if row.HasColors() && len(row.ColorInventory) == 0 {
			row.ColorInventory = make([]float64, len(row.Colors))
		}
		result = append(result, row)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("file has no valid data rows")
	}
	return result, nil
}

func parseCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}
	return rows, nil
}

func parseExcelRows(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}
	return rows, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		normalized := normalizeHeader(col)
		if normalized == "" {
			continue
		}
		canonical, ok := headerAliases[normalized]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	return strings.Join(strings.Fields(value), " ")
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func readOptional(cells []string, colMap map[string]int, key string) string {
	idx, ok := colMap[key]
	if !ok {
		return ""
	}
	return cleanText(readCell(cells, idx))
}

func cleanText(value string) string {
	return strings.Join(strings.Fields(strings.TrimPrefix(value, "\ufeff")), " ")
}

// splitValues splits a list cell on Latin or Persian commas.
func splitValues(raw string) []string {
	raw = cleanText(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '،' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = cleanText(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeNumericValue(raw string) string {
	value := strings.TrimSpace(raw)
	value = persianDigitsReplacer.Replace(value)
	value = arabicDigitsReplacer.Replace(value)
	value = strings.ReplaceAll(value, "٬", "")
	value = strings.ReplaceAll(value, ",", "")
	value = strings.ReplaceAll(value, "٫", ".")
	return strings.TrimSpace(value)
}

func parseInt(raw string) (int, error) {
	value := normalizeNumericValue(raw)
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}
	asFloat, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.Mod(asFloat, 1) != 0 {
		return 0, fmt.Errorf("must be an integer")
	}
	return int(asFloat), nil
}

func parseFloat(raw string) (float64, error) {
	value := normalizeNumericValue(raw)
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	return parsed, nil
}
