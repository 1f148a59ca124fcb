package domain

import (
	"sort"
	"strings"
)

type VariantMode string

const (
	ModeSeries VariantMode = "series"
	ModeColor  VariantMode = "color"
)

// ProductVariant is the closed set of product shapes: SeriesVariant or
// ColorVariant. Values are immutable; Hold and Release return updated copies.
type ProductVariant interface {
	Mode() VariantMode
	Validate(sel Selection, quantity float64) error
	Hold(sel Selection, quantity float64) (ProductVariant, error)
	Release(sel Selection, quantity float64) (ProductVariant, error)
	// Offers reports whether every entry sel names exists in this variant.
	Offers(sel Selection) bool
	Available() float64
	isVariant()
}

// Selection is what an order line asks for. Series repeats mean several
// units taken from the same series.
type Selection struct {
	SelectedSeries []int64 `json:"selected_series,omitempty"`
	SelectedColor  *string `json:"selected_color,omitempty"`
}

func (s Selection) Color() string {
	if s.SelectedColor == nil {
		return ""
	}
	return strings.TrimSpace(*s.SelectedColor)
}

func (s Selection) IsEmpty() bool {
	return len(s.SelectedSeries) == 0 && s.Color() == ""
}

type SeriesVariant struct {
	numbers   []int64
	inventory []int64
	index     map[int64]int
}

func NewSeriesVariant(numbers, inventory []int64) (SeriesVariant, error) {
	if len(numbers) != len(inventory) {
		return SeriesVariant{}, InvalidField("series_inventory", "must have the same length as series_numbers (%d != %d)", len(inventory), len(numbers))
	}
	index := make(map[int64]int, len(numbers))
	for i, number := range numbers {
		if _, dup := index[number]; dup {
			return SeriesVariant{}, InvalidField("series_numbers", "duplicate series number %d", number)
		}
		if inventory[i] < 0 {
			return SeriesVariant{}, InvalidField("series_inventory", "stock for series %d cannot be negative", number)
		}
		index[number] = i
	}
	return SeriesVariant{
		numbers:   append([]int64(nil), numbers...),
		inventory: append([]int64(nil), inventory...),
		index:     index,
	}, nil
}

func (SeriesVariant) Mode() VariantMode { return ModeSeries }
func (SeriesVariant) isVariant()        {}

func (v SeriesVariant) Numbers() []int64   { return append([]int64(nil), v.numbers...) }
func (v SeriesVariant) Inventory() []int64 { return append([]int64(nil), v.inventory...) }

func (v SeriesVariant) Stock(number int64) (int64, bool) {
	i, ok := v.index[number]
	if !ok {
		return 0, false
	}
	return v.inventory[i], true
}

func (v SeriesVariant) Available() float64 {
	var total int64
	for _, count := range v.inventory {
		total += count
	}
	return float64(total)
}

func (v SeriesVariant) Validate(sel Selection, _ float64) error {
	if len(sel.SelectedSeries) == 0 {
		return InvalidField("selected_series", "missing selection for product mode")
	}
	counts := countSeries(sel.SelectedSeries)
	for _, number := range sortedKeys(counts) {
		available, ok := v.Stock(number)
		if !ok {
			return &ValidationError{
				Field:   "selected_series",
				Message: "selection not offered",
				Details: map[string]any{"series": number},
			}
		}
		if requested := int64(counts[number]); requested > available {
			return &ValidationError{
				Field:   "selected_series",
				Message: "insufficient series stock",
				Details: map[string]any{"series": number, "available": available, "requested": requested},
			}
		}
	}
	return nil
}

func (v SeriesVariant) Hold(sel Selection, quantity float64) (ProductVariant, error) {
	if err := v.Validate(sel, quantity); err != nil {
		return v, err
	}
	next := v.clone()
	for number, count := range countSeries(sel.SelectedSeries) {
		next.inventory[next.index[number]] -= int64(count)
	}
	return next, nil
}

func (v SeriesVariant) Release(sel Selection, _ float64) (ProductVariant, error) {
	next := v.clone()
	for number, count := range countSeries(sel.SelectedSeries) {
		i, ok := next.index[number]
		if !ok {
			return v, &ValidationError{Field: "selected_series", Message: "selection not offered", Details: map[string]any{"series": number}}
		}
		next.inventory[i] += int64(count)
	}
	return next, nil
}

func (v SeriesVariant) Offers(sel Selection) bool {
	for _, number := range sel.SelectedSeries {
		if _, ok := v.index[number]; !ok {
			return false
		}
	}
	return true
}

// Adjust applies a signed stock change to one series. The result may not go
// below zero.
func (v SeriesVariant) Adjust(number int64, delta int64) (SeriesVariant, error) {
	i, ok := v.index[number]
	if !ok {
		return v, &ValidationError{Field: "selected_series", Message: "selection not offered", Details: map[string]any{"series": number}}
	}
	if v.inventory[i]+delta < 0 {
		return v, &ValidationError{
			Field:   "selected_series",
			Message: "insufficient series stock",
			Details: map[string]any{"series": number, "available": v.inventory[i], "requested": -delta},
		}
	}
	next := v.clone()
	next.inventory[i] += delta
	return next, nil
}

func (v SeriesVariant) clone() SeriesVariant {
	return SeriesVariant{
		numbers:   append([]int64(nil), v.numbers...),
		inventory: append([]int64(nil), v.inventory...),
		index:     v.index,
	}
}

type ColorVariant struct {
	names     []string
	inventory []float64
	index     map[string]int
}

func NewColorVariant(names []string, inventory []float64) (ColorVariant, error) {
	if len(names) != len(inventory) {
		return ColorVariant{}, InvalidField("color_inventory", "must have the same length as available_colors (%d != %d)", len(inventory), len(names))
	}
	index := make(map[string]int, len(names))
	cleaned := make([]string, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return ColorVariant{}, InvalidField("available_colors", "color name cannot be empty")
		}
		if _, dup := index[name]; dup {
			return ColorVariant{}, InvalidField("available_colors", "duplicate color %q", name)
		}
		if inventory[i] < 0 {
			return ColorVariant{}, InvalidField("color_inventory", "stock for color %q cannot be negative", name)
		}
		index[name] = i
		cleaned[i] = name
	}
	return ColorVariant{
		names:     cleaned,
		inventory: append([]float64(nil), inventory...),
		index:     index,
	}, nil
}

func (ColorVariant) Mode() VariantMode { return ModeColor }
func (ColorVariant) isVariant()        {}

func (v ColorVariant) Names() []string      { return append([]string(nil), v.names...) }
func (v ColorVariant) Inventory() []float64 { return append([]float64(nil), v.inventory...) }

func (v ColorVariant) Stock(name string) (float64, bool) {
	i, ok := v.index[strings.TrimSpace(name)]
	if !ok {
		return 0, false
	}
	return v.inventory[i], true
}

func (v ColorVariant) Available() float64 {
	var total float64
	for _, qty := range v.inventory {
		total += qty
	}
	return total
}

func (v ColorVariant) Validate(sel Selection, quantity float64) error {
	color := sel.Color()
	if color == "" {
		return InvalidField("selected_color", "missing selection for product mode")
	}
	available, ok := v.Stock(color)
	if !ok {
		return &ValidationError{
			Field:   "selected_color",
			Message: "selection not offered",
			Details: map[string]any{"color": color},
		}
	}
	if quantity > available {
		return &ValidationError{
			Field:   "selected_color",
			Message: "insufficient color stock",
			Details: map[string]any{"color": color, "available": available, "requested": quantity},
		}
	}
	return nil
}

func (v ColorVariant) Hold(sel Selection, quantity float64) (ProductVariant, error) {
	if err := v.Validate(sel, quantity); err != nil {
		return v, err
	}
	return v.Adjust(sel.Color(), -quantity)
}

func (v ColorVariant) Release(sel Selection, quantity float64) (ProductVariant, error) {
	return v.Adjust(sel.Color(), quantity)
}

func (v ColorVariant) Offers(sel Selection) bool {
	if sel.Color() == "" {
		return true
	}
	_, ok := v.index[sel.Color()]
	return ok
}

func (v ColorVariant) Adjust(name string, delta float64) (ColorVariant, error) {
	name = strings.TrimSpace(name)
	i, ok := v.index[name]
	if !ok {
		return v, &ValidationError{Field: "selected_color", Message: "selection not offered", Details: map[string]any{"color": name}}
	}
	if v.inventory[i]+delta < 0 {
		return v, &ValidationError{
			Field:   "selected_color",
			Message: "insufficient color stock",
			Details: map[string]any{"color": name, "available": v.inventory[i], "requested": -delta},
		}
	}
	next := ColorVariant{
		names:     append([]string(nil), v.names...),
		inventory: append([]float64(nil), v.inventory...),
		index:     v.index,
	}
	next.inventory[i] += delta
	return next, nil
}

// VariantFields is the flat storage and wire shape of a variant.
type VariantFields struct {
	IsSeries        bool      `json:"is_series"`
	SeriesNumbers   []int64   `json:"series_numbers,omitempty"`
	SeriesInventory []int64   `json:"series_inventory,omitempty"`
	AvailableColors []string  `json:"available_colors,omitempty"`
	ColorInventory  []float64 `json:"color_inventory,omitempty"`
}

func FlattenVariant(v ProductVariant) VariantFields {
	switch typed := v.(type) {
	case SeriesVariant:
		return VariantFields{IsSeries: true, SeriesNumbers: typed.Numbers(), SeriesInventory: typed.Inventory()}
	case ColorVariant:
		return VariantFields{AvailableColors: typed.Names(), ColorInventory: typed.Inventory()}
	}
	return VariantFields{}
}

func (f VariantFields) Build() (ProductVariant, error) {
	if f.IsSeries {
		return NewSeriesVariant(f.SeriesNumbers, f.SeriesInventory)
	}
	return NewColorVariant(f.AvailableColors, f.ColorInventory)
}

func ValidateSelection(p Product, sel Selection, quantity float64) error {
	if p.Variant == nil {
		return InvalidField("product_id", "product %s has no variant inventory", p.Code)
	}
	return p.Variant.Validate(sel, quantity)
}

// CheckHeldSelections rejects a replacement variant that no longer offers an
// entry still held by a reserved invoice line.
func CheckHeldSelections(v ProductVariant, held []Selection) error {
	for _, sel := range held {
		if sel.IsEmpty() || v.Offers(sel) {
			continue
		}
		field, entry := "available_colors", any(sel.Color())
		if len(sel.SelectedSeries) > 0 {
			field, entry = "series_numbers", sel.SelectedSeries
		}
		return &ValidationError{
			Field:   field,
			Message: "entry is still reserved by an invoice",
			Details: map[string]any{"selection": entry},
		}
	}
	return nil
}

type SeriesShare struct {
	SeriesNumber int64   `json:"series_number"`
	Count        int     `json:"count"`
	Quantity     float64 `json:"quantity"`
}

type ColorShare struct {
	Color    string  `json:"color"`
	Quantity float64 `json:"quantity"`
}

type OrderDetail struct {
	ProductID     int64         `json:"product_id"`
	ProductCode   string        `json:"product_code,omitempty"`
	ProductName   string        `json:"product_name,omitempty"`
	Unit          string        `json:"unit"`
	IsSeries      bool          `json:"is_series"`
	TotalQuantity float64       `json:"total_quantity"`
	Price         float64       `json:"price"`
	TotalPrice    float64       `json:"total_price"`
	Series        []SeriesShare `json:"series_breakdown,omitempty"`
	Color         *ColorShare   `json:"color_breakdown,omitempty"`
}

// SeriesBreakdown spreads quantity evenly over every entry of selected, so a
// series that repeats gets a proportionally larger share. Result is sorted
// by series number.
func SeriesBreakdown(selected []int64, quantity float64) []SeriesShare {
	if len(selected) == 0 {
		return nil
	}
	perUnit := quantity / float64(len(selected))
	counts := countSeries(selected)
	shares := make([]SeriesShare, 0, len(counts))
	for _, number := range sortedKeys(counts) {
		shares = append(shares, SeriesShare{
			SeriesNumber: number,
			Count:        counts[number],
			Quantity:     perUnit * float64(counts[number]),
		})
	}
	return shares
}

func BuildOrderDetail(item CartItem) OrderDetail {
	detail := OrderDetail{
		ProductID:     item.ProductID,
		Unit:          item.Unit,
		TotalQuantity: item.Quantity,
		Price:         item.Price,
		TotalPrice:    item.TotalPrice(),
	}
	if item.Product != nil {
		detail.ProductCode = item.Product.Code
		detail.ProductName = item.Product.Name
		detail.IsSeries = item.Product.IsSeries()
	} else {
		detail.IsSeries = len(item.SelectedSeries) > 0
	}
	if detail.IsSeries {
		detail.Series = SeriesBreakdown(item.SelectedSeries, item.Quantity)
	} else if color := item.Color(); color != "" {
		detail.Color = &ColorShare{Color: color, Quantity: item.Quantity}
	}
	return detail
}

func BuildOrderDetails(items []CartItem) []OrderDetail {
	details := make([]OrderDetail, 0, len(items))
	for _, item := range items {
		details = append(details, BuildOrderDetail(item))
	}
	return details
}

func countSeries(selected []int64) map[int64]int {
	counts := make(map[int64]int, len(selected))
	for _, number := range selected {
		counts[number]++
	}
	return counts
}

func sortedKeys(counts map[int64]int) []int64 {
	keys := make([]int64, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
