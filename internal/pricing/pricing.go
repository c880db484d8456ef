// Package pricing turns normalized estimate parameters into a priced,
// itemized quote. The engine is pure: no I/O, no hidden state.
package pricing

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// ServiceType is the closed set of cleaning services the engine prices.
type ServiceType string

const (
	ServiceApartment   ServiceType = "apartment"
	ServiceHouse       ServiceType = "house"
	ServiceOffice      ServiceType = "office"
	ServiceAfterRepair ServiceType = "after_repair"
	ServiceWindow      ServiceType = "window"
	ServiceOther       ServiceType = "other"
)

// ServiceTypes lists the enumerated services in display order.
var ServiceTypes = []ServiceType{
	ServiceApartment,
	ServiceHouse,
	ServiceOffice,
	ServiceAfterRepair,
	ServiceWindow,
}

// ParseServiceType maps raw input onto the enum; unknown values become ServiceOther.
func ParseServiceType(raw string) ServiceType {
	switch st := ServiceType(strings.ToLower(strings.TrimSpace(raw))); st {
	case ServiceApartment, ServiceHouse, ServiceOffice, ServiceAfterRepair, ServiceWindow:
		return st
	default:
		return ServiceOther
	}
}

// Valid reports whether st is one of the enumerated service types.
func (st ServiceType) Valid() bool {
	return slices.Contains(ServiceTypes, st)
}

// Params is the engine input.
type Params struct {
	ServiceType ServiceType `json:"serviceType"`
	AreaSqm     float64     `json:"areaSqm"`
	Windows     *int        `json:"windows,omitempty"`
	HasBalcony  bool        `json:"hasBalcony,omitempty"`
}

// LineItem is one named, priced component of a quote.
type LineItem struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// Result is a priced quote. TotalPrice is never below the minimum order.
type Result struct {
	BasePrice  int        `json:"basePrice"`
	TotalPrice int        `json:"totalPrice"`
	Breakdown  []LineItem `json:"breakdown"`
	Currency   string     `json:"currency"`
}

// RateTable holds every constant the engine prices with.
type RateTable struct {
	Currency       string
	MinimumOrder   int
	PerSqm         map[ServiceType]int
	PerWindow      int
	Balcony        int
	SqmPerWindow   float64
	WindowServices map[ServiceType]bool
	BalconyService map[ServiceType]bool
}

const (
	Currency     = "RUB"
	MinimumOrder = 2500
	PerWindow    = 400
	Balcony      = 1500
)

// Input ceilings. Larger values are priced as the ceiling so amounts stay
// non-negative and monotonic whatever the caller passes.
const (
	MaxAreaSqm = 100000
	MaxWindows = 10000

	maxAmount = math.MaxInt32
)

// DefaultRates returns the production rate table.
func DefaultRates() RateTable {
	return RateTable{
		Currency:     Currency,
		MinimumOrder: MinimumOrder,
		PerSqm: map[ServiceType]int{
			ServiceApartment:   100,
			ServiceHouse:       120,
			ServiceOffice:      90,
			ServiceAfterRepair: 250,
		},
		PerWindow:    PerWindow,
		Balcony:      Balcony,
		SqmPerWindow: 15,
		WindowServices: map[ServiceType]bool{
			ServiceApartment: true,
			ServiceHouse:     true,
			ServiceOffice:    true,
		},
		BalconyService: map[ServiceType]bool{
			ServiceApartment: true,
			ServiceHouse:     true,
		},
	}
}

// Labels of the optional line items.
const (
	LabelWindows = "Мойка окон"
	LabelBalcony = "Балкон"
)

var labels = map[ServiceType]string{
	ServiceApartment:   "Уборка квартиры",
	ServiceHouse:       "Уборка дома",
	ServiceOffice:      "Уборка офиса",
	ServiceAfterRepair: "Уборка после ремонта",
	ServiceOther:       "Уборка",
}

// Engine prices estimates against a fixed rate table.
type Engine struct {
	rates RateTable
}

// NewEngine creates an engine; a zero table falls back to DefaultRates.
func NewEngine(rates RateTable) *Engine {
	if rates.PerSqm == nil {
		rates = DefaultRates()
	}
	if rates.SqmPerWindow <= 0 {
		rates.SqmPerWindow = 15
	}
	return &Engine{rates: rates}
}

var defaultEngine = NewEngine(DefaultRates())

// Calculate prices p with the default rate table.
func Calculate(p Params) Result {
	return defaultEngine.Calculate(p)
}

// Rates returns the table the engine uses.
func (e *Engine) Rates() RateTable {
	return e.rates
}

// Calculate prices p. Negative area and window counts are treated as zero;
// values above MaxAreaSqm and MaxWindows are clamped.
func (e *Engine) Calculate(p Params) Result {
	area := math.Min(math.Max(0, p.AreaSqm), MaxAreaSqm)
	if math.IsNaN(area) {
		area = 0
	}
	st := ParseServiceType(string(p.ServiceType))

	var items []LineItem
	switch st {
	case ServiceWindow:
		n := e.windowCount(p.Windows, area)
		items = append(items, windowLine(n, e.rates.PerWindow))
	default:
		rateType := st
		if _, ok := e.rates.PerSqm[st]; !ok {
			rateType = ServiceApartment
		}
		items = append(items, LineItem{
			Label:  fmt.Sprintf("%s, %s м²", labels[st], formatArea(area)),
			Amount: saturate(math.Ceil(area * float64(e.rates.PerSqm[rateType]))),
		})
		if e.rates.WindowServices[st] && p.Windows != nil && *p.Windows > 0 {
			items = append(items, windowLine(min(*p.Windows, MaxWindows), e.rates.PerWindow))
		}
		if e.rates.BalconyService[st] && p.HasBalcony {
			items = append(items, LineItem{Label: LabelBalcony, Amount: e.rates.Balcony})
		}
	}

	total := 0
	for _, item := range items {
		total = min(total+item.Amount, maxAmount)
	}
	if total < e.rates.MinimumOrder {
		total = e.rates.MinimumOrder
	}

	return Result{
		BasePrice:  items[0].Amount,
		TotalPrice: total,
		Breakdown:  items,
		Currency:   e.rates.Currency,
	}
}

// windowCount uses the explicit count when given, else one window per
// SqmPerWindow square meters, never fewer than one.
func (e *Engine) windowCount(explicit *int, area float64) int {
	if explicit != nil && *explicit > 0 {
		return min(*explicit, MaxWindows)
	}
	n := int(math.Ceil(area / e.rates.SqmPerWindow))
	return max(1, min(n, MaxWindows))
}

func windowLine(n, rate int) LineItem {
	return LineItem{
		Label:  fmt.Sprintf("%s ×%d", LabelWindows, n),
		Amount: saturate(float64(n) * float64(rate)),
	}
}

// saturate converts a non-negative amount to int, capped at maxAmount.
func saturate(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= maxAmount:
		return maxAmount
	default:
		return int(v)
	}
}

func formatArea(area float64) string {
	if area == math.Trunc(area) {
		return fmt.Sprintf("%.0f", area)
	}
	return fmt.Sprintf("%.1f", area)
}
