package quiz

import (
	"fmt"
	"slices"

	"github.com/wolfman30/cleaning-quiz-platform/internal/pricing"
)

// StepID identifies a quiz step; ids are stable across sessions.
type StepID string

const (
	StepType     StepID = "type"
	StepArea     StepID = "area"
	StepRooms    StepID = "rooms"
	StepExtras   StepID = "extras"
	StepUrgency  StepID = "urgency"
	StepContacts StepID = "contacts"
)

// InputShape tells the client which control to render and the controller
// which validators guard the step.
type InputShape string

const (
	ShapeSingleChoice InputShape = "single_choice"
	ShapeNumeric      InputShape = "numeric"
	ShapeNumericPair  InputShape = "numeric_pair"
	ShapeMultiChoice  InputShape = "multi_choice"
	ShapeContactPair  InputShape = "contact_pair"
)

// Urgency is how soon the customer needs the cleaning.
type Urgency string

const (
	UrgencyToday    Urgency = "today"
	UrgencyTomorrow Urgency = "tomorrow"
	UrgencyThisWeek Urgency = "this_week"
	UrgencyFlexible Urgency = "flexible"
)

// Extra service keys.
const (
	ExtraWindows   = "windows"
	ExtraBalcony   = "balcony"
	ExtraFridge    = "fridge"
	ExtraOven      = "oven"
	ExtraMicrowave = "microwave"
	ExtraCabinets  = "cabinets"
	ExtraIroning   = "ironing"
)

// OtherValue is the option value that switches a step to its free-text input.
const OtherValue = "other"

// Option is one selectable answer.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// StepDefinition is an immutable catalog entry.
type StepDefinition struct {
	ID         StepID                `json:"id"`
	Title      string                `json:"title"`
	Subtitle   string                `json:"subtitle,omitempty"`
	Shape      InputShape            `json:"shape"`
	Options    []Option              `json:"options,omitempty"`
	AllowOther bool                  `json:"allowOther,omitempty"`
	SkipFor    []pricing.ServiceType `json:"skipFor,omitempty"`
}

// SkippedFor reports whether the step is omitted for the given service.
func (d StepDefinition) SkippedFor(service ServiceSelection) bool {
	if !service.Answered() || service.IsCustom() {
		return false
	}
	return slices.Contains(d.SkipFor, service.Type())
}

// OptionValues lists the enumerated values of the step.
func (d StepDefinition) OptionValues() []string {
	values := make([]string, 0, len(d.Options))
	for _, o := range d.Options {
		values = append(values, o.Value)
	}
	return values
}

var defaultSteps = []StepDefinition{
	{
		ID:       StepType,
		Title:    "Какая уборка вам нужна?",
		Subtitle: "Выберите тип помещения или услуги",
		Shape:    ShapeSingleChoice,
		Options: []Option{
			{Value: string(pricing.ServiceApartment), Label: "Квартира"},
			{Value: string(pricing.ServiceHouse), Label: "Частный дом"},
			{Value: string(pricing.ServiceOffice), Label: "Офис"},
			{Value: string(pricing.ServiceAfterRepair), Label: "После ремонта"},
			{Value: string(pricing.ServiceWindow), Label: "Только мойка окон"},
		},
		AllowOther: true,
	},
	{
		ID:       StepArea,
		Title:    "Какая площадь помещения?",
		Subtitle: "Укажите площадь в квадратных метрах",
		Shape:    ShapeNumeric,
	},
	{
		ID:       StepRooms,
		Title:    "Сколько комнат и санузлов?",
		Subtitle: "Это поможет точнее рассчитать время работы",
		Shape:    ShapeNumericPair,
		SkipFor:  []pricing.ServiceType{pricing.ServiceWindow},
	},
	{
		ID:       StepExtras,
		Title:    "Нужны дополнительные услуги?",
		Subtitle: "Можно выбрать несколько вариантов или пропустить",
		Shape:    ShapeMultiChoice,
		Options: []Option{
			{Value: ExtraWindows, Label: "Мойка окон"},
			{Value: ExtraBalcony, Label: "Уборка балкона"},
			{Value: ExtraFridge, Label: "Холодильник внутри"},
			{Value: ExtraOven, Label: "Духовой шкаф"},
			{Value: ExtraMicrowave, Label: "Микроволновая печь"},
			{Value: ExtraCabinets, Label: "Кухонные шкафы внутри"},
			{Value: ExtraIroning, Label: "Глажка белья"},
		},
		AllowOther: true,
		SkipFor:    []pricing.ServiceType{pricing.ServiceWindow},
	},
	{
		ID:    StepUrgency,
		Title: "Когда нужна уборка?",
		Shape: ShapeSingleChoice,
		Options: []Option{
			{Value: string(UrgencyToday), Label: "Сегодня"},
			{Value: string(UrgencyTomorrow), Label: "Завтра"},
			{Value: string(UrgencyThisWeek), Label: "На этой неделе"},
			{Value: string(UrgencyFlexible), Label: "Дата не важна"},
		},
	},
	{
		ID:       StepContacts,
		Title:    "Куда отправить расчёт?",
		Subtitle: "Менеджер перезвонит и уточнит детали. Расчёт предварительный",
		Shape:    ShapeContactPair,
	},
}

// Catalog is the static ordered list of steps. Its order is the default order.
type Catalog struct {
	steps []StepDefinition
}

// DefaultCatalog returns the production step catalog.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(defaultSteps...)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog builds a catalog; step ids must be unique and the list non-empty.
func NewCatalog(steps ...StepDefinition) (Catalog, error) {
	if len(steps) == 0 {
		return Catalog{}, fmt.Errorf("quiz: catalog must contain at least one step")
	}
	seen := make(map[StepID]struct{}, len(steps))
	for _, s := range steps {
		if _, dup := seen[s.ID]; dup {
			return Catalog{}, fmt.Errorf("quiz: duplicate step id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return Catalog{steps: slices.Clone(steps)}, nil
}

// Steps returns a copy of the catalog entries.
func (c Catalog) Steps() []StepDefinition {
	return slices.Clone(c.steps)
}

// Step looks a definition up by id.
func (c Catalog) Step(id StepID) (StepDefinition, bool) {
	if i := c.Position(id); i >= 0 {
		return c.steps[i], true
	}
	return StepDefinition{}, false
}

// Position is the catalog index of id, or -1.
func (c Catalog) Position(id StepID) int {
	return slices.IndexFunc(c.steps, func(s StepDefinition) bool { return s.ID == id })
}

// Effective applies skip rules for service and returns the ordered step ids.
func (c Catalog) Effective(service ServiceSelection) []StepID {
	ids := make([]StepID, 0, len(c.steps))
	for _, s := range c.steps {
		if s.SkippedFor(service) {
			continue
		}
		ids = append(ids, s.ID)
	}
	return ids
}

// ExtraKeys lists the enumerated extras offered by the catalog.
func (c Catalog) ExtraKeys() []string {
	if d, ok := c.Step(StepExtras); ok {
		return d.OptionValues()
	}
	return nil
}

// Urgencies lists the urgency values offered by the catalog.
func (c Catalog) Urgencies() []string {
	if d, ok := c.Step(StepUrgency); ok {
		return d.OptionValues()
	}
	return nil
}

// OptionLabel returns the display label of value on step, falling back to the
// raw value.
func (c Catalog) OptionLabel(step StepID, value string) string {
	d, ok := c.Step(step)
	if !ok {
		return value
	}
	for _, o := range d.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
