package quiz

import (
	"maps"
	"slices"
	"time"

	"github.com/wolfman30/cleaning-quiz-platform/internal/pricing"
)

type selectionKind uint8

const (
	selectionNone selectionKind = iota
	selectionChoice
	selectionCustom
)

// ServiceSelection is either an enumerated service type or a free-text label,
// never both.
type ServiceSelection struct {
	kind  selectionKind
	typ   pricing.ServiceType
	label string
}

// ChooseService selects an enumerated service type.
func ChooseService(st pricing.ServiceType) ServiceSelection {
	return ServiceSelection{kind: selectionChoice, typ: st}
}

// CustomService records a free-text service the catalog does not list.
func CustomService(label string) ServiceSelection {
	return ServiceSelection{kind: selectionCustom, label: label}
}

func (s ServiceSelection) Answered() bool { return s.kind != selectionNone }
func (s ServiceSelection) IsCustom() bool { return s.kind == selectionCustom }

// Type is the enumerated value; empty for custom or unanswered selections.
func (s ServiceSelection) Type() pricing.ServiceType { return s.typ }

// Label is the free-text value; empty unless IsCustom.
func (s ServiceSelection) Label() string { return s.label }

// PricingType is the type the pricing engine should use.
func (s ServiceSelection) PricingType() pricing.ServiceType {
	switch s.kind {
	case selectionChoice:
		return s.typ
	case selectionCustom:
		return pricing.ServiceOther
	default:
		return pricing.ServiceApartment
	}
}

// ExtrasSelection is either a set of enumerated extra services or a single
// free-text label.
type ExtrasSelection struct {
	kind  selectionKind
	keys  map[string]bool
	label string
}

// ChooseExtras selects enumerated extras. An empty set is a valid answer.
func ChooseExtras(keys map[string]bool) ExtrasSelection {
	selected := make(map[string]bool, len(keys))
	for k, v := range keys {
		if v {
			selected[k] = true
		}
	}
	return ExtrasSelection{kind: selectionChoice, keys: selected}
}

// CustomExtras records a free-text extras request.
func CustomExtras(label string) ExtrasSelection {
	return ExtrasSelection{kind: selectionCustom, label: label}
}

func (e ExtrasSelection) Answered() bool { return e.kind != selectionNone }
func (e ExtrasSelection) IsCustom() bool { return e.kind == selectionCustom }
func (e ExtrasSelection) Label() string  { return e.label }

// Has reports whether the enumerated extra key is selected.
func (e ExtrasSelection) Has(key string) bool {
	return e.keys[key]
}

// Keys returns a copy of the selected extras.
func (e ExtrasSelection) Keys() map[string]bool {
	if e.kind != selectionChoice {
		return nil
	}
	return maps.Clone(e.keys)
}

// Sorted returns the selected extra keys in lexical order.
func (e ExtrasSelection) Sorted() []string {
	return slices.Sorted(maps.Keys(e.keys))
}

// AnswerSet is the accumulated, possibly partial, quiz state. Zero values mean
// "not answered yet".
type AnswerSet struct {
	Service   ServiceSelection
	Area      int
	Rooms     int
	Bathrooms int
	Extras    ExtrasSelection
	Urgency   Urgency
	DesiredAt time.Time
	Name      string
	Phone     string
	Consent   bool
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Service   *ServiceSelection
	Area      *int
	Rooms     *int
	Bathrooms *int
	Extras    *ExtrasSelection
	Urgency   *Urgency
	DesiredAt *time.Time
	Name      *string
	Phone     *string
	Consent   *bool
}

// Apply returns a shallow merge of p onto a.
func (a AnswerSet) Apply(p Patch) AnswerSet {
	if p.Service != nil {
		a.Service = *p.Service
	}
	if p.Area != nil {
		a.Area = *p.Area
	}
	if p.Rooms != nil {
		a.Rooms = *p.Rooms
	}
	if p.Bathrooms != nil {
		a.Bathrooms = *p.Bathrooms
	}
	if p.Extras != nil {
		a.Extras = *p.Extras
	}
	if p.Urgency != nil {
		a.Urgency = *p.Urgency
	}
	if p.DesiredAt != nil {
		a.DesiredAt = *p.DesiredAt
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.Consent != nil {
		a.Consent = *p.Consent
	}
	return a
}

// Progress is the PII-free projection persisted between visits. It carries no
// name, phone, consent or visit date.
type Progress struct {
	ServiceType  string          `json:"serviceType,omitempty"`
	ServiceOther string          `json:"serviceOther,omitempty"`
	Area         int             `json:"area,omitempty"`
	Rooms        int             `json:"rooms,omitempty"`
	Bathrooms    int             `json:"bathrooms,omitempty"`
	Extras       map[string]bool `json:"extras"`
	ExtrasOther  string          `json:"extrasOther,omitempty"`
	Urgency      string          `json:"urgency,omitempty"`
}

// Progress projects the answer set onto its persisted shape.
func (a AnswerSet) Progress() Progress {
	p := Progress{
		Area:      a.Area,
		Rooms:     a.Rooms,
		Bathrooms: a.Bathrooms,
		Urgency:   string(a.Urgency),
	}
	switch a.Service.kind {
	case selectionChoice:
		p.ServiceType = string(a.Service.typ)
	case selectionCustom:
		p.ServiceOther = a.Service.label
	}
	switch a.Extras.kind {
	case selectionChoice:
		p.Extras = a.Extras.Keys()
	case selectionCustom:
		p.ExtrasOther = a.Extras.label
	}
	return p
}
