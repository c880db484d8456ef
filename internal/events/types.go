package events

import "time"

// EventTypeLeadSubmitted is emitted once per accepted lead.
const EventTypeLeadSubmitted = "lead.submitted.v1"

// LeadSubmittedV1 carries a new lead to downstream consumers (CRM, call center).
type LeadSubmittedV1 struct {
	EventID       string     `json:"event_id"`
	LeadID        string     `json:"lead_id"`
	Source        string     `json:"source"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Service       string     `json:"service,omitempty"`
	ServiceOther  string     `json:"service_other,omitempty"`
	AreaSqm       int        `json:"area_sqm,omitempty"`
	Rooms         int        `json:"rooms,omitempty"`
	Bathrooms     int        `json:"bathrooms,omitempty"`
	Extras        []string   `json:"extras,omitempty"`
	ExtrasOther   string     `json:"extras_other,omitempty"`
	Urgency       string     `json:"urgency,omitempty"`
	DesiredAt     *time.Time `json:"desired_at,omitempty"`
	EstimateTotal int        `json:"estimate_total,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
}
