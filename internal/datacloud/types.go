// Package datacloud handles Salesforce Data Cloud Data Action webhooks:
// typed notification payloads, normalization, a DuckDB-backed event log,
// and an in-memory bus that fans events out to live feed subscribers.
package datacloud

import "time"

// Event is one Data Action event. Field names mirror the webhook payload,
// which carries the org's PascalCase keys.
type Event struct {
	ActionDeveloperName       string         `json:"ActionDeveloperName"`
	EventType                 string         `json:"EventType"`
	EventPrompt               string         `json:"EventPrompt"`
	SourceObjectDeveloperName string         `json:"SourceObjectDeveloperName"`
	EventPublishDateTime      string         `json:"EventPublishDateTime"`
	PayloadCurrentValue       map[string]any `json:"PayloadCurrentValue"`
}

// Schema identifies a Data Cloud schema referenced by a notification.
type Schema struct {
	SchemaID string `json:"schemaId"`
}

// Notification is the webhook body a Data Action delivers.
type Notification struct {
	Events  []Event  `json:"events"`
	Schemas []Schema `json:"schemas"`
}

// SchemaIDs returns the schema IDs named by the notification.
func (n *Notification) SchemaIDs() []string {
	ids := make([]string, 0, len(n.Schemas))
	for _, s := range n.Schemas {
		ids = append(ids, s.SchemaID)
	}
	return ids
}

// StoredEvent is an event as recorded in the event log.
type StoredEvent struct {
	ID           string         `json:"id"`
	Action       string         `json:"action"`
	EventType    string         `json:"event_type"`
	EventPrompt  string         `json:"event_prompt,omitempty"`
	SourceObject string         `json:"source_object,omitempty"`
	PublishedAt  string         `json:"published_at,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	ReceivedAt   time.Time      `json:"received_at"`
}

// EventFilter holds query parameters for listing logged events.
type EventFilter struct {
	Action       string    `json:"action,omitempty"`
	SourceObject string    `json:"source_object,omitempty"`
	Since        time.Time `json:"since,omitempty"`
	Limit        int       `json:"limit,omitempty"`
}

// LogStats summarizes the event log.
type LogStats struct {
	Events      int64  `json:"events"`
	DBPath      string `json:"db_path"`
	DBSizeBytes int64  `json:"db_size_bytes"`
}
