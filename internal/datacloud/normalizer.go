package datacloud

import "strings"

// Normalize trims an inbound notification's events in place and separates
// well-formed events from malformed ones. Events missing an action name or
// an event type are dropped and counted; a partially bad batch still
// delivers its good events.
func Normalize(n *Notification) (valid []Event, dropped int) {
	for i := range n.Events {
		e := &n.Events[i]
		e.ActionDeveloperName = strings.TrimSpace(e.ActionDeveloperName)
		e.EventType = strings.TrimSpace(e.EventType)
		e.EventPrompt = strings.TrimSpace(e.EventPrompt)
		e.SourceObjectDeveloperName = strings.TrimSpace(e.SourceObjectDeveloperName)
		e.EventPublishDateTime = strings.TrimSpace(e.EventPublishDateTime)

		if e.ActionDeveloperName == "" || e.EventType == "" {
			dropped++
			continue
		}
		valid = append(valid, *e)
	}
	return valid, dropped
}
