package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coder/websocket"

	"github.com/orgbridge/go-orgbridge/internal/datacloud"
	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

// wsBackfillLimit is how many logged events a new feed subscriber replays.
const wsBackfillLimit = 50

// EventsResponse lists logged Data Cloud events.
type EventsResponse struct {
	Events []datacloud.StoredEvent `json:"events"`
	Count  int                     `json:"count"`
}

// TicketResponse carries a one-time WebSocket ticket.
type TicketResponse struct {
	Ticket string `json:"ticket"`
}

// handleDataCloudEvent ingests a Data Cloud Data Action webhook.
// @Summary Receive a Data Cloud Data Action webhook
// @Description Validates the notification, logs its events and fans them out to live feed subscribers.
// @Tags events
// @Accept json
// @Param notification body datacloud.Notification true "Data Action notification"
// @Success 204 "Events accepted"
// @Failure 400 {object} ErrorResponse "Malformed notification"
// @Failure 500 {object} ErrorResponse "Event log write failed"
// @Router /handleDataCloudDataChangeEvent/ [post]
func (s *HTTPServer) handleDataCloudEvent(w http.ResponseWriter, r *http.Request) {
	var notification datacloud.Notification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}

	valid, dropped := datacloud.Normalize(&notification)
	if dropped > 0 {
		svclog.Log.Warn("Dropped malformed change events", "dropped", dropped, "kept", len(valid))
	}
	for _, ev := range valid {
		svclog.Log.Info(fmt.Sprintf("Got action '%s', event type '%s' triggered by %s on object '%s' published on %s",
			ev.ActionDeveloperName, ev.EventType, ev.EventPrompt,
			ev.SourceObjectDeveloperName, ev.EventPublishDateTime))
	}

	if len(valid) > 0 {
		stored, err := s.events.Insert(r.Context(), valid)
		if err != nil {
			svclog.Log.Error("Event log insert failed", "events", len(valid), "error", err)
			writeError(w, http.StatusInternalServerError, "store_error", "Failed to store events")
			return
		}
		for _, ev := range stored {
			s.bus.Publish(ev)
		}
		eventsReceivedTotal.Add(float64(len(stored)))
	}

	s.runDataCloudFollowUp(r.Context())

	w.WriteHeader(http.StatusNoContent)
}

// runDataCloudFollowUp runs the configured Data Cloud query after a webhook
// lands. Results are only logged; failures never fail the webhook.
func (s *HTTPServer) runDataCloudFollowUp(ctx context.Context) {
	if s.addon == nil || s.config.DataCloudOrg == "" || s.config.DataCloudQuery == "" {
		return
	}
	auth, err := s.addon.GetAuthorization(ctx, s.config.DataCloudOrg)
	if err != nil {
		svclog.Log.Warn("Data Cloud authorization failed", "org", s.config.DataCloudOrg, "error", err)
		return
	}
	result, err := s.addon.DataCloudQuery(ctx, auth, s.config.DataCloudQuery)
	if err != nil {
		svclog.Log.Warn("Data Cloud follow-up query failed", "org", s.config.DataCloudOrg, "error", err)
		return
	}
	svclog.Log.Info("Data Cloud follow-up query completed",
		"org", s.config.DataCloudOrg, "rows", result.RowCount, "done", result.Done)
}

// handleListEvents returns logged events, newest first.
// @Summary List logged Data Cloud events
// @Tags events
// @Produce json
// @Param action query string false "Filter by action developer name"
// @Param source_object query string false "Filter by source object"
// @Param limit query int false "Maximum events to return"
// @Success 200 {object} EventsResponse
// @Failure 500 {object} ErrorResponse "Event log read failed"
// @Security BearerAuth
// @Router /v1/events [get]
func (s *HTTPServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter := datacloud.EventFilter{
		Action:       r.URL.Query().Get("action"),
		SourceObject: r.URL.Query().Get("source_object"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	events, err := s.events.List(r.Context(), filter)
	if err != nil {
		svclog.Log.Error("Event log query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_error", "Failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, EventsResponse{Events: events, Count: len(events)})
}

// handleIssueTicket mints a one-time ticket for the WebSocket feed.
// @Summary Issue a one-time WebSocket ticket
// @Description Tickets are single-use and expire after 30 seconds.
// @Tags events
// @Produce json
// @Success 200 {object} TicketResponse
// @Security BearerAuth
// @Router /v1/events/ticket [post]
func (s *HTTPServer) handleIssueTicket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TicketResponse{Ticket: s.tickets.Issue()})
}

// handleEventsWS streams stored events to a WebSocket client: a backfill of
// recent events first, then live events as webhooks land.
func (s *HTTPServer) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.config.AuthToken != "" {
		ticket := r.URL.Query().Get("ticket")
		if ticket == "" || !s.tickets.Redeem(ticket) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired ticket")
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is enforced by middleware
	})
	if err != nil {
		svclog.Log.Warn("WebSocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	// Subscribe before the backfill query so no event published in
	// between is missed. Duplicates at the seam are acceptable.
	ch, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	backfill, err := s.events.List(ctx, datacloud.EventFilter{Limit: wsBackfillLimit})
	if err != nil {
		svclog.Log.Error("WebSocket backfill query failed", "error", err)
		conn.Close(websocket.StatusInternalError, "backfill failed")
		return
	}

	wsConnectionsActive.Inc()
	defer wsConnectionsActive.Dec()
	svclog.Log.Info("WebSocket client connected", "backfill", len(backfill))

	// List returns newest first; replay oldest first.
	for i := len(backfill) - 1; i >= 0; i-- {
		if err := writeEvent(ctx, conn, backfill[i]); err != nil {
			svclog.Log.Debug("WebSocket write failed", "error", err)
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "subscription closed")
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				svclog.Log.Debug("WebSocket write failed", "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev datacloud.StoredEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
