package observability

// EventEnvelope is the wire shape of a telemetry event on the bus.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// WSEventPayload describes a websocket lifecycle occurrence on the client side.
type WSEventPayload struct {
	ConversationID int    `json:"conversation_id"`
	Event          string `json:"event"`
	UserID         int    `json:"user_id"`
	DurationMS     int64  `json:"duration_ms"`
	Reason         string `json:"reason,omitempty"`
}

func BuildHeaders(sessionID, traceID string) map[string]string {
	headers := map[string]string{}
	if sessionID != "" {
		headers["x-session-id"] = sessionID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
