package queue

import (
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	EventTypeSettingSaved EventType = "setting_saved"
)

// SettingSaved announces a new revision of a setting so running plugin
// instances reload their channel routing.
type SettingSaved struct {
	SettingID  string
	RevisionID int64
	EntryCount int
	SavedBy    string
	TraceID    *string
	SpanID     *string
}

type Message struct {
	ID    string
	Event SettingSaved
	Raw   redis.XMessage
}

func (m SettingSaved) values() map[string]any {
	fields := map[string]any{
		"event_type":  string(EventTypeSettingSaved),
		"setting_id":  m.SettingID,
		"revision_id": m.RevisionID,
		"entry_count": m.EntryCount,
	}
	if m.SavedBy != "" {
		fields["saved_by"] = m.SavedBy
	}
	if m.TraceID != nil && *m.TraceID != "" {
		fields["trace_id"] = *m.TraceID
	}
	if m.SpanID != nil && *m.SpanID != "" {
		fields["span_id"] = *m.SpanID
	}
	return fields
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	eventType, err := parseString(msg.Values, "event_type")
	if err != nil {
		return Message{}, err
	}
	if EventType(eventType) != EventTypeSettingSaved {
		return Message{}, fmt.Errorf("unknown event_type %q", eventType)
	}

	settingID, err := parseString(msg.Values, "setting_id")
	if err != nil {
		return Message{}, err
	}
	revisionID, err := parseInt64(msg.Values, "revision_id")
	if err != nil {
		return Message{}, err
	}
	entryCount, err := parseOptionalInt(msg.Values, "entry_count")
	if err != nil {
		return Message{}, err
	}

	event := SettingSaved{
		SettingID:  settingID,
		RevisionID: revisionID,
		EntryCount: entryCount,
		SavedBy:    parseOptionalString(msg.Values, "saved_by"),
	}
	if traceID := parseOptionalString(msg.Values, "trace_id"); traceID != "" {
		event.TraceID = &traceID
	}
	if spanID := parseOptionalString(msg.Values, "span_id"); spanID != "" {
		event.SpanID = &spanID
	}

	return Message{ID: msg.ID, Event: event, Raw: msg}, nil
}

func parseInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	num, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}
