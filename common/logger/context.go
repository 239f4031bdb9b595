package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Handlers enrich the request context once and every slog.*Context call below
// picks the fields up without repeating them.
type LogFields struct {
	SettingID  *string // Host setting key, e.g. PluginSettings.Plugins.alertmanager.alertconfigs
	SessionID  *int64  // Editing session
	EntryID    *int    // Alert manager entry within the collection
	RevisionID *int64  // Saved revision
	Component  string  // Component name, e.g. "alertmanager.service.settings"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.SettingID != nil {
		result.SettingID = new.SettingID
	}
	if new.SessionID != nil {
		result.SessionID = new.SessionID
	}
	if new.EntryID != nil {
		result.EntryID = new.EntryID
	}
	if new.RevisionID != nil {
		result.RevisionID = new.RevisionID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}
