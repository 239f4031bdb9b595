package dto

import (
	"time"

	"github.com/hako/durafmt"
	"github.com/samber/lo"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/model"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/service"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/settings"
)

type UpdateEntryRequest struct {
	Team    *string `json:"team,omitempty"`
	Channel *string `json:"channel,omitempty"`
	Token   *string `json:"token,omitempty"`
	URL     *string `json:"url,omitempty"`
}

func (r UpdateEntryRequest) ToPatch() settings.Patch {
	return settings.Patch{
		Team:    r.Team,
		Channel: r.Channel,
		Token:   r.Token,
		URL:     r.URL,
	}
}

// ChangeFieldRequest carries exactly what the user typed; an empty string is
// a valid value and gets flagged, not rejected.
type ChangeFieldRequest struct {
	Value *string `json:"value" binding:"required"`
}

type SaveRequest struct {
	SavedBy string `json:"saved_by" binding:"max=255"`
}

type FieldResponse struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Help     string `json:"help"`
	Editable bool   `json:"editable"`
}

type EntryResponse struct {
	ID        int      `json:"id"`
	Team      string   `json:"team"`
	Channel   string   `json:"channel"`
	Token     string   `json:"token"`
	URL       string   `json:"url"`
	Errors    []string `json:"errors"`
	ErrorText string   `json:"error_text,omitempty"`
}

type DeletePromptResponse struct {
	Title             string `json:"title"`
	Message           string `json:"message"`
	ConfirmButtonText string `json:"confirm_button_text"`
	EntryID           int    `json:"entry_id"`
}

type SessionResponse struct {
	SessionID    int64                 `json:"session_id,string"`
	SettingID    string                `json:"setting_id"`
	EmptyDefault string                `json:"empty_default"`
	Fields       []FieldResponse       `json:"fields"`
	Entries      []EntryResponse       `json:"entries"`
	EmptyState   string                `json:"empty_state,omitempty"`
	DeletePrompt *DeletePromptResponse `json:"delete_prompt,omitempty"`
	SaveNeeded   bool                  `json:"save_needed"`
	RevisionID   int64                 `json:"revision_id,string,omitempty"`
	OpenedAt     time.Time             `json:"opened_at"`
	LastSavedAt  *time.Time            `json:"last_saved_at,omitempty"`
	LastSavedAgo string                `json:"last_saved_ago,omitempty"`
}

type AddEntryResponse struct {
	EntryID int              `json:"entry_id"`
	Session *SessionResponse `json:"session"`
}

type ConfirmDeleteResponse struct {
	Removed bool             `json:"removed"`
	Session *SessionResponse `json:"session"`
}

type SaveResponse struct {
	RevisionID int64            `json:"revision_id,string"`
	EntryCount int              `json:"entry_count"`
	Published  bool             `json:"published"`
	Session    *SessionResponse `json:"session"`
}

type RevisionResponse struct {
	RevisionID int64     `json:"revision_id,string"`
	SettingID  string    `json:"setting_id"`
	EntryCount int       `json:"entry_count"`
	SavedBy    string    `json:"saved_by"`
	CreatedAt  time.Time `json:"created_at"`
}

var fieldResponses = lo.Map(settings.Fields, func(f settings.Field, _ int) FieldResponse {
	return FieldResponse{
		Name:     string(f),
		Label:    settings.FieldLabel(f),
		Help:     settings.FieldHelp(f),
		Editable: f.Editable(),
	}
})

func ToSessionResponse(v *service.SessionView, now time.Time) *SessionResponse {
	resp := &SessionResponse{
		SessionID:    v.SessionID,
		SettingID:    v.SettingID,
		EmptyDefault: string(v.EmptyDefault),
		Fields:       fieldResponses,
		Entries:      lo.Map(v.Entries, toEntryResponse),
		SaveNeeded:   v.SaveNeeded,
		RevisionID:   v.RevisionID,
		OpenedAt:     v.OpenedAt,
		LastSavedAt:  v.LastSavedAt,
	}
	if len(resp.Entries) == 0 {
		resp.EmptyState = settings.EmptyStateText
	}
	if v.DeletePrompt.Show {
		resp.DeletePrompt = &DeletePromptResponse{
			Title:             v.DeletePrompt.Title,
			Message:           v.DeletePrompt.Message,
			ConfirmButtonText: v.DeletePrompt.ConfirmButtonText,
			EntryID:           int(v.DeletePrompt.EntryID),
		}
	}
	if v.LastSavedAt != nil {
		resp.LastSavedAgo = durafmt.Parse(now.Sub(*v.LastSavedAt).Truncate(time.Second)).LimitFirstN(2).String()
	}
	return resp
}

func toEntryResponse(e service.EntryView, _ int) EntryResponse {
	return EntryResponse{
		ID:        int(e.ID),
		Team:      e.Entry.Team,
		Channel:   e.Entry.Channel,
		Token:     e.Entry.Token,
		URL:       e.Entry.URL,
		Errors:    lo.Map(e.Errors, func(f settings.Field, _ int) string { return string(f) }),
		ErrorText: e.ErrorText,
	}
}

func ToRevisionResponses(revs []model.SettingRevision) []RevisionResponse {
	return lo.Map(revs, func(r model.SettingRevision, _ int) RevisionResponse {
		return RevisionResponse{
			RevisionID: r.RevisionID,
			SettingID:  r.SettingID,
			EntryCount: r.EntryCount,
			SavedBy:    r.SavedBy,
			CreatedAt:  r.CreatedAt,
		}
	})
}
