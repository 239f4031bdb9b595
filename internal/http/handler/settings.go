package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/id"
	"github.com/cpanato/mattermost-plugin-alertmanager/common/logger"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/http/dto"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/service"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/settings"
)

const defaultSavedBy = "admin-api"

type SettingsHandler struct {
	settingsService service.SettingsService
	now             func() time.Time
}

func NewSettingsHandler(settingsService service.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		now:             time.Now,
	}
}

// Schema serves the JSON schema of the persisted value.
func (h *SettingsHandler) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, settings.Schema())
}

// Open starts an editing session on the saved value of a setting.
func (h *SettingsHandler) Open(c *gin.Context) {
	ctx := c.Request.Context()
	settingID := c.Param("setting_id")

	view, err := h.settingsService.Open(ctx, settingID)
	if err != nil {
		h.fail(c, err, "failed to open settings session")
		return
	}

	c.JSON(http.StatusCreated, dto.ToSessionResponse(view, h.now()))
}

func (h *SettingsHandler) Get(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	view, err := h.settingsService.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err, "failed to get settings session")
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(view, h.now()))
}

// Close discards the session and any unsaved changes.
func (h *SettingsHandler) Close(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	if err := h.settingsService.Close(c.Request.Context(), sessionID); err != nil {
		h.fail(c, err, "failed to close settings session")
		return
	}

	c.Status(http.StatusNoContent)
}

// Value returns the value a save would persist, as raw JSON.
func (h *SettingsHandler) Value(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	value, err := h.settingsService.Value(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err, "failed to serialize setting")
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", value)
}

func (h *SettingsHandler) Save(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req dto.SaveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if req.SavedBy == "" {
		req.SavedBy = defaultSavedBy
	}

	result, err := h.settingsService.Save(ctx, sessionID, req.SavedBy)
	if err != nil {
		h.fail(c, err, "failed to save setting")
		return
	}

	c.JSON(http.StatusOK, dto.SaveResponse{
		RevisionID: result.Revision.RevisionID,
		EntryCount: result.Revision.EntryCount,
		Published:  result.Published,
		Session:    dto.ToSessionResponse(result.Session, h.now()),
	})
}

func (h *SettingsHandler) AddEntry(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	entryID, view, err := h.settingsService.AddEntry(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err, "failed to add entry")
		return
	}

	c.JSON(http.StatusCreated, dto.AddEntryResponse{
		EntryID: int(entryID),
		Session: dto.ToSessionResponse(view, h.now()),
	})
}

func (h *SettingsHandler) UpdateEntry(c *gin.Context) {
	sessionID, entryID, ok := entryParams(c)
	if !ok {
		return
	}

	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	patch := req.ToPatch()
	if patch.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one field is required"})
		return
	}

	view, err := h.settingsService.UpdateEntry(c.Request.Context(), sessionID, entryID, patch)
	if err != nil {
		h.fail(c, err, "failed to update entry")
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(view, h.now()))
}

// ChangeField applies one keystroke-level edit from an entry form.
func (h *SettingsHandler) ChangeField(c *gin.Context) {
	sessionID, entryID, ok := entryParams(c)
	if !ok {
		return
	}

	field, err := settings.ParseField(c.Param("field"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown field"})
		return
	}

	var req dto.ChangeFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: value is required"})
		return
	}

	view, err := h.settingsService.ChangeField(c.Request.Context(), sessionID, entryID, field, *req.Value)
	if err != nil {
		h.fail(c, err, "failed to change field")
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(view, h.now()))
}

func (h *SettingsHandler) RegenerateToken(c *gin.Context) {
	sessionID, entryID, ok := entryParams(c)
	if !ok {
		return
	}

	view, err := h.settingsService.RegenerateToken(c.Request.Context(), sessionID, entryID)
	if err != nil {
		h.fail(c, err, "failed to regenerate token")
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(view, h.now()))
}

// RequestDelete opens the confirmation prompt; nothing is removed yet.
func (h *SettingsHandler) RequestDelete(c *gin.Context) {
	sessionID, entryID, ok := entryParams(c)
	if !ok {
		return
	}

	view, err := h.settingsService.RequestDelete(c.Request.Context(), sessionID, entryID)
	if err != nil {
		h.fail(c, err, "failed to request delete")
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(view, h.now()))
}

func (h *SettingsHandler) ConfirmDelete(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	removed, view, err := h.settingsService.ConfirmDelete(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err, "failed to delete entry")
		return
	}

	c.JSON(http.StatusOK, dto.ConfirmDeleteResponse{
		Removed: removed,
		Session: dto.ToSessionResponse(view, h.now()),
	})
}

func (h *SettingsHandler) CancelDelete(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	view, err := h.settingsService.CancelDelete(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err, "failed to cancel delete")
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(view, h.now()))
}

func (h *SettingsHandler) Revisions(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	revs, err := h.settingsService.Revisions(c.Request.Context(), c.Param("setting_id"), int32(limit))
	if err != nil {
		h.fail(c, err, "failed to list revisions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"revisions": dto.ToRevisionResponses(revs)})
}

func (h *SettingsHandler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, service.ErrUnknownSetting):
		c.JSON(http.StatusNotFound, gin.H{"error": "setting not found"})
	case errors.Is(err, settings.ErrUnknownEntry):
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
	case errors.Is(err, settings.ErrIDsExhausted):
		c.JSON(http.StatusConflict, gin.H{"error": "no entry ids left"})
	case errors.Is(err, settings.ErrFieldNotEditable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "field is not editable"})
	case errors.Is(err, settings.ErrMalformedValue):
		slog.WarnContext(c.Request.Context(), "saved setting is malformed", "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "saved setting is malformed"})
	default:
		slog.ErrorContext(c.Request.Context(), msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func sessionParam(c *gin.Context) (int64, bool) {
	sessionID, err := id.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return 0, false
	}

	c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), logger.LogFields{
		SessionID: &sessionID,
		Component: "alertmanager.http.settings",
	}))
	return sessionID, true
}

func entryParams(c *gin.Context) (int64, settings.EntryID, bool) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return 0, 0, false
	}

	entryID, err := strconv.Atoi(c.Param("entry_id"))
	if err != nil || entryID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return 0, 0, false
	}

	c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), logger.LogFields{
		EntryID: &entryID,
	}))
	return sessionID, settings.EntryID(entryID), true
}
