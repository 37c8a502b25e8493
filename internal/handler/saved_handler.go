package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/service"
)

type toggleSavedRequest struct {
	Type     string `json:"type" binding:"required,oneof=disease drug"`
	TargetID uint   `json:"target_id" binding:"required,gt=0"`
}

type savedEntryPayload struct {
	service.SavedEntry
	DisplayTitle string `json:"display_title"`
}

// ListSaved 返回当前用户的收藏
func (a *API) ListSaved(c *gin.Context) {
	entries, err := a.saved.List(currentUserID(c))
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "저장한 항목을 불러오지 못했습니다")
		return
	}

	payload := make([]savedEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, savedEntryPayload{
			SavedEntry:   entry,
			DisplayTitle: a.localizeReference(c, entry.Item).DisplayTitle,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": payload})
}

// ToggleSaved 收藏或取消收藏
func (a *API) ToggleSaved(c *gin.Context) {
	var payload toggleSavedRequest
	if !bindJSON(c, &payload, "저장할 항목을 확인해 주세요") {
		return
	}

	saved, err := a.saved.Toggle(currentUserID(c), payload.Type, payload.TargetID)
	if err != nil {
		handleReferenceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// RemoveSaved 删除一条收藏
func (a *API) RemoveSaved(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "잘못된 ID입니다")
		return
	}

	if err := a.saved.Remove(currentUserID(c), id); err != nil {
		if errors.Is(err, service.ErrSavedItemNotFound) {
			respondError(c, http.StatusNotFound, "저장한 항목을 찾을 수 없습니다")
			return
		}
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "삭제에 실패했습니다")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "삭제되었습니다"})
}
