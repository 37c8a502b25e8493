package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/db"
	"github.com/medilog/internal/service"
)

type referencePayload struct {
	service.ReferenceItem
	DisplayTitle string `json:"display_title"`
}

type chatRequest struct {
	History []service.ChatTurn `json:"history" binding:"max=40,dive"`
	Query   string             `json:"query" binding:"required,max=1000"`
}

func (a *API) localizeReference(c *gin.Context, item service.ReferenceItem) referencePayload {
	return referencePayload{
		ReferenceItem: item,
		DisplayTitle:  requestLanguage(c).Pick(item.Title, item.TitleKo),
	}
}

// SearchReferences 按标题检索疾病与药品
func (a *API) SearchReferences(c *gin.Context) {
	items, err := a.references.Search(c.Query("q"), c.Query("type"))
	if err != nil {
		handleReferenceError(c, err)
		return
	}

	payload := make([]referencePayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, a.localizeReference(c, item))
	}
	c.JSON(http.StatusOK, gin.H{"items": payload})
}

// GetReference 返回单个条目；登录用户附带收藏状态
func (a *API) GetReference(c *gin.Context) {
	item, ok := a.lookupReference(c)
	if !ok {
		return
	}

	response := gin.H{"item": a.localizeReference(c, *item)}
	if userID := currentUserID(c); userID != 0 {
		saved, err := a.saved.IsSaved(userID, item.Type, item.ID)
		if err != nil {
			c.Error(err)
		}
		response["saved"] = saved
	}
	c.JSON(http.StatusOK, response)
}

// ExplainReference 生成（或读取缓存的）通俗解释
func (a *API) ExplainReference(c *gin.Context) {
	item, ok := a.lookupReference(c)
	if !ok {
		return
	}

	explanation, err := a.explanations.Explain(c.Request.Context(), service.ExplanationInput{
		TargetType:  item.Type,
		TargetID:    item.ID,
		TargetName:  referenceName(*item),
		MedicalTerm: item.MedicalTerm,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidExplanationInput) {
			respondError(c, http.StatusBadRequest, "설명할 대상을 확인해 주세요")
			return
		}
		c.Error(err)
		respondError(c, http.StatusInternalServerError, service.ExplanationFallback)
		return
	}
	c.JSON(http.StatusOK, gin.H{"explanation": explanation})
}

// ChatReference 围绕条目进行追问
func (a *API) ChatReference(c *gin.Context) {
	item, ok := a.lookupReference(c)
	if !ok {
		return
	}

	var payload chatRequest
	if !bindJSON(c, &payload, "질문을 입력해 주세요") {
		return
	}

	reply, err := a.explanations.Chat(c.Request.Context(), service.ChatInput{
		History:    payload.History,
		Query:      payload.Query,
		TargetName: referenceName(*item),
		Context:    referenceContext(*item),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidExplanationInput) {
			respondError(c, http.StatusBadRequest, "질문을 입력해 주세요")
			return
		}
		c.Error(err)
		respondError(c, http.StatusInternalServerError, service.ChatFallback)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (a *API) lookupReference(c *gin.Context) (*service.ReferenceItem, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "잘못된 ID입니다")
		return nil, false
	}
	item, err := a.references.Get(c.Param("type"), id)
	if err != nil {
		handleReferenceError(c, err)
		return nil, false
	}
	return item, true
}

func handleReferenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidReferenceType):
		respondError(c, http.StatusBadRequest, "type은 disease 또는 drug만 가능합니다")
	case errors.Is(err, service.ErrReferenceNotFound):
		respondError(c, http.StatusNotFound, "정보를 찾을 수 없습니다")
	default:
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "정보를 불러오지 못했습니다")
	}
}

func referenceName(item service.ReferenceItem) string {
	if name := strings.TrimSpace(item.TitleKo); name != "" {
		return name
	}
	return item.Title
}

// referenceContext 拼接问答所需的背景信息
func referenceContext(item service.ReferenceItem) string {
	parts := []string{item.Description}
	switch item.Type {
	case db.ReferenceTypeDisease:
		if len(item.CommonSymptoms) > 0 {
			parts = append(parts, "주요 증상: "+strings.Join(item.CommonSymptoms, ", "))
		}
		parts = append(parts, item.EmergencyHint)
	case db.ReferenceTypeDrug:
		parts = append(parts, item.Purpose, item.Precaution)
	}

	filtered := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			filtered = append(filtered, trimmed)
		}
	}
	return strings.Join(filtered, "\n")
}
