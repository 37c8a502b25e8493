package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/medilog/internal/db"
	"gorm.io/gorm"
)

// ErrSavedItemNotFound 收藏不存在或不属于该用户
var ErrSavedItemNotFound = errors.New("saved item not found")

// SavedEntry 是带参考信息的收藏条目
type SavedEntry struct {
	ID        uint          `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Item      ReferenceItem `json:"item"`
}

// SavedItemService 管理用户收藏的疾病与药品
type SavedItemService struct {
	db         *gorm.DB
	references *ReferenceService
}

// NewSavedItemService 构造 SavedItemService
func NewSavedItemService(gdb *gorm.DB, references *ReferenceService) *SavedItemService {
	if references == nil {
		references = NewReferenceService(gdb)
	}
	return &SavedItemService{db: gdb, references: references}
}

// Toggle 收藏或取消收藏，返回操作后的状态
func (s *SavedItemService) Toggle(userID uint, refType string, targetID uint) (bool, error) {
	kind := NormalizeReferenceType(refType)
	if kind == "" {
		return false, ErrInvalidReferenceType
	}
	if _, err := s.references.Get(kind, targetID); err != nil {
		return false, err
	}

	var existing db.SavedItem
	err := s.db.Where("user_id = ? AND type = ? AND target_id = ?", userID, kind, targetID).First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.Delete(&existing).Error; err != nil {
			return false, fmt.Errorf("remove saved item: %w", err)
		}
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := db.SavedItem{UserID: userID, Type: kind, TargetID: targetID}
		if err := s.db.Create(&item).Error; err != nil {
			return false, fmt.Errorf("create saved item: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("find saved item: %w", err)
	}
}

// IsSaved 判断是否已收藏
func (s *SavedItemService) IsSaved(userID uint, refType string, targetID uint) (bool, error) {
	var count int64
	if err := s.db.Model(&db.SavedItem{}).
		Where("user_id = ? AND type = ? AND target_id = ?", userID, NormalizeReferenceType(refType), targetID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check saved item: %w", err)
	}
	return count > 0, nil
}

// List 按收藏时间倒序返回，参考条目已被删除的收藏会被跳过
func (s *SavedItemService) List(userID uint) ([]SavedEntry, error) {
	var items []db.SavedItem
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list saved items: %w", err)
	}

	entries := make([]SavedEntry, 0, len(items))
	for _, item := range items {
		ref, err := s.references.Get(item.Type, item.TargetID)
		if err != nil {
			if errors.Is(err, ErrReferenceNotFound) || errors.Is(err, ErrInvalidReferenceType) {
				continue
			}
			return nil, err
		}
		entries = append(entries, SavedEntry{ID: item.ID, CreatedAt: item.CreatedAt, Item: *ref})
	}
	return entries, nil
}

// Remove 删除指定收藏
func (s *SavedItemService) Remove(userID, id uint) error {
	result := s.db.Where("user_id = ?", userID).Delete(&db.SavedItem{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete saved item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSavedItemNotFound
	}
	return nil
}
