package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/medilog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrReferenceNotFound 疾病或药品不存在
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrInvalidReferenceType 类型只能是 disease 或 drug
	ErrInvalidReferenceType = errors.New("invalid reference type")
)

const defaultReferenceSearchLimit = 20

// ReferenceItem 统一疾病与药品的展示结构，Type 决定哪些字段有值
type ReferenceItem struct {
	Type           string   `json:"type"`
	ID             uint     `json:"id"`
	Title          string   `json:"title"`
	TitleKo        string   `json:"title_ko"`
	Description    string   `json:"description"`
	MedicalTerm    string   `json:"medical_term,omitempty"`
	CommonSymptoms []string `json:"common_symptoms,omitempty"`
	EmergencyHint  string   `json:"emergency_hint,omitempty"`
	Purpose        string   `json:"purpose,omitempty"`
	Precaution     string   `json:"precaution,omitempty"`
}

// ReferenceService 提供疾病/药品参考信息的检索
type ReferenceService struct {
	db *gorm.DB
}

// NewReferenceService 构造 ReferenceService
func NewReferenceService(gdb *gorm.DB) *ReferenceService {
	return &ReferenceService{db: gdb}
}

// NormalizeReferenceType 返回规范化的类型，无法识别时返回空串
func NormalizeReferenceType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case db.ReferenceTypeDisease:
		return db.ReferenceTypeDisease
	case db.ReferenceTypeDrug:
		return db.ReferenceTypeDrug
	default:
		return ""
	}
}

// Search 按英文或韩文标题模糊匹配，refType 为空时同时检索两类
func (s *ReferenceService) Search(query, refType string) ([]ReferenceItem, error) {
	kind := ""
	if strings.TrimSpace(refType) != "" {
		kind = NormalizeReferenceType(refType)
		if kind == "" {
			return nil, ErrInvalidReferenceType
		}
	}

	like := fmt.Sprintf("%%%s%%", strings.TrimSpace(query))
	items := make([]ReferenceItem, 0)

	if kind == "" || kind == db.ReferenceTypeDisease {
		var diseases []db.Disease
		if err := s.db.Where("title LIKE ? OR title_ko LIKE ?", like, like).
			Order("title_ko ASC").
			Limit(defaultReferenceSearchLimit).
			Find(&diseases).Error; err != nil {
			return nil, fmt.Errorf("search diseases: %w", err)
		}
		for _, disease := range diseases {
			items = append(items, diseaseItem(disease))
		}
	}

	if kind == "" || kind == db.ReferenceTypeDrug {
		var drugs []db.Drug
		if err := s.db.Where("title LIKE ? OR title_ko LIKE ?", like, like).
			Order("title_ko ASC").
			Limit(defaultReferenceSearchLimit).
			Find(&drugs).Error; err != nil {
			return nil, fmt.Errorf("search drugs: %w", err)
		}
		for _, drug := range drugs {
			items = append(items, drugItem(drug))
		}
	}

	return items, nil
}

// Get 根据类型与 ID 获取条目
func (s *ReferenceService) Get(refType string, id uint) (*ReferenceItem, error) {
	switch NormalizeReferenceType(refType) {
	case db.ReferenceTypeDisease:
		var disease db.Disease
		if err := s.db.First(&disease, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrReferenceNotFound
			}
			return nil, fmt.Errorf("get disease: %w", err)
		}
		item := diseaseItem(disease)
		return &item, nil
	case db.ReferenceTypeDrug:
		var drug db.Drug
		if err := s.db.First(&drug, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrReferenceNotFound
			}
			return nil, fmt.Errorf("get drug: %w", err)
		}
		item := drugItem(drug)
		return &item, nil
	default:
		return nil, ErrInvalidReferenceType
	}
}

// Seed 在表为空时写入内置参考数据
func (s *ReferenceService) Seed() (db.SeedStats, error) {
	return db.SeedReference(s.db)
}

func diseaseItem(disease db.Disease) ReferenceItem {
	return ReferenceItem{
		Type:           db.ReferenceTypeDisease,
		ID:             disease.ID,
		Title:          disease.Title,
		TitleKo:        disease.TitleKo,
		Description:    disease.Description,
		MedicalTerm:    disease.MedicalTerm,
		CommonSymptoms: disease.CommonSymptoms,
		EmergencyHint:  disease.EmergencyHint,
	}
}

func drugItem(drug db.Drug) ReferenceItem {
	return ReferenceItem{
		Type:        db.ReferenceTypeDrug,
		ID:          drug.ID,
		Title:       drug.Title,
		TitleKo:     drug.TitleKo,
		Description: drug.Description,
		MedicalTerm: drug.MedicalTerm,
		Purpose:     drug.Purpose,
		Precaution:  drug.Precaution,
	}
}
