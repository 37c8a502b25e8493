package db

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed reference_seed.yaml
var referenceSeedYAML []byte

type referenceSeed struct {
	Diseases []struct {
		Title          string   `yaml:"title"`
		TitleKo        string   `yaml:"title_ko"`
		Description    string   `yaml:"description"`
		MedicalTerm    string   `yaml:"medical_term"`
		CommonSymptoms []string `yaml:"common_symptoms"`
		EmergencyHint  string   `yaml:"emergency_hint"`
	} `yaml:"diseases"`
	Drugs []struct {
		Title       string `yaml:"title"`
		TitleKo     string `yaml:"title_ko"`
		Description string `yaml:"description"`
		Purpose     string `yaml:"purpose"`
		Precaution  string `yaml:"precaution"`
		MedicalTerm string `yaml:"medical_term"`
	} `yaml:"drugs"`
}

// SeedStats 返回本次写入的条目数
type SeedStats struct {
	Diseases int
	Drugs    int
}

// SeedReference 在疾病/药品表为空时写入内置的参考数据，已有数据的表保持不变。
func SeedReference(gdb *gorm.DB) (SeedStats, error) {
	return seedReference(gdb, referenceSeedYAML)
}

func seedReference(gdb *gorm.DB, raw []byte) (SeedStats, error) {
	var stats SeedStats

	var seed referenceSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return stats, fmt.Errorf("parse reference seed: %w", err)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		var diseaseCount int64
		if err := tx.Model(&Disease{}).Count(&diseaseCount).Error; err != nil {
			return err
		}
		if diseaseCount == 0 && len(seed.Diseases) > 0 {
			diseases := make([]Disease, 0, len(seed.Diseases))
			for _, item := range seed.Diseases {
				diseases = append(diseases, Disease{
					Title:          item.Title,
					TitleKo:        item.TitleKo,
					Description:    item.Description,
					MedicalTerm:    item.MedicalTerm,
					CommonSymptoms: item.CommonSymptoms,
					EmergencyHint:  item.EmergencyHint,
				})
			}
			if err := tx.Create(&diseases).Error; err != nil {
				return err
			}
			stats.Diseases = len(diseases)
		}

		var drugCount int64
		if err := tx.Model(&Drug{}).Count(&drugCount).Error; err != nil {
			return err
		}
		if drugCount == 0 && len(seed.Drugs) > 0 {
			drugs := make([]Drug, 0, len(seed.Drugs))
			for _, item := range seed.Drugs {
				drugs = append(drugs, Drug{
					Title:       item.Title,
					TitleKo:     item.TitleKo,
					Description: item.Description,
					Purpose:     item.Purpose,
					Precaution:  item.Precaution,
					MedicalTerm: item.MedicalTerm,
				})
			}
			if err := tx.Create(&drugs).Error; err != nil {
				return err
			}
			stats.Drugs = len(drugs)
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, fmt.Errorf("seed reference data: %w", err)
	}

	return stats, nil
}
