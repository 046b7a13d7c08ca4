package repository

import (
	"errors"

	"github.com/henokg/talentsim/internal/model"
	"gorm.io/gorm"
)

type ResultRepository interface {
	Create(result *model.Result) error
	Update(result *model.Result) error
	FindByID(id uint) (*model.Result, error)
	// FindBySessionID returns (nil, nil) when no result exists yet.
	FindBySessionID(sessionID uint) (*model.Result, error)
	FindAllBySimulation(simulationID uint, status *model.ReviewStatus) ([]model.Result, error)
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Create(result *model.Result) error {
	return r.db.Create(result).Error
}

func (r *resultRepository) Update(result *model.Result) error {
	return r.db.Save(result).Error
}

func (r *resultRepository) FindByID(id uint) (*model.Result, error) {
	var result model.Result
	if err := r.db.Preload("Simulation").First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepository) FindBySessionID(sessionID uint) (*model.Result, error) {
	var result model.Result
	err := r.db.Where("session_id = ?", sessionID).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepository) FindAllBySimulation(simulationID uint, status *model.ReviewStatus) ([]model.Result, error) {
	var results []model.Result
	query := r.db.Where("simulation_id = ?", simulationID)
	if status != nil {
		query = query.Where("review_status = ?", *status)
	}
	err := query.Order("overall_score DESC").Find(&results).Error
	return results, err
}
