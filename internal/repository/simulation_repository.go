package repository

import (
	"github.com/henokg/talentsim/internal/model"
	"gorm.io/gorm"
)

type SimulationRepository interface {
	Create(sim *model.Simulation) error
	Update(sim *model.Simulation) error
	FindByID(id uint) (*model.Simulation, error)
	FindByIDWithSteps(id uint) (*model.Simulation, error)
	FindAllByEmployer(employerID uint) ([]model.Simulation, error)
	Delete(id uint) error
}

type simulationRepository struct {
	db *gorm.DB
}

func NewSimulationRepository(db *gorm.DB) SimulationRepository {
	return &simulationRepository{db: db}
}

func (r *simulationRepository) Create(sim *model.Simulation) error {
	// Creates associated Steps in the same insert when sim.Steps is populated.
	return r.db.Create(sim).Error
}

func (r *simulationRepository) Update(sim *model.Simulation) error {
	return r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(sim).Error
}

func (r *simulationRepository) FindByID(id uint) (*model.Simulation, error) {
	var sim model.Simulation
	if err := r.db.First(&sim, id).Error; err != nil {
		return nil, err
	}
	return &sim, nil
}

func (r *simulationRepository) FindByIDWithSteps(id uint) (*model.Simulation, error) {
	var sim model.Simulation
	err := r.db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("steps.position ASC")
	}).First(&sim, id).Error
	if err != nil {
		return nil, err
	}
	return &sim, nil
}

func (r *simulationRepository) FindAllByEmployer(employerID uint) ([]model.Simulation, error) {
	var sims []model.Simulation
	err := r.db.Where("employer_id = ?", employerID).Order("created_at DESC").Find(&sims).Error
	return sims, err
}

func (r *simulationRepository) Delete(id uint) error {
	return r.db.Select("Steps").Delete(&model.Simulation{ID: id}).Error
}
