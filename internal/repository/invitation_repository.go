package repository

import (
	"time"

	"github.com/henokg/talentsim/internal/model"
	"gorm.io/gorm"
)

type InvitationRepository interface {
	Create(inv *model.Invitation) error
	Update(inv *model.Invitation) error
	FindByID(id uint) (*model.Invitation, error)
	FindByToken(token string) (*model.Invitation, error)
	FindAllBySimulation(simulationID uint) ([]model.Invitation, error)
	// AcceptIf binds the candidate and moves PENDING→ACCEPTED in a single
	// conditional update. Returns the number of rows changed, so a losing
	// concurrent accept observes zero.
	AcceptIf(id uint, candidateID uint) (int64, error)
	// MarkCompletedIf moves ACCEPTED→COMPLETED conditionally.
	MarkCompletedIf(id uint) (int64, error)
	// ExpireSweep moves every overdue PENDING/ACCEPTED invitation to
	// EXPIRED and reports how many rows changed. Running it twice in a row
	// changes nothing the second time.
	ExpireSweep(now time.Time) (int64, error)
	// DeleteIfPending soft-deletes only while still PENDING.
	DeleteIfPending(id uint) (int64, error)
	CountActiveBySimulation(simulationID uint, now time.Time) (int64, error)
}

type invitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(inv *model.Invitation) error {
	return r.db.Create(inv).Error
}

func (r *invitationRepository) Update(inv *model.Invitation) error {
	return r.db.Save(inv).Error
}

func (r *invitationRepository) FindByID(id uint) (*model.Invitation, error) {
	var inv model.Invitation
	if err := r.db.Preload("Simulation").First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) FindByToken(token string) (*model.Invitation, error) {
	var inv model.Invitation
	if err := r.db.Preload("Simulation").Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) FindAllBySimulation(simulationID uint) ([]model.Invitation, error) {
	var invs []model.Invitation
	err := r.db.Where("simulation_id = ?", simulationID).Order("created_at DESC").Find(&invs).Error
	return invs, err
}

func (r *invitationRepository) AcceptIf(id uint, candidateID uint) (int64, error) {
	res := r.db.Model(&model.Invitation{}).
		Where("id = ? AND status = ?", id, model.InvitationPending).
		Updates(map[string]any{"status": model.InvitationAccepted, "candidate_id": candidateID})
	return res.RowsAffected, res.Error
}

func (r *invitationRepository) MarkCompletedIf(id uint) (int64, error) {
	res := r.db.Model(&model.Invitation{}).
		Where("id = ? AND status = ?", id, model.InvitationAccepted).
		Update("status", model.InvitationCompleted)
	return res.RowsAffected, res.Error
}

func (r *invitationRepository) ExpireSweep(now time.Time) (int64, error) {
	res := r.db.Model(&model.Invitation{}).
		Where("status IN ? AND expires_at < ?", []model.InvitationStatus{model.InvitationPending, model.InvitationAccepted}, now).
		Update("status", model.InvitationExpired)
	return res.RowsAffected, res.Error
}

func (r *invitationRepository) DeleteIfPending(id uint) (int64, error) {
	res := r.db.Where("id = ? AND status = ?", id, model.InvitationPending).Delete(&model.Invitation{})
	return res.RowsAffected, res.Error
}

func (r *invitationRepository) CountActiveBySimulation(simulationID uint, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Invitation{}).
		Where("simulation_id = ? AND status <> ?", simulationID, model.InvitationExpired).
		Where("status = ? OR expires_at > ?", model.InvitationCompleted, now).
		Count(&count).Error
	return count, err
}
