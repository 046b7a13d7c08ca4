package repository

import (
	"time"

	"github.com/henokg/talentsim/internal/model"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(session *model.AssessmentSession) error
	FindByID(id uint) (*model.AssessmentSession, error)
	FindByIDWithDetails(id uint) (*model.AssessmentSession, error)
	FindAllByInvitation(invitationID uint) ([]model.AssessmentSession, error)
	// FindExpiredActiveIDs lists ACTIVE sessions whose deadline has passed,
	// for the periodic sweep that reaps sessions nobody reads.
	FindExpiredActiveIDs(now time.Time) ([]uint, error)
	// MarkAbandonedIf transitions ACTIVE→ABANDONED conditionally; a session
	// already terminal is left untouched.
	MarkAbandonedIf(id uint) (int64, error)
	// MarkCompletedIf transitions ACTIVE→COMPLETED conditionally. The
	// caller that observes one affected row owns result aggregation.
	MarkCompletedIf(id uint) (int64, error)
	UpdateCurrentStep(id uint, position int) error
	AppendFlag(flag *model.IntegrityFlag) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *model.AssessmentSession) error {
	return r.db.Create(session).Error
}

func (r *sessionRepository) FindByID(id uint) (*model.AssessmentSession, error) {
	var session model.AssessmentSession
	if err := r.db.First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindByIDWithDetails(id uint) (*model.AssessmentSession, error) {
	var session model.AssessmentSession
	err := r.db.
		Preload("Simulation.Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("steps.position ASC")
		}).
		Preload("Submissions.Step").
		Preload("IntegrityFlags").
		First(&session, id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindAllByInvitation(invitationID uint) ([]model.AssessmentSession, error) {
	var sessions []model.AssessmentSession
	err := r.db.Where("invitation_id = ?", invitationID).Order("started_at DESC").Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) FindExpiredActiveIDs(now time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.AssessmentSession{}).
		Where("status = ? AND expires_at < ?", model.SessionActive, now).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *sessionRepository) MarkAbandonedIf(id uint) (int64, error) {
	res := r.db.Model(&model.AssessmentSession{}).
		Where("id = ? AND status = ?", id, model.SessionActive).
		Update("status", model.SessionAbandoned)
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) MarkCompletedIf(id uint) (int64, error) {
	res := r.db.Model(&model.AssessmentSession{}).
		Where("id = ? AND status = ?", id, model.SessionActive).
		Update("status", model.SessionCompleted)
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) UpdateCurrentStep(id uint, position int) error {
	return r.db.Model(&model.AssessmentSession{}).Where("id = ?", id).Update("current_step", position).Error
}

func (r *sessionRepository) AppendFlag(flag *model.IntegrityFlag) error {
	return r.db.Create(flag).Error
}
