package repository

import (
	"errors"

	"github.com/henokg/talentsim/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository interface {
	// Upsert inserts the submission or, when one already exists for the
	// same (session, step), overwrites answer, timing and scoring fields
	// and bumps the attempt counter. A row that has already been SCORED is
	// never overwritten; the caller observes zero affected rows instead.
	Upsert(sub *model.StepSubmission) (int64, error)
	FindBySessionAndStep(sessionID, stepID uint) (*model.StepSubmission, error)
	FindAllBySession(sessionID uint) ([]model.StepSubmission, error)
	// AttachScoreIf writes the AI score only while the submission is still
	// PENDING on the attempt the score was computed for. A score from a
	// superseded attempt matches nothing and is discarded.
	AttachScoreIf(submissionID, attempt uint, score *float64, feedback string, state model.ScoringState) (int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Upsert(sub *model.StepSubmission) (int64, error) {
	assignments := clause.AssignmentColumns([]string{
		"answer", "time_spent_seconds", "submitted_at", "score", "feedback", "scoring_state", "updated_at",
	})
	assignments = append(assignments, clause.Assignment{
		Column: clause.Column{Name: "attempt"},
		Value:  gorm.Expr("attempt + 1"),
	})
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "step_id"}},
		DoUpdates: assignments,
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Neq{Column: clause.Column{Name: "scoring_state"}, Value: model.ScoringScored},
		}},
	}).Create(sub)
	return res.RowsAffected, res.Error
}

func (r *submissionRepository) FindBySessionAndStep(sessionID, stepID uint) (*model.StepSubmission, error) {
	var sub model.StepSubmission
	err := r.db.Where("session_id = ? AND step_id = ?", sessionID, stepID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) FindAllBySession(sessionID uint) ([]model.StepSubmission, error) {
	var subs []model.StepSubmission
	err := r.db.Preload("Step").Where("session_id = ?", sessionID).Order("submitted_at ASC").Find(&subs).Error
	return subs, err
}

func (r *submissionRepository) AttachScoreIf(submissionID, attempt uint, score *float64, feedback string, state model.ScoringState) (int64, error) {
	res := r.db.Model(&model.StepSubmission{}).
		Where("id = ? AND scoring_state = ? AND attempt = ?", submissionID, model.ScoringPending, attempt).
		Updates(map[string]any{"score": score, "feedback": feedback, "scoring_state": state})
	return res.RowsAffected, res.Error
}
