// Package store implements the survey catalog and submission store over a
// gorm database handle.
package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/videosurvey/backend/models"
	"github.com/videosurvey/backend/svcerr"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetSurvey(id uint) (*models.Survey, error) {
	var survey models.Survey
	if err := s.db.First(&survey, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcerr.NotFound("survey not found")
		}
		return nil, svcerr.Storage("get survey", err)
	}
	return &survey, nil
}

func (s *Store) GetSurveyWithQuestions(id uint) (*models.Survey, error) {
	var survey models.Survey
	if err := s.db.Preload("Questions").First(&survey, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcerr.NotFound("survey not found")
		}
		return nil, svcerr.Storage("get survey", err)
	}
	return &survey, nil
}

func (s *Store) CreateSurvey(survey *models.Survey) error {
	if err := s.db.Create(survey).Error; err != nil {
		return svcerr.Storage("create survey", err)
	}
	return nil
}

func (s *Store) ListSurveys() ([]models.Survey, error) {
	var surveys []models.Survey
	if err := s.db.Preload("Questions").Find(&surveys).Error; err != nil {
		return nil, svcerr.Storage("list surveys", err)
	}
	return surveys, nil
}

// DeleteSurvey removes a survey together with its questions, submissions and
// their responses. Child rows are deleted explicitly because soft deletes do
// not fire the database-level cascade.
func (s *Store) DeleteSurvey(id uint) error {
	survey, err := s.GetSurvey(id)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var subIDs []uint
		if err := tx.Model(&models.SurveySubmission{}).Where("survey_id = ?", id).Pluck("id", &subIDs).Error; err != nil {
			return err
		}
		if len(subIDs) > 0 {
			if err := tx.Where("submission_id IN ?", subIDs).Delete(&models.QuestionResponse{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("survey_id = ?", id).Delete(&models.SurveySubmission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", id).Delete(&models.SurveyQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(survey).Error
	})
	if err != nil {
		return svcerr.Storage("delete survey", err)
	}
	return nil
}

// ListQuestions returns a survey's questions in creation order; callers
// re-sort by the Order field for display and export sequencing.
func (s *Store) ListQuestions(surveyID uint) ([]models.SurveyQuestion, error) {
	var questions []models.SurveyQuestion
	if err := s.db.Where("survey_id = ?", surveyID).Order("id").Find(&questions).Error; err != nil {
		return nil, svcerr.Storage("list questions", err)
	}
	return questions, nil
}

func (s *Store) CreateSubmission(sub *models.SurveySubmission) error {
	if err := s.db.Create(sub).Error; err != nil {
		return svcerr.Storage("create submission", err)
	}
	return nil
}

func (s *Store) GetSubmission(id uint) (*models.SurveySubmission, error) {
	var sub models.SurveySubmission
	if err := s.db.First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcerr.NotFound("submission not found")
		}
		return nil, svcerr.Storage("get submission", err)
	}
	return &sub, nil
}

// AppendResponses stores one response per answered question. A second answer
// for the same question updates the existing row in place, keeping any
// snapshot already associated with it.
func (s *Store) AppendResponses(submissionID uint, responses []models.QuestionResponse) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range responses {
			r := responses[i]
			var existing models.QuestionResponse
			err := tx.Where("submission_id = ? AND question_id = ?", submissionID, r.QuestionID).
				First(&existing).Error
			switch {
			case err == nil:
				updates := map[string]interface{}{
					"answer":        r.Answer,
					"face_detected": r.FaceDetected,
					"face_score":    r.FaceScore,
				}
				if err := tx.Model(&existing).Updates(updates).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				r.SubmissionID = submissionID
				if err := tx.Create(&r).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return svcerr.Storage("append responses", err)
	}
	return nil
}

func (s *Store) SetVideoPath(submissionID uint, path string) error {
	err := s.db.Model(&models.SurveySubmission{}).Where("id = ?", submissionID).
		Update("video_path", path).Error
	if err != nil {
		return svcerr.Storage("set video path", err)
	}
	return nil
}

// SetSnapshotPath attaches a snapshot to the response for the given question.
// It reports whether a matching response existed.
func (s *Store) SetSnapshotPath(submissionID, questionID uint, path string) (bool, error) {
	res := s.db.Model(&models.QuestionResponse{}).
		Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		Update("snapshot_path", path)
	if res.Error != nil {
		return false, svcerr.Storage("set snapshot path", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) CompleteSubmission(id uint, completedAt time.Time, overallScore float64) error {
	err := s.db.Model(&models.SurveySubmission{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"completed_at":  completedAt,
			"overall_score": overallScore,
		}).Error
	if err != nil {
		return svcerr.Storage("complete submission", err)
	}
	return nil
}

// ListResponses returns a submission's responses in creation order.
func (s *Store) ListResponses(submissionID uint) ([]models.QuestionResponse, error) {
	var responses []models.QuestionResponse
	if err := s.db.Where("submission_id = ?", submissionID).Order("id").Find(&responses).Error; err != nil {
		return nil, svcerr.Storage("list responses", err)
	}
	return responses, nil
}
