// Package lifecycle drives a survey submission from start to completion:
// capturing client metadata, accumulating answers, attaching media to the
// right responses and computing the aggregate score.
package lifecycle

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/videosurvey/backend/media"
	"github.com/videosurvey/backend/models"
)

// SubmissionStore are the persistence operations the manager needs.
type SubmissionStore interface {
	GetSurvey(id uint) (*models.Survey, error)
	CreateSubmission(sub *models.SurveySubmission) error
	GetSubmission(id uint) (*models.SurveySubmission, error)
	AppendResponses(submissionID uint, responses []models.QuestionResponse) error
	SetVideoPath(submissionID uint, path string) error
	SetSnapshotPath(submissionID, questionID uint, path string) (bool, error)
	CompleteSubmission(id uint, completedAt time.Time, overallScore float64) error
	ListResponses(submissionID uint) ([]models.QuestionResponse, error)
}

// Answer is one inbound answer to a single question.
type Answer struct {
	QuestionID   uint
	Answer       bool
	FaceDetected bool
	FaceScore    float64
}

type Manager struct {
	store     SubmissionStore
	videos    media.Store
	snapshots media.Store
	log       *logrus.Entry
	now       func() time.Time

	// Per-submission locks serialize mutations within this process so a
	// Complete racing a late SaveAnswers cannot interleave mid-sequence.
	locks sync.Map
}

func NewManager(store SubmissionStore, videos, snapshots media.Store, log *logrus.Entry) *Manager {
	return &Manager{
		store:     store,
		videos:    videos,
		snapshots: snapshots,
		log:       log,
		now:       time.Now,
	}
}

func (m *Manager) lock(submissionID uint) func() {
	v, _ := m.locks.LoadOrStore(submissionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Start opens a submission against an existing survey, capturing the derived
// client metadata and the start timestamp at this instant.
func (m *Manager) Start(surveyID uint, client ClientContext) (uint, error) {
	if _, err := m.store.GetSurvey(surveyID); err != nil {
		return 0, err
	}

	meta := ClassifyClient(client)
	startedAt := m.now()
	sub := models.SurveySubmission{
		SurveyID:  surveyID,
		IPAddress: meta.IPAddress,
		Device:    meta.Device,
		Browser:   meta.Browser,
		OS:        meta.OS,
		Location:  meta.Location,
		StartedAt: &startedAt,
	}
	if err := m.store.CreateSubmission(&sub); err != nil {
		return 0, err
	}
	return sub.ID, nil
}

// SaveAnswers records one response per answered question. Answering the same
// question again updates the existing response instead of duplicating it.
func (m *Manager) SaveAnswers(submissionID uint, answers []Answer) error {
	if _, err := m.store.GetSubmission(submissionID); err != nil {
		return err
	}
	unlock := m.lock(submissionID)
	defer unlock()

	responses := make([]models.QuestionResponse, 0, len(answers))
	for _, a := range answers {
		responses = append(responses, models.QuestionResponse{
			QuestionID:   a.QuestionID,
			Answer:       a.Answer,
			FaceDetected: a.FaceDetected,
			FaceScore:    a.FaceScore,
		})
	}
	return m.store.AppendResponses(submissionID, responses)
}

// AttachMedia persists the session video and the classified snapshots. Every
// snapshot is stored; the ones carrying a question id are attached to that
// question's response, overwriting any earlier snapshot for it. The returned
// list reports the per-item classification skips from the plan.
func (m *Manager) AttachMedia(submissionID uint, plan MediaPlan) ([]string, error) {
	if _, err := m.store.GetSubmission(submissionID); err != nil {
		return nil, err
	}
	unlock := m.lock(submissionID)
	defer unlock()

	if len(plan.Video.Data) > 0 {
		path, err := m.videos.Save(plan.Video.Data, plan.Video.Filename)
		if err != nil {
			return nil, err
		}
		if err := m.store.SetVideoPath(submissionID, path); err != nil {
			return nil, err
		}
	}

	for _, snap := range plan.Snapshots {
		path, err := m.snapshots.Save(snap.Upload.Data, snap.Upload.Filename)
		if err != nil {
			return nil, err
		}
		if snap.QuestionID == 0 {
			continue
		}
		found, err := m.store.SetSnapshotPath(submissionID, snap.QuestionID, path)
		if err != nil {
			return nil, err
		}
		if !found {
			m.log.WithFields(logrus.Fields{
				"submission_id": submissionID,
				"question_id":   snap.QuestionID,
				"filename":      snap.Upload.Filename,
			}).Warn("snapshot stored but no response to attach it to")
		}
	}

	for _, skip := range plan.Skipped {
		m.log.WithField("submission_id", submissionID).WithField("item", skip).
			Warn("snapshot skipped during classification")
	}
	return plan.Skipped, nil
}

// Complete stamps the completion time and computes the overall score as the
// mean face score over the responses present right now. With no responses
// the score stays at its zero default. Calling Complete again repeats the
// same computation.
func (m *Manager) Complete(submissionID uint) error {
	if _, err := m.store.GetSubmission(submissionID); err != nil {
		return err
	}
	unlock := m.lock(submissionID)
	defer unlock()

	responses, err := m.store.ListResponses(submissionID)
	if err != nil {
		return err
	}
	var score float64
	if len(responses) > 0 {
		var sum float64
		for _, r := range responses {
			sum += r.FaceScore
		}
		score = sum / float64(len(responses))
	}
	return m.store.CompleteSubmission(submissionID, m.now(), score)
}
