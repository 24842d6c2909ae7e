package lifecycle

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/videosurvey/backend/db"
	"github.com/videosurvey/backend/media"
	"github.com/videosurvey/backend/models"
	"github.com/videosurvey/backend/store"
	"github.com/videosurvey/backend/svcerr"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func setupManager(t *testing.T) (*Manager, *store.Store, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	videos, err := media.NewDiskStore(filepath.Join(t.TempDir(), "videos"))
	require.NoError(t, err)
	snapshots, err := media.NewDiskStore(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)

	st := store.New(gdb)
	return NewManager(st, videos, snapshots, testLogger()), st, gdb
}

func createSurvey(t *testing.T, gdb *gorm.DB, questionCount int) models.Survey {
	t.Helper()
	survey := models.Survey{Title: "Screening", IsActive: true}
	for i := 0; i < questionCount; i++ {
		survey.Questions = append(survey.Questions, models.SurveyQuestion{
			QuestionText: "Question text",
			Order:        i + 1,
		})
	}
	require.NoError(t, gdb.Create(&survey).Error)
	return survey
}

func TestStartCapturesClientMetadata(t *testing.T) {
	m, _, gdb := setupManager(t)
	survey := createSurvey(t, gdb, 2)

	id, err := m.Start(survey.ID, ClientContext{
		IPAddress: "192.168.1.5",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/126.0 Safari/537.36",
	})
	require.NoError(t, err)

	var sub models.SurveySubmission
	require.NoError(t, gdb.First(&sub, id).Error)
	assert.Equal(t, survey.ID, sub.SurveyID)
	assert.Equal(t, "192.168.1.5", sub.IPAddress)
	assert.Equal(t, "Desktop", sub.Device)
	assert.Equal(t, "Chrome", sub.Browser)
	assert.Equal(t, "Windows", sub.OS)
	assert.NotNil(t, sub.StartedAt)
	assert.Nil(t, sub.CompletedAt)
	assert.Zero(t, sub.OverallScore)
}

func TestStartUnknownSurvey(t *testing.T) {
	m, _, gdb := setupManager(t)

	_, err := m.Start(999, ClientContext{})
	assert.True(t, svcerr.IsNotFound(err))

	var count int64
	gdb.Model(&models.SurveySubmission{}).Count(&count)
	assert.Zero(t, count, "no submission may be persisted on a failed start")
}

func TestSaveAnswersUnknownSubmission(t *testing.T) {
	m, _, _ := setupManager(t)
	err := m.SaveAnswers(123, []Answer{{QuestionID: 1, Answer: true, FaceScore: 50}})
	assert.True(t, svcerr.IsNotFound(err))
}

func TestSaveAnswersUpsertsPerQuestion(t *testing.T) {
	m, st, gdb := setupManager(t)
	survey := createSurvey(t, gdb, 1)
	qID := survey.Questions[0].ID
	id, err := m.Start(survey.ID, ClientContext{})
	require.NoError(t, err)

	require.NoError(t, m.SaveAnswers(id, []Answer{{QuestionID: qID, Answer: true, FaceDetected: true, FaceScore: 40}}))
	require.NoError(t, m.SaveAnswers(id, []Answer{{QuestionID: qID, Answer: false, FaceDetected: false, FaceScore: 75}}))

	responses, err := st.ListResponses(id)
	require.NoError(t, err)
	require.Len(t, responses, 1, "answering the same question again must update, not duplicate")
	assert.False(t, responses[0].Answer)
	assert.False(t, responses[0].FaceDetected)
	assert.Equal(t, 75.0, responses[0].FaceScore)
}

func TestAttachMediaAssociatesSnapshots(t *testing.T) {
	m, st, gdb := setupManager(t)
	survey := createSurvey(t, gdb, 2)
	q1, q2 := survey.Questions[0].ID, survey.Questions[1].ID
	id, err := m.Start(survey.ID, ClientContext{})
	require.NoError(t, err)
	require.NoError(t, m.SaveAnswers(id, []Answer{
		{QuestionID: q1, Answer: true, FaceDetected: true, FaceScore: 90},
		{QuestionID: q2, Answer: false, FaceDetected: true, FaceScore: 70},
	}))

	plan := ClassifyUploads(
		Upload{Filename: "session.webm", Data: []byte("video-bytes")},
		[]Upload{
			{Filename: snapName(q1), Data: []byte("face-1")},
			{Filename: "extra.png", Data: []byte("orphan")},
			{Filename: "q_nope.png", Data: []byte("bad")},
		},
	)
	skipped, err := m.AttachMedia(id, plan)
	require.NoError(t, err)
	assert.Len(t, skipped, 1, "the malformed filename is reported, not fatal")

	sub, err := st.GetSubmission(id)
	require.NoError(t, err)
	assert.NotEmpty(t, sub.VideoPath)
	assert.True(t, m.videos.Exists(sub.VideoPath))

	responses, err := st.ListResponses(id)
	require.NoError(t, err)
	byQuestion := map[uint]models.QuestionResponse{}
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}
	assert.NotEmpty(t, byQuestion[q1].SnapshotPath)
	assert.True(t, m.snapshots.Exists(byQuestion[q1].SnapshotPath))
	assert.Empty(t, byQuestion[q2].SnapshotPath)
}

func TestAttachMediaIsIdempotentPerQuestion(t *testing.T) {
	m, st, gdb := setupManager(t)
	survey := createSurvey(t, gdb, 1)
	qID := survey.Questions[0].ID
	id, err := m.Start(survey.ID, ClientContext{})
	require.NoError(t, err)
	require.NoError(t, m.SaveAnswers(id, []Answer{{QuestionID: qID, Answer: true, FaceDetected: true, FaceScore: 80}}))

	first := ClassifyUploads(Upload{Filename: "a.webm", Data: []byte("v1")},
		[]Upload{{Filename: snapName(qID), Data: []byte("take-1")}})
	_, err = m.AttachMedia(id, first)
	require.NoError(t, err)
	responses, err := st.ListResponses(id)
	require.NoError(t, err)
	firstPath := responses[0].SnapshotPath

	second := ClassifyUploads(Upload{Filename: "b.webm", Data: []byte("v2")},
		[]Upload{{Filename: snapName(qID), Data: []byte("take-2")}})
	_, err = m.AttachMedia(id, second)
	require.NoError(t, err)

	responses, err = st.ListResponses(id)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.NotEqual(t, firstPath, responses[0].SnapshotPath, "re-sent snapshot overwrites the association")
}

func TestAttachMediaUnknownSubmission(t *testing.T) {
	m, _, _ := setupManager(t)
	_, err := m.AttachMedia(55, MediaPlan{Video: Upload{Filename: "v.webm", Data: []byte("x")}})
	assert.True(t, svcerr.IsNotFound(err))
}

func TestCompleteComputesMeanScore(t *testing.T) {
	m, st, gdb := setupManager(t)
	survey := createSurvey(t, gdb, 2)
	q1, q2 := survey.Questions[0].ID, survey.Questions[1].ID
	id, err := m.Start(survey.ID, ClientContext{})
	require.NoError(t, err)
	require.NoError(t, m.SaveAnswers(id, []Answer{
		{QuestionID: q1, Answer: true, FaceDetected: true, FaceScore: 90},
		{QuestionID: q2, Answer: false, FaceDetected: true, FaceScore: 70},
	}))

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }
	require.NoError(t, m.Complete(id))

	sub, err := st.GetSubmission(id)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, sub.OverallScore, 1e-9)
	require.NotNil(t, sub.CompletedAt)
	assert.True(t, sub.CompletedAt.Equal(fixed))
}

func TestCompleteWithoutResponses(t *testing.T) {
	m, st, gdb := setupManager(t)
	survey := createSurvey(t, gdb, 1)
	id, err := m.Start(survey.ID, ClientContext{})
	require.NoError(t, err)

	require.NoError(t, m.Complete(id))

	sub, err := st.GetSubmission(id)
	require.NoError(t, err)
	assert.Zero(t, sub.OverallScore)
	assert.NotNil(t, sub.CompletedAt)
}

func TestCompleteRecomputesOnRepeat(t *testing.T) {
	m, st, gdb := setupManager(t)
	survey := createSurvey(t, gdb, 2)
	q1, q2 := survey.Questions[0].ID, survey.Questions[1].ID
	id, err := m.Start(survey.ID, ClientContext{})
	require.NoError(t, err)

	require.NoError(t, m.SaveAnswers(id, []Answer{{QuestionID: q1, Answer: true, FaceDetected: true, FaceScore: 60}}))
	require.NoError(t, m.Complete(id))

	// A late answer followed by another Complete folds into the score.
	require.NoError(t, m.SaveAnswers(id, []Answer{{QuestionID: q2, Answer: true, FaceDetected: true, FaceScore: 100}}))
	require.NoError(t, m.Complete(id))

	sub, err := st.GetSubmission(id)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, sub.OverallScore, 1e-9)
}

func TestCompleteUnknownSubmission(t *testing.T) {
	m, _, _ := setupManager(t)
	assert.True(t, svcerr.IsNotFound(m.Complete(404)))
}

func snapName(questionID uint) string {
	return fmt.Sprintf("q_%d.png", questionID)
}
