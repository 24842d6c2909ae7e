// Package export assembles the portable bundle for a completed submission:
// the session video, the per-question face snapshots renamed into export
// order, and the metadata.json manifest downstream consumers parse.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/videosurvey/backend/media"
	"github.com/videosurvey/backend/models"
	"github.com/videosurvey/backend/svcerr"
)

// Store are the read-only persistence operations the packager needs.
type Store interface {
	GetSubmission(id uint) (*models.SurveySubmission, error)
	GetSurvey(id uint) (*models.Survey, error)
	ListQuestions(surveyID uint) ([]models.SurveyQuestion, error)
	ListResponses(submissionID uint) ([]models.QuestionResponse, error)
}

// ResponseEntry is one per-question record in the manifest.
type ResponseEntry struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	FaceDetected bool   `json:"face_detected"`
	Score        int    `json:"score"`
	FaceImage    string `json:"face_image,omitempty"`
}

// Manifest is the metadata.json document inside the bundle. Scores are
// truncated toward zero; timestamps are RFC3339 UTC and omitted when unset.
type Manifest struct {
	SubmissionID string          `json:"submission_id"`
	SurveyID     string          `json:"survey_id"`
	StartedAt    string          `json:"started_at,omitempty"`
	CompletedAt  string          `json:"completed_at,omitempty"`
	IPAddress    string          `json:"ip_address"`
	Device       string          `json:"device"`
	Browser      string          `json:"browser"`
	OS           string          `json:"os"`
	Location     string          `json:"location"`
	Responses    []ResponseEntry `json:"responses"`
	OverallScore int             `json:"overall_score"`
}

type Packager struct {
	store     Store
	videos    media.Store
	snapshots media.Store
	log       *logrus.Entry
}

func NewPackager(store Store, videos, snapshots media.Store, log *logrus.Entry) *Packager {
	return &Packager{store: store, videos: videos, snapshots: snapshots, log: log}
}

// Filename suggests the download name for a submission's bundle.
func Filename(submissionID uint) string {
	return fmt.Sprintf("submission_%d.zip", submissionID)
}

// Package streams the bundle for the submission into w. It is read-only over
// the stores and writes straight into the zip, so there is no staging state
// to clean up and concurrent exports cannot collide.
func (p *Packager) Package(submissionID uint, w io.Writer) error {
	sub, err := p.store.GetSubmission(submissionID)
	if err != nil {
		return err
	}
	survey, err := p.store.GetSurvey(sub.SurveyID)
	if err != nil {
		// A submission whose survey is gone is stale and not exportable.
		return err
	}
	questions, err := p.store.ListQuestions(survey.ID)
	if err != nil {
		return err
	}
	responses, err := p.store.ListResponses(submissionID)
	if err != nil {
		return err
	}

	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Order < questions[j].Order
	})
	qIndex := make(map[uint]int, len(questions))
	qText := make(map[uint]string, len(questions))
	for i, q := range questions {
		qIndex[q.ID] = i + 1
		qText[q.ID] = q.QuestionText
	}

	zw := zip.NewWriter(w)

	if sub.VideoPath != "" && p.videos.Exists(sub.VideoPath) {
		if err := p.copyEntry(zw, p.videos, sub.VideoPath, "videos/full_session.mp4"); err != nil {
			return err
		}
	}

	entries := make([]ResponseEntry, 0, len(responses))
	for _, r := range responses {
		idx, ok := qIndex[r.QuestionID]
		if !ok {
			// Defensive fallback, not a silent one: the response points at a
			// question outside the survey's current question set.
			p.log.WithFields(logrus.Fields{
				"submission_id": submissionID,
				"question_id":   r.QuestionID,
			}).Warn("response question not in survey, defaulting export index to 1")
			idx = 1
		}
		snapName := fmt.Sprintf("q%d_face.png", idx)

		text, ok := qText[r.QuestionID]
		if !ok {
			text = "Question"
		}

		if r.SnapshotPath != "" && p.snapshots.Exists(r.SnapshotPath) {
			if err := p.copyEntry(zw, p.snapshots, r.SnapshotPath, "images/"+snapName); err != nil {
				return err
			}
		}

		entry := ResponseEntry{
			Question:     text,
			Answer:       yesNo(r.Answer),
			FaceDetected: r.FaceDetected,
			Score:        int(r.FaceScore),
		}
		if r.SnapshotPath != "" {
			entry.FaceImage = "images/" + snapName
		}
		entries = append(entries, entry)
	}

	manifest := Manifest{
		SubmissionID: fmt.Sprintf("sub%d", sub.ID),
		SurveyID:     fmt.Sprintf("survey%d", sub.SurveyID),
		StartedAt:    formatTime(sub.StartedAt),
		CompletedAt:  formatTime(sub.CompletedAt),
		IPAddress:    sub.IPAddress,
		Device:       sub.Device,
		Browser:      sub.Browser,
		OS:           sub.OS,
		Location:     sub.Location,
		Responses:    entries,
		OverallScore: int(sub.OverallScore),
	}

	mw, err := zw.Create("metadata.json")
	if err != nil {
		return svcerr.Packaging("create manifest entry", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "    ")
	if err := enc.Encode(manifest); err != nil {
		return svcerr.Packaging("encode manifest", err)
	}

	if err := zw.Close(); err != nil {
		return svcerr.Packaging("finalize archive", err)
	}
	return nil
}

func (p *Packager) copyEntry(zw *zip.Writer, src media.Store, path, name string) error {
	f, err := src.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return svcerr.Packaging("create archive entry "+name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return svcerr.Packaging("write archive entry "+name, err)
	}
	return nil
}

func yesNo(answer bool) string {
	if answer {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
