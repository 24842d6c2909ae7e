package handlers

import (
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/videosurvey/backend/export"
	"github.com/videosurvey/backend/lifecycle"
)

func (h *Handlers) StartSubmission(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	submissionID, err := h.manager.Start(surveyID, lifecycle.ClientContext{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint{"submission_id": submissionID})
}

type answerPayload struct {
	QuestionID   uint    `json:"question_id" validate:"required"`
	Answer       *bool   `json:"answer" validate:"required"`
	FaceDetected *bool   `json:"face_detected"`
	FaceScore    float64 `json:"face_score"`
}

func (h *Handlers) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	submissionID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid submission ID", http.StatusBadRequest)
		return
	}

	var payload []answerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	answers := make([]lifecycle.Answer, 0, len(payload))
	for _, p := range payload {
		if err := validate.Struct(p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a := lifecycle.Answer{
			QuestionID:   p.QuestionID,
			Answer:       *p.Answer,
			FaceDetected: true,
			FaceScore:    p.FaceScore,
		}
		if p.FaceDetected != nil {
			a.FaceDetected = *p.FaceDetected
		}
		answers = append(answers, a)
	}

	if err := h.manager.SaveAnswers(submissionID, answers); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Answers saved"})
}

const maxUploadMemory = 32 << 20

func (h *Handlers) SaveMedia(w http.ResponseWriter, r *http.Request) {
	submissionID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid submission ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	video, err := formUpload(r, "video")
	if err != nil {
		http.Error(w, "video file is required", http.StatusBadRequest)
		return
	}

	var snapshots []lifecycle.Upload
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["snapshots"] {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			snapshots = append(snapshots, lifecycle.Upload{Filename: fh.Filename, Data: data})
		}
	}

	plan := lifecycle.ClassifyUploads(video, snapshots)
	skipped, err := h.manager.AttachMedia(submissionID, plan)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{"message": "Media uploaded"}
	if len(skipped) > 0 {
		resp["skipped"] = skipped
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CompleteSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid submission ID", http.StatusBadRequest)
		return
	}
	if err := h.manager.Complete(submissionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Submission completed"})
}

func (h *Handlers) ExportSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid submission ID", http.StatusBadRequest)
		return
	}

	// Resolve the submission and its survey before streaming so a missing
	// record still gets a proper 404 status.
	sub, err := h.store.GetSubmission(submissionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.GetSurvey(sub.SurveyID); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(submissionID))
	if err := h.packager.Package(submissionID, w); err != nil {
		// Headers are already out; all we can do is log the broken stream.
		h.log.WithField("submission_id", submissionID).WithError(err).
			Error("export stream failed")
	}
}

func formUpload(r *http.Request, field string) (lifecycle.Upload, error) {
	f, fh, err := r.FormFile(field)
	if err != nil {
		return lifecycle.Upload{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return lifecycle.Upload{}, err
	}
	return lifecycle.Upload{Filename: fh.Filename, Data: data}, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
