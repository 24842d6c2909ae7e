package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/videosurvey/backend/models"
)

type questionPayload struct {
	QuestionText string `json:"question_text" validate:"required"`
	Order        int    `json:"order"`
}

type createSurveyRequest struct {
	Title     string            `json:"title" validate:"required"`
	IsActive  *bool             `json:"is_active"`
	Questions []questionPayload `json:"questions" validate:"dive"`
}

func (h *Handlers) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req createSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	survey := models.Survey{
		Title:    req.Title,
		IsActive: true,
	}
	if req.IsActive != nil {
		survey.IsActive = *req.IsActive
	}
	for _, q := range req.Questions {
		survey.Questions = append(survey.Questions, models.SurveyQuestion{
			QuestionText: q.QuestionText,
			Order:        q.Order,
		})
	}

	if err := h.store.CreateSurvey(&survey); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, survey)
}

func (h *Handlers) ListSurveys(w http.ResponseWriter, r *http.Request) {
	surveys, err := h.store.ListSurveys()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, surveys)
}

func (h *Handlers) GetSurvey(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}
	survey, err := h.store.GetSurveyWithQuestions(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, survey)
}

func (h *Handlers) DeleteSurvey(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}
	if err := h.store.DeleteSurvey(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Survey deleted successfully"})
}

func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	return uint(id), err
}
