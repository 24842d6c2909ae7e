// Package handlers exposes the HTTP surface: survey CRUD, the submission
// lifecycle endpoints and the export download.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/videosurvey/backend/export"
	"github.com/videosurvey/backend/lifecycle"
	"github.com/videosurvey/backend/store"
	"github.com/videosurvey/backend/svcerr"
)

var validate = validator.New()

type Handlers struct {
	store    *store.Store
	manager  *lifecycle.Manager
	packager *export.Packager
	log      *logrus.Entry
}

func New(st *store.Store, manager *lifecycle.Manager, packager *export.Packager, log *logrus.Entry) *Handlers {
	return &Handlers{store: st, manager: manager, packager: packager, log: log}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	if se, ok := svcerr.As(err); ok {
		msg = se.Message
	}
	writeJSON(w, svcerr.HTTPStatus(err), map[string]string{"detail": msg})
}
