package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sahithikokkula/samplingapi/pkg/dataset"
	"github.com/sahithikokkula/samplingapi/pkg/estimator"
	"github.com/sahithikokkula/samplingapi/pkg/profile"
	"github.com/sahithikokkula/samplingapi/pkg/storage"
)

func profileOptions(r *http.Request) (profile.Options, error) {
	var ve estimator.ValidationError
	level := queryInt(r, "significanceLevel", 5, &ve)
	return profile.Options{SignificanceLevel: level}, ve.Err()
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, t *dataset.Table, opts profile.Options) {
	cols, err := profile.Table(t, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JSON{"rows": t.Len(), "columns": cols})
}

// PostProfile profiles the table sent in the request body.
func (h *Handler) PostProfile(w http.ResponseWriter, r *http.Request) {
	opts, err := profileOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var t dataset.Table
	if err := decodeBody(r, &t); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeProfile(w, r, &t, opts)
}

func (h *Handler) GetDatasetProfile(w http.ResponseWriter, r *http.Request) {
	opts, err := profileOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.RequestTimeout)
	defer cancel()

	t, err := storage.LoadTable(ctx, h.db, mux.Vars(r)["name"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeProfile(w, r, t, opts)
}
