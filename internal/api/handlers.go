package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/audio"
	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/internal/store"
)

// validateRequest is the JSON body of POST /v1/validate.
type validateRequest struct {
	Ref string `json:"ref"`
}

// validate runs the pipeline synchronously on either a multipart upload
// (field "file") or a JSON {"ref": "..."} body naming a path or URL.
func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	rec, status, err := s.readAudio(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	res, err := s.runner.Run(r.Context(), rec)
	if err != nil {
		zap.L().Error("api: validation failed", zap.String("file", rec.Name), zap.Error(err))
		if res == nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusBadGateway, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) readAudio(r *http.Request) (model.Audio, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		f, hdr, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return model.Audio{}, http.StatusRequestEntityTooLarge, eris.New("upload exceeds size limit")
			}
			return model.Audio{}, http.StatusBadRequest, eris.New("multipart field \"file\" is required")
		}
		defer f.Close() //nolint:errcheck

		data, err := io.ReadAll(f)
		if err != nil {
			return model.Audio{}, http.StatusBadRequest, eris.New("read upload")
		}
		if len(data) == 0 {
			return model.Audio{}, http.StatusBadRequest, eris.New("upload is empty")
		}
		name := filepath.Base(hdr.Filename)
		return model.Audio{
			Name:        name,
			ContentType: audio.ContentType(name, hdr.Header.Get("Content-Type")),
			Data:        data,
		}, 0, nil

	case "application/json":
		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return model.Audio{}, http.StatusBadRequest, eris.New("invalid request body")
		}
		if strings.TrimSpace(req.Ref) == "" {
			return model.Audio{}, http.StatusBadRequest, eris.New("ref is required")
		}
		if s.loader == nil {
			return model.Audio{}, http.StatusNotImplemented, eris.New("validation by reference is disabled")
		}
		if err := s.refs.check(req.Ref); err != nil {
			zap.L().Warn("api: reference rejected", zap.String("ref", req.Ref), zap.Error(err))
			return model.Audio{}, http.StatusForbidden, eris.New("reference not allowed")
		}
		rec, err := s.loader.Load(r.Context(), req.Ref)
		if err != nil {
			zap.L().Warn("api: load recording", zap.String("ref", req.Ref), zap.Error(err))
			return model.Audio{}, http.StatusUnprocessableEntity, eris.New("could not load recording")
		}
		return rec, 0, nil

	default:
		return model.Audio{}, http.StatusUnsupportedMediaType, eris.New("use multipart/form-data or application/json")
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:    model.RunStatus(q.Get("status")),
		Recording: q.Get("recording"),
		Phone:     q.Get("phone"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.New("invalid")
	}
	return n, nil
}
