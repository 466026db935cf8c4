package httpapi

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/AnyUserName/stitch-cli/internal/job"
	"github.com/AnyUserName/stitch-cli/internal/settings"
	"github.com/AnyUserName/stitch-cli/internal/source"
)

// maxUploadBytes bounds one submission's multipart body.
const maxUploadBytes = 128 << 20

type SubmitResponse struct {
	ID    string    `json:"id"`
	State job.State `json:"state"`
}

// NewRouter wires the job endpoints. Submissions are multipart: ordered
// "images" file parts, an optional "options" JSON part in the settings
// shape, and an optional "watermark_image" file part.
func NewRouter(runner *job.Runner, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", HandleSubmit(runner, logger))
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", HandleStatus(runner))
			r.Post("/cancel", HandleCancel(runner))
			r.Get("/result", HandleResult(runner))
		})
	})
	return r
}

// HandleSubmit queues a new stitch job and replies 202 with its identity.
func HandleSubmit(runner *job.Runner, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "invalid multipart body", http.StatusBadRequest)
			return
		}

		opts := settings.Get("default")
		if raw := r.FormValue("options"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &opts); err != nil {
				http.Error(w, fmt.Sprintf("invalid options: %v", err), http.StatusBadRequest)
				return
			}
		}

		// File part order is submission order and becomes stitch order.
		files := r.MultipartForm.File["images"]
		if len(files) == 0 {
			http.Error(w, "no images submitted", http.StatusBadRequest)
			return
		}
		images := make([]job.InputImage, 0, len(files))
		for _, fh := range files {
			raw, err := readPart(fh.Open())
			if err != nil {
				http.Error(w, fmt.Sprintf("read %s: %v", fh.Filename, err), http.StatusBadRequest)
				return
			}
			images = append(images, job.InputImage{Name: fh.Filename, Raw: raw})
		}

		var stamp image.Image
		if marks := r.MultipartForm.File["watermark_image"]; len(marks) > 0 {
			raw, err := readPart(marks[0].Open())
			if err != nil {
				http.Error(w, "read watermark_image", http.StatusBadRequest)
				return
			}
			img, err := source.FromBytes(marks[0].Filename, raw)
			if err != nil {
				http.Error(w, fmt.Sprintf("watermark_image: %v", err), http.StatusBadRequest)
				return
			}
			stamp = img.Pixels
		}

		req, err := opts.Request(images, stamp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		j, err := runner.Submit(req)
		if err != nil {
			logger.Error().Err(err).Msg("submit failed")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, SubmitResponse{ID: j.ID, State: j.Status().State})
	}
}

// HandleStatus reports a point-in-time snapshot of a job.
func HandleStatus(runner *job.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		j, ok := runner.Lookup(chi.URLParam(r, "jobID"))
		if !ok {
			http.Error(w, "unknown job", http.StatusNotFound)
			return
		}
		render.JSON(w, r, j.Status())
	}
}

// HandleCancel requests cooperative cancellation. The job stops at its next
// per-image boundary; the reply only acknowledges the request.
func HandleCancel(runner *job.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "jobID")
		if !runner.Cancel(id) {
			http.Error(w, "unknown job", http.StatusNotFound)
			return
		}
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, map[string]string{"id": id})
	}
}

// HandleResult streams the encoded composite of a completed job.
func HandleResult(runner *job.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		j, ok := runner.Lookup(chi.URLParam(r, "jobID"))
		if !ok {
			http.Error(w, "unknown job", http.StatusNotFound)
			return
		}
		switch st := j.Status(); st.State {
		case job.StateCompleted:
		case job.StateCancelled:
			http.Error(w, "job was cancelled", http.StatusGone)
			return
		case job.StateFailed:
			http.Error(w, st.Error, http.StatusUnprocessableEntity)
			return
		default:
			http.Error(w, "job still running", http.StatusConflict)
			return
		}

		blob, mime, err := j.Result()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", mime)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", "stitch-"+j.ID[:8]+extensionFor(mime)))
		w.WriteHeader(http.StatusOK)
		w.Write(blob)
	}
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/avif":
		return ".avif"
	}
	return ".png"
}

func readPart(f io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
