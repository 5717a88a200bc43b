package web

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/haivivi/wespeaker/pkg/upload"
	"github.com/haivivi/wespeaker/pkg/voiceprint"
)

// multipartMemory is held in memory per request before spilling to disk.
const multipartMemory = 8 << 20

type indexData struct {
	Info            voiceprint.ModelInfo
	DefaultDuration float64
	DefaultStep     float64
	Threshold       float64
	MinScore        float64
	MaxScore        float64
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTmpl.Execute(w, indexData{
		Info:            s.extractor.ModelInfo(),
		DefaultDuration: voiceprint.DefaultDuration,
		DefaultStep:     voiceprint.DefaultStep,
		Threshold:       voiceprint.Threshold,
		MinScore:        voiceprint.MinRandomScore,
		MaxScore:        voiceprint.MaxRandomScore,
	})
	if err != nil {
		s.logger.Error("render index", "error", err)
	}
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.extractor.ModelInfo())
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	t, err := voiceprint.ParseWindowType(r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, voiceprint.Visibility(t))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.saveFile(r, "file")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rec == nil {
		s.fail(w, r, fmt.Errorf("%w: missing file", errBadRequest))
		return
	}
	s.respond(w, r, http.StatusCreated, rec)
}

// handleUploadGet serves the stored bytes of a clip so the page can play
// it back.
func (s *Server) handleUploadGet(w http.ResponseWriter, r *http.Request) {
	rec, data, err := s.uploads.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": rec.Name}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleUploadDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.uploads.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Debug("clip deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

type extractResponse struct {
	Report    string                   `json:"report" msgpack:"report"`
	Embedding []float32                `json:"embedding" msgpack:"embedding"`
	Preview   []voiceprint.PreviewRow  `json:"preview" msgpack:"preview"`
	Window    *voiceprint.Window       `json:"window,omitempty" msgpack:"window,omitempty"`
	Windows   int                      `json:"windows,omitempty" msgpack:"windows,omitempty"`
	VoiceHash string                   `json:"voice_hash,omitempty" msgpack:"voice_hash,omitempty"`
	Speaker   *voiceprint.SpeakerChunk `json:"speaker,omitempty" msgpack:"speaker,omitempty"`
	UploadID  string                   `json:"upload_id,omitempty" msgpack:"upload_id,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	windowType, err := voiceprint.ParseWindowType(r.FormValue("window_type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	duration, err := formFloat(r, "duration")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	step, err := formFloat(r, "step")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var (
		ref voiceprint.AudioRef
		rec *upload.Record
	)
	if hasClip(r, "audio", "upload_id") {
		// Reject bad window parameters before the clip is stored.
		if _, err := voiceprint.ResolveWindow(windowType, duration, step); err != nil {
			s.fail(w, r, err)
			return
		}
		if rec, err = s.resolve(r, "audio", "upload_id"); err != nil {
			s.fail(w, r, err)
			return
		}
		ref = rec.Ref()
	}
	x, err := s.extractor.Extract(r.Context(), ref, windowType, duration, step)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := extractResponse{Report: x.Report}
	if !x.Missing() {
		s.metrics.ObserveExtraction(string(x.Window.Type))
		resp.Embedding = x.Embedding
		resp.Preview = voiceprint.Preview(x.Embedding, previewRows)
		resp.Window = &x.Window
		resp.Windows = x.Windows
		resp.VoiceHash = x.VoiceHash
		resp.Speaker = x.Speaker
		resp.UploadID = rec.ID
	}
	s.respond(w, r, http.StatusOK, resp)
}

type compareResponse struct {
	Report      string  `json:"report" msgpack:"report"`
	Similarity  float64 `json:"similarity" msgpack:"similarity"`
	Distance    float64 `json:"distance" msgpack:"distance"`
	Verdict     string  `json:"verdict,omitempty" msgpack:"verdict,omitempty"`
	SameSpeaker bool    `json:"same_speaker" msgpack:"same_speaker"`
	UploadID1   string  `json:"upload_id1,omitempty" msgpack:"upload_id1,omitempty"`
	UploadID2   string  `json:"upload_id2,omitempty" msgpack:"upload_id2,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}

	var (
		a, b       voiceprint.AudioRef
		rec1, rec2 *upload.Record
	)
	// An incomplete pair gets the prompt and nothing is stored.
	if hasClip(r, "audio1", "upload_id1") && hasClip(r, "audio2", "upload_id2") {
		var err error
		if rec1, err = s.resolve(r, "audio1", "upload_id1"); err != nil {
			s.fail(w, r, err)
			return
		}
		if rec2, err = s.resolve(r, "audio2", "upload_id2"); err != nil {
			if hasFile(r, "audio1") {
				s.uploads.Delete(context.WithoutCancel(r.Context()), rec1.ID)
			}
			s.fail(w, r, err)
			return
		}
		a, b = rec1.Ref(), rec2.Ref()
	}
	c, err := s.comparator.Compare(r.Context(), a, b)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := compareResponse{Report: c.Report}
	if !c.Missing() {
		s.metrics.ObserveComparison(c.Verdict.String())
		resp.Similarity = c.Similarity
		resp.Distance = c.Distance
		resp.Verdict = c.Verdict.String()
		resp.SameSpeaker = c.Verdict == voiceprint.SameSpeaker
		resp.UploadID1 = rec1.ID
		resp.UploadID2 = rec2.ID
	}
	s.respond(w, r, http.StatusOK, resp)
}

// parseForm parses multipart or urlencoded bodies, capping the body size
// to fit the upload limit of two clips.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	if limit := s.uploads.MaxBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 2*limit + 1<<20)
	}
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: %w", upload.ErrTooLarge, err)
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// hasFile reports whether the multipart form carries a file in field.
func hasFile(r *http.Request, field string) bool {
	return r.MultipartForm != nil && len(r.MultipartForm.File[field]) > 0
}

// hasClip reports whether a clip was supplied by file or by upload id.
func hasClip(r *http.Request, fileField, idField string) bool {
	return hasFile(r, fileField) || strings.TrimSpace(r.FormValue(idField)) != ""
}

// resolve returns the clip named by a file field or an upload id field.
// A file takes precedence. It returns nil when neither is present.
func (s *Server) resolve(r *http.Request, fileField, idField string) (*upload.Record, error) {
	rec, err := s.saveFile(r, fileField)
	if err != nil || rec != nil {
		return rec, err
	}
	if id := strings.TrimSpace(r.FormValue(idField)); id != "" {
		return s.uploads.Get(r.Context(), id)
	}
	return nil, nil
}

// saveFile stores the multipart file in field, or returns nil if absent.
func (s *Server) saveFile(r *http.Request, field string) (*upload.Record, error) {
	if !hasFile(r, field) {
		return nil, nil
	}
	fh := r.MultipartForm.File[field][0]
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", errBadRequest, field, err)
	}
	defer f.Close()

	rec, err := s.uploads.Save(r.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveUpload(rec.Size)
	s.logger.Debug("clip stored", "id", rec.ID, "name", rec.Name, "size", rec.Size)
	return rec, nil
}

// formFloat parses an optional float field. Empty means unset.
func formFloat(r *http.Request, field string) (*float64, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", errBadRequest, field)
	}
	return &f, nil
}
