package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/adapters/imagefocus"
	"waccamaw/internal/application/orchestrators"
	"waccamaw/internal/config"
	"waccamaw/internal/domain/facefocus"
	"waccamaw/internal/domain/portal"
)

// multipartSlack covers form fields and multipart framing around the file.
const multipartSlack = 1 << 20

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err)
	}
}

// handlePhotoUpload validates and forwards a member photo, then re-renders the
// dashboard with the outcome.
func (s *Server) handlePhotoUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSignedIn(w, r); !ok {
		return
	}
	ctx := apiContext(r)
	status, err := s.api.GetMemberStatus(ctx)
	if errors.Is(err, api.ErrUnauthenticated) {
		s.clearStale(r)
		s.dropStaleSession(w, r)
		return
	}
	if err != nil {
		s.renderDashboard(w, r, http.StatusBadGateway, "", "", "Upload failed: "+apiMessage(err, err.Error()))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Features.PhotoMaxSize+multipartSlack)
	input := orchestrators.UploadPhotoInput{MemberID: status.MemberID}
	file, header, err := r.FormFile("photo")
	if err == nil {
		defer file.Close()
		input.File = file
		input.Filename = header.Filename
		input.ContentType = header.Header.Get("Content-Type")
		input.Size = header.Size
	} else if !errors.Is(err, http.ErrMissingFile) {
		slog.Warn("photo_form_invalid", "error", err)
		mb := strconv.FormatFloat(float64(s.cfg.Features.PhotoMaxSize)/(1024*1024), 'f', -1, 64)
		s.renderDashboard(w, r, http.StatusRequestEntityTooLarge, "", "", "File too large. Maximum size is "+mb+"MB.")
		return
	}

	err = orchestrators.ExecuteUploadPhoto(ctx, input, orchestrators.UploadPhotoDeps{
		API:      s.api,
		Focus:    s.focus,
		Features: s.cfg.Features,
	})
	var rejected *orchestrators.PhotoRejectedError
	switch {
	case err == nil:
		s.renderDashboard(w, r, http.StatusOK, "", portal.MsgPhotoUploaded, "")
	case errors.As(err, &rejected):
		s.renderDashboard(w, r, http.StatusBadRequest, "", "", rejected.Message)
	case errors.Is(err, orchestrators.ErrPhotoMissing), errors.Is(err, orchestrators.ErrPhotoDisabled):
		s.renderDashboard(w, r, http.StatusBadRequest, "", "", err.Error())
	case errors.Is(err, api.ErrUnauthenticated):
		s.clearStale(r)
		s.dropStaleSession(w, r)
	default:
		s.renderDashboard(w, r, http.StatusBadGateway, "", "", "Upload failed: "+apiMessage(err, err.Error()))
	}
}

// handleMemberPhoto proxies the signed-in member's photo from the API.
func (s *Server) handleMemberPhoto(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentSession(r)
	if !sess.HasActiveSession() {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return
	}
	ctx := apiContext(r)
	status, err := s.api.GetMemberStatus(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			http.Error(w, "not signed in", http.StatusUnauthorized)
			return
		}
		slog.Warn("member_photo_status_failed", "error", err)
		http.Error(w, "photo unavailable", http.StatusBadGateway)
		return
	}
	if !status.HasPhoto() || status.MemberID == "" {
		http.NotFound(w, r)
		return
	}

	photo, err := s.api.GetMemberPhoto(ctx, status.MemberID)
	if err != nil {
		slog.Warn("member_photo_failed", "member_id", status.MemberID, "error", err)
		http.Error(w, "photo unavailable", http.StatusBadGateway)
		return
	}
	defer photo.Body.Close()

	contentType := photo.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if photo.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(photo.ContentLength, 10))
	}
	if _, err := io.Copy(w, photo.Body); err != nil {
		slog.Debug("member_photo_copy_aborted", "error", err)
	}
}

// focusStatic returns the focus position of a file under the static directory.
func (s *Server) focusStatic(r *http.Request, src string) (facefocus.Position, error) {
	key, err := imagefocus.StaticKey(src)
	if err != nil {
		return facefocus.Default, err
	}
	open, err := imagefocus.StaticOpener(s.cfg.StaticDir, key)
	if err != nil {
		return facefocus.Default, err
	}
	if s.focus == nil {
		return facefocus.Default, nil
	}
	return s.focus.Focus(r.Context(), key, open), nil
}

// leaderView is one card of the governing body page.
type leaderView struct {
	config.Leader
	Position facefocus.Position
}

// governingBodyView is the content of governing_body.html.
type governingBodyView struct {
	Featured []leaderView
	Council  []leaderView
}

// handleGoverningBody renders the leadership roster with face-focused photos.
func (s *Server) handleGoverningBody(w http.ResponseWriter, r *http.Request) {
	var view governingBodyView
	for _, l := range s.cfg.GoverningBody {
		lv := leaderView{Leader: l, Position: facefocus.Default}
		if l.Photo != "" {
			pos, err := s.focusStatic(r, l.Photo)
			if err != nil {
				slog.Warn("leader_photo_invalid", "name", l.Name, "photo", l.Photo, "error", err)
			}
			lv.Position = pos
		}
		if l.Featured {
			view.Featured = append(view.Featured, lv)
		} else {
			view.Council = append(view.Council, lv)
		}
	}
	s.render(w, r, http.StatusOK, "governing_body.html", "Governing Body", "leadership", view)
}

// handleFaceFocus reports the focus position of a static image as JSON.
func (s *Server) handleFaceFocus(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	pos, err := s.focusStatic(r, src)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, pos)
}
