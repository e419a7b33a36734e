package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/auth"
	"github.com/abhisek/tutorly/internal/conversation"
	"github.com/abhisek/tutorly/internal/document"
	"github.com/abhisek/tutorly/internal/format"
	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/model"
)

// resultResponse is the envelope of every model-backed endpoint. Data is
// always displayable; Outcome tells the client whether it is a fallback.
type resultResponse struct {
	Outcome string `json:"outcome"`
	Data    any    `json:"data"`
}

func sendResult[T any](w http.ResponseWriter, res gateway.Result[T]) {
	jsonResponse(w, resultResponse{Outcome: res.Outcome.String(), Data: res.Value}, http.StatusOK)
}

// === System ===

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{
		"status": "ok",
		"model":  s.deps.Gateway.ModelID(),
		"auth":   s.deps.Auth != nil,
	}, http.StatusOK)
}

func (s *Server) subjects(w http.ResponseWriter, r *http.Request, userID string) {
	u := s.session(r.Context(), userID)
	type subjectInfo struct {
		Subject model.Subject `json:"subject"`
		State   string        `json:"state"`
		Count   int           `json:"messages"`
	}
	out := []subjectInfo{}
	for _, sub := range u.chat.AllSubjects() {
		out = append(out, subjectInfo{
			Subject: sub,
			State:   u.chat.State(sub).String(),
			Count:   len(u.chat.History(sub)),
		})
	}
	jsonResponse(w, out, http.StatusOK)
}

func (s *Server) format(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	blocks := format.Format(req.Text)
	if blocks == nil {
		blocks = []format.Block{}
	}
	jsonResponse(w, blocks, http.StatusOK)
}

// extractDocument reads an uploaded PDF or text file so the client can pass
// it as reference material.
func (s *Server) extractDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errorResponse(w, "read upload failed", http.StatusBadRequest)
		return
	}

	var doc *document.Document
	if strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		doc, err = document.ExtractPDFBytes(data, 0)
	} else {
		doc, err = document.ExtractTextBytes(data, 0)
	}
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, document.ErrUnsupported) {
			status = http.StatusUnsupportedMediaType
		}
		errorResponse(w, err.Error(), status)
		return
	}
	doc.Name = header.Filename
	jsonResponse(w, doc, http.StatusOK)
}

// === Auth ===

func (s *Server) sendSignInLink(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		errorResponse(w, "authentication is not enabled", http.StatusNotFound)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.deps.Auth.SendSignInLink(r.Context(), req.Email); err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, auth.ErrInvalidEmail) && !errors.Is(err, auth.ErrUnauthorizedDomain) {
			logError("send sign-in link: %v", err)
			status = http.StatusBadGateway
		}
		errorResponse(w, auth.UserMessage(err), status)
		return
	}
	jsonResponse(w, map[string]bool{"sent": true}, http.StatusAccepted)
}

func (s *Server) completeSignIn(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		errorResponse(w, "authentication is not enabled", http.StatusNotFound)
		return
	}
	var req struct {
		Token string `json:"token"`
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	signed, err := s.deps.Auth.CompleteSignIn(r.Context(), req.Token, req.Email)
	if err != nil {
		errorResponse(w, auth.UserMessage(err), http.StatusUnauthorized)
		return
	}

	u := s.session(r.Context(), signed.User.ID)
	u.state.SignIn(appstate.User{ID: signed.User.ID, Email: signed.User.Email})
	s.saveProfile(r.Context(), signed.User.ID, u)

	jsonResponse(w, signed, http.StatusOK)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if s.deps.Auth == nil || token == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.deps.Auth.SignOut(r.Context(), token); err != nil {
		logError("sign out: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Profile ===

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request, userID string) {
	u := s.session(r.Context(), userID)
	jsonResponse(w, profileResponse(u.state.Profile(userID)), http.StatusOK)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Theme          *string   `json:"theme"`
		Locale         *string   `json:"locale"`
		DefaultSubject *string   `json:"defaultSubject"`
		WeakTopics     *[]string `json:"weakTopics"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	u := s.session(r.Context(), userID)
	if req.Theme != nil {
		u.state.SetTheme(appstate.ParseTheme(*req.Theme))
	}
	if req.Locale != nil {
		u.state.SetLocale(*req.Locale)
	}
	if req.DefaultSubject != nil {
		u.state.SetSubject(model.ParseSubject(*req.DefaultSubject))
	}
	if req.WeakTopics != nil {
		for _, t := range u.state.WeakTopics() {
			u.state.RemoveWeakTopic(t)
		}
		u.state.MergeWeakTopics(*req.WeakTopics...)
	}
	s.saveProfile(r.Context(), userID, u)
	jsonResponse(w, profileResponse(u.state.Profile(userID)), http.StatusOK)
}

func profileResponse(p model.Profile) model.Profile {
	if p.WeakTopics == nil {
		p.WeakTopics = []string{}
	}
	return p
}

// === Tutor ===

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request, userID string) {
	subject := model.ParseSubject(mux.Vars(r)["subject"])
	u := s.session(r.Context(), userID)
	history := u.chat.History(subject)
	if history == nil {
		history = []model.ChatMessage{}
	}
	jsonResponse(w, map[string]any{
		"subject":  subject,
		"state":    u.chat.State(subject).String(),
		"messages": history,
	}, http.StatusOK)
}

func (s *Server) clearConversation(w http.ResponseWriter, r *http.Request, userID string) {
	subject := model.ParseSubject(mux.Vars(r)["subject"])
	u := s.session(r.Context(), userID)
	if err := u.chat.Clear(r.Context(), subject); err != nil {
		if errors.Is(err, conversation.ErrBusy) {
			errorResponse(w, "a reply is still streaming", http.StatusConflict)
			return
		}
		logError("clear conversation: %v", err)
		errorResponse(w, "could not clear conversation", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Tools ===

func (s *Server) translate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string `json:"text"`
		Direction string `json:"direction"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	dir, err := gateway.ParseDirection(req.Direction)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendResult(w, s.deps.Gateway.Translate(r.Context(), req.Text, dir))
}

// plan uses the user's weak topics when the request names none.
func (s *Server) plan(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Topics []string `json:"topics"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			errorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	topics := req.Topics
	if len(topics) == 0 {
		topics = s.session(r.Context(), userID).state.WeakTopics()
	}
	sendResult(w, s.deps.Gateway.GenerateStudyPlan(r.Context(), topics))
}

func (s *Server) news(w http.ResponseWriter, r *http.Request, userID string) {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = s.session(r.Context(), userID).state.Locale()
	}
	sendResult(w, s.deps.Gateway.FetchNews(r.Context(), locale))
}
