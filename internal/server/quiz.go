package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/abhisek/tutorly/internal/model"
	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/store"
)

// keepQuizResults bounds the stored history per user.
const keepQuizResults = 50

// createQuiz fetches a question set and returns the session snapshot. An
// empty set is reported through the "empty" phase, not an HTTP error.
func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Subject string `json:"subject"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	subject := model.ParseSubject(req.Subject)
	if subject == "" {
		subject = s.session(r.Context(), userID).state.Subject()
	}

	sess := quiz.NewSession()
	s.mu.Lock()
	s.quizzes[sess.ID()] = &quizEntry{userID: userID, session: sess}
	s.mu.Unlock()

	sess.FetchSet(r.Context(), s.deps.Gateway, subject)
	jsonResponse(w, sess.Snapshot(), http.StatusCreated)
}

// lookupQuiz finds the caller's session, answering 404 for unknown ids and
// for sessions owned by another user.
func (s *Server) lookupQuiz(w http.ResponseWriter, r *http.Request, userID string) *quiz.Session {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	e, ok := s.quizzes[id]
	s.mu.Unlock()
	if !ok || e.userID != userID {
		errorResponse(w, "quiz session not found", http.StatusNotFound)
		return nil
	}
	return e.session
}

func (s *Server) getQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	if sess := s.lookupQuiz(w, r, userID); sess != nil {
		jsonResponse(w, sess.Snapshot(), http.StatusOK)
	}
}

func (s *Server) answerQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	sess := s.lookupQuiz(w, r, userID)
	if sess == nil {
		return
	}
	var req struct {
		Index *int `json:"index"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.Index == nil {
		errorResponse(w, "index is required", http.StatusBadRequest)
		return
	}
	if !sess.SelectAnswer(*req.Index) {
		errorResponse(w, "answer not accepted", http.StatusConflict)
		return
	}
	jsonResponse(w, sess.Snapshot(), http.StatusOK)
}

func (s *Server) flagQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	sess := s.lookupQuiz(w, r, userID)
	if sess == nil {
		return
	}
	var req struct {
		Topic string `json:"topic"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Topic == "" {
		if q, ok := sess.Current(); ok {
			req.Topic = q.Topic
		}
	}
	sess.FlagTopic(req.Topic)
	jsonResponse(w, sess.Snapshot(), http.StatusOK)
}

func (s *Server) advanceQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	sess := s.lookupQuiz(w, r, userID)
	if sess == nil {
		return
	}
	if !sess.Advance() {
		errorResponse(w, "cannot advance", http.StatusConflict)
		return
	}
	jsonResponse(w, sess.Snapshot(), http.StatusOK)
}

// finishQuiz closes the session, merges flagged topics into the user's weak
// topics and records the result.
func (s *Server) finishQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	sess := s.lookupQuiz(w, r, userID)
	if sess == nil {
		return
	}
	if !sess.Finish() {
		errorResponse(w, "quiz is not on its last answered question", http.StatusConflict)
		return
	}
	sum := sess.Summary()

	u := s.session(r.Context(), userID)
	if u.state.MergeWeakTopics(sum.FlaggedTopics...) > 0 {
		s.saveProfile(r.Context(), userID, u)
	}

	if s.deps.Quizzes != nil {
		res := &store.QuizResult{
			UserID:        userID,
			Subject:       sum.Subject,
			Score:         sum.Score,
			Total:         sum.Total,
			FlaggedTopics: sum.FlaggedTopics,
			FinishedAt:    time.Now(),
		}
		if err := s.deps.Quizzes.Save(r.Context(), res); err != nil {
			logError("save quiz result: %v", err)
		} else if err := s.deps.Quizzes.Prune(r.Context(), userID, keepQuizResults); err != nil {
			logError("prune quiz results: %v", err)
		}
	}

	s.mu.Lock()
	delete(s.quizzes, sess.ID())
	s.mu.Unlock()

	jsonResponse(w, sum, http.StatusOK)
}

type quizResultResponse struct {
	Subject       model.Subject `json:"subject"`
	Score         int           `json:"score"`
	Total         int           `json:"total"`
	FlaggedTopics []string      `json:"flaggedTopics"`
	FinishedAt    int64         `json:"finishedAt"`
}

func (s *Server) quizResults(w http.ResponseWriter, r *http.Request, userID string) {
	out := []quizResultResponse{}
	if s.deps.Quizzes != nil {
		results, err := s.deps.Quizzes.Recent(r.Context(), userID, 20)
		if err != nil {
			logError("list quiz results: %v", err)
			errorResponse(w, "could not load results", http.StatusInternalServerError)
			return
		}
		for _, res := range results {
			flagged := res.FlaggedTopics
			if flagged == nil {
				flagged = []string{}
			}
			out = append(out, quizResultResponse{
				Subject:       res.Subject,
				Score:         res.Score,
				Total:         res.Total,
				FlaggedTopics: flagged,
				FinishedAt:    res.FinishedAt.UnixMilli(),
			})
		}
	}
	jsonResponse(w, out, http.StatusOK)
}
