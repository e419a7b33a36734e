package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tutorly/internal/auth"
	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/store"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []auth.Message
}

func (m *captureMailer) Send(_ context.Context, msg auth.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) token(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	for _, line := range strings.Split(m.sent[len(m.sent)-1].Body, "\n") {
		if strings.HasPrefix(line, "http") {
			u, err := url.Parse(strings.TrimSpace(line))
			require.NoError(t, err)
			return u.Query().Get("token")
		}
	}
	t.Fatal("no link in email body")
	return ""
}

type fixture struct {
	srv     *Server
	handler http.Handler
	mock    *llm.MockProvider
	mailer  *captureMailer
	store   *store.Store
}

func newFixture(t *testing.T, responses ...llm.MockResponse) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mock := llm.NewMockProvider(responses...)
	mailer := &captureMailer{}
	srv := New(Deps{
		Gateway: gateway.New(mock, gateway.DefaultConfig()),
		Docs:    st.DocumentRepo(),
		Quizzes: st.QuizResultRepo(),
		Auth:    auth.NewService(st.AuthRepo(), mailer, auth.DefaultConfig()),
	})
	t.Cleanup(srv.Shutdown)
	return &fixture{srv: srv, handler: srv.Handler(), mock: mock, mailer: mailer, store: st}
}

func (f *fixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/v1"+path, nil)
	if body != nil {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		req = httptest.NewRequest(method, "/api/v1"+path, &buf)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func quizBody(t *testing.T) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(map[string]any{"questions": []map[string]any{
		{
			"topic":         "Kinematics",
			"question":      "Unit of velocity?",
			"options":       []string{"m/s", "m", "s", "kg"},
			"correctAnswer": 0,
			"explanation":   "Distance over time.",
		},
		{
			"topic":         "Optics",
			"question":      "Speed of light in vacuum?",
			"options":       []string{"3x10^8 m/s", "340 m/s", "1 m/s", "9.8 m/s"},
			"correctAnswer": 0,
			"explanation":   "A constant.",
		},
	}})
	require.NoError(t, err)
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, true, got["auth"])
}

func TestSubjectsListsCatalogue(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/subjects", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]map[string]any](t, rec)
	require.Len(t, got, 8)
	assert.Equal(t, "Math", got[0]["subject"])
	assert.Equal(t, "idle", got[0]["state"])
}

func TestTranslate(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Content: json.RawMessage(`{"lines":[
		{"original":"আমি ভাত খাই","translated":"I eat rice","explanation":"Simple present.","grammarAnalysis":[]}]}`)})

	rec := f.do(t, "POST", "/translate", map[string]string{"text": "আমি ভাত খাই", "direction": "bn-en"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Outcome string `json:"outcome"`
		Data    struct {
			Lines []struct {
				Translated string `json:"translated"`
			} `json:"lines"`
		} `json:"data"`
	}](t, rec)
	assert.Equal(t, "ok", got.Outcome)
	require.Len(t, got.Data.Lines, 1)
	assert.Equal(t, "I eat rice", got.Data.Lines[0].Translated)

	rec = f.do(t, "POST", "/translate", map[string]string{"text": "x", "direction": "fr-de"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFailuresStillReturnDisplayableData(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/news?locale=en", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[map[string]any](t, rec)
	assert.Equal(t, "failed", got["outcome"])
	assert.NotNil(t, got["data"])
}

func TestPlanFallsBackToWeakTopics(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Content: json.RawMessage(`{"dailyGoals":["Review lenses"],"weakTopics":["Optics"],"nextStudy":"Mirrors"}`)})

	rec := f.do(t, "PUT", "/profile", map[string]any{"weakTopics": []string{"Optics"}, "theme": "light"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "POST", "/plan", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", got["outcome"])

	req, ok := f.mock.LastCall()
	require.True(t, ok)
	assert.Contains(t, req.Messages[0].Content, "Optics")

	p, err := f.store.DocumentRepo().LoadProfile(context.Background(), GuestUserID)
	require.NoError(t, err)
	assert.Equal(t, "light", p.Theme)
	assert.Equal(t, []string{"Optics"}, p.WeakTopics)
}

func TestQuizFlow(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Content: quizBody(t)})

	rec := f.do(t, "POST", "/quiz/sessions", map[string]string{"subject": "physics"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decode[map[string]any](t, rec)
	assert.Equal(t, "ready", snap["phase"])
	assert.Equal(t, "Physics", snap["subject"])
	id := snap["id"].(string)

	rec = f.do(t, "POST", "/quiz/sessions/"+id+"/answer", map[string]int{"index": 0}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["score"])

	rec = f.do(t, "POST", "/quiz/sessions/"+id+"/answer", map[string]int{"index": 1}, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "second answer is rejected")

	rec = f.do(t, "POST", "/quiz/sessions/"+id+"/finish", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "not on the last question yet")

	rec = f.do(t, "POST", "/quiz/sessions/"+id+"/advance", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "POST", "/quiz/sessions/"+id+"/answer", map[string]int{"index": 2}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, "POST", "/quiz/sessions/"+id+"/flag", map[string]string{}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Optics"}, decode[map[string]any](t, rec)["flaggedTopics"])

	rec = f.do(t, "POST", "/quiz/sessions/"+id+"/finish", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), sum["score"])
	assert.Equal(t, float64(2), sum["total"])

	rec = f.do(t, "GET", "/quiz/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "finished sessions are released")

	rec = f.do(t, "GET", "/quiz/results", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]map[string]any](t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, "Physics", results[0]["subject"])

	rec = f.do(t, "GET", "/profile", nil, "")
	assert.Equal(t, []any{"Optics"}, decode[map[string]any](t, rec)["weakTopics"])
}

func TestQuizEmptySet(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Content: json.RawMessage(`{"questions":[]}`)})
	rec := f.do(t, "POST", "/quiz/sessions", map[string]string{"subject": "Math"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "empty", decode[map[string]any](t, rec)["phase"])
}

func TestQuizUnknownSession(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/quiz/sessions/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormatEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "POST", "/format", map[string]string{"text": "### Newton\n- First law"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	blocks := decode[[]map[string]any](t, rec)
	require.Len(t, blocks, 2)
	assert.Equal(t, "Newton", blocks[0]["text"])
	assert.Equal(t, "First law", blocks[1]["text"])
}

func TestExtractDocumentUpload(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Ohm's law: V = IR\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/documents/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "notes.txt", got["Name"])
	assert.Equal(t, "Ohm's law: V = IR", got["Text"])
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/auth/email-link", map[string]string{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/auth/email-link", map[string]string{"email": "student@school.edu"}, "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, "POST", "/auth/complete", map[string]string{"token": f.mailer.token(t)}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	signed := decode[auth.SignedIn](t, rec)
	require.NotEmpty(t, signed.Token)

	rec = f.do(t, "GET", "/profile", nil, signed.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	prof := decode[map[string]any](t, rec)
	assert.Equal(t, auth.UserIDFor("student@school.edu"), prof["userId"])
	assert.Equal(t, "student@school.edu", prof["email"])

	rec = f.do(t, "POST", "/auth/logout", nil, signed.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "GET", "/profile", nil, signed.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/subjects", nil, "bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func dialTutor(t *testing.T, f *fixture, subject string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(f.handler)
	t.Cleanup(ts.Close)
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/tutor/" + subject + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) tutorEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev tutorEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestTutorStream(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Chunks: []string{"Force is", " mass times x^2"}})
	conn := dialTutor(t, f, "Physics")

	require.NoError(t, conn.WriteJSON(tutorRequest{Text: "What is force?"}))

	var updates []string
	var done tutorEvent
	for {
		ev := readEvent(t, conn)
		if ev.Type == "update" {
			updates = append(updates, ev.Text)
			continue
		}
		done = ev
		break
	}
	assert.Equal(t, []string{"Force is", "Force is mass times x²"}, updates)
	require.Equal(t, "done", done.Type)
	require.NotNil(t, done.Message)
	assert.Equal(t, "Force is mass times x²", done.Message.Text)
	assert.Equal(t, "ok", done.Outcome)

	rec := f.do(t, "GET", "/conversations/Physics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	conv := decode[map[string]any](t, rec)
	assert.Len(t, conv["messages"], 2)
	assert.Equal(t, "idle", conv["state"])

	rec = f.do(t, "DELETE", "/conversations/Physics", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, "GET", "/conversations/Physics", nil, "")
	assert.Empty(t, decode[map[string]any](t, rec)["messages"])
}

func TestTutorStreamRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t)
	conn := dialTutor(t, f, "Math")

	require.NoError(t, conn.WriteJSON(tutorRequest{Text: "   "}))
	ev := readEvent(t, conn)
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "empty", ev.Code)
	assert.Zero(t, f.mock.CallCount())
}

func TestTutorStreamFailureSendsApology(t *testing.T) {
	f := newFixture(t)
	conn := dialTutor(t, f, "Chemistry")

	require.NoError(t, conn.WriteJSON(tutorRequest{Text: "Balance H2 + O2"}))
	ev := readEvent(t, conn)
	for ev.Type == "update" {
		ev = readEvent(t, conn)
	}
	require.Equal(t, "done", ev.Type)
	assert.Equal(t, "failed", ev.Outcome)
	assert.Equal(t, gateway.ApologyText, ev.Message.Text)
}
