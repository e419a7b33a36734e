// Package appstate holds the application-wide view and session state. One
// owner (the TUI root model or a server session) creates it and hands the
// pointer to each screen.
package appstate

import (
	"slices"
	"strings"
	"sync"

	"github.com/abhisek/tutorly/internal/model"
)

// View is a top-level screen.
type View int

const (
	ViewDashboard View = iota
	ViewTutor
	ViewTranslator
	ViewNews
	ViewQuiz
	ViewPlanner
	ViewSettings
	ViewHistory
	ViewSetup
)

var viewNames = map[View]string{
	ViewDashboard:  "Dashboard",
	ViewTutor:      "Tutor",
	ViewTranslator: "Translator",
	ViewNews:       "News",
	ViewQuiz:       "Quiz",
	ViewPlanner:    "Planner",
	ViewSettings:   "Settings",
	ViewHistory:    "History",
	ViewSetup:      "Setup",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return "Unknown"
}

// Views returns the navigable views in menu order. Setup is not one of
// them.
func Views() []View {
	return []View{ViewDashboard, ViewTutor, ViewTranslator, ViewNews, ViewQuiz, ViewHistory, ViewPlanner, ViewSettings}
}

// Theme is the colour scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme returns ThemeLight for "light" and ThemeDark otherwise.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeLight)) {
		return ThemeLight
	}
	return ThemeDark
}

// Locale values used for news and UI copy.
const (
	LocaleEnglish = "en"
	LocaleBangla  = "bn"
)

// User is the signed-in learner.
type User struct {
	ID          string
	Email       string
	DisplayName string
}

// State is the application state. Methods are safe for concurrent use.
type State struct {
	mu sync.RWMutex

	configured bool
	view       View
	subject    model.Subject
	theme      Theme
	locale     string
	weakTopics []string
	user       *User
}

// New returns the initial state. When no model credential is configured
// the Setup view is shown and navigation is locked.
func New(configured bool) *State {
	s := &State{
		configured: configured,
		view:       ViewDashboard,
		subject:    model.SubjectMath,
		theme:      ThemeDark,
		locale:     LocaleEnglish,
	}
	if !configured {
		s.view = ViewSetup
	}
	return s
}

// Configured reports whether a model credential was found at startup.
func (s *State) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configured
}

// View returns the selected view.
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Navigate selects v. It reports false, leaving the view unchanged, when
// the app is unconfigured or v is Setup.
func (s *State) Navigate(v View) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.configured || v == ViewSetup || v < ViewDashboard || v > ViewSetup {
		return false
	}
	s.view = v
	return true
}

// Subject returns the selected subject.
func (s *State) Subject() model.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subject
}

// SetSubject selects a subject. Blank names are ignored.
func (s *State) SetSubject(subject model.Subject) {
	if strings.TrimSpace(string(subject)) == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = subject
}

// Theme returns the colour scheme.
func (s *State) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme sets the colour scheme.
func (s *State) SetTheme(t Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = t
}

// ToggleTheme flips between dark and light and returns the new theme.
func (s *State) ToggleTheme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == ThemeDark {
		s.theme = ThemeLight
	} else {
		s.theme = ThemeDark
	}
	return s.theme
}

// Locale returns the content locale.
func (s *State) Locale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

// SetLocale sets the content locale; anything but "bn" means English.
func (s *State) SetLocale(locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.EqualFold(locale, LocaleBangla) {
		s.locale = LocaleBangla
		return
	}
	s.locale = LocaleEnglish
}

// WeakTopics returns a copy of the weak-topic list.
func (s *State) WeakTopics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.weakTopics)
}

// MergeWeakTopics appends topics not yet listed, keeping first-seen order.
// It returns how many were added.
func (s *State) MergeWeakTopics(topics ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(s.weakTopics, t) {
			continue
		}
		s.weakTopics = append(s.weakTopics, t)
		added++
	}
	return added
}

// RemoveWeakTopic drops topic from the list.
func (s *State) RemoveWeakTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weakTopics = slices.DeleteFunc(s.weakTopics, func(t string) bool { return t == topic })
}

// User returns the signed-in user, or nil for a guest.
func (s *State) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SignIn records the signed-in user.
func (s *State) SignIn(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// SignOut forgets the user.
func (s *State) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// ApplyProfile loads saved preferences.
func (s *State) ApplyProfile(p model.Profile) {
	s.mu.Lock()
	if p.Theme != "" {
		s.theme = ParseTheme(p.Theme)
	}
	if p.DefaultSubject != "" {
		s.subject = p.DefaultSubject
	}
	s.mu.Unlock()

	if p.Locale != "" {
		s.SetLocale(p.Locale)
	}
	s.MergeWeakTopics(p.WeakTopics...)
}

// Profile returns the preferences to save for userID.
func (s *State) Profile(userID string) model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := model.Profile{
		UserID:         userID,
		Theme:          string(s.theme),
		Locale:         s.locale,
		DefaultSubject: s.subject,
		WeakTopics:     slices.Clone(s.weakTopics),
	}
	if s.user != nil {
		p.Email = s.user.Email
		p.DisplayName = s.user.DisplayName
	}
	return p
}
