package appstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/tutorly/internal/model"
)

func TestUnconfiguredLocksSetup(t *testing.T) {
	s := New(false)
	assert.Equal(t, ViewSetup, s.View())
	assert.False(t, s.Navigate(ViewTutor))
	assert.Equal(t, ViewSetup, s.View())
}

func TestNavigate(t *testing.T) {
	s := New(true)
	assert.Equal(t, ViewDashboard, s.View())
	for _, v := range Views() {
		assert.True(t, s.Navigate(v), v.String())
		assert.Equal(t, v, s.View())
	}
	assert.False(t, s.Navigate(ViewSetup))
	assert.False(t, s.Navigate(View(42)))
	assert.Equal(t, ViewSettings, s.View())
}

func TestViewString(t *testing.T) {
	assert.Equal(t, "Translator", ViewTranslator.String())
	assert.Equal(t, "Unknown", View(-1).String())
	assert.NotContains(t, Views(), ViewSetup)
}

func TestMergeWeakTopics(t *testing.T) {
	s := New(true)
	assert.Equal(t, 2, s.MergeWeakTopics("Vectors", " Optics ", "Vectors", ""))
	assert.Equal(t, 1, s.MergeWeakTopics("Optics", "Acids"))
	assert.Equal(t, []string{"Vectors", "Optics", "Acids"}, s.WeakTopics())

	s.RemoveWeakTopic("Optics")
	assert.Equal(t, []string{"Vectors", "Acids"}, s.WeakTopics())

	got := s.WeakTopics()
	got[0] = "changed"
	assert.Equal(t, "Vectors", s.WeakTopics()[0])
}

func TestThemeAndLocale(t *testing.T) {
	s := New(true)
	assert.Equal(t, ThemeDark, s.Theme())
	assert.Equal(t, ThemeLight, s.ToggleTheme())
	assert.Equal(t, ThemeDark, s.ToggleTheme())
	assert.Equal(t, ThemeLight, ParseTheme("LIGHT"))
	assert.Equal(t, ThemeDark, ParseTheme("neon"))

	s.SetLocale("BN")
	assert.Equal(t, LocaleBangla, s.Locale())
	s.SetLocale("fr")
	assert.Equal(t, LocaleEnglish, s.Locale())
}

func TestProfileRoundTrip(t *testing.T) {
	s := New(true)
	s.SignIn(User{ID: "u1", Email: "a@b.com", DisplayName: "A"})
	s.SetSubject(model.SubjectBiology)
	s.SetSubject("  ")
	s.SetTheme(ThemeLight)
	s.SetLocale(LocaleBangla)
	s.MergeWeakTopics("Cells")

	p := s.Profile("u1")
	assert.Equal(t, model.Profile{
		UserID:         "u1",
		DisplayName:    "A",
		Email:          "a@b.com",
		Theme:          "light",
		Locale:         "bn",
		DefaultSubject: model.SubjectBiology,
		WeakTopics:     []string{"Cells"},
	}, p)

	fresh := New(true)
	fresh.ApplyProfile(p)
	assert.Equal(t, model.SubjectBiology, fresh.Subject())
	assert.Equal(t, ThemeLight, fresh.Theme())
	assert.Equal(t, LocaleBangla, fresh.Locale())
	assert.Equal(t, []string{"Cells"}, fresh.WeakTopics())
}

func TestSignOut(t *testing.T) {
	s := New(true)
	assert.Nil(t, s.User())
	s.SignIn(User{ID: "u1"})
	u := s.User()
	u.ID = "changed"
	assert.Equal(t, "u1", s.User().ID)
	s.SignOut()
	assert.Nil(t, s.User())
}
