package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.messdienerplan.de/core/auth"
	"go.messdienerplan.de/core/roster"
	"go.messdienerplan.de/core/store"
	"go.messdienerplan.de/core/table"
)

func TestPublicPages(t *testing.T) {
	var s, _ = newTestServer(t)

	var rec = do(s, "GET", "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Finni, Lukas, Isabella")
	assert.Contains(t, rec.Body.String(), "Speicher: file")
	assert.Contains(t, rec.Body.String(), `href="/login"`)

	rec = do(s, "GET", "/queues", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Es gibt noch keine Wartelisten.")
	assert.NotContains(t, rec.Body.String(), "Neue Warteliste")

	rec = do(s, "GET", "/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	var s, _ = newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/edit"},
		{"POST", "/edit"},
		{"POST", "/admin/queues"},
		{"POST", "/admin/queues/1/delete"},
		{"POST", "/admin/queues/1/clear"},
		{"POST", "/admin/queues/1/remove"},
	} {
		var rec = do(s, tc.method, tc.path, url.Values{"name": {"x"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code, tc.path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), tc.path)
		assert.Equal(t, Notice{Kind: KindError, Message: "Sie müssen sich als Administrator anmelden!"},
			flashOf(t, rec), tc.path)
	}

	// A session signed by another secret is not accepted.
	var other, err = auth.NewKeyedAuth("another-secret")
	require.NoError(t, err)
	token, err := other.Authorize(auth.Claims{Admin: true}, DefaultSessionTTL)
	require.NoError(t, err)

	var rec = do(s, "GET", "/edit", nil, &http.Cookie{Name: SessionCookie, Value: token})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLoginAndLogout(t *testing.T) {
	var s, _ = newTestServer(t)

	var rec = do(s, "POST", "/login", url.Values{"password": {"wrong"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Falsches Passwort!")
	assert.Nil(t, cookieOf(rec, SessionCookie))

	var session = login(t, s)

	rec = do(s, "GET", "/edit", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="rows.0.messdiener" value="Finni, Lukas, Isabella"`)
	assert.Contains(t, rec.Body.String(), `href="/logout"`)

	rec = do(s, "GET", "/logout", nil, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, Notice{Kind: KindInfo, Message: "Erfolgreich abgemeldet!"}, flashOf(t, rec))

	var cleared = cookieOf(rec, SessionCookie)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestEditRoster(t *testing.T) {
	var s, svc = newTestServer(t)
	var ctx = context.Background()
	var session = login(t, s)

	var rec = do(s, "POST", "/edit", url.Values{"add_row": {"1"}}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/edit", rec.Header().Get("Location"))
	assert.Equal(t, Notice{Kind: KindSuccess, Message: "Neue Zeile hinzugefügt!"}, flashOf(t, rec))

	rows, err := svc.Roster(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	rec = do(s, "POST", "/edit", url.Values{
		"save_plan":         {"1"},
		"rows.0.datum":      {"27.07.2024"},
		"rows.0.messdiener": {" Finni, Lukas "},
		"rows.0.art":        {"Hochamt 10:00"},
		"rows.1.datum":      {""},
		"rows.1.messdiener": {""},
		"rows.2.datum":      {"03.08.2024"},
	}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, Notice{Kind: KindSuccess, Message: "Plan erfolgreich gespeichert!"}, flashOf(t, rec))

	rows, err = svc.Roster(ctx)
	require.NoError(t, err)
	assert.Equal(t, []table.RosterRow{
		{Date: "27.07.2024", Persons: "Finni, Lukas", Label: "Hochamt 10:00"},
		{Date: "03.08.2024"},
	}, rows)

	// Unknown form fields are rejected.
	rec = do(s, "POST", "/edit", url.Values{"save_plan": {"1"}, "bogus": {"x"}}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueSignUpAndAdministration(t *testing.T) {
	var s, svc = newTestServer(t)
	var ctx = context.Background()
	var session = login(t, s)

	for _, name := range []string{"Lektorendienst", "Ministranten", "Kollekte"} {
		var rec = do(s, "POST", "/admin/queues", url.Values{"name": {name}}, session)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, Notice{Kind: KindSuccess, Message: "Warteliste „" + name + "“ wurde angelegt."}, flashOf(t, rec))
	}
	var rec = do(s, "POST", "/admin/queues", url.Values{"name": {"  "}}, session)
	assert.Equal(t, Notice{Kind: KindError, Message: roster.Message(roster.ErrEmptyQueueName)}, flashOf(t, rec))

	// Sign-ups don't require a session.
	rec = do(s, "POST", "/queues/enroll", url.Values{"person": {"Finni"}, "queue_id": {"1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/queues", rec.Header().Get("Location"))
	assert.Equal(t, Notice{Kind: KindSuccess, Message: "Finni wurde in „Lektorendienst“ eingetragen."}, flashOf(t, rec))

	rec = do(s, "POST", "/queues/enroll", url.Values{"person": {"Finni"}, "queue_id": {"2"}})
	assert.Equal(t, KindSuccess, flashOf(t, rec).Kind)

	rec = do(s, "POST", "/queues/enroll", url.Values{"person": {"finni"}, "queue_id": {"3"}})
	assert.Equal(t, Notice{Kind: KindError, Message: "Du bist bereits in 2 Wartelisten eingetragen."}, flashOf(t, rec))

	rec = do(s, "POST", "/queues/enroll", url.Values{"person": {"Lukas"}, "queue_id": {"abc"}})
	assert.Equal(t, Notice{Kind: KindError, Message: "Diese Warteliste gibt es nicht."}, flashOf(t, rec))

	// The flash is shown once on the following page.
	rec = do(s, "GET", "/queues", nil, session, cookieOf(rec, FlashCookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Diese Warteliste gibt es nicht.")
	assert.Contains(t, rec.Body.String(), "<li>Finni")
	assert.Contains(t, rec.Body.String(), `action="/admin/queues/2/delete"`)
	assert.Equal(t, -1, cookieOf(rec, FlashCookie).MaxAge)

	rec = do(s, "POST", "/admin/queues/1/remove", url.Values{"person": {"FINNI"}}, session)
	assert.Equal(t, Notice{Kind: KindSuccess, Message: "FINNI wurde aus der Warteliste entfernt."}, flashOf(t, rec))

	rec = do(s, "POST", "/admin/queues/2/clear", nil, session)
	assert.Equal(t, KindSuccess, flashOf(t, rec).Kind)

	rec = do(s, "POST", "/admin/queues/3/delete", nil, session)
	assert.Equal(t, KindSuccess, flashOf(t, rec).Kind)

	rec = do(s, "POST", "/admin/queues/x/delete", nil, session)
	assert.Equal(t, KindError, flashOf(t, rec).Kind)

	queues, persons, err := svc.QueuesWithEnrollments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []table.QueueRow{{ID: 1, Name: "Lektorendienst"}, {ID: 2, Name: "Ministranten"}}, queues)
	assert.Empty(t, persons)
}

func newTestServer(t *testing.T) (*Server, *roster.Service) {
	var svc = roster.NewService(store.NewFileBackend(afero.NewMemMapFs(), "data"))
	var ka, err = auth.NewKeyedAuth("test-secret")
	require.NoError(t, err)

	return NewServer(svc, ka, "adminpass"), svc
}

func login(t *testing.T, s http.Handler) *http.Cookie {
	var rec = do(s, "POST", "/login", url.Values{"password": {"adminpass"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/edit", rec.Header().Get("Location"))
	require.Equal(t, Notice{Kind: KindSuccess, Message: "Erfolgreich als Administrator angemeldet!"}, flashOf(t, rec))

	var session = cookieOf(rec, SessionCookie)
	require.NotNil(t, session)
	require.True(t, session.HttpOnly)
	return session
}

func do(h http.Handler, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	var rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func cookieOf(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func flashOf(t *testing.T, rec *httptest.ResponseRecorder) Notice {
	var c = cookieOf(rec, FlashCookie)
	require.NotNil(t, c)

	var b, err = base64.RawURLEncoding.DecodeString(c.Value)
	require.NoError(t, err)

	var n Notice
	require.NoError(t, json.Unmarshal(b, &n))
	return n
}
