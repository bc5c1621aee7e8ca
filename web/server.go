// Package web serves the HTML interface of the roster: the public roster and
// queue pages, the sign-up form, and the admin-only roster editor and queue
// administration. Admin rights are held by a session cookie carrying an
// auth.Claims token, which is issued on presenting the admin password.
package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"
	"go.messdienerplan.de/core/auth"
	"go.messdienerplan.de/core/policy"
	"go.messdienerplan.de/core/roster"
	"go.messdienerplan.de/core/table"
)

// DefaultSessionTTL is the lifetime of an admin session.
const DefaultSessionTTL = 12 * time.Hour

//go:embed templates/*.html
var templateFS embed.FS

// Server is an http.Handler of the roster web interface.
type Server struct {
	// SessionTTL is the lifetime of issued admin sessions.
	SessionTTL time.Duration

	svc       *roster.Service
	auth      *auth.KeyedAuth
	password  string
	decoder   *schema.Decoder
	templates map[string]*template.Template
	mux       *http.ServeMux
}

// NewServer returns a Server of the Service. Admin sessions are signed and
// verified by |ka|, and are issued to holders of |adminPassword|.
func NewServer(svc *roster.Service, ka *auth.KeyedAuth, adminPassword string) *Server {
	var decoder = schema.NewDecoder()
	decoder.IgnoreUnknownKeys(false)

	var s = &Server{
		SessionTTL: DefaultSessionTTL,
		svc:        svc,
		auth:       ka,
		password:   adminPassword,
		decoder:    decoder,
		templates:  make(map[string]*template.Template),
		mux:        http.NewServeMux(),
	}
	for _, page := range []string{"index", "login", "edit", "queues"} {
		s.templates[page] = template.Must(template.New(page).ParseFS(templateFS,
			"templates/layout.html", "templates/"+page+".html"))
	}

	s.mux.HandleFunc("GET /{$}", s.serveIndex)
	s.mux.HandleFunc("GET /login", s.serveLoginForm)
	s.mux.HandleFunc("POST /login", s.serveLogin)
	s.mux.HandleFunc("GET /logout", s.serveLogout)
	s.mux.HandleFunc("GET /queues", s.serveQueues)
	s.mux.HandleFunc("POST /queues/enroll", s.serveEnroll)

	s.mux.Handle("GET /edit", s.requireAdmin(http.HandlerFunc(s.serveEditForm)))
	s.mux.Handle("POST /edit", s.requireAdmin(http.HandlerFunc(s.serveEdit)))
	s.mux.Handle("POST /admin/queues", s.requireAdmin(http.HandlerFunc(s.serveAddQueue)))
	s.mux.Handle("POST /admin/queues/{id}/delete", s.requireAdmin(http.HandlerFunc(s.serveDeleteQueue)))
	s.mux.Handle("POST /admin/queues/{id}/clear", s.requireAdmin(http.HandlerFunc(s.serveClearQueue)))
	s.mux.Handle("POST /admin/queues/{id}/remove", s.requireAdmin(http.HandlerFunc(s.serveRemoveEnrollment)))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// page is the data of every rendered template.
type page struct {
	Title   string
	Admin   bool
	Backend string
	Flash   *Notice

	Roster    []table.RosterRow
	Queues    []queueView
	MaxQueues int
}

type queueView struct {
	table.QueueRow
	Persons []string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, p page) {
	p.Admin = s.isAdmin(r)
	p.Backend = s.svc.Backend()
	p.MaxQueues = policy.MaxQueuesPerPerson

	if p.Flash == nil {
		p.Flash = readFlash(w, r)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := s.templates[name].ExecuteTemplate(w, "layout", p); err != nil {
		log.WithFields(log.Fields{"template": name, "err": err}).Warn("failed to render page")
	}
}

// isAdmin returns whether the request carries a valid admin session.
func (s *Server) isAdmin(r *http.Request) bool {
	var _, err = s.auth.Verify(readSession(r))
	return err == nil
}

// requireAdmin redirects requests lacking a valid admin session to the login page.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(r) {
			writeFlash(w, r, KindError, "Sie müssen sich als Administrator anmelden!")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// redirect to |to|, showing |message| on arrival.
func redirect(w http.ResponseWriter, r *http.Request, to string, kind Kind, message string) {
	writeFlash(w, r, kind, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
