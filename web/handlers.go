package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.messdienerplan.de/core/auth"
	"go.messdienerplan.de/core/metrics"
	"go.messdienerplan.de/core/policy"
	"go.messdienerplan.de/core/roster"
	"go.messdienerplan.de/core/table"
)

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	var rows, err = s.svc.Roster(r.Context())
	var p = page{Title: "Messdienerplan", Roster: rows}

	if err != nil {
		logFailure(r, err)
		p.Flash = &Notice{Kind: KindError, Message: roster.Message(err)}
	}
	s.render(w, r, "index", p)
}

func (s *Server) serveLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login", page{Title: "Anmelden"})
}

func (s *Server) serveLogin(w http.ResponseWriter, r *http.Request) {
	var form struct {
		Password string `schema:"password"`
	}
	if err := s.decodeForm(r, &form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !auth.CheckPassword(s.password, form.Password) {
		metrics.AdminLoginAttemptsTotal.WithLabelValues(metrics.Fail).Inc()
		log.WithField("remote", r.RemoteAddr).Info("rejected admin login")

		s.render(w, r, "login", page{
			Title: "Anmelden",
			Flash: &Notice{Kind: KindError, Message: "Falsches Passwort!"},
		})
		return
	}
	metrics.AdminLoginAttemptsTotal.WithLabelValues(metrics.Ok).Inc()

	var token, err = s.auth.Authorize(auth.Claims{Admin: true}, s.SessionTTL)
	if err != nil {
		log.WithField("err", err).Error("failed to issue admin session")
		http.Error(w, "failed to issue session", http.StatusInternalServerError)
		return
	}
	writeSession(w, r, token, s.SessionTTL)
	redirect(w, r, "/edit", KindSuccess, "Erfolgreich als Administrator angemeldet!")
}

func (s *Server) serveLogout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, r, SessionCookie)
	redirect(w, r, "/", KindInfo, "Erfolgreich abgemeldet!")
}

func (s *Server) serveEditForm(w http.ResponseWriter, r *http.Request) {
	var rows, err = s.svc.Roster(r.Context())
	var p = page{Title: "Plan bearbeiten", Roster: rows}

	if err != nil {
		logFailure(r, err)
		p.Flash = &Notice{Kind: KindError, Message: roster.Message(err)}
	}
	s.render(w, r, "edit", p)
}

// editForm is the roster editor form. Rows are keyed by position, as
// "rows.0.datum", "rows.0.messdiener" and "rows.0.art".
type editForm struct {
	AddRow   string `schema:"add_row"`
	SavePlan string `schema:"save_plan"`
	Rows     []struct {
		Datum      string `schema:"datum"`
		Messdiener string `schema:"messdiener"`
		Art        string `schema:"art"`
	} `schema:"rows"`
}

func (s *Server) serveEdit(w http.ResponseWriter, r *http.Request) {
	var form editForm
	if err := s.decodeForm(r, &form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var ctx = r.Context()

	if r.PostForm.Has("add_row") {
		if err := s.svc.AppendRosterRow(ctx); err != nil {
			logFailure(r, err)
			redirect(w, r, "/edit", KindError, roster.Message(err))
			return
		}
		redirect(w, r, "/edit", KindSuccess, "Neue Zeile hinzugefügt!")
		return
	} else if !r.PostForm.Has("save_plan") {
		http.Redirect(w, r, "/edit", http.StatusSeeOther)
		return
	}

	var rows = make([]table.RosterRow, 0, len(form.Rows))
	for _, row := range form.Rows {
		rows = append(rows, table.RosterRow{Date: row.Datum, Persons: row.Messdiener, Label: row.Art})
	}
	if err := s.svc.ReplaceRoster(ctx, rows); err != nil {
		logFailure(r, err)
		redirect(w, r, "/edit", KindError, roster.Message(err))
		return
	}
	redirect(w, r, "/", KindSuccess, "Plan erfolgreich gespeichert!")
}

func (s *Server) serveQueues(w http.ResponseWriter, r *http.Request) {
	var queues, persons, err = s.svc.QueuesWithEnrollments(r.Context())
	var p = page{Title: "Wartelisten"}

	if err != nil {
		logFailure(r, err)
		p.Flash = &Notice{Kind: KindError, Message: roster.Message(err)}
	}
	for _, q := range queues {
		p.Queues = append(p.Queues, queueView{QueueRow: q, Persons: persons[q.ID]})
	}
	s.render(w, r, "queues", p)
}

func (s *Server) serveEnroll(w http.ResponseWriter, r *http.Request) {
	var form struct {
		Person  string `schema:"person"`
		QueueID int    `schema:"queue_id"`
	}
	if err := s.decodeForm(r, &form); err != nil {
		redirect(w, r, "/queues", KindError, roster.Message(policy.ErrInvalidQueue))
		return
	}

	if ok, msg := s.svc.Enroll(r.Context(), form.Person, form.QueueID); ok {
		redirect(w, r, "/queues", KindSuccess, msg)
	} else {
		redirect(w, r, "/queues", KindError, msg)
	}
}

func (s *Server) serveAddQueue(w http.ResponseWriter, r *http.Request) {
	var form struct {
		Name string `schema:"name"`
	}
	if err := s.decodeForm(r, &form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if queue, err := s.svc.AddQueue(r.Context(), form.Name); err != nil {
		logFailure(r, err)
		redirect(w, r, "/queues", KindError, roster.Message(err))
	} else {
		redirect(w, r, "/queues", KindSuccess, fmt.Sprintf("Warteliste „%s“ wurde angelegt.", queue.Name))
	}
}

func (s *Server) serveDeleteQueue(w http.ResponseWriter, r *http.Request) {
	var id, ok = queueID(w, r)
	if !ok {
		return
	} else if err := s.svc.DeleteQueue(r.Context(), id); err != nil {
		logFailure(r, err)
		redirect(w, r, "/queues", KindError, roster.Message(err))
		return
	}
	redirect(w, r, "/queues", KindSuccess, "Warteliste wurde gelöscht.")
}

func (s *Server) serveClearQueue(w http.ResponseWriter, r *http.Request) {
	var id, ok = queueID(w, r)
	if !ok {
		return
	} else if err := s.svc.ClearEnrollments(r.Context(), id); err != nil {
		logFailure(r, err)
		redirect(w, r, "/queues", KindError, roster.Message(err))
		return
	}
	redirect(w, r, "/queues", KindSuccess, "Alle Einträge der Warteliste wurden entfernt.")
}

func (s *Server) serveRemoveEnrollment(w http.ResponseWriter, r *http.Request) {
	var form struct {
		Person string `schema:"person"`
	}
	var id, ok = queueID(w, r)
	if !ok {
		return
	} else if err := s.decodeForm(r, &form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if err = s.svc.RemoveEnrollment(r.Context(), id, form.Person); err != nil {
		if err != roster.ErrNotEnrolled {
			logFailure(r, err)
		}
		redirect(w, r, "/queues", KindError, roster.Message(err))
		return
	}
	redirect(w, r, "/queues", KindSuccess, fmt.Sprintf("%s wurde aus der Warteliste entfernt.", strings.TrimSpace(form.Person)))
}

func (s *Server) decodeForm(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return s.decoder.Decode(dst, r.PostForm)
}

// queueID parses the {id} path value. If it's invalid, the request is
// redirected with a notice and false is returned.
func queueID(w http.ResponseWriter, r *http.Request) (int, bool) {
	var id, err = strconv.Atoi(r.PathValue("id"))
	if err != nil {
		redirect(w, r, "/queues", KindError, roster.Message(policy.ErrInvalidQueue))
		return 0, false
	}
	return id, true
}

func logFailure(r *http.Request, err error) {
	log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"err":    err,
	}).Warn("request failed")
}
