package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/myrjola/liftlog/internal/session"
	"github.com/myrjola/liftlog/internal/workout"
)

type startSessionRequest struct {
	TemplateID string `json:"templateId"`
	Quick      bool   `json:"quick"`
	Name       string `json:"name"`
}

// sessionPOST starts a workout from a template, or an ad hoc workout when only a name is given.
func (app *application) sessionPOST(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := readJSON(w, r, &req); err != nil {
		app.fail(w, r, err)
		return
	}
	var (
		s   *session.Session
		err error
	)
	switch {
	case req.TemplateID != "":
		s, err = app.sessions.StartFromTemplate(r.Context(), req.TemplateID, req.Quick)
	case req.Name != "":
		s, err = app.sessions.StartAdHoc(r.Context(), req.Name)
	default:
		err = fmt.Errorf("%w: templateId or name is required", workout.ErrInvalidInput)
	}
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, s.Snapshot(time.Now()))
}

type sessionResponse struct {
	Session session.Snapshot   `json:"session"`
	Cues    []session.TimedCue `json:"cues"`
}

// sessionGET returns the live session together with the cues raised since the previous poll.
func (app *application) sessionGET(w http.ResponseWriter, r *http.Request) {
	s, err := app.sessions.Current()
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, sessionResponse{Session: s.Snapshot(time.Now()), Cues: app.cues.Drain()})
}

// withSession runs act on the active session and responds with a fresh snapshot.
func (app *application) withSession(w http.ResponseWriter, r *http.Request, act func(s *session.Session) error) {
	s, err := app.sessions.Current()
	if err != nil {
		app.fail(w, r, err)
		return
	}
	if err = act(s); err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, s.Snapshot(time.Now()))
}

func (app *application) sessionPausePOST(w http.ResponseWriter, r *http.Request) {
	app.withSession(w, r, func(s *session.Session) error {
		return s.Pause(r.Context())
	})
}

func (app *application) sessionResumePOST(w http.ResponseWriter, r *http.Request) {
	app.withSession(w, r, func(s *session.Session) error {
		return s.Resume(r.Context())
	})
}

func (app *application) sessionSetsPOST(w http.ResponseWriter, r *http.Request) {
	var in session.SetInput
	if err := readJSON(w, r, &in); err != nil {
		app.fail(w, r, err)
		return
	}
	app.withSession(w, r, func(s *session.Session) error {
		_, err := s.LogSet(r.Context(), in)
		return err
	})
}

func (app *application) sessionSetDELETE(w http.ResponseWriter, r *http.Request) {
	app.withSession(w, r, func(s *session.Session) error {
		return s.DeleteSet(r.Context(), r.PathValue("setID"))
	})
}

type substituteRequest struct {
	Name string `json:"name"`
}

func (app *application) sessionSubstitutePOST(w http.ResponseWriter, r *http.Request) {
	var req substituteRequest
	if err := readJSON(w, r, &req); err != nil {
		app.fail(w, r, err)
		return
	}
	app.withSession(w, r, func(s *session.Session) error {
		_, err := s.Substitute(r.Context(), req.Name)
		return err
	})
}

func (app *application) sessionExercisesPOST(w http.ResponseWriter, r *http.Request) {
	var in session.CustomExercise
	if err := readJSON(w, r, &in); err != nil {
		app.fail(w, r, err)
		return
	}
	app.withSession(w, r, func(s *session.Session) error {
		_, err := s.AddCustomExercise(r.Context(), in)
		return err
	})
}

func (app *application) sessionCurrentPOST(w http.ResponseWriter, r *http.Request) {
	index, err := parseIntParam(r, "index")
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.withSession(w, r, func(s *session.Session) error {
		return s.GoTo(index)
	})
}

func (app *application) sessionFinishPOST(w http.ResponseWriter, r *http.Request) {
	app.endSession(w, r, (*session.Session).Finish)
}

func (app *application) sessionStopPOST(w http.ResponseWriter, r *http.Request) {
	app.endSession(w, r, (*session.Session).Stop)
}

func (app *application) endSession(
	w http.ResponseWriter,
	r *http.Request,
	end func(s *session.Session, ctx context.Context) (session.Result, error),
) {
	s, err := app.sessions.Current()
	if err != nil {
		app.fail(w, r, err)
		return
	}
	result, err := end(s, r.Context())
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, result)
}

// defaultRestIncrementSec is what rest/add extends the countdown by without a body.
const defaultRestIncrementSec = 30

type restRequest struct {
	Seconds int `json:"seconds"`
}

func (app *application) sessionRestStartPOST(w http.ResponseWriter, r *http.Request) {
	var req restRequest
	if err := readJSON(w, r, &req); err != nil {
		app.fail(w, r, err)
		return
	}
	app.withSession(w, r, func(s *session.Session) error {
		return s.StartRest(req.Seconds)
	})
}

func (app *application) sessionRestSkipPOST(w http.ResponseWriter, r *http.Request) {
	app.withSession(w, r, func(s *session.Session) error {
		return s.SkipRest()
	})
}

func (app *application) sessionRestAddPOST(w http.ResponseWriter, r *http.Request) {
	req := restRequest{Seconds: defaultRestIncrementSec}
	if err := readJSON(w, r, &req); err != nil {
		app.fail(w, r, err)
		return
	}
	app.withSession(w, r, func(s *session.Session) error {
		return s.AddRestTime(req.Seconds)
	})
}
