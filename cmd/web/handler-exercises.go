package main

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/myrjola/liftlog/internal/errors"
	"github.com/yuin/goldmark"
)

// exerciseSuggestionGET returns the progressive overload suggestion. targetReps is the planned range, e.g. "8-10".
func (app *application) exerciseSuggestionGET(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	suggestion, err := app.workouts.ProgressiveOverloadSuggestion(r.Context(), name, r.URL.Query().Get("targetReps"))
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, suggestion)
}

type substitutesResponse struct {
	Name        string   `json:"name"`
	Substitutes []string `json:"substitutes"`
}

func (app *application) exerciseSubstitutesGET(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	substitutes := app.substitutes.SubstitutesFor(name)
	if substitutes == nil {
		substitutes = []string{}
	}
	app.writeJSON(w, r, http.StatusOK, substitutesResponse{Name: name, Substitutes: substitutes})
}

type infoResponse struct {
	Name        string   `json:"name"`
	Markdown    string   `json:"markdown"`
	HTML        string   `json:"html"`
	Substitutes []string `json:"substitutes"`
}

// exerciseInfoGET returns the form notes of an exercise as markdown and rendered HTML.
func (app *application) exerciseInfoGET(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	notes, ok := app.substitutes.NotesFor(name)
	if !ok {
		app.notFound(w, r)
		return
	}
	var html bytes.Buffer
	if err := goldmark.Convert([]byte(strings.TrimSpace(notes)), &html); err != nil {
		app.serverError(w, r, errors.Wrap(err, "render notes"))
		return
	}
	substitutes := app.substitutes.SubstitutesFor(name)
	if substitutes == nil {
		substitutes = []string{}
	}
	app.writeJSON(w, r, http.StatusOK, infoResponse{
		Name:        name,
		Markdown:    notes,
		HTML:        html.String(),
		Substitutes: substitutes,
	})
}

type oneRepMaxResponse struct {
	Name        string  `json:"name"`
	HasData     bool    `json:"hasData"`
	EstimatedKg float64 `json:"estimatedKg"`
}

func (app *application) exerciseOneRepMaxGET(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	estimate, ok, err := app.workouts.EstimatedOneRepMax(r.Context(), name)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, oneRepMaxResponse{Name: name, HasData: ok, EstimatedKg: estimate})
}
