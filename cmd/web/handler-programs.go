package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/myrjola/liftlog/internal/workout"
)

func (app *application) presetsGET(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, app.presets.List())
}

func (app *application) programsGET(w http.ResponseWriter, r *http.Request) {
	programs, err := app.workouts.ListPrograms(r.Context())
	if err != nil {
		app.fail(w, r, err)
		return
	}
	if programs == nil {
		programs = []workout.Program{}
	}
	app.writeJSON(w, r, http.StatusOK, programs)
}

type createProgramRequest struct {
	PresetID  string `json:"presetId"`
	StartDate string `json:"startDate"`
	Activate  bool   `json:"activate"`
}

// programsPOST generates a program from a preset. The start date defaults to today.
func (app *application) programsPOST(w http.ResponseWriter, r *http.Request) {
	var req createProgramRequest
	if err := readJSON(w, r, &req); err != nil {
		app.fail(w, r, err)
		return
	}
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if req.StartDate != "" {
		var err error
		if start, err = parseDate(req.StartDate); err != nil {
			app.fail(w, r, err)
			return
		}
	}
	graph, err := app.presets.Generate(req.PresetID, start)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	program, err := app.workouts.CreateProgram(r.Context(), graph, now)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	if req.Activate {
		if err = app.workouts.SetActiveProgram(r.Context(), program.ID); err != nil {
			app.fail(w, r, err)
			return
		}
	}
	app.writeJSON(w, r, http.StatusCreated, program)
}

type programResponse struct {
	Program     workout.Program           `json:"program"`
	CurrentWeek int                       `json:"currentWeek"`
	Templates   []workout.WorkoutTemplate `json:"templates"`
}

func (app *application) programGET(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	program, err := app.workouts.GetProgram(r.Context(), id)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	templates, err := app.workouts.ListWorkoutTemplates(r.Context(), id)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, programResponse{
		Program:     program,
		CurrentWeek: workout.CurrentWeek(program.StartDate, program.TotalWeeks, time.Now()),
		Templates:   templates,
	})
}

type updateProgramRequest struct {
	Name       *string `json:"name"`
	StartDate  *string `json:"startDate"`
	TotalWeeks *int    `json:"totalWeeks"`
}

// programPOST applies whichever of rename, reschedule and resize the body asks for.
func (app *application) programPOST(w http.ResponseWriter, r *http.Request) {
	var (
		ctx = r.Context()
		id  = r.PathValue("id")
		now = time.Now()
		req updateProgramRequest
	)
	if err := readJSON(w, r, &req); err != nil {
		app.fail(w, r, err)
		return
	}
	if req.Name == nil && req.StartDate == nil && req.TotalWeeks == nil {
		app.fail(w, r, fmt.Errorf("%w: nothing to update", workout.ErrInvalidInput))
		return
	}
	if req.Name != nil {
		if err := app.workouts.RenameProgram(ctx, id, *req.Name, now); err != nil {
			app.fail(w, r, err)
			return
		}
	}
	if req.StartDate != nil {
		start, err := parseDate(*req.StartDate)
		if err != nil {
			app.fail(w, r, err)
			return
		}
		if err = app.workouts.RescheduleProgram(ctx, id, start, now); err != nil {
			app.fail(w, r, err)
			return
		}
	}
	if req.TotalWeeks != nil {
		if err := app.workouts.ResizeProgram(ctx, id, *req.TotalWeeks, now); err != nil {
			app.fail(w, r, err)
			return
		}
	}
	program, err := app.workouts.GetProgram(ctx, id)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, program)
}

func (app *application) programDELETE(w http.ResponseWriter, r *http.Request) {
	if err := app.workouts.DeleteProgram(r.Context(), r.PathValue("id")); err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) programActivatePOST(w http.ResponseWriter, r *http.Request) {
	if err := app.workouts.SetActiveProgram(r.Context(), r.PathValue("id")); err != nil {
		app.fail(w, r, err)
		return
	}
	settings, err := app.workouts.GetSettings(r.Context())
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, settings)
}

type weekResponse struct {
	Week           int                       `json:"week"`
	RecommendedDay int                       `json:"recommendedDay"`
	Templates      []workout.WorkoutTemplate `json:"templates"`
}

func (app *application) programWeekGET(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	week, err := parseIntParam(r, "week")
	if err != nil {
		app.fail(w, r, err)
		return
	}
	templates, err := app.workouts.WeekSchedule(r.Context(), id, week)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	day, err := app.workouts.RecommendedDay(r.Context(), id)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	if templates == nil {
		templates = []workout.WorkoutTemplate{}
	}
	app.writeJSON(w, r, http.StatusOK, weekResponse{Week: week, RecommendedDay: day, Templates: templates})
}

func (app *application) todayGET(w http.ResponseWriter, r *http.Request) {
	plan, err := app.workouts.TodayPlan(r.Context(), time.Now())
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, plan)
}
