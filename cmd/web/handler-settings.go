package main

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/myrjola/liftlog/internal/errors"
	"github.com/myrjola/liftlog/internal/workout"
)

func (app *application) settingsGET(w http.ResponseWriter, r *http.Request) {
	settings, err := app.workouts.GetSettings(r.Context())
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, settings)
}

// settingsPOST replaces the user-editable settings. Fields missing from the body keep their stored values.
func (app *application) settingsPOST(w http.ResponseWriter, r *http.Request) {
	settings, err := app.workouts.GetSettings(r.Context())
	if err != nil {
		app.fail(w, r, err)
		return
	}
	if err = readJSON(w, r, &settings); err != nil {
		app.fail(w, r, err)
		return
	}
	var saved workout.Settings
	if saved, err = app.workouts.SaveSettings(r.Context(), settings, time.Now()); err != nil {
		app.fail(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, saved)
}

// exportGET streams a consistent SQLite snapshot of the whole store.
func (app *application) exportGET(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "liftlog-export-")
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "create export dir"))
		return
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()
	path := filepath.Join(dir, "liftlog.sqlite3")
	if err = app.db.Backup(r.Context(), path); err != nil {
		app.serverError(w, r, errors.Wrap(err, "backup database"))
		return
	}
	filename := "liftlog-" + time.Now().Format(dateLayout) + ".sqlite3"
	w.Header().Set("Content-Type", "application/vnd.sqlite3")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, path)
}
