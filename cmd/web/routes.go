package main

import (
	"net/http"
)

func (app *application) routes() *http.ServeMux {
	mux := http.NewServeMux()

	var (
		base = func(next http.Handler) http.Handler {
			return app.recoverPanic(app.logAndTraceRequest(secureHeaders(noCache(app.crossOriginProtection(next)))))
		}
		api = func(h http.HandlerFunc) http.Handler {
			return base(app.timeout(h))
		}
		slow = func(h http.HandlerFunc) http.Handler {
			return base(app.slowTimeout(h))
		}
	)

	mux.Handle("GET /api/healthy", api(app.healthy))

	mux.Handle("GET /api/presets", api(app.presetsGET))

	mux.Handle("GET /api/programs", api(app.programsGET))
	mux.Handle("POST /api/programs", api(app.programsPOST))
	mux.Handle("GET /api/programs/{id}", api(app.programGET))
	mux.Handle("POST /api/programs/{id}", api(app.programPOST))
	mux.Handle("DELETE /api/programs/{id}", api(app.programDELETE))
	mux.Handle("POST /api/programs/{id}/activate", api(app.programActivatePOST))
	mux.Handle("GET /api/programs/{id}/weeks/{week}", api(app.programWeekGET))

	mux.Handle("GET /api/today", api(app.todayGET))

	mux.Handle("POST /api/session", api(app.sessionPOST))
	mux.Handle("GET /api/session", api(app.sessionGET))
	mux.Handle("POST /api/session/pause", api(app.sessionPausePOST))
	mux.Handle("POST /api/session/resume", api(app.sessionResumePOST))
	mux.Handle("POST /api/session/sets", api(app.sessionSetsPOST))
	mux.Handle("DELETE /api/session/sets/{setID}", api(app.sessionSetDELETE))
	mux.Handle("POST /api/session/substitute", api(app.sessionSubstitutePOST))
	mux.Handle("POST /api/session/exercises", api(app.sessionExercisesPOST))
	mux.Handle("POST /api/session/current/{index}", api(app.sessionCurrentPOST))
	mux.Handle("POST /api/session/finish", api(app.sessionFinishPOST))
	mux.Handle("POST /api/session/stop", api(app.sessionStopPOST))
	mux.Handle("POST /api/session/rest/start", api(app.sessionRestStartPOST))
	mux.Handle("POST /api/session/rest/skip", api(app.sessionRestSkipPOST))
	mux.Handle("POST /api/session/rest/add", api(app.sessionRestAddPOST))

	mux.Handle("GET /api/exercises/{name}/suggestion", api(app.exerciseSuggestionGET))
	mux.Handle("GET /api/exercises/{name}/substitutes", api(app.exerciseSubstitutesGET))
	mux.Handle("GET /api/exercises/{name}/info", api(app.exerciseInfoGET))
	mux.Handle("GET /api/exercises/{name}/one-rep-max", api(app.exerciseOneRepMaxGET))

	mux.Handle("GET /api/settings", api(app.settingsGET))
	mux.Handle("POST /api/settings", api(app.settingsPOST))
	mux.Handle("GET /api/export", slow(app.exportGET))

	mux.Handle("/", base(http.HandlerFunc(app.notFound)))

	return mux
}
