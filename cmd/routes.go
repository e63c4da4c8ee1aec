package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"panterabot/internal/bot"
)

func (app *application) routes() (http.Handler, error) {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders)

	mux := pat.New()
	mux.Get("/healthz", standardMiddleware.Append(makeResponseJSON).ThenFunc(app.healthz))

	if err := bot.RegisterBotRoutes(mux, app.botDeps); err != nil {
		return nil, err
	}

	return standardMiddleware.Then(mux), nil
}
