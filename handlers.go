package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"moviebrowser/api"
	"moviebrowser/config"
	"moviebrowser/models"
	"moviebrowser/services"
)

// App represents the application with its dependencies
type App struct {
	tmdbService *services.TMDBService
	enricher    *services.SearchEnricher
	player      *services.Player
	static      http.Handler
	logger      zerolog.Logger
}

// newApp wires the services described by cfg.
func newApp(cfg *config.Config, logger zerolog.Logger) *App {
	tmdbService := services.NewTMDBService(cfg.TMDB, logger)

	app := &App{
		tmdbService: tmdbService,
		enricher:    services.NewSearchEnricher(tmdbService, cfg.Enrich.MaxConcurrency, logger),
		player:      services.NewPlayer(cfg.Player.EmbedBaseURL),
		logger:      logger.With().Str("component", "http").Logger(),
	}
	if cfg.Server.StaticDir != "" {
		app.static = api.NewSPAHandler(cfg.Server.StaticDir)
	}
	return app
}

// newRouter registers every route. Fixed segments such as /tv/trending are
// registered before the {id} routes that would otherwise capture them.
// Routes sit on the root router so a wrong method is answered with 405.
func newRouter(app *App, middlewares ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(middlewares...)

	// mux skips r.Use middlewares when no route matches.
	r.NotFoundHandler = withMiddlewares(http.HandlerFunc(notFoundHandler), middlewares)
	r.MethodNotAllowedHandler = withMiddlewares(http.HandlerFunc(methodNotAllowedHandler), middlewares)

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/movies/trending", app.passthroughHandler("trending movies", app.tmdbService.TrendingMovies)).Methods(http.MethodGet)
	r.HandleFunc("/api/movies/popular", app.passthroughHandler("popular movies", app.tmdbService.PopularMovies)).Methods(http.MethodGet)
	r.HandleFunc("/api/movies/genre/{genreId}", app.moviesByGenreHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/movies/{id}", app.movieDetailsHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/tv/trending", app.passthroughHandler("trending TV shows", app.tmdbService.TrendingTV)).Methods(http.MethodGet)
	r.HandleFunc("/api/tv/popular", app.passthroughHandler("popular TV shows", app.tmdbService.PopularTV)).Methods(http.MethodGet)
	r.HandleFunc("/api/tv/{id}", app.tvDetailsHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/genres", app.genresHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/search/multi", app.searchMultiHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/search/movies", app.searchMoviesHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/embed/{mediaType}/{id}", app.embedHandler).Methods(http.MethodGet)

	if app.static != nil {
		r.PathPrefix("/").Handler(app.static).Methods(http.MethodGet, http.MethodHead)
	}

	return r
}

// withMiddlewares wraps h in the same order mux applies r.Use middlewares.
func withMiddlewares(h http.Handler, middlewares []mux.MiddlewareFunc) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i].Middleware(h)
	}
	return h
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	api.WriteError(w, http.StatusNotFound, "Not found")
}

func methodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	api.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to write response")
	}
}

// passthroughHandler relays an upstream list payload unchanged.
func (app *App) passthroughHandler(what string, fetch func(context.Context) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := fetch(r.Context())
		if err != nil {
			app.upstreamError(w, r, err, "Failed to fetch "+what)
			return
		}
		app.writeJSON(w, r, payload)
	}
}

func (app *App) moviesByGenreHandler(w http.ResponseWriter, r *http.Request) {
	genreID, ok := pathID(mux.Vars(r)["genreId"])
	if !ok {
		api.WriteError(w, http.StatusBadRequest, "Invalid genre ID")
		return
	}

	payload, err := app.tmdbService.MoviesByGenre(r.Context(), genreID)
	if err != nil {
		app.upstreamError(w, r, err, "Failed to fetch movies by genre")
		return
	}
	app.writeJSON(w, r, payload)
}

func (app *App) movieDetailsHandler(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathID(mux.Vars(r)["id"])
	if !ok {
		api.WriteError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	movie, err := app.tmdbService.GetMovie(r.Context(), movieID)
	if err != nil {
		app.upstreamError(w, r, err, "Failed to fetch movie details")
		return
	}
	app.writeJSON(w, r, movie)
}

func (app *App) tvDetailsHandler(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := pathID(mux.Vars(r)["id"])
	if !ok {
		api.WriteError(w, http.StatusBadRequest, "Invalid TV series ID")
		return
	}

	series, err := app.tmdbService.GetTVSeries(r.Context(), seriesID)
	if err != nil {
		app.upstreamError(w, r, err, "Failed to fetch TV series details")
		return
	}
	app.writeJSON(w, r, series)
}

func (app *App) genresHandler(w http.ResponseWriter, r *http.Request) {
	genres, err := app.tmdbService.Genres(r.Context())
	if err != nil {
		app.upstreamError(w, r, err, "Failed to fetch genres")
		return
	}
	app.writeJSON(w, r, genres)
}

// searchMultiHandler searches movies and TV together; TV results carry their
// episode counts and total runtime.
func (app *App) searchMultiHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		api.WriteError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	page, err := app.tmdbService.SearchMulti(r.Context(), query)
	if err != nil {
		app.upstreamError(w, r, err, "Failed to search for media")
		return
	}

	page.Results = app.enricher.Enrich(r.Context(), page.Results)
	app.writeJSON(w, r, page)
}

// searchMoviesHandler is the movie-only search kept for older clients.
func (app *App) searchMoviesHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		api.WriteError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	page, err := app.tmdbService.SearchMovies(r.Context(), query)
	if err != nil {
		app.upstreamError(w, r, err, "Failed to search movies")
		return
	}

	models.SortByPopularity(page.Results)
	app.writeJSON(w, r, page)
}

// embedHandler returns the player iframe URL for a title.
func (app *App) embedHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	mediaType := models.MediaType(vars["mediaType"])
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		api.WriteError(w, http.StatusBadRequest, "Invalid media type")
		return
	}
	tmdbID, ok := pathID(vars["id"])
	if !ok {
		api.WriteError(w, http.StatusBadRequest, "Invalid media ID")
		return
	}

	app.writeJSON(w, r, map[string]string{"url": app.player.EmbedURL(mediaType, tmdbID)})
}

// upstreamError logs the failure and answers with a generic 500.
func (app *App) upstreamError(w http.ResponseWriter, r *http.Request, err error, message string) {
	event := app.requestLogger(r).Error().Err(err).Str("path", r.URL.Path)
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		event = event.Str("hint", "check TMDB_API_KEY")
	case errors.Is(err, services.ErrRateLimited):
		event = event.Str("hint", "upstream rate limit reached")
	}
	event.Msg(message)
	api.WriteError(w, http.StatusInternalServerError, message)
}

func (app *App) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	if err := api.WriteJSON(w, http.StatusOK, v); err != nil {
		app.requestLogger(r).Error().Err(err).Msg("Failed to encode response")
	}
}

// requestLogger prefers the request-scoped logger set by api.RequestLogger.
func (app *App) requestLogger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &app.logger
}

func pathID(raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
