// Package services provides external service integrations.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"moviebrowser/config"
	"moviebrowser/models"
)

var (
	ErrAPIError     = errors.New("TMDB API error")
	ErrNotFound     = errors.New("TMDB resource not found")
	ErrRateLimited  = errors.New("TMDB API rate limited")
	ErrUnauthorized = errors.New("TMDB API key rejected")
)

// detailAppends asks TMDB to embed cast and similar titles in detail responses.
const detailAppends = "credits,similar"

// TMDBService handles interactions with The Movie Database API
type TMDBService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// errorResponse is the error body TMDB sends with non-2xx statuses.
type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// NewTMDBService creates a new TMDB service instance
func NewTMDBService(cfg config.TMDBConfig, logger zerolog.Logger) *TMDBService {
	return &TMDBService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// TrendingMovies returns this week's trending movies.
func (t *TMDBService) TrendingMovies(ctx context.Context) (json.RawMessage, error) {
	return t.fetchRaw(ctx, "trending movies", "/trending/movie/week", nil)
}

// PopularMovies returns the popular movies list.
func (t *TMDBService) PopularMovies(ctx context.Context) (json.RawMessage, error) {
	return t.fetchRaw(ctx, "popular movies", "/movie/popular", nil)
}

// MoviesByGenre discovers movies tagged with the given genre.
func (t *TMDBService) MoviesByGenre(ctx context.Context, genreID int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("with_genres", strconv.Itoa(genreID))
	return t.fetchRaw(ctx, "movies by genre", "/discover/movie", params)
}

// TrendingTV returns this week's trending TV series.
func (t *TMDBService) TrendingTV(ctx context.Context) (json.RawMessage, error) {
	return t.fetchRaw(ctx, "trending TV shows", "/trending/tv/week", nil)
}

// PopularTV returns the popular TV series list.
func (t *TMDBService) PopularTV(ctx context.Context) (json.RawMessage, error) {
	return t.fetchRaw(ctx, "popular TV shows", "/tv/popular", nil)
}

// GetMovie fetches movie details with credits and similar titles embedded.
func (t *TMDBService) GetMovie(ctx context.Context, id int) (*models.Movie, error) {
	params := url.Values{}
	params.Set("append_to_response", detailAppends)

	var movie models.Movie
	if err := t.fetch(ctx, "movie details", fmt.Sprintf("/movie/%d", id), params, &movie); err != nil {
		return nil, err
	}

	cast := 0
	if movie.Credits != nil {
		cast = len(movie.Credits.Cast)
	}
	t.logger.Debug().Int("id", id).Str("title", movie.Title).Int("cast", cast).Msg("Got movie details")

	return &movie, nil
}

// GetTVSeries fetches TV series details with credits and similar titles
// embedded, and derives the series' total runtime.
func (t *TMDBService) GetTVSeries(ctx context.Context, id int) (*models.TVSeries, error) {
	params := url.Values{}
	params.Set("append_to_response", detailAppends)

	var series models.TVSeries
	if err := t.fetch(ctx, "TV series details", fmt.Sprintf("/tv/%d", id), params, &series); err != nil {
		return nil, err
	}
	series.ApplyTotalRuntime()

	t.logger.Debug().Int("id", id).Str("name", series.Name).Int("total_runtime", *series.TotalRuntime).Msg("Got TV series details")

	return &series, nil
}

// LookupTV fetches the bare TV series record used to enrich search results.
func (t *TMDBService) LookupTV(ctx context.Context, id int) (*models.TVSeries, error) {
	var series models.TVSeries
	if err := t.fetch(ctx, fmt.Sprintf("TV details for %d", id), fmt.Sprintf("/tv/%d", id), nil, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// Genres returns the movie genre list.
func (t *TMDBService) Genres(ctx context.Context) (*models.GenreList, error) {
	var genres models.GenreList
	if err := t.fetch(ctx, "genres", "/genre/movie/list", nil, &genres); err != nil {
		return nil, err
	}
	return &genres, nil
}

// SearchMulti searches movies, TV series and people in one query.
func (t *TMDBService) SearchMulti(ctx context.Context, query string) (*models.ResultPage, error) {
	return t.search(ctx, "search for media", "/search/multi", query)
}

// SearchMovies searches movies only.
func (t *TMDBService) SearchMovies(ctx context.Context, query string) (*models.ResultPage, error) {
	return t.search(ctx, "search movies", "/search/movie", query)
}

func (t *TMDBService) search(ctx context.Context, op, path, query string) (*models.ResultPage, error) {
	params := url.Values{}
	params.Set("query", query)

	var page models.ResultPage
	if err := t.fetch(ctx, op, path, params, &page); err != nil {
		return nil, err
	}

	t.logger.Debug().Str("query", query).Int("results", len(page.Results)).Msg("Search completed")
	return &page, nil
}

func (t *TMDBService) fetchRaw(ctx context.Context, op, path string, params url.Values) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := t.fetch(ctx, op, path, params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// fetch issues one GET and decodes the body into result. Errors name op.
func (t *TMDBService) fetch(ctx context.Context, op, path string, params url.Values, result any) error {
	if err := t.doRequest(ctx, path, params, result); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", op, err)
	}
	return nil
}

func (t *TMDBService) doRequest(ctx context.Context, path string, params url.Values, result any) error {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_key", t.apiKey)

	endpoint := t.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.StatusMessage != "" {
			t.logger.Debug().
				Str("path", path).
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode TMDB response: %w", err)
	}

	return nil
}
