package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviebrowser/config"
	"moviebrowser/models"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *TMDBService {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewTMDBService(config.TMDBConfig{
		APIKey:  "test-api-key",
		BaseURL: server.URL + "/3/",
		Timeout: 5,
	}, zerolog.Nop())
}

func TestTMDBService_PassthroughEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params map[string]string
		call   func(*TMDBService) (json.RawMessage, error)
	}{
		{"trending movies", "/3/trending/movie/week", nil, func(s *TMDBService) (json.RawMessage, error) {
			return s.TrendingMovies(context.Background())
		}},
		{"popular movies", "/3/movie/popular", nil, func(s *TMDBService) (json.RawMessage, error) {
			return s.PopularMovies(context.Background())
		}},
		{"movies by genre", "/3/discover/movie", map[string]string{"with_genres": "28"}, func(s *TMDBService) (json.RawMessage, error) {
			return s.MoviesByGenre(context.Background(), 28)
		}},
		{"trending tv", "/3/trending/tv/week", nil, func(s *TMDBService) (json.RawMessage, error) {
			return s.TrendingTV(context.Background())
		}},
		{"popular tv", "/3/tv/popular", nil, func(s *TMDBService) (json.RawMessage, error) {
			return s.PopularTV(context.Background())
		}},
	}

	body := `{"page":1,"results":[{"id":1,"title":"A","extra":{"nested":true}}],"total_pages":1,"total_results":1}`

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, "test-api-key", r.URL.Query().Get("api_key"))
				for k, v := range tt.params {
					assert.Equal(t, v, r.URL.Query().Get(k))
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			})

			raw, err := tt.call(svc)
			require.NoError(t, err)
			assert.JSONEq(t, body, string(raw))
		})
	}
}

func TestTMDBService_GetMovie(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/movie/603", r.URL.Path)
		assert.Equal(t, "credits,similar", r.URL.Query().Get("append_to_response"))
		_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","runtime":136,
			"credits":{"cast":[{"id":6384,"name":"Keanu Reeves","character":"Neo"}]},
			"similar":{"results":[{"id":604}]}}`))
	})

	movie, err := svc.GetMovie(context.Background(), 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", movie.Title)
	require.NotNil(t, movie.Credits)
	assert.Equal(t, "Keanu Reeves", movie.Credits.Cast[0].Name)

	out, err := json.Marshal(movie)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"similar"`)
}

func TestTMDBService_GetTVSeriesAddsTotalRuntime(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/tv/1399", r.URL.Path)
		assert.Equal(t, "credits,similar", r.URL.Query().Get("append_to_response"))
		_, _ = w.Write([]byte(`{"id":1399,"name":"Game of Thrones","episode_run_time":[],"number_of_episodes":10,"number_of_seasons":1}`))
	})

	series, err := svc.GetTVSeries(context.Background(), 1399)
	require.NoError(t, err)
	require.NotNil(t, series.TotalRuntime)
	assert.Equal(t, 300, *series.TotalRuntime)
}

func TestTMDBService_LookupTVHasNoAppends(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/tv/66732", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("append_to_response"))
		_, _ = w.Write([]byte(`{"id":66732,"episode_run_time":[50],"number_of_episodes":34,"number_of_seasons":4}`))
	})

	series, err := svc.LookupTV(context.Background(), 66732)
	require.NoError(t, err)
	assert.Equal(t, []int{50}, series.EpisodeRunTime)
	assert.Equal(t, 34, series.NumberOfEpisodes)
	assert.Nil(t, series.TotalRuntime)
}

func TestTMDBService_Genres(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/genre/movie/list", r.URL.Path)
		_, _ = w.Write([]byte(`{"genres":[{"id":28,"name":"Action"},{"id":35,"name":"Comedy"}]}`))
	})

	genres, err := svc.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}}, genres.Genres)
}

func TestTMDBService_SearchEncodesQuery(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/search/multi", r.URL.Path)
		assert.Equal(t, "breaking bad & co", r.URL.Query().Get("query"))
		assert.Equal(t, "test-api-key", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":1396,"media_type":"tv","name":"Breaking Bad"},{"id":2,"media_type":"movie","title":"El Camino"}],"total_pages":1,"total_results":2}`))
	})

	page, err := svc.SearchMulti(context.Background(), "breaking bad & co")
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.IsType(t, &models.TVSeries{}, page.Results[0])
	assert.IsType(t, &models.Movie{}, page.Results[1])
}

func TestTMDBService_SearchMoviesPath(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/search/movie", r.URL.Path)
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
	})

	page, err := svc.SearchMovies(context.Background(), "matrix")
	require.NoError(t, err)
	assert.Empty(t, page.Results)
}

func TestTMDBService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"status_code":7,"status_message":"Invalid API key"}`, ErrUnauthorized},
		{"not found", http.StatusNotFound, `{"status_code":34,"status_message":"Not found"}`, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ``, ErrRateLimited},
		{"server error", http.StatusBadGateway, `oops`, ErrAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.TrendingMovies(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "failed to fetch trending movies")
		})
	}
}

func TestTMDBService_MalformedBody(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page":`))
	})

	_, err := svc.PopularTV(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch popular TV shows")
}

func TestTMDBService_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	svc := NewTMDBService(config.TMDBConfig{APIKey: "k", BaseURL: baseURL, Timeout: 1}, zerolog.Nop())

	_, err := svc.Genres(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch genres")
}
