// Package models defines the catalog entities served by the application.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// MediaType represents the type of media content
type MediaType string

// Media type constants
const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// MediaItem is either a *Movie or a *TVSeries. The set of implementations is
// closed; callers switch on the concrete type.
type MediaItem interface {
	Base() MediaBase
	mediaItem()
}

// MediaBase holds the fields shared by movies and TV series
type MediaBase struct {
	ID           int       `json:"id"`
	MediaType    MediaType `json:"media_type,omitempty"`
	PosterPath   *string   `json:"poster_path"`
	BackdropPath *string   `json:"backdrop_path"`
	VoteAverage  float64   `json:"vote_average"`
	Popularity   float64   `json:"popularity"`
}

// Base returns the shared fields.
func (b MediaBase) Base() MediaBase { return b }

// Movie is a single film as returned by the upstream catalog.
type Movie struct {
	MediaBase
	Title       string   `json:"title"`
	ReleaseDate string   `json:"release_date"`
	Runtime     *int     `json:"runtime"` // minutes
	Genres      []Genre  `json:"genres,omitempty"`
	Credits     *Credits `json:"credits,omitempty"`

	raw rawObject
}

func (*Movie) mediaItem() {}

// TVSeries is a television show as returned by the upstream catalog, plus the
// derived total runtime.
type TVSeries struct {
	MediaBase
	Name             string   `json:"name"`
	FirstAirDate     string   `json:"first_air_date"`
	EpisodeRunTime   []int    `json:"episode_run_time"`
	NumberOfSeasons  *int     `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int      `json:"number_of_episodes"`
	TotalRuntime     *int     `json:"total_runtime,omitempty"`
	Genres           []Genre  `json:"genres,omitempty"`
	Credits          *Credits `json:"credits,omitempty"`

	raw    rawObject
	merged bool
}

func (*TVSeries) mediaItem() {}

// Genre represents a genre from the upstream catalog
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreList is the genre list payload.
type GenreList struct {
	Genres []Genre `json:"genres"`
}

// CastMember is one credited performer.
type CastMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	ProfilePath *string `json:"profile_path"`
}

// Credits contains the cast embedded in detail responses
type Credits struct {
	Cast []CastMember `json:"cast"`
}

// ResultPage is one page of search results.
type ResultPage struct {
	Page         int        `json:"page"`
	Results      MediaItems `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

// MediaItems decodes a JSON array of mixed movie and TV objects.
type MediaItems []MediaItem

// UnmarshalJSON decodes each element according to its media_type.
func (m *MediaItems) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	items := make(MediaItems, 0, len(raws))
	for i, raw := range raws {
		item, err := DecodeMediaItem(raw)
		if err != nil {
			return fmt.Errorf("failed to decode result %d: %w", i, err)
		}
		items = append(items, item)
	}
	*m = items
	return nil
}

// DecodeMediaItem decodes a single upstream object. Objects tagged "tv" become
// a *TVSeries; everything else, including untagged objects, a *Movie.
func DecodeMediaItem(data []byte) (MediaItem, error) {
	var probe struct {
		MediaType MediaType `json:"media_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if probe.MediaType == MediaTypeTV {
		var series TVSeries
		if err := json.Unmarshal(data, &series); err != nil {
			return nil, err
		}
		return &series, nil
	}

	var movie Movie
	if err := json.Unmarshal(data, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// SortByPopularity orders items by popularity, highest first. Items with equal
// popularity keep their relative order.
func SortByPopularity(items []MediaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Base().Popularity > items[j].Base().Popularity
	})
}

type movieFields Movie

// UnmarshalJSON decodes the typed fields and keeps the full upstream object.
func (m *Movie) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*movieFields)(m)); err != nil {
		return err
	}
	return json.Unmarshal(data, &m.raw)
}

// MarshalJSON re-emits the upstream object unchanged.
func (m Movie) MarshalJSON() ([]byte, error) {
	if m.raw == nil {
		return json.Marshal(movieFields(m))
	}
	return m.raw.with(nil)
}

type tvFields TVSeries

// UnmarshalJSON decodes the typed fields and keeps the full upstream object.
func (t *TVSeries) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*tvFields)(t)); err != nil {
		return err
	}
	return json.Unmarshal(data, &t.raw)
}

// MarshalJSON re-emits the upstream object with the derived total_runtime and,
// after MergeDetails, the merged episode fields written over it.
func (t TVSeries) MarshalJSON() ([]byte, error) {
	if t.raw == nil {
		return json.Marshal(tvFields(t))
	}

	fields := map[string]any{}
	var drop []string
	if t.TotalRuntime != nil {
		fields["total_runtime"] = *t.TotalRuntime
	}
	if t.merged {
		if t.NumberOfSeasons != nil {
			fields["number_of_seasons"] = *t.NumberOfSeasons
		} else {
			drop = append(drop, "number_of_seasons")
		}
		fields["number_of_episodes"] = t.NumberOfEpisodes
		fields["episode_run_time"] = t.EpisodeRunTime
	}
	return t.raw.with(fields, drop...)
}

// ApplyTotalRuntime derives total_runtime from the series' own episode data.
func (t *TVSeries) ApplyTotalRuntime() {
	total := ComputeTotalRuntime(t.EpisodeRunTime, t.NumberOfEpisodes)
	t.TotalRuntime = &total
}

// MergeDetails copies the episode data of a full detail record onto t and
// recomputes total_runtime from it. A season count the details lack is
// cleared rather than kept from the search result.
func (t *TVSeries) MergeDetails(details *TVSeries) {
	runTimes := details.EpisodeRunTime
	if runTimes == nil {
		runTimes = []int{DefaultEpisodeRuntime}
	}

	t.NumberOfSeasons = nil
	if details.NumberOfSeasons != nil {
		seasons := *details.NumberOfSeasons
		t.NumberOfSeasons = &seasons
	}
	t.NumberOfEpisodes = details.NumberOfEpisodes
	t.EpisodeRunTime = runTimes
	total := ComputeTotalRuntime(details.EpisodeRunTime, details.NumberOfEpisodes)
	t.TotalRuntime = &total
	t.merged = true
}

// rawObject is an upstream JSON object kept verbatim.
type rawObject map[string]json.RawMessage

// with returns r encoded with fields written over it and the drop keys removed.
func (r rawObject) with(fields map[string]any, drop ...string) ([]byte, error) {
	if len(fields) == 0 && len(drop) == 0 {
		return json.Marshal(map[string]json.RawMessage(r))
	}

	out := make(map[string]json.RawMessage, len(r)+len(fields))
	for k, v := range r {
		out[k] = v
	}
	for _, k := range drop {
		delete(out, k)
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", k, err)
		}
		out[k] = b
	}
	return json.Marshal(out)
}
