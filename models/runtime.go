package models

// DefaultEpisodeRuntime is the per-episode length, in minutes, assumed when the
// upstream catalog lists no episode runtime for a series.
const DefaultEpisodeRuntime = 30

// ComputeTotalRuntime returns the minutes needed to watch every episode of a
// series. The first listed runtime is taken as canonical.
func ComputeTotalRuntime(episodeRuntimes []int, episodeCount int) int {
	if episodeCount <= 0 {
		return 0
	}

	perEpisode := DefaultEpisodeRuntime
	if len(episodeRuntimes) > 0 {
		perEpisode = episodeRuntimes[0]
	}
	return perEpisode * episodeCount
}
