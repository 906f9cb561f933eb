package services

import (
	"fmt"
	"strings"

	"moviebrowser/models"
)

// Player builds iframe URLs for the third-party video player.
type Player struct {
	baseURL string
}

// NewPlayer creates a player URL builder rooted at baseURL.
func NewPlayer(baseURL string) *Player {
	return &Player{baseURL: strings.TrimRight(baseURL, "/")}
}

// EmbedURL returns the embed URL for a TMDB title.
func (p *Player) EmbedURL(mediaType models.MediaType, tmdbID int) string {
	return fmt.Sprintf("%s/%s?tmdb=%d", p.baseURL, mediaType, tmdbID)
}
