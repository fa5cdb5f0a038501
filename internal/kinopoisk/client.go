// Package kinopoisk implements the movie catalog client for the
// kinopoisk.dev REST API. The client is deliberately forgiving: transport
// failures, non-200 responses, and malformed payloads degrade to an empty
// result and are logged, never propagated to the caller.
package kinopoisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Shi-Van/cinema-bot/internal/domain"
)

// Client talks to the kinopoisk.dev v1.4 API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// New constructs a Client. httpClient may be nil, in which case
// http.DefaultClient is used (timeouts are then the transport's defaults).
func New(baseURL, token string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    httpClient,
		log:     log,
	}
}

// movieDoc mirrors the subset of the upstream payload the bot consumes.
type movieDoc struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	AlternativeName string `json:"alternativeName"`
	Year            int    `json:"year"`
	Type            string `json:"type"`
	Description     string `json:"description"`
	ShortDesc       string `json:"shortDescription"`
	MovieLength     int    `json:"movieLength"`
	AgeRating       int    `json:"ageRating"`
	Rating          *struct {
		KP   float64 `json:"kp"`
		IMDB float64 `json:"imdb"`
	} `json:"rating"`
	Votes *struct {
		KP   int `json:"kp"`
		IMDB int `json:"imdb"`
	} `json:"votes"`
	Poster *struct {
		URL string `json:"url"`
	} `json:"poster"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Countries []struct {
		Name string `json:"name"`
	} `json:"countries"`
	ExternalID *struct {
		IMDB string `json:"imdb"`
	} `json:"externalId"`
}

type searchResponse struct {
	Docs []json.RawMessage `json:"docs"`
}

// Search queries the catalog for up to limit candidates matching query.
// Malformed documents are skipped individually; any request-level failure
// yields an empty slice.
func (c *Client) Search(ctx context.Context, query string, limit int) []domain.Movie {
	if limit < 1 {
		limit = 5
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(limit))

	body, ok := c.get(ctx, c.baseURL+"/movie/search?"+q.Encode())
	if !ok {
		return nil
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Error().Err(err).Msg("catalog search payload is not valid JSON")
		return nil
	}

	movies := make([]domain.Movie, 0, len(resp.Docs))
	for _, raw := range resp.Docs {
		var doc movieDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			c.log.Error().Err(err).Msg("skipping malformed catalog document")
			continue
		}
		m, err := doc.toMovie()
		if err != nil {
			c.log.Error().Err(err).Msg("skipping incomplete catalog document")
			continue
		}
		movies = append(movies, m)
	}
	return movies
}

// ByID fetches full details for one movie. Any failure yields (zero, false).
func (c *Client) ByID(ctx context.Context, id int) (domain.Movie, bool) {
	body, ok := c.get(ctx, fmt.Sprintf("%s/movie/%d", c.baseURL, id))
	if !ok {
		return domain.Movie{}, false
	}

	var doc movieDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		c.log.Error().Err(err).Int("movie_id", id).Msg("catalog detail payload is not valid JSON")
		return domain.Movie{}, false
	}
	m, err := doc.toMovie()
	if err != nil {
		c.log.Error().Err(err).Int("movie_id", id).Msg("catalog detail document incomplete")
		return domain.Movie{}, false
	}
	return m, true
}

// get performs one request and returns the body on HTTP 200. The request is
// built fresh per call; no retries, no backoff.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("building catalog request failed")
		return nil, false
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("X-API-KEY", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Msg("catalog request failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error().Int("status", resp.StatusCode).Msg("catalog returned non-200")
		return nil, false
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error().Err(err).Msg("reading catalog response failed")
		return nil, false
	}
	return buf, true
}

// toMovie validates the required fields and normalizes the document into
// the transport-independent record shape.
func (d movieDoc) toMovie() (domain.Movie, error) {
	if d.ID == 0 || d.Name == "" {
		return domain.Movie{}, fmt.Errorf("document missing id or name (id=%d)", d.ID)
	}

	m := domain.Movie{
		ID:               d.ID,
		Title:            d.Name,
		OriginalTitle:    d.AlternativeName,
		Year:             d.Year,
		Description:      d.Description,
		ShortDescription: d.ShortDesc,
		Length:           d.MovieLength,
		AgeRating:        d.AgeRating,
		Type:             d.Type,
		Votes:            map[string]int{"kp": 0, "imdb": 0},
		ExternalIDs:      map[string]string{},
	}
	if m.Type == "" {
		m.Type = "movie"
	}
	if d.Rating != nil {
		m.Rating = d.Rating.KP
	}
	if d.Votes != nil {
		m.Votes["kp"] = d.Votes.KP
		m.Votes["imdb"] = d.Votes.IMDB
	}
	if d.Poster != nil {
		m.PosterURL = d.Poster.URL
	}
	for _, g := range d.Genres {
		if g.Name != "" {
			m.Genres = append(m.Genres, g.Name)
		}
	}
	for _, cn := range d.Countries {
		if cn.Name != "" {
			m.Countries = append(m.Countries, cn.Name)
		}
	}
	if d.ExternalID != nil && d.ExternalID.IMDB != "" {
		m.ExternalIDs["imdb"] = d.ExternalID.IMDB
	}
	return m, nil
}
