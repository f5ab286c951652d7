package tvmaze

import (
	"html"
	"regexp"
	"time"

	"github.com/episodarr/episodarr/pkg/show"
)

type searchResult struct {
	Score float64 `json:"score"`
	Show  apiShow `json:"show"`
}

type apiShow struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Language     string   `json:"language"`
	Genres       []string `json:"genres"`
	Status       string   `json:"status"`
	Runtime      int      `json:"runtime"`
	Premiered    string   `json:"premiered"`
	OfficialSite string   `json:"officialSite"`
	URL          string   `json:"url"`
	Summary      string   `json:"summary"`
	Network      *struct {
		Name string `json:"name"`
	} `json:"network"`
	WebChannel *struct {
		Name string `json:"name"`
	} `json:"webChannel"`
	Rating struct {
		Average float64 `json:"average"`
	} `json:"rating"`
	Image struct {
		Medium   string `json:"medium"`
		Original string `json:"original"`
	} `json:"image"`
}

type apiEpisode struct {
	ID      int64  `json:"id"`
	Season  int    `json:"season"`
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Airdate string `json:"airdate"`
	Airtime string `json:"airtime"`
	Runtime int    `json:"runtime"`
	Summary string `json:"summary"`
}

func (s apiShow) toInfo() ShowInfo {
	details := show.Details{
		Title:        s.Name,
		Genres:       s.Genres,
		Status:       s.Status,
		Rating:       s.Rating.Average,
		Poster:       s.Image.Medium,
		Summary:      stripTags(s.Summary),
		Language:     s.Language,
		Runtime:      s.Runtime,
		OfficialSite: s.OfficialSite,
		URL:          s.URL,
	}

	// broadcast networks and streaming channels are mutually exclusive upstream
	if s.Network != nil {
		details.Network = s.Network.Name
	} else if s.WebChannel != nil {
		details.Network = s.WebChannel.Name
	}

	if s.Premiered != "" {
		if premiered, err := time.Parse("2006-01-02", s.Premiered); err == nil {
			details.Premiered = premiered
		}
	}

	return ShowInfo{
		ID:      ShowID(s.ID),
		Details: details,
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags removes the html markup TVMaze embeds in summary fields.
func stripTags(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}
