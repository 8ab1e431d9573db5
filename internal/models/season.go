package models

// SeasonEpisode is one entry of a streaming season listing
type SeasonEpisode struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// SeasonResult is what the season locator returns for a title. The pipeline
// passes it through untouched.
type SeasonResult struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	URL      string          `json:"url,omitempty"`
	Episodes []SeasonEpisode `json:"episodes"`
}
