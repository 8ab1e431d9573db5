package testutil

import (
	"fmt"
	"html"
	"strings"
)

// IntPtr is a helper for creating *int values in tests
func IntPtr(v int) *int {
	return &v
}

// ResourceOptions describes one <resource> element of an episode
type ResourceOptions struct {
	Type        int
	Identifiers []string // numeric key first, then text key
}

// EpisodeOptions contains options for generating an <episode> element
type EpisodeOptions struct {
	ID        int
	Number    string // epno text, "1", "S1", ...
	Kind      int    // epno type attribute
	Update    string
	Length    int
	AirDate   string
	Titles    map[string]string // lang -> title
	Summary   string
	Resources []ResourceOptions
	// OmitResources leaves out the <resources> element entirely
	OmitResources bool
}

// CrunchyrollResource builds the type 28 resource pointing at a Crunchyroll media ID.
func CrunchyrollResource(mediaID int, slug string) ResourceOptions {
	return ResourceOptions{Type: 28, Identifiers: []string{fmt.Sprint(mediaID), slug}}
}

// GenerateAnimeXML generates an AniDB HTTP API anime document in the shape
// api.anidb.net returns, limited to the elements the decoder reads.
func GenerateAnimeXML(animeID int, episodes []EpisodeOptions) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<anime id="%d" restricted="false">
	<type>TV Series</type>
	<episodecount>%d</episodecount>
	<titles>
		<title xml:lang="x-jat" type="main">Test Anime</title>
	</titles>
	<episodes>`, animeID, len(episodes))

	for i, ep := range episodes {
		// Default values
		if ep.ID == 0 {
			ep.ID = 100000 + i
		}
		if ep.Number == "" {
			ep.Number = fmt.Sprint(i + 1)
		}
		if ep.Kind == 0 {
			ep.Kind = 1
		}
		if ep.Update == "" {
			ep.Update = "2013-04-13"
		}
		if ep.Length == 0 {
			ep.Length = 25
		}
		if ep.AirDate == "" {
			ep.AirDate = "2013-04-07"
		}
		if ep.Titles == nil {
			ep.Titles = map[string]string{"en": fmt.Sprintf("Episode %s", ep.Number)}
		}

		fmt.Fprintf(&sb, `
		<episode id="%d" update="%s">
			<epno type="%d">%s</epno>
			<length>%d</length>
			<airdate>%s</airdate>`, ep.ID, ep.Update, ep.Kind, html.EscapeString(ep.Number), ep.Length, ep.AirDate)

		for lang, title := range ep.Titles {
			fmt.Fprintf(&sb, `
			<title xml:lang="%s">%s</title>`, lang, html.EscapeString(title))
		}
		if ep.Summary != "" {
			fmt.Fprintf(&sb, `
			<summary>%s</summary>`, html.EscapeString(ep.Summary))
		}

		if !ep.OmitResources {
			sb.WriteString(`
			<resources>`)
			for _, res := range ep.Resources {
				fmt.Fprintf(&sb, `
				<resource type="%d">
					<externalentity>`, res.Type)
				for _, id := range res.Identifiers {
					fmt.Fprintf(&sb, `
						<identifier>%s</identifier>`, html.EscapeString(id))
				}
				sb.WriteString(`
					</externalentity>
				</resource>`)
			}
			sb.WriteString(`
			</resources>`)
		}

		sb.WriteString(`
		</episode>`)
	}

	sb.WriteString(`
	</episodes>
</anime>`)

	return sb.String()
}

// GenerateErrorXML generates the document AniDB sends with a 200 status when it
// rejects a request (banned client, unknown anime, ...).
func GenerateErrorXML(code int, message string) string {
	if code == 0 {
		return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<error>%s</error>`, html.EscapeString(message))
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<error code="%d">%s</error>`, code, html.EscapeString(message))
}
