package anidb

import (
	"fmt"
	"io"

	"github.com/Belphemur/AniBridge/internal/apperrors"
	"github.com/Belphemur/AniBridge/internal/models"
	"github.com/Belphemur/AniBridge/internal/xmlnode"
)

// DecodeAnime decodes an AniDB anime document. The document must be rooted at
// <anime>; every episode needs a numeric id and an epno element, and every
// resource a numeric type. Episodes and resources always come back as slices,
// however many elements the document holds.
func DecodeAnime(r io.Reader) (*models.Anime, error) {
	root, err := xmlnode.Decode(r, xmlnode.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return decodeAnime(root)
}

func decodeAnime(root *xmlnode.Node) (*models.Anime, error) {
	if root.Name != "anime" {
		return nil, apperrors.NewDecodeError("anime", "unexpected root element <%s>", root.Name)
	}

	anime := &models.Anime{Episodes: []models.Episode{}}
	if v, ok := root.Attr("id"); ok {
		anime.ID, _ = xmlnode.Int(v)
	}

	for i, el := range root.Child("episodes").Children("episode") {
		episode, err := decodeEpisode(el)
		if err != nil {
			return nil, &apperrors.DecodeError{Source: "anime", Err: fmt.Errorf("episode %d: %w", i, err)}
		}
		anime.Episodes = append(anime.Episodes, episode)
	}

	return anime, nil
}

func decodeEpisode(el *xmlnode.Node) (models.Episode, error) {
	rawID, ok := el.Attr("id")
	if !ok {
		return models.Episode{}, fmt.Errorf("missing id attribute")
	}
	id, ok := xmlnode.Int(rawID)
	if !ok {
		return models.Episode{}, fmt.Errorf("non-numeric id %q", xmlnode.String(rawID))
	}

	epno := el.Child("epno")
	if epno == nil {
		return models.Episode{}, fmt.Errorf("episode %d has no epno", id)
	}

	episode := models.Episode{
		ID:        id,
		Number:    decodeEpisodeNumber(epno),
		AirDate:   el.Child("airdate").String(),
		Summary:   el.Child("summary").String(),
		Resources: []models.ExternalResource{},
	}
	if v, ok := el.Attr("update"); ok {
		episode.UpdatedAt = xmlnode.String(v)
	}
	episode.LengthMinutes, _ = el.Child("length").Int()

	for _, title := range el.Children("title") {
		t := models.Title{Text: title.String()}
		if lang, ok := title.Attr("lang"); ok {
			t.Language = xmlnode.String(lang)
		}
		episode.Titles = append(episode.Titles, t)
	}

	for _, res := range el.Child("resources").Children("resource") {
		resource, err := decodeResource(res)
		if err != nil {
			return models.Episode{}, fmt.Errorf("episode %d: %w", id, err)
		}
		episode.Resources = append(episode.Resources, resource)
	}

	return episode, nil
}

func decodeEpisodeNumber(epno *xmlnode.Node) models.EpisodeNumber {
	number := models.EpisodeNumber{Kind: models.EpisodeKindUnknown}
	if value, ok := epno.Int(); ok {
		number.Value = value
	} else {
		number.Raw = epno.String()
	}
	if v, ok := epno.Attr("type"); ok {
		if kind, ok := xmlnode.Int(v); ok {
			number.Kind = models.EpisodeKind(kind)
		}
	}
	return number
}

// decodeResource reads the (numeric key, text key) identifier pair of the
// first external entity.
func decodeResource(el *xmlnode.Node) (models.ExternalResource, error) {
	rawType, ok := el.Attr("type")
	if !ok {
		return models.ExternalResource{}, fmt.Errorf("resource without type")
	}
	typeCode, ok := xmlnode.Int(rawType)
	if !ok {
		return models.ExternalResource{}, fmt.Errorf("non-numeric resource type %q", xmlnode.String(rawType))
	}

	resource := models.ExternalResource{TypeCode: typeCode}
	identifiers := el.Child("externalentity").Children("identifier")
	if len(identifiers) > 0 {
		if key, ok := identifiers[0].Int(); ok {
			resource.NumericKey = key
			resource.HasNumericKey = true
		} else {
			resource.TextKey = identifiers[0].String()
		}
	}
	if len(identifiers) > 1 {
		resource.TextKey = identifiers[1].String()
	}
	return resource, nil
}
