package grpc

import (
	"github.com/goccy/go-json"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Belphemur/AniBridge/internal/models"
)

// convertSeasonToProto converts a season listing to a protobuf Struct using the
// same field names as the JSON API.
func convertSeasonToProto(season *models.SeasonResult) (*structpb.Struct, error) {
	raw, err := json.Marshal(season)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

// convertSeasonFromProto is the inverse of convertSeasonToProto.
func convertSeasonFromProto(s *structpb.Struct) (*models.SeasonResult, error) {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return nil, err
	}
	var season models.SeasonResult
	if err := json.Unmarshal(raw, &season); err != nil {
		return nil, err
	}
	return &season, nil
}
