package grpc

import (
	"testing"

	"github.com/Belphemur/AniBridge/internal/models"
)

func TestConvertSeason_RoundTrip(t *testing.T) {
	in := &models.SeasonResult{
		ID:   "G6NQ5DWZ6",
		Name: "My Hero Academia",
		URL:  "https://example.test/series/G6NQ5DWZ6",
		Episodes: []models.SeasonEpisode{
			{Number: "1", Title: "Izuku Midoriya: Origin", URL: "https://example.test/e1"},
			{Number: "2", Title: "What It Takes to Be a Hero", URL: "https://example.test/e2"},
		},
	}

	pb, err := convertSeasonToProto(in)
	if err != nil {
		t.Fatalf("convertSeasonToProto: %v", err)
	}
	if got := pb.GetFields()["episodes"].GetListValue().GetValues(); len(got) != 2 {
		t.Fatalf("episodes list has %d values, want 2", len(got))
	}

	out, err := convertSeasonFromProto(pb)
	if err != nil {
		t.Fatalf("convertSeasonFromProto: %v", err)
	}
	if out.ID != in.ID || out.Name != in.Name || out.URL != in.URL || len(out.Episodes) != 2 || out.Episodes[1] != in.Episodes[1] {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestConvertSeasonToProto_OmitsEmptyURL(t *testing.T) {
	pb, err := convertSeasonToProto(&models.SeasonResult{ID: "x", Name: "y"})
	if err != nil {
		t.Fatalf("convertSeasonToProto: %v", err)
	}
	if _, ok := pb.GetFields()["url"]; ok {
		t.Error("empty url should be omitted")
	}
}
