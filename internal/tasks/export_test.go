package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/services"
	"github.com/desertthunder/pictune/internal/shared"
)

func TestEngine_Export(t *testing.T) {
	input := []models.SourceTrack{{Title: "A", Artist: "X"}, {Title: "B", Artist: "Y"}, {Title: "C", Artist: "Z"}}
	req := ExportRequest{Name: "beach sunset", Description: "from a photo"}

	t.Run("matches then assembles", func(t *testing.T) {
		dest := &mockDestination{searchResults: map[string]*services.Track{
			"A|X": track("a"),
			"C|Z": track("c"),
		}}

		result, err := quietEngine().Export(context.Background(), dest, input, req, nil)
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if result.Found() != 2 || len(result.Unmatched()) != 1 {
			t.Errorf("found=%d unmatched=%d", result.Found(), len(result.Unmatched()))
		}
		if result.Unmatched()[0].Source.Title != "B" {
			t.Errorf("unmatched = %+v", result.Unmatched())
		}
		if !result.Assembly.Complete() || result.Assembly.Total != 2 {
			t.Errorf("assembly = %+v", result.Assembly)
		}
		if len(dest.batches) != 1 || dest.batches[0][0] != "spotify:track:a" || dest.batches[0][1] != "spotify:track:c" {
			t.Errorf("batches = %v", dest.batches)
		}
	})

	t.Run("nothing matched creates nothing", func(t *testing.T) {
		dest := &mockDestination{}
		events := make(chan Event, 20)

		result, err := quietEngine().Export(context.Background(), dest, input, req, events)
		if !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if dest.creates != 0 || result.Assembly.Created {
			t.Error("no playlist should be created")
		}
		if len(result.Matches) != 3 {
			t.Errorf("matches = %d", len(result.Matches))
		}

		close(events)
		var last Event
		for ev := range events {
			last = ev
		}
		if last.Kind != EventFailed || last.Phase != PhaseAssemble {
			t.Errorf("last event = %+v", last)
		}
	})

	t.Run("cancelled before assembly", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		dest := &mockDestination{searchResults: map[string]*services.Track{"A|X": track("a")}}

		result, err := quietEngine().Export(ctx, dest, input, req, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if dest.calls() != 0 || result.Found() != 0 {
			t.Errorf("calls=%d found=%d", dest.calls(), result.Found())
		}
	})

	t.Run("partial assembly keeps matches", func(t *testing.T) {
		dest := &mockDestination{
			searchResults: map[string]*services.Track{"A|X": track("a"), "B|Y": track("b"), "C|Z": track("c")},
			failBatch:     2,
		}

		result, err := quietEngine(WithBatchSize(2)).Export(context.Background(), dest, input, req, nil)
		if !errors.Is(err, shared.ErrPartialAssembly) {
			t.Fatalf("expected ErrPartialAssembly, got %v", err)
		}
		if !result.Assembly.Created || result.Assembly.Confirmed != 2 || result.Assembly.Total != 3 {
			t.Errorf("assembly = %+v", result.Assembly)
		}
		if result.Found() != 3 {
			t.Errorf("found = %d", result.Found())
		}
	})
}
