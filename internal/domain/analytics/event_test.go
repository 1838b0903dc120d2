package analytics

import (
	"testing"
	"time"

	"github.com/kailas-cloud/feedlock/internal/domain/filter"
)

func TestFromResult(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	shown := FromResult("u1", "p1",
		filter.NewResult(filter.Show, 0.9, filter.MethodKeyword, []string{"cooking"}, 12*time.Millisecond), now)
	if shown.Type != PostShown || shown.ProcessingTimeMs != 12 || shown.MatchedKeywords[0] != "cooking" {
		t.Errorf("shown = %+v", shown)
	}

	hidden := FromResult("u1", "p2",
		filter.NewResult(filter.Hide, 0.5, filter.MethodHybrid, nil, time.Millisecond), now)
	if hidden.Type != PostFiltered || hidden.Method != filter.MethodHybrid {
		t.Errorf("hidden = %+v", hidden)
	}
}
