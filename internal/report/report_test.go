package report

import (
	"math"
	"testing"

	"github.com/wavegate/bs1770meter"
)

func flatWindows(n int, power bs1770.Power) []bs1770.Power {
	windows := make([]bs1770.Power, n)
	for i := range windows {
		windows[i] = power
	}

	return windows
}

func TestSummarizeComputesPerTrackAndAlbumLoudness(t *testing.T) {
	quiet := bs1770.FromLKFS(-30)
	loud := bs1770.FromLKFS(-14)

	album := Summarize([]Track{
		{Path: "a.flac", Windows: flatWindows(20, quiet)},
		{Path: "b.flac", Windows: flatWindows(20, loud)},
	})

	if len(album.Tracks) != 2 {
		t.Fatalf("expected 2 track results, got %d", len(album.Tracks))
	}

	if math.Abs(album.Tracks[0].LoudnessLKFS-(-30)) > 0.01 {
		t.Fatalf("track a LKFS = %v, want ~-30", album.Tracks[0].LoudnessLKFS)
	}

	if math.Abs(album.Tracks[1].LoudnessLKFS-(-14)) > 0.01 {
		t.Fatalf("track b LKFS = %v, want ~-14", album.Tracks[1].LoudnessLKFS)
	}

	if album.StdDevTrackLoudnessLKFS <= 0 {
		t.Fatal("expected nonzero spread between two differently leveled tracks")
	}
}

func TestSummarizeOnEmptyInputIsZeroValued(t *testing.T) {
	album := Summarize(nil)

	if len(album.Tracks) != 0 {
		t.Fatalf("expected no track results, got %d", len(album.Tracks))
	}

	if album.MeanTrackLoudnessLKFS != 0 || album.StdDevTrackLoudnessLKFS != 0 {
		t.Fatal("expected zero-valued statistics for an empty album")
	}
}
