// Package report aggregates per-track loudness results into album-level
// summaries. It reuses the 100ms power windows the core already computed
// for each track rather than recomputing anything, and leans on
// gonum.org/v1/gonum/stat for the summary statistics across tracks.
package report

import (
	"gonum.org/v1/gonum/stat"

	"github.com/wavegate/bs1770meter"
)

// Track holds one track's file path and its per-100ms power windows, as
// produced by the core measurement pipeline for that track alone.
type Track struct {
	Path    string
	Windows []bs1770.Power
}

// TrackResult is a track's individual gated loudness.
type TrackResult struct {
	Path         string
	LoudnessLKFS float64
}

// Album summarizes loudness across every track in a collection.
type Album struct {
	Tracks []TrackResult

	// AlbumLoudnessLKFS is the gated mean over every track's windows
	// concatenated, not the mean of the per-track LKFS values; BS.1770
	// gating is defined over power windows, not over already-integrated
	// loudness figures.
	AlbumLoudnessLKFS float64

	// MeanTrackLoudnessLKFS and StdDevTrackLoudnessLKFS describe the
	// spread of individual track loudness within the album.
	MeanTrackLoudnessLKFS   float64
	StdDevTrackLoudnessLKFS float64
}

// Summarize computes per-track and album-level loudness from a set of
// tracks' power windows.
func Summarize(tracks []Track) Album {
	album := Album{Tracks: make([]TrackResult, len(tracks))}

	var allWindows []bs1770.Power

	trackLoudness := make([]float64, len(tracks))

	for i, track := range tracks {
		lkfs := bs1770.GatedMean(track.Windows).LoudnessLKFS()

		album.Tracks[i] = TrackResult{Path: track.Path, LoudnessLKFS: lkfs}
		trackLoudness[i] = lkfs

		allWindows = append(allWindows, track.Windows...)
	}

	album.AlbumLoudnessLKFS = bs1770.GatedMean(allWindows).LoudnessLKFS()

	if len(trackLoudness) > 0 {
		album.MeanTrackLoudnessLKFS = stat.Mean(trackLoudness, nil)
		album.StdDevTrackLoudnessLKFS = stat.StdDev(trackLoudness, nil)
	}

	return album
}
