package main

import (
	"fmt"
	"path/filepath"

	"github.com/wavegate/bs1770meter/internal/report"
)

// printAlbum prints one "%5.1f LKFS  <filename>" line per track in input
// order, followed by a final ALBUM row summarizing every track's windows
// gated together.
func printAlbum(album report.Album) {
	for _, track := range album.Tracks {
		fmt.Printf("%5.1f LKFS  %s\n", track.LoudnessLKFS, filepath.Base(track.Path))
	}

	fmt.Printf("%5.1f LKFS  ALBUM\n", album.AlbumLoudnessLKFS)
}
