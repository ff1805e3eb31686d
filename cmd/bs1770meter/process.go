package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wavegate/bs1770meter/internal/measure"
	"github.com/wavegate/bs1770meter/internal/report"
	"github.com/wavegate/bs1770meter/internal/tags"
)

var errNoPaths = errors.New("expected at least one audio file path")

func processCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Measure integrated loudness for one or more audio files and an album summary",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "write-tags",
				Usage: "Write BS17704_TRACK_LOUDNESS and BS17704_ALBUM_LOUDNESS Vorbis comments into FLAC inputs",
			},
			&cli.BoolFlag{
				Name:  "skip-when-tags-present",
				Usage: "With --write-tags, leave a FLAC file untouched if it already carries both loudness tags",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return errNoPaths
			}

			tracks, measureErrs := measureAll(ctx, paths)
			album := report.Summarize(tracks)

			printAlbum(album)

			if cmd.Bool("write-tags") {
				if err := writeTags(album, cmd.Bool("skip-when-tags-present")); err != nil {
					measureErrs = append(measureErrs, err)
				}
			}

			return errors.Join(measureErrs...)
		},
	}
}

// measureAll decodes and measures every path concurrently, one goroutine
// per file bounded by runtime.NumCPU(), consistent with the core's own contract
// that each channel meter is an exclusive resource safely driven on its own
// thread. A failure on one file doesn't stop the others from being measured
// and reported; their errors are collected and returned alongside whatever
// tracks did succeed, in input order, for the caller to translate into a
// nonzero exit code.
func measureAll(ctx context.Context, paths []string) ([]report.Track, []error) {
	results := make([]*report.Track, len(paths))
	errs := make([]error, len(paths))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		group.Go(func() error {
			result, err := measure.File(ctx, path)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", path, err)

				return nil
			}

			results[i] = &report.Track{Path: path, Windows: result.Windows}

			return nil
		})
	}

	_ = group.Wait()

	tracks := make([]report.Track, 0, len(paths))

	var failures []error

	for i, track := range results {
		if track != nil {
			tracks = append(tracks, *track)
		}

		if errs[i] != nil {
			failures = append(failures, errs[i])
		}
	}

	return tracks, failures
}

// writeTags rewrites the loudness tags of every FLAC track in album,
// skipping non-FLAC inputs (the tag format is FLAC-specific), tracks whose
// existing tags already converge within tolerance, and, when
// skipWhenTagsPresent is set, any track that already carries both tags
// regardless of their accuracy.
func writeTags(album report.Album, skipWhenTagsPresent bool) error {
	var errs []error

	for _, track := range album.Tracks {
		if !strings.HasSuffix(strings.ToLower(track.Path), ".flac") {
			continue
		}

		existing, err := tags.ReadExisting(track.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", track.Path, err))

			continue
		}

		if skipWhenTagsPresent && existing.HasBothTags() {
			continue
		}

		if !existing.NeedsUpdate(track.LoudnessLKFS, album.AlbumLoudnessLKFS) {
			continue
		}

		if err := tags.Rewrite(track.Path, track.LoudnessLKFS, album.AlbumLoudnessLKFS); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", track.Path, err))
		}
	}

	return errors.Join(errs...)
}
