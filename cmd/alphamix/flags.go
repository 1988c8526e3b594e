package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/book-expert/alphamix/internal/config"
)

// Flag names.
const (
	flagPitch              = "pitch"
	flagPlaybackSpeed      = "playback_speed"
	flagReverse            = "reverse"
	flagCrossfadeDuration  = "crossfade_duration"
	flagShortVersionLength = "short_version_length"
	flagLongVersionLength  = "long_version_length"
	flagUseLongVersion     = "use_long_version"
	flagFadeDuration       = "fade_duration"
	flagConfig             = "config"
	flagCacheMode          = "cache_mode"
	flagWorkers            = "workers"
	flagSeed               = "seed"
	flagHealth             = "health"
)

// Flag descriptions.
const (
	flagPitchDesc              = "Pitch shift in cents (100 cents = 1 semitone)."
	flagPlaybackSpeedDesc      = "Playback speed (1.0 for normal, > 1 for faster, < 1 for slower)."
	flagReverseDesc            = "Whether to reverse the audio."
	flagCrossfadeDurationDesc  = "Crossfade duration in milliseconds."
	flagShortVersionLengthDesc = "Number of different letters for short version audio."
	flagLongVersionLengthDesc  = "Number of different letters for long version audio."
	flagUseLongVersionDesc     = "Minimum word length to use the long version audio (currently unused)."
	flagFadeDurationDesc       = "Duration of fade-in and fade-out in milliseconds."
	flagConfigDesc             = "Path to a TOML configuration file (defaults to project.toml lookup)."
	flagCacheModeDesc          = "Modified asset cache mode: legacy or fingerprint."
	flagWorkersDesc            = "Number of letters generated or modified in parallel."
	flagSeedDesc               = "Seed for the random letter strings of new raw assets (0 picks one)."
	flagHealthDesc             = "Check the HTTP TTS service health and exit."
	usageFmt                   = "Usage: %s [flags] user_string\n\n"
	flagTerminator             = "--"
)

var (
	// errUsage indicates a command line that could not be parsed.
	errUsage = errors.New("invalid command line")
	// errNoUserString indicates that the positional phrase is missing.
	errNoUserString = errors.New("user_string is required")
)

// appFlags holds the parsed command line.
type appFlags struct {
	userString         string
	config             string
	cacheMode          string
	pitch              int
	playbackSpeed      float64
	crossfadeDuration  int
	shortVersionLength int
	longVersionLength  int
	useLongVersion     int
	fadeDuration       int
	workers            int
	seed               uint64
	reverse            bool
	health             bool
	// set records the flags given explicitly; only those override the
	// configuration.
	set map[string]bool
}

// parseFlags parses args (without the program name). The positional phrase
// may appear before, between or after the flags.
func parseFlags(program string, args []string, output io.Writer) (appFlags, error) {
	defaults := config.Default()
	flags := appFlags{set: map[string]bool{}}

	flagSet := flag.NewFlagSet(program, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprintf(flagSet.Output(), usageFmt, program)
		flagSet.PrintDefaults()
	}

	flagSet.IntVar(&flags.pitch, flagPitch, defaults.Alphamix.Pitch, flagPitchDesc)
	flagSet.Float64Var(&flags.playbackSpeed, flagPlaybackSpeed, defaults.Alphamix.PlaybackSpeed, flagPlaybackSpeedDesc)
	flagSet.BoolVar(&flags.reverse, flagReverse, defaults.Alphamix.Reverse, flagReverseDesc)
	flagSet.IntVar(&flags.crossfadeDuration, flagCrossfadeDuration, defaults.Alphamix.CrossfadeDuration,
		flagCrossfadeDurationDesc)
	flagSet.IntVar(&flags.shortVersionLength, flagShortVersionLength, defaults.Alphamix.ShortVersionLength,
		flagShortVersionLengthDesc)
	flagSet.IntVar(&flags.longVersionLength, flagLongVersionLength, defaults.Alphamix.LongVersionLength,
		flagLongVersionLengthDesc)
	flagSet.IntVar(&flags.useLongVersion, flagUseLongVersion, defaults.Alphamix.UseLongVersion, flagUseLongVersionDesc)
	flagSet.IntVar(&flags.fadeDuration, flagFadeDuration, defaults.Alphamix.FadeDuration, flagFadeDurationDesc)
	flagSet.StringVar(&flags.config, flagConfig, "", flagConfigDesc)
	flagSet.StringVar(&flags.cacheMode, flagCacheMode, defaults.Alphamix.CacheMode, flagCacheModeDesc)
	flagSet.IntVar(&flags.workers, flagWorkers, defaults.Alphamix.Workers, flagWorkersDesc)
	flagSet.Uint64Var(&flags.seed, flagSeed, 0, flagSeedDesc)
	flagSet.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)

	var positional []string

	for {
		err := flagSet.Parse(args)
		if err != nil {
			return flags, fmt.Errorf("%w: %w", errUsage, err)
		}

		if flagSet.NArg() == 0 {
			break
		}

		// After a "--" terminator everything left is positional.
		consumed := args[:len(args)-flagSet.NArg()]
		if len(consumed) > 0 && consumed[len(consumed)-1] == flagTerminator {
			positional = append(positional, flagSet.Args()...)

			break
		}

		positional = append(positional, flagSet.Arg(0))
		args = flagSet.Args()[1:]
	}

	flagSet.Visit(func(f *flag.Flag) { flags.set[f.Name] = true })

	switch {
	case len(positional) > 1:
		flagSet.Usage()

		return flags, fmt.Errorf("%w: unexpected arguments %q", errUsage, positional[1:])
	case len(positional) == 0 && !flags.health:
		flagSet.Usage()

		return flags, errNoUserString
	case len(positional) == 1:
		flags.userString = positional[0]
	}

	return flags, nil
}

// apply overlays the explicitly given flags onto cfg.
func (f appFlags) apply(cfg *config.Config) {
	overrides := map[string]func(){
		flagPitch:              func() { cfg.Alphamix.Pitch = f.pitch },
		flagPlaybackSpeed:      func() { cfg.Alphamix.PlaybackSpeed = f.playbackSpeed },
		flagReverse:            func() { cfg.Alphamix.Reverse = f.reverse },
		flagCrossfadeDuration:  func() { cfg.Alphamix.CrossfadeDuration = f.crossfadeDuration },
		flagShortVersionLength: func() { cfg.Alphamix.ShortVersionLength = f.shortVersionLength },
		flagLongVersionLength:  func() { cfg.Alphamix.LongVersionLength = f.longVersionLength },
		flagUseLongVersion:     func() { cfg.Alphamix.UseLongVersion = f.useLongVersion },
		flagFadeDuration:       func() { cfg.Alphamix.FadeDuration = f.fadeDuration },
		flagCacheMode:          func() { cfg.Alphamix.CacheMode = f.cacheMode },
		flagWorkers:            func() { cfg.Alphamix.Workers = f.workers },
	}

	for name, override := range overrides {
		if f.set[name] {
			override()
		}
	}
}
