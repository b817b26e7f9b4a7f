package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ju4n97/storyreel/internal/config"
	"github.com/ju4n97/storyreel/internal/model"
	"github.com/ju4n97/storyreel/internal/pipeline"
)

func narrateCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("narrate", flag.ContinueOnError)
	var (
		flagIn          = fs.String("in", "", "Text file to narrate, - for stdin")
		flagAudio       = fs.String("audio", "", "Recording to transcribe and narrate instead of -in")
		flagLanguage    = fs.String("language", "", "Spoken language of -audio")
		flagOut         = fs.String("out", "", "Output path (defaults to the artifact file name)")
		flagMode        = fs.String("mode", "", "Delivery mode: video, audio or slideshow")
		flagTranslateTo = fs.String("translate-to", "", "Translate every line into this language first")
	)
	flagConfigPath, flagSchemaPath := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*flagIn == "") == (*flagAudio == "") {
		return errors.New("exactly one of -in or -audio is required")
	}

	setupLogger(false)

	cfg, err := config.LoadAndValidate(*flagConfigPath, *flagSchemaPath)
	if err != nil {
		return err
	}

	manager := model.NewManager()
	if err := manager.LoadModelsFromConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load models from config: %w", err)
	}

	a, err := newApp(ctx, cfg, manager)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to release resources", "error", err)
		}
	}()

	var text string
	if *flagAudio != "" {
		text, err = transcribeFile(ctx, a, *flagAudio, *flagLanguage)
	} else {
		text, err = readText(*flagIn)
	}
	if err != nil {
		return err
	}

	artifact, err := a.narrator.Run(ctx, pipeline.Request{
		Text:        text,
		Mode:        pipeline.Mode(*flagMode),
		TranslateTo: *flagTranslateTo,
	})
	if err != nil {
		return err
	}

	out := *flagOut
	if out == "" {
		out = artifact.Filename
	}
	if err := os.WriteFile(out, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	slog.Info("Artifact written", "path", out, "format", artifact.Format, "duration", artifact.Duration)
	return printTimeline(os.Stdout, artifact)
}

func readText(name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return string(data), nil
}

func transcribeFile(ctx context.Context, a *app, name, language string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	text, err := a.stt.Transcribe(ctx, f, "", language)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe %s: %w", name, err)
	}
	slog.Debug("Recording transcribed", "path", name, "lines", pipeline.Count(text))

	return text, nil
}

// printTimeline writes one row per cue followed by any skipped units.
func printTimeline(w io.Writer, a *pipeline.Artifact) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tTEXT")
	for _, c := range a.Timeline {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.Index+1, clock(c.Start), clock(c.End), c.Text)
	}
	for _, warn := range a.Warnings {
		fmt.Fprintf(tw, "%d\tskipped\t\t%s\n", warn.Index+1, warn.Cause)
	}

	return tw.Flush()
}

// clock formats d as mm:ss.mmm.
func clock(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}
