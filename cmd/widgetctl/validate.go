package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/sendrec/vidwidget/internal/timeline"
	"github.com/sendrec/vidwidget/internal/validate"
	"github.com/sendrec/vidwidget/internal/widget"
)

var errInvalid = errors.New("configuration has problems")

func cmdValidate(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	cuesPath := fs.String("cues", "", "JSON file with timeline cues to check against the configuration")
	remote := fs.Bool("remote", false, "resolve option sets missing locally through the configured remote endpoint")
	timeout := fs.Duration("timeout", 10*time.Second, "timeout for each remote lookup")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: widgetctl validate [flags] <config.json>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("missing config path")
	}

	cfg, err := widget.LoadConfigFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var cues []timeline.Cue
	if *cuesPath != "" {
		if cues, err = loadCues(*cuesPath); err != nil {
			return err
		}
	}

	var fetcher widget.Fetcher
	if *remote && cfg.RemoteEndpoint != "" {
		src := widget.NewRemoteSource(cfg.RemoteEndpoint, &http.Client{Timeout: *timeout})
		fmt.Fprintf(out, "remote: %s\n", src.Endpoint())
		fetcher = src
	}

	report := analyze(ctx, cfg, fetcher, cues)
	for _, w := range report.warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, p := range report.problems {
		fmt.Fprintf(out, "problem: %s\n", p)
	}
	if len(report.problems) > 0 {
		return fmt.Errorf("%w: %d found", errInvalid, len(report.problems))
	}
	fmt.Fprintf(out, "ok: %d videos, %d option sets reachable\n", len(cfg.Videos), report.reachable)
	return nil
}

func loadCues(path string) ([]timeline.Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cues: %w", err)
	}
	var cues []timeline.Cue
	if err := json.Unmarshal(data, &cues); err != nil {
		return nil, fmt.Errorf("decode cues: %w", err)
	}
	for i, c := range cues {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("cue %d: %w", i, err)
		}
	}
	return cues, nil
}

type analysis struct {
	problems  []string
	warnings  []string
	reachable int
}

// analyze walks every option list reachable from the initial options and
// the cues, reporting payloads that point nowhere. Predefined sets that
// nothing reaches are warnings.
func analyze(ctx context.Context, cfg widget.Config, fetcher widget.Fetcher, cues []timeline.Cue) analysis {
	var a analysis

	videos := make(map[string]bool, len(cfg.Videos))
	for _, v := range cfg.Videos {
		videos[v.ID] = true
		if msg := validate.VideoTitle(v.Title); msg != "" {
			a.problems = append(a.problems, fmt.Sprintf("video %q: %s", v.ID, msg))
		}
	}

	resolved := make(map[string][]widget.Option)
	failed := make(map[string]bool)
	resolve := func(setID string) ([]widget.Option, bool) {
		if opts, ok := resolved[setID]; ok {
			return opts, true
		}
		if failed[setID] {
			return nil, false
		}
		if opts, ok := cfg.OptionSets[setID]; ok {
			resolved[setID] = opts
			return opts, true
		}
		if fetcher != nil {
			opts, err := fetcher.Fetch(ctx, setID)
			if err == nil {
				if verr := widget.ValidateOptions(opts); verr != nil {
					a.problems = append(a.problems, fmt.Sprintf("remote set %q: %v", setID, verr))
				}
				resolved[setID] = opts
				return opts, true
			}
		}
		failed[setID] = true
		return nil, false
	}

	type pending struct {
		label string
		opts  []widget.Option
	}
	queue := []pending{{label: "initial options", opts: cfg.Options}}
	visited := map[string]bool{}

	enqueue := func(from, setID string) {
		if visited[setID] {
			return
		}
		opts, ok := resolve(setID)
		if !ok {
			a.problems = append(a.problems, fmt.Sprintf("%s: option set %q cannot be resolved", from, setID))
			return
		}
		visited[setID] = true
		queue = append(queue, pending{label: fmt.Sprintf("set %q", setID), opts: opts})
	}

	for i, c := range cues {
		label := fmt.Sprintf("cue %d", i)
		if c.VideoID != "" && !videos[c.VideoID] {
			a.problems = append(a.problems, fmt.Sprintf("%s: unknown video %q", label, c.VideoID))
		}
		enqueue(label, c.SetID)
		if c.RevertTo != "" {
			enqueue(label, c.RevertTo)
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, o := range cur.opts {
			where := fmt.Sprintf("%s, option %q", cur.label, o.ID)
			if msg := validate.OptionText(o.Text); msg != "" {
				a.problems = append(a.problems, fmt.Sprintf("%s: %s", where, msg))
			}
			switch o.Action {
			case widget.ActionPlayVideo:
				if !videos[o.Payload] {
					a.problems = append(a.problems, fmt.Sprintf("%s: plays unknown video %q", where, o.Payload))
				}
			case widget.ActionOpenURL:
				if u, err := url.Parse(o.Payload); err != nil || u.Scheme == "" {
					a.problems = append(a.problems, fmt.Sprintf("%s: %q is not an absolute URL", where, o.Payload))
				}
			case widget.ActionChangeOptions:
				enqueue(where, o.Payload)
			}
		}
	}

	var unused []string
	for id := range cfg.OptionSets {
		if !visited[id] {
			unused = append(unused, id)
		}
	}
	sort.Strings(unused)
	for _, id := range unused {
		a.warnings = append(a.warnings, fmt.Sprintf("option set %q is never reached", id))
	}

	a.reachable = len(visited)
	return a
}
