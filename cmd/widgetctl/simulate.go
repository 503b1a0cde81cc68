package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sendrec/vidwidget/internal/chat"
	"github.com/sendrec/vidwidget/internal/media"
	"github.com/sendrec/vidwidget/internal/session"
	"github.com/sendrec/vidwidget/internal/storage"
	"github.com/sendrec/vidwidget/internal/timeline"
	"github.com/sendrec/vidwidget/internal/widget"
)

type simulateOptions struct {
	script       string
	sessionPath  string
	cacheDir     string
	cuesPath     string
	remote       string
	duration     float64
	chatEndpoint string
	chatToken    string
	widgetID     string
	jsonState    bool
}

func cmdSimulate(ctx context.Context, args []string, stdin io.Reader, out io.Writer) error {
	var opts simulateOptions
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.StringVar(&opts.script, "script", "", "script file (default: stdin)")
	fs.StringVar(&opts.sessionPath, "session", "", "file backing the session store (default: in memory)")
	fs.StringVar(&opts.cacheDir, "cache", "", "materialise video sources into this directory")
	fs.StringVar(&opts.cuesPath, "cues", "", "JSON file with timeline cues")
	fs.StringVar(&opts.remote, "remote", "", "override the configured remote option endpoint")
	fs.Float64Var(&opts.duration, "duration", getEnvFloat("WIDGETCTL_VIDEO_SECONDS", 30), "length in seconds of every simulated video")
	fs.StringVar(&opts.chatEndpoint, "chat-endpoint", getEnv("WIDGETCTL_CHAT_ENDPOINT", ""), "vidwidget server that relays chat handoffs")
	fs.StringVar(&opts.chatToken, "chat-token", os.Getenv("WIDGETCTL_CHAT_TOKEN"), "session token for the chat relay")
	fs.StringVar(&opts.widgetID, "widget-id", "", "server-side widget id used for chat handoffs (default: config file name)")
	fs.BoolVar(&opts.jsonState, "json", false, "print state as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: widgetctl simulate [flags] <config.json>\n\nFlags:\n")
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
	if opts.remote != "" {
		cfg.RemoteEndpoint = opts.remote
	}
	if opts.widgetID == "" {
		base := filepath.Base(fs.Arg(0))
		opts.widgetID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	script := stdin
	if opts.script != "" {
		f, err := os.Open(opts.script)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer func() { _ = f.Close() }()
		script = f
	}

	sim, err := newSimulation(ctx, cfg, opts, out)
	if err != nil {
		return err
	}
	defer sim.stop()

	return sim.run(script)
}

type simulation struct {
	widget   *widget.Widget
	recorder *media.Recorder
	out      io.Writer
	json     bool
	cancel   context.CancelFunc
	done     chan error
}

// lockedWriter serialises output from the script loop and from callbacks
// that run on other goroutines.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type printNavigator struct{ out io.Writer }

func (n printNavigator) Open(url string) {
	fmt.Fprintf(n.out, "navigate: %s\n", url)
}

func newSimulation(ctx context.Context, cfg widget.Config, opts simulateOptions, rawOut io.Writer) (*simulation, error) {
	mu := &sync.Mutex{}
	out := lockedWriter{mu: mu, w: rawOut}

	var store widget.SessionStore = widget.NewMemorySession()
	if opts.sessionPath != "" {
		fileStore, err := session.OpenFile(opts.sessionPath)
		if err != nil {
			return nil, err
		}
		store = fileStore
	}

	var loader widget.Loader
	if opts.cacheDir != "" {
		var objects media.ObjectDownloader
		if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
			s, err := storage.New(ctx, storage.Config{
				Endpoint:  os.Getenv("S3_ENDPOINT"),
				Bucket:    bucket,
				AccessKey: os.Getenv("S3_ACCESS_KEY"),
				SecretKey: os.Getenv("S3_SECRET_KEY"),
				Region:    getEnv("S3_REGION", "eu-central-1"),
			})
			if err != nil {
				return nil, err
			}
			objects = s
		}
		loader = media.NewCacheLoader(opts.cacheDir, objects)
	}

	var chatCap widget.Chat
	if opts.chatEndpoint != "" {
		chatCap = chat.NewRemote(opts.chatEndpoint, opts.widgetID, opts.chatToken)
	}

	rec := media.NewRecorder(nil)
	rec.SetDefaultDuration(opts.duration)

	w, err := widget.New(cfg, widget.Deps{
		Media:     rec,
		Loader:    loader,
		Chat:      chatCap,
		Navigator: printNavigator{out: out},
		Session:   store,
		Report: func(err error) {
			fmt.Fprintf(out, "error: %v\n", err)
		},
	})
	if err != nil {
		return nil, err
	}

	if opts.cuesPath != "" {
		cues, err := loadCues(opts.cuesPath)
		if err != nil {
			return nil, err
		}
		tl, err := timeline.New(w, cues)
		if err != nil {
			return nil, err
		}
		w.OnTimeUpdate(tl.Observe)
	}

	runCtx, cancel := context.WithCancel(ctx)
	sim := &simulation{
		widget:   w,
		recorder: rec,
		out:      out,
		json:     opts.jsonState,
		cancel:   cancel,
		done:     make(chan error, 1),
	}
	go func() { sim.done <- w.Run(runCtx) }()
	return sim, nil
}

func (s *simulation) stop() {
	s.cancel()
	<-s.done
}

// settle waits for queued work and for the work that work queued, such as
// option changes triggered from time updates.
func (s *simulation) settle() {
	s.widget.State()
	s.widget.State()
}

func (s *simulation) run(script io.Reader) error {
	scanner := bufio.NewScanner(script)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := s.exec(text); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		s.settle()
		s.flushMedia()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return nil
}

func (s *simulation) exec(text string) error {
	fields := strings.Fields(text)
	cmd, args := fields[0], fields[1:]

	needArg := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s takes exactly one argument", cmd)
		}
		return args[0], nil
	}

	switch cmd {
	case "show":
		s.widget.Show()
	case "hide":
		s.widget.Hide()
	case "toggle":
		s.widget.Toggle()
	case "close":
		s.widget.CloseForSession()
	case "reset":
		s.widget.ResetClosedState()
	case "select":
		id, err := needArg()
		if err != nil {
			return err
		}
		s.widget.Select(id)
	case "advance":
		arg, err := needArg()
		if err != nil {
			return err
		}
		seconds, err := strconv.ParseFloat(arg, 64)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("advance needs a positive number of seconds, got %q", arg)
		}
		if !s.recorder.Advance(seconds) {
			fmt.Fprintln(s.out, "media: not playing")
		}
	case "wait":
		arg, err := needArg()
		if err != nil {
			return err
		}
		d, err := time.ParseDuration(arg)
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		time.Sleep(d)
	case "state":
		s.settle()
		return s.printState()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func (s *simulation) flushMedia() {
	for _, c := range s.recorder.Commands() {
		switch {
		case c.Src != "":
			fmt.Fprintf(s.out, "media: %s %s\n", c.Name, c.Src)
		case c.Name == "seek":
			fmt.Fprintf(s.out, "media: seek %g\n", c.At)
		default:
			fmt.Fprintf(s.out, "media: %s\n", c.Name)
		}
	}
}

func (s *simulation) printState() error {
	snap := s.widget.State()
	if s.json {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		fmt.Fprintln(s.out, string(data))
		return nil
	}

	ids := make([]string, len(snap.Options))
	for i, o := range snap.Options {
		ids[i] = o.ID
	}
	video := snap.CurrentVideoID
	if video == "" {
		video = "-"
	}
	fmt.Fprintf(s.out, "state: visible=%t minimized=%t closed=%t video=%s playing=%t options=[%s]\n",
		snap.Visible, snap.Minimized, snap.ClosedForSession, video, s.recorder.Playing(), strings.Join(ids, ","))
	return nil
}
