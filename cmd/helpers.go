package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/phuslu/log"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/config"
	"github.com/ziadkadry99/feedback-coach/internal/db"
	"github.com/ziadkadry99/feedback-coach/internal/editor"
	"github.com/ziadkadry99/feedback-coach/internal/feedback"
	"github.com/ziadkadry99/feedback-coach/internal/notify"
	"github.com/ziadkadry99/feedback-coach/internal/scheduler"
	"github.com/ziadkadry99/feedback-coach/internal/session"
	"github.com/ziadkadry99/feedback-coach/internal/workspace"
)

var errNotSignedIn = errors.New("not signed in; run `coach login` first")

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `coach init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// app bundles what every server-facing command needs.
type app struct {
	cfg     *config.Config
	db      *db.DB
	session *session.Store
	client  *backend.Client
	notes   *notify.Terminal
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	d, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", d.Path()).Msg("Opened local store")
	sess := session.NewStore(d)
	client := backend.New(cfg.BaseURL, sess,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		backend.WithRateLimit(cfg.RequestsPerSecond),
		backend.WithListTimeout(cfg.ListTimeout()),
		backend.WithUnauthorizedHandler(sess.Invalidate),
	)
	return &app{
		cfg:     cfg,
		db:      d,
		session: sess,
		client:  client,
		notes:   notify.NewTerminal(os.Stderr),
	}, nil
}

func (a *app) Close() error { return a.db.Close() }

func (a *app) requireLogin() error {
	if !a.session.SignedIn() {
		return errNotSignedIn
	}
	return nil
}

// workspaceSession is a document workspace with its scheduler running.
type workspaceSession struct {
	ws     *workspace.Controller
	buf    *editor.Buffer
	queue  *scheduler.Queue
	cancel context.CancelFunc
	done   chan struct{}
}

func (a *app) startWorkspace(ctx context.Context, opts ...workspace.Option) *workspaceSession {
	queue := scheduler.NewQueue(scheduler.RealClock())
	buf := editor.NewBuffer()
	opts = append([]workspace.Option{
		workspace.WithConfig(a.cfg.Workspace()),
		workspace.WithReviews(feedback.NewStore(a.db)),
	}, opts...)

	runCtx, cancel := context.WithCancel(ctx)
	s := &workspaceSession{
		ws:     workspace.New(a.client, buf, queue, a.notes, opts...),
		buf:    buf,
		queue:  queue,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		queue.Run(runCtx)
	}()
	return s
}

// sync returns once every task posted so far has run.
func (s *workspaceSession) sync() {
	done := make(chan struct{})
	s.queue.Post(func() { close(done) })
	<-done
}

// stop closes the document, waits for in-flight saves and stops the
// scheduler.
func (s *workspaceSession) stop() {
	s.ws.Close()
	s.ws.Wait()
	s.cancel()
	<-s.done
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}
	return id, nil
}

// parseChunk turns a 1-based chunk number into an index.
func parseChunk(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid chunk number %q", arg)
	}
	return n - 1, nil
}

// confirm asks a yes/no question; anything but yes is a no.
func confirm(label string) bool {
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := prompt.Run()
	return err == nil
}

func ask(label, def string, validate promptui.ValidateFunc) (string, error) {
	prompt := promptui.Prompt{Label: label, Default: def, Validate: validate}
	return prompt.Run()
}

func askSecret(label string, validate promptui.ValidateFunc) (string, error) {
	prompt := promptui.Prompt{Label: label, Mask: '*', Validate: validate}
	return prompt.Run()
}
