package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.messdienerplan.de/core/metrics"
	"go.messdienerplan.de/core/table"
	"golang.org/x/oauth2"
)

// RemoteConfig configures a RemoteBackend.
type RemoteConfig struct {
	// API is the base URL of the GitHub REST API.
	API string
	// GistID identifies the gist holding the document.
	GistID string
	// Token is a static access token having the "gist" scope.
	Token string
	// Filename of the document within the gist.
	Filename string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// Defaults of RemoteConfig.
const (
	DefaultRemoteAPI      = "https://api.github.com"
	DefaultRemoteFilename = "messdiener_state.json"
	DefaultRemoteTimeout  = 10 * time.Second
)

// RemoteBackend is a Backend which persists all three logical tables as one
// JSON document (a table.State), stored as a file of a GitHub gist.
//
// RemoteBackend is always available: failures to read or write the document
// are logged, and reads degrade to the built-in defaults. Without credentials
// it serves defaults and drops writes. If the gist exists but lacks the
// document file, the first read creates it with defaults.
type RemoteBackend struct {
	cfg    RemoteConfig
	client *http.Client
}

// NewRemoteBackend returns a RemoteBackend of the RemoteConfig, with
// defaults applied to its zero-valued fields.
func NewRemoteBackend(cfg RemoteConfig) *RemoteBackend {
	if cfg.API == "" {
		cfg.API = DefaultRemoteAPI
	}
	if cfg.Filename == "" {
		cfg.Filename = DefaultRemoteFilename
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}
	cfg.API = strings.TrimSuffix(cfg.API, "/")

	var client = oauth2.NewClient(context.Background(),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	client.Timeout = cfg.Timeout

	return &RemoteBackend{cfg: cfg, client: client}
}

// Name returns "remote".
func (b *RemoteBackend) Name() string { return "remote" }

// Credentials returns whether both a gist ID and an access token are configured.
func (b *RemoteBackend) Credentials() bool { return b.cfg.GistID != "" && b.cfg.Token != "" }

// Seed reads the document, creating it with defaults if the gist lacks it.
func (b *RemoteBackend) Seed(ctx context.Context) { _ = b.load(ctx) }

// LoadRoster returns the roster of the document.
func (b *RemoteBackend) LoadRoster(ctx context.Context) ([]table.RosterRow, error) {
	return table.DecodeRoster(b.load(ctx).Plan), nil
}

// SaveRoster replaces the roster of the document.
func (b *RemoteBackend) SaveRoster(ctx context.Context, rows []table.RosterRow) error {
	b.update(ctx, table.Plan, func(s *table.State) { s.Plan = table.EncodeRoster(rows) })
	return nil
}

// LoadQueues returns the queues of the document.
func (b *RemoteBackend) LoadQueues(ctx context.Context) ([]table.QueueRow, error) {
	var rows, errs = table.DecodeQueues(b.load(ctx).Queues)
	logRowErrors(b.Name(), errs)
	return rows, nil
}

// SaveQueues replaces the queues of the document.
func (b *RemoteBackend) SaveQueues(ctx context.Context, rows []table.QueueRow) error {
	b.update(ctx, table.Queues, func(s *table.State) { s.Queues = table.EncodeQueues(rows) })
	return nil
}

// LoadEnrollments returns the enrollments of the document.
func (b *RemoteBackend) LoadEnrollments(ctx context.Context) ([]table.EnrollmentRow, error) {
	var rows, errs = table.DecodeEnrollments(b.load(ctx).Enrollments)
	logRowErrors(b.Name(), errs)
	return rows, nil
}

// SaveEnrollments replaces the enrollments of the document.
func (b *RemoteBackend) SaveEnrollments(ctx context.Context, rows []table.EnrollmentRow) error {
	b.update(ctx, table.Enrollments, func(s *table.State) { s.Enrollments = table.EncodeEnrollments(rows) })
	return nil
}

// SaveState overwrites the document with |state|. Unlike the Backend
// methods, it returns its error to the caller.
func (b *RemoteBackend) SaveState(ctx context.Context, state table.State) (err error) {
	defer func() { observe(b.Name(), "save_state", err) }()

	if !b.Credentials() {
		return errNoCredentials
	}
	content, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.WithMessage(err, "encoding document")
	}
	body, err := json.Marshal(gistPatch{Files: map[string]gistPatchFile{
		b.cfg.Filename: {Content: string(content)},
	}})
	if err != nil {
		return errors.WithMessage(err, "encoding gist update")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, b.gistURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return errors.WithMessage(err, "updating gist")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("updating gist: unexpected status %s", resp.Status)
	}
	metrics.RemoteDocumentBytes.Set(float64(len(content)))
	log.WithField("size", humanize.Bytes(uint64(len(content)))).Debug("wrote remote document")
	return nil
}

// load the document. Failures are logged and yield defaults.
func (b *RemoteBackend) load(ctx context.Context) table.State {
	if !b.Credentials() {
		return table.DefaultState()
	}
	var state, err = b.fetch(ctx)

	if err == errDocumentMissing {
		log.WithField("file", b.cfg.Filename).Info("remote document not found; creating it with defaults")
		state = table.DefaultState()

		if err = b.SaveState(ctx, state); err != nil {
			log.WithField("err", err).Warn("failed to create remote document")
		}
	} else if err != nil {
		log.WithField("err", err).Warn("failed to read remote document; using defaults")
		state = table.DefaultState()
	}
	return state
}

// update applies |fn| to the current document and writes it back. If the
// current document can't be read, the update is dropped rather than
// overwriting the document with defaults.
func (b *RemoteBackend) update(ctx context.Context, name string, fn func(*table.State)) {
	if !b.Credentials() {
		log.WithField("table", name).Debug("no remote credentials; dropping write")
		return
	}
	var state, err = b.fetch(ctx)

	if err == errDocumentMissing {
		state, err = table.DefaultState(), nil
	}
	if err == nil {
		fn(&state)
		err = b.SaveState(ctx, state)
	}
	if err != nil {
		log.WithFields(log.Fields{"table": name, "err": err}).Warn("failed to write remote document")
	}
}

// fetch reads and decodes the document. It returns errDocumentMissing if the
// gist exists but doesn't hold the document file.
func (b *RemoteBackend) fetch(ctx context.Context) (state table.State, err error) {
	defer func() {
		if err != errDocumentMissing {
			observe(b.Name(), "load_state", err)
		}
	}()

	var gist gistResponse
	if err = b.getJSON(ctx, b.gistURL(), &gist); err != nil {
		return state, errors.WithMessage(err, "fetching gist")
	}
	var file, ok = gist.Files[b.cfg.Filename]
	if !ok || file == nil {
		return state, errDocumentMissing
	}

	var content = []byte(file.Content)
	if file.Truncated {
		// Large files are truncated inline, and must be fetched from their raw URL.
		if content, err = b.getRaw(ctx, file.RawURL); err != nil {
			return state, errors.WithMessage(err, "fetching truncated document")
		}
	}
	if err = json.Unmarshal(content, &state); err != nil {
		return state, errors.WithMessage(err, "decoding document")
	}
	state.Fill()

	metrics.RemoteDocumentBytes.Set(float64(len(content)))
	log.WithField("size", humanize.Bytes(uint64(len(content)))).Debug("read remote document")
	return state, nil
}

func (b *RemoteBackend) getJSON(ctx context.Context, url string, out interface{}) error {
	var body, err = b.getRaw(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (b *RemoteBackend) getRaw(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("empty URL")
	}
	var req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (b *RemoteBackend) gistURL() string { return b.cfg.API + "/gists/" + b.cfg.GistID }

// gistResponse is the subset of a GitHub gist resource used by RemoteBackend.
type gistResponse struct {
	Files map[string]*gistFile `json:"files"`
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

type gistPatch struct {
	Files map[string]gistPatchFile `json:"files"`
}

type gistPatchFile struct {
	Content string `json:"content"`
}

var (
	errDocumentMissing = errors.New("gist does not hold the document file")
	errNoCredentials   = errors.New("remote document credentials are not configured")
)
