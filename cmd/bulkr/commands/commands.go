package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/bulkr/internal/imageproxy"
	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/marketplace/fake"
	"github.com/slok/bulkr/internal/marketplace/httpapi"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/printer"
	storageio "github.com/slok/bulkr/internal/storage/io"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	outputTable = "table"
	outputJSON  = "json"
)

// Defaults used with the fake marketplace when no credentials are set.
const (
	fakeDomain   = "fake.bulkr.local"
	fakeCSRF     = "fake-csrf-token"
	fakeProxyURL = "http://proxy.bulkr.local/?url="
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string

	// Marketplace session flags.
	Domain             string
	CSRFToken          string
	Cookie             string
	ProxyURL           string
	CredentialsFile    string
	HTTPTimeout        time.Duration
	Fake               bool
	FakeRateLimitAfter int

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDBPath := filepath.Join(homedir.HomeDir(), ".bulkr", "bulkr.db")
	app.Flag("db-path", "Path to the SQLite database file with the runs history.").Envar("BULKR_DB_PATH").Default(defaultDBPath).StringVar(&c.DBPath)

	app.Flag("domain", "Marketplace domain (e.g: www.vinted.es).").StringVar(&c.Domain)
	app.Flag("csrf-token", "CSRF token of the signed in session.").StringVar(&c.CSRFToken)
	app.Flag("cookie", "Raw cookie header of the signed in session.").StringVar(&c.Cookie)
	app.Flag("proxy-url", "Image proxy URL prefix used to fetch listing photos, required by reposts.").StringVar(&c.ProxyURL)
	app.Flag("credentials-file", "YAML file with the session credentials, flags override its values.").StringVar(&c.CredentialsFile)
	app.Flag("http-timeout", "Timeout of every marketplace HTTP call.").Default("30s").DurationVar(&c.HTTPTimeout)
	app.Flag("fake", "Use an in-memory fake marketplace instead of the real one.").BoolVar(&c.Fake)
	app.Flag("fake-rate-limit-after", "Make the fake marketplace rate limit after N calls (0 disables it).").IntVar(&c.FakeRateLimitAfter)

	return c
}

// Credentials returns the session credentials from the credentials file and the flags.
func (r RootCommand) Credentials(ctx context.Context) (model.Credentials, error) {
	var creds model.Credentials
	if r.CredentialsFile != "" {
		path, err := filepath.Abs(r.CredentialsFile)
		if err != nil {
			return creds, fmt.Errorf("could not resolve credentials file path: %w", err)
		}

		creds, err = storageio.NewCredentialsYAMLRepository(os.DirFS("/")).GetCredentials(ctx, path[1:])
		if err != nil {
			return creds, fmt.Errorf("could not load credentials: %w", err)
		}
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&creds.Domain, r.Domain)
	override(&creds.CSRFToken, r.CSRFToken)
	override(&creds.Cookie, r.Cookie)
	override(&creds.ProxyURL, r.ProxyURL)

	if r.Fake {
		creds.Domain = orDefault(creds.Domain, fakeDomain)
		creds.CSRFToken = orDefault(creds.CSRFToken, fakeCSRF)
		creds.ProxyURL = orDefault(creds.ProxyURL, fakeProxyURL)
	}

	if err := creds.Validate(); err != nil {
		return creds, fmt.Errorf("invalid credentials: %w", err)
	}

	return creds, nil
}

// Marketplace returns the marketplace client and the image fetcher to use.
func (r RootCommand) Marketplace() (marketplace.Client, imageproxy.Fetcher, error) {
	if r.Fake {
		client, err := fake.NewClient(fake.ClientConfig{
			RateLimitAfter: r.FakeRateLimitAfter,
			Logger:         r.Logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create fake marketplace: %w", err)
		}
		r.Logger.Warningf("Using fake marketplace")

		return client, imageproxy.StaticFetcher("fake-jpeg-bytes"), nil
	}

	httpCli := &http.Client{Timeout: r.HTTPTimeout}
	client, err := httpapi.NewClient(httpapi.ClientConfig{
		HTTPClient: httpCli,
		Logger:     r.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create marketplace client: %w", err)
	}

	fetcher, err := imageproxy.NewHTTPFetcher(imageproxy.HTTPFetcherConfig{
		HTTPClient: httpCli,
		Logger:     r.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create image fetcher: %w", err)
	}

	return client, fetcher, nil
}

func newPrinter(format string, w io.Writer) printer.Printer {
	if format == outputJSON {
		return printer.NewJSONPrinter(w)
	}
	return printer.NewTablePrinter(w)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
