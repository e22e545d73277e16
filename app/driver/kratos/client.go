package kratos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	kratosclient "github.com/ory/kratos-client-go"

	"account-service/app/config"
)

const (
	defaultTimeout = 30 * time.Second
	probeTimeout   = 5 * time.Second
	userAgent      = "account-service"
)

// Client holds the Kratos API clients. Self-service flows run on the public
// API; the admin API is only probed for readiness.
type Client struct {
	public    *kratosclient.APIClient
	admin     *kratosclient.APIClient
	publicURL string
	logger    *slog.Logger
}

// NewClient creates the public and admin API clients from configuration
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if err := validateBaseURL("public", cfg.KratosPublicURL); err != nil {
		return nil, err
	}
	if err := validateBaseURL("admin", cfg.KratosAdminURL); err != nil {
		return nil, err
	}

	timeout := cfg.GatewayTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// Native flows authenticate with X-Session-Token, so the client keeps no cookie jar
	httpClient := &http.Client{Timeout: timeout}

	logger = logger.With("component", "kratos_client")
	logger.Info("Kratos client initialized",
		"public_url", cfg.KratosPublicURL,
		"admin_url", cfg.KratosAdminURL,
		"timeout", timeout)

	return &Client{
		public:    newAPIClient(cfg.KratosPublicURL, httpClient),
		admin:     newAPIClient(cfg.KratosAdminURL, httpClient),
		publicURL: cfg.KratosPublicURL,
		logger:    logger,
	}, nil
}

func newAPIClient(baseURL string, httpClient *http.Client) *kratosclient.APIClient {
	cfg := kratosclient.NewConfiguration()
	cfg.Servers = kratosclient.ServerConfigurations{{URL: baseURL}}
	cfg.HTTPClient = httpClient
	cfg.UserAgent = userAgent
	cfg.AddDefaultHeader("Accept", "application/json")
	return kratosclient.NewAPIClient(cfg)
}

// Frontend returns the self-service API
func (c *Client) Frontend() kratosclient.FrontendAPI {
	return c.public.FrontendAPI
}

// PublicURL is the base URL browsers reach Kratos on
func (c *Client) PublicURL() string {
	return c.publicURL
}

// HealthCheck reports whether both Kratos APIs answer their readiness probe
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	return errors.Join(
		probe(ctx, "public", c.public),
		probe(ctx, "admin", c.admin),
	)
}

func probe(ctx context.Context, name string, api *kratosclient.APIClient) error {
	_, resp, err := api.MetadataAPI.IsReady(ctx).Execute()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("kratos %s API not ready: %w", name, err)
	}
	return nil
}

func validateBaseURL(name, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid Kratos %s URL: %q", name, raw)
	}
	return nil
}
