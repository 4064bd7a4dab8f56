package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ncx/internal/server"
	"github.com/desertthunder/ncx/internal/shared"
	"golang.org/x/oauth2"
)

// authTimeout bounds how long the flow waits for the user to finish in the browser.
const authTimeout = 5 * time.Minute

// BrowserAuthorizer implements [Authorizer] with the standard local-callback
// flow: start a localhost HTTP server, open the provider's consent page in
// the browser, and wait for the redirect to deliver the code.
type BrowserAuthorizer struct {
	config *oauth2.Config
	host   string
	port   int
	logger *log.Logger

	openBrowser func(string) error // test hook
}

// NewBrowserAuthorizer creates an authorizer serving the callback at host:port.
func NewBrowserAuthorizer(config *oauth2.Config, host string, port int, logger *log.Logger) *BrowserAuthorizer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BrowserAuthorizer{
		config:      config,
		host:        host,
		port:        port,
		logger:      logger,
		openBrowser: shared.OpenBrowser,
	}
}

// Authorize runs the interactive authorization-code flow and blocks until the
// callback fires, the timeout lapses, or ctx is cancelled.
func (b *BrowserAuthorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	authURL := b.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	handler := server.NewOAuthHandler(b.config, state)
	router := server.NewBasicRouter()
	router.Handler(handler)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", b.host, b.port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		b.logger.Infof("starting OAuth callback server at %v", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	b.logger.Info("opening browser for Spotify authorization")
	if err := b.openBrowser(authURL); err != nil {
		b.logger.Warnf("failed to open browser, visit manually: %s", authURL)
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return nil, err
		}
		return result.Token, nil
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("timed out waiting for authorization")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
