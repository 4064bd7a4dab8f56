package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ncx/internal/auth"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser authorization flow and stores the token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.manager == nil {
		return fmt.Errorf("%w: set spotify client_id and client_secret in config.toml", shared.ErrMissingCredentials)
	}

	r.logger.Info("starting spotify authorization")
	r.writePlain("Opening browser for Spotify authorization...\n")

	if _, err := r.manager.Token(ctx); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	record := r.manager.Record()
	r.writePlain("✓ Authorized with Spotify\n")
	if record != nil {
		r.writePlain("Token valid until %s\n", record.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthStatus reports the stored token state without refreshing it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	if r.manager == nil {
		return fmt.Errorf("%w: set spotify client_id and client_secret in config.toml", shared.ErrMissingCredentials)
	}

	record := r.manager.Record()

	if useJSON {
		status := map[string]any{
			"state": r.manager.State().String(),
		}
		if record != nil {
			status["expires_at"] = record.ExpiresAt
			status["valid"] = record.Valid(time.Now(), auth.SafetyMargin)
			status["scopes"] = record.Scopes
			status["has_refresh_token"] = record.RefreshToken != ""
		}
		return r.writeJSON(status, true)
	}

	if record == nil {
		r.writePlain("✗ Not authorized\n")
		r.writePlain("Run 'ncx auth login' to connect your Spotify account.\n")
		return nil
	}

	r.writePlain("✓ Authorized\n")
	r.writePlain("Expires: %s\n", record.ExpiresAt.Local().Format(time.RFC1123))
	if record.Valid(time.Now(), auth.SafetyMargin) {
		r.writePlain("Token: valid\n")
	} else if record.RefreshToken != "" {
		r.writePlain("Token: expired, will refresh on next use\n")
	} else {
		r.writePlain("Token: expired with no refresh token, re-run 'ncx auth login'\n")
	}
	return nil
}
