package msgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/booking-ledger/internal/config"
)

// DefaultAuthority is the Microsoft identity platform.
const DefaultAuthority = "https://login.microsoftonline.com"

var calendarScopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"offline_access",
}

// Credentials identify the app and user for calendar access.
type Credentials struct {
	TenantID string
	ClientID string
	// TokenPath is where the signed-in user's token is kept between runs.
	TokenPath string
	// Authority overrides DefaultAuthority.
	Authority string
}

// CredentialsFrom builds Credentials from the outlook config section, with
// the token stored under ~/.tbl/auth.
func CredentialsFrom(cfg config.OutlookConfig) (Credentials, error) {
	dir, err := config.Dir()
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		TenantID:  cfg.TenantID,
		ClientID:  cfg.ClientID,
		TokenPath: filepath.Join(dir, "auth", "msgraph_tokens.json"),
	}, nil
}

func (c Credentials) oauth2Config() *oauth2.Config {
	authority := c.Authority
	if authority == "" {
		authority = DefaultAuthority
	}
	base := strings.TrimSuffix(authority, "/") + "/" + c.TenantID + "/oauth2/v2.0/"
	return &oauth2.Config{
		ClientID: c.ClientID,
		Scopes:   calendarScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: base + "devicecode",
			TokenURL:      base + "token",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// loadToken reads the saved token. A missing file yields nil.
func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", path, err)
	}
	return &tok, nil
}

// saveToken writes tok readable by the owner only.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// Connect returns a Client signed in with creds. A saved token is reused
// or refreshed; otherwise the device code flow runs and its sign-in
// instructions are printed to out.
func Connect(ctx context.Context, creds Credentials, out io.Writer) (*Client, error) {
	cfg := creds.oauth2Config()
	tok, err := loadToken(creds.TokenPath)
	if err != nil {
		slog.Warn("ignoring saved token", "error", err)
		tok = nil
	}

	if tok != nil && !tok.Valid() && tok.RefreshToken != "" {
		refreshed, err := cfg.TokenSource(ctx, tok).Token()
		if err != nil {
			slog.Info("token refresh failed, re-authenticating", "error", err)
			tok = nil
		} else {
			tok = refreshed
			if err := saveToken(creds.TokenPath, tok); err != nil {
				slog.Warn("could not save refreshed token", "error", err)
			}
		}
	}

	if tok == nil || !tok.Valid() {
		tok, err = deviceLogin(ctx, cfg, out)
		if err != nil {
			return nil, err
		}
		if err := saveToken(creds.TokenPath, tok); err != nil {
			slog.Warn("could not save token", "error", err)
		}
	}
	return NewClient(ctx, tok, cfg, creds.TokenPath), nil
}

func deviceLogin(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*oauth2.Token, error) {
	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	return tok, nil
}
