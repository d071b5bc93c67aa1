package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/farmledger/inventory-sheets/config"
	"github.com/farmledger/inventory-sheets/gsheets"
)

// authorize returns an HTTP client authorised with the service account credentials
// from $GOOGLE_CREDENTIALS or, failing that, the credentials file.
func authorize(ctx context.Context, conf *config.Config, scope string) (*http.Client, error) {
	blob := []byte(strings.TrimSpace(conf.CredentialsJSON))

	if len(blob) == 0 {
		file := conf.Credentials
		if file == "" {
			file = DEFAULT_CREDENTIALS
		}

		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error reading credentials (%w)", err)
		}

		blob = b
	}

	credentials, err := google.CredentialsFromJSON(ctx, blob, scope)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials (%w)", err)
	}

	return oauth2.NewClient(ctx, credentials.TokenSource), nil
}

func client(ctx context.Context, conf *config.Config, scope string) (*gsheets.Client, error) {
	authorised, err := authorize(ctx, conf, scope)
	if err != nil {
		return nil, fmt.Errorf("authentication/authorization error (%w)", err)
	}

	return gsheets.NewClient(ctx, authorised, conf.API.RequestsPerMinute, conf.API.Timeout)
}
