package logs

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/grafana/loki-client-go/loki"
	slogloki "github.com/samber/slog-loki/v3"

	"github.com/clinicadesk/clinica_backend/config"
)

// newLokiHandler pushes records to Loki's push API. Basic auth credentials
// travel in the endpoint URL, which net/http turns into an Authorization header.
func newLokiHandler(cfg *config.Config, level slog.Level) (slog.Handler, func(), error) {
	lc := cfg.Logging.Output.Loki
	endpoint, err := pushURL(lc.Endpoint, lc.Username, lc.Password)
	if err != nil {
		return nil, nil, err
	}

	clientCfg, err := loki.NewDefaultConfig(endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("loki config: %w", err)
	}
	client, err := loki.New(clientCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("loki client: %w", err)
	}

	h := slogloki.Option{Level: level, Client: client}.NewLokiHandler()
	return h, client.Stop, nil
}

func pushURL(endpoint, username, password string) (string, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("loki endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("loki endpoint %q: scheme and host required", endpoint)
	}
	if !strings.HasSuffix(u.Path, "/loki/api/v1/push") {
		u.Path += "/loki/api/v1/push"
	}
	if username != "" {
		u.User = url.UserPassword(username, password)
	}
	return u.String(), nil
}
