package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/code-troopers/postits/internal/api"
	"github.com/code-troopers/postits/internal/config"
	"github.com/code-troopers/postits/internal/identity"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/code-troopers/postits/internal/transport"
)

func restClient() *api.Client {
	return api.New(cfg.Server.APIURL, cfg.TokenSource())
}

// connect opens the event transport selected by transport.kind.
func connect(ctx context.Context) (transport.Transport, error) {
	switch cfg.Transport.Kind {
	case config.TransportRedis:
		opts, err := cfg.RedisOptions()
		if err != nil {
			return nil, err
		}
		tr, err := transport.DialRedis(ctx, opts, cfg.Transport.Instance)
		if err != nil {
			return nil, printer.ErrorWithContext(
				"Redis connection failed",
				fmt.Sprintf("Error: %v", err),
				map[string]string{"redis_url": cfg.Transport.RedisURL, "instance": cfg.Transport.Instance},
				[]string{"Check that the Redis server is running and transport.redis_url is correct"},
			)
		}
		return tr, nil

	default:
		var token string
		if tokens := cfg.TokenSource(); tokens != nil {
			t, err := tokens.Token()
			if err != nil {
				return nil, authError(err)
			}
			token = t
		}
		tr, err := transport.DialWebSocket(ctx, cfg.Server.WSURL, token)
		if err != nil {
			return nil, printer.ErrorWithContext(
				"websocket connection failed",
				fmt.Sprintf("Error: %v", err),
				map[string]string{"ws_url": cfg.Server.WSURL},
				[]string{
					"Check that the postits server is running",
					"Check that your token is valid:\n  postits whoami",
				},
			)
		}
		return tr, nil
	}
}

// serverError turns REST failures into printed, actionable errors.
func serverError(err error) error {
	var status *api.StatusError
	if errors.As(err, &status) && (status.Code == http.StatusUnauthorized || status.Code == http.StatusForbidden) {
		return authError(err)
	}
	if errors.Is(err, identity.ErrNoToken) {
		return authError(err)
	}
	return printer.ErrorWithContext(
		"request failed",
		fmt.Sprintf("Error: %v", err),
		map[string]string{"api_url": cfg.Server.APIURL},
		[]string{"Check that the postits server is running and server.api_url is correct"},
	)
}

func authError(err error) error {
	return printer.Error(
		"authentication failed",
		fmt.Sprintf("Error: %v", err),
		[]string{
			"Set auth.token or auth.token_file in postits.yml",
			"Or export a token:\n  export POSTITS_TOKEN=<jwt>",
		},
	)
}
