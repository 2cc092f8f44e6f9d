// Command api-server runs the storefront HTTP API and staff dashboard.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/storefront/internal/app"
)

func main() {
	app.Run(run)
}

func run(ctx context.Context, lg *zap.Logger, t *app.Telemetry) error {
	cfg, err := appkg.LoadConfig()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	return appkg.Run(ctx, lg, t, cfg)
}
