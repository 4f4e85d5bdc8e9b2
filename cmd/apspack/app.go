// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/apspack/apspack/internal/config"
)

type (
	// ConfigProvider loads configuration for a command invocation.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App is the composition root handed to every command factory.
	App struct {
		Config ConfigProvider
		now    func() time.Time
		stdout io.Writer
		stderr io.Writer

		// verbose and colorScheme are recorded by loadConfig for error
		// rendering.
		verbose     bool
		colorScheme config.ColorScheme
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config ConfigProvider
		// Now stamps packages and reports.
		Now    func() time.Time
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp fills unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		now:    deps.Now,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.now == nil {
		app.now = time.Now
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}
