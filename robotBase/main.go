// Package main is a viam module serving a CAN motor drive train as a base.
package main

import (
	"context"

	goutils "go.viam.com/utils"

	"go.viam.com/rdk/components/base"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"
)

var model = resource.NewModel("cardboardbread", "base", "robotdrive")

// Version number
var version = "1.0.0"

func main() {
	goutils.ContextualMain(mainWithArgs, logging.NewDebugLogger("robotDriveModule"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	registerBase()
	logger.Infow("starting robot drive module", "version", version)

	driveModule, err := module.NewModuleFromArgs(ctx, logger)
	if err != nil {
		return err
	}
	if err := driveModule.AddModelFromRegistry(ctx, base.API, model); err != nil {
		return err
	}

	err = driveModule.Start(ctx)
	defer driveModule.Close(ctx)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// registerBase adds the base's constructor to the component registry.
func registerBase() {
	resource.RegisterComponent(
		base.API,
		model,
		resource.Registration[base.Base, *Config]{Constructor: func(
			ctx context.Context,
			deps resource.Dependencies,
			conf resource.Config,
			logger logging.Logger,
		) (base.Base, error) {
			return newBase(ctx, deps, conf, logger)
		}})
}
