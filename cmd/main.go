package main

import (
	"os"
	"os/signal"
	"syscall"

	"openstocks/internal/bootstrap"
	"openstocks/pkg/logger"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()
	defer logger.Sync()

	log := container.Log

	if err := container.Start(); err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	waitForShutdown(container)
}

// waitForShutdown blocks until a termination signal arrives or the
// application context is cancelled, then runs graceful shutdown.
func waitForShutdown(container *bootstrap.Container) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		container.Log.Infof("Received signal: %v", sig)
	case <-container.Context.Done():
		container.Log.Info("Application context cancelled")
	}

	container.Shutdown()
	container.Log.Info("Shutdown complete")
}
