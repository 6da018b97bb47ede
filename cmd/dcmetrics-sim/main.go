package main

import (
	"log/slog"

	"dcmetrics-sim/internal/logging"
)

func main() {
	slog.SetDefault(logging.New())
	Execute()
}
