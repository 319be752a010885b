package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JaimeStill/intake/internal/config"
	"github.com/JaimeStill/intake/internal/email"
	"github.com/JaimeStill/intake/internal/gmail"
	"github.com/JaimeStill/intake/internal/infrastructure"
)

var errNoInput = errors.New("one of -file or -gmail-thread is required")

// readInput returns the raw request for the run. Gmail threads are encoded
// into the same JSON shape a file would hold.
func readInput(
	ctx context.Context,
	cfg *config.Config,
	infra *infrastructure.Infrastructure,
	file, threadID string,
) ([]byte, error) {
	switch {
	case file != "" && threadID != "":
		return nil, errors.New("-file and -gmail-thread are mutually exclusive")
	case file == "-":
		return io.ReadAll(os.Stdin)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	case threadID != "":
		client, err := gmail.New(ctx, &cfg.Gmail, infra.Logger)
		if err != nil {
			return nil, err
		}
		thread, err := client.Thread(ctx, threadID)
		if err != nil {
			return nil, err
		}
		return email.Encode(thread)
	default:
		return nil, errNoInput
	}
}
