package notify

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

const notifyTimeout = 2 * time.Second

// Desktop shows a transient notification through notify-send, which sway's
// mako and most other notification daemons understand.
func Desktop(summary, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	args := []string{"--app-name=vox", "--expire-time=3000", summary}
	if body != "" {
		args = append(args, body)
	}

	if err := exec.CommandContext(ctx, "notify-send", args...).Run(); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}
