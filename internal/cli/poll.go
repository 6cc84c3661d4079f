package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ashep/esp-lib/client"
)

type pollOptions struct {
	interval time.Duration
	count    int
	failFast bool
}

func (a *app) pollCommand() *cobra.Command {
	opts := &pollOptions{}
	cmd := &cobra.Command{
		Use:   "poll URL",
		Short: "Fetch a URL repeatedly at a fixed rate",
		Long: `Fetch a URL at most once per interval and print one line per attempt with
the status, body size and elapsed time. Failed attempts are reported and
polling continues unless --fail-fast is set.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.RunE = cmdFunc(func(ctx context.Context, args []string) error {
		return a.poll(ctx, opts, args[0])
	})

	flags := cmd.Flags()
	flags.DurationVarP(&opts.interval, "interval", "n", time.Second, "minimum time between requests")
	flags.IntVar(&opts.count, "count", 0, "stop after this many requests (0 polls until interrupted)")
	flags.BoolVar(&opts.failFast, "fail-fast", false, "stop on the first failed request")
	return cmd
}

func (a *app) poll(ctx context.Context, opts *pollOptions, url string) error {
	if opts.interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", opts.interval)
	}
	c, err := a.newClient()
	if err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Every(opts.interval), 1)
	var failures int
	for i := 0; opts.count == 0 || i < opts.count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			// Interrupted.
			break
		}

		start := time.Now()
		resp, err := c.Get(ctx, url, nil)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			failures++
			fmt.Fprintf(a.stdout, "%d %s %s\n", i+1, color.RedString("ERR"), err)
			if opts.failFast {
				return err
			}
			continue
		}

		fmt.Fprintf(a.stdout, "%d %s %d bytes %s\n",
			i+1, statusColor(resp.StatusCode)("%d", resp.StatusCode), len(resp.Body), elapsed)
		client.FreeResponse(resp)
	}

	if failures > 0 {
		return fmt.Errorf("%d requests failed", failures)
	}
	return nil
}
