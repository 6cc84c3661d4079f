package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ashep/esp-lib/client"
	"github.com/ashep/esp-lib/protocol"
)

type getOptions struct {
	headers     []string
	include     bool
	head        bool
	concurrency int
}

func (a *app) getCommand() *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get URL...",
		Short: "Fetch one or more URLs",
		Long: `Fetch one or more URLs with GET (or HEAD with --head). Several URLs are
fetched concurrently, each over its own connection; the responses are printed
in argument order.`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.RunE = cmdFunc(func(ctx context.Context, args []string) error {
		return a.get(ctx, opts, args)
	})

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "request header as \"Name: value\" (repeatable)")
	flags.BoolVarP(&opts.include, "include", "i", false, "print the status line and headers")
	flags.BoolVarP(&opts.head, "head", "I", false, "send HEAD instead of GET")
	flags.IntVarP(&opts.concurrency, "concurrency", "j", 4, "maximum requests in flight")
	return cmd
}

func (a *app) get(ctx context.Context, opts *getOptions, urls []string) error {
	headers, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}
	c, err := a.newClient()
	if err != nil {
		return err
	}

	method := protocol.MethodGet
	if opts.head {
		method = protocol.MethodHead
	}

	outputs := make([]bytes.Buffer, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	if opts.concurrency > 0 {
		g.SetLimit(opts.concurrency)
	}
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			resp, err := c.Request(ctx, method, url, headers, nil)
			if err != nil {
				return fmt.Errorf("%s: %w", url, err)
			}
			defer client.FreeResponse(resp)
			printResponse(&outputs[i], resp, opts.include || opts.head)
			return nil
		})
	}
	err = g.Wait()

	for i := range outputs {
		a.stdout.Write(outputs[i].Bytes())
	}
	return err
}
