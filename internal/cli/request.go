package cli

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashep/esp-lib/client"
	"github.com/ashep/esp-lib/protocol"
)

type requestOptions struct {
	headers []string
	data    string
	include bool
}

func (a *app) requestCommand() *cobra.Command {
	opts := &requestOptions{}
	cmd := &cobra.Command{
		Use:   "request METHOD URL",
		Short: "Send a request with any method",
		Long: `Send a single request. The body given with --data is sent for every method
except GET; "@path" reads it from a file. Content-Length is added when a body
is sent and the header was not given.`,
		Args: cobra.ExactArgs(2),
	}
	cmd.RunE = cmdFunc(func(ctx context.Context, args []string) error {
		return a.request(ctx, opts, args[0], args[1])
	})

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "request header as \"Name: value\" (repeatable)")
	flags.StringVarP(&opts.data, "data", "d", "", "request body, or @file")
	flags.BoolVarP(&opts.include, "include", "i", false, "print the status line and headers")
	return cmd
}

func (a *app) request(ctx context.Context, opts *requestOptions, methodName, url string) error {
	method, err := protocol.ParseMethod(strings.ToUpper(methodName))
	if err != nil {
		return err
	}
	headers, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}

	var body []byte
	if path, ok := strings.CutPrefix(opts.data, "@"); ok {
		if body, err = os.ReadFile(path); err != nil {
			return err
		}
	} else if opts.data != "" {
		body = []byte(opts.data)
	}
	if len(body) > 0 && method != protocol.MethodGet {
		if _, ok := headers.Get("Content-Length"); !ok {
			headers.Set("Content-Length", strconv.Itoa(len(body)))
		}
	}

	c, err := a.newClient()
	if err != nil {
		return err
	}
	resp, err := c.Request(ctx, method, url, headers, body)
	if err != nil {
		return err
	}
	defer client.FreeResponse(resp)

	printResponse(a.stdout, resp, opts.include)
	return nil
}
