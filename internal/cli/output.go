package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ashep/esp-lib/protocol"
)

func statusColor(code uint16) func(format string, a ...interface{}) string {
	switch {
	case code >= 500:
		return color.RedString
	case code >= 400:
		return color.YellowString
	case code >= 300:
		return color.CyanString
	default:
		return color.GreenString
	}
}

// printStatus writes the status line of resp.
func printStatus(w io.Writer, resp *protocol.HttpResponse) {
	fmt.Fprintln(w, statusColor(resp.StatusCode)("%d %s", resp.StatusCode, resp.StatusMessage))
}

// printHeaders writes the headers of resp in arrival order.
func printHeaders(w io.Writer, resp *protocol.HttpResponse) {
	for _, h := range resp.Headers.All() {
		fmt.Fprintf(w, "%s: %s\n", color.HiBlackString(h.Key), h.Value)
	}
}

// printResponse writes resp. The body is written as is.
func printResponse(w io.Writer, resp *protocol.HttpResponse, include bool) {
	if include {
		printStatus(w, resp)
		printHeaders(w, resp)
		fmt.Fprintln(w)
	}
	w.Write(resp.Body)
}

// parseHeaders turns "Name: value" arguments into headers.
func parseHeaders(args []string) (*protocol.Headers, error) {
	h := protocol.NewHeaders()
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", arg)
		}
		h.Set(name, strings.TrimSpace(value))
	}
	return h, nil
}
