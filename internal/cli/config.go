package cli

import (
	"context"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = cmdFunc(func(ctx context.Context, args []string) error {
		e := yaml.NewEncoder(a.stdout)
		e.SetIndent(2)
		if err := e.Encode(a.config); err != nil {
			return err
		}
		return e.Close()
	})
	return cmd
}
