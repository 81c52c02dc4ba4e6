package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [name|id]",
		Short: "Print the device id and public key used for a gateway",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inst, err := appCtx.Instances.ResolveInstance(ctx, optionalArg(args))
			if err != nil {
				return err
			}
			fp, pub, err := appCtx.Identity.FingerprintIdentity(ctx, inst.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Device ID:  %s\nPublic key: %s\n", fp, pub)
			return nil
		},
	}
}
