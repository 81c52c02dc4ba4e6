package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func gatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage and connect to gateways",
	}
	cmd.AddCommand(
		listCmd(),
		upsertCmd(),
		deleteCmd(),
		useCmd(),
		testCmd(),
		approveCmd(),
		callCmd(),
		watchCmd(),
	)
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured gateways",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := appCtx.Instances.ListInstances(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no gateways configured")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tNAME\tID\tURL\tHAS-TOKEN")
			for _, s := range list {
				marker := ""
				if s.Active {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", marker, s.Name, s.ID, s.URL, s.HasSharedToken)
			}
			return tw.Flush()
		},
	}
}

func upsertCmd() *cobra.Command {
	var name, url, token string
	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Create or update a gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var tok *string
			if cmd.Flags().Changed("token") {
				tok = &token
			}
			inst, err := appCtx.Instances.UpsertInstance(cmd.Context(), name, url, tok)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s) %s\n", inst.Name, inst.ID, inst.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "gateway name")
	cmd.Flags().StringVar(&url, "url", "", "gateway URL (host, https:// or wss://)")
	cmd.Flags().StringVar(&token, "token", "", "shared bootstrap token; empty clears it")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name|id>",
		Short: "Delete a gateway and its secrets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := appCtx.Instances.DeleteInstance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", inst.Name, inst.ID)
			return nil
		},
	}
}

func useCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name|id>",
		Short: "Select the active gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := appCtx.Instances.UseInstance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "using %s\n", inst.Name)
			return nil
		},
	}
}
