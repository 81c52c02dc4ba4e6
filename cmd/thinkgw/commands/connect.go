package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"thinkgw/internal/domain"
)

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [name|id]",
		Short: "Run the handshake against a gateway and report the outcome",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, res, err := connect(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			defer res.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Status)
			switch res.Status.State {
			case domain.StatePairingRequired:
				fmt.Fprintf(out, "approve this device from an operator session:\n"+
					"  thinkgw gateway approve --url %s --token <operator-token> %s\n",
					inst.URL, res.Status.RequestID)
			case domain.StateFailed:
				return fmt.Errorf("%s: %s", inst.Name, res.Status.Message)
			}
			return nil
		},
	}
}

func approveCmd() *cobra.Command {
	var url, token string
	cmd := &cobra.Command{
		Use:   "approve <requestId>",
		Short: "Approve a pending device pairing request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pairing, id, err := appCtx.OperatorPairing(ctx, url, token)
			if err != nil {
				return err
			}
			req := domain.ConnectRequest{InstanceID: id, URL: url}
			if err := pairing.ConnectAndApprove(ctx, req, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "approved %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "gateway URL")
	cmd.Flags().StringVar(&token, "token", "", "operator token")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func callCmd() *cobra.Command {
	var ref, params string
	cmd := &cobra.Command{
		Use:   "call <method>",
		Short: "Send one request on a connected session and print the payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p json.RawMessage
			if params != "" {
				if !json.Valid([]byte(params)) {
					return errors.New("--params is not valid JSON")
				}
				p = json.RawMessage(params)
			}

			ctx := cmd.Context()
			_, sess, err := connected(ctx, ref)
			if err != nil {
				return err
			}
			defer sess.Close()

			payload, err := sess.Call(ctx, args[0], p)
			if err != nil {
				return err
			}
			return printJSON(cmd, payload)
		},
	}
	cmd.Flags().StringVar(&ref, "gateway", "", "gateway name or id (default active)")
	cmd.Flags().StringVar(&params, "params", "", "request params as a JSON object")
	return cmd
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
