package commands

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"thinkgw/internal/bridge"
)

func watchCmd() *cobra.Command {
	var broker, prefix string
	cmd := &cobra.Command{
		Use:   "watch [name|id]",
		Short: "Stream gateway events as JSON lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("mqtt-broker") {
				appCtx.Config.MQTTBroker = broker
			}
			if cmd.Flags().Changed("mqtt-prefix") {
				appCtx.Config.MQTTTopicPrefix = prefix
			}

			inst, sess, err := connected(ctx, optionalArg(args))
			if err != nil {
				return err
			}
			defer sess.Close()

			var pub bridge.Publisher
			if appCtx.Config.MQTTBroker != "" {
				mqttPub, err := appCtx.DialMQTT(ctx)
				if err != nil {
					return err
				}
				defer mqttPub.Close()
				pub = mqttPub
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			fwd := bridge.NewForwarder(pub, appCtx.Config.MQTTTopicPrefix, inst.ID, appCtx.Log).
				WithSink(func(m bridge.Message) error { return enc.Encode(m) })
			if err := fwd.Run(ctx, sess.Events()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&broker, "mqtt-broker", "", "forward events to this MQTT broker (e.g. tcp://localhost:1883)")
	cmd.Flags().StringVar(&prefix, "mqtt-prefix", "", "MQTT topic prefix (default thinkgw)")
	return cmd
}
