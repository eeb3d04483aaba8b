package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"motorsync/internal/client"
	"motorsync/internal/hub"
	"motorsync/internal/logging"
)

var (
	watchURL     string
	watchMachine string
	watchCap     int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a pipeline's live stream",
	Long:  "watch subscribes to a running pipeline's push channel and prints the reconciled view as it changes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()
		rec := client.NewReconciler(watchCap)

		enc := json.NewEncoder(os.Stdout)
		stream := client.NewStream(watchURL, watchMachine, rec, log,
			client.WithStateHook(func(st client.ConnState) {
				fmt.Fprintf(os.Stderr, "%s connection %s\n", time.Now().UTC().Format(time.RFC3339), st)
			}),
			client.WithAlertHook(func(msg hub.Message) {
				enc.Encode(msg.Alert)
			}))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			<-sigs
			cancel()
		}()

		stream.Run(ctx)
		for _, r := range rec.Snapshot() {
			enc.Encode(r)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "http://localhost:8080/api/stream", "Stream endpoint of a running pipeline")
	watchCmd.Flags().StringVar(&watchMachine, "machine", "", "Scope the subscription to one machine")
	watchCmd.Flags().IntVar(&watchCap, "cap", 200, "Most recent readings to retain")
}
