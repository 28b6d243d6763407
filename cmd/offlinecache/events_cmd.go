package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/interprelab/go-offline-cache/pkg/commands"
	"github.com/interprelab/go-offline-cache/pkg/offline"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [tag]",
		Short: "Refresh the critical API snapshots",
		Long: `Run a background sync pass immediately.

The tag defaults to "sync-critical-data"; other tags are accepted and ignored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tag := offline.SyncTagCriticalData
			if len(args) == 1 {
				tag = args[0]
			}
			svc, err := buildServices(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			var report offline.SyncReport
			if err := svc.Commands.RunSync.Execute(ctx, commands.RunSync{Tag: tag, Report: &report}); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newPushCmd() *cobra.Command {
	var message string
	var payloadFile string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Deliver a crisis-support push notification",
		Example: `  offlinecache push --message "Support is available right now"
  offlinecache push --payload payload.json
  echo '{"type":"crisis-support"}' | offlinecache push --payload -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			payload, err := pushPayload(cmd.InOrStdin(), payloadFile, message)
			if err != nil {
				return err
			}
			svc, err := buildServices(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()
			return svc.Commands.Push.Execute(ctx, commands.Push{Payload: payload})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Notification body")
	cmd.Flags().StringVar(&payloadFile, "payload", "", "Raw JSON payload file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("message", "payload")
	return cmd
}

func pushPayload(stdin io.Reader, file, message string) ([]byte, error) {
	switch file {
	case "":
		return json.Marshal(offline.PushMessage{Type: offline.PushTypeCrisisSupport, Message: message})
	case "-":
		return io.ReadAll(stdin)
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		return data, nil
	}
}
