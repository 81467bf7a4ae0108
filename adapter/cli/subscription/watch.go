package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/subscriptions/adapter/cli"
	subApp "github.com/felixgeelhaar/subscriptions/internal/subscriptions/application"
)

var (
	watchFor  time.Duration
	watchJSON bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow subscription state changes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if watchFor > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, watchFor)
			defer cancel()
		}

		sub := svc.Store().Subscribe(ctx)
		defer sub.Close()

		go func() {
			if err := svc.Load(ctx); err != nil {
				cli.Logger().WarnContext(ctx, "initial load failed", "error", err)
			}
		}()

		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return nil
			case c := <-svc.Commands():
				writeCommand(cmd.ErrOrStderr(), c)
			case snapshot, ok := <-sub.C():
				if !ok {
					return nil
				}
				if err := writeWatchLine(out, subApp.Render(snapshot)); err != nil {
					return err
				}
			}
		}
	},
}

func writeWatchLine(w io.Writer, view subApp.View) error {
	if watchJSON {
		return json.NewEncoder(w).Encode(view)
	}
	line := fmt.Sprintf("[%d] %s", view.Version, view.Headline)
	if view.Ready && len(view.Plans) > 0 {
		line += fmt.Sprintf(" (%d plans)", len(view.Plans))
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func init() {
	watchCmd.Flags().DurationVar(&watchFor, "for", 0, "stop after this duration (0 runs until interrupted)")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "output one JSON view per line")
}
