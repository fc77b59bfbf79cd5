package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/tasktide/tasktide/internal/config"
	"github.com/tasktide/tasktide/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize with the remote backend",
}

var errNoRemote = errors.New("no remote configured; set remote_url in config.yaml")

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace local data with the remote copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if !orch.HasRemote() {
			return errNoRemote
		}
		if err := orch.Bootstrap(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Pulled remote data.")
		return nil
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Wipe the remote and push local data, then re-pull",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if !orch.HasRemote() {
			return errNoRemote
		}
		if err := orch.Refresh(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Pushed local data.")
		return nil
	},
}

var syncFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Replay queued offline changes against the remote",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if !orch.HasRemote() {
			return errNoRemote
		}
		sent, requeued, err := orch.Flush(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Flushed %d queued changes (%d requeued)\n", sent, requeued)
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending queue length",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := orch.Store().QueueLen()
		if err != nil {
			return err
		}
		fmt.Printf("%d queued changes\n", n)
		return nil
	},
}

var syncWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the remote in the background until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if !orch.HasRemote() {
			return errNoRemote
		}

		cfg, err := config.Load()
		if err != nil {
			cfg = config.DefaultConfig()
		}
		poll := time.Duration(cfg.PollSecs) * time.Second

		auto := sync.NewAutoSync(orch, poll)
		auto.SetOnPull(func() {
			fmt.Println("Pulled remote changes.")
		})
		auto.TriggerFlush()

		fmt.Printf("Watching (poll every %s). Ctrl-C to stop.\n", poll)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig

		auto.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := auto.FlushNowIfPending(ctx); err != nil {
			return err
		}
		fmt.Println("Stopped.")
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncPullCmd, syncPushCmd, syncFlushCmd, syncStatusCmd, syncWatchCmd)
}
