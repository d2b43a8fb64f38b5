package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osvaldoandrade/songbridge/internal/backoff"
	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type pollOptions struct {
	policy  string
	base    time.Duration
	max     time.Duration
	timeout time.Duration
}

func addPollFlags(cmd *cobra.Command, o *pollOptions) {
	cmd.Flags().StringVar(&o.policy, "backoff", string(backoff.Exponential), "Poll backoff: fixed|linear|exponential|exp_equal_jitter|exp_full_jitter")
	cmd.Flags().DurationVar(&o.base, "poll-interval", 2*time.Second, "First poll interval")
	cmd.Flags().DurationVar(&o.max, "poll-max", 15*time.Second, "Longest poll interval")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Minute, "Give up after this long")
}

func coverStatusCmd(baseURL *string, ui *ui) *cobra.Command {
	var (
		wait bool
		opts pollOptions
	)
	cmd := &cobra.Command{
		Use:   "cover-status <taskId>",
		Short: "Show the stored cover result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL)
			if wait {
				return runCoverWait(cmd.Context(), c, ui, args[0], opts)
			}
			rec, err := fetchCover(c, args[0])
			if err != nil {
				return err
			}
			return printCover(ui, rec)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the cover is ready")
	addPollFlags(cmd, &opts)
	return cmd
}

func runCoverWait(parent context.Context, c *client, ui *ui, taskID string, o pollOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var bar *progressbar.ProgressBar
	if ui.interactive {
		bar = progressbar.NewOptions(int(o.timeout.Seconds()),
			progressbar.OptionSetDescription("Waiting for cover"),
			progressbar.OptionSetWidth(18),
			progressbar.OptionClearOnFinish(),
		)
	}
	start := time.Now()
	sched := backoff.NewSchedule(backoff.ParsePolicy(o.policy), o.base, o.max, nil)
	rec, err := waitForCover(ctx, c, taskID, sched, func() {
		if bar != nil {
			_ = bar.Set(int(time.Since(start).Seconds()))
		}
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}
	return printCover(ui, rec)
}

// waitForCover polls until the stored result is no longer the in-progress placeholder.
func waitForCover(ctx context.Context, c *client, taskID string, sched *backoff.Schedule, tick func()) (domain.CoverResult, error) {
	for attempt := 0; ; attempt++ {
		rec, err := fetchCover(c, taskID)
		if err != nil {
			return rec, err
		}
		if rec.Code != domain.CoverCodeInProgress {
			return rec, nil
		}
		if tick != nil {
			tick()
		}
		select {
		case <-ctx.Done():
			return rec, fmt.Errorf("cover %s not ready: %w", taskID, ctx.Err())
		case <-time.After(sched.Delay(attempt)):
		}
	}
}

func fetchCover(c *client, taskID string) (domain.CoverResult, error) {
	var rec domain.CoverResult
	status, resp, err := c.request(http.MethodGet, "/api/cover-callback?taskId="+url.QueryEscape(taskID), nil)
	if err != nil {
		return rec, err
	}
	if status >= 300 {
		return rec, fmt.Errorf("error (%d): %s", status, string(resp))
	}
	if err := json.Unmarshal(resp, &rec); err != nil {
		return rec, fmt.Errorf("decode cover result: %w", err)
	}
	return rec, nil
}

func printCover(ui *ui, rec domain.CoverResult) error {
	switch rec.Code {
	case domain.CoverCodeInProgress:
		fmt.Printf("%s %s (%s)\n", ui.warn("[PENDING]"), rec.Msg, rec.Data.TaskID)
		return nil
	case domain.CoverCodeSuccess:
		fmt.Printf("%s %d image(s) for %s\n", ui.ok("[OK]"), len(rec.Data.Images), rec.Data.TaskID)
		for _, img := range rec.Data.Images {
			fmt.Println("  " + img)
		}
		return nil
	}
	return fmt.Errorf("cover %s failed (%d): %s", rec.Data.TaskID, rec.Code, rec.Msg)
}

func statusCmd(baseURL *string, ui *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "status <taskId>",
		Short: "Show the provider record for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL)
			var spin *spinner.Spinner
			if ui.interactive {
				spin = spinner.New(spinner.CharSets[14], 120*time.Millisecond)
				spin.Suffix = " Fetching status..."
				spin.Start()
			}
			status, resp, err := c.request(http.MethodGet, "/api/status/"+url.PathEscape(args[0]), nil)
			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			fmt.Println(string(resp))
			return nil
		},
	}
}

func statsCmd(baseURL *string, ui *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show bridge state",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, resp, err := newClient(*baseURL).request(http.MethodGet, "/api/bridge-stats", nil)
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var out domain.BridgeStats
			if err := json.Unmarshal(resp, &out); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			fmt.Printf("%s: %d | %s: %d\n",
				ui.info("WAITING_STREAMS"), out.PendingSubscriptions,
				ui.dim("PROCESSED_CALLBACKS"), out.ProcessedCallbacks,
			)
			return nil
		},
	}
}
