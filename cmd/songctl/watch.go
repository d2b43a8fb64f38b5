package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var errStreamEnded = errors.New("stream ended before a result arrived")

func watchCmd(baseURL *string, ui *ui) *cobra.Command {
	var limit time.Duration
	cmd := &cobra.Command{
		Use:     "watch <taskId>",
		Short:   "Wait for a music task result on the event stream",
		Example: "songctl watch 5c2f0e4a --timeout 5m",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), newClient(*baseURL), ui, args[0], limit)
		},
	}
	cmd.Flags().DurationVar(&limit, "timeout", 10*time.Minute, "Give up after this long")
	return cmd
}

func runWatch(parent context.Context, c *client, ui *ui, taskID string, limit time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/music-stream?taskId="+url.QueryEscape(taskID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	// the stream outlives the client's default timeout
	resp, err := (&http.Client{Transport: c.httpClient.Transport}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("error (%d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var spin *spinner.Spinner
	stopSpin := func() {
		if spin != nil {
			spin.Stop()
			spin = nil
		}
	}
	defer stopSpin()

	var result *domain.Notification
	err = readStream(resp.Body, func(n domain.Notification) bool {
		if n.Type == domain.EventConnected {
			fmt.Printf("%s %s\n", ui.info("[INFO]"), n.Message)
			if ui.interactive {
				spin = spinner.New(spinner.CharSets[14], 120*time.Millisecond)
				spin.Suffix = " Generating " + taskID + "..."
				spin.Start()
			}
			return true
		}
		result = &n
		return false
	})
	stopSpin()

	switch {
	case result != nil:
		return printResult(ui, *result)
	case ctx.Err() != nil:
		fmt.Println(ui.warn("[WARN]"), "Stopped waiting for", taskID)
		return nil
	case err != nil:
		return err
	default:
		return errStreamEnded
	}
}

// readStream decodes data frames from an event stream and hands each to fn until
// fn returns false or the stream ends.
func readStream(r io.Reader, fn func(domain.Notification) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var n domain.Notification
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &n); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if !fn(n) {
			return nil
		}
	}
	return sc.Err()
}

func printResult(ui *ui, n domain.Notification) error {
	switch n.Type {
	case domain.EventComplete:
		fmt.Printf("%s %d track(s) ready for %s\n", ui.ok("[OK]"), n.Count, n.TaskID)
		for i, track := range n.Music {
			title, _ := track["title"].(string)
			audio, _ := track["audioUrl"].(string)
			fmt.Printf("  %d. %s %s\n", i+1, emptyOr(title, "(untitled)"), ui.dim(audio))
		}
		return nil
	case domain.EventLyricsComplete:
		if n.Lyrics != nil {
			fmt.Printf("%s %s\n\n%s\n", ui.ok("[OK]"), n.Lyrics.Title, n.Lyrics.Text)
		}
		return nil
	}
	return fmt.Errorf("%s: %s", n.TaskID, emptyOr(n.Error, "generation failed"))
}

func emptyOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
