package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

type ticketResp struct {
	Success bool                    `json:"success"`
	Data    domain.GenerationTicket `json:"data"`
	Error   string                  `json:"error"`
}

func generateCmd(baseURL *string, ui *ui) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Start a generation task",
	}
	cmd.AddCommand(generateMusicCmd(baseURL, ui), generateLyricsCmd(baseURL, ui), generateCoverCmd(baseURL, ui))
	return cmd
}

func generateMusicCmd(baseURL *string, ui *ui) *cobra.Command {
	var (
		req        domain.GenerateMusicRequest
		mode       string
		lead       string
		watch      bool
		watchLimit time.Duration
	)
	cmd := &cobra.Command{
		Use:     "music",
		Short:   "Generate a song",
		Example: "songctl generate music --mode custom --genre new-jack-swing --lead rhodes,sax --bpm 98 --watch",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case "basic", "custom":
				req.Mode = domain.GenerationMode(mode)
			default:
				return errors.New("mode must be one of: basic, custom")
			}
			req.LeadInstrument = splitList(lead)

			c := newClient(*baseURL)
			tk, err := submit(c, ui, "/api/generate-music", req, "Submitting music task...")
			if err != nil {
				return err
			}
			fmt.Printf("%s Music task started: %s\n", ui.ok("[OK]"), tk.TaskID)
			if !watch {
				fmt.Printf("%s follow it with: songctl watch %s\n", ui.dim("hint:"), tk.TaskID)
				return nil
			}
			return runWatch(cmd.Context(), c, ui, tk.TaskID, watchLimit)
		},
	}
	f := cmd.Flags()
	f.StringVar(&mode, "mode", "basic", "Generation mode: basic|custom")
	f.StringVar(&req.Mood, "mood", "", "Mood (basic mode)")
	f.StringVar(&req.Genre, "genre", "", "Genre (custom mode)")
	f.StringVar(&req.Vibe, "vibe", "", "Vibe (custom mode)")
	f.StringVar(&req.SongTitle, "title", "", "Song title (custom mode)")
	f.StringVar(&req.CustomPrompt, "prompt", "", "Extra prompt text, or lyrics in custom mode")
	f.BoolVar(&req.InstrumentalMode, "instrumental", false, "No vocals")
	f.StringVar(&req.VocalGender, "vocal", "", "Vocal gender: male|female")
	f.StringVar(&req.VocalStyle, "vocal-style", "", "Vocal style")
	f.StringVar(&req.GrooveType, "groove", "", "Groove type")
	f.StringVar(&lead, "lead", "", "Comma-separated lead instruments")
	f.StringVar(&req.DrumKit, "drum-kit", "", "Drum kit")
	f.StringVar(&req.BassTone, "bass-tone", "", "Bass tone")
	f.StringVar(&req.HarmonyPalette, "harmony", "", "Harmony palette")
	f.IntVar(&req.BPM, "bpm", 0, "Tempo in BPM")
	f.BoolVar(&watch, "watch", false, "Wait for the result on the music stream")
	f.DurationVar(&watchLimit, "timeout", 10*time.Minute, "Give up watching after this long")
	return cmd
}

func generateLyricsCmd(baseURL *string, ui *ui) *cobra.Command {
	var promptText string
	cmd := &cobra.Command{
		Use:   "lyrics",
		Short: "Generate lyrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(promptText) == "" {
				return errors.New("prompt is required")
			}
			tk, err := submit(newClient(*baseURL), ui, "/api/generate-lyrics", domain.GenerateLyricsRequest{Prompt: promptText}, "Submitting lyrics task...")
			if err != nil {
				return err
			}
			fmt.Printf("%s Lyrics task started: %s\n", ui.ok("[OK]"), tk.TaskID)
			return nil
		},
	}
	cmd.Flags().StringVar(&promptText, "prompt", "", "What the lyrics should be about")
	return cmd
}

func generateCoverCmd(baseURL *string, ui *ui) *cobra.Command {
	var (
		promptText string
		wait       bool
		opts       pollOptions
	)
	cmd := &cobra.Command{
		Use:   "cover",
		Short: "Generate cover art",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(promptText) == "" {
				return errors.New("prompt is required")
			}
			c := newClient(*baseURL)
			tk, err := submit(c, ui, "/api/generate-cover", domain.GenerateCoverRequest{Prompt: promptText}, "Submitting cover task...")
			if err != nil {
				return err
			}
			fmt.Printf("%s Cover task started: %s\n", ui.ok("[OK]"), tk.TaskID)
			if !wait {
				return nil
			}
			return runCoverWait(cmd.Context(), c, ui, tk.TaskID, opts)
		},
	}
	cmd.Flags().StringVar(&promptText, "prompt", "", "Image prompt")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the cover is ready")
	addPollFlags(cmd, &opts)
	return cmd
}

func submit(c *client, ui *ui, path string, body any, label string) (*domain.GenerationTicket, error) {
	var spin *spinner.Spinner
	if ui.interactive {
		spin = spinner.New(spinner.CharSets[14], 120*time.Millisecond)
		spin.Suffix = " " + label
		spin.Start()
	}
	status, resp, err := c.request("POST", path, body)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return nil, err
	}
	var out ticketResp
	_ = json.Unmarshal(resp, &out)
	if status >= 300 {
		if out.Error != "" {
			return nil, fmt.Errorf("error (%d): %s", status, out.Error)
		}
		return nil, fmt.Errorf("error (%d): %s", status, string(resp))
	}
	if out.Data.TaskID == "" {
		return nil, fmt.Errorf("unexpected response: %s", string(resp))
	}
	return &out.Data, nil
}

func splitList(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
