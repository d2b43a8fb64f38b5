package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type client struct {
	baseURL    string
	httpClient *http.Client
}

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string

	interactive bool
}

func newUI() *ui {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		color.NoColor = true
	}
	return &ui{
		title:       color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:          color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:        color.New(color.FgCyan).SprintFunc(),
		warn:        color.New(color.FgYellow).SprintFunc(),
		err:         color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:         color.New(color.FgHiBlack).SprintFunc(),
		interactive: interactive,
	}
}

func newClient(baseURL string) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *client) request(method, path string, body any) (int, []byte, error) {
	var buf io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, buf)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, nil
}

func main() {
	baseURL := getenv("SONGBRIDGE_BASE_URL", "http://localhost:3000")
	profileName := getenv("SONGBRIDGE_PROFILE", "")
	ui := newUI()

	root := &cobra.Command{
		Use:   "songctl",
		Short: "songbridge CLI",
		Long:  "songctl starts generation tasks on a songbridge server and follows their results.",
	}
	root.SetHelpTemplate(helpTemplate(ui))
	root.SilenceUsage = true

	root.PersistentFlags().StringVar(&baseURL, "base-url", baseURL, "Base URL for songbridge")
	root.PersistentFlags().StringVar(&profileName, "profile", profileName, "Config profile")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, _, _ := loadConfig()
		prof := cfg.Profiles[resolveProfileName(profileName, cfg)]
		if !cmd.Flags().Changed("base-url") && strings.TrimSpace(os.Getenv("SONGBRIDGE_BASE_URL")) == "" && prof.BaseURL != "" {
			baseURL = prof.BaseURL
		}
		return nil
	}

	root.AddCommand(initCmd(&profileName, ui))
	root.AddCommand(generateCmd(&baseURL, ui))
	root.AddCommand(watchCmd(&baseURL, ui))
	root.AddCommand(coverStatusCmd(&baseURL, ui))
	root.AddCommand(statusCmd(&baseURL, ui))
	root.AddCommand(statsCmd(&baseURL, ui))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func helpTemplate(ui *ui) string {
	title := ui.title("songctl")
	return fmt.Sprintf(`%s: CLI for songbridge

Usage:
  {{.UseLine}}

Commands:
{{range .Commands}}{{if (or .IsAvailableCommand .IsAdditionalHelpTopicCommand)}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

Flags:
  {{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

Global Flags:
  {{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

Config:
  %s

Examples:
  songctl init
  songctl generate music --mood chill --watch
  songctl generate cover --prompt "neon skyline at dusk" --wait
  songctl watch <taskId>
  songctl cover-status <taskId> --wait

`, title, configPath())
}
