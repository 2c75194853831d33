package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bdrazn/adkextension/internal/types"
)

var (
	sessionAddr string
	sessionApp  string
	sessionUser string
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionDeleteCmd)
	sessionCmd.PersistentFlags().StringVar(&sessionAddr, "addr", "http://localhost:8000", "gateway address")
	sessionCmd.PersistentFlags().StringVar(&sessionApp, "app", "adk_chat", "application name")
	sessionCmd.PersistentFlags().StringVar(&sessionUser, "user", "default", "user id")
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect sessions on a running gateway",
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func sessionURL(parts ...string) string {
	url := fmt.Sprintf("%s/apps/%s/users/%s/sessions", sessionAddr, sessionApp, sessionUser)
	for _, p := range parts {
		url += "/" + p
	}
	return url
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Get(sessionURL())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}

		var payload struct {
			Sessions []*types.Session `json:"sessions"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		if len(payload.Sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEVENTS\tLAST UPDATE")
		for _, s := range payload.Sessions {
			updated := time.Unix(int64(s.LastUpdateTime), 0).Format("2006-01-02 15:04:05")
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.ID, len(s.Events), updated)
		}
		return w.Flush()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Get(sessionURL(args[0]))
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("session not found: %s", args[0])
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}

		var sess types.Session
		if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		for _, ev := range sess.Events {
			fmt.Fprintf(os.Stdout, "[%s] %s: %s\n",
				time.Unix(int64(ev.Timestamp), 0).Format("15:04:05"), ev.Author, ev.Text())
		}
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := http.NewRequest(http.MethodDelete, sessionURL(args[0]), nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("session not found: %s", args[0])
		}
		if resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}
		fmt.Fprintf(os.Stdout, "Session %s deleted.\n", args[0])
		return nil
	},
}
