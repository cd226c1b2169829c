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

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bankctl",
		Short: "PlayerBank CLI tool",
		Long:  `A command line interface for interacting with the PlayerBank API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the PlayerBank API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	balanceCmd := &cobra.Command{
		Use:   "balance <player> <lane>",
		Short: "Show one lane's balance",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON(balancePath(args[0], args[1]))
		},
	}

	modifyCmd := &cobra.Command{
		Use:   "modify <player> <lane> <delta>",
		Short: "Apply a signed delta to one lane",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			postJSON(balancePath(args[0], args[1])+"/modify", map[string]string{"delta": args[2]})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <player> <lane> <value>",
		Short: "Overwrite one lane's balance",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			postJSON(balancePath(args[0], args[1])+"/set", map[string]string{"value": args[2]})
		},
	}

	transferCmd := &cobra.Command{
		Use:   "transfer <from> <to> <lane> <amount>",
		Short: "Move an amount between two players within one lane",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 4 {
				fmt.Println("usage: bankctl transfer <from> <to> <lane> <amount>")
				os.Exit(1)
			}
			postJSON("/api/v1/transfers", map[string]string{
				"from_id": args[0],
				"to_id":   args[1],
				"lane":    args[2],
				"amount":  args[3],
			})
		},
	}

	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Session operations",
	}

	var attachName string
	attachCmd := &cobra.Command{
		Use:   "attach <player>",
		Short: "Attach a session, pinning the player's record in memory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			body := map[string]string{}
			if attachName != "" {
				body["name"] = attachName
			}
			doJSON(http.MethodPut, "/api/v1/sessions/"+args[0], body)
		},
	}
	attachCmd.Flags().StringVar(&attachName, "name", "", "Display name for the player")

	detachCmd := &cobra.Command{
		Use:   "detach <player>",
		Short: "Detach a session, persisting the pinned record",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doJSON(http.MethodDelete, "/api/v1/sessions/"+args[0], nil)
		},
	}

	sessionCmd.AddCommand(attachCmd, detachCmd)
	rootCmd.AddCommand(balanceCmd, modifyCmd, setCmd, transferCmd, sessionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// balancePath builds the API path for one player's lane.
func balancePath(player, lane string) string {
	return "/api/v1/players/" + player + "/balance/" + lane
}

func getJSON(path string) {
	doJSON(http.MethodGet, path, nil)
}

func postJSON(path string, body any) {
	doJSON(http.MethodPost, path, body)
}

func doJSON(method, path string, body any) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			fmt.Printf("Failed to encode request: %v\n", err)
			os.Exit(1)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		fmt.Printf("Failed to build request: %v\n", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(raw))
		os.Exit(1)
	}

	fmt.Println(prettyJSON(raw))
}

// prettyJSON re-indents a JSON payload, falling back to the raw text.
func prettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return strings.TrimSpace(buf.String())
}
