// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
)

var (
	chatLocale  string
	chatSession string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive wizard conversation",
	Run:   runChatCommand,
}

func init() {
	chatCmd.Flags().StringVar(&chatLocale, "locale", "", "Reply locale (it, en)")
	chatCmd.Flags().StringVar(&chatSession, "resume", "", "Resume an existing session id")
}

// getWizardBaseURL resolves the service endpoint, defaulting to a local
// instance.
func getWizardBaseURL() string {
	if url := os.Getenv("WIZARD_SERVICE_URL"); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	return "http://localhost:12310"
}

func runChatCommand(cmd *cobra.Command, args []string) {
	baseURL := getWizardBaseURL()
	sessionID := chatSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	if interactive {
		fmt.Printf("TripScout wizard (session %s). Type 'exit' to quit.\n", sessionID)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), datatypes.MaxMessageBytes+1024)

	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		resp, err := sendTurn(client, baseURL, sessionID, line)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Printf("\n%s\n\n", resp.Reply)
		if resp.Type == datatypes.TurnTypeLimitReached {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Error reading input: %v", err)
	}
}

// sendTurn posts one turn and decodes the reply.
func sendTurn(client *http.Client, baseURL, sessionID, message string) (*datatypes.TurnResponse, error) {
	body, err := json.Marshal(datatypes.TurnRequest{
		SessionID: sessionID,
		Message:   message,
		Locale:    chatLocale,
	})
	if err != nil {
		return nil, err
	}

	httpResp, err := client.Post(baseURL+"/v1/turn", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wizard service unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wizard service returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var resp datatypes.TurnResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("invalid response from wizard service: %w", err)
	}
	return &resp, nil
}
