package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/faqbot/internal/client"
)

const exitCommand = "/exit"

func newRootCmd() *cobra.Command {
	var apiURL string

	root := &cobra.Command{
		Use:          "chatcli",
		Short:        "Terminal client for the Iron Lady FAQ chatbot",
		SilenceUsage: true,
	}
	defaultURL := os.Getenv("API_BASE_URL")
	if defaultURL == "" {
		defaultURL = "http://127.0.0.1:8080"
	}
	root.PersistentFlags().StringVar(&apiURL, "api", defaultURL, "chatbot API base URL (env API_BASE_URL)")

	apiClient := func() *client.Client { return client.New(apiURL) }

	root.AddCommand(
		newHealthCmd(apiClient),
		newAskCmd(apiClient),
		newChatCmd(apiClient),
	)
	return root
}

func newHealthCmd(apiClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show API and model state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := apiClient().Health(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status:       %s\n", health.Status)
			fmt.Fprintf(out, "model loaded: %t\n", health.ModelLoaded)
			fmt.Fprintf(out, "faq entries:  %d\n", health.FAQEntries)
			return nil
		},
	}
}

func newAskCmd(apiClient func() *client.Client) *cobra.Command {
	var noModel bool
	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			reply, err := apiClient().Chat(cmd.Context(), question, !noModel)
			if err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noModel, "no-model", false, "answer from the FAQ only, never call the model")
	return cmd
}

func newChatCmd(apiClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, apiClient())
		},
	}
}

func runREPL(cmd *cobra.Command, c *client.Client) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	health, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("API is not available at %s, please start the backend: %w", c.BaseURL(), err)
	}
	if !health.ModelLoaded {
		fmt.Fprintln(out, "Model is not loaded yet; the first generated answer may take a while.")
	}
	fmt.Fprintf(out, "Iron Lady Chatbot (%d FAQ entries). Type %s to quit.\n", health.FAQEntries, exitCommand)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == exitCommand:
			return nil
		}

		reply, err := c.Chat(ctx, line, true)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Detail != "" {
				fmt.Fprintf(out, "error: %s\n", apiErr.Detail)
				continue
			}
			fmt.Fprintf(out, "error contacting backend: %v\n", err)
			continue
		}
		printReply(out, reply)
	}
}

func printReply(out io.Writer, reply client.ChatReply) {
	fmt.Fprintln(out, reply.Answer)
	fmt.Fprintf(out, "[source: %s]\n", reply.Source)
}
