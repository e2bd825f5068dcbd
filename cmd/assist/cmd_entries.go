package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"smartassist/internal/history"
	"smartassist/internal/stream"
)

var (
	entriesPage int
	askEntryID  string
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage conversations",
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, grouped by recency",
	RunE:  runEntriesList,
}

var entriesRenameCmd = &cobra.Command{
	Use:   "rename [id] [title...]",
	Short: "Rename a conversation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		title := strings.Join(args[1:], " ")
		if err := newClient().RenameEntry(ctx, args[0], title); err != nil {
			return err
		}
		color.Green("Renamed %s to %q.", args[0], title)
		return nil
	},
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := newClient().DeleteEntry(ctx, args[0]); err != nil {
			return err
		}
		color.Green("Deleted %s.", args[0])
		return nil
	},
}

// askCmd streams one answer to stdout without entering the TUI.
var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask one question and stream the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func runEntriesList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := newClient().ListEntries(ctx, entriesPage, cfg.PageSize)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	for _, bucket := range history.Classify(page.Results, time.Now()) {
		bold.Println(bucket.Label)
		for _, e := range bucket.Entries {
			fmt.Printf("  %-36s  %s  %s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Name)
		}
	}
	if page.Next != nil {
		color.New(color.Faint).Printf("More available: --page %d\n", entriesPage+1)
	}
	fmt.Printf("%d conversation(s) total.\n", page.Count)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	entryID := askEntryID
	if entryID == "" {
		id, err := newClient().CreateEntry(ctx)
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		entryID = id
	}

	dialer := stream.NewDialer(cfg.WebSocketURL(), sessions)
	s, err := dialer.Ask(ctx, entryID, question)
	if err != nil {
		return err
	}
	defer s.Close()

	var streamed strings.Builder
	for tok := range s.Fragments {
		fmt.Print(tok)
		streamed.WriteString(tok)
	}
	select {
	case c := <-s.Done:
		fmt.Println()
		// The server's final answer wins over the concatenation.
		if c.FinalAnswer != "" && c.FinalAnswer != streamed.String() {
			fmt.Println(c.FinalAnswer)
		}
		if len(c.Sources) > 0 {
			faint := color.New(color.Faint)
			faint.Println("Sources:")
			for _, src := range c.Sources {
				faint.Printf("  - %s\n", src.Source)
			}
		}
		color.New(color.Faint).Printf("[conversation %s]\n", entryID)
	case err := <-s.Errs:
		fmt.Println()
		return err
	case <-ctx.Done():
		fmt.Println()
		return ctx.Err()
	}
	return nil
}

func init() {
	entriesListCmd.Flags().IntVar(&entriesPage, "page", 1, "Page to list")
	askCmd.Flags().StringVar(&askEntryID, "entry", "", "Existing conversation id (default: create a new one)")

	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesRenameCmd)
	entriesCmd.AddCommand(entriesDeleteCmd)
}
