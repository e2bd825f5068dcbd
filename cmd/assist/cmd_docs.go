package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage retrieval documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		docs, err := newClient().ListDocuments(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents uploaded yet.")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("  %4d  %s\n", d.ID, d.File)
		}
		return nil
	},
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload [path]",
	Short: "Upload a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		if err := newClient().UploadDocument(ctx, filepath.Base(args[0]), f); err != nil {
			return err
		}
		color.Green("Uploaded %s.", filepath.Base(args[0]))
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[0])
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := newClient().DeleteDocument(ctx, id); err != nil {
			return err
		}
		color.Green("Deleted document %d.", id)
		return nil
	},
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsDeleteCmd)
}
