package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
)

// loginCmd authenticates against the backend and stores the session.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store the session token",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessions.Clear(); err != nil {
			return err
		}
		color.Green("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, ok := sessions.Get()
		if !ok {
			return fmt.Errorf("not logged in")
		}
		if sess.Profile == nil {
			fmt.Println("Logged in (no profile stored).")
			return nil
		}
		p := sess.Profile
		color.New(color.Bold).Printf("%s %s", p.FirstName, p.LastName)
		fmt.Printf(" <%s>  [%s]\n", p.Email, p.Initials())
		return nil
	},
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	username := loginUsername
	if username == "" {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(line)
	}

	password := loginPassword
	if password == "" {
		fmt.Print("Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		password = strings.TrimSpace(line)
	}

	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := newClient().Login(ctx, username, password)
	if err != nil {
		color.Red("Login failed.")
		return err
	}
	if err := sessions.Set(sess); err != nil {
		return err
	}

	if sess.Profile != nil {
		color.Green("Logged in as %s %s.", sess.Profile.FirstName, sess.Profile.LastName)
	} else {
		color.Green("Logged in.")
	}
	return nil
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted when omitted)")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted when omitted)")
}
