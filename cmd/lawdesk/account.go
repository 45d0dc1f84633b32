package main

import (
	"fmt"
	"strings"

	"github.com/lawdesk/lawdesk-client/pkg/auth"
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			if email == "" {
				email = a.cfg.Auth.Email
			}
			if password == "" {
				password = a.cfg.Auth.Password
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			user, err := a.auth.Login(cmd.Context(), auth.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}
			access, refresh := a.auth.Session().Tokens()
			return printJSON(cmd, map[string]any{
				"user":         user,
				"token":        access,
				"refreshToken": refresh,
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			user := a.auth.CurrentUser()
			if user == nil {
				return auth.ErrNotAuthenticated
			}
			return printJSON(cmd, user)
		},
	}
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask the legal assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}

			reply, err := a.services.Chat.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if verbose {
				return printJSON(cmd, reply)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print model and token usage as JSON")
	return cmd
}
