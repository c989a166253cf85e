package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSignupCmd(configPath *string) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAnon(ctx); err != nil {
				return err
			}
			if err := a.session.Register(ctx, username, email, password); err != nil {
				return err
			}
			user, _ := a.session.User()
			fmt.Printf("signed up as %s (%s)\n", user.Username, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLoginCmd(configPath *string) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAnon(ctx); err != nil {
				return err
			}
			if err := a.session.Login(ctx, email, password); err != nil {
				return err
			}
			user, _ := a.session.User()
			fmt.Printf("signed in as %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			a.engine.Reset()
			fmt.Println("signed out")
			return nil
		},
	}
}

func newWhoamiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			if err := a.requireAuth(cmd.Context()); err != nil {
				return err
			}
			user, _ := a.session.User()
			fmt.Printf("%s <%s> (member since %s)\n", user.Username, user.Email, user.CreatedAt.Format("2006-01-02"))
			return nil
		},
	}
}
