package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	signupCmd = &cobra.Command{
		Use:   "signup <name> <email> <password>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			if err := s.store.Signup(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed up as %s\n", s.store.State().User.Name)
			return nil
		},
	}

	loginCmd = &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			if err := s.store.Login(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", s.store.State().User.Name)
			return nil
		},
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			if err := s.store.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}

	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			if err := s.store.Restore(cmd.Context()); err != nil {
				return err
			}
			state := s.store.State()
			if !state.IsAuthenticated {
				return errors.New("not logged in")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> id=%s\n", state.User.Name, state.User.Email, state.User.ID)
			return nil
		},
	}
)
