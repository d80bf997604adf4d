package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newOperatorCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage operator accounts for the admin API",
	}
	cmd.AddCommand(newOperatorCreateCmd(opts))
	return cmd
}

func newOperatorCreateCmd(opts *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "create <handle>",
		Short: "Register an operator",
		Long: `Register an operator who can administer client applications over
HTTP Basic auth. Without --password the password is prompted for, or read
from the first line of stdin when it is not a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: withRuntime(opts, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			if password == "" {
				var err error
				password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}
			if err := rt.service.RegisterOperator(ctx, args[0], password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Operator %s created\n", strings.TrimSpace(args[0]))
			return nil
		}),
	}
	cmd.Flags().StringVar(&password, "password", "", "operator password (prompted when empty)")
	return cmd
}

func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
