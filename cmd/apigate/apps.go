package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newAppsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apps",
		Aliases: []string{"app"},
		Short:   "Manage client applications",
	}
	cmd.AddCommand(
		newAppsCreateCmd(opts),
		newAppsListCmd(opts),
		newAppsActiveCmd(opts, "enable", true),
		newAppsActiveCmd(opts, "disable", false),
		newAppsRegenerateCmd(opts),
		newAppsDeleteCmd(opts),
	)
	return cmd
}

func newAppsCreateCmd(opts *rootOptions) *cobra.Command {
	var name, description, operator string
	var inactive bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a client application and print its credentials",
		RunE: withRuntime(opts, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			creds, err := rt.service.CreateClientApp(ctx, operator, name, description, !inactive)
			if err != nil {
				return err
			}
			printCredentials(cmd.OutOrStdout(), creds)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "application name (3-100 characters)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&operator, "operator", "cli", "recorded as the creator")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the application disabled")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAppsListCmd(opts *rootOptions) *cobra.Command {
	var offset, limit int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List client applications",
		RunE: withRuntime(opts, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			apps, err := rt.service.ListClientApps(ctx, offset, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(toAppRecords(apps))
			}
			if len(apps) == 0 {
				fmt.Fprintln(out, "No client applications found")
				return nil
			}

			data := pterm.TableData{{"ID", "APP ID", "NAME", "ACTIVE", "CREATED BY", "CREATED"}}
			for _, app := range apps {
				data = append(data, []string{
					strconv.FormatInt(app.ID, 10),
					app.AppID,
					app.Name,
					strconv.FormatBool(app.Active),
					app.CreatedBy,
					app.CreatedAt.UTC().Format(time.RFC3339),
				})
			}
			return pterm.DefaultTable.
				WithHasHeader(true).
				WithWriter(out).
				WithData(data).
				Render()
		}),
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many applications")
	cmd.Flags().IntVar(&limit, "limit", 100, "list at most this many applications (max 100)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func newAppsActiveCmd(opts *rootOptions, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: fmt.Sprintf("%s a client application", verb),
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(opts, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			id, err := parseAppID(args[0])
			if err != nil {
				return err
			}
			app, err := rt.service.UpdateClientApp(ctx, id, service.ClientAppUpdate{Active: &active})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Client app %s %sd\n", app.AppID, verb)
			return nil
		}),
	}
}

func newAppsRegenerateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Replace a client application's secret",
		Long: `Replace a client application's secret and print the new one. Tokens
already issued stay valid until they expire.`,
		Args: cobra.ExactArgs(1),
		RunE: withRuntime(opts, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			id, err := parseAppID(args[0])
			if err != nil {
				return err
			}
			creds, err := rt.service.RegenerateSecret(ctx, id)
			if err != nil {
				return err
			}
			printCredentials(cmd.OutOrStdout(), creds)
			return nil
		}),
	}
}

func newAppsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client application",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(opts, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			id, err := parseAppID(args[0])
			if err != nil {
				return err
			}
			if err := rt.service.DeleteClientApp(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Client app %d deleted\n", id)
			return nil
		}),
	}
}

func parseAppID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid client app id %q", arg)
	}
	return id, nil
}

func printCredentials(w io.Writer, creds *service.IssuedCredentials) {
	fmt.Fprintf(w, "id:         %d\n", creds.App.ID)
	fmt.Fprintf(w, "app_id:     %s\n", creds.App.AppID)
	fmt.Fprintf(w, "app_secret: %s\n", creds.Secret)
	fmt.Fprintln(w, "Store the secret now, it cannot be shown again.")
}

type appRecord struct {
	ID          int64     `json:"id"`
	AppID       string    `json:"app_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAppRecords(apps []*service.ClientApp) []appRecord {
	records := make([]appRecord, 0, len(apps))
	for _, app := range apps {
		records = append(records, appRecord{
			ID:          app.ID,
			AppID:       app.AppID,
			Name:        app.Name,
			Description: app.Description,
			IsActive:    app.Active,
			CreatedBy:   app.CreatedBy,
			CreatedAt:   app.CreatedAt.UTC(),
			UpdatedAt:   app.UpdatedAt.UTC(),
		})
	}
	return records
}
