package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/config"
	"github.com/goliatone/go-signupsheets/pkg/mail"
	"github.com/goliatone/go-signupsheets/pkg/metabox"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/render"
	"github.com/goliatone/go-signupsheets/pkg/sitehealth"
)

// withApp opens the app for the duration of fn.
func (c *cli) withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newMigrateCmd(c *cli) *cobra.Command {
	var rerun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema changes and run pending data migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.withApp(ctx, func(a *app) error {
				updated, err := a.updater.Check(ctx)
				if err != nil {
					return err
				}
				if rerun {
					if err := a.updater.Rerun(ctx); err != nil {
						return err
					}
				}
				if err := a.updater.AsyncUpdate(ctx); err != nil {
					return err
				}
				pending, err := a.updater.Pending(ctx)
				if err != nil {
					return err
				}
				state := "up to date"
				if updated {
					state = "updated"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "database %s: version %s (%s), %d pending migrations\n",
					state, version, a.updater.Edition(), len(pending))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&rerun, "rerun", false, "run every data migration again")
	return cmd
}

func newRolesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage sign-up sheet roles and capabilities",
	}
	var remove bool
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Grant the plugin capabilities to the configured roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.withApp(ctx, func(a *app) error {
				action, run := "granted", a.roles.AddAll
				if remove {
					action, run = "removed", a.roles.RemoveAll
				}
				if err := run(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "capabilities %s\n", action)
				return nil
			})
		},
	}
	syncCmd.Flags().BoolVar(&remove, "remove", false, "remove the custom roles and capabilities instead")
	cmd.AddCommand(syncCmd)
	return cmd
}

func newRemindCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send due reminder emails once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.withApp(ctx, func(a *app) error {
				stats, err := a.reminder.Run(ctx, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reminders: %d sheets, %d sent, %d failed\n",
					stats.Sheets, stats.Sent, stats.Failed)
				return nil
			})
		},
	}
}

func newSiteHealthCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "site-health",
		Short: "Print the diagnostics report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.withApp(ctx, func(a *app) error {
				if err := a.scheduler.Add(mail.ReminderJobName, c.cfg.Scheduler.Reminders, a.remind); err != nil {
					return err
				}
				report := sitehealth.Build(sitehealth.Input{
					Version:  version,
					Settings: a.settings,
					Jobs:     a.scheduler.Jobs(),
					Now:      time.Now(),
				})
				out, _, err := sitehealth.Render(ctx, render.NewDefaultRegistry(nil), format, report)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: json or yaml")
	return cmd
}

func newSheetCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Manage sign-up sheets",
	}
	var (
		title, date string
		tasks       []string
		draft       bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a sheet with its tasks",
		Example: `  signup-sheets sheet create --title "Bake Sale" --date 2024-06-01 \
    --task "#Morning" --task "Cookies:2" --task "Pies"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var err error
			if title, err = ask(ctx, c.prompt, title, question{Message: "Sheet title:", Required: true}); err != nil {
				return err
			}
			if date, err = ask(ctx, c.prompt, date, question{Message: "Date (YYYY-MM-DD):", Help: "Leave empty for a sheet without a date."}); err != nil {
				return err
			}
			sheet, err := newSheet(title, date, draft)
			if err != nil {
				return err
			}
			rows, err := parseTaskSpecs(tasks)
			if err != nil {
				return err
			}
			return c.withApp(ctx, func(a *app) error {
				if err := a.store.CreateSheet(ctx, sheet); err != nil {
					return err
				}
				for i := range rows {
					rows[i].SheetID = sheet.ID
					rows[i].Position = i
					if err := a.store.SaveTask(ctx, &rows[i]); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created sheet %d %q with %d tasks: %s\n",
					sheet.ID, sheet.Title, len(rows), a.links.Sheet(sheet))
				return nil
			})
		},
	}
	create.Flags().StringVar(&title, "title", "", "sheet title")
	create.Flags().StringVar(&date, "date", "", "sheet date (YYYY-MM-DD)")
	create.Flags().StringArrayVar(&tasks, "task", nil, `task as "Title[:qty]"; a leading "#" makes a header row`)
	create.Flags().BoolVar(&draft, "draft", false, "create the sheet as a draft")
	cmd.AddCommand(create)
	return cmd
}

func newSheet(title, date string, draft bool) (*model.Sheet, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	sheet := &model.Sheet{
		Title:    strings.TrimSpace(title),
		Date:     d,
		IsActive: true,
		Status:   model.StatusPublish,
	}
	if draft {
		sheet.Status = model.StatusDraft
	}
	sheet.Slug = strings.ReplaceAll(metabox.Slugify(sheet.Title), "_", "-")
	return sheet, nil
}

// parseTaskSpecs reads "Title[:qty]" rows. Headers take no quantity.
func parseTaskSpecs(specs []string) ([]model.Task, error) {
	out := make([]model.Task, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		task := model.Task{Qty: 1, RowType: model.RowTypeTask, IsActive: true}
		if rest, ok := strings.CutPrefix(spec, "#"); ok {
			task.RowType = model.RowTypeHeader
			task.Title = strings.TrimSpace(rest)
		} else {
			name, qty, found := strings.Cut(spec, ":")
			task.Title = strings.TrimSpace(name)
			if found {
				n, err := strconv.Atoi(strings.TrimSpace(qty))
				if err != nil || n < 1 {
					return nil, fmt.Errorf("task %q: quantity must be a positive number", spec)
				}
				task.Qty = n
			}
		}
		if task.Title == "" {
			return nil, fmt.Errorf("task %q: title is required", spec)
		}
		out = append(out, task)
	}
	return out, nil
}

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage site users",
	}
	var (
		login, email, password, display string
		roles                           []string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var err error
			if login, err = ask(ctx, c.prompt, login, question{Message: "Login:", Required: true}); err != nil {
				return err
			}
			if email, err = ask(ctx, c.prompt, email, question{Message: "Email:", Required: true}); err != nil {
				return err
			}
			if password == "" {
				if password, err = c.prompt.Password(ctx, question{Message: "Password:", Required: true}); err != nil {
					return err
				}
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			if len(roles) == 0 {
				roles = []string{capabilities.RoleAdministrator}
			}
			user := &model.User{
				Login:        login,
				Email:        email,
				DisplayName:  display,
				Roles:        roles,
				PasswordHash: hash,
			}
			if user.DisplayName == "" {
				user.DisplayName = login
			}
			return c.withApp(ctx, func(a *app) error {
				for _, role := range roles {
					ok, err := a.store.HasRole(ctx, role)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("unknown role %q", role)
					}
				}
				if err := a.store.CreateUser(ctx, user); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %d %q (%s)\n", user.ID, user.Login, strings.Join(user.Roles, ", "))
				return nil
			})
		},
	}
	add.Flags().StringVar(&login, "login", "", "login name")
	add.Flags().StringVar(&email, "email", "", "email address")
	add.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	add.Flags().StringVar(&display, "display-name", "", "display name (defaults to the login)")
	add.Flags().StringSliceVar(&roles, "role", nil, "role keys (default administrator)")
	cmd.AddCommand(add)
	return cmd
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		// The file may not exist yet.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := c.cfgPath
			if path == "" {
				path = config.DefaultFile
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
