// Command signup-sheets runs the volunteer sign-up sheets site and its
// maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/pkg/config"
	"github.com/goliatone/go-signupsheets/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "3.0.0"

// cli carries the state shared by every command.
type cli struct {
	cfgPath string
	noInput bool
	cfg     config.Config
	logger  *zap.Logger
	prompt  prompter
}

func main() {
	if err := newRootCmd(&cli{prompt: surveyPrompter{}}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "signup-sheets",
		Short:         "Volunteer sign-up sheets",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", config.DefaultFile, "configuration file")
	root.PersistentFlags().BoolVar(&c.noInput, "no-input", false, "fail instead of prompting for missing values")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newRolesCmd(c),
		newRemindCmd(c),
		newSiteHealthCmd(c),
		newSheetCmd(c),
		newUserCmd(c),
		newConfigCmd(c),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	c.cfg, c.logger = cfg, logger
	if c.noInput || c.prompt == nil {
		c.prompt = noPrompter{}
	}
	return nil
}
