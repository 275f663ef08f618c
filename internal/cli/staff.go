package cli

import (
	"errors"
	"fmt"

	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/container"
	"github.com/spf13/cobra"
)

func newCreateStaffCmd(configPath *string) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "createstaff",
		Short: "Create a staff user or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}

			c, err := openOffline(cmd, *configPath)
			if err != nil {
				return err
			}
			defer c.Close()

			u, err := c.AuthContainer.Service.CreateStaff(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "staff user %s (%s) ready\n", u.Username, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "staff username")
	cmd.Flags().StringVar(&password, "password", "", "staff password")
	return cmd
}

// openOffline wires the application for commands that do not serve HTTP.
func openOffline(cmd *cobra.Command, configPath string) (*container.Container, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Redis.Addr = ""
	cfg.RabbitMQ.URL = ""

	c, err := container.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	if err := container.AutoMigrate(config.DB); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
