package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/smallnest/agentbridge/config"
)

var statusConfigPath string

// StatusCommand returns the status command.
func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check gateway health",
		RunE:  runStatus,
	}
	cmd.Flags().StringVarP(&statusConfigPath, "config", "c", "", "Config file path")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(statusConfigPath)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:%d/health", cfg.Gateway.Host, cfg.Gateway.Port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("malformed health response: %w", err)
	}

	fmt.Printf("gateway %s status=%v\n", url, health["status"])
	return nil
}
