package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwizi/job-agent/internal/adminclient"
)

func newExportsCommand() *cobra.Command {
	var (
		apiURL   string
		apiToken string
	)
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List recent Google Sheets exports of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := adminclient.New(apiURL, apiToken, 30*time.Second)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			records, err := client.ListExports(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				cmd.Println("no exports yet")
				return nil
			}
			for _, record := range records {
				cmd.Printf("%s  %3d jobs  %s\n", time.Unix(record.CreatedAtUnix, 0).UTC().Format("2006-01-02 15:04"), record.JobCount, record.TargetURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "http://127.0.0.1:8080", "base url of a running job-agent")
	cmd.Flags().StringVar(&apiToken, "api-token", os.Getenv("JOB_AGENT_HTTP_API_TOKEN"), "bearer token for the api")
	return cmd
}
