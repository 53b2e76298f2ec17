package main

import (
	"fmt"
	"os"
	"time"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/internal/runtime"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	var (
		propertiesFile string
		workers        int
		receiveTimeout time.Duration
		exitCode       = runtime.ExitOK
	)

	rootCmd := &cobra.Command{
		Use:   "queue-consumer [properties-file]",
		Short: "Consume text messages from the broker queue",
		Long: `queue-consumer connects to the configured broker queue with pull consumers and logs
every text message it receives. Each consumer stops once it reads the stop message.

Exit codes: 0 success, 1 consumer connection failure, 2 invalid properties,
3 connection factory failure.`,
		Version:       fmt.Sprintf("%s (commit: %s)", config.ServiceVersion, config.CommitSHA),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 1 {
				propertiesFile = args[0]
			}

			exitCode = runtime.NewConsumer(
				runtime.WithPropertiesFile(propertiesFile),
				runtime.WithWorkers(workers),
				runtime.WithReceiveTimeout(receiveTimeout),
			).Run()
		},
	}

	rootCmd.Flags().StringVarP(&propertiesFile, "properties", "p", "", "Broker properties file")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of pull consumers (defaults to CONSUMER_WORKERS)")
	rootCmd.Flags().DurationVar(&receiveTimeout, "receive-timeout", 0, "How long one receive waits for a message")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		return runtime.ExitProperties
	}

	return exitCode
}
