package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/server/auth"
	"github.com/ValentinKolb/dDoc/server/common"
	"github.com/ValentinKolb/dDoc/server/http"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dDoc HTTP server",
		Long:    `Start the dDoc HTTP server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DDOC_<flag> (e.g. DDOC_SWEEP_INTERVAL=30s)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "endpoint"
	ServeCmd.Flags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080)"))

	key = "sweep-interval"
	ServeCmd.Flags().Duration(key, time.Minute, cmdUtil.WrapString("Interval between two TTL sweeps that remove expired documents"))

	key = "shutdown-timeout"
	ServeCmd.Flags().Duration(key, 10*time.Second, cmdUtil.WrapString("How long to wait for running requests on shutdown"))

	key = "users"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("Comma-separated list of users allowed to access the API. Format: NAME=BCRYPT_HASH (see ddoc hash-password)"))

	key = "users-file"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("File with one NAME:BCRYPT_HASH pair per line (htpasswd style), merged with --users"))

	key = "insecure"
	ServeCmd.Flags().Bool(key, false, cmdUtil.WrapString("Allow starting without any users. Authentication is disabled in this case"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.SweepInterval = viper.GetDuration("sweep-interval")
	serveCmdConfig.ShutdownTimeout = viper.GetDuration("shutdown-timeout")
	serveCmdConfig.Insecure = viper.GetBool("insecure")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	if serveCmdConfig.LogLevel == "" {
		serveCmdConfig.LogLevel = "info"
	}

	// parse users
	users, err := auth.ParseUsers(viper.GetString("users"))
	if err != nil {
		return err
	}
	if path := viper.GetString("users-file"); path != "" {
		fromFile, err := auth.LoadUsersFile(afero.NewOsFs(), path)
		if err != nil {
			return err
		}
		if err := users.Merge(fromFile); err != nil {
			return err
		}
	}
	serveCmdConfig.Users = users

	if err := serveCmdConfig.Validate(); err != nil {
		return err
	}
	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the dDoc server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	fmt.Println(serveCmdConfig.String())

	db, err := cmdUtil.OpenDatabase()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			cmdUtil.Logger.Errorf("failed to close database: %v", err)
		}
	}()
	db.StartTTLCleaner(serveCmdConfig.SweepInterval)

	serv := http.NewServer(db, *serveCmdConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- serv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveCmdConfig.ShutdownTimeout)
	defer cancel()
	if err := serv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errCh
}
