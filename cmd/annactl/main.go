package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/internal/util"
	"github.com/annakv/routerclient/pkg/nodeaddr"
	"github.com/annakv/routerclient/pkg/router"
)

var (
	// BuildDate is the date when the binary was built.
	BuildDate string
	// GitCommit is the commit hash that built the binary.
	GitCommit string
	// Version is the version.
	Version string
)

const (
	// ParamVerbose enables verbose logging.
	ParamVerbose = "verbose"
	// ParamJSON makes logger log in JSON format.
	ParamJSON = "json"
	// ParamConfigPath provides file with configuration.
	ParamConfigPath = "config-path"
	// ParamVersion makes program output its version.
	ParamVersion = "version"
	// ParamCache makes lookups use the local cache.
	ParamCache = "cache"
	// ParamOutput selects the output format.
	ParamOutput = "output"
	// ParamPublicIP is the public IP of the node in a membership notification.
	ParamPublicIP = "public-ip"
	// ParamPrivateIP is the private IP of the node in a membership notification.
	ParamPrivateIP = "private-ip"
	// ParamVirtualID is the virtual id of the node in a membership notification.
	ParamVirtualID = "virtual-id"
	// ParamNodeAddrProvider discovers the node IPs instead of taking them from flags.
	ParamNodeAddrProvider = "node-addr-provider"
)

func main() {
	v, args, version, err := setupConfiguration(os.Args[1:])
	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		logrus.Fatalf("Error while parsing configuration: %v", err)
	}
	if version {
		fmt.Printf("Version: %s - Commit: %s - Date: %s\n", Version, GitCommit, BuildDate)
		return
	}
	if err := run(v, args); err != nil {
		logrus.Fatalf("%v", err)
	}
}

func run(v *viper.Viper, args []string) error {
	logger := logrus.StandardLogger()

	cmd, err := parseCommand(v, args)
	if err != nil {
		return err
	}

	retry, err := util.GetRetryFromViper(v)
	if err != nil {
		return err
	}

	client, err := router.NewClientFromViper(logger, v, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close client")
		}
	}()

	ctx, cancelFunc := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	if cmd.needsNodeAddress() {
		providerName := v.GetString(ParamNodeAddrProvider)
		provider, err := nodeaddr.Get(logger, providerName, v)
		if err != nil {
			return fmt.Errorf("%s %q: %w", ParamNodeAddrProvider, providerName, err)
		}
		if err := cmd.fillNodeAddress(ctx, provider); err != nil {
			return err
		}
	}

	return util.Retry(ctx, logger, retry, func() error {
		return cmd.execute(ctx, client, os.Stdout)
	})
}

func setupConfiguration(arguments []string) (*viper.Viper, []string, bool, error) {
	v := viper.New()
	defer setupLogger(v) // Apply logging configuration in case of early exit
	util.InitViper(v, "")

	var version bool

	cmd := pflag.NewFlagSet("annactl", pflag.ContinueOnError)
	cmd.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: annactl [flags] lookup <key>...\n")
		fmt.Fprintf(os.Stderr, "       annactl [flags] join|depart|replace\n\n")
		cmd.PrintDefaults()
	}

	cmd.BoolVar(&version, ParamVersion, false, "Print the version and exit")
	cmd.Bool(ParamVerbose, false, "Verbose")
	cmd.Bool(ParamJSON, false, "Log in JSON format")
	cmd.String(ParamConfigPath, "", "Path to the configuration file")
	cmd.Bool(ParamCache, false, "Answer lookups from the local cache only")
	cmd.String(ParamOutput, outputText, "Output format, one of "+outputText+" or "+outputJSON)
	cmd.String(ParamPublicIP, "", "Public IP of the node to announce")
	cmd.String(ParamPrivateIP, "", "Private IP of the node to announce")
	cmd.String(ParamVirtualID, "", "Virtual id of the node to announce")
	cmd.String(ParamNodeAddrProvider, "static", "Provider of the node IPs when --"+ParamPublicIP+" is not set")

	routerclient.AddFlags(cmd)
	util.AddRetryFlags(cmd)

	cmd.VisitAll(func(flag *pflag.Flag) {
		if err := v.BindPFlag(flag.Name, flag); err != nil {
			panic(err) // Should never happen
		}
	})

	if err := cmd.Parse(arguments); err != nil {
		return nil, nil, false, err
	}

	configPath := v.GetString(ParamConfigPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, false, err
		}
	}

	return v, cmd.Args(), version, nil
}

func setupLogger(v *viper.Viper) {
	if v.GetBool(ParamVerbose) {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if v.GetBool(ParamJSON) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
