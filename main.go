package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kriyahq/kriya/agent"
	"github.com/kriyahq/kriya/config"
	"github.com/kriyahq/kriya/logger"
)

type cfg struct {
	config.Config
}

type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("data-dir", "data", "workspace root holding projects, workflow documents and script logs")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "fs", "implementation of underlying storage (fs, redis)")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "kriya", "namespace used in redis storage")
	cmd.Flags().String("bus-topic", "", "event bus topic for transition publishes, empty disables the bus")
	cmd.Flags().String("script-interpreter", "python3", "interpreter used for script entry actions")
	cmd.Flags().String("install-command", "python3 -m pip install", "command prefix used to install script requirements")
	cmd.Flags().Int("script-timeout", 300, "default script timeout in seconds")
	cmd.Flags().Int("kill-grace", 5, "grace window in seconds between SIGTERM and SIGKILL")
	cmd.Flags().String("prompt-endpoint", "http://localhost:4000/prompt", "prompt execution backend endpoint")
	cmd.Flags().Int("max-turns", 20, "default turn bound for prompt entry actions")
	cmd.Flags().Int("max-chain-depth", config.DefaultMaxChainDepth, "maximum automatic transition chain per external event")
	cmd.Flags().String("log-level", "info", "log level")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return err
		}
	}

	c.cfg.DataDir = viper.GetString("data-dir")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.BusTopic = viper.GetString("bus-topic")
	c.cfg.ScriptConfig.Interpreter = viper.GetString("script-interpreter")
	c.cfg.ScriptConfig.InstallCommand = strings.Fields(viper.GetString("install-command"))
	c.cfg.ScriptConfig.TimeoutSeconds = viper.GetInt("script-timeout")
	c.cfg.ScriptConfig.KillGraceSeconds = viper.GetInt("kill-grace")
	c.cfg.PromptConfig.Endpoint = viper.GetString("prompt-endpoint")
	c.cfg.PromptConfig.MaxTurns = viper.GetInt("max-turns")
	c.cfg.MaxChainDepth = viper.GetInt("max-chain-depth")
	c.cfg.LogLevel = viper.GetString("log-level")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	logger.Init(c.cfg.LogLevel)
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	if err = agent.Start(); err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "kriya",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
