package main

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/determined-ai/jobsched/internal/config"
)

var v *viper.Viper

// viperKeyDelimiter marks nested values in the configuration. It is ".." rather than "." so that
// keys containing a single "." are not split into nested objects.
const viperKeyDelimiter = ".."

// version is set at link time.
var version = "dev"

//nolint:gochecknoinit
func init() {
	rootCmd.Version = version
	registerConfig()
}

type configKey []string

func (c configKey) EnvName() string {
	return "JOBSCHED_" + strings.ReplaceAll(strings.ToUpper(c.FlagName()), "-", "_")
}

func (c configKey) AccessPath() string {
	return strings.ReplaceAll(strings.Join(c, viperKeyDelimiter), "-", "_")
}

func (c configKey) FlagName() string {
	return strings.Join(c, "-")
}

func registerString(flags *pflag.FlagSet, name configKey, value string, usage string) {
	flags.String(name.FlagName(), value, usage)
	_ = v.BindEnv(name.AccessPath(), name.EnvName())
	_ = v.BindPFlag(name.AccessPath(), flags.Lookup(name.FlagName()))
	v.SetDefault(name.AccessPath(), value)
}

func registerBool(flags *pflag.FlagSet, name configKey, value bool, usage string) {
	flags.Bool(name.FlagName(), value, usage)
	_ = v.BindEnv(name.AccessPath(), name.EnvName())
	_ = v.BindPFlag(name.AccessPath(), flags.Lookup(name.FlagName()))
	v.SetDefault(name.AccessPath(), value)
}

func registerInt(flags *pflag.FlagSet, name configKey, value int, usage string) {
	flags.Int(name.FlagName(), value, usage)
	_ = v.BindEnv(name.AccessPath(), name.EnvName())
	_ = v.BindPFlag(name.AccessPath(), flags.Lookup(name.FlagName()))
	v.SetDefault(name.AccessPath(), value)
}

func registerConfig() {
	v = viper.NewWithOptions(viper.KeyDelimiter(viperKeyDelimiter))
	v.SetTypeByDefaultValue(true)

	defaults := config.DefaultConfig()

	// Register flags and environment variables, and set default values for the flags. Clusters
	// are a list and can only be given in the configuration file.
	flags := rootCmd.Flags()
	name := func(components ...string) configKey { return components }

	registerString(flags, name("config-file"),
		defaults.ConfigFile, "location of config file")
	registerString(flags, name("jobs-file"),
		defaults.JobsFile, "YAML file of jobs to submit at startup")

	registerString(flags, name("log", "level"),
		defaults.Log.Level, "choose logging level from [trace, debug, info, warn, error, fatal]")
	registerBool(flags, name("log", "color"),
		defaults.Log.Color, "output logs in color")
	registerBool(flags, name("log", "json"),
		defaults.Log.JSON, "output logs as JSON")

	registerString(flags, name("scheduler", "backoff-policy"),
		defaults.Scheduler.BackoffPolicy, "placement retry policy, constant or exponential")
	registerString(flags, name("scheduler", "backoff-interval"),
		defaults.Scheduler.BackoffInterval.String(), "initial wait between placement attempts")
	registerString(flags, name("scheduler", "max-backoff-interval"),
		defaults.Scheduler.MaxBackoffInterval.String(), "longest wait between placement attempts")
	registerString(flags, name("scheduler", "fitting-policy"),
		defaults.Scheduler.FittingPolicy, "cluster selection policy, first, best or worst")
	registerBool(flags, name("scheduler", "wake-on-release"),
		defaults.Scheduler.WakeOnRelease, "retry placement as soon as a cluster frees resources")
	registerInt(flags, name("scheduler", "placement-history-size"),
		defaults.Scheduler.PlacementHistorySize, "number of recent placements kept for lookup")

	registerString(flags, name("http", "host"),
		defaults.HTTP.Host, "API server host")
	registerInt(flags, name("http", "port"),
		defaults.HTTP.Port, "API server port, 0 disables the API")
}
