package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module/tracker"
)

// EnvPrefix prefixes the environment variables overriding config values, e.g.
// NODE_GC_BLOCKS_LIMIT.
const EnvPrefix = "NODE"

// Config is the node configuration garbage collection runs with.
type Config struct {
	GC       GCConfig      `mapstructure:",squash"`
	Tracking tracker.Flags `mapstructure:",squash"`
	Archive  bool          `mapstructure:"archive"`
}

func DefaultConfig() *Config {
	return &Config{GC: DefaultGCConfig()}
}

// Load reads the config from the flags, the environment and, if configFile is
// not empty, the config file. Flags set on the command line win over the
// environment, which wins over the file; unset flags fall back to their
// defaults.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	conf := viper.New()
	if err := conf.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("could not bind flags: %w", err)
	}
	conf.SetEnvPrefix(EnvPrefix)
	conf.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	conf.AutomaticEnv()

	if configFile != "" {
		conf.SetConfigFile(configFile)
		if err := conf.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", configFile, err)
		}
	}

	var config Config
	err := conf.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		shardScheduleHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	if err := config.GC.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

var scheduleType = reflect.TypeOf([][]flow.ShardID{})

// shardScheduleHook decodes a schedule written as shard id lists separated by
// semicolons.
func shardScheduleHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != scheduleType {
		return data, nil
	}
	return ParseShardSchedule(data.(string))
}

// ParseShardSchedule parses "0,1;2" into [[0 1] [2]]. An empty string is an
// empty schedule.
func ParseShardSchedule(s string) ([][]flow.ShardID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var schedule [][]flow.ShardID
	for _, entry := range strings.Split(s, ";") {
		shards := []flow.ShardID{}
		for _, field := range strings.Split(entry, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid shard id %q in schedule %q: %w", field, s, err)
			}
			shards = append(shards, flow.ShardID(id))
		}
		schedule = append(schedule, shards)
	}
	return schedule, nil
}
