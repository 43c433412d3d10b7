package config

type (
	// NotifierConfig represents the configuration for the audit notifier
	NotifierConfig struct {
		Type  string      `yaml:"type"` // none, redis
		Redis RedisConfig `yaml:"redis"`
	}

	// RedisConfig represents the configuration for the Redis stream notifier
	RedisConfig struct {
		Addr     string `yaml:"addr"` // multiple addresses separated by ";" or ","
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Stream   string `yaml:"stream"`
		MaxLen   int64  `yaml:"max_len"` // approximate stream cap, 0 keeps everything
	}
)

const (
	NotifierTypeNone  = "none"
	NotifierTypeRedis = "redis"
)
