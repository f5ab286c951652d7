package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

//go:generate mockgen -source=config.go -destination=mocks/mock_config.go -package=mocks

type Config struct {
	TVMaze  TVMaze  `json:"tvmaze" yaml:"tvmaze" mapstructure:"tvmaze"`
	Storage Storage `json:"storage" yaml:"storage" mapstructure:"storage"`
	Server  Server  `json:"server" yaml:"server" mapstructure:"server"`
	Refresh Refresh `json:"refresh" yaml:"refresh" mapstructure:"refresh"`
}

type TVMaze struct {
	Scheme      string        `json:"scheme" yaml:"scheme" mapstructure:"scheme" validate:"omitempty,oneof=http https"`
	Host        string        `json:"host" yaml:"host" mapstructure:"host"`
	BaseBackoff time.Duration `json:"backoff" yaml:"backoff" mapstructure:"backoff"`
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries" mapstructure:"maxRetries" validate:"gte=0"`
}

// Storage configuration is for the sqlite database only currently
type Storage struct {
	FilePath string `json:"filePath" yaml:"filePath" mapstructure:"filePath" validate:"required"`
}

type Server struct {
	Port int `json:"port" yaml:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
}

// Refresh houses the staleness window and the batch shape of the background
// episode synchronization.
type Refresh struct {
	Window     time.Duration `json:"window" yaml:"window" mapstructure:"window" validate:"gt=0"`
	BatchSize  int           `json:"batchSize" yaml:"batchSize" mapstructure:"batchSize" validate:"gte=1"`
	BatchDelay time.Duration `json:"batchDelay" yaml:"batchDelay" mapstructure:"batchDelay" validate:"gte=0"`
	Interval   time.Duration `json:"interval" yaml:"interval" mapstructure:"interval" validate:"gt=0"`
}

type ConfigUnmarshaler interface {
	ReadInConfig() error
	Unmarshal(any, ...viper.DecoderConfigOption) error
	ConfigFileUsed() string
}

// New reads a new configuration
func New(cu ConfigUnmarshaler) (Config, error) {
	var c Config

	if cu.ConfigFileUsed() != "" {
		err := cu.ReadInConfig()
		if err != nil {
			return c, err
		}
	}

	err := cu.Unmarshal(&c)
	return c, err
}

// Validate checks the configuration is usable before anything starts with it
func (c Config) Validate() error {
	return validator.New().Struct(c)
}
