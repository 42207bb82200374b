package config

import (
	"os"
	"reflect"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	"github.com/go-oidfed/certledger"
)

// Config holds the configuration of the certledger server
type Config struct {
	Server  certledger.ServerConf `yaml:"server"`
	Ledger  ledgerConf            `yaml:"ledger"`
	Storage storageConf           `yaml:"storage"`
	Events  eventsConf            `yaml:"events"`
	API     apiConf               `yaml:"api"`
	Logging loggingConf           `yaml:"logging"`
}

type configValidator interface {
	validate() error
}

var c Config

var possibleConfigLocations = []string{
	".",
	"config",
	"/config",
	"/certledger/config",
	"/certledger",
	"/data/config",
	"/data",
	"/etc/certledger",
}

// Get returns the loaded Config
func Get() Config {
	return c
}

func defaultConfig() Config {
	return Config{
		Server: certledger.ServerConf{
			Port: 7672,
		},
		Storage: defaultStorageConf,
		Events:  defaultEventsConf,
		API:     defaultAPIConf,
		Logging: defaultLoggingConf,
	}
}

// Load reads the config file and populates the Config. If filename is
// empty, config.yaml is searched in the possibleConfigLocations.
// Load exits the process if the config cannot be loaded.
func Load(filename string) {
	data, path, err := readConfigFile(filename)
	if err != nil {
		log.WithError(err).Fatal("could not read config file")
	}
	if err = LoadFromBytes(data); err != nil {
		log.WithError(err).WithField("file", path).Fatal("invalid config")
	}
}

// LoadFromBytes populates the Config from the passed yaml data and
// validates it
func LoadFromBytes(data []byte) error {
	conf := defaultConfig()
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return errors.WithStack(err)
	}
	if err := conf.validate(); err != nil {
		return err
	}
	c = conf
	return nil
}

func readConfigFile(filename string) ([]byte, string, error) {
	if filename != "" {
		data, err := os.ReadFile(filename)
		return data, filename, errors.WithStack(err)
	}
	for _, dir := range possibleConfigLocations {
		path := dir + "/config.yaml"
		if !fileutils.FileExists(path) {
			continue
		}
		data, err := os.ReadFile(path)
		return data, path, errors.WithStack(err)
	}
	return nil, "", errors.New("no config file found")
}

// validate calls validate on every section implementing configValidator
func (conf *Config) validate() error {
	v := reflect.ValueOf(conf).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fieldVal := v.Field(i)
		if !fieldVal.CanAddr() {
			continue
		}
		if validator, ok := fieldVal.Addr().Interface().(configValidator); ok {
			if err := validator.validate(); err != nil {
				return errors.Errorf("invalid config section '%s': %s", t.Field(i).Tag.Get("yaml"), err.Error())
			}
		}
	}
	return nil
}
