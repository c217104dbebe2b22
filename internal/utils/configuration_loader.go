package utils

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant           = "_"
	configurationKeySeparatorConstant         = "."
	explicitConfigurationReadTemplateConstant = "unable to read configuration file %s: %w"
	embeddedConfigurationReadErrorConstant    = "unable to read embedded configuration: %w"
	configurationDecodeErrorTemplateConstant  = "unable to decode configuration: %w"
)

// LoadedConfiguration describes metadata about the configuration sources that were applied.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader merges embedded defaults, configuration files, and environment overrides.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// NewConfigurationLoader constructs a ConfigurationLoader for the provided configuration identity.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string{}, searchPaths...),
	}
}

// SetEmbeddedConfiguration registers embedded default configuration content applied beneath all other sources.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(content []byte, contentType string) {
	loader.embeddedConfiguration = append([]byte{}, content...)
	loader.embeddedConfigurationType = contentType
}

// LoadConfiguration resolves configuration values into the provided target structure.
func (loader *ConfigurationLoader) LoadConfiguration(explicitFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)

	if len(loader.embeddedConfiguration) > 0 {
		embeddedViper := viper.New()
		embeddedType := loader.embeddedConfigurationType
		if len(embeddedType) == 0 {
			embeddedType = loader.configurationType
		}
		embeddedViper.SetConfigType(embeddedType)
		if readError := embeddedViper.ReadConfig(bytes.NewReader(loader.embeddedConfiguration)); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationReadErrorConstant, readError)
		}
		for _, settingKey := range embeddedViper.AllKeys() {
			viperInstance.SetDefault(settingKey, embeddedViper.Get(settingKey))
		}
	}

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(loader.environmentPrefix) > 0 {
		viperInstance.SetEnvPrefix(loader.environmentPrefix)
		viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
		viperInstance.AutomaticEnv()
	}

	configurationFileUsed := ""
	trimmedExplicitPath := strings.TrimSpace(explicitFilePath)
	if len(trimmedExplicitPath) > 0 {
		viperInstance.SetConfigFile(trimmedExplicitPath)
		if readError := viperInstance.ReadInConfig(); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(explicitConfigurationReadTemplateConstant, trimmedExplicitPath, readError)
		}
		configurationFileUsed = viperInstance.ConfigFileUsed()
	} else {
		for _, searchPath := range loader.searchPaths {
			candidatePath := filepath.Join(searchPath, loader.configurationName+configurationKeySeparatorConstant+loader.configurationType)
			candidateViper := viper.New()
			candidateViper.SetConfigFile(candidatePath)
			if readError := candidateViper.ReadInConfig(); readError != nil {
				continue
			}
			viperInstance.SetConfigFile(candidatePath)
			if readError := viperInstance.ReadInConfig(); readError != nil {
				continue
			}
			configurationFileUsed = candidatePath
			break
		}
	}

	if target != nil {
		if decodeError := viperInstance.Unmarshal(target); decodeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, decodeError)
		}
	}

	return LoadedConfiguration{ConfigFileUsed: configurationFileUsed}, nil
}
