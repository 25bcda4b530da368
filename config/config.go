// Package config loads the YAML configuration of a node.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/IgGusev/ignite-3/logstorage"
	"github.com/IgGusev/ignite-3/partition"
	"github.com/IgGusev/ignite-3/pkg/xlog"
	"github.com/IgGusev/ignite-3/raft"
)

type Config struct {
	Log           LogConfig                     `yaml:"log"`
	Raft          RaftConfig                    `yaml:"raft"`
	StorageUpdate partition.StorageUpdateConfig `yaml:"storage_update"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type RaftConfig struct {
	LogStorage logstorage.Config `yaml:"log_storage"`
	LogManager LogManagerConfig  `yaml:"log_manager"`
}

type LogManagerConfig struct {
	EnableLogEntryChecksum bool `yaml:"enable_log_entry_checksum"`
	DiskQueueBufferSize    int  `yaml:"disk_queue_buffer_size"`
	MaxAppendBatchEntries  int  `yaml:"max_append_batch_entries"`
	MaxAppendBufferSize    int  `yaml:"max_append_buffer_size"`
}

// Default returns the configuration used for missing fields.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Raft: RaftConfig{
			LogStorage: logstorage.Config{Engine: logstorage.EngineMemory},
			LogManager: LogManagerConfig{
				DiskQueueBufferSize:   1024,
				MaxAppendBatchEntries: 256,
				MaxAppendBufferSize:   256 * 1024,
			},
		},
		StorageUpdate: partition.StorageUpdateConfig{BatchByteLength: partition.DefaultBatchByteLength},
	}
}

// Load reads the configuration at path over the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %q", path)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := xlog.ParseLogLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "config: log.level")
	}
	if err := c.Raft.LogStorage.Validate(); err != nil {
		return errors.Wrap(err, "config: raft.log_storage")
	}

	lm := c.Raft.LogManager
	if lm.DiskQueueBufferSize < 1 {
		return errors.Errorf("config: raft.log_manager.disk_queue_buffer_size %d must be at least 1", lm.DiskQueueBufferSize)
	}
	if lm.MaxAppendBatchEntries < 1 {
		return errors.Errorf("config: raft.log_manager.max_append_batch_entries %d must be at least 1", lm.MaxAppendBatchEntries)
	}
	if lm.MaxAppendBufferSize < 1 {
		return errors.Errorf("config: raft.log_manager.max_append_buffer_size %d must be at least 1", lm.MaxAppendBufferSize)
	}

	if err := c.StorageUpdate.Validate(); err != nil {
		return errors.Wrap(err, "config: storage_update")
	}
	return nil
}

// ApplyLogLevel sets the level of every package logger.
func (c *Config) ApplyLogLevel() error {
	lvl, err := xlog.ParseLogLevel(c.Log.Level)
	if err != nil {
		return err
	}
	xlog.SetGlobalMaxLogLevel(lvl)
	return nil
}

// LogManagerOptions returns log manager options for group over storage.
func (c *Config) LogManagerOptions(groupID string, storage raft.LogStorage) raft.LogManagerOptions {
	lm := c.Raft.LogManager
	return raft.LogManagerOptions{
		GroupID:                groupID,
		LogStorage:             storage,
		EnableLogEntryChecksum: lm.EnableLogEntryChecksum,
		DiskQueueBufferSize:    lm.DiskQueueBufferSize,
		MaxAppendBatchEntries:  lm.MaxAppendBatchEntries,
		MaxAppendBufferSize:    lm.MaxAppendBufferSize,
	}
}

// StorageUpdateConfig returns the storage update handler configuration.
func (c *Config) StorageUpdateConfig() partition.StorageUpdateConfig {
	return c.StorageUpdate
}
