package config

import (
	"encoding/json"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/common"
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
)

const (
	_DEFAULT_CONFIG_FILE         = "protopatch.ini"
	_DEFAULT_PATCH_DIRECTORY     = "Data/Game/Patches"
	_DEFAULT_PROTOTYPE_DIRECTORY = "Data/Game/Prototypes"
	_DEFAULT_LOG_LEVEL           = "info"
	_DEFAULT_LOG_FILE            = "protopatch.log"
	_DEFAULT_LEDGER_DB           = "protopatch"
	_DEFAULT_LEDGER_COLLECTION   = "__patch_ledger__"
)

// Apply modes of the patch manager
const (
	ApplyModeInline   = "inline"
	ApplyModeDeferred = "deferred"
)

var (
	configFilePath   = _DEFAULT_CONFIG_FILE
	protoPatchConfig *ProtoPatchConfig
	configLock       sync.Mutex
)

// PatchConfig defines fields of the [patch] section
type PatchConfig struct {
	Enabled    bool
	Directory  string
	FilePrefix string
	ApplyMode  string // inline or deferred
}

// PrototypeConfig defines fields of the [prototype] section
type PrototypeConfig struct {
	Directory string
}

// LedgerConfig defines fields of the [ledger] section
type LedgerConfig struct {
	Type       string // sqlite, redis, redis_cluster, mongodb, or empty to disable the ledger
	Url        string // sqlite file, redis address or mongodb url
	DB         string // redis db index or mongodb database
	Collection string // MongoDB
	StartNodes common.StringSet
}

// LogConfig defines fields of the [log] section
type LogConfig struct {
	Level  string
	File   string
	Stderr bool
}

// ProtoPatchConfig defines the total config file structure
type ProtoPatchConfig struct {
	Patch     PatchConfig
	Prototype PrototypeConfig
	Ledger    LedgerConfig
	Log       LogConfig
}

// SetConfigFile sets the config file path (protopatch.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// GetConfigDir returns the directory of the config file
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total config
func Get() *ProtoPatchConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if protoPatchConfig == nil {
		protoPatchConfig = readProtoPatchConfig()
	}
	return protoPatchConfig
}

// Reload forces to reload the whole config
func Reload() *ProtoPatchConfig {
	configLock.Lock()
	protoPatchConfig = nil
	configLock.Unlock()

	return Get()
}

// GetPatch returns the patch config
func GetPatch() *PatchConfig {
	return &Get().Patch
}

// GetPrototype returns the prototype config
func GetPrototype() *PrototypeConfig {
	return &Get().Prototype
}

// GetLedger returns the ledger config
func GetLedger() *LedgerConfig {
	return &Get().Ledger
}

// GetLog returns the log config
func GetLog() *LogConfig {
	return &Get().Log
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readProtoPatchConfig() *ProtoPatchConfig {
	config := ProtoPatchConfig{}
	gwlog.Infof("Using config file: %s", configFilePath)
	iniFile, err := ini.Load(configFilePath)
	checkConfigError(err, "")

	readPatchConfig(iniFile.Section("patch"), &config.Patch)
	readPrototypeConfig(iniFile.Section("prototype"), &config.Prototype)
	readLedgerConfig(iniFile.Section("ledger"), &config.Ledger)
	readLogConfig(iniFile.Section("log"), &config.Log)

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		if secName == "default" || secName == "patch" || secName == "prototype" || secName == "ledger" || secName == "log" {
			continue
		}
		gwlog.Errorf("unknown section: %s", sec.Name())
	}
	return &config
}

func readPatchConfig(sec *ini.Section, config *PatchConfig) {
	config.Enabled = true
	config.Directory = _DEFAULT_PATCH_DIRECTORY
	config.FilePrefix = consts.PATCH_FILE_PREFIX
	config.ApplyMode = ApplyModeInline

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "enabled" {
			config.Enabled = key.MustBool(config.Enabled)
		} else if name == "directory" {
			config.Directory = key.MustString(config.Directory)
		} else if name == "file_prefix" {
			config.FilePrefix = key.MustString(config.FilePrefix)
		} else if name == "apply_mode" {
			config.ApplyMode = strings.ToLower(key.MustString(config.ApplyMode))
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}

	if config.ApplyMode != ApplyModeInline && config.ApplyMode != ApplyModeDeferred {
		gwlog.Panicf("invalid apply_mode: %s, should be %s or %s", config.ApplyMode, ApplyModeInline, ApplyModeDeferred)
	}
	if config.Enabled && config.Directory == "" {
		gwlog.Panicf("directory is not set in [patch] config")
	}
}

func readPrototypeConfig(sec *ini.Section, config *PrototypeConfig) {
	config.Directory = _DEFAULT_PROTOTYPE_DIRECTORY

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "directory" {
			config.Directory = key.MustString(config.Directory)
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readLedgerConfig(sec *ini.Section, config *LedgerConfig) {
	config.StartNodes = common.StringSet{}
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "type" {
			config.Type = key.MustString(config.Type)
		} else if name == "url" {
			config.Url = key.MustString(config.Url)
		} else if name == "db" {
			config.DB = key.MustString(config.DB)
		} else if name == "collection" {
			config.Collection = key.MustString(config.Collection)
		} else if strings.HasPrefix(name, "start_nodes_") {
			config.StartNodes.Add(key.MustString(""))
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}

	if config.Type == "redis" && config.DB == "" {
		config.DB = "0"
	}
	if config.Type == "mongodb" {
		if config.DB == "" {
			config.DB = _DEFAULT_LEDGER_DB
		}
		if config.Collection == "" {
			config.Collection = _DEFAULT_LEDGER_COLLECTION
		}
	}

	validateLedgerConfig(config)
}

func readLogConfig(sec *ini.Section, config *LogConfig) {
	config.Level = _DEFAULT_LOG_LEVEL
	config.File = _DEFAULT_LOG_FILE
	config.Stderr = true

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "level" {
			config.Level = key.MustString(config.Level)
		} else if name == "file" {
			config.File = key.MustString(config.File)
		} else if name == "stderr" {
			config.Stderr = key.MustBool(config.Stderr)
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func validateLedgerConfig(config *LedgerConfig) {
	if config.Type == "" {
		// ledger not enabled, it's OK
	} else if config.Type == "sqlite" {
		if config.Url == "" {
			gwlog.Panicf("url is not set in %s ledger config", config.Type)
		}
	} else if config.Type == "mongodb" {
		if config.Url == "" {
			gwlog.Panicf("url is not set in %s ledger config", config.Type)
		}
	} else if config.Type == "redis" {
		if config.Url == "" {
			gwlog.Panicf("redis host is not set")
		}
		if _, err := strconv.Atoi(config.DB); err != nil {
			gwlog.Panic(errors.Wrap(err, "redis db must be integer"))
		}
	} else if config.Type == "redis_cluster" {
		if len(config.StartNodes) == 0 {
			gwlog.Panicf("must have at least 1 start_nodes for [ledger].redis_cluster")
		}
		for s := range config.StartNodes {
			if s == "" {
				gwlog.Panicf("start_nodes must not be empty")
			}
		}
	} else {
		gwlog.Panicf("unknown ledger type: %s", config.Type)
	}
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		gwlog.Panicf("read config error: %s", msg)
	}
}
