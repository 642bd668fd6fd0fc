package config

type StorageType string

const STORAGE_TYPE_FS StorageType = "fs"
const STORAGE_TYPE_REDIS StorageType = "redis"

type Config struct {
	DataDir       string
	HttpPort      int
	StorageType   StorageType
	RedisConfig   RedisConfig
	ScriptConfig  ScriptConfig
	PromptConfig  PromptConfig
	BusTopic      string
	MaxChainDepth int
	LogLevel      string
}

type RedisConfig struct {
	Addrs     []string
	Namespace string
}

type ScriptConfig struct {
	Interpreter      string
	InstallCommand   []string
	TimeoutSeconds   int
	KillGraceSeconds int
}

type PromptConfig struct {
	Endpoint string
	MaxTurns int
}

const DefaultMaxChainDepth = 8
const DefaultKillGraceSeconds = 5
