package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type STTConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Mode             string `yaml:"mode"` // mock, exec
	Command          string `yaml:"command"`
	ModelPath        string `yaml:"model_path"`
	Language         string `yaml:"language"`
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
	PublishInterim   bool   `yaml:"publish_interim"`
	PartialEveryMS   int    `yaml:"partial_every_ms"`
	HotwordsAsPrompt bool   `yaml:"hotwords_as_prompt"`
}

type DictationConfig struct {
	MacrosPath        string   `yaml:"macros_path"`
	HotwordsPath      string   `yaml:"hotwords_path"`
	FieldMappingsPath string   `yaml:"field_mappings_path"`
	Vessels           []string `yaml:"vessels"`
	ActorID           string   `yaml:"actor_id"`
}

type ProcedureStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxProcedures int    `yaml:"max_procedures"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type BackendConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	ClientType string `yaml:"client_type"`
	TimeoutMS  int    `yaml:"timeout_ms"`
}

type Config struct {
	RuntimeName string               `yaml:"runtime_name"`
	Environment string               `yaml:"environment"`
	HTTP        HTTPConfig           `yaml:"http"`
	Telemetry   TelemetryConfig      `yaml:"telemetry"`
	Bus         BusConfig            `yaml:"bus"`
	STT         STTConfig            `yaml:"stt"`
	Dictation   DictationConfig      `yaml:"dictation"`
	Store       ProcedureStoreConfig `yaml:"procedure_store"`
	Backend     BackendConfig        `yaml:"backend"`
}

func Default() Config {
	return Config{
		RuntimeName: "vascribe-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		STT: STTConfig{
			Enabled:          false,
			Mode:             "mock",
			SampleRate:       16000,
			Channels:         1,
			PartialEveryMS:   800,
			HotwordsAsPrompt: true,
		},
		Dictation: DictationConfig{
			MacrosPath:        "./config/macros.yaml",
			HotwordsPath:      "./config/hotwords.txt",
			FieldMappingsPath: "./config/field_mappings.yaml",
			ActorID:           "dictation-1",
		},
		Store: ProcedureStoreConfig{
			Path:          "./data/vascribe-procedures.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxProcedures: 10000,
		},
		Backend: BackendConfig{
			Enabled:    false,
			URL:        "ws://localhost:3000",
			ClientType: "dictation",
			TimeoutMS:  5000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "VASCRIBE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "VASCRIBE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VASCRIBE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VASCRIBE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VASCRIBE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VASCRIBE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VASCRIBE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "VASCRIBE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VASCRIBE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "VASCRIBE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VASCRIBE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VASCRIBE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VASCRIBE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VASCRIBE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VASCRIBE_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.STT.Enabled, "VASCRIBE_STT_ENABLED")
	overrideString(&cfg.STT.Mode, "VASCRIBE_STT_MODE")
	overrideString(&cfg.STT.Command, "VASCRIBE_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "VASCRIBE_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "VASCRIBE_STT_LANGUAGE")
	overrideInt(&cfg.STT.SampleRate, "VASCRIBE_STT_SAMPLE_RATE")
	overrideInt(&cfg.STT.Channels, "VASCRIBE_STT_CHANNELS")
	overrideBool(&cfg.STT.PublishInterim, "VASCRIBE_STT_PUBLISH_INTERIM")
	overrideInt(&cfg.STT.PartialEveryMS, "VASCRIBE_STT_PARTIAL_EVERY_MS")
	overrideBool(&cfg.STT.HotwordsAsPrompt, "VASCRIBE_STT_HOTWORDS_AS_PROMPT")
	overrideString(&cfg.Dictation.MacrosPath, "VASCRIBE_DICTATION_MACROS_PATH")
	overrideString(&cfg.Dictation.HotwordsPath, "VASCRIBE_DICTATION_HOTWORDS_PATH")
	overrideString(&cfg.Dictation.FieldMappingsPath, "VASCRIBE_DICTATION_FIELD_MAPPINGS_PATH")
	overrideStringSlice(&cfg.Dictation.Vessels, "VASCRIBE_DICTATION_VESSELS")
	overrideString(&cfg.Dictation.ActorID, "VASCRIBE_DICTATION_ACTOR_ID")
	overrideString(&cfg.Store.Path, "VASCRIBE_STORE_PATH")
	overrideString(&cfg.Store.RetentionMode, "VASCRIBE_STORE_RETENTION_MODE")
	overrideInt(&cfg.Store.RetentionDays, "VASCRIBE_STORE_RETENTION_DAYS")
	overrideInt(&cfg.Store.MaxProcedures, "VASCRIBE_STORE_MAX_PROCEDURES")
	overrideBool(&cfg.Store.VacuumOnStart, "VASCRIBE_STORE_VACUUM_ON_START")
	overrideBool(&cfg.Backend.Enabled, "VASCRIBE_BACKEND_ENABLED")
	overrideString(&cfg.Backend.URL, "VASCRIBE_BACKEND_URL")
	overrideString(&cfg.Backend.ClientType, "VASCRIBE_BACKEND_CLIENT_TYPE")
	overrideInt(&cfg.Backend.TimeoutMS, "VASCRIBE_BACKEND_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.STT.Enabled {
		if cfg.STT.SampleRate <= 0 {
			return errors.New("stt.sample_rate must be positive")
		}
		if cfg.STT.Channels <= 0 {
			return errors.New("stt.channels must be positive")
		}
		switch cfg.STT.Mode {
		case "mock", "exec":
		default:
			return errors.New("stt.mode must be one of mock|exec")
		}
		if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
			return errors.New("stt.command must be set when mode=exec")
		}
	}
	if cfg.Dictation.ActorID == "" {
		return errors.New("dictation.actor_id must not be empty")
	}
	if cfg.Store.Path == "" {
		return errors.New("procedure_store.path must not be empty")
	}
	switch cfg.Store.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("procedure_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.Store.RetentionDays < 0 {
		return errors.New("procedure_store.retention_days must be >= 0")
	}
	if cfg.Backend.Enabled {
		if cfg.Backend.URL == "" {
			return errors.New("backend.url must not be empty when backend is enabled")
		}
		if cfg.Backend.ClientType == "" {
			return errors.New("backend.client_type must not be empty when backend is enabled")
		}
	}
	return nil
}
