package core

import (
	"fmt"
	"strings"
	"time"
)

type ClassifierConfig struct {
	Model               string  `koanf:"model" mapstructure:"model"`
	ConfidenceThreshold float64 `koanf:"confidence_threshold" mapstructure:"confidence_threshold"`
	TimeoutSeconds      int     `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type AssemblerConfig struct {
	MaxMeetings int `koanf:"max_meetings" mapstructure:"max_meetings"`
	MaxTasks    int `koanf:"max_tasks" mapstructure:"max_tasks"`
	MaxRepos    int `koanf:"max_repos" mapstructure:"max_repos"`
	RuneBudget  int `koanf:"rune_budget" mapstructure:"rune_budget"`
}

type ChatConfig struct {
	SessionCacheSize            int `koanf:"session_cache_size" mapstructure:"session_cache_size"`
	CollaboratorTimeoutSeconds  int `koanf:"collaborator_timeout_seconds" mapstructure:"collaborator_timeout_seconds"`
	HistoryLimit                int `koanf:"history_limit" mapstructure:"history_limit"`
}

type Config struct {
	ServiceName string           `koanf:"service_name" mapstructure:"service_name"`
	Classifier  ClassifierConfig `koanf:"classifier" mapstructure:"classifier"`
	Assembler   AssemblerConfig  `koanf:"assembler" mapstructure:"assembler"`
	Chat        ChatConfig       `koanf:"chat" mapstructure:"chat"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "copilot",
		Classifier: ClassifierConfig{
			ConfidenceThreshold: 0.5,
			TimeoutSeconds:      20,
		},
		Assembler: AssemblerConfig{
			MaxMeetings: 5,
			MaxTasks:    10,
			MaxRepos:    5,
			RuneBudget:  8192,
		},
		Chat: ChatConfig{
			SessionCacheSize:           512,
			CollaboratorTimeoutSeconds: 30,
			HistoryLimit:               50,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Classifier.ConfidenceThreshold < 0 || c.Classifier.ConfidenceThreshold > 1 {
		return fmt.Errorf("core: classifier confidence_threshold must be in [0,1]")
	}
	if c.Assembler.MaxMeetings < 0 || c.Assembler.MaxTasks < 0 || c.Assembler.MaxRepos < 0 {
		return fmt.Errorf("core: assembler item caps must not be negative")
	}
	if c.Assembler.RuneBudget < 0 {
		return fmt.Errorf("core: assembler rune_budget must not be negative")
	}
	if c.Chat.SessionCacheSize < 0 {
		return fmt.Errorf("core: chat session_cache_size must not be negative")
	}
	return nil
}

func (c Config) ClassifierTimeout() time.Duration {
	if c.Classifier.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

func (c Config) CollaboratorTimeout() time.Duration {
	if c.Chat.CollaboratorTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Chat.CollaboratorTimeoutSeconds) * time.Second
}
