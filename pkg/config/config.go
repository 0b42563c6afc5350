package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Cache       CacheConfig       `yaml:"cache"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Crawl       CrawlConfig       `yaml:"crawl"`
	Output      OutputConfig      `yaml:"output"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// CacheConfig 文章缓存配置
type CacheConfig struct {
	Root          string `yaml:"root"`
	RetentionDays int    `yaml:"retention_days"`
}

// LedgerConfig 去重台账配置。Scope 取 daily 或 permanent
type LedgerConfig struct {
	Path  string `yaml:"path"`
	Scope string `yaml:"scope"`
}

// CrawlConfig 抓取相关配置
type CrawlConfig struct {
	DelaySeconds        int `yaml:"delay_seconds"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
}

// OutputConfig 报告输出配置
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DBConfig 数据库相关配置，Host 为空时不落库
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// LoadConfig 从指定路径加载配置并填充默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.Root == "" {
		c.Cache.Root = "data/cache"
	}
	if c.Cache.RetentionDays <= 0 {
		c.Cache.RetentionDays = 7
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "data/cache/article_hashes.json"
	}
	if c.Ledger.Scope == "" {
		c.Ledger.Scope = "daily"
	}
	if c.Crawl.DelaySeconds <= 0 {
		c.Crawl.DelaySeconds = 2
	}
	if c.Crawl.FetchTimeoutSeconds <= 0 {
		c.Crawl.FetchTimeoutSeconds = 30
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "data/output"
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 20
	}
}
