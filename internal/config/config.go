package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Sock5Proxy struct {
	Host   string `yaml:"Host"`
	Port   int32  `yaml:"Port"`
	Enable bool   `yaml:"Enable"`
}

type TelegramApp struct {
	ApiId   int32  `yaml:"ApiId"`
	ApiHash string `yaml:"ApiHash"`
	DataDir string `yaml:"DataDir"` // TDLib 数据目录，默认 data
}

type Gateway struct {
	AllowedChatIds []int64 `yaml:"AllowedChatIds"` // 允许进入流水线的群组ID
}

type Oracle struct {
	Provider       string `yaml:"Provider"` // "openai" / "anthropic"
	BaseURL        string `yaml:"BaseURL"`  // 兼容 OpenAI API 的端点
	APIKey         string `yaml:"APIKey"`
	Model          string `yaml:"Model"`          // 如 gpt-4, claude-3-5-sonnet-latest
	MaxTokens      int    `yaml:"MaxTokens"`      // 单次输出的最大 token 数
	TimeoutSeconds int    `yaml:"TimeoutSeconds"` // 单次调用超时（秒），默认 300
}

type Pipeline struct {
	SegmentDir            string `yaml:"SegmentDir"`            // 消息分段文件目录
	TokenThreshold        int    `yaml:"TokenThreshold"`        // 单个分段的 token 上限
	DigestIntervalSeconds int    `yaml:"DigestIntervalSeconds"` // 日报生成间隔（秒）
	ChannelCapacity       int    `yaml:"ChannelCapacity"`       // 阶段间通道容量，默认 100
}

type Database struct {
	Driver       string `yaml:"Driver"` // "sqlite3" / "postgres"
	DSN          string `yaml:"DSN"`
	MaxOpenConns int    `yaml:"MaxOpenConns"` // 连接池上限，默认 4
}

type HTTP struct {
	Host string `yaml:"Host"`
	Port int    `yaml:"Port"`
}

type Notify struct {
	Mode    string  `yaml:"Mode"`    // "none" / "private" / "group" / "both"
	UserIds []int64 `yaml:"UserIds"` // 私聊通知的目标用户ID列表
	ChatIds []int64 `yaml:"ChatIds"` // 群聊通知的目标群组ID列表
}

type Config struct {
	Sock5Proxy  Sock5Proxy  `yaml:"Sock5Proxy"`
	TelegramApp TelegramApp `yaml:"TelegramApp"`
	Gateway     Gateway     `yaml:"Gateway"`
	Oracle      Oracle      `yaml:"Oracle"`
	Pipeline    Pipeline    `yaml:"Pipeline"`
	Database    Database    `yaml:"Database"`
	HTTP        HTTP        `yaml:"HTTP"`
	Notify      Notify      `yaml:"Notify"`
}

func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 解析 YAML 配置，填充默认值并校验
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults 为未设置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.TelegramApp.DataDir == "" {
		c.TelegramApp.DataDir = "data"
	}
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = "openai"
	}
	if c.Oracle.MaxTokens == 0 {
		c.Oracle.MaxTokens = 4096
	}
	if c.Oracle.TimeoutSeconds == 0 {
		c.Oracle.TimeoutSeconds = 300
	}
	if c.Pipeline.SegmentDir == "" {
		c.Pipeline.SegmentDir = "data/messages"
	}
	if c.Pipeline.ChannelCapacity == 0 {
		c.Pipeline.ChannelCapacity = 100
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite3" {
		c.Database.DSN = "file:data/sqlite.db?mode=rwc&_journal_mode=WAL&_busy_timeout=5000&_fk=1"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 4
	}
	if c.HTTP.Host == "" {
		c.HTTP.Host = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Notify.Mode == "" {
		c.Notify.Mode = "none"
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	// 验证 TelegramApp
	if c.TelegramApp.ApiId == 0 {
		return fmt.Errorf("TelegramApp.ApiId 不能为空")
	}
	if c.TelegramApp.ApiHash == "" {
		return fmt.Errorf("TelegramApp.ApiHash 不能为空")
	}

	// 验证 Gateway
	if len(c.Gateway.AllowedChatIds) == 0 {
		return fmt.Errorf("Gateway.AllowedChatIds 不能为空")
	}

	// 验证 Oracle
	if c.Oracle.Provider != "openai" && c.Oracle.Provider != "anthropic" {
		return fmt.Errorf("Oracle.Provider 必须是 'openai' 或 'anthropic'")
	}
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("Oracle.APIKey 不能为空")
	}
	if c.Oracle.Provider == "openai" && c.Oracle.BaseURL == "" {
		return fmt.Errorf("Oracle.BaseURL 不能为空")
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("Oracle.Model 不能为空")
	}
	if c.Oracle.MaxTokens <= 0 {
		return fmt.Errorf("Oracle.MaxTokens 必须大于 0")
	}
	if c.Oracle.TimeoutSeconds < 0 {
		return fmt.Errorf("Oracle.TimeoutSeconds 必须 >= 0")
	}

	// 验证 Pipeline
	if c.Pipeline.TokenThreshold <= 0 {
		return fmt.Errorf("Pipeline.TokenThreshold 必须大于 0")
	}
	if c.Pipeline.DigestIntervalSeconds <= 0 {
		return fmt.Errorf("Pipeline.DigestIntervalSeconds 必须大于 0")
	}
	if c.Pipeline.ChannelCapacity < 0 {
		return fmt.Errorf("Pipeline.ChannelCapacity 必须 >= 0")
	}

	// 验证 Database
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
		return fmt.Errorf("Database.Driver 必须是 'sqlite3' 或 'postgres'")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("Database.DSN 不能为空")
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("Database.MaxOpenConns 必须 >= 0")
	}

	// 验证 HTTP
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP.Port 超出范围")
	}

	// 验证 Notify
	switch c.Notify.Mode {
	case "none":
	case "private", "group", "both":
		if (c.Notify.Mode == "private" || c.Notify.Mode == "both") && len(c.Notify.UserIds) == 0 {
			return fmt.Errorf("Notify.UserIds 不能为空（当 Mode 为 'private' 或 'both' 时）")
		}
		if (c.Notify.Mode == "group" || c.Notify.Mode == "both") && len(c.Notify.ChatIds) == 0 {
			return fmt.Errorf("Notify.ChatIds 不能为空（当 Mode 为 'group' 或 'both' 时）")
		}
	default:
		return fmt.Errorf("Notify.Mode 必须是 'none', 'private', 'group' 或 'both'")
	}

	return nil
}
