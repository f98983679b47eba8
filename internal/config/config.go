package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 環境変数名
const (
	EnvConfigFile = "FORESTSERVE_CONFIG" // YAML設定ファイルのパス
	EnvHost       = "SERVER_HOST"        // リッスンするホスト
	EnvLogLevel   = "LOG_LEVEL"          // ログレベル (debug, info, warn, error)
)

// デフォルト値
const (
	DefaultBasePort  = 8000
	DefaultPortRange = 10
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server   ServerConfig `yaml:"server"`
	LogLevel string       `yaml:"log_level"`

	// Root は配信するディレクトリの絶対パス。
	// 常にプログラム自身のディレクトリで、設定ファイルからは変更できない。
	Root string `yaml:"-"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host      string `yaml:"host"`       // リッスンするホスト（空なら全インターフェース）
	BasePort  int    `yaml:"base_port"`  // 最初に試すポート番号
	PortRange int    `yaml:"port_range"` // 試すポートの数

	// タイムアウト設定
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // 読み込みタイムアウト
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // 書き込みタイムアウト
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // シャットダウン待ち時間
}

// Default はデフォルト設定を返す。Root は空のまま。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			BasePort:        DefaultBasePort,
			PortRange:       DefaultPortRange,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // 大きいファイルの配信用にタイムアウト無効化
			ShutdownTimeout: 5 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load は設定を読み込む
//
// 優先順位: 環境変数 > YAMLファイル > デフォルト値。
// カレントディレクトリの .env は既存の環境変数を上書きしない。
func Load() (*Config, error) {
	// .env は任意
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}

	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Server.Host = getEnvOrDefault(EnvHost, cfg.Server.Host)
	cfg.LogLevel = getEnvOrDefault(EnvLogLevel, cfg.LogLevel)

	root, err := ExecutableDir()
	if err != nil {
		return nil, err
	}
	cfg.Root = root

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// LoadFile はYAMLファイルの内容を cfg に上書きする
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	root := cfg.Root
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}
	cfg.Root = root

	return nil
}

// ExecutableDir は実行ファイルが置かれているディレクトリの絶対パスを返す
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("実行ファイルのパス取得に失敗: %w", err)
	}

	// シンボリックリンク経由で起動された場合は実体の場所を使う
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	dir, err := filepath.Abs(filepath.Dir(exe))
	if err != nil {
		return "", fmt.Errorf("ディレクトリの解決に失敗: %w", err)
	}

	return dir, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.BasePort < 1 || c.Server.BasePort > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.BasePort)
	}
	if c.Server.PortRange < 1 {
		return fmt.Errorf("無効なポート範囲: %d", c.Server.PortRange)
	}
	if last := c.Server.BasePort + c.Server.PortRange - 1; last > 65535 {
		return fmt.Errorf("ポート範囲が上限を超えています: %d-%d", c.Server.BasePort, last)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New("タイムアウトに負の値は指定できません")
	}

	// ルートディレクトリの検証
	if c.Root == "" {
		return errors.New("ルートディレクトリが設定されていません")
	}
	if !filepath.IsAbs(c.Root) {
		return fmt.Errorf("ルートディレクトリは絶対パスである必要があります: %s", c.Root)
	}
	info, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("ルートディレクトリにアクセスできません: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("ルートがディレクトリではありません: %s", c.Root)
	}

	return nil
}

// Candidates は試行するポート番号を昇順で返す
func (c *Config) Candidates() []int {
	ports := make([]int, 0, c.Server.PortRange)
	for i := 0; i < c.Server.PortRange; i++ {
		ports = append(ports, c.Server.BasePort+i)
	}
	return ports
}

// ListenAddress は指定ポートでのリッスンアドレスを返す
func (c *Config) ListenAddress(port int) string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(port))
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
