package cmd

import (
	"fmt"
	"os"

	"github.com/fachebot/talk-digest-bot/internal/config"
	"github.com/fachebot/talk-digest-bot/internal/logger"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "talk-digest-bot",
	Short: "群聊消息分段摘要与定时日报",
	Long: `talk-digest-bot 监听 Telegram 群聊消息，按 token 上限将消息写入分段文件，
每个分段交给摘要服务生成摘要，并定时将新摘要合成为日报。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.SetLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "etc/config.yaml", "the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "debug", "console log level (debug, info, warn, error)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	c, err := config.LoadFromFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return c, nil
}
