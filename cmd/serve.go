package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fachebot/talk-digest-bot/internal/api"
	"github.com/fachebot/talk-digest-bot/internal/batcher"
	"github.com/fachebot/talk-digest-bot/internal/gateway"
	"github.com/fachebot/talk-digest-bot/internal/logger"
	"github.com/fachebot/talk-digest-bot/internal/notify"
	"github.com/fachebot/talk-digest-bot/internal/recap"
	"github.com/fachebot/talk-digest-bot/internal/summarizer"
	"github.com/fachebot/talk-digest-bot/internal/svc"
	"github.com/fachebot/talk-digest-bot/internal/teleapp"

	"github.com/spf13/cobra"
	"github.com/zelenin/go-tdlib/client"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway, pipeline stages and HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}

		// 创建数据目录
		for _, dir := range []string{c.TelegramApp.DataDir, c.Pipeline.SegmentDir} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				logger.Fatalf("创建数据目录失败, %s", err)
			}
		}

		// 创建服务上下文
		svcCtx := svc.NewServiceContext(c)
		defer svcCtx.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		events := make(chan gateway.Event, c.Pipeline.ChannelCapacity)
		requests := make(chan summarizer.Request, c.Pipeline.ChannelCapacity)

		// 分段目录无法读取时无法确定当前分段，直接退出
		batcherInstance, err := batcher.New(c.Pipeline.SegmentDir, c.Pipeline.TokenThreshold, requests)
		if err != nil {
			logger.Fatalf("[Batcher] 初始化失败, %s", err)
		}
		worker := summarizer.NewWorker(c.Pipeline.SegmentDir, svcCtx.Oracle, svcCtx.SummaryModel)

		// 运行Telegram App
		options := make([]client.Option, 0)
		if c.Sock5Proxy.Enable {
			options = append(options, client.WithProxy(&client.AddProxyRequest{
				Server: c.Sock5Proxy.Host,
				Port:   c.Sock5Proxy.Port,
				Enable: c.Sock5Proxy.Enable,
				Type:   &client.ProxyTypeSocks5{},
			}))
		}

		forwarder := gateway.NewForwarder(gateway.NewAllowList(c.Gateway.AllowedChatIds), events)
		app := teleapp.NewApp(forwarder, c.TelegramApp.ApiId, c.TelegramApp.ApiHash, c.TelegramApp.DataDir)
		user, err := app.Login(options...)
		if err != nil {
			logger.Fatalf("[TeleApp] 用户登录失败, %s", err)
		}
		logger.Infof("[TeleApp] 用户 <%s %s>(%d) 登录成功", user.FirstName, user.LastName, user.Id)

		// 摘要消费者先于批处理器启动，遗留分段的重新投递不会长时间阻塞
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			worker.Run(ctx, requests)
		}()
		go func() {
			defer wg.Done()
			batcherInstance.Run(ctx, events)
		}()

		var publisher recap.Publisher
		if c.Notify.Mode != "none" {
			publisher = notify.NewNotifier(app.Client(), &c.Notify)
		}
		aggregator := recap.NewAggregator(
			time.Duration(c.Pipeline.DigestIntervalSeconds)*time.Second,
			svcCtx.SummaryModel,
			svcCtx.DailyDigestModel,
			svcCtx.Oracle,
			publisher,
		)
		if err := aggregator.Start(); err != nil {
			logger.Fatalf("[Recap] 启动日报定时器失败: %s", err)
		}

		srv := api.NewServer(&c.HTTP, svcCtx.SummaryModel, svcCtx.DailyDigestModel)
		apiErr := make(chan error, 1)
		go func() {
			apiErr <- api.Run(ctx, srv)
		}()

		// 等待程序退出
		select {
		case <-ctx.Done():
		case err := <-apiErr:
			if err != nil {
				logger.Errorf("[API] HTTP 服务异常退出, %v", err)
			}
			<-ctx.Done()
		}

		// 优雅关闭
		logger.Infof("正在关闭服务...")
		aggregator.Stop()
		if err := app.Close(); err != nil {
			logger.Infof("[TeleApp] 关闭失败, %v", err)
		}
		close(events)
		wg.Wait()
		logger.Infof("服务已停止")
		return nil
	},
}
