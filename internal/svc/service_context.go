package svc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/fachebot/talk-digest-bot/internal/config"
	"github.com/fachebot/talk-digest-bot/internal/db"
	"github.com/fachebot/talk-digest-bot/internal/logger"
	"github.com/fachebot/talk-digest-bot/internal/model"
	"github.com/fachebot/talk-digest-bot/internal/oracle"

	"golang.org/x/net/proxy"
)

type ServiceContext struct {
	Config           *config.Config
	DbDriver         *entsql.Driver
	TransportProxy   *http.Transport
	SummaryModel     *model.SummaryModel
	DailyDigestModel *model.DailyDigestModel
	Oracle           oracle.Oracle
}

func NewServiceContext(c *config.Config) *ServiceContext {
	// 创建数据库连接
	drv, err := db.Open(context.Background(), &c.Database)
	if err != nil {
		logger.Fatalf("打开数据库失败, %v", err)
	}

	// 创建SOCKS5代理
	transportProxy, err := NewTransportProxy(&c.Sock5Proxy)
	if err != nil {
		logger.Fatalf("创建SOCKS5代理失败, %v", err)
	}

	var httpClient *http.Client
	if transportProxy != nil {
		httpClient = &http.Client{Transport: transportProxy}
	}

	oracleClient, err := oracle.New(&c.Oracle, httpClient)
	if err != nil {
		logger.Fatalf("创建摘要服务客户端失败, %v", err)
	}

	svcCtx := &ServiceContext{
		Config:           c,
		DbDriver:         drv,
		TransportProxy:   transportProxy,
		SummaryModel:     model.NewSummaryModel(drv),
		DailyDigestModel: model.NewDailyDigestModel(drv),
		Oracle:           oracleClient,
	}
	return svcCtx
}

// NewTransportProxy 未启用代理时返回 nil
func NewTransportProxy(c *config.Sock5Proxy) (*http.Transport, error) {
	if !c.Enable {
		return nil, nil
	}

	socks5Proxy := fmt.Sprintf("%s:%d", c.Host, c.Port)
	dialer, err := proxy.SOCKS5("tcp", socks5Proxy, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	return &http.Transport{
		Dial:            dialer.Dial,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}, nil
}

func (svcCtx *ServiceContext) Close() {
	if err := svcCtx.DbDriver.Close(); err != nil {
		logger.Errorf("关闭数据库失败, %v", err)
	}
}
