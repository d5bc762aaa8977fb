package teleapp

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fachebot/talk-digest-bot/internal/gateway"
	"github.com/fachebot/talk-digest-bot/internal/logger"

	"github.com/zelenin/go-tdlib/client"
)

type TeleApp struct {
	forwarder  *gateway.Forwarder
	user       *client.User
	tdClient   *client.Client
	listener   *client.Listener
	parameters *client.SetTdlibParametersRequest
	usersMu    sync.RWMutex
	usersCache map[int64]*client.User
	chatsMu    sync.RWMutex
	chatsCache map[int64]*client.Chat
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	ctxMu      sync.Mutex
}

func NewApp(forwarder *gateway.Forwarder, apiId int32, apiHash, dataDir string) *TeleApp {
	_, err := client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
		NewVerbosityLevel: 1,
	})
	if err != nil {
		logger.Fatalf("[TeleApp] 设置日志级别错误, %s", err)
	}

	parameters := &client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   filepath.Join(dataDir, ".tdlib", "database"),
		FilesDirectory:      filepath.Join(dataDir, ".tdlib", "files"),
		UseFileDatabase:     true,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               apiId,
		ApiHash:             apiHash,
		SystemLanguageCode:  "en",
		DeviceModel:         "Server",
		SystemVersion:       "1.0.0",
		ApplicationVersion:  "1.0.0",
	}

	app := &TeleApp{
		forwarder:  forwarder,
		parameters: parameters,
		chatsCache: make(map[int64]*client.Chat),
		usersCache: make(map[int64]*client.User),
	}
	return app
}

func (app *TeleApp) Login(options ...client.Option) (*client.User, error) {
	if app.user != nil {
		return app.user, nil
	}

	authorizer := client.ClientAuthorizer(app.parameters)
	go client.CliInteractor(authorizer)

	tdlibClient, err := client.NewClient(authorizer, options...)
	if err != nil {
		return nil, err
	}

	me, err := tdlibClient.GetMe()
	if err != nil {
		return nil, err
	}

	app.user = me
	app.tdClient = tdlibClient

	chats, err := app.tdClient.GetChats(&client.GetChatsRequest{Limit: 100})
	if err != nil {
		logger.Warnf("[TeleApp] 获取聊天列表失败: %v", err)
	} else {
		for _, chatId := range chats.ChatIds {
			chat, err := app.tdClient.GetChat(&client.GetChatRequest{ChatId: chatId})
			if err != nil {
				logger.Warnf("[TeleApp] 获取聊天信息失败, id: %d, %v", chatId, err)
				continue
			}
			logger.Infof("[TeleApp] 聊天列表: %s[%d]", chat.Title, chat.Id)
		}
	}

	listener := tdlibClient.GetListener()
	app.listener = listener

	app.ctxMu.Lock()
	app.ctx, app.cancel = context.WithCancel(context.Background())
	app.done = make(chan struct{})
	app.ctxMu.Unlock()

	go app.getUpdates(listener)

	return me, nil
}

func (app *TeleApp) Client() *client.Client {
	return app.tdClient
}

// Close 停止接收更新并等待更新循环退出，之后不会再有消息投递到网关
func (app *TeleApp) Close() error {
	if app.tdClient == nil {
		return nil
	}

	app.ctxMu.Lock()
	if app.cancel != nil {
		app.cancel()
	}
	done := app.done
	app.ctxMu.Unlock()

	if app.listener != nil {
		app.listener.Close()
	}
	if done != nil {
		<-done
	}

	_, err := app.tdClient.Close()
	return err
}

func (app *TeleApp) getChat(chatId int64) (*client.Chat, error) {
	// 先尝试读锁读取缓存
	app.chatsMu.RLock()
	chat, ok := app.chatsCache[chatId]
	app.chatsMu.RUnlock()
	if ok {
		return chat, nil
	}

	// 缓存未命中，获取数据
	chat, err := app.tdClient.GetChat(&client.GetChatRequest{ChatId: chatId})
	if err != nil {
		return nil, err
	}

	// 写锁更新缓存
	app.chatsMu.Lock()
	app.chatsCache[chatId] = chat
	app.chatsMu.Unlock()
	return chat, nil
}

func (app *TeleApp) getUser(userId int64) (*client.User, error) {
	app.usersMu.RLock()
	user, ok := app.usersCache[userId]
	app.usersMu.RUnlock()
	if ok {
		return user, nil
	}

	user, err := app.tdClient.GetUser(&client.GetUserRequest{UserId: userId})
	if err != nil {
		return nil, err
	}

	app.usersMu.Lock()
	app.usersCache[userId] = user
	app.usersMu.Unlock()
	return user, nil
}

// messageText 提取文本消息内容，非文本或空文本返回 false
func messageText(message *client.Message) (string, bool) {
	if message == nil || message.Content == nil {
		return "", false
	}
	if message.Content.MessageContentType() != client.TypeMessageText {
		return "", false
	}

	text := message.Content.(*client.MessageText)
	if text.Text == nil || text.Text.Text == "" {
		return "", false
	}
	return text.Text.Text, true
}

// displayName 用户显示名称：名 + 姓，没有名称时使用用户名
func displayName(user *client.User) string {
	name := user.FirstName
	if user.LastName != "" {
		if name != "" {
			name += " "
		}
		name += user.LastName
	}
	if name == "" && user.Usernames != nil && len(user.Usernames.ActiveUsernames) > 0 {
		name = "@" + user.Usernames.ActiveUsernames[0]
	}
	return name
}

// senderName 消息发送者名称，频道或群组身份发言时使用其标题
func (app *TeleApp) senderName(message *client.Message) (string, error) {
	switch sender := message.SenderId.(type) {
	case *client.MessageSenderUser:
		user, err := app.getUser(sender.UserId)
		if err != nil {
			return "", err
		}
		return displayName(user), nil
	case *client.MessageSenderChat:
		chat, err := app.getChat(sender.ChatId)
		if err != nil {
			return "", err
		}
		return chat.Title, nil
	default:
		return "", nil
	}
}

func (app *TeleApp) getUpdates(listener *client.Listener) {
	app.ctxMu.Lock()
	ctx, done := app.ctx, app.done
	app.ctxMu.Unlock()
	defer close(done)

	for listener.IsActive() {
		select {
		case <-ctx.Done():
			logger.Infof("[TeleApp] 更新循环已取消，退出")
			return
		case update, ok := <-listener.Updates:
			if !ok {
				return
			}
			if update.GetType() != client.TypeUpdateNewMessage {
				continue
			}

			message := update.(*client.UpdateNewMessage).Message
			text, ok := messageText(message)
			if !ok {
				continue
			}

			// 白名单之外的聊天不查询任何信息
			if !app.forwarder.Allowed(message.ChatId) {
				continue
			}

			chat, err := app.getChat(message.ChatId)
			if err != nil {
				logger.Warnf("[TeleApp] 获取聊天信息失败, id: %d, %v", message.ChatId, err)
				continue
			}

			// 过滤私聊和密聊
			switch chat.Type.ChatTypeType() {
			case client.TypeChatTypePrivate, client.TypeChatTypeSecret:
				continue
			}

			author, err := app.senderName(message)
			if err != nil {
				logger.Warnf("[TeleApp] 获取发送者信息失败, chat: %d, %v", message.ChatId, err)
				continue
			}

			ev := gateway.Event{
				ChannelID: message.ChatId,
				Author:    author,
				Text:      text,
				Timestamp: time.Unix(int64(message.Date), 0).UTC(),
			}
			if app.forwarder.Forward(ctx, ev) {
				logger.Debugf("[TeleApp] 转发消息: %s[%d] -> %s", chat.Title, chat.Id, author)
			}
		}
	}
}
