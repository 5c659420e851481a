package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Gateway 把 websocket 连接接入 Registry
// 客户端连接后先发 {"event":"join","data":"<userId>"}，之后才会收到该用户的事件
// secret 非空时升级前校验 token，join 的身份必须和 token 的 sub 一致
type Gateway struct {
	registry *Registry
	log      *zap.Logger
	secret   string
	upgrader websocket.Upgrader
}

func NewGateway(registry *Registry, log *zap.Logger, secret string) *Gateway {
	return &Gateway{
		registry: registry,
		log:      log,
		secret:   secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨域由 HTTP 层的 CORS 配置统一控制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// 浏览器的 websocket API 设不了请求头，所以也接受 ?token= 传递
func bearerToken(r *http.Request) string {
	if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && raw != "" {
		return raw
	}
	return r.URL.Query().Get("token")
}

// authenticate 校验 token 并返回其声明的用户身份
func (g *Gateway) authenticate(r *http.Request) (string, error) {
	raw := bearerToken(r)
	if raw == "" {
		return "", jwt.ErrTokenMalformed
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(g.secret), nil
	})
	if err != nil || !token.Valid {
		return "", jwt.ErrTokenUnverifiable
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return sub, nil
}

func (g *Gateway) Handle(c *gin.Context) {
	var subject string
	if g.secret != "" {
		sub, err := g.authenticate(c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		subject = sub
	}
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	ch := NewChannel(32)
	go g.writePump(conn, ch)
	g.readPump(conn, ch, subject)
}

func (g *Gateway) readPump(conn *websocket.Conn, ch *Channel, subject string) {
	var userID string
	defer func() {
		if userID != "" {
			g.registry.Leave(userID, ch)
		}
		ch.Close()
		conn.Close()
	}()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		if ev.Event != CommandJoin {
			continue
		}
		uid, ok := ev.Data.(string)
		if !ok || uid == "" {
			g.log.Warn("join without user id", zap.String("channel", ch.ID()))
			continue
		}
		// 开了鉴权就只能 join 成 token 声明的那个人
		if subject != "" && uid != subject {
			g.log.Warn("join rejected, identity mismatch",
				zap.String("channel", ch.ID()), zap.String("claimed", uid), zap.String("subject", subject))
			continue
		}
		// 重复 join 同一用户等价于一次；换身份先退出旧 room
		if userID == uid {
			continue
		}
		if userID != "" {
			g.registry.Leave(userID, ch)
		}
		userID = uid
		g.registry.Join(userID, ch)
	}
}

func (g *Gateway) writePump(conn *websocket.Conn, ch *Channel) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case ev := <-ch.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ch.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
