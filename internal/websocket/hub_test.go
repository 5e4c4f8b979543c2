package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/mainloop"
)

// Hub 同时充当设备主循环的通知与状态出口
var (
	_ mainloop.Notifier  = (*Hub)(nil)
	_ mainloop.StateSink = (*Hub)(nil)
)

type HubTestSuite struct {
	suite.Suite
	hub    *Hub
	server *httptest.Server
	conn   *websocket.Conn
}

func (s *HubTestSuite) SetupTest() {
	s.hub = NewHub(zap.NewNop())
	go s.hub.Run()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(s.hub, conn, 1)
		s.hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))

	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.conn = conn

	// 注册成功后的欢迎消息
	msg := s.readMessage()
	s.Require().Equal(MessageTypeConnected, msg.Type)
}

func (s *HubTestSuite) TearDownTest() {
	s.conn.Close()
	s.server.Close()
}

func (s *HubTestSuite) readMessage() *Message {
	s.conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := s.conn.ReadMessage()
	s.Require().NoError(err)
	var msg Message
	s.Require().NoError(json.Unmarshal(data, &msg))
	return &msg
}

func (s *HubTestSuite) TestLaneStateBroadcast() {
	s.hub.LaneState(1, false)

	msg := s.readMessage()
	s.Equal(MessageTypeLaneState, msg.Type)

	var payload LaneStatePayload
	s.Require().NoError(json.Unmarshal(msg.Data, &payload))
	s.Equal(uint8(1), payload.Addr)
	s.False(payload.Active)
}

func (s *HubTestSuite) TestFreePlacesBroadcast() {
	s.hub.FreePlaces(42)

	msg := s.readMessage()
	s.Equal(MessageTypeFreePlaces, msg.Type)

	var payload FreePlacesPayload
	s.Require().NoError(json.Unmarshal(msg.Data, &payload))
	s.Equal(42, payload.Free)
}

func (s *HubTestSuite) TestNotifyBroadcast() {
	s.hub.Notify("终端告警", "3号车道打印纸已用尽")

	msg := s.readMessage()
	s.Equal(MessageTypeNotification, msg.Type)

	var payload NotificationPayload
	s.Require().NoError(json.Unmarshal(msg.Data, &payload))
	s.Equal("终端告警", payload.Title)
	s.Contains(payload.Message, "3号车道")
}

func (s *HubTestSuite) TestPushPayable() {
	paid := time.Now().Add(-time.Minute)
	s.hub.PushPayable(&billing.Ticket{
		Bar:      "0829100000990001",
		Status:   billing.TicketPaid,
		TimeIn:   time.Now().Add(-2 * time.Hour),
		TimePaid: &paid,
	})

	msg := s.readMessage()
	s.Equal(MessageTypePayable, msg.Type)

	var payload PayablePayload
	s.Require().NoError(json.Unmarshal(msg.Data, &payload))
	s.Equal("0829100000990001", payload.Bar)
	s.Equal(billing.TicketPaid, payload.Status)
}

func (s *HubTestSuite) TestPingAnsweredWithPong() {
	s.Require().NoError(s.conn.WriteJSON(&Message{Type: MessageTypePing}))

	msg := s.readMessage()
	s.Equal(MessageTypePong, msg.Type)
}

func (s *HubTestSuite) TestMalformedMessageDisconnects() {
	s.Require().NoError(s.conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	msg := s.readMessage()
	s.Equal(MessageTypeError, msg.Type)

	s.conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := s.conn.ReadMessage()
	s.Error(err)
}

func TestHubTestSuite(t *testing.T) {
	suite.Run(t, &HubTestSuite{})
}
