package announce

import (
	"fmt"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"dancavallaro.com/console-menu/pkg/discover"
)

// Publisher announces discovered consoles to an MQTT broker so the rest of
// the homelab tooling knows which host is on which port. Messages are
// retained, so subscribers that come up later still see the current layout.
type Publisher struct {
	client mqtt.Client
	prefix string
}

type Logger interface {
	Println(v ...interface{})
	Printf(format string, v ...interface{})
}

type Config struct {
	BrokerAddress string
	Username      string
	Password      string
	// TopicPrefix defaults to "console". Announcements land on
	// <prefix>/<hostname>/port.
	TopicPrefix string
	Logger      Logger
	DebugLogger Logger
}

func NewPublisher(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerAddress)
	opts.SetClientID(generateClientId())
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)

	if cfg.Logger != nil {
		mqtt.ERROR = cfg.Logger
		mqtt.CRITICAL = cfg.Logger
		mqtt.WARN = cfg.Logger
	}
	if cfg.DebugLogger != nil {
		mqtt.DEBUG = cfg.DebugLogger
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "console"
	}
	return &Publisher{client, prefix}, nil
}

func (pub *Publisher) Announce(c discover.Console) error {
	token := pub.client.Publish(topicFor(pub.prefix, c.Hostname), 0, true, c.Device)
	token.Wait()
	return token.Error()
}

func (pub *Publisher) Close() {
	pub.client.Disconnect(1000)
}

func topicFor(prefix string, hostname string) string {
	return fmt.Sprintf("%s/%s/port", prefix, hostname)
}

func generateClientId() string {
	now := time.Now().Unix()
	random := rand.Intn(1000000)
	return fmt.Sprintf("console-menu-%v-%v", now, random)
}
