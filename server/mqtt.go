package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MqttConfig is the MQTT broker configuration
type MqttConfig struct {
	Broker   string
	Topic    string
	User     string
	Password string
	ClientID string
}

// RootTopic returns the configured root topic or the default
func (c MqttConfig) RootTopic() string {
	if topic := strings.Trim(c.Topic, "/"); topic != "" {
		return topic
	}
	return "cdrive"
}

const (
	mqttTimeout = 10 * time.Second
	mqttQos     = 1
)

// MQTT is the MQTT state publisher
type MQTT struct {
	log    *util.Logger
	client paho.Client
	root   string
}

// NewMQTT connects to the broker and creates a publisher below the root topic
func NewMQTT(conf MqttConfig) (*MQTT, error) {
	log := util.NewLogger("mqtt")

	broker := conf.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	clientID := conf.ClientID
	if clientID == "" {
		clientID = "cdrive-" + uuid.NewString()[:8]
	}

	opt := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetUsername(conf.User).
		SetPassword(conf.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttTimeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WARN.Printf("%s connection lost: %v", conf.Broker, err)
		})

	client := paho.NewClient(opt)

	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("%w: %s: connect timeout", api.ErrCommunication, conf.Broker)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", api.ErrCommunication, conf.Broker, err)
	}

	log.INFO.Printf("connected to %s", conf.Broker)

	return &MQTT{
		log:    log,
		client: client,
		root:   conf.RootTopic(),
	}, nil
}

// Topic returns the topic of an entity's state
func Topic(root, entity, key string) string {
	return fmt.Sprintf("%s/%s/%s", root, entity, key)
}

// Payload encodes a state value
func Payload(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// UpdateStates implements api.Sink. States are published retained.
func (m *MQTT) UpdateStates(entity string, states []api.State) error {
	for _, s := range states {
		topic := Topic(m.root, entity, s.Key)
		payload := Payload(s.Value)

		m.log.TRACE.Printf("send %s: '%s'", topic, payload)

		token := m.client.Publish(topic, mqttQos, true, payload)
		go m.wait(token)
	}

	return nil
}

func (m *MQTT) wait(token paho.Token) {
	if token.WaitTimeout(mqttTimeout) {
		if err := token.Error(); err != nil {
			m.log.ERROR.Printf("send: %v", err)
		}
	} else {
		m.log.DEBUG.Println("send: timeout")
	}
}

// Close disconnects from the broker
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
