package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/model"
	coremon "github.com/kilianp07/railjobs/core/monitoring"
	coremqtt "github.com/kilianp07/railjobs/core/mqtt"
	"github.com/kilianp07/railjobs/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker         string          `json:"broker"`
	ClientID       string          `json:"client_id"`
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	RequestTopic   string          `json:"request_topic"`
	ReplyTopic     string          `json:"reply_topic"`
	ReplyTimeoutMS int             `json:"reply_timeout_ms"`
	UseTLS         bool            `json:"use_tls"`
	ClientCert     string          `json:"client_cert"`
	ClientKey      string          `json:"client_key"`
	CABundle       string          `json:"ca_bundle"`
	AuthMethod     string          `json:"auth_method"`
	QoS            map[string]byte `json:"qos"`
	LWTTopic       string          `json:"lwt_topic"`
	LWTPayload     string          `json:"lwt_payload"`
	LWTQoS         byte            `json:"lwt_qos"`
	LWTRetain      bool            `json:"lwt_retain"`
	MaxRetries     int             `json:"max_retries"`
	BackoffMS      int             `json:"backoff_ms"`
	TLSConfig      *tls.Config     `json:"-"`
}

// SetDefaults fills in topics, client id and timeouts.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "railjobs"
	}
	if c.RequestTopic == "" {
		c.RequestTopic = "railjobs/tasks/request"
	}
	if c.ReplyTopic == "" {
		c.ReplyTopic = "railjobs/tasks/reply"
	}
	if c.ReplyTimeoutMS <= 0 {
		c.ReplyTimeoutMS = 5000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the settings required to connect.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if c.RequestTopic == c.ReplyTopic {
		return fmt.Errorf("mqtt: request and reply topics must differ")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// TaskBridge builds tasks by asking the host over MQTT. It publishes a
// TaskRequest per proposal and waits for the matching TaskReply.
type TaskBridge struct {
	cli     pahoClient
	cfg     Config
	timeout time.Duration
	backoff time.Duration

	mu      sync.Mutex
	pending map[string]chan coremqtt.TaskReply
	logger  logger.Logger
}

// NewTaskBridge connects to the broker and subscribes to the reply topic.
func NewTaskBridge(cfg Config) (*TaskBridge, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_bridge")
	b := &TaskBridge{
		cfg:     cfg,
		timeout: time.Duration(cfg.ReplyTimeoutMS) * time.Millisecond,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		pending: make(map[string]chan coremqtt.TaskReply),
		logger:  log,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.ReplyTopic, cfg.QoS["reply"], b.onReply); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	b.cli = c
	return b, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca_bundle %s holds no certificates", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (b *TaskBridge) onReply(_ paho.Client, msg paho.Message) {
	var r coremqtt.TaskReply
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		b.logger.Errorf("failed to decode task reply: %v", err)
		return
	}
	b.mu.Lock()
	ch, ok := b.pending[r.RequestID]
	b.mu.Unlock()
	if !ok {
		b.logger.Debugf("ignoring reply for unknown request %s", r.RequestID)
		return
	}
	select {
	case ch <- r:
	default:
	}
}

// Build publishes a task request for p and waits for the host's reply.
// A declined request wraps host.ErrTaskDeclined; a missing reply returns
// ErrReplyTimeout.
func (b *TaskBridge) Build(ctx context.Context, p model.TaskProposal) (model.Task, error) {
	req := coremqtt.TaskRequest{RequestID: uuid.NewString(), Proposal: p, Timestamp: time.Now().UnixMilli()}
	payload, err := json.Marshal(req)
	if err != nil {
		return model.Task{}, err
	}
	ch := make(chan coremqtt.TaskReply, 1)
	b.mu.Lock()
	b.pending[req.RequestID] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, req.RequestID)
		b.mu.Unlock()
	}()

	if err := b.publish(payload); err != nil {
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "proposal_id": p.ID.String()}, nil)
		return model.Task{}, fmt.Errorf("publish task request %s: %w", req.RequestID, err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return model.Task{}, ctx.Err()
	case <-timer.C:
		return model.Task{}, fmt.Errorf("%w: request %s", coremqtt.ErrReplyTimeout, req.RequestID)
	case r := <-ch:
		switch r.Status {
		case coremqtt.StatusBuilt:
			b.logger.Infof("host built task %s for proposal %s", r.TaskID, p.ID)
			return model.Task{ID: r.TaskID, ProposalID: p.ID, Kind: p.Kind}, nil
		case coremqtt.StatusDeclined:
			return model.Task{}, fmt.Errorf("%w: %s", host.ErrTaskDeclined, r.Reason)
		default:
			return model.Task{}, fmt.Errorf("host failed to build %s task: %s", p.Kind, r.Reason)
		}
	}
}

func (b *TaskBridge) publish(payload []byte) error {
	qos := b.cfg.QoS["request"]
	var err error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		token := b.cli.Publish(b.cfg.RequestTopic, qos, false, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			return nil
		}
		b.logger.Errorf("publish attempt %d failed: %v", attempt+1, err)
		if attempt < b.cfg.MaxRetries {
			time.Sleep(b.backoff * time.Duration(1<<attempt))
		}
	}
	return err
}

// Disconnect gracefully closes the MQTT connection.
func (b *TaskBridge) Disconnect() {
	if b.cli != nil && b.cli.IsConnected() {
		b.cli.Disconnect(250)
	}
}
