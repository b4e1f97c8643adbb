package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/railjobs/core/host"
	coremqtt "github.com/kilianp07/railjobs/core/mqtt"
	"github.com/kilianp07/railjobs/infra/logger"
)

// Responder is the host side of the bridge: it answers task requests with
// a local TaskBuilder.
type Responder struct {
	cli     pahoClient
	cfg     Config
	builder host.TaskBuilder
	logger  logger.Logger
}

// NewResponder connects to the broker and serves requests with builder.
func NewResponder(cfg Config, builder host.TaskBuilder) (*Responder, error) {
	cfg.SetDefaults()
	cfg.ClientID += "-host"
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	r := &Responder{cfg: cfg, builder: builder, logger: logger.New("mqtt_responder")}
	opts.OnConnect = func(c paho.Client) {
		if token := c.Subscribe(cfg.RequestTopic, cfg.QoS["request"], r.onRequest); token.Wait() && token.Error() != nil {
			r.logger.Errorf("subscribe error: %v", token.Error())
		}
	}
	r.cli = newMQTTClient(opts)
	if token := r.cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return r, nil
}

func (r *Responder) onRequest(_ paho.Client, msg paho.Message) {
	var req coremqtt.TaskRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		r.logger.Errorf("failed to decode task request: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.ReplyTimeoutMS)*time.Millisecond)
	defer cancel()
	reply := coremqtt.TaskReply{RequestID: req.RequestID, Status: coremqtt.StatusBuilt}
	task, err := r.builder.Build(ctx, req.Proposal)
	switch {
	case errors.Is(err, host.ErrTaskDeclined):
		reply.Status, reply.Reason = coremqtt.StatusDeclined, err.Error()
	case err != nil:
		reply.Status, reply.Reason = coremqtt.StatusFailed, err.Error()
	default:
		reply.TaskID = task.ID
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		r.logger.Errorf("encode reply: %v", err)
		return
	}
	token := r.cli.Publish(r.cfg.ReplyTopic, r.cfg.QoS["reply"], false, payload)
	if token.Wait() && token.Error() != nil {
		r.logger.Errorf("publish reply %s: %v", req.RequestID, token.Error())
	}
}

// Disconnect closes the connection.
func (r *Responder) Disconnect() {
	if r.cli != nil && r.cli.IsConnected() {
		r.cli.Disconnect(250)
	}
}
