package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// SubjectPrefix namespaces every subject this service publishes on
const SubjectPrefix = "airjump."

// NATSPublisher publishes events to NATS so other replicas and services can follow the venue
type NATSPublisher struct {
	Conn *nats.Conn
}

// ConnectNATS connects to the NATS server at url, authenticating with token when set
func ConnectNATS(url, token string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("airjump"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{Conn: conn}, nil
}

// Subject maps an event type to its NATS subject
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// Publish sends the event on its subject
func (p *NATSPublisher) Publish(eventType string, data interface{}) error {
	evt, err := NewEvent(eventType, data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.Conn.Publish(Subject(eventType), payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

// Forward subscribes to every venue subject and delivers the events to hub,
// so the live feed of each replica shows activity from all of them.
func (p *NATSPublisher) Forward(hub *Hub) (*nats.Subscription, error) {
	return p.Conn.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		var evt Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Errorf("Error decoding NATS event on %s: %v", msg.Subject, err)
			return
		}
		if evt.Type == "" {
			evt.Type = strings.TrimPrefix(msg.Subject, SubjectPrefix)
		}
		hub.Deliver(evt)
	})
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() {
	if err := p.Conn.Drain(); err != nil {
		log.Warnf("NATS drain failed: %v", err)
		p.Conn.Close()
	}
}
