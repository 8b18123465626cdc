package broker

import (
	"github.com/avvvet/variables-admin/internal/adminsvc/models"
	"github.com/avvvet/variables-admin/internal/comm"
	log "github.com/sirupsen/logrus"
)

const Topic = "variables.service"

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Broker announces created records to other services.
type Broker struct {
	Conn  Publisher
	Topic string
}

func NewBroker(conn Publisher) *Broker {
	return &Broker{
		Conn:  conn,
		Topic: Topic,
	}
}

// VariablesCreated publishes v; a failure is only logged.
func (b *Broker) VariablesCreated(v *models.Variables) {
	payload, err := comm.Encode(comm.TypeVariablesCreated, v)
	if err != nil {
		log.Errorf("error [VariablesCreated] marshaling record %s: %v", v.ID, err)
		return
	}

	if err := b.Publish(b.Topic, payload); err != nil {
		log.Errorf("error publishing variables-created for record %s: %v", v.ID, err)
	}
}

func (b *Broker) Publish(topic string, payload []byte) error {
	return b.Conn.Publish(topic, payload)
}
