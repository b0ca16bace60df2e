package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/danggoo-services/internal/comm"
	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	EventSubjectPrefix = "tables.events"
	CommandSubject     = "tables.commands"

	commandTimeout = 10 * time.Second
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Commander runs the table commands relayed from NATS.
type Commander interface {
	StartGame(ctx context.Context, tableID int) (*models.Game, error)
	EndGame(ctx context.Context, tableID int) (*models.Game, error)
	ForceStart(ctx context.Context, tableID int) error
	ForceEnd(ctx context.Context, tableID int) error
}

// Broker publishes events to NATS for other processes and relays commands
// received on CommandSubject into the game lifecycle.
type Broker struct {
	Conn      *nats.Conn
	pub       Publisher
	Commander Commander
}

func NewBroker(conn *nats.Conn) *Broker {
	return &Broker{Conn: conn, pub: conn}
}

// EventSubject is the subject an event for tableID is published on. Events not
// bound to a table go to "<prefix>.all".
func EventSubject(tableID int) string {
	if tableID == 0 {
		return EventSubjectPrefix + ".all"
	}
	return fmt.Sprintf("%s.%d", EventSubjectPrefix, tableID)
}

// consume table commands from other services
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.pub.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// Deliver makes the broker a broadcaster transport.
func (b *Broker) Deliver(ev comm.Event, payload []byte) {
	_ = b.Publish(EventSubject(ev.TableID), payload)
}

func (b *Broker) handleMessage(msgNats *nats.Msg) {
	b.handleCommand(msgNats.Data)
}

func (b *Broker) handleCommand(data []byte) {
	cmd := &comm.TableCommand{}
	if err := json.Unmarshal(data, cmd); err != nil {
		log.Errorf("Malformed table command dropped: %s", err)
		return
	}
	if cmd.TableID <= 0 {
		log.Errorf("Table command %s without table id dropped", cmd.Type)
		return
	}
	if b.Commander == nil {
		log.Warnf("No commander attached, dropping %s for table %d", cmd.Type, cmd.TableID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch cmd.Type {
	case comm.TypeForceStartGame:
		err = b.Commander.ForceStart(ctx, cmd.TableID)
	case comm.TypeForceEndGame:
		err = b.Commander.ForceEnd(ctx, cmd.TableID)
	case comm.TypeGameStarted:
		_, err = b.Commander.StartGame(ctx, cmd.TableID)
	case comm.TypeGameEnded:
		_, err = b.Commander.EndGame(ctx, cmd.TableID)
	default:
		log.Warnf("Unknown table command: %s", cmd.Type)
		return
	}

	if err != nil {
		log.Errorf("Table command %s for table %d failed: %s", cmd.Type, cmd.TableID, err)
		return
	}
	log.Infof("Table command %s for table %d applied", cmd.Type, cmd.TableID)
}
