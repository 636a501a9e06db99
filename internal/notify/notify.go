package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/models"
)

type Kind string

const (
	KindWelcome      Kind = "welcome"
	KindUtilityBill  Kind = "utility_bill"
	KindBillReminder Kind = "bill_reminder"
	KindLeaseExpiry  Kind = "lease_expiry"
)

// Message is the structured payload handed to the mail gateway.
type Message struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	To        string         `json:"to"`
	Name      string         `json:"name"`
	Subject   string         `json:"subject"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Dispatcher delivers messages on a best-effort basis. Callers invoke it only
// after their transaction has committed and record, never propagate, failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

func newMessage(kind Kind, user *models.User, subject string, data map[string]any) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        user.Email,
		Name:      user.Name,
		Subject:   subject,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// UtilityBillMessage announces a bill to its tenant.
func UtilityBillMessage(user *models.User, bill *models.UtilityBill) Message {
	return newMessage(KindUtilityBill, user, fmt.Sprintf("Your utility bill %s", bill.BillNumber), map[string]any{
		"bill_id":      bill.ID.Hex(),
		"bill_number":  bill.BillNumber,
		"period_start": bill.BillingPeriod.StartDate,
		"period_end":   bill.BillingPeriod.EndDate,
		"total_amount": bill.TotalAmount,
		"due_date":     bill.DueDate,
	})
}

// BillReminderMessage reminds a tenant of an overdue bill.
func BillReminderMessage(user *models.User, bill *models.UtilityBill) Message {
	return newMessage(KindBillReminder, user, fmt.Sprintf("Payment reminder for %s", bill.BillNumber), map[string]any{
		"bill_id":        bill.ID.Hex(),
		"bill_number":    bill.BillNumber,
		"total_amount":   bill.TotalAmount,
		"due_date":       bill.DueDate,
		"reminders_sent": bill.RemindersSent + 1,
	})
}

// LeaseExpiryMessage warns a tenant that their lease ends soon.
func LeaseExpiryMessage(user *models.User, daysLeft int) Message {
	data := map[string]any{"days_left": daysLeft}
	if user.TenantInfo != nil {
		data["room_number"] = user.TenantInfo.RoomNumber
		data["lease_end_date"] = user.TenantInfo.LeaseEndDate
	}
	return newMessage(KindLeaseExpiry, user, "Your lease is about to expire", data)
}

// WelcomeMessage greets a newly onboarded account.
func WelcomeMessage(user *models.User) Message {
	data := map[string]any{"role": user.Role}
	if user.TenantInfo != nil {
		data["room_number"] = user.TenantInfo.RoomNumber
	}
	return newMessage(KindWelcome, user, "Welcome to your new home", data)
}

// MQTTDispatcher publishes messages as JSON on <topic>/<kind>.
type MQTTDispatcher struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
}

// ConnectMQTT opens a client connection to broker.
func ConnectMQTT(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return client, nil
}

// NewMQTTDispatcher creates a dispatcher publishing to topic/<kind> at QoS 1.
func NewMQTTDispatcher(client mqtt.Client, topic string) *MQTTDispatcher {
	return &MQTTDispatcher{client: client, topic: topic, qos: 1, timeout: 5 * time.Second}
}

func (d *MQTTDispatcher) Dispatch(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	token := d.client.Publish(d.topic+"/"+string(msg.Kind), d.qos, false, payload)

	timeout := d.timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish message %s: timed out", msg.ID)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish message %s: %w", msg.ID, err)
	}
	log.WithFields(log.Fields{"message_id": msg.ID, "kind": msg.Kind, "to": msg.To}).Debug("Published notification")
	return nil
}

// Close disconnects the underlying client.
func (d *MQTTDispatcher) Close() {
	d.client.Disconnect(250)
}

// LogDispatcher writes messages to the log. Used when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, msg Message) error {
	log.WithFields(log.Fields{
		"message_id": msg.ID,
		"kind":       msg.Kind,
		"to":         msg.To,
		"subject":    msg.Subject,
	}).Info("Notification (no broker configured)")
	return nil
}
