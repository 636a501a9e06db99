package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

// fakeClient records publishes; other mqtt.Client methods are not used.
type fakeClient struct {
	mqtt.Client
	token    *fakeToken
	topics   []string
	payloads [][]byte
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return c.token
}

func testBill() (*models.User, *models.UtilityBill) {
	user := &models.User{Name: "Ana", Email: "ana@example.com", Role: models.RoleTenant}
	bill := &models.UtilityBill{ID: primitive.NewObjectID(), BillNumber: "BILL-202501-0007", TotalAmount: 145}
	return user, bill
}

func TestMQTTDispatcher_Publishes(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: true}}
	d := NewMQTTDispatcher(client, "apartments/notifications")

	user, bill := testBill()
	msg := UtilityBillMessage(user, bill)
	require.NoError(t, d.Dispatch(context.Background(), msg))

	require.Len(t, client.topics, 1)
	assert.Equal(t, "apartments/notifications/utility_bill", client.topics[0])

	var decoded Message
	require.NoError(t, json.Unmarshal(client.payloads[0], &decoded))
	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, "ana@example.com", decoded.To)
	assert.Equal(t, "BILL-202501-0007", decoded.Data["bill_number"])
}

func TestMQTTDispatcher_Failures(t *testing.T) {
	user, bill := testBill()

	timedOut := NewMQTTDispatcher(&fakeClient{token: &fakeToken{done: false}}, "t")
	assert.ErrorContains(t, timedOut.Dispatch(context.Background(), UtilityBillMessage(user, bill)), "timed out")

	broken := NewMQTTDispatcher(&fakeClient{token: &fakeToken{done: true, err: errors.New("not connected")}}, "t")
	assert.ErrorContains(t, broken.Dispatch(context.Background(), UtilityBillMessage(user, bill)), "not connected")
}

func TestMessages(t *testing.T) {
	user, bill := testBill()
	end := time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC)
	user.TenantInfo = &models.TenantInfo{RoomNumber: "A101", LeaseEndDate: &end}

	a := UtilityBillMessage(user, bill)
	b := BillReminderMessage(user, bill)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, KindBillReminder, b.Kind)
	assert.Equal(t, 1, b.Data["reminders_sent"])

	lease := LeaseExpiryMessage(user, 10)
	assert.Equal(t, KindLeaseExpiry, lease.Kind)
	assert.Equal(t, 10, lease.Data["days_left"])
	assert.Equal(t, "A101", lease.Data["room_number"])

	welcome := WelcomeMessage(user)
	assert.Equal(t, KindWelcome, welcome.Kind)
}

func TestLogDispatcher(t *testing.T) {
	user, bill := testBill()
	assert.NoError(t, LogDispatcher{}.Dispatch(context.Background(), UtilityBillMessage(user, bill)))
}
