package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVenueConfigDefaults(t *testing.T) {
	t.Setenv("VENUE_TIMEZONE", "")
	t.Setenv("VENUE_OPENING_TIME", "")
	t.Setenv("VENUE_CLOSING_TIME", "")
	t.Setenv("SLOT_INTERVAL", "")
	t.Setenv("DINING_DURATION", "")

	v, err := LoadVenueConfig()
	require.NoError(t, err)
	assert.Equal(t, "Pacific/Guam", v.Location.String())
	assert.Equal(t, 17*time.Hour, v.Opening)
	assert.Equal(t, 21*time.Hour, v.Closing)
	assert.Equal(t, 30*time.Minute, v.SlotInterval)
	assert.Equal(t, time.Hour, v.DiningDuration)
}

func TestLoadVenueConfigRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"bad clock":        {"VENUE_OPENING_TIME", "5pm"},
		"closing first":    {"VENUE_CLOSING_TIME", "16:00"},
		"bad timezone":     {"VENUE_TIMEZONE", "Mars/Olympus"},
		"zero slot":        {"SLOT_INTERVAL", "0s"},
		"garbage duration": {"DINING_DURATION", "an hour"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadVenueConfig()
			assert.Error(t, err)
		})
	}
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+30*time.Minute, d)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestLoadNotifyConfig(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("NOTIFY_BUFFER", "0")

	c := LoadNotifyConfig()
	assert.Equal(t, "log", c.Backend)
	assert.Equal(t, "amqp://u:p@mq:5672/", c.AMQPURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
	assert.Equal(t, "seating.confirmed", c.KafkaTopic)
	assert.Equal(t, 1, c.Buffer)
}

func TestLoadRateLimitConfigClampsTTL(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_CAPACITY", "-3")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 50*time.Second, c.TTL)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "ON")
	assert.True(t, envBool("X_FLAG", false))
	t.Setenv("X_FLAG", "nope")
	assert.True(t, envBool("X_FLAG", true))
}
