package monoprice

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/monoprice/internal/testutils"
	"github.com/pior/monoprice/protocol"
)

func newTestClient(t testing.TB, port *testutils.AmplifierPort, cfg Config) *Client {
	t.Helper()
	client := NewClient(NewBlockingSession(port, "test", cfg), cfg)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func unitResponse(zones ...int) string {
	var sb strings.Builder
	sb.WriteString(protocol.EOL)
	for _, zone := range zones {
		sb.WriteString(protocol.ZoneStatus{Zone: zone, Power: true, Volume: zone % 38, Treble: 7, Bass: 7, Balance: 10, Source: 1}.Line())
		sb.WriteString(protocol.EOL)
	}
	return sb.String()
}

func TestClient_ZoneStatus(t *testing.T) {
	port := testutils.NewAmplifierPort()
	port.Respond("?11\r", zone11Response)
	client := newTestClient(t, port, testConfig())

	status, ok, err := client.ZoneStatus(context.Background(), 11)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 11, status.Zone)
	assert.True(t, status.Power)
	assert.False(t, status.Mute)
	assert.Equal(t, 13, status.Volume)
	assert.Equal(t, 11, status.Treble)
	assert.Equal(t, 12, status.Bass)
	assert.Equal(t, 10, status.Balance)
	assert.Equal(t, 4, status.Source)
	assert.True(t, status.Keypad)

	assert.Equal(t, ClientStats{Queries: 1}, client.Stats())
}

func TestClient_ZoneStatus_Undecodable(t *testing.T) {
	port := testutils.NewAmplifierPort()
	port.Respond("?11\r", "\r\n#>11000100dfsf\r\n#")
	client := newTestClient(t, port, testConfig())

	status, ok, err := client.ZoneStatus(context.Background(), 11)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, protocol.ZoneStatus{}, status)
	assert.Equal(t, ClientStats{Queries: 1, Misses: 1}, client.Stats())
}

func TestClient_AllZoneStatus(t *testing.T) {
	port := testutils.NewAmplifierPort()
	port.Respond("?10\r", unitResponse(11, 12, 13, 14, 15, 16))
	client := newTestClient(t, port, testConfig())

	statuses, err := client.AllZoneStatus(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, statuses, 6)
	for i, status := range statuses {
		assert.Equal(t, 11+i, status.Zone)
		assert.True(t, status.Power)
	}
}

func TestClient_AllZoneStatus_Partial(t *testing.T) {
	port := testutils.NewAmplifierPort()
	response := protocol.EOL +
		">3100010000131112100401" + protocol.EOL +
		">32000100" + protocol.EOL +
		">33000100001311121004" + protocol.EOL +
		">3400010000131112100401" + protocol.EOL +
		"garbage" + protocol.EOL +
		">3600010000131112100401" + protocol.EOL
	port.Respond("?30\r", response)
	client := newTestClient(t, port, testConfig())

	statuses, err := client.AllZoneStatus(context.Background(), 3)
	require.NoError(t, err)

	var zones []int
	for _, s := range statuses {
		zones = append(zones, s.Zone)
	}
	assert.Equal(t, []int{31, 34, 36}, zones)
}

func TestClient_AllZoneStatus_InvalidUnit(t *testing.T) {
	port := testutils.NewAmplifierPort()
	client := newTestClient(t, port, testConfig())

	for _, unit := range []int{-1, 0, 4, 10} {
		statuses, err := client.AllZoneStatus(context.Background(), unit)
		require.NoError(t, err)
		assert.NotNil(t, statuses)
		assert.Empty(t, statuses)
	}
	assert.Empty(t, port.Requests(), "invalid units must not reach the amplifier")
}

func TestClient_Setters(t *testing.T) {
	tests := []struct {
		name    string
		call    func(ctx context.Context, c *Client) error
		request string
	}{
		{"power on", func(ctx context.Context, c *Client) error { return c.SetPower(ctx, 11, true) }, "<11PR01\r"},
		{"power off", func(ctx context.Context, c *Client) error { return c.SetPower(ctx, 12, false) }, "<12PR00\r"},
		{"mute on", func(ctx context.Context, c *Client) error { return c.SetMute(ctx, 13, true) }, "<13MU01\r"},
		{"mute off", func(ctx context.Context, c *Client) error { return c.SetMute(ctx, 14, false) }, "<14MU00\r"},
		{"volume", func(ctx context.Context, c *Client) error { return c.SetVolume(ctx, 11, 1) }, "<11VO01\r"},
		{"volume clamped high", func(ctx context.Context, c *Client) error { return c.SetVolume(ctx, 12, 100) }, "<12VO38\r"},
		{"volume clamped low", func(ctx context.Context, c *Client) error { return c.SetVolume(ctx, 13, -100) }, "<13VO00\r"},
		{"treble", func(ctx context.Context, c *Client) error { return c.SetTreble(ctx, 11, 1) }, "<11TR01\r"},
		{"treble clamped", func(ctx context.Context, c *Client) error { return c.SetTreble(ctx, 12, 100) }, "<12TR14\r"},
		{"bass", func(ctx context.Context, c *Client) error { return c.SetBass(ctx, 11, 1) }, "<11BS01\r"},
		{"bass clamped", func(ctx context.Context, c *Client) error { return c.SetBass(ctx, 13, -100) }, "<13BS00\r"},
		{"balance", func(ctx context.Context, c *Client) error { return c.SetBalance(ctx, 11, 1) }, "<11BL01\r"},
		{"balance clamped", func(ctx context.Context, c *Client) error { return c.SetBalance(ctx, 12, 100) }, "<12BL20\r"},
		{"source", func(ctx context.Context, c *Client) error { return c.SetSource(ctx, 11, 1) }, "<11CH01\r"},
		{"source clamped high", func(ctx context.Context, c *Client) error { return c.SetSource(ctx, 12, 100) }, "<12CH06\r"},
		{"source clamped low", func(ctx context.Context, c *Client) error { return c.SetSource(ctx, 13, -100) }, "<13CH01\r"},
		{"param", func(ctx context.Context, c *Client) error { return c.SetParam(ctx, 21, protocol.ParamVolume, 20) }, "<21VO20\r"},
		{"param bool", func(ctx context.Context, c *Client) error { return c.SetParam(ctx, 21, protocol.ParamMute, 7) }, "<21MU01\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := testutils.NewAmplifierPort()
			port.Respond(tt.request, ackResponse)
			client := newTestClient(t, port, testConfig())

			require.NoError(t, tt.call(context.Background(), client))
			assert.Equal(t, []string{tt.request}, port.Requests())
			assert.Equal(t, uint64(1), client.Stats().Sets)
		})
	}
}

func TestClient_SetParam_Unknown(t *testing.T) {
	port := testutils.NewAmplifierPort()
	client := newTestClient(t, port, testConfig())

	err := client.SetParam(context.Background(), 11, protocol.Param("XX"), 1)
	require.Error(t, err)
	assert.Empty(t, port.Requests())
}

func TestClient_RestoreZone(t *testing.T) {
	port := testutils.NewAmplifierPort()
	expected := []string{
		"<11PR01\r",
		"<11MU00\r",
		"<11VO13\r",
		"<11TR11\r",
		"<11BS12\r",
		"<11BL10\r",
		"<11CH04\r",
	}
	for _, req := range expected {
		port.Respond(req, ackResponse)
	}
	client := newTestClient(t, port, testConfig())

	status, ok := protocol.ParseStatus(zone11Response)
	require.True(t, ok)

	require.NoError(t, client.RestoreZone(context.Background(), status))
	assert.Equal(t, expected, port.Requests())

	stats := client.Stats()
	assert.Equal(t, uint64(7), stats.Sets)
	assert.Equal(t, uint64(1), stats.Restores)
}

func TestClient_RestoreZone_AbortsOnFailure(t *testing.T) {
	port := testutils.NewAmplifierPort()
	port.Respond("<11PR01\r", ackResponse)
	port.Respond("<11MU00\r", ackResponse)
	port.Respond("<11VO13\r", ackResponse)
	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	client := newTestClient(t, port, cfg)

	status, ok := protocol.ParseStatus(zone11Response)
	require.True(t, ok)

	err := client.RestoreZone(context.Background(), status)
	require.ErrorIs(t, err, protocol.ErrTimeout)
	assert.Contains(t, err.Error(), "restore zone 11 treble")

	assert.Len(t, port.Requests(), 4, "remaining steps must not be sent")
	stats := client.Stats()
	assert.Equal(t, uint64(3), stats.Sets)
	assert.Equal(t, uint64(0), stats.Restores)
	assert.Equal(t, uint64(1), stats.Errors)
}

func TestClient_RestoreZoneIsNotInterleaved(t *testing.T) {
	forEachSession(t, func(t *testing.T, newSession func(*testutils.AmplifierPort, Config) Session) {
		port := testutils.NewAmplifierPort()
		port.Delay = 5 * time.Millisecond
		restore := []string{
			"<11PR01\r",
			"<11MU00\r",
			"<11VO13\r",
			"<11TR11\r",
			"<11BS12\r",
			"<11BL10\r",
			"<11CH04\r",
		}
		for _, req := range restore {
			port.Respond(req, ackResponse)
		}
		port.Respond("<11VO38\r", ackResponse)

		cfg := testConfig()
		client := NewClient(newSession(port, cfg), cfg)

		status, ok := protocol.ParseStatus(zone11Response)
		require.True(t, ok)

		done := make(chan error, 1)
		go func() { done <- client.RestoreZone(context.Background(), status) }()

		require.Eventually(t, func() bool { return len(port.Requests()) > 0 }, time.Second, time.Millisecond)
		require.NoError(t, client.SetVolume(context.Background(), 11, 99))
		require.NoError(t, <-done)

		requests := port.Requests()
		require.Len(t, requests, 8)
		assert.Equal(t, restore, requests[:7])
		assert.Equal(t, "<11VO38\r", requests[7])
		assert.Equal(t, uint64(8), client.Stats().Sets)
	})
}

func TestClient_TimeoutThenRecovery(t *testing.T) {
	port := testutils.NewAmplifierPort()
	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	client := newTestClient(t, port, cfg)

	_, _, err := client.ZoneStatus(context.Background(), 11)
	require.ErrorIs(t, err, protocol.ErrTimeout)

	port.Respond("?11\r", zone11Response)
	status, ok, err := client.ZoneStatus(context.Background(), 11)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 11, status.Zone)

	assert.Equal(t, uint64(1), client.Stats().Errors)
	assert.Equal(t, uint64(1), client.SessionStats().Timeouts)
}

func TestClient_Exchange_Raw(t *testing.T) {
	port := testutils.NewAmplifierPort()
	port.Respond("?11\r", zone11Response)
	client := newTestClient(t, port, testConfig())

	resp, err := client.Exchange(context.Background(), []byte("?11\r"), protocol.UntilSize(3))
	require.NoError(t, err)
	assert.Equal(t, protocol.EOL, resp)
}

func TestOpenAsync(t *testing.T) {
	port := testutils.NewAmplifierPort()
	port.Respond("?20\r", unitResponse(21, 22, 23, 24, 25, 26))
	port.Respond("<21VO20\r", ackResponse)

	cfg := testConfig()
	cfg.PortFactory = portFactory(port)
	client, err := OpenAsync("/dev/ttyUSB0", cfg)
	require.NoError(t, err)
	defer client.Close()

	statuses, err := client.AllZoneStatus(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, statuses, 6)

	require.NoError(t, client.SetVolume(context.Background(), 21, 20))
	assert.Equal(t, "/dev/ttyUSB0", client.Session().Name())
}

func TestOpen(t *testing.T) {
	port := testutils.NewAmplifierPort()
	port.Respond("?11\r", zone11Response)

	cfg := testConfig()
	cfg.PortFactory = portFactory(port)
	client, err := Open("/dev/ttyUSB0", cfg)
	require.NoError(t, err)

	_, ok, err := client.ZoneStatus(context.Background(), 11)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, client.Close())
	assert.True(t, port.IsClosed())
}
