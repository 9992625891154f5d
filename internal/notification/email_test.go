package notification

import (
	"context"
	"errors"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
	"github.com/gsu-cloud/turbine-cloud/pkg/config"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestNotifier(cfg config.SMTPConfig, sent *[]sentMail, err error) *EmailNotifier {
	e := NewEmailNotifier(&cfg)
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	e.sendMail = func(_ context.Context, addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return err
	}
	return e
}

func configured() config.SMTPConfig {
	return config.SMTPConfig{
		Host: "smtp.example.com", Port: 587,
		Username: "user", Password: "pass",
		From: "cloud@example.com", To: "ops@example.com",
	}
}

func hotspot(kind string) *protocol.HotspotNotification {
	return &protocol.HotspotNotification{
		Type:         kind,
		TurbineToken: "T1",
		MaxTemp:      91.3,
		Trigger:      80,
		Angle:        45,
		DatasetPath:  "capture_T1_1700000000.npy",
		AlertID:      "a1",
		StartTime:    time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC),
	}
}

func TestEmailNotifier_Triggered(t *testing.T) {
	var sent []sentMail
	e := newTestNotifier(configured(), &sent, nil)

	require.NoError(t, e.Notify(context.Background(), hotspot(protocol.HotspotTypeTriggered)))
	require.Len(t, sent, 1)

	m := sent[0]
	assert.Equal(t, "smtp.example.com:587", m.addr)
	assert.Equal(t, "cloud@example.com", m.from)
	assert.Equal(t, []string{"ops@example.com"}, m.to)
	assert.Contains(t, m.msg, "Subject: Turbine Hotspot DETECTED - T1 (91.3)")
	assert.Contains(t, m.msg, "Max Temperature: 91.30")
	assert.Contains(t, m.msg, "Capture: capture_T1_1700000000.npy")
	assert.Contains(t, m.msg, "First Hot Capture: 2026-01-02 03:00:00 UTC")
	assert.True(t, strings.Contains(m.msg, "\r\n\r\n"), "headers must be separated from the body")
}

func TestEmailNotifier_Cleared(t *testing.T) {
	var sent []sentMail
	e := newTestNotifier(configured(), &sent, nil)

	require.NoError(t, e.Notify(context.Background(), hotspot(protocol.HotspotTypeCleared)))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].msg, "Subject: Turbine Hotspot CLEARED - T1")
	assert.Contains(t, sent[0].msg, "back under the trigger")
}

func TestEmailNotifier_UnknownType(t *testing.T) {
	var sent []sentMail
	e := newTestNotifier(configured(), &sent, nil)

	err := e.Notify(context.Background(), hotspot("SOMETHING_ELSE"))
	assert.Error(t, err)
	assert.Empty(t, sent)
}

func TestEmailNotifier_SkipsWhenUnconfigured(t *testing.T) {
	var sent []sentMail
	cfg := configured()
	cfg.Password = ""
	e := newTestNotifier(cfg, &sent, nil)

	require.NoError(t, e.Notify(context.Background(), hotspot(protocol.HotspotTypeTriggered)))
	assert.Empty(t, sent)
}

func TestEmailNotifier_SendError(t *testing.T) {
	var sent []sentMail
	cause := errors.New("connection refused")
	e := newTestNotifier(configured(), &sent, cause)

	err := e.Notify(context.Background(), hotspot(protocol.HotspotTypeTriggered))
	assert.ErrorIs(t, err, cause)
}

// smtpListener accepts connections and writes greeting (if any) to each.
func smtpListener(t *testing.T, greeting string) config.SMTPConfig {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				if greeting != "" {
					io.WriteString(conn, greeting)
				}
				io.Copy(io.Discard, conn)
			}()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := configured()
	cfg.Host = host
	cfg.Port = port
	return cfg
}

func TestEmailNotifier_SilentServerHonoursContext(t *testing.T) {
	cfg := smtpListener(t, "")
	e := NewEmailNotifier(&cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := e.Notify(ctx, hotspot(protocol.HotspotTypeTriggered))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEmailNotifier_SilentServerHitsTimeout(t *testing.T) {
	cfg := smtpListener(t, "")
	e := NewEmailNotifier(&cfg)
	e.timeout = 200 * time.Millisecond

	start := time.Now()
	err := e.Notify(context.Background(), hotspot(protocol.HotspotTypeCleared))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEmailNotifier_TestConnection(t *testing.T) {
	cfg := smtpListener(t, "220 localhost ESMTP ready\r\n")
	e := NewEmailNotifier(&cfg)
	e.timeout = time.Second

	assert.NoError(t, e.TestConnection(context.Background()))
}

func TestEmailNotifier_TestConnectionSilentServer(t *testing.T) {
	cfg := smtpListener(t, "")
	e := NewEmailNotifier(&cfg)
	e.timeout = 200 * time.Millisecond

	assert.Error(t, e.TestConnection(context.Background()))
}

func TestEmailNotifier_TestConnectionUnconfigured(t *testing.T) {
	e := NewEmailNotifier(&config.SMTPConfig{})
	assert.Error(t, e.TestConnection(context.Background()))
}
