package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"text/template"
	"time"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
	"github.com/gsu-cloud/turbine-cloud/pkg/config"
)

var triggeredTemplate = template.Must(template.New("triggered").Parse(`
Turbine Hotspot Detected
========================

Turbine: {{.TurbineToken}}
Max Temperature: {{printf "%.2f" .MaxTemp}}
Trigger: {{printf "%.2f" .Trigger}}
Camera Angle: {{printf "%.1f" .Angle}}
Capture: {{.DatasetPath}}
Alert ID: {{.AlertID}}
First Hot Capture: {{.StartTime.Format "2006-01-02 15:04:05 MST"}}

Description:
A thermal capture from turbine {{.TurbineToken}} peaked at {{printf "%.2f" .MaxTemp}},
above the configured trigger of {{printf "%.2f" .Trigger}}. The capture can be
inspected from the operator dashboard under {{.DatasetPath}}.

---
GSU Cloud Notification System
`))

var clearedTemplate = template.Must(template.New("cleared").Parse(`
Turbine Hotspot Cleared
=======================

Turbine: {{.TurbineToken}}
Latest Max Temperature: {{printf "%.2f" .MaxTemp}}
Trigger: {{printf "%.2f" .Trigger}}
Alert ID: {{.AlertID}}

Description:
The latest capture from turbine {{.TurbineToken}} is back under the trigger.

---
GSU Cloud Notification System
`))

// DefaultTimeout bounds one SMTP exchange, from dial to QUIT.
const DefaultTimeout = 15 * time.Second

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends hotspot notifications by email
type EmailNotifier struct {
	config   *config.SMTPConfig
	sendMail sendFunc
	timeout  time.Duration
	now      func() time.Time
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	e := &EmailNotifier{config: cfg, timeout: DefaultTimeout, now: time.Now}
	e.sendMail = e.deliver
	return e
}

// Notify sends an email for a hotspot notification. The exchange is
// abandoned when ctx ends or the notifier timeout passes.
func (e *EmailNotifier) Notify(ctx context.Context, n *protocol.HotspotNotification) error {
	subject, body, err := render(n)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.sendEmail(ctx, subject, body)
}

func render(n *protocol.HotspotNotification) (string, string, error) {
	var subject string
	var tmpl *template.Template

	switch n.Type {
	case protocol.HotspotTypeTriggered:
		subject = fmt.Sprintf("Turbine Hotspot DETECTED - %s (%.1f)", n.TurbineToken, n.MaxTemp)
		tmpl = triggeredTemplate
	case protocol.HotspotTypeCleared:
		subject = fmt.Sprintf("Turbine Hotspot CLEARED - %s", n.TurbineToken)
		tmpl = clearedTemplate
	default:
		return "", "", fmt.Errorf("unknown notification type: %s", n.Type)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, n); err != nil {
		return "", "", fmt.Errorf("failed to render email template: %w", err)
	}
	return subject, buf.String(), nil
}

func (e *EmailNotifier) sendEmail(ctx context.Context, subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, body)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", e.now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := e.sendMail(ctx, addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}

// TestConnection checks that the SMTP server answers with a greeting
func (e *EmailNotifier) TestConnection(ctx context.Context) error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	_, release, err := dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer release()

	fmt.Println("SMTP connection test successful")
	return nil
}

// dial connects to addr and reads the server greeting. Every read and write
// on the returned client fails once ctx is done. release must be called when
// the client is no longer needed.
func dial(ctx context.Context, addr string) (*smtp.Client, func(), error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	host, _, _ := net.SplitHostPort(addr)
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		stop()
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, nil, err
	}

	release := func() {
		stop()
		client.Close()
	}
	return client, release, nil
}

// deliver is smtp.SendMail bound to ctx.
func (e *EmailNotifier) deliver(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	client, release, err := dial(ctx, addr)
	if err != nil {
		return err
	}
	defer release()

	if ok, _ := client.Extension("STARTTLS"); ok {
		host, _, _ := net.SplitHostPort(addr)
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
