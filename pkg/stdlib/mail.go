package stdlib

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"

	"sona/pkg/eval"
)

var mailBridges = []registration{
	{"__native__mail_send", 1, mailSend},
	{"__native__mail_render", 1, mailRender},
}

// buildMessage turns a dict with to, from, subject, body and html entries
// into a message. to may be a string or an array of strings.
func buildMessage(msg *eval.Dict) (*gomail.Message, error) {
	var to []string
	switch v, _ := msg.GetString("to"); v := v.(type) {
	case *eval.String:
		to = []string{v.Value}
	case *eval.Array:
		for _, el := range v.Elements {
			s, ok := el.(*eval.String)
			if !ok {
				return nil, fmt.Errorf("recipients must be STRING, got %s", el.Kind())
			}
			to = append(to, s.Value)
		}
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("message needs at least one recipient in \"to\"")
	}

	from := optionalString(msg, "from", os.Getenv("SMTP_USER"))
	if from == "" {
		from = "noreply@example.com"
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", optionalString(msg, "subject", ""))
	if html := optionalString(msg, "html", ""); html != "" {
		m.SetBody("text/html", html)
	} else {
		m.SetBody("text/plain", optionalString(msg, "body", ""))
	}
	return m, nil
}

// mailSend delivers through the server named by SMTP_HOST, SMTP_PORT,
// SMTP_USER and SMTP_PASS.
func mailSend(args ...eval.Object) (eval.Object, error) {
	msg, err := dictArg(args, 0, "message")
	if err != nil {
		return nil, err
	}
	m, err := buildMessage(msg)
	if err != nil {
		return nil, err
	}

	host := os.Getenv("SMTP_HOST")
	portStr := os.Getenv("SMTP_PORT")
	if host == "" || portStr == "" {
		return nil, fmt.Errorf("SMTP_HOST and SMTP_PORT environment variables must be set")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORT must be an integer")
	}

	d := gomail.NewDialer(host, port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASS"))
	if err := d.DialAndSend(m); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	return eval.TRUE, nil
}

// mailRender returns the message as it would go over the wire.
func mailRender(args ...eval.Object) (eval.Object, error) {
	msg, err := dictArg(args, 0, "message")
	if err != nil {
		return nil, err
	}
	m, err := buildMessage(msg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return eval.NewString(buf.String()), nil
}
