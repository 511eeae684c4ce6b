package notify

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/gomail.v2"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(to, subject, body string) error
}

// SettingsReader resolves runtime settings categories into typed
// structs, implemented by the app settings manager.
type SettingsReader interface {
	DecodeSettings(category string, out interface{}) error
}

// SMTPSettings is the smtp settings category.
type SMTPSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// NotifySettings is the notify settings category.
type NotifySettings struct {
	ReportTo string `mapstructure:"report_to"`
	SiteURL  string `mapstructure:"site_url"`
}

// SMTPSender sends mail through the SMTP relay configured in the
// runtime settings, resolved on every send so admin changes apply
// without a restart.
type SMTPSender struct {
	settings SettingsReader
}

func NewSMTPSender(settings SettingsReader) *SMTPSender {
	return &SMTPSender{settings: settings}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	var cfg SMTPSettings
	if err := s.settings.DecodeSettings("smtp", &cfg); err != nil {
		return errors.Wrap(err, "load smtp settings")
	}
	if cfg.Host == "" {
		return errors.New("smtp host not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return d.DialAndSend(m)
}

var moneyPrinter = message.NewPrinter(language.English)

func fmtAmount(v float64) string {
	return moneyPrinter.Sprintf("$%.2f", v)
}

// BuildWelcome renders the signup greeting.
func BuildWelcome(ev UserRegisteredEvent) (string, string) {
	subject := "Welcome to ZestCart"
	body := fmt.Sprintf("<p>Hi %s,</p><p>your account is ready. Happy shopping!</p>", ev.Username)
	return subject, body
}

// BuildPasswordReset renders the reset token mail.
func BuildPasswordReset(ev PasswordResetEvent, siteURL string) (string, string) {
	subject := "Reset your ZestCart password"
	var sb strings.Builder
	fmt.Fprintf(&sb, "<p>Hi %s,</p>", ev.Username)
	fmt.Fprintf(&sb, "<p>Use the code below within 30 minutes to set a new password:</p>")
	fmt.Fprintf(&sb, "<p><b>%s</b></p>", ev.Token)
	if siteURL != "" {
		fmt.Fprintf(&sb, `<p><a href="%s/reset-password?token=%s">Reset password</a></p>`, siteURL, ev.Token)
	}
	sb.WriteString("<p>If you did not request this, ignore this mail.</p>")
	return subject, sb.String()
}

// BuildOrderCreated renders the checkout confirmation with the line
// snapshot.
func BuildOrderCreated(ev OrderCreatedEvent) (string, string) {
	subject := fmt.Sprintf("Order %d received", ev.OrderID)
	var sb strings.Builder
	fmt.Fprintf(&sb, "<p>Hi %s,</p><p>we received your order <b>%d</b>.</p>", ev.Username, ev.OrderID)
	sb.WriteString("<table><tr><th>Item</th><th>Qty</th><th>Price</th><th>Subtotal</th></tr>")
	for _, item := range ev.Items {
		fmt.Fprintf(&sb, "<tr><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			item.Name, item.Quantity, fmtAmount(item.Price), fmtAmount(item.Subtotal))
	}
	sb.WriteString("</table>")
	fmt.Fprintf(&sb, "<p>Total: <b>%s</b></p>", fmtAmount(ev.Total))
	return subject, sb.String()
}

// BuildOrderStatusChanged renders a status update mail.
func BuildOrderStatusChanged(ev OrderStatusChangedEvent) (string, string) {
	subject := fmt.Sprintf("Order %d is now %s", ev.OrderID, ev.To)
	body := fmt.Sprintf("<p>Hi %s,</p><p>your order <b>%d</b> (%s) moved from %s to <b>%s</b>.</p>",
		ev.Username, ev.OrderID, fmtAmount(ev.Total), ev.From, ev.To)
	return subject, body
}

// BuildLowStock renders the stock report sent to operators.
func BuildLowStock(ev LowStockEvent) (string, string) {
	subject := fmt.Sprintf("Low stock report: %d products", len(ev.Products))
	var sb strings.Builder
	sb.WriteString("<p>The following products are running low:</p><ul>")
	for _, p := range ev.Products {
		fmt.Fprintf(&sb, "<li>%s (id %d): %d left</li>", p.Name, p.ProductID, p.Quantity)
	}
	sb.WriteString("</ul>")
	return subject, sb.String()
}
