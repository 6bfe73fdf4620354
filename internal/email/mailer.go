// Package email renders and sends the booking notification emails. The
// mailer implements queue.Notifier, so it plugs directly into the
// notification consumer. When no SMTP host is configured it degrades to
// logging the rendered message instead of sending, which keeps local
// development working without a mail server.
package email

import (
	"fmt"
	"html"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/amodallal/fishing-backend/internal/config"
	"github.com/amodallal/fishing-backend/internal/queue"
)

type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer { return &Mailer{cfg: cfg} }

// ReservationCreated emails the booker a confirmation of their seats
// and the captain a heads-up about the new booking.
func (m *Mailer) ReservationCreated(ev queue.ReservationCreatedEvent) error {
	subject := fmt.Sprintf("Booking confirmed: %s", ev.TripLocation)
	if err := m.send(ev.ContactEmail, subject, renderReservationCreated(ev)); err != nil {
		return err
	}
	captainSubject := fmt.Sprintf("New booking on your trip: %s", ev.TripLocation)
	return m.send(ev.CaptainEmail, captainSubject, renderReservationCreatedCaptain(ev))
}

// ReservationCancelled emails the booker that their reservation was
// cancelled and the seats released.
func (m *Mailer) ReservationCancelled(ev queue.ReservationCancelledEvent) error {
	subject := fmt.Sprintf("Reservation cancelled: %s", ev.TripLocation)
	return m.send(ev.ContactEmail, subject, renderReservationCancelled(ev))
}

// TripCancelled emails the booker behind one cancellation event with
// the captain's reason. The trip fan-out happens upstream: one event
// arrives per reservation.
func (m *Mailer) TripCancelled(ev queue.TripCancelledEvent) error {
	subject := fmt.Sprintf("Trip cancelled: %s", ev.TripLocation)
	return m.send(ev.ContactEmail, subject, renderTripCancelled(ev))
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	if to == "" {
		return nil
	}
	if m.cfg.Host == "" {
		log.Printf("mailer: smtp not configured, skipping send to=%s subject=%q", to, subject)
		return nil
	}

	from := m.cfg.From
	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.cfg.FromName, from),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + m.cfg.Port
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg))
}

func renderReservationCreated(ev queue.ReservationCreatedEvent) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>Your fishing trip is booked!</h2>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(ev.ContactName))
	fmt.Fprintf(&b, "<p>Your reservation #%d is confirmed.</p>", ev.ReservationID)
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Location: %s</li>", html.EscapeString(ev.TripLocation))
	fmt.Fprintf(&b, "<li>Departure: %s</li>", formatDeparture(ev.DepartsAt))
	fmt.Fprintf(&b, "<li>Seats: %d</li>", ev.Seats)
	fmt.Fprintf(&b, "<li>Price per seat: %s</li>", formatPrice(ev.PriceCents))
	fmt.Fprintf(&b, "<li>Captain: %s</li>", html.EscapeString(ev.CaptainName))
	b.WriteString("</ul>")
	b.WriteString("<p>Tight lines!</p>")
	b.WriteString("</body></html>")
	return b.String()
}

func renderReservationCreatedCaptain(ev queue.ReservationCreatedEvent) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>New booking</h2>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(ev.CaptainName))
	fmt.Fprintf(&b, "<p>%s booked %d seat(s) on your trip from %s, departing %s.</p>",
		html.EscapeString(ev.ContactName), ev.Seats, html.EscapeString(ev.TripLocation), formatDeparture(ev.DepartsAt))
	fmt.Fprintf(&b, "<p>Contact: %s", html.EscapeString(ev.ContactEmail))
	if ev.ContactPhone != "" {
		fmt.Fprintf(&b, ", %s", html.EscapeString(ev.ContactPhone))
	}
	b.WriteString("</p></body></html>")
	return b.String()
}

func renderReservationCancelled(ev queue.ReservationCancelledEvent) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>Reservation cancelled</h2>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(ev.ContactName))
	fmt.Fprintf(&b, "<p>Your reservation #%d for %d seat(s) on the trip from %s, departing %s, has been cancelled and the seats have been released.</p>",
		ev.ReservationID, ev.Seats, html.EscapeString(ev.TripLocation), formatDeparture(ev.DepartsAt))
	fmt.Fprintf(&b, "<p>If this was not you, contact captain %s at %s.</p>",
		html.EscapeString(ev.CaptainName), html.EscapeString(ev.CaptainEmail))
	b.WriteString("</body></html>")
	return b.String()
}

func renderTripCancelled(ev queue.TripCancelledEvent) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>Trip cancelled</h2>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(ev.ContactName))
	fmt.Fprintf(&b, "<p>We are sorry, the trip from %s departing %s has been cancelled by captain %s.</p>",
		html.EscapeString(ev.TripLocation), formatDeparture(ev.DepartsAt), html.EscapeString(ev.CaptainName))
	fmt.Fprintf(&b, "<p><strong>Reason:</strong> %s</p>", html.EscapeString(ev.Reason))
	fmt.Fprintf(&b, "<p>Your reservation for %d seat(s) is no longer valid.</p>", ev.Seats)
	b.WriteString("</body></html>")
	return b.String()
}

// formatDeparture shows the RFC 3339 timestamp carried by events in a
// friendlier form, falling back to the raw string if it does not parse.
func formatDeparture(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return html.EscapeString(raw)
	}
	return t.Format("Mon, 02 Jan 2006 15:04 MST")
}

func formatPrice(cents int64) string {
	return fmt.Sprintf("€%d.%02d", cents/100, cents%100)
}
