package email

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rakhadenta/digistore-golang/internal/models"
)

// Sender delivers customer-facing mail. The transport is still a placeholder
// that logs the rendered message; swapping in a real email API (like
// SendGrid or Resend) only needs to touch SendEmail.
type Sender struct {
	From string
}

// NewSender reads the From address from MAIL_FROM.
func NewSender() *Sender {
	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = "no-reply@digistore.local"
	}
	return &Sender{From: from}
}

// SendEmail is the placeholder transport. Instead of sending a real email,
// it logs the message so the flow can be exercised without an API key.
func (s *Sender) SendEmail(to string, subject string, body string) error {
	log.Println("====================================================")
	log.Printf("--- NEW EMAIL (PLACEHOLDER) ---")
	log.Printf("From: %s", s.From)
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Println("--- Body ---")
	log.Println(body)
	log.Println("====================================================")

	return nil
}

// SendDownloadLinks emails the customer their purchased download links after
// a payment confirmation is approved. An empty link list is valid: the mail
// then tells the customer that delivery follows manually.
func (s *Sender) SendDownloadLinks(to, customerName, orderNumber string, amount float64, links []models.DownloadLink) error {
	subject := fmt.Sprintf("Payment received - Order %s", orderNumber)

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", customerName)
	fmt.Fprintf(&body, "We have received your payment of Rp %.0f for order %s.\n\n", amount, orderNumber)

	if len(links) > 0 {
		body.WriteString("Your downloads:\n")
		for _, link := range links {
			fmt.Fprintf(&body, "- %s: %s\n", link.Title, link.URL)
		}
	} else {
		body.WriteString("Our team is preparing your order and will deliver it to this email address shortly.\n")
	}

	body.WriteString("\nThank you for your purchase!")

	return s.SendEmail(to, subject, body.String())
}
