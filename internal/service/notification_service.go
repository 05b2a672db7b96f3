package service

import (
	"fmt"

	"clinicflow/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Notification events sent to patients
const (
	NotifyCheckedIn            = "checked-in"
	NotifyConsultationComplete = "consultation-complete"
	NotifyBillingSettled       = "billing-settled"
	NotifyAppointmentCancelled = "appointment-cancelled"
)

// DeliveryResult is the explicit best-effort contract of the notification
// path: Delivered reports whether the message left the building, Err holds
// the reason when it did not. Callers log it and move on; a failed
// notification never fails the operation that triggered it.
type DeliveryResult struct {
	Delivered bool
	Err       error
}

// Notifier delivers patient-facing notifications, best effort.
type Notifier interface {
	NotifyPatient(email, event, message string) DeliveryResult
}

// MailNotifier sends notifications over SMTP. With no SMTP host
// configured it degrades to log-only delivery, which still counts as
// not delivered.
type MailNotifier struct {
	cfg config.SMTPConfig
	log *logrus.Logger
}

func NewMailNotifier(cfg config.SMTPConfig, log *logrus.Logger) *MailNotifier {
	return &MailNotifier{cfg: cfg, log: log}
}

var notificationSubjects = map[string]string{
	NotifyCheckedIn:            "You are checked in",
	NotifyConsultationComplete: "Your consultation is complete",
	NotifyBillingSettled:       "Payment received",
	NotifyAppointmentCancelled: "Appointment cancelled",
}

func (n *MailNotifier) NotifyPatient(email, event, message string) DeliveryResult {
	if email == "" {
		return DeliveryResult{Delivered: false, Err: fmt.Errorf("no contact address for event %s", event)}
	}

	if n.cfg.Host == "" {
		n.log.Infof("SMTP not configured, notification %s to %s logged only", event, email)
		return DeliveryResult{Delivered: false}
	}

	subject, ok := notificationSubjects[event]
	if !ok {
		subject = event
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", message)

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.User, n.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		n.log.Warnf("Failed to deliver notification %s to %s (non-fatal): %+v", event, email, err)
		return DeliveryResult{Delivered: false, Err: err}
	}

	return DeliveryResult{Delivered: true}
}
