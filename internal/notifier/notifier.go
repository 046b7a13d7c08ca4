package notifier

import "github.com/rs/zerolog/log"

// Template names the outbound message to render. Delivery itself is an
// external concern; the API fires and forgets.
type Template string

const (
	TemplateInvitation       Template = "invitation"
	TemplateInvitationResend Template = "invitation_resend"
	TemplateResultFeedback   Template = "result_feedback"
)

// Notifier delivers candidate-facing notifications. Implementations must
// not block the caller on delivery confirmation.
type Notifier interface {
	Send(to string, template Template, data map[string]string)
}

type logNotifier struct{}

// NewLogNotifier returns a Notifier that only records the send. The real
// delivery pipeline (email/SMS) sits behind the same interface in
// deployment.
func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (n *logNotifier) Send(to string, template Template, data map[string]string) {
	log.Info().Str("to", to).Str("template", string(template)).Interface("data", data).Msg("notification dispatched")
}
