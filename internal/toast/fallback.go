package toast

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/colors"
)

// Alerter raises an attention-grabbing notice for error toasts published
// outside a provider.
type Alerter interface {
	Alert(message string)
}

// ConsoleAlerter writes the alert to W, or stderr when W is nil.
type ConsoleAlerter struct {
	W io.Writer
}

// Alert rings the terminal bell and prints the message in a banner.
func (a ConsoleAlerter) Alert(message string) {
	w := a.W
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "\a%s!! %s%s\n", colors.Red, message, colors.Reset)
}

// Fallback is the publisher for callers with no mounted provider.
var Fallback Publisher = NewFallback(ConsoleAlerter{})

// NewFallback returns a publisher printing through colors and alerting
// error toasts through alerter.
func NewFallback(alerter Alerter) Publisher {
	return &fallback{alerter: alerter}
}

type fallback struct {
	alerter Alerter
}

func (f *fallback) Publish(message string, kind Kind, _ time.Duration) {
	switch kind {
	case KindSuccess:
		colors.Success(message)
	case KindError:
		colors.Error(message)
		if f.alerter != nil {
			f.alerter.Alert(message)
		}
	case KindWarning:
		colors.Warning(message)
	default:
		colors.Info(message)
	}
}
