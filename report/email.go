// Package report delivers the end-of-run summary by email. Delivery is
// best-effort: a send failure is logged and never fails the run.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/andys/sheetsync/config"
	"github.com/andys/sheetsync/load"
)

// Notifier sends the consolidated per-sheet report over SMTP.
type Notifier struct {
	cfg *config.Config
}

func NewNotifier(cfg *config.Config) *Notifier {
	return &Notifier{cfg: cfg}
}

// Send mails the report, attaching the run's log file when it exists.
func (n *Notifier) Send(outcomes []load.SheetOutcome, logPath string) {
	if n.cfg.EmailSender == "" || n.cfg.RecipientEmail == "" {
		slog.Warn("email not configured, skipping report")
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.EmailSender)
	m.SetHeader("To", n.cfg.RecipientEmail)
	m.SetHeader("Subject", subject(outcomes))
	m.SetBody("text/plain", Body(outcomes))

	if logPath != "" {
		if _, err := os.Stat(logPath); err == nil {
			m.Attach(logPath)
		} else {
			slog.Warn("log file not attachable", "path", logPath, "error", err)
		}
	}

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.EmailSender, n.cfg.EmailPassword)
	if err := d.DialAndSend(m); err != nil {
		slog.Error("failed to send report email", "error", err)
		return
	}
	slog.Info("report email sent", "to", n.cfg.RecipientEmail)
}

func subject(outcomes []load.SheetOutcome) string {
	for _, o := range outcomes {
		if o.Status == load.StatusFailed {
			return "Excel sync report - FAILED"
		}
	}
	return "Excel sync report - OK"
}

// Body renders the plain-text report, one block per sheet.
func Body(outcomes []load.SheetOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Excel sync run finished at %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	for _, o := range outcomes {
		fmt.Fprintf(&b, "Sheet %q", o.Sheet)
		if o.Table != "" {
			fmt.Fprintf(&b, " -> %s", o.Table)
		}
		fmt.Fprintf(&b, ": %s\n", o.Status)

		switch o.Status {
		case load.StatusSkipped:
			b.WriteString("  no destination table configured\n")
		case load.StatusFailed:
			fmt.Fprintf(&b, "  error: %s\n", o.ErrorDetail)
		default:
			fmt.Fprintf(&b, "  rows read: %d, inserted: %d, skipped: %d, unidentified: %d\n",
				o.RowsRead, o.RowsInserted, o.RowsSkipped, o.RowsUnidentified)
			if o.BadCells > 0 {
				fmt.Fprintf(&b, "  cells degraded to null: %d\n", o.BadCells)
			}
		}
		fmt.Fprintf(&b, "  duration: %s\n\n", o.Duration.Round(time.Millisecond))
	}

	return b.String()
}
