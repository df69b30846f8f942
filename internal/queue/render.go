package queue

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const timeLayout = "2006-01-02 15:04:05"

var numbers = message.NewPrinter(language.English)

// WriteList prints messages as a table, or a single line when there are none.
func WriteList(w io.Writer, messages []Message) error {
	if len(messages) == 0 {
		_, err := fmt.Fprintln(w, "No messages in queue")
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Queue", "From", "To", "Priority", "Size", "Retries", "Created", "Next Retry"})

	for _, msg := range messages {
		nextRetry := "-"
		if !msg.NextRetry.IsZero() {
			nextRetry = msg.NextRetry.Format(timeLayout)
		}

		tw.AppendRow(table.Row{
			msg.ID,
			string(msg.QueueType),
			msg.From,
			formatRecipients(msg.To),
			msg.Priority.String(),
			humanize.Bytes(uint64(max(msg.Size, 0))),
			msg.RetryCount,
			formatTime(msg.CreatedAt),
			nextRetry,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	if _, err := fmt.Fprintln(w, tw.Render()); err != nil {
		return err
	}
	_, err := numbers.Fprintf(w, "%d message(s)\n", len(messages))
	return err
}

// String renders the snapshot as a single report line.
func (s QueueStats) String() string {
	ts := s.LastUpdated
	if ts.IsZero() {
		ts = time.Now()
	}
	return numbers.Sprintf("%s active=%d deferred=%d hold=%d failed=%d total=%d size=%s",
		ts.Format(time.RFC3339),
		s.ActiveCount,
		s.DeferredCount,
		s.HoldCount,
		s.FailedCount,
		s.Total(),
		humanize.Bytes(uint64(max(s.TotalSize, 0))),
	)
}

const recipientsWidth = 30

// formatRecipients joins addresses and snips them to recipientsWidth
// display columns.
func formatRecipients(to []string) string {
	recipients := strings.Join(to, ", ")
	if recipients == "" {
		return "-"
	}
	return text.Snip(recipients, recipientsWidth, "...")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}
