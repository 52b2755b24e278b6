// Package notify sends best-effort emails about application activity.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender only logs; it is used when no mail transport is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Info("mail transport disabled, dropping message", "to", msg.To, "subject", msg.Subject)
	return nil
}

func ApplicationReceived(to, jobTitle string) Message {
	return Message{
		To:      to,
		Subject: "New application for " + jobTitle,
		HTML:    fmt.Sprintf("<p>A new application was submitted for <b>%s</b>.</p>", html.EscapeString(jobTitle)),
	}
}

func StatusChanged(to, jobTitle, status string) Message {
	return Message{
		To:      to,
		Subject: "Your application for " + jobTitle + " was updated",
		HTML:    fmt.Sprintf("<p>Your application for <b>%s</b> is now <b>%s</b>.</p>", html.EscapeString(jobTitle), html.EscapeString(status)),
	}
}
