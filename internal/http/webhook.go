package http

import (
	"context"
	"errors"
	"net/http"

	"kakeibo/internal/line"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	events, err := line.ParseRequest(s.secret, r)
	if err != nil {
		if errors.Is(err, line.ErrInvalidSignature) {
			logger.WarnContext(ctx, "Webhook signature rejected", log.FieldError, err)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		logger.WarnContext(ctx, "Malformed webhook body", log.FieldError, err, log.FieldOperation, log.OpParse)
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	logger.DebugContext(ctx, "Webhook received", "events", len(events))
	for _, ev := range events {
		s.handleEvent(ctx, ev)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleEvent answers one text message. Failures stay local to the event.
// Senders over the rate limit are dropped without a reply.
func (s *Server) handleEvent(ctx context.Context, ev line.TextEvent) {
	cmd, tag := parseCommand(ev.Text)
	logger := log.FromContext(ctx).With(log.FieldCommand, cmd.String(), log.FieldUserID, ev.UserID)

	if !s.limiter.Allow(senderKey(ev)) {
		logger.WarnContext(ctx, "Rate limit exceeded, event dropped")
		return
	}

	var reply string
	switch cmd {
	case cmdSum:
		total, err := s.summer.SumPeriod(ctx, tag)
		if err != nil {
			logger.ErrorContext(ctx, "Period total failed", log.FieldPeriod, string(tag), log.FieldError, err)
			reply = errorReply
			break
		}
		logger.InfoContext(ctx, "Query answered",
			log.FieldPeriod, string(tag), log.FieldTotal, total.Total, log.FieldRows, total.Rows)
		reply = formatTotal(total)
	case cmdSave:
		res, err := s.archiver.MoveToArchive(ctx, services.SourceWebhook)
		if err != nil {
			logger.ErrorContext(ctx, "Archive move failed", log.FieldMoved, res.Moved, log.FieldError, err)
			reply = errorReply
			break
		}
		reply = formatSaved(res)
	default:
		reply = usageText
	}

	rctx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	defer cancel()
	if err := s.replier.Reply(rctx, ev.ReplyToken, reply); err != nil {
		logger.ErrorContext(ctx, "Reply failed", log.FieldOperation, log.OpReply, log.FieldError, err)
	}
}

func senderKey(ev line.TextEvent) string {
	if ev.UserID == "" {
		return "user:unknown"
	}
	return "user:" + ev.UserID
}
