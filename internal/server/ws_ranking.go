package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// handleWSRanking streams the leaderboard over a websocket: the current
// ranking on connect, then a fresh snapshot whenever a score-relevant write
// is published, with a periodic refresh as a fallback.
func handleWSRanking(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), 4*time.Hour)
		defer cancel()

		send := func() error {
			rows, err := computeRanking(ctx, store)
			if err != nil {
				return err
			}
			return wsjson.Write(ctx, conn, rows)
		}

		if err := send(); err != nil {
			logger.Debug("websocket ranking write failed", "error", err)
			return
		}

		ch := broker.Subscribe(TopicRanking)
		defer broker.Unsubscribe(TopicRanking, ch)

		refresh := time.NewTicker(30 * time.Second)
		defer refresh.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
			case <-refresh.C:
			}
			if err := send(); err != nil {
				logger.Debug("websocket ranking write failed", "error", err)
				return
			}
		}
	}
}
