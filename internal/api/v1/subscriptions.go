package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/distributor/internal/server"
	"github.com/hashicorp-forge/distributor/pkg/models"
	"github.com/hashicorp-forge/distributor/pkg/subscriptions"
)

// Notification events a subscriber may send.
const (
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// NotifyRequest is sent by a remote site that holds a pushed copy of one of
// our documents.
type NotifyRequest struct {
	LocalPostID   int64  `json:"local_post_id"`
	RemoteBaseURL string `json:"remote_base_url"`
	Signature     string `json:"signature"`
	Event         string `json:"event"`
}

// NotifyResponse acknowledges a notification.
type NotifyResponse struct {
	LocalPostID   int64  `json:"local_post_id"`
	RemoteBaseURL string `json:"remote_base_url"`
	Event         string `json:"event"`
}

// SubscriptionResponse is one entry of a subscription listing. The signature
// is never returned.
type SubscriptionResponse struct {
	UUID          string `json:"uuid"`
	LocalPostID   int64  `json:"local_post_id"`
	RemoteBaseURL string `json:"remote_base_url"`
	RemotePostID  int64  `json:"remote_post_id"`
	UpdatedAt     string `json:"updated_at"`
}

// SubscriptionsHandler handles the subscription endpoints.
//
// GET  /api/v1/subscriptions?local_post_id=N  - List subscriptions of a post
// POST /api/v1/subscriptions/notify           - Receive an update or delete notification
func SubscriptionsHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/subscriptions"), "/")

		switch {
		case path == "" && r.Method == http.MethodGet:
			handleListSubscriptions(w, r, srv)

		case path == "notify" && r.Method == http.MethodPost:
			handleNotify(w, r, srv)

		case path == "" || path == "notify":
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	})
}

func handleNotify(w http.ResponseWriter, r *http.Request, srv server.Server) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		srv.Logger.Warn("failed to decode notify request", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.LocalPostID <= 0 {
		http.Error(w, "local_post_id is required", http.StatusBadRequest)
		return
	}
	if req.RemoteBaseURL == "" {
		http.Error(w, "remote_base_url is required", http.StatusBadRequest)
		return
	}
	if req.Signature == "" {
		http.Error(w, "signature is required", http.StatusBadRequest)
		return
	}
	if req.Event != EventUpdated && req.Event != EventDeleted {
		http.Error(w, "event must be updated or deleted", http.StatusBadRequest)
		return
	}

	logger := srv.Logger.With(
		"local_post_id", req.LocalPostID,
		"remote_base_url", req.RemoteBaseURL,
		"event", req.Event,
	)

	ctx := r.Context()
	if _, err := srv.Subscriptions.Verify(ctx, req.LocalPostID, req.RemoteBaseURL, req.Signature); err != nil {
		writeRegistryError(w, logger, err)
		return
	}

	var err error
	switch req.Event {
	case EventDeleted:
		err = srv.Subscriptions.Delete(ctx, req.LocalPostID, req.RemoteBaseURL)
	case EventUpdated:
		err = srv.Subscriptions.Touch(ctx, req.LocalPostID, req.RemoteBaseURL)
	}
	if err != nil {
		writeRegistryError(w, logger, err)
		return
	}

	logger.Info("subscription notification applied")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NotifyResponse{
		LocalPostID:   req.LocalPostID,
		RemoteBaseURL: req.RemoteBaseURL,
		Event:         req.Event,
	})
}

func handleListSubscriptions(w http.ResponseWriter, r *http.Request, srv server.Server) {
	localPostID, err := strconv.ParseInt(r.URL.Query().Get("local_post_id"), 10, 64)
	if err != nil || localPostID <= 0 {
		http.Error(w, "local_post_id is required", http.StatusBadRequest)
		return
	}

	subs, err := srv.Subscriptions.ListForPost(r.Context(), localPostID)
	if err != nil {
		srv.Logger.Error("failed to list subscriptions", "error", err, "local_post_id", localPostID)
		http.Error(w, "failed to list subscriptions", http.StatusInternalServerError)
		return
	}

	resp := make([]SubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, toSubscriptionResponse(s))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func toSubscriptionResponse(s models.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		UUID:          s.UUID.String(),
		LocalPostID:   s.LocalPostID,
		RemoteBaseURL: s.RemoteBaseURL,
		RemotePostID:  s.RemotePostID,
		UpdatedAt:     s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeRegistryError(w http.ResponseWriter, logger hclog.Logger, err error) {
	switch {
	case errors.Is(err, subscriptions.ErrSignatureMismatch):
		logger.Warn("subscription signature mismatch")
		http.Error(w, "signature mismatch", http.StatusForbidden)
	case errors.Is(err, subscriptions.ErrNotFound):
		logger.Warn("unknown subscription")
		http.Error(w, "subscription not found", http.StatusNotFound)
	default:
		logger.Error("subscription registry error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
