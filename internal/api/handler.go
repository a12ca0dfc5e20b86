// Package api exposes the message-processing engine over HTTP for the chat
// transport.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/atendeja/clinic-ai-platform/internal/clinic"
	"github.com/atendeja/clinic-ai-platform/internal/conversation"
	"github.com/atendeja/clinic-ai-platform/pkg/logging"
)

const processTimeout = 30 * time.Second

// MessageHandler receives inbound chat events from the transport, runs the
// orchestrator and returns the composed reply.
type MessageHandler struct {
	service conversation.Service
	clinics *clinic.Store
	redis   *redis.Client
	logger  *logging.Logger
}

// NewMessageHandler creates the handler. The clinic store and redis client
// back the admin config endpoint and the health check respectively.
func NewMessageHandler(service conversation.Service, clinics *clinic.Store, redisClient *redis.Client, logger *logging.Logger) *MessageHandler {
	if service == nil {
		panic("api: conversation service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MessageHandler{service: service, clinics: clinics, redis: redisClient, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleMessage is POST /v1/messages.
func (h *MessageHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var in conversation.Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(in.PhoneNumber) == "" || strings.TrimSpace(in.ClinicID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "phoneNumber and clinicId are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), processTimeout)
	defer cancel()

	out, err := h.service.Process(ctx, in)
	if err != nil {
		h.logger.Error("message processing failed", "clinic_id", in.ClinicID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to process message"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePutClinicConfig is PUT /v1/clinics/{clinicID}/config. The raw
// document is stored as-is; resolution happens per message.
func (h *MessageHandler) HandlePutClinicConfig(w http.ResponseWriter, r *http.Request) {
	if h.clinics == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "clinic store not configured"})
		return
	}
	clinicID := strings.TrimSpace(chi.URLParam(r, "clinicID"))
	if clinicID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "clinic id is required"})
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := h.clinics.Put(r.Context(), clinicID, raw); err != nil {
		h.logger.Error("clinic config store failed", "clinic_id", clinicID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store clinic config"})
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// HandleHealth is GET /healthz.
func (h *MessageHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
