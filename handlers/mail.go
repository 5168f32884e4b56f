package handlers

import (
	"net/http"
	"strconv"

	"github.com/MohitSaini10/dan-aliph/service"
)

const (
	defaultEmailLogLimit = 50
	maxEmailLogLimit     = 500
)

// MailHandler serves the newsletter list, the contact form and the email
// audit log.
type MailHandler struct {
	Subscribers *service.SubscriberService
	Contacts    *service.ContactService
	Notify      *service.Dispatcher
}

func (h *MailHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Source string `json:"source"`
	}
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	outcome, err := h.Subscribers.Subscribe(r.Context(), req.Email, req.Source)
	if err != nil {
		writeError(w, r, err)
		return
	}
	switch outcome {
	case service.AlreadySubscribed:
		writeJSON(w, http.StatusOK, message{"You are already subscribed"})
	case service.Resubscribed:
		writeJSON(w, http.StatusOK, message{"Welcome back! You have been resubscribed"})
	default:
		writeJSON(w, http.StatusCreated, message{"Subscribed successfully"})
	}
}

func (h *MailHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.Subscribers.Unsubscribe(r.Context(), r.URL.Query().Get("token")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"You have been unsubscribed"})
}

func (h *MailHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req service.ContactInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Contacts.Submit(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, message{"Message sent successfully"})
}

// Admin

func (h *MailHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Subscribers.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscribers": subs, "total": len(subs)})
}

// Newsletter answers 202: delivery continues after the response.
func (h *MailHandler) Newsletter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.Subscribers.SendNewsletter(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"message": "Newsletter queued", "queued": n})
}

func (h *MailHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.Contacts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

func (h *MailHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"), "contact")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Contacts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Contact deleted"})
}

func (h *MailHandler) ReplyContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    string `json:"id"`
		Reply string `json:"reply"`
	}
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(req.ID, "contact")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Contacts.Reply(r.Context(), id, req.Reply)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Reply sent", "contact": c})
}

func (h *MailHandler) EmailLogs(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultEmailLogLimit)
	if n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && n > 0 {
		limit = min(n, maxEmailLogLimit)
	}
	logs, err := h.Notify.EmailLogs(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
