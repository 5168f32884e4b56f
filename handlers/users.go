package handlers

import (
	"net/http"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/service"
)

type UsersHandler struct {
	Users      *service.UserService
	Moderation *service.ModerationService
}

type userEnvelope struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// RequestAuthor flags the caller's account for admin review.
func (h *UsersHandler) RequestAuthor(w http.ResponseWriter, r *http.Request) {
	sess, err := session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.RequestAuthorRole(r.Context(), sess.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Author request submitted"})
}

func (h *UsersHandler) ProfileImage(w http.ResponseWriter, r *http.Request) {
	sess, err := session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.SetProfileImage(r.Context(), sess.UserID, req.ImageURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Message: "Profile image updated", User: u})
}

// Admin

func (h *UsersHandler) AuthorRequests(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListAuthorRequests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authors": users})
}

type userAction struct {
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	IsBlocked *bool  `json:"isBlocked"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// decodeUserAction reads a strict body and returns the caller and the target.
func decodeUserAction(w http.ResponseWriter, r *http.Request) (*service.Session, userAction, error) {
	var a userAction
	sess, err := session(r)
	if err != nil {
		return nil, a, err
	}
	if err := decodeJSON(w, r, &a, true); err != nil {
		return nil, a, err
	}
	return sess, a, nil
}

func (h *UsersHandler) ApproveAuthor(w http.ResponseWriter, r *http.Request) {
	_, a, err := decodeUserAction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(a.UserID, "user")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Moderation.ApproveAuthorRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Message: "Author approved", User: u})
}

func (h *UsersHandler) RejectAuthor(w http.ResponseWriter, r *http.Request) {
	_, a, err := decodeUserAction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(a.UserID, "user")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Moderation.RejectAuthorRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Message: "Author request rejected", User: u})
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *UsersHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	sess, a, err := decodeUserAction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(a.UserID, "user")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.SetRole(r.Context(), sess.UserID, id, a.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Message: "Role updated", User: u})
}

func (h *UsersHandler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	sess, a, err := decodeUserAction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(a.UserID, "user")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a.IsBlocked == nil {
		writeError(w, r, apperr.Validation("isBlocked is required", apperr.FieldError{Field: "isBlocked", Message: "required"}))
		return
	}
	u, err := h.Users.SetBlocked(r.Context(), sess.UserID, id, *a.IsBlocked)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "User unblocked"
	if *a.IsBlocked {
		msg = "User blocked"
	}
	writeJSON(w, http.StatusOK, userEnvelope{Message: msg, User: u})
}

func (h *UsersHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sess, a, err := decodeUserAction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(a.UserID, "user")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.EditProfile(r.Context(), sess.UserID, id, a.Name, a.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Message: "User updated", User: u})
}

// Delete takes the target from ?id= or, failing that, from a {userId} body.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, err := session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw := r.URL.Query().Get("id")
	if raw == "" {
		var a userAction
		if err := decodeJSON(w, r, &a, true); err != nil {
			if ae := apperr.As(err); ae != nil && ae.Message == "Request body is required" {
				err = apperr.Validation("User id is required")
			}
			writeError(w, r, err)
			return
		}
		raw = a.UserID
	}
	id, err := parseID(raw, "user")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.DeleteUser(r.Context(), sess.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"User deleted"})
}

func (h *UsersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Users.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
