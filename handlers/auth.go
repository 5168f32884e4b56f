package handlers

import (
	"net/http"
	"time"

	"github.com/MohitSaini10/dan-aliph/middleware"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/service"
)

type AuthHandler struct {
	Users        *service.UserService
	SecureCookie bool
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func summarize(u *models.User) userSummary {
	return userSummary{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: u.Role}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    summarize(u),
	})
}

// Login sets the HttpOnly session cookie and a readable role cookie for the UI.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RoleCookie,
		Value:    res.User.Role,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  res.ExpiresAt,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	middleware.Logger(r.Context()).Info("login", "user_id", res.User.ID.Hex(), "role", res.User.Role)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    summarize(res.User),
		"role":    res.User.Role,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{middleware.TokenCookie, middleware.RoleCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: name == middleware.TokenCookie,
			Secure:   h.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, message{"Logged out successfully"})
}

// Me never fails for anonymous callers; it reports isLoggedIn instead.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"isLoggedIn": false})
		return
	}
	u, err := h.Users.Me(r.Context(), sess.UserID)
	if err != nil || u.IsBlocked {
		writeJSON(w, http.StatusOK, map[string]any{"isLoggedIn": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"isLoggedIn": true, "user": u})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.InitiatePasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"If an account exists for this email, a reset link has been sent."})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.CompletePasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Password reset successful"})
}
