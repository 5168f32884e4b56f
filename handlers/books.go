package handlers

import (
	"net/http"
	"strings"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/middleware"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/service"
	"github.com/MohitSaini10/dan-aliph/utils"
)

type BooksHandler struct {
	Books      *service.BookService
	Moderation *service.ModerationService
}

type bookList struct {
	Books      []models.Book   `json:"books"`
	Pagination *utils.PageMeta `json:"pagination,omitempty"`
}

type bookEnvelope struct {
	Message string       `json:"message,omitempty"`
	Book    *models.Book `json:"book"`
}

// Public catalog

func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	p := utils.PageFromRequest(r, service.PublicPageSize)
	books, meta, err := h.Books.ListPublic(r.Context(), r.URL.Query().Get("q"), p.Number)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookList{Books: books, Pagination: &meta})
}

func (h *BooksHandler) Featured(w http.ResponseWriter, r *http.Request) {
	p := utils.PageFromRequest(r, service.FeaturedPageSize)
	books, meta, err := h.Books.Featured(r.Context(), p.Number)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookList{Books: books, Pagination: &meta})
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "book")
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Books.GetPublic(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookEnvelope{Book: book})
}

// Download redirects to the file of a free book.
func (h *BooksHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "book")
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.Books.DownloadURL(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *BooksHandler) Authors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.Books.ListAuthors(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authors": authors})
}

func (h *BooksHandler) AuthorPublicBooks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "authorId", "author")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := utils.PageFromRequest(r, service.AuthorPublicPageSize)
	books, meta, err := h.Books.ByAuthorPublic(r.Context(), id, p.Number)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookList{Books: books, Pagination: &meta})
}

// Author dashboard

type submitRequest struct {
	service.SubmitInput
	// PDFURL is the older name of bookUrl still sent by some clients.
	PDFURL string `json:"pdfUrl"`
}

func (h *BooksHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, err := session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.BookURL) == "" {
		req.BookURL = req.PDFURL
	}
	book, err := h.Books.Submit(r.Context(), sess.UserID, req.SubmitInput)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.Logger(r.Context()).Info("book submitted", "book", book.ID.Hex(), "slug", book.Slug)
	writeJSON(w, http.StatusCreated, bookEnvelope{Message: "Book submitted for approval", Book: book})
}

func (h *BooksHandler) MyBooks(w http.ResponseWriter, r *http.Request) {
	sess, err := session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	books, err := h.Books.ByAuthor(r.Context(), sess.UserID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookList{Books: books})
}

func (h *BooksHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	sess, err := session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.Books.AuthorStats(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Admin

func (h *BooksHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	books, err := h.Books.AdminList(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookList{Books: books})
}

// AdminApproved lists approved books for the featuring screen.
func (h *BooksHandler) AdminApproved(w http.ResponseWriter, r *http.Request) {
	books, err := h.Books.AdminList(r.Context(), models.StatusApproved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookList{Books: books})
}

func (h *BooksHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "book")
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Books.AdminGet(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookEnvelope{Book: book})
}

func (h *BooksHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "book")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch models.BookPatch
	if err := decodeJSON(w, r, &patch, true); err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Books.AdminUpdate(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookEnvelope{Message: "Book updated", Book: book})
}

type bookAction struct {
	BookID        string `json:"bookId"`
	Reason        string `json:"reason"`
	IsFeatured    *bool  `json:"isFeatured"`
	FeaturedOrder *int   `json:"featuredOrder"`
}

func (h *BooksHandler) decodeAction(w http.ResponseWriter, r *http.Request) (bookAction, error) {
	var a bookAction
	if err := decodeJSON(w, r, &a, true); err != nil {
		return a, err
	}
	return a, nil
}

func (h *BooksHandler) Approve(w http.ResponseWriter, r *http.Request) {
	a, err := h.decodeAction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(a.BookID, "book")
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Moderation.Approve(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookEnvelope{Message: "Book approved", Book: book})
}

func (h *BooksHandler) Reject(w http.ResponseWriter, r *http.Request) {
	a, err := h.decodeAction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(a.BookID, "book")
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Moderation.Reject(r.Context(), id, a.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookEnvelope{Message: "Book rejected", Book: book})
}

// Feature toggles the flag. A missing isFeatured means "feature".
func (h *BooksHandler) Feature(w http.ResponseWriter, r *http.Request) {
	a, err := h.decodeAction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(a.BookID, "book")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a.IsFeatured == nil {
		writeError(w, r, apperr.Validation("isFeatured is required"))
		return
	}
	featured := *a.IsFeatured
	book, err := h.Moderation.SetFeatured(r.Context(), id, featured, a.FeaturedOrder)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Book featured"
	if !featured {
		msg = "Book removed from featured"
	}
	writeJSON(w, http.StatusOK, bookEnvelope{Message: msg, Book: book})
}

func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, err := h.decodeAction(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(a.BookID, "book")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Books.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Book deleted"})
}
