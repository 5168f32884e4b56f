package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/store"
	"github.com/MohitSaini10/dan-aliph/utils"
	"github.com/MohitSaini10/dan-aliph/validate"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PublicPageSize       = 9
	FeaturedPageSize     = 10
	AuthorPublicPageSize = 10
	recentBooksLimit     = 5

	maxSlugInsertAttempts = 5
	maxSlugProbes         = 1000
	defaultLanguage       = "English"
)

// BookService is the catalog: submission, public listings, owner views and
// admin edits.
type BookService struct {
	books   BookStore
	users   UserStore
	blobs   BlobStore
	cache   FeaturedCache
	metrics *Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewBookService accepts a nil blobs when storage is not configured; blob
// cleanup is then skipped.
func NewBookService(books BookStore, users UserStore, blobs BlobStore, cache FeaturedCache, metrics *Metrics, log *slog.Logger) *BookService {
	if cache == nil {
		cache = NopFeaturedCache{}
	}
	return &BookService{books: books, users: users, blobs: blobs, cache: cache, metrics: metrics, log: log, now: time.Now}
}

type SubmitInput struct {
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Language    string          `json:"language"`
	Description string          `json:"description"`
	CoverImage  string          `json:"coverImage"`
	BookURL     string          `json:"bookUrl"`
	Price       float64         `json:"price"`
	BuyLinks    models.BuyLinks `json:"buyLinks"`
}

// Submit creates a pending book for an author. The author's role is read
// from the store, not from the session, so a demoted author cannot submit
// with an old token.
func (s *BookService) Submit(ctx context.Context, authorID primitive.ObjectID, in SubmitInput) (*models.Book, error) {
	author, err := s.users.UserByID(ctx, authorID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if author == nil {
		return nil, apperr.NotFound("User")
	}
	if author.Role != models.RoleAuthor {
		return nil, apperr.Forbidden("Only authors can add books")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	in.BookURL = strings.TrimSpace(in.BookURL)
	in.Language = strings.TrimSpace(in.Language)
	if in.Language == "" {
		in.Language = defaultLanguage
	}
	if err := validate.New().
		Required("title", in.Title).
		Required("category", in.Category).
		Required("coverImage", in.CoverImage).
		Required("bookUrl", in.BookURL).
		NonNegative("price", in.Price).
		URL("amazon", in.BuyLinks.Amazon).
		URL("flipkart", in.BuyLinks.Flipkart).
		Err(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	book := &models.Book{
		Title:       in.Title,
		Category:    in.Category,
		Language:    in.Language,
		Description: strings.TrimSpace(in.Description),
		AuthorID:    author.ID,
		AuthorName:  author.Name,
		AuthorEmail: author.Email,
		CoverImage:  in.CoverImage,
		BookURL:     in.BookURL,
		Price:       in.Price,
		BuyLinks:    in.BuyLinks,
		Status:      models.StatusPending,
		IsPublished: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	base := utils.Slugify(in.Title)
	for attempt := 0; attempt < maxSlugInsertAttempts; attempt++ {
		slug, err := s.freeSlug(ctx, base)
		if err != nil {
			return nil, err
		}
		book.Slug = slug
		id, err := s.books.InsertBook(ctx, book)
		if errors.Is(err, store.ErrDuplicate) {
			// another submission claimed the slug between probe and insert
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err)
		}
		book.ID = id
		return book, nil
	}
	return nil, apperr.Conflict("Could not allocate a unique slug, please retry")
}

// freeSlug probes base, base-1, base-2 ... and returns the first unused one.
func (s *BookService) freeSlug(ctx context.Context, base string) (string, error) {
	for i := 0; i < maxSlugProbes; i++ {
		candidate := utils.SlugCandidate(base, i)
		taken, err := s.books.SlugExists(ctx, candidate)
		if err != nil {
			return "", apperr.Internal(err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperr.Conflict("Too many books share this title")
}

// ListPublic searches approved, published books.
func (s *BookService) ListPublic(ctx context.Context, query string, page int) ([]models.Book, utils.PageMeta, error) {
	p := utils.Page{Number: page, Size: PublicPageSize}
	return s.listPublic(ctx, models.BookFilter{PublicOnly: true, Query: query}, p)
}

// Featured lists approved featured books ordered by featuredOrder.
func (s *BookService) Featured(ctx context.Context, page int) ([]models.Book, utils.PageMeta, error) {
	cached, gen, cacheErr := s.cache.Get(ctx, page)
	if cacheErr != nil {
		s.log.Warn("featured cache get", "error", cacheErr)
	} else if cached != nil {
		return cached.Books, cached.Meta, nil
	}
	p := utils.Page{Number: page, Size: FeaturedPageSize}
	books, meta, err := s.listPublic(ctx, models.BookFilter{Featured: true, Status: models.StatusApproved}, p)
	if err != nil {
		return nil, meta, err
	}
	// Without a generation the page could outlive the next invalidation.
	if cacheErr == nil {
		if err := s.cache.Set(ctx, gen, page, &FeaturedPage{Books: books, Meta: meta}); err != nil {
			s.log.Warn("featured cache set", "error", err)
		}
	}
	return books, meta, nil
}

// ByAuthorPublic lists one author's public books.
func (s *BookService) ByAuthorPublic(ctx context.Context, authorID primitive.ObjectID, page int) ([]models.Book, utils.PageMeta, error) {
	p := utils.Page{Number: page, Size: AuthorPublicPageSize}
	return s.listPublic(ctx, models.BookFilter{PublicOnly: true, AuthorID: authorID}, p)
}

func (s *BookService) listPublic(ctx context.Context, f models.BookFilter, p utils.Page) ([]models.Book, utils.PageMeta, error) {
	books, total, err := s.books.ListBooks(ctx, f, p.Skip(), p.Limit())
	if err != nil {
		return nil, utils.PageMeta{}, apperr.Internal(err)
	}
	return publicBooks(books), utils.NewPageMeta(p, total), nil
}

// GetPublic returns a single approved, published book.
func (s *BookService) GetPublic(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	book, err := s.books.BookByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if book == nil || !isPublic(book) {
		return nil, apperr.NotFound("Book")
	}
	pub := book.Public()
	return &pub, nil
}

func (s *BookService) ListAuthors(ctx context.Context) ([]models.AuthorSummary, error) {
	authors, err := s.books.ListAuthors(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return authors, nil
}

// ByAuthor is the owner's view: every status, optionally filtered.
func (s *BookService) ByAuthor(ctx context.Context, authorID primitive.ObjectID, status string) ([]models.Book, error) {
	status = strings.TrimSpace(status)
	if status != "" {
		if err := validate.New().OneOf("status", status, models.ValidStatuses...).Err(); err != nil {
			return nil, err
		}
	}
	books, _, err := s.books.ListBooks(ctx, models.BookFilter{AuthorID: authorID, Status: status}, 0, 0)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return books, nil
}

func (s *BookService) AuthorStats(ctx context.Context, authorID primitive.ObjectID) (*models.AuthorBookStats, error) {
	stats := &models.AuthorBookStats{}
	counts := []struct {
		status string
		dst    *int64
	}{
		{"", &stats.Total},
		{models.StatusPending, &stats.Pending},
		{models.StatusApproved, &stats.Approved},
		{models.StatusRejected, &stats.Rejected},
	}
	for _, c := range counts {
		n, err := s.books.CountBooks(ctx, models.BookFilter{AuthorID: authorID, Status: c.status})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		*c.dst = n
	}
	recent, _, err := s.books.ListBooks(ctx, models.BookFilter{AuthorID: authorID}, 0, recentBooksLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	stats.Recent = recent
	return stats, nil
}

// DownloadURL returns the file location of a free public book.
func (s *BookService) DownloadURL(ctx context.Context, id primitive.ObjectID) (string, error) {
	book, err := s.books.BookByID(ctx, id)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if book == nil || !isPublic(book) {
		return "", apperr.NotFound("Book")
	}
	if book.IsPaid() {
		return "", apperr.Forbidden("This book is paid and cannot be downloaded")
	}
	if book.BookURL == "" {
		return "", apperr.NotFound("Book file")
	}
	return book.BookURL, nil
}

// AdminList returns every book, optionally by status.
func (s *BookService) AdminList(ctx context.Context, status string) ([]models.Book, error) {
	status = strings.TrimSpace(status)
	if status != "" {
		if err := validate.New().OneOf("status", status, models.ValidStatuses...).Err(); err != nil {
			return nil, err
		}
	}
	books, _, err := s.books.ListBooks(ctx, models.BookFilter{Status: status}, 0, 0)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return books, nil
}

func (s *BookService) AdminGet(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	book, err := s.books.BookByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if book == nil {
		return nil, apperr.NotFound("Book")
	}
	return book, nil
}

// AdminUpdate applies only the supplied fields. Turning isFeatured on is
// subject to the same cap as SetFeatured.
func (s *BookService) AdminUpdate(ctx context.Context, id primitive.ObjectID, p models.BookPatch) (*models.Book, error) {
	if p.Empty() {
		return nil, apperr.Validation("Nothing to update")
	}
	v := validate.New()
	set := bson.M{}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		v.Required("title", t)
		set["title"] = t
	}
	if p.Category != nil {
		c := strings.TrimSpace(*p.Category)
		v.Required("category", c)
		set["category"] = c
	}
	if p.Description != nil {
		set["description"] = strings.TrimSpace(*p.Description)
	}
	if p.Language != nil {
		l := strings.TrimSpace(*p.Language)
		v.Required("language", l)
		set["language"] = l
	}
	if p.Price != nil {
		v.NonNegative("price", *p.Price)
		set["price"] = *p.Price
	}
	if p.FeaturedOrder != nil {
		v.Custom("featuredOrder", *p.FeaturedOrder < 0, "FeaturedOrder cannot be negative")
		set["featuredOrder"] = *p.FeaturedOrder
	}
	if p.IsFeatured != nil {
		set["isFeatured"] = *p.IsFeatured
	}
	if p.BuyLinks != nil {
		v.URL("amazon", p.BuyLinks.Amazon).URL("flipkart", p.BuyLinks.Flipkart)
		set["buyLinks"] = *p.BuyLinks
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if p.IsFeatured != nil && *p.IsFeatured {
		current, err := s.AdminGet(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := checkFeatureCap(ctx, s.books, current); err != nil {
			return nil, err
		}
	}

	book, err := s.books.UpdateBook(ctx, id, set)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if book == nil {
		return nil, apperr.NotFound("Book")
	}
	s.invalidateFeatured(ctx)
	return book, nil
}

// Delete removes the record first and then its blobs. Blob failures are
// logged and counted; the record stays deleted.
func (s *BookService) Delete(ctx context.Context, id primitive.ObjectID) error {
	book, err := s.books.DeleteBook(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if book == nil {
		return apperr.NotFound("Book")
	}
	s.invalidateFeatured(ctx)
	if s.blobs == nil {
		return nil
	}
	blobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	for _, u := range []string{book.CoverImage, book.BookURL} {
		key := s.blobs.KeyFromURL(u)
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(blobCtx, key); err != nil {
			s.log.Error("delete blob", "book", id.Hex(), "key", key, "error", err)
			if s.metrics != nil {
				s.metrics.BlobDeleteFailures.Inc()
			}
		}
	}
	return nil
}

func (s *BookService) invalidateFeatured(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("featured cache invalidate", "error", err)
	}
}

// checkFeatureCap fails when book is not featured yet and the shelf is
// full. Count and update are separate writes, so concurrent admins can
// briefly exceed the cap.
func checkFeatureCap(ctx context.Context, books BookStore, book *models.Book) error {
	if book.IsFeatured {
		return nil
	}
	n, err := books.CountBooks(ctx, models.BookFilter{Featured: true})
	if err != nil {
		return apperr.Internal(err)
	}
	if n >= models.MaxFeatured {
		return apperr.FeatureLimitExceeded(models.MaxFeatured)
	}
	return nil
}

func isPublic(b *models.Book) bool {
	return b.Status == models.StatusApproved && b.IsPublished
}

func publicBooks(books []models.Book) []models.Book {
	out := make([]models.Book, 0, len(books))
	for i := range books {
		out = append(out, books[i].Public())
	}
	return out
}
