package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/metrics"
	"github.com/prn-tf/scribe/internal/repository"
)

// BlogConfig holds the validation, pagination and caching rules for blogs.
type BlogConfig struct {
	MinTitleLength  int
	MinBodyLength   int
	DefaultPageSize int
	MaxPageSize     int

	// CacheTTL is how long Get results stay cached. Zero disables caching.
	CacheTTL time.Duration
}

// DefaultBlogConfig returns the rules used when nothing is configured.
func DefaultBlogConfig() BlogConfig {
	return BlogConfig{
		MinTitleLength:  1,
		MinBodyLength:   10,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		CacheTTL:        5 * time.Minute,
	}
}

// cacheStripes is the number of generation counters guarding cache fills.
const cacheStripes = 256

// BlogService handles blog operations.
type BlogService struct {
	blogRepo repository.BlogRepository
	cache    repository.Cache
	cfg      BlogConfig
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	// generations is bumped on every invalidation. Get only fills the cache
	// when its stripe did not move while the blog was being read.
	generations [cacheStripes]atomic.Uint64
}

// NewBlogService creates a new BlogService.
// cache may be nil, in which case reads always go to the repository.
func NewBlogService(
	blogRepo repository.BlogRepository,
	cache repository.Cache,
	cfg BlogConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *BlogService {
	return &BlogService{
		blogRepo: blogRepo,
		cache:    cache,
		cfg:      cfg,
		metrics:  m,
		logger:   logger.With().Str("service", "blog").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateBlogInput contains the data needed to create a blog.
type CreateBlogInput struct {
	AuthorID    uuid.UUID
	Title       string
	Description string
	Body        string
	Tags        string
}

// UpdateBlogInput contains a partial update. Nil fields are left unchanged.
type UpdateBlogInput struct {
	BlogID      uuid.UUID
	RequesterID uuid.UUID
	Title       *string
	Description *string
	Body        *string
	Tags        *string
}

// ListBlogsInput contains list filters and pagination.
type ListBlogsInput struct {
	// AuthorID restricts the list to one author (ListByAuthor only).
	AuthorID uuid.UUID

	// RequesterID is the caller, or uuid.Nil when anonymous.
	RequesterID uuid.UUID

	State domain.BlogState
	Page  int
	Limit int
}

// ListBlogsOutput contains one page of blogs.
type ListBlogsOutput struct {
	Blogs []*domain.Blog
	Total int64
	Page  int
	Limit int
}

// =============================================================================
// Service Methods
// =============================================================================

// Create creates a draft blog owned by input.AuthorID.
func (s *BlogService) Create(ctx context.Context, input CreateBlogInput) (*domain.Blog, error) {
	blog := domain.NewBlog(input.AuthorID, input.Title, input.Description, input.Body, input.Tags)

	if err := s.validate(blog); err != nil {
		return nil, err
	}

	existing, err := s.blogRepo.GetByTitle(ctx, blog.Title)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrBlogTitleTaken, blog.Title)
	}
	if err != nil && !errors.Is(err, domain.ErrBlogNotFound) {
		s.logger.Error().Err(err).Str("title", blog.Title).Msg("failed to check title")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.blogRepo.Create(ctx, blog); err != nil {
		// A concurrent create can still win the race; the unique constraint reports it.
		if errors.Is(err, domain.ErrBlogTitleTaken) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("title", blog.Title).Msg("failed to create blog")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.BlogOperation(metrics.OpCreate)
	s.logger.Info().
		Str("blog_id", blog.ID.String()).
		Str("author_id", blog.AuthorID.String()).
		Msg("blog created")

	return blog, nil
}

// Publish moves a draft to the published state. Only the author may publish.
func (s *BlogService) Publish(ctx context.Context, blogID, requesterID uuid.UUID) (*domain.Blog, error) {
	blog, err := s.load(ctx, blogID)
	if err != nil {
		return nil, err
	}

	if err := blog.Publish(requesterID); err != nil {
		return nil, err
	}

	if err := s.blogRepo.Update(ctx, blog); err != nil {
		return nil, s.writeError(err, blogID, "failed to publish blog")
	}

	s.invalidate(ctx, blogID)
	s.metrics.BlogOperation(metrics.OpPublish)
	s.logger.Info().Str("blog_id", blogID.String()).Msg("blog published")

	return blog, nil
}

// Update applies a partial update. Only the author may update; state is never changed here.
func (s *BlogService) Update(ctx context.Context, input UpdateBlogInput) (*domain.Blog, error) {
	blog, err := s.load(ctx, input.BlogID)
	if err != nil {
		return nil, err
	}

	if !blog.IsAuthor(input.RequesterID) {
		return nil, domain.ErrNotBlogAuthor
	}

	if input.Title != nil {
		blog.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		blog.Description = *input.Description
	}
	if input.Body != nil {
		blog.SetBody(*input.Body)
	}
	if input.Tags != nil {
		blog.Tags = *input.Tags
	}

	if err := s.validate(blog); err != nil {
		return nil, err
	}

	blog.UpdatedAt = time.Now().UTC()

	if err := s.blogRepo.Update(ctx, blog); err != nil {
		return nil, s.writeError(err, input.BlogID, "failed to update blog")
	}

	s.invalidate(ctx, input.BlogID)
	s.metrics.BlogOperation(metrics.OpUpdate)
	s.logger.Info().Str("blog_id", input.BlogID.String()).Msg("blog updated")

	return blog, nil
}

// Delete permanently removes a blog. Only the author may delete.
func (s *BlogService) Delete(ctx context.Context, blogID, requesterID uuid.UUID) error {
	blog, err := s.load(ctx, blogID)
	if err != nil {
		return err
	}

	if !blog.IsAuthor(requesterID) {
		return domain.ErrNotBlogAuthor
	}

	if err := s.blogRepo.Delete(ctx, blogID); err != nil {
		return s.writeError(err, blogID, "failed to delete blog")
	}

	s.invalidate(ctx, blogID)
	s.metrics.BlogOperation(metrics.OpDelete)
	s.logger.Info().Str("blog_id", blogID.String()).Msg("blog deleted")

	return nil
}

// Get returns a blog visible to requesterID (uuid.Nil for anonymous callers).
// Drafts are reported as not found to everyone but their author.
func (s *BlogService) Get(ctx context.Context, blogID, requesterID uuid.UUID) (*domain.Blog, error) {
	blog, ok := s.cached(ctx, blogID)
	if !ok {
		gen := s.generation(blogID).Load()

		var err error
		blog, err = s.load(ctx, blogID)
		if err != nil {
			return nil, err
		}
		s.store(ctx, blog, gen)
	}

	if !blog.VisibleTo(requesterID) {
		return nil, domain.ErrBlogNotFound
	}
	return blog, nil
}

// ListByAuthor lists one author's blogs, newest first.
// Callers other than the author only see published blogs.
func (s *BlogService) ListByAuthor(ctx context.Context, input ListBlogsInput) (*ListBlogsOutput, error) {
	filter := repository.BlogFilter{AuthorID: input.AuthorID, State: input.State}

	if input.RequesterID != input.AuthorID {
		if input.State == domain.BlogStateDraft {
			return s.emptyPage(input), nil
		}
		filter.State = domain.BlogStatePublish
	}

	return s.list(ctx, filter, input)
}

// ListPublished lists blogs across all authors, newest first.
// State defaults to publish; drafts are only listed for their own author.
func (s *BlogService) ListPublished(ctx context.Context, input ListBlogsInput) (*ListBlogsOutput, error) {
	filter := repository.BlogFilter{State: input.State}
	if filter.State == "" {
		filter.State = domain.BlogStatePublish
	}

	if filter.State == domain.BlogStateDraft {
		if input.RequesterID == uuid.Nil {
			return s.emptyPage(input), nil
		}
		filter.AuthorID = input.RequesterID
	}

	return s.list(ctx, filter, input)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *BlogService) list(ctx context.Context, filter repository.BlogFilter, input ListBlogsInput) (*ListBlogsOutput, error) {
	page, limit := s.Paginate(input.Page, input.Limit)

	result, err := s.blogRepo.List(ctx, filter, repository.ListOptions{
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("author_id", filter.AuthorID.String()).
			Str("state", string(filter.State)).
			Msg("failed to list blogs")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListBlogsOutput{
		Blogs: result.Items,
		Total: result.Total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (s *BlogService) emptyPage(input ListBlogsInput) *ListBlogsOutput {
	page, limit := s.Paginate(input.Page, input.Limit)
	return &ListBlogsOutput{Blogs: []*domain.Blog{}, Page: page, Limit: limit}
}

// Paginate clamps page and limit to the configured bounds.
func (s *BlogService) Paginate(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	return page, limit
}

func (s *BlogService) validate(blog *domain.Blog) error {
	verr := &ValidationError{}

	if n := utf8.RuneCountInString(blog.Title); n < s.cfg.MinTitleLength {
		verr.Add("title", fmt.Sprintf("Title must be at least %d character long", s.cfg.MinTitleLength))
	}
	if n := utf8.RuneCountInString(blog.Body); n < s.cfg.MinBodyLength {
		verr.Add("body", fmt.Sprintf("Body must be at least %d character long", s.cfg.MinBodyLength))
	}

	return verr.OrNil()
}

func (s *BlogService) load(ctx context.Context, blogID uuid.UUID) (*domain.Blog, error) {
	blog, err := s.blogRepo.GetByID(ctx, blogID)
	if err != nil {
		if errors.Is(err, domain.ErrBlogNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("blog_id", blogID.String()).Msg("failed to get blog")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return blog, nil
}

// writeError passes domain errors through and wraps everything else as internal.
func (s *BlogService) writeError(err error, blogID uuid.UUID, msg string) error {
	if errors.Is(err, domain.ErrBlogNotFound) || errors.Is(err, domain.ErrBlogTitleTaken) {
		return err
	}
	s.logger.Error().Err(err).Str("blog_id", blogID.String()).Msg(msg)
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}

func (s *BlogService) cacheEnabled() bool {
	return s.cache != nil && s.cfg.CacheTTL > 0
}

func (s *BlogService) cached(ctx context.Context, blogID uuid.UUID) (*domain.Blog, bool) {
	if !s.cacheEnabled() {
		return nil, false
	}

	data, err := s.cache.Get(ctx, repository.CacheKeys.BlogByID(blogID))
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("blog_id", blogID.String()).Msg("cache read failed")
		}
		s.metrics.CacheLookup(false)
		return nil, false
	}

	var blog domain.Blog
	if err := json.Unmarshal(data, &blog); err != nil {
		s.logger.Warn().Err(err).Str("blog_id", blogID.String()).Msg("discarding corrupt cache entry")
		s.invalidate(ctx, blogID)
		s.metrics.CacheLookup(false)
		return nil, false
	}

	s.metrics.CacheLookup(true)
	return &blog, true
}

func (s *BlogService) generation(blogID uuid.UUID) *atomic.Uint64 {
	return &s.generations[blogID[0]]
}

// store caches blog unless a write invalidated it after gen was read.
func (s *BlogService) store(ctx context.Context, blog *domain.Blog, gen uint64) {
	if !s.cacheEnabled() {
		return
	}
	if s.generation(blog.ID).Load() != gen {
		return
	}

	data, err := json.Marshal(blog)
	if err != nil {
		s.logger.Warn().Err(err).Str("blog_id", blog.ID.String()).Msg("failed to encode blog for cache")
		return
	}

	key := repository.CacheKeys.BlogByID(blog.ID)
	if err := s.cache.Set(ctx, key, data, s.cfg.CacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("blog_id", blog.ID.String()).Msg("cache write failed")
		return
	}

	// An invalidation that raced the Set may have deleted the key first.
	if s.generation(blog.ID).Load() != gen {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("blog_id", blog.ID.String()).Msg("cache invalidation failed")
		}
	}
}

func (s *BlogService) invalidate(ctx context.Context, blogID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.generation(blogID).Add(1)
	if err := s.cache.Delete(ctx, repository.CacheKeys.BlogByID(blogID)); err != nil {
		s.logger.Warn().Err(err).Str("blog_id", blogID.String()).Msg("cache invalidation failed")
	}
}
