package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/scribe/internal/auth"
	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/service"
)

// BlogHandler handles blog requests.
type BlogHandler struct {
	blogService *service.BlogService
	logger      zerolog.Logger
}

// NewBlogHandler creates a new BlogHandler.
func NewBlogHandler(blogService *service.BlogService, logger zerolog.Logger) *BlogHandler {
	return &BlogHandler{
		blogService: blogService,
		logger:      logger.With().Str("handler", "blog").Logger(),
	}
}

// RegisterRoutes registers the blog routes under /blog.
// requireAuth guards writes and the per-author listing; optionalAuth only
// attaches an identity so authors can see their own drafts.
func (h *BlogHandler) RegisterRoutes(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/blog", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/", h.ListPublished)
			r.Get("/blogId/{id}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/create", h.Create)
			r.Patch("/publish/{id}", h.Publish)
			r.Get("/{id}", h.ListByAuthor)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

type createBlogRequest struct {
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description"`
	Body        string `json:"body" validate:"required,notblank"`
	Tags        string `json:"tags"`
}

type updateBlogRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Body        *string `json:"body"`
	Tags        *string `json:"tags"`
}

// Create handles POST /blog/create.
func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBlogRequest
	if !bindRequest(w, r, &req, http.StatusBadRequest) {
		return
	}

	blog, err := h.blogService.Create(r.Context(), service.CreateBlogInput{
		AuthorID:    auth.UserID(r.Context()),
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		Tags:        req.Tags,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, blogResponse{
		envelope: success(http.StatusCreated, MessageBlogCreated),
		Blog:     blog,
	})
}

// Publish handles PATCH /blog/publish/{id}.
func (h *BlogHandler) Publish(w http.ResponseWriter, r *http.Request) {
	blogID, ok := blogIDParam(w, r)
	if !ok {
		return
	}

	blog, err := h.blogService.Publish(r.Context(), blogID, auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, blogResponse{
		envelope: success(http.StatusOK, MessageBlogPublished),
		Blog:     blog,
	})
}

// Update handles PUT /blog/{id}.
func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	blogID, ok := blogIDParam(w, r)
	if !ok {
		return
	}

	var req updateBlogRequest
	if !bindRequest(w, r, &req, http.StatusBadRequest) {
		return
	}

	blog, err := h.blogService.Update(r.Context(), service.UpdateBlogInput{
		BlogID:      blogID,
		RequesterID: auth.UserID(r.Context()),
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		Tags:        req.Tags,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, blogResponse{
		envelope: success(http.StatusOK, MessageBlogUpdated),
		Blog:     blog,
	})
}

// Delete handles DELETE /blog/{id}.
func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	blogID, ok := blogIDParam(w, r)
	if !ok {
		return
	}

	if err := h.blogService.Delete(r.Context(), blogID, auth.UserID(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, success(http.StatusOK, MessageBlogDeleted))
}

// Get handles GET /blog/blogId/{id}.
func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	blogID, ok := blogIDParam(w, r)
	if !ok {
		return
	}

	blog, err := h.blogService.Get(r.Context(), blogID, auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, blogResponse{
		envelope: success(http.StatusOK, MessageBlogFound),
		Blog:     blog,
	})
}

// ListByAuthor handles GET /blog/{id} where id is the author's user id.
func (h *BlogHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	input, ok := listInput(w, r)
	if !ok {
		return
	}
	input.AuthorID = authorID

	out, err := h.blogService.ListByAuthor(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newBlogListResponse(out))
}

// ListPublished handles GET /blog.
func (h *BlogHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	input, ok := listInput(w, r)
	if !ok {
		return
	}

	out, err := h.blogService.ListPublished(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newBlogListResponse(out))
}

// listInput reads state, page and limit from the query string.
func listInput(w http.ResponseWriter, r *http.Request) (service.ListBlogsInput, bool) {
	state, err := domain.ParseBlogState(r.URL.Query().Get("state"))
	if err != nil {
		writeServiceError(w, r, err)
		return service.ListBlogsInput{}, false
	}

	page, err := queryInt(r, "page")
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("bad pagination")
		writeMessage(w, http.StatusBadRequest, "Invalid page")
		return service.ListBlogsInput{}, false
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("bad pagination")
		writeMessage(w, http.StatusBadRequest, "Invalid limit")
		return service.ListBlogsInput{}, false
	}

	return service.ListBlogsInput{
		RequesterID: auth.UserID(r.Context()),
		State:       state,
		Page:        page,
		Limit:       limit,
	}, true
}

// blogIDParam parses the {id} path segment. A malformed id cannot name an
// existing blog and is answered as not found.
func blogIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, domain.NewDomainError(domain.ErrBlogNotFound, "malformed blog id", chi.URLParam(r, "id")))
		return uuid.Nil, false
	}
	return id, true
}
