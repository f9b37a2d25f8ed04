package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/mediakit/contentgate/pkg/contentgate"
)

// ContentHandler handles HTTP requests for content items, their lifecycle and
// their version history.
type ContentHandler struct {
	service contentgate.Service
}

// NewContentHandler creates a new content handler
func NewContentHandler(service contentgate.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// Routes returns the routes for content
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateContent)
	r.Get("/", h.ListContent)
	r.Get("/{id}", h.GetContent)
	r.Put("/{id}", h.UpdateContent)
	r.Delete("/{id}", h.DeleteContent)

	// Lifecycle transitions
	r.Post("/{id}/submit", h.SubmitForReview)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/request-changes", h.RequestChanges)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/archive", h.Archive)
	r.Post("/{id}/unarchive", h.Unarchive)

	// Version history
	r.Get("/{id}/versions", h.ListVersions)
	r.Get("/{id}/versions/{version}", h.GetVersion)
	r.Post("/{id}/versions/{version}/revert", h.Revert)

	// Entitlement
	r.Get("/{id}/access", h.CheckAccess)
	r.Get("/{id}/download", h.GetDownload)
	r.Get("/{id}/upload-url", h.GetUpload)

	return r
}

// CreateContentRequest is the request body for creating a content item
type CreateContentRequest struct {
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Body        string     `json:"body,omitempty"`
	FileRef     string     `json:"file_ref,omitempty"`
	ExternalURL string     `json:"external_url,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	IsPublic    bool       `json:"is_public"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Password    string     `json:"password,omitempty"`
}

// Validate validates the request body
func (req CreateContentRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.Type, validation.Required, validation.In(
			string(contentgate.ContentTypeVideo),
			string(contentgate.ContentTypeArticle),
			string(contentgate.ContentTypeDocument),
			string(contentgate.ContentTypeAudio),
		)),
		validation.Field(&req.ExternalURL, is.URL),
	)
}

// UpdateContentRequest is the request body for updating a content item.
// Absent fields are left unchanged.
type UpdateContentRequest struct {
	Title             *string    `json:"title,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Body              *string    `json:"body,omitempty"`
	FileRef           *string    `json:"file_ref,omitempty"`
	ExternalURL       *string    `json:"external_url,omitempty"`
	Tags              []string   `json:"tags,omitempty"`
	IsPublic          *bool      `json:"is_public,omitempty"`
	Active            *bool      `json:"active,omitempty"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	ClearDates        bool       `json:"clear_dates,omitempty"`
	Password          *string    `json:"password,omitempty"`
	ClearPassword     bool       `json:"clear_password,omitempty"`
	ChangeDescription string     `json:"change_description,omitempty"`
}

// Validate validates the request body
func (req UpdateContentRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&req.ExternalURL, is.URL),
	)
}

type reviewNotesRequest struct {
	Notes string `json:"notes,omitempty"`
}

func contentIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// CreateContent creates a new content item in draft
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, err := h.service.CreateContent(r.Context(), PrincipalFromContext(r.Context()), contentgate.CreateContentRequest{
		Type:        contentgate.ContentType(req.Type),
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		FileRef:     req.FileRef,
		ExternalURL: req.ExternalURL,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Password:    req.Password,
	})
	if err != nil {
		renderError(w, r, "create content", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// GetContent retrieves a content item by ID
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	content, err := h.service.GetContent(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, "get content", err)
		return
	}
	render.JSON(w, r, content)
}

// UpdateContent applies a partial update and records a new version
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	var req UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, err := h.service.UpdateContent(r.Context(), PrincipalFromContext(r.Context()), contentgate.UpdateContentRequest{
		ContentID:         id,
		Title:             req.Title,
		Description:       req.Description,
		Body:              req.Body,
		FileRef:           req.FileRef,
		ExternalURL:       req.ExternalURL,
		Tags:              req.Tags,
		IsPublic:          req.IsPublic,
		Active:            req.Active,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		ClearDates:        req.ClearDates,
		Password:          req.Password,
		ClearPassword:     req.ClearPassword,
		ChangeDescription: req.ChangeDescription,
	})
	if err != nil {
		renderError(w, r, "update content", err)
		return
	}
	render.JSON(w, r, content)
}

// DeleteContent deletes a content item and its dependent records
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteContent(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		renderError(w, r, "delete content", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListContent lists content items matching the query filters
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	filters, err := filtersFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	contents, err := h.service.ListContent(r.Context(), PrincipalFromContext(r.Context()), filters)
	if err != nil {
		renderError(w, r, "list content", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"contents": contents, "count": len(contents)})
}

func filtersFromQuery(r *http.Request) (contentgate.ContentListFilters, error) {
	var filters contentgate.ContentListFilters
	q := r.URL.Query()

	if v := q.Get("creator_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filters, fmt.Errorf("invalid creator_id: %w", err)
		}
		filters.CreatorID = &id
	}
	if v := q.Get("status"); v != "" {
		status := contentgate.ContentStatus(v)
		filters.Status = &status
	}
	if v := q.Get("type"); v != "" {
		typ := contentgate.ContentType(v)
		filters.Type = &typ
	}
	if v := q.Get("tag"); v != "" {
		filters.Tag = &v
	}
	if q.Get("include_archived") == "true" {
		filters.IncludeArchived = true
	}
	if v := q.Get("limit"); v != "" {
		var limit int
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil {
			return filters, fmt.Errorf("invalid limit: %w", err)
		}
		filters.Limit = &limit
	}
	if v := q.Get("offset"); v != "" {
		var offset int
		if _, err := fmt.Sscanf(v, "%d", &offset); err != nil {
			return filters, fmt.Errorf("invalid offset: %w", err)
		}
		filters.Offset = &offset
	}
	return filters, nil
}

// transition wraps the shared shape of the lifecycle action handlers.
func (h *ContentHandler) transition(w http.ResponseWriter, r *http.Request, operation string,
	fn func(p contentgate.Principal, id uuid.UUID, notes string) (*contentgate.Content, error)) {

	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	var req reviewNotesRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	content, err := fn(PrincipalFromContext(r.Context()), id, req.Notes)
	if err != nil {
		renderError(w, r, operation, err)
		return
	}
	render.JSON(w, r, content)
}

// SubmitForReview moves draft content into review
func (h *ContentHandler) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "submit for review", func(p contentgate.Principal, id uuid.UUID, _ string) (*contentgate.Content, error) {
		return h.service.SubmitForReview(r.Context(), p, id)
	})
}

// Approve publishes content under review
func (h *ContentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve content", func(p contentgate.Principal, id uuid.UUID, notes string) (*contentgate.Content, error) {
		return h.service.Approve(r.Context(), p, id, notes)
	})
}

// RequestChanges sends content under review back to its creator
func (h *ContentHandler) RequestChanges(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "request changes", func(p contentgate.Principal, id uuid.UUID, notes string) (*contentgate.Content, error) {
		return h.service.RequestChanges(r.Context(), p, id, notes)
	})
}

// Reject rejects content under review
func (h *ContentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject content", func(p contentgate.Principal, id uuid.UUID, notes string) (*contentgate.Content, error) {
		return h.service.Reject(r.Context(), p, id, notes)
	})
}

// Archive archives a content item
func (h *ContentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "archive content", func(p contentgate.Principal, id uuid.UUID, _ string) (*contentgate.Content, error) {
		return h.service.Archive(r.Context(), p, id)
	})
}

// Unarchive restores an archived content item to published
func (h *ContentHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "unarchive content", func(p contentgate.Principal, id uuid.UUID, _ string) (*contentgate.Content, error) {
		return h.service.Unarchive(r.Context(), p, id)
	})
}

// ListVersions lists the version history of a content item, newest first
func (h *ContentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	versions, err := h.service.ListVersions(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, "list versions", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"versions": versions, "count": len(versions)})
}

func versionParam(r *http.Request) (int, error) {
	var n int
	if _, err := fmt.Sscanf(chi.URLParam(r, "version"), "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetVersion retrieves a single version snapshot
func (h *ContentHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}
	n, err := versionParam(r)
	if err != nil {
		http.Error(w, "Invalid version number", http.StatusBadRequest)
		return
	}

	version, err := h.service.GetVersion(r.Context(), PrincipalFromContext(r.Context()), id, n)
	if err != nil {
		renderError(w, r, "get version", err)
		return
	}
	render.JSON(w, r, version)
}

// Revert restores the attributes of an earlier version as a new version
func (h *ContentHandler) Revert(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}
	n, err := versionParam(r)
	if err != nil {
		http.Error(w, "Invalid version number", http.StatusBadRequest)
		return
	}

	content, err := h.service.Revert(r.Context(), PrincipalFromContext(r.Context()), id, n)
	if err != nil {
		renderError(w, r, "revert content", err)
		return
	}
	render.JSON(w, r, content)
}

// CheckAccess runs the entitlement resolver for the caller
func (h *ContentHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	password := r.URL.Query().Get("password")
	decision, err := h.service.CanView(r.Context(), PrincipalFromContext(r.Context()), id, time.Now().UTC(), password)
	if err != nil {
		renderError(w, r, "check access", err)
		return
	}
	render.JSON(w, r, decision)
}

// GetDownload resolves entitlement and returns a download URL for the
// content's file reference
func (h *ContentHandler) GetDownload(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	password := r.URL.Query().Get("password")
	url, err := h.service.GetDownloadURL(r.Context(), PrincipalFromContext(r.Context()), id, password)
	if err != nil {
		renderError(w, r, "get download url", err)
		return
	}
	render.JSON(w, r, map[string]string{"download_url": url})
}

// GetUpload returns an upload URL for the content's file reference
func (h *ContentHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	url, err := h.service.GetUploadURL(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, "get upload url", err)
		return
	}
	render.JSON(w, r, map[string]string{"upload_url": url})
}
