package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/export"
	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/faq"
	"github.com/Epistemic-Technology/vetrecords/internal/llm"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
	"github.com/Epistemic-Technology/vetrecords/models"
)

var (
	errTooLarge     = errors.New("upload too large")
	errTooManyFiles = errors.New("too many files")
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extraction.ErrNoDocuments),
		errors.Is(err, extraction.ErrInvalidCategory),
		errors.Is(err, documents.ErrNotPDF),
		errors.Is(err, documents.ErrEmptyDocument),
		errors.Is(err, documents.ErrNoText),
		errors.Is(err, errTooManyFiles):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, llm.ErrAllModelsFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.With("request_id", c.GetString(requestIDKey)).Error("Request failed: %v", err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "request_id": c.GetString(requestIDKey)})
}

// POST /api/extract (multipart "files")
func (h *handler) extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		if isTooLarge(err) {
			h.fail(c, fmt.Errorf("%w: limit is %d bytes", errTooLarge, h.opts.MaxUploadBytes))
			return
		}
		h.fail(c, fmt.Errorf("%w: %v", extraction.ErrNoDocuments, err))
		return
	}
	files := form.File["files"]
	if len(files) > h.opts.MaxFiles {
		h.fail(c, fmt.Errorf("%w: got %d, limit is %d", errTooManyFiles, len(files), h.opts.MaxFiles))
		return
	}

	docs := make([]models.DocumentData, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			h.fail(c, err)
			return
		}
		docs = append(docs, documents.NewDocument(data, fh.Filename))
	}

	result, err := h.svc.Extract(c.Request.Context(), docs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

type faqRequest struct {
	CategorizedDates []models.CategorizedDate `json:"categorized_dates" binding:"required"`
}

// POST /api/faqs derives the panel without calling a model.
func (h *handler) deriveFAQs(c *gin.Context) {
	var req faqRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, extraction.DeriveFAQs(req.CategorizedDates))
}

func (h *handler) faqRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": faq.Rules(), "categories": models.Categories})
}

func (h *handler) listExtractions(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"extractions": list})
}

func (h *handler) getExtraction(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) getFAQs(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result.FAQs)
}

// GET /api/extractions/:id/timeline?category=vaccine
func (h *handler) getTimeline(c *gin.Context) {
	category := models.Category(strings.ToLower(strings.TrimSpace(c.Query("category"))))
	dates, err := h.svc.Timeline(c.Request.Context(), c.Param("id"), category)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "category": category, "dates": dates})
}

func (h *handler) exportExtraction(c *gin.Context) {
	id := c.Param("id")
	result, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	buf, err := export.WriteWorkbook(result)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, id))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (h *handler) deleteExtraction(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
