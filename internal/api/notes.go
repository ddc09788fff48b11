package api

import (
	"errors"   // Missing file and oversized body detection
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	"notes_marketplace/internal/middleware" // Auth context helpers
	"notes_marketplace/internal/service"    // Business logic
	"notes_marketplace/internal/utils"      // Pagination

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Price parsing
)

// NoteForm is the multipart form used to create or update a note
type NoteForm struct {
	Title         string `form:"title" binding:"required,max=255"` // Note title
	Description   string `form:"description" binding:"max=5000"`   // Free text
	Price         string `form:"price" binding:"required"`         // Decimal string, 0 for free notes
	University    string `form:"university" binding:"required,max=255"`
	College       string `form:"college" binding:"required,max=255"`
	Subject       string `form:"subject" binding:"max=255"`
	PagesNumber   int    `form:"pages_number" binding:"gte=0"`
	Year          int    `form:"year" binding:"omitempty,gte=1900,lte=2100"`
	ContactMethod string `form:"contact_method" binding:"max=255"`
	RemoveFile    bool   `form:"remove_file"`  // Update only
	RemoveCover   bool   `form:"remove_cover"` // Update only
}

// input converts the form into service input
func (f NoteForm) input() (service.NoteInput, error) {
	price, err := decimal.NewFromString(f.Price) // Parse price exactly
	if err != nil {
		return service.NoteInput{}, err
	}
	return service.NoteInput{
		Title:         f.Title,
		Description:   f.Description,
		Price:         price,
		University:    f.University,
		College:       f.College,
		Subject:       f.Subject,
		PagesNumber:   f.PagesNumber,
		Year:          f.Year,
		ContactMethod: f.ContactMethod,
	}, nil
}

// formUpload opens an optional multipart file. The returned close func is never nil.
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil // Field not sent
	}
	if err != nil {
		return nil, func() {}, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	up := &service.Upload{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}
	return up, func() { _ = f.Close() }, nil
}

// bindNoteForm binds the form and both optional files, writing a 400 on failure
func bindNoteForm(c *gin.Context) (service.NoteInput, NoteForm, *service.Upload, *service.Upload, func(), bool) {
	var form NoteForm
	noop := func() {}
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return service.NoteInput{}, form, nil, nil, noop, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return service.NoteInput{}, form, nil, nil, noop, false
	}
	in, err := form.input()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
		return service.NoteInput{}, form, nil, nil, noop, false
	}
	pdf, closePDF, err := formUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file upload"})
		return service.NoteInput{}, form, nil, nil, noop, false
	}
	cover, closeCover, err := formUpload(c, "cover")
	if err != nil {
		closePDF()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cover upload"})
		return service.NoteInput{}, form, nil, nil, noop, false
	}
	return in, form, pdf, cover, func() { closePDF(); closeCover() }, true
}

// SearchNotesHandler lists published notes
func SearchNotesHandler(notes *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, _ := strconv.Atoi(c.Query("year")) // Zero disables the filter
		filters := service.SearchFilters{
			Query:      c.Query("q"),
			University: c.Query("university"),
			College:    c.Query("college"),
			Year:       year,
			Sort:       c.Query("sort"),
		}
		page := utils.ParsePage(c.Query("page"), c.Query("page_size"))
		out, err := notes.Search(c.Request.Context(), filters, page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GetNoteHandler returns one note with its seller and rating
func GetNoteHandler(notes *service.NoteService, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		detail, err := notes.Get(c.Request.Context(), viewer(c, users), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

// CreateNoteHandler uploads a new note
func CreateNoteHandler(notes *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, _, pdf, cover, closeFiles, ok := bindNoteForm(c)
		if !ok {
			return
		}
		defer closeFiles()
		if pdf == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "PDF file is required"})
			return
		}
		note, err := notes.Create(c.Request.Context(), middleware.UserID(c), in, pdf, cover)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"note": note})
	}
}

// UpdateNoteHandler edits a note owned by the caller
func UpdateNoteHandler(notes *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		in, form, pdf, cover, closeFiles, ok := bindNoteForm(c)
		if !ok {
			return
		}
		defer closeFiles()
		note, err := notes.Update(c.Request.Context(), middleware.UserID(c), id, in, service.UpdateOptions{
			PDF:         pdf,
			Cover:       cover,
			RemoveFile:  form.RemoveFile,
			RemoveCover: form.RemoveCover,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"note": note})
	}
}

// DeleteNoteHandler removes a note; owners and admins only
func DeleteNoteHandler(notes *service.NoteService, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := notes.Delete(c.Request.Context(), viewer(c, users), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
	}
}

// PublishNoteHandler toggles catalog visibility
func PublishNoteHandler(notes *service.NoteService, published bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := notes.SetPublished(c.Request.Context(), middleware.UserID(c), id, published); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "is_published": published})
	}
}

// DownloadNoteHandler returns a short-lived link to the PDF
func DownloadNoteHandler(notes *service.NoteService, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		link, err := notes.Download(c.Request.Context(), viewer(c, users), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

// SellerNotesHandler lists the caller's own notes, published or not
func SellerNotesHandler(notes *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := notes.SellerNotes(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notes": list})
	}
}

// PurchasedNotesHandler lists the notes the caller bought
func PurchasedNotesHandler(notes *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := notes.PurchasedNotes(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notes": list})
	}
}

// UniversitiesHandler lists the universities that have published notes
func UniversitiesHandler(notes *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := notes.Universities(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"universities": list})
	}
}

// CollegesHandler lists the colleges of one university
func CollegesHandler(notes *service.NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := notes.Colleges(c.Request.Context(), c.Query("university"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"colleges": list})
	}
}
