package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pushkindt/pushkind-dantes/internal/models"
	"github.com/pushkindt/pushkind-dantes/internal/upload"
)

// MaxUploadSize caps catalog uploads at 10MB.
const MaxUploadSize = 10 << 20

// readUploadFile pulls the multipart file plus the declared format and mode
// out of the request. On failure it writes the error response itself and
// returns ok=false.
func readUploadFile(c *gin.Context) ([]byte, upload.FileMeta, bool) {
	var meta upload.FileMeta

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    upload.CodeFileRequired,
				Message: "Please upload a CSV or XLSX file",
			},
		})
		return nil, meta, false
	}
	defer file.Close()

	if header.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_TOO_LARGE",
				Message: "Uploaded file exceeds the 10MB limit",
			},
		})
		return nil, meta, false
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    upload.CodeParseError,
				Message: "Failed to read uploaded file",
			},
		})
		return nil, meta, false
	}
	if len(data) > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_TOO_LARGE",
				Message: "Uploaded file exceeds the 10MB limit",
			},
		})
		return nil, meta, false
	}

	meta = upload.FileMeta{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Format:      c.PostForm("format"),
		Mode:        c.PostForm("mode"),
	}
	return data, meta, true
}

// respondUploadError maps a structural upload error onto the error envelope.
func respondUploadError(c *gin.Context, err error) {
	if uploadErr, ok := err.(*upload.Error); ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    uploadErr.Code,
				Message: uploadErr.Message,
			},
		})
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to process uploaded file",
		},
	})
}

// exportFormat resolves the ?format= query, defaulting to csv.
func exportFormat(c *gin.Context) (upload.Format, bool) {
	format, err := upload.ParseFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		respondUploadError(c, err)
		return "", false
	}
	return format, true
}

// paginationParams reads ?page= and ?limit= with the service defaults.
func paginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return page, limit
}

// formatPrice renders a float the way uploads expect it back.
func formatPrice(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return formatPrice(*value)
}
