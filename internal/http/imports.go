package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/importer"
)

// ImportManager is the orchestrator surface the controller needs.
type ImportManager interface {
	Create(opts importer.Options, filename string, file io.Reader) (*entities.ImportJob, error)
	Pause(id string) error
	Resume(id string) error
	Cancel(id string) error
	Status(id string) (*entities.ImportJob, error)
	List() ([]entities.ImportJob, error)
	Delete(id string) error
}

type ImportsController struct {
	manager ImportManager
}

func NewImportsController(manager ImportManager) *ImportsController {
	return &ImportsController{manager: manager}
}

type CreateImportResponse struct {
	JobID     string `json:"job_id"`
	TotalRows int    `json:"total_rows"`
}

// Create accepts a multipart upload and schedules a background import.
// The file is parsed synchronously; a malformed file is rejected here
// and no job is created.
func (ctrl *ImportsController) Create(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no import file provided"})
		return
	}
	defer file.Close()

	opts := importer.Options{
		Format:         entities.ImportFormat(c.PostForm("format")),
		SkipDuplicates: parseBool(c.PostForm("skip_duplicates")),
		EnrichMetadata: parseBool(c.PostForm("enrich_metadata")),
	}

	if mapping := c.PostForm("field_mapping"); mapping != "" {
		if err := json.Unmarshal([]byte(mapping), &opts.FieldMapping); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field_mapping must be a JSON object"})
			return
		}
	}

	job, err := ctrl.manager.Create(opts, header.Filename, file)
	if err != nil {
		respondImportError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, CreateImportResponse{
		JobID:     job.ID,
		TotalRows: job.TotalRows,
	})
}

// GetStatus returns a snapshot of one job, polled by clients.
func (ctrl *ImportsController) GetStatus(c *gin.Context) {
	job, err := ctrl.manager.Status(c.Param("id"))
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// List returns snapshots of all known jobs, most recent first.
func (ctrl *ImportsController) List(c *gin.Context) {
	jobs, err := ctrl.manager.List()
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (ctrl *ImportsController) Pause(c *gin.Context) {
	ctrl.control(c, ctrl.manager.Pause)
}

func (ctrl *ImportsController) Resume(c *gin.Context) {
	ctrl.control(c, ctrl.manager.Resume)
}

func (ctrl *ImportsController) Cancel(c *gin.Context) {
	ctrl.control(c, ctrl.manager.Cancel)
}

func (ctrl *ImportsController) Delete(c *gin.Context) {
	ctrl.control(c, ctrl.manager.Delete)
}

func (ctrl *ImportsController) control(c *gin.Context, op func(string) error) {
	if err := op(c.Param("id")); err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func respondImportError(c *gin.Context, err error) {
	var invalidState *importer.InvalidStateError
	var validation *importer.ValidationError

	switch {
	case errors.Is(err, importer.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invalidState):
		c.JSON(http.StatusConflict, gin.H{
			"error":  invalidState.Error(),
			"status": invalidState.Status,
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
