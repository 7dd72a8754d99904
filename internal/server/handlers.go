package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/pavel-fokin/pdf-toolbox/internal/contact"
	"github.com/pavel-fokin/pdf-toolbox/internal/files"
	"github.com/pavel-fokin/pdf-toolbox/internal/pdf"
)

type handlers struct {
	files     *files.Service
	contact   *contact.Service
	processor pdf.Processor
	logger    *zap.Logger
}

func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	req, err := readUpload(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.files.Upload(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		FileID:   result.ID,
		Filename: result.Filename,
	})
}

func (h *handlers) download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	file, content, err := h.files.Open(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.OriginalName}))
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn("Download interrupted", zap.String("file_id", id), zap.Error(err))
	}
}

func (h *handlers) cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.files.Sweep()
	if err != nil {
		h.logger.Error("Cleanup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Cleanup failed")
		return
	}

	writeJSON(w, http.StatusOK, cleanupResponse{Success: true, Deleted: deleted})
}

func (h *handlers) submitContact(w http.ResponseWriter, r *http.Request) {
	var req contact.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to send message. Please check your input.")
		return
	}

	if _, err := h.contact.Submit(&req); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Message sent successfully"})
}

func (h *handlers) listContact(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.contact.List()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success  bool               `json:"success"`
		Messages []*contact.Message `json:"messages"`
	}{Success: true, Messages: msgs})
}

type processRequest struct {
	FileIDs   []string        `json:"fileIds"`
	Operation json.RawMessage `json:"operation"`
}

func (h *handlers) process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	op, err := pdf.Decode(req.Operation)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := pdf.Validate(op, len(req.FileIDs)); err != nil {
		h.fail(w, r, err)
		return
	}

	inputs := make([][]byte, 0, len(req.FileIDs))
	var first *files.File
	for _, id := range req.FileIDs {
		file, data, err := h.files.ReadAll(id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if file.MimeType != "application/pdf" {
			h.fail(w, r, fmt.Errorf("%w: %s is not a PDF", pdf.ErrInvalidOperation, file.OriginalName))
			return
		}
		if first == nil {
			first = file
		}
		inputs = append(inputs, data)
	}

	h.applyAndStore(w, r, op, inputs, outputName(op, first.OriginalName, ".pdf"), "application/pdf")
}

// convertUpload accepts a single multipart file and runs op on it. Nothing is
// persisted unless op succeeds.
func (h *handlers) convertUpload(op pdf.Operation, outputType, outputExt string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readUpload(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		data, _, err := h.files.Validate(req)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		h.applyAndStore(w, r, op, [][]byte{data}, outputName(op, req.Name, outputExt), outputType)
	}
}

func (h *handlers) applyAndStore(w http.ResponseWriter, r *http.Request, op pdf.Operation, inputs [][]byte, name, mimeType string) {
	out, err := h.processor.Apply(op, inputs)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.files.Upload(&files.UploadRequest{
		Name:     name,
		MimeType: mimeType,
		Content:  bytes.NewReader(out),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		FileID:   result.ID,
		Filename: result.Filename,
	})
}

// readUpload returns the first file part of a multipart request without
// buffering it.
func readUpload(r *http.Request) (*files.UploadRequest, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, files.ErrNoFile
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, files.ErrNoFile
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return &files.UploadRequest{
				Name:     part.FileName(),
				MimeType: part.Header.Get("Content-Type"),
				Content:  part,
			}, nil
		}
	}
}

func outputName(op pdf.Operation, original, ext string) string {
	if _, ok := op.(pdf.Merge); ok {
		return "merged" + ext
	}
	base := strings.TrimSuffix(original, filepath.Ext(original))
	if base == "" {
		base = "document"
	}
	return base + "_" + string(op.Kind()) + ext
}

// fail maps an error onto a structured response
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	var invalid *contact.ValidationError

	switch {
	case errors.Is(err, files.ErrNoFile):
		writeError(w, http.StatusBadRequest, "No file uploaded")
	case errors.Is(err, files.ErrTooLarge), errors.As(err, &maxBytes):
		writeError(w, http.StatusBadRequest, h.tooLargeMessage())
	case errors.Is(err, files.ErrTypeNotAllowed):
		writeError(w, http.StatusBadRequest, "File type not supported")
	case errors.Is(err, files.ErrNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, files.ErrBlobMissing):
		writeError(w, http.StatusNotFound, "File not found on disk")
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Success: false,
			Message: "Failed to send message. Please check your input.",
			Errors:  invalid.Fields,
		})
	case errors.Is(err, pdf.ErrNotSupported):
		writeError(w, http.StatusNotImplemented, capitalize(err.Error()))
	case errors.Is(err, pdf.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, capitalize(err.Error()))
	default:
		h.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *handlers) tooLargeMessage() string {
	return "File exceeds the " + humanize.IBytes(uint64(h.files.Policy().MaxSize)) + " limit"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
