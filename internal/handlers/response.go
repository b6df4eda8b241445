package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralsys/farm-telemetry/internal/ingest"
)

// The query API answers with the Response envelope below. The ingestion
// endpoints keep the flat shape device firmware expects: {"status":"sucesso",...}
// on success and {"erro": message} on failure.

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Total   int64 `json:"total,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func SuccessWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "NOT_FOUND", message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// QueryError maps an ingest error kind onto the envelope.
func QueryError(c *gin.Context, err error) {
	var ie *ingest.Error
	msg := "Internal error"
	if errors.As(err, &ie) {
		msg = ie.Message
	}
	switch ingest.KindOf(err) {
	case ingest.KindValidation:
		BadRequest(c, msg)
	case ingest.KindNotFound:
		NotFound(c, msg)
	case ingest.KindAuth:
		Unauthorized(c, msg)
	default:
		InternalError(c, msg)
	}
}

const statusOK = "sucesso"

func ack(c *gin.Context, fields gin.H) {
	fields["status"] = statusOK
	c.JSON(http.StatusOK, fields)
}

func ingestStatus(kind ingest.Kind) int {
	switch kind {
	case ingest.KindValidation:
		return http.StatusBadRequest
	case ingest.KindAuth:
		return http.StatusUnauthorized
	case ingest.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Device endpoints answer errors as {"erro": msg}; the network-server uplink
// endpoint uses {"error": msg}.
const (
	deviceErrorKey = "erro"
	uplinkErrorKey = "error"
)

func ingestError(c *gin.Context, err error) {
	writeIngestError(c, deviceErrorKey, err)
}

func writeIngestError(c *gin.Context, key string, err error) {
	msg := "internal error"
	var ie *ingest.Error
	if errors.As(err, &ie) {
		msg = ie.Message
	}
	c.JSON(ingestStatus(ingest.KindOf(err)), gin.H{key: msg})
}
