package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/ginext"

	"regportal/internal/model"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	Unauthorized         = "UNAUTHORIZED"
	Forbidden            = "FORBIDDEN"
	Conflict             = "CONFLICT"
	NotFound             = "NOT_FOUND"
	RegistrationClosed   = "REGISTRATION_CLOSED"
	DuplicateMobile      = "DUPLICATE_MOBILE"
	RegistrationNotFound = "REGISTRATION_NOT_FOUND"
	AlreadyAdmitted      = "ALREADY_ADMITTED"
	UnrecognizedScan     = "UNRECOGNIZED_SCAN"
	ExportNotReady       = "EXPORT_NOT_READY"
)

// ID accepts a JSON number or a numeric string. Form selects post their
// values as strings; an empty string decodes to zero.
type ID int

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*id = 0
			return nil
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid id %q", raw)
	}
	*id = ID(n)
	return nil
}

type CreateRegistrationRequest struct {
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	Designation string `json:"designation"`
	SectorID    ID     `json:"sector_id"`
	UnitID      ID     `json:"unit_id"`
}

type CheckMobileResponse struct {
	Exists       bool                `json:"exists"`
	Registration *model.Registration `json:"registration"`
}

// AdmitRequest carries either a typed registration id or raw scanned QR text.
type AdmitRequest struct {
	RegID string `json:"reg_id"`
	Scan  string `json:"scan"`
}

type AdmitResponse struct {
	Outcome       string              `json:"outcome"`
	AdmissionTime *time.Time          `json:"admission_time"`
	Registration  *model.Registration `json:"registration"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	SectorID   int    `json:"sector_id,omitempty"`
	SectorName string `json:"sector_name,omitempty"`
	Token      string `json:"token"`
}

type SectorRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type CreateUnitRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	SectorID int    `json:"sector_id" validate:"required,positive"`
}

type UpdateUnitRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type CreateSectorAdminRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=6"`
	SectorID int    `json:"sector_id" validate:"required,positive"`
}

type UpdateSectorAdminRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	SectorID *int    `json:"sector_id"`
}

type ExportRequest struct {
	SectorID    int    `json:"sector_id"`
	UnitID      int    `json:"unit_id"`
	Designation string `json:"designation"`
}

type ExportAcceptedResponse struct {
	JobID string `json:"job_id"`
	File  string `json:"file"`
}

// ExportJobMessage is the RabbitMQ payload consumed by the export worker.
type ExportJobMessage struct {
	JobID       string    `json:"job_id"`
	File        string    `json:"file"`
	SectorID    int       `json:"sector_id,omitempty"`
	UnitID      int       `json:"unit_id,omitempty"`
	Designation string    `json:"designation,omitempty"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func ErrorResponse(c *ginext.Context, status int, code, desc string) {
	ErrorWithData(c, status, code, desc, nil)
}

// ErrorWithData reports an outcome that is not a success but still carries a
// record for the caller to show.
func ErrorWithData(c *ginext.Context, status int, code, desc string, data any) {
	c.AbortWithStatusJSON(status, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
		Data: data,
	})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	ErrorResponse(c, http.StatusBadRequest, code, desc)
}

func InternalServerError(c *ginext.Context) {
	ErrorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func FieldBadFormatError(c *ginext.Context, fieldName string) {
	BadResponseError(c, FieldBadFormat, "Field '"+fieldName+"' has bad format")
}

func FieldIncorrectError(c *ginext.Context, fieldName, reason string) {
	BadResponseError(c, FieldIncorrect, "Field '"+fieldName+"' is incorrect: "+reason)
}

func UnauthorizedError(c *ginext.Context) {
	ErrorResponse(c, http.StatusUnauthorized, Unauthorized, "Unauthorized")
}

func ForbiddenError(c *ginext.Context) {
	ErrorResponse(c, http.StatusForbidden, Forbidden, "Access to this resource is not allowed")
}

func NotFoundError(c *ginext.Context, what string) {
	ErrorResponse(c, http.StatusNotFound, NotFound, what+" not found")
}

func ConflictError(c *ginext.Context, desc string) {
	ErrorResponse(c, http.StatusConflict, Conflict, desc)
}

func RegistrationClosedError(c *ginext.Context) {
	ErrorResponse(c, http.StatusForbidden, RegistrationClosed, "Registration is currently closed.")
}

func DuplicateMobileError(c *ginext.Context, existing *model.Registration) {
	ErrorWithData(c, http.StatusConflict, DuplicateMobile, "This mobile number is already registered.", existing)
}

func RegistrationNotFoundError(c *ginext.Context) {
	ErrorResponse(c, http.StatusNotFound, RegistrationNotFound, "Registration not found")
}

func AlreadyAdmittedError(c *ginext.Context, data AdmitResponse) {
	ErrorWithData(c, http.StatusConflict, AlreadyAdmitted, "Already admitted", data)
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}

func AcceptedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusAccepted, Response{
		Status: "ok",
		Data:   data,
	})
}
