package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"claim-comments/internal/domain"
	"claim-comments/internal/pkg/i18n"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

var nullID = json.RawMessage("null")

// method handles one JSON-RPC call. params is the raw params member.
type method func(c *fiber.Ctx, params json.RawMessage) (any, error)

// newRPCError converts any error into a JSON-RPC error object. Unknown
// errors are reported as internal without leaking their text.
func newRPCError(locale string, err error) *rpcError {
	var de *domain.Error
	if !errors.As(err, &de) {
		return &rpcError{
			Code:    domain.RPCCode(domain.CodeInternal),
			Message: i18n.Translate(locale, domain.CodeInternal),
			Data:    map[string]any{"code": domain.CodeInternal},
		}
	}

	code := domain.CodeOf(de)
	data := map[string]any{"code": code}
	if de.Message != "" {
		data["detail"] = de.Message
	}
	if de.Field != "" {
		data["field"] = de.Field
	}
	if de.Data != nil {
		data["remote"] = de.Data
	}
	if domain.IsRetryable(de) {
		data["retryable"] = true
	}

	return &rpcError{
		Code:    domain.RPCCode(code),
		Message: i18n.Translate(locale, code),
		Data:    data,
	}
}

func protocolError(code, detail string) *domain.Error {
	return &domain.Error{Kind: domain.KindValidation, Code: code, Message: detail}
}

// decodeParams reads a params object into dst. Missing params decode as an
// empty object.
func decodeParams(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullID) {
		raw = json.RawMessage("{}")
	}
	if raw[0] != '{' {
		return domain.NewValidationError("params", "must be an object")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.NewValidationError("params", err.Error())
	}
	return nil
}

func (h *RPCHandler) logFailure(c *fiber.Ctx, name string, err error) {
	kind, _ := domain.KindOf(err)
	fields := []zap.Field{zap.String("method", name), zap.String("kind", string(kind)), zap.Error(err)}
	switch kind {
	case domain.KindStorage, "":
		h.log.Error("rpc call failed", fields...)
	default:
		h.log.Debug("rpc call rejected", fields...)
	}
}

// flexBool accepts the boolean spellings clients send for flags: JSON
// booleans, numbers, and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "", "null", "false", "0":
		*b = false
		return nil
	case "true":
		*b = true
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.New("top_level must be a boolean")
	}
	*b = n != 0
	return nil
}
